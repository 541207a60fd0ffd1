package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	"github.com/Davayme/chasquigo-backend-sub000/internal/payment"
	purchasedb "github.com/Davayme/chasquigo-backend-sub000/internal/purchase/db"
	ticketdb "github.com/Davayme/chasquigo-backend-sub000/internal/tickets/db"
)

// settle completes a pending transaction inside tx: the transaction moves to
// completed, the payment row is written and the ticket is confirmed with a
// reservation code. A transaction that is no longer pending is reported
// through the outcome and nothing is written.
func (s *Service) settle(ctx context.Context, tx bun.IDB, ptx *models.PurchaseTransaction, pay *models.Payment) (models.SettlementOutcome, string, error) {
	pdb := purchasedb.New(tx)
	now := s.now()

	ok, err := pdb.CompleteTransaction(ctx, ptx.ID, now)
	if err != nil {
		return "", "", err
	}
	if !ok {
		current, err := pdb.GetTransaction(ctx, ptx.ID)
		if err != nil {
			return "", "", err
		}
		return outcomeForTerminal(current.Status, models.TransactionCompleted), "", nil
	}

	inserted, err := pdb.CreatePayment(ctx, pay)
	if err != nil {
		return "", "", err
	}
	if !inserted {
		s.Logger.LogPurchase("SETTLE", ptx.ID, fmt.Sprintf("payment %s/%s already recorded", pay.Method, pay.ExternalReference))
	}

	code, err := s.newCode(s.codePrefix)
	if err != nil {
		return "", "", fmt.Errorf("generate reservation code: %w", err)
	}
	stored, err := ticketdb.New(tx).ConfirmTicket(ctx, ptx.ID, code, now)
	if err != nil {
		return "", "", err
	}

	ptx.Status = models.TransactionCompleted
	ptx.CompletedAt = now
	ptx.UpdatedAt = now
	return models.OutcomeCompleted, stored, nil
}

// outcomeForTerminal reports a repeat of the wanted transition as already
// processed and anything else as already terminal.
func outcomeForTerminal(current, wanted models.TransactionStatus) models.SettlementOutcome {
	if current == wanted {
		return models.OutcomeAlreadyProcessed
	}
	return models.OutcomeAlreadyTerminal
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ---------------- GATEWAY SETTLEMENT ----------------

// CompleteGatewayPayment settles a purchase after the gateway confirmed the
// payment. Repeated calls for the same purchase change nothing.
func (s *Service) CompleteGatewayPayment(ctx context.Context, transactionID, externalReference string, amount decimal.Decimal) (models.SettlementOutcome, error) {
	var (
		outcome models.SettlementOutcome
		ptx     *models.PurchaseTransaction
	)
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		ptx, err = purchasedb.New(tx).GetTransaction(ctx, transactionID)
		if isNotFound(err) {
			outcome = models.OutcomeNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if ptx.Status.Terminal() {
			outcome = outcomeForTerminal(ptx.Status, models.TransactionCompleted)
			return nil
		}

		paid := ptx.FinalAmount
		if !amount.IsZero() && !amount.Equal(ptx.FinalAmount) {
			s.Logger.LogPurchase("SETTLE", transactionID, fmt.Sprintf("gateway amount %s differs from total %s",
				amount.StringFixed(2), ptx.FinalAmount.StringFixed(2)))
			paid = amount
		}
		pay := payment.NewGatewayPayment(transactionID, externalReference, paid, s.now())
		outcome, _, err = s.settle(ctx, tx, ptx, pay)
		return err
	})
	if err != nil {
		return "", apperror.Internal("failed to settle payment", err)
	}

	switch outcome {
	case models.OutcomeCompleted:
		s.Logger.LogPurchase("SETTLE", transactionID, fmt.Sprintf("completed by gateway payment %s", externalReference))
		s.publishCompleted(ctx, ptx, s.loadTicket(ctx, transactionID))
	case models.OutcomeAlreadyTerminal:
		// money was taken for a purchase that is already cancelled
		s.Logger.LogPurchase("SETTLE", transactionID, fmt.Sprintf("gateway payment %s arrived for a %s purchase", externalReference, ptx.Status))
	}
	return outcome, nil
}

// CancelFromGateway cancels a pending purchase after the gateway reported a
// failed or cancelled payment.
func (s *Service) CancelFromGateway(ctx context.Context, transactionID, reason string) (models.SettlementOutcome, error) {
	outcome, ptx, err := s.cancelPending(ctx, transactionID, reason)
	if err != nil {
		return "", apperror.Internal("failed to cancel purchase", err)
	}
	if outcome == models.OutcomeCancelled {
		s.Logger.LogPurchase("CANCEL", transactionID, fmt.Sprintf("cancelled by gateway: %s", reason))
		s.publishCancelled(ctx, ptx)
	}
	return outcome, nil
}

// ---------------- CANCELLATION ----------------

// cancelPending moves a pending purchase to cancelled and frees its seats in
// one database transaction.
func (s *Service) cancelPending(ctx context.Context, transactionID, reason string) (models.SettlementOutcome, *models.PurchaseTransaction, error) {
	var (
		outcome models.SettlementOutcome
		ptx     *models.PurchaseTransaction
	)
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		pdb := purchasedb.New(tx)
		var err error
		ptx, err = pdb.GetTransaction(ctx, transactionID)
		if isNotFound(err) {
			outcome = models.OutcomeNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if ptx.Status.Terminal() {
			outcome = outcomeForTerminal(ptx.Status, models.TransactionCancelled)
			return nil
		}

		now := s.now()
		ok, err := pdb.CancelTransaction(ctx, transactionID, reason, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := pdb.GetTransaction(ctx, transactionID)
			if err != nil {
				return err
			}
			ptx = current
			outcome = outcomeForTerminal(current.Status, models.TransactionCancelled)
			return nil
		}
		if _, err := ticketdb.New(tx).CancelTickets(ctx, transactionID, now); err != nil {
			return err
		}

		ptx.Status = models.TransactionCancelled
		ptx.CancelReason = reason
		ptx.CancelledAt = now
		ptx.UpdatedAt = now
		outcome = models.OutcomeCancelled
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, ptx, nil
}

// Cancel cancels a pending purchase on request. Cancelling twice succeeds;
// a completed purchase cannot be cancelled here.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	reason := req.Reason
	if reason == "" {
		reason = "cancelled by user"
	}

	outcome, ptx, err := s.cancelPending(ctx, req.TransactionID, reason)
	if err != nil {
		s.Logger.LogPurchase("CANCEL", req.TransactionID, fmt.Sprintf("failed: %v", err))
		return nil, apperror.Internal("failed to cancel purchase", err)
	}

	switch outcome {
	case models.OutcomeNotFound:
		return nil, apperror.NotFound("purchase transaction %s not found", req.TransactionID)
	case models.OutcomeAlreadyTerminal:
		return nil, apperror.BadRequest("purchase transaction %s is already completed", req.TransactionID)
	case models.OutcomeAlreadyProcessed:
		return &CancelResult{TransactionID: req.TransactionID, Cancelled: true, AlreadyCancelled: true}, nil
	}

	s.Logger.LogPurchase("CANCEL", req.TransactionID, fmt.Sprintf("cancelled: %s", reason))
	s.cancelIntent(ctx, ptx)
	s.publishCancelled(ctx, ptx)
	return &CancelResult{TransactionID: req.TransactionID, Cancelled: true}, nil
}

// cancelIntent voids the gateway intent of a purchase that no longer needs
// it. Failures are logged only.
func (s *Service) cancelIntent(ctx context.Context, ptx *models.PurchaseTransaction) {
	if s.Gateway == nil || ptx == nil || ptx.GatewayReference == "" {
		return
	}
	if err := s.Gateway.CancelIntent(context.WithoutCancel(ctx), ptx.GatewayReference); err != nil {
		s.Logger.LogPurchase("CANCEL", ptx.ID, fmt.Sprintf("failed to cancel payment intent %s: %v", ptx.GatewayReference, err))
	}
}

// ---------------- CASH ----------------

// ConfirmCash settles a pending purchase with cash taken at the counter.
// The amount must match the purchase total to within the cash epsilon.
func (s *Service) ConfirmCash(ctx context.Context, req ConfirmCashRequest) (*StatusResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var ptx *models.PurchaseTransaction
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		ptx, err = purchasedb.New(tx).GetTransaction(ctx, req.TransactionID)
		if isNotFound(err) {
			return apperror.NotFound("purchase transaction %s not found", req.TransactionID)
		}
		if err != nil {
			return err
		}
		if ptx.Status.Terminal() {
			return apperror.BadRequest("purchase transaction %s is already %s", req.TransactionID, ptx.Status)
		}
		if req.Amount.Sub(ptx.FinalAmount).Abs().GreaterThanOrEqual(s.cashEpsilon) {
			return apperror.AmountMismatch(ptx.FinalAmount.StringFixed(2), req.Amount.StringFixed(2))
		}

		notes := req.Notes
		if !req.Amount.Equal(ptx.FinalAmount) {
			notes = strings.TrimSpace(fmt.Sprintf("%s (received %s)", notes, req.Amount.StringFixed(2)))
		}
		pay := payment.NewCashPayment(ptx.ID, ptx.FinalAmount, req.StaffID, notes, s.now())
		outcome, _, err := s.settle(ctx, tx, ptx, pay)
		if err != nil {
			return err
		}
		if outcome != models.OutcomeCompleted {
			return apperror.BadRequest("purchase transaction %s is no longer pending", req.TransactionID)
		}
		return nil
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.Logger.LogPurchase("CASH", req.TransactionID, fmt.Sprintf("failed: %v", err))
		return nil, apperror.Internal("failed to confirm cash payment", err)
	}

	s.Logger.LogPurchase("CASH", ptx.ID, fmt.Sprintf("cash %s received by %s", req.Amount.StringFixed(2), req.StaffID))
	// a card checkout left open is no longer needed
	s.cancelIntent(ctx, ptx)
	s.publishCompleted(ctx, ptx, s.loadTicket(ctx, ptx.ID))
	return s.GetStatus(ctx, ptx.ID)
}
