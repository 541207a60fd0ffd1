package purchase

import (
	"context"
	"fmt"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	purchasedb "github.com/Davayme/chasquigo-backend-sub000/internal/purchase/db"
	"github.com/Davayme/chasquigo-backend-sub000/internal/seats"
	ticketdb "github.com/Davayme/chasquigo-backend-sub000/internal/tickets/db"
)

// GetStatus reports the transaction, its ticket and the payments taken.
func (s *Service) GetStatus(ctx context.Context, transactionID string) (*StatusResult, error) {
	pdb := purchasedb.New(s.Bun)

	ptx, err := pdb.GetTransaction(ctx, transactionID)
	if isNotFound(err) {
		return nil, apperror.NotFound("purchase transaction %s not found", transactionID)
	}
	if err != nil {
		return nil, apperror.Internal("failed to load purchase", err)
	}

	ticket, err := ticketdb.New(s.Bun).GetTicketByTransaction(ctx, transactionID)
	if err != nil {
		return nil, apperror.Internal("failed to load ticket", err)
	}

	route := ""
	if dep, err := seats.LoadDeparture(ctx, s.Bun, ptx.DepartureID); err == nil {
		route = dep.RouteSummary()
	}

	payments, err := pdb.GetPayments(ctx, transactionID)
	if err != nil {
		return nil, apperror.Internal("failed to load payments", err)
	}

	result := &StatusResult{
		Transaction: summarizeTransaction(ptx),
		Ticket:      summarizeTicket(ticket, route),
	}
	for _, p := range payments {
		result.Payments = append(result.Payments, PaymentSummary{
			Method:            p.Method,
			ExternalReference: p.ExternalReference,
			Amount:            p.Amount,
			Status:            p.Status,
			CreatedAt:         p.CreatedAt,
		})
	}
	return result, nil
}

// loadTicket is used for event payloads; a failure only costs detail.
func (s *Service) loadTicket(ctx context.Context, transactionID string) *models.Ticket {
	ticket, err := ticketdb.New(s.Bun).GetTicketByTransaction(ctx, transactionID)
	if err != nil {
		s.Logger.Warn("PURCHASE", fmt.Sprintf("Failed to load ticket for %s: %v", transactionID, err))
		return nil
	}
	return ticket
}
