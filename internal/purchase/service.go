package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/kafka"
	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	"github.com/Davayme/chasquigo-backend-sub000/internal/monitoring"
	"github.com/Davayme/chasquigo-backend-sub000/internal/passengers"
	"github.com/Davayme/chasquigo-backend-sub000/internal/payment"
	"github.com/Davayme/chasquigo-backend-sub000/internal/pricing"
	purchasedb "github.com/Davayme/chasquigo-backend-sub000/internal/purchase/db"
	"github.com/Davayme/chasquigo-backend-sub000/internal/seats"
	ticketdb "github.com/Davayme/chasquigo-backend-sub000/internal/tickets/db"
	"github.com/Davayme/chasquigo-backend-sub000/internal/utils"
)

// SeatHolder is the short-lived seat hold taken before the database write.
type SeatHolder interface {
	HoldSeats(ctx context.Context, departureID string, seatIDs []string, owner string) ([]string, error)
	ReleaseSeats(ctx context.Context, departureID string, seatIDs []string, owner string) error
}

type Gateway interface {
	CreateIntent(ctx context.Context, transactionID string, amount decimal.Decimal) (*payment.Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
}

type EventPublisher interface {
	PurchaseCreated(ctx context.Context, evt kafka.PurchaseEvent)
	PurchaseCompleted(ctx context.Context, evt kafka.PurchaseEvent)
	PurchaseCancelled(ctx context.Context, evt kafka.PurchaseEvent)
}

type Options struct {
	// Cash is accepted when it differs from the total by less than CashEpsilon.
	CashEpsilon decimal.Decimal
	CodePrefix  string
}

// Service orchestrates purchases. Holds, Gateway and Events are optional;
// without a Gateway the stripe method is refused.
type Service struct {
	Bun        *bun.DB
	Passengers *passengers.Registry
	Holds      SeatHolder
	Gateway    Gateway
	Events     EventPublisher
	Logger     *logger.Logger

	cashEpsilon decimal.Decimal
	codePrefix  string
	now         func() time.Time
	newCode     func(prefix string) (string, error)
}

func NewService(db *bun.DB, holds SeatHolder, gateway Gateway, events EventPublisher, log *logger.Logger, opts Options) *Service {
	if opts.CashEpsilon.IsZero() {
		opts.CashEpsilon = decimal.NewFromFloat(0.01)
	}
	if opts.CodePrefix == "" {
		opts.CodePrefix = "CHQ"
	}
	return &Service{
		Bun:         db,
		Passengers:  passengers.NewRegistry(),
		Holds:       holds,
		Gateway:     gateway,
		Events:      events,
		Logger:      log,
		cashEpsilon: opts.CashEpsilon,
		codePrefix:  opts.CodePrefix,
		now:         time.Now,
		newCode:     utils.GenerateReservationCode,
	}
}

// created is what the initiation transaction wrote.
type created struct {
	departure *models.Departure
	tx        *models.PurchaseTransaction
	ticket    *models.Ticket
}

// ---------------- INITIATE ----------------

// Initiate validates and prices the request, then writes the pending
// transaction and its ticket in one database transaction. Cash purchases
// are completed in that same transaction. Stripe purchases get a payment
// intent once the rows are committed.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (*PurchaseResult, error) {
	started := s.now()
	method := string(req.PaymentMethod)

	if err := req.Validate(); err != nil {
		monitoring.RecordPurchase(method, "rejected", started)
		return nil, err
	}
	if req.PaymentMethod == models.PaymentMethodStripe && s.Gateway == nil {
		monitoring.RecordPurchase(method, "rejected", started)
		return nil, apperror.BadRequest("payment method %q is not available", req.PaymentMethod)
	}

	txID := uuid.New().String()
	seatIDs := req.SeatIDs()

	if err := s.holdSeats(ctx, req.DepartureID, seatIDs, txID); err != nil {
		s.recordFailure(method, err, started)
		return nil, err
	}
	defer s.releaseSeats(ctx, req.DepartureID, seatIDs, txID)

	var c *created
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		c, err = s.create(ctx, tx, txID, &req)
		return err
	})
	if err != nil {
		err = s.translateCreateError(ctx, req.DepartureID, seatIDs, err)
		s.recordFailure(method, err, started)
		if apperror.Is(err, apperror.KindInternal) {
			s.Logger.LogPurchase("INITIATE", txID, fmt.Sprintf("failed: %v", err))
		}
		return nil, err
	}

	s.Logger.LogPurchase("INITIATE", txID, fmt.Sprintf("created %s purchase for %d passenger(s), total %s",
		req.PaymentMethod, len(req.Passengers), c.tx.FinalAmount.StringFixed(2)))
	s.publishCreated(ctx, c)

	result := &PurchaseResult{
		Transaction: summarizeTransaction(c.tx),
		Ticket:      summarizeTicket(c.ticket, c.departure.RouteSummary()),
	}

	if req.PaymentMethod == models.PaymentMethodCash {
		s.publishCompleted(ctx, c.tx, c.ticket)
		monitoring.RecordPurchase(method, "completed", started)
		return result, nil
	}

	intent, err := s.Gateway.CreateIntent(ctx, txID, c.tx.FinalAmount)
	if err != nil {
		s.Logger.LogPurchase("INITIATE", txID, fmt.Sprintf("payment intent failed, cancelling: %v", err))
		if _, _, cerr := s.cancelPending(context.WithoutCancel(ctx), txID, "payment gateway unavailable"); cerr != nil {
			s.Logger.LogPurchase("INITIATE", txID, fmt.Sprintf("compensating cancel failed: %v", cerr))
		}
		monitoring.RecordPurchase(method, "gateway_error", started)
		return nil, apperror.Internal("payment gateway unavailable", err)
	}
	if err := purchasedb.New(s.Bun).SetGatewayReference(ctx, txID, intent.ID); err != nil {
		// the webhook still resolves the purchase through the intent metadata
		s.Logger.LogPurchase("INITIATE", txID, fmt.Sprintf("failed to store gateway reference %s: %v", intent.ID, err))
	}

	result.GatewayCredentials = intent
	monitoring.RecordPurchase(method, "pending", started)
	return result, nil
}

func (s *Service) create(ctx context.Context, tx bun.Tx, txID string, req *InitiateRequest) (*created, error) {
	dep, err := seats.LoadDeparture(ctx, tx, req.DepartureID)
	if err != nil {
		return nil, err
	}
	seatRows, err := seats.Check(ctx, tx, dep, req.SeatIDs())
	if err != nil {
		return nil, err
	}
	cfg, err := pricing.LoadConfig(ctx, tx, dep.FrequencyID)
	if err != nil {
		return nil, err
	}

	items := make([]pricing.Item, len(seatRows))
	for i, seat := range seatRows {
		items[i] = pricing.Item{
			SeatID:        seat.ID,
			SeatNumber:    seat.Number,
			SeatType:      seat.Type,
			PassengerType: req.Passengers[i].PassengerType,
		}
	}
	quote, err := pricing.Calculate(cfg, items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ptx := &models.PurchaseTransaction{
		ID:             txID,
		BuyerID:        req.BuyerID,
		DepartureID:    dep.ID,
		PaymentMethod:  req.PaymentMethod,
		Status:         models.TransactionPending,
		BaseAmount:     quote.Totals.BaseAmount,
		DiscountAmount: quote.Totals.DiscountAmount,
		TaxAmount:      quote.Totals.TaxAmount,
		FinalAmount:    quote.Totals.FinalAmount,
		PurchasedAt:    now,
		UpdatedAt:      now,
	}
	ticket := &models.Ticket{
		ID:             uuid.New().String(),
		TransactionID:  txID,
		DepartureID:    dep.ID,
		BusID:          dep.BusID,
		FrequencyID:    dep.FrequencyID,
		BuyerID:        req.BuyerID,
		Status:         models.TicketPending,
		PassengerCount: len(quote.Lines),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	rows := make([]*models.TicketPassenger, len(quote.Lines))
	for i, line := range quote.Lines {
		pr := req.Passengers[i]
		p, err := s.Passengers.Resolve(ctx, tx, pr.IDNumber, pr.FirstName, pr.LastName)
		if err != nil {
			return nil, err
		}
		rows[i] = &models.TicketPassenger{
			ID:             uuid.New().String(),
			TicketID:       ticket.ID,
			PassengerID:    p.ID,
			DepartureID:    dep.ID,
			SeatID:         line.SeatID,
			SeatNumber:     line.SeatNumber,
			SeatType:       line.SeatType,
			PassengerType:  line.PassengerType,
			BasePrice:      line.BasePrice,
			DiscountAmount: line.DiscountAmount,
			TaxAmount:      line.TaxAmount,
			FinalPrice:     line.FinalPrice,
			Active:         true,
			Passenger:      p,
		}
	}

	if err := purchasedb.New(tx).CreateTransaction(ctx, ptx); err != nil {
		return nil, err
	}
	if err := ticketdb.New(tx).CreateTicket(ctx, ticket, rows); err != nil {
		return nil, err
	}
	ticket.Passengers = rows

	if req.PaymentMethod == models.PaymentMethodCash {
		pay := payment.NewCashPayment(txID, ptx.FinalAmount, req.BuyerID, "paid at checkout", now)
		outcome, code, err := s.settle(ctx, tx, ptx, pay)
		if err != nil {
			return nil, err
		}
		if outcome != models.OutcomeCompleted {
			return nil, fmt.Errorf("cash purchase %s settled as %s", txID, outcome)
		}
		ticket.Status = models.TicketConfirmed
		ticket.ReservationCode = code
	}

	return &created{departure: dep, tx: ptx, ticket: ticket}, nil
}

// translateCreateError turns a lost seat race into a SeatConflict naming the
// seats now held. Typed errors pass through; anything else is Internal.
func (s *Service) translateCreateError(ctx context.Context, departureID string, seatIDs []string, err error) error {
	if errors.Is(err, ticketdb.ErrSeatTaken) {
		numbers, qerr := seats.OccupiedSeatNumbers(ctx, s.Bun, departureID, seatIDs)
		if qerr != nil || len(numbers) == 0 {
			numbers = s.seatNumbers(ctx, seatIDs)
		}
		return apperror.SeatConflict(numbers)
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.Internal("failed to create purchase", err)
}

// ---------------- SEAT HOLDS ----------------

// holdSeats takes the fast-path hold. An unavailable hold store is logged
// and skipped; the unique index still decides.
func (s *Service) holdSeats(ctx context.Context, departureID string, seatIDs []string, owner string) error {
	if s.Holds == nil {
		return nil
	}
	taken, err := s.Holds.HoldSeats(ctx, departureID, seatIDs, owner)
	if len(taken) > 0 {
		if err != nil {
			s.Logger.Warn("PURCHASE", fmt.Sprintf("Seat hold for %s lost but not fully released: %v", owner, err))
		}
		return apperror.SeatConflict(s.seatNumbers(ctx, taken))
	}
	if err != nil {
		s.Logger.Warn("PURCHASE", fmt.Sprintf("Seat hold unavailable for %s, continuing without it: %v", owner, err))
	}
	return nil
}

func (s *Service) releaseSeats(ctx context.Context, departureID string, seatIDs []string, owner string) {
	if s.Holds == nil {
		return
	}
	if err := s.Holds.ReleaseSeats(context.WithoutCancel(ctx), departureID, seatIDs, owner); err != nil {
		s.Logger.Warn("PURCHASE", fmt.Sprintf("Failed to release seat hold for %s: %v", owner, err))
	}
}

// seatNumbers maps seat ids to their printed numbers for error details.
func (s *Service) seatNumbers(ctx context.Context, seatIDs []string) []int {
	var numbers []int
	err := s.Bun.NewSelect().Model((*models.Seat)(nil)).
		Column("number").
		Where("id IN (?)", bun.In(seatIDs)).
		Order("number ASC").
		Scan(ctx, &numbers)
	if err != nil {
		s.Logger.Warn("PURCHASE", fmt.Sprintf("Failed to resolve seat numbers: %v", err))
		return []int{}
	}
	return numbers
}

// ---------------- EVENTS ----------------

func purchaseEvent(ptx *models.PurchaseTransaction, ticket *models.Ticket, at time.Time) kafka.PurchaseEvent {
	evt := kafka.PurchaseEvent{
		TransactionID: ptx.ID,
		DepartureID:   ptx.DepartureID,
		BuyerID:       ptx.BuyerID,
		Status:        string(ptx.Status),
		PaymentMethod: string(ptx.PaymentMethod),
		FinalAmount:   ptx.FinalAmount.StringFixed(2),
		Reason:        ptx.CancelReason,
		OccurredAt:    at,
	}
	if ticket != nil {
		evt.TicketID = ticket.ID
		evt.ReservationCode = ticket.ReservationCode
		for _, tp := range ticket.Passengers {
			evt.SeatNumbers = append(evt.SeatNumbers, tp.SeatNumber)
		}
	}
	return evt
}

func (s *Service) publishCreated(ctx context.Context, c *created) {
	if s.Events == nil {
		return
	}
	// created describes the pending snapshot; the code belongs to completion
	evt := purchaseEvent(c.tx, c.ticket, s.now())
	evt.Status = string(models.TransactionPending)
	evt.ReservationCode = ""
	s.Events.PurchaseCreated(ctx, evt)
}

func (s *Service) publishCompleted(ctx context.Context, ptx *models.PurchaseTransaction, ticket *models.Ticket) {
	if s.Events == nil {
		return
	}
	s.Events.PurchaseCompleted(ctx, purchaseEvent(ptx, ticket, s.now()))
}

func (s *Service) publishCancelled(ctx context.Context, ptx *models.PurchaseTransaction) {
	if s.Events == nil {
		return
	}
	s.Events.PurchaseCancelled(ctx, purchaseEvent(ptx, nil, s.now()))
}

func (s *Service) recordFailure(method string, err error, started time.Time) {
	switch apperror.KindOf(err) {
	case apperror.KindConflict:
		monitoring.RecordSeatConflict()
		monitoring.RecordPurchase(method, "conflict", started)
	case apperror.KindInternal:
		monitoring.RecordPurchase(method, "error", started)
	default:
		monitoring.RecordPurchase(method, "rejected", started)
	}
}
