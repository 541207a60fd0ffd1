package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/kafka"
	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	"github.com/Davayme/chasquigo-backend-sub000/internal/monitoring"
	"github.com/Davayme/chasquigo-backend-sub000/internal/seats"
	qr "github.com/Davayme/chasquigo-backend-sub000/internal/tickets/qr_generator"
)

type TicketDBLayer interface {
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	MarkQRIssued(ctx context.Context, ticketID string, at time.Time) (time.Time, error)
	MarkBoarded(ctx context.Context, ticketID string, at time.Time) (bool, error)
}

type BoardingPublisher interface {
	TicketBoarded(ctx context.Context, evt kafka.TicketEvent)
}

type ValidationReason string

const (
	ReasonValid          ValidationReason = "valid"
	ReasonHashMismatch   ValidationReason = "hash_mismatch"
	ReasonNotIssued      ValidationReason = "not_issued"
	ReasonExpired        ValidationReason = "expired"
	ReasonStatusMismatch ValidationReason = "status_mismatch"
)

type ValidationResult struct {
	Valid           bool             `json:"valid"`
	Reason          ValidationReason `json:"reason"`
	TicketID        string           `json:"ticket_id"`
	ReservationCode string           `json:"reservation_code,omitempty"`
	PassengerName   string           `json:"passenger_name"`
	Message         string           `json:"message"`
}

type TicketService struct {
	DB     TicketDBLayer
	Routes bun.IDB
	Signer *qr.Signer
	Events BoardingPublisher
	Logger *logger.Logger

	ttl time.Duration
	now func() time.Time
}

func NewTicketService(db TicketDBLayer, routes bun.IDB, signer *qr.Signer, ttl time.Duration, events BoardingPublisher, log *logger.Logger) *TicketService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TicketService{
		DB:     db,
		Routes: routes,
		Signer: signer,
		Events: events,
		Logger: log,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicket(ctx, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("ticket %s not found", ticketID)
	}
	if err != nil {
		return nil, apperror.Internal("failed to load ticket", err)
	}
	return ticket, nil
}

// hash signs the ticket's purchase tuple. The ticket row is written with the
// transaction, so CreatedAt is the purchase timestamp.
func (s *TicketService) hash(t *models.Ticket) string {
	return s.Signer.Hash(t.ID, t.BuyerID, t.TransactionID, t.CreatedAt)
}

// DisplayName is the first passenger's name, with "+N" for the others.
func DisplayName(t *models.Ticket) string {
	if len(t.Passengers) == 0 || t.Passengers[0].Passenger == nil {
		return ""
	}
	name := t.Passengers[0].Passenger.FullName()
	if extra := len(t.Passengers) - 1; extra > 0 {
		name = fmt.Sprintf("%s +%d", name, extra)
	}
	return name
}

// Issue builds the signed payload of a confirmed ticket. The first issue
// time is kept, so re-issuing does not extend the expiry.
func (s *TicketService) Issue(ctx context.Context, ticketID string) (*models.TicketPayload, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != models.TicketConfirmed {
		return nil, apperror.BadRequest("ticket %s is %s; only confirmed tickets can be issued", ticketID, ticket.Status)
	}

	issuedAt, err := s.DB.MarkQRIssued(ctx, ticket.ID, s.now())
	if err != nil {
		return nil, apperror.Internal("failed to issue ticket", err)
	}

	route := ""
	if dep, err := seats.LoadDeparture(ctx, s.Routes, ticket.DepartureID); err == nil {
		route = dep.RouteSummary()
	} else {
		s.Logger.Warn("TICKET", fmt.Sprintf("No route for ticket %s: %v", ticket.ID, err))
	}

	payload := &models.TicketPayload{
		TicketID:        ticket.ID,
		ReservationCode: ticket.ReservationCode,
		Route:           route,
		Hash:            s.hash(ticket),
		IssuedAt:        issuedAt,
		ExpiresAt:       issuedAt.Add(s.ttl),
	}
	for _, tp := range ticket.Passengers {
		summary := models.PassengerSummary{
			SeatNumber:    tp.SeatNumber,
			SeatType:      tp.SeatType,
			PassengerType: tp.PassengerType,
		}
		if tp.Passenger != nil {
			summary.Name = tp.Passenger.FullName()
		}
		payload.Passengers = append(payload.Passengers, summary)
	}

	s.Logger.Info("TICKET", fmt.Sprintf("Issued payload for ticket %s (%s)", ticket.ID, ticket.ReservationCode))
	return payload, nil
}

// QRCode issues the payload and renders it as a PNG.
func (s *TicketService) QRCode(ctx context.Context, ticketID string) ([]byte, error) {
	payload, err := s.Issue(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	png, err := s.Signer.Encode(payload)
	if err != nil {
		return nil, apperror.Internal("failed to render ticket", err)
	}
	return png, nil
}

// Validate checks a scanned hash and boards the ticket. Invalid scans change
// nothing and report why.
func (s *TicketService) Validate(ctx context.Context, ticketID, presentedHash string) (*ValidationResult, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{
		TicketID:        ticket.ID,
		ReservationCode: ticket.ReservationCode,
		PassengerName:   DisplayName(ticket),
	}
	now := s.now()

	switch {
	case !s.Signer.Verify(presentedHash, ticket.ID, ticket.BuyerID, ticket.TransactionID, ticket.CreatedAt):
		return s.reject(result, ReasonHashMismatch, "ticket signature does not match"), nil
	case ticket.QRIssuedAt.IsZero():
		return s.reject(result, ReasonNotIssued, "ticket has not been issued"), nil
	case now.After(ticket.QRIssuedAt.Add(s.ttl)):
		return s.reject(result, ReasonExpired, "ticket has expired"), nil
	case ticket.Status != models.TicketConfirmed:
		return s.reject(result, ReasonStatusMismatch, fmt.Sprintf("ticket is %s", ticket.Status)), nil
	}

	boarded, err := s.DB.MarkBoarded(ctx, ticket.ID, now)
	if err != nil {
		return nil, apperror.Internal("failed to board ticket", err)
	}
	if !boarded {
		return s.reject(result, ReasonStatusMismatch, "ticket is no longer confirmed"), nil
	}

	result.Valid = true
	result.Reason = ReasonValid
	result.Message = fmt.Sprintf("Welcome aboard, %s", result.PassengerName)
	monitoring.RecordTicketValidation(string(ReasonValid))
	s.Logger.Info("TICKET", fmt.Sprintf("Ticket %s boarded", ticket.ID))

	if s.Events != nil {
		s.Events.TicketBoarded(ctx, kafka.TicketEvent{
			TicketID:        ticket.ID,
			TransactionID:   ticket.TransactionID,
			DepartureID:     ticket.DepartureID,
			ReservationCode: ticket.ReservationCode,
			Status:          string(models.TicketBoarded),
			OccurredAt:      now,
		})
	}
	return result, nil
}

func (s *TicketService) reject(result *ValidationResult, reason ValidationReason, message string) *ValidationResult {
	result.Valid = false
	result.Reason = reason
	result.Message = message
	monitoring.RecordTicketValidation(string(reason))
	s.Logger.Warn("TICKET", fmt.Sprintf("Validation of %s rejected: %s", result.TicketID, reason))
	return result
}
