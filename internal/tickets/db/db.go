package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/database"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

// ErrSeatTaken is returned when an active ticket already holds one of the
// seats being inserted.
var ErrSeatTaken = errors.New("seat already taken on departure")

type DB struct {
	Bun bun.IDB
}

func New(idb bun.IDB) *DB {
	return &DB{Bun: idb}
}

func (d *DB) WithTx(tx bun.IDB) *DB {
	return &DB{Bun: tx}
}

// CreateTicket inserts the ticket and its passenger rows. The partial unique
// index on active (departure_id, seat_id) turns a lost race into ErrSeatTaken.
func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket, passengers []*models.TicketPassenger) error {
	if _, err := d.Bun.NewInsert().Model(ticket).Exec(ctx); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	if len(passengers) == 0 {
		return nil
	}
	if _, err := d.Bun.NewInsert().Model(&passengers).Exec(ctx); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrSeatTaken, err)
		}
		return fmt.Errorf("insert ticket passengers: %w", err)
	}
	return nil
}

func (d *DB) selectTicket(ticket *models.Ticket) *bun.SelectQuery {
	return d.Bun.NewSelect().Model(ticket).
		Relation("Passengers", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("tp.seat_number ASC")
		}).
		Relation("Passengers.Passenger")
}

// GetTicket loads a ticket with its passengers ordered by seat number.
func (d *DB) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	ticket := new(models.Ticket)
	if err := d.selectTicket(ticket).Where("t.id = ?", id).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select ticket %s: %w", id, err)
	}
	return ticket, nil
}

func (d *DB) GetTicketByTransaction(ctx context.Context, transactionID string) (*models.Ticket, error) {
	ticket := new(models.Ticket)
	if err := d.selectTicket(ticket).Where("t.transaction_id = ?", transactionID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select ticket for transaction %s: %w", transactionID, err)
	}
	return ticket, nil
}

// ConfirmTicket marks the ticket CONFIRMED and assigns code unless a code is
// already set. Returns the code the ticket carries afterwards.
func (d *DB) ConfirmTicket(ctx context.Context, transactionID, code string, at time.Time) (string, error) {
	_, err := d.Bun.NewUpdate().Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketConfirmed).
		Set("reservation_code = COALESCE(reservation_code, ?)", code).
		Set("updated_at = ?", at).
		Where("transaction_id = ?", transactionID).
		Where("status IN (?)", bun.In([]models.TicketStatus{models.TicketPending, models.TicketPaid})).
		Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("confirm ticket for %s: %w", transactionID, err)
	}

	var stored sql.NullString
	err = d.Bun.NewSelect().Model((*models.Ticket)(nil)).
		Column("reservation_code").
		Where("transaction_id = ?", transactionID).
		Scan(ctx, &stored)
	if err != nil {
		return "", fmt.Errorf("read reservation code for %s: %w", transactionID, err)
	}
	return stored.String, nil
}

// CancelTickets marks every ticket of the transaction CANCELLED and releases
// its seats. Boarded tickets are left untouched.
func (d *DB) CancelTickets(ctx context.Context, transactionID string, at time.Time) (int, error) {
	res, err := d.Bun.NewUpdate().Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketCancelled).
		Set("updated_at = ?", at).
		Where("transaction_id = ?", transactionID).
		Where("status NOT IN (?)", bun.In([]models.TicketStatus{models.TicketBoarded, models.TicketCancelled})).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("cancel tickets for %s: %w", transactionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	cancelled := d.Bun.NewSelect().Model((*models.Ticket)(nil)).
		Column("id").
		Where("transaction_id = ?", transactionID).
		Where("status = ?", models.TicketCancelled)
	_, err = d.Bun.NewUpdate().Model((*models.TicketPassenger)(nil)).
		Set("active = ?", false).
		Where("ticket_id IN (?)", cancelled).
		Where("active = ?", true).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("release seats for %s: %w", transactionID, err)
	}
	return int(n), nil
}

// MarkQRIssued stamps the first issue time and returns the stored value.
func (d *DB) MarkQRIssued(ctx context.Context, ticketID string, at time.Time) (time.Time, error) {
	_, err := d.Bun.NewUpdate().Model((*models.Ticket)(nil)).
		Set("qr_issued_at = ?", at).
		Where("id = ?", ticketID).
		Where("qr_issued_at IS NULL").
		Exec(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("mark qr issued for %s: %w", ticketID, err)
	}

	ticket := new(models.Ticket)
	err = d.Bun.NewSelect().Model(ticket).Column("qr_issued_at").Where("id = ?", ticketID).Scan(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("read qr issue time for %s: %w", ticketID, err)
	}
	return ticket.QRIssuedAt, nil
}

// MarkBoarded moves a CONFIRMED ticket to BOARDED. It reports false when the
// ticket was not CONFIRMED anymore.
func (d *DB) MarkBoarded(ctx context.Context, ticketID string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketBoarded).
		Set("boarded_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", ticketID).
		Where("status = ?", models.TicketConfirmed).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("board ticket %s: %w", ticketID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
