package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/database/dbtest"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	"github.com/Davayme/chasquigo-backend-sub000/internal/tickets/db"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	t.Helper()
	bunDB := dbtest.New(t)
	dbtest.Seed(t, bunDB)

	_, err := bunDB.NewInsert().Model(&models.Passenger{
		ID: "pax-1", IDNumber: "1712345678", FirstName: "Ana", LastName: "Quispe",
		CreatedAt: now, UpdatedAt: now,
	}).Exec(context.Background())
	require.NoError(t, err)
	return db.New(bunDB), bunDB
}

func newTicket(txID string, status models.TicketStatus, seatIDs ...string) (*models.Ticket, []*models.TicketPassenger) {
	ticket := &models.Ticket{
		ID:             uuid.NewString(),
		TransactionID:  txID,
		DepartureID:    dbtest.DepartureID,
		BusID:          dbtest.BusID,
		FrequencyID:    dbtest.FrequencyID,
		BuyerID:        "buyer-1",
		Status:         status,
		PassengerCount: len(seatIDs),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	var rows []*models.TicketPassenger
	for i, seatID := range seatIDs {
		rows = append(rows, &models.TicketPassenger{
			ID:             uuid.NewString(),
			TicketID:       ticket.ID,
			PassengerID:    "pax-1",
			DepartureID:    dbtest.DepartureID,
			SeatID:         seatID,
			SeatNumber:     20 - i,
			SeatType:       models.SeatTypeNormal,
			PassengerType:  models.PassengerTypeNormal,
			BasePrice:      decimal.RequireFromString("5.00"),
			DiscountAmount: decimal.Zero,
			TaxAmount:      decimal.RequireFromString("0.60"),
			FinalPrice:     decimal.RequireFromString("5.60"),
			Active:         true,
		})
	}
	return ticket, rows
}

func TestCreateAndGetTicket(t *testing.T) {
	ticketDB, _ := setupTestDB(t)
	ctx := context.Background()

	ticket, rows := newTicket("tx-1", models.TicketPending, dbtest.Seat12, dbtest.Seat2)
	require.NoError(t, ticketDB.CreateTicket(ctx, ticket, rows))

	got, err := ticketDB.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", got.TransactionID)
	require.Len(t, got.Passengers, 2)
	assert.Less(t, got.Passengers[0].SeatNumber, got.Passengers[1].SeatNumber)
	require.NotNil(t, got.Passengers[0].Passenger)
	assert.Equal(t, "Ana Quispe", got.Passengers[0].Passenger.FullName())

	byTx, err := ticketDB.GetTicketByTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, byTx.ID)
}

func TestCreateTicketRejectsTakenSeat(t *testing.T) {
	ticketDB, bunDB := setupTestDB(t)
	ctx := context.Background()

	first, rows := newTicket("tx-1", models.TicketPending, dbtest.Seat12)
	require.NoError(t, ticketDB.CreateTicket(ctx, first, rows))

	err := bunDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		second, rows := newTicket("tx-2", models.TicketPending, dbtest.Seat12)
		return ticketDB.WithTx(tx).CreateTicket(ctx, second, rows)
	})
	assert.ErrorIs(t, err, db.ErrSeatTaken)

	_, err = ticketDB.GetTicketByTransaction(ctx, "tx-2")
	assert.Error(t, err, "the losing ticket must roll back")
}

func TestConfirmTicketKeepsFirstCode(t *testing.T) {
	ticketDB, _ := setupTestDB(t)
	ctx := context.Background()

	ticket, rows := newTicket("tx-1", models.TicketPending, dbtest.Seat12)
	require.NoError(t, ticketDB.CreateTicket(ctx, ticket, rows))

	code, err := ticketDB.ConfirmTicket(ctx, "tx-1", "CHQ-AAAAAAAA", now)
	require.NoError(t, err)
	assert.Equal(t, "CHQ-AAAAAAAA", code)

	code, err = ticketDB.ConfirmTicket(ctx, "tx-1", "CHQ-BBBBBBBB", now)
	require.NoError(t, err)
	assert.Equal(t, "CHQ-AAAAAAAA", code)

	got, err := ticketDB.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketConfirmed, got.Status)
}

func TestCancelTicketsFreesSeats(t *testing.T) {
	ticketDB, _ := setupTestDB(t)
	ctx := context.Background()

	ticket, rows := newTicket("tx-1", models.TicketPending, dbtest.Seat12)
	require.NoError(t, ticketDB.CreateTicket(ctx, ticket, rows))

	n, err := ticketDB.CancelTickets(ctx, "tx-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := ticketDB.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketCancelled, got.Status)
	assert.False(t, got.Passengers[0].Active)

	again, rows := newTicket("tx-2", models.TicketPending, dbtest.Seat12)
	assert.NoError(t, ticketDB.CreateTicket(ctx, again, rows))

	n, err = ticketDB.CancelTickets(ctx, "tx-1", now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancelTicketsLeavesBoarded(t *testing.T) {
	ticketDB, _ := setupTestDB(t)
	ctx := context.Background()

	ticket, rows := newTicket("tx-1", models.TicketConfirmed, dbtest.Seat12)
	require.NoError(t, ticketDB.CreateTicket(ctx, ticket, rows))
	boarded, err := ticketDB.MarkBoarded(ctx, ticket.ID, now)
	require.NoError(t, err)
	require.True(t, boarded)

	n, err := ticketDB.CancelTickets(ctx, "tx-1", now)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := ticketDB.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketBoarded, got.Status)
	assert.True(t, got.Passengers[0].Active)
}

func TestMarkQRIssuedKeepsFirstTime(t *testing.T) {
	ticketDB, _ := setupTestDB(t)
	ctx := context.Background()

	ticket, rows := newTicket("tx-1", models.TicketConfirmed, dbtest.Seat12)
	require.NoError(t, ticketDB.CreateTicket(ctx, ticket, rows))

	first, err := ticketDB.MarkQRIssued(ctx, ticket.ID, now)
	require.NoError(t, err)
	assert.True(t, first.Equal(now))

	second, err := ticketDB.MarkQRIssued(ctx, ticket.ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, second.Equal(now))
}

func TestMarkBoardedOnlyOnce(t *testing.T) {
	ticketDB, _ := setupTestDB(t)
	ctx := context.Background()

	pending, rows := newTicket("tx-1", models.TicketPending, dbtest.Seat12)
	require.NoError(t, ticketDB.CreateTicket(ctx, pending, rows))
	ok, err := ticketDB.MarkBoarded(ctx, pending.ID, now)
	require.NoError(t, err)
	assert.False(t, ok, "pending tickets cannot board")

	_, err = ticketDB.ConfirmTicket(ctx, "tx-1", "CHQ-AAAAAAAA", now)
	require.NoError(t, err)

	ok, err = ticketDB.MarkBoarded(ctx, pending.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ticketDB.MarkBoarded(ctx, pending.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)
}
