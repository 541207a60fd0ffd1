package purchase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/database/dbtest"
	"github.com/Davayme/chasquigo-backend-sub000/internal/kafka"
	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	"github.com/Davayme/chasquigo-backend-sub000/internal/payment"
	purchasedb "github.com/Davayme/chasquigo-backend-sub000/internal/purchase/db"
	purchaseredis "github.com/Davayme/chasquigo-backend-sub000/internal/purchase/redis"
	"github.com/Davayme/chasquigo-backend-sub000/internal/seats"
)

type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	created   []string
	cancelled []string
}

func (g *fakeGateway) CreateIntent(_ context.Context, transactionID string, amount decimal.Decimal) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, transactionID)
	return &payment.Intent{
		ID:           "pi_" + transactionID,
		ClientSecret: "pi_" + transactionID + "_secret",
		Status:       "requires_payment_method",
		Amount:       amount,
		Currency:     "usd",
	}, nil
}

func (g *fakeGateway) CancelIntent(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, intentID)
	return nil
}

type recordingEvents struct {
	mu        sync.Mutex
	created   []kafka.PurchaseEvent
	completed []kafka.PurchaseEvent
	cancelled []kafka.PurchaseEvent
}

func (e *recordingEvents) PurchaseCreated(_ context.Context, evt kafka.PurchaseEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, evt)
}

func (e *recordingEvents) PurchaseCompleted(_ context.Context, evt kafka.PurchaseEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, evt)
}

func (e *recordingEvents) PurchaseCancelled(_ context.Context, evt kafka.PurchaseEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = append(e.cancelled, evt)
}

type fixture struct {
	db      *bun.DB
	svc     *Service
	gateway *fakeGateway
	events  *recordingEvents
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	dbtest.Seed(t, db)

	gw := &fakeGateway{}
	events := &recordingEvents{}
	svc := NewService(db, nil, gw, events, logger.Discard(), Options{})
	return &fixture{db: db, svc: svc, gateway: gw, events: events}
}

func request(method models.PaymentMethod, seatID, idNumber string) InitiateRequest {
	return InitiateRequest{
		BuyerID:       "buyer-1",
		DepartureID:   dbtest.DepartureID,
		PaymentMethod: method,
		Passengers: []PassengerRequest{{
			SeatID:        seatID,
			PassengerType: models.PassengerTypeNormal,
			FirstName:     "Ana",
			LastName:      "Quispe",
			IDNumber:      idNumber,
		}},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) payments(t *testing.T, txID string) []models.Payment {
	t.Helper()
	payments, err := purchasedb.New(f.db).GetPayments(context.Background(), txID)
	require.NoError(t, err)
	return payments
}

func TestInitiateCashCompletesImmediately(t *testing.T) {
	f := setup(t)

	res, err := f.svc.Initiate(context.Background(), request(models.PaymentMethodCash, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)

	assert.Equal(t, models.TransactionCompleted, res.Transaction.Status)
	assert.True(t, dec("5.60").Equal(res.Transaction.FinalAmount))
	assert.Equal(t, models.TicketConfirmed, res.Ticket.Status)
	assert.Regexp(t, `^CHQ-[A-Z2-9]{8}$`, res.Ticket.ReservationCode)
	assert.Equal(t, "Quito → Ambato, 2026-11-02 08:30 (bus 42)", res.Ticket.RouteSummary)
	assert.Nil(t, res.GatewayCredentials)

	payments := f.payments(t, res.Transaction.ID)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentMethodCash, payments[0].Method)
	assert.True(t, dec("5.60").Equal(payments[0].Amount))

	assert.Len(t, f.events.created, 1)
	require.Len(t, f.events.completed, 1)
	assert.Equal(t, []int{12}, f.events.completed[0].SeatNumbers)
}

func TestInitiateStripeLeavesPurchasePending(t *testing.T) {
	f := setup(t)

	res, err := f.svc.Initiate(context.Background(), request(models.PaymentMethodStripe, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)

	assert.Equal(t, models.TransactionPending, res.Transaction.Status)
	assert.Equal(t, models.TicketPending, res.Ticket.Status)
	assert.Empty(t, res.Ticket.ReservationCode)
	require.NotNil(t, res.GatewayCredentials)
	assert.Equal(t, "pi_"+res.Transaction.ID, res.GatewayCredentials.ID)

	ptx, err := purchasedb.New(f.db).GetTransaction(context.Background(), res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_"+res.Transaction.ID, ptx.GatewayReference)
	assert.Empty(t, f.payments(t, res.Transaction.ID))
	assert.Empty(t, f.events.completed)
}

func TestInitiateRejectsSeatHeldByPendingPurchase(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, request(models.PaymentMethodStripe, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, request(models.PaymentMethodCash, dbtest.Seat12, "0912345678"))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []int{12}, appErr.Details["occupied_seats"])
}

func TestConcurrentPurchasesOfOneSeatHaveOneWinner(t *testing.T) {
	f := setup(t)
	const buyers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := request(models.PaymentMethodCash, dbtest.Seat12, fmt.Sprintf("17000000%02d", i))
			req.BuyerID = fmt.Sprintf("buyer-%d", i)
			_, err := f.svc.Initiate(context.Background(), req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperror.Is(err, apperror.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, buyers-1, conflicts)

	count, err := f.db.NewSelect().Model((*models.TicketPassenger)(nil)).
		Where("departure_id = ?", dbtest.DepartureID).
		Where("seat_id = ?", dbtest.Seat12).
		Where("active = ?", true).
		Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSeatHoldFailsFast(t *testing.T) {
	f := setup(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	holds := purchaseredis.NewRedis(client, 30*time.Second, time.Hour)
	f.svc.Holds = holds

	ok, err := holds.HoldSeat(context.Background(), dbtest.DepartureID, dbtest.Seat12, "someone-else")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Initiate(context.Background(), request(models.PaymentMethodCash, dbtest.Seat12, "1712345678"))
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindConflict, appErr.Kind)
	assert.Equal(t, []int{12}, appErr.Details["occupied_seats"])

	// a free seat goes through and its hold is released afterwards
	_, err = f.svc.Initiate(context.Background(), request(models.PaymentMethodCash, dbtest.Seat2, "1712345678"))
	require.NoError(t, err)
	assert.False(t, mr.Exists("seat_hold:"+dbtest.DepartureID+":"+dbtest.Seat2))
}

func TestSeatHoldConflictListsEveryTakenSeat(t *testing.T) {
	f := setup(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	holds := purchaseredis.NewRedis(client, 30*time.Second, time.Hour)
	f.svc.Holds = holds
	taken, err := holds.HoldSeats(context.Background(), dbtest.DepartureID, []string{dbtest.Seat12, dbtest.Seat2}, "racing-buyer")
	require.NoError(t, err)
	require.Empty(t, taken)

	req := request(models.PaymentMethodCash, dbtest.Seat12, "1712345678")
	req.Passengers = append(req.Passengers, PassengerRequest{
		SeatID:        dbtest.Seat2,
		PassengerType: models.PassengerTypeNormal,
		FirstName:     "Luis",
		LastName:      "Quispe",
		IDNumber:      "1787654321",
	})
	_, err = f.svc.Initiate(context.Background(), req)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindConflict, appErr.Kind)
	assert.Equal(t, []int{2, 12}, appErr.Details["occupied_seats"])
}

type leakyHolder struct{}

func (leakyHolder) HoldSeats(_ context.Context, _ string, _ []string, _ string) ([]string, error) {
	return []string{dbtest.Seat12}, errors.New("release partial hold: connection reset")
}

func (leakyHolder) ReleaseSeats(context.Context, string, []string, string) error { return nil }

func TestSeatHoldConflictWinsOverReleaseError(t *testing.T) {
	f := setup(t)
	f.svc.Holds = leakyHolder{}

	_, err := f.svc.Initiate(context.Background(), request(models.PaymentMethodCash, dbtest.Seat12, "1712345678"))
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindConflict, appErr.Kind)
	assert.Equal(t, []int{12}, appErr.Details["occupied_seats"])
	assert.Empty(t, f.events.created)
}

func TestCreatedEventIsPendingSnapshot(t *testing.T) {
	f := setup(t)

	res, err := f.svc.Initiate(context.Background(), request(models.PaymentMethodCash, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)

	require.Len(t, f.events.created, 1)
	created := f.events.created[0]
	assert.Equal(t, string(models.TransactionPending), created.Status)
	assert.Empty(t, created.ReservationCode)
	assert.Equal(t, res.Transaction.ID, created.TransactionID)

	require.Len(t, f.events.completed, 1)
	assert.Equal(t, res.Ticket.ReservationCode, f.events.completed[0].ReservationCode)
}

func TestSeatHoldOutageFallsBackToDatabase(t *testing.T) {
	f := setup(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	f.svc.Holds = purchaseredis.NewRedis(client, 30*time.Second, time.Hour)
	mr.Close()

	res, err := f.svc.Initiate(context.Background(), request(models.PaymentMethodCash, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, res.Transaction.Status)
}

func TestInitiateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  func() InitiateRequest
		kind apperror.Kind
	}{
		{"unknown departure", func() InitiateRequest {
			r := request(models.PaymentMethodCash, dbtest.Seat12, "1712345678")
			r.DepartureID = "dep-404"
			return r
		}, apperror.KindNotFound},
		{"seat of another bus", func() InitiateRequest {
			return request(models.PaymentMethodCash, dbtest.OtherBusSeat, "1712345678")
		}, apperror.KindNotFound},
		{"unknown passenger type", func() InitiateRequest {
			r := request(models.PaymentMethodCash, dbtest.Seat12, "1712345678")
			r.Passengers[0].PassengerType = "STUDENT"
			return r
		}, apperror.KindBadRequest},
		{"no passengers", func() InitiateRequest {
			r := request(models.PaymentMethodCash, dbtest.Seat12, "1712345678")
			r.Passengers = nil
			return r
		}, apperror.KindBadRequest},
		{"unknown payment method", func() InitiateRequest {
			return request("paypal", dbtest.Seat12, "1712345678")
		}, apperror.KindBadRequest},
		{"same seat twice", func() InitiateRequest {
			r := request(models.PaymentMethodCash, dbtest.Seat12, "1712345678")
			extra := r.Passengers[0]
			extra.IDNumber = "0912345678"
			r.Passengers = append(r.Passengers, extra)
			return r
		}, apperror.KindBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Initiate(ctx, tt.req())
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}

	count, err := f.db.NewSelect().Model((*models.PurchaseTransaction)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "rejected requests must not write")
}

func TestStripeUnavailableWithoutGateway(t *testing.T) {
	f := setup(t)
	f.svc.Gateway = nil

	_, err := f.svc.Initiate(context.Background(), request(models.PaymentMethodStripe, dbtest.Seat12, "1712345678"))
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
}

func TestGatewayFailureCancelsPurchaseAndFreesSeat(t *testing.T) {
	f := setup(t)
	f.gateway.createErr = errors.New("stripe: connection refused")
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, request(models.PaymentMethodStripe, dbtest.Seat12, "1712345678"))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInternal))

	var ptx models.PurchaseTransaction
	require.NoError(t, f.db.NewSelect().Model(&ptx).Limit(1).Scan(ctx))
	assert.Equal(t, models.TransactionCancelled, ptx.Status)

	avail, err := seats.NewChecker(f.db).CheckAvailability(ctx, dbtest.DepartureID, []string{dbtest.Seat12})
	require.NoError(t, err)
	assert.True(t, avail.Available)
}

func TestAmountConservation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := InitiateRequest{
		BuyerID:       "buyer-1",
		DepartureID:   dbtest.DepartureID,
		PaymentMethod: models.PaymentMethodCash,
		Passengers: []PassengerRequest{
			{SeatID: dbtest.Seat12, PassengerType: models.PassengerTypeNormal, FirstName: "Ana", LastName: "Quispe", IDNumber: "1712345678"},
			{SeatID: dbtest.SeatVIP1, PassengerType: models.PassengerTypeChild, FirstName: "Luis", LastName: "Quispe", IDNumber: "1712345679"},
			{SeatID: dbtest.Seat2, PassengerType: models.PassengerTypeSenior, FirstName: "Rosa", LastName: "Quispe", IDNumber: "1712345680"},
		},
	}
	res, err := f.svc.Initiate(ctx, req)
	require.NoError(t, err)

	assert.True(t, dec("14.28").Equal(res.Transaction.FinalAmount), "got %s", res.Transaction.FinalAmount)
	assert.Equal(t, 3, res.Ticket.PassengerCount)

	status, err := f.svc.GetStatus(ctx, res.Transaction.ID)
	require.NoError(t, err)

	lines := decimal.Zero
	for _, p := range status.Ticket.Passengers {
		lines = lines.Add(p.FinalPrice)
	}
	assert.True(t, lines.Equal(status.Transaction.FinalAmount))

	paid := decimal.Zero
	for _, p := range status.Payments {
		paid = paid.Add(p.Amount)
	}
	assert.True(t, paid.Equal(status.Transaction.FinalAmount))

	assert.Equal(t, []int{1, 2, 12}, []int{
		status.Ticket.Passengers[0].SeatNumber,
		status.Ticket.Passengers[1].SeatNumber,
		status.Ticket.Passengers[2].SeatNumber,
	})
	assert.Equal(t, "Luis Quispe", status.Ticket.Passengers[0].Name)
}

func TestGatewayWebhookReplayWritesOnePayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Initiate(ctx, request(models.PaymentMethodStripe, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)
	txID := res.Transaction.ID

	outcome, err := f.svc.CompleteGatewayPayment(ctx, txID, "pi_"+txID, dec("5.60"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, outcome)

	outcome, err = f.svc.CompleteGatewayPayment(ctx, txID, "pi_"+txID, dec("5.60"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyProcessed, outcome)

	assert.Len(t, f.payments(t, txID), 1)
	assert.Len(t, f.events.completed, 1)

	status, err := f.svc.GetStatus(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, status.Transaction.Status)
	assert.Equal(t, models.TicketConfirmed, status.Ticket.Status)
	assert.NotEmpty(t, status.Ticket.ReservationCode)
}

func TestGatewayPaymentForUnknownOrCancelledPurchase(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	outcome, err := f.svc.CompleteGatewayPayment(ctx, "tx-404", "pi_x", dec("5.60"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotFound, outcome)

	res, err := f.svc.Initiate(ctx, request(models.PaymentMethodStripe, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)
	txID := res.Transaction.ID

	outcome, err = f.svc.CancelFromGateway(ctx, txID, "payment_failed")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCancelled, outcome)

	outcome, err = f.svc.CancelFromGateway(ctx, txID, "payment_failed")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyProcessed, outcome)

	// success after cancellation does not reopen the purchase
	outcome, err = f.svc.CompleteGatewayPayment(ctx, txID, "pi_"+txID, dec("5.60"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyTerminal, outcome)

	status, err := f.svc.GetStatus(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCancelled, status.Transaction.Status)
	assert.Equal(t, models.TicketCancelled, status.Ticket.Status)
	assert.Empty(t, status.Payments)
}

func TestCancelFreesSeat(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Initiate(ctx, request(models.PaymentMethodStripe, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)
	txID := res.Transaction.ID

	out, err := f.svc.Cancel(ctx, CancelRequest{TransactionID: txID, Reason: "changed plans"})
	require.NoError(t, err)
	assert.True(t, out.Cancelled)
	assert.False(t, out.AlreadyCancelled)
	assert.Equal(t, []string{"pi_" + txID}, f.gateway.cancelled)
	require.Len(t, f.events.cancelled, 1)
	assert.Equal(t, "changed plans", f.events.cancelled[0].Reason)

	again, err := f.svc.Cancel(ctx, CancelRequest{TransactionID: txID})
	require.NoError(t, err)
	assert.True(t, again.AlreadyCancelled)

	avail, err := seats.NewChecker(f.db).CheckAvailability(ctx, dbtest.DepartureID, []string{dbtest.Seat12})
	require.NoError(t, err)
	assert.True(t, avail.Available)

	_, err = f.svc.Initiate(ctx, request(models.PaymentMethodCash, dbtest.Seat12, "0912345678"))
	assert.NoError(t, err)
}

func TestCancelErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, CancelRequest{TransactionID: "tx-404"})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	res, err := f.svc.Initiate(ctx, request(models.PaymentMethodCash, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, CancelRequest{TransactionID: res.Transaction.ID})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
}

func TestConfirmCashRequiresExactAmount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Initiate(ctx, request(models.PaymentMethodStripe, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)
	txID := res.Transaction.ID

	_, err = f.svc.ConfirmCash(ctx, ConfirmCashRequest{TransactionID: txID, StaffID: "staff-1", Amount: dec("5.59")})
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.KindBadRequest, appErr.Kind)
	assert.Equal(t, "5.60", appErr.Details["expected_amount"])
	assert.Equal(t, "5.59", appErr.Details["received_amount"])
	assert.Empty(t, f.payments(t, txID))

	status, err := f.svc.ConfirmCash(ctx, ConfirmCashRequest{TransactionID: txID, StaffID: "staff-1", Amount: dec("5.60"), Notes: "counter 3"})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, status.Transaction.Status)
	assert.Equal(t, models.TicketConfirmed, status.Ticket.Status)
	assert.NotEmpty(t, status.Ticket.ReservationCode)
	require.Len(t, status.Payments, 1)
	assert.Equal(t, models.PaymentMethodCash, status.Payments[0].Method)
	assert.Equal(t, []string{"pi_" + txID}, f.gateway.cancelled)

	_, err = f.svc.ConfirmCash(ctx, ConfirmCashRequest{TransactionID: txID, StaffID: "staff-1", Amount: dec("5.60")})
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	_, err = f.svc.ConfirmCash(ctx, ConfirmCashRequest{TransactionID: "tx-404", StaffID: "staff-1", Amount: dec("5.60")})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestReservationCodeIsAssignedOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	codes := 0
	f.svc.newCode = func(prefix string) (string, error) {
		codes++
		return fmt.Sprintf("%s-FIXED%03d", prefix, codes), nil
	}

	res, err := f.svc.Initiate(ctx, request(models.PaymentMethodStripe, dbtest.Seat12, "1712345678"))
	require.NoError(t, err)
	txID := res.Transaction.ID

	_, err = f.svc.CompleteGatewayPayment(ctx, txID, "pi_"+txID, dec("5.60"))
	require.NoError(t, err)
	_, err = f.svc.CompleteGatewayPayment(ctx, txID, "pi_"+txID, dec("5.60"))
	require.NoError(t, err)

	status, err := f.svc.GetStatus(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, "CHQ-FIXED001", status.Ticket.ReservationCode)
	assert.Equal(t, 1, codes)
}
