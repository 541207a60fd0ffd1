package purchase

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

func mockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { db.Close() })
	return NewService(db, nil, nil, nil, logger.Discard(), Options{}), mock
}

func TestStorageFailureIsInternal(t *testing.T) {
	svc, mock := mockService(t)
	mock.ExpectQuery(`SELECT (.+) FROM "purchase_transactions"`).
		WillReturnError(errors.New("pq: connection reset by peer"))

	_, err := svc.GetStatus(context.Background(), "tx-1")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInternal))

	msg, _ := apperror.Public(err)
	assert.Equal(t, "internal server error", msg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitiateRollsBackOnStorageFailure(t *testing.T) {
	svc, mock := mockService(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "departures"`).
		WillReturnError(errors.New("pq: connection reset by peer"))
	mock.ExpectRollback()

	_, err := svc.Initiate(context.Background(), request(models.PaymentMethodCash, "seat-12", "1712345678"))
	assert.True(t, apperror.Is(err, apperror.KindInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlementStorageFailureIsInternal(t *testing.T) {
	svc, mock := mockService(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "purchase_transactions"`).
		WillReturnError(errors.New("pq: deadlock detected"))
	mock.ExpectRollback()

	_, err := svc.CompleteGatewayPayment(context.Background(), "tx-1", "pi_1", dec("5.60"))
	assert.True(t, apperror.Is(err, apperror.KindInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}
