package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("initiate: %w", apperror.NotFound("departure %s not found", "dep-1"))

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(errors.New("boom")))
}

func TestPublicHidesInternalDetail(t *testing.T) {
	err := apperror.Internal("failed to insert ticket", errors.New("pq: connection refused"))

	msg, details := apperror.Public(err)
	assert.Equal(t, "internal server error", msg)
	assert.Nil(t, details)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSeatConflictCarriesSeatNumbers(t *testing.T) {
	err := apperror.SeatConflict([]int{12, 14})

	msg, details := apperror.Public(err)
	assert.Contains(t, msg, "12")
	assert.Equal(t, []int{12, 14}, details["occupied_seats"])
	assert.Equal(t, http.StatusConflict, apperror.HTTPStatus(apperror.KindOf(err)))
}

func TestAmountMismatch(t *testing.T) {
	err := apperror.AmountMismatch("5.60", "5.59")

	assert.Equal(t, apperror.KindBadRequest, err.Kind)
	assert.Equal(t, "5.60", err.Details["expected_amount"])
	assert.Equal(t, "5.59", err.Details["received_amount"])
	assert.Equal(t, http.StatusBadRequest, apperror.HTTPStatus(err.Kind))
}
