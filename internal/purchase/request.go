package purchase

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	"github.com/Davayme/chasquigo-backend-sub000/internal/passengers"
)

type PassengerRequest struct {
	SeatID        string               `json:"seat_id"`
	PassengerType models.PassengerType `json:"passenger_type"`
	FirstName     string               `json:"first_name"`
	LastName      string               `json:"last_name"`
	IDNumber      string               `json:"id_number"`
}

type InitiateRequest struct {
	BuyerID       string               `json:"-"`
	DepartureID   string               `json:"departure_id"`
	Passengers    []PassengerRequest   `json:"passengers"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
}

func (r *InitiateRequest) Validate() error {
	if strings.TrimSpace(r.BuyerID) == "" {
		return apperror.BadRequest("buyer id is required")
	}
	if strings.TrimSpace(r.DepartureID) == "" {
		return apperror.BadRequest("departure_id is required")
	}
	if !r.PaymentMethod.Valid() {
		return apperror.BadRequest("payment_method must be %q or %q", models.PaymentMethodStripe, models.PaymentMethodCash)
	}
	if len(r.Passengers) == 0 {
		return apperror.BadRequest("at least one passenger is required")
	}

	seatsSeen := make(map[string]bool, len(r.Passengers))
	idsSeen := make(map[string]bool, len(r.Passengers))
	for i, p := range r.Passengers {
		switch {
		case strings.TrimSpace(p.SeatID) == "":
			return apperror.BadRequest("passengers[%d]: seat_id is required", i)
		case !p.PassengerType.Valid():
			return apperror.BadRequest("passengers[%d]: invalid passenger_type %q", i, p.PassengerType)
		case strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "":
			return apperror.BadRequest("passengers[%d]: first_name and last_name are required", i)
		case passengers.NormalizeIDNumber(p.IDNumber) == "":
			return apperror.BadRequest("passengers[%d]: id_number is required", i)
		}
		if seatsSeen[p.SeatID] {
			return apperror.BadRequest("seat %s requested more than once", p.SeatID)
		}
		seatsSeen[p.SeatID] = true

		id := passengers.NormalizeIDNumber(p.IDNumber)
		if idsSeen[id] {
			return apperror.BadRequest("passenger %s appears more than once", id)
		}
		idsSeen[id] = true
	}
	return nil
}

func (r *InitiateRequest) SeatIDs() []string {
	ids := make([]string, len(r.Passengers))
	for i, p := range r.Passengers {
		ids[i] = p.SeatID
	}
	return ids
}

type ConfirmCashRequest struct {
	TransactionID string          `json:"-"`
	StaffID       string          `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes,omitempty"`
}

func (r *ConfirmCashRequest) Validate() error {
	if strings.TrimSpace(r.StaffID) == "" {
		return apperror.BadRequest("staff id is required")
	}
	if !r.Amount.IsPositive() {
		return apperror.BadRequest("amount must be greater than zero")
	}
	return nil
}

type CancelRequest struct {
	TransactionID string `json:"-"`
	Reason        string `json:"reason,omitempty"`
}
