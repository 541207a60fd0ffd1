package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketPending   TicketStatus = "PENDING"
	TicketPaid      TicketStatus = "PAID"
	TicketConfirmed TicketStatus = "CONFIRMED"
	TicketBoarded   TicketStatus = "BOARDED"
	TicketCancelled TicketStatus = "CANCELLED"
)

// ActiveTicketStatuses occupy their seats.
var ActiveTicketStatuses = []TicketStatus{TicketPending, TicketPaid, TicketConfirmed, TicketBoarded}

func (s TicketStatus) Active() bool {
	for _, active := range ActiveTicketStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// CanTransitionTo follows PENDING → {PAID|CONFIRMED} → BOARDED, with
// CANCELLED reachable from any state before boarding.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	switch s {
	case TicketPending:
		return next == TicketPaid || next == TicketConfirmed || next == TicketCancelled
	case TicketPaid:
		return next == TicketConfirmed || next == TicketCancelled
	case TicketConfirmed:
		return next == TicketBoarded || next == TicketCancelled
	case TicketBoarded, TicketCancelled:
		return false
	default:
		return false
	}
}

type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID              string       `bun:"id,pk" json:"id"`
	TransactionID   string       `bun:"transaction_id,notnull,unique" json:"transaction_id"`
	DepartureID     string       `bun:"departure_id,notnull" json:"departure_id"`
	BusID           string       `bun:"bus_id,notnull" json:"bus_id"`
	FrequencyID     string       `bun:"frequency_id,notnull" json:"frequency_id"`
	BuyerID         string       `bun:"buyer_id,notnull" json:"buyer_id"`
	ReservationCode string       `bun:"reservation_code,nullzero,unique" json:"reservation_code,omitempty"`
	Status          TicketStatus `bun:"status,notnull" json:"status"`
	PassengerCount  int          `bun:"passenger_count,notnull" json:"passenger_count"`
	QRIssuedAt      time.Time    `bun:"qr_issued_at,nullzero" json:"qr_issued_at,omitempty"`
	BoardedAt       time.Time    `bun:"boarded_at,nullzero" json:"boarded_at,omitempty"`
	CreatedAt       time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time    `bun:"updated_at,notnull" json:"updated_at"`

	Passengers []*TicketPassenger `bun:"rel:has-many,join:id=ticket_id" json:"passengers,omitempty"`
}

// TicketPassenger links one passenger to one seat. Seat and passenger type
// and the prices are captured at purchase time. Active mirrors whether the
// owning ticket still occupies the seat.
type TicketPassenger struct {
	bun.BaseModel `bun:"table:ticket_passengers,alias:tp"`

	ID             string          `bun:"id,pk" json:"id"`
	TicketID       string          `bun:"ticket_id,notnull" json:"ticket_id"`
	PassengerID    string          `bun:"passenger_id,notnull" json:"passenger_id"`
	DepartureID    string          `bun:"departure_id,notnull" json:"departure_id"`
	SeatID         string          `bun:"seat_id,notnull" json:"seat_id"`
	SeatNumber     int             `bun:"seat_number,notnull" json:"seat_number"`
	SeatType       SeatType        `bun:"seat_type,notnull" json:"seat_type"`
	PassengerType  PassengerType   `bun:"passenger_type,notnull" json:"passenger_type"`
	BasePrice      decimal.Decimal `bun:"base_price,type:decimal(10,2),notnull" json:"base_price"`
	DiscountAmount decimal.Decimal `bun:"discount_amount,type:decimal(10,2),notnull" json:"discount_amount"`
	TaxAmount      decimal.Decimal `bun:"tax_amount,type:decimal(10,2),notnull" json:"tax_amount"`
	FinalPrice     decimal.Decimal `bun:"final_price,type:decimal(10,2),notnull" json:"final_price"`
	Active         bool            `bun:"active,notnull" json:"active"`

	Passenger *Passenger `bun:"rel:belongs-to,join:passenger_id=id" json:"passenger,omitempty"`
}

// TicketPayload is the signed content encoded into the boarding QR.
type TicketPayload struct {
	TicketID        string             `json:"ticket_id"`
	ReservationCode string             `json:"reservation_code"`
	Route           string             `json:"route"`
	Passengers      []PassengerSummary `json:"passengers"`
	Hash            string             `json:"hash"`
	IssuedAt        time.Time          `json:"issued_at"`
	ExpiresAt       time.Time          `json:"expires_at"`
}

type PassengerSummary struct {
	Name          string        `json:"name"`
	SeatNumber    int           `json:"seat_number"`
	SeatType      SeatType      `json:"seat_type"`
	PassengerType PassengerType `json:"passenger_type"`
}
