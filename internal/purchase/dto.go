package purchase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	"github.com/Davayme/chasquigo-backend-sub000/internal/payment"
)

type TransactionSummary struct {
	ID             string                   `json:"id"`
	Status         models.TransactionStatus `json:"status"`
	PaymentMethod  models.PaymentMethod     `json:"payment_method"`
	BaseAmount     decimal.Decimal          `json:"base_amount"`
	DiscountAmount decimal.Decimal          `json:"discount_amount"`
	TaxAmount      decimal.Decimal          `json:"tax_amount"`
	FinalAmount    decimal.Decimal          `json:"final_amount"`
	PurchasedAt    time.Time                `json:"purchased_at"`
}

type PassengerLine struct {
	Name           string               `json:"name"`
	SeatNumber     int                  `json:"seat_number"`
	SeatType       models.SeatType      `json:"seat_type"`
	PassengerType  models.PassengerType `json:"passenger_type"`
	BasePrice      decimal.Decimal      `json:"base_price"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TaxAmount      decimal.Decimal      `json:"tax_amount"`
	FinalPrice     decimal.Decimal      `json:"final_price"`
}

type TicketSummary struct {
	ID              string              `json:"id"`
	Status          models.TicketStatus `json:"status"`
	ReservationCode string              `json:"reservation_code,omitempty"`
	PassengerCount  int                 `json:"passenger_count"`
	RouteSummary    string              `json:"route_summary,omitempty"`
	Passengers      []PassengerLine     `json:"passengers,omitempty"`
}

// PurchaseResult is returned by Initiate. GatewayCredentials is set only on
// the stripe path.
type PurchaseResult struct {
	Transaction        TransactionSummary `json:"transaction"`
	Ticket             TicketSummary      `json:"ticket"`
	GatewayCredentials *payment.Intent    `json:"gateway_credentials,omitempty"`
}

type PaymentSummary struct {
	Method            models.PaymentMethod `json:"method"`
	ExternalReference string               `json:"external_reference"`
	Amount            decimal.Decimal      `json:"amount"`
	Status            models.PaymentStatus `json:"status"`
	CreatedAt         time.Time            `json:"created_at"`
}

type StatusResult struct {
	Transaction TransactionSummary `json:"transaction"`
	Ticket      TicketSummary      `json:"ticket"`
	Payments    []PaymentSummary   `json:"payments,omitempty"`
}

type CancelResult struct {
	TransactionID    string `json:"transaction_id"`
	Cancelled        bool   `json:"cancelled"`
	AlreadyCancelled bool   `json:"already_cancelled,omitempty"`
}

func summarizeTransaction(tx *models.PurchaseTransaction) TransactionSummary {
	return TransactionSummary{
		ID:             tx.ID,
		Status:         tx.Status,
		PaymentMethod:  tx.PaymentMethod,
		BaseAmount:     tx.BaseAmount,
		DiscountAmount: tx.DiscountAmount,
		TaxAmount:      tx.TaxAmount,
		FinalAmount:    tx.FinalAmount,
		PurchasedAt:    tx.PurchasedAt,
	}
}

func summarizeTicket(t *models.Ticket, route string) TicketSummary {
	summary := TicketSummary{
		ID:             t.ID,
		Status:         t.Status,
		PassengerCount: t.PassengerCount,
		RouteSummary:   route,
	}
	// the code is only shown once the ticket is paid for
	if t.Status == models.TicketConfirmed || t.Status == models.TicketBoarded {
		summary.ReservationCode = t.ReservationCode
	}
	for _, tp := range t.Passengers {
		line := PassengerLine{
			SeatNumber:     tp.SeatNumber,
			SeatType:       tp.SeatType,
			PassengerType:  tp.PassengerType,
			BasePrice:      tp.BasePrice,
			DiscountAmount: tp.DiscountAmount,
			TaxAmount:      tp.TaxAmount,
			FinalPrice:     tp.FinalPrice,
		}
		if tp.Passenger != nil {
			line.Name = tp.Passenger.FullName()
		}
		summary.Passengers = append(summary.Passengers, line)
	}
	return summary
}
