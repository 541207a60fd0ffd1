package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// CanTransitionTo reports whether the one-way lifecycle allows next.
// Only pending may move, and only to a terminal state.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionPending:
		return next == TransactionCompleted || next == TransactionCancelled
	case TransactionCompleted, TransactionCancelled:
		return false
	default:
		return false
	}
}

func (s TransactionStatus) Terminal() bool {
	return s == TransactionCompleted || s == TransactionCancelled
}

type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodCash   PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodCash:
		return true
	}
	return false
}

type PurchaseTransaction struct {
	bun.BaseModel `bun:"table:purchase_transactions"`

	ID               string            `bun:"id,pk" json:"id"`
	BuyerID          string            `bun:"buyer_id,notnull" json:"buyer_id"`
	DepartureID      string            `bun:"departure_id,notnull" json:"departure_id"`
	PaymentMethod    PaymentMethod     `bun:"payment_method,notnull" json:"payment_method"`
	Status           TransactionStatus `bun:"status,notnull" json:"status"`
	BaseAmount       decimal.Decimal   `bun:"base_amount,type:decimal(10,2),notnull" json:"base_amount"`
	DiscountAmount   decimal.Decimal   `bun:"discount_amount,type:decimal(10,2),notnull" json:"discount_amount"`
	TaxAmount        decimal.Decimal   `bun:"tax_amount,type:decimal(10,2),notnull" json:"tax_amount"`
	FinalAmount      decimal.Decimal   `bun:"final_amount,type:decimal(10,2),notnull" json:"final_amount"`
	GatewayReference string            `bun:"gateway_reference,nullzero" json:"gateway_reference,omitempty"`
	CancelReason     string            `bun:"cancel_reason,nullzero" json:"cancel_reason,omitempty"`
	PurchasedAt      time.Time         `bun:"purchased_at,notnull" json:"purchased_at"`
	CompletedAt      time.Time         `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	CancelledAt      time.Time         `bun:"cancelled_at,nullzero" json:"cancelled_at,omitempty"`
	UpdatedAt        time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

// SettlementOutcome is what a completion or cancellation attempt did.
type SettlementOutcome string

const (
	OutcomeCompleted        SettlementOutcome = "completed"
	OutcomeCancelled        SettlementOutcome = "cancelled"
	OutcomeAlreadyProcessed SettlementOutcome = "already_processed"
	OutcomeAlreadyTerminal  SettlementOutcome = "already_terminal"
	OutcomeNotFound         SettlementOutcome = "not_found"
	OutcomeIgnored          SettlementOutcome = "ignored"
)
