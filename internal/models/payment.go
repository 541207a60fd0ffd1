package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment records how a completed purchase was settled. ExternalReference
// is the gateway payment id; (method, external_reference) is unique.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID                string          `bun:"id,pk" json:"id"`
	TransactionID     string          `bun:"transaction_id,notnull" json:"transaction_id"`
	Method            PaymentMethod   `bun:"method,notnull" json:"method"`
	ExternalReference string          `bun:"external_reference,notnull" json:"external_reference"`
	Amount            decimal.Decimal `bun:"amount,type:decimal(10,2),notnull" json:"amount"`
	Status            PaymentStatus   `bun:"status,notnull" json:"status"`
	ReceivedBy        string          `bun:"received_by,nullzero" json:"received_by,omitempty"`
	Notes             string          `bun:"notes,nullzero" json:"notes,omitempty"`
	CreatedAt         time.Time       `bun:"created_at,notnull" json:"created_at"`
}
