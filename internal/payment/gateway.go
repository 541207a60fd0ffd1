package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	"github.com/Davayme/chasquigo-backend-sub000/internal/utils"
)

// MetadataTransactionID is the intent metadata key carrying our transaction id.
const MetadataTransactionID = "transaction_id"

// Intent is what the buyer's client needs to finish paying.
type Intent struct {
	ID           string          `json:"payment_intent_id"`
	ClientSecret string          `json:"client_secret"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// IntentAPI is the subset of the Stripe payment intent client we call.
type IntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type StripeGateway struct {
	intents  IntentAPI
	currency string
	logger   *logger.Logger
}

func NewStripeGateway(secretKey, currency string, log *logger.Logger) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return NewStripeGatewayWithAPI(sc.PaymentIntents, currency, log)
}

func NewStripeGatewayWithAPI(intents IntentAPI, currency string, log *logger.Logger) *StripeGateway {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{intents: intents, currency: currency, logger: log}
}

// ToMinorUnits converts an amount to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// FromMinorUnits converts cents to an amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CreateIntent opens a payment intent tagged with the transaction id. The
// transaction id doubles as idempotency key so a retried call returns the
// same intent.
func (g *StripeGateway) CreateIntent(ctx context.Context, transactionID string, amount decimal.Decimal) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ToMinorUnits(amount)),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("purchase-" + transactionID)
	params.AddMetadata(MetadataTransactionID, transactionID)

	intent, err := g.intents.New(params)
	if err != nil {
		g.logger.Error("PAYMENT", fmt.Sprintf("Failed to create payment intent for %s: %v", transactionID, err))
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	g.logger.Info("PAYMENT", fmt.Sprintf("Created payment intent %s for %s (%s %s)", intent.ID, transactionID, g.currency, amount.StringFixed(2)))
	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
		Amount:       amount,
		Currency:     g.currency,
	}, nil
}

// CancelIntent cancels an open intent so the buyer can no longer pay it.
func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	if _, err := g.intents.Cancel(intentID, params); err != nil {
		return fmt.Errorf("cancel payment intent %s: %w", intentID, err)
	}
	g.logger.Info("PAYMENT", fmt.Sprintf("Cancelled payment intent %s", intentID))
	return nil
}

// NewGatewayPayment builds the payment row for a settled gateway intent.
func NewGatewayPayment(transactionID, externalReference string, amount decimal.Decimal, at time.Time) *models.Payment {
	return &models.Payment{
		ID:                uuid.New().String(),
		TransactionID:     transactionID,
		Method:            models.PaymentMethodStripe,
		ExternalReference: externalReference,
		Amount:            amount.Round(2),
		Status:            models.PaymentSucceeded,
		CreatedAt:         at,
	}
}

// NewCashPayment builds the payment row for cash taken at the counter.
func NewCashPayment(transactionID string, amount decimal.Decimal, receivedBy, notes string, at time.Time) *models.Payment {
	return &models.Payment{
		ID:                uuid.New().String(),
		TransactionID:     transactionID,
		Method:            models.PaymentMethodCash,
		ExternalReference: utils.CashReference(transactionID),
		Amount:            amount.Round(2),
		Status:            models.PaymentSucceeded,
		ReceivedBy:        receivedBy,
		Notes:             notes,
		CreatedAt:         at,
	}
}
