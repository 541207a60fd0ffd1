package payment

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
)

type EventKind string

const (
	EventSucceeded EventKind = "payment_succeeded"
	EventFailed    EventKind = "payment_failed"
	EventCanceled  EventKind = "payment_canceled"
	EventIgnored   EventKind = "ignored"
)

// GatewayEvent is a verified provider notification reduced to what the
// settlement state machine needs.
type GatewayEvent struct {
	ID                string
	Type              string
	Kind              EventKind
	TransactionID     string
	ExternalReference string
	Amount            decimal.Decimal
	FailureMessage    string
}

type Verifier interface {
	Verify(payload []byte, signature string) (*GatewayEvent, error)
}

type StripeVerifier struct {
	Secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{Secret: secret}
}

func kindOf(eventType stripe.EventType) EventKind {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return EventSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		return EventFailed
	case stripe.EventTypePaymentIntentCanceled:
		return EventCanceled
	default:
		return EventIgnored
	}
}

// Verify checks the Stripe-Signature header before looking at the payload.
func (v *StripeVerifier) Verify(payload []byte, signature string) (*GatewayEvent, error) {
	if v.Secret == "" {
		return nil, apperror.Internal("webhook processing error", fmt.Errorf("stripe webhook secret is not configured"))
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, &apperror.Error{
			Kind:    apperror.KindBadRequest,
			Message: "webhook signature verification failed",
			Err:     err,
		}
	}

	evt := &GatewayEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: kindOf(event.Type),
	}
	if evt.Kind == EventIgnored {
		return evt, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, &apperror.Error{
			Kind:    apperror.KindBadRequest,
			Message: "invalid event data",
			Err:     fmt.Errorf("unmarshal payment intent: %w", err),
		}
	}

	evt.ExternalReference = intent.ID
	evt.TransactionID = intent.Metadata[MetadataTransactionID]
	evt.Amount = FromMinorUnits(intent.AmountReceived)
	if intent.AmountReceived == 0 {
		evt.Amount = FromMinorUnits(intent.Amount)
	}
	if intent.LastPaymentError != nil {
		evt.FailureMessage = intent.LastPaymentError.Msg
	}
	return evt, nil
}
