package payment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
)

const testSecret = "whsec_test_secret"

func intentEvent(eventID, eventType, intentID, transactionID string, cents int64) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "api_version": "2020-08-27",
  "type": %q,
  "data": {
    "object": {
      "id": %q,
      "object": "payment_intent",
      "amount": %d,
      "amount_received": %d,
      "currency": "usd",
      "metadata": {"transaction_id": %q}
    }
  }
}`, eventID, eventType, intentID, cents, cents, transactionID))
}

// SignedPayload signs payload the way Stripe does for the test secret.
func SignedPayload(t *testing.T, payload []byte) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestVerifySucceededEvent(t *testing.T) {
	payload := intentEvent("evt_1", "payment_intent.succeeded", "pi_1", "tx-1", 560)

	evt, err := NewStripeVerifier(testSecret).Verify(payload, SignedPayload(t, payload))
	require.NoError(t, err)
	assert.Equal(t, EventSucceeded, evt.Kind)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, "tx-1", evt.TransactionID)
	assert.Equal(t, "pi_1", evt.ExternalReference)
	assert.Equal(t, "5.60", evt.Amount.StringFixed(2))
}

func TestVerifyMapsFailureKinds(t *testing.T) {
	v := NewStripeVerifier(testSecret)

	failed := intentEvent("evt_2", "payment_intent.payment_failed", "pi_2", "tx-2", 100)
	evt, err := v.Verify(failed, SignedPayload(t, failed))
	require.NoError(t, err)
	assert.Equal(t, EventFailed, evt.Kind)

	canceled := intentEvent("evt_3", "payment_intent.canceled", "pi_3", "tx-3", 100)
	evt, err = v.Verify(canceled, SignedPayload(t, canceled))
	require.NoError(t, err)
	assert.Equal(t, EventCanceled, evt.Kind)
}

func TestVerifyIgnoresOtherEventTypes(t *testing.T) {
	payload := []byte(`{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	evt, err := NewStripeVerifier(testSecret).Verify(payload, SignedPayload(t, payload))
	require.NoError(t, err)
	assert.Equal(t, EventIgnored, evt.Kind)
	assert.Empty(t, evt.TransactionID)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	payload := intentEvent("evt_1", "payment_intent.succeeded", "pi_1", "tx-1", 560)

	_, err := NewStripeVerifier(testSecret).Verify(payload, "t=1,v1=deadbeef")
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))

	tampered := intentEvent("evt_1", "payment_intent.succeeded", "pi_1", "tx-1", 1)
	_, err = NewStripeVerifier(testSecret).Verify(tampered, SignedPayload(t, payload))
	assert.True(t, apperror.Is(err, apperror.KindBadRequest))
}

func TestVerifyWithoutSecretIsInternal(t *testing.T) {
	payload := intentEvent("evt_1", "payment_intent.succeeded", "pi_1", "tx-1", 560)

	_, err := NewStripeVerifier("").Verify(payload, SignedPayload(t, payload))
	assert.True(t, apperror.Is(err, apperror.KindInternal))
}
