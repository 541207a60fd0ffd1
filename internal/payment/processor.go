package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
	"github.com/Davayme/chasquigo-backend-sub000/internal/monitoring"
)

// Settler applies gateway outcomes to purchase transactions. Both calls
// must be safe to repeat.
type Settler interface {
	CompleteGatewayPayment(ctx context.Context, transactionID, externalReference string, amount decimal.Decimal) (models.SettlementOutcome, error)
	CancelFromGateway(ctx context.Context, transactionID, reason string) (models.SettlementOutcome, error)
}

// EventLog remembers provider event ids already handled. It only saves
// work; a missing or failing log never changes the outcome.
type EventLog interface {
	SeenEvent(ctx context.Context, eventID string) (bool, error)
	RememberEvent(ctx context.Context, eventID string) error
}

type Result struct {
	EventID       string                   `json:"event_id"`
	EventType     string                   `json:"event_type"`
	TransactionID string                   `json:"transaction_id,omitempty"`
	Outcome       models.SettlementOutcome `json:"outcome"`
}

type Processor struct {
	verifier Verifier
	settler  Settler
	events   EventLog
	logger   *logger.Logger
}

func NewProcessor(verifier Verifier, settler Settler, events EventLog, log *logger.Logger) *Processor {
	return &Processor{verifier: verifier, settler: settler, events: events, logger: log}
}

// Handle verifies and applies one webhook delivery. Only signature failures
// and storage failures come back as errors; duplicates and late events
// resolve to a no-op outcome.
func (p *Processor) Handle(ctx context.Context, payload []byte, signature string) (*Result, error) {
	evt, err := p.verifier.Verify(payload, signature)
	if err != nil {
		p.logger.LogSecurity("WEBHOOK_SIGNATURE", fmt.Sprintf("Rejected webhook: %v", err))
		monitoring.RecordWebhookEvent("unverified", "rejected")
		return nil, err
	}

	result := &Result{EventID: evt.ID, EventType: evt.Type, TransactionID: evt.TransactionID}

	if evt.Kind == EventIgnored {
		result.Outcome = models.OutcomeIgnored
		p.logger.LogWebhook(evt.Type, fmt.Sprintf("Event %s acknowledged and ignored", evt.ID))
		monitoring.RecordWebhookEvent(evt.Type, string(result.Outcome))
		return result, nil
	}

	if p.alreadySeen(ctx, evt.ID) {
		result.Outcome = models.OutcomeAlreadyProcessed
		p.logger.LogWebhook(evt.Type, fmt.Sprintf("Event %s already processed", evt.ID))
		monitoring.RecordWebhookEvent(evt.Type, string(result.Outcome))
		return result, nil
	}

	if evt.TransactionID == "" {
		result.Outcome = models.OutcomeNotFound
		p.logger.Warn("WEBHOOK", fmt.Sprintf("Event %s (%s) carries no transaction id", evt.ID, evt.ExternalReference))
		monitoring.RecordWebhookEvent(evt.Type, string(result.Outcome))
		return result, nil
	}

	switch evt.Kind {
	case EventSucceeded:
		result.Outcome, err = p.settler.CompleteGatewayPayment(ctx, evt.TransactionID, evt.ExternalReference, evt.Amount)
	case EventFailed, EventCanceled:
		reason := string(evt.Kind)
		if evt.FailureMessage != "" {
			reason = fmt.Sprintf("%s: %s", evt.Kind, evt.FailureMessage)
		}
		result.Outcome, err = p.settler.CancelFromGateway(ctx, evt.TransactionID, reason)
	}
	if err != nil {
		p.logger.Error("WEBHOOK", fmt.Sprintf("Failed to apply event %s to %s: %v", evt.ID, evt.TransactionID, err))
		monitoring.RecordWebhookEvent(evt.Type, "error")
		return nil, err
	}

	p.remember(ctx, evt.ID)
	p.logger.LogWebhook(evt.Type, fmt.Sprintf("Event %s for %s: %s", evt.ID, evt.TransactionID, result.Outcome))
	monitoring.RecordWebhookEvent(evt.Type, string(result.Outcome))
	return result, nil
}

func (p *Processor) alreadySeen(ctx context.Context, eventID string) bool {
	if p.events == nil || eventID == "" {
		return false
	}
	seen, err := p.events.SeenEvent(ctx, eventID)
	if err != nil {
		p.logger.Warn("WEBHOOK", fmt.Sprintf("Event log unavailable, processing %s anyway: %v", eventID, err))
		return false
	}
	return seen
}

func (p *Processor) remember(ctx context.Context, eventID string) {
	if p.events == nil || eventID == "" {
		return
	}
	if err := p.events.RememberEvent(ctx, eventID); err != nil {
		p.logger.Warn("WEBHOOK", fmt.Sprintf("Failed to remember event %s: %v", eventID, err))
	}
}
