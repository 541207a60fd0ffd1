package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Davayme/chasquigo-backend-sub000/internal/config"
	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON messages to any topic on the configured brokers.
type Producer struct {
	Writer messageWriter
	Logger *logger.Logger
}

func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
	return &Producer{Writer: writer, Logger: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("write %s message: %w", topic, err)
	}
	p.Logger.LogKafka("PUBLISH", topic, key)
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// PurchaseEvent is the payload of every purchase lifecycle topic.
type PurchaseEvent struct {
	TransactionID   string    `json:"transaction_id"`
	TicketID        string    `json:"ticket_id,omitempty"`
	DepartureID     string    `json:"departure_id"`
	BuyerID         string    `json:"buyer_id"`
	Status          string    `json:"status"`
	PaymentMethod   string    `json:"payment_method,omitempty"`
	FinalAmount     string    `json:"final_amount,omitempty"`
	ReservationCode string    `json:"reservation_code,omitempty"`
	SeatNumbers     []int     `json:"seat_numbers,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// TicketEvent is published when a ticket is scanned at boarding.
type TicketEvent struct {
	TicketID        string    `json:"ticket_id"`
	TransactionID   string    `json:"transaction_id"`
	DepartureID     string    `json:"departure_id"`
	ReservationCode string    `json:"reservation_code"`
	Status          string    `json:"status"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Events routes lifecycle events to their topics. Publishing never fails the
// caller; errors are logged. A nil publisher disables publishing.
type Events struct {
	publisher publisher
	topics    config.TopicConfig
	logger    *logger.Logger
}

func NewEvents(p publisher, topics config.TopicConfig, log *logger.Logger) *Events {
	return &Events{publisher: p, topics: topics, logger: log}
}

func (e *Events) send(ctx context.Context, topic, key string, value interface{}) {
	if e == nil || e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, topic, key, value); err != nil {
		e.logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", topic, key, err))
	}
}

func (e *Events) PurchaseCreated(ctx context.Context, evt PurchaseEvent) {
	e.send(ctx, e.topics.PurchaseCreated, evt.TransactionID, evt)
}

func (e *Events) PurchaseCompleted(ctx context.Context, evt PurchaseEvent) {
	e.send(ctx, e.topics.PurchaseCompleted, evt.TransactionID, evt)
}

func (e *Events) PurchaseCancelled(ctx context.Context, evt PurchaseEvent) {
	e.send(ctx, e.topics.PurchaseCancelled, evt.TransactionID, evt)
}

func (e *Events) TicketBoarded(ctx context.Context, evt TicketEvent) {
	e.send(ctx, e.topics.TicketBoarded, evt.TicketID, evt)
}
