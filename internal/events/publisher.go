package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/pkg/circuitbreaker"
	"github.com/vaidashi/order-status-sync/pkg/kafka"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// MessageSender is the subset of the Kafka producer the publisher needs
type MessageSender interface {
	SendMessage(ctx context.Context, topic string, key string, value []byte, headers ...kafka.Header) error
	Close() error
}

// KafkaPublisher publishes status change events keyed by order id, so every
// change of one order lands on the same partition in write order
type KafkaPublisher struct {
	sender  MessageSender
	topic   string
	breaker *circuitbreaker.CircuitBreaker
	logger  logger.Logger
}

// Option configures a KafkaPublisher
type Option func(*KafkaPublisher)

// WithBreaker skips sends while the broker keeps failing, so an outage does
// not stall every status change for the producer's full retry budget
func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(p *KafkaPublisher) {
		p.breaker = cb
	}
}

// NewKafkaPublisher creates a new KafkaPublisher
func NewKafkaPublisher(sender MessageSender, topic string, logger logger.Logger, opts ...Option) *KafkaPublisher {
	p := &KafkaPublisher{
		sender: sender,
		topic:  topic,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishStatusChanged sends the event as JSON
func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, event *models.StatusChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.breaker != nil && !p.breaker.Allow() {
		return fmt.Errorf("status event %s not sent: %w", event.EventID, circuitbreaker.ErrOpen)
	}

	err = p.sender.SendMessage(ctx, p.topic, event.AggregateID, payload,
		kafka.Header{Key: "event_type", Value: event.EventType},
		kafka.Header{Key: "event_id", Value: event.EventID},
	)
	if err != nil {
		if p.breaker != nil {
			p.breaker.Failure()
		}
		return err
	}

	if p.breaker != nil {
		p.breaker.Success()
	}

	p.logger.Debug("Status change published",
		"eventID", event.EventID,
		"orderID", event.AggregateID,
		"status", event.Data.NewStatus,
		"topic", p.topic)

	return nil
}

// BreakerState reports the circuit state, or closed when no breaker is set
func (p *KafkaPublisher) BreakerState() circuitbreaker.State {
	if p.breaker == nil {
		return circuitbreaker.StateClosed
	}
	return p.breaker.GetState()
}

// Close closes the underlying producer
func (p *KafkaPublisher) Close() error {
	return p.sender.Close()
}
