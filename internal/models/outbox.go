package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusCompleted OutboxStatus = "completed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage is an event waiting to be delivered downstream. It is stored
// under its event id, so writing the same event twice is rejected.
type OutboxMessage struct {
	ID                 string          `json:"-"`
	AggregateID        string          `json:"aggregateId"`
	EventType          string          `json:"eventType"`
	Payload            json.RawMessage `json:"payload"`
	Status             OutboxStatus    `json:"status"`
	ProcessingAttempts int             `json:"processingAttempts"`
	LastError          string          `json:"lastError,omitempty"`
	CreatedAt          *time.Time      `json:"createdAt,omitempty"`
	ProcessedAt        *time.Time      `json:"processedAt,omitempty"`
}

// NewOutboxMessage wraps a status change event for the outbox
func NewOutboxMessage(event *StatusChangedEvent) (*OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &OutboxMessage{
		ID:          event.EventID,
		AggregateID: event.AggregateID,
		EventType:   event.EventType,
		Payload:     payload,
		Status:      OutboxStatusPending,
	}, nil
}

// StatusChangedEvent decodes the payload of a status change message
func (m *OutboxMessage) StatusChangedEvent() (*StatusChangedEvent, error) {
	var event StatusChangedEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outbox payload %s: %w", m.ID, err)
	}
	return &event, nil
}
