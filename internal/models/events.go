package models

import (
	"time"
)

// EventTypeStatusChanged is emitted after an order status write succeeds
const EventTypeStatusChanged = "order_status_changed"

// StatusChangedEvent describes a status change for downstream consumers
type StatusChangedEvent struct {
	EventType   string            `json:"event_type"`
	EventID     string            `json:"event_id"`
	AggregateID string            `json:"aggregate_id"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Data        StatusChangedData `json:"data"`
}

// StatusChangedData is the payload of a StatusChangedEvent
type StatusChangedData struct {
	OrderDocID  string `json:"order_doc_id"`
	Folio       string `json:"folio"`
	OldStatus   Status `json:"old_status"`
	NewStatus   Status `json:"new_status"`
	TrackingID  string `json:"tracking_id,omitempty"`
	Propagation string `json:"propagation"`
}

// NewStatusChangedEvent creates a new event for an order status change
func NewStatusChangedEvent(order *Order, oldStatus, newStatus Status, propagation string) *StatusChangedEvent {
	return &StatusChangedEvent{
		EventType:   EventTypeStatusChanged,
		EventID:     GenerateID("evt"),
		AggregateID: order.DocID,
		OccurredAt:  GetCurrentTime(),
		Data: StatusChangedData{
			OrderDocID:  order.DocID,
			Folio:       order.Folio,
			OldStatus:   oldStatus.OrDefault(),
			NewStatus:   newStatus,
			TrackingID:  order.TrackingID,
			Propagation: propagation,
		},
	}
}
