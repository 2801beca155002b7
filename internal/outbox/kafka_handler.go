package outbox

import (
	"context"
	"fmt"

	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/service"
)

// KafkaHandler forwards outbox messages to the event publisher
type KafkaHandler struct {
	publisher service.EventPublisher
}

// NewKafkaHandler creates a new KafkaHandler
func NewKafkaHandler(publisher service.EventPublisher) *KafkaHandler {
	return &KafkaHandler{publisher: publisher}
}

// HandleMessage decodes the status change and publishes it
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	event, err := message.StatusChangedEvent()
	if err != nil {
		return err
	}

	if err := h.publisher.PublishStatusChanged(ctx, event); err != nil {
		return fmt.Errorf("failed to publish message %s: %w", message.ID, err)
	}

	return nil
}
