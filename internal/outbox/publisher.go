package outbox

import (
	"context"

	"github.com/vaidashi/order-status-sync/internal/models"
)

// Writer persists outbox messages
type Writer interface {
	Create(ctx context.Context, message *models.OutboxMessage) error
}

// Publisher records status changes in the outbox; the Processor delivers them
type Publisher struct {
	writer Writer
}

// NewPublisher creates a new Publisher
func NewPublisher(writer Writer) *Publisher {
	return &Publisher{writer: writer}
}

// PublishStatusChanged stores the event as a pending outbox message
func (p *Publisher) PublishStatusChanged(ctx context.Context, event *models.StatusChangedEvent) error {
	msg, err := models.NewOutboxMessage(event)
	if err != nil {
		return err
	}

	return p.writer.Create(ctx, msg)
}
