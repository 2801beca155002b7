package repository

import (
	"context"

	"github.com/vaidashi/order-status-sync/internal/docstore"
	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// OutboxRepository handles document store operations for outbox messages
type OutboxRepository struct {
	client docstore.Client
	logger logger.Logger
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(client docstore.Client, logger logger.Logger) *OutboxRepository {
	return &OutboxRepository{
		client: client,
		logger: logger,
	}
}

// Create stores a new pending message
func (r *OutboxRepository) Create(ctx context.Context, message *models.OutboxMessage) error {
	fields, err := docstore.ToFields(message)
	if err != nil {
		return err
	}
	fields["status"] = string(models.OutboxStatusPending)
	fields["createdAt"] = docstore.ServerTimestamp

	if err := r.client.Create(ctx, docstore.CollectionOutbox, message.ID, fields); err != nil {
		r.logger.Error("Failed to create outbox message", "error", err, "messageID", message.ID)
		return err
	}

	return nil
}

// GetPendingMessages returns up to limit pending messages, oldest first
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	return r.byStatus(ctx, models.OutboxStatusPending, limit)
}

// GetFailedMessages returns up to limit messages that ran out of attempts
func (r *OutboxRepository) GetFailedMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	return r.byStatus(ctx, models.OutboxStatusFailed, limit)
}

func (r *OutboxRepository) byStatus(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.OutboxMessage, error) {
	docs, err := r.client.Query(ctx, docstore.CollectionOutbox,
		[]docstore.Filter{{Field: "status", Value: string(status)}}, limit)
	if err != nil {
		r.logger.Error("Failed to get outbox messages", "error", err, "status", status)
		return nil, err
	}

	messages := make([]*models.OutboxMessage, 0, len(docs))
	for _, doc := range docs {
		var msg models.OutboxMessage
		if err := doc.DataTo(&msg); err != nil {
			return nil, err
		}
		msg.ID = doc.ID
		messages = append(messages, &msg)
	}

	return messages, nil
}

// MarkAsCompleted records a successful delivery
func (r *OutboxRepository) MarkAsCompleted(ctx context.Context, id string, attempts int) error {
	return r.update(ctx, id, docstore.Fields{
		"status":             string(models.OutboxStatusCompleted),
		"processingAttempts": attempts,
		"processedAt":        docstore.ServerTimestamp,
	})
}

// MarkAttemptFailed keeps the message pending and records the error
func (r *OutboxRepository) MarkAttemptFailed(ctx context.Context, id string, attempts int, errorMessage string) error {
	return r.update(ctx, id, docstore.Fields{
		"processingAttempts": attempts,
		"lastError":          errorMessage,
	})
}

// MarkAsFailed stops delivery of the message
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, id string, attempts int, errorMessage string) error {
	return r.update(ctx, id, docstore.Fields{
		"status":             string(models.OutboxStatusFailed),
		"processingAttempts": attempts,
		"lastError":          errorMessage,
	})
}

func (r *OutboxRepository) update(ctx context.Context, id string, fields docstore.Fields) error {
	if err := r.client.Update(ctx, docstore.CollectionOutbox, id, fields); err != nil {
		r.logger.Error("Failed to update outbox message", "error", err, "messageID", id)
		return err
	}
	return nil
}
