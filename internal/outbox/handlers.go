package outbox

import (
	"context"

	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// LoggingHandler drains the outbox into the log when no broker is configured
type LoggingHandler struct {
	logger logger.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger logger.Logger) *LoggingHandler {
	return &LoggingHandler{
		logger: logger,
	}
}

// HandleMessage handles the outbox message by logging it
func (h *LoggingHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	event, err := message.StatusChangedEvent()
	if err != nil {
		return err
	}

	h.logger.Info("Status change",
		"messageID", message.ID,
		"orderID", event.AggregateID,
		"folio", event.Data.Folio,
		"oldStatus", event.Data.OldStatus,
		"newStatus", event.Data.NewStatus,
		"tracking", event.Data.Propagation,
		"occurredAt", event.OccurredAt)

	return nil
}
