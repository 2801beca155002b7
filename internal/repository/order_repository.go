package repository

import (
	"context"
	"fmt"

	"github.com/vaidashi/order-status-sync/internal/docstore"
	"github.com/vaidashi/order-status-sync/internal/models"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// DefaultQueryLimit caps every order query
const DefaultQueryLimit = 25

// OrderRepository handles document store operations for the orders collection
type OrderRepository struct {
	client docstore.Client
	limit  int
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository. A non-positive limit uses DefaultQueryLimit.
func NewOrderRepository(client docstore.Client, limit int, logger logger.Logger) *OrderRepository {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	return &OrderRepository{
		client: client,
		limit:  limit,
		logger: logger,
	}
}

// Query returns at most the configured number of orders in store order.
// An empty status returns orders of every status.
func (r *OrderRepository) Query(ctx context.Context, status models.Status) ([]*models.Order, error) {
	var filters []docstore.Filter
	if status != "" {
		filters = append(filters, docstore.Filter{Field: "status", Value: string(status)})
	}

	docs, err := r.client.Query(ctx, docstore.CollectionOrders, filters, r.limit)
	if err != nil {
		r.logger.Debug("Failed to query orders", "error", err, "status", status)
		return nil, err
	}

	orders := make([]*models.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := decodeOrder(doc)
		if err != nil {
			r.logger.Error("Malformed order document", "error", err, "orderID", doc.ID)
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, nil
}

// Get retrieves an order by its storage id
func (r *OrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	doc, err := r.client.Get(ctx, docstore.CollectionOrders, id)
	if err != nil {
		if !apperrors.Is(err, apperrors.KindNotFound) {
			r.logger.Error("Failed to get order", "error", err, "orderID", id)
		}
		return nil, err
	}

	return decodeOrder(doc)
}

// Write merges partial fields into an existing order
func (r *OrderRepository) Write(ctx context.Context, id string, fields docstore.Fields) error {
	if err := r.client.Update(ctx, docstore.CollectionOrders, id, fields); err != nil {
		r.logger.Error("Failed to write order", "error", err, "orderID", id)
		return err
	}

	return nil
}

// UpdateStatus writes the status together with a server-assigned updatedAt
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	return r.Write(ctx, id, docstore.Fields{
		"status":    string(status),
		"updatedAt": docstore.ServerTimestamp,
	})
}

// Create stores a new order under a generated id and returns that id
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) (string, error) {
	if order.Folio == "" {
		return "", apperrors.NewInvalidInputError("order folio is required")
	}

	id := order.DocID
	if id == "" {
		id = models.GenerateID("ord")
	}

	fields, err := docstore.ToFields(order)
	if err != nil {
		return "", err
	}
	fields["createdAt"] = docstore.ServerTimestamp

	if err := r.client.Create(ctx, docstore.CollectionOrders, id, fields); err != nil {
		r.logger.Error("Failed to create order", "error", err, "folio", order.Folio)
		return "", err
	}

	return id, nil
}

// Ping issues a single-document query to prove the store is reachable and
// readable. It returns how many documents came back (0 or 1).
func (r *OrderRepository) Ping(ctx context.Context) (int, error) {
	docs, err := r.client.Query(ctx, docstore.CollectionOrders, nil, 1)
	if err != nil {
		return 0, err
	}

	return len(docs), nil
}

func decodeOrder(doc docstore.Document) (*models.Order, error) {
	if !doc.Has("id") {
		return nil, apperrors.NewMalformedDocumentError(fmt.Sprintf("order %s has no folio", doc.ID))
	}

	var order models.Order
	if err := doc.DataTo(&order); err != nil {
		return nil, err
	}
	order.DocID = doc.ID

	return &order, nil
}
