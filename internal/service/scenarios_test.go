package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/order-status-sync/internal/docstore"
	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/repository"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

type harness struct {
	store    *docstore.MemoryStore
	orders   *repository.OrderRepository
	tracking *repository.TrackingRepository
	svc      *StatusService
}

func newHarness() *harness {
	store := docstore.NewMemoryStore(docstore.WithClock(func() time.Time {
		return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	}))
	h := &harness{
		store:    store,
		orders:   repository.NewOrderRepository(store, 25, logger.NewNop()),
		tracking: repository.NewTrackingRepository(store, logger.NewNop()),
	}
	h.svc = NewStatusService(h.orders, h.tracking, logger.NewNop())
	return h
}

func (h *harness) seed(t *testing.T, id string, fields docstore.Fields) *models.Order {
	t.Helper()
	require.NoError(t, h.store.Create(context.Background(), docstore.CollectionOrders, id, fields))
	order, err := h.orders.Get(context.Background(), id)
	require.NoError(t, err)
	return order
}

func TestScenario_AdvanceCreatesMissingTracking(t *testing.T) {
	t.Parallel()

	h := newHarness()
	ctx := context.Background()
	order := h.seed(t, "A", docstore.Fields{
		"id": "1001", "status": "new", "trackingId": "T1",
		"quantity": 2, "total": 50.0, "method": "delivery", "readyBy": "18:00",
	})

	res, err := h.svc.Advance(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, TrackingCreated, res.Tracking)

	stored, err := h.orders.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	assert.NotNil(t, stored.UpdatedAt)

	tr, err := h.tracking.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, tr.Status)
	assert.Equal(t, "A", tr.OrderDocID)
	assert.Equal(t, "1001", tr.Folio)
	assert.Equal(t, 2, tr.Quantity)
	assert.Equal(t, 50.0, tr.Total)
	assert.Equal(t, models.MethodDelivery, tr.Method)
	require.NotNil(t, tr.ReadyBy)
	assert.Equal(t, "18:00", *tr.ReadyBy)
	require.NotNil(t, tr.CreatedAt)
	require.NotNil(t, tr.UpdatedAt)
	assert.True(t, tr.CreatedAt.Equal(*tr.UpdatedAt))
}

func TestScenario_AdvanceUpdatesExistingTrackingOnly(t *testing.T) {
	t.Parallel()

	h := newHarness()
	ctx := context.Background()
	order := h.seed(t, "B", docstore.Fields{"id": "1002", "status": "ready", "trackingId": "T2", "total": 10.0})

	require.NoError(t, h.store.Create(ctx, docstore.CollectionTracking, "T2", docstore.Fields{
		"status":     "preparing",
		"folio":      "legacy-folio",
		"quantity":   9,
		"customNote": "kept",
	}))

	res, err := h.svc.Advance(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, TrackingUpdated, res.Tracking)

	stored, err := h.orders.Get(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, stored.Status)

	doc, err := h.store.Get(ctx, docstore.CollectionTracking, "T2")
	require.NoError(t, err)
	assert.Equal(t, "delivered", doc.Data["status"])
	assert.Equal(t, "legacy-folio", doc.Data["folio"])
	assert.Equal(t, float64(9), doc.Data["quantity"])
	assert.Equal(t, "kept", doc.Data["customNote"])
	assert.NotEmpty(t, doc.Data["updatedAt"])
}

func TestScenario_AdvanceWithoutTrackingID(t *testing.T) {
	t.Parallel()

	h := newHarness()
	ctx := context.Background()
	order := h.seed(t, "C", docstore.Fields{"id": "1003", "status": "preparing"})

	res, err := h.svc.Advance(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, TrackingSkipped, res.Tracking)

	stored, err := h.orders.Get(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, stored.Status)

	docs, err := h.store.Query(ctx, docstore.CollectionTracking, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
