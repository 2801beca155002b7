package repository

import (
	"context"

	"github.com/vaidashi/order-status-sync/internal/docstore"
	"github.com/vaidashi/order-status-sync/internal/models"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// TrackingRepository handles document store operations for the tracking collection
type TrackingRepository struct {
	client docstore.Client
	logger logger.Logger
}

// NewTrackingRepository creates a new TrackingRepository
func NewTrackingRepository(client docstore.Client, logger logger.Logger) *TrackingRepository {
	return &TrackingRepository{
		client: client,
		logger: logger,
	}
}

// Exists reports whether a tracking record is stored under trackingID
func (r *TrackingRepository) Exists(ctx context.Context, trackingID string) (bool, error) {
	_, err := r.client.Get(ctx, docstore.CollectionTracking, trackingID)
	if err == nil {
		return true, nil
	}

	if apperrors.Is(err, apperrors.KindNotFound) {
		return false, nil
	}

	r.logger.Error("Failed to check tracking record", "error", err, "trackingID", trackingID)
	return false, err
}

// Get retrieves a tracking record by its tracking id
func (r *TrackingRepository) Get(ctx context.Context, trackingID string) (*models.Tracking, error) {
	doc, err := r.client.Get(ctx, docstore.CollectionTracking, trackingID)
	if err != nil {
		return nil, err
	}

	var tracking models.Tracking
	if err := doc.DataTo(&tracking); err != nil {
		return nil, err
	}
	tracking.TrackingID = doc.ID

	return &tracking, nil
}

// UpdateStatus changes only status and updatedAt of an existing record
func (r *TrackingRepository) UpdateStatus(ctx context.Context, trackingID string, status models.Status) error {
	err := r.client.Update(ctx, docstore.CollectionTracking, trackingID, docstore.Fields{
		"status":    string(status),
		"updatedAt": docstore.ServerTimestamp,
	})

	if err != nil {
		r.logger.Error("Failed to update tracking status", "error", err, "trackingID", trackingID)
		return err
	}

	return nil
}

// Create writes a full tracking record merged over anything already stored,
// with createdAt and updatedAt both taken from the store clock.
func (r *TrackingRepository) Create(ctx context.Context, tracking *models.Tracking) error {
	if tracking.TrackingID == "" {
		return apperrors.NewMissingTrackingIDError("tracking record has no tracking id")
	}

	var readyBy any
	if tracking.ReadyBy != nil {
		readyBy = *tracking.ReadyBy
	}

	fields := docstore.Fields{
		"orderDocId": tracking.OrderDocID,
		"folio":      tracking.Folio,
		"status":     string(tracking.Status),
		"quantity":   tracking.Quantity,
		"total":      tracking.Total,
		"method":     string(tracking.Method),
		"readyBy":    readyBy,
		"createdAt":  docstore.ServerTimestamp,
		"updatedAt":  docstore.ServerTimestamp,
	}

	if err := r.client.Upsert(ctx, docstore.CollectionTracking, tracking.TrackingID, fields, true); err != nil {
		r.logger.Error("Failed to create tracking record", "error", err, "trackingID", tracking.TrackingID)
		return err
	}

	return nil
}
