package service

//go:generate mockgen -destination=mocks/mock_status_service.go -package=mocks -source=status_service.go OrderStore,TrackingStore,EventPublisher

import (
	"context"
	"fmt"

	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/telemetry"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// OrderStore is the order side of a status change
type OrderStore interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) error
}

// TrackingStore is the tracking mirror side of a status change
type TrackingStore interface {
	Exists(ctx context.Context, trackingID string) (bool, error)
	UpdateStatus(ctx context.Context, trackingID string, status models.Status) error
	Create(ctx context.Context, tracking *models.Tracking) error
}

// EventPublisher receives an event after every successful order write
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event *models.StatusChangedEvent) error
}

// Notifier shows a short-lived confirmation message
type Notifier interface {
	Post(message string)
}

// TrackingOutcome says what happened to the tracking mirror
type TrackingOutcome string

const (
	TrackingCreated TrackingOutcome = "created"
	TrackingUpdated TrackingOutcome = "updated"
	TrackingSkipped TrackingOutcome = "skipped"
	TrackingFailed  TrackingOutcome = "failed"
)

// Result describes a status change whose order write succeeded
type Result struct {
	OrderID    string          `json:"orderId"`
	Folio      string          `json:"folio"`
	Status     models.Status   `json:"status"`
	TrackingID string          `json:"trackingId,omitempty"`
	Tracking   TrackingOutcome `json:"tracking"`
}

// StatusService moves orders through their fulfillment states and mirrors
// every change into the tracking collection
type StatusService struct {
	orders    OrderStore
	tracking  TrackingStore
	publisher EventPublisher
	notifier  Notifier
	metrics   *telemetry.StatusMetrics
	logger    logger.Logger
}

// Option configures a StatusService
type Option func(*StatusService)

// WithPublisher publishes an event after each order write
func WithPublisher(p EventPublisher) Option {
	return func(s *StatusService) {
		s.publisher = p
	}
}

// WithNotifier posts a confirmation message after each order write
func WithNotifier(n Notifier) Option {
	return func(s *StatusService) {
		s.notifier = n
	}
}

// WithMetrics counts transitions and propagation outcomes
func WithMetrics(m *telemetry.StatusMetrics) Option {
	return func(s *StatusService) {
		s.metrics = m
	}
}

// NewStatusService creates a new StatusService
func NewStatusService(
	orders OrderStore,
	tracking TrackingStore,
	logger logger.Logger,
	opts ...Option,
) *StatusService {
	s := &StatusService{
		orders:   orders,
		tracking: tracking,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Advance moves the order to the next status. Cancelled and delivered orders
// have no next status; for them Advance writes nothing and returns nil, nil.
func (s *StatusService) Advance(ctx context.Context, order *models.Order) (*Result, error) {
	next, ok := NextStatus(order.Status)
	if !ok {
		s.logger.Debug("Advance ignored for terminal order", "orderID", order.DocID, "status", order.CurrentStatus())
		return nil, nil
	}

	return s.SetStatus(ctx, order, next)
}

// Cancel asks confirm first and cancels the order only if it returns true.
// A declined confirmation returns nil, nil.
func (s *StatusService) Cancel(ctx context.Context, order *models.Order, confirm func() bool) (*Result, error) {
	if confirm == nil || !confirm() {
		s.logger.Debug("Cancel not confirmed", "orderID", order.DocID)
		return nil, nil
	}

	if order.CurrentStatus().IsTerminal() {
		return nil, apperrors.NewInvalidTransitionError(
			fmt.Sprintf("order %s is already %s", order.Folio, order.CurrentStatus()))
	}

	return s.SetStatus(ctx, order, models.StatusCancelled)
}

// SetStatus writes newStatus to the order and then propagates it to the
// tracking record. The steps run strictly in order:
//
//  1. write status and updatedAt to the order
//  2. re-read the order to learn its tracking id
//  3. without a tracking id, stop
//  4. check whether the tracking record exists
//  5. update its status, or create it from the re-read order
//
// Once step 1 succeeds the order write stands. A failure in steps 2-5 is
// returned as a propagation error together with a non-nil Result.
func (s *StatusService) SetStatus(ctx context.Context, order *models.Order, newStatus models.Status) (*Result, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown status %q", newStatus))
	}

	if order == nil || order.DocID == "" {
		s.logger.Warn("Status change abandoned, order has no storage identity",
			"kind", apperrors.KindMissingIdentity,
			"status", newStatus)
		return nil, apperrors.NewMissingIdentityError("order has no storage identity")
	}

	oldStatus := order.CurrentStatus()

	if err := s.orders.UpdateStatus(ctx, order.DocID, newStatus); err != nil {
		s.logger.Error("Failed to write order status", "error", err, "orderID", order.DocID, "status", newStatus)
		return nil, err
	}

	s.metrics.RecordTransition(ctx, string(newStatus))

	result := &Result{
		OrderID: order.DocID,
		Folio:   order.Folio,
		Status:  newStatus,
	}

	propErr := s.propagate(ctx, order.DocID, newStatus, result)

	s.metrics.RecordPropagation(ctx, string(result.Tracking))
	s.publish(ctx, order, oldStatus, newStatus, result)

	if s.notifier != nil {
		s.notifier.Post(fmt.Sprintf("Order %s marked %s", result.Folio, newStatus))
	}

	s.logger.Info("Order status updated",
		"orderID", order.DocID,
		"oldStatus", oldStatus,
		"newStatus", newStatus,
		"tracking", result.Tracking)

	if propErr != nil {
		return result, propErr
	}

	return result, nil
}

// propagate runs steps 2-5 and fills in the tracking part of result
func (s *StatusService) propagate(ctx context.Context, orderID string, status models.Status, result *Result) error {
	fresh, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return s.propagationFailed(result, err, "re-read order")
	}

	if fresh.Folio != "" {
		result.Folio = fresh.Folio
	}

	if fresh.TrackingID == "" {
		result.Tracking = TrackingSkipped
		s.logger.Warn("Order has no tracking id, tracking not updated",
			"kind", apperrors.KindMissingTrackingID,
			"orderID", orderID)
		return nil
	}

	result.TrackingID = fresh.TrackingID

	exists, err := s.tracking.Exists(ctx, fresh.TrackingID)
	if err != nil {
		return s.propagationFailed(result, err, "check tracking record")
	}

	if exists {
		if err := s.tracking.UpdateStatus(ctx, fresh.TrackingID, status); err != nil {
			return s.propagationFailed(result, err, "update tracking record")
		}
		result.Tracking = TrackingUpdated
		return nil
	}

	if err := s.tracking.Create(ctx, models.NewTrackingFromOrder(fresh, status)); err != nil {
		return s.propagationFailed(result, err, "create tracking record")
	}
	result.Tracking = TrackingCreated
	return nil
}

func (s *StatusService) propagationFailed(result *Result, cause error, step string) error {
	result.Tracking = TrackingFailed

	s.logger.Error("Tracking propagation failed, order and tracking now disagree",
		"kind", apperrors.KindPropagation,
		"step", step,
		"orderID", result.OrderID,
		"trackingID", result.TrackingID,
		"status", result.Status,
		"error", cause)

	return apperrors.NewPropagationError(cause).
		WithContext("orderID", result.OrderID).
		WithContext("step", step)
}

func (s *StatusService) publish(ctx context.Context, order *models.Order, oldStatus, newStatus models.Status, result *Result) {
	if s.publisher == nil {
		return
	}

	snapshot := *order
	snapshot.Folio = result.Folio
	snapshot.TrackingID = result.TrackingID

	event := models.NewStatusChangedEvent(&snapshot, oldStatus, newStatus, string(result.Tracking))
	if err := s.publisher.PublishStatusChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish status change", "error", err, "orderID", order.DocID, "eventID", event.EventID)
	}
}

// NextStatus returns the successor of status in the linear progression.
// An absent status counts as new.
func NextStatus(status models.Status) (models.Status, bool) {
	if status.OrDefault() == models.StatusCancelled {
		return "", false
	}
	return status.Next()
}

// Progress maps a status onto 0-100 by its position in the progression.
// Cancelled reports 100 as a finished state; unknown statuses report 0.
func Progress(status models.Status) int {
	status = status.OrDefault()
	if status == models.StatusCancelled {
		return 100
	}

	steps := models.Progression()
	for i, st := range steps {
		if st == status {
			return i * 100 / (len(steps) - 1)
		}
	}
	return 0
}
