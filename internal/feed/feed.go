package feed

import (
	"context"
	"sync"
	"time"

	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/telemetry"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// DefaultInterval is the time between two queries of one subscription
const DefaultInterval = 5 * time.Second

// Querier runs one order query. An empty status means no filter.
type Querier interface {
	Query(ctx context.Context, status models.Status) ([]*models.Order, error)
}

// State is a point-in-time copy of what the feed last observed
type State struct {
	Orders    []*models.Order
	Loading   bool
	Err       error
	Filter    models.Status
	UpdatedAt time.Time
}

// Feed re-queries orders on a fixed interval for as long as it is subscribed.
// Within one subscription queries run strictly one after another; a filter
// change replaces the subscription and discards whatever the old one had in flight.
type Feed struct {
	querier  Querier
	interval time.Duration
	metrics  *telemetry.FeedMetrics
	logger   logger.Logger

	mu         sync.Mutex
	filter     models.Status
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	running    bool
	parent     context.Context

	orders    []*models.Order
	loading   bool
	lastErr   error
	updatedAt time.Time
}

// Option configures a Feed
type Option func(*Feed)

// WithMetrics records query durations
func WithMetrics(m *telemetry.FeedMetrics) Option {
	return func(f *Feed) {
		f.metrics = m
	}
}

// New creates a stopped feed. A non-positive interval uses DefaultInterval.
func New(querier Querier, interval time.Duration, logger logger.Logger, opts ...Option) *Feed {
	if interval <= 0 {
		interval = DefaultInterval
	}

	f := &Feed{
		querier:  querier,
		interval: interval,
		logger:   logger,
		orders:   []*models.Order{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start subscribes with the given filter. The first query is issued
// immediately. Starting an already running feed resubscribes.
func (f *Feed) Start(ctx context.Context, filter models.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.parent = ctx
	f.filter = filter
	f.subscribeLocked()

	f.logger.Info("Order feed started", "interval", f.interval, "filter", filter)
}

// SetFilter changes the active filter. A running feed resubscribes so the
// new filter is queried at once.
func (f *Feed) SetFilter(filter models.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.filter == filter && f.running {
		return
	}

	f.filter = filter
	if f.running {
		f.subscribeLocked()
		f.logger.Debug("Order feed resubscribed", "filter", filter)
	}
}

// Stop ends the subscription. A query in flight is cancelled and its result
// dropped without being reported as an error.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}

	cancel, done := f.cancel, f.done
	f.generation++
	f.running = false
	f.loading = false
	f.cancel = nil
	f.done = nil
	f.mu.Unlock()

	cancel()
	<-done

	f.logger.Info("Order feed stopped")
}

// Running reports whether the feed is subscribed
func (f *Feed) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Snapshot returns the current state. The order slice is shared and must be
// treated as read-only.
func (f *Feed) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return State{
		Orders:    f.orders,
		Loading:   f.loading,
		Err:       f.lastErr,
		Filter:    f.filter,
		UpdatedAt: f.updatedAt,
	}
}

func (f *Feed) subscribeLocked() {
	if f.cancel != nil {
		f.cancel()
	}

	parent := f.parent
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	f.generation++
	f.cancel = cancel
	f.done = done
	f.running = true
	f.loading = true

	go f.run(ctx, f.generation, done)
}

func (f *Feed) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	f.poll(ctx, gen)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.poll(ctx, gen)
		}
	}
}

// poll runs one query with the filter active right now and applies the
// result only if its subscription is still current
func (f *Feed) poll(ctx context.Context, gen uint64) {
	f.mu.Lock()
	filter := f.filter
	f.mu.Unlock()

	qctx, cancel := context.WithTimeout(ctx, f.interval)
	defer cancel()

	start := time.Now()
	orders, err := f.querier.Query(qctx, filter)
	elapsed := time.Since(start)

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation || ctx.Err() != nil {
		f.metrics.RecordPoll(context.Background(), elapsed, telemetry.OutcomeDiscarded)
		return
	}

	if err != nil {
		f.lastErr = apperrors.NewTransientQueryError(err)
		f.metrics.RecordPoll(ctx, elapsed, telemetry.OutcomeError)
		f.logger.Warn("Order feed query failed",
			"error", err,
			"kind", apperrors.KindTransientQuery,
			"filter", filter,
			"cause", apperrors.KindOf(err))
		return
	}

	if orders == nil {
		orders = []*models.Order{}
	}

	f.orders = orders
	f.loading = false
	f.lastErr = nil
	f.updatedAt = time.Now()
	f.metrics.RecordPoll(ctx, elapsed, telemetry.OutcomeSuccess)
}
