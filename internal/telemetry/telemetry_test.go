package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	t.Parallel()

	feed, err := NewFeedMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, feed)

	status, err := NewStatusMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, status)

	assert.NotPanics(t, func() {
		feed.RecordPoll(context.Background(), time.Second, OutcomeSuccess)
		status.RecordTransition(context.Background(), "confirmed")
		status.RecordPropagation(context.Background(), "created")
	})
}

func TestProvider_ExposesPrometheusMetrics(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	feed, err := NewFeedMetrics(p.MeterProvider)
	require.NoError(t, err)
	status, err := NewStatusMetrics(p.MeterProvider)
	require.NoError(t, err)

	ctx := context.Background()
	feed.RecordPoll(ctx, 20*time.Millisecond, OutcomeSuccess)
	status.RecordTransition(ctx, "confirmed")
	status.RecordPropagation(ctx, "created")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "orderdesk_feed_poll_duration")
	assert.Contains(t, string(body), "orderdesk_status_transitions")
	assert.Contains(t, string(body), "orderdesk_tracking_propagations")
}

func TestProvider_Disabled(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, p.Shutdown(context.Background()))
}
