package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 5*time.Second, cfg.Feed.PollInterval)
	assert.Equal(t, 25, cfg.Feed.QueryLimit)
	assert.Equal(t, 20, cfg.Feed.PageSize)
	assert.Equal(t, 1800*time.Millisecond, cfg.Feed.NoticeTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "order-status", cfg.Kafka.StatusTopic)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 20.0, cfg.Limits.TrackingBurst)
	assert.False(t, cfg.Limits.TrustForwardedFor)
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
}

func TestLoadFrom_Overrides(t *testing.T) {
	t.Parallel()

	v := New()
	v.Set("DB_DRIVER", "SQLite")
	v.Set("SQLITE_PATH", "/tmp/desk.db")
	v.Set("POLL_INTERVAL", "750ms")
	v.Set("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "/tmp/desk.db", cfg.GetDBConnString())
	assert.Equal(t, 750*time.Millisecond, cfg.Feed.PollInterval)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{name: "zero port", key: "PORT", value: 0},
		{name: "unknown driver", key: "DB_DRIVER", value: "mongo"},
		{name: "zero interval", key: "POLL_INTERVAL", value: "0s"},
		{name: "negative limit", key: "QUERY_LIMIT", value: -1},
		{name: "zero page size", key: "PAGE_SIZE", value: 0},
		{name: "production without secret", key: "APP_ENV", value: "production"},
		{name: "zero tracking rate", key: "TRACKING_RATE_PER_SECOND", value: 0},
		{name: "zero outbox attempts", key: "OUTBOX_MAX_ATTEMPTS", value: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := New()
			v.Set(tt.key, tt.value)

			_, err := LoadFrom(v)
			assert.Error(t, err)
		})
	}
}

func TestGetDBConnString_Postgres(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(New())
	require.NoError(t, err)

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=orderdesk sslmode=disable",
		cfg.GetDBConnString())
}
