package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevJWTSecret signs tokens outside production when no secret is configured
const DevJWTSecret = "orderdesk-dev-secret"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string
	DB       DBConfig
	Feed     FeedConfig
	Auth     AuthConfig
	Kafka    KafkaConfig
	Metrics  MetricsConfig
	Limits   LimitsConfig
	Outbox   OutboxConfig
}

// DBConfig holds the document store configuration
type DBConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// FeedConfig holds the polling and view settings
type FeedConfig struct {
	PollInterval time.Duration
	QueryLimit   int
	PageSize     int
	NoticeTTL    time.Duration
}

// AuthConfig holds the bearer token settings
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// KafkaConfig holds the event publishing settings. No brokers disables publishing.
type KafkaConfig struct {
	Brokers     []string
	StatusTopic string
}

type MetricsConfig struct {
	Enabled bool
}

// LimitsConfig holds the per-address limit of the public tracking lookup
type LimitsConfig struct {
	TrackingBurst     float64
	TrackingPerSecond float64
	TrustForwardedFor bool
}

// OutboxConfig holds the delivery settings of pending status events
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// New returns a viper instance with every default registered and env binding enabled
func New() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "orderdesk")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "orderdesk.db")

	v.SetDefault("POLL_INTERVAL", 5*time.Second)
	v.SetDefault("QUERY_LIMIT", 25)
	v.SetDefault("PAGE_SIZE", 20)
	v.SetDefault("NOTICE_TTL", 1800*time.Millisecond)

	v.SetDefault("AUTH_JWT_SECRET", "")
	v.SetDefault("AUTH_JWT_ISSUER", "")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_STATUS_TOPIC", "order-status")

	v.SetDefault("METRICS_ENABLED", true)

	v.SetDefault("TRACKING_RATE_BURST", 20)
	v.SetDefault("TRACKING_RATE_PER_SECOND", 2)
	v.SetDefault("TRUST_FORWARDED_FOR", false)

	v.SetDefault("OUTBOX_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("OUTBOX_BATCH_SIZE", 10)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", 5)

	return v
}

// Load reads the configuration from environment variables and returns a Config struct.
func Load() (*Config, error) {
	return LoadFrom(New())
}

// LoadFrom builds a Config from an already populated viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Env:      v.GetString("APP_ENV"),
		DB: DBConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetInt("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			Name:       v.GetString("DB_NAME"),
			SSLMode:    v.GetString("DB_SSLMODE"),
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		Feed: FeedConfig{
			PollInterval: v.GetDuration("POLL_INTERVAL"),
			QueryLimit:   v.GetInt("QUERY_LIMIT"),
			PageSize:     v.GetInt("PAGE_SIZE"),
			NoticeTTL:    v.GetDuration("NOTICE_TTL"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("AUTH_JWT_SECRET"),
			JWTIssuer: v.GetString("AUTH_JWT_ISSUER"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			StatusTopic: v.GetString("KAFKA_STATUS_TOPIC"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Limits: LimitsConfig{
			TrackingBurst:     v.GetFloat64("TRACKING_RATE_BURST"),
			TrackingPerSecond: v.GetFloat64("TRACKING_RATE_PER_SECOND"),
			TrustForwardedFor: v.GetBool("TRUST_FORWARDED_FOR"),
		},
		Outbox: OutboxConfig{
			PollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
			BatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxAttempts:  v.GetInt("OUTBOX_MAX_ATTEMPTS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = DevJWTSecret
	}

	return cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("invalid DB_DRIVER: %q", c.DB.Driver)
	}

	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("invalid POLL_INTERVAL: %s", c.Feed.PollInterval)
	}
	if c.Feed.QueryLimit <= 0 {
		return fmt.Errorf("invalid QUERY_LIMIT: %d", c.Feed.QueryLimit)
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("invalid PAGE_SIZE: %d", c.Feed.PageSize)
	}
	if c.Feed.NoticeTTL <= 0 {
		return fmt.Errorf("invalid NOTICE_TTL: %s", c.Feed.NoticeTTL)
	}

	if c.Limits.TrackingBurst < 1 || c.Limits.TrackingPerSecond <= 0 {
		return fmt.Errorf("invalid tracking rate limit: burst %v, rate %v", c.Limits.TrackingBurst, c.Limits.TrackingPerSecond)
	}

	if c.Outbox.PollInterval <= 0 || c.Outbox.BatchSize <= 0 || c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("invalid outbox settings: interval %s, batch %d, attempts %d",
			c.Outbox.PollInterval, c.Outbox.BatchSize, c.Outbox.MaxAttempts)
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required in production")
	}

	return nil
}

// IsProduction reports whether the service runs in the production environment
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	if c.DB.Driver == DriverSQLite {
		return c.DB.SQLitePath
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
