package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/vaidashi/order-status-sync/internal/config"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

// Database represents a database connection
type Database struct {
	DB     *sqlx.DB
	Driver string
	logger logger.Logger
}

// New creates a new database connection for the configured driver
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.DB.Driver {
	case config.DriverPostgres:
		db, err = sqlx.Connect("postgres", cfg.GetDBConnString())
	case config.DriverSQLite:
		db, err = sqlx.Connect("sqlite3", cfg.GetDBConnString())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DB.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	if cfg.DB.Driver == config.DriverSQLite {
		// single writer; also keeps :memory: databases on one connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	logger.Info("Connected to database", "driver", cfg.DB.Driver, "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		Driver: cfg.DB.Driver,
		logger: logger,
	}, nil
}

// NewFromDB wraps an already opened connection
func NewFromDB(db *sqlx.DB, driver string, logger logger.Logger) *Database {
	return &Database{
		DB:     db,
		Driver: driver,
		logger: logger,
	}
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS documents (
		seq BIGSERIAL,
		collection VARCHAR(64) NOT NULL,
		id VARCHAR(128) NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_seq ON documents(collection, seq);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(collection, (data->>'status'));
`

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(collection, json_extract(data, '$.status'));
`

// RunMigrations creates the document table for the active driver
func (d *Database) RunMigrations() error {
	schema := postgresSchema
	if d.Driver == config.DriverSQLite {
		schema = sqliteSchema
	}

	_, err := d.DB.Exec(schema)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.logger.Info("Database migrations completed successfully", "driver", d.Driver)
	return nil
}
