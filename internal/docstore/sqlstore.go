package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/vaidashi/order-status-sync/internal/config"
	"github.com/vaidashi/order-status-sync/internal/database"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
	"github.com/vaidashi/order-status-sync/pkg/logger"
)

type dialect struct {
	// fieldExpr renders a JSON text extraction whose path is bound as the next parameter
	fieldExpr string
	fieldArg  func(field string) string
	orderBy   string
	forUpdate string
}

var (
	postgresDialect = dialect{
		fieldExpr: "data->>(?::text)",
		fieldArg:  func(field string) string { return field },
		orderBy:   "seq",
		forUpdate: " FOR UPDATE",
	}
	sqliteDialect = dialect{
		fieldExpr: "json_extract(data, ?)",
		fieldArg:  func(field string) string { return "$." + field },
		orderBy:   "rowid",
	}
)

type documentRow struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

// SQLStore is a Client backed by the documents table
type SQLStore struct {
	db      *database.Database
	dialect dialect
	now     func() time.Time
	logger  logger.Logger
}

// NewSQLStore creates a document store on top of an open database
func NewSQLStore(db *database.Database, logger logger.Logger) *SQLStore {
	d := postgresDialect
	if db.Driver == config.DriverSQLite {
		d = sqliteDialect
	}

	return &SQLStore{
		db:      db,
		dialect: d,
		now:     time.Now,
		logger:  logger,
	}
}

// Query returns up to limit documents in insertion order
func (s *SQLStore) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, data FROM documents WHERE collection = ?")
	args := []interface{}{collection}

	for _, f := range filters {
		sb.WriteString(" AND ")
		sb.WriteString(s.dialect.fieldExpr)
		sb.WriteString(" = ?")
		args = append(args, s.dialect.fieldArg(f.Field), f.Value)
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(s.dialect.orderBy)

	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	var rows []documentRow
	if err := s.db.DB.SelectContext(ctx, &rows, s.db.DB.Rebind(sb.String()), args...); err != nil {
		return nil, classify(err, "query "+collection)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decode(row.ID, row.Data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Get returns a single document
func (s *SQLStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := validateTarget(collection, id); err != nil {
		return Document{}, err
	}

	var row documentRow
	query := s.db.DB.Rebind(`SELECT id, data FROM documents WHERE collection = ? AND id = ?`)

	if err := s.db.DB.GetContext(ctx, &row, query, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, notFound(collection, id)
		}
		return Document{}, classify(err, "get "+collection)
	}

	return decode(row.ID, row.Data)
}

// Create stores a new document and fails if the id is taken
func (s *SQLStore) Create(ctx context.Context, collection, id string, fields Fields) error {
	return s.write(ctx, collection, id, func(existing Fields, found bool) (Fields, error) {
		if found {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("%s/%s already exists", collection, id))
		}
		return fields, nil
	})
}

// Update merges fields into an existing document
func (s *SQLStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	return s.write(ctx, collection, id, func(existing Fields, found bool) (Fields, error) {
		if !found {
			return nil, notFound(collection, id)
		}
		return mergeFields(existing, fields), nil
	})
}

// Upsert creates the document or, when it exists, merges into or replaces it
func (s *SQLStore) Upsert(ctx context.Context, collection, id string, fields Fields, merge bool) error {
	return s.write(ctx, collection, id, func(existing Fields, found bool) (Fields, error) {
		if found && merge {
			return mergeFields(existing, fields), nil
		}
		return fields, nil
	})
}

// write runs a read-modify-write of one document inside a transaction
func (s *SQLStore) write(ctx context.Context, collection, id string, apply func(Fields, bool) (Fields, error)) error {
	if err := validateTarget(collection, id); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var row documentRow
		query := tx.Rebind(`SELECT id, data FROM documents WHERE collection = ? AND id = ?` + s.dialect.forUpdate)

		found := true
		if err := tx.GetContext(ctx, &row, query, collection, id); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return classify(err, "read "+collection)
			}
			found = false
		}

		var existing Fields
		if found {
			doc, err := decode(id, row.Data)
			if err != nil {
				return err
			}
			existing = doc.Data
		}

		next, err := apply(existing, found)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		encoded, err := encode(resolve(next, now))
		if err != nil {
			return err
		}

		if found {
			_, err = tx.ExecContext(ctx,
				tx.Rebind(`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`),
				string(encoded), now, collection, id)
		} else {
			_, err = tx.ExecContext(ctx,
				tx.Rebind(`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
				collection, id, string(encoded), now, now)
		}

		if err != nil {
			return classify(err, "write "+collection)
		}

		return nil
	})
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("Failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit transaction")
	}

	return nil
}

// classify maps driver errors onto failure kinds
func classify(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "42501":
			return apperrors.Wrap(err, apperrors.KindPermissionDenied, op)
		case pqErr.Code == "23505":
			return apperrors.Wrap(err, apperrors.KindInvalidInput, op)
		case pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57":
			return apperrors.Wrap(err, apperrors.KindUnavailable, op)
		case pqErr.Code.Class() == "22":
			return apperrors.Wrap(err, apperrors.KindMalformedDocument, op)
		}
		return apperrors.Wrap(err, apperrors.KindInternal, op)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
			return apperrors.Wrap(err, apperrors.KindPermissionDenied, op)
		case sqlite3.ErrConstraint:
			return apperrors.Wrap(err, apperrors.KindInvalidInput, op)
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
			return apperrors.Wrap(err, apperrors.KindUnavailable, op)
		}
		return apperrors.Wrap(err, apperrors.KindInternal, op)
	}

	// connection loss, driver.ErrBadConn and context expiry all mean the store was not reached
	return apperrors.Wrap(err, apperrors.KindUnavailable, op)
}
