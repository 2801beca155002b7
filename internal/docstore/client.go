package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
)

// Collection names used by the repositories
const (
	CollectionOrders   = "orders"
	CollectionTracking = "tracking"
	CollectionOutbox   = "outbox"
)

// Fields is a document body or a partial set of fields to write
type Fields map[string]any

// Document is a stored document together with its id
type Document struct {
	ID   string
	Data Fields
}

// Filter selects documents whose top-level field equals Value
type Filter struct {
	Field string
	Value string
}

type serverTimestamp struct{}

// ServerTimestamp may be used as a field value; the store replaces it with its
// own clock when the write is applied.
var ServerTimestamp = serverTimestamp{}

// Client is the document store contract consumed by the repositories.
// Every method is independently failable and returns an *errors.AppError
// classified by kind.
type Client interface {
	Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection, id string, fields Fields) error
	Update(ctx context.Context, collection, id string, fields Fields) error
	Upsert(ctx context.Context, collection, id string, fields Fields, merge bool) error
}

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// DataTo decodes the document body into out
func (d Document) DataTo(out any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindMalformedDocument, fmt.Sprintf("document %s", d.ID))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Wrap(err, apperrors.KindMalformedDocument, fmt.Sprintf("document %s", d.ID))
	}

	return nil
}

// ToFields encodes a tagged struct into document fields
func ToFields(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInvalidInput, "encode document")
	}

	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInvalidInput, "encode document")
	}

	return fields, nil
}

// Has reports whether the document carries a non-null value for field
func (d Document) Has(field string) bool {
	v, ok := d.Data[field]
	return ok && v != nil
}

func validateTarget(collection, id string) error {
	if !fieldName.MatchString(collection) {
		return apperrors.NewInvalidInputError(fmt.Sprintf("invalid collection name %q", collection))
	}
	if id == "" {
		return apperrors.NewInvalidInputError("document id is required")
	}
	return nil
}

func validateFilters(filters []Filter) error {
	for _, f := range filters {
		if !fieldName.MatchString(f.Field) {
			return apperrors.NewInvalidInputError(fmt.Sprintf("invalid filter field %q", f.Field))
		}
	}
	return nil
}

// resolve returns a copy of fields with every ServerTimestamp replaced by now
func resolve(fields Fields, now time.Time) Fields {
	out := make(Fields, len(fields))
	stamp := now.UTC().Format(time.RFC3339Nano)

	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = stamp
			continue
		}
		out[k] = v
	}

	return out
}

// mergeFields overlays patch onto base at the top level
func mergeFields(base, patch Fields) Fields {
	out := make(Fields, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func encode(fields Fields) ([]byte, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInvalidInput, "encode document")
	}
	return raw, nil
}

func decode(id string, raw []byte) (Document, error) {
	var data Fields
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, apperrors.Wrap(err, apperrors.KindMalformedDocument, fmt.Sprintf("document %s", id))
	}
	if data == nil {
		return Document{}, apperrors.NewMalformedDocumentError(fmt.Sprintf("document %s has no body", id))
	}
	return Document{ID: id, Data: data}, nil
}

// matches applies equality filters the way the SQL stores compare JSON text values
func matches(data Fields, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || v == nil {
			return false
		}

		var text string
		switch t := v.(type) {
		case string:
			text = t
		case float64:
			text = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			text = strconv.FormatBool(t)
		default:
			return false
		}

		if text != f.Value {
			return false
		}
	}
	return true
}
