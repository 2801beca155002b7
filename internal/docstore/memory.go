package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
)

// MemoryStore is an in-process Client. Documents are held as encoded JSON so
// callers never share mutable state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	now         func() time.Time
}

type memCollection struct {
	order []string
	docs  map[string][]byte
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock overrides the clock used for ServerTimestamp values
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]*memCollection),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string][]byte)}
		s.collections[name] = c
	}
	return c
}

// Query returns up to limit documents in insertion order
func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindUnavailable, "query "+collection)
	}
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return []Document{}, nil
	}

	docs := make([]Document, 0)
	for _, id := range c.order {
		if limit > 0 && len(docs) >= limit {
			break
		}

		doc, err := decode(id, c.docs[id])
		if err != nil {
			return nil, err
		}

		if matches(doc.Data, filters) {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

// Get returns a single document
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, apperrors.Wrap(err, apperrors.KindUnavailable, "get "+collection)
	}
	if err := validateTarget(collection, id); err != nil {
		return Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return Document{}, notFound(collection, id)
	}

	raw, ok := c.docs[id]
	if !ok {
		return Document{}, notFound(collection, id)
	}

	return decode(id, raw)
}

// Create stores a new document and fails if the id is taken
func (s *MemoryStore) Create(ctx context.Context, collection, id string, fields Fields) error {
	return s.write(ctx, collection, id, func(existing Fields, found bool) (Fields, error) {
		if found {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("%s/%s already exists", collection, id))
		}
		return fields, nil
	})
}

// Update merges fields into an existing document
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	return s.write(ctx, collection, id, func(existing Fields, found bool) (Fields, error) {
		if !found {
			return nil, notFound(collection, id)
		}
		return mergeFields(existing, fields), nil
	})
}

// Upsert creates the document or, when it exists, merges into or replaces it
func (s *MemoryStore) Upsert(ctx context.Context, collection, id string, fields Fields, merge bool) error {
	return s.write(ctx, collection, id, func(existing Fields, found bool) (Fields, error) {
		if found && merge {
			return mergeFields(existing, fields), nil
		}
		return fields, nil
	})
}

func (s *MemoryStore) write(ctx context.Context, collection, id string, apply func(Fields, bool) (Fields, error)) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.KindUnavailable, "write "+collection)
	}
	if err := validateTarget(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)

	var existing Fields
	raw, found := c.docs[id]
	if found {
		doc, err := decode(id, raw)
		if err != nil {
			return err
		}
		existing = doc.Data
	}

	next, err := apply(existing, found)
	if err != nil {
		return err
	}

	encoded, err := encode(resolve(next, s.now()))
	if err != nil {
		return err
	}

	if !found {
		c.order = append(c.order, id)
	}
	c.docs[id] = encoded

	return nil
}

func notFound(collection, id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("%s/%s not found", collection, id))
}
