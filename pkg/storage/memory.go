package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/errors"
)

// MemoryStore keeps BSON-encoded documents in a map. Callers never share
// memory with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*document.Document, error) {
	s.mu.RLock()
	data, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "score %s not found", id)
	}
	return document.UnmarshalBSON(data)
}

func (s *MemoryStore) Put(ctx context.Context, d *document.Document) error {
	if err := d.Validate(); err != nil {
		return err
	}
	data, err := document.MarshalBSON(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.ID] = data
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return errors.New(errors.ErrCodeNotFound, "score %s not found", id)
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.docs))
	for _, data := range s.docs {
		d, err := document.UnmarshalBSON(data)
		if err != nil {
			return nil, err
		}
		out = append(out, Summarize(d))
	}
	return newestFirst(out, limit), nil
}

func (s *MemoryStore) Close() error { return nil }

// newestFirst sorts by UpdatedAt descending, ties by id, and truncates.
func newestFirst(out []Summary, limit int) []Summary {
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
