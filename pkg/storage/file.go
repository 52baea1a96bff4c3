package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/errors"
)

// FileStore keeps one <id>.bson file per document.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create store dir %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) (string, error) {
	if err := errors.ValidateScoreID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id+".bson"), nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*document.Document, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeNotFound, "score %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read score %s", id)
	}
	return document.UnmarshalBSON(data)
}

func (s *FileStore) Put(ctx context.Context, d *document.Document) error {
	if err := d.Validate(); err != nil {
		return err
	}
	path, _ := s.path(d.ID)
	data, err := document.MarshalBSON(d)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write score %s", d.ID)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write score %s", d.ID)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(path)
	if os.IsNotExist(err) {
		return errors.New(errors.ErrCodeNotFound, "score %s not found", id)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "remove score %s", id)
	}
	return nil
}

// List reads every document file; files that fail to decode are skipped.
func (s *FileStore) List(ctx context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read store dir")
	}
	var out []Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".bson") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		d, err := document.UnmarshalBSON(data)
		if err != nil {
			continue
		}
		out = append(out, Summarize(d))
	}
	return newestFirst(out, limit), nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
