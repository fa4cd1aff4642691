// Package memstore provides an in-memory objstore.Store implementation for
// tests and local experimentation.
package memstore

import (
	"context"
	"io"
	"sync"

	"github.com/brookdb/brookdb/pkg/objstore"
)

// Store is an in-memory implementation of objstore.Store.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	closed  bool

	// Hooks let tests observe call counts and inject latency/failures
	// without a network-backed fake. Nil hooks are no-ops.
	OnRead   func(path string, rng *objstore.Range)
	OnUpload func(path string)
	OnDelete func(path string)
}

// New creates a new empty in-memory object store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

// Read returns the requested byte range, or the whole object if rng is nil.
func (s *Store) Read(ctx context.Context, path string, rng *objstore.Range) ([]byte, error) {
	if s.OnRead != nil {
		s.OnRead(path, rng)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, objstore.ErrClosed
	}

	data, ok := s.objects[path]
	if !ok {
		return nil, objstore.ErrNotFound
	}

	if rng == nil {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	end := rng.Offset + rng.Size
	if rng.Offset < 0 || end > int64(len(data)) || rng.Size < 0 {
		return nil, objstore.ErrNotFound
	}

	out := make([]byte, rng.Size)
	copy(out, data[rng.Offset:end])
	return out, nil
}

// Upload writes data as the complete contents of path.
func (s *Store) Upload(ctx context.Context, path string, data []byte) error {
	if s.OnUpload != nil {
		s.OnUpload(path)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objstore.ErrClosed
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[path] = copied
	return nil
}

// UploadStream drains r and stores it as the complete contents of path.
func (s *Store) UploadStream(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.Upload(ctx, path, data)
}

// Delete removes path. Deleting a non-existent object is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if s.OnDelete != nil {
		s.OnDelete(path)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return objstore.ErrClosed
	}

	delete(s.objects, path)
	return nil
}

// Close marks the store as closed. Safe to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Has reports whether path currently exists (test helper).
func (s *Store) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok
}

var _ objstore.Store = (*Store)(nil)
