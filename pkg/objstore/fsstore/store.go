// Package fsstore provides a local-filesystem objstore.Store implementation,
// useful for sstablectl and integration tests that want a durable backend
// without standing up S3-compatible infrastructure.
package fsstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/brookdb/brookdb/pkg/objstore"
)

// Store maps object paths onto files rooted at a base directory.
type Store struct {
	root string
}

// New creates a Store rooted at root. The directory is created if absent.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object store root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	return filepath.Join(s.root, clean), nil
}

// Read returns the requested byte range, or the whole file if rng is nil.
func (s *Store) Read(ctx context.Context, path string, rng *objstore.Range) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, objstore.ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	if rng == nil {
		return io.ReadAll(f)
	}

	buf := make([]byte, rng.Size)
	n, err := f.ReadAt(buf, rng.Offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// Upload writes data as the complete contents of path.
func (s *Store) Upload(ctx context.Context, path string, data []byte) error {
	return s.UploadStream(ctx, path, bytes.NewReader(data))
}

// UploadStream streams r into path, replacing any existing contents.
func (s *Store) UploadStream(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	tmp := full + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, full)
}

// Delete removes path. Deleting a non-existent object is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

var _ objstore.Store = (*Store)(nil)
