package fsstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brookdb/brookdb/pkg/objstore"
)

func TestUploadThenReadWholeObject(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "sst/7.data", []byte("hello world")))

	data, err := s.Read(ctx, "sst/7.data", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestReadRange(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Upload(ctx, "a", []byte("0123456789")))

	data, err := s.Read(ctx, "a", &objstore.Range{Offset: 3, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, "3456", string(data))
}

func TestReadMissingObject(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, objstore.ErrNotFound)
}

func TestUploadStream(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.UploadStream(ctx, "a", strings.NewReader("streamed")))

	data, err := s.Read(ctx, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(data))
}

func TestUploadOverwritesExistingObject(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "a", []byte("first")))
	require.NoError(t, s.Upload(ctx, "a", []byte("second, longer")))

	data, err := s.Read(ctx, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "second, longer", string(data))
}

func TestDeleteThenReadNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "a", []byte("x")))
	require.NoError(t, s.Delete(ctx, "a"))

	_, err = s.Read(ctx, "a", nil)
	assert.ErrorIs(t, err, objstore.ErrNotFound)
}

func TestDeleteNonexistentIsNotAnError(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, s.Delete(context.Background(), "never-existed"))
}

func TestUploadCreatesNestedDirectories(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "deep/nested/path/7.data", []byte("x")))

	data, err := s.Read(ctx, "deep/nested/path/7.data", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
