package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brookdb/brookdb/pkg/objstore"
	"github.com/brookdb/brookdb/pkg/objstore/memstore"
	"github.com/brookdb/brookdb/pkg/sstable"
	"github.com/brookdb/brookdb/pkg/sstable/cache"
	"github.com/brookdb/brookdb/pkg/sstmetrics"
)

// fakeStoreMetrics records call counts in place of sstmetrics.NoopStore so
// tests can assert on the external metrics contract directly.
type fakeStoreMetrics struct {
	blockRequests   int64
	putObservations int64
	getObservations int64
}

func (f *fakeStoreMetrics) IncBlockRequests() {
	atomic.AddInt64(&f.blockRequests, 1)
}

func (f *fakeStoreMetrics) ObservePutRemoteDuration(time.Duration) {
	atomic.AddInt64(&f.putObservations, 1)
}

func (f *fakeStoreMetrics) ObserveGetRemoteDuration(time.Duration) {
	atomic.AddInt64(&f.getObservations, 1)
}

var _ sstmetrics.StoreMetrics = (*fakeStoreMetrics)(nil)

// ============================================================================
// Test Helpers
// ============================================================================

// twoBlockFixture builds an Sstable with two blocks (labelled "A" and "B")
// and the data bytes that back it, using the block codec's own wire
// format so fetchBlock's decode succeeds -- the literal scenario
// descriptions this mirrors only constrain the block *payload*, not
// byte-for-byte raw content.
func twoBlockFixture(id sstable.SstId) (*sstable.Sstable, []byte) {
	blockA := sstable.EncodeBlock([]sstable.KV{{Key: []byte("a"), Value: []byte("AAAAAAAAAAAA")}})
	blockB := sstable.EncodeBlock([]sstable.KV{{Key: []byte("b"), Value: []byte("BBBBBBBBBBBB")}})

	data := append(append([]byte{}, blockA...), blockB...)

	meta := sstable.SstableMeta{
		BlockMetas: []sstable.BlockMeta{
			{Offset: 0, Len: uint32(len(blockA))},
			{Offset: uint64(len(blockA)), Len: uint32(len(blockB))},
		},
		FirstKey:      []byte("a"),
		LastKey:       []byte("b"),
		EstimatedSize: uint64(len(data)),
	}

	return &sstable.Sstable{ID: id, Meta: meta}, data
}

func newTestStore(t *testing.T, objects objstore.Store) *Store {
	t.Helper()
	s, err := New(objects, Config{
		PathPrefix:      "sst",
		BlockCacheBytes: 1 << 20,
		MetaCacheBytes:  1 << 20,
	}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func newTestStoreWithMetrics(t *testing.T, objects objstore.Store, metrics sstmetrics.StoreMetrics) *Store {
	t.Helper()
	s, err := New(objects, Config{
		PathPrefix:      "sst",
		BlockCacheBytes: 1 << 20,
		MetaCacheBytes:  1 << 20,
	}, metrics, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

type countingReader struct {
	*memstore.Store
	reads int64
}

func newCountingReader() *countingReader {
	return &countingReader{Store: memstore.New()}
}

func (c *countingReader) Read(ctx context.Context, path string, rng *objstore.Range) ([]byte, error) {
	atomic.AddInt64(&c.reads, 1)
	return c.Store.Read(ctx, path, rng)
}

// ============================================================================
// S1: Put then get (Fill)
// ============================================================================

func TestPutThenGetFill(t *testing.T) {
	objects := newCountingReader()
	s := newTestStore(t, objects)
	ctx := context.Background()

	sst, data := twoBlockFixture(7)

	_, err := s.Put(ctx, sst, data, cache.Fill)
	require.NoError(t, err)

	before := atomic.LoadInt64(&objects.reads)

	blockA, err := s.Get(ctx, sst, 0, cache.NotFill)
	require.NoError(t, err)
	require.Equal(t, 1, blockA.Len())
	assert.Equal(t, []byte("AAAAAAAAAAAA"), blockA.Pairs()[0].Value)

	blockB, err := s.Get(ctx, sst, 1, cache.NotFill)
	require.NoError(t, err)
	require.Equal(t, 1, blockB.Len())
	assert.Equal(t, []byte("BBBBBBBBBBBB"), blockB.Pairs()[0].Value)

	assert.Equal(t, before, atomic.LoadInt64(&objects.reads), "Fill-seeded blocks must serve NotFill gets without another read")
}

// ============================================================================
// S2: Put then get (Disable)
// ============================================================================

func TestPutThenGetDisable(t *testing.T) {
	objects := newCountingReader()
	s := newTestStore(t, objects)
	ctx := context.Background()

	sst, data := twoBlockFixture(7)

	_, err := s.Put(ctx, sst, data, cache.NotFill)
	require.NoError(t, err)

	before := atomic.LoadInt64(&objects.reads)

	block, err := s.Get(ctx, sst, 0, cache.Disable)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAAAAAAAAAA"), block.Pairs()[0].Value)
	assert.Equal(t, before+1, atomic.LoadInt64(&objects.reads))

	_, err = s.Get(ctx, sst, 0, cache.Disable)
	require.NoError(t, err)
	assert.Equal(t, before+2, atomic.LoadInt64(&objects.reads), "Disable must issue a fresh read every call")
}

// ============================================================================
// S3: Meta upload failure rolls back
// ============================================================================

type failingMetaStore struct {
	*memstore.Store
	deletes int64
}

func (f *failingMetaStore) Upload(ctx context.Context, path string, data []byte) error {
	if len(path) > 5 && path[len(path)-5:] == ".meta" {
		return errors.New("simulated meta upload failure")
	}
	return f.Store.Upload(ctx, path, data)
}

func (f *failingMetaStore) Delete(ctx context.Context, path string) error {
	atomic.AddInt64(&f.deletes, 1)
	return f.Store.Delete(ctx, path)
}

func TestPutMetaUploadFailureRollsBack(t *testing.T) {
	objects := &failingMetaStore{Store: memstore.New()}
	s := newTestStore(t, objects)
	ctx := context.Background()

	sst, data := twoBlockFixture(7)

	_, err := s.Put(ctx, sst, data, cache.Disable)
	require.Error(t, err)
	assert.ErrorIs(t, err, sstable.ErrObjectIo)
	assert.Equal(t, int64(1), atomic.LoadInt64(&objects.deletes))
	assert.False(t, objects.Store.Has(s.SstDataPath(sst.ID)), "data object must not survive a failed meta upload")
}

// failingMetaAndDeleteStore fails both the meta upload and the rollback
// delete it triggers, so Put must surface the delete's error rather than
// the meta upload's -- the orphaned data object is a worse failure mode
// than losing the original upload error.
type failingMetaAndDeleteStore struct {
	*memstore.Store
}

func (f *failingMetaAndDeleteStore) Upload(ctx context.Context, path string, data []byte) error {
	if len(path) > 5 && path[len(path)-5:] == ".meta" {
		return errors.New("simulated meta upload failure")
	}
	return f.Store.Upload(ctx, path, data)
}

func (f *failingMetaAndDeleteStore) Delete(context.Context, string) error {
	return errors.New("simulated rollback delete failure")
}

func TestPutRollbackDeleteFailureTakesPrecedence(t *testing.T) {
	objects := &failingMetaAndDeleteStore{Store: memstore.New()}
	s := newTestStore(t, objects)
	ctx := context.Background()

	sst, data := twoBlockFixture(7)

	_, err := s.Put(ctx, sst, data, cache.Disable)
	require.Error(t, err)
	assert.ErrorIs(t, err, sstable.ErrObjectIo)
	assert.Contains(t, err.Error(), "rollback delete")
	assert.Contains(t, err.Error(), "simulated rollback delete failure")
}

// ============================================================================
// S4: Coalescing
// ============================================================================

type slowStore struct {
	*memstore.Store
	reads int64
	delay time.Duration
}

func (s *slowStore) Read(ctx context.Context, path string, rng *objstore.Range) ([]byte, error) {
	atomic.AddInt64(&s.reads, 1)
	time.Sleep(s.delay)
	return s.Store.Read(ctx, path, rng)
}

func TestGetFillCoalescesConcurrentMisses(t *testing.T) {
	objects := &slowStore{Store: memstore.New(), delay: 50 * time.Millisecond}
	s := newTestStore(t, objects)
	ctx := context.Background()

	sst, data := twoBlockFixture(7)
	require.NoError(t, objects.Store.Upload(ctx, s.SstDataPath(sst.ID), data))
	require.NoError(t, objects.Store.Upload(ctx, s.SstMetaPath(sst.ID), sst.Meta.Encode()))

	const n = 64
	var wg sync.WaitGroup
	blocks := make([]*sstable.Block, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			blocks[i], errs[i] = s.Get(ctx, sst, 1, cache.Fill)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, 1, blocks[i].Len())
		assert.Equal(t, []byte("BBBBBBBBBBBB"), blocks[i].Pairs()[0].Value)
	}

	assert.Equal(t, int64(1), atomic.LoadInt64(&objects.reads), "64 concurrent Fill gets on an empty cache must issue exactly one read")
}

// ============================================================================
// S5: Out-of-range block
// ============================================================================

func TestGetOutOfRangeBlock(t *testing.T) {
	objects := newCountingReader()
	s := newTestStore(t, objects)
	ctx := context.Background()

	sst, data := twoBlockFixture(7)
	_, err := s.Put(ctx, sst, data, cache.Disable)
	require.NoError(t, err)

	before := atomic.LoadInt64(&objects.reads)

	_, err = s.Get(ctx, sst, 99, cache.Fill)
	require.Error(t, err)
	assert.ErrorIs(t, err, sstable.ErrInvalidBlock)
	assert.Equal(t, before, atomic.LoadInt64(&objects.reads), "an out-of-range index must not issue a read")

	_, ok := s.blockCache.Get(sst.ID, 99)
	assert.False(t, ok)
}

// ============================================================================
// S6: Meta cache weight
// ============================================================================

func TestMetaCacheWeightEviction(t *testing.T) {
	objects := newCountingReader()
	s, err := New(objects, Config{
		PathPrefix:      "sst",
		BlockCacheBytes: 1 << 20,
		MetaCacheBytes:  256,
	}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	ctx := context.Background()

	ids := []sstable.SstId{1, 2, 3, 4, 5, 6, 7, 8}
	for _, id := range ids {
		sst, data := twoBlockFixture(id)
		_, err := s.Put(ctx, sst, data, cache.Disable)
		require.NoError(t, err)
		_, err = s.Sstable(ctx, id)
		require.NoError(t, err)
	}

	var evicted []sstable.SstId
	for _, id := range ids {
		if _, err := s.metaCache.TryGetWith(ctx, id, func(context.Context) (*sstable.Sstable, error) {
			return nil, errNotResident
		}); err != nil {
			evicted = append(evicted, id)
		}
	}
	require.NotEmpty(t, evicted, "meta cache must have evicted at least one entry under a tight capacity")

	before := atomic.LoadInt64(&objects.reads)
	_, err = s.Sstable(ctx, evicted[0])
	require.NoError(t, err)
	assert.Equal(t, before+1, atomic.LoadInt64(&objects.reads), "a refetch of an evicted id must issue exactly one read")
}

var errNotResident = errors.New("not resident: forced fetch to detect eviction")

// ============================================================================
// Invariant 7: counter monotonicity
// ============================================================================

func TestCounterIncrementsRegardlessOfPolicy(t *testing.T) {
	objects := newCountingReader()
	metrics := &fakeStoreMetrics{}
	s := newTestStoreWithMetrics(t, objects, metrics)
	ctx := context.Background()

	sst, data := twoBlockFixture(7)
	_, err := s.Put(ctx, sst, data, cache.Fill)
	require.NoError(t, err)

	for i, policy := range []cache.Policy{cache.Disable, cache.Fill, cache.NotFill} {
		_, err := s.Get(ctx, sst, 0, policy)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), atomic.LoadInt64(&metrics.blockRequests),
			"block request counter must increase by exactly one per Get call regardless of cache policy")
	}
}

// ============================================================================
// Path discipline (invariant 2)
// ============================================================================

func TestPathsDependOnlyOnPrefixAndID(t *testing.T) {
	objects := memstore.New()
	s := newTestStore(t, objects)

	assert.Equal(t, "sst/7.data", s.SstDataPath(7))
	assert.Equal(t, "sst/7.meta", s.SstMetaPath(7))
	assert.NotEqual(t, s.SstDataPath(7), s.SstMetaPath(7))
	assert.NotEqual(t, s.SstDataPath(7), s.SstDataPath(8))
}
