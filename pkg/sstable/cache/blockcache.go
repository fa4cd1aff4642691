package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/brookdb/brookdb/pkg/sstable"
	"github.com/brookdb/brookdb/pkg/sstmetrics"
)

// blockCacheType labels this cache's metrics.
const blockCacheType = "block"

// blockCounterMultiplier follows ristretto's own sizing guidance: size
// NumCounters at roughly 10x the number of items the cache is expected to
// hold, so the admission sketch has enough resolution to distinguish hot
// from cold keys.
const blockCounterMultiplier = 10

// averageBlockSizeHint is used only to convert a byte capacity into an
// expected item count for NumCounters; it does not constrain actual block
// sizes.
const averageBlockSizeHint = 4 << 20 // 4MB default block size

// BlockCache is a bounded, weight-evicted cache of decoded blocks keyed
// by (SstId, block index), with request coalescing so concurrent misses
// on the same key produce exactly one fetch.
type BlockCache struct {
	cache   *ristretto.Cache[string, *sstable.Block]
	group   singleflight.Group
	metrics sstmetrics.CacheMetrics
}

// NewBlockCache creates a BlockCache bounded at capacityBytes of total
// block weight. metrics may be sstmetrics.NoopCache.
func NewBlockCache(capacityBytes int64, metrics sstmetrics.CacheMetrics) (*BlockCache, error) {
	if metrics == nil {
		metrics = sstmetrics.NoopCache
	}

	expectedItems := capacityBytes / averageBlockSizeHint
	if expectedItems < 1 {
		expectedItems = 1
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, *sstable.Block]{
		NumCounters: expectedItems * blockCounterMultiplier,
		MaxCost:     capacityBytes,
		BufferItems: 64,
		Metrics:     true,
		OnEvict: func(item *ristretto.Item[*sstable.Block]) {
			metrics.RecordEviction(blockCacheType)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create block cache: %w", err)
	}

	return &BlockCache{cache: c, metrics: metrics}, nil
}

func blockKey(id sstable.SstId, blockIdx uint64) string {
	return id.String() + ":" + strconv.FormatUint(blockIdx, 10)
}

// Get is a non-blocking lookup; it never fetches.
func (c *BlockCache) Get(id sstable.SstId, blockIdx uint64) (*sstable.Block, bool) {
	return c.cache.Get(blockKey(id, blockIdx))
}

// Insert unconditionally installs block under (id, blockIdx) with the
// given weight, possibly triggering eviction of other entries.
func (c *BlockCache) Insert(id sstable.SstId, blockIdx uint64, block *sstable.Block, weight int64) {
	c.cache.Set(blockKey(id, blockIdx), block, weight)
	c.cache.Wait()
	c.metrics.RecordWeight(blockCacheType, int64(c.cache.Metrics.CostAdded()-c.cache.Metrics.CostEvicted()))
}

// Fetcher resolves a block's bytes-and-weight outside the cache, e.g. by
// issuing a ranged read against the object store.
type Fetcher func(ctx context.Context) (block *sstable.Block, weight int64, err error)

// GetOrInsertWith returns the cached block for (id, blockIdx) if present;
// otherwise it invokes fetch exactly once across all concurrent callers
// for that key, installs the result on success, and delivers the result
// (or the error) to every waiter. A failed fetch is not cached: the next
// caller retries.
//
// fetch runs detached from ctx's cancellation so that a canceled leader
// does not abort progress for other waiters subscribed to the same slot.
func (c *BlockCache) GetOrInsertWith(ctx context.Context, id sstable.SstId, blockIdx uint64, fetch Fetcher) (*sstable.Block, error) {
	if block, ok := c.Get(id, blockIdx); ok {
		c.metrics.ObserveHit(blockCacheType)
		return block, nil
	}
	c.metrics.ObserveMiss(blockCacheType)

	key := blockKey(id, blockIdx)
	detached := context.WithoutCancel(ctx)

	v, err, shared := c.group.Do(key, func() (any, error) {
		block, weight, err := fetch(detached)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, block, weight)
		c.cache.Wait()
		c.metrics.RecordWeight(blockCacheType, int64(c.cache.Metrics.CostAdded()-c.cache.Metrics.CostEvicted()))
		return block, nil
	})
	if shared {
		c.metrics.ObserveCoalesced(blockCacheType)
	}
	if err != nil {
		return nil, err
	}
	return v.(*sstable.Block), nil
}

// Close releases the cache's background resources.
func (c *BlockCache) Close() {
	c.cache.Close()
}
