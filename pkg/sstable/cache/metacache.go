package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/brookdb/brookdb/pkg/sstable"
	"github.com/brookdb/brookdb/pkg/sstmetrics"
)

// metaCacheType labels this cache's metrics.
const metaCacheType = "meta"

// initialMetaSlots mirrors the "1024 slots" initial sizing called out for
// the meta cache; ristretto's admission sketch wants NumCounters sized by
// expected cardinality rather than a literal hash-table bucket count, so
// this becomes the seed for NumCounters below.
const initialMetaSlots = 1024

// MetaCache is a bounded, weight-evicted cache of decoded SSTable values
// keyed by SstId, with the same coalescing semantics as BlockCache.
type MetaCache struct {
	cache   *ristretto.Cache[uint64, *sstable.Sstable]
	group   singleflight.Group
	metrics sstmetrics.CacheMetrics
}

// NewMetaCache creates a MetaCache bounded at capacityBytes of total
// encoded-meta weight. metrics may be sstmetrics.NoopCache.
func NewMetaCache(capacityBytes int64, metrics sstmetrics.CacheMetrics) (*MetaCache, error) {
	if metrics == nil {
		metrics = sstmetrics.NoopCache
	}

	c, err := ristretto.NewCache(&ristretto.Config[uint64, *sstable.Sstable]{
		NumCounters: initialMetaSlots * blockCounterMultiplier,
		MaxCost:     capacityBytes,
		BufferItems: 64,
		Metrics:     true,
		OnEvict: func(item *ristretto.Item[*sstable.Sstable]) {
			metrics.RecordEviction(metaCacheType)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create meta cache: %w", err)
	}

	return &MetaCache{cache: c, metrics: metrics}, nil
}

// MetaFetcher resolves an Sstable's meta from the object store.
type MetaFetcher func(ctx context.Context) (*sstable.Sstable, error)

// TryGetWith is the only lookup path callers use: return the cached
// Sstable for id if present, otherwise invoke fetch exactly once across
// all concurrent callers for id, install the result on success, and
// deliver the result or error to every waiter.
func (c *MetaCache) TryGetWith(ctx context.Context, id sstable.SstId, fetch MetaFetcher) (*sstable.Sstable, error) {
	key := uint64(id)

	if sst, ok := c.cache.Get(key); ok {
		c.metrics.ObserveHit(metaCacheType)
		return sst, nil
	}
	c.metrics.ObserveMiss(metaCacheType)

	detached := context.WithoutCancel(ctx)

	v, err, shared := c.group.Do(id.String(), func() (any, error) {
		sst, err := fetch(detached)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, sst, int64(sst.Meta.EncodedSize()))
		c.cache.Wait()
		c.metrics.RecordWeight(metaCacheType, int64(c.cache.Metrics.CostAdded()-c.cache.Metrics.CostEvicted()))
		return sst, nil
	})
	if shared {
		c.metrics.ObserveCoalesced(metaCacheType)
	}
	if err != nil {
		return nil, err
	}
	return v.(*sstable.Sstable), nil
}

// Close releases the cache's background resources.
func (c *MetaCache) Close() {
	c.cache.Close()
}
