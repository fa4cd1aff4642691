// Package store provides the SSTable store facade: the component tying
// the object store, the block cache, and the meta cache together behind
// a single put/get/delete/sstable surface.
package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/brookdb/brookdb/internal/logger"
	"github.com/brookdb/brookdb/internal/telemetry"
	"github.com/brookdb/brookdb/pkg/objstore"
	"github.com/brookdb/brookdb/pkg/sstable"
	"github.com/brookdb/brookdb/pkg/sstable/cache"
	"github.com/brookdb/brookdb/pkg/sstmetrics"
)

// Store is the SSTable storage layer facade. It is safe for concurrent
// use; all suspension happens during object-store I/O or cache
// coalescing waits, never while holding an internal lock.
type Store struct {
	objects    objstore.Store
	prefix     string
	blockCache *cache.BlockCache
	metaCache  *cache.MetaCache
	metrics    sstmetrics.StoreMetrics
}

// Config configures a Store's two cache capacities and path prefix.
type Config struct {
	PathPrefix      string
	BlockCacheBytes int64
	MetaCacheBytes  int64
}

// New constructs the facade: allocates both caches and retains a shared
// reference to the object store and metrics sink. metrics may be
// sstmetrics.NoopStore to disable reporting; cacheMetrics may be
// sstmetrics.NoopCache.
func New(objects objstore.Store, cfg Config, metrics sstmetrics.StoreMetrics, cacheMetrics sstmetrics.CacheMetrics) (*Store, error) {
	if metrics == nil {
		metrics = sstmetrics.NoopStore
	}
	if cacheMetrics == nil {
		cacheMetrics = sstmetrics.NoopCache
	}

	blockCache, err := cache.NewBlockCache(cfg.BlockCacheBytes, cacheMetrics)
	if err != nil {
		return nil, fmt.Errorf("new block cache: %w", err)
	}

	metaCache, err := cache.NewMetaCache(cfg.MetaCacheBytes, cacheMetrics)
	if err != nil {
		return nil, fmt.Errorf("new meta cache: %w", err)
	}

	return &Store{
		objects:    objects,
		prefix:     cfg.PathPrefix,
		blockCache: blockCache,
		metaCache:  metaCache,
		metrics:    metrics,
	}, nil
}

// SstMetaPath returns the deterministic object key for an SSTable's meta
// object: {prefix}/{id}.meta. This and SstDataPath are the only object
// keys the layer touches.
func (s *Store) SstMetaPath(id sstable.SstId) string {
	return fmt.Sprintf("%s/%s.meta", s.prefix, id)
}

// SstDataPath returns the deterministic object key for an SSTable's data
// object: {prefix}/{id}.data.
func (s *Store) SstDataPath(id sstable.SstId) string {
	return fmt.Sprintf("%s/%s.data", s.prefix, id)
}

// Put uploads dataBytes and sst's encoded meta, in that order, and
// optionally seeds the block cache. Ordering matters: a meta hit in the
// object store implies the data object is fetchable (invariant 1).
func (s *Store) Put(ctx context.Context, sst *sstable.Sstable, dataBytes []byte, policy cache.Policy) (int, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "put", sst.ID.String(), telemetry.CachePolicy(policy.String()))
	defer span.End()

	start := time.Now()

	dataPath := s.SstDataPath(sst.ID)
	if err := s.objects.Upload(ctx, dataPath, dataBytes); err != nil {
		telemetry.RecordError(ctx, err)
		return 0, fmt.Errorf("%w: upload data %s: %v", sstable.ErrObjectIo, dataPath, err)
	}

	metaPath := s.SstMetaPath(sst.ID)
	metaBytes := sst.Meta.Encode()
	if err := s.objects.Upload(ctx, metaPath, metaBytes); err != nil {
		if delErr := s.objects.Delete(ctx, dataPath); delErr != nil {
			logger.WarnCtx(ctx, "sstable store: rollback delete of orphaned data object failed",
				"sst_id", sst.ID.String(), "path", dataPath, "error", delErr, "meta_error", err)
			telemetry.RecordError(ctx, delErr)
			return 0, fmt.Errorf("%w: rollback delete data %s after failed meta upload: %v", sstable.ErrObjectIo, dataPath, delErr)
		}
		telemetry.RecordError(ctx, err)
		return 0, fmt.Errorf("%w: upload meta %s: %v", sstable.ErrObjectIo, metaPath, err)
	}

	s.metrics.ObservePutRemoteDuration(time.Since(start))

	if policy == cache.Fill {
		for idx, bm := range sst.Meta.BlockMetas {
			end := bm.Offset + uint64(bm.Len)
			if end > uint64(len(dataBytes)) {
				panic(fmt.Sprintf("sstable store: put Fill policy: block %d range [%d,%d) exceeds data length %d for sst %s",
					idx, bm.Offset, end, len(dataBytes), sst.ID))
			}

			block, err := sstable.DecodeBlock(dataBytes[bm.Offset:end])
			if err != nil {
				panic(fmt.Sprintf("sstable store: put Fill policy: block %d failed to decode after successful upload for sst %s: %v",
					idx, sst.ID, err))
			}

			s.blockCache.Insert(sst.ID, uint64(idx), block, int64(bm.Len))
		}
	}

	return len(dataBytes), nil
}

// PutStream is the streaming upload variant of Put: it does not seed the
// block cache.
func (s *Store) PutStream(ctx context.Context, sst *sstable.Sstable, data io.Reader) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "put_stream", sst.ID.String())
	defer span.End()

	start := time.Now()

	dataPath := s.SstDataPath(sst.ID)
	if err := s.objects.UploadStream(ctx, dataPath, data); err != nil {
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("%w: upload data stream %s: %v", sstable.ErrObjectIo, dataPath, err)
	}

	metaPath := s.SstMetaPath(sst.ID)
	if err := s.objects.Upload(ctx, metaPath, sst.Meta.Encode()); err != nil {
		if delErr := s.objects.Delete(ctx, dataPath); delErr != nil {
			logger.WarnCtx(ctx, "sstable store: rollback delete of orphaned data object failed",
				"sst_id", sst.ID.String(), "path", dataPath, "error", delErr, "meta_error", err)
			telemetry.RecordError(ctx, delErr)
			return fmt.Errorf("%w: rollback delete data %s after failed meta upload: %v", sstable.ErrObjectIo, dataPath, delErr)
		}
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("%w: upload meta %s: %v", sstable.ErrObjectIo, metaPath, err)
	}

	s.metrics.ObservePutRemoteDuration(time.Since(start))
	return nil
}

// DeleteData removes the data object for id. It does not touch the meta
// object or either cache; the caller drives retention policy.
func (s *Store) DeleteData(ctx context.Context, id sstable.SstId) error {
	ctx, span := telemetry.StartStorageSpan(ctx, "delete_data", id.String())
	defer span.End()

	dataPath := s.SstDataPath(id)
	if err := s.objects.Delete(ctx, dataPath); err != nil {
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("%w: delete data %s: %v", sstable.ErrObjectIo, dataPath, err)
	}
	return nil
}

// Get returns the decoded block at blockIdx for sst, honoring policy.
// Increments the block-request counter exactly once regardless of cache
// outcome.
func (s *Store) Get(ctx context.Context, sst *sstable.Sstable, blockIdx uint64, policy cache.Policy) (*sstable.Block, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "get", sst.ID.String(),
		telemetry.BlockIdx(blockIdx), telemetry.CachePolicy(policy.String()))
	defer span.End()

	s.metrics.IncBlockRequests()

	if blockIdx >= uint64(len(sst.Meta.BlockMetas)) {
		return nil, fmt.Errorf("%w: block index %d out of range (have %d blocks)", sstable.ErrInvalidBlock, blockIdx, len(sst.Meta.BlockMetas))
	}
	bm := sst.Meta.BlockMetas[blockIdx]

	fetch := func(fetchCtx context.Context) (*sstable.Block, int64, error) {
		block, err := s.fetchBlock(fetchCtx, sst.ID, bm)
		if err != nil {
			return nil, 0, err
		}
		return block, int64(bm.Len), nil
	}

	switch policy {
	case cache.Disable:
		block, _, err := fetch(ctx)
		if err != nil {
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		return block, nil

	case cache.Fill:
		block, err := s.blockCache.GetOrInsertWith(ctx, sst.ID, blockIdx, fetch)
		if err != nil {
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		return block, nil

	case cache.NotFill:
		if block, ok := s.blockCache.Get(sst.ID, blockIdx); ok {
			return block, nil
		}
		block, _, err := fetch(ctx)
		if err != nil {
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		return block, nil

	default:
		return nil, fmt.Errorf("%w: unknown cache policy %v", sstable.ErrOther, policy)
	}
}

func (s *Store) fetchBlock(ctx context.Context, id sstable.SstId, bm sstable.BlockMeta) (*sstable.Block, error) {
	start := time.Now()

	raw, err := s.objects.Read(ctx, s.SstDataPath(id), &objstore.Range{
		Offset: int64(bm.Offset),
		Size:   int64(bm.Len),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read block at offset %d len %d: %v", sstable.ErrObjectIo, bm.Offset, bm.Len, err)
	}

	s.metrics.ObserveGetRemoteDuration(time.Since(start))

	block, err := sstable.DecodeBlock(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sstable.ErrInvalidBlock, err)
	}
	return block, nil
}

// Sstable returns the Sstable value for id from the meta cache,
// coalescing concurrent misses. The fetch path issues a full read of
// {prefix}/{id}.meta and decodes it.
func (s *Store) Sstable(ctx context.Context, id sstable.SstId) (*sstable.Sstable, error) {
	ctx, span := telemetry.StartStorageSpan(ctx, "sstable", id.String())
	defer span.End()

	sst, err := s.metaCache.TryGetWith(ctx, id, func(fetchCtx context.Context) (*sstable.Sstable, error) {
		raw, err := s.objects.Read(fetchCtx, s.SstMetaPath(id), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: read meta %s: %v", sstable.ErrObjectIo, s.SstMetaPath(id), err)
		}

		meta, err := sstable.DecodeSstableMeta(raw)
		if err != nil {
			return nil, err
		}

		return &sstable.Sstable{ID: id, Meta: meta}, nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return sst, nil
}

// Close releases the store's cache resources.
func (s *Store) Close() {
	s.blockCache.Close()
	s.metaCache.Close()
}
