package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used by the SSTable storage layer's spans.
const (
	AttrSstID        = "sstable.id"
	AttrBlockIdx     = "sstable.block_idx"
	AttrPolicy       = "sstable.cache_policy"
	AttrOperation    = "sstable.operation"
	AttrCacheHit     = "cache.hit"
	AttrCacheSource  = "cache.source"
	AttrStoreName    = "store.name"
	AttrStoreType    = "store.type"
	AttrBucket       = "storage.bucket"
	AttrKey          = "storage.key"
	AttrRegion       = "storage.region"
	AttrBytesRead    = "storage.bytes_read"
	AttrBytesWritten = "storage.bytes_written"
)

// SstID returns an attribute for the SSTable id involved in a span.
func SstID(id string) attribute.KeyValue {
	return attribute.String(AttrSstID, id)
}

// BlockIdx returns an attribute for the block index involved in a span.
func BlockIdx(idx uint64) attribute.KeyValue {
	return attribute.Int64(AttrBlockIdx, int64(idx))
}

// CachePolicy returns an attribute describing which cache policy governed
// an operation.
func CachePolicy(policy string) attribute.KeyValue {
	return attribute.String(AttrPolicy, policy)
}

// CacheHit returns an attribute for cache hit indicator.
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheSource returns an attribute for which cache layer served a hit.
func CacheSource(source string) attribute.KeyValue {
	return attribute.String(AttrCacheSource, source)
}

// StoreName returns an attribute for the object store backend's name.
func StoreName(name string) attribute.KeyValue {
	return attribute.String(AttrStoreName, name)
}

// StoreType returns an attribute for the object store backend's type
// (e.g. "s3", "fsstore", "memstore").
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Bucket returns an attribute for an S3 bucket name.
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for an object store key.
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for a cloud region.
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// BytesRead returns an attribute for the number of bytes read.
func BytesRead(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesRead, n)
}

// BytesWritten returns an attribute for the number of bytes written.
func BytesWritten(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesWritten, n)
}

// StartStorageSpan starts a span for an SSTable store operation
// (put/get/sstable/delete), tagging it with the SSTable id involved.
func StartStorageSpan(ctx context.Context, operation string, sstID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		SstID(sstID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "sstable."+operation, trace.WithAttributes(allAttrs...))
}

// StartCacheSpan starts a span for a cache operation (insert/evict).
func StartCacheSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "cache."+operation, trace.WithAttributes(attrs...))
}
