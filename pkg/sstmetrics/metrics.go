// Package sstmetrics defines the metrics surface the SSTable storage layer
// reports to. The Prometheus implementation lives in sstmetrics/prometheus
// and is wired in by the caller, so a single pair of interfaces here is
// enough; there's no import cycle to route around.
package sstmetrics

import "time"

// StoreMetrics is the metrics surface named explicitly in the storage
// layer's external interface: a counter of block requests and two
// histograms timing remote put/get I/O.
type StoreMetrics interface {
	// IncBlockRequests increments sst_store_block_request_counts. Called
	// exactly once per Get call, regardless of cache outcome.
	IncBlockRequests()

	// ObservePutRemoteDuration records sst_store_put_remote_duration for
	// one Put call's data+meta upload window.
	ObservePutRemoteDuration(d time.Duration)

	// ObserveGetRemoteDuration records sst_store_get_remote_duration for
	// one remote block fetch.
	ObserveGetRemoteDuration(d time.Duration)
}

// CacheMetrics is ambient observability for the block and meta caches,
// beyond what spec.md's external-interfaces section names explicitly.
// cacheType distinguishes "block" from "meta".
type CacheMetrics interface {
	ObserveHit(cacheType string)
	ObserveMiss(cacheType string)
	ObserveCoalesced(cacheType string)
	RecordWeight(cacheType string, bytes int64)
	RecordEviction(cacheType string)
}

// noopStoreMetrics backs NoopStore, which store.New substitutes when it is
// given nil metrics, so that callers never need a nil check.
type noopStoreMetrics struct{}

func (noopStoreMetrics) IncBlockRequests()                    {}
func (noopStoreMetrics) ObservePutRemoteDuration(time.Duration) {}
func (noopStoreMetrics) ObserveGetRemoteDuration(time.Duration) {}

// NoopStore is a StoreMetrics that discards every observation.
var NoopStore StoreMetrics = noopStoreMetrics{}

type noopCacheMetrics struct{}

func (noopCacheMetrics) ObserveHit(string)         {}
func (noopCacheMetrics) ObserveMiss(string)         {}
func (noopCacheMetrics) ObserveCoalesced(string)    {}
func (noopCacheMetrics) RecordWeight(string, int64) {}
func (noopCacheMetrics) RecordEviction(string)      {}

// NoopCache is a CacheMetrics that discards every observation.
var NoopCache CacheMetrics = noopCacheMetrics{}
