// Package prometheus provides the Prometheus-backed implementation of
// sstmetrics.StoreMetrics and sstmetrics.CacheMetrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brookdb/brookdb/pkg/sstmetrics"
)

// storeMetrics is the Prometheus implementation of sstmetrics.StoreMetrics.
type storeMetrics struct {
	blockRequestCounts prometheus.Counter
	putRemoteDuration  prometheus.Histogram
	getRemoteDuration  prometheus.Histogram
}

// remoteDurationBuckets covers the range from a fast small-block read to
// a slow large-meta upload.
var remoteDurationBuckets = []float64{
	1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000,
}

// NewStoreMetrics registers and returns a Prometheus-backed StoreMetrics
// against reg.
func NewStoreMetrics(reg prometheus.Registerer) sstmetrics.StoreMetrics {
	return &storeMetrics{
		blockRequestCounts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sst_store_block_request_counts",
			Help: "Total number of block get requests made to the SSTable store, regardless of cache outcome.",
		}),
		putRemoteDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "sst_store_put_remote_duration",
			Help:    "Duration in milliseconds of the remote data+meta upload window in Put.",
			Buckets: remoteDurationBuckets,
		}),
		getRemoteDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "sst_store_get_remote_duration",
			Help:    "Duration in milliseconds of a remote block fetch in Get.",
			Buckets: remoteDurationBuckets,
		}),
	}
}

func (m *storeMetrics) IncBlockRequests() {
	m.blockRequestCounts.Inc()
}

func (m *storeMetrics) ObservePutRemoteDuration(d time.Duration) {
	m.putRemoteDuration.Observe(float64(d.Milliseconds()))
}

func (m *storeMetrics) ObserveGetRemoteDuration(d time.Duration) {
	m.getRemoteDuration.Observe(float64(d.Milliseconds()))
}

// cacheMetrics is the Prometheus implementation of sstmetrics.CacheMetrics.
type cacheMetrics struct {
	hits       *prometheus.CounterVec
	misses     *prometheus.CounterVec
	coalesced  *prometheus.CounterVec
	weight     *prometheus.GaugeVec
	evictions  *prometheus.CounterVec
}

// NewCacheMetrics registers and returns a Prometheus-backed CacheMetrics
// against reg. cacheType is applied as a label ("block" or "meta").
func NewCacheMetrics(reg prometheus.Registerer) sstmetrics.CacheMetrics {
	return &cacheMetrics{
		hits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sst_cache_hits_total",
			Help: "Total cache hits by cache type.",
		}, []string{"cache_type"}),
		misses: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sst_cache_misses_total",
			Help: "Total cache misses by cache type.",
		}, []string{"cache_type"}),
		coalesced: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sst_cache_coalesced_total",
			Help: "Total fetches that joined an in-flight coalesced load instead of starting a new one.",
		}, []string{"cache_type"}),
		weight: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "sst_cache_weight_bytes",
			Help: "Approximate current cache weight in bytes by cache type.",
		}, []string{"cache_type"}),
		evictions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sst_cache_evictions_total",
			Help: "Total cache evictions by cache type.",
		}, []string{"cache_type"}),
	}
}

func (m *cacheMetrics) ObserveHit(cacheType string) {
	m.hits.WithLabelValues(cacheType).Inc()
}

func (m *cacheMetrics) ObserveMiss(cacheType string) {
	m.misses.WithLabelValues(cacheType).Inc()
}

func (m *cacheMetrics) ObserveCoalesced(cacheType string) {
	m.coalesced.WithLabelValues(cacheType).Inc()
}

func (m *cacheMetrics) RecordWeight(cacheType string, bytes int64) {
	m.weight.WithLabelValues(cacheType).Set(float64(bytes))
}

func (m *cacheMetrics) RecordEviction(cacheType string) {
	m.evictions.WithLabelValues(cacheType).Inc()
}
