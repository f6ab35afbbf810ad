package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks pages served from cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prerender_cache_hits_total",
			Help: "Total number of pages served from the prerender cache",
		},
	)

	// CacheMisses tracks lookups that fell through to rendering
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prerender_cache_misses_total",
			Help: "Total number of prerender cache misses by reason",
		},
		[]string{"reason"}, // "not_found", "expired", "error"
	)

	// CacheWrites tracks page writes by result
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prerender_cache_writes_total",
			Help: "Total number of prerender cache writes by result",
		},
		[]string{"result"}, // "ok", "error"
	)

	// CacheSkipped tracks requests the cache did not handle
	CacheSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prerender_cache_skipped_total",
			Help: "Total number of requests bypassing the prerender cache by reason",
		},
		[]string{"reason"}, // "method", "status", "disabled"
	)

	// CacheBytesWritten tracks encoded bytes written to the store
	CacheBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prerender_cache_written_bytes_total",
			Help: "Total bytes of encoded entries written to the prerender cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prerender_cache_errors_total",
			Help: "Total number of prerender cache operation errors",
		},
		[]string{"operation"}, // "get", "set"
	)
)
