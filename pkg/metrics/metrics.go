// Package metrics exposes the Prometheus registry used by the prerender cache.
// Metrics are defined in their own packages (cache, render) and registered
// with promauto; this package serves them and documents the catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the prerender cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - prerender_cache_hits_total (Counter): Pages served from cache
//   - prerender_cache_misses_total{reason} (Counter): not_found, expired, error
//   - prerender_cache_writes_total{result} (Counter): ok, error
//   - prerender_cache_skipped_total{reason} (Counter): method, status, disabled
//   - prerender_cache_written_bytes_total (Counter): Encoded bytes written to Redis
//   - prerender_cache_errors_total{operation} (Counter): Store errors by operation (get, set)
//
// Render Metrics (pkg/render):
//   - prerender_render_requests_total{status} (Counter): Renders by HTTP status or "error"
//   - prerender_render_duration_seconds (Histogram): Render duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(prerender_cache_hits_total[5m])) /
//   (sum(rate(prerender_cache_hits_total[5m])) + sum(rate(prerender_cache_misses_total[5m])))
//
//   # Stale Entry Rate
//   rate(prerender_cache_misses_total{reason="expired"}[5m])
//
//   # Store Availability
//   rate(prerender_cache_errors_total[5m]) > 0
//
//   # P95 Render Latency
//   histogram_quantile(0.95, rate(prerender_render_duration_seconds_bucket[5m]))
