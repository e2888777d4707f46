package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheRequestsTotal, cacheInvalidationsTotal) }

var (
	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Tracks cache hits and misses for various caches.",
		},
		[]string{"cache", "result"}, // e.g., cache="job", result="hit"
	)

	cacheInvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Cache keys and prefixes invalidated in response to events.",
		},
		[]string{"kind"}, // key|prefix
	)
)

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}

func AddCacheInvalidations(keys, prefixes int) {
	cacheInvalidationsTotal.WithLabelValues("key").Add(float64(keys))
	cacheInvalidationsTotal.WithLabelValues("prefix").Add(float64(prefixes))
}
