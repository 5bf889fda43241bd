// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Enrichment metrics.
	MetricRatingLookups   = "bookdex_rating_lookups_total"
	MetricSummaryLookups  = "bookdex_summary_lookups_total"
	MetricRatingEstimates = "bookdex_rating_estimates_total"

	// Cache metrics.
	MetricCacheHits    = "bookdex_cache_hits_total"
	MetricCacheMisses  = "bookdex_cache_misses_total"
	MetricUpserts      = "bookdex_upserts_total"
	MetricExpiredRows  = "bookdex_expired_rows_total"
	MetricMemCacheHits = "bookdex_memcache_hits_total"
	MetricMemCacheMiss = "bookdex_memcache_misses_total"
	MetricMemCacheSize = "bookdex_memcache_size"

	// Provider metrics.
	MetricProviderCalls    = "bookdex_provider_calls_total"
	MetricProviderFailures = "bookdex_provider_failures_total"
	MetricRateLimited      = "bookdex_rate_limited_skips_total"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
