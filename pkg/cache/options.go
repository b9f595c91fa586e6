package cache

import (
	"encoding/json"

	"github.com/c360/cropvision/metric"
)

// Option configures cache behavior using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

// cacheOptions holds internal configuration for cache instances.
// Stats are ALWAYS collected - they are not optional.
// Metrics are optional and exposed via WithMetrics().
type cacheOptions[V any] struct {
	// metricsReg is optional - if provided, cache stats are also exposed as
	// Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string

	// evictCallback is called when items are evicted from the cache
	evictCallback EvictCallback[V]

	// sizer estimates the serialized byte size of a value for memory
	// accounting
	sizer func(V) int
}

// WithMetrics enables Prometheus metrics export for cache statistics.
// If registry is nil or prefix is empty, this option is ignored.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback function that is called when items are
// evicted. The callback receives the key and value of the evicted entry.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

// WithSizer overrides the value-size estimator used for approximate memory
// accounting. The default handles []byte and string directly and falls back
// to JSON-serialized length for everything else.
func WithSizer[V any](sizer func(V) int) Option[V] {
	return func(opts *cacheOptions[V]) {
		if sizer != nil {
			opts.sizer = sizer
		}
	}
}

// defaultSizer estimates the serialized length of a value.
func defaultSizer[V any](value V) int {
	switch v := any(value).(type) {
	case []byte:
		return len(v)
	case string:
		return len(v)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return 0
		}
		return len(data)
	}
}

// applyOptions applies functional options to create final cache configuration.
func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{
		sizer: defaultSizer[V],
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
