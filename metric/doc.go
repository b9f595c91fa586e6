// Package metric provides Prometheus metrics management for the CropVision
// media pipeline.
//
// A MetricsRegistry wraps a private prometheus.Registry so the pipeline never
// pollutes (or collides with) the global default registry. Core pipeline
// metrics — identification request outcomes and durations, transcoder
// activity, rate-limit cooldown state, and remote service health — are
// registered at construction and available through CoreMetrics(). Components
// register their own metrics through the Register* methods, namespaced by
// component name to catch duplicate registrations early.
//
// The registry's Handler() exposes everything in Prometheus exposition format
// for the embedding application to mount wherever it serves observability
// endpoints.
//
//	registry := metric.NewMetricsRegistry()
//	cache, err := cache.New[identify.Report](ctx, cache.DefaultConfig(),
//	    cache.WithMetrics[identify.Report](registry, "identify"))
//	...
//	mux.Handle("/metrics", registry.Handler())
package metric
