package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains pipeline-level metrics shared by all components
// (domain-specific metrics register separately through the registry).
type Metrics struct {
	// Identification request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec

	// Transcoder metrics
	OptimizationsTotal   *prometheus.CounterVec
	OptimizationDuration *prometheus.HistogramVec
	BytesSaved           prometheus.Counter

	// Rate limiter metrics
	CooldownWaits   prometheus.Counter
	CooldownSeconds prometheus.Gauge

	// Remote service health
	ServiceAvailable prometheus.Gauge
	ServiceRTT       prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cropvision",
				Subsystem: "identify",
				Name:      "requests_total",
				Help:      "Total identification requests by outcome (hit, success, degraded, error)",
			},
			[]string{"outcome"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cropvision",
				Subsystem: "identify",
				Name:      "request_duration_seconds",
				Help:      "End-to-end identification request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cropvision",
				Subsystem: "identify",
				Name:      "errors_total",
				Help:      "Total classified request failures by category",
			},
			[]string{"category"},
		),

		OptimizationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cropvision",
				Subsystem: "imaging",
				Name:      "optimizations_total",
				Help:      "Total image optimizations by status (success, decode_failure, encode_failure)",
			},
			[]string{"status"},
		),

		OptimizationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cropvision",
				Subsystem: "imaging",
				Name:      "optimization_duration_seconds",
				Help:      "Image optimization duration in seconds",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"format"},
		),

		BytesSaved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cropvision",
				Subsystem: "imaging",
				Name:      "bytes_saved_total",
				Help:      "Total bytes removed by optimization (original minus transcoded)",
			},
		),

		CooldownWaits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cropvision",
				Subsystem: "ratelimit",
				Name:      "cooldown_waits_total",
				Help:      "Total requests that waited on a rate-limit cooldown",
			},
		),

		CooldownSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cropvision",
				Subsystem: "ratelimit",
				Name:      "cooldown_seconds",
				Help:      "Remaining shared cooldown window in seconds",
			},
		),

		ServiceAvailable: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cropvision",
				Subsystem: "service",
				Name:      "available",
				Help:      "Remote diagnostic service availability (0=unavailable, 1=available)",
			},
		),

		ServiceRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cropvision",
				Subsystem: "service",
				Name:      "rtt_milliseconds",
				Help:      "Remote diagnostic service round-trip time in milliseconds",
			},
		),
	}
}

// RecordRequest increments the request counter and observes its duration
func (c *Metrics) RecordRequest(outcome string, duration time.Duration) {
	c.RequestsTotal.WithLabelValues(outcome).Inc()
	c.RequestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordError increments the classified failure counter
func (c *Metrics) RecordError(category string) {
	c.ErrorsTotal.WithLabelValues(category).Inc()
}

// RecordOptimization increments the optimization counter
func (c *Metrics) RecordOptimization(status string) {
	c.OptimizationsTotal.WithLabelValues(status).Inc()
}

// RecordOptimizationDuration records transcoding time for a format
func (c *Metrics) RecordOptimizationDuration(format string, duration time.Duration) {
	c.OptimizationDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// RecordBytesSaved adds the byte reduction of one optimization
func (c *Metrics) RecordBytesSaved(saved int64) {
	if saved > 0 {
		c.BytesSaved.Add(float64(saved))
	}
}

// RecordCooldownWait increments the cooldown wait counter
func (c *Metrics) RecordCooldownWait() {
	c.CooldownWaits.Inc()
}

// RecordCooldownRemaining updates the remaining cooldown gauge
func (c *Metrics) RecordCooldownRemaining(remaining time.Duration) {
	c.CooldownSeconds.Set(remaining.Seconds())
}

// RecordServiceAvailable updates remote service availability
func (c *Metrics) RecordServiceAvailable(available bool) {
	value := 0.0
	if available {
		value = 1.0
	}
	c.ServiceAvailable.Set(value)
}

// RecordServiceRTT updates the remote service round-trip time
func (c *Metrics) RecordServiceRTT(rtt time.Duration) {
	c.ServiceRTT.Set(float64(rtt.Milliseconds()))
}
