package metric

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cropvision/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry)
	require.NotNil(t, registry.CoreMetrics())
	require.NotNil(t, registry.PrometheusRegistry())
}

func TestRegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "test counter",
	})

	err := registry.RegisterCounter("transcoder", "test_counter", counter)
	require.NoError(t, err)

	// Duplicate registration under the same service/metric pair fails.
	err = registry.RegisterCounter("transcoder", "test_counter", counter)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestRegisterCounter_PrometheusConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	newCounter := func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conflicting_total",
			Help: "conflicting counter",
		})
	}

	require.NoError(t, registry.RegisterCounter("svc_a", "first", newCounter()))

	// Same prometheus metric name under a different registry key conflicts
	// at the prometheus layer.
	err := registry.RegisterCounter("svc_b", "second", newCounter())
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "test gauge",
	})

	require.NoError(t, registry.RegisterGauge("cache", "test_gauge", gauge))
	assert.True(t, registry.Unregister("cache", "test_gauge"))
	assert.False(t, registry.Unregister("cache", "test_gauge"))

	// Re-registration works after unregistering.
	require.NoError(t, registry.RegisterGauge("cache", "test_gauge", gauge))
}

func TestCoreMetrics_Record(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordRequest("success", 120*time.Millisecond)
	core.RecordRequest("hit", time.Millisecond)
	core.RecordError("rate_limited")
	core.RecordOptimization("success")
	core.RecordOptimizationDuration("jpeg", 40*time.Millisecond)
	core.RecordBytesSaved(2048)
	core.RecordBytesSaved(-10) // ignored, counters cannot go down
	core.RecordCooldownWait()
	core.RecordCooldownRemaining(30 * time.Second)
	core.RecordServiceAvailable(true)
	core.RecordServiceRTT(85 * time.Millisecond)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}

	for _, want := range []string{
		"cropvision_identify_requests_total",
		"cropvision_identify_request_duration_seconds",
		"cropvision_identify_errors_total",
		"cropvision_imaging_optimizations_total",
		"cropvision_imaging_bytes_saved_total",
		"cropvision_ratelimit_cooldown_waits_total",
		"cropvision_service_available",
		"cropvision_service_rtt_milliseconds",
	} {
		assert.True(t, names[want], "expected metric family %s", want)
	}
}

func TestHandler_ServesExposition(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordRequest("success", 50*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	registry.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "cropvision_identify_requests_total"))
}
