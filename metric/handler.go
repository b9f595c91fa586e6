package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an http.Handler serving the registry's metrics in
// Prometheus exposition format. The embedding application decides where to
// mount it and what transport security to apply.
func (r *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{
		// Surface scrape-time errors in the response rather than panicking.
		ErrorHandling: promhttp.ContinueOnError,
	})
}
