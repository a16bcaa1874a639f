// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RegistrationsTotal counts registration attempts by resulting
	// participation status ("registered", "waitlist") or "error".
	RegistrationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_registrations_total",
		Help: "Event registration attempts by outcome.",
	}, []string{"outcome"})

	// CancellationsTotal counts cancellation requests; "noop" covers
	// requests that matched no record.
	CancellationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_cancellations_total",
		Help: "Event cancellation requests by outcome.",
	}, []string{"outcome"})

	// CacheRequestsTotal counts event cache lookups by result.
	CacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_event_cache_requests_total",
		Help: "Event cache lookups by result (hit or miss).",
	}, []string{"result"})
)

// MustRegister registers all collectors with the default registry.
func MustRegister() {
	prometheus.MustRegister(RegistrationsTotal, CancellationsTotal, CacheRequestsTotal)
}

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
