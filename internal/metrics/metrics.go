package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the credo server.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	AuthFailuresTotal *prometheus.CounterVec
	KeysIssuedTotal   prometheus.Counter
	TransitionsTotal  *prometheus.CounterVec
}

// New initializes and registers the metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests use isolated
// registries so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credo",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by status class.",
		}, []string{"status"}),
		AuthFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credo",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Total authentication failures by reason.",
		}, []string{"reason"}), // reason: missing_key, no_match, installer
		KeysIssuedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "credo",
			Subsystem: "keys",
			Name:      "issued_total",
			Help:      "Total API keys issued.",
		}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credo",
			Subsystem: "keys",
			Name:      "transitions_total",
			Help:      "Total key status transitions applied.",
		}, []string{"to"}), // to: paused, active, revoked
	}
}
