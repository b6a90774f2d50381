// Package metrics exposes Prometheus counters for the drinks calculator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Export outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	Estimates     *prometheus.CounterVec
	ShareLinks    *prometheus.CounterVec
	Exports       *prometheus.CounterVec
	EstimatedCost prometheus.Histogram
}

// New creates the collectors on a fresh registry, along with the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wedplan",
			Name:      "estimates_total",
			Help:      "Drinks estimates computed, by tier and result.",
		}, []string{"tier", "result"}),
		ShareLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wedplan",
			Name:      "share_links_total",
			Help:      "Share links encoded or decoded.",
		}, []string{"op"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wedplan",
			Name:      "exports_total",
			Help:      "Document exports, by outcome.",
		}, []string{"outcome"}),
		EstimatedCost: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wedplan",
			Name:      "estimated_cost",
			Help:      "Total cost of computed estimates, in currency units.",
			Buckets:   []float64{0, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}),
	}
	reg.MustRegister(
		m.Estimates, m.ShareLinks, m.Exports, m.EstimatedCost,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
