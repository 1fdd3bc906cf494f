// Package metrics exposes Prometheus counters for harvest runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of a single report lookup.
const (
	OutcomeCached     = "cached"
	OutcomeDownloaded = "downloaded"
	OutcomeNoArtifact = "no_artifact"
	OutcomeExpired    = "expired"
)

// Metrics groups the harvester's collectors. All methods are no-ops on a nil
// receiver so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	runsListed      prometheus.Counter
	reports         *prometheus.CounterVec
	downloadedBytes prometheus.Counter
	published       prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsListed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bench",
			Subsystem: "harvester",
			Name:      "runs_listed_total",
			Help:      "Number of successful workflow runs returned by run listings",
		}),
		reports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bench",
			Subsystem: "harvester",
			Name:      "reports_total",
			Help:      "Report lookups by outcome",
		}, []string{"outcome"}),
		downloadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bench",
			Subsystem: "harvester",
			Name:      "artifact_bytes_total",
			Help:      "Bytes of artifact archives downloaded",
		}),
		published: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bench",
			Subsystem: "harvester",
			Name:      "reports_published_total",
			Help:      "Reports published to the message broker",
		}),
	}
}

func (m *Metrics) RunsListed(n int) {
	if m == nil {
		return
	}
	m.runsListed.Add(float64(n))
}

func (m *Metrics) Report(outcome string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Downloaded(bytes int) {
	if m == nil {
		return
	}
	m.downloadedBytes.Add(float64(bytes))
}

func (m *Metrics) Published() {
	if m == nil {
		return
	}
	m.published.Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
