package observability

import (
	"net/http"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics is the standard set of Prometheus collectors the engine
// and runtime update as runs execute, ground: observability.ServiceMetrics'
// request-duration/request-count pair, generalized from per-HTTP-request
// labels to per-phase labels.
type PipelineMetrics struct {
	registry      prometheus.Registerer
	PhaseDuration *prometheus.HistogramVec
	PhaseOutcomes *prometheus.CounterVec
	ItemsInFlight *prometheus.GaugeVec
}

// NewPipelineMetrics registers the collectors against reg (the default
// registerer if nil) and returns the handle callers update from.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PipelineMetrics{
		registry: reg,
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "kbagent_phase_duration_seconds",
			Help: "Duration of one phase's execution within a run.",
		}, []string{"phase", "status"}),
		PhaseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kbagent_phase_outcomes_total",
			Help: "Count of phase outcomes by status.",
		}, []string{"phase", "status"}),
		ItemsInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kbagent_items_in_flight",
			Help: "Items currently being processed by a phase.",
		}, []string{"phase"}),
	}
	reg.MustRegister(m.PhaseDuration, m.PhaseOutcomes, m.ItemsInFlight)
	return m
}

// ObservePhase records one phase's terminal outcome and wall-clock duration.
func (m *PipelineMetrics) ObservePhase(phase models.PhaseID, status string, d time.Duration) {
	m.PhaseDuration.WithLabelValues(string(phase), status).Observe(d.Seconds())
	m.PhaseOutcomes.WithLabelValues(string(phase), status).Inc()
}

// Handler serves prometheus.DefaultGatherer for Prometheus to scrape, so it
// exposes these collectors only when they were registered against the
// default registerer.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}
