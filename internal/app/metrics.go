package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "notecard"

// Outcome label values of the runs counter besides the failing stage names.
const outcomeSuccess = "success"

// Metrics records pipeline runs for the status server's /-/metrics.
// A nil *Metrics records nothing.
type Metrics struct {
	runs   *prometheus.CounterVec
	stages *prometheus.HistogramVec
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Capture pipeline runs by outcome (success or the failing stage).",
		}, []string{"outcome"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "stage_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"stage"}),
	}

	reg.MustRegister(m.runs, m.stages)

	// Pre-create series so dashboards see zeros before the first failure.
	m.runs.WithLabelValues(outcomeSuccess)
	for _, s := range Stages {
		m.runs.WithLabelValues(string(s))
	}

	return m
}

func (m *Metrics) observeStage(stage Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func (m *Metrics) observeRun(err error) {
	if m == nil {
		return
	}

	outcome := outcomeSuccess
	if stage, ok := StageOf(err); ok {
		outcome = string(stage)
	} else if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(outcome).Inc()
}
