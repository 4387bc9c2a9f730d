// Package metrics provides Prometheus metrics for feature selection runs.
// It counts pipeline runs and failures, times each stage, and tracks how
// many features each stage removes.
//
// The CLI is a batch job, so metrics are written to a node_exporter
// textfile instead of being served over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the selector.
type Metrics struct {
	// Pipeline metrics
	RunsTotal   prometheus.Counter     // Total number of pipeline runs
	RunFailures *prometheus.CounterVec // Failed runs by error kind

	// Stage metrics
	StageDuration   *prometheus.HistogramVec // Duration of each stage in seconds
	FeaturesDropped *prometheus.CounterVec   // Features removed by each stage

	// Result metrics
	FeaturesRetained prometheus.Gauge // Features kept by the last run
	ModelScore       prometheus.Gauge // R² of the final wrapper model
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "featsel_runs_total",
			Help: "Total number of feature selection runs",
		}),
		RunFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "featsel_run_failures_total",
			Help: "Total number of failed feature selection runs",
		}, []string{"kind"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "featsel_stage_duration_seconds",
			Help:    "Duration of selection stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"stage"}),
		FeaturesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "featsel_features_dropped_total",
			Help: "Total number of features removed per stage",
		}, []string{"stage"}),
		FeaturesRetained: factory.NewGauge(prometheus.GaugeOpts{
			Name: "featsel_features_retained",
			Help: "Number of features retained by the last run",
		}),
		ModelScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "featsel_model_score",
			Help: "Coefficient of determination of the final wrapper model",
		}),
	}
}

// RecordResult updates the result gauges after a successful run.
func (m *Metrics) RecordResult(retained int, score float64) {
	m.FeaturesRetained.Set(float64(retained))
	m.ModelScore.Set(score)
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
