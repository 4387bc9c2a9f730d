package metrics

import "featsel/internal/selection"

var _ selection.MetricsInterface = (*MetricsWrapper)(nil)

// MetricsWrapper provides the pipeline with a narrow view of Metrics.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PipelineRunsInc() {
	w.m.RunsTotal.Inc()
}

func (w *MetricsWrapper) PipelineFailuresInc(kind string) {
	w.m.RunFailures.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) StageDurationObserve(stage string, seconds float64) {
	w.m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

func (w *MetricsWrapper) FeaturesDroppedAdd(stage string, n int) {
	w.m.FeaturesDropped.WithLabelValues(stage).Add(float64(n))
}
