package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"featsel/internal/selection"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWrapper(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_CounterOperations(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	if v := testutil.ToFloat64(metrics.RunsTotal); v != 0 {
		t.Errorf("Expected initial counter value 0, got %f", v)
	}

	wrapper.PipelineRunsInc()
	wrapper.PipelineRunsInc()
	if v := testutil.ToFloat64(metrics.RunsTotal); v != 2 {
		t.Errorf("Expected counter value 2, got %f", v)
	}

	wrapper.PipelineFailuresInc("invalid_input")
	if v := testutil.ToFloat64(metrics.RunFailures.WithLabelValues("invalid_input")); v != 1 {
		t.Errorf("Expected 1 invalid_input failure, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.RunFailures.WithLabelValues("model_fit")); v != 0 {
		t.Errorf("Expected 0 model_fit failures, got %f", v)
	}

	wrapper.FeaturesDroppedAdd(selection.StageVariance, 3)
	wrapper.FeaturesDroppedAdd(selection.StageVariance, 2)
	if v := testutil.ToFloat64(metrics.FeaturesDropped.WithLabelValues(selection.StageVariance)); v != 5 {
		t.Errorf("Expected 5 dropped features, got %f", v)
	}
}

func TestMetricsWrapper_HistogramOperations(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.StageDurationObserve(selection.StageWrapper, 0.25)
	wrapper.StageDurationObserve(selection.StageWrapper, 0.5)

	if n := testutil.CollectAndCount(metrics.StageDuration, "featsel_stage_duration_seconds"); n != 1 {
		t.Errorf("Expected one stage series, got %d", n)
	}

	expected := `
# HELP featsel_runs_total Total number of feature selection runs
# TYPE featsel_runs_total counter
featsel_runs_total 0
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "featsel_runs_total"); err != nil {
		t.Errorf("unexpected metrics output: %v", err)
	}
}

func TestRecordResult(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	metrics.RecordResult(5, 0.93)

	if v := testutil.ToFloat64(metrics.FeaturesRetained); v != 5 {
		t.Errorf("Expected 5 retained features, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.ModelScore); v != 0.93 {
		t.Errorf("Expected model score 0.93, got %f", v)
	}
}

func TestWriteTextfile(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	NewWrapper(metrics).PipelineRunsInc()

	path := filepath.Join(t.TempDir(), "featsel.prom")
	if err := WriteTextfile(path, registry); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	if !strings.Contains(string(data), "featsel_runs_total 1") {
		t.Errorf("textfile missing run counter:\n%s", data)
	}
}

func TestPipelineUsesWrapper(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)

	m, err := selection.NewFeatureMatrix([]string{"const", "x"}, [][]float64{
		{1, 1, 1, 1},
		{1, 2, 3, 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	p, err := selection.New(selection.Config{VarianceThreshold: selection.Float(0)}, selection.WithMetrics(NewWrapper(metrics)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(m, []float64{2, 4, 6, 8}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if v := testutil.ToFloat64(metrics.RunsTotal); v != 1 {
		t.Errorf("Expected 1 run, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.FeaturesDropped.WithLabelValues(selection.StageVariance)); v != 1 {
		t.Errorf("Expected 1 variance drop, got %f", v)
	}
}
