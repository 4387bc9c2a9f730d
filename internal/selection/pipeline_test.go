package selection

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu       sync.Mutex
	runs     int
	failures map[string]int
	stages   []string
	dropped  map[string]int
}

func newMockMetrics() *MockMetrics {
	return &MockMetrics{failures: map[string]int{}, dropped: map[string]int{}}
}

func (m *MockMetrics) PipelineRunsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

func (m *MockMetrics) PipelineFailuresInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[kind]++
}

func (m *MockMetrics) StageDurationObserve(stage string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *MockMetrics) FeaturesDroppedAdd(stage string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[stage] += n
}

// pipelineFixture has one constant column, one near-duplicate pair and
// distinct weights in the first row for the fake estimator.
func pipelineFixture(t *testing.T) (*FeatureMatrix, []float64) {
	t.Helper()
	names := []string{"const", "a", "a_copy", "b", "c", "d"}
	cols := [][]float64{
		{7, 7, 7, 7, 7, 7},
		{5, 1, 2, 3, 4, 5},
		{5, 1, 2, 3, 4, 5},
		{-3, 2, -1, 4, 0, 1},
		{0.5, 3, 3, 1, 2, 0},
		{2, 0, 1, 1, 3, -2},
	}
	y := []float64{5, 1, 2, 3, 4, 6}
	return mustMatrix(t, names, cols), y
}

func TestPipeline_AllStages(t *testing.T) {
	m, y := pipelineFixture(t)
	metrics := newMockMetrics()

	p, err := New(Config{
		VarianceThreshold:    Float(0),
		CorrelationThreshold: Float(0.95),
		WrapperK:             Int(2),
		Model:                &firstRowEstimator{},
	}, WithMetrics(metrics))
	require.NoError(t, err)

	res, err := p.Run(m, y)
	require.NoError(t, err)

	assert.Equal(t, []string{StageVariance, StageCorrelation, StageWrapper}, res.Stages)
	assert.Equal(t, []string{"a", "b"}, res.Retained)
	assert.Equal(t, []string{"a", "b"}, res.Matrix.Names())
	assert.Equal(t, []string{"c", "d"}, scoreNames(res.Elimination))
	assert.Equal(t, []string{"a", "b", "d", "c"}, scoreNames(res.Ranking))
	assert.Equal(t, 0.5, res.ModelScore)

	require.Len(t, res.Dropped, 2)
	assert.Equal(t, Drop{Name: "const", Stage: StageVariance, Value: 0}, res.Dropped[0])
	assert.Equal(t, "a_copy", res.Dropped[1].Name)
	assert.Equal(t, "a", res.Dropped[1].Partner)
	assert.Equal(t, StageCorrelation, res.Dropped[1].Stage)

	assert.Equal(t, 1, metrics.runs)
	assert.Empty(t, metrics.failures)
	assert.Equal(t, []string{StageVariance, StageCorrelation, StageWrapper}, metrics.stages)
	assert.Equal(t, 1, metrics.dropped[StageVariance])
	assert.Equal(t, 1, metrics.dropped[StageCorrelation])
	assert.Equal(t, 2, metrics.dropped[StageWrapper])
}

func TestPipeline_SkipsUnsetStages(t *testing.T) {
	m, y := pipelineFixture(t)

	p, err := New(Config{VarianceThreshold: Float(0)})
	require.NoError(t, err)
	res, err := p.Run(m, y)
	require.NoError(t, err)

	assert.Equal(t, []string{StageVariance}, res.Stages)
	assert.Equal(t, []string{"a", "a_copy", "b", "c", "d"}, res.Retained)
	assert.Nil(t, res.Model)
	assert.Empty(t, res.Elimination)
	// Without the wrapper the ranking follows |r| with the target.
	require.Len(t, res.Ranking, 5)
	for i := 1; i < len(res.Ranking); i++ {
		assert.GreaterOrEqual(t, res.Ranking[i-1].Value, res.Ranking[i].Value)
	}
}

func TestPipeline_NoStages(t *testing.T) {
	m, y := pipelineFixture(t)

	p, err := New(Config{})
	require.NoError(t, err)
	res, err := p.Run(m, y)
	require.NoError(t, err)
	assert.Equal(t, m.Names(), res.Retained)
	assert.Empty(t, res.Stages)
}

func TestPipeline_FailsFastWithStageError(t *testing.T) {
	// Variance leaves a single column, which the correlation filter rejects.
	m := mustMatrix(t, []string{"k1", "x", "k2"}, [][]float64{{1, 1, 1}, {1, 2, 3}, {4, 4, 4}})
	metrics := newMockMetrics()

	p, err := New(Config{
		VarianceThreshold:    Float(0),
		CorrelationThreshold: Float(0.9),
		WrapperK:             Int(1),
		Model:                &firstRowEstimator{},
	}, WithMetrics(metrics))
	require.NoError(t, err)

	res, err := p.Run(m, []float64{1, 2, 3})
	assert.Nil(t, res)
	var ie *InvalidInputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "CorrelationFilter", ie.Op)
	assert.Equal(t, 1, metrics.failures["invalid_input"])
	// The wrapper stage never started.
	assert.Equal(t, []string{StageVariance}, metrics.stages)
}

func TestPipeline_ModelFitErrorPropagates(t *testing.T) {
	m, y := pipelineFixture(t)
	metrics := newMockMetrics()

	p, err := New(Config{
		WrapperK: Int(2),
		Model:    &failingEstimator{after: 0},
	}, WithMetrics(metrics))
	require.NoError(t, err)

	res, err := p.Run(m, y)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrModelFit))
	assert.Equal(t, 1, metrics.failures["model_fit"])
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"full", Config{VarianceThreshold: Float(0.1), CorrelationThreshold: Float(1), WrapperK: Int(3), Model: &firstRowEstimator{}}, false},
		{"negative variance", Config{VarianceThreshold: Float(-0.1)}, true},
		{"zero correlation", Config{CorrelationThreshold: Float(0)}, true},
		{"correlation above one", Config{CorrelationThreshold: Float(1.01)}, true},
		{"k zero", Config{WrapperK: Int(0), Model: &firstRowEstimator{}}, true},
		{"k without model", Config{WrapperK: Int(2)}, true},
		{"negative step", Config{WrapperStep: -1}, true},
		{"model without k", Config{Model: &firstRowEstimator{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInput))
				_, newErr := New(tt.cfg)
				assert.Error(t, newErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPipeline_RejectsMismatchedTarget(t *testing.T) {
	m, _ := pipelineFixture(t)
	p, err := New(Config{VarianceThreshold: Float(0)})
	require.NoError(t, err)

	_, err = p.Run(m, []float64{1, 2})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = p.Run(nil, []float64{1, 2})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestPipeline_Logging(t *testing.T) {
	m, y := pipelineFixture(t)
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	p, err := New(Config{VarianceThreshold: Float(0)}, WithLogger(logger))
	require.NoError(t, err)
	_, err = p.Run(m, y)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"stage":"variance"`)
	assert.Contains(t, buf.String(), "feature selection complete")
}

func TestPipeline_ConcurrentRuns(t *testing.T) {
	p, err := New(Config{
		VarianceThreshold:    Float(0),
		CorrelationThreshold: Float(0.95),
		WrapperK:             Int(2),
		Model:                &firstRowEstimatorSafe{},
	})
	require.NoError(t, err)

	m, y := pipelineFixture(t)

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Run(m, y)
			if assert.NoError(t, err) {
				results[i] = res.Retained
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []string{"a", "b"}, r)
	}
}

// firstRowEstimatorSafe is firstRowEstimator without the call counter, so
// it can be shared between goroutines.
type firstRowEstimatorSafe struct{}

func (firstRowEstimatorSafe) Fit(X mat.Matrix, y []float64) (Fitted, error) {
	return (&firstRowEstimator{}).Fit(X, y)
}
