package selection

import (
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Stage names used in logs, metrics and drop records.
const (
	StageVariance    = "variance"
	StageCorrelation = "correlation"
	StageWrapper     = "wrapper"
)

// Config selects the stages of a pipeline run. A nil field skips its stage.
type Config struct {
	VarianceThreshold    *float64  `yaml:"varianceThreshold" json:"variance_threshold,omitempty"`
	CorrelationThreshold *float64  `yaml:"correlationThreshold" json:"correlation_threshold,omitempty"`
	WrapperK             *int      `yaml:"wrapperK" json:"wrapper_k,omitempty"`
	WrapperStep          int       `yaml:"wrapperStep" json:"wrapper_step,omitempty"`
	Model                Estimator `yaml:"-" json:"-"`
}

// Validate checks the configuration without touching any data.
func (c Config) Validate() error {
	const op = "Config"
	if c.VarianceThreshold != nil && !(*c.VarianceThreshold >= 0) {
		return invalid(op, "variance threshold must be >= 0, got %v", *c.VarianceThreshold)
	}
	if c.CorrelationThreshold != nil {
		t := *c.CorrelationThreshold
		if !(t > 0 && t <= 1) {
			return invalid(op, "correlation threshold must be in (0, 1], got %v", t)
		}
	}
	if c.WrapperK != nil {
		if *c.WrapperK < 1 {
			return invalid(op, "wrapper k must be >= 1, got %d", *c.WrapperK)
		}
		if c.Model == nil {
			return invalid(op, "wrapper k is set but no model is configured")
		}
	}
	if c.WrapperStep < 0 {
		return invalid(op, "wrapper step must be >= 0, got %d", c.WrapperStep)
	}
	return nil
}

// Float returns a pointer to v, for filling Config.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for filling Config.
func Int(v int) *int { return &v }

// Drop records a feature removed by a filter stage.
type Drop struct {
	Name    string  `json:"name"`
	Stage   string  `json:"stage"`
	Partner string  `json:"partner,omitempty"`
	Value   float64 `json:"value"` // variance, or pair correlation
}

// Result is the outcome of a completed pipeline run. It is never modified
// after Run returns.
type Result struct {
	Retained    []string       `json:"retained"`
	Ranking     []Score        `json:"ranking"`
	Elimination []Score        `json:"elimination,omitempty"`
	Dropped     []Drop         `json:"dropped,omitempty"`
	Stages      []string       `json:"stages"`
	Matrix      *FeatureMatrix `json:"-"`
	Model       Fitted         `json:"-"`
	ModelScore  float64        `json:"model_score,omitempty"`
}

// MetricsInterface receives pipeline measurements.
type MetricsInterface interface {
	PipelineRunsInc()
	PipelineFailuresInc(kind string)
	StageDurationObserve(stage string, seconds float64)
	FeaturesDroppedAdd(stage string, n int)
}

type nopMetrics struct{}

func (nopMetrics) PipelineRunsInc()                     {}
func (nopMetrics) PipelineFailuresInc(string)           {}
func (nopMetrics) StageDurationObserve(string, float64) {}
func (nopMetrics) FeaturesDroppedAdd(string, int)       {}

// Pipeline runs the configured stages in the order variance, correlation,
// wrapper.
type Pipeline struct {
	cfg     Config
	logger  zerolog.Logger
	metrics MetricsInterface
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m MetricsInterface) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// New validates cfg and returns a pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, logger: zerolog.Nop(), metrics: nopMetrics{}}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run applies the stages to m and y. Either every configured stage completes
// and a Result is returned, or the first stage error is returned unchanged.
func (p *Pipeline) Run(m *FeatureMatrix, y []float64) (*Result, error) {
	p.metrics.PipelineRunsInc()
	res, err := p.run(m, y)
	if err != nil {
		p.metrics.PipelineFailuresInc(errorKind(err))
		p.logger.Error().Err(err).Msg("feature selection failed")
		return nil, err
	}
	p.logger.Info().
		Int("input", m.Cols()).
		Int("retained", len(res.Retained)).
		Strs("stages", res.Stages).
		Msg("feature selection complete")
	return res, nil
}

func (p *Pipeline) run(m *FeatureMatrix, y []float64) (*Result, error) {
	if m == nil {
		return nil, invalid("Pipeline", "nil feature matrix")
	}
	if err := ValidateTarget(m, y); err != nil {
		return nil, err
	}

	res := &Result{}
	current := m

	if p.cfg.VarianceThreshold != nil {
		start := p.stageStart(StageVariance, current)
		vr, err := VarianceFilter(current, *p.cfg.VarianceThreshold)
		if err != nil {
			return nil, err
		}
		for _, s := range vr.Variances {
			if _, kept := vr.Matrix.Index(s.Name); !kept {
				res.Dropped = append(res.Dropped, Drop{Name: s.Name, Stage: StageVariance, Value: s.Value})
			}
		}
		current = vr.Matrix
		p.stageDone(StageVariance, start, len(vr.Dropped), current)
		res.Stages = append(res.Stages, StageVariance)
	}

	if p.cfg.CorrelationThreshold != nil {
		start := p.stageStart(StageCorrelation, current)
		cr, err := CorrelationFilter(current, y, *p.cfg.CorrelationThreshold)
		if err != nil {
			return nil, err
		}
		for _, d := range cr.Dropped {
			res.Dropped = append(res.Dropped, Drop{Name: d.Name, Stage: StageCorrelation, Partner: d.Partner, Value: d.Correlation})
		}
		current = cr.Matrix
		p.stageDone(StageCorrelation, start, len(cr.Dropped), current)
		res.Stages = append(res.Stages, StageCorrelation)
	}

	if p.cfg.WrapperK != nil {
		start := p.stageStart(StageWrapper, current)
		rfe := &RFE{
			Estimator: p.cfg.Model,
			K:         *p.cfg.WrapperK,
			Step:      p.cfg.WrapperStep,
			Logger:    p.logger.With().Str("stage", StageWrapper).Logger(),
		}
		rr, err := rfe.Select(current, y)
		if err != nil {
			return nil, err
		}
		current = rr.Matrix
		res.Model = rr.Model
		res.ModelScore = rr.Model.Score(current.Dense(), y)
		res.Elimination = rr.Eliminated
		res.Ranking = rr.Ranking
		p.stageDone(StageWrapper, start, len(rr.Eliminated), current)
		res.Stages = append(res.Stages, StageWrapper)
	} else {
		res.Ranking = rankByTarget(current, y)
	}

	res.Matrix = current
	res.Retained = current.Names()
	return res, nil
}

func (p *Pipeline) stageStart(stage string, m *FeatureMatrix) time.Time {
	p.logger.Debug().Str("stage", stage).Int("features", m.Cols()).Msg("stage started")
	return time.Now()
}

func (p *Pipeline) stageDone(stage string, start time.Time, dropped int, m *FeatureMatrix) {
	p.metrics.StageDurationObserve(stage, time.Since(start).Seconds())
	p.metrics.FeaturesDroppedAdd(stage, dropped)
	p.logger.Debug().
		Str("stage", stage).
		Int("dropped", dropped).
		Int("remaining", m.Cols()).
		Dur("took", time.Since(start)).
		Msg("stage finished")
}

// rankByTarget orders columns by |Pearson r| with y, descending; ties keep
// column order.
func rankByTarget(m *FeatureMatrix, y []float64) []Score {
	if m.Cols() == 0 {
		return nil
	}
	scores := TargetCorrelations(m, y)
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].Value > scores[b].Value })
	return scores
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrModelFit):
		return "model_fit"
	default:
		return "other"
	}
}
