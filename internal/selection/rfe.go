package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Estimator fits a linear model. Implementations must be safe to call
// repeatedly and must not retain or modify X and y.
type Estimator interface {
	Fit(X mat.Matrix, y []float64) (Fitted, error)
}

// Fitted is a trained linear model.
type Fitted interface {
	// Coefficients returns one weight per input column.
	Coefficients() []float64
	Intercept() float64
	Predict(X mat.Matrix) []float64
	// Score returns the goodness of fit (R²) on X and y.
	Score(X mat.Matrix, y []float64) float64
}

// State is a step of the recursive elimination state machine.
type State int

const (
	StateReady State = iota
	StateFitting
	StateRanked
	StateEliminating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateFitting:
		return "FITTING"
	case StateRanked:
		return "RANKED"
	case StateEliminating:
		return "ELIMINATING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RFE is a recursive feature elimination wrapper selector.
type RFE struct {
	Estimator Estimator
	K         int // number of features to keep
	Step      int // features removed per round; values < 1 mean 1
	Logger    zerolog.Logger

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
}

// RFEResult is the outcome of a completed elimination.
type RFEResult struct {
	Matrix     *FeatureMatrix
	Retained   []string
	Model      Fitted
	Eliminated []Score // removal order, with |coef| at the time of removal
	Ranking    []Score
	Rounds     int
}

type rfeRun struct {
	*RFE
	state State
}

func (r *rfeRun) to(next State) {
	if r.OnTransition != nil {
		r.OnTransition(r.state, next)
	}
	r.Logger.Trace().Stringer("from", r.state).Stringer("to", next).Msg("rfe transition")
	r.state = next
}

// Select runs the elimination on m and y until exactly K columns remain.
func (r *RFE) Select(m *FeatureMatrix, y []float64) (*RFEResult, error) {
	const op = "RFE"
	if r.Estimator == nil {
		return nil, invalid(op, "no estimator configured")
	}
	if m == nil || m.Cols() == 0 || m.Rows() == 0 {
		return nil, invalid(op, "matrix has no rows or no columns")
	}
	if r.K < 1 {
		return nil, invalid(op, "k must be >= 1, got %d", r.K)
	}
	if r.K > m.Cols() {
		return nil, invalid(op, "k=%d exceeds the %d available features", r.K, m.Cols())
	}
	if err := ValidateTarget(m, y); err != nil {
		return nil, err
	}

	step := r.Step
	if step < 1 {
		step = 1
	}

	run := &rfeRun{RFE: r, state: StateReady}
	current := m
	var eliminated []Score
	rounds := 0

	for {
		run.to(StateFitting)
		fitted, err := r.Estimator.Fit(current.Dense(), y)
		if err != nil {
			run.to(StateFailed)
			return nil, &ModelFitError{Op: op, Err: err}
		}
		coef := fitted.Coefficients()
		if len(coef) != current.Cols() {
			run.to(StateFailed)
			return nil, &ModelFitError{Op: op, Err: fmt.Errorf("estimator returned %d coefficients for %d features", len(coef), current.Cols())}
		}
		for j, c := range coef {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				run.to(StateFailed)
				return nil, &ModelFitError{Op: op, Err: fmt.Errorf("coefficient for %q is not finite", current.Name(j))}
			}
		}

		order := rankByMagnitude(coef)
		run.to(StateRanked)

		if current.Cols() == r.K {
			ranking := make([]Score, 0, m.Cols())
			for _, j := range order {
				ranking = append(ranking, Score{Name: current.Name(j), Value: math.Abs(coef[j])})
			}
			for i := len(eliminated) - 1; i >= 0; i-- {
				ranking = append(ranking, eliminated[i])
			}
			run.to(StateDone)
			return &RFEResult{
				Matrix:     current,
				Retained:   current.Names(),
				Model:      fitted,
				Eliminated: eliminated,
				Ranking:    ranking,
				Rounds:     rounds,
			}, nil
		}

		run.to(StateEliminating)
		remove := min(step, current.Cols()-r.K)
		mask := make([]bool, current.Cols())
		for j := range mask {
			mask[j] = true
		}
		// order is most important first, so the tail holds the weakest.
		for _, j := range order[len(order)-remove:] {
			mask[j] = false
		}
		// Report removals weakest first so the elimination order is total.
		removed := make([]string, 0, remove)
		for i := len(order) - 1; i >= len(order)-remove; i-- {
			j := order[i]
			eliminated = append(eliminated, Score{Name: current.Name(j), Value: math.Abs(coef[j])})
			removed = append(removed, current.Name(j))
		}

		next, err := current.SelectMask(mask)
		if err != nil {
			run.to(StateFailed)
			return nil, err
		}
		rounds++
		r.Logger.Debug().
			Int("round", rounds).
			Int("remaining", next.Cols()).
			Strs("removed", removed).
			Msg("rfe round")
		current = next
	}
}

// rankByMagnitude orders column indices by |coef| descending. Equal
// magnitudes keep the lower index first, so the higher index is removed.
func rankByMagnitude(coef []float64) []int {
	idx := make([]int, len(coef))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(coef[idx[a]]) > math.Abs(coef[idx[b]])
	})
	return idx
}
