// Package prep holds the preprocessing steps that run before feature
// selection: polynomial feature expansion and column scaling. Every function
// returns a new FeatureMatrix.
package prep

import (
	"fmt"
	"math"
	"strings"

	"featsel/internal/selection"

	"gonum.org/v1/gonum/stat"
)

// PolynomialOptions controls PolynomialFeatures.
type PolynomialOptions struct {
	Degree          int  `yaml:"degree"`
	InteractionOnly bool `yaml:"interactionOnly"` // skip powers of a single column
	IncludeBias     bool `yaml:"includeBias"`     // prepend a constant column named "1"
}

// PolynomialFeatures expands m with every product of its columns up to the
// given degree. Terms are ordered by degree, then lexicographically by
// column index, and named like "a", "a^2", "a b".
func PolynomialFeatures(m *selection.FeatureMatrix, opts PolynomialOptions) (*selection.FeatureMatrix, error) {
	if opts.Degree < 1 {
		return nil, fmt.Errorf("degree must be >= 1, got %d", opts.Degree)
	}
	if m.Cols() == 0 {
		return nil, fmt.Errorf("no columns to expand")
	}

	var names []string
	var cols [][]float64
	if opts.IncludeBias {
		bias := make([]float64, m.Rows())
		for i := range bias {
			bias[i] = 1
		}
		names = append(names, "1")
		cols = append(cols, bias)
	}

	src := make([][]float64, m.Cols())
	for j := range src {
		src[j] = m.Column(j)
	}

	for d := 1; d <= opts.Degree; d++ {
		combinations(m.Cols(), d, !opts.InteractionOnly, func(idx []int) {
			col := make([]float64, m.Rows())
			for i := range col {
				v := 1.0
				for _, j := range idx {
					v *= src[j][i]
				}
				col[i] = v
			}
			names = append(names, termName(m, idx))
			cols = append(cols, col)
		})
	}
	return selection.NewFeatureMatrix(names, cols)
}

// combinations calls fn with each non-decreasing (repeat) or strictly
// increasing index tuple of length k over [0, n).
func combinations(n, k int, repeat bool, fn func([]int)) {
	idx := make([]int, k)
	var rec func(pos, start int)
	rec = func(pos, start int) {
		if pos == k {
			fn(idx)
			return
		}
		for j := start; j < n; j++ {
			idx[pos] = j
			next := j + 1
			if repeat {
				next = j
			}
			rec(pos+1, next)
		}
	}
	rec(0, 0)
}

func termName(m *selection.FeatureMatrix, idx []int) string {
	var parts []string
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && idx[j] == idx[i] {
			j++
		}
		name := m.Name(idx[i])
		if p := j - i; p > 1 {
			name = fmt.Sprintf("%s^%d", name, p)
		}
		parts = append(parts, name)
		i = j
	}
	return strings.Join(parts, " ")
}

// Scaler holds per-column statistics learned by FitStandard.
type Scaler struct {
	Names []string
	Mean  []float64
	Std   []float64
}

// FitStandard learns the population mean and standard deviation of every
// column of m.
func FitStandard(m *selection.FeatureMatrix) *Scaler {
	s := &Scaler{
		Names: m.Names(),
		Mean:  make([]float64, m.Cols()),
		Std:   make([]float64, m.Cols()),
	}
	for j := 0; j < m.Cols(); j++ {
		mean, variance := stat.PopMeanVariance(m.Column(j), nil)
		s.Mean[j] = mean
		s.Std[j] = math.Sqrt(variance)
	}
	return s
}

// Transform standardises the columns of m to zero mean and unit variance.
// Constant columns become all zeros.
func (s *Scaler) Transform(m *selection.FeatureMatrix) (*selection.FeatureMatrix, error) {
	if m.Cols() != len(s.Names) {
		return nil, fmt.Errorf("scaler fitted on %d columns, got %d", len(s.Names), m.Cols())
	}
	cols := make([][]float64, m.Cols())
	for j := range cols {
		if m.Name(j) != s.Names[j] {
			return nil, fmt.Errorf("column %d is %q, scaler expects %q", j, m.Name(j), s.Names[j])
		}
		col := m.Column(j)
		for i := range col {
			if s.Std[j] != 0 {
				col[i] = (col[i] - s.Mean[j]) / s.Std[j]
			} else {
				col[i] = 0
			}
		}
		cols[j] = col
	}
	return selection.NewFeatureMatrix(m.Names(), cols)
}

// Standardize is FitStandard followed by Transform.
func Standardize(m *selection.FeatureMatrix) (*selection.FeatureMatrix, error) {
	return FitStandard(m).Transform(m)
}

// MinMaxScale scales each column to [0, 1]. Constant columns become zeros.
func MinMaxScale(m *selection.FeatureMatrix) (*selection.FeatureMatrix, error) {
	cols := make([][]float64, m.Cols())
	for j := range cols {
		col := m.Column(j)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range col {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		for i := range col {
			if hi != lo {
				col[i] = (col[i] - lo) / (hi - lo)
			} else {
				col[i] = 0
			}
		}
		cols[j] = col
	}
	return selection.NewFeatureMatrix(m.Names(), cols)
}
