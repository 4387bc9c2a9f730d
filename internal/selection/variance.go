package selection

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Score pairs a feature name with a stage-specific relevance value.
type Score struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// VarianceResult is the outcome of VarianceFilter.
type VarianceResult struct {
	Matrix    *FeatureMatrix
	Variances []Score // one entry per input column, input order
	Dropped   []string
}

// VarianceFilter keeps the columns whose population variance is strictly
// greater than threshold.
func VarianceFilter(m *FeatureMatrix, threshold float64) (*VarianceResult, error) {
	const op = "VarianceFilter"
	if m == nil || m.Rows() == 0 || m.Cols() == 0 {
		return nil, invalid(op, "matrix has no rows or no columns")
	}
	if math.IsNaN(threshold) || threshold < 0 {
		return nil, invalid(op, "threshold must be >= 0, got %v", threshold)
	}

	res := &VarianceResult{Variances: make([]Score, m.Cols())}
	mask := make([]bool, m.Cols())
	for j := 0; j < m.Cols(); j++ {
		v := stat.PopVariance(m.column(j), nil)
		// Round-off can leave a tiny positive value on constant columns.
		if isConstant(m.column(j)) {
			v = 0
		}
		res.Variances[j] = Score{Name: m.Name(j), Value: v}
		if v > threshold {
			mask[j] = true
		} else {
			res.Dropped = append(res.Dropped, m.Name(j))
		}
	}

	reduced, err := m.SelectMask(mask)
	if err != nil {
		return nil, err
	}
	res.Matrix = reduced
	return res, nil
}

func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
