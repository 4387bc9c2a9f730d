package selection

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// CorrelatedDrop records a column removed by the correlation filter.
type CorrelatedDrop struct {
	Name        string  `json:"name"`
	Partner     string  `json:"partner"`
	Correlation float64 `json:"correlation"`
}

// CorrelationResult is the outcome of CorrelationFilter.
type CorrelationResult struct {
	Matrix  *FeatureMatrix
	Target  []Score // |Pearson r| of each input column with the target
	Dropped []CorrelatedDrop
}

// CorrelationFilter removes one column of every pair whose absolute Pearson
// correlation exceeds threshold. Pairs are visited in column order among the
// columns still retained. The column less correlated with y is dropped; on a
// tie the lower-index column is kept.
func CorrelationFilter(m *FeatureMatrix, y []float64, threshold float64) (*CorrelationResult, error) {
	const op = "CorrelationFilter"
	if m == nil || m.Cols() < 2 {
		return nil, invalid(op, "need at least 2 columns")
	}
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return nil, invalid(op, "threshold must be in (0, 1], got %v", threshold)
	}
	if err := ValidateTarget(m, y); err != nil {
		return nil, err
	}

	n := m.Cols()
	target := TargetCorrelations(m, y)
	keep := make([]bool, n)
	for j := range keep {
		keep[j] = true
	}

	res := &CorrelationResult{Target: target}
	for i := 0; i < n; i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if !keep[j] {
				continue
			}
			r := pearson(m.column(i), m.column(j))
			if math.Abs(r) <= threshold {
				continue
			}
			drop, partner := j, i
			if target[j].Value > target[i].Value {
				drop, partner = i, j
			}
			keep[drop] = false
			res.Dropped = append(res.Dropped, CorrelatedDrop{
				Name:        m.Name(drop),
				Partner:     m.Name(partner),
				Correlation: r,
			})
			if drop == i {
				break
			}
		}
	}

	reduced, err := m.SelectMask(keep)
	if err != nil {
		return nil, err
	}
	res.Matrix = reduced
	return res, nil
}

// CorrelationMatrix returns the symmetric matrix of pairwise Pearson
// coefficients between the columns of m.
func CorrelationMatrix(m *FeatureMatrix) [][]float64 {
	n := m.Cols()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := pearson(m.column(i), m.column(j))
			out[i][j], out[j][i] = r, r
		}
	}
	return out
}

// TargetCorrelations returns |Pearson r| between each column of m and y.
func TargetCorrelations(m *FeatureMatrix, y []float64) []Score {
	out := make([]Score, m.Cols())
	for j := range out {
		out[j] = Score{Name: m.Name(j), Value: math.Abs(pearson(m.column(j), y))}
	}
	return out
}

// pearson treats an undefined coefficient (zero variance) as 0.
func pearson(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}
