// Package selection implements a staged feature-selection pipeline: a
// variance filter, a pairwise correlation filter and recursive feature
// elimination over a pluggable linear estimator.
//
// All stages are pure. They never mutate the FeatureMatrix or target they
// are given and always return freshly reduced values, so independent callers
// may run pipelines concurrently.
package selection

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// FeatureMatrix is an immutable table of named numeric columns of equal
// length.
type FeatureMatrix struct {
	names []string
	cols  [][]float64
	index map[string]int
	rows  int
}

// NewFeatureMatrix copies names and cols into a new matrix. Column names must
// be unique and non-empty, every column must have the same length and no
// value may be NaN or infinite.
func NewFeatureMatrix(names []string, cols [][]float64) (*FeatureMatrix, error) {
	const op = "NewFeatureMatrix"
	if len(names) != len(cols) {
		return nil, invalid(op, "%d names for %d columns", len(names), len(cols))
	}

	m := &FeatureMatrix{
		names: make([]string, len(names)),
		cols:  make([][]float64, len(cols)),
		index: make(map[string]int, len(names)),
	}
	if len(cols) > 0 {
		m.rows = len(cols[0])
	}

	for j, name := range names {
		if name == "" {
			return nil, invalid(op, "column %d has an empty name", j)
		}
		if _, dup := m.index[name]; dup {
			return nil, invalid(op, "duplicate column name %q", name)
		}
		if len(cols[j]) != m.rows {
			return nil, invalid(op, "column %q has %d rows, want %d", name, len(cols[j]), m.rows)
		}
		for i, v := range cols[j] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, invalid(op, "column %q row %d is not finite", name, i)
			}
		}
		m.index[name] = j
		m.names[j] = name
		m.cols[j] = append([]float64(nil), cols[j]...)
	}
	return m, nil
}

// FromDense builds a FeatureMatrix from the columns of d.
func FromDense(names []string, d mat.Matrix) (*FeatureMatrix, error) {
	r, c := d.Dims()
	cols := make([][]float64, c)
	for j := 0; j < c; j++ {
		cols[j] = make([]float64, r)
		mat.Col(cols[j], j, d)
	}
	return NewFeatureMatrix(names, cols)
}

// Rows returns the number of observations.
func (m *FeatureMatrix) Rows() int { return m.rows }

// Cols returns the number of features.
func (m *FeatureMatrix) Cols() int { return len(m.cols) }

// Names returns a copy of the column names in order.
func (m *FeatureMatrix) Names() []string {
	return append([]string(nil), m.names...)
}

// Name returns the name of column j.
func (m *FeatureMatrix) Name(j int) string { return m.names[j] }

// Index returns the position of the named column.
func (m *FeatureMatrix) Index(name string) (int, bool) {
	j, ok := m.index[name]
	return j, ok
}

// Column returns a copy of column j.
func (m *FeatureMatrix) Column(j int) []float64 {
	return append([]float64(nil), m.cols[j]...)
}

// ColumnByName returns a copy of the named column.
func (m *FeatureMatrix) ColumnByName(name string) ([]float64, bool) {
	j, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.Column(j), true
}

// column exposes the backing slice for read-only use inside the package.
func (m *FeatureMatrix) column(j int) []float64 { return m.cols[j] }

// SelectMask keeps the columns whose mask entry is true. The mask must have
// exactly one entry per column.
func (m *FeatureMatrix) SelectMask(mask []bool) (*FeatureMatrix, error) {
	if len(mask) != len(m.cols) {
		return nil, invalid("SelectMask", "mask has %d entries for %d columns", len(mask), len(m.cols))
	}
	keep := make([]int, 0, len(mask))
	for j, ok := range mask {
		if ok {
			keep = append(keep, j)
		}
	}
	return m.selectIndices(keep), nil
}

// SelectNames keeps the named columns in the order given.
func (m *FeatureMatrix) SelectNames(names []string) (*FeatureMatrix, error) {
	keep := make([]int, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		j, ok := m.index[name]
		if !ok {
			return nil, invalid("SelectNames", "unknown column %q", name)
		}
		if _, dup := seen[name]; dup {
			return nil, invalid("SelectNames", "column %q requested twice", name)
		}
		seen[name] = struct{}{}
		keep = append(keep, j)
	}
	return m.selectIndices(keep), nil
}

// selectIndices shares column storage with m; columns are never written
// after construction so the views stay immutable.
func (m *FeatureMatrix) selectIndices(keep []int) *FeatureMatrix {
	out := &FeatureMatrix{
		names: make([]string, len(keep)),
		cols:  make([][]float64, len(keep)),
		index: make(map[string]int, len(keep)),
		rows:  m.rows,
	}
	for k, j := range keep {
		out.names[k] = m.names[j]
		out.cols[k] = m.cols[j]
		out.index[m.names[j]] = k
	}
	return out
}

// Dense returns a fresh row-major copy of the matrix.
func (m *FeatureMatrix) Dense() *mat.Dense {
	if m.rows == 0 || len(m.cols) == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.rows, len(m.cols), nil)
	for j, col := range m.cols {
		d.SetCol(j, col)
	}
	return d
}

// ValidateTarget checks that y is aligned with the rows of m and finite.
func ValidateTarget(m *FeatureMatrix, y []float64) error {
	const op = "ValidateTarget"
	if len(y) == 0 {
		return invalid(op, "target vector is empty")
	}
	if len(y) != m.Rows() {
		return invalid(op, "target has %d values for %d rows", len(y), m.Rows())
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid(op, "target row %d is not finite", i)
		}
	}
	return nil
}
