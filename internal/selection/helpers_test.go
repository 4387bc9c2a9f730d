package selection

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// firstRowEstimator reports the first row of X as the coefficients, which
// makes RFE rankings easy to predict.
type firstRowEstimator struct {
	fits int
}

func (e *firstRowEstimator) Fit(X mat.Matrix, y []float64) (Fitted, error) {
	e.fits++
	_, c := X.Dims()
	coef := make([]float64, c)
	for j := range coef {
		coef[j] = X.At(0, j)
	}
	return &fakeFitted{coef: coef}, nil
}

type failingEstimator struct {
	after int
	calls int
}

var errSingularFake = errors.New("singular design matrix")

func (e *failingEstimator) Fit(X mat.Matrix, y []float64) (Fitted, error) {
	e.calls++
	if e.calls > e.after {
		return nil, errSingularFake
	}
	_, c := X.Dims()
	coef := make([]float64, c)
	for j := range coef {
		coef[j] = float64(j + 1)
	}
	return &fakeFitted{coef: coef}, nil
}

type fakeFitted struct {
	coef []float64
}

func (f *fakeFitted) Coefficients() []float64 { return append([]float64(nil), f.coef...) }
func (f *fakeFitted) Intercept() float64      { return 0 }

func (f *fakeFitted) Predict(X mat.Matrix) []float64 {
	r, _ := X.Dims()
	return make([]float64, r)
}

func (f *fakeFitted) Score(X mat.Matrix, y []float64) float64 { return 0.5 }

func mustMatrix(t *testing.T, names []string, cols [][]float64) *FeatureMatrix {
	t.Helper()
	m, err := NewFeatureMatrix(names, cols)
	require.NoError(t, err)
	return m
}

// randomMatrix builds rows×cols uniform values named X0..Xn and a target.
func randomMatrix(t *testing.T, seed int64, rows, cols int) (*FeatureMatrix, []float64) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	names := make([]string, cols)
	data := make([][]float64, cols)
	for j := range data {
		names[j] = fmt.Sprintf("X%d", j)
		data[j] = make([]float64, rows)
		for i := range data[j] {
			data[j][i] = rng.Float64() * float64(j+1)
		}
	}
	y := make([]float64, rows)
	for i := range y {
		y[i] = rng.NormFloat64()
		for j := range data {
			y[i] += data[j][i] * float64(j%3)
		}
	}
	return mustMatrix(t, names, data), y
}
