// Package model provides linear estimators that satisfy
// selection.Estimator: ordinary least squares and L1-regularised (Lasso)
// regression. Estimators hold only configuration; every Fit returns a new
// fitted model and leaves its inputs untouched.
package model

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingular is returned when the design matrix is rank deficient.
	ErrSingular = errors.New("design matrix is singular")
	// ErrTooFewSamples is returned when there are not enough rows to fit.
	ErrTooFewSamples = errors.New("not enough samples")
	// ErrShape is returned when X and y disagree on the number of rows.
	ErrShape = errors.New("X and y have different number of samples")
)

// Linear is a fitted linear model y = X·w + b.
type Linear struct {
	Weights []float64
	Bias    float64
}

// Coefficients returns a copy of the weights.
func (m *Linear) Coefficients() []float64 {
	return append([]float64(nil), m.Weights...)
}

// Intercept returns the bias term.
func (m *Linear) Intercept() float64 { return m.Bias }

// Predict returns predictions for the rows of X.
func (m *Linear) Predict(X mat.Matrix) []float64 {
	r, c := X.Dims()
	pred := make([]float64, r)
	for i := 0; i < r; i++ {
		sum := m.Bias
		for j := 0; j < c; j++ {
			sum += X.At(i, j) * m.Weights[j]
		}
		pred[i] = sum
	}
	return pred
}

// Score returns the R² of the model on X and y.
func (m *Linear) Score(X mat.Matrix, y []float64) float64 {
	return RSquared(y, m.Predict(X))
}

// RSquared calculates the coefficient of determination.
func RSquared(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return math.NaN()
	}
	mean := floats.Sum(yTrue) / float64(len(yTrue))

	tss := 0.0 // Total sum of squares
	rss := 0.0 // Residual sum of squares
	for i := range yTrue {
		tss += (yTrue[i] - mean) * (yTrue[i] - mean)
		diff := yTrue[i] - yPred[i]
		rss += diff * diff
	}

	if tss < 1e-15 {
		return 1
	}
	return 1 - rss/tss
}

// MeanSquaredError calculates the MSE of a prediction.
func MeanSquaredError(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return math.NaN()
	}
	sum := 0.0
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff
	}
	return sum / float64(len(yTrue))
}

// center returns X and y with column means removed, plus those means.
func center(X mat.Matrix, y []float64) (*mat.Dense, []float64, []float64, float64) {
	r, c := X.Dims()
	xc := mat.DenseCopyOf(X)
	means := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, xc)
		means[j] = floats.Sum(col) / float64(r)
		floats.AddConst(-means[j], col)
		xc.SetCol(j, col)
	}

	yc := append([]float64(nil), y...)
	yMean := floats.Sum(yc) / float64(r)
	floats.AddConst(-yMean, yc)
	return xc, yc, means, yMean
}

func interceptFor(weights, means []float64, yMean float64) float64 {
	return yMean - floats.Dot(weights, means)
}
