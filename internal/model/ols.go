package model

import (
	"fmt"

	"featsel/internal/selection"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxCondition bounds the condition number accepted by OLS.
const DefaultMaxCondition = 1e12

// OLS fits ordinary least squares with an intercept using a QR
// factorisation of the centred design matrix.
type OLS struct {
	// MaxCondition rejects fits whose design matrix is worse conditioned.
	// Zero means DefaultMaxCondition.
	MaxCondition float64
}

// NewOLS returns an OLS estimator with default settings.
func NewOLS() *OLS { return &OLS{} }

// Fit implements selection.Estimator.
func (o *OLS) Fit(X mat.Matrix, y []float64) (selection.Fitted, error) {
	r, c := X.Dims()
	if r != len(y) {
		return nil, ErrShape
	}
	if c == 0 {
		return nil, fmt.Errorf("no features to fit")
	}
	// One row is spent on the intercept.
	if r <= c {
		return nil, fmt.Errorf("%w: %d rows for %d features plus intercept", ErrTooFewSamples, r, c)
	}

	xc, yc, means, yMean := center(X, y)

	var qr mat.QR
	qr.Factorize(xc)

	limit := o.MaxCondition
	if limit == 0 {
		limit = DefaultMaxCondition
	}
	if cond := qr.Cond(); !(cond <= limit) {
		return nil, fmt.Errorf("%w: condition number %.3g", ErrSingular, cond)
	}

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(r, yc)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	weights := make([]float64, c)
	for j := range weights {
		weights[j] = beta.AtVec(j)
	}
	return &Linear{Weights: weights, Bias: interceptFor(weights, means, yMean)}, nil
}
