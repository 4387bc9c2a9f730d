package model

import (
	"fmt"
	"math"

	"featsel/internal/selection"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LassoConfig holds training parameters for Lasso regression.
type LassoConfig struct {
	Lambda  float64 `yaml:"lambda"`  // Regularization strength
	MaxIter int     `yaml:"maxIter"` // Maximum coordinate descent sweeps
	Tol     float64 `yaml:"tol"`     // Convergence tolerance on the largest weight change
}

// NewDefaultLassoConfig returns recommended default parameters.
func NewDefaultLassoConfig() LassoConfig {
	return LassoConfig{
		Lambda:  0.01,
		MaxIter: 1000,
		Tol:     1e-6,
	}
}

// Lasso fits L1-regularised least squares by cyclic coordinate descent on
// standardised features. Weights are reported on the original scale.
type Lasso struct {
	cfg LassoConfig
}

// NewLasso returns a Lasso estimator.
func NewLasso(cfg LassoConfig) (*Lasso, error) {
	if cfg.Lambda < 0 || math.IsNaN(cfg.Lambda) {
		return nil, fmt.Errorf("lambda must be >= 0, got %v", cfg.Lambda)
	}
	if cfg.MaxIter <= 0 {
		return nil, fmt.Errorf("max iterations must be > 0, got %d", cfg.MaxIter)
	}
	if cfg.Tol <= 0 {
		return nil, fmt.Errorf("tolerance must be > 0, got %v", cfg.Tol)
	}
	return &Lasso{cfg: cfg}, nil
}

// Fit implements selection.Estimator.
func (l *Lasso) Fit(X mat.Matrix, y []float64) (selection.Fitted, error) {
	nSamples, nFeatures := X.Dims()
	if nSamples != len(y) {
		return nil, ErrShape
	}
	if nSamples < 2 {
		return nil, fmt.Errorf("%w: %d rows", ErrTooFewSamples, nSamples)
	}

	xc, residuals, means, yMean := center(X, y)
	stds := scaleColumns(xc)

	// Objective: 1/(2n)·|y - Xw|² + λ·|w|₁ on unit-variance columns.
	n := float64(nSamples)
	weights := make([]float64, nFeatures)
	col := make([]float64, nSamples)
	for iter := 0; iter < l.cfg.MaxIter; iter++ {
		maxDelta := 0.0
		for j := 0; j < nFeatures; j++ {
			if stds[j] == 0 {
				continue
			}
			mat.Col(col, j, xc)
			old := weights[j]

			// rho = x_jᵀ(r + x_j·w_j) / n; columns have x_jᵀx_j = n.
			rho := floats.Dot(col, residuals)/n + old
			w := softThreshold(rho, l.cfg.Lambda)
			if delta := w - old; delta != 0 {
				floats.AddScaled(residuals, -delta, col)
				weights[j] = w
				if math.Abs(delta) > maxDelta {
					maxDelta = math.Abs(delta)
				}
			}
		}
		if maxDelta < l.cfg.Tol {
			break
		}
	}

	for j := range weights {
		if stds[j] != 0 {
			weights[j] /= stds[j]
		}
		if math.IsNaN(weights[j]) || math.IsInf(weights[j], 0) {
			return nil, fmt.Errorf("coefficient %d diverged", j)
		}
	}
	return &Linear{Weights: weights, Bias: interceptFor(weights, means, yMean)}, nil
}

// scaleColumns divides each centred column by its population standard
// deviation in place. Constant columns are left at zero and report 0.
func scaleColumns(X *mat.Dense) []float64 {
	r, c := X.Dims()
	stds := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		sd := math.Sqrt(floats.Dot(col, col) / float64(r))
		if sd < 1e-12 {
			continue
		}
		stds[j] = sd
		floats.Scale(1/sd, col)
		X.SetCol(j, col)
	}
	return stds
}

// softThreshold applies the soft-thresholding operator
func softThreshold(z, lambda float64) float64 {
	if z > lambda {
		return z - lambda
	} else if z < -lambda {
		return z + lambda
	}
	return 0
}
