package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput matches every *InvalidInputError via errors.Is.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelFit matches every *ModelFitError via errors.Is.
	ErrModelFit = errors.New("model fit failed")
)

// InvalidInputError reports malformed, empty or mismatched input and
// out-of-range configuration values.
type InvalidInputError struct {
	Op     string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Op, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// ModelFitError reports a failure of the underlying estimator, e.g. a
// singular design matrix.
type ModelFitError struct {
	Op  string
	Err error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("%s: model fit failed: %v", e.Op, e.Err)
}

func (e *ModelFitError) Unwrap() error { return e.Err }

func (e *ModelFitError) Is(target error) bool { return target == ErrModelFit }

func invalid(op, format string, args ...any) error {
	return &InvalidInputError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
