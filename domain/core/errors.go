package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Validation errors
	ErrValidation = errors.New("validation failed")

	// Lookup errors
	ErrNotFound             = errors.New("resource not found")
	ErrPDFNotFound          = fmt.Errorf("%w: pdf", ErrNotFound)
	ErrDataFieldNotFound    = fmt.Errorf("%w: data field", ErrNotFound)
	ErrTaskRecordNotFound   = fmt.Errorf("%w: task record", ErrNotFound)
	ErrParameterNotFound    = fmt.Errorf("%w: parameter", ErrNotFound)
	ErrBinningNotFound      = fmt.Errorf("%w: binning definition", ErrNotFound)
	ErrAuxDataFileNotFound  = fmt.Errorf("%w: auxiliary data file", ErrNotFound)
	ErrParameterGridMissing = fmt.Errorf("%w: parameter grid", ErrNotFound)

	// Consistency errors
	ErrConsistency     = errors.New("consistency check failed")
	ErrDuplicateKey    = fmt.Errorf("%w: duplicate key", ErrConsistency)
	ErrManagerMismatch = fmt.Errorf("%w: source hypothesis group manager mismatch", ErrConsistency)
	ErrBuilderCount    = fmt.Errorf("%w: detector signal yield builder count", ErrConsistency)
	ErrShapeMismatch   = fmt.Errorf("%w: shape mismatch", ErrConsistency)

	// Numerical errors
	ErrDegenerate                = errors.New("numerical degeneracy")
	ErrInsufficientValidFraction = errors.New("insufficient valid event fraction")

	ErrNotImplemented = errors.New("not implemented")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrValidation, field, reason)
}

func NewDuplicateKeyError(what string, key string) error {
	return fmt.Errorf("%w: %s %s already exists", ErrDuplicateKey, what, key)
}

func NewDegenerateError(what string, reason string) error {
	return fmt.Errorf("%w in %s: %s", ErrDegenerate, what, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsConsistencyError(err error) bool {
	return errors.Is(err, ErrConsistency)
}

func IsNumericalError(err error) bool {
	return errors.Is(err, ErrDegenerate) ||
		errors.Is(err, ErrInsufficientValidFraction)
}
