package trigo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/trigo/curve"
	"github.com/hupe1980/trigo/engine"
	"github.com/hupe1980/trigo/index/rtree"
	"github.com/hupe1980/trigo/projection"
)

var (
	// ErrNotFound is returned when a requested ID does not exist in the
	// index. Recoverable; a second delete of the same ID fails the same way.
	ErrNotFound = errors.New("trigo: not found")

	// ErrDimensionMismatch is returned when a vector's length disagrees with
	// the configured dimension. Vectors are never truncated or padded.
	ErrDimensionMismatch = errors.New("trigo: dimension mismatch")

	// ErrInvalidConfiguration is returned when construction parameters are
	// invalid (dimension too small, degenerate basis, encoder bits or range
	// out of bounds). Raised before any data can be indexed.
	ErrInvalidConfiguration = errors.New("trigo: invalid configuration")
)

// translateError normalizes internal package errors into the facade's
// sentinel taxonomy. The original error stays in the chain for errors.As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dimMismatch *projection.ErrDimensionMismatch
	var invalidDim *projection.ErrInvalidDimension
	var degenerate *projection.ErrDegenerateBasis
	var invalidBits *curve.ErrInvalidBits
	var invalidRange *curve.ErrInvalidRange
	var treeNotFound *rtree.ErrNotFound

	switch {
	case errors.Is(err, engine.ErrNotFound), errors.As(err, &treeNotFound):
		return ErrNotFound
	case errors.As(err, &dimMismatch):
		return fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
	case errors.As(err, &invalidDim),
		errors.As(err, &degenerate),
		errors.As(err, &invalidBits),
		errors.As(err, &invalidRange):
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	default:
		return err
	}
}
