package reconcile

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrNoIdentity is returned for a task entry with neither a stable
	// id nor a usable title; such a record cannot be matched.
	ErrNoIdentity = errors.New("task has no usable identity")

	// ErrMalformedBoard is returned when a board is missing expected
	// nesting. The comparison fails fast rather than silently producing
	// a partial, wrong result.
	ErrMalformedBoard = errors.New("malformed week board")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StructuralError pinpoints where a board violated the expected shape.
type StructuralError struct {
	Path   string // e.g. "ops/2026-03-02/cells[1]"
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("malformed week board at %s: %s", e.Path, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrMalformedBoard }

// IdentityError carries the offending entry's position.
type IdentityError struct {
	Path string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("task at %s has neither a stable id nor a title", e.Path)
}

func (e *IdentityError) Unwrap() error { return ErrNoIdentity }

// IsClientError returns true if the error is due to invalid input data.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoIdentity) || errors.Is(err, ErrMalformedBoard)
}
