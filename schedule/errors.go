/*
errors.go - Centralized error types for the schedule engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Validation faults - bad client input (unknown status, missing row)
  2. Store errors - persistence-level failures

  Nothing here is retried internally. The ledger's range-fill is
  idempotent, so blind external retries of EnsureOccurrencesInRange
  are safe.

USAGE:
  if schedule.IsClientError(err) {
      // surface as 400, not 500
  }

SEE ALSO:
  - ledger.go: Uses these errors
  - store.go: Uses these errors
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownStatus is returned when a status change carries a value
	// outside {OPEN, DONE, NOT_DONE, SKIPPED}.
	ErrUnknownStatus = errors.New("unknown occurrence status")

	// ErrOccurrenceNotFound is returned when a status change targets a
	// (template, assignee, date) triple with no occurrence row. The
	// caller must ensure the range first.
	ErrOccurrenceNotFound = errors.New("occurrence not found")

	// ErrTemplateNotFound is returned when a referenced template
	// doesn't exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidRange is returned when a range-fill span is malformed
	// (zero dates or end before start).
	ErrInvalidRange = errors.New("invalid date range: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownStatusError reports the rejected status value.
type UnknownStatusError struct {
	Status OccurrenceStatus
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown occurrence status %q", e.Status)
}

func (e *UnknownStatusError) Unwrap() error { return ErrUnknownStatus }

// MissingOccurrenceError identifies the triple that had no row.
type MissingOccurrenceError struct {
	Key OccurrenceKey
}

func (e *MissingOccurrenceError) Error() string {
	return fmt.Sprintf("no occurrence for template %s, assignee %s on %s",
		e.Key.TemplateID, e.Key.AssigneeID, e.Key.Date)
}

func (e *MissingOccurrenceError) Unwrap() error { return ErrOccurrenceNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownStatus) ||
		errors.Is(err, ErrOccurrenceNotFound) ||
		errors.Is(err, ErrInvalidRange)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOccurrenceNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
}
