/*
store.go - Persistence interfaces for occurrences and templates

PURPOSE:
  Defines the interface between the schedule engine and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  OccurrenceStore: Occurrence row persistence (insert-if-absent, status)
  TemplateStore:   Recurrence template persistence

INSERT-IF-ABSENT CONTRACT:
  Range-fill is the only operation that runs under potential concurrent
  access (an interactive status update racing a periodic scheduler over
  the same date span). InsertIfAbsent must therefore be atomic - a
  unique index plus INSERT OR IGNORE in SQLite, a single locked
  check-and-set in memory - never a separate check followed by an
  insert. An existing row's status is never overwritten by a fill.

CASCADE:
  Occurrence rows are deleted only when their template is removed.
  DeleteByTemplate is that cascade; nothing else deletes rows.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - schedule/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level operations using these interfaces
*/
package schedule

import (
	"context"
	"time"
)

// =============================================================================
// OCCURRENCE STORE
// =============================================================================

// OccurrenceStore persists occurrence rows keyed by
// (template, assignee, date).
type OccurrenceStore interface {
	// InsertIfAbsent atomically inserts the occurrence unless a row for
	// its key already exists. Returns true when a row was inserted.
	// Never modifies an existing row.
	InsertIfAbsent(ctx context.Context, occ Occurrence) (bool, error)

	// Get returns the occurrence for the key, or nil when absent.
	Get(ctx context.Context, key OccurrenceKey) (*Occurrence, error)

	// UpdateStatus mutates status, comment and acted-at of one existing
	// row. Returns ErrOccurrenceNotFound when the row doesn't exist.
	UpdateStatus(ctx context.Context, key OccurrenceKey, status OccurrenceStatus, comment string, actedAt *time.Time) error

	// ListRange returns occurrences with date in [from, to], ordered by
	// (date, template, assignee).
	ListRange(ctx context.Context, from, to Date) ([]Occurrence, error)

	// ListByAssignee returns one assignee's occurrences in [from, to].
	ListByAssignee(ctx context.Context, assignee AssigneeID, from, to Date) ([]Occurrence, error)

	// DeleteByTemplate removes all rows of a template (cascade on
	// template removal). Returns the number of rows removed.
	DeleteByTemplate(ctx context.Context, id TemplateID) (int, error)
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

// TemplateStore persists recurrence templates. The ledger reads an
// explicit snapshot via ActiveTemplates per computation; it keeps no
// template cache of its own.
type TemplateStore interface {
	Save(ctx context.Context, t RecurrenceTemplate) error

	// GetTemplate returns the template, or nil when absent.
	GetTemplate(ctx context.Context, id TemplateID) (*RecurrenceTemplate, error)

	// ActiveTemplates returns all templates with Active = true.
	ActiveTemplates(ctx context.Context) ([]RecurrenceTemplate, error)

	// ListTemplates returns every template, active or not.
	ListTemplates(ctx context.Context) ([]RecurrenceTemplate, error)

	// Deactivate clears the active flag. Returns ErrTemplateNotFound
	// when the template doesn't exist.
	Deactivate(ctx context.Context, id TemplateID) error
}
