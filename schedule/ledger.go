/*
ledger.go - Idempotent occurrence materialization and status changes

PURPOSE:
  The OccurrenceLedger turns recurrence templates into concrete
  occurrence rows, one per (template, assignee, date), and applies
  status changes to them. It is the only writer of occurrence rows.

CRITICAL INVARIANTS:
  1. IDEMPOTENT FILL: EnsureOccurrencesInRange called twice over the
     same range yields the same row set. No duplicates, no status
     resets.
  2. CONCURRENT-SAFE: Fill relies on the store's atomic
     insert-if-absent, so a status update racing a periodic fill can
     never be lost or duplicated.
  3. EXPLICIT SNAPSHOT: Templates are loaded once per fill and passed
     through; no module-level template or assignee caches.
  4. ENSURE BEFORE SET: A status change on a missing row is a client
     fault, never an implicit insert.

ASSIGNEE RESOLUTION:
  A template materializes for its explicit assignee set. With no
  explicit assignees, the ledger's single default assignee is used.
  With no default either, the template is skipped (not an error - the
  duty simply has nobody to fall to yet).

REOPEN RULE:
  A live task mirror that is done or cancelled reopens only when its
  completion stamp is on a strictly earlier calendar day than now.
  A same-day completion never reopens; recurring duties get a fresh
  instance per day without fighting a same-day toggle.

SEE ALSO:
  - matcher.go: The recurrence predicate driving the fill
  - store.go: InsertIfAbsent contract
  - errors.go: Validation fault types
*/
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// OCCURRENCE LEDGER
// =============================================================================

// TemplateFilter narrows a range-fill to a subset of active templates.
// nil means all.
type TemplateFilter func(RecurrenceTemplate) bool

// OccurrenceLedger materializes and mutates occurrence rows.
type OccurrenceLedger struct {
	Occurrences OccurrenceStore
	Templates   TemplateStore

	// DefaultAssignee is used for templates with no explicit assignees.
	// Empty means such templates are skipped.
	DefaultAssignee AssigneeID

	// Now is the clock, overridable in tests. Defaults to time.Now.
	Now func() time.Time
}

// NewOccurrenceLedger creates a ledger over the given stores.
func NewOccurrenceLedger(occ OccurrenceStore, tpl TemplateStore) *OccurrenceLedger {
	return &OccurrenceLedger{
		Occurrences: occ,
		Templates:   tpl,
		Now:         time.Now,
	}
}

func (l *OccurrenceLedger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// =============================================================================
// RANGE FILL
// =============================================================================

// EnsureOccurrencesInRange materializes an OPEN occurrence for every
// (date in [start, end]) x (active template matching that date) x
// (resolvable assignee) that does not already have a row. Existing rows
// are untouched regardless of status. Returns the number of rows
// actually inserted.
//
// Safe under repeated and concurrent invocation; abandoning a fill
// mid-way is safe to resume since already-written days are a no-op on
// retry.
func (l *OccurrenceLedger) EnsureOccurrencesInRange(ctx context.Context, start, end Date, filter TemplateFilter) (int, error) {
	span := DateRange{Start: start, End: end}
	if !span.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRange, span)
	}

	templates, err := l.Templates.ActiveTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading active templates: %w", err)
	}

	createdAt := l.now()
	inserted := 0

	for _, day := range span.Days() {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		for _, t := range templates {
			if filter != nil && !filter(t) {
				continue
			}
			if !Matches(t, day) {
				continue
			}
			for _, assignee := range l.resolveAssignees(t) {
				occ := Occurrence{
					ID:         OccurrenceID(uuid.NewString()),
					TemplateID: t.ID,
					AssigneeID: assignee,
					Date:       day,
					Status:     StatusOpen,
					CreatedAt:  createdAt,
				}
				ok, err := l.Occurrences.InsertIfAbsent(ctx, occ)
				if err != nil {
					return inserted, fmt.Errorf("inserting occurrence %s/%s@%s: %w",
						t.ID, assignee, day, err)
				}
				if ok {
					inserted++
				}
			}
		}
	}

	return inserted, nil
}

func (l *OccurrenceLedger) resolveAssignees(t RecurrenceTemplate) []AssigneeID {
	if len(t.Assignees) > 0 {
		return t.Assignees
	}
	if l.DefaultAssignee != "" {
		return []AssigneeID{l.DefaultAssignee}
	}
	return nil
}

// =============================================================================
// STATUS CHANGES
// =============================================================================

// SetStatus applies a status change to one existing occurrence row.
// OPEN clears ActedAt; any other status stamps it to now. A missing row
// or unknown status is a client fault.
func (l *OccurrenceLedger) SetStatus(ctx context.Context, templateID TemplateID, assigneeID AssigneeID, date Date, status OccurrenceStatus, comment string) error {
	if !ValidStatus(status) {
		return &UnknownStatusError{Status: status}
	}

	key := OccurrenceKey{TemplateID: templateID, AssigneeID: assigneeID, Date: date}

	var actedAt *time.Time
	if status != StatusOpen {
		now := l.now()
		actedAt = &now
	}

	err := l.Occurrences.UpdateStatus(ctx, key, status, comment, actedAt)
	if errors.Is(err, ErrOccurrenceNotFound) {
		return &MissingOccurrenceError{Key: key}
	}
	return err
}

// =============================================================================
// REOPEN CHECK
// =============================================================================

// ShouldReopen reports whether a live task mirror backed by a recurring
// template is due to reopen to TODO. True only when the mirror is done
// or cancelled, the template is still active, and the completion stamp
// falls on a calendar day strictly before now. A mirror without a
// completion stamp never reopens: there is no way to prove the
// completion wasn't today.
func (l *OccurrenceLedger) ShouldReopen(mirror TaskMirror, t RecurrenceTemplate, now time.Time) bool {
	if !t.Active {
		return false
	}
	if mirror.Status != MirrorDone && mirror.Status != MirrorCancelled {
		return false
	}
	if mirror.CompletedAt == nil {
		return false
	}
	if SameCalendarDay(*mirror.CompletedAt, now) {
		return false
	}
	return mirror.CompletedAt.Before(now)
}

// =============================================================================
// TEMPLATE REMOVAL CASCADE
// =============================================================================

// RemoveTemplate deactivates a template and cascades its occurrence
// rows away. This is the only path that deletes occurrences.
func (l *OccurrenceLedger) RemoveTemplate(ctx context.Context, id TemplateID) (int, error) {
	if err := l.Templates.Deactivate(ctx, id); err != nil {
		return 0, err
	}
	return l.Occurrences.DeleteByTemplate(ctx, id)
}
