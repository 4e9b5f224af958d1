/*
flatten.go - Nested week board -> flat per-task records

PURPOSE:
  Runs once over a persisted snapshot and once over the live board,
  producing the two flat maps the classifier consumes. Flattening is
  deterministic and order-stable: the same board always yields the same
  records in the same order, so diffs and tests are reproducible.

COLLAPSING:
  Every appearance of one identity - any day, slot or assignee -
  accumulates into a single record:
  - occurrences grow in encounter order (day order, then cell order,
    then AM project / PM project / system / fast within a cell)
  - a record is completed if ANY representation reports completion
  - status reflects the most recently encountered non-empty observation

FAULTS:
  A board missing expected nesting fails fast with a StructuralError.
  An entry with neither id nor title is an IdentityError. Both are
  client faults; nothing is silently skipped.
*/
package reconcile

import (
	"fmt"

	"github.com/opsduty/duty-engine/schedule"
)

// =============================================================================
// FLAT SET - Ordered flatten result
// =============================================================================

// FlatSet is the result of flattening one board: records addressable by
// match key, plus the stable encounter order of those keys.
type FlatSet struct {
	records map[MatchKey]*FlatTaskRecord
	order   []MatchKey
}

// NewFlatSet returns an empty set.
func NewFlatSet() *FlatSet {
	return &FlatSet{records: make(map[MatchKey]*FlatTaskRecord)}
}

// Get returns the record for a key, or nil.
func (s *FlatSet) Get(key MatchKey) *FlatTaskRecord {
	return s.records[key]
}

// Keys returns match keys in encounter order.
func (s *FlatSet) Keys() []MatchKey {
	return s.order
}

// Len returns the number of distinct records.
func (s *FlatSet) Len() int {
	return len(s.order)
}

// Records returns the flat records in encounter order.
func (s *FlatSet) Records() []FlatTaskRecord {
	result := make([]FlatTaskRecord, 0, len(s.order))
	for _, key := range s.order {
		result = append(result, *s.records[key])
	}
	return result
}

// =============================================================================
// FLATTENER
// =============================================================================

// FlattenBoard flattens one department's week board into stable
// per-task records.
func FlattenBoard(board *WeekBoard) (*FlatSet, error) {
	if board == nil {
		return nil, &StructuralError{Path: "(root)", Reason: "board is nil"}
	}
	if board.Department == "" {
		return nil, &StructuralError{Path: "(root)", Reason: "department is empty"}
	}

	set := NewFlatSet()

	for di, day := range board.Days {
		if day.Date.IsZero() {
			return nil, &StructuralError{
				Path:   fmt.Sprintf("%s/days[%d]", board.Department, di),
				Reason: "day has no date",
			}
		}
		for ci, cell := range day.Cells {
			path := fmt.Sprintf("%s/%s/cells[%d]", board.Department, day.Date, ci)

			sections := []struct {
				entries []TaskEntry
				source  SourceKind
				slot    Slot
			}{
				{cell.ProjectAM, SourceProject, SlotAM},
				{cell.ProjectPM, SourceProject, SlotPM},
				{cell.System, SourceSystem, SlotNone},
				{cell.Fast, SourceFast, SlotNone},
			}

			for _, sec := range sections {
				for _, entry := range sec.entries {
					if err := set.absorb(entry, sec.source, day.Date, sec.slot, cell.Assignee, path); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return set, nil
}

// absorb merges one cell-level entry into the set.
func (s *FlatSet) absorb(entry TaskEntry, source SourceKind, day schedule.Date, slot Slot, assignee schedule.AssigneeID, path string) error {
	key, err := entryKey(entry, source, path)
	if err != nil {
		return err
	}

	rec, exists := s.records[key]
	if !exists {
		rec = &FlatTaskRecord{
			Key:    key,
			Title:  entry.Title,
			Source: source,
		}
		s.records[key] = rec
		s.order = append(s.order, key)
	}

	rec.Occurrences = append(rec.Occurrences, TaskOccurrence{
		Day:      day,
		Slot:     slot,
		Assignee: assignee,
	})

	if assignee != "" && !containsAssignee(rec.Assignees, assignee) {
		rec.Assignees = append(rec.Assignees, assignee)
	}

	// Any completed representation marks the whole record completed.
	if entry.Completed || entry.Status == TaskDone {
		rec.Completed = true
	}
	// Most recent non-empty observation wins.
	if entry.Status != "" {
		rec.Status = entry.Status
	}

	return nil
}

// entryKey derives the task's identity: stable id when present, else
// the fallback key over normalized title + source kind.
func entryKey(entry TaskEntry, source SourceKind, path string) (MatchKey, error) {
	if entry.ID != "" {
		return IDKey(entry.ID), nil
	}
	if NormalizeTitle(entry.Title) == "" {
		return MatchKey{}, &IdentityError{Path: path}
	}
	return FallbackKey(entry.Title, source), nil
}

func containsAssignee(list []schedule.AssigneeID, a schedule.AssigneeID) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
