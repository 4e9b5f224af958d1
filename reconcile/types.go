/*
Package reconcile compares a week's planned task layout against what
actually happened, per person.

PURPOSE:
  This package flattens the nested weekly planning structure
  (department -> day -> assignee -> AM/PM slots) into stable per-task
  records, matches planned against actual by identity, classifies every
  task into one of six outcome buckets, and re-partitions the result by
  assignee. All stages are pure transforms over already-fetched data:
  no I/O, no clocks, no shared mutable state.

KEY CONCEPTS IN THIS FILE (types.go):
  - MatchKey: Tagged identity - a stable id, or a derived fallback key
  - WeekBoard: The nested weekly structure for one department
  - FlatTaskRecord: One task collapsed across all its day/slot cells
  - Buckets: The six classification outcomes
  - AssigneeGroup: One person's self-contained view of the buckets

IDENTITY:
  A task with a stable id is the same task wherever it appears in the
  week. Without one, a deterministic fallback key derived from the
  normalized title and source kind plays the same role, so repeated ad
  hoc entries merge instead of duplicating. The two identity kinds are
  distinct variants; callers cannot conflate them.

SEE ALSO:
  - flatten.go: Nested board -> flat records
  - classify.go: Planned vs actual -> six buckets
  - group.go: Buckets -> per-assignee groups
  - report.go: Aggregate tallies
*/
package reconcile

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/opsduty/duty-engine/schedule"
)

// =============================================================================
// MATCH KEY - Tagged identity for correlating planned and actual tasks
// =============================================================================

type matchKeyKind int

const (
	keyStableID matchKeyKind = iota
	keyFallback
)

// MatchKey correlates a task between planned and actual data. It is
// either a stable task id or a fallback hash; the two kinds never
// compare equal even for identical underlying strings.
type MatchKey struct {
	kind  matchKeyKind
	value string
}

// IDKey builds the identity for a task with a stable id.
func IDKey(id string) MatchKey {
	return MatchKey{kind: keyStableID, value: id}
}

// FallbackKey builds the weak identity for a task without a stable id:
// a hash of the normalized title plus the source kind. Two entries with
// the same normalized title but different source kinds get different
// keys.
func FallbackKey(title string, source SourceKind) MatchKey {
	h := fnv.New64a()
	h.Write([]byte(NormalizeTitle(title)))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return MatchKey{kind: keyFallback, value: fmt.Sprintf("%016x", h.Sum64())}
}

// IsFallback reports whether this is a derived weak identity.
func (k MatchKey) IsFallback() bool { return k.kind == keyFallback }

// IsZero reports whether the key is unset.
func (k MatchKey) IsZero() bool { return k.value == "" }

func (k MatchKey) String() string {
	if k.kind == keyFallback {
		return "fallback:" + k.value
	}
	return "id:" + k.value
}

// NormalizeTitle lowercases and collapses whitespace so cosmetic
// differences don't split fallback identities.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// =============================================================================
// SOURCE KIND, SLOT, TASK STATUS
// =============================================================================

type SourceKind string

const (
	SourceProject SourceKind = "project"
	SourceFast    SourceKind = "fast"
	SourceSystem  SourceKind = "system"
)

// Slot is the AM or PM half of a working day. System and fast tasks
// are day-level entries and carry SlotNone.
type Slot string

const (
	SlotAM   Slot = "am"
	SlotPM   Slot = "pm"
	SlotNone Slot = ""
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

// =============================================================================
// WEEK BOARD - Nested weekly structure (one department)
// =============================================================================

// TaskEntry is one task as it appears in one cell of the board.
type TaskEntry struct {
	// ID is the stable task id; empty for ad hoc entries.
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`

	Status      TaskStatus `json:"status,omitempty"`
	Completed   bool       `json:"completed,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AssigneeCell holds one assignee's tasks for one day.
type AssigneeCell struct {
	Assignee schedule.AssigneeID `json:"assignee"`

	ProjectAM []TaskEntry `json:"project_am,omitempty"`
	ProjectPM []TaskEntry `json:"project_pm,omitempty"`
	System    []TaskEntry `json:"system,omitempty"`
	Fast      []TaskEntry `json:"fast,omitempty"`
}

// DayBoard holds all assignee cells for one day.
type DayBoard struct {
	Date  schedule.Date  `json:"date"`
	Cells []AssigneeCell `json:"cells"`
}

// WeekBoard is the nested weekly structure for one department.
// Per-department boards are independent; comparisons over several
// departments may run in parallel.
type WeekBoard struct {
	Department string        `json:"department"`
	WeekStart  schedule.Date `json:"week_start"`
	Days       []DayBoard    `json:"days"`
}

// =============================================================================
// FLAT TASK RECORD - Derived, not persisted
// =============================================================================

// TaskOccurrence is one (day, slot, assignee) appearance of a task.
type TaskOccurrence struct {
	Day      schedule.Date       `json:"day"`
	Slot     Slot                `json:"slot,omitempty"`
	Assignee schedule.AssigneeID `json:"assignee"`
}

// FlatTaskRecord is one logical task collapsed across every cell it
// appears in during the week.
type FlatTaskRecord struct {
	Key    MatchKey
	Title  string
	Source SourceKind

	// Status is the most recently encountered non-empty observation;
	// Completed is true if any representation reported completion.
	Status    TaskStatus
	Completed bool

	// Assignees in first-encounter order, deduplicated.
	Assignees []schedule.AssigneeID

	// Occurrences in encounter order, one per cell appearance.
	Occurrences []TaskOccurrence
}

// LastPlannedDay returns the latest day among the record's occurrences,
// or the zero Date when it has none.
func (r FlatTaskRecord) LastPlannedDay() schedule.Date {
	var last schedule.Date
	for _, occ := range r.Occurrences {
		if last.IsZero() || occ.Day.After(last) {
			last = occ.Day
		}
	}
	return last
}

// =============================================================================
// BUCKETS - The six classification outcomes
// =============================================================================

type Bucket string

const (
	BucketCompleted  Bucket = "completed"
	BucketInProgress Bucket = "in_progress"
	BucketPending    Bucket = "pending"
	BucketLate       Bucket = "late"
	BucketAdditional Bucket = "additional"
	BucketRemoved    Bucket = "removed_or_canceled"
)

// Buckets holds the classified records. Each match key from
// planned union actual lands in exactly one slice.
type Buckets struct {
	Completed  []FlatTaskRecord
	InProgress []FlatTaskRecord
	Pending    []FlatTaskRecord
	Late       []FlatTaskRecord
	Additional []FlatTaskRecord
	Removed    []FlatTaskRecord
}

// Total returns the number of classified records across all buckets.
func (b *Buckets) Total() int {
	return len(b.Completed) + len(b.InProgress) + len(b.Pending) +
		len(b.Late) + len(b.Additional) + len(b.Removed)
}

// =============================================================================
// ASSIGNEE GROUP
// =============================================================================

// AssigneeGroup is one person's self-contained slice of all six
// buckets. The zero Assignee is the synthetic "Unassigned" group.
type AssigneeGroup struct {
	Assignee schedule.AssigneeID
	Buckets  Buckets
}

// Label returns the display identity of the group.
func (g AssigneeGroup) Label() string {
	if g.Assignee == "" {
		return "Unassigned"
	}
	return string(g.Assignee)
}
