package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opsduty/duty-engine/schedule"
)

// =============================================================================
// WEEK SNAPSHOT - Frozen capture of a week's task layout
// =============================================================================

type SnapshotKind string

const (
	// SnapshotPlanned is the layout frozen at the start of the week.
	SnapshotPlanned SnapshotKind = "PLANNED"
	// SnapshotFinal is the layout frozen after the week closed.
	SnapshotFinal SnapshotKind = "FINAL"
)

// WeekSnapshot is an immutable capture of one department's board,
// keyed by (department, week start, kind).
type WeekSnapshot struct {
	ID         string        `json:"id"`
	Department string        `json:"department"`
	WeekStart  schedule.Date `json:"week_start"`
	Kind       SnapshotKind  `json:"kind"`
	Board      WeekBoard     `json:"board"`
	TakenAt    time.Time     `json:"taken_at"`
}

// NewWeekSnapshot builds a capture from a board, validating the board's
// identity fields. The board content itself is stored as-is.
func NewWeekSnapshot(board WeekBoard, kind SnapshotKind, takenAt time.Time) (WeekSnapshot, error) {
	if board.Department == "" {
		return WeekSnapshot{}, &StructuralError{Path: "board.department", Reason: "empty"}
	}
	if board.WeekStart.IsZero() {
		return WeekSnapshot{}, &StructuralError{Path: "board.week_start", Reason: "missing"}
	}
	return WeekSnapshot{
		ID:         uuid.NewString(),
		Department: board.Department,
		WeekStart:  board.WeekStart,
		Kind:       kind,
		Board:      board,
		TakenAt:    takenAt,
	}, nil
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// SnapshotStore persists week snapshots as JSON documents. Saving the
// same (department, week start, kind) again replaces the capture.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap WeekSnapshot) error

	// GetSnapshot returns the snapshot, or nil when absent.
	GetSnapshot(ctx context.Context, department string, weekStart schedule.Date, kind SnapshotKind) (*WeekSnapshot, error)

	// ListWeekSnapshots returns all snapshots stored for a week, any
	// department and kind.
	ListWeekSnapshots(ctx context.Context, weekStart schedule.Date) ([]WeekSnapshot, error)
}
