/*
classify_test.go - Bucket classification behavior

PURPOSE:
  These tests serve as EXECUTABLE SPECIFICATIONS of the classifier.
  Each one pins a rule: the completed > in_progress > late > pending
  precedence, uncompleted work staying pending until the week closes,
  the week-over promotion to late, and the planned/actual set
  difference producing the additional and removed buckets.

READING THESE TESTS:
  Each test has:
  - A descriptive name that states the behavior
  - GIVEN/WHEN/THEN comments explaining the scenario
  - Clear assertions with explanatory messages
*/
package reconcile_test

import (
	"testing"

	"github.com/opsduty/duty-engine/reconcile"
	"github.com/opsduty/duty-engine/schedule"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

// flatten builds a FlatSet from single-appearance entries placed on the
// given days of the test week.
func flatten(t *testing.T, entries ...plannedEntry) *reconcile.FlatSet {
	t.Helper()

	board := &reconcile.WeekBoard{
		Department: "ops",
		WeekStart:  day(0),
	}
	for _, e := range entries {
		board.Days = append(board.Days, reconcile.DayBoard{
			Date: day(e.day),
			Cells: []reconcile.AssigneeCell{{
				Assignee: e.assignee,
				ProjectAM: []reconcile.TaskEntry{{
					ID:        e.id,
					Title:     e.title,
					Status:    e.status,
					Completed: e.completed,
				}},
			}},
		})
	}

	set, err := reconcile.FlattenBoard(board)
	if err != nil {
		t.Fatalf("flattening test board: %v", err)
	}
	return set
}

type plannedEntry struct {
	id        string
	title     string
	day       int
	assignee  schedule.AssigneeID
	status    reconcile.TaskStatus
	completed bool
}

func classify(t *testing.T, planned, actual *reconcile.FlatSet, asOfDay int) *reconcile.Buckets {
	t.Helper()

	weekEnd := day(6)
	buckets, err := reconcile.Classify(planned, actual, weekEnd, day(asOfDay))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	return buckets
}

// =============================================================================
// PRECEDENCE
// =============================================================================

func TestClassify_CompletedBeatsEverything(t *testing.T) {
	// GIVEN: A task planned Monday, completed, viewed on Friday
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 0, assignee: "alice"})
	actual := flatten(t, plannedEntry{id: "x", title: "T", day: 0, assignee: "alice", status: reconcile.TaskDone, completed: true})

	buckets := classify(t, planned, actual, 4)

	// THEN: Completed, even though its planned day is long past
	if len(buckets.Completed) != 1 {
		t.Fatalf("expected 1 completed, got %+v", buckets)
	}
	if len(buckets.Late) != 0 {
		t.Errorf("a completed task must never be late")
	}
}

func TestClassify_MondayTodoMidWeekStaysPending(t *testing.T) {
	// GIVEN: A Monday task still todo, in a week ending Friday
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 0, assignee: "alice"})
	actual := flatten(t, plannedEntry{id: "x", title: "T", day: 0, assignee: "alice", status: reconcile.TaskTodo})
	weekEnd := day(4)

	// WHEN: Viewed on Tuesday, mid-week
	buckets, err := reconcile.Classify(planned, actual, weekEnd, day(1))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	// THEN: Pending, never late; the week isn't over and the work can
	// still land on time
	if len(buckets.Pending) != 1 {
		t.Fatalf("expected 1 pending, got %+v", buckets)
	}
	if len(buckets.Late) != 0 {
		t.Error("an earlier-day task must not be late mid-week")
	}

	// WHEN: Viewed on Friday, the week's end
	buckets, err = reconcile.Classify(planned, actual, weekEnd, day(4))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	// THEN: Late; the week is over and the task never got done
	if len(buckets.Late) != 1 {
		t.Fatalf("expected 1 late at week's end, got %+v", buckets)
	}
}

func TestClassify_SameDayTodoStaysPending(t *testing.T) {
	// GIVEN: A Tuesday task still todo when viewed on Tuesday
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 1, assignee: "alice"})
	actual := flatten(t, plannedEntry{id: "x", title: "T", day: 1, assignee: "alice", status: reconcile.TaskTodo})

	buckets := classify(t, planned, actual, 1)

	// THEN: Pending; the day isn't over, so the work isn't overdue
	if len(buckets.Pending) != 1 {
		t.Fatalf("expected 1 pending, got %+v", buckets)
	}
	if len(buckets.Late) != 0 {
		t.Error("same-day work must not be late")
	}
}

func TestClassify_FutureTodoStaysPending(t *testing.T) {
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 4, assignee: "alice"})
	actual := flatten(t, plannedEntry{id: "x", title: "T", day: 4, assignee: "alice", status: reconcile.TaskTodo})

	buckets := classify(t, planned, actual, 1)

	if len(buckets.Pending) != 1 {
		t.Fatalf("expected 1 pending, got %+v", buckets)
	}
}

func TestClassify_InProgressStaysInProgressMidWeek(t *testing.T) {
	// GIVEN: A Monday task in progress when viewed on Thursday
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 0, assignee: "alice"})
	actual := flatten(t, plannedEntry{id: "x", title: "T", day: 0, assignee: "alice", status: reconcile.TaskInProgress})

	buckets := classify(t, planned, actual, 3)

	// THEN: In progress; someone is actively on it and the week isn't
	// over yet
	if len(buckets.InProgress) != 1 {
		t.Fatalf("expected 1 in_progress, got %+v", buckets)
	}
}

func TestClassify_EmptyStatusNeverCountsAsCompleted(t *testing.T) {
	// GIVEN: An actual record with no status information at all
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 3, assignee: "alice"})
	actual := flatten(t, plannedEntry{id: "x", title: "T", day: 3, assignee: "alice"})

	buckets := classify(t, planned, actual, 1)

	// THEN: Indeterminate falls to pending, never completed
	if len(buckets.Completed) != 0 {
		t.Error("indeterminate status must not classify as completed")
	}
	if len(buckets.Pending) != 1 {
		t.Fatalf("expected 1 pending, got %+v", buckets)
	}
}

// =============================================================================
// WEEK-OVER PROMOTION
// =============================================================================

func TestClassify_WeekOverPromotesPendingToLate(t *testing.T) {
	// GIVEN: A Friday task still todo, viewed the following Monday
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 4, assignee: "alice"})
	actual := flatten(t, plannedEntry{id: "x", title: "T", day: 4, assignee: "alice", status: reconcile.TaskTodo})

	buckets := classify(t, planned, actual, 7)

	// THEN: Late; the week is over, nothing inside it can stay pending
	if len(buckets.Late) != 1 {
		t.Fatalf("expected 1 late, got %+v", buckets)
	}
}

func TestClassify_WeekOverPromotesInProgressToLate(t *testing.T) {
	// GIVEN: An in-progress task, viewed after the week closed
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 2, assignee: "alice"})
	actual := flatten(t, plannedEntry{id: "x", title: "T", day: 2, assignee: "alice", status: reconcile.TaskInProgress})

	buckets := classify(t, planned, actual, 7)

	// THEN: Even in-progress work is late once the week is over
	if len(buckets.Late) != 1 {
		t.Fatalf("expected 1 late, got %+v", buckets)
	}
	if len(buckets.InProgress) != 0 {
		t.Error("in_progress must be promoted once the week closes")
	}
}

// =============================================================================
// SET DIFFERENCE
// =============================================================================

func TestClassify_ActualOnlyIsAdditional(t *testing.T) {
	// GIVEN: Work performed that was never planned
	planned := flatten(t)
	actual := flatten(t, plannedEntry{id: "hotfix", title: "Hotfix", day: 2, assignee: "bob", status: reconcile.TaskDone, completed: true})

	buckets := classify(t, planned, actual, 4)

	if len(buckets.Additional) != 1 {
		t.Fatalf("expected 1 additional, got %+v", buckets)
	}
	if len(buckets.Completed) != 0 {
		t.Error("unplanned work belongs to additional, not completed")
	}
}

func TestClassify_PlannedOnlyIsRemoved(t *testing.T) {
	// GIVEN: Planned work that vanished from the actual board
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 0, assignee: "alice"})
	actual := flatten(t)

	buckets := classify(t, planned, actual, 4)

	if len(buckets.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %+v", buckets)
	}
}

func TestClassify_MergedRecordKeepsPlannedAttribution(t *testing.T) {
	// GIVEN: Planned for alice; the actual board shows bob finishing it
	planned := flatten(t, plannedEntry{id: "x", title: "T", day: 0, assignee: "alice"})
	actual := flatten(t, plannedEntry{id: "x", title: "T", day: 0, assignee: "bob", status: reconcile.TaskDone, completed: true})

	buckets := classify(t, planned, actual, 4)

	// THEN: The record is completed but attributed to the planned owner
	if len(buckets.Completed) != 1 {
		t.Fatalf("expected 1 completed, got %+v", buckets)
	}
	rec := buckets.Completed[0]
	if len(rec.Assignees) != 1 || rec.Assignees[0] != "alice" {
		t.Errorf("merged record must keep planned attribution, got %v", rec.Assignees)
	}
}

// =============================================================================
// PARTITION PROPERTY
// =============================================================================

func TestClassify_EveryKeyLandsInExactlyOneBucket(t *testing.T) {
	// GIVEN: A mix of shared, planned-only and actual-only keys
	planned := flatten(t,
		plannedEntry{id: "done", title: "A", day: 0, assignee: "alice"},
		plannedEntry{id: "wip", title: "B", day: 0, assignee: "alice"},
		plannedEntry{id: "pend", title: "C", day: 5, assignee: "bob"},
		plannedEntry{id: "gone", title: "D", day: 1, assignee: "bob"},
	)
	actual := flatten(t,
		plannedEntry{id: "done", title: "A", day: 0, assignee: "alice", status: reconcile.TaskDone, completed: true},
		plannedEntry{id: "wip", title: "B", day: 0, assignee: "alice", status: reconcile.TaskInProgress},
		plannedEntry{id: "pend", title: "C", day: 5, assignee: "bob", status: reconcile.TaskTodo},
		plannedEntry{id: "extra", title: "E", day: 2, assignee: "bob", status: reconcile.TaskDone, completed: true},
	)

	buckets := classify(t, planned, actual, 3)

	// THEN: Union of keys = 5, total classified = 5
	if got := buckets.Total(); got != 5 {
		t.Fatalf("partition broken: %d records classified, want 5", got)
	}
	if len(buckets.Completed) != 1 || len(buckets.InProgress) != 1 ||
		len(buckets.Pending) != 1 || len(buckets.Removed) != 1 ||
		len(buckets.Additional) != 1 {
		t.Errorf("unexpected distribution: %+v", buckets)
	}
}

func TestClassify_NilSetsYieldEmptyBuckets(t *testing.T) {
	buckets, err := reconcile.Classify(nil, nil, day(6), day(0))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if buckets.Total() != 0 {
		t.Errorf("expected empty buckets, got %+v", buckets)
	}
}
