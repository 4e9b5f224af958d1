/*
ledger_test.go - Occurrence materialization invariants

PURPOSE:
  These tests serve as EXECUTABLE SPECIFICATIONS of the ledger design.
  The crucial ones are the idempotency tests: a periodic fill must be
  able to run over the same window any number of times, concurrently,
  without duplicating rows or resetting anyone's recorded work.
*/
package schedule_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsduty/duty-engine/schedule"
	"github.com/opsduty/duty-engine/schedule/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T, templates ...schedule.RecurrenceTemplate) *schedule.OccurrenceLedger {
	t.Helper()

	tpl := store.NewTemplateMemory()
	for _, tmpl := range templates {
		require.NoError(t, tpl.Save(context.Background(), tmpl))
	}
	return schedule.NewOccurrenceLedger(store.NewMemory(), tpl)
}

func dailyTemplate(id string, assignees ...schedule.AssigneeID) schedule.RecurrenceTemplate {
	return schedule.RecurrenceTemplate{
		ID:        schedule.TemplateID(id),
		Name:      id,
		Frequency: schedule.FreqDaily,
		Assignees: assignees,
		Active:    true,
	}
}

// =============================================================================
// IDEMPOTENT FILL
// =============================================================================

func TestEnsureOccurrences_FillsRangeOnce(t *testing.T) {
	// GIVEN: One daily template with one assignee
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	start := schedule.NewDate(2026, time.March, 2)
	end := start.AddDays(6)

	// WHEN: Filling a seven day window
	inserted, err := ledger.EnsureOccurrencesInRange(context.Background(), start, end, nil)
	require.NoError(t, err)

	// THEN: One row per day, all OPEN
	assert.Equal(t, 7, inserted)
	occs, err := ledger.Occurrences.ListRange(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, occs, 7)
	for _, occ := range occs {
		assert.Equal(t, schedule.StatusOpen, occ.Status)
		assert.NotEmpty(t, occ.ID)
	}
}

func TestEnsureOccurrences_SecondFillIsNoOp(t *testing.T) {
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	start := schedule.NewDate(2026, time.March, 2)
	end := start.AddDays(6)
	ctx := context.Background()

	// GIVEN: A window already filled
	_, err := ledger.EnsureOccurrencesInRange(ctx, start, end, nil)
	require.NoError(t, err)

	// WHEN: Filling the identical window again
	inserted, err := ledger.EnsureOccurrencesInRange(ctx, start, end, nil)
	require.NoError(t, err)

	// THEN: Nothing new is created
	assert.Equal(t, 0, inserted)
	occs, err := ledger.Occurrences.ListRange(ctx, start, end)
	require.NoError(t, err)
	assert.Len(t, occs, 7)
}

func TestEnsureOccurrences_RefillDoesNotResetStatus(t *testing.T) {
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	start := schedule.NewDate(2026, time.March, 2)
	end := start.AddDays(6)
	ctx := context.Background()

	// GIVEN: A filled window with one occurrence marked DONE
	_, err := ledger.EnsureOccurrencesInRange(ctx, start, end, nil)
	require.NoError(t, err)
	require.NoError(t, ledger.SetStatus(ctx, "standup", "alice", start, schedule.StatusDone, "shipped"))

	// WHEN: The periodic fill runs again over the same window
	_, err = ledger.EnsureOccurrencesInRange(ctx, start, end, nil)
	require.NoError(t, err)

	// THEN: The recorded work survives
	occ, err := ledger.Occurrences.Get(ctx, schedule.OccurrenceKey{
		TemplateID: "standup", AssigneeID: "alice", Date: start,
	})
	require.NoError(t, err)
	require.NotNil(t, occ)
	assert.Equal(t, schedule.StatusDone, occ.Status)
	assert.Equal(t, "shipped", occ.Comment)
	assert.NotNil(t, occ.ActedAt)
}

func TestEnsureOccurrences_CancelledContext(t *testing.T) {
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	start := schedule.NewDate(2026, time.March, 2)

	// GIVEN: A context cancelled before the fill starts
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// WHEN: Filling a window
	_, err := ledger.EnsureOccurrencesInRange(ctx, start, start.AddDays(6), nil)

	// THEN: The fill stops; an abandoned fill is safe to resume later
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	inserted, err := ledger.EnsureOccurrencesInRange(context.Background(), start, start.AddDays(6), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, inserted)
}

func TestEnsureOccurrences_OverlappingWindowsTopUp(t *testing.T) {
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	ctx := context.Background()
	start := schedule.NewDate(2026, time.March, 2)

	// GIVEN: Days 0..6 filled
	_, err := ledger.EnsureOccurrencesInRange(ctx, start, start.AddDays(6), nil)
	require.NoError(t, err)

	// WHEN: Filling the overlapping window 4..10
	inserted, err := ledger.EnsureOccurrencesInRange(ctx, start.AddDays(4), start.AddDays(10), nil)
	require.NoError(t, err)

	// THEN: Only the four genuinely new days are inserted
	assert.Equal(t, 4, inserted)
}

func TestEnsureOccurrences_ConcurrentFillsProduceExactRowSet(t *testing.T) {
	// GIVEN: A shared ledger and window
	ledger := newTestLedger(t, dailyTemplate("standup", "alice", "bob"))
	ctx := context.Background()
	start := schedule.NewDate(2026, time.March, 2)
	end := start.AddDays(13)

	// WHEN: Several fills race over the same window
	var wg sync.WaitGroup
	totals := make([]int, 8)
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			totals[i], errs[i] = ledger.EnsureOccurrencesInRange(ctx, start, end, nil)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// THEN: Exactly 14 days x 2 assignees rows exist, counted once
	// across all racers
	occs, err := ledger.Occurrences.ListRange(ctx, start, end)
	require.NoError(t, err)
	assert.Len(t, occs, 28)

	sum := 0
	for _, n := range totals {
		sum += n
	}
	assert.Equal(t, 28, sum, "insertions must be counted exactly once across racers")
}

func TestEnsureOccurrences_InvalidRange(t *testing.T) {
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	start := schedule.NewDate(2026, time.March, 9)

	_, err := ledger.EnsureOccurrencesInRange(context.Background(), start, start.AddDays(-1), nil)
	require.Error(t, err)
	assert.True(t, schedule.IsClientError(err))
}

// =============================================================================
// ASSIGNEE RESOLUTION
// =============================================================================

func TestEnsureOccurrences_FanOutPerAssignee(t *testing.T) {
	// GIVEN: A template shared by two assignees
	ledger := newTestLedger(t, dailyTemplate("handover", "alice", "bob"))
	day := schedule.NewDate(2026, time.March, 2)

	inserted, err := ledger.EnsureOccurrencesInRange(context.Background(), day, day, nil)
	require.NoError(t, err)

	// THEN: One row per assignee, independently actionable
	assert.Equal(t, 2, inserted)
}

func TestEnsureOccurrences_DefaultAssigneeFallback(t *testing.T) {
	// GIVEN: A template with no assignees and a ledger-level default
	ledger := newTestLedger(t, dailyTemplate("sweep"))
	ledger.DefaultAssignee = "ops-oncall"
	day := schedule.NewDate(2026, time.March, 2)
	ctx := context.Background()

	inserted, err := ledger.EnsureOccurrencesInRange(ctx, day, day, nil)
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	occ, err := ledger.Occurrences.Get(ctx, schedule.OccurrenceKey{
		TemplateID: "sweep", AssigneeID: "ops-oncall", Date: day,
	})
	require.NoError(t, err)
	require.NotNil(t, occ)
}

func TestEnsureOccurrences_NoAssigneeNoDefault_SkipsQuietly(t *testing.T) {
	// GIVEN: A template with nobody to fall to
	ledger := newTestLedger(t, dailyTemplate("orphan"))
	day := schedule.NewDate(2026, time.March, 2)

	// THEN: No rows and no error; the duty simply isn't materialized yet
	inserted, err := ledger.EnsureOccurrencesInRange(context.Background(), day, day, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestEnsureOccurrences_FilterNarrowsFill(t *testing.T) {
	ledger := newTestLedger(t,
		dailyTemplate("standup", "alice"),
		dailyTemplate("backup", "bob"),
	)
	day := schedule.NewDate(2026, time.March, 2)

	inserted, err := ledger.EnsureOccurrencesInRange(context.Background(), day, day,
		func(t schedule.RecurrenceTemplate) bool { return t.ID == "backup" })
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestEnsureOccurrences_InactiveTemplateIgnored(t *testing.T) {
	tpl := dailyTemplate("retired", "alice")
	tpl.Active = false
	ledger := newTestLedger(t, tpl)
	day := schedule.NewDate(2026, time.March, 2)

	inserted, err := ledger.EnsureOccurrencesInRange(context.Background(), day, day, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

// =============================================================================
// STATUS CHANGES
// =============================================================================

func TestSetStatus_UnknownStatusRejected(t *testing.T) {
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	day := schedule.NewDate(2026, time.March, 2)

	err := ledger.SetStatus(context.Background(), "standup", "alice", day, "MAYBE", "")
	require.Error(t, err)
	assert.True(t, schedule.IsClientError(err))
}

func TestSetStatus_MissingRowRejected(t *testing.T) {
	// GIVEN: An empty ledger; ensure has not run
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	day := schedule.NewDate(2026, time.March, 2)

	// WHEN: Setting status on a row that was never materialized
	err := ledger.SetStatus(context.Background(), "standup", "alice", day, schedule.StatusDone, "")

	// THEN: A not-found client fault, never an implicit insert
	require.Error(t, err)
	assert.True(t, schedule.IsNotFound(err))
	assert.True(t, schedule.IsClientError(err))
}

func TestSetStatus_ReopenClearsActedAt(t *testing.T) {
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	ctx := context.Background()
	day := schedule.NewDate(2026, time.March, 2)

	_, err := ledger.EnsureOccurrencesInRange(ctx, day, day, nil)
	require.NoError(t, err)

	// GIVEN: A DONE occurrence with a timestamp
	require.NoError(t, ledger.SetStatus(ctx, "standup", "alice", day, schedule.StatusDone, ""))

	// WHEN: Reopening it
	require.NoError(t, ledger.SetStatus(ctx, "standup", "alice", day, schedule.StatusOpen, ""))

	// THEN: The acted-at stamp is gone
	occ, err := ledger.Occurrences.Get(ctx, schedule.OccurrenceKey{
		TemplateID: "standup", AssigneeID: "alice", Date: day,
	})
	require.NoError(t, err)
	require.NotNil(t, occ)
	assert.Equal(t, schedule.StatusOpen, occ.Status)
	assert.Nil(t, occ.ActedAt)
}

func TestSetStatus_StampsActedAtFromClock(t *testing.T) {
	ledger := newTestLedger(t, dailyTemplate("standup", "alice"))
	frozen := time.Date(2026, time.March, 2, 17, 30, 0, 0, time.UTC)
	ledger.Now = func() time.Time { return frozen }
	ctx := context.Background()
	day := schedule.NewDate(2026, time.March, 2)

	_, err := ledger.EnsureOccurrencesInRange(ctx, day, day, nil)
	require.NoError(t, err)
	require.NoError(t, ledger.SetStatus(ctx, "standup", "alice", day, schedule.StatusSkipped, "on leave"))

	occ, err := ledger.Occurrences.Get(ctx, schedule.OccurrenceKey{
		TemplateID: "standup", AssigneeID: "alice", Date: day,
	})
	require.NoError(t, err)
	require.NotNil(t, occ)
	require.NotNil(t, occ.ActedAt)
	assert.True(t, occ.ActedAt.Equal(frozen))
	assert.Equal(t, "on leave", occ.Comment)
}

// =============================================================================
// REOPEN RULE
// =============================================================================

func TestShouldReopen_EarlierCalendarDay(t *testing.T) {
	ledger := newTestLedger(t)
	tpl := dailyTemplate("standup", "alice")
	now := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

	// GIVEN: A mirror completed yesterday evening
	yesterday := time.Date(2026, time.March, 2, 23, 50, 0, 0, time.UTC)
	mirror := schedule.TaskMirror{Status: schedule.MirrorDone, CompletedAt: &yesterday}

	// THEN: It reopens; the completion day is strictly earlier
	assert.True(t, ledger.ShouldReopen(mirror, tpl, now))
}

func TestShouldReopen_SameDayCompletionStaysClosed(t *testing.T) {
	ledger := newTestLedger(t)
	tpl := dailyTemplate("standup", "alice")
	now := time.Date(2026, time.March, 3, 23, 0, 0, 0, time.UTC)

	// GIVEN: A mirror completed this morning
	thisMorning := time.Date(2026, time.March, 3, 0, 10, 0, 0, time.UTC)
	mirror := schedule.TaskMirror{Status: schedule.MirrorDone, CompletedAt: &thisMorning}

	// THEN: Same calendar day, even 23 hours apart, never reopens
	assert.False(t, ledger.ShouldReopen(mirror, tpl, now))
}

func TestShouldReopen_GuardConditions(t *testing.T) {
	ledger := newTestLedger(t)
	now := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	active := dailyTemplate("standup", "alice")
	inactive := dailyTemplate("standup", "alice")
	inactive.Active = false

	// Inactive template never reopens
	done := schedule.TaskMirror{Status: schedule.MirrorDone, CompletedAt: &yesterday}
	assert.False(t, ledger.ShouldReopen(done, inactive, now))

	// A mirror still in todo has nothing to reopen
	todo := schedule.TaskMirror{Status: schedule.MirrorTodo, CompletedAt: &yesterday}
	assert.False(t, ledger.ShouldReopen(todo, active, now))

	// No completion stamp: cannot prove it wasn't completed today
	unstamped := schedule.TaskMirror{Status: schedule.MirrorDone}
	assert.False(t, ledger.ShouldReopen(unstamped, active, now))

	// Cancelled mirrors reopen just like done ones
	cancelled := schedule.TaskMirror{Status: schedule.MirrorCancelled, CompletedAt: &yesterday}
	assert.True(t, ledger.ShouldReopen(cancelled, active, now))
}

// =============================================================================
// TEMPLATE REMOVAL CASCADE
// =============================================================================

func TestRemoveTemplate_CascadesOccurrences(t *testing.T) {
	ledger := newTestLedger(t,
		dailyTemplate("standup", "alice"),
		dailyTemplate("backup", "bob"),
	)
	ctx := context.Background()
	start := schedule.NewDate(2026, time.March, 2)
	end := start.AddDays(4)

	_, err := ledger.EnsureOccurrencesInRange(ctx, start, end, nil)
	require.NoError(t, err)

	// WHEN: Removing one template
	removed, err := ledger.RemoveTemplate(ctx, "standup")
	require.NoError(t, err)
	assert.Equal(t, 5, removed)

	// THEN: Its rows are gone, the other template's remain, and a
	// subsequent fill does not resurrect it
	occs, err := ledger.Occurrences.ListRange(ctx, start, end)
	require.NoError(t, err)
	assert.Len(t, occs, 5)
	for _, occ := range occs {
		assert.Equal(t, schedule.TemplateID("backup"), occ.TemplateID)
	}

	inserted, err := ledger.EnsureOccurrencesInRange(ctx, start, end, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestRemoveTemplate_UnknownTemplate(t *testing.T) {
	ledger := newTestLedger(t)

	_, err := ledger.RemoveTemplate(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, schedule.IsNotFound(err))
}
