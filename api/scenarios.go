/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the stores with realistic
	data for testing and demos. Each scenario creates recurrence
	templates, materialized occurrences, and week snapshots that
	demonstrate specific features.

AVAILABLE SCENARIOS:

	weekly-rotation:  Weekday duties split across a small ops team
	monthly-closing:  Month-boundary cadences (last day, first working day)
	week-in-review:   A finished week with planned and final snapshots

HOW SCENARIOS WORK:
 1. Create recurrence templates
 2. Materialize occurrences over a demo window
 3. Apply a few status changes
 4. Optionally store snapshot boards for comparison

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "weekly-rotation"}

NOTE:

	Scenarios write into the live stores. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - schedule/ledger.go: EnsureOccurrencesInRange
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opsduty/duty-engine/reconcile"
	"github.com/opsduty/duty-engine/schedule"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "weekly-rotation",
		Name:        "Weekly Rotation",
		Description: "Weekday duties split across a small ops team",
		Category:    "schedule",
	},
	{
		ID:          "monthly-closing",
		Name:        "Monthly Closing",
		Description: "Month-boundary cadences: last day and first working day",
		Category:    "schedule",
	},
	{
		ID:          "week-in-review",
		Name:        "Week In Review",
		Description: "A finished week with planned and final snapshots to compare",
		Category:    "reconcile",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error

	switch req.ScenarioID {
	case "weekly-rotation":
		err = h.loadWeeklyRotation(ctx)
	case "monthly-closing":
		err = h.loadMonthlyClosing(ctx)
	case "week-in-review":
		err = h.loadWeekInReview(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadWeeklyRotation(ctx context.Context) error {
	monday := schedule.Weekday(0)
	wednesday := schedule.Weekday(2)
	friday := schedule.Weekday(4)

	templates := []schedule.RecurrenceTemplate{
		{
			ID:        "standup-notes",
			Name:      "Publish standup notes",
			Frequency: schedule.FreqDaily,
			Assignees: []schedule.AssigneeID{"alice"},
			Active:    true,
		},
		{
			ID:         "backup-check",
			Name:       "Verify nightly backups",
			Frequency:  schedule.FreqWeekly,
			DaysOfWeek: []schedule.Weekday{monday, wednesday, friday},
			Assignees:  []schedule.AssigneeID{"bob"},
			Active:     true,
		},
		{
			ID:        "oncall-handover",
			Name:      "On-call handover",
			Frequency: schedule.FreqWeekly,
			DayOfWeek: &friday,
			Assignees: []schedule.AssigneeID{"alice", "bob"},
			Active:    true,
		},
	}
	for _, t := range templates {
		if err := h.Templates.Save(ctx, t); err != nil {
			return fmt.Errorf("saving template %s: %w", t.ID, err)
		}
	}

	start := schedule.Today()
	if _, err := h.Ledger.EnsureOccurrencesInRange(ctx, start, start.AddDays(13), nil); err != nil {
		return fmt.Errorf("materializing rotation: %w", err)
	}
	return nil
}

func (h *Handler) loadMonthlyClosing(ctx context.Context) error {
	templates := []schedule.RecurrenceTemplate{
		{
			ID:         "monthly-report",
			Name:       "Close the monthly report",
			Frequency:  schedule.FreqMonthly,
			DayOfMonth: schedule.LastDayOfMonth(),
			Assignees:  []schedule.AssigneeID{"carol"},
			Active:     true,
		},
		{
			ID:         "invoice-run",
			Name:       "Kick off invoice run",
			Frequency:  schedule.FreqMonthly,
			DayOfMonth: schedule.FirstWorkingDay(),
			Assignees:  []schedule.AssigneeID{"carol"},
			Active:     true,
		},
		{
			ID:          "quarterly-audit",
			Name:        "Access audit",
			Frequency:   schedule.FreqEvery3Months,
			DayOfMonth:  schedule.LiteralDay(15),
			MonthOfYear: time.January,
			Assignees:   []schedule.AssigneeID{"dave"},
			Active:      true,
		},
	}
	for _, t := range templates {
		if err := h.Templates.Save(ctx, t); err != nil {
			return fmt.Errorf("saving template %s: %w", t.ID, err)
		}
	}

	// Cover enough of the year to land on every cadence at least once.
	start := schedule.Today()
	if _, err := h.Ledger.EnsureOccurrencesInRange(ctx, start, start.AddMonths(4), nil); err != nil {
		return fmt.Errorf("materializing closings: %w", err)
	}
	return nil
}

func (h *Handler) loadWeekInReview(ctx context.Context) error {
	// Last week's Monday.
	weekStart := schedule.Today()
	for weekStart.Weekday() != 0 {
		weekStart = weekStart.AddDays(-1)
	}
	weekStart = weekStart.AddDays(-7)

	planned := demoBoard("ops", weekStart, false)
	actual := demoBoard("ops", weekStart, true)

	for kind, board := range map[reconcile.SnapshotKind]reconcile.WeekBoard{
		reconcile.SnapshotPlanned: planned,
		reconcile.SnapshotFinal:   actual,
	} {
		snap, err := reconcile.NewWeekSnapshot(board, kind, time.Now())
		if err != nil {
			return err
		}
		if err := h.Snapshots.SaveSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("saving %s snapshot: %w", kind, err)
		}
	}
	return nil
}

// demoBoard builds a small week board. With outcomes, task statuses
// reflect how the week actually went; without, everything is planned
// work in todo state.
func demoBoard(department string, weekStart schedule.Date, outcomes bool) reconcile.WeekBoard {
	entry := func(id, title string, done bool) reconcile.TaskEntry {
		e := reconcile.TaskEntry{ID: id, Title: title, Status: reconcile.TaskTodo}
		if outcomes && done {
			e.Status = reconcile.TaskDone
			e.Completed = true
		}
		return e
	}

	board := reconcile.WeekBoard{
		Department: department,
		WeekStart:  weekStart,
	}
	for i := 0; i < 5; i++ {
		day := weekStart.AddDays(i)
		board.Days = append(board.Days, reconcile.DayBoard{
			Date: day,
			Cells: []reconcile.AssigneeCell{
				{
					Assignee:  "alice",
					ProjectAM: []reconcile.TaskEntry{entry(fmt.Sprintf("rollout-%d", i), "Staged rollout", i < 3)},
					System:    []reconcile.TaskEntry{entry("", "Rotate pager", true)},
				},
				{
					Assignee: "bob",
					ProjectPM: []reconcile.TaskEntry{
						entry(fmt.Sprintf("migration-%d", i), "Schema migration", i%2 == 0),
					},
				},
			},
		})
	}

	// The actual board picked up work nobody planned.
	if outcomes {
		board.Days[4].Cells[1].Fast = []reconcile.TaskEntry{
			{Title: "Hotfix flaky alert", Status: reconcile.TaskDone, Completed: true},
		}
	}
	return board
}
