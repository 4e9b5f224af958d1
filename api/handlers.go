/*
handlers.go - HTTP API handlers for the duty roster engine

PURPOSE:
  Exposes the recurrence scheduling and reconciliation engines via REST
  API. Handles HTTP request/response, JSON serialization, and delegates
  to domain logic.

ENDPOINTS:
  Templates:
    GET    /api/templates              List all templates
    POST   /api/templates              Create or replace a template
    GET    /api/templates/{id}         Get template details
    DELETE /api/templates/{id}         Deactivate and cascade-delete rows

  Occurrences:
    POST   /api/occurrences/ensure     Materialize rows for a date range
    PUT    /api/occurrences/status     Change one occurrence's status
    GET    /api/occurrences            List rows in a range

  Weeks:
    GET    /api/weeks/{weekStart}/comparison  Compare stored snapshots
    POST   /api/weeks/{weekStart}/comparison  Compare ad hoc boards
    POST   /api/weeks/snapshot                Store a board capture
    GET    /api/weeks/{weekStart}/snapshots   List stored captures

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, comparison pipeline)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed boards, unknown statuses
  - 404: Missing occurrence or template
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opsduty/duty-engine/reconcile"
	"github.com/opsduty/duty-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Occurrences schedule.OccurrenceStore
	Templates   schedule.TemplateStore
	Snapshots   reconcile.SnapshotStore
	Ledger      *schedule.OccurrenceLedger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler over the given stores.
func NewHandler(occ schedule.OccurrenceStore, tpl schedule.TemplateStore, snaps reconcile.SnapshotStore) *Handler {
	return &Handler{
		Occurrences: occ,
		Templates:   tpl,
		Snapshots:   snaps,
		Ledger:      schedule.NewOccurrenceLedger(occ, tpl),
	}
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

// ListTemplates returns all templates, active or not.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Templates.ListTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates", err)
		return
	}

	dtos := make([]TemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = toTemplateDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTemplate returns a single template.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := schedule.TemplateID(chi.URLParam(r, "id"))

	t, err := h.Templates.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get template", err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(*t))
}

// SaveTemplate creates or replaces a template.
func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req SaveTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	freq := schedule.Frequency(req.Frequency)
	if !schedule.ValidFrequency(freq) {
		writeError(w, http.StatusBadRequest, "Unknown frequency: "+req.Frequency, nil)
		return
	}

	t := schedule.RecurrenceTemplate{
		ID:        schedule.TemplateID(req.ID),
		Name:      req.Name,
		Frequency: freq,
		Active:    true,
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	for _, d := range req.DaysOfWeek {
		if d < 0 || d > 6 {
			writeError(w, http.StatusBadRequest, "days_of_week entries must be 0..6 (Monday=0)", nil)
			return
		}
		t.DaysOfWeek = append(t.DaysOfWeek, schedule.Weekday(d))
	}
	if req.DayOfWeek != nil {
		if *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
			writeError(w, http.StatusBadRequest, "day_of_week must be 0..6 (Monday=0)", nil)
			return
		}
		d := schedule.Weekday(*req.DayOfWeek)
		t.DayOfWeek = &d
	}
	if req.DayOfMonth != nil {
		t.DayOfMonth = schedule.DayRuleFromSentinel(*req.DayOfMonth)
	}
	if req.MonthOfYear != 0 {
		if req.MonthOfYear < 1 || req.MonthOfYear > 12 {
			writeError(w, http.StatusBadRequest, "month_of_year must be 1..12", nil)
			return
		}
		t.MonthOfYear = time.Month(req.MonthOfYear)
	}
	for _, a := range req.Assignees {
		t.Assignees = append(t.Assignees, schedule.AssigneeID(a))
	}

	if err := h.Templates.Save(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save template", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateDTO(t))
}

// DeleteTemplate deactivates a template and removes its occurrence rows.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := schedule.TemplateID(chi.URLParam(r, "id"))

	removed, err := h.Ledger.RemoveTemplate(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to delete template", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                  string(id),
		"occurrences_removed": removed,
	})
}

// =============================================================================
// OCCURRENCE HANDLERS
// =============================================================================

// EnsureOccurrences materializes OPEN rows for every active template
// over a date range. Idempotent; repeat calls report zero insertions.
func (h *Handler) EnsureOccurrences(w http.ResponseWriter, r *http.Request) {
	var req EnsureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := schedule.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
		return
	}
	end, err := schedule.ParseDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
		return
	}

	var filter schedule.TemplateFilter
	if len(req.TemplateIDs) > 0 {
		wanted := make(map[schedule.TemplateID]bool, len(req.TemplateIDs))
		for _, id := range req.TemplateIDs {
			wanted[schedule.TemplateID(id)] = true
		}
		filter = func(t schedule.RecurrenceTemplate) bool { return wanted[t.ID] }
	}

	inserted, err := h.Ledger.EnsureOccurrencesInRange(r.Context(), start, end, filter)
	if err != nil {
		writeDomainError(w, "Failed to materialize occurrences", err)
		return
	}
	writeJSON(w, http.StatusOK, EnsureResponse{
		Inserted: inserted,
		Start:    start.String(),
		End:      end.String(),
	})
}

// SetOccurrenceStatus changes one existing occurrence's status.
func (h *Handler) SetOccurrenceStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	err = h.Ledger.SetStatus(r.Context(),
		schedule.TemplateID(req.TemplateID),
		schedule.AssigneeID(req.AssigneeID),
		date,
		schedule.OccurrenceStatus(req.Status),
		req.Comment,
	)
	if err != nil {
		writeDomainError(w, "Failed to set status", err)
		return
	}

	occ, err := h.Occurrences.Get(r.Context(), schedule.OccurrenceKey{
		TemplateID: schedule.TemplateID(req.TemplateID),
		AssigneeID: schedule.AssigneeID(req.AssigneeID),
		Date:       date,
	})
	if err != nil || occ == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceDTO(*occ))
}

// ListOccurrences returns rows in [from, to], optionally narrowed to
// one assignee.
func (h *Handler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	from, err := schedule.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := schedule.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	var occs []schedule.Occurrence
	if assignee := r.URL.Query().Get("assignee"); assignee != "" {
		occs, err = h.Occurrences.ListByAssignee(r.Context(), schedule.AssigneeID(assignee), from, to)
	} else {
		occs, err = h.Occurrences.ListRange(r.Context(), from, to)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list occurrences", err)
		return
	}

	dtos := make([]OccurrenceDTO, len(occs))
	for i, o := range occs {
		dtos[i] = toOccurrenceDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// COMPARISON HANDLERS
// =============================================================================

// GetComparison compares the stored PLANNED and FINAL snapshots for a
// week. When ?department= is absent, every department with snapshots
// for the week is compared, in parallel.
func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request) {
	weekStart, err := schedule.ParseDate(chi.URLParam(r, "weekStart"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week start (use YYYY-MM-DD)", err)
		return
	}
	weekEnd := weekStart.AddDays(6)
	asOf := h.asOf(r.URL.Query().Get("as_of"))
	if asOf.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", nil)
		return
	}

	ctx := r.Context()
	department := r.URL.Query().Get("department")

	var departments []string
	if department != "" {
		departments = []string{department}
	} else {
		snaps, err := h.Snapshots.ListWeekSnapshots(ctx, weekStart)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
			return
		}
		seen := make(map[string]bool)
		for _, s := range snaps {
			if !seen[s.Department] {
				seen[s.Department] = true
				departments = append(departments, s.Department)
			}
		}
	}

	var pairs []reconcile.BoardPair
	for _, dep := range departments {
		planned, err := h.Snapshots.GetSnapshot(ctx, dep, weekStart, reconcile.SnapshotPlanned)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load planned snapshot", err)
			return
		}
		actual, err := h.Snapshots.GetSnapshot(ctx, dep, weekStart, reconcile.SnapshotFinal)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load final snapshot", err)
			return
		}
		if planned == nil {
			writeError(w, http.StatusNotFound, "No planned snapshot for "+dep, nil)
			return
		}
		if actual == nil {
			writeError(w, http.StatusNotFound, "No final snapshot for "+dep, nil)
			return
		}
		pairs = append(pairs, reconcile.BoardPair{Planned: &planned.Board, Actual: &actual.Board})
	}
	if len(pairs) == 0 {
		writeError(w, http.StatusNotFound, "No snapshots stored for week "+weekStart.String(), nil)
		return
	}

	results, err := reconcile.CompareAll(ctx, pairs, weekEnd, asOf)
	if err != nil {
		writeDomainError(w, "Comparison failed", err)
		return
	}

	dtos := make([]ComparisonDTO, len(results))
	for i, c := range results {
		dtos[i] = toComparisonDTO(c)
	}
	if department != "" {
		writeJSON(w, http.StatusOK, dtos[0])
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CompareBoards compares two boards supplied in the request body,
// without touching stored snapshots.
func (h *Handler) CompareBoards(w http.ResponseWriter, r *http.Request) {
	weekStart, err := schedule.ParseDate(chi.URLParam(r, "weekStart"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week start (use YYYY-MM-DD)", err)
		return
	}

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Planned == nil || req.Actual == nil {
		writeError(w, http.StatusBadRequest, "planned and actual boards are required", nil)
		return
	}

	asOf := h.asOf(req.AsOf)
	if asOf.IsZero() {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", nil)
		return
	}

	result, err := reconcile.CompareWeek(req.Planned, req.Actual, weekStart.AddDays(6), asOf)
	if err != nil {
		writeDomainError(w, "Comparison failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toComparisonDTO(result))
}

// asOf parses an optional as-of date, defaulting to today. Returns the
// zero Date on a malformed value.
func (h *Handler) asOf(raw string) schedule.Date {
	if raw == "" {
		return schedule.Today()
	}
	d, err := schedule.ParseDate(raw)
	if err != nil {
		return schedule.Date{}
	}
	return d
}

// =============================================================================
// SNAPSHOT HANDLERS
// =============================================================================

// SaveSnapshot stores a board capture for later comparison.
func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Board == nil {
		writeError(w, http.StatusBadRequest, "board is required", nil)
		return
	}

	kind := reconcile.SnapshotKind(req.Kind)
	if kind != reconcile.SnapshotPlanned && kind != reconcile.SnapshotFinal {
		writeError(w, http.StatusBadRequest, "kind must be PLANNED or FINAL", nil)
		return
	}

	snap, err := reconcile.NewWeekSnapshot(*req.Board, kind, time.Now())
	if err != nil {
		writeDomainError(w, "Invalid board", err)
		return
	}

	if err := h.Snapshots.SaveSnapshot(r.Context(), snap); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSnapshotDTO(snap))
}

// ListWeekSnapshots returns metadata for all captures stored for a week.
func (h *Handler) ListWeekSnapshots(w http.ResponseWriter, r *http.Request) {
	weekStart, err := schedule.ParseDate(chi.URLParam(r, "weekStart"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week start (use YYYY-MM-DD)", err)
		return
	}

	snaps, err := h.Snapshots.ListWeekSnapshots(r.Context(), weekStart)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
		return
	}

	dtos := make([]SnapshotDTO, len(snaps))
	for i, s := range snaps {
		dtos[i] = toSnapshotDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP statuses: missing rows to
// 404, client faults to 400, everything else to 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case schedule.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case schedule.IsClientError(err) || reconcile.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
