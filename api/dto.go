/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Templates:
    TemplateDTO, SaveTemplateRequest

  Occurrences:
    OccurrenceDTO, EnsureRequest, EnsureResponse, SetStatusRequest

  Comparison:
    ComparisonDTO, TaskRecordDTO, GroupDTO, CompareRequest

  Snapshots:
    SnapshotRequest, SnapshotDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - reconcile/types.go: Domain types these flatten
*/
package api

import (
	"time"

	"github.com/opsduty/duty-engine/reconcile"
	"github.com/opsduty/duty-engine/schedule"
)

// =============================================================================
// TEMPLATE TYPES
// =============================================================================

// TemplateDTO represents a recurrence template in API responses.
// day_of_month uses the wire encoding: positive literal day, 0 for the
// last day of the month, -1 for the first working day.
type TemplateDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Frequency   string   `json:"frequency"`
	DaysOfWeek  []int    `json:"days_of_week,omitempty"`
	DayOfWeek   *int     `json:"day_of_week,omitempty"`
	DayOfMonth  *int     `json:"day_of_month,omitempty"`
	MonthOfYear int      `json:"month_of_year,omitempty"`
	Assignees   []string `json:"assignees,omitempty"`
	Active      bool     `json:"active"`
}

// SaveTemplateRequest is the request to create or replace a template.
type SaveTemplateRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Frequency   string   `json:"frequency"`
	DaysOfWeek  []int    `json:"days_of_week,omitempty"`
	DayOfWeek   *int     `json:"day_of_week,omitempty"`
	DayOfMonth  *int     `json:"day_of_month,omitempty"`
	MonthOfYear int      `json:"month_of_year,omitempty"`
	Assignees   []string `json:"assignees,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}

// =============================================================================
// OCCURRENCE TYPES
// =============================================================================

// OccurrenceDTO represents one materialized duty row.
type OccurrenceDTO struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	AssigneeID string `json:"assignee_id"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	Comment    string `json:"comment,omitempty"`
	ActedAt    string `json:"acted_at,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// EnsureRequest asks the ledger to materialize occurrences for a range.
// template_ids narrows the fill; empty means all active templates.
type EnsureRequest struct {
	Start       string   `json:"start"`
	End         string   `json:"end"`
	TemplateIDs []string `json:"template_ids,omitempty"`
}

// EnsureResponse reports how many rows the fill actually created.
type EnsureResponse struct {
	Inserted int    `json:"inserted"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// SetStatusRequest applies a status change to one occurrence.
type SetStatusRequest struct {
	TemplateID string `json:"template_id"`
	AssigneeID string `json:"assignee_id"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	Comment    string `json:"comment,omitempty"`
}

// =============================================================================
// COMPARISON TYPES
// =============================================================================

// TaskRecordDTO is one flattened task in a comparison response.
type TaskRecordDTO struct {
	Key         string                     `json:"key"`
	Title       string                     `json:"title"`
	Source      string                     `json:"source"`
	Status      string                     `json:"status,omitempty"`
	Completed   bool                       `json:"completed"`
	Assignees   []string                   `json:"assignees,omitempty"`
	Occurrences []reconcile.TaskOccurrence `json:"occurrences,omitempty"`
}

// BucketsDTO carries the six classification outcomes.
type BucketsDTO struct {
	Completed  []TaskRecordDTO `json:"completed"`
	InProgress []TaskRecordDTO `json:"in_progress"`
	Pending    []TaskRecordDTO `json:"pending"`
	Late       []TaskRecordDTO `json:"late"`
	Additional []TaskRecordDTO `json:"additional"`
	Removed    []TaskRecordDTO `json:"removed_or_canceled"`
}

// GroupDTO is one assignee's slice of the buckets.
type GroupDTO struct {
	Assignee string     `json:"assignee"`
	Label    string     `json:"label"`
	Buckets  BucketsDTO `json:"buckets"`
}

// ComparisonDTO is the full plan-vs-actual result for one department.
type ComparisonDTO struct {
	Department string                `json:"department"`
	WeekStart  string                `json:"week_start"`
	Buckets    BucketsDTO            `json:"buckets"`
	Groups     []GroupDTO            `json:"groups"`
	Report     *reconcile.WeekReport `json:"report"`
}

// CompareRequest carries two boards for an ad hoc comparison, without
// going through stored snapshots.
type CompareRequest struct {
	Planned *reconcile.WeekBoard `json:"planned"`
	Actual  *reconcile.WeekBoard `json:"actual"`
	AsOf    string               `json:"as_of,omitempty"`
}

// =============================================================================
// SNAPSHOT TYPES
// =============================================================================

// SnapshotRequest stores a board capture for later comparison.
type SnapshotRequest struct {
	Kind  string               `json:"kind"`
	Board *reconcile.WeekBoard `json:"board"`
}

// SnapshotDTO represents a stored capture in API responses.
type SnapshotDTO struct {
	ID         string `json:"id"`
	Department string `json:"department"`
	WeekStart  string `json:"week_start"`
	Kind       string `json:"kind"`
	TakenAt    string `json:"taken_at"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTemplateDTO(t schedule.RecurrenceTemplate) TemplateDTO {
	dto := TemplateDTO{
		ID:        string(t.ID),
		Name:      t.Name,
		Frequency: string(t.Frequency),
		Active:    t.Active,
	}
	for _, d := range t.DaysOfWeek {
		dto.DaysOfWeek = append(dto.DaysOfWeek, int(d))
	}
	if t.DayOfWeek != nil {
		d := int(*t.DayOfWeek)
		dto.DayOfWeek = &d
	}
	if t.Frequency != schedule.FreqDaily && t.Frequency != schedule.FreqWeekly {
		s := t.DayOfMonth.Sentinel()
		dto.DayOfMonth = &s
	}
	if t.MonthOfYear != 0 {
		dto.MonthOfYear = int(t.MonthOfYear)
	}
	for _, a := range t.Assignees {
		dto.Assignees = append(dto.Assignees, string(a))
	}
	return dto
}

func toOccurrenceDTO(o schedule.Occurrence) OccurrenceDTO {
	dto := OccurrenceDTO{
		ID:         string(o.ID),
		TemplateID: string(o.TemplateID),
		AssigneeID: string(o.AssigneeID),
		Date:       o.Date.String(),
		Status:     string(o.Status),
		Comment:    o.Comment,
	}
	if o.ActedAt != nil {
		dto.ActedAt = o.ActedAt.Format(time.RFC3339)
	}
	if !o.CreatedAt.IsZero() {
		dto.CreatedAt = o.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toTaskRecordDTO(r reconcile.FlatTaskRecord) TaskRecordDTO {
	dto := TaskRecordDTO{
		Key:         r.Key.String(),
		Title:       r.Title,
		Source:      string(r.Source),
		Status:      string(r.Status),
		Completed:   r.Completed,
		Occurrences: r.Occurrences,
	}
	for _, a := range r.Assignees {
		dto.Assignees = append(dto.Assignees, string(a))
	}
	return dto
}

func toBucketsDTO(b *reconcile.Buckets) BucketsDTO {
	convert := func(records []reconcile.FlatTaskRecord) []TaskRecordDTO {
		dtos := make([]TaskRecordDTO, len(records))
		for i, r := range records {
			dtos[i] = toTaskRecordDTO(r)
		}
		return dtos
	}
	if b == nil {
		b = &reconcile.Buckets{}
	}
	return BucketsDTO{
		Completed:  convert(b.Completed),
		InProgress: convert(b.InProgress),
		Pending:    convert(b.Pending),
		Late:       convert(b.Late),
		Additional: convert(b.Additional),
		Removed:    convert(b.Removed),
	}
}

func toComparisonDTO(c *reconcile.Comparison) ComparisonDTO {
	dto := ComparisonDTO{
		Department: c.Department,
		WeekStart:  c.WeekStart.String(),
		Buckets:    toBucketsDTO(c.Buckets),
		Report:     c.Report,
	}
	for _, g := range c.Groups {
		buckets := g.Buckets
		dto.Groups = append(dto.Groups, GroupDTO{
			Assignee: string(g.Assignee),
			Label:    g.Label(),
			Buckets:  toBucketsDTO(&buckets),
		})
	}
	return dto
}

func toSnapshotDTO(s reconcile.WeekSnapshot) SnapshotDTO {
	return SnapshotDTO{
		ID:         s.ID,
		Department: s.Department,
		WeekStart:  s.WeekStart.String(),
		Kind:       string(s.Kind),
		TakenAt:    s.TakenAt.Format(time.RFC3339),
	}
}
