/*
report.go - Aggregate tallies over classified buckets

PURPOSE:
  Reporting and export layers consume plain nested records; this file
  builds them. Completion rates use decimal arithmetic so a 7-of-9 week
  doesn't accumulate float noise across departments.
*/
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/opsduty/duty-engine/schedule"
)

// =============================================================================
// TALLIES
// =============================================================================

// Tally is the per-bucket count set for one scope (a week, or one
// assignee's slice of it).
type Tally struct {
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
	Late       int `json:"late"`
	Additional int `json:"additional"`
	Removed    int `json:"removed_or_canceled"`
}

// TotalPlanned counts records that were in the plan: everything except
// additional work.
func (t Tally) TotalPlanned() int {
	return t.Completed + t.InProgress + t.Pending + t.Late + t.Removed
}

// CompletionRate returns completed / planned as a decimal in [0, 1],
// rounded to four places. Zero planned yields zero.
func (t Tally) CompletionRate() decimal.Decimal {
	planned := t.TotalPlanned()
	if planned == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(t.Completed)).
		Div(decimal.NewFromInt(int64(planned))).
		Round(4)
}

func tallyOf(b Buckets) Tally {
	return Tally{
		Completed:  len(b.Completed),
		InProgress: len(b.InProgress),
		Pending:    len(b.Pending),
		Late:       len(b.Late),
		Additional: len(b.Additional),
		Removed:    len(b.Removed),
	}
}

// =============================================================================
// WEEK REPORT
// =============================================================================

// GroupSummary is one assignee's tally.
type GroupSummary struct {
	Assignee       schedule.AssigneeID `json:"assignee"`
	Label          string              `json:"label"`
	Tally          Tally               `json:"tally"`
	CompletionRate decimal.Decimal     `json:"completion_rate"`
}

// WeekReport is the aggregate view of one department's week.
type WeekReport struct {
	Department     string          `json:"department"`
	WeekStart      schedule.Date   `json:"week_start"`
	Tally          Tally           `json:"tally"`
	CompletionRate decimal.Decimal `json:"completion_rate"`
	Groups         []GroupSummary  `json:"groups"`
}

// BuildReport computes tallies for the whole comparison and per group.
func BuildReport(department string, weekStart schedule.Date, b *Buckets, groups []AssigneeGroup) *WeekReport {
	report := &WeekReport{
		Department: department,
		WeekStart:  weekStart,
	}
	if b != nil {
		report.Tally = tallyOf(*b)
		report.CompletionRate = report.Tally.CompletionRate()
	}
	for _, g := range groups {
		t := tallyOf(g.Buckets)
		report.Groups = append(report.Groups, GroupSummary{
			Assignee:       g.Assignee,
			Label:          g.Label(),
			Tally:          t,
			CompletionRate: t.CompletionRate(),
		})
	}
	return report
}
