/*
Package schedule provides the recurrence engine for recurring duties.

PURPOSE:
  This package decides, for any recurrence template and calendar date,
  whether a duty fires (the Matcher), and materializes per-assignee
  per-date occurrence records idempotently (the Ledger). It holds no
  hidden state: templates are passed in as an explicit snapshot per
  computation.

KEY CONCEPTS IN THIS FILE (types.go):
  - RecurrenceTemplate: A recurring duty definition (frequency + anchors)
  - DayOfMonthRule: Tagged variant for literal / last-day / first-workday
  - Occurrence: One scheduled instance for one assignee on one date
  - OccurrenceStatus: OPEN, DONE, NOT_DONE, SKIPPED

DESIGN PRINCIPLES:
  1. Determinism: Matches(template, date) is a pure predicate
  2. Idempotency: Occurrences are created with insert-if-absent only
  3. Type Safety: Strong typing for template/assignee IDs
  4. Explicitness: No sentinel integers; rules are tagged variants

SEE ALSO:
  - matcher.go: The recurrence predicate
  - ledger.go: Occurrence materialization and status changes
  - store.go: Persistence interfaces
*/
package schedule

import (
	"strconv"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TemplateID string
type AssigneeID string
type OccurrenceID string

// =============================================================================
// FREQUENCY
// =============================================================================

type Frequency string

const (
	FreqDaily        Frequency = "DAILY"
	FreqWeekly       Frequency = "WEEKLY"
	FreqMonthly      Frequency = "MONTHLY"
	FreqYearly       Frequency = "YEARLY"
	FreqEvery3Months Frequency = "EVERY_3_MONTHS"
	FreqEvery6Months Frequency = "EVERY_6_MONTHS"
)

// ValidFrequency reports whether f is one of the known cadences.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly, FreqEvery3Months, FreqEvery6Months:
		return true
	}
	return false
}

// monthInterval returns the month cadence for multi-month frequencies,
// or 0 for frequencies without one.
func (f Frequency) monthInterval() int {
	switch f {
	case FreqEvery3Months:
		return 3
	case FreqEvery6Months:
		return 6
	}
	return 0
}

// =============================================================================
// WEEKDAY - Monday-based, unlike time.Weekday
// =============================================================================

// Weekday numbers days with Monday = 0, matching how the roster data
// stores days_of_week. Convert from time.Weekday via FromTimeWeekday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// FromTimeWeekday converts the stdlib Sunday-based weekday.
func FromTimeWeekday(wd time.Weekday) Weekday {
	return Weekday((int(wd) + 6) % 7)
}

func (w Weekday) String() string {
	names := [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	if w < Monday || w > Sunday {
		return "Invalid"
	}
	return names[w]
}

// =============================================================================
// DAY-OF-MONTH RULE - Tagged variant replacing the 0 / -1 sentinels
// =============================================================================

type dayRuleKind int

const (
	dayRuleLiteral dayRuleKind = iota
	dayRuleLastDay
	dayRuleFirstWorkingDay
)

// DayOfMonthRule selects which day of a month a monthly-style template
// fires on. Construct with LiteralDay, LastDayOfMonth or FirstWorkingDay.
// The zero value is Literal(0), which never matches any date.
type DayOfMonthRule struct {
	kind dayRuleKind
	day  int
}

// LiteralDay fires on the given calendar day (1-31).
func LiteralDay(day int) DayOfMonthRule {
	return DayOfMonthRule{kind: dayRuleLiteral, day: day}
}

// LastDayOfMonth fires on the final calendar day of each month.
func LastDayOfMonth() DayOfMonthRule {
	return DayOfMonthRule{kind: dayRuleLastDay}
}

// FirstWorkingDay fires on the first Monday-Friday day of each month.
func FirstWorkingDay() DayOfMonthRule {
	return DayOfMonthRule{kind: dayRuleFirstWorkingDay}
}

// DayRuleFromSentinel decodes the legacy integer encoding still used by
// stored templates: 0 = last day, -1 = first working day, else literal.
func DayRuleFromSentinel(n int) DayOfMonthRule {
	switch n {
	case 0:
		return LastDayOfMonth()
	case -1:
		return FirstWorkingDay()
	default:
		return LiteralDay(n)
	}
}

// Sentinel re-encodes the rule for storage.
func (r DayOfMonthRule) Sentinel() int {
	switch r.kind {
	case dayRuleLastDay:
		return 0
	case dayRuleFirstWorkingDay:
		return -1
	default:
		return r.day
	}
}

// Resolve returns the concrete day the rule selects in the given month,
// or 0 when the rule cannot select a day there (e.g. Literal(31) in April).
func (r DayOfMonthRule) Resolve(year int, month time.Month) int {
	last := lastDayOfMonth(year, month)
	switch r.kind {
	case dayRuleLastDay:
		return last
	case dayRuleFirstWorkingDay:
		return firstWorkingDayOfMonth(year, month)
	default:
		if r.day < 1 || r.day > last {
			return 0
		}
		return r.day
	}
}

func (r DayOfMonthRule) String() string {
	switch r.kind {
	case dayRuleLastDay:
		return "last-day"
	case dayRuleFirstWorkingDay:
		return "first-working-day"
	default:
		return "day-" + strconv.Itoa(r.day)
	}
}

// =============================================================================
// RECURRENCE TEMPLATE
// =============================================================================

// RecurrenceTemplate defines a recurring duty. Only the fields relevant
// to Frequency are consulted by the matcher; the rest are ignored.
type RecurrenceTemplate struct {
	ID   TemplateID
	Name string

	Frequency Frequency

	// Weekly: the set of firing days. When empty, DayOfWeek is the
	// single-day fallback.
	DaysOfWeek []Weekday
	DayOfWeek  *Weekday

	// Monthly / multi-month / yearly.
	DayOfMonth DayOfMonthRule

	// Anchor month for yearly and multi-month cadences. 0 = unset,
	// which skips the cadence check entirely.
	MonthOfYear time.Month

	// Who the duty materializes for. Empty means the ledger falls back
	// to its default assignee; with no default the template is skipped.
	Assignees []AssigneeID

	Active bool
}

// FiresOnWeekday reports whether the weekly day set (or fallback day)
// contains w.
func (t RecurrenceTemplate) FiresOnWeekday(w Weekday) bool {
	if len(t.DaysOfWeek) > 0 {
		for _, d := range t.DaysOfWeek {
			if d == w {
				return true
			}
		}
		return false
	}
	return t.DayOfWeek != nil && *t.DayOfWeek == w
}

// =============================================================================
// OCCURRENCE
// =============================================================================

type OccurrenceStatus string

const (
	StatusOpen    OccurrenceStatus = "OPEN"
	StatusDone    OccurrenceStatus = "DONE"
	StatusNotDone OccurrenceStatus = "NOT_DONE"
	StatusSkipped OccurrenceStatus = "SKIPPED"
)

// ValidStatus reports whether s is one of the four occurrence states.
func ValidStatus(s OccurrenceStatus) bool {
	switch s {
	case StatusOpen, StatusDone, StatusNotDone, StatusSkipped:
		return true
	}
	return false
}

// OccurrenceKey uniquely identifies one occurrence row.
type OccurrenceKey struct {
	TemplateID TemplateID
	AssigneeID AssigneeID
	Date       Date
}

// Occurrence is one scheduled instance of a template for one assignee
// on one date. Created only by the ledger's range-fill, mutated only by
// status changes.
type Occurrence struct {
	ID         OccurrenceID
	TemplateID TemplateID
	AssigneeID AssigneeID
	Date       Date

	Status  OccurrenceStatus
	Comment string

	// ActedAt is stamped when the status leaves OPEN and cleared when
	// it returns to OPEN.
	ActedAt   *time.Time
	CreatedAt time.Time
}

// Key returns the identity triple of the occurrence.
func (o Occurrence) Key() OccurrenceKey {
	return OccurrenceKey{TemplateID: o.TemplateID, AssigneeID: o.AssigneeID, Date: o.Date}
}

// =============================================================================
// TASK MIRROR - Live task state projected from a recurring template
// =============================================================================

type MirrorStatus string

const (
	MirrorTodo      MirrorStatus = "todo"
	MirrorDone      MirrorStatus = "done"
	MirrorCancelled MirrorStatus = "cancelled"
)

// TaskMirror is the live operational task backed by a recurring
// template, as seen by the reopen check. The ledger does not own this
// record; it only inspects it.
type TaskMirror struct {
	Status      MirrorStatus
	CompletedAt *time.Time
}
