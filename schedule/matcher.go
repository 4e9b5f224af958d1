/*
matcher.go - The recurrence predicate

PURPOSE:
  Decides whether a template fires on a given calendar date. This is a
  pure function over (template, date): no clock, no store, no caches.
  The same predicate drives live generation and historical backfill, so
  it must answer identically for any past or future date.

MATCHING RULES:
  DAILY           always fires.
  WEEKLY          fires when the date's weekday is in DaysOfWeek
                  (single DayOfWeek as fallback when the set is empty).
  MONTHLY         fires when the date's day equals the resolved
                  day-of-month rule.
  EVERY_3_MONTHS  monthly rule + month cadence anchored at MonthOfYear.
  EVERY_6_MONTHS  same with a six month interval.
  YEARLY          month must equal MonthOfYear (when set) + day rule.

  An unset MonthOfYear skips the cadence/month check rather than
  failing it.

SEE ALSO:
  - types.go: DayOfMonthRule variants
  - ledger.go: Uses Matches for range-fill and reopen checks
*/
package schedule

// Matches reports whether the template fires on the given date.
// Inactive templates are the ledger's concern; Matches only evaluates
// the recurrence rule itself.
func Matches(t RecurrenceTemplate, d Date) bool {
	switch t.Frequency {
	case FreqDaily:
		return true

	case FreqWeekly:
		return t.FiresOnWeekday(d.Weekday())

	case FreqMonthly, FreqEvery3Months, FreqEvery6Months:
		if !matchesDayOfMonth(t, d) {
			return false
		}
		interval := t.Frequency.monthInterval()
		if interval == 0 || t.MonthOfYear == 0 {
			// Plain monthly, or a multi-month cadence with no anchor:
			// the cadence check is skipped.
			return true
		}
		diff := int(d.Month()) - int(t.MonthOfYear)
		if diff < 0 {
			diff += 12
		}
		return diff%interval == 0

	case FreqYearly:
		if t.MonthOfYear != 0 && d.Month() != t.MonthOfYear {
			return false
		}
		return matchesDayOfMonth(t, d)

	default:
		return false
	}
}

func matchesDayOfMonth(t RecurrenceTemplate, d Date) bool {
	resolved := t.DayOfMonth.Resolve(d.Year(), d.Month())
	return resolved != 0 && d.Day() == resolved
}
