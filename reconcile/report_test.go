/*
report_test.go - Tally and completion-rate behavior
*/
package reconcile_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsduty/duty-engine/reconcile"
)

func TestTally_CompletionRate(t *testing.T) {
	// GIVEN: 7 of 9 planned tasks completed
	tally := reconcile.Tally{Completed: 7, Late: 1, Pending: 1}

	// THEN: The rate is an exact decimal, rounded to four places
	assert.Equal(t, 9, tally.TotalPlanned())
	assert.True(t, tally.CompletionRate().Equal(decimal.RequireFromString("0.7778")),
		"got %s", tally.CompletionRate())
}

func TestTally_AdditionalExcludedFromPlanned(t *testing.T) {
	// GIVEN: Unplanned extra work alongside the plan
	tally := reconcile.Tally{Completed: 2, Additional: 5}

	// THEN: Additional never inflates nor deflates the rate
	assert.Equal(t, 2, tally.TotalPlanned())
	assert.True(t, tally.CompletionRate().Equal(decimal.NewFromInt(1)))
}

func TestTally_ZeroPlannedYieldsZeroRate(t *testing.T) {
	tally := reconcile.Tally{Additional: 3}
	assert.True(t, tally.CompletionRate().IsZero())
}

func TestBuildReport_AggregatesWholeWeekAndGroups(t *testing.T) {
	// GIVEN: Classified buckets and their per-assignee fan-out
	buckets := &reconcile.Buckets{
		Completed: []reconcile.FlatTaskRecord{record("a1", "alice"), record("b1", "bob")},
		Late:      []reconcile.FlatTaskRecord{record("a2", "alice")},
		Removed:   []reconcile.FlatTaskRecord{record("b2", "bob")},
	}
	groups := reconcile.GroupByAssignee(buckets)

	report := reconcile.BuildReport("ops", day(0), buckets, groups)

	// THEN: The week tally covers all four records
	require.NotNil(t, report)
	assert.Equal(t, "ops", report.Department)
	assert.Equal(t, 2, report.Tally.Completed)
	assert.Equal(t, 4, report.Tally.TotalPlanned())
	assert.True(t, report.CompletionRate.Equal(decimal.RequireFromString("0.5")))

	// AND: Each group's tally covers only that person's records
	require.Len(t, report.Groups, 2)
	alice := report.Groups[0]
	assert.Equal(t, "alice", alice.Label)
	assert.Equal(t, 1, alice.Tally.Completed)
	assert.Equal(t, 1, alice.Tally.Late)
	assert.True(t, alice.CompletionRate.Equal(decimal.RequireFromString("0.5")))
}
