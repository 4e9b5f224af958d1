/*
compare.go - The umbrella comparison operation

PURPOSE:
  Runs the full reconciliation pipeline for one department:
  flatten planned, flatten actual, classify, group, report. All stages
  are pure; fetching the boards is the caller's job, done beforehand.

  Per-department comparisons are independent, so CompareAll fans them
  out across goroutines. Cancellation is trivial - no stage produces
  partial unrecoverable state.
*/
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/opsduty/duty-engine/schedule"
)

// Comparison is the full result for one department's week.
type Comparison struct {
	Department string
	WeekStart  schedule.Date
	Buckets    *Buckets
	Groups     []AssigneeGroup
	Report     *WeekReport
}

// CompareWeek reconciles one department's planned board against its
// actual board.
func CompareWeek(planned, actual *WeekBoard, weekEnd, asOf schedule.Date) (*Comparison, error) {
	plannedSet, err := FlattenBoard(planned)
	if err != nil {
		return nil, fmt.Errorf("flattening planned board: %w", err)
	}
	actualSet, err := FlattenBoard(actual)
	if err != nil {
		return nil, fmt.Errorf("flattening actual board: %w", err)
	}

	buckets, err := Classify(plannedSet, actualSet, weekEnd, asOf)
	if err != nil {
		return nil, err
	}

	groups := GroupByAssignee(buckets)

	return &Comparison{
		Department: planned.Department,
		WeekStart:  planned.WeekStart,
		Buckets:    buckets,
		Groups:     groups,
		Report:     BuildReport(planned.Department, planned.WeekStart, buckets, groups),
	}, nil
}

// BoardPair is one department's planned and actual boards.
type BoardPair struct {
	Planned *WeekBoard
	Actual  *WeekBoard
}

// CompareAll runs CompareWeek for several departments concurrently.
// Results keep the input order. The first error wins; remaining
// comparisons still run to completion since they share no state.
func CompareAll(ctx context.Context, pairs []BoardPair, weekEnd, asOf schedule.Date) ([]*Comparison, error) {
	results := make([]*Comparison, len(pairs))
	errs := make([]error, len(pairs))

	var wg sync.WaitGroup
	for i, pair := range pairs {
		wg.Add(1)
		go func(i int, pair BoardPair) {
			defer wg.Done()
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			results[i], errs[i] = CompareWeek(pair.Planned, pair.Actual, weekEnd, asOf)
		}(i, pair)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
