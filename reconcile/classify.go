/*
classify.go - Plan vs actual -> six outcome buckets

PURPOSE:
  Merges the flattened planned and actual maps by match key and places
  every task in exactly one bucket.

CLASSIFICATION:
  Key in both:      merge - planned attribution (assignees,
                    occurrences, title), actual outcome (status,
                    completion) - then classify with precedence
                    completed > in_progress > late > pending.
  Key only actual:  additional (unplanned work performed).
  Key only planned: removed_or_canceled (planned work that vanished).

LATENESS:
  Lateness is a week's-end judgment. While asOf is still inside the
  week, an uncompleted task stays pending (or in_progress) even when
  its planned day has passed: the week isn't over and the work can
  still land on time. Once asOf reaches weekEnd, any record still
  pending or in progress with a planned day up to weekEnd is promoted
  to late - the week is over and it cannot stay pending forever.

CONSERVATISM:
  An indeterminate actual status never classifies as completed; it
  falls through to pending.
*/
package reconcile

import (
	"github.com/opsduty/duty-engine/schedule"
)

// Classify merges the planned and actual flat sets and fills the six
// buckets. Records keep planned attribution and actual outcome.
// Iteration order is planned keys first, then actual-only keys, both
// in encounter order, so output is deterministic.
func Classify(planned, actual *FlatSet, weekEnd, asOf schedule.Date) (*Buckets, error) {
	if planned == nil {
		planned = NewFlatSet()
	}
	if actual == nil {
		actual = NewFlatSet()
	}

	buckets := &Buckets{}
	weekOver := asOf.AfterOrEqual(weekEnd)

	for _, key := range planned.Keys() {
		p := planned.Get(key)
		a := actual.Get(key)

		if a == nil {
			buckets.Removed = append(buckets.Removed, *p)
			continue
		}

		merged := mergeRecords(p, a)
		bucket := classifyMerged(merged, a, weekEnd, asOf, weekOver)
		buckets.put(bucket, merged)
	}

	for _, key := range actual.Keys() {
		if planned.Get(key) != nil {
			continue
		}
		buckets.Additional = append(buckets.Additional, *actual.Get(key))
	}

	return buckets, nil
}

// mergeRecords keeps planned's assignees/occurrences for attribution
// and actual's status/completion for outcome.
func mergeRecords(p, a *FlatTaskRecord) FlatTaskRecord {
	merged := *p
	merged.Status = a.Status
	merged.Completed = a.Completed
	return merged
}

func classifyMerged(merged FlatTaskRecord, actual *FlatTaskRecord, weekEnd, asOf schedule.Date, weekOver bool) Bucket {
	if actual.Completed {
		return BucketCompleted
	}

	lastDay := merged.LastPlannedDay()

	// Week-over promotion: pending or in-progress work planned inside
	// the week can no longer wait.
	if weekOver && !lastDay.IsZero() && lastDay.BeforeOrEqual(weekEnd) {
		return BucketLate
	}

	if actual.Status == TaskInProgress {
		return BucketInProgress
	}
	// Mid-week, an earlier-day task is still only pending; late starts
	// when the week is over.
	if weekOver && !lastDay.IsZero() && lastDay.Before(asOf) {
		return BucketLate
	}
	return BucketPending
}

func (b *Buckets) put(bucket Bucket, rec FlatTaskRecord) {
	switch bucket {
	case BucketCompleted:
		b.Completed = append(b.Completed, rec)
	case BucketInProgress:
		b.InProgress = append(b.InProgress, rec)
	case BucketLate:
		b.Late = append(b.Late, rec)
	case BucketAdditional:
		b.Additional = append(b.Additional, rec)
	case BucketRemoved:
		b.Removed = append(b.Removed, rec)
	default:
		b.Pending = append(b.Pending, rec)
	}
}
