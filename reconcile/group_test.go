/*
group_test.go - Per-assignee fan-out behavior
*/
package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsduty/duty-engine/reconcile"
	"github.com/opsduty/duty-engine/schedule"
)

func record(id string, bucketAssignees ...schedule.AssigneeID) reconcile.FlatTaskRecord {
	return reconcile.FlatTaskRecord{
		Key:       reconcile.IDKey(id),
		Title:     id,
		Source:    reconcile.SourceProject,
		Assignees: bucketAssignees,
	}
}

func TestGroupByAssignee_SplitsPerPerson(t *testing.T) {
	// GIVEN: Buckets with work spread over two people
	buckets := &reconcile.Buckets{
		Completed: []reconcile.FlatTaskRecord{record("a1", "alice")},
		Pending:   []reconcile.FlatTaskRecord{record("b1", "bob")},
		Late:      []reconcile.FlatTaskRecord{record("a2", "alice")},
	}

	groups := reconcile.GroupByAssignee(buckets)

	// THEN: Two self-contained groups in first-encounter order
	require.Len(t, groups, 2)
	assert.Equal(t, schedule.AssigneeID("alice"), groups[0].Assignee)
	assert.Len(t, groups[0].Buckets.Completed, 1)
	assert.Len(t, groups[0].Buckets.Late, 1)
	assert.Empty(t, groups[0].Buckets.Pending)

	assert.Equal(t, schedule.AssigneeID("bob"), groups[1].Assignee)
	assert.Len(t, groups[1].Buckets.Pending, 1)
}

func TestGroupByAssignee_SharedTaskFansOutWithoutDedup(t *testing.T) {
	// GIVEN: One task shared by two assignees
	buckets := &reconcile.Buckets{
		Completed: []reconcile.FlatTaskRecord{record("handover", "alice", "bob")},
	}

	groups := reconcile.GroupByAssignee(buckets)

	// THEN: The record appears in BOTH groups; each person's view must
	// stand on its own
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Buckets.Completed, 1)
	assert.Len(t, groups[1].Buckets.Completed, 1)
}

func TestGroupByAssignee_UnassignedSyntheticGroup(t *testing.T) {
	// GIVEN: A record with no assignee at all
	buckets := &reconcile.Buckets{
		Pending: []reconcile.FlatTaskRecord{record("floater")},
	}

	groups := reconcile.GroupByAssignee(buckets)

	require.Len(t, groups, 1)
	assert.Equal(t, schedule.AssigneeID(""), groups[0].Assignee)
	assert.Equal(t, "Unassigned", groups[0].Label())
}

func TestGroupByAssignee_NilBuckets(t *testing.T) {
	assert.Nil(t, reconcile.GroupByAssignee(nil))
}
