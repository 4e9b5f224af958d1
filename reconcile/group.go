/*
group.go - Re-partition classified buckets by assignee

PURPOSE:
  Produces one self-contained AssigneeGroup per distinct assignee, plus
  a synthetic "Unassigned" group for records with no assignee at all.
  A multi-assignee task fans out into each of its assignees' groups -
  it is NOT deduplicated across people, because each person's view must
  stand on its own.

ORDER:
  Groups appear in first-encounter order (walking buckets in their
  canonical order, records in classification order). Within a group,
  each bucket preserves the classifier's record order.
*/
package reconcile

import (
	"github.com/opsduty/duty-engine/schedule"
)

// GroupByAssignee fans the classified buckets out per person.
func GroupByAssignee(b *Buckets) []AssigneeGroup {
	if b == nil {
		return nil
	}

	index := make(map[schedule.AssigneeID]*AssigneeGroup)
	var order []schedule.AssigneeID

	groupFor := func(a schedule.AssigneeID) *AssigneeGroup {
		g, ok := index[a]
		if !ok {
			g = &AssigneeGroup{Assignee: a}
			index[a] = g
			order = append(order, a)
		}
		return g
	}

	distribute := func(records []FlatTaskRecord, add func(g *AssigneeGroup, rec FlatTaskRecord)) {
		for _, rec := range records {
			if len(rec.Assignees) == 0 {
				add(groupFor(""), rec)
				continue
			}
			for _, a := range rec.Assignees {
				add(groupFor(a), rec)
			}
		}
	}

	distribute(b.Completed, func(g *AssigneeGroup, r FlatTaskRecord) { g.Buckets.Completed = append(g.Buckets.Completed, r) })
	distribute(b.InProgress, func(g *AssigneeGroup, r FlatTaskRecord) { g.Buckets.InProgress = append(g.Buckets.InProgress, r) })
	distribute(b.Pending, func(g *AssigneeGroup, r FlatTaskRecord) { g.Buckets.Pending = append(g.Buckets.Pending, r) })
	distribute(b.Late, func(g *AssigneeGroup, r FlatTaskRecord) { g.Buckets.Late = append(g.Buckets.Late, r) })
	distribute(b.Additional, func(g *AssigneeGroup, r FlatTaskRecord) { g.Buckets.Additional = append(g.Buckets.Additional, r) })
	distribute(b.Removed, func(g *AssigneeGroup, r FlatTaskRecord) { g.Buckets.Removed = append(g.Buckets.Removed, r) })

	groups := make([]AssigneeGroup, 0, len(order))
	for _, a := range order {
		groups = append(groups, *index[a])
	}
	return groups
}
