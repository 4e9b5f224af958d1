/*
memory.go - In-memory snapshot store

PURPOSE:
  Keeps week snapshots in a map for tests and ephemeral setups. The
  SQLite store is the production implementation; this one exists so the
  comparison pipeline can be exercised without a database file.
*/
package reconcile

import (
	"context"
	"sort"
	"sync"

	"github.com/opsduty/duty-engine/schedule"
)

type snapshotKey struct {
	department string
	weekStart  string
	kind       SnapshotKind
}

// SnapshotMemory is an in-memory SnapshotStore. Safe for concurrent use.
type SnapshotMemory struct {
	mu    sync.RWMutex
	snaps map[snapshotKey]WeekSnapshot
}

// NewSnapshotMemory creates an empty in-memory snapshot store.
func NewSnapshotMemory() *SnapshotMemory {
	return &SnapshotMemory{snaps: make(map[snapshotKey]WeekSnapshot)}
}

func (m *SnapshotMemory) key(snap WeekSnapshot) snapshotKey {
	return snapshotKey{
		department: snap.Department,
		weekStart:  snap.WeekStart.String(),
		kind:       snap.Kind,
	}
}

// SaveSnapshot stores the capture, replacing any existing one for the
// same (department, week start, kind).
func (m *SnapshotMemory) SaveSnapshot(_ context.Context, snap WeekSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[m.key(snap)] = snap
	return nil
}

// GetSnapshot returns the stored capture, or nil when absent.
func (m *SnapshotMemory) GetSnapshot(_ context.Context, department string, weekStart schedule.Date, kind SnapshotKind) (*WeekSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snaps[snapshotKey{department: department, weekStart: weekStart.String(), kind: kind}]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// ListWeekSnapshots returns all captures for a week, ordered by
// department then kind.
func (m *SnapshotMemory) ListWeekSnapshots(_ context.Context, weekStart schedule.Date) ([]WeekSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []WeekSnapshot
	for k, snap := range m.snaps {
		if k.weekStart == weekStart.String() {
			result = append(result, snap)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Department != result[j].Department {
			return result[i].Department < result[j].Department
		}
		return result[i].Kind < result[j].Kind
	})
	return result, nil
}
