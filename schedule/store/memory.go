// Package store provides in-memory implementations of the schedule
// persistence interfaces, used in tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opsduty/duty-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory OccurrenceStore + TemplateStore
// =============================================================================

// Memory implements schedule.OccurrenceStore.
type Memory struct {
	mu          sync.RWMutex
	occurrences map[schedule.OccurrenceKey]schedule.Occurrence
}

func NewMemory() *Memory {
	return &Memory{
		occurrences: make(map[schedule.OccurrenceKey]schedule.Occurrence),
	}
}

// =============================================================================
// OCCURRENCE STORE
// =============================================================================

// InsertIfAbsent inserts under a single lock, so the check and the
// write are one atomic step.
func (m *Memory) InsertIfAbsent(_ context.Context, occ schedule.Occurrence) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := occ.Key()
	if _, exists := m.occurrences[key]; exists {
		return false, nil
	}
	m.occurrences[key] = occ
	return true, nil
}

func (m *Memory) Get(_ context.Context, key schedule.OccurrenceKey) (*schedule.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	occ, ok := m.occurrences[key]
	if !ok {
		return nil, nil
	}
	return &occ, nil
}

func (m *Memory) UpdateStatus(_ context.Context, key schedule.OccurrenceKey, status schedule.OccurrenceStatus, comment string, actedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	occ, ok := m.occurrences[key]
	if !ok {
		return schedule.ErrOccurrenceNotFound
	}
	occ.Status = status
	occ.Comment = comment
	occ.ActedAt = actedAt
	m.occurrences[key] = occ
	return nil
}

func (m *Memory) ListRange(_ context.Context, from, to schedule.Date) ([]schedule.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []schedule.Occurrence
	for _, occ := range m.occurrences {
		if from.BeforeOrEqual(occ.Date) && occ.Date.BeforeOrEqual(to) {
			result = append(result, occ)
		}
	}
	sortOccurrences(result)
	return result, nil
}

func (m *Memory) ListByAssignee(_ context.Context, assignee schedule.AssigneeID, from, to schedule.Date) ([]schedule.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []schedule.Occurrence
	for _, occ := range m.occurrences {
		if occ.AssigneeID != assignee {
			continue
		}
		if from.BeforeOrEqual(occ.Date) && occ.Date.BeforeOrEqual(to) {
			result = append(result, occ)
		}
	}
	sortOccurrences(result)
	return result, nil
}

func (m *Memory) DeleteByTemplate(_ context.Context, id schedule.TemplateID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key := range m.occurrences {
		if key.TemplateID == id {
			delete(m.occurrences, key)
			deleted++
		}
	}
	return deleted, nil
}

// sortOccurrences orders by (date, template, assignee) so reads are
// deterministic regardless of map iteration order.
func sortOccurrences(occs []schedule.Occurrence) {
	sort.Slice(occs, func(i, j int) bool {
		if !occs[i].Date.Equal(occs[j].Date) {
			return occs[i].Date.Before(occs[j].Date)
		}
		if occs[i].TemplateID != occs[j].TemplateID {
			return occs[i].TemplateID < occs[j].TemplateID
		}
		return occs[i].AssigneeID < occs[j].AssigneeID
	})
}

// =============================================================================
// TEMPLATE MEMORY - In-memory TemplateStore
// =============================================================================

// TemplateMemory implements schedule.TemplateStore. Templates are
// returned in save order so ledger fills are deterministic.
type TemplateMemory struct {
	mu        sync.RWMutex
	templates map[schedule.TemplateID]schedule.RecurrenceTemplate
	order     []schedule.TemplateID
}

func NewTemplateMemory() *TemplateMemory {
	return &TemplateMemory{
		templates: make(map[schedule.TemplateID]schedule.RecurrenceTemplate),
	}
}

func (m *TemplateMemory) Save(_ context.Context, t schedule.RecurrenceTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.templates[t.ID]; !exists {
		m.order = append(m.order, t.ID)
	}
	m.templates[t.ID] = t
	return nil
}

func (m *TemplateMemory) GetTemplate(_ context.Context, id schedule.TemplateID) (*schedule.RecurrenceTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *TemplateMemory) ActiveTemplates(_ context.Context) ([]schedule.RecurrenceTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []schedule.RecurrenceTemplate
	for _, id := range m.order {
		if t := m.templates[id]; t.Active {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *TemplateMemory) ListTemplates(_ context.Context) ([]schedule.RecurrenceTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]schedule.RecurrenceTemplate, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.templates[id])
	}
	return result, nil
}

func (m *TemplateMemory) Deactivate(_ context.Context, id schedule.TemplateID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.templates[id]
	if !ok {
		return schedule.ErrTemplateNotFound
	}
	t.Active = false
	m.templates[id] = t
	return nil
}
