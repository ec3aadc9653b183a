package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-process Store, useful for tests and for running the
// scheduler before a database is wired up.
type MemoryStore struct {
	mu        sync.RWMutex
	schedules map[uuid.UUID]models.ScheduleDefinition
	runs      []models.ScheduleRun
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{schedules: make(map[uuid.UUID]models.ScheduleDefinition)}
}

// Put inserts or replaces a schedule definition.
func (m *MemoryStore) Put(sched models.ScheduleDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[sched.ID] = sched
}

// Get returns a single schedule by id.
func (m *MemoryStore) Get(id uuid.UUID) (models.ScheduleDefinition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sched, ok := m.schedules[id]
	return sched, ok
}

// Delete removes a schedule definition.
func (m *MemoryStore) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
}

func (m *MemoryStore) ListEnabled(ctx context.Context) ([]models.ScheduleDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ScheduleDefinition, 0, len(m.schedules))
	for _, sched := range m.schedules {
		if sched.Enabled {
			out = append(out, sched)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *MemoryStore) UpdateNextRun(ctx context.Context, scheduleID uuid.UUID, lastRunAt, nextRunAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sched, ok := m.schedules[scheduleID]
	if !ok {
		return nil
	}
	last := lastRunAt
	sched.LastRunAt = &last
	if nextRunAt.IsZero() {
		sched.NextRunAt = nil
	} else {
		next := nextRunAt
		sched.NextRunAt = &next
	}
	sched.UpdatedAt = lastRunAt
	m.schedules[scheduleID] = sched
	return nil
}

func (m *MemoryStore) RecordRun(ctx context.Context, run models.ScheduleRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// Runs returns a snapshot of recorded runs, most recent last.
func (m *MemoryStore) Runs() []models.ScheduleRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ScheduleRun, len(m.runs))
	copy(out, m.runs)
	return out
}
