package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/google/uuid"
)

func TestMemoryStoreListEnabledExcludesDisabled(t *testing.T) {
	store := NewMemoryStore()
	enabled := models.ScheduleDefinition{ID: uuid.New(), Enabled: true, Frequency: models.ScheduleDaily}
	disabled := models.ScheduleDefinition{ID: uuid.New(), Enabled: false, Frequency: models.ScheduleDaily}
	store.Put(enabled)
	store.Put(disabled)

	got, err := store.ListEnabled(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != enabled.ID {
		t.Fatalf("expected only the enabled schedule, got %+v", got)
	}
}

func TestMemoryStoreUpdateNextRunClearsOnZeroTime(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	store.Put(models.ScheduleDefinition{ID: id, Enabled: true, Frequency: models.ScheduleManual})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.UpdateNextRun(context.Background(), id, now, time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sched, ok := store.Get(id)
	if !ok {
		t.Fatalf("expected schedule to exist")
	}
	if sched.NextRunAt != nil {
		t.Fatalf("expected next_run_at to be cleared, got %v", sched.NextRunAt)
	}
	if sched.LastRunAt == nil || !sched.LastRunAt.Equal(now) {
		t.Fatalf("expected last_run_at to be set to %v, got %v", now, sched.LastRunAt)
	}
}

func TestMemoryStoreRecordRunAppends(t *testing.T) {
	store := NewMemoryStore()
	run := models.ScheduleRun{ID: uuid.New(), ScheduleID: uuid.New(), Success: true}
	if err := store.RecordRun(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runs := store.Runs()
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("expected recorded run to be retrievable, got %+v", runs)
	}
}

func TestMemoryStoreDeleteRemovesSchedule(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	store.Put(models.ScheduleDefinition{ID: id, Enabled: true})
	store.Delete(id)
	if _, ok := store.Get(id); ok {
		t.Fatalf("expected schedule to be removed")
	}
}
