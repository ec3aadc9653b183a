package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/fntelecomllc/kbagent/internal/logging"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/google/uuid"
)

func testLogger() *logging.Logger {
	return logging.New(io.Discard, logging.LevelWarn)
}

func TestNextRunAtManualReturnsZeroTime(t *testing.T) {
	sched := models.ScheduleDefinition{Frequency: models.ScheduleManual}
	got, err := NextRunAt(sched, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero time for manual schedule, got %v", got)
	}
}

func TestNextRunAtDailyAddsTwentyFourHours(t *testing.T) {
	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sched := models.ScheduleDefinition{Frequency: models.ScheduleDaily}
	got, err := NextRunAt(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(from.Add(24 * time.Hour)) {
		t.Fatalf("got %v", got)
	}
}

func TestNextRunAtWeeklyAddsSevenDays(t *testing.T) {
	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sched := models.ScheduleDefinition{Frequency: models.ScheduleWeekly}
	got, err := NextRunAt(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(from.Add(7 * 24 * time.Hour)) {
		t.Fatalf("got %v", got)
	}
}

func TestNextRunAtMonthlyAddsOneMonth(t *testing.T) {
	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sched := models.ScheduleDefinition{Frequency: models.ScheduleMonthly}
	got, err := NextRunAt(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(from.AddDate(0, 1, 0)) {
		t.Fatalf("got %v", got)
	}
}

func TestNextRunAtCustomCronDelegatesToMatcher(t *testing.T) {
	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sched := models.ScheduleDefinition{Frequency: models.ScheduleCustomCron, CronExpr: "0 12 * * *"}
	got, err := NextRunAt(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNextRunAtUnknownFrequencyErrors(t *testing.T) {
	sched := models.ScheduleDefinition{Frequency: models.ScheduleFrequencyEnum("bogus")}
	if _, err := NextRunAt(sched, time.Now()); err == nil {
		t.Fatalf("expected error for unknown frequency")
	}
}

type fakeStore struct {
	mu        sync.Mutex
	enabled   []models.ScheduleDefinition
	nextRuns  map[uuid.UUID]time.Time
	runs      []models.ScheduleRun
	listErr   error
}

func (f *fakeStore) ListEnabled(ctx context.Context) ([]models.ScheduleDefinition, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ScheduleDefinition, len(f.enabled))
	copy(out, f.enabled)
	return out, nil
}

func (f *fakeStore) UpdateNextRun(ctx context.Context, scheduleID uuid.UUID, lastRunAt, nextRunAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nextRuns == nil {
		f.nextRuns = make(map[uuid.UUID]time.Time)
	}
	f.nextRuns[scheduleID] = nextRunAt
	return nil
}

func (f *fakeStore) RecordRun(ctx context.Context, run models.ScheduleRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

type fakeStarter struct {
	mu      sync.Mutex
	starts  int
	failErr error
}

func (f *fakeStarter) Start(prefs models.RunPreferences) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.failErr != nil {
		return uuid.Nil, f.failErr
	}
	return uuid.New(), nil
}

func TestEvaluateOnceFiresOnlyDueSchedules(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := models.ScheduleDefinition{ID: uuid.New(), Frequency: models.ScheduleDaily, NextRunAt: &past}
	notDue := models.ScheduleDefinition{ID: uuid.New(), Frequency: models.ScheduleDaily, NextRunAt: &future}
	store := &fakeStore{enabled: []models.ScheduleDefinition{due, notDue}}
	starter := &fakeStarter{}

	s := New(store, starter, testLogger(), time.Minute)
	s.now = func() time.Time { return now }

	s.evaluateOnce(context.Background())

	if starter.starts != 1 {
		t.Fatalf("expected exactly one start, got %d", starter.starts)
	}
	store.mu.Lock()
	runCount := len(store.runs)
	store.mu.Unlock()
	if runCount != 1 {
		t.Fatalf("expected exactly one recorded run, got %d", runCount)
	}
}

func TestFireRecordsFailureMessageWhenStartErrors(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sched := models.ScheduleDefinition{ID: uuid.New(), Frequency: models.ScheduleDaily}
	store := &fakeStore{}
	starter := &fakeStarter{failErr: errStartFailed{}}

	s := New(store, starter, testLogger(), time.Minute)
	s.now = func() time.Time { return now }

	s.fire(context.Background(), sched, now)

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.runs) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(store.runs))
	}
	if store.runs[0].Success {
		t.Fatalf("expected recorded run to be marked unsuccessful")
	}
	if store.runs[0].Message == "" {
		t.Fatalf("expected failure message to be recorded")
	}
}

type errStartFailed struct{}

func (errStartFailed) Error() string { return "start failed" }
