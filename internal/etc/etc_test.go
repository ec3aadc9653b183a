package etc

import (
	"context"
	"testing"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/fntelecomllc/kbagent/internal/statsstore"
)

func durPtr(d time.Duration) *time.Duration { return &d }

func TestInitSeedsFromHistoricalAverage(t *testing.T) {
	stats := statsstore.NewMemoryStore()
	ctx := context.Background()
	if err := stats.Record(ctx, models.PhaseCategorization, 10, 50); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	e := New(stats)
	snap, err := e.Init(ctx, models.PhaseCategorization, 20)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if snap.EstimatedCompletionTime == nil {
		t.Fatalf("expected seeded estimate from historical average")
	}
}

func TestInitLeavesEstimateNilWithoutHistory(t *testing.T) {
	e := New(statsstore.NewMemoryStore())
	snap, err := e.Init(context.Background(), models.PhaseCategorization, 20)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if snap.EstimatedCompletionTime != nil {
		t.Fatalf("expected nil estimate with no history, got %v", snap.EstimatedCompletionTime)
	}
}

func TestUpdateMedianResistsOutlier(t *testing.T) {
	e := New(statsstore.NewMemoryStore())
	ctx := context.Background()
	if _, err := e.Init(ctx, models.PhaseMediaAnalysis, 10); err != nil {
		t.Fatalf("init: %v", err)
	}

	samples := []time.Duration{time.Second, time.Second, time.Second, time.Second, 30 * time.Minute}
	for i, d := range samples {
		e.Update(models.PhaseMediaAnalysis, i+1, durPtr(d))
	}
	snap, ok := e.Current(models.PhaseMediaAnalysis)
	if !ok {
		t.Fatalf("expected phase to be tracked")
	}
	if snap.CurrentAvgTimePerItem != time.Second {
		t.Fatalf("expected median to resist the outlier, got %v", snap.CurrentAvgTimePerItem)
	}
}

func TestUpdateFiltersNoiseSamples(t *testing.T) {
	e := New(statsstore.NewMemoryStore())
	ctx := context.Background()
	if _, err := e.Init(ctx, models.PhaseMediaAnalysis, 5); err != nil {
		t.Fatalf("init: %v", err)
	}
	e.Update(models.PhaseMediaAnalysis, 1, durPtr(50*time.Millisecond))
	e.Update(models.PhaseMediaAnalysis, 2, durPtr(2*time.Hour))
	snap, _ := e.Current(models.PhaseMediaAnalysis)
	if snap.CurrentAvgTimePerItem != 0 {
		t.Fatalf("expected both out-of-range samples filtered, got %v", snap.CurrentAvgTimePerItem)
	}
}

func TestUpdateZeroDeltaIsNoop(t *testing.T) {
	e := New(statsstore.NewMemoryStore())
	ctx := context.Background()
	if _, err := e.Init(ctx, models.PhaseMediaAnalysis, 5); err != nil {
		t.Fatalf("init: %v", err)
	}
	e.Update(models.PhaseMediaAnalysis, 1, durPtr(time.Second))
	before, _ := e.Current(models.PhaseMediaAnalysis)
	e.Update(models.PhaseMediaAnalysis, 1, nil)
	after, _ := e.Current(models.PhaseMediaAnalysis)
	if before.CurrentAvgTimePerItem != after.CurrentAvgTimePerItem {
		t.Fatalf("expected zero-delta update to be a ring no-op")
	}
}

func TestFinalizeRecordsToStatsStoreAndDropsEntry(t *testing.T) {
	stats := statsstore.NewMemoryStore()
	ctx := context.Background()
	e := New(stats)
	if _, err := e.Init(ctx, models.PhaseCategorization, 3); err != nil {
		t.Fatalf("init: %v", err)
	}
	e.Update(models.PhaseCategorization, 3, durPtr(time.Second))

	if err := e.Finalize(ctx, models.PhaseCategorization); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, ok := e.Current(models.PhaseCategorization); ok {
		t.Fatalf("expected phase entry dropped after finalize")
	}
	all, err := stats.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if all[models.PhaseCategorization].TotalItemsProcessed != 3 {
		t.Fatalf("expected finalize to record 3 items, got %+v", all[models.PhaseCategorization])
	}
}
