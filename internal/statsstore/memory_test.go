package statsstore

import (
	"context"
	"testing"

	"github.com/fntelecomllc/kbagent/internal/models"
)

func TestMemoryStoreRecordAccumulates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Record(ctx, models.PhaseMediaAnalysis, 10, 100); err != nil {
		t.Fatalf("record 1: %v", err)
	}
	if err := s.Record(ctx, models.PhaseMediaAnalysis, 5, 25); err != nil {
		t.Fatalf("record 2: %v", err)
	}

	stats, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := stats[models.PhaseMediaAnalysis]
	if got.TotalItemsProcessed != 15 {
		t.Fatalf("expected 15 items processed, got %d", got.TotalItemsProcessed)
	}
	if got.TotalDurationSeconds != 125 {
		t.Fatalf("expected 125s total duration, got %v", got.TotalDurationSeconds)
	}
	wantAvg := 125.0 / 15.0
	if got.AvgTimePerItemSeconds != wantAvg {
		t.Fatalf("expected avg %v, got %v", wantAvg, got.AvgTimePerItemSeconds)
	}
}

func TestMemoryStoreRecordNoopOnZeroItems(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Record(ctx, models.PhaseMediaAnalysis, 0, 50); err != nil {
		t.Fatalf("record: %v", err)
	}
	stats, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := stats[models.PhaseMediaAnalysis]; ok {
		t.Fatalf("expected no stats entry created for a zero-item record call")
	}
}
