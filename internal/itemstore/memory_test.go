package itemstore

import (
	"context"
	"testing"

	"github.com/fntelecomllc/kbagent/internal/models"
)

func TestMemoryStoreUpsertPreservesUnspecifiedFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	title := "first title"
	if _, err := s.Upsert(ctx, "item-1", models.ItemPatch{DisplayTitle: &title}); err != nil {
		t.Fatalf("upsert 1: %v", err)
	}

	cacheComplete := true
	rec, err := s.Upsert(ctx, "item-1", models.ItemPatch{CacheComplete: &cacheComplete})
	if err != nil {
		t.Fatalf("upsert 2: %v", err)
	}
	if !rec.CacheComplete {
		t.Fatalf("expected cache_complete=true")
	}
	if !rec.DisplayTitle.Valid || rec.DisplayTitle.String != "first title" {
		t.Fatalf("expected display_title to survive second patch, got %+v", rec.DisplayTitle)
	}
}

func TestMemoryStoreGetMissingIsNotError(t *testing.T) {
	s := NewMemoryStore()
	rec, err := s.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("expected no error for missing item, got %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestMemoryStoreGetManyReturnsOnlyFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.Upsert(ctx, "a", models.ItemPatch{}); err != nil {
		t.Fatalf("upsert a: %v", err)
	}

	got, err := s.GetMany(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("get_many: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if _, ok := got["a"]; !ok {
		t.Fatalf("expected item 'a' present")
	}
}

func TestMemoryStoreClearRuntimeFlags(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	succeeded := true
	if _, err := s.Upsert(ctx, "x", models.ItemPatch{CacheSucceededThisRun: &succeeded}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.ClearRuntimeFlags(ctx, []string{"x"}); err != nil {
		t.Fatalf("clear_runtime_flags: %v", err)
	}
	rec, err := s.Get(ctx, "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.CacheSucceededThisRun {
		t.Fatalf("expected cache_succeeded_this_run cleared")
	}
}

func TestMemoryStoreListByPredicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	complete := true
	incomplete := false
	if _, err := s.Upsert(ctx, "done", models.ItemPatch{CacheComplete: &complete}); err != nil {
		t.Fatalf("upsert done: %v", err)
	}
	if _, err := s.Upsert(ctx, "pending", models.ItemPatch{CacheComplete: &incomplete}); err != nil {
		t.Fatalf("upsert pending: %v", err)
	}

	ids, err := s.ListByPredicate(ctx, func(r *models.ItemRecord) bool { return !r.CacheComplete })
	if err != nil {
		t.Fatalf("list_by_predicate: %v", err)
	}
	if len(ids) != 1 || ids[0] != "pending" {
		t.Fatalf("expected [pending], got %v", ids)
	}
}
