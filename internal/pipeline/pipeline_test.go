package pipeline

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/fntelecomllc/kbagent/internal/agentcontroller"
	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/etc"
	"github.com/fntelecomllc/kbagent/internal/eventbus"
	"github.com/fntelecomllc/kbagent/internal/itemstore"
	"github.com/fntelecomllc/kbagent/internal/logging"
	"github.com/fntelecomllc/kbagent/internal/modelrouter"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/fntelecomllc/kbagent/internal/planner"
	"github.com/fntelecomllc/kbagent/internal/retry"
	"github.com/fntelecomllc/kbagent/internal/statsstore"
)

func testRouter() *modelrouter.Router {
	caps := modelrouter.Capabilities{SupportsVision: true, SupportsStreaming: true, EmbeddingDimensions: 1536}
	bindings := []modelrouter.Binding{
		{Phase: models.PhaseMediaAnalysis, Backend: "local", Model: "test", Capabilities: caps},
		{Phase: models.PhaseContentUnderstanding, Backend: "local", Model: "test", Capabilities: caps},
		{Phase: models.PhaseCategorization, Backend: "local", Model: "test", Capabilities: caps},
		{Phase: models.PhaseSynthesisGeneration, Backend: "local", Model: "test", Capabilities: caps},
		{Phase: models.PhaseEmbeddingGeneration, Backend: "local", Model: "test", Capabilities: caps},
	}
	return modelrouter.New(bindings)
}

func newTestEngine(t *testing.T) (*Engine, *itemstore.MemoryStore) {
	t.Helper()
	items := itemstore.NewMemoryStore()
	stats := statsstore.NewMemoryStore()
	logger := logging.New(io.Discard, logging.LevelDebug)
	bus := eventbus.New(eventbus.DefaultBacklog, logger)
	retryMgr := retry.New(retry.Policy{
		MaxRetries:        3,
		BaseDelay:         time.Millisecond,
		MaxDelay:          time.Second,
		ExponentialFactor: 2,
		Strategy:          models.RetryStrategyExponential,
	})
	eng := New(items, planner.New(), testRouter(), etc.New(stats), retryMgr, bus, logger, LocalBackends(), 2)
	return eng, items
}

func mustSeedItem(t *testing.T, items *itemstore.MemoryStore, id string) {
	t.Helper()
	bookmarked := id
	if _, err := items.Upsert(context.Background(), id, models.ItemPatch{BookmarkedItemID: &bookmarked}); err != nil {
		t.Fatalf("seed item %s: %v", id, err)
	}
}

// End-to-end single item: a run over one freshly-seeded item should drive
// it through every item phase and leave all five completion flags true,
// with the run itself reported as successful.
func TestEngineRunSingleItemEndToEnd(t *testing.T) {
	eng, items := newTestEngine(t)
	mustSeedItem(t, items, "item-1")

	var progressed []models.Progress
	result, err := eng.Run(context.Background(), models.RunPreferences{ItemIDs: []string{"item-1"}}, func(p models.Progress) {
		progressed = append(progressed, p)
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result == nil {
		t.Fatalf("Run returned nil result")
	}

	rec, err := items.Get(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec == nil {
		t.Fatalf("item-1 not found after run")
	}
	if !rec.CacheComplete || !rec.MediaProcessed || !rec.CategoriesProcessed || !rec.KBItemCreated || !rec.DBSynced {
		t.Fatalf("expected all five completion flags true, got %+v", rec)
	}
	if !rec.KBItemPath.Valid || rec.KBItemPath.String == "" {
		t.Fatalf("expected kb item path to be set, got %+v", rec.KBItemPath)
	}
	if len(progressed) == 0 {
		t.Fatalf("expected at least one progress report")
	}
}

// A context cancelled before Run starts must stop the pipeline at the first
// phase boundary: the run finishes as cancelled, and any item whose phases
// never ran is left with its completion flags untouched.
func TestEngineRunStopsOnCancellation(t *testing.T) {
	eng, items := newTestEngine(t)
	mustSeedItem(t, items, "item-1")
	mustSeedItem(t, items, "item-2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled before Run starts: no phase executes, Initialization included.

	result, err := eng.Run(ctx, models.RunPreferences{ItemIDs: []string{"item-1", "item-2"}}, nil)
	if err == nil {
		t.Fatalf("expected an error from a cancelled run")
	}
	if !agenterrors.As(err, agenterrors.KindCancelled) {
		t.Fatalf("expected a cancelled-kind error, got %v", err)
	}
	if result == nil {
		t.Fatalf("expected a summary result even on cancellation")
	}

	rec, _ := items.Get(context.Background(), "item-1")
	if rec == nil {
		t.Fatalf("item-1 should still exist")
	}
	if rec.MediaProcessed || rec.CategoriesProcessed || rec.KBItemCreated || rec.DBSynced {
		t.Fatalf("expected no phase completion flags set on a cancelled run, got %+v", rec)
	}
}

// Engine.Run's signature must structurally satisfy agentcontroller.Runner so
// the controller can drive it directly.
var _ agentcontroller.Runner = (*Engine)(nil)
