package modelrouter

import (
	"testing"

	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/models"
)

func newTestRouter() *Router {
	return New([]Binding{
		{
			Phase:   models.PhaseContentUnderstanding,
			Backend: "openai",
			Model:   "gpt-4o-mini",
			Params:  map[string]interface{}{"temperature": 0.2},
		},
		{
			Phase:        models.PhaseMediaAnalysis,
			Backend:      "openai",
			Model:        "gpt-4o",
			Capabilities: Capabilities{SupportsVision: true},
		},
		{
			Phase:   models.PhaseEmbeddingGeneration,
			Backend: "local",
			Model:   "text-embed-small",
		},
	})
}

func TestResolveReturnsConfiguredDefault(t *testing.T) {
	r := newTestRouter()
	b, err := r.Resolve(models.PhaseContentUnderstanding, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.Backend != "openai" || b.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected binding: %+v", b)
	}
	if b.Params["temperature"] != 0.2 {
		t.Fatalf("expected default param to survive, got %+v", b.Params)
	}
}

func TestResolveOverrideSupersedesDefault(t *testing.T) {
	r := newTestRouter()
	override := &models.ModelOverride{Model: "gpt-4o-2024"}
	b, err := r.Resolve(models.PhaseContentUnderstanding, override)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.Model != "gpt-4o-2024" {
		t.Fatalf("expected override model, got %q", b.Model)
	}
	if b.Backend != "openai" {
		t.Fatalf("expected unoverridden backend to remain, got %q", b.Backend)
	}
}

func TestResolveMissingBindingIsModelRouterError(t *testing.T) {
	r := New(nil)
	_, err := r.Resolve(models.PhaseContentUnderstanding, nil)
	if kind, ok := agenterrors.KindOf(err); !ok || kind != agenterrors.KindModelRouter {
		t.Fatalf("expected ModelRouter error kind, got %v (ok=%v)", err, ok)
	}
}

func TestResolveFailsCapabilityCheck(t *testing.T) {
	r := New([]Binding{
		{Phase: models.PhaseMediaAnalysis, Backend: "text-only", Model: "m1"},
	})
	_, err := r.Resolve(models.PhaseMediaAnalysis, nil)
	if kind, ok := agenterrors.KindOf(err); !ok || kind != agenterrors.KindCapability {
		t.Fatalf("expected Capability error kind, got %v (ok=%v)", err, ok)
	}
}

func TestResolveEmbeddingPhaseRequiresDimensions(t *testing.T) {
	r := newTestRouter()
	if _, err := r.Resolve(models.PhaseEmbeddingGeneration, nil); err == nil {
		t.Fatalf("expected capability error for zero embedding dimensions")
	}
	r.SetBinding(Binding{
		Phase: models.PhaseEmbeddingGeneration, Backend: "local", Model: "text-embed-small",
		Capabilities: Capabilities{EmbeddingDimensions: 1536},
	})
	if _, err := r.Resolve(models.PhaseEmbeddingGeneration, nil); err != nil {
		t.Fatalf("expected success after setting dimensions, got %v", err)
	}
}
