// Package pipeline implements C8: the seven-phase execution engine that
// drives every other component (planner, router, estimator, retry
// manager, stores, event bus) through one full run. Ground:
// campaign_orchestrator_service.go's HandleCampaignCompletion phase-
// chaining and campaign_state_machine.go's state shape, generalized from
// a single campaign's lifecycle to the fixed item+global phase sequence.
package pipeline

import (
	"context"
	"fmt"

	"github.com/fntelecomllc/kbagent/internal/models"
)

// ItemBackend performs one item-level phase's unit of work against rec
// and returns the domain-field patch to merge — display title, full
// text, categories, kb paths, and so on. It must never set a completion
// flag or error annotation itself: Engine derives those from whether the
// returned error is nil. binding is the zero value for phases with no AI
// requirement.
type ItemBackend func(ctx context.Context, rec models.ItemRecord, binding models.ModelBinding) (models.ItemPatch, error)

// GlobalBackend performs one global (non-per-item) phase's unit of work.
type GlobalBackend func(ctx context.Context, binding models.ModelBinding) error

// Backends is the bound set of phase implementations Engine drives. Per
// §4.12, these external surfaces are specified only as a bounded set of
// message types in/out; transport is left to the implementer. LocalBackends
// below is the concrete, transport-free stand-in that makes Engine
// runnable and testable without any external AI service or git remote.
type Backends struct {
	FetchBookmarks       ItemBackend
	MediaAnalysis        ItemBackend
	ContentUnderstanding ItemBackend
	Categorization       ItemBackend
	KBItemCreation       ItemBackend
	DBSync               ItemBackend

	SynthesisGeneration GlobalBackend
	EmbeddingGeneration GlobalBackend
	ReadmeGeneration    GlobalBackend
	GitSync             GlobalBackend
}

// LocalBackends returns a Backends value whose phases do real, local,
// deterministic work instead of calling out to an AI backend or a git
// remote — ground: §4.12's "implementers may bind any transport" license,
// taken literally as "bind none at all" for the default in-process
// configuration; cmd/agent always uses it (it wires no other backend set),
// and so do this package's own tests.
func LocalBackends() Backends {
	return Backends{
		FetchBookmarks: func(_ context.Context, rec models.ItemRecord, _ models.ModelBinding) (models.ItemPatch, error) {
			title := rec.DisplayTitle.String
			if title == "" {
				title = rec.BookmarkedItemID
			}
			return models.ItemPatch{DisplayTitle: &title}, nil
		},
		MediaAnalysis: func(_ context.Context, _ models.ItemRecord, _ models.ModelBinding) (models.ItemPatch, error) {
			return models.ItemPatch{}, nil
		},
		ContentUnderstanding: func(_ context.Context, rec models.ItemRecord, _ models.ModelBinding) (models.ItemPatch, error) {
			text := rec.FullText.String
			if text == "" {
				text = rec.DisplayTitle.String
			}
			return models.ItemPatch{FullText: &text}, nil
		},
		Categorization: func(_ context.Context, rec models.ItemRecord, _ models.ModelBinding) (models.ItemPatch, error) {
			main := "uncategorized"
			name := rec.BookmarkedItemID
			if name == "" {
				name = rec.ItemID
			}
			return models.ItemPatch{MainCategory: &main, ItemNameSuggestion: &name}, nil
		},
		KBItemCreation: func(_ context.Context, rec models.ItemRecord, _ models.ModelBinding) (models.ItemPatch, error) {
			path := fmt.Sprintf("kb/%s.md", rec.ItemID)
			return models.ItemPatch{KBItemPath: &path}, nil
		},
		DBSync: func(_ context.Context, _ models.ItemRecord, _ models.ModelBinding) (models.ItemPatch, error) {
			return models.ItemPatch{}, nil
		},

		SynthesisGeneration: func(_ context.Context, _ models.ModelBinding) error { return nil },
		EmbeddingGeneration: func(_ context.Context, _ models.ModelBinding) error { return nil },
		ReadmeGeneration:    func(_ context.Context, _ models.ModelBinding) error { return nil },
		GitSync:             func(_ context.Context, _ models.ModelBinding) error { return nil },
	}
}
