// Package planner implements C6: partitioning items into needs-processing,
// already-complete, and ineligible sets for each pipeline phase. Ground:
// campaign_state_machine.go's explicit state-transition-table style
// (a phase's eligibility is a pure function of the record's flags), which
// this package generalizes from a single-campaign lifecycle to per-item,
// per-phase gating across the whole item set.
package planner

import (
	"github.com/fntelecomllc/kbagent/internal/models"
)

// Planner classifies items per phase using the dependency-gated rules in
// §4.6. It holds no state: every call is a pure function of its inputs.
type Planner struct{}

// New constructs a Planner.
func New() *Planner { return &Planner{} }

// Plan computes the PhasePlan for phase across items, honoring force.
// Phases with no per-item representation (synthesis, embedding) must be
// planned via GlobalPlan instead.
func (p *Planner) Plan(phase models.PhaseID, items map[string]models.ItemRecord, force models.ForceFlags) models.PhasePlan {
	plan := models.PhasePlan{Phase: phase}

	for id, rec := range items {
		if !eligible(phase, rec) {
			plan.Ineligible = append(plan.Ineligible, id)
			continue
		}
		plan.TotalEligible++
		if needsProcessing(phase, rec, force) {
			plan.NeedsProcessing = append(plan.NeedsProcessing, id)
		} else {
			plan.AlreadyComplete = append(plan.AlreadyComplete, id)
		}
	}
	return plan
}

// GlobalPlan computes the pseudo-entry plan for a global (non-per-item)
// phase: NeedsProcessing holds a single "run" or nothing at all when run
// is false, matching ShouldSkipPhase's "empty needs_processing" contract.
func GlobalPlan(phase models.PhaseID, run bool) models.PhasePlan {
	plan := models.PhasePlan{Phase: phase}
	if run {
		plan.NeedsProcessing = []string{"run"}
	}
	return plan
}

// eligible reports whether rec currently qualifies to even be considered
// for phase, independent of whether it still needs the work done.
func eligible(phase models.PhaseID, rec models.ItemRecord) bool {
	switch phase {
	case models.PhaseFetchBookmarks:
		return true
	case models.PhaseMediaAnalysis:
		return rec.CacheComplete && !rec.CacheError.Valid
	case models.PhaseContentUnderstanding, models.PhaseCategorization:
		return rec.CacheComplete && rec.MediaProcessed && !rec.CacheError.Valid && !rec.MediaError.Valid
	case models.PhaseKBItemCreation:
		return rec.CategoriesProcessed && !rec.CacheError.Valid && !rec.MediaError.Valid && !rec.CategoriesError.Valid &&
			rec.MainCategory.Valid && rec.ItemNameSuggestion.Valid
	case models.PhaseDBSync:
		return rec.KBItemCreated && rec.KBItemPath.Valid
	default:
		return false
	}
}

// needsProcessing reports whether an eligible record still requires work
// for phase, folding in the corresponding force-reprocess flag.
func needsProcessing(phase models.PhaseID, rec models.ItemRecord, force models.ForceFlags) bool {
	switch phase {
	case models.PhaseFetchBookmarks:
		return force.ForceRecacheItems || !rec.CacheComplete
	case models.PhaseMediaAnalysis:
		return force.ForceReprocessMedia || !rec.MediaProcessed
	case models.PhaseContentUnderstanding, models.PhaseCategorization:
		return force.ForceReprocessLLM || !rec.CategoriesProcessed
	case models.PhaseKBItemCreation:
		return force.ForceReprocessKBItem || !rec.KBItemCreated
	case models.PhaseDBSync:
		// Regenerating the kb item implies resyncing it.
		return force.ForceReprocessKBItem || !rec.DBSynced
	default:
		return false
	}
}

// Prerequisites lists the phases that must be dependency-clean before
// phase can run, in dependency order.
func Prerequisites(phase models.PhaseID) []models.PhaseID {
	switch phase {
	case models.PhaseFetchBookmarks:
		return nil
	case models.PhaseMediaAnalysis:
		return []models.PhaseID{models.PhaseFetchBookmarks}
	case models.PhaseContentUnderstanding, models.PhaseCategorization:
		return []models.PhaseID{models.PhaseFetchBookmarks, models.PhaseMediaAnalysis}
	case models.PhaseKBItemCreation:
		return []models.PhaseID{models.PhaseFetchBookmarks, models.PhaseMediaAnalysis, models.PhaseCategorization}
	case models.PhaseDBSync:
		return []models.PhaseID{models.PhaseKBItemCreation}
	default:
		return nil
	}
}

// ValidatePrerequisites reports which required fields are missing for rec
// to proceed with phase, for debuggability when eligible() returns false.
func ValidatePrerequisites(phase models.PhaseID, rec models.ItemRecord) []string {
	var missing []string
	switch phase {
	case models.PhaseMediaAnalysis:
		if !rec.CacheComplete {
			missing = append(missing, "cache_complete")
		}
		if rec.CacheError.Valid {
			missing = append(missing, "cache_error")
		}
	case models.PhaseContentUnderstanding, models.PhaseCategorization:
		if !rec.CacheComplete {
			missing = append(missing, "cache_complete")
		}
		if !rec.MediaProcessed {
			missing = append(missing, "media_processed")
		}
		if rec.CacheError.Valid {
			missing = append(missing, "cache_error")
		}
		if rec.MediaError.Valid {
			missing = append(missing, "media_error")
		}
	case models.PhaseKBItemCreation:
		if !rec.CategoriesProcessed {
			missing = append(missing, "categories_processed")
		}
		if !rec.MainCategory.Valid {
			missing = append(missing, "main_category")
		}
		if !rec.ItemNameSuggestion.Valid {
			missing = append(missing, "item_name_suggestion")
		}
	case models.PhaseDBSync:
		if !rec.KBItemCreated {
			missing = append(missing, "kb_item_created")
		}
		if !rec.KBItemPath.Valid {
			missing = append(missing, "kb_item_path")
		}
	}
	return missing
}
