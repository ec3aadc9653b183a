package planner

import (
	"database/sql"
	"testing"

	"github.com/fntelecomllc/kbagent/internal/models"
)

func TestPlanGatesMediaOnCacheCompletion(t *testing.T) {
	p := New()
	items := map[string]models.ItemRecord{
		"cached":    {CacheComplete: true},
		"uncached":  {},
		"cacheFail": {CacheComplete: true, CacheError: sql.NullString{String: "boom", Valid: true}},
	}
	plan := p.Plan(models.PhaseMediaAnalysis, items, models.ForceFlags{})

	if !contains(plan.NeedsProcessing, "cached") {
		t.Fatalf("expected cached item to need media processing, got %+v", plan)
	}
	if !contains(plan.Ineligible, "uncached") {
		t.Fatalf("expected uncached item to be ineligible, got %+v", plan)
	}
	if !contains(plan.Ineligible, "cacheFail") {
		t.Fatalf("expected cache-error item to be ineligible, got %+v", plan)
	}
}

func TestPlanAlreadyCompleteWithoutForce(t *testing.T) {
	p := New()
	items := map[string]models.ItemRecord{
		"done": {CacheComplete: true, MediaProcessed: true},
	}
	plan := p.Plan(models.PhaseMediaAnalysis, items, models.ForceFlags{})
	if !contains(plan.AlreadyComplete, "done") {
		t.Fatalf("expected already-complete item, got %+v", plan)
	}
	if plan.ShouldSkipPhase() != true {
		t.Fatalf("expected should_skip_phase true with no needs-processing items")
	}
}

func TestPlanForceFlagReprocessesComplete(t *testing.T) {
	p := New()
	items := map[string]models.ItemRecord{
		"done": {CacheComplete: true, MediaProcessed: true},
	}
	plan := p.Plan(models.PhaseMediaAnalysis, items, models.ForceFlags{ForceReprocessMedia: true})
	if !contains(plan.NeedsProcessing, "done") {
		t.Fatalf("expected force flag to reprocess a completed item, got %+v", plan)
	}
}

func TestPlanKBItemRequiresCategoryFields(t *testing.T) {
	p := New()
	items := map[string]models.ItemRecord{
		"missingFields": {CacheComplete: true, MediaProcessed: true, CategoriesProcessed: true},
		"ready": {
			CacheComplete: true, MediaProcessed: true, CategoriesProcessed: true,
			MainCategory:       sql.NullString{String: "tech", Valid: true},
			ItemNameSuggestion: sql.NullString{String: "widget", Valid: true},
		},
	}
	plan := p.Plan(models.PhaseKBItemCreation, items, models.ForceFlags{})
	if !contains(plan.Ineligible, "missingFields") {
		t.Fatalf("expected item without category fields to be ineligible, got %+v", plan)
	}
	if !contains(plan.NeedsProcessing, "ready") {
		t.Fatalf("expected fully-categorized item to need kb-item creation, got %+v", plan)
	}
}

func TestGlobalPlanSkipsWhenNotRun(t *testing.T) {
	plan := GlobalPlan(models.PhaseSynthesisGeneration, false)
	if !plan.ShouldSkipPhase() {
		t.Fatalf("expected global plan to skip when run=false")
	}
	plan = GlobalPlan(models.PhaseSynthesisGeneration, true)
	if plan.ShouldSkipPhase() {
		t.Fatalf("expected global plan to run when run=true")
	}
}

func TestValidatePrerequisitesReportsMissingFields(t *testing.T) {
	rec := models.ItemRecord{CategoriesProcessed: true}
	missing := ValidatePrerequisites(models.PhaseKBItemCreation, rec)
	if !contains(missing, "main_category") || !contains(missing, "item_name_suggestion") {
		t.Fatalf("expected missing category fields reported, got %v", missing)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
