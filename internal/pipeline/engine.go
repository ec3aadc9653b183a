package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/etc"
	"github.com/fntelecomllc/kbagent/internal/eventbus"
	"github.com/fntelecomllc/kbagent/internal/itemstore"
	"github.com/fntelecomllc/kbagent/internal/logging"
	"github.com/fntelecomllc/kbagent/internal/modelrouter"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/fntelecomllc/kbagent/internal/observability"
	"github.com/fntelecomllc/kbagent/internal/planner"
	"github.com/fntelecomllc/kbagent/internal/retry"
	"github.com/fntelecomllc/kbagent/internal/state"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// defaultFanout bounds per-item concurrency within a single item-level
// phase when the caller configures no override, matching
// config.WorkerConfig's own default.
const defaultFanout = 4

// Engine is C8's concrete implementation: it satisfies
// agentcontroller.Runner and drives one full run of the fixed phase
// sequence — initialization, the six ordered item phases, then the four
// global phases — wiring every other component per phase. Engine manages
// its own bounded per-item concurrency internally (an errgroup-backed
// semaphore) rather than re-submitting per-item work through TaskRuntime,
// because Engine.Run already executes inside a single TaskRuntime job
// submitted once by agentcontroller.Controller.launch.
type Engine struct {
	Items    itemstore.Store
	Planner  *planner.Planner
	Router   *modelrouter.Router
	ETC      *etc.Estimator
	Retry    *retry.Manager
	Bus      *eventbus.Bus
	Logger   *logging.Logger
	Backends Backends
	Fanout   int

	// Metrics and Tracer are optional: a caller that never sets them (as
	// the component tests don't) gets an Engine that runs exactly as
	// before. cmd/agent wires both so every phase execution is traced
	// and observed without the engine itself depending on how tracing or
	// metrics are configured.
	Metrics *observability.PipelineMetrics
	Tracer  trace.Tracer

	now func() time.Time
}

// New constructs an Engine wiring every other component. StatsStore is not
// held directly: the ETCEstimator passed in already wraps it for
// historical seeding and finalization. fanout <= 0 uses defaultFanout.
func New(items itemstore.Store, plnr *planner.Planner, router *modelrouter.Router,
	estimator *etc.Estimator, retryMgr *retry.Manager, bus *eventbus.Bus, logger *logging.Logger,
	backends Backends, fanout int) *Engine {
	return &Engine{
		Items:    items,
		Planner:  plnr,
		Router:   router,
		ETC:      estimator,
		Retry:    retryMgr,
		Bus:      bus,
		Logger:   logger,
		Backends: backends,
		Fanout:   fanout,
		now:      time.Now,
	}
}

// globalPhaseOrder is the fixed sequence of the four global phases that
// follow the item pipeline, per §4.8.
var globalPhaseOrder = []models.PhaseID{
	models.PhaseSynthesisGeneration,
	models.PhaseEmbeddingGeneration,
	models.PhaseReadmeGeneration,
	models.PhaseGitSync,
}

// dependents maps each phase to every phase downstream of it in the fixed
// linear sequence (initialization -> six item phases -> four global
// phases). A failure that gates dependents (see PhaseResult.Gates) blocks
// every phase in this list for the rest of the run. This models the
// spec's fixed, fully sequential phase order: in this pipeline every
// later phase genuinely does depend on the item/KB state every earlier
// phase leaves behind, so "dependent" and "later in the sequence" coincide.
var dependents = buildDependents()

func buildDependents() map[models.PhaseID][]models.PhaseID {
	order := append([]models.PhaseID{models.PhaseInitialization}, models.OrderedItemPhases...)
	order = append(order, globalPhaseOrder...)

	out := make(map[models.PhaseID][]models.PhaseID, len(order))
	for i, phase := range order {
		out[phase] = append([]models.PhaseID(nil), order[i+1:]...)
	}
	return out
}

// isAIBoundPhase reports whether phase requires a resolved ModelBinding.
func isAIBoundPhase(phase models.PhaseID) bool {
	switch phase {
	case models.PhaseMediaAnalysis, models.PhaseContentUnderstanding, models.PhaseCategorization,
		models.PhaseSynthesisGeneration, models.PhaseEmbeddingGeneration:
		return true
	default:
		return false
	}
}

// completionOwner reports whether phase has its own persisted completion
// flag/error pair on ItemRecord. content_understanding shares
// categories_processed/categories_error with categorization (the planner
// gates both on the same flag, per planner.go's identical eligibility for
// the two) so only categorization, the later of the pair, owns the write.
func completionOwner(phase models.PhaseID) bool {
	switch phase {
	case models.PhaseFetchBookmarks, models.PhaseMediaAnalysis, models.PhaseCategorization,
		models.PhaseKBItemCreation, models.PhaseDBSync:
		return true
	default:
		return false
	}
}

func explicitSkip(phase models.PhaseID, prefs models.RunPreferences) (bool, string) {
	switch phase {
	case models.PhaseFetchBookmarks:
		return prefs.SkipFetchBookmarks, "skipped by run preference"
	case models.PhaseSynthesisGeneration:
		return prefs.SkipSynthesis, "skipped by run preference"
	case models.PhaseEmbeddingGeneration:
		return prefs.SkipEmbedding, "skipped by run preference"
	case models.PhaseReadmeGeneration:
		return prefs.SkipReadme, "skipped by run preference"
	case models.PhaseGitSync:
		return prefs.SkipGitSync, "skipped by run preference"
	default:
		return false, ""
	}
}

func overrideFor(prefs models.RunPreferences, phase models.PhaseID) *models.ModelOverride {
	if prefs.ModelsOverride == nil {
		return nil
	}
	if o, ok := prefs.ModelsOverride[phase]; ok {
		return &o
	}
	return nil
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

// applyCompletionFields sets the phase's own completion flag/error/
// succeeded-this-run fields on patch, for phases that own a persisted
// completion flag (see completionOwner). No-op otherwise.
func applyCompletionFields(patch *models.ItemPatch, phase models.PhaseID, success bool, errMsg string) {
	if !completionOwner(phase) {
		return
	}
	switch phase {
	case models.PhaseFetchBookmarks:
		patch.CacheComplete = boolPtr(success)
		patch.CacheError = strPtr(errMsg)
		patch.CacheSucceededThisRun = boolPtr(success)
	case models.PhaseMediaAnalysis:
		patch.MediaProcessed = boolPtr(success)
		patch.MediaError = strPtr(errMsg)
		patch.MediaSucceededThisRun = boolPtr(success)
	case models.PhaseCategorization:
		patch.CategoriesProcessed = boolPtr(success)
		patch.CategoriesError = strPtr(errMsg)
		patch.CategoriesSucceededThisRun = boolPtr(success)
	case models.PhaseKBItemCreation:
		patch.KBItemCreated = boolPtr(success)
		patch.KBItemError = strPtr(errMsg)
		patch.KBItemSucceededThisRun = boolPtr(success)
	case models.PhaseDBSync:
		patch.DBSynced = boolPtr(success)
		patch.DBSyncError = strPtr(errMsg)
		patch.DBSyncSucceededThisRun = boolPtr(success)
	}
}

func (e *Engine) backendFor(phase models.PhaseID) ItemBackend {
	switch phase {
	case models.PhaseFetchBookmarks:
		return e.Backends.FetchBookmarks
	case models.PhaseMediaAnalysis:
		return e.Backends.MediaAnalysis
	case models.PhaseContentUnderstanding:
		return e.Backends.ContentUnderstanding
	case models.PhaseCategorization:
		return e.Backends.Categorization
	case models.PhaseKBItemCreation:
		return e.Backends.KBItemCreation
	case models.PhaseDBSync:
		return e.Backends.DBSync
	default:
		return nil
	}
}

func (e *Engine) globalBackendFor(phase models.PhaseID) GlobalBackend {
	switch phase {
	case models.PhaseSynthesisGeneration:
		return e.Backends.SynthesisGeneration
	case models.PhaseEmbeddingGeneration:
		return e.Backends.EmbeddingGeneration
	case models.PhaseReadmeGeneration:
		return e.Backends.ReadmeGeneration
	case models.PhaseGitSync:
		return e.Backends.GitSync
	default:
		return nil
	}
}

func (e *Engine) fanoutOrDefault() int {
	if e.Fanout <= 0 {
		return defaultFanout
	}
	return e.Fanout
}

func (e *Engine) publishPhaseUpdate(runID uuid.UUID, phase models.PhaseID, status models.TaskStatusEnum, message string) {
	if e.Bus == nil {
		return
	}
	e.Bus.Publish(eventbus.Event{
		Channel:     eventbus.ChannelPhaseUpdate,
		TaskID:      runID,
		Phase:       phase,
		PhaseStatus: status,
		Message:     message,
	})
}

func (e *Engine) resolveScope(ctx context.Context, prefs models.RunPreferences) ([]string, error) {
	if len(prefs.ItemIDs) > 0 {
		return prefs.ItemIDs, nil
	}
	return e.Items.ListAll(ctx)
}

func (e *Engine) anyItemFlag(ctx context.Context, itemIDs []string, pick func(models.ItemRecord) bool) (bool, error) {
	recs, err := e.Items.GetMany(ctx, itemIDs)
	if err != nil {
		return false, err
	}
	for _, r := range recs {
		if r != nil && pick(*r) {
			return true, nil
		}
	}
	return false, nil
}

// Run executes one full pipeline run for prefs, satisfying
// agentcontroller.Runner. It reports progress via report (never nil-
// checked by the caller, so Engine must tolerate a nil report itself) and
// returns a JSON-encoded RunSummary.
func (e *Engine) Run(ctx context.Context, prefs models.RunPreferences, report func(models.Progress)) (json.RawMessage, error) {
	runID := uuid.New()
	runSM := state.NewRunStateMachine()
	if err := runSM.Transition(state.RunRunning); err != nil {
		return nil, err
	}

	started := e.now()
	summary := newRunSummary()

	itemIDs, err := e.resolveScope(ctx, prefs)
	if err != nil {
		return nil, agenterrors.Storage("resolve run scope", err)
	}

	var (
		blocked   bool
		abortErr  error
		cancelled bool
	)

	runPhase := func(phase models.PhaseID, fn func() (PhaseResult, error)) {
		if cancelled {
			summary.set(phase, PhaseResult{Status: string(state.PhaseCancelled)})
			return
		}
		select {
		case <-ctx.Done():
			cancelled = true
			summary.set(phase, PhaseResult{Status: string(state.PhaseCancelled)})
			return
		default:
		}
		if blocked {
			summary.set(phase, PhaseResult{Status: string(state.PhaseSkipped), Reason: "blocked by upstream failure"})
			return
		}
		if skip, reason := explicitSkip(phase, prefs); skip {
			e.publishPhaseUpdate(runID, phase, models.TaskStatusSuccess, reason)
			summary.set(phase, PhaseResult{Status: string(state.PhaseSkipped), Reason: reason})
			return
		}

		res, phaseErr := fn()
		summary.set(phase, res)

		if phaseErr != nil {
			if agenterrors.As(phaseErr, agenterrors.KindCancelled) {
				cancelled = true
				return
			}
			blocked = true
			abortErr = phaseErr
			return
		}
		if res.Gates {
			blocked = true
			for _, dep := range dependents[phase] {
				summary.set(dep, PhaseResult{Status: string(state.PhaseSkipped), Reason: fmt.Sprintf("blocked: %s gates dependents", phase)})
			}
		}
	}

	runPhase(models.PhaseInitialization, func() (PhaseResult, error) {
		return e.runInitialization(ctx, runID, itemIDs)
	})
	for _, phase := range models.OrderedItemPhases {
		phase := phase
		runPhase(phase, func() (PhaseResult, error) {
			return e.runItemPhase(ctx, runID, phase, itemIDs, prefs, report)
		})
	}

	globalTrigger, _ := e.anyItemFlag(ctx, itemIDs, func(r models.ItemRecord) bool { return r.KBItemSucceededThisRun })

	runPhase(models.PhaseSynthesisGeneration, func() (PhaseResult, error) {
		run := prefs.ForceRegenerateSynthesis || globalTrigger
		return e.runGlobalPhase(ctx, runID, models.PhaseSynthesisGeneration, run, prefs, report)
	})
	if r, ok := summary.get(models.PhaseSynthesisGeneration); ok && r.Status == string(state.PhaseCompleted) {
		globalTrigger = true
	}
	runPhase(models.PhaseEmbeddingGeneration, func() (PhaseResult, error) {
		run := prefs.ForceRegenerateEmbeddings || globalTrigger
		return e.runGlobalPhase(ctx, runID, models.PhaseEmbeddingGeneration, run, prefs, report)
	})
	if r, ok := summary.get(models.PhaseEmbeddingGeneration); ok && r.Status == string(state.PhaseCompleted) {
		globalTrigger = true
	}
	runPhase(models.PhaseReadmeGeneration, func() (PhaseResult, error) {
		return e.runGlobalPhase(ctx, runID, models.PhaseReadmeGeneration, globalTrigger, prefs, report)
	})
	if r, ok := summary.get(models.PhaseReadmeGeneration); ok && r.Status == string(state.PhaseCompleted) {
		globalTrigger = true
	}
	runPhase(models.PhaseGitSync, func() (PhaseResult, error) {
		return e.runGlobalPhase(ctx, runID, models.PhaseGitSync, globalTrigger, prefs, report)
	})

	var finalState state.RunState
	switch {
	case cancelled:
		finalState = state.RunCancelled
	case abortErr != nil, !summary.allSucceededOrSkipped():
		finalState = state.RunFailed
	default:
		finalState = state.RunCompleted
	}
	_ = runSM.Transition(finalState)
	summary.Success = finalState == state.RunCompleted

	if e.Bus != nil {
		e.Bus.Publish(eventbus.Event{
			Channel:  eventbus.ChannelAgentRunCompleted,
			TaskID:   runID,
			Success:  summary.Success,
			Duration: e.now().Sub(started),
			Results:  summary.asResults(),
		})
	}

	result, marshalErr := json.Marshal(summary)
	if marshalErr != nil {
		return nil, agenterrors.Data("marshal run summary", marshalErr)
	}
	if abortErr != nil {
		return result, abortErr
	}
	if cancelled {
		return result, agenterrors.Cancelled("run stopped by request")
	}
	return result, nil
}

func (e *Engine) runInitialization(ctx context.Context, runID uuid.UUID, itemIDs []string) (PhaseResult, error) {
	e.publishPhaseUpdate(runID, models.PhaseInitialization, models.TaskStatusRunning, "")
	if err := e.Items.ClearRuntimeFlags(ctx, itemIDs); err != nil {
		wrapped := agenterrors.Storage("clear runtime flags", err)
		e.publishPhaseUpdate(runID, models.PhaseInitialization, models.TaskStatusFailure, wrapped.Error())
		return PhaseResult{Status: string(state.PhaseFailed), Reason: wrapped.Error()}, wrapped
	}
	e.publishPhaseUpdate(runID, models.PhaseInitialization, models.TaskStatusSuccess, "")
	return PhaseResult{Status: string(state.PhaseCompleted), Attempted: len(itemIDs), Succeeded: len(itemIDs)}, nil
}

// runItemPhase plans, resolves a model binding if needed, and fans the
// phase's backend out across every item that needs processing, bounded
// by fanoutOrDefault concurrent in-flight items.
func (e *Engine) runItemPhase(ctx context.Context, runID uuid.UUID, phase models.PhaseID, itemIDs []string,
	prefs models.RunPreferences, report func(models.Progress)) (PhaseResult, error) {
	phaseStart := e.now()
	e.publishPhaseUpdate(runID, phase, models.TaskStatusRunning, "")

	if e.Tracer != nil {
		var span trace.Span
		ctx, span = observability.StartPhaseSpan(ctx, e.Tracer, runID.String(), string(phase))
		defer span.End()
	}

	records, err := e.Items.GetMany(ctx, itemIDs)
	if err != nil {
		wrapped := agenterrors.Storage("load items for "+string(phase), err)
		e.publishPhaseUpdate(runID, phase, models.TaskStatusFailure, wrapped.Error())
		return PhaseResult{Status: string(state.PhaseFailed), Reason: wrapped.Error()}, wrapped
	}
	recMap := make(map[string]models.ItemRecord, len(records))
	for id, r := range records {
		if r != nil {
			recMap[id] = *r
		}
	}

	plan := e.Planner.Plan(phase, recMap, prefs.ToForceFlags())
	if plan.ShouldSkipPhase() {
		e.publishPhaseUpdate(runID, phase, models.TaskStatusSuccess, "no items need processing")
		return PhaseResult{Status: string(state.PhaseSkipped), Reason: "no items need processing"}, nil
	}

	var binding models.ModelBinding
	if isAIBoundPhase(phase) {
		b, resolveErr := e.Router.Resolve(phase, overrideFor(prefs, phase))
		if resolveErr != nil {
			e.publishPhaseUpdate(runID, phase, models.TaskStatusFailure, resolveErr.Error())
			return PhaseResult{Status: string(state.PhaseFailed), Reason: resolveErr.Error()}, resolveErr
		}
		binding = b
	}

	total := len(plan.NeedsProcessing)
	if _, initErr := e.ETC.Init(ctx, phase, total); initErr != nil && e.Logger != nil {
		e.Logger.Warn("etc init failed", map[string]interface{}{"phase": string(phase), "error": initErr.Error()})
	}

	backend := e.backendFor(phase)

	var (
		mu        sync.Mutex
		processed int
		succeeded int
		failed    int
	)

	sem := make(chan struct{}, e.fanoutOrDefault())
	g, gctx := errgroup.WithContext(ctx)

	for _, id := range plan.NeedsProcessing {
		id := id
		rec, ok := recMap[id]
		if !ok {
			continue
		}

		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			g.Go(func() error {
				defer func() { <-sem }()
				e.processItem(gctx, runID, phase, backend, id, rec, binding, &mu, &processed, &succeeded, &failed, total, report)
				return nil
			})
		}
	}
	_ = g.Wait()

	if finErr := e.ETC.Finalize(ctx, phase); finErr != nil && e.Logger != nil {
		e.Logger.Warn("etc finalize failed", map[string]interface{}{"phase": string(phase), "error": finErr.Error()})
	}

	failureRate := 0.0
	if total > 0 {
		failureRate = float64(failed) / float64(total)
	}
	gates := failureRate > 0.5

	status := models.TaskStatusSuccess
	phaseState := state.PhaseCompleted
	if gates {
		status = models.TaskStatusFailure
		phaseState = state.PhaseFailed
	}
	e.publishPhaseUpdate(runID, phase, status, "")
	elapsed := state.ElapsedSince(phaseStart)
	if e.Logger != nil {
		e.Logger.Info("phase finished", map[string]interface{}{
			"phase": string(phase), "status": string(status), "elapsed": elapsed.String(),
			"succeeded": succeeded, "failed": failed,
		})
	}
	if e.Metrics != nil {
		e.Metrics.ObservePhase(phase, string(status), elapsed)
	}

	return PhaseResult{
		Status:    string(phaseState),
		Attempted: total,
		Succeeded: succeeded,
		Failed:    failed,
		Skipped:   len(plan.AlreadyComplete) + len(plan.Ineligible),
		Gates:     gates,
	}, nil
}

// processItem runs backend against one item, merges the resulting patch
// with completion/retry bookkeeping, and persists it. It never returns an
// error: per-item failures are recorded in the tallies and on the item
// record itself, not propagated to the phase as a whole (only the
// aggregate failure rate does that).
func (e *Engine) processItem(ctx context.Context, runID uuid.UUID, phase models.PhaseID, backend ItemBackend, id string, rec models.ItemRecord,
	binding models.ModelBinding, mu *sync.Mutex, processed, succeeded, failed *int, total int, report func(models.Progress)) {
	start := e.now()

	var (
		patch models.ItemPatch
		opErr error
	)
	if backend != nil {
		patch, opErr = backend(ctx, rec, binding)
	}
	duration := e.now().Sub(start)

	mu.Lock()
	*processed++
	current := *processed
	mu.Unlock()
	e.ETC.Update(phase, current, &duration)

	errMsg := ""
	if opErr != nil {
		errMsg = opErr.Error()
		mu.Lock()
		*failed++
		mu.Unlock()

		e.Retry.RecordFailure(id, rec, opErr)
		retryPatch := e.Retry.ScheduleRetry(rec, opErr)
		patch.RetryCount = retryPatch.RetryCount
		patch.LastRetryAttempt = retryPatch.LastRetryAttempt
		patch.NextRetryAfter = retryPatch.NextRetryAfter
		patch.FailureType = retryPatch.FailureType
		patch.AppendRetryHistory = retryPatch.AppendRetryHistory

		if e.Logger != nil {
			e.Logger.Warn("item phase failed", map[string]interface{}{
				"phase": string(phase), "itemId": id, "error": errMsg,
			})
		}
	} else {
		mu.Lock()
		*succeeded++
		mu.Unlock()

		clearPatch := e.Retry.Clear(id)
		patch.RetryCount = clearPatch.RetryCount
		patch.LastRetryAttempt = clearPatch.LastRetryAttempt
		patch.NextRetryAfter = clearPatch.NextRetryAfter
		patch.FailureType = clearPatch.FailureType
	}

	applyCompletionFields(&patch, phase, opErr == nil, errMsg)

	if _, upsertErr := e.Items.Upsert(ctx, id, patch); upsertErr != nil && e.Logger != nil {
		e.Logger.Error("item upsert failed", map[string]interface{}{
			"phase": string(phase), "itemId": id, "error": upsertErr.Error(),
		})
	}

	if report != nil {
		report(models.Progress{Current: current, Total: total, Text: string(phase)})
	}
	if e.Bus != nil {
		e.Bus.Publish(eventbus.Event{
			Channel:  eventbus.ChannelAgentProgressUpdate,
			TaskID:   runID,
			Phase:    phase,
			Progress: &models.Progress{Current: current, Total: total},
			Message:  id,
		})
	}
}

// runGlobalPhase runs a global phase's single unit of work if run is
// true, per the trigger heuristics computed by the caller.
func (e *Engine) runGlobalPhase(ctx context.Context, runID uuid.UUID, phase models.PhaseID, run bool,
	prefs models.RunPreferences, report func(models.Progress)) (PhaseResult, error) {
	phaseStart := e.now()
	e.publishPhaseUpdate(runID, phase, models.TaskStatusRunning, "")

	if e.Tracer != nil {
		var span trace.Span
		ctx, span = observability.StartPhaseSpan(ctx, e.Tracer, runID.String(), string(phase))
		defer span.End()
	}

	plan := planner.GlobalPlan(phase, run)
	if plan.ShouldSkipPhase() {
		e.publishPhaseUpdate(runID, phase, models.TaskStatusSuccess, "no trigger condition met")
		return PhaseResult{Status: string(state.PhaseSkipped), Reason: "no trigger condition met"}, nil
	}

	var binding models.ModelBinding
	if isAIBoundPhase(phase) {
		b, resolveErr := e.Router.Resolve(phase, overrideFor(prefs, phase))
		if resolveErr != nil {
			e.publishPhaseUpdate(runID, phase, models.TaskStatusFailure, resolveErr.Error())
			return PhaseResult{Status: string(state.PhaseFailed), Reason: resolveErr.Error()}, resolveErr
		}
		binding = b
	}

	if _, initErr := e.ETC.Init(ctx, phase, 1); initErr != nil && e.Logger != nil {
		e.Logger.Warn("etc init failed", map[string]interface{}{"phase": string(phase), "error": initErr.Error()})
	}

	backend := e.globalBackendFor(phase)
	start := e.now()
	var opErr error
	if backend != nil {
		opErr = backend(ctx, binding)
	}
	duration := e.now().Sub(start)
	e.ETC.Update(phase, 1, &duration)
	if finErr := e.ETC.Finalize(ctx, phase); finErr != nil && e.Logger != nil {
		e.Logger.Warn("etc finalize failed", map[string]interface{}{"phase": string(phase), "error": finErr.Error()})
	}

	if report != nil {
		report(models.Progress{Current: 1, Total: 1, Text: string(phase)})
	}

	if opErr != nil {
		e.publishPhaseUpdate(runID, phase, models.TaskStatusFailure, opErr.Error())
		if e.Metrics != nil {
			e.Metrics.ObservePhase(phase, string(models.TaskStatusFailure), state.ElapsedSince(phaseStart))
		}
		return PhaseResult{Status: string(state.PhaseFailed), Attempted: 1, Failed: 1, Reason: opErr.Error(), Gates: true}, nil
	}
	e.publishPhaseUpdate(runID, phase, models.TaskStatusSuccess, "")
	if e.Metrics != nil {
		e.Metrics.ObservePhase(phase, string(models.TaskStatusSuccess), state.ElapsedSince(phaseStart))
	}
	return PhaseResult{Status: string(state.PhaseCompleted), Attempted: 1, Succeeded: 1}, nil
}
