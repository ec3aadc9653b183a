// Package agentcontroller implements C10: the narrow start/stop/status
// lifecycle facade in front of the pipeline engine. Ground:
// campaign_orchestrator_service.go's per-campaign control-surface methods
// (SetCampaignStatus/StopCampaign/GetCampaignStatus), generalized from
// per-campaign control to a single global run controller — the Design
// Notes call for replacing module-level singleton state with an explicit
// typed container constructed once in cmd/agent/main.go and threaded in,
// which this package's Controller value is.
package agentcontroller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/fntelecomllc/kbagent/internal/taskruntime"
	"github.com/google/uuid"
)

// Runner executes one full pipeline run for prefs, reporting progress as
// it goes, and returning a JSON-serializable summary on success.
type Runner interface {
	Run(ctx context.Context, prefs models.RunPreferences, report func(models.Progress)) (json.RawMessage, error)
}

// Submitter is the subset of taskruntime.Runtime the controller depends
// on, so it can be started against a real Runtime or a test double.
type Submitter interface {
	Submit(spec taskruntime.JobSpec) (uuid.UUID, error)
	Cancel(taskID uuid.UUID) bool
}

// Controller is C10's concrete implementation: at most one run is
// `is_running=true` at a time, serialized behind a single mutex, per §5's
// "AgentState: serialized behind a singleton mutex" requirement.
type Controller struct {
	runner  Runner
	runtime Submitter
	now     func() time.Time

	// EnqueueConcurrentStarts selects the behavior when Start is called
	// while a run is already in progress: true enqueues (accepted, runs
	// after the current one via an internal 1-deep pending slot), false
	// fails fast with an error.
	EnqueueConcurrentStarts bool

	mu      sync.Mutex
	state   models.AgentState
	pending *models.RunPreferences
}

// New constructs a Controller with no run in progress.
func New(runner Runner, runtime Submitter) *Controller {
	return &Controller{runner: runner, runtime: runtime, now: time.Now}
}

// Start begins a run for prefs, returning the new run's task id. If a run
// is already active, behavior is governed by EnqueueConcurrentStarts.
func (c *Controller) Start(prefs models.RunPreferences) (uuid.UUID, error) {
	if err := prefs.Validate(); err != nil {
		return uuid.Nil, err
	}

	c.mu.Lock()
	if c.state.IsRunning {
		if !c.EnqueueConcurrentStarts {
			c.mu.Unlock()
			return uuid.Nil, fmt.Errorf("agentcontroller: a run is already in progress")
		}
		c.pending = &prefs
		c.mu.Unlock()
		return uuid.Nil, nil
	}
	c.mu.Unlock()

	return c.launch(prefs)
}

func (c *Controller) launch(prefs models.RunPreferences) (uuid.UUID, error) {
	taskID, err := c.runtime.Submit(taskruntime.JobSpec{
		Type:  models.TaskTypePipelineRun,
		Phase: models.PhaseInitialization,
		Queue: models.QueuePriority,
		Run: func(ctx context.Context, report func(models.Progress)) (json.RawMessage, error) {
			result, runErr := c.runner.Run(ctx, prefs, report)
			c.finish()
			return result, runErr
		},
	})
	if err != nil {
		return uuid.Nil, err
	}

	now := c.now()
	c.mu.Lock()
	c.state = models.AgentState{IsRunning: true, CurrentTaskID: &taskID, StartedAt: &now}
	c.mu.Unlock()
	return taskID, nil
}

// finish clears the running state and, if a concurrent start was queued
// while this run was active, launches it next.
func (c *Controller) finish() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.state = models.AgentState{}
	c.mu.Unlock()

	if pending != nil {
		_, _ = c.launch(*pending)
	}
}

// Stop requests cancellation. If taskID is nil, the current run (if any)
// is targeted; returns false if there is nothing to cancel.
func (c *Controller) Stop(taskID *uuid.UUID) bool {
	c.mu.Lock()
	target := taskID
	if target == nil {
		target = c.state.CurrentTaskID
	}
	if target != nil {
		c.state.StopRequested = true
	}
	c.mu.Unlock()

	if target == nil {
		return false
	}
	return c.runtime.Cancel(*target)
}

// Status returns a snapshot of the current AgentState.
func (c *Controller) Status() models.AgentState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress records an in-process progress poke, per §4.10's
// `progress(task_id, patch)` operation; it only updates the human-readable
// status message surfaced by Status().
func (c *Controller) Progress(taskID uuid.UUID, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.CurrentTaskID != nil && *c.state.CurrentTaskID == taskID {
		c.state.CurrentPhaseMessage = message
	}
}
