package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleDefinition is a recurring or manual trigger for pipeline runs.
type ScheduleDefinition struct {
	ID             uuid.UUID             `db:"id" json:"id"`
	Name           string                `db:"name" json:"name"`
	Frequency      ScheduleFrequencyEnum `db:"frequency" json:"frequency"`
	CronExpr       string                `db:"cron_expr" json:"cronExpr,omitempty"`
	Enabled        bool                  `db:"enabled" json:"enabled"`
	PipelineConfig RunPreferences        `db:"-" json:"pipelineConfig"`
	LastRunAt      *time.Time            `db:"last_run_at" json:"lastRunAt,omitempty"`
	NextRunAt      *time.Time            `db:"next_run_at" json:"nextRunAt,omitempty"`
	CreatedAt      time.Time             `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time             `db:"updated_at" json:"updatedAt"`
}

// ScheduleRun records one Scheduler-triggered attempt to start a run.
type ScheduleRun struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ScheduleID uuid.UUID  `db:"schedule_id" json:"scheduleId"`
	TaskID     *uuid.UUID `db:"task_id" json:"taskId,omitempty"`
	StartedAt  time.Time  `db:"started_at" json:"startedAt"`
	EndedAt    *time.Time `db:"ended_at" json:"endedAt,omitempty"`
	Success    bool       `db:"success" json:"success"`
	Message    string     `db:"message" json:"message,omitempty"`
}

// PhaseStats is the monotonically-accumulating per-phase aggregate kept by
// StatsStore across runs.
type PhaseStats struct {
	PhaseID                PhaseID   `db:"phase_id" json:"phaseId"`
	TotalItemsProcessed    int64     `db:"total_items_processed" json:"totalItemsProcessed"`
	TotalDurationSeconds   float64   `db:"total_duration_seconds" json:"totalDurationSeconds"`
	AvgTimePerItemSeconds  float64   `db:"avg_time_per_item_seconds" json:"avgTimePerItemSeconds"`
	LastUpdatedTimestamp   time.Time `db:"last_updated_timestamp" json:"lastUpdatedTimestamp"`
}

// PhasePlan is the transient, per-(run,phase) partition produced by
// PhasePlanner. It is never persisted.
type PhasePlan struct {
	Phase            PhaseID  `json:"phase"`
	TotalEligible    int      `json:"totalEligible"`
	NeedsProcessing  []string `json:"needsProcessing"`
	AlreadyComplete  []string `json:"alreadyComplete"`
	Ineligible       []string `json:"ineligible"`
}

// ShouldSkipPhase is true iff there is no work for this phase in this run.
func (p PhasePlan) ShouldSkipPhase() bool {
	return len(p.NeedsProcessing) == 0
}

// ModelOverride is a partial (backend, model, params) triple superseding the
// ModelRouter's configured default for a single Resolve call.
type ModelOverride struct {
	Backend string                 `json:"backend,omitempty"`
	Model   string                 `json:"model,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ModelBinding is a resolved (backend, model, params) triple.
type ModelBinding struct {
	Backend string                 `json:"backend"`
	Model   string                 `json:"model"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
