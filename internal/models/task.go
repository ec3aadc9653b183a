package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Progress is a (current, total) pair plus a human-readable status text,
// coalesced by TaskRuntime so subscribers see at most one update per ~100ms.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Text    string `json:"text,omitempty"`
}

// Fraction returns Current/Total in [0,1], or 0 when Total is 0.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Current) / float64(p.Total)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}

// TaskState is one background job tracked by TaskRuntime.
type TaskState struct {
	TaskID   uuid.UUID      `db:"task_id" json:"taskId"`
	Type     TaskTypeEnum   `db:"type" json:"type"`
	Status   TaskStatusEnum `db:"status" json:"status"`
	Phase    PhaseID        `db:"phase" json:"phase,omitempty"`
	Progress Progress       `db:"-" json:"progress"`

	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	Result json.RawMessage `db:"result" json:"result,omitempty"`
	Error  string          `db:"error" json:"error,omitempty"`

	ParentTaskID *uuid.UUID `db:"parent_task_id" json:"parentTaskId,omitempty"`

	Queue      QueueClass `db:"queue" json:"queue"`
	RetryCount int        `db:"retry_count" json:"retryCount"`
}

// AgentState is the singleton run-lifecycle snapshot owned by
// AgentController.
type AgentState struct {
	IsRunning           bool       `json:"isRunning"`
	CurrentPhaseMessage string     `json:"currentPhaseMessage,omitempty"`
	CurrentTaskID       *uuid.UUID `json:"currentTaskId,omitempty"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	StopRequested        bool      `json:"stopRequested"`
}

// RunPreferences is the payload accepted by AgentController.Start: run mode,
// per-phase skip flags, per-phase force flags, and model overrides.
type RunPreferences struct {
	RunMode string `json:"runMode,omitempty"` // e.g. "full", "partial"
	ItemIDs []string `json:"itemIds,omitempty"`

	SkipFetchBookmarks bool `json:"skipFetchBookmarks,omitempty"`
	SkipSynthesis      bool `json:"skipSynthesis,omitempty"`
	SkipEmbedding      bool `json:"skipEmbedding,omitempty"`
	SkipReadme         bool `json:"skipReadme,omitempty"`
	SkipGitSync        bool `json:"skipGitSync,omitempty"`

	ForceRecacheItems          bool `json:"forceRecacheItems,omitempty"`
	ForceReprocessMedia        bool `json:"forceReprocessMedia,omitempty"`
	ForceReprocessLLM          bool `json:"forceReprocessLlm,omitempty"`
	ForceReprocessKBItem       bool `json:"forceReprocessKbItem,omitempty"`
	ForceRegenerateSynthesis   bool `json:"forceRegenerateSynthesis,omitempty"`
	ForceRegenerateEmbeddings  bool `json:"forceRegenerateEmbeddings,omitempty"`

	ModelsOverride map[PhaseID]ModelOverride `json:"modelsOverride,omitempty"`
}

// ForceFlags is the subset of RunPreferences the PhasePlanner consumes.
type ForceFlags struct {
	ForceRecacheItems         bool
	ForceReprocessMedia       bool
	ForceReprocessLLM         bool
	ForceReprocessKBItem      bool
	ForceRegenerateSynthesis  bool
	ForceRegenerateEmbeddings bool
}

// ToForceFlags extracts the force-flag subset from a RunPreferences value.
func (p RunPreferences) ToForceFlags() ForceFlags {
	return ForceFlags{
		ForceRecacheItems:         p.ForceRecacheItems,
		ForceReprocessMedia:       p.ForceReprocessMedia,
		ForceReprocessLLM:         p.ForceReprocessLLM,
		ForceReprocessKBItem:      p.ForceReprocessKBItem,
		ForceRegenerateSynthesis:  p.ForceRegenerateSynthesis,
		ForceRegenerateEmbeddings: p.ForceRegenerateEmbeddings,
	}
}
