// Package eventbus implements C9: fan-out of typed, per-task-ordered
// status/progress/log events to subscribers. Ground:
// websocket.WebSocketManager's register/unregister/broadcast channel loop
// and its per-campaign eventSequenceMap, generalized from a single
// websocket transport to a transport-agnostic in-process bus; a
// gorilla/websocket adapter (wsadapter.go) binds one subscriber to a
// socket connection the way the teacher's Client type does.
package eventbus

import (
	"time"

	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/google/uuid"
)

// Channel names the logical event channel, per §4.9's enumerated list.
type Channel string

const (
	ChannelAgentStatus         Channel = "agent_status"
	ChannelAgentStatusUpdate   Channel = "agent_status_update"
	ChannelAgentProgressUpdate Channel = "agent_progress_update"
	ChannelPhaseUpdate         Channel = "phase_update"
	ChannelLogMessage          Channel = "log_message"
	ChannelGPUStats            Channel = "gpu_stats"
	ChannelSystemHealthUpdate  Channel = "system_health_update"
	ChannelAgentRunCompleted   Channel = "agent_run_completed"
)

// Event is the envelope published on the bus; only the fields relevant to
// its Channel are populated, mirroring the teacher's single
// StandardizedWebSocketMessage carrying a discriminated payload.
type Event struct {
	Channel   Channel    `json:"channel"`
	Timestamp time.Time  `json:"timestamp"`
	Sequence  int64      `json:"sequence"`
	TaskID    uuid.UUID  `json:"taskId,omitempty"`

	// agent_status / agent_status_update
	AgentState *models.AgentState `json:"agentState,omitempty"`

	// agent_progress_update
	Phase    models.PhaseID  `json:"phase,omitempty"`
	Progress *models.Progress `json:"progress,omitempty"`
	Message  string          `json:"message,omitempty"`

	// phase_update
	PhaseStatus models.TaskStatusEnum `json:"phaseStatus,omitempty"`

	// log_message
	LogLevel  string `json:"logLevel,omitempty"`
	LogModule string `json:"logModule,omitempty"`

	// gpu_stats / system_health_update
	Telemetry map[string]float64 `json:"telemetry,omitempty"`

	// agent_run_completed
	Success  bool            `json:"success,omitempty"`
	Duration time.Duration   `json:"duration,omitempty"`
	Results  map[string]any  `json:"results,omitempty"`
}
