package eventbus

import "github.com/fntelecomllc/kbagent/internal/taskruntime"

// TaskRuntimeAdapter satisfies taskruntime.Publisher, translating its
// generic status/progress events into this package's typed channels.
type TaskRuntimeAdapter struct{ bus *Bus }

// NewTaskRuntimeAdapter wraps bus for use as a taskruntime.Publisher.
func NewTaskRuntimeAdapter(bus *Bus) *TaskRuntimeAdapter { return &TaskRuntimeAdapter{bus: bus} }

// Publish implements taskruntime.Publisher.
func (a *TaskRuntimeAdapter) Publish(evt taskruntime.Event) {
	switch evt.Type {
	case "progress":
		progress := evt.Progress
		a.bus.Publish(Event{
			Channel:  ChannelAgentProgressUpdate,
			TaskID:   evt.TaskID,
			Phase:    evt.Phase,
			Progress: &progress,
		})
	default:
		a.bus.Publish(Event{
			Channel:     ChannelPhaseUpdate,
			TaskID:      evt.TaskID,
			Phase:       evt.Phase,
			PhaseStatus: evt.Status,
			Message:     evt.Err,
		})
	}
}
