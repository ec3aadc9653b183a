package pipeline

import (
	"sync"

	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/fntelecomllc/kbagent/internal/state"
)

// PhaseResult is one phase's outcome: its terminal lifecycle status plus
// {attempted,succeeded,failed,skipped} tallies, folded into the run
// summary surfaced on agent_run_completed.
type PhaseResult struct {
	Status    string `json:"status"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Reason    string `json:"reason,omitempty"`

	// Gates is true when this phase's outcome must block every phase that
	// depends on it, per §4.8's failure-rate-gates-dependents rule (a
	// global-phase failure, or >50% item-level failure for a per-item
	// phase). Never serialized: it only drives Run's own control flow.
	Gates bool `json:"-"`
}

// RunSummary is the full run's outcome: per-phase results plus the
// overall success flag surfaced on agent_run_completed and returned as
// Engine.Run's JSON result.
type RunSummary struct {
	mu      sync.Mutex
	Success bool                           `json:"success"`
	Phases  map[models.PhaseID]PhaseResult `json:"phases"`
}

func newRunSummary() *RunSummary {
	return &RunSummary{Phases: make(map[models.PhaseID]PhaseResult)}
}

func (s *RunSummary) set(phase models.PhaseID, r PhaseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phases[phase] = r
}

func (s *RunSummary) get(phase models.PhaseID) (PhaseResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.Phases[phase]
	return r, ok
}

// allSucceededOrSkipped reports whether every recorded phase finished
// completed or skipped — no failed or cancelled phase anywhere.
func (s *RunSummary) allSucceededOrSkipped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.Phases {
		if r.Status != string(state.PhaseCompleted) && r.Status != string(state.PhaseSkipped) {
			return false
		}
	}
	return true
}

// asResults renders Phases as a map[string]any for the agent_run_completed
// event payload, which carries results as an opaque map rather than a
// typed struct.
func (s *RunSummary) asResults() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.Phases))
	for phase, r := range s.Phases {
		out[string(phase)] = r
	}
	return out
}
