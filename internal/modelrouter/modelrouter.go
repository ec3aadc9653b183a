// Package modelrouter implements C3: resolving (phase) -> (backend, model,
// params) triples, with override support and capability checks. Ground:
// internal/config/http_persona.go / persona_loader.go's file-backed,
// ID-keyed config list with GetXByID-style lookup, generalized from
// "persona" to "phase model binding".
package modelrouter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/models"
	"gopkg.in/yaml.v3"
)

// Capabilities describes what a backend can do; ModelRouter checks these
// against the requirements of the phase being resolved.
type Capabilities struct {
	SupportsStreaming  bool `json:"supportsStreaming" yaml:"supportsStreaming"`
	SupportsVision     bool `json:"supportsVision" yaml:"supportsVision"`
	EmbeddingDimensions int `json:"embeddingDimensions" yaml:"embeddingDimensions"`
}

// phaseRequirement is the capability a phase requires of its backend, if
// any; phases not listed here have no capability requirement.
var phaseRequirement = map[models.PhaseID]func(Capabilities) bool{
	models.PhaseMediaAnalysis:       func(c Capabilities) bool { return c.SupportsVision },
	models.PhaseEmbeddingGeneration: func(c Capabilities) bool { return c.EmbeddingDimensions > 0 },
}

// Binding is one phase's configured default: a backend id, model name, and
// default params, plus that backend's capabilities.
type Binding struct {
	Phase        models.PhaseID         `json:"phase" yaml:"phase"`
	Backend      string                 `json:"backend" yaml:"backend"`
	Model        string                 `json:"model" yaml:"model"`
	Params       map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	Capabilities Capabilities           `json:"capabilities" yaml:"capabilities"`
}

// Router resolves phase bindings. The router never falls back silently
// across backends: a phase with no configured binding is a
// ModelRouterError, and a binding lacking a phase's required capability is
// a CapabilityError, both per §4.3's "no silent fallback" policy.
type Router struct {
	mu       sync.RWMutex
	bindings map[models.PhaseID]Binding
}

// New constructs a Router from a fixed slice of bindings (typically loaded
// once at startup via Load).
func New(bindings []Binding) *Router {
	r := &Router{bindings: make(map[models.PhaseID]Binding, len(bindings))}
	for _, b := range bindings {
		r.bindings[b.Phase] = b
	}
	return r
}

// Load reads bindings from configDir/filename, accepting either JSON or
// YAML by file extension, mirroring the teacher's config loader which
// supports both forms (env_config.go).
func Load(configDir, filename string) ([]Binding, error) {
	path := filepath.Join(configDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read model bindings file %q: %w", path, err)
	}
	var bindings []Binding
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &bindings)
	default:
		err = json.Unmarshal(data, &bindings)
	}
	if err != nil {
		return nil, fmt.Errorf("parse model bindings file %q: %w", path, err)
	}
	return bindings, nil
}

// Resolve returns the (backend, model, params) triple for phase, applying
// override (if non-nil) on top of the configured default, and validates
// the configured binding's capabilities against the phase's requirement;
// an override that replaces the backend is checked against those same
// configured capabilities.
func (r *Router) Resolve(phase models.PhaseID, override *models.ModelOverride) (models.ModelBinding, error) {
	r.mu.RLock()
	binding, ok := r.bindings[phase]
	r.mu.RUnlock()
	if !ok {
		return models.ModelBinding{}, agenterrors.ModelRouterErr(
			fmt.Sprintf("no model binding configured for phase %q", phase), nil)
	}

	result := models.ModelBinding{Backend: binding.Backend, Model: binding.Model, Params: mergeParams(binding.Params, nil)}
	caps := binding.Capabilities
	if override != nil {
		if override.Backend != "" {
			result.Backend = override.Backend
		}
		if override.Model != "" {
			result.Model = override.Model
		}
		if len(override.Params) > 0 {
			result.Params = mergeParams(binding.Params, override.Params)
		}
	}

	if require, hasRequirement := phaseRequirement[phase]; hasRequirement && !require(caps) {
		return models.ModelBinding{}, agenterrors.Capability(
			fmt.Sprintf("backend %q lacks the capability required by phase %q", result.Backend, phase))
	}
	return result, nil
}

// GetBindingByPhase exposes the raw configured binding, useful for
// capability probes (pipeline.test_components in §6) independent of a
// particular Resolve call.
func (r *Router) GetBindingByPhase(phase models.PhaseID) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[phase]
	return b, ok
}

// SetBinding installs or replaces the binding for a phase at runtime.
func (r *Router) SetBinding(b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[b.Phase] = b
}

func mergeParams(base, override map[string]interface{}) map[string]interface{} {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	merged := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
