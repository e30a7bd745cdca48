package plugin

import (
	"context"
	"sync"

	"github.com/infra-agent/backend/internal/analysis"
)

// Capability describes what a plugin can do. Static for the plugin's
// lifetime.
type Capability struct {
	Name        string
	Keywords    []string
	Threshold   float64
	CanExecute  bool
	Description string
}

// Response is a plugin's contribution to one reply.
type Response struct {
	Text       string
	Confidence float64
	Payload    map[string]interface{}
}

// Plugin is the formal capability-provider contract: scoring is separate
// from responding so the router can rank cheaply.
type Plugin interface {
	Name() string
	Capability() Capability
	Score(a analysis.Analysis) float64
	Respond(ctx context.Context, a analysis.Analysis) (*Response, error)
}

// Registry is the typed plugin collection. Registration order is preserved
// because it breaks score ties deterministically.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, p)
}

func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

func (r *Registry) Capabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p.Capability())
	}
	return out
}

// keywordOverlap is the shared scoring primitive: the fraction of the
// analysis keywords covered by the capability keyword list.
func keywordOverlap(capabilityKeywords, analysisKeywords []string) float64 {
	if len(analysisKeywords) == 0 {
		return 0
	}

	set := make(map[string]bool, len(capabilityKeywords))
	for _, kw := range capabilityKeywords {
		set[kw] = true
	}

	hits := 0
	for _, kw := range analysisKeywords {
		if set[kw] {
			hits++
		}
	}
	return float64(hits) / float64(len(analysisKeywords))
}
