package plugin

import (
	"sort"

	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/analysis"
)

// Selection pairs a plugin with the score it earned for one query.
type Selection struct {
	Plugin Plugin
	Score  float64
}

// Router ranks registered plugins against an analysis. A plugin whose
// score falls below its own declared threshold is excluded entirely.
type Router struct {
	registry *Registry
	logger   *zap.Logger
}

func NewRouter(registry *Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{registry: registry, logger: logger}
}

// Select returns eligible plugins ordered by score descending. Ties keep
// registration order. A panicking Score is treated as zero so one broken
// plugin cannot take down the pipeline.
func (r *Router) Select(a analysis.Analysis) []Selection {
	var selected []Selection

	for _, p := range r.registry.All() {
		score := r.safeScore(p, a)
		if score < p.Capability().Threshold {
			continue
		}
		selected = append(selected, Selection{Plugin: p, Score: score})
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Score > selected[j].Score
	})

	return selected
}

// Best returns the top-ranked plugin, nil when nothing is eligible.
func (r *Router) Best(a analysis.Analysis) *Selection {
	selected := r.Select(a)
	if len(selected) == 0 {
		return nil
	}
	return &selected[0]
}

func (r *Router) safeScore(p Plugin, a analysis.Analysis) (score float64) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Plugin panicked while scoring",
				zap.String("plugin", p.Name()),
				zap.Any("panic", rec),
			)
			score = 0
		}
	}()
	return p.Score(a)
}
