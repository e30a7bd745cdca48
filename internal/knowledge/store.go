package knowledge

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/analysis"
	"github.com/infra-agent/backend/internal/storage/models"
)

// Persistence is the slice of the storage client the store needs. Tests pass
// nil and work purely in memory.
type Persistence interface {
	UpsertPattern(*models.Pattern) error
	ListPatterns() ([]models.Pattern, error)
	IncrementPatternUsage(string) error
}

// Match pairs a pattern with its overlap score against the user's keywords.
type Match struct {
	Pattern *models.Pattern
	Overlap float64
}

type entry struct {
	pattern models.Pattern
	usage   atomic.Int64
}

// Store holds the pattern working set in memory, read-mostly and shared
// across sessions. The only mutation after load is per-pattern usage
// increments and importer additions.
type Store struct {
	mu      sync.RWMutex
	entries []*entry
	byID    map[string]*entry
	db      Persistence
	logger  *zap.Logger
}

func NewStore(db Persistence, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		byID:   make(map[string]*entry),
		db:     db,
		logger: logger,
	}

	if db != nil {
		patterns, err := db.ListPatterns()
		if err != nil {
			return nil, fmt.Errorf("failed to load patterns: %w", err)
		}
		for i := range patterns {
			s.add(patterns[i])
		}
	}

	if len(s.entries) == 0 {
		seeded := SeedPatterns()
		for _, p := range seeded {
			if db != nil {
				if err := db.UpsertPattern(&p); err != nil {
					logger.Warn("Failed to persist seed pattern", zap.String("pattern_id", p.ID), zap.Error(err))
				}
			}
			s.add(p)
		}
		logger.Info("Knowledge store seeded", zap.Int("patterns", len(seeded)))
	} else {
		logger.Info("Knowledge store loaded", zap.Int("patterns", len(s.entries)))
	}

	return s, nil
}

func (s *Store) add(p models.Pattern) {
	e := &entry{pattern: p}
	e.usage.Store(int64(p.UsageCount))
	s.entries = append(s.entries, e)
	s.byID[p.ID] = e
}

// AddPattern registers a new pattern at runtime (used by the importer).
func (s *Store) AddPattern(p models.Pattern) error {
	if p.Confidence < 0 || p.Confidence > 100 {
		return fmt.Errorf("pattern confidence %d outside [0,100]", p.Confidence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[p.ID]; exists {
		return fmt.Errorf("pattern %s already registered", p.ID)
	}

	if s.db != nil {
		if err := s.db.UpsertPattern(&p); err != nil {
			return fmt.Errorf("failed to persist pattern: %w", err)
		}
	}
	s.add(p)
	return nil
}

// FindBestMatches returns up to limit patterns ordered by (overlap desc,
// base confidence desc). A pattern keyword that exactly matches a user
// keyword counts 1; substring containment either way counts 0.5. Patterns
// sharing no keyword at all are excluded. Identical inputs with no
// intervening writes return identical ordering.
func (s *Store) FindBestMatches(keywords []string, intent analysis.Intent, limit int) []Match {
	if len(keywords) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Match
	for _, e := range s.entries {
		overlap := overlapScore(e.pattern.Keywords, keywords)
		if overlap < 1 {
			continue
		}
		matches = append(matches, Match{Pattern: &e.pattern, Overlap: overlap})
	}

	// Coverage of the user's actual words outranks a pattern's prior
	// confidence; confidence only breaks overlap ties. Pattern ID keeps the
	// ordering reproducible when both tie.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Overlap != matches[j].Overlap {
			return matches[i].Overlap > matches[j].Overlap
		}
		if matches[i].Pattern.Confidence != matches[j].Pattern.Confidence {
			return matches[i].Pattern.Confidence > matches[j].Pattern.Confidence
		}
		return matches[i].Pattern.ID < matches[j].Pattern.ID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	s.logger.Debug("Knowledge matched",
		zap.String("intent", string(intent)),
		zap.Int("candidates", len(matches)),
		zap.Strings("keywords", keywords),
	)

	return matches
}

// RecordUsage bumps a pattern's usage counter. Counters feed curation and
// never re-rank within a session.
func (s *Store) RecordUsage(patternID string) {
	s.mu.RLock()
	e, ok := s.byID[patternID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	e.usage.Add(1)

	if s.db != nil {
		if err := s.db.IncrementPatternUsage(patternID); err != nil {
			s.logger.Warn("Failed to persist usage increment",
				zap.String("pattern_id", patternID),
				zap.Error(err),
			)
		}
	}
}

// UsageCount reports the in-memory counter, exposed for curation endpoints
// and tests.
func (s *Store) UsageCount(patternID string) int64 {
	s.mu.RLock()
	e, ok := s.byID[patternID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return e.usage.Load()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func overlapScore(patternKeywords, userKeywords []string) float64 {
	var score float64
	for _, pk := range patternKeywords {
		best := 0.0
		for _, uk := range userKeywords {
			if pk == uk {
				best = 1.0
				break
			}
			if len(pk) >= 4 && len(uk) >= 4 &&
				(strings.Contains(pk, uk) || strings.Contains(uk, pk)) {
				if best < 0.5 {
					best = 0.5
				}
			}
		}
		score += best
	}
	return score
}

// NewPatternID builds a stable id from category and first signature keyword.
func NewPatternID(category string, keywords []string) string {
	head := "misc"
	if len(keywords) > 0 {
		head = keywords[0]
	}
	return fmt.Sprintf("%s_%s_%d", category, head, time.Now().UnixNano())
}
