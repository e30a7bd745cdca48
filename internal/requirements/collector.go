package requirements

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// State is the interview phase. Transitions:
//
//	NOT_STARTED → CATEGORY_SELECTION → ASKING ↔ VALIDATING → COMPLETE
//	any state → ABANDONED
type State string

const (
	StateNotStarted        State = "not_started"
	StateCategorySelection State = "category_selection"
	StateAsking            State = "asking"
	StateValidating        State = "validating"
	StateComplete          State = "complete"
	StateAbandoned         State = "abandoned"
)

// DefaultShortcuts are the answers that fill the current item with its
// declared default and advance immediately.
var defaultShortcuts = map[string]bool{
	"use default":  true,
	"use defaults": true,
	"default":      true,
	"skip":         true,
}

// Collection is one requirements-collection cycle for a session. The
// category subset is decided once at construction and never revisited; a
// changed infrastructure pattern mid-interview means starting a fresh
// cycle. A Collection is confined to its owning session and relies on the
// session's serialization, not internal locking.
type Collection struct {
	SessionID   string
	Pattern     InfraPattern
	Environment string
	StartedAt   time.Time

	categories []Category
	items      []Item
	index      int
	answers    map[string]string
	state      State
	logger     *zap.Logger
}

// AnswerResult reports the outcome of one submitted answer.
type AnswerResult struct {
	Valid        bool
	Message      string
	UsedDefault  bool
	Complete     bool
	NextQuestion string
	Completeness float64
}

func NewCollection(sessionID string, pattern InfraPattern, environment string, catalog *Catalog, logger *zap.Logger) *Collection {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collection{
		SessionID:   sessionID,
		Pattern:     pattern,
		Environment: environment,
		StartedAt:   time.Now(),
		answers:     make(map[string]string),
		state:       StateNotStarted,
		logger:      logger,
	}

	c.state = StateCategorySelection
	c.categories = catalog.SelectFor(pattern, environment)
	for _, cat := range c.categories {
		c.items = append(c.items, cat.Items...)
	}

	if len(c.items) == 0 {
		// An empty selection cannot happen with the built-in catalog, but a
		// misconfigured one must not wedge the session.
		c.state = StateComplete
		logger.Warn("Category selection produced no items",
			zap.String("session_id", sessionID),
			zap.String("pattern", string(pattern)),
		)
		return c
	}

	c.state = StateAsking
	logger.Info("Requirements collection started",
		zap.String("session_id", sessionID),
		zap.String("pattern", string(pattern)),
		zap.Int("categories", len(c.categories)),
		zap.Int("items", len(c.items)),
	)
	return c
}

// Active reports whether the interview still owns the conversation.
func (c *Collection) Active() bool {
	return c.state == StateAsking || c.state == StateValidating
}

func (c *Collection) State() State { return c.state }

// CurrentItem returns the single item awaiting an answer, nil when the
// interview is not active.
func (c *Collection) CurrentItem() *Item {
	if !c.Active() || c.index >= len(c.items) {
		return nil
	}
	return &c.items[c.index]
}

// CurrentQuestion renders the pending question with option and default
// hints.
func (c *Collection) CurrentQuestion() string {
	item := c.CurrentItem()
	if item == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(item.Question)
	if len(item.Options) > 0 {
		b.WriteString(fmt.Sprintf(" (options: %s)", strings.Join(item.Options, ", ")))
	}
	if item.Default != "" {
		b.WriteString(fmt.Sprintf(" [default: %s]", item.Default))
	}
	return b.String()
}

// SubmitAnswer validates the answer for the current item. Validation rules
// run in declaration order; the first failure keeps the interview on the
// same item. A default shortcut fills the declared default and advances
// without validation.
func (c *Collection) SubmitAnswer(answer string) AnswerResult {
	if !c.Active() {
		return AnswerResult{
			Valid:        false,
			Message:      "no question is currently pending",
			Complete:     c.state == StateComplete,
			Completeness: c.Completeness(),
		}
	}

	item := c.CurrentItem()

	if defaultShortcuts[strings.ToLower(strings.TrimSpace(answer))] {
		value := item.Default
		if value == "" {
			c.logger.Warn("Item skipped without a declared default",
				zap.String("session_id", c.SessionID),
				zap.String("item_id", item.ID),
			)
		}
		c.answers[item.ID] = value
		c.advance()
		return AnswerResult{
			Valid:        true,
			UsedDefault:  true,
			Complete:     c.state == StateComplete,
			NextQuestion: c.CurrentQuestion(),
			Completeness: c.Completeness(),
		}
	}

	c.state = StateValidating
	for _, rule := range item.Rules {
		ok, message := rule.Validate(answer)
		if ok {
			continue
		}
		c.state = StateAsking
		c.logger.Debug("Answer rejected",
			zap.String("session_id", c.SessionID),
			zap.String("item_id", item.ID),
			zap.String("rule", rule.Kind()),
		)
		return AnswerResult{
			Valid:        false,
			Message:      message,
			NextQuestion: c.CurrentQuestion(),
			Completeness: c.Completeness(),
		}
	}

	c.answers[item.ID] = strings.TrimSpace(answer)
	c.advance()
	return AnswerResult{
		Valid:        true,
		Complete:     c.state == StateComplete,
		NextQuestion: c.CurrentQuestion(),
		Completeness: c.Completeness(),
	}
}

func (c *Collection) advance() {
	c.index++
	if c.index >= len(c.items) {
		c.state = StateComplete
		c.logger.Info("Requirements collection complete",
			zap.String("session_id", c.SessionID),
			zap.Int("items", len(c.items)),
		)
		return
	}
	c.state = StateAsking
}

// Abandon terminates the cycle from any state.
func (c *Collection) Abandon() {
	if c.state == StateComplete {
		return
	}
	c.state = StateAbandoned
	c.logger.Info("Requirements collection abandoned",
		zap.String("session_id", c.SessionID),
		zap.Float64("completeness", c.Completeness()),
	)
}

// Completeness is answered items over total selected items, independent of
// category, non-decreasing across one cycle.
func (c *Collection) Completeness() float64 {
	if len(c.items) == 0 {
		return 1.0
	}
	return float64(len(c.answers)) / float64(len(c.items))
}

// Progress reports answered and total counts for the transport layer.
func (c *Collection) Progress() (answered, total int) {
	return len(c.answers), len(c.items)
}

// CurrentCategory names the category of the pending item, empty when the
// interview is not active.
func (c *Collection) CurrentCategory() string {
	item := c.CurrentItem()
	if item == nil {
		return ""
	}
	return item.Category
}

// Answers returns a copy of the collected answers keyed by item id.
func (c *Collection) Answers() map[string]string {
	out := make(map[string]string, len(c.answers))
	for k, v := range c.answers {
		out[k] = v
	}
	return out
}

// Categories lists the names selected for this cycle.
func (c *Collection) Categories() []string {
	names := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		names = append(names, cat.Name)
	}
	return names
}
