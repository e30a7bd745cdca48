package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/analysis"
	"github.com/infra-agent/backend/internal/knowledge"
	"github.com/infra-agent/backend/internal/metrics"
	"github.com/infra-agent/backend/internal/planner"
	"github.com/infra-agent/backend/internal/plugin"
	"github.com/infra-agent/backend/internal/requirements"
	"github.com/infra-agent/backend/internal/session"
)

// Response is the synthesized reply for one message.
type Response struct {
	SessionID   string           `json:"session_id"`
	Text        string           `json:"text"`
	Intent      string           `json:"intent"`
	Confidence  float64          `json:"confidence"`
	PluginsUsed []string         `json:"plugins_used,omitempty"`
	Collection  *CollectionState `json:"collection_state,omitempty"`
	Plan        *planner.Plan    `json:"plan,omitempty"`
}

// CollectionState is the interview progress surfaced to the client.
type CollectionState struct {
	State               string  `json:"state"`
	Question            string  `json:"question,omitempty"`
	Category            string  `json:"category,omitempty"`
	CompletenessPercent float64 `json:"completeness_percent"`
}

// synthInput carries everything the composition policy needs for one turn.
type synthInput struct {
	analysis   analysis.Analysis
	matches    []knowledge.Match
	selections []plugin.Selection
	collection *requirements.Collection
	// prefs is the session's accumulated preference summary; it biases
	// tie-breaks and phrasing, never correctness.
	prefs session.Preferences
	// justStarted marks a collection created this turn: greet and ask the
	// first question instead of treating the message as an answer.
	justStarted bool
}

// synthOutcome reports state changes the pipeline must persist.
type synthOutcome struct {
	interviewCompleted bool
	interviewAbandoned bool
	usedPatternID      string
}

// Synthesizer is the single place response composition and confidence
// policy live. Reported confidence is always the max of the contributing
// confidences.
type Synthesizer struct {
	planner      *planner.Planner
	capabilities []plugin.Capability
	logger       *zap.Logger
}

func NewSynthesizer(pl *planner.Planner, capabilities []plugin.Capability, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{planner: pl, capabilities: capabilities, logger: logger}
}

// abandonPhrases end an interview explicitly.
var abandonPhrases = map[string]bool{
	"cancel":     true,
	"stop":       true,
	"abort":      true,
	"never mind": true,
	"nevermind":  true,
}

func (sy *Synthesizer) Synthesize(ctx context.Context, in synthInput) (*Response, synthOutcome) {
	a := in.analysis

	// Social pleasantries win even mid-interview; the interview position
	// is untouched and resumes on the next substantive message.
	if (a.Intent == analysis.IntentCasual || a.Intent == analysis.IntentGreeting) && a.Confidence >= 0.8 {
		return sy.casualReply(in), synthOutcome{}
	}

	if in.collection != nil && in.collection.Active() {
		if in.justStarted {
			return sy.interviewOpening(in.collection), synthOutcome{}
		}
		return sy.interviewTurn(ctx, in)
	}

	return sy.compose(ctx, in)
}

func (sy *Synthesizer) casualReply(in synthInput) *Response {
	a := in.analysis
	lower := strings.ToLower(strings.TrimSpace(a.Query))

	var text string
	switch {
	case strings.Contains(lower, "thank"):
		text = "Happy to help!"
	case strings.Contains(lower, "how are you"):
		text = "Doing well, thanks! What infrastructure question can I help with?"
	case strings.HasPrefix(lower, "bye") || strings.Contains(lower, "goodbye"):
		text = "Goodbye! Come back any time."
	case (a.Intent == analysis.IntentGreeting || isSalutation(lower)) && in.prefs.MessageCount > 0:
		text = "Welcome back! Ask me anything, or tell me what you'd like to build next."
	case a.Intent == analysis.IntentGreeting:
		text = "Hello! I help design and plan cloud infrastructure. Ask me about deployments, or tell me what you'd like to build."
	default:
		text = "Hi there! I can explain infrastructure topics or walk you through setting something up."
	}

	resp := &Response{
		Text:       text,
		Intent:     string(a.Intent),
		Confidence: a.Confidence,
	}

	if in.collection != nil && in.collection.Active() {
		resp.Text += fmt.Sprintf(" We can pick up where we left off whenever you're ready: %s", in.collection.CurrentQuestion())
		resp.Collection = collectionState(in.collection)
	}
	return resp
}

func (sy *Synthesizer) interviewOpening(c *requirements.Collection) *Response {
	text := fmt.Sprintf(
		"I can help set that up. I'll ask a few questions about %s to put a plan together.\n\nFirst: %s",
		strings.Join(c.Categories(), ", "),
		c.CurrentQuestion(),
	)
	return &Response{
		Text:       text,
		Intent:     string(analysis.IntentInfrastructureCreate),
		Confidence: 0.9,
		Collection: collectionState(c),
	}
}

func (sy *Synthesizer) interviewTurn(ctx context.Context, in synthInput) (*Response, synthOutcome) {
	c := in.collection
	a := in.analysis

	if abandonPhrases[strings.ToLower(strings.TrimSpace(a.Query))] {
		c.Abandon()
		return &Response{
			Text:       "No problem, I've set that aside. Ask me anything else, or say what you'd like to build when you're ready.",
			Intent:     string(a.Intent),
			Confidence: 0.9,
			Collection: collectionState(c),
		}, synthOutcome{interviewAbandoned: true}
	}

	result := c.SubmitAnswer(a.Query)

	if result.Complete {
		plan := sy.planner.Build(ctx, c)
		var b strings.Builder
		b.WriteString("That's everything I need. Here's the plan:\n\n")
		if plan.Narrative != "" {
			b.WriteString(plan.Narrative)
			b.WriteString("\n\n")
		}
		b.WriteString(sy.planner.Summary(plan))
		metrics.InterviewsCompleted.Inc()
		return &Response{
			Text:       b.String(),
			Intent:     string(a.Intent),
			Confidence: 0.95,
			Collection: collectionState(c),
			Plan:       plan,
		}, synthOutcome{interviewCompleted: true}
	}

	if !result.Valid {
		return &Response{
			Text:       fmt.Sprintf("%s\n\n%s", result.Message, c.CurrentQuestion()),
			Intent:     string(a.Intent),
			Confidence: 0.85,
			Collection: collectionState(c),
		}, synthOutcome{}
	}

	ack := "Got it."
	if result.UsedDefault {
		ack = "Using the default."
	}
	return &Response{
		Text:       fmt.Sprintf("%s %s", ack, result.NextQuestion),
		Intent:     string(a.Intent),
		Confidence: 0.9,
		Collection: collectionState(c),
	}, synthOutcome{}
}

// compose blends plugin and knowledge contributions. Top plugin is
// primary, top knowledge match appended as supplementary context; both
// are kept when both exist.
func (sy *Synthesizer) compose(ctx context.Context, in synthInput) (*Response, synthOutcome) {
	a := in.analysis
	resp := &Response{Intent: string(a.Intent)}
	outcome := synthOutcome{}

	if a.Intent == analysis.IntentCapabilityQuestion {
		resp.Text = sy.capabilitiesText()
		resp.Confidence = a.Confidence
		return resp, outcome
	}

	var parts []string
	var confidences []float64

	if len(in.selections) > 0 {
		sel := in.selections[0]
		pr, err := sel.Plugin.Respond(ctx, a)
		if err != nil {
			sy.logger.Warn("Plugin respond failed",
				zap.String("plugin", sel.Plugin.Name()),
				zap.Error(err),
			)
		} else {
			parts = append(parts, pr.Text)
			confidences = append(confidences, pr.Confidence)
			resp.PluginsUsed = append(resp.PluginsUsed, sel.Plugin.Name())
			metrics.PluginSelections.WithLabelValues(sel.Plugin.Name()).Inc()
		}
	}

	if len(in.matches) > 0 {
		best := bestMatch(in.matches, in.prefs.PreferredCloud)
		parts = append(parts, best.Pattern.ResponseTemplate)
		confidences = append(confidences, float64(best.Pattern.Confidence)/100)
		outcome.usedPatternID = best.Pattern.ID
	}

	if len(parts) == 0 {
		// A greeting that slipped past the short-circuit threshold still
		// deserves a greeting, not a clarifying prompt.
		if a.Intent == analysis.IntentGreeting {
			return sy.casualReply(in), outcome
		}
		resp.Text = "I'm not sure I follow. Could you rephrase, or tell me which service or technology you're asking about?"
		resp.Confidence = 0.2
		return resp, outcome
	}

	if name := cloudNames[in.prefs.PreferredCloud]; name != "" {
		parts = append(parts, fmt.Sprintf("Since you've mostly been working with %s, I'd lean on the %s-native options where they exist.", name, name))
	}

	resp.Text = strings.Join(parts, "\n\n")
	for _, c := range confidences {
		if c > resp.Confidence {
			resp.Confidence = c
		}
	}
	return resp, outcome
}

func (sy *Synthesizer) capabilitiesText() string {
	var b strings.Builder
	b.WriteString("I can explain infrastructure topics, answer questions about cloud services, ")
	b.WriteString("and walk you through planning a deployment by collecting your requirements.")
	if len(sy.capabilities) > 0 {
		b.WriteString(" I also have specialists for:")
		for _, capability := range sy.capabilities {
			b.WriteString(fmt.Sprintf("\n  - %s: %s", capability.Name, capability.Description))
		}
	}
	b.WriteString("\n\nTell me what you'd like to build to get started.")
	return b.String()
}

var cloudNames = map[string]string{"aws": "AWS", "azure": "Azure", "gcp": "GCP"}

func isSalutation(lower string) bool {
	for _, g := range []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"} {
		if lower == g || strings.HasPrefix(lower, g+" ") || strings.HasPrefix(lower, g+",") {
			return true
		}
	}
	return false
}

// bestMatch picks the top-ranked match; among matches tied with the leader
// on overlap, a pattern mentioning the session's preferred cloud wins.
func bestMatch(matches []knowledge.Match, cloud string) knowledge.Match {
	best := matches[0]
	if cloud == "" {
		return best
	}
	for _, m := range matches {
		if m.Overlap != best.Overlap {
			break
		}
		if hasKeyword(m.Pattern.Keywords, cloud) {
			return m
		}
	}
	return best
}

func hasKeyword(keywords []string, kw string) bool {
	for _, k := range keywords {
		if k == kw {
			return true
		}
	}
	return false
}

func collectionState(c *requirements.Collection) *CollectionState {
	return &CollectionState{
		State:               string(c.State()),
		Question:            c.CurrentQuestion(),
		Category:            c.CurrentCategory(),
		CompletenessPercent: c.Completeness() * 100,
	}
}
