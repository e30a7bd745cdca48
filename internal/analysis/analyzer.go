package analysis

import (
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentGreeting             Intent = "greeting"
	IntentInformationRequest   Intent = "information_request"
	IntentCommandRequest       Intent = "command_request"
	IntentCapabilityQuestion   Intent = "capability_question"
	IntentCasual               Intent = "casual"
	IntentRequirementsAnswer   Intent = "requirements_answer"
	IntentInfrastructureCreate Intent = "infrastructure_create"
	IntentUnknown              Intent = "unknown"
)

// Analysis is the structured result of analyzing one message.
type Analysis struct {
	Query      string
	Keywords   []string
	Intent     Intent
	Complexity float64
	Confidence float64
	MatchedBy  string
}

// Context carries per-session state that biases classification.
type Context struct {
	CollectionActive bool
	LastIntent       Intent
}

type Analyzer struct {
	logger *zap.Logger
	rules  []intentRule
}

func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		logger: logger,
		rules:  intentRules(),
	}
}

// Analyze never fails: text that matches nothing yields IntentUnknown with
// confidence 0 and no keywords.
func (a *Analyzer) Analyze(text string, prior Context) Analysis {
	f := extractFeatures(text)

	result := Analysis{
		Query:      text,
		Keywords:   f.keywords,
		Intent:     IntentUnknown,
		Complexity: complexityScore(f),
	}

	for _, rule := range a.rules {
		match, signals := rule.eval(f, prior)
		if !match {
			continue
		}

		result.Intent = rule.intent
		result.Confidence = confidenceFromSignals(signals)
		result.MatchedBy = rule.name
		break
	}

	if result.Intent == IntentUnknown {
		result.Confidence = 0
		result.Keywords = nil
	}

	a.logger.Debug("Query analyzed",
		zap.String("intent", string(result.Intent)),
		zap.String("rule", result.MatchedBy),
		zap.Float64("confidence", result.Confidence),
		zap.Float64("complexity", result.Complexity),
		zap.Strings("keywords", result.Keywords),
	)

	return result
}

type token struct {
	text string
	tag  string
}

type features struct {
	raw          string
	lower        string
	tokens       []token
	keywords     []string
	domainCount  int
	conjunctions int
	question     bool
}

func extractFeatures(text string) *features {
	f := &features{
		raw:   text,
		lower: strings.TrimRight(strings.ToLower(strings.TrimSpace(text)), ".!?"),
	}
	f.tokens = tokenize(text)
	f.question = strings.Contains(text, "?") || startsWithQuestionWord(f.lower)

	seen := make(map[string]bool)
	for _, tok := range f.tokens {
		lw := strings.ToLower(tok.text)
		if stopWords[lw] || seen[lw] {
			continue
		}
		if !domainVocabulary[lw] && !isContentTag(tok.tag) {
			continue
		}
		seen[lw] = true
		f.keywords = append(f.keywords, lw)
		if domainVocabulary[lw] {
			f.domainCount++
		}
	}

	for _, tok := range f.tokens {
		if conjunctions[strings.ToLower(tok.text)] {
			f.conjunctions++
		}
	}

	return f
}

// tokenize runs prose tokenization and POS tagging, falling back to a plain
// field split when the document fails to build. Analysis must never fail on
// malformed input.
func tokenize(text string) []token {
	doc, err := prose.NewDocument(text, prose.WithExtraction(false))
	if err != nil {
		var tokens []token
		for _, w := range strings.Fields(text) {
			tokens = append(tokens, token{text: w, tag: "NN"})
		}
		return tokens
	}

	var tokens []token
	for _, t := range doc.Tokens() {
		if !isWordToken(t.Text) {
			continue
		}
		tokens = append(tokens, token{text: t.Text, tag: t.Tag})
	}
	return tokens
}

func isContentTag(tag string) bool {
	return strings.HasPrefix(tag, "NN") || strings.HasPrefix(tag, "VB")
}

func isWordToken(text string) bool {
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return true
		}
	}
	return false
}

func startsWithQuestionWord(lower string) bool {
	for _, q := range []string{"what", "how", "why", "when", "where", "which", "who", "can you", "could you", "do you"} {
		if strings.HasPrefix(lower, q) {
			return true
		}
	}
	return false
}

// complexityScore is monotone in message length, distinct domain keywords,
// and clause count. It biases pattern depth selection, never blocks.
func complexityScore(f *features) float64 {
	lengthScore := float64(len(f.tokens)) / 30.0
	if lengthScore > 1 {
		lengthScore = 1
	}

	keywordScore := float64(f.domainCount) / 6.0
	if keywordScore > 1 {
		keywordScore = 1
	}

	clauseScore := float64(f.conjunctions) / 3.0
	if clauseScore > 1 {
		clauseScore = 1
	}

	return 0.4*lengthScore + 0.4*keywordScore + 0.2*clauseScore
}

// confidenceFromSignals maps the number of independent agreeing signals into
// [0,1]: a single weak signal stays at 0.5, each additional signal halves
// the remaining distance to 1.
func confidenceFromSignals(signals int) float64 {
	if signals <= 0 {
		return 0
	}
	remaining := 1.0
	for i := 0; i < signals; i++ {
		remaining /= 2
	}
	return 1 - remaining
}
