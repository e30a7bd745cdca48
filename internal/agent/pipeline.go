package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/analysis"
	"github.com/infra-agent/backend/internal/cache"
	"github.com/infra-agent/backend/internal/knowledge"
	"github.com/infra-agent/backend/internal/metrics"
	"github.com/infra-agent/backend/internal/plugin"
	"github.com/infra-agent/backend/internal/requirements"
	"github.com/infra-agent/backend/internal/session"
	"github.com/infra-agent/backend/internal/storage/models"
)

var ErrEmptySessionID = errors.New("session id is required")

// TranscriptStore persists finished exchanges and interview summaries.
// A nil store disables persistence without failing requests.
type TranscriptStore interface {
	InsertConversationEntry(entry *models.ConversationEntry) error
	InsertCollectionRecord(record *models.CollectionRecord) error
}

// Deps are the pipeline's injected collaborators.
type Deps struct {
	Analyzer    *analysis.Analyzer
	Knowledge   *knowledge.Store
	Router      *plugin.Router
	Sessions    *session.Store
	Catalog     *requirements.Catalog
	Synthesizer *Synthesizer
	Cache       *cache.ReplyCache
	Transcripts TranscriptStore
	MatchLimit  int
	Logger      *zap.Logger
}

// Pipeline runs one message end to end: analyze, retrieve, hand off to an
// interview when one is due, synthesize, record. Sessions serialize their
// own messages; distinct sessions run fully in parallel.
type Pipeline struct {
	analyzer    *analysis.Analyzer
	knowledge   *knowledge.Store
	router      *plugin.Router
	sessions    *session.Store
	catalog     *requirements.Catalog
	synth       *Synthesizer
	cache       *cache.ReplyCache
	transcripts TranscriptStore
	matchLimit  int
	logger      *zap.Logger
}

func NewPipeline(d Deps) *Pipeline {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MatchLimit == 0 {
		d.MatchLimit = 3
	}
	return &Pipeline{
		analyzer:    d.Analyzer,
		knowledge:   d.Knowledge,
		router:      d.Router,
		sessions:    d.Sessions,
		catalog:     d.Catalog,
		synth:       d.Synthesizer,
		cache:       d.Cache,
		transcripts: d.Transcripts,
		matchLimit:  d.MatchLimit,
		logger:      d.Logger,
	}
}

// cachedReply is the serialized form of a session-independent reply.
type cachedReply struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Plugins    []string `json:"plugins,omitempty"`
}

func (p *Pipeline) Process(ctx context.Context, sessionID, message string) (*Response, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySessionID
	}
	start := time.Now()

	sess := p.sessions.GetOrCreate(sessionID)
	defer p.sessions.Release(sess)
	metrics.ActiveSessions.Set(float64(p.sessions.ActiveCount()))

	sess.Lock()
	defer sess.Unlock()
	sess.Touch()
	prefs := sess.Preferences()

	a := p.analyzer.Analyze(message, p.analysisContext(sess))
	metrics.MessagesTotal.WithLabelValues(string(a.Intent)).Inc()
	defer func() {
		metrics.PipelineDuration.WithLabelValues(string(a.Intent)).Observe(time.Since(start).Seconds())
	}()

	shortCircuit := (a.Intent == analysis.IntentCasual || a.Intent == analysis.IntentGreeting) &&
		a.Confidence >= 0.8

	col, justStarted := p.handoff(sess, a, shortCircuit)
	collectionActive := col != nil && col.Active()

	// Session-independent replies can come straight from the cache. A session
	// with an established cloud preference gets personalized phrasing, so its
	// replies never enter or leave the shared cache.
	cacheable := !shortCircuit && !collectionActive && !justStarted && prefs.PreferredCloud == ""
	cacheKey := cache.Key(string(a.Intent), a.Keywords)
	if cacheable && p.cache.Enabled() {
		if raw, ok := p.cache.Get(ctx, cacheKey); ok {
			var cr cachedReply
			if err := json.Unmarshal([]byte(raw), &cr); err == nil {
				metrics.CacheHits.WithLabelValues("reply").Inc()
				resp := &Response{
					SessionID:   sessionID,
					Text:        cr.Text,
					Intent:      string(a.Intent),
					Confidence:  cr.Confidence,
					PluginsUsed: cr.Plugins,
				}
				return p.record(sess, a, resp)
			}
		}
		metrics.CacheMisses.WithLabelValues("reply").Inc()
	}

	in := synthInput{
		analysis:    a,
		collection:  col,
		prefs:       prefs,
		justStarted: justStarted,
	}
	if !shortCircuit && !collectionActive {
		in.matches = p.knowledge.FindBestMatches(a.Keywords, a.Intent, p.matchLimit)
		metrics.KnowledgeMatches.Observe(float64(len(in.matches)))
		in.selections = p.router.Select(a)
	}

	resp, outcome := p.synth.Synthesize(ctx, in)
	resp.SessionID = sessionID
	metrics.ConfidenceScore.Observe(resp.Confidence)

	if outcome.usedPatternID != "" {
		p.knowledge.RecordUsage(outcome.usedPatternID)
	}

	if outcome.interviewCompleted || outcome.interviewAbandoned {
		if err := p.recordCollection(sessionID, col, outcome); err != nil {
			p.logger.Error("Failed to persist collection record",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			return p.retryResponse(sessionID, a), nil
		}
		sess.ClearCollection()
	}

	if cacheable && resp.Confidence > 0.2 && p.cache.Enabled() {
		if raw, err := json.Marshal(cachedReply{
			Text:       resp.Text,
			Confidence: resp.Confidence,
			Plugins:    resp.PluginsUsed,
		}); err == nil {
			p.cache.Set(ctx, cacheKey, string(raw))
		}
	}

	return p.record(sess, a, resp)
}

// ResetSession drops a session and abandons any interview it holds.
func (p *Pipeline) ResetSession(sessionID string) {
	p.sessions.Reset(sessionID)
	metrics.ActiveSessions.Set(float64(p.sessions.ActiveCount()))
}

func (p *Pipeline) analysisContext(sess *session.Session) analysis.Context {
	actx := analysis.Context{}
	if c := sess.Collection(); c != nil && c.Active() {
		actx.CollectionActive = true
	}
	if history := sess.History(); len(history) > 0 {
		actx.LastIntent = analysis.Intent(history[len(history)-1].Intent)
	}
	return actx
}

// handoff installs a fresh collection cycle on INFRASTRUCTURE_CREATE. A
// create request naming a different pattern mid-interview abandons the
// stale cycle and starts over; the category selection is never mutated in
// place.
func (p *Pipeline) handoff(sess *session.Session, a analysis.Analysis, shortCircuit bool) (*requirements.Collection, bool) {
	col := sess.Collection()
	if shortCircuit || a.Intent != analysis.IntentInfrastructureCreate {
		return col, false
	}

	pattern := requirements.InferPattern(a.Keywords)
	if col != nil && col.Active() {
		if col.Pattern == pattern {
			return col, false
		}
		col.Abandon()
		if err := p.recordCollection(sess.ID, col, synthOutcome{interviewAbandoned: true}); err != nil {
			p.logger.Error("Failed to persist abandoned collection",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
		}
		p.logger.Info("Interview restarted for new pattern",
			zap.String("session_id", sess.ID),
			zap.String("old_pattern", string(col.Pattern)),
			zap.String("new_pattern", string(pattern)),
		)
	}

	col = requirements.NewCollection(sess.ID, pattern, inferEnvironment(a.Keywords), p.catalog, p.logger)
	sess.SetCollection(col)
	metrics.InterviewsStarted.WithLabelValues(string(pattern)).Inc()
	return col, true
}

func inferEnvironment(keywords []string) string {
	for _, kw := range keywords {
		if kw == "production" || kw == "prod" {
			return "production"
		}
	}
	return "development"
}

// record finalizes the turn: session history, preference observation,
// transcript persistence. A transcript failure degrades this one request
// to a retry response; the session itself stays consistent.
func (p *Pipeline) record(sess *session.Session, a analysis.Analysis, resp *Response) (*Response, error) {
	sess.ObserveKeywords(a.Keywords)
	sess.AppendExchange(a.Query, resp.Text, string(a.Intent))

	if p.transcripts != nil {
		err := p.transcripts.InsertConversationEntry(&models.ConversationEntry{
			SessionID:  resp.SessionID,
			QueryText:  a.Query,
			Response:   resp.Text,
			Intent:     string(a.Intent),
			Confidence: resp.Confidence,
			Plugins:    resp.PluginsUsed,
		})
		if err != nil {
			p.logger.Error("Failed to persist conversation entry",
				zap.String("session_id", resp.SessionID),
				zap.Error(err),
			)
			return p.retryResponse(resp.SessionID, a), nil
		}
	}
	return resp, nil
}

func (p *Pipeline) recordCollection(sessionID string, col *requirements.Collection, outcome synthOutcome) error {
	if p.transcripts == nil {
		return nil
	}

	state := "abandoned"
	if outcome.interviewCompleted {
		state = "complete"
	}
	return p.transcripts.InsertCollectionRecord(&models.CollectionRecord{
		SessionID:    sessionID,
		Pattern:      string(col.Pattern),
		Environment:  col.Environment,
		Answers:      col.Answers(),
		Completeness: col.Completeness(),
		Outcome:      state,
	})
}

func (p *Pipeline) retryResponse(sessionID string, a analysis.Analysis) *Response {
	return &Response{
		SessionID:  sessionID,
		Text:       "Something went wrong on my side while saving that. Please try again.",
		Intent:     string(a.Intent),
		Confidence: 0,
	}
}
