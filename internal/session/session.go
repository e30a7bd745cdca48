package session

import (
	"sort"
	"sync"
	"time"

	"github.com/infra-agent/backend/internal/requirements"
)

// Exchange is one past (query, response) pair kept in a session's bounded
// history.
type Exchange struct {
	Query    string
	Response string
	Intent   string
	At       time.Time
}

// Preferences is the summary derived from a session's history, used to bias
// matching and response tone.
type Preferences struct {
	PreferredCloud string
	TopInterests   []string
	MessageCount   int
}

// Session is exclusively owned by its session id. The embedded mutex
// serializes message processing: collector transitions are not idempotent,
// so a second concurrent message for the same session waits for the first.
type Session struct {
	ID        string
	CreatedAt time.Time

	// claims counts callers holding a reference handed out by the store;
	// guarded by the owning store's mutex, not the session mutex. The reaper
	// never evicts a claimed session.
	claims int

	mu           sync.Mutex
	lastActivity time.Time
	history      []Exchange
	historySize  int
	keywordFreq  map[string]int
	cloudFreq    map[string]int
	messageCount int
	collection   *requirements.Collection
}

func newSession(id string, historySize int) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		lastActivity: now,
		historySize:  historySize,
		keywordFreq:  make(map[string]int),
		cloudFreq:    make(map[string]int),
	}
}

// Lock serializes processing for this session. Hold it for the duration of
// one pipeline invocation.
func (s *Session) Lock() { s.mu.Lock() }

func (s *Session) Unlock() { s.mu.Unlock() }

// Touch must be called while holding the session lock.
func (s *Session) Touch() {
	s.lastActivity = time.Now()
}

// AppendExchange records a completed exchange, evicting the oldest entry
// once the bound is reached. Caller holds the session lock.
func (s *Session) AppendExchange(query, response, intent string) {
	s.history = append(s.history, Exchange{
		Query:    query,
		Response: response,
		Intent:   intent,
		At:       time.Now(),
	})
	if s.historySize > 0 && len(s.history) > s.historySize {
		s.history = s.history[len(s.history)-s.historySize:]
	}
	s.messageCount++
}

// ObserveKeywords feeds the preference summary. Caller holds the session
// lock.
func (s *Session) ObserveKeywords(keywords []string) {
	for _, kw := range keywords {
		s.keywordFreq[kw]++
		switch kw {
		case "aws", "azure", "gcp":
			s.cloudFreq[kw]++
		}
	}
}

// History returns a copy of the bounded history. Caller holds the session
// lock.
func (s *Session) History() []Exchange {
	out := make([]Exchange, len(s.history))
	copy(out, s.history)
	return out
}

// Preferences derives the current summary. Caller holds the session lock.
func (s *Session) Preferences() Preferences {
	p := Preferences{MessageCount: s.messageCount}

	best := 0
	for cloud, n := range s.cloudFreq {
		if n > best {
			best = n
			p.PreferredCloud = cloud
		}
	}

	type kf struct {
		kw string
		n  int
	}
	var freqs []kf
	for kw, n := range s.keywordFreq {
		freqs = append(freqs, kf{kw, n})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].n != freqs[j].n {
			return freqs[i].n > freqs[j].n
		}
		return freqs[i].kw < freqs[j].kw
	})
	for i := 0; i < len(freqs) && i < 3; i++ {
		p.TopInterests = append(p.TopInterests, freqs[i].kw)
	}

	return p
}

// Collection returns the active requirements collection, nil when none.
// Caller holds the session lock.
func (s *Session) Collection() *requirements.Collection {
	return s.collection
}

// SetCollection installs a fresh collection cycle, replacing any stale one.
// Caller holds the session lock.
func (s *Session) SetCollection(c *requirements.Collection) {
	s.collection = c
}

// ClearCollection drops the active collection. Caller holds the session
// lock.
func (s *Session) ClearCollection() {
	s.collection = nil
}

func (s *Session) lastActivityTime() time.Time {
	return s.lastActivity
}
