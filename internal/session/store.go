package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	MaxSessions     int
	Timeout         time.Duration
	CleanupInterval time.Duration
	HistorySize     int
}

// Store owns session lifecycle: create on first contact, evict on
// inactivity or capacity pressure (oldest first). It replaces ambient
// global session state; the pipeline receives it by injection.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	maxSessions int
	timeout     time.Duration
	interval    time.Duration
	historySize int

	logger *zap.Logger
	ticker *time.Ticker
	stopCh chan struct{}
}

func NewStore(cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSessions == 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Minute
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = 20
	}

	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: cfg.MaxSessions,
		timeout:     cfg.Timeout,
		interval:    cfg.CleanupInterval,
		historySize: cfg.HistorySize,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// GetOrCreate returns the session for id, creating it on first contact.
// When the store is at capacity the oldest idle session is evicted first.
// The returned session is claimed against eviction; callers must Release
// it once their request is done.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		s.claims++
		return s
	}

	if len(st.sessions) >= st.maxSessions {
		st.evictOldestLocked()
	}

	s := newSession(id, st.historySize)
	s.claims = 1
	st.sessions[id] = s
	st.logger.Debug("Session created", zap.String("session_id", id))
	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Acquire is Get plus an eviction claim; callers must Release the session
// once done with it.
func (st *Store) Acquire(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		s.claims++
	}
	return s, ok
}

// Release returns a claim taken by GetOrCreate or Acquire, making the
// session visible to the reaper again.
func (st *Store) Release(s *Session) {
	if s == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if s.claims > 0 {
		s.claims--
	}
}

// Reset destroys a session explicitly, abandoning any in-flight collection.
func (st *Store) Reset(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; ok {
		delete(st.sessions, id)
		st.logger.Info("Session reset", zap.String("session_id", id))
	}
}

func (st *Store) ActiveCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Start launches the background reaper.
func (st *Store) Start() {
	st.ticker = time.NewTicker(st.interval)
	go func() {
		for {
			select {
			case <-st.ticker.C:
				st.Sweep()
			case <-st.stopCh:
				return
			}
		}
	}()
	st.logger.Info("Session reaper started",
		zap.Duration("interval", st.interval),
		zap.Duration("timeout", st.timeout),
	)
}

func (st *Store) Stop() {
	if st.ticker != nil {
		st.ticker.Stop()
	}
	close(st.stopCh)
}

// Sweep evicts sessions inactive beyond the timeout. A session currently
// processing a message holds its own lock, so TryLock keeps the
// check-then-evict atomic with respect to last-activity updates; a claimed
// session has a request between GetOrCreate and its lock, so both are
// skipped, never evicted mid-request.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	evicted := 0
	for id, s := range st.sessions {
		if s.claims > 0 {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		idle := now.Sub(s.lastActivityTime())
		s.mu.Unlock()

		if idle > st.timeout {
			delete(st.sessions, id)
			evicted++
			st.logger.Debug("Session expired",
				zap.String("session_id", id),
				zap.Duration("idle", idle),
			)
		}
	}

	if evicted > 0 {
		st.logger.Info("Sessions evicted", zap.Int("count", evicted))
	}
	return evicted
}

// evictOldestLocked removes the idle session with the oldest last activity.
// Claimed and in-flight sessions are never candidates; when everything is
// claimed the store temporarily grows past its cap instead. Caller holds
// st.mu.
func (st *Store) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time

	for id, s := range st.sessions {
		if s.claims > 0 {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		at := s.lastActivityTime()
		s.mu.Unlock()

		if oldestID == "" || at.Before(oldestAt) {
			oldestID = id
			oldestAt = at
		}
	}

	if oldestID != "" {
		delete(st.sessions, oldestID)
		st.logger.Warn("Session evicted at capacity", zap.String("session_id", oldestID))
	}
}
