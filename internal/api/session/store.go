package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/daytour-ai/daytour/internal/types"
)

// Store holds the working state of every live conversation. It is built
// once at process start and injected wherever session access is needed;
// all access goes through its lock and Get hands out copies.
type Store struct {
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*types.SessionState

	ttl           time.Duration
	sweepInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once

	// OnSweep, when set, observes the removed count of every sweep that
	// evicted at least one session.
	OnSweep func(removed int)
}

func NewStore(ttl, sweepInterval time.Duration, logger *slog.Logger) *Store {
	s := &Store{
		logger:        logger,
		sessions:      make(map[string]*types.SessionState),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Get returns a copy of the session state, creating a default state on
// first access. Callers can mutate the copy freely.
func (s *Store) Get(sessionID string) types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		state = &types.SessionState{UpdatedAt: time.Now()}
		s.sessions[sessionID] = state
	}
	return state.Copy()
}

// Update applies a partial write and refreshes the last-access timestamp.
func (s *Store) Update(sessionID string, update types.SessionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[sessionID]
	if !ok {
		state = &types.SessionState{}
		s.sessions[sessionID] = state
	}
	if update.LastQuery != nil {
		state.LastQuery = *update.LastQuery
	}
	if update.Plan != nil {
		state.Plan = update.Plan
	}
	if update.Places != nil {
		state.Places = update.Places
	}
	if update.Context != nil {
		state.Context = *update.Context
	}
	state.UpdatedAt = time.Now()
}

// Reset clears the session back to defaults without removing it.
func (s *Store) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = &types.SessionState{UpdatedAt: time.Now()}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stop terminates the background sweep goroutine.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep removes sessions idle past the TTL. The store lock already
// serializes sweeps; it is held only while scanning the map.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	removed := 0
	for id, state := range s.sessions {
		if now.Sub(state.UpdatedAt) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Info("Swept expired sessions", slog.Int("removed", removed))
		if s.OnSweep != nil {
			s.OnSweep(removed)
		}
	}
	return removed
}
