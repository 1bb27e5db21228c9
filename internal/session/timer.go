// Package session coordinates live games: one coordinator per game
// serializes events through the engine and the store, a delivery goroutine
// keeps the board surface in sync, and a timer scheduler arms the per-turn
// timeout.
package session

import (
	"sync"
	"time"
)

// TimerFunc is invoked when a turn timer fires. It receives the game and
// the player whose turn was armed when the timer was scheduled.
type TimerFunc func(gameID uint, userID string)

// TimerScheduler owns at most one pending turn timer per game. Scheduling
// replaces any pending timer for that game; a fired timer whose generation
// has since been replaced is dropped without invoking the callback.
type TimerScheduler struct {
	mu      sync.Mutex
	timeout time.Duration
	fire    TimerFunc
	pending map[uint]*pendingTimer
	stopped bool
}

type pendingTimer struct {
	gen   uint64
	timer *time.Timer
}

// NewTimerScheduler creates a scheduler firing after the given timeout.
func NewTimerScheduler(timeout time.Duration, fire TimerFunc) *TimerScheduler {
	return &TimerScheduler{
		timeout: timeout,
		fire:    fire,
		pending: make(map[uint]*pendingTimer),
	}
}

// Schedule arms the turn timer for a game, replacing any pending one.
func (s *TimerScheduler) Schedule(gameID uint, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	var gen uint64 = 1
	if p, ok := s.pending[gameID]; ok {
		gen = p.gen + 1
		p.timer.Stop()
	}

	p := &pendingTimer{gen: gen}
	p.timer = time.AfterFunc(s.timeout, func() {
		if !s.claim(gameID, gen) {
			return
		}
		s.fire(gameID, userID)
	})
	s.pending[gameID] = p
}

// claim checks that the fired generation is still the armed one and clears
// the pending entry if so.
func (s *TimerScheduler) claim(gameID uint, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[gameID]
	if !ok || p.gen != gen || s.stopped {
		return false
	}
	delete(s.pending, gameID)
	return true
}

// Cancel drops the pending timer for a game, if any.
func (s *TimerScheduler) Cancel(gameID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[gameID]; ok {
		p.timer.Stop()
		delete(s.pending, gameID)
	}
}

// Stop cancels all pending timers. The scheduler accepts no further
// schedules afterwards.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
}
