package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prominer44/Dare-or-truth/internal/game"
	"github.com/prominer44/Dare-or-truth/internal/gateway"
	"github.com/prominer44/Dare-or-truth/internal/store"
)

// RegistryOpts holds the dependencies shared by all coordinators.
type RegistryOpts struct {
	Store   *store.Store
	Engine  *game.Engine
	Gateway gateway.Gateway

	TurnTimeout time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Pacing      time.Duration
}

// Registry hands out one coordinator per live game, creating them on the
// first event and retiring them when the game ends. It also owns the shared
// timer scheduler: a fired turn timer dispatches a timeout event for the
// player whose turn it was armed for.
type Registry struct {
	opts   RegistryOpts
	timers *TimerScheduler

	mu     sync.Mutex
	coords map[uint]*Coordinator
	closed bool
}

// NewRegistry creates a registry.
func NewRegistry(opts RegistryOpts) (*Registry, error) {
	if opts.Store == nil || opts.Engine == nil || opts.Gateway == nil {
		return nil, fmt.Errorf("session: store, engine and gateway are required")
	}
	if opts.TurnTimeout <= 0 {
		return nil, fmt.Errorf("session: turn timeout must be positive")
	}

	r := &Registry{
		opts:   opts,
		coords: make(map[uint]*Coordinator),
	}
	r.timers = NewTimerScheduler(opts.TurnTimeout, r.fireTimeout)
	return r, nil
}

// Dispatch routes an event to the game's coordinator, creating one if this
// is the first event for the game.
func (r *Registry) Dispatch(ctx context.Context, gameID uint, ev game.Event) error {
	c, err := r.coordinator(gameID)
	if err != nil {
		return err
	}
	err = c.Dispatch(ctx, ev)
	if err == ErrRetired {
		// Lost a race with retirement; the game is over.
		return game.ErrGameEnded
	}
	return err
}

func (r *Registry) coordinator(gameID uint) (*Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRetired
	}
	if c, ok := r.coords[gameID]; ok {
		return c, nil
	}
	c, err := NewCoordinator(CoordinatorOpts{
		GameID:      gameID,
		Store:       r.opts.Store,
		Engine:      r.opts.Engine,
		Gateway:     r.opts.Gateway,
		Timers:      r.timers,
		TurnTimeout: r.opts.TurnTimeout,
		MaxAttempts: r.opts.MaxAttempts,
		BaseBackoff: r.opts.BaseBackoff,
		MaxBackoff:  r.opts.MaxBackoff,
		Pacing:      r.opts.Pacing,
		OnEnded:     r.retire,
	})
	if err != nil {
		return nil, err
	}
	r.coords[gameID] = c
	return c, nil
}

// Active reports how many coordinators are live.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.coords)
}

// retire removes an ended game's coordinator and shuts it down. Called from
// the coordinator's own event loop, so the shutdown happens off to the side.
func (r *Registry) retire(gameID uint) {
	r.mu.Lock()
	c, ok := r.coords[gameID]
	if ok {
		delete(r.coords, gameID)
	}
	r.mu.Unlock()
	if ok {
		go c.Close()
	}
}

// fireTimeout is the timer scheduler callback. A timeout that arrives after
// the player already acted resolves as a stale timer inside the engine and
// is dropped there.
func (r *Registry) fireTimeout(gameID uint, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := r.Dispatch(ctx, gameID, game.Event{
		Type:    game.EventTimeout,
		GameID:  gameID,
		ActorID: userID,
	})
	if err != nil && err != game.ErrGameEnded {
		// Engine-level rejections are expected noise; anything else is not.
		log.Printf("session: game %d: timeout dispatch: %v", gameID, err)
	}
}

// Close retires every coordinator and stops the timer scheduler.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	coords := make([]*Coordinator, 0, len(r.coords))
	for id, c := range r.coords {
		coords = append(coords, c)
		delete(r.coords, id)
	}
	r.mu.Unlock()

	r.timers.Stop()
	for _, c := range coords {
		c.Close()
	}
}
