package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prominer44/Dare-or-truth/internal/game"
	"github.com/prominer44/Dare-or-truth/internal/gateway"
	"github.com/prominer44/Dare-or-truth/internal/models"
	"github.com/prominer44/Dare-or-truth/internal/store"
)

// Delivery tuning defaults.
const (
	DefaultMaxAttempts = 4
	DefaultBaseBackoff = 250 * time.Millisecond
	DefaultMaxBackoff  = 3 * time.Second
	DefaultPacing      = 300 * time.Millisecond
)

// ErrRetired is returned by Dispatch after the coordinator has shut down.
var ErrRetired = errors.New("session: coordinator retired")

// CoordinatorOpts holds parameters for creating a Coordinator.
type CoordinatorOpts struct {
	GameID  uint
	Store   *store.Store
	Engine  *game.Engine
	Gateway gateway.Gateway
	Timers  *TimerScheduler

	TurnTimeout time.Duration // shown on the board

	MaxAttempts int           // delivery attempts per dirty cycle
	BaseBackoff time.Duration // first retry delay
	MaxBackoff  time.Duration // retry delay cap
	Pacing      time.Duration // minimum gap between deliveries

	// OnEnded is called once, from the event loop, when the game reaches
	// the ended status. It must not block on the coordinator itself.
	OnEnded func(gameID uint)
}

// Coordinator serializes all events for one game. Events enter through
// Dispatch, are applied through the engine and persisted by the store one
// at a time, and each commit marks the board dirty. A separate delivery
// goroutine drains the dirty flag, so a burst of events coalesces into few
// board edits while the final state is always the one delivered.
type Coordinator struct {
	gameID uint
	st     *store.Store
	eng    *game.Engine
	gw     gateway.Gateway
	timers *TimerScheduler

	turnTimeout time.Duration
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	pacing      time.Duration
	onEnded     func(uint)

	inbox chan dispatchReq
	dirty chan struct{}
	quit  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once
}

type dispatchReq struct {
	ev    game.Event
	reply chan error
}

// NewCoordinator creates and starts a coordinator for one game.
func NewCoordinator(opts CoordinatorOpts) (*Coordinator, error) {
	if opts.GameID == 0 {
		return nil, fmt.Errorf("session: game id is required")
	}
	if opts.Store == nil || opts.Engine == nil || opts.Gateway == nil || opts.Timers == nil {
		return nil, fmt.Errorf("session: store, engine, gateway and timers are required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = DefaultBaseBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.Pacing < 0 {
		opts.Pacing = DefaultPacing
	}

	c := &Coordinator{
		gameID:      opts.GameID,
		st:          opts.Store,
		eng:         opts.Engine,
		gw:          opts.Gateway,
		timers:      opts.Timers,
		turnTimeout: opts.TurnTimeout,
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		pacing:      opts.Pacing,
		onEnded:     opts.OnEnded,
		inbox:       make(chan dispatchReq),
		dirty:       make(chan struct{}, 1),
		quit:        make(chan struct{}),
	}

	c.wg.Add(2)
	go c.run()
	go c.deliverLoop()
	return c, nil
}

// Dispatch applies one event and returns the engine's verdict. The error is
// suitable for toasting back to the acting user.
func (c *Coordinator) Dispatch(ctx context.Context, ev game.Event) error {
	req := dispatchReq{ev: ev, reply: make(chan error, 1)}
	select {
	case c.inbox <- req:
	case <-c.quit:
		return ErrRetired
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops both goroutines and waits for them. Pending dirty state gets
// one final delivery attempt.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.quit)
	})
	c.wg.Wait()
}

// run is the single consumer of the inbox. Every event goes through the
// same load, transition, persist sequence; nothing else touches this
// game's rows while it runs.
func (c *Coordinator) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.quit:
			return
		case req := <-c.inbox:
			req.reply <- c.apply(req.ev)
		}
	}
}

func (c *Coordinator) apply(ev game.Event) error {
	st, err := c.st.LoadState(c.gameID)
	if err != nil {
		return err
	}

	next, effects, err := c.eng.Transition(*st, ev)
	if err != nil {
		if errors.Is(err, game.ErrStaleTimer) {
			// A timer that lost the race against a player action.
			// Nothing is persisted, delivered or toasted.
			return nil
		}
		if errors.Is(err, game.ErrGameEnded) {
			// The row was already ended before this coordinator saw it,
			// so the end transition never ran here. Retire now or the
			// coordinator outlives the game.
			c.retire()
		}
		return err
	}

	if err := c.st.ApplyOutcome(next, effects); err != nil {
		return err
	}

	// Timer effects apply only after the commit. A crash in between means
	// a missing timer, never a timer for unpersisted state.
	for _, eff := range effects {
		switch e := eff.(type) {
		case game.ScheduleTimer:
			c.timers.Schedule(c.gameID, e.UserID)
		case game.CancelTimer:
			c.timers.Cancel(c.gameID)
		}
	}

	c.markDirty()

	if next.Game.Status != st.Game.Status && next.Game.Status == models.StatusEnded {
		c.retire()
	}
	return nil
}

// retire cancels the game's timer and hands the coordinator back to the
// registry for shutdown.
func (c *Coordinator) retire() {
	c.timers.Cancel(c.gameID)
	if c.onEnded != nil {
		c.onEnded(c.gameID)
	}
}

// markDirty requests a board delivery. The channel holds one token, so any
// number of pending requests collapse into a single future delivery.
func (c *Coordinator) markDirty() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *Coordinator) deliverLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.dirty:
			c.deliverOnce()
			if c.pacing > 0 {
				select {
				case <-time.After(c.pacing):
				case <-c.quit:
				}
			}
		case <-c.quit:
			// Final drain so the last committed state reaches the board.
			select {
			case <-c.dirty:
				c.deliverOnce()
			default:
			}
			return
		}
	}
}

// deliverOnce renders the freshest committed state and pushes it to the
// board, retrying transient failures and recreating a vanished surface.
func (c *Coordinator) deliverOnce() {
	ctx := context.Background()

	st, err := c.st.LoadState(c.gameID)
	if err != nil {
		log.Printf("session: game %d: load for delivery: %v", c.gameID, err)
		return
	}
	if st.Game.MessageID == "" && st.Game.ChannelID == "" {
		return
	}
	view := gateway.Render(st, c.turnTimeout)
	surface := gateway.Surface{ChannelID: st.Game.ChannelID, MessageID: st.Game.MessageID}

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		status, err := c.gw.Deliver(ctx, surface, view)
		switch status {
		case gateway.Delivered:
			return
		case gateway.Permanent:
			// The board message is gone. Post a fresh one and retarget.
			fresh, rerr := c.gw.RecreateSurface(ctx, surface.ChannelID, view)
			if rerr != nil {
				log.Printf("session: game %d: recreate board: %v", c.gameID, rerr)
				return
			}
			st.Game.MessageID = fresh.MessageID
			if serr := c.st.SaveGame(&st.Game); serr != nil {
				log.Printf("session: game %d: save recreated surface: %v", c.gameID, serr)
			}
			return
		case gateway.Retryable:
			if attempt == c.maxAttempts-1 {
				log.Printf("session: game %d: delivery gave up after %d attempts: %v",
					c.gameID, c.maxAttempts, err)
				return
			}
			wait := c.baseBackoff << uint(attempt)
			if wait > c.maxBackoff {
				wait = c.maxBackoff
			}
			select {
			case <-time.After(wait):
			case <-c.quit:
				return
			}
		}
	}
}
