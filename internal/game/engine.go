// Package game implements the truth-or-dare turn state machine as a pure
// transition function over in-memory snapshots. The engine performs no
// I/O: it validates an event against the current state and returns the
// next state plus the side effects the coordinator must apply.
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/prominer44/Dare-or-truth/internal/models"
)

// Options holds the engine tunables.
type Options struct {
	MaxRerolls           int
	MinPlayers           int
	RerollConsumeRefuse  float64 // chance a refusal/rejection burns a reroll
	RerollConsumeTimeout float64 // chance a timeout burns a reroll
	Penalties            []string
	Rand                 *rand.Rand // deterministic source for tests
}

// Engine computes game transitions. Safe for use by one coordinator at a
// time; the per-game serialization discipline lives in the session
// package, not here.
type Engine struct {
	maxRerolls  int
	minPlayers  int
	refuseBurn  float64
	timeoutBurn float64
	penalties   []string
	rng         *rand.Rand
}

// New creates an Engine, filling unset options with defaults.
func New(opts Options) *Engine {
	e := &Engine{
		maxRerolls:  opts.MaxRerolls,
		minPlayers:  opts.MinPlayers,
		refuseBurn:  opts.RerollConsumeRefuse,
		timeoutBurn: opts.RerollConsumeTimeout,
		penalties:   opts.Penalties,
		rng:         opts.Rand,
	}
	if e.maxRerolls <= 0 {
		e.maxRerolls = 3
	}
	if e.minPlayers <= 0 {
		e.minPlayers = 2
	}
	if e.refuseBurn == 0 {
		e.refuseBurn = 0.7
	}
	if e.timeoutBurn == 0 {
		e.timeoutBurn = 0.5
	}
	if len(e.penalties) == 0 {
		e.penalties = DefaultPenalties
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// MaxRerolls returns the reroll budget granted to a new player.
func (e *Engine) MaxRerolls() int { return e.maxRerolls }

// Transition applies one event to a snapshot. On error the returned state
// is the input state, unchanged; the engine never fails partway.
func (e *Engine) Transition(st State, ev Event) (State, []Effect, error) {
	if st.Game.Status == models.StatusEnded {
		if ev.Type == EventTimeout {
			return st, nil, ErrStaleTimer
		}
		return st, nil, ErrGameEnded
	}

	switch ev.Type {
	case EventJoin:
		return e.join(st, ev)
	case EventLeave:
		return e.leave(st, ev)
	case EventStart:
		return e.start(st, ev)
	case EventPick:
		return e.pick(st, ev)
	case EventReroll:
		return e.reroll(st, ev)
	case EventSkip:
		return e.skip(st, ev)
	case EventDone:
		return e.done(st, ev)
	case EventRefuse:
		return e.refuse(st, ev)
	case EventConfirm:
		return e.confirm(st, ev)
	case EventTimeout:
		return e.timeout(st, ev)
	case EventEnd:
		return e.end(st, ev)
	case EventSetView:
		return e.setView(st, ev)
	case EventSetFlag:
		return e.setFlag(st, ev)
	default:
		return st, nil, fmt.Errorf("game: unknown event type %q", ev.Type)
	}
}

func (e *Engine) isOwner(st *State, ev Event) bool {
	return ev.ActorID == st.Game.OwnerID || ev.Admin
}

func (e *Engine) join(st State, ev Event) (State, []Effect, error) {
	if st.Game.Status == models.StatusRunning && !st.Game.AllowMidJoin && st.PlayerByID(ev.ActorID) == nil {
		return st, nil, ErrMidJoinDisabled
	}
	// The store upsert reactivates a returning player with stats intact;
	// a brand-new player gets the full reroll budget.
	effects := []Effect{JoinPlayer{
		UserID:  ev.ActorID,
		Name:    ev.ActorName,
		Rerolls: e.maxRerolls,
	}}
	return st.clone(), effects, nil
}

func (e *Engine) leave(st State, ev Event) (State, []Effect, error) {
	p := st.PlayerByID(ev.ActorID)
	if p == nil {
		return st, nil, ErrNotAllowed
	}
	next := st.clone()
	wasCurrent := st.Current() != nil && st.Current().UserID == ev.ActorID

	kept := next.Players[:0]
	for _, pl := range next.Players {
		if pl.UserID != ev.ActorID {
			kept = append(kept, pl)
		}
	}
	next.Players = kept

	effects := []Effect{DeactivatePlayer{UserID: ev.ActorID}}
	if next.Game.Status == models.StatusRunning && wasCurrent {
		// The departed player's slot collapses: the same index now
		// resolves to the next player in join order.
		next.Game.Phase = models.PhaseChoose
		next.Game.View = models.ViewMain
		if cur := next.Current(); cur != nil {
			cur.Turns++
			effects = append(effects, ScheduleTimer{UserID: cur.UserID})
		} else {
			effects = append(effects, CancelTimer{})
		}
	}
	return next, effects, nil
}

func (e *Engine) start(st State, ev Event) (State, []Effect, error) {
	if !e.isOwner(&st, ev) {
		return st, nil, ErrNotAllowed
	}
	if st.Game.Status != models.StatusLobby {
		return st, nil, ErrWrongPhase
	}
	if st.ActiveCount() < e.minPlayers {
		return st, nil, ErrNotEnoughPlayers
	}
	next := st.clone()
	next.Game.Status = models.StatusRunning
	next.Game.Phase = models.PhaseChoose
	next.Game.View = models.ViewMain
	cur := next.Current()
	cur.Turns++
	return next, []Effect{ScheduleTimer{UserID: cur.UserID}}, nil
}

func (e *Engine) pick(st State, ev Event) (State, []Effect, error) {
	if st.Game.Status != models.StatusRunning || st.Game.Phase != models.PhaseChoose {
		return st, nil, ErrWrongPhase
	}
	cur := st.Current()
	if cur == nil || cur.UserID != ev.ActorID {
		return st, nil, ErrNotYourTurn
	}

	category, level := ev.Category, ev.Level
	if category == CategoryRandom {
		category = [2]string{models.CategoryTruth, models.CategoryDare}[e.rng.Intn(2)]
		level = [2]string{models.LevelNormal, models.LevelMature}[e.rng.Intn(2)]
	}
	if level == models.LevelMature && !st.Game.AllowMature {
		return st, nil, ErrMatureDisabled
	}

	next := st.clone()
	next.Game.Phase = models.PhaseQuestion
	next.Game.View = models.ViewMain
	next.Game.LastCategory = category
	next.Game.LastLevel = level
	next.Game.LastAskedBy = ev.ActorID
	effects := []Effect{
		AskQuestion{ActorID: ev.ActorID, Category: category, Level: level},
		ScheduleTimer{UserID: ev.ActorID},
	}
	return next, effects, nil
}

func (e *Engine) reroll(st State, ev Event) (State, []Effect, error) {
	if st.Game.Status != models.StatusRunning || st.Game.Phase != models.PhaseChoose {
		return st, nil, ErrWrongPhase
	}
	cur := st.Current()
	if cur == nil || cur.UserID != ev.ActorID {
		return st, nil, ErrNotYourTurn
	}
	if cur.RerollsLeft <= 0 {
		return st, nil, ErrNoRerolls
	}
	next := st.clone()
	next.Current().RerollsLeft--
	return next, []Effect{ScheduleTimer{UserID: ev.ActorID}}, nil
}

func (e *Engine) skip(st State, ev Event) (State, []Effect, error) {
	if st.Game.Status != models.StatusRunning {
		return st, nil, ErrWrongPhase
	}
	cur := st.Current()
	if cur == nil {
		return st, nil, ErrWrongPhase
	}
	if ev.ActorID != cur.UserID && !e.isOwner(&st, ev) {
		return st, nil, ErrNotAllowed
	}
	next := st.clone()
	next.Current().SkipsUsed++
	effects := e.advanceTurn(&next)
	return next, effects, nil
}

func (e *Engine) done(st State, ev Event) (State, []Effect, error) {
	if st.Game.Status != models.StatusRunning || st.Game.Phase != models.PhaseQuestion {
		return st, nil, ErrWrongPhase
	}
	cur := st.Current()
	if cur == nil || cur.UserID != ev.ActorID {
		return st, nil, ErrNotYourTurn
	}

	next := st.clone()
	if next.ActiveCount() == 2 {
		// Two-party game: the counterpart must confirm before the turn
		// moves on.
		next.Game.Phase = models.PhaseWaitConfirm
		next.Game.View = models.ViewMain
		effects := []Effect{
			MarkLastAction{Status: models.ActionDoneWait},
			ScheduleTimer{UserID: ev.ActorID},
		}
		if next.Last != nil {
			next.Last.Status = models.ActionDoneWait
		}
		return next, effects, nil
	}

	// Larger groups self-confirm.
	effects := []Effect{MarkLastAction{Status: models.ActionConfirmed}}
	if next.Last != nil {
		next.Last.Status = models.ActionConfirmed
	}
	effects = append(effects, e.advanceTurn(&next)...)
	return next, effects, nil
}

func (e *Engine) refuse(st State, ev Event) (State, []Effect, error) {
	if st.Game.Status != models.StatusRunning || st.Game.Phase != models.PhaseQuestion {
		return st, nil, ErrWrongPhase
	}
	cur := st.Current()
	if cur == nil || cur.UserID != ev.ActorID {
		return st, nil, ErrNotYourTurn
	}

	next := st.clone()
	penalty := e.applyPenalty(&next, ev.ActorID, e.refuseBurn)
	effects := []Effect{AppendAction{
		ActorID:  ev.ActorID,
		Category: models.CategoryRefuse,
		Level:    models.LevelNormal,
		Text:     penalty,
		Status:   models.ActionRefused,
	}}
	effects = append(effects, e.advanceTurn(&next)...)
	return next, effects, nil
}

func (e *Engine) confirm(st State, ev Event) (State, []Effect, error) {
	if st.Game.Status != models.StatusRunning || st.Game.Phase != models.PhaseWaitConfirm {
		return st, nil, ErrWrongPhase
	}
	if st.ActiveCount() != 2 {
		return st, nil, ErrWrongPhase
	}
	cur := st.Current()
	// Only the counterpart of the two players may judge.
	if cur == nil || ev.ActorID == cur.UserID || st.PlayerByID(ev.ActorID) == nil {
		return st, nil, ErrNotAllowed
	}

	next := st.clone()
	var effects []Effect
	if ev.Accept {
		effects = append(effects, MarkLastAction{Status: models.ActionConfirmed})
		if next.Last != nil {
			next.Last.Status = models.ActionConfirmed
		}
	} else {
		effects = append(effects, MarkLastAction{Status: models.ActionRejected})
		if next.Last != nil {
			next.Last.Status = models.ActionRejected
		}
		penalty := e.applyPenalty(&next, cur.UserID, e.refuseBurn)
		effects = append(effects, AppendAction{
			ActorID:  cur.UserID,
			Category: models.CategoryReject,
			Level:    models.LevelNormal,
			Text:     penalty,
			Status:   models.ActionRejected,
		})
	}
	effects = append(effects, e.advanceTurn(&next)...)
	return next, effects, nil
}

func (e *Engine) timeout(st State, ev Event) (State, []Effect, error) {
	if st.Game.Status != models.StatusRunning {
		return st, nil, ErrStaleTimer
	}
	cur := st.Current()
	if cur == nil || cur.UserID != ev.ActorID {
		// A faster event already moved the turn on; the scheduler's
		// cancel-on-replace usually prevents this, the check catches the
		// residual overlap between cancellation and firing.
		return st, nil, ErrStaleTimer
	}

	next := st.clone()
	penalty := e.applyPenalty(&next, ev.ActorID, e.timeoutBurn)
	effects := []Effect{AppendAction{
		ActorID:  ev.ActorID,
		Category: models.CategoryTimeout,
		Level:    models.LevelNormal,
		Text:     "TIMEOUT | " + penalty,
		Status:   models.ActionTimedOut,
	}}
	effects = append(effects, e.advanceTurn(&next)...)
	return next, effects, nil
}

func (e *Engine) end(st State, ev Event) (State, []Effect, error) {
	if !e.isOwner(&st, ev) {
		return st, nil, ErrNotAllowed
	}
	next := st.clone()
	next.Game.Status = models.StatusEnded
	next.Game.View = models.ViewMain
	return next, []Effect{CancelTimer{}}, nil
}

func (e *Engine) setView(st State, ev Event) (State, []Effect, error) {
	switch ev.View {
	case models.ViewMain, models.ViewSettings, models.ViewPlayers, models.ViewStats:
	default:
		return st, nil, fmt.Errorf("game: unknown view %q", ev.View)
	}
	next := st.clone()
	next.Game.View = ev.View
	return next, nil, nil
}

func (e *Engine) setFlag(st State, ev Event) (State, []Effect, error) {
	if !e.isOwner(&st, ev) {
		return st, nil, ErrNotAllowed
	}
	next := st.clone()
	switch ev.Flag {
	case FlagMidJoin:
		next.Game.AllowMidJoin = ev.Enable
	case FlagPrevious:
		next.Game.ShowPrevious = ev.Enable
	case FlagMature:
		next.Game.AllowMature = ev.Enable
	default:
		return st, nil, fmt.Errorf("game: unknown flag %q", ev.Flag)
	}
	next.Game.View = models.ViewSettings
	return next, nil, nil
}

// advanceTurn moves the turn to the next active player, bumps its
// turns-taken count, and returns the timer effect for it. Phase returns
// to choose and the board to the main view.
func (e *Engine) advanceTurn(next *State) []Effect {
	n := next.ActiveCount()
	if n == 0 {
		return []Effect{CancelTimer{}}
	}
	next.Game.TurnIndex = (next.CurrentIndex() + 1) % n
	next.Game.Phase = models.PhaseChoose
	next.Game.View = models.ViewMain
	cur := next.Current()
	cur.Turns++
	return []Effect{ScheduleTimer{UserID: cur.UserID}}
}

// applyPenalty draws a random penalty for the player, increments its
// penalty count, and probabilistically burns one reroll. Returns the
// penalty text.
func (e *Engine) applyPenalty(next *State, userID string, burnChance float64) string {
	penalty := e.penalties[e.rng.Intn(len(e.penalties))]
	p := next.PlayerByID(userID)
	if p != nil {
		p.Penalties++
		if p.RerollsLeft > 0 && e.rng.Float64() < burnChance {
			p.RerollsLeft--
		}
	}
	return penalty
}
