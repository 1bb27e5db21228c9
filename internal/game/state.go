package game

import (
	"github.com/prominer44/Dare-or-truth/internal/models"
)

// State is the full in-memory snapshot of one game: the game row, its
// active players in turn order (ascending join time), and the most recent
// action-log entry. The engine transitions whole snapshots; it never
// touches storage.
type State struct {
	Game    models.Game
	Players []models.Player
	Last    *models.Action
}

// ActiveCount returns the number of active players.
func (s *State) ActiveCount() int {
	return len(s.Players)
}

// CurrentIndex resolves the turn index modulo the current active player
// count. The stored index is not an absolute pointer: players leaving
// shifts effective positions, so the modulo is taken at resolution time.
func (s *State) CurrentIndex() int {
	n := len(s.Players)
	if n == 0 {
		return 0
	}
	return ((s.Game.TurnIndex % n) + n) % n
}

// Current returns the player whose turn it is, or nil if there are no
// active players.
func (s *State) Current() *models.Player {
	if len(s.Players) == 0 {
		return nil
	}
	return &s.Players[s.CurrentIndex()]
}

// PlayerByID returns the active player with the given user ID, or nil.
func (s *State) PlayerByID(userID string) *models.Player {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			return &s.Players[i]
		}
	}
	return nil
}

// clone deep-copies the snapshot so a failed transition can never leak
// partial mutation back to the caller.
func (s State) clone() State {
	out := State{Game: s.Game}
	if len(s.Players) > 0 {
		out.Players = make([]models.Player, len(s.Players))
		copy(out.Players, s.Players)
	}
	if s.Last != nil {
		last := *s.Last
		out.Last = &last
	}
	return out
}
