package game

import "errors"

// Engine errors are pure return values: a transition that fails leaves the
// state untouched. The daemon maps these onto ephemeral responses to the
// user who pressed the button.
var (
	// Authorization: wrong actor or insufficient role.
	ErrNotYourTurn = errors.New("game: not your turn")
	ErrNotAllowed  = errors.New("game: not allowed")

	// Phase: the action is not valid in the current phase or status.
	ErrWrongPhase = errors.New("game: action not valid in this phase")
	ErrGameEnded  = errors.New("game: game has ended")

	// Resource exhausted.
	ErrNoRerolls  = errors.New("game: no rerolls left")
	ErrNoQuestion = errors.New("game: no eligible question available")

	// Config disabled.
	ErrMatureDisabled  = errors.New("game: mature content is disabled")
	ErrMidJoinDisabled = errors.New("game: joining mid-game is disabled")

	// Preconditions.
	ErrNotEnoughPlayers = errors.New("game: not enough players to start")

	// ErrStaleTimer marks a timeout event whose participant is no longer
	// current. The coordinator absorbs it silently; it never reaches users.
	ErrStaleTimer = errors.New("game: stale turn timer")
)
