package game

// Effect is a side effect requested by a transition. The coordinator
// executes store effects inside the same transaction that persists the
// new state, and timer effects only after that transaction commits.
type Effect interface{ isEffect() }

// ScheduleTimer arms (replacing any pending timer) the turn timer for the
// given participant.
type ScheduleTimer struct {
	UserID string
}

// CancelTimer cancels any pending turn timer for the game.
type CancelTimer struct{}

// AppendAction appends an immutable action-log entry.
type AppendAction struct {
	ActorID  string
	Category string
	Level    string
	Text     string
	Status   string
}

// MarkLastAction updates the status of the game's most recent action.
type MarkLastAction struct {
	Status string
}

// AskQuestion resolves question text for a pick: the forced queue first
// (oldest matching entry, consumed), then a uniformly random enabled bank
// row. Resolution happens in the store so the whole event aborts, without
// mutating anything, when no question is available.
type AskQuestion struct {
	ActorID  string
	Category string
	Level    string
}

// JoinPlayer upserts a player: a new row gets the full reroll budget, a
// returning row is reactivated with its stats intact.
type JoinPlayer struct {
	UserID  string
	Name    string
	Rerolls int
}

// DeactivatePlayer soft-removes a player, preserving its stats.
type DeactivatePlayer struct {
	UserID string
}

func (ScheduleTimer) isEffect() {}
func (CancelTimer) isEffect() {}
func (AppendAction) isEffect() {}
func (MarkLastAction) isEffect() {}
func (AskQuestion) isEffect() {}
func (JoinPlayer) isEffect() {}
func (DeactivatePlayer) isEffect() {}
