package game

// EventType enumerates the inbound events a game can receive.
type EventType string

const (
	EventJoin    EventType = "join"
	EventLeave   EventType = "leave"
	EventStart   EventType = "start"
	EventPick    EventType = "pick"
	EventReroll  EventType = "reroll"
	EventSkip    EventType = "skip"
	EventDone    EventType = "done"
	EventRefuse  EventType = "refuse"
	EventConfirm EventType = "confirm"
	EventTimeout EventType = "timeout"
	EventEnd     EventType = "end"
	EventSetView EventType = "set_view"
	EventSetFlag EventType = "set_flag"
)

// Settings flags togglable via EventSetFlag.
const (
	FlagMidJoin  = "midjoin"
	FlagPrevious = "previous"
	FlagMature   = "mature"
)

// CategoryRandom asks the engine to roll category and level uniformly
// before the mature-content check.
const CategoryRandom = "random"

// Event is one inbound trigger for a game: a button press, an admin
// injection, or a turn-timer firing. For EventTimeout, ActorID is the
// participant the timer was armed for, which the engine checks against
// the current player to discard stale timers.
type Event struct {
	Type      EventType
	GameID    uint
	ActorID   string
	ActorName string

	// Admin is set by the daemon when the actor is a configured admin.
	Admin bool

	Category string // pick: truth, dare, or random
	Level    string // pick: normal, mature, or random
	Accept   bool   // confirm: yes/no
	View     string // set_view
	Flag     string // set_flag
	Enable   bool   // set_flag
}
