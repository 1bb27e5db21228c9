package models

import "time"

// Game kinds.
const (
	KindGroup  = "group"  // channel-hosted, any number of players
	KindInline = "inline" // two-party game embedded in a direct chat
)

// Game statuses.
const (
	StatusLobby   = "lobby"
	StatusRunning = "running"
	StatusEnded   = "ended"
)

// Game phases while running.
const (
	PhaseLobby       = "lobby"
	PhaseChoose      = "choose"
	PhaseQuestion    = "question"
	PhaseWaitConfirm = "wait_confirm"
)

// Board views. Only the rendering changes between views; the game state
// machine is untouched by view switches.
const (
	ViewMain     = "main"
	ViewSettings = "settings"
	ViewPlayers  = "players"
	ViewStats    = "stats"
)

// Game is one truth-or-dare game: its lobby, turn state, and board surface.
// The session coordinator for a game is its only writer while the game is
// open; the persisted row is the source of truth across restarts.
type Game struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	Kind    string `gorm:"size:16;not null;index"`
	Status  string `gorm:"size:16;not null;default:lobby;index"`
	OwnerID string `gorm:"size:64;not null"`

	// Board surface. Group games address a channel message; inline games
	// address a platform interaction ref.
	ChannelID string `gorm:"size:128;index:idx_surface"`
	MessageID string `gorm:"size:128;index:idx_surface"`
	InlineRef string `gorm:"size:128;index"`

	View      string `gorm:"size:16;not null;default:main"`
	Phase     string `gorm:"size:16;not null;default:lobby"`
	TurnIndex int    `gorm:"not null;default:0"`

	AllowMidJoin bool `gorm:"not null;default:true"`
	ShowPrevious bool `gorm:"not null;default:true"`
	AllowMature  bool `gorm:"not null;default:true"`

	LastQuestion string `gorm:"type:text"`
	LastCategory string `gorm:"size:16"`
	LastLevel    string `gorm:"size:16"`
	LastAskedBy  string `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Players []Player `gorm:"foreignKey:GameID"`
}

// Player is one participant in a game. A player who leaves is marked
// inactive rather than deleted, preserving stats and the (game, user)
// uniqueness constraint. Turn order is ascending JoinedAt among active
// players.
type Player struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	GameID   uint   `gorm:"not null;uniqueIndex:idx_game_user"`
	UserID   string `gorm:"size:64;not null;uniqueIndex:idx_game_user"`
	Name     string `gorm:"size:128;not null"`
	JoinedAt time.Time

	RerollsLeft int  `gorm:"not null;default:0"`
	SkipsUsed   int  `gorm:"not null;default:0"`
	Penalties   int  `gorm:"not null;default:0"`
	Turns       int  `gorm:"not null;default:0"`
	Active      bool `gorm:"not null;default:true;index"`

	Game Game `gorm:"foreignKey:GameID"`
}
