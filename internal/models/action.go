package models

import "time"

// Action categories. Truth and dare mirror question categories; the rest
// record non-question outcomes.
const (
	CategoryTruth   = "truth"
	CategoryDare    = "dare"
	CategoryRefuse  = "refuse"
	CategoryReject  = "reject"
	CategoryTimeout = "timeout"
)

// Question levels.
const (
	LevelNormal = "normal"
	LevelMature = "mature"
)

// Action statuses.
const (
	ActionAsked     = "asked"
	ActionDoneWait  = "done_wait"
	ActionConfirmed = "confirmed"
	ActionRejected  = "rejected"
	ActionRefused   = "refused"
	ActionTimedOut  = "timeout"
)

// Action is an append-only log entry for one asked question or turn
// outcome. The newest row per game backs the "last question" display;
// the full log feeds stats and the dashboard feed.
type Action struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	GameID   uint   `gorm:"not null;index"`
	ActorID  string `gorm:"size:64;not null"`
	Category string `gorm:"size:16;not null"`
	Level    string `gorm:"size:16;not null"`
	Text     string `gorm:"type:text;not null"`
	Status   string `gorm:"size:16;not null;index"`

	CreatedAt time.Time

	Game Game `gorm:"foreignKey:GameID"`
}
