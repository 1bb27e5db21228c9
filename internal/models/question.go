package models

import "time"

// Question is one row of the question bank. The game core only reads
// questions; the write path belongs to the admin CLI and suggestion
// moderation.
type Question struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Category string `gorm:"size:16;not null;index:idx_cat_level"`
	Level    string `gorm:"size:16;not null;index:idx_cat_level"`
	Text     string `gorm:"type:text;not null"`
	Enabled  bool   `gorm:"not null;default:true;index"`

	CreatedAt time.Time
}

// Suggestion statuses.
const (
	SuggestionPending  = "pending"
	SuggestionApproved = "approved"
	SuggestionRejected = "rejected"
)

// Suggestion is a player-submitted question awaiting moderation. Approval
// copies it into the question bank.
type Suggestion struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"size:64;not null"`
	ChannelID string `gorm:"size:128"`
	Category  string `gorm:"size:16;not null"`
	Level     string `gorm:"size:16;not null"`
	Text      string `gorm:"type:text;not null"`
	Status    string `gorm:"size:16;not null;default:pending;index"`

	ReviewedBy string `gorm:"size:64"`
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

// ForcedQuestion is an admin-queued override for a specific player.
// Consumed at most once, oldest first within the matching category/level
// filter, before random selection; deleted on consumption. Empty Category
// or Level matches any pick.
type ForcedQuestion struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	GameID   uint   `gorm:"not null;index:idx_forced_target"`
	UserID   string `gorm:"size:64;not null;index:idx_forced_target"`
	Category string `gorm:"size:16"`
	Level    string `gorm:"size:16"`
	Text     string `gorm:"type:text;not null"`

	CreatedAt time.Time
}
