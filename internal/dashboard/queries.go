package dashboard

import (
	"time"

	"github.com/prominer44/Dare-or-truth/internal/models"
	"gorm.io/gorm"
)

// GameRow holds game data for the list view.
type GameRow struct {
	ID        uint      `json:"id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Phase     string    `json:"phase"`
	ChannelID string    `json:"channel_id"`
	OwnerID   string    `json:"owner_id"`
	Players   int       `json:"players"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameSummary returns all games newest first, with active player counts.
func GameSummary(db *gorm.DB) ([]GameRow, error) {
	var games []models.Game
	if err := db.Order("created_at DESC").Limit(200).Find(&games).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		GameID uint
		Count  int
	}
	var counts []countRow
	if err := db.Model(&models.Player{}).
		Select("game_id, count(*) as count").
		Where("active = ?", true).
		Group("game_id").
		Find(&counts).Error; err != nil {
		return nil, err
	}
	countMap := make(map[uint]int, len(counts))
	for _, c := range counts {
		countMap[c.GameID] = c.Count
	}

	rows := make([]GameRow, len(games))
	for i, g := range games {
		rows[i] = GameRow{
			ID:        g.ID,
			Kind:      g.Kind,
			Status:    g.Status,
			Phase:     g.Phase,
			ChannelID: g.ChannelID,
			OwnerID:   g.OwnerID,
			Players:   countMap[g.ID],
			CreatedAt: g.CreatedAt,
			UpdatedAt: g.UpdatedAt,
		}
	}
	return rows, nil
}

// PlayerRow holds one participant for the game detail view.
type PlayerRow struct {
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Active      bool      `json:"active"`
	Turns       int       `json:"turns"`
	SkipsUsed   int       `json:"skips_used"`
	Penalties   int       `json:"penalties"`
	RerollsLeft int       `json:"rerolls_left"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ActionRow holds one log entry for display.
type ActionRow struct {
	ID        uint      `json:"id"`
	GameID    uint      `json:"game_id"`
	ActorID   string    `json:"actor_id"`
	Category  string    `json:"category"`
	Level     string    `json:"level"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// GameDetailData holds full game data for the detail view.
type GameDetailData struct {
	ID           uint      `json:"id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Phase        string    `json:"phase"`
	View         string    `json:"view"`
	ChannelID    string    `json:"channel_id"`
	OwnerID      string    `json:"owner_id"`
	TurnIndex    int       `json:"turn_index"`
	AllowMidJoin bool      `json:"allow_mid_join"`
	ShowPrevious bool      `json:"show_previous"`
	AllowMature  bool      `json:"allow_mature"`
	LastQuestion string    `json:"last_question"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Players []PlayerRow `json:"players"`
	Actions []ActionRow `json:"actions"`
}

// GameDetail returns full game data for the detail page, including
// players in turn order and the most recent actions.
func GameDetail(db *gorm.DB, id uint) (*GameDetailData, error) {
	var g models.Game
	if err := db.Preload("Players", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("joined_at ASC")
	}).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, err
	}

	detail := &GameDetailData{
		ID:           g.ID,
		Kind:         g.Kind,
		Status:       g.Status,
		Phase:        g.Phase,
		View:         g.View,
		ChannelID:    g.ChannelID,
		OwnerID:      g.OwnerID,
		TurnIndex:    g.TurnIndex,
		AllowMidJoin: g.AllowMidJoin,
		ShowPrevious: g.ShowPrevious,
		AllowMature:  g.AllowMature,
		LastQuestion: g.LastQuestion,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}

	detail.Players = make([]PlayerRow, len(g.Players))
	for i, p := range g.Players {
		detail.Players[i] = PlayerRow{
			UserID:      p.UserID,
			Name:        p.Name,
			Active:      p.Active,
			Turns:       p.Turns,
			SkipsUsed:   p.SkipsUsed,
			Penalties:   p.Penalties,
			RerollsLeft: p.RerollsLeft,
			JoinedAt:    p.JoinedAt,
		}
	}

	var actions []models.Action
	if err := db.Where("game_id = ?", g.ID).
		Order("created_at DESC").
		Limit(50).
		Find(&actions).Error; err != nil {
		return nil, err
	}
	detail.Actions = make([]ActionRow, len(actions))
	for i, a := range actions {
		detail.Actions[i] = actionRow(a)
	}

	return detail, nil
}

// QuestionStatRow holds question bank counts for one category/level pair.
type QuestionStatRow struct {
	Category string `json:"category"`
	Level    string `json:"level"`
	Enabled  int    `json:"enabled"`
	Disabled int    `json:"disabled"`
	Asked    int    `json:"asked"`
}

// QuestionStats returns question bank counts grouped by category and
// level, plus how often each pair has been asked.
func QuestionStats(db *gorm.DB) ([]QuestionStatRow, error) {
	type row struct {
		Category string
		Level    string
		Enabled  bool
		Count    int
	}
	var rows []row
	if err := db.Model(&models.Question{}).
		Select("category, level, enabled, count(*) as count").
		Group("category, level, enabled").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	type key struct{ category, level string }
	statMap := make(map[key]*QuestionStatRow)
	for _, r := range rows {
		k := key{r.Category, r.Level}
		s, ok := statMap[k]
		if !ok {
			s = &QuestionStatRow{Category: r.Category, Level: r.Level}
			statMap[k] = s
		}
		if r.Enabled {
			s.Enabled += r.Count
		} else {
			s.Disabled += r.Count
		}
	}

	type askedRow struct {
		Category string
		Level    string
		Count    int
	}
	var asked []askedRow
	if err := db.Model(&models.Action{}).
		Select("category, level, count(*) as count").
		Where("status = ?", models.ActionAsked).
		Group("category, level").
		Find(&asked).Error; err != nil {
		return nil, err
	}
	for _, a := range asked {
		k := key{a.Category, a.Level}
		s, ok := statMap[k]
		if !ok {
			s = &QuestionStatRow{Category: a.Category, Level: a.Level}
			statMap[k] = s
		}
		s.Asked += a.Count
	}

	result := make([]QuestionStatRow, 0, len(statMap))
	for _, s := range statMap {
		result = append(result, *s)
	}
	return result, nil
}

// RecentActions returns the newest log entries across all games.
func RecentActions(db *gorm.DB, limit int) ([]ActionRow, error) {
	var actions []models.Action
	if err := db.Order("created_at DESC").Limit(limit).Find(&actions).Error; err != nil {
		return nil, err
	}
	rows := make([]ActionRow, len(actions))
	for i, a := range actions {
		rows[i] = actionRow(a)
	}
	return rows, nil
}

func actionRow(a models.Action) ActionRow {
	return ActionRow{
		ID:        a.ID,
		GameID:    a.GameID,
		ActorID:   a.ActorID,
		Category:  a.Category,
		Level:     a.Level,
		Text:      a.Text,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	}
}
