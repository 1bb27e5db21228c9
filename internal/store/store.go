// Package store is the persistence layer for games, players, the action
// log, the question bank, and the forced-question queue. The session
// coordinator is the only writer for an open game; everything it commits
// for one event goes through a single transaction in ApplyOutcome.
package store

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prominer44/Dare-or-truth/internal/game"
	"github.com/prominer44/Dare-or-truth/internal/models"
	"gorm.io/gorm"
)

// Store wraps the database with typed game operations.
type Store struct {
	db *gorm.DB
}

// New creates a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for read-only collaborators (dashboard).
func (s *Store) DB() *gorm.DB { return s.db }

// LoadState reads the full snapshot for a game: the game row, its active
// players in join order, and the latest action.
func (s *Store) LoadState(gameID uint) (*game.State, error) {
	var g models.Game
	if err := s.db.First(&g, gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store: game %d not found", gameID)
		}
		return nil, fmt.Errorf("store: load game %d: %w", gameID, err)
	}

	var players []models.Player
	if err := s.db.Where("game_id = ? AND active = ?", gameID, true).
		Order("joined_at ASC, id ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("store: load players for game %d: %w", gameID, err)
	}

	st := &game.State{Game: g, Players: players}
	last, err := s.LastAction(gameID)
	if err != nil {
		return nil, err
	}
	st.Last = last
	return st, nil
}

// CreateGame inserts a new game row.
func (s *Store) CreateGame(g *models.Game) error {
	if err := s.db.Create(g).Error; err != nil {
		return fmt.Errorf("store: create game: %w", err)
	}
	return nil
}

// SaveGame persists the game row as-is.
func (s *Store) SaveGame(g *models.Game) error {
	if err := s.db.Save(g).Error; err != nil {
		return fmt.Errorf("store: save game %d: %w", g.ID, err)
	}
	return nil
}

// FindOpenGameByChannel returns the newest not-ended group game bound to a
// channel, or nil.
func (s *Store) FindOpenGameByChannel(channelID string) (*models.Game, error) {
	var g models.Game
	err := s.db.Where("kind = ? AND channel_id = ? AND status != ?",
		models.KindGroup, channelID, models.StatusEnded).
		Order("id DESC").First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find game by channel %s: %w", channelID, err)
	}
	return &g, nil
}

// FindOpenGameByInlineRef returns the not-ended inline game bound to a
// surface ref, or nil.
func (s *Store) FindOpenGameByInlineRef(ref string) (*models.Game, error) {
	var g models.Game
	err := s.db.Where("kind = ? AND inline_ref = ? AND status != ?",
		models.KindInline, ref, models.StatusEnded).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find game by inline ref %s: %w", ref, err)
	}
	return &g, nil
}

// UpsertPlayer adds a player to a game, or reactivates an existing row
// keeping its stats. Reports whether a new row was created.
func (s *Store) UpsertPlayer(gameID uint, userID, name string, rerolls int) (bool, error) {
	var created bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = upsertPlayerTx(tx, gameID, userID, name, rerolls)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("store: upsert player %s in game %d: %w", userID, gameID, err)
	}
	return created, nil
}

func upsertPlayerTx(tx *gorm.DB, gameID uint, userID, name string, rerolls int) (bool, error) {
	var p models.Player
	err := tx.Where("game_id = ? AND user_id = ?", gameID, userID).First(&p).Error
	if err == nil {
		return false, tx.Model(&p).Updates(map[string]interface{}{
			"active": true,
			"name":   name,
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	p = models.Player{
		GameID:      gameID,
		UserID:      userID,
		Name:        name,
		JoinedAt:    time.Now(),
		RerollsLeft: rerolls,
		Active:      true,
	}
	return true, tx.Create(&p).Error
}

// DeactivatePlayer soft-removes a player, preserving its stats.
func (s *Store) DeactivatePlayer(gameID uint, userID string) error {
	result := s.db.Model(&models.Player{}).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("store: deactivate player %s in game %d: %w", userID, gameID, result.Error)
	}
	return nil
}

// AppendAction appends an action-log entry.
func (s *Store) AppendAction(gameID uint, actorID, category, level, text, status string) error {
	a := models.Action{
		GameID:   gameID,
		ActorID:  actorID,
		Category: category,
		Level:    level,
		Text:     text,
		Status:   status,
	}
	if err := s.db.Create(&a).Error; err != nil {
		return fmt.Errorf("store: append action for game %d: %w", gameID, err)
	}
	return nil
}

// LastAction returns the most recent action for a game, or nil.
func (s *Store) LastAction(gameID uint) (*models.Action, error) {
	var a models.Action
	err := s.db.Where("game_id = ?", gameID).Order("id DESC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: last action for game %d: %w", gameID, err)
	}
	return &a, nil
}

// PickRandomQuestion returns the text of a uniformly random enabled
// question matching category and level. Returns game.ErrNoQuestion when
// none match.
func (s *Store) PickRandomQuestion(category, level string) (string, error) {
	return pickRandomQuestionTx(s.db, category, level)
}

func pickRandomQuestionTx(tx *gorm.DB, category, level string) (string, error) {
	var count int64
	q := tx.Model(&models.Question{}).
		Where("enabled = ? AND category = ? AND level = ?", true, category, level)
	if err := q.Count(&count).Error; err != nil {
		return "", fmt.Errorf("store: count questions %s/%s: %w", category, level, err)
	}
	if count == 0 {
		return "", game.ErrNoQuestion
	}

	var row models.Question
	if err := q.Order("id ASC").Offset(rand.Intn(int(count))).First(&row).Error; err != nil {
		return "", fmt.Errorf("store: pick question %s/%s: %w", category, level, err)
	}
	return row.Text, nil
}

// EnqueueForced queues an admin override question for a player. Empty
// category or level matches any pick.
func (s *Store) EnqueueForced(gameID uint, userID, category, level, text string) error {
	f := models.ForcedQuestion{
		GameID:   gameID,
		UserID:   userID,
		Category: category,
		Level:    level,
		Text:     text,
	}
	if err := s.db.Create(&f).Error; err != nil {
		return fmt.Errorf("store: enqueue forced question for game %d: %w", gameID, err)
	}
	return nil
}

// PopForced consumes the oldest queued forced question matching the pick,
// deleting it. Reports ok=false when the queue has no match.
func (s *Store) PopForced(gameID uint, userID, category, level string) (string, bool, error) {
	var text string
	var ok bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		text, ok, err = popForcedTx(tx, gameID, userID, category, level)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return text, ok, nil
}

func popForcedTx(tx *gorm.DB, gameID uint, userID, category, level string) (string, bool, error) {
	var f models.ForcedQuestion
	err := tx.Where("game_id = ? AND user_id = ?", gameID, userID).
		Where("category = ? OR category = ''", category).
		Where("level = ? OR level = ''", level).
		Order("id ASC").First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: pop forced question: %w", err)
	}
	if err := tx.Delete(&f).Error; err != nil {
		return "", false, fmt.Errorf("store: delete forced question %d: %w", f.ID, err)
	}
	return f.Text, true, nil
}

// ApplyOutcome commits one transition: the new game and player rows plus
// every store effect, atomically. Question resolution happens here so a
// pick with no eligible question aborts the whole event (game.ErrNoQuestion)
// with nothing mutated.
func (s *Store) ApplyOutcome(st game.State, effects []game.Effect) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&st.Game).Error; err != nil {
			return fmt.Errorf("save game: %w", err)
		}
		for i := range st.Players {
			if st.Players[i].ID == 0 {
				continue // membership changes arrive as effects
			}
			if err := tx.Save(&st.Players[i]).Error; err != nil {
				return fmt.Errorf("save player %s: %w", st.Players[i].UserID, err)
			}
		}

		for _, ef := range effects {
			if err := applyEffectTx(tx, &st, ef); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, game.ErrNoQuestion) {
			return game.ErrNoQuestion
		}
		return fmt.Errorf("store: apply outcome for game %d: %w", st.Game.ID, err)
	}
	return nil
}

func applyEffectTx(tx *gorm.DB, st *game.State, ef game.Effect) error {
	switch e := ef.(type) {
	case game.JoinPlayer:
		_, err := upsertPlayerTx(tx, st.Game.ID, e.UserID, e.Name, e.Rerolls)
		if err != nil {
			return fmt.Errorf("join player %s: %w", e.UserID, err)
		}
		return nil

	case game.DeactivatePlayer:
		return tx.Model(&models.Player{}).
			Where("game_id = ? AND user_id = ?", st.Game.ID, e.UserID).
			Update("active", false).Error

	case game.AppendAction:
		a := models.Action{
			GameID:   st.Game.ID,
			ActorID:  e.ActorID,
			Category: e.Category,
			Level:    e.Level,
			Text:     e.Text,
			Status:   e.Status,
		}
		return tx.Create(&a).Error

	case game.MarkLastAction:
		var last models.Action
		err := tx.Where("game_id = ?", st.Game.ID).Order("id DESC").First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find last action: %w", err)
		}
		return tx.Model(&last).Update("status", e.Status).Error

	case game.AskQuestion:
		text, ok, err := popForcedTx(tx, st.Game.ID, e.ActorID, e.Category, e.Level)
		if err != nil {
			return err
		}
		if !ok {
			text, err = pickRandomQuestionTx(tx, e.Category, e.Level)
			if err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Game{}).Where("id = ?", st.Game.ID).
			Update("last_question", text).Error; err != nil {
			return fmt.Errorf("set last question: %w", err)
		}
		a := models.Action{
			GameID:   st.Game.ID,
			ActorID:  e.ActorID,
			Category: e.Category,
			Level:    e.Level,
			Text:     text,
			Status:   models.ActionAsked,
		}
		return tx.Create(&a).Error

	case game.ScheduleTimer, game.CancelTimer:
		// Timer effects are applied by the coordinator after commit.
		return nil

	default:
		return fmt.Errorf("unknown effect %T", ef)
	}
}
