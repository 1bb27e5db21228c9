package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/prominer44/Dare-or-truth/internal/models"
	"gorm.io/gorm"
)

// AddQuestions inserts question rows, enabled.
func (s *Store) AddQuestions(category, level string, texts []string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	rows := make([]models.Question, 0, len(texts))
	for _, t := range texts {
		rows = append(rows, models.Question{
			Category: category,
			Level:    level,
			Text:     t,
			Enabled:  true,
		})
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("store: add questions %s/%s: %w", category, level, err)
	}
	return len(rows), nil
}

// ListQuestions returns questions, optionally filtered by category and level.
func (s *Store) ListQuestions(category, level string) ([]models.Question, error) {
	q := s.db.Model(&models.Question{}).Order("id ASC")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if level != "" {
		q = q.Where("level = ?", level)
	}
	var rows []models.Question
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list questions: %w", err)
	}
	return rows, nil
}

// SetQuestionEnabled toggles one question row.
func (s *Store) SetQuestionEnabled(id uint, enabled bool) error {
	result := s.db.Model(&models.Question{}).Where("id = ?", id).Update("enabled", enabled)
	if result.Error != nil {
		return fmt.Errorf("store: set question %d enabled=%v: %w", id, enabled, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: question %d not found", id)
	}
	return nil
}

// CreateSuggestion records a player-submitted question for moderation.
func (s *Store) CreateSuggestion(userID, channelID, category, level, text string) (*models.Suggestion, error) {
	sg := models.Suggestion{
		UserID:    userID,
		ChannelID: channelID,
		Category:  category,
		Level:     level,
		Text:      text,
		Status:    models.SuggestionPending,
	}
	if err := s.db.Create(&sg).Error; err != nil {
		return nil, fmt.Errorf("store: create suggestion: %w", err)
	}
	return &sg, nil
}

// PendingSuggestions returns the oldest pending suggestions, up to limit.
func (s *Store) PendingSuggestions(limit int) ([]models.Suggestion, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.Suggestion
	if err := s.db.Where("status = ?", models.SuggestionPending).
		Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: pending suggestions: %w", err)
	}
	return rows, nil
}

// ReviewSuggestion approves or rejects a pending suggestion. Approval
// copies it into the question bank in the same transaction.
func (s *Store) ReviewSuggestion(id uint, approve bool, reviewerID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sg models.Suggestion
		if err := tx.First(&sg, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("suggestion %d not found", id)
			}
			return err
		}
		if sg.Status != models.SuggestionPending {
			return fmt.Errorf("suggestion %d already %s", id, sg.Status)
		}

		status := models.SuggestionRejected
		if approve {
			status = models.SuggestionApproved
		}
		now := time.Now()
		if err := tx.Model(&sg).Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
		}).Error; err != nil {
			return err
		}

		if approve {
			q := models.Question{
				Category: sg.Category,
				Level:    sg.Level,
				Text:     sg.Text,
				Enabled:  true,
			}
			if err := tx.Create(&q).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: review suggestion %d: %w", id, err)
	}
	return nil
}

// RunningGames lists games currently in progress, newest first.
func (s *Store) RunningGames(limit int) ([]models.Game, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.Game
	if err := s.db.Where("status = ?", models.StatusRunning).
		Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: running games: %w", err)
	}
	return rows, nil
}

// IdleLobbies returns lobby games untouched since the cutoff.
func (s *Store) IdleLobbies(cutoff time.Time) ([]models.Game, error) {
	var rows []models.Game
	if err := s.db.Where("status = ? AND updated_at < ?", models.StatusLobby, cutoff).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: idle lobbies: %w", err)
	}
	return rows, nil
}
