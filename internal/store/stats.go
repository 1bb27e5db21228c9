package store

import (
	"fmt"
	"time"

	"github.com/prominer44/Dare-or-truth/internal/models"
)

// DigestStats summarizes activity since a point in time, for the daily
// digest announcement and the dashboard.
type DigestStats struct {
	GamesStarted int64
	GamesEnded   int64
	Actions      int64
	Timeouts     int64
	TopPenalized []PlayerCount
}

// PlayerCount pairs a player name with a counter.
type PlayerCount struct {
	Name  string
	Count int
}

// Digest computes activity stats since the cutoff.
func (s *Store) Digest(since time.Time) (*DigestStats, error) {
	var out DigestStats

	if err := s.db.Model(&models.Game{}).
		Where("created_at >= ?", since).Count(&out.GamesStarted).Error; err != nil {
		return nil, fmt.Errorf("store: digest games started: %w", err)
	}
	if err := s.db.Model(&models.Game{}).
		Where("status = ? AND updated_at >= ?", models.StatusEnded, since).
		Count(&out.GamesEnded).Error; err != nil {
		return nil, fmt.Errorf("store: digest games ended: %w", err)
	}
	if err := s.db.Model(&models.Action{}).
		Where("created_at >= ?", since).Count(&out.Actions).Error; err != nil {
		return nil, fmt.Errorf("store: digest actions: %w", err)
	}
	if err := s.db.Model(&models.Action{}).
		Where("created_at >= ? AND status = ?", since, models.ActionTimedOut).
		Count(&out.Timeouts).Error; err != nil {
		return nil, fmt.Errorf("store: digest timeouts: %w", err)
	}

	rows, err := s.topPenalized(5)
	if err != nil {
		return nil, err
	}
	out.TopPenalized = rows
	return &out, nil
}

func (s *Store) topPenalized(limit int) ([]PlayerCount, error) {
	var rows []PlayerCount
	err := s.db.Model(&models.Player{}).
		Select("name, penalties AS count").
		Where("penalties > 0").
		Order("penalties DESC").Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: top penalized: %w", err)
	}
	return rows, nil
}
