// Package config provides YAML-based configuration loading for the bot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level bot configuration, loaded from dot.yaml.
type Config struct {
	Platform  string          `yaml:"platform"` // "discord", "slack", or "mock"
	AdminIDs  []string        `yaml:"admin_ids"`
	Discord   DiscordConfig   `yaml:"discord"`
	Slack     SlackConfig     `yaml:"slack"`
	Database  DatabaseConfig  `yaml:"database"`
	Game      GameConfig      `yaml:"game"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Janitor   JanitorConfig   `yaml:"janitor"`
	Digest    DigestConfig    `yaml:"digest"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// DiscordConfig holds Discord connection settings.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// SlackConfig holds Slack Socket Mode connection settings.
type SlackConfig struct {
	AppToken  string `yaml:"app_token"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DatabaseConfig selects the storage backend. SQLite is the default;
// MySQL is available for shared deployments.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	Path   string `yaml:"path"`   // sqlite file path
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
}

// GameConfig holds the game-rule tunables.
type GameConfig struct {
	TurnTimeoutSec       int     `yaml:"turn_timeout_sec"`
	MaxRerolls           int     `yaml:"max_rerolls"`
	MinPlayers           int     `yaml:"min_players"`
	RerollConsumeRefuse  float64 `yaml:"reroll_consume_refuse"`  // chance a refusal/rejection burns a reroll
	RerollConsumeTimeout float64 `yaml:"reroll_consume_timeout"` // chance a timeout burns a reroll
}

// TurnTimeout returns the configured turn timeout as a duration.
func (g GameConfig) TurnTimeout() time.Duration {
	return time.Duration(g.TurnTimeoutSec) * time.Second
}

// DeliveryConfig bounds board delivery retries and pacing.
type DeliveryConfig struct {
	MaxAttempts   int `yaml:"max_attempts"`
	BaseBackoffMs int `yaml:"base_backoff_ms"`
	MaxBackoffMs  int `yaml:"max_backoff_ms"`
	PacingDelayMs int `yaml:"pacing_delay_ms"`
}

// BaseBackoff returns the initial retry backoff.
func (d DeliveryConfig) BaseBackoff() time.Duration {
	return time.Duration(d.BaseBackoffMs) * time.Millisecond
}

// MaxBackoff returns the retry backoff cap.
func (d DeliveryConfig) MaxBackoff() time.Duration {
	return time.Duration(d.MaxBackoffMs) * time.Millisecond
}

// PacingDelay returns the fixed delay between board deliveries.
func (d DeliveryConfig) PacingDelay() time.Duration {
	return time.Duration(d.PacingDelayMs) * time.Millisecond
}

// JanitorConfig schedules cleanup of abandoned lobbies.
type JanitorConfig struct {
	Cron         string `yaml:"cron"` // 5-field cron expression
	IdleLobbyMin int    `yaml:"idle_lobby_min"`
}

// IdleLobbyTTL returns how long a lobby may sit idle before being ended.
func (j JanitorConfig) IdleLobbyTTL() time.Duration {
	return time.Duration(j.IdleLobbyMin) * time.Minute
}

// DigestConfig schedules the daily activity digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// DashboardConfig controls the read-only ops dashboard.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "dot.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Game.TurnTimeoutSec == 0 {
		c.Game.TurnTimeoutSec = 60
	}
	if c.Game.MaxRerolls == 0 {
		c.Game.MaxRerolls = 3
	}
	if c.Game.MinPlayers == 0 {
		c.Game.MinPlayers = 2
	}
	if c.Game.RerollConsumeRefuse == 0 {
		c.Game.RerollConsumeRefuse = 0.7
	}
	if c.Game.RerollConsumeTimeout == 0 {
		c.Game.RerollConsumeTimeout = 0.5
	}
	if c.Delivery.MaxAttempts == 0 {
		c.Delivery.MaxAttempts = 4
	}
	if c.Delivery.BaseBackoffMs == 0 {
		c.Delivery.BaseBackoffMs = 250
	}
	if c.Delivery.MaxBackoffMs == 0 {
		c.Delivery.MaxBackoffMs = 3000
	}
	if c.Delivery.PacingDelayMs == 0 {
		c.Delivery.PacingDelayMs = 300
	}
	if c.Janitor.Cron == "" {
		c.Janitor.Cron = "*/15 * * * *"
	}
	if c.Janitor.IdleLobbyMin == 0 {
		c.Janitor.IdleLobbyMin = 120
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Platform {
	case "discord":
		if c.Discord.BotToken == "" {
			errs = append(errs, "discord.bot_token is required")
		}
		if c.Discord.ChannelID == "" {
			errs = append(errs, "discord.channel_id is required")
		}
	case "slack":
		if c.Slack.AppToken == "" {
			errs = append(errs, "slack.app_token is required")
		}
		if c.Slack.BotToken == "" {
			errs = append(errs, "slack.bot_token is required")
		}
	case "mock":
		// No credentials needed.
	case "":
		errs = append(errs, "platform is required")
	default:
		errs = append(errs, fmt.Sprintf("platform %q is not supported (use discord, slack, or mock)", c.Platform))
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (use sqlite or mysql)", c.Database.Driver))
	}
	if c.Database.Driver == "mysql" && c.Database.Name == "" {
		errs = append(errs, "database.name is required for mysql")
	}
	if len(c.AdminIDs) == 0 {
		errs = append(errs, "at least one admin_ids entry is required")
	}
	if p := c.Game.RerollConsumeRefuse; p < 0 || p > 1 {
		errs = append(errs, "game.reroll_consume_refuse must be within [0, 1]")
	}
	if p := c.Game.RerollConsumeTimeout; p < 0 || p > 1 {
		errs = append(errs, "game.reroll_consume_timeout must be within [0, 1]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsAdmin reports whether the user ID is in the admin list.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
