package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teamvine/matchday/internal/models"
)

// Config is the optional YAML configuration. Everything has a working
// default, so a missing file is not an error.
type Config struct {
	Rules struct {
		DefaultPreset string                 `yaml:"default_preset"`
		Presets       map[string]rulesPreset `yaml:"presets"`
	} `yaml:"rules"`
	Challenge struct {
		TokenTTLHours int `yaml:"token_ttl_hours"`
	} `yaml:"challenge"`
}

type rulesPreset struct {
	QuarterCount        int  `yaml:"quarter_count"`
	QuarterMinutes      int  `yaml:"quarter_minutes"`
	QuarterBreakMinutes int  `yaml:"quarter_break_minutes"`
	HalftimeMinutes     int  `yaml:"halftime_minutes"`
	PlayersPerSide      int  `yaml:"players_per_side"`
	AllowOwnGoals       bool `yaml:"allow_own_goals"`
	CardsEnabled        bool `yaml:"cards_enabled"`
}

func (p rulesPreset) toRules() models.MatchRules {
	return models.MatchRules{
		QuarterCount:        p.QuarterCount,
		QuarterMinutes:      p.QuarterMinutes,
		QuarterBreakMinutes: p.QuarterBreakMinutes,
		HalftimeMinutes:     p.HalftimeMinutes,
		PlayersPerSide:      p.PlayersPerSide,
		AllowOwnGoals:       p.AllowOwnGoals,
		CardsEnabled:        p.CardsEnabled,
	}
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

// defaultRules resolves the configured default preset, falling back to the
// built-in rules when no config or preset is available.
func (c *Config) defaultRules() models.MatchRules {
	if c == nil || c.Rules.DefaultPreset == "" {
		return models.DefaultMatchRules()
	}
	preset, ok := c.Rules.Presets[c.Rules.DefaultPreset]
	if !ok {
		return models.DefaultMatchRules()
	}
	return preset.toRules()
}

func (c *Config) tokenTTL() time.Duration {
	if c == nil || c.Challenge.TokenTTLHours <= 0 {
		return 0 // challenge.NewApp applies its default
	}
	return time.Duration(c.Challenge.TokenTTLHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
