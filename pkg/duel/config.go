// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package duel

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/battle"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/challenge"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/cooldown"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/rating"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/settlement"
)

// Duration is a yaml-friendly time.Duration accepting values like "20s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Settings is the file-backed tuning surface of the duel flow.
type Settings struct {
	Cooldown struct {
		Window     Duration `yaml:"window"`
		DailyLimit int      `yaml:"daily_limit"`
		Cycle      Duration `yaml:"cycle"`
		Grace      Duration `yaml:"grace"`
	} `yaml:"cooldown"`

	Challenge struct {
		PromptLifetime Duration `yaml:"prompt_lifetime"`
	} `yaml:"challenge"`

	Readiness struct {
		// Timeout bounds how long a party duel waits for both confirmations.
		Timeout Duration `yaml:"timeout"`
	} `yaml:"readiness"`

	Battle struct {
		ChunkLimit int `yaml:"chunk_limit"`
		// EngineTimeout bounds one engine run; expiry is a transient fault.
		EngineTimeout Duration `yaml:"engine_timeout"`
		PregameGifs   []string `yaml:"pregame_gifs,omitempty"`
	} `yaml:"battle"`

	Settlement struct {
		ExpBoostItem       string   `yaml:"exp_boost_item"`
		ExpBlockItem       string   `yaml:"exp_block_item"`
		ExpBoostMultiplier float64  `yaml:"exp_boost_multiplier"`
		CollusionLookback  Duration `yaml:"collusion_lookback"`
		CollusionMarker    string   `yaml:"collusion_marker"`
		MaxAlertEntries    int      `yaml:"max_alert_entries"`
	} `yaml:"settlement"`

	Rating struct {
		Enabled bool `yaml:"enabled"`
		KFactor int  `yaml:"k_factor"`
	} `yaml:"rating"`

	NPC struct {
		EnergyCost    int `yaml:"energy_cost"`
		MinCredits    int `yaml:"min_credits"`
		MaxCredits    int `yaml:"max_credits"`
		MaxMultiplier int `yaml:"max_multiplier"`
	} `yaml:"npc"`
}

// LoadSettings loads duel settings from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var settings Settings
	if err := yaml.Unmarshal([]byte(expanded), &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML settings: %w", err)
	}

	settings.applyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &settings, nil
}

// DefaultSettings returns the settings used when no file is configured.
func DefaultSettings() *Settings {
	var s Settings
	s.applyDefaults()
	return &s
}

func (s *Settings) applyDefaults() {
	if s.Cooldown.Window <= 0 {
		s.Cooldown.Window = Duration(cooldown.DefaultWindow)
	}
	if s.Cooldown.DailyLimit <= 0 {
		s.Cooldown.DailyLimit = cooldown.DefaultDailyLimit
	}
	if s.Cooldown.Cycle <= 0 {
		s.Cooldown.Cycle = Duration(cooldown.DefaultCycle)
	}
	if s.Cooldown.Grace <= 0 {
		s.Cooldown.Grace = Duration(cooldown.DefaultGrace)
	}
	if s.Challenge.PromptLifetime <= 0 {
		s.Challenge.PromptLifetime = Duration(challenge.DefaultPromptLifetime)
	}
	if s.Readiness.Timeout <= 0 {
		s.Readiness.Timeout = Duration(60 * time.Second)
	}
	if s.Battle.ChunkLimit <= 0 {
		s.Battle.ChunkLimit = battle.DefaultChunkLimit
	}
	if s.Battle.EngineTimeout <= 0 {
		s.Battle.EngineTimeout = Duration(5 * time.Minute)
	}
	if s.Settlement.ExpBoostItem == "" {
		s.Settlement.ExpBoostItem = settlement.DefaultExpBoostItem
	}
	if s.Settlement.ExpBlockItem == "" {
		s.Settlement.ExpBlockItem = settlement.DefaultExpBlockItem
	}
	if s.Settlement.ExpBoostMultiplier <= 0 {
		s.Settlement.ExpBoostMultiplier = settlement.DefaultExpBoostMultiplier
	}
	if s.Settlement.CollusionLookback <= 0 {
		s.Settlement.CollusionLookback = Duration(settlement.DefaultCollusionLookback)
	}
	if s.Settlement.CollusionMarker == "" {
		s.Settlement.CollusionMarker = settlement.DefaultCollusionMarker
	}
	if s.Settlement.MaxAlertEntries <= 0 {
		s.Settlement.MaxAlertEntries = settlement.DefaultMaxAlertEntries
	}
	if s.Rating.KFactor <= 0 {
		s.Rating.KFactor = rating.DefaultKFactor
	}
	if s.NPC.EnergyCost <= 0 {
		s.NPC.EnergyCost = 1
	}
	if s.NPC.MinCredits <= 0 {
		s.NPC.MinCredits = 100
	}
	if s.NPC.MaxCredits <= 0 {
		s.NPC.MaxCredits = 600
	}
	if s.NPC.MaxMultiplier <= 0 {
		s.NPC.MaxMultiplier = 50
	}
}

// Validate validates the settings for common errors.
func (s *Settings) Validate() error {
	if s.Cooldown.Window.Std() >= s.Cooldown.Cycle.Std() {
		return fmt.Errorf("cooldown window %v must be shorter than the cycle %v", s.Cooldown.Window.Std(), s.Cooldown.Cycle.Std())
	}
	if s.Cooldown.Grace.Std() >= s.Cooldown.Cycle.Std() {
		return fmt.Errorf("cooldown grace %v must be shorter than the cycle %v", s.Cooldown.Grace.Std(), s.Cooldown.Cycle.Std())
	}
	if s.NPC.MinCredits > s.NPC.MaxCredits {
		return fmt.Errorf("npc min_credits %d exceeds max_credits %d", s.NPC.MinCredits, s.NPC.MaxCredits)
	}
	if s.Settlement.ExpBoostItem == s.Settlement.ExpBlockItem {
		return fmt.Errorf("exp_boost_item and exp_block_item are both %q", s.Settlement.ExpBoostItem)
	}
	return nil
}

// CooldownConfig maps the settings onto the cooldown gate.
func (s *Settings) CooldownConfig() cooldown.Config {
	return cooldown.Config{
		Window:     s.Cooldown.Window.Std(),
		DailyLimit: s.Cooldown.DailyLimit,
		Cycle:      s.Cooldown.Cycle.Std(),
		Grace:      s.Cooldown.Grace.Std(),
	}
}

func (s *Settings) ChallengeConfig() challenge.Config {
	return challenge.Config{PromptLifetime: s.Challenge.PromptLifetime.Std()}
}

func (s *Settings) BattleConfig() battle.Config {
	return battle.Config{ChunkLimit: s.Battle.ChunkLimit}
}

func (s *Settings) SettlementConfig() settlement.Config {
	return settlement.Config{
		ExpBoostItem:       s.Settlement.ExpBoostItem,
		ExpBlockItem:       s.Settlement.ExpBlockItem,
		ExpBoostMultiplier: s.Settlement.ExpBoostMultiplier,
		CollusionLookback:  s.Settlement.CollusionLookback.Std(),
		CollusionMarker:    s.Settlement.CollusionMarker,
		MaxAlertEntries:    s.Settlement.MaxAlertEntries,
	}
}

func (s *Settings) RatingConfig() rating.Config {
	return rating.Config{KFactor: s.Rating.KFactor}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
