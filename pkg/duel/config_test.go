// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package duel

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duel.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write settings file: %v", err)
	}
	return path
}

func TestLoadSettings(t *testing.T) {
	path := writeSettings(t, `
cooldown:
  window: 15s
  daily_limit: 30
challenge:
  prompt_lifetime: 45s
rating:
  enabled: true
  k_factor: 32
npc:
  min_credits: 200
  max_credits: 400
`)

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.Cooldown.Window.Std() != 15*time.Second {
		t.Errorf("window = %v, expected 15s", settings.Cooldown.Window.Std())
	}
	if settings.Cooldown.DailyLimit != 30 {
		t.Errorf("daily limit = %d, expected 30", settings.Cooldown.DailyLimit)
	}
	if settings.Challenge.PromptLifetime.Std() != 45*time.Second {
		t.Errorf("prompt lifetime = %v, expected 45s", settings.Challenge.PromptLifetime.Std())
	}
	if !settings.Rating.Enabled || settings.Rating.KFactor != 32 {
		t.Errorf("rating = %+v, expected enabled with K=32", settings.Rating)
	}

	// Unspecified fields fall back to the defaults.
	if settings.Cooldown.Cycle.Std() != 24*time.Hour {
		t.Errorf("cycle = %v, expected the 24h default", settings.Cooldown.Cycle.Std())
	}
	if settings.Settlement.ExpBoostMultiplier != 2.5 {
		t.Errorf("boost multiplier = %v, expected 2.5", settings.Settlement.ExpBoostMultiplier)
	}
	if settings.Battle.ChunkLimit != 1900 {
		t.Errorf("chunk limit = %d, expected 1900", settings.Battle.ChunkLimit)
	}
}

func TestLoadSettings_EnvExpansion(t *testing.T) {
	t.Setenv("DUEL_DAILY_LIMIT", "10")

	path := writeSettings(t, `
cooldown:
  daily_limit: ${DUEL_DAILY_LIMIT}
settlement:
  collusion_marker: ${DUEL_MARKER:mock}
`)

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}

	if settings.Cooldown.DailyLimit != 10 {
		t.Errorf("daily limit = %d, expected 10 from the environment", settings.Cooldown.DailyLimit)
	}
	if settings.Settlement.CollusionMarker != "mock" {
		t.Errorf("marker = %s, expected the inline default", settings.Settlement.CollusionMarker)
	}
}

func TestLoadSettings_InvalidDuration(t *testing.T) {
	path := writeSettings(t, `
cooldown:
  window: twenty seconds
`)

	if _, err := LoadSettings(path); err == nil {
		t.Fatal("LoadSettings() accepted an invalid duration")
	}
}

func TestLoadSettings_ValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "window longer than cycle",
			content: `
cooldown:
  window: 48h
  cycle: 24h
`,
		},
		{
			name: "credits range inverted",
			content: `
npc:
  min_credits: 700
  max_credits: 600
`,
		},
		{
			name: "boost and block are the same item",
			content: `
settlement:
  exp_boost_item: lucky-egg
  exp_block_item: lucky-egg
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSettings(t, tc.content)
			if _, err := LoadSettings(path); err == nil {
				t.Error("LoadSettings() accepted invalid settings")
			}
		})
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadSettings() accepted a missing file")
	}
}
