// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package settlement applies the persistent consequences of a decided duel:
// progress record merge, achievement counters, experience payouts, and the
// collusion scan.
package settlement

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/battle"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/metrics"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
)

const (
	DefaultExpBoostItem       = "lucky-egg"
	DefaultExpBlockItem       = "xp-block"
	DefaultExpBoostMultiplier = 2.5
	DefaultCollusionLookback  = 30 * time.Minute
	DefaultCollusionMarker    = "mock"
	DefaultMaxAlertEntries    = 10
)

// maxStoredExp is the largest experience value the creatures table holds.
const maxStoredExp = math.MaxInt32

type Config struct {
	// ExpBoostItem multiplies the experience payout when held.
	ExpBoostItem string
	// ExpBlockItem zeroes the experience payout when held.
	ExpBlockItem string
	// ExpBoostMultiplier is applied for the boost item.
	ExpBoostMultiplier float64
	// CollusionLookback bounds the action-log scan window before session
	// start.
	CollusionLookback time.Duration
	// CollusionMarker is the argument substring that flags a log entry.
	CollusionMarker string
	// MaxAlertEntries caps how many log entries one alert lists.
	MaxAlertEntries int
}

func (c Config) withDefaults() Config {
	if c.ExpBoostItem == "" {
		c.ExpBoostItem = DefaultExpBoostItem
	}
	if c.ExpBlockItem == "" {
		c.ExpBlockItem = DefaultExpBlockItem
	}
	if c.ExpBoostMultiplier <= 0 {
		c.ExpBoostMultiplier = DefaultExpBoostMultiplier
	}
	if c.CollusionLookback <= 0 {
		c.CollusionLookback = DefaultCollusionLookback
	}
	if c.CollusionMarker == "" {
		c.CollusionMarker = DefaultCollusionMarker
	}
	if c.MaxAlertEntries <= 0 {
		c.MaxAlertEntries = DefaultMaxAlertEntries
	}
	return c
}

// Reward is one creature's experience payout, for the post-duel summary.
type Reward struct {
	CreatureName string
	Exp          int
}

// Summary reports what Settle persisted.
type Summary struct {
	ProgressKey string
	Rewards     []Reward
}

// Settler persists duel outcomes. Settle is not idempotent: calling it twice
// for the same session pays out twice, so the orchestrator invokes it exactly
// once per decided session.
type Settler struct {
	roster   service.RosterStore
	progress service.ProgressStore
	logs     service.ActionLogSource
	notifier service.OperatorNotifier
	cfg      Config
}

func NewSettler(roster service.RosterStore, progress service.ProgressStore, logs service.ActionLogSource, notifier service.OperatorNotifier, cfg Config) *Settler {
	return &Settler{
		roster:   roster,
		progress: progress,
		logs:     logs,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
	}
}

// Settle applies every consequence of the session in order: progress merge,
// achievement counters, experience and happiness for the winner's
// participating creatures, then the collusion scan for human pairs. It must
// only be called with a non-nil winner.
func (s *Settler) Settle(ctx context.Context, session *battle.Session, winner *battle.Participant) (Summary, error) {
	summary := Summary{ProgressKey: progressKey(session.Mode)}

	if winner.Human {
		if err := s.progress.IncrementProgress(ctx, winner.ID, summary.ProgressKey, 1); err != nil {
			return summary, fmt.Errorf("failed to merge progress for winner %s: %w", winner.ID, err)
		}
	}

	if err := s.bumpAchievements(ctx, session, winner); err != nil {
		return summary, err
	}

	if winner.Human {
		rewards, err := s.payoutExperience(ctx, session, winner)
		if err != nil {
			return summary, err
		}
		summary.Rewards = rewards
	}

	if session.A.Human && session.B.Human {
		s.scanForCollusion(ctx, session)
	}

	metrics.DuelsSettledTotal.WithLabelValues(string(session.Mode)).Inc()
	return summary, nil
}

func (s *Settler) bumpAchievements(ctx context.Context, session *battle.Session, winner *battle.Participant) error {
	var humans []string
	for _, p := range []*battle.Participant{session.A, session.B} {
		if p.Human {
			humans = append(humans, p.ID)
		}
	}

	if len(humans) > 0 {
		if err := s.roster.IncrementAchievements(ctx, "duels_total", humans...); err != nil {
			return fmt.Errorf("failed to increment duel totals: %w", err)
		}
	}

	if winner.Human {
		if err := s.roster.IncrementAchievements(ctx, winCounter(session.Mode), winner.ID); err != nil {
			return fmt.Errorf("failed to increment win counter for %s: %w", winner.ID, err)
		}
	}
	return nil
}

// payoutExperience grants exp and happiness to each of the winner's
// creatures that participated. Held item and stored experience are re-read at
// payout time since both can change mid-session.
func (s *Settler) payoutExperience(ctx context.Context, session *battle.Session, winner *battle.Participant) ([]Reward, error) {
	var rewards []Reward

	for _, creature := range winner.Roster {
		if !participated(session.Mode, creature) {
			continue
		}

		state, err := s.roster.CreatureRewardState(ctx, creature.ID)
		if err != nil {
			return rewards, fmt.Errorf("failed to read reward state for creature %d: %w", creature.ID, err)
		}

		exp := s.experienceFor(creature.Level, state)
		if err := s.roster.ApplyDuelReward(ctx, creature.ID, exp); err != nil {
			return rewards, fmt.Errorf("failed to apply reward to creature %d: %w", creature.ID, err)
		}

		rewards = append(rewards, Reward{CreatureName: displayName(creature), Exp: exp})
	}

	return rewards, nil
}

// experienceFor computes one creature's payout: floor(150*level/7), boosted
// or blocked by the held item, clamped so the stored value cannot exceed the
// column's capacity.
func (s *Settler) experienceFor(level int, state service.CreatureRewardState) int {
	exp := 150 * level / 7

	switch state.HeldItem {
	case s.cfg.ExpBoostItem:
		exp = int(float64(exp) * s.cfg.ExpBoostMultiplier)
	case s.cfg.ExpBlockItem:
		exp = 0
	}

	if state.Experience > maxStoredExp-exp {
		exp = maxStoredExp - state.Experience
	}
	if exp < 0 {
		exp = 0
	}
	return exp
}

// participated reports whether a creature takes part in the payout. Single
// and NPC duels field the whole (one-slot) roster unconditionally; party
// variants require the creature to have been sent out and still standing.
func participated(mode battle.Mode, creature *battle.Creature) bool {
	if mode == battle.ModeSingle || mode == battle.ModeNPC {
		return true
	}
	return creature.EverSentOut && creature.HP > 0
}

func displayName(c *battle.Creature) string {
	if c.Nickname != "" && c.Nickname != "None" {
		return c.Nickname
	}
	return c.Name
}

func progressKey(mode battle.Mode) string {
	switch mode {
	case battle.ModeParty:
		return "duel-party-win"
	case battle.ModeInverse:
		return "duel-inverse-win"
	case battle.ModeNPC:
		return "npc-win"
	default:
		return "duel-win"
	}
}

func winCounter(mode battle.Mode) string {
	switch mode {
	case battle.ModeParty:
		return "duel_party_wins"
	case battle.ModeInverse:
		return "duel_inverse_wins"
	case battle.ModeNPC:
		return "npc_wins"
	default:
		return "duel_single_wins"
	}
}

// scanForCollusion inspects the action log symmetrically for both
// participants. A scan failure degrades to a warning so settlement itself
// never fails on it.
func (s *Settler) scanForCollusion(ctx context.Context, session *battle.Session) {
	since := session.StartedAt.Add(-s.cfg.CollusionLookback)
	pair := [2]*battle.Participant{session.A, session.B}

	for i := range pair {
		actor, other := pair[i], pair[1-i]

		entries, err := s.logs.SuspiciousEntries(ctx, actor.ID, other.ID, s.cfg.CollusionMarker, since)
		if err != nil {
			logrus.Warnf("collusion scan failed for %s vs %s: %v", actor.ID, other.ID, err)
			continue
		}
		if len(entries) == 0 {
			continue
		}

		alert := buildCollusionAlert(actor, other, entries, s.cfg.MaxAlertEntries)
		if err := s.notifier.SendAlert(ctx, alert); err != nil {
			logrus.Warnf("failed to deliver collusion alert for %s vs %s: %v", actor.ID, other.ID, err)
		}
	}
}
