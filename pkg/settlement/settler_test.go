// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package settlement

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/battle"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service/mock"
)

func newTestSettler(roster *mock.RosterStore, progress *mock.ProgressStore, notifier *mock.Notifier) *Settler {
	return NewSettler(roster, progress, roster, notifier, Config{})
}

func humanSession(mode battle.Mode) *battle.Session {
	return &battle.Session{
		ChannelID: "chan-1",
		A: &battle.Participant{ID: "user-1", Name: "Ash", Human: true, Roster: []*battle.Creature{
			{ID: 11, Name: "sparky", Level: 35, HP: 80, EverSentOut: true},
			{ID: 12, Name: "shelly", Level: 21, HP: 0, EverSentOut: true},
			{ID: 13, Name: "benched", Level: 50, HP: 100, EverSentOut: false},
		}},
		B: &battle.Participant{ID: "user-2", Name: "Gary", Human: true, Roster: []*battle.Creature{
			{ID: 21, Name: "rocky", Level: 30, HP: 0, EverSentOut: true},
		}},
		Mode:      mode,
		StartedAt: time.Now(),
	}
}

func TestSettle_SingleDuel(t *testing.T) {
	roster := mock.NewRosterStore()
	progress := mock.NewProgressStore()
	notifier := mock.NewNotifier()
	settler := newTestSettler(roster, progress, notifier)

	session := humanSession(battle.ModeSingle)
	session.A.Roster = session.A.Roster[:1]

	summary, err := settler.Settle(context.Background(), session, session.A)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	// Progress merged under the single-duel key.
	if len(progress.ProgressCalls) != 1 {
		t.Fatalf("progress calls = %d, expected 1", len(progress.ProgressCalls))
	}
	call := progress.ProgressCalls[0]
	if call.UserID != "user-1" || call.Key != "duel-win" || call.Delta != 1 {
		t.Errorf("progress call = %+v, expected user-1/duel-win/1", call)
	}

	// Totals for both, win counter for the winner only.
	if len(roster.AchievementCalls) != 2 {
		t.Fatalf("achievement calls = %d, expected 2", len(roster.AchievementCalls))
	}
	totals := roster.AchievementCalls[0]
	if totals.Counter != "duels_total" || len(totals.UserIDs) != 2 {
		t.Errorf("first achievement call = %+v, expected duels_total for both", totals)
	}
	wins := roster.AchievementCalls[1]
	if wins.Counter != "duel_single_wins" || len(wins.UserIDs) != 1 || wins.UserIDs[0] != "user-1" {
		t.Errorf("second achievement call = %+v, expected duel_single_wins for user-1", wins)
	}

	// Single mode pays the whole roster: floor(150*35/7) = 750.
	if len(roster.RewardCalls) != 1 {
		t.Fatalf("reward calls = %d, expected 1", len(roster.RewardCalls))
	}
	if roster.RewardCalls[0].CreatureID != 11 || roster.RewardCalls[0].ExpDelta != 750 {
		t.Errorf("reward call = %+v, expected creature 11 with 750 exp", roster.RewardCalls[0])
	}
	if len(summary.Rewards) != 1 || summary.Rewards[0].Exp != 750 {
		t.Errorf("summary rewards = %+v, expected sparky with 750", summary.Rewards)
	}
}

func TestSettle_PartyParticipationFilter(t *testing.T) {
	roster := mock.NewRosterStore()
	settler := newTestSettler(roster, mock.NewProgressStore(), mock.NewNotifier())

	session := humanSession(battle.ModeParty)

	_, err := settler.Settle(context.Background(), session, session.A)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	// Only the sent-out, still-standing creature is paid: not the fainted
	// one, not the benched one.
	if len(roster.RewardCalls) != 1 {
		t.Fatalf("reward calls = %d, expected 1", len(roster.RewardCalls))
	}
	if roster.RewardCalls[0].CreatureID != 11 {
		t.Errorf("rewarded creature = %d, expected 11", roster.RewardCalls[0].CreatureID)
	}

	// The mode-specific counters are used.
	if roster.AchievementCalls[1].Counter != "duel_party_wins" {
		t.Errorf("win counter = %s, expected duel_party_wins", roster.AchievementCalls[1].Counter)
	}
}

func TestExperienceFor_HeldItems(t *testing.T) {
	settler := newTestSettler(mock.NewRosterStore(), mock.NewProgressStore(), mock.NewNotifier())

	base := settler.experienceFor(35, service.CreatureRewardState{})
	if base != 750 {
		t.Errorf("base exp = %d, expected 750", base)
	}

	// floor(150*33/7) = 707 (integer division truncates).
	if got := settler.experienceFor(33, service.CreatureRewardState{}); got != 707 {
		t.Errorf("exp at level 33 = %d, expected 707", got)
	}

	boosted := settler.experienceFor(35, service.CreatureRewardState{HeldItem: DefaultExpBoostItem})
	if boosted != 1875 {
		t.Errorf("boosted exp = %d, expected 1875 (750 * 2.5)", boosted)
	}

	blocked := settler.experienceFor(35, service.CreatureRewardState{HeldItem: DefaultExpBlockItem})
	if blocked != 0 {
		t.Errorf("blocked exp = %d, expected 0", blocked)
	}
}

func TestExperienceFor_ClampAtColumnCapacity(t *testing.T) {
	settler := newTestSettler(mock.NewRosterStore(), mock.NewProgressStore(), mock.NewNotifier())

	got := settler.experienceFor(35, service.CreatureRewardState{Experience: math.MaxInt32 - 100})
	if got != 100 {
		t.Errorf("clamped exp = %d, expected 100", got)
	}

	full := settler.experienceFor(35, service.CreatureRewardState{Experience: math.MaxInt32})
	if full != 0 {
		t.Errorf("exp at capacity = %d, expected 0", full)
	}
}

func TestSettle_NPCWinner(t *testing.T) {
	roster := mock.NewRosterStore()
	progress := mock.NewProgressStore()
	settler := newTestSettler(roster, progress, mock.NewNotifier())

	session := &battle.Session{
		ChannelID: "chan-1",
		A: &battle.Participant{ID: "user-1", Name: "Ash", Human: true, Roster: []*battle.Creature{
			{ID: 11, Name: "sparky", Level: 14, HP: 0, EverSentOut: true},
		}},
		B: &battle.Participant{ID: "npc", Name: "Wild rocky", Human: false, Roster: []*battle.Creature{
			{ID: 0, Name: "rocky", Level: 15, HP: 40, EverSentOut: true},
		}},
		Mode:      battle.ModeNPC,
		StartedAt: time.Now(),
	}

	_, err := settler.Settle(context.Background(), session, session.B)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	// An AI winner gets no progress merge, no win counter, no payout.
	if len(progress.ProgressCalls) != 0 {
		t.Errorf("progress merged for an AI winner: %+v", progress.ProgressCalls)
	}
	if len(roster.RewardCalls) != 0 {
		t.Errorf("rewards paid to an AI winner: %+v", roster.RewardCalls)
	}

	// Only the human's duel total moves.
	if len(roster.AchievementCalls) != 1 {
		t.Fatalf("achievement calls = %d, expected 1", len(roster.AchievementCalls))
	}
	totals := roster.AchievementCalls[0]
	if totals.Counter != "duels_total" || len(totals.UserIDs) != 1 || totals.UserIDs[0] != "user-1" {
		t.Errorf("achievement call = %+v, expected duels_total for user-1 only", totals)
	}

	// No collusion scan against an AI opponent.
	if len(roster.LogScans) != 0 {
		t.Errorf("collusion scan ran against an AI opponent: %+v", roster.LogScans)
	}
}

func TestSettle_CollusionScanIsSymmetric(t *testing.T) {
	roster := mock.NewRosterStore()
	notifier := mock.NewNotifier()
	settler := newTestSettler(roster, mock.NewProgressStore(), notifier)

	entry := service.ActionLogEntry{Time: time.Now(), Args: "give mock user-1"}
	roster.LogEntries["user-2|user-1"] = []service.ActionLogEntry{entry}

	session := humanSession(battle.ModeSingle)
	session.A.Roster = session.A.Roster[:1]

	_, err := settler.Settle(context.Background(), session, session.A)
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	// Both directions scanned with the same window and marker.
	if len(roster.LogScans) != 2 {
		t.Fatalf("log scans = %d, expected 2", len(roster.LogScans))
	}
	first, second := roster.LogScans[0], roster.LogScans[1]
	if first.UserID != "user-1" || first.OtherID != "user-2" {
		t.Errorf("first scan = %+v, expected user-1 vs user-2", first)
	}
	if second.UserID != "user-2" || second.OtherID != "user-1" {
		t.Errorf("second scan = %+v, expected user-2 vs user-1", second)
	}
	if first.Marker != DefaultCollusionMarker {
		t.Errorf("marker = %s, expected %s", first.Marker, DefaultCollusionMarker)
	}
	if since := session.StartedAt.Add(-DefaultCollusionLookback); !first.Since.Equal(since) {
		t.Errorf("scan window starts at %v, expected %v", first.Since, since)
	}

	// One alert, for the direction that had entries, naming both sides.
	if len(notifier.Alerts) != 1 {
		t.Fatalf("alerts = %d, expected 1", len(notifier.Alerts))
	}
	desc := notifier.Alerts[0].Description
	if !strings.Contains(desc, "user-1") || !strings.Contains(desc, "user-2") {
		t.Errorf("alert does not name both participants: %s", desc)
	}
	if !strings.Contains(desc, "give mock user-1") {
		t.Errorf("alert does not list the entry: %s", desc)
	}
}

func TestBuildCollusionAlert_CapsListedEntries(t *testing.T) {
	actor := &battle.Participant{ID: "user-1", Name: "Ash"}
	other := &battle.Participant{ID: "user-2", Name: "Gary"}

	entries := make([]service.ActionLogEntry, 14)
	for i := range entries {
		entries[i] = service.ActionLogEntry{Time: time.Now(), Args: "mock trade"}
	}

	alert := buildCollusionAlert(actor, other, entries, DefaultMaxAlertEntries)

	if listed := strings.Count(alert.Description, "\n- "); listed != DefaultMaxAlertEntries {
		t.Errorf("listed entries = %d, expected %d", listed, DefaultMaxAlertEntries)
	}
	if !strings.Contains(alert.Description, "(+4 more omitted)") {
		t.Errorf("alert lacks the omitted count: %s", alert.Description)
	}
	if !strings.Contains(alert.Description, "14 suspicious") {
		t.Errorf("alert lacks the total count: %s", alert.Description)
	}
}
