// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package duel orchestrates the full lifecycle of a duel command: consent,
// rate limiting, roster assembly, readiness, execution, settlement, and
// rating.
package duel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/battle"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/challenge"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/cooldown"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/rating"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/readiness"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/settlement"
)

const embedColor = 0xFFB6C1

// Request identifies one duel command invocation.
type Request struct {
	ChannelID      string
	ChallengerID   string
	ChallengerName string
	OpponentID     string
	OpponentName   string
}

// Commands wires every component of the duel flow behind the four public
// duel operations.
type Commands struct {
	settings   *Settings
	gate       *cooldown.Gate
	negotiator *challenge.Negotiator
	executor   *battle.Executor
	settler    *settlement.Settler
	ratings    *rating.Tracker
	roster     service.RosterStore
	catalog    service.CatalogStore
	messenger  service.Messenger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewCommands(
	settings *Settings,
	gate *cooldown.Gate,
	negotiator *challenge.Negotiator,
	executor *battle.Executor,
	settler *settlement.Settler,
	ratings *rating.Tracker,
	roster service.RosterStore,
	catalog service.CatalogStore,
	messenger service.Messenger,
) *Commands {
	return &Commands{
		settings:   settings,
		gate:       gate,
		negotiator: negotiator,
		executor:   executor,
		settler:    settler,
		ratings:    ratings,
		roster:     roster,
		catalog:    catalog,
		messenger:  messenger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SingleDuel runs a one-creature duel between two users.
func (c *Commands) SingleDuel(ctx context.Context, req Request) error {
	return c.humanDuel(ctx, req, battle.ModeSingle)
}

// PartyDuel runs a full-party duel between two users.
func (c *Commands) PartyDuel(ctx context.Context, req Request) error {
	return c.humanDuel(ctx, req, battle.ModeParty)
}

// InversePartyDuel runs a full-party duel with flipped type effectiveness.
func (c *Commands) InversePartyDuel(ctx context.Context, req Request) error {
	return c.humanDuel(ctx, req, battle.ModeInverse)
}

func (c *Commands) humanDuel(ctx context.Context, req Request, mode battle.Mode) error {
	caps, err := c.messenger.ChannelCapabilities(ctx, req.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to query channel capabilities: %w", err)
	}

	accepted, err := c.negotiator.Negotiate(ctx, req.ChannelID, req.ChallengerID, req.OpponentID, modeLabel(mode))
	if err != nil {
		return err
	}
	if !accepted {
		if req.ChallengerID != req.OpponentID {
			c.send(ctx, req.ChannelID, fmt.Sprintf("%s declined the duel.", req.OpponentName))
		}
		return nil
	}

	decision, err := c.gate.Authorize(ctx, req.ChallengerID, caps)
	if err != nil {
		return fmt.Errorf("failed to authorize duel: %w", err)
	}
	if !decision.Allowed {
		c.sendDenial(ctx, req.ChannelID, decision)
		return nil
	}

	challenger, opponent, abort, err := c.assembleSides(ctx, req, mode)
	if err != nil {
		return err
	}
	if abort {
		return nil
	}

	session := &battle.Session{
		ChannelID: req.ChannelID,
		A:         challenger,
		B:         opponent,
		Mode:      mode,
		Inverse:   mode == battle.ModeInverse,
		StartedAt: time.Now(),
	}

	if mode != battle.ModeSingle {
		ready, err := c.confirmReadiness(ctx, session)
		if err != nil {
			return err
		}
		if !ready {
			return nil
		}
	}

	c.sendPregame(ctx, session)
	return c.runAndSettle(ctx, session)
}

// NPCDuel runs the challenger's selected creature against a wild opponent.
func (c *Commands) NPCDuel(ctx context.Context, req Request) error {
	caps, err := c.messenger.ChannelCapabilities(ctx, req.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to query channel capabilities: %w", err)
	}

	selected, abort, err := c.selectedCreature(ctx, req.ChannelID, req.ChallengerID, "You")
	if err != nil || abort {
		return err
	}

	account, err := c.roster.TrainerAccount(ctx, req.ChallengerID)
	if err != nil {
		return fmt.Errorf("failed to read trainer account: %w", err)
	}
	if account == nil {
		c.send(ctx, req.ChannelID, "You have not started! Use the start command first.")
		return nil
	}
	if account.Energy < c.settings.NPC.EnergyCost {
		c.send(ctx, req.ChannelID, "You don't have energy left! Vote to refill your energy.")
		return nil
	}

	decision, err := c.gate.Authorize(ctx, req.ChallengerID, caps)
	if err != nil {
		return fmt.Errorf("failed to authorize duel: %w", err)
	}
	if !decision.Allowed {
		c.sendDenial(ctx, req.ChannelID, decision)
		return nil
	}

	if err := c.roster.DeductEnergy(ctx, req.ChallengerID); err != nil {
		return fmt.Errorf("failed to deduct energy: %w", err)
	}

	wild, err := c.roster.RandomWildCreature(ctx, selected.Level)
	if err != nil {
		return fmt.Errorf("failed to pick a wild opponent: %w", err)
	}
	if wild == nil {
		c.send(ctx, req.ChannelID, "No wild opponent could be found. Try again later.")
		return nil
	}

	session := &battle.Session{
		ChannelID: req.ChannelID,
		A: &battle.Participant{
			ID:     req.ChallengerID,
			Name:   req.ChallengerName,
			Human:  true,
			Roster: []*battle.Creature{toCreature(selected)},
		},
		B: &battle.Participant{
			ID:     "npc:" + wild.Name,
			Name:   "Wild " + title(wild.Name),
			Human:  false,
			Roster: []*battle.Creature{toCreature(wild)},
		},
		Mode:      battle.ModeNPC,
		StartedAt: time.Now(),
	}

	c.sendPregame(ctx, session)

	result := c.execute(ctx, session)
	if result.Kind != battle.ResultWinner {
		return nil
	}
	if result.Winner == nil {
		c.send(ctx, req.ChannelID, "The duel ended in a draw!")
		return nil
	}

	summary, err := c.settler.Settle(ctx, session, result.Winner)
	if err != nil {
		return fmt.Errorf("failed to settle duel: %w", err)
	}

	if result.Winner == session.A {
		credits := c.rollCredits(account.Inventory)
		if err := c.roster.GrantCredits(ctx, req.ChallengerID, credits); err != nil {
			return fmt.Errorf("failed to grant credits: %w", err)
		}
		c.send(ctx, req.ChannelID, fmt.Sprintf("You defeated the %s and earned %d credits!", session.B.Name, credits))
		c.sendRewardSummary(ctx, req.ChannelID, summary)
	} else {
		c.send(ctx, req.ChannelID, fmt.Sprintf("You were defeated by the %s. Better luck next time!", session.B.Name))
	}

	return nil
}

// assembleSides loads and validates both rosters. abort=true means the user
// was already told what is wrong and the flow should stop without error.
func (c *Commands) assembleSides(ctx context.Context, req Request, mode battle.Mode) (challenger, opponent *battle.Participant, abort bool, err error) {
	loader := c.partySide
	if mode == battle.ModeSingle {
		loader = c.singleSide
	}

	challenger, abort, err = loader(ctx, req.ChannelID, req.ChallengerID, req.ChallengerName)
	if err != nil || abort {
		return nil, nil, abort, err
	}
	opponent, abort, err = loader(ctx, req.ChannelID, req.OpponentID, req.OpponentName)
	if err != nil || abort {
		return nil, nil, abort, err
	}
	return challenger, opponent, false, nil
}

func (c *Commands) singleSide(ctx context.Context, channelID, userID, userName string) (*battle.Participant, bool, error) {
	selected, abort, err := c.selectedCreature(ctx, channelID, userID, userName)
	if err != nil || abort {
		return nil, abort, err
	}
	return &battle.Participant{
		ID:     userID,
		Name:   userName,
		Human:  true,
		Roster: []*battle.Creature{toCreature(selected)},
	}, false, nil
}

func (c *Commands) selectedCreature(ctx context.Context, channelID, userID, userName string) (*service.CreatureRecord, bool, error) {
	selected, err := c.roster.SelectedCreature(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load selected creature for %s: %w", userID, err)
	}
	if selected == nil {
		c.send(ctx, channelID, fmt.Sprintf("%s has no creature selected! Select one first.", userName))
		return nil, true, nil
	}
	if strings.EqualFold(selected.Name, "egg") {
		c.send(ctx, channelID, fmt.Sprintf("%s cannot duel with an egg!", userName))
		return nil, true, nil
	}
	return selected, false, nil
}

func (c *Commands) partySide(ctx context.Context, channelID, userID, userName string) (*battle.Participant, bool, error) {
	party, err := c.roster.PartyCreatures(ctx, userID)
	if errors.Is(err, service.ErrNotStarted) {
		c.send(ctx, channelID, fmt.Sprintf("%s has not started! Use the start command first.", userName))
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load party for %s: %w", userID, err)
	}
	if len(party) == 0 {
		c.send(ctx, channelID, fmt.Sprintf("%s has no creatures in their party!", userName))
		return nil, true, nil
	}

	roster := make([]*battle.Creature, 0, len(party))
	for i := range party {
		roster = append(roster, toCreature(&party[i]))
	}
	return &battle.Participant{ID: userID, Name: userName, Human: true, Roster: roster}, false, nil
}

// confirmReadiness shows the roster preview and blocks until both sides
// confirm or the readiness timeout expires. Returns false when the session
// was aborted.
func (c *Commands) confirmReadiness(ctx context.Context, session *battle.Session) (bool, error) {
	gateA := readiness.NewGate()
	gateB := readiness.NewGate()

	sides := []service.RosterPreviewSide{
		c.previewSide(ctx, session.A),
		c.previewSide(ctx, session.B),
	}

	onReady := func(userID string) {
		switch userID {
		case session.A.ID:
			gateA.Signal()
		case session.B.ID:
			gateB.Signal()
		}
	}

	stop, err := c.messenger.PresentRosterPreview(ctx, session.ChannelID, sides, onReady)
	if err != nil {
		return false, fmt.Errorf("failed to present roster preview: %w", err)
	}
	defer stop()

	waitCtx, cancel := context.WithTimeout(ctx, c.settings.Readiness.Timeout.Std())
	defer cancel()

	if err := readiness.AwaitBothReady(waitCtx, gateA, gateB); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logrus.Infof("duel in channel %s aborted: readiness timeout (%s vs %s)", session.ChannelID, session.A.ID, session.B.ID)
		c.send(ctx, session.ChannelID, "The duel was cancelled: both trainers did not confirm in time.")
		return false, nil
	}
	return true, nil
}

// previewSide enriches a participant's roster with catalog types and the
// trainer's region for the preview embed. Catalog misses degrade to a bare
// entry.
func (c *Commands) previewSide(ctx context.Context, p *battle.Participant) service.RosterPreviewSide {
	side := service.RosterPreviewSide{UserID: p.ID, UserName: p.Name}

	if region, err := c.roster.Region(ctx, p.ID); err == nil {
		side.Region = region
	}

	for _, creature := range p.Roster {
		entry := service.PreviewCreature{Name: creature.Name, Level: creature.Level}
		if info, err := c.catalog.SpeciesInfo(ctx, strings.ToLower(creature.Name)); err == nil && info != nil {
			entry.Types = info.Types
		}
		side.Creatures = append(side.Creatures, entry)
	}
	return side
}

func (c *Commands) runAndSettle(ctx context.Context, session *battle.Session) error {
	result := c.execute(ctx, session)
	if result.Kind != battle.ResultWinner {
		return nil
	}
	if result.Winner == nil {
		c.send(ctx, session.ChannelID, "The duel ended in a draw!")
		return nil
	}

	summary, err := c.settler.Settle(ctx, session, result.Winner)
	if err != nil {
		return fmt.Errorf("failed to settle duel: %w", err)
	}

	loser := session.Opponent(result.Winner)
	c.send(ctx, session.ChannelID, fmt.Sprintf("%s won the duel against %s!", result.Winner.Name, loser.Name))
	c.sendRewardSummary(ctx, session.ChannelID, summary)

	if c.settings.Rating.Enabled && c.ratings != nil && result.Winner.Human && loser.Human {
		change, err := c.ratings.Update(ctx, result.Winner.ID, loser.ID)
		if err != nil {
			logrus.Warnf("failed to update ratings for %s vs %s: %v", result.Winner.ID, loser.ID, err)
			return nil
		}
		c.send(ctx, session.ChannelID, fmt.Sprintf(
			"Rank adjustment: %s %d → %d, %s %d → %d.",
			result.Winner.Name, change.WinnerOld, change.WinnerNew,
			loser.Name, change.LoserOld, change.LoserNew,
		))
	}
	return nil
}

// execute runs the engine under the configured timeout so a hung backend
// degrades into a transient fault instead of a stuck session.
func (c *Commands) execute(ctx context.Context, session *battle.Session) battle.Result {
	runCtx, cancel := context.WithTimeout(ctx, c.settings.Battle.EngineTimeout.Std())
	defer cancel()
	return c.executor.Execute(runCtx, session)
}

func (c *Commands) sendPregame(ctx context.Context, session *battle.Session) {
	embed := service.Embed{
		Title:       fmt.Sprintf("%s duel: %s vs %s", title(modeLabel(session.Mode)), session.A.Name, session.B.Name),
		Description: "The duel has begun!",
		Color:       embedColor,
	}
	if gifs := c.settings.Battle.PregameGifs; len(gifs) > 0 {
		c.rngMu.Lock()
		embed.ImageURL = gifs[c.rng.Intn(len(gifs))]
		c.rngMu.Unlock()
	}
	if err := c.messenger.SendEmbed(ctx, session.ChannelID, embed); err != nil {
		logrus.Warnf("failed to send pregame embed: %v", err)
	}
}

func (c *Commands) sendRewardSummary(ctx context.Context, channelID string, summary settlement.Summary) {
	if len(summary.Rewards) == 0 {
		return
	}

	var b strings.Builder
	for _, reward := range summary.Rewards {
		fmt.Fprintf(&b, "%s gained %d exp!\n", reward.CreatureName, reward.Exp)
	}
	embed := service.Embed{Title: "Experience gained", Description: b.String(), Color: embedColor}
	if err := c.messenger.SendEmbed(ctx, channelID, embed); err != nil {
		logrus.Warnf("failed to send reward summary: %v", err)
	}
}

func (c *Commands) sendDenial(ctx context.Context, channelID string, decision cooldown.Decision) {
	switch decision.Reason {
	case cooldown.ReasonShortCooldown:
		c.send(ctx, channelID, fmt.Sprintf("Command on cooldown. Try again in %.0f seconds.", decision.RetryAfter.Seconds()))
	case cooldown.ReasonDailyLimit:
		c.send(ctx, channelID, "You have reached the daily duel limit. Come back after the reset!")
	case cooldown.ReasonCapability:
		// The channel cannot receive duel output; stay silent on purpose.
		logrus.Infof("duel denied in channel %s: missing channel capabilities", channelID)
	}
}

func (c *Commands) send(ctx context.Context, channelID, content string) {
	if err := c.messenger.Send(ctx, channelID, content); err != nil {
		logrus.Warnf("failed to send message to channel %s: %v", channelID, err)
	}
}

// rollCredits draws the NPC win payout: a random base amount scaled by the
// trainer's battle multiplier, which is capped so stacked inventory items
// cannot blow up the economy.
func (c *Commands) rollCredits(inventory []byte) int {
	c.rngMu.Lock()
	base := c.settings.NPC.MinCredits + c.rng.Intn(c.settings.NPC.MaxCredits-c.settings.NPC.MinCredits+1)
	c.rngMu.Unlock()

	multiplier := 1
	if len(inventory) > 0 {
		var items map[string]int
		if err := json.Unmarshal(inventory, &items); err == nil {
			if m, ok := items["battle-multiplier"]; ok && m > multiplier {
				multiplier = m
			}
		}
	}
	if multiplier > c.settings.NPC.MaxMultiplier {
		multiplier = c.settings.NPC.MaxMultiplier
	}

	return base * multiplier
}

func toCreature(record *service.CreatureRecord) *battle.Creature {
	return &battle.Creature{
		ID:       record.ID,
		Name:     record.Name,
		Nickname: record.Nickname,
		Level:    record.Level,
		HP:       record.Level*4 + 60,
	}
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func modeLabel(mode battle.Mode) string {
	switch mode {
	case battle.ModeParty:
		return "party"
	case battle.ModeInverse:
		return "inverse party"
	case battle.ModeNPC:
		return "npc"
	default:
		return "single"
	}
}
