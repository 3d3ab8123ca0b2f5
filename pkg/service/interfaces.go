package service

import (
	"context"
	"time"
)

// Service interfaces for the external collaborators the duel flow depends on.
// The orchestrator only ever sees these interfaces; concrete adapters live in
// this package and mocks in pkg/service/mock.

// Messenger is the chat surface: plain sends, rich embeds, capability
// queries, and the two interactive controls a duel needs.
type Messenger interface {
	// Send delivers plain text to a channel.
	Send(ctx context.Context, channelID, content string) error

	// SendEmbed delivers a rich embed to a channel.
	SendEmbed(ctx context.Context, channelID string, embed Embed) error

	// ChannelCapabilities reports what the service may do in the channel.
	ChannelCapabilities(ctx context.Context, channelID string) (ChannelCapabilities, error)

	// PromptChallenge presents an accept/decline control to the target and
	// blocks until the target answers or the control's lifetime elapses.
	// A non-response is reported as a decline (false, nil).
	PromptChallenge(ctx context.Context, channelID, targetID, prompt string, lifetime time.Duration) (bool, error)

	// PresentRosterPreview shows both rosters and invokes onReady with the
	// user id of each side that acknowledges, at most once per side. The
	// returned stop function retires the control.
	PresentRosterPreview(ctx context.Context, channelID string, sides []RosterPreviewSide, onReady func(userID string)) (func(), error)
}

// OperatorNotifier delivers diagnostics and alerts to fixed operator
// destinations.
type OperatorNotifier interface {
	// NotifyOperator delivers one plain text chunk to the operator channel.
	NotifyOperator(ctx context.Context, content string) error

	// SendAlert delivers a structured alert to the alert channel.
	SendAlert(ctx context.Context, alert Alert) error
}

// CommandSource yields queued duel commands from the chat gateway.
type CommandSource interface {
	// NextCommand blocks until a command is available or ctx is done.
	NextCommand(ctx context.Context) (*CommandEvent, error)
}

// RosterStore is the relational roster/account persistence layer.
type RosterStore interface {
	// SelectedCreature returns the user's currently selected creature, or
	// nil when the user has none selected.
	SelectedCreature(ctx context.Context, userID string) (*CreatureRecord, error)

	// PartyCreatures returns the user's party in party order, with empty
	// slots and placeholder creatures removed. Returns ErrNotStarted when
	// the user has no account row.
	PartyCreatures(ctx context.Context, userID string) ([]CreatureRecord, error)

	// CreatureRewardState re-reads the held item and experience of one
	// creature.
	CreatureRewardState(ctx context.Context, creatureID int64) (CreatureRewardState, error)

	// ApplyDuelReward adds expDelta experience and one happiness point.
	ApplyDuelReward(ctx context.Context, creatureID int64, expDelta int) error

	// IncrementAchievements adds one to a named achievement counter for
	// each given user.
	IncrementAchievements(ctx context.Context, counter string, userIDs ...string) error

	// Region returns the user's region setting.
	Region(ctx context.Context, userID string) (string, error)

	// SetRegion updates the user's region setting.
	SetRegion(ctx context.Context, userID, region string) error

	// TrainerAccount returns energy and inventory for the user, or nil when
	// the user has no account row.
	TrainerAccount(ctx context.Context, userID string) (*TrainerAccount, error)

	// DeductEnergy removes one energy point from the user.
	DeductEnergy(ctx context.Context, userID string) error

	// GrantCredits adds credits to the user's balance.
	GrantCredits(ctx context.Context, userID string, amount int) error

	// RandomWildCreature picks a random catalog-complete creature within
	// ten levels of the given level, for NPC opponents.
	RandomWildCreature(ctx context.Context, level int) (*CreatureRecord, error)
}

// ActionLogSource exposes the action log scan the collusion check needs.
type ActionLogSource interface {
	// SuspiciousEntries returns log entries recorded by userID since the
	// given time whose arguments carry the marker and reference otherID.
	SuspiciousEntries(ctx context.Context, userID, otherID, marker string, since time.Time) ([]ActionLogEntry, error)
}

// ProgressStore is the document store holding per-user progress records.
type ProgressStore interface {
	// IncrementProgress merges delta into the named progress counter of the
	// user's record, creating the record if absent.
	IncrementProgress(ctx context.Context, userID, key string, delta int) error
}

// CatalogStore is the read-only reference data store.
type CatalogStore interface {
	// SpeciesInfo looks up catalog metadata for a species by name. Returns
	// nil when the species is unknown.
	SpeciesInfo(ctx context.Context, name string) (*SpeciesInfo, error)
}
