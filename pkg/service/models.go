package service

import "time"

// Data structures exchanged with external collaborators.

// CreatureRecord is one row from the creatures table. Read at session setup;
// the in-memory copy is never written back except through ApplyDuelReward.
type CreatureRecord struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	Nickname   string `db:"nickname"`
	Level      int    `db:"level"`
	HeldItem   string `db:"held_item"`
	Experience int    `db:"experience"`
	Happiness  int    `db:"happiness"`
}

// CreatureRewardState is the re-read slice of a creature used during
// settlement. Held item and experience are fetched fresh because both can
// change while a session is running.
type CreatureRewardState struct {
	HeldItem   string `db:"held_item"`
	Experience int    `db:"experience"`
}

// TrainerAccount holds the account fields the NPC duel path needs.
type TrainerAccount struct {
	Energy    int    `db:"energy"`
	Inventory []byte `db:"inventory"` // raw JSON object
}

// ActionLogEntry is one row from the action log, used by the collusion scan.
type ActionLogEntry struct {
	Time  time.Time `db:"time"`
	Epoch int64     `db:"epoch"`
	Args  string    `db:"args"`
}

// ChannelCapabilities reports what the messaging surface allows the service
// to do in a channel.
type ChannelCapabilities struct {
	SendMessages bool `json:"sendMessages"`
	EmbedLinks   bool `json:"embedLinks"`
	AttachFiles  bool `json:"attachFiles"`
}

// Basic returns true when all capabilities a duel needs are present.
func (c ChannelCapabilities) Basic() bool {
	return c.SendMessages && c.EmbedLinks && c.AttachFiles
}

// Embed is a rich message for the chat surface.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Color       int    `json:"color,omitempty"`
}

// Alert is an operator-facing notification.
type Alert struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color,omitempty"`
}

// PreviewCreature is one roster entry shown on the pre-battle preview.
type PreviewCreature struct {
	Name  string   `json:"name"`
	Level int      `json:"level"`
	Types []string `json:"types,omitempty"`
}

// RosterPreviewSide is one participant's side of the roster preview.
type RosterPreviewSide struct {
	UserID    string            `json:"userId"`
	UserName  string            `json:"userName"`
	Region    string            `json:"region,omitempty"`
	Creatures []PreviewCreature `json:"creatures"`
}

// SpeciesInfo is the read-only catalog document for one species.
type SpeciesInfo struct {
	Name      string   `bson:"identifier"`
	Types     []string `bson:"types"`
	Abilities []string `bson:"abilities,omitempty"`
	EggGroups []string `bson:"egg_groups,omitempty"`
}

// CommandEvent is one queued duel command delivered by the chat gateway.
type CommandEvent struct {
	Name         string `json:"name"`
	ChannelID    string `json:"channelId"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	OpponentID   string `json:"opponentId,omitempty"`
	OpponentName string `json:"opponentName,omitempty"`
}
