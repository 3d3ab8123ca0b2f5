// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package battle

import "time"

// Mode identifies the duel variant a session runs under.
type Mode string

const (
	ModeSingle  Mode = "single"
	ModeParty   Mode = "party"
	ModeInverse Mode = "inverse"
	ModeNPC     Mode = "npc"
)

// Creature is one roster slot inside a session. HP and EverSentOut are
// mutated by the engine as the battle progresses; settlement later uses them
// to decide which creatures participated.
type Creature struct {
	ID          int64
	Name        string
	Nickname    string
	Level       int
	HP          int
	EverSentOut bool
}

// Participant is one side of a session. Human is false for wild or scripted
// opponents, which are excluded from persistence-side settlement.
type Participant struct {
	ID     string
	Name   string
	Human  bool
	Roster []*Creature
}

// Session is the in-memory state of one duel from engine start to
// settlement. Inverse marks the variant where type effectiveness is flipped.
type Session struct {
	ChannelID string
	A         *Participant
	B         *Participant
	Mode      Mode
	Inverse   bool
	StartedAt time.Time
}

// Opponent returns the participant facing p, or nil if p is not part of the
// session.
func (s *Session) Opponent(p *Participant) *Participant {
	switch p {
	case s.A:
		return s.B
	case s.B:
		return s.A
	default:
		return nil
	}
}
