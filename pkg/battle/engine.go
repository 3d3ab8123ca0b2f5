// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package battle

import (
	"context"
	"errors"
	"math/rand"
)

// ErrEngineUnavailable is returned by engines that cannot reach their
// backend right now. The executor classifies it as transient.
var ErrEngineUnavailable = errors.New("battle engine unavailable")

// Engine resolves a session to a winner. A nil winner with a nil error means
// the battle ended without a conclusive result (a draw or a forfeit on both
// sides). Engines are expected to honor ctx cancellation.
type Engine interface {
	Run(ctx context.Context, session *Session) (*Participant, error)
}

// Simulator is a self-contained engine that resolves sessions locally. Each
// round pits the current creature of each side against the other; the higher
// level wins the exchange with weighted odds, so upsets stay possible. It
// exists so the service runs complete without an external battle backend.
type Simulator struct {
	rng *rand.Rand
}

func NewSimulator(seed int64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(seed))}
}

func (s *Simulator) Run(ctx context.Context, session *Session) (*Participant, error) {
	a, b := session.A, session.B

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ca := nextStanding(a)
		cb := nextStanding(b)
		if ca == nil && cb == nil {
			return nil, nil
		}
		if ca == nil {
			return b, nil
		}
		if cb == nil {
			return a, nil
		}

		ca.EverSentOut = true
		cb.EverSentOut = true

		// Weighted coin: a creature five levels ahead wins the exchange
		// roughly 60% of the time.
		edge := float64(ca.Level-cb.Level) * 0.02
		if session.Inverse {
			edge = -edge
		}
		if s.rng.Float64() < 0.5+edge {
			cb.HP = 0
		} else {
			ca.HP = 0
		}
	}
}

func nextStanding(p *Participant) *Creature {
	for _, c := range p.Roster {
		if c.HP > 0 {
			return c
		}
	}
	return nil
}
