// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
)

// DefaultPromptLifetime is how long a challenge prompt stays answerable.
const DefaultPromptLifetime = 30 * time.Second

type Config struct {
	// PromptLifetime bounds how long the target may take to answer.
	PromptLifetime time.Duration
}

func (c Config) withDefaults() Config {
	if c.PromptLifetime <= 0 {
		c.PromptLifetime = DefaultPromptLifetime
	}
	return c
}

// Negotiator obtains the opponent's consent before a duel session is
// assembled.
type Negotiator struct {
	messenger service.Messenger
	cfg       Config
}

func NewNegotiator(messenger service.Messenger, cfg Config) *Negotiator {
	return &Negotiator{
		messenger: messenger,
		cfg:       cfg.withDefaults(),
	}
}

// Negotiate asks targetID whether they accept a duel of the given label from
// challengerID. A self-challenge is rejected outright without presenting a
// prompt. A prompt that expires unanswered counts as a decline; there are no
// retries.
func (n *Negotiator) Negotiate(ctx context.Context, channelID, challengerID, targetID, label string) (bool, error) {
	if challengerID == targetID {
		if err := n.messenger.Send(ctx, channelID, "You cannot duel yourself!"); err != nil {
			return false, fmt.Errorf("failed to send self-challenge notice: %w", err)
		}
		return false, nil
	}

	prompt := fmt.Sprintf("<@%s>, you have been challenged to a %s duel by <@%s>! Do you accept?", targetID, label, challengerID)

	accepted, err := n.messenger.PromptChallenge(ctx, channelID, targetID, prompt, n.cfg.PromptLifetime)
	if err != nil {
		return false, fmt.Errorf("failed to present challenge prompt: %w", err)
	}

	if !accepted {
		logrus.Debugf("challenge from %s to %s declined or expired", challengerID, targetID)
	}
	return accepted, nil
}
