// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package duel

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/common"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
)

// Consumer pulls queued duel commands from the chat gateway and dispatches
// each to the matching operation on its own goroutine, so one slow duel
// never blocks the queue.
type Consumer struct {
	source   service.CommandSource
	commands *Commands
}

func NewConsumer(source service.CommandSource, commands *Commands) *Consumer {
	return &Consumer{source: source, commands: commands}
}

// Run consumes commands until ctx is done. In-flight duels are waited for
// before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		event, err := c.source.NextCommand(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		if err != nil {
			logrus.Errorf("failed to fetch next command: %v", err)
			continue
		}

		wg.Add(1)
		go func(event *service.CommandEvent) {
			defer wg.Done()
			c.dispatch(ctx, event)
		}(event)
	}
}

func (c *Consumer) dispatch(ctx context.Context, event *service.CommandEvent) {
	scope := common.NewScope(ctx, "duel."+event.Name)
	defer scope.Finish()

	req := Request{
		ChannelID:      event.ChannelID,
		ChallengerID:   event.UserID,
		ChallengerName: event.UserName,
		OpponentID:     event.OpponentID,
		OpponentName:   event.OpponentName,
	}

	var err error
	switch event.Name {
	case "duel", "single":
		err = c.commands.SingleDuel(scope.Ctx, req)
	case "party":
		err = c.commands.PartyDuel(scope.Ctx, req)
	case "inverse":
		err = c.commands.InversePartyDuel(scope.Ctx, req)
	case "npc":
		err = c.commands.NPCDuel(scope.Ctx, req)
	default:
		scope.Log.Warnf("unknown command %q from user %s, dropping", event.Name, event.UserID)
		return
	}

	if err != nil {
		scope.TraceError(err)
		scope.Log.Errorf("command %s for user %s failed: %v", event.Name, event.UserID, err)
	}
}
