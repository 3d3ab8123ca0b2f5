// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package bootstrap builds the duel flow components from loaded settings.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/battle"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/challenge"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/cooldown"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/duel"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/rating"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/settlement"
)

// InitCooldownGate builds the shared-store cooldown gate and seeds the
// rollover watermark.
func InitCooldownGate(ctx context.Context, client *redis.Client, settings *duel.Settings) (*cooldown.Gate, error) {
	gate := cooldown.NewGate(cooldown.NewRedisStore(client), settings.CooldownConfig())
	if err := gate.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to init cooldown gate: %w", err)
	}
	logrus.Infof("cooldown gate initialized (window %v, %d per cycle)",
		settings.Cooldown.Window.Std(), settings.Cooldown.DailyLimit)
	return gate, nil
}

// InitCommands wires every duel component behind the command operations.
func InitCommands(
	settings *duel.Settings,
	gate *cooldown.Gate,
	gateway *service.ChatGatewayClient,
	roster service.RosterStore,
	logs service.ActionLogSource,
	progress service.ProgressStore,
	catalog service.CatalogStore,
) *duel.Commands {
	negotiator := challenge.NewNegotiator(gateway, settings.ChallengeConfig())

	engine := battle.NewSimulator(time.Now().UnixNano())
	executor := battle.NewExecutor(engine, gateway, gateway, settings.BattleConfig())

	settler := settlement.NewSettler(roster, progress, logs, gateway, settings.SettlementConfig())

	var tracker *rating.Tracker
	if settings.Rating.Enabled {
		tracker = rating.NewTracker(rating.NewMemoryStore(), settings.RatingConfig())
		logrus.Infof("rating tracker enabled (K=%d)", settings.Rating.KFactor)
	}

	return duel.NewCommands(settings, gate, negotiator, executor, settler, tracker, roster, catalog, gateway)
}
