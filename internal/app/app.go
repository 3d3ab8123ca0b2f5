// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AccelByte/extend-duel-orchestrator/internal/bootstrap"
	"github.com/AccelByte/extend-duel-orchestrator/internal/config"
	"github.com/AccelByte/extend-duel-orchestrator/internal/server"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/duel"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	grpcServer        *server.GRPCServer
	metricsServer     *server.MetricsServer
	redisClient       *redis.Client
	pgDB              *sql.DB
	mongoClient       *mongo.Client
	consumer          *duel.Consumer
	shutdownTelemetry func(context.Context) error
}

// New creates and initializes a new application instance. Components are
// initialized in dependency order: stores first, then the duel flow, then
// the servers and telemetry.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	if err := app.initRedis(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	if err := app.initPostgres(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Postgres: %w", err)
	}
	if err := app.initMongo(ctx); err != nil {
		return nil, fmt.Errorf("failed to init MongoDB: %w", err)
	}

	settings, err := duel.LoadSettings(cfg.DuelConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load duel settings from %s: %w", cfg.DuelConfigPath, err)
	}
	logrus.Infof("loaded duel settings from %s", cfg.DuelConfigPath)

	gateway := service.NewChatGatewayClient(service.ChatGatewayConfig{
		BaseURL:           cfg.ChatGatewayBaseURL,
		Token:             cfg.ChatGatewayToken,
		OperatorChannelID: cfg.OperatorChannelID,
		AlertChannelID:    cfg.AlertChannelID,
	})

	rosterStore := service.NewPostgresRosterStore(app.pgDB, service.PostgresRosterStoreConfig{})
	progressStore := service.NewMongoProgressStore(app.mongoClient.Database(cfg.MongoDatabase), service.MongoProgressStoreConfig{})

	gate, err := bootstrap.InitCooldownGate(ctx, app.redisClient, settings)
	if err != nil {
		return nil, err
	}

	commands := bootstrap.InitCommands(settings, gate, gateway, rosterStore, rosterStore, progressStore, progressStore)
	app.consumer = duel.NewConsumer(gateway, commands)
	logrus.Info("duel command consumer initialized")

	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics")
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	if cfg.OtelEnabled {
		shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.OtelServiceName, cfg.Environment, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to setup telemetry: %w", err)
		}
		app.shutdownTelemetry = shutdownTelemetry
	}

	logrus.Info("application initialized successfully")

	return app, nil
}

// initRedis initializes the Redis client holding the shared cooldown state.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisAddr(),
		Password:     a.cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	err := retryDial("Redis", func() error {
		_, err := client.Ping(ctx).Result()
		return err
	})
	if err != nil {
		return err
	}

	a.redisClient = client
	logrus.Info("Redis client initialized")
	return nil
}

// initPostgres opens the roster/account database connection pool.
func (a *App) initPostgres(ctx context.Context) error {
	db, err := sql.Open("postgres", a.cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("failed to open Postgres connection: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := retryDial("Postgres", func() error { return db.PingContext(ctx) }); err != nil {
		return err
	}

	a.pgDB = db
	logrus.Info("Postgres connection pool initialized")
	return nil
}

// initMongo connects to the progress/catalog document store.
func (a *App) initMongo(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to create MongoDB client: %w", err)
	}

	if err := retryDial("MongoDB", func() error { return client.Ping(ctx, nil) }); err != nil {
		return err
	}

	a.mongoClient = client
	logrus.Info("MongoDB client initialized")
	return nil
}

// retryDial retries a dial probe with exponential backoff.
func retryDial(name string, probe func() error) error {
	b := backoff.NewExponentialBackOff()
	maxRetries := backoff.WithMaxRetries(b, 5)

	return backoff.Retry(
		func() error {
			if err := probe(); err != nil {
				logrus.Warnf("%s connection failed: %v, retrying...", name, err)
				return err
			}
			return nil
		},
		maxRetries,
	)
}
