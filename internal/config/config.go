// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
type Config struct {
	// Server configuration
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"DuelOrchestrator"`

	// Redis configuration (shared cooldown state)
	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	// Postgres configuration (roster and account persistence)
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// MongoDB configuration (progress records and species catalog)
	MongoURI      string `env:"MONGO_URI,required"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"duel"`

	// Chat gateway configuration
	ChatGatewayBaseURL string `env:"CHAT_GATEWAY_BASE_URL,required"`
	ChatGatewayToken   string `env:"CHAT_GATEWAY_TOKEN,required"`
	OperatorChannelID  string `env:"OPERATOR_CHANNEL_ID,required"`
	AlertChannelID     string `env:"ALERT_CHANNEL_ID,required"`

	// Duel flow tunables (YAML file, optional)
	DuelConfigPath string `env:"DUEL_CONFIG_PATH" envDefault:"config/duel.yaml"`

	// Telemetry configuration
	OtelEnabled     bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OtelServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"duel-orchestrator"`
}
