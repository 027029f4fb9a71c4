package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds everything the server reads from the environment. Redis and
// Kafka are optional: leaving their addresses empty disables the presence
// mirror and the message firehose.
type Config struct {
	Addr         string        `env:"ADDR,default=:8080"`
	DatabasePath string        `env:"DB_PATH,default=dmrelay.db"`
	JWTSecret    string        `env:"JWT_SECRET,default=dev_secret_change_this"`
	TokenTTL     time.Duration `env:"TOKEN_TTL,default=24h"`

	// StoreDriver selects the message store backend: sqlite or scylla.
	// Account records always live in sqlite.
	StoreDriver    string   `env:"STORE_DRIVER,default=sqlite"`
	ScyllaHosts    []string `env:"SCYLLA_HOSTS,default=localhost:9042"`
	ScyllaKeyspace string   `env:"SCYLLA_KEYSPACE,default=chat"`
	ScyllaNodeID   int64    `env:"SCYLLA_NODE_ID,default=1"`

	RedisAddr    string   `env:"REDIS_ADDR"`
	KafkaBrokers []string `env:"KAFKA_BROKERS"`
	KafkaTopic   string   `env:"KAFKA_TOPIC,default=chat-messages"`
}

func Load(ctx context.Context) (Config, error) {
	config := Config{}
	if err := envconfig.Process(ctx, &config); err != nil {
		return Config{}, fmt.Errorf("parsing env vars: %w", err)
	}
	if config.StoreDriver != "sqlite" && config.StoreDriver != "scylla" {
		return Config{}, fmt.Errorf("unknown store driver %q", config.StoreDriver)
	}
	return config, nil
}
