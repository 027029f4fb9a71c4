package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/ridwanf/dmrelay/pkg/auth"
	"github.com/ridwanf/dmrelay/pkg/config"
	"github.com/ridwanf/dmrelay/pkg/delivery"
	"github.com/ridwanf/dmrelay/pkg/events"
	"github.com/ridwanf/dmrelay/pkg/presence"
	"github.com/ridwanf/dmrelay/pkg/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load(context.Background())
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}

	// Accounts always live in sqlite; the message store backend is
	// configurable.
	sqlite, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		logger.Error("opening sqlite", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer sqlite.Close()

	var messages store.MessageStore = sqlite
	if cfg.StoreDriver == "scylla" {
		scylla, err := store.OpenScylla(cfg.ScyllaHosts, cfg.ScyllaKeyspace, cfg.ScyllaNodeID)
		if err != nil {
			logger.Error("opening scylla", "hosts", cfg.ScyllaHosts, "error", err)
			os.Exit(1)
		}
		defer scylla.Close()
		messages = scylla
	}

	registry := presence.NewRegistry()

	var mirror *presence.Mirror
	if cfg.RedisAddr != "" {
		mirror = presence.NewMirror(cfg.RedisAddr, logger)
		defer mirror.Close()
	}

	var publisher delivery.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	router := delivery.NewRouter(messages, registry, publisher, logger)

	a := &api{
		users:    sqlite,
		messages: messages,
		issuer:   issuer,
		registry: registry,
		mirror:   mirror,
		logger:   logger,
	}
	ws := &wsHandler{
		issuer:   issuer,
		registry: registry,
		mirror:   mirror,
		router:   router,
		logger:   logger,
	}

	e := newEcho(a, ws)

	logger.Info("server listening", "addr", cfg.Addr, "store", cfg.StoreDriver)
	if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
