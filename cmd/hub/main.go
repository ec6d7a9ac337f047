// Package main is the entrypoint for the hub service: the real-time
// dispatch and broadcast layer speaking the WebSocket frame protocol.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/parlorchat/parlor/internal/auth"
	"github.com/parlorchat/parlor/internal/config"
	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/gate"
	"github.com/parlorchat/parlor/internal/hub"
	redisclient "github.com/parlorchat/parlor/internal/redis"
	"github.com/parlorchat/parlor/internal/server"
	"github.com/parlorchat/parlor/internal/store/postgres"
	storeredis "github.com/parlorchat/parlor/internal/store/redis"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:           "hub",
		PortFromConfig: func(cfg *config.Config) int { return cfg.Hub.HTTPPort },
		Mount:          mount,
	}, nil)
}

// mount wires the store adapters, gates, registry and router, and
// registers the WebSocket endpoint.
func mount(ctx context.Context, cfg *config.Config, logger *slog.Logger, mux *http.ServeMux) (func(), error) {
	store, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	rdb := redisclient.NewClient(redisclient.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})

	registry := hub.NewRegistry(logger)
	router := hub.NewRouter(hub.RouterConfig{
		Registry: registry,
		Servers: gate.NewServerGate(gate.ServerGateConfig{
			Servers: store.Servers(),
			Logger:  logger,
		}),
		Channels: gate.NewChannelGate(gate.ChannelGateConfig{
			Channels: store.Channels(),
			Servers:  store.Servers(),
			Messages: store.Messages(),
			Logger:   logger,
		}),
		PrivateGroups: gate.NewPrivateGroupGate(gate.PrivateGroupGateConfig{
			Groups:   store.PrivateGroups(),
			Messages: store.Messages(),
			Logger:   logger,
		}),
		DirectThreads: gate.NewDirectMessageGate(gate.DirectMessageGateConfig{
			Threads:  store.DirectThreads(),
			Messages: store.Messages(),
			Logger:   logger,
		}),
		Users: gate.NewUserGate(gate.UserGateConfig{
			Users:       store.Users(),
			Servers:     store.Servers(),
			Invitations: store.Invitations(),
			Logger:      logger,
		}),
		Logger: logger,
	})

	handler := hub.NewHandler(hub.HandlerConfig{
		Validator: auth.NewValidator(auth.ValidatorConfig{
			Secret:   []byte(cfg.JWT.Secret),
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
			Clock:    domain.RealClock{},
		}),
		Limiter: storeredis.NewConnectLimiter(storeredis.ConnectLimiterConfig{
			Cmd: rdb.RDB,
		}),
		Router: router,
		Logger: logger,
	})
	mux.Handle("/ws", handler)

	cleanup := func() {
		store.Close()
		if err := rdb.Close(); err != nil {
			logger.Warn("close redis client", slog.String("error", err.Error()))
		}
	}
	return cleanup, nil
}
