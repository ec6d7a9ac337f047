package gate

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/outcome"
)

// ServerGate authorizes and executes server-surface operations.
type ServerGate struct {
	servers ServerStore
	logger  *slog.Logger
}

// ServerGateConfig holds the dependencies for ServerGate.
type ServerGateConfig struct {
	Servers ServerStore
	Logger  *slog.Logger
}

// NewServerGate creates a ServerGate with the given dependencies.
func NewServerGate(cfg ServerGateConfig) *ServerGate {
	return &ServerGate{servers: cfg.Servers, logger: cfg.Logger}
}

// Add creates a server owned by userID. The creator is subscribed in the
// same step so a follow-up Get succeeds immediately.
func (g *ServerGate) Add(ctx context.Context, userID int64, srv domain.Server) outcome.Outcome[domain.Server] {
	ctx, span := tracer.Start(ctx, "gate.server.add")
	defer span.End()
	gateOpsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "server.add")))

	if strings.TrimSpace(srv.Name) == "" {
		return outcome.Err[domain.Server](domain.ValidationFailure("server name cannot be empty"))
	}

	created, err := g.servers.Insert(ctx, srv.Name, userID)
	if err != nil {
		return outcome.ErrFrom[domain.Server](err)
	}
	return outcome.Ok(created)
}

// Get returns the server when it exists and userID subscribes to it. A
// missing server and a missing subscription are the same failure.
func (g *ServerGate) Get(ctx context.Context, userID, serverID int64) outcome.Outcome[domain.Server] {
	srv, err := g.servers.Get(ctx, serverID)
	if err != nil {
		return outcome.Err[domain.Server](serverNotFound())
	}
	if o := g.requireSubscription(ctx, userID, serverID); o.IsErr() {
		return outcome.Err[domain.Server](o.Failure())
	}
	return outcome.Ok(srv)
}

// Update writes new server info on behalf of a subscriber.
func (g *ServerGate) Update(ctx context.Context, userID int64, srv domain.Server) outcome.Outcome[domain.Server] {
	ctx, span := tracer.Start(ctx, "gate.server.update")
	defer span.End()

	if strings.TrimSpace(srv.Name) == "" {
		return outcome.Err[domain.Server](domain.ValidationFailure("server name cannot be empty"))
	}
	if o := g.requireSubscription(ctx, userID, srv.ID); o.IsErr() {
		return outcome.Err[domain.Server](o.Failure())
	}

	updated, err := g.servers.Update(ctx, srv)
	if err != nil {
		return outcome.ErrFrom[domain.Server](err)
	}
	return outcome.Ok(updated)
}

// DeleteSubscription removes a subscription from a server the caller
// subscribes to and echoes it back for broadcast.
func (g *ServerGate) DeleteSubscription(ctx context.Context, userID, serverID int64, sub domain.Subscription) outcome.Outcome[domain.Subscription] {
	ctx, span := tracer.Start(ctx, "gate.server.delete_subscription")
	defer span.End()

	if o := g.requireSubscription(ctx, userID, serverID); o.IsErr() {
		return outcome.Err[domain.Subscription](o.Failure())
	}

	if err := g.servers.DeleteSubscription(ctx, serverID, sub.ID); err != nil {
		return outcome.ErrFrom[domain.Subscription](err)
	}
	return outcome.Ok(sub)
}

// requireSubscription is the shared membership check for the server surface.
func (g *ServerGate) requireSubscription(ctx context.Context, userID, serverID int64) outcome.Outcome[struct{}] {
	ok, err := g.servers.IsSubscribed(ctx, userID, serverID)
	if err != nil {
		return outcome.ErrFrom[struct{}](err)
	}
	if !ok {
		gateDenialsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", "server")))
		g.logger.DebugContext(ctx, "server access denied",
			"user_id", userID, "server_id", serverID)
		return outcome.Err[struct{}](serverNotFound())
	}
	return outcome.Ok(struct{}{})
}

func serverNotFound() domain.Failure {
	return domain.NotFoundFailure("server not found")
}
