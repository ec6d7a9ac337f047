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

// UserGate authorizes and executes user and invitation operations.
type UserGate struct {
	users       UserStore
	servers     ServerStore
	invitations InvitationStore
	logger      *slog.Logger
}

// UserGateConfig holds the dependencies for UserGate.
type UserGateConfig struct {
	Users       UserStore
	Servers     ServerStore
	Invitations InvitationStore
	Logger      *slog.Logger
}

// NewUserGate creates a UserGate with the given dependencies.
func NewUserGate(cfg UserGateConfig) *UserGate {
	return &UserGate{
		users:       cfg.Users,
		servers:     cfg.Servers,
		invitations: cfg.Invitations,
		logger:      cfg.Logger,
	}
}

// UpdateMyInfo updates the caller's own profile. The id on the input record
// is ignored - a connection can only ever update itself.
func (g *UserGate) UpdateMyInfo(ctx context.Context, userID int64, u domain.User) outcome.Outcome[domain.User] {
	ctx, span := tracer.Start(ctx, "gate.user.update_my_info")
	defer span.End()

	if strings.TrimSpace(u.UserName) == "" {
		return outcome.Err[domain.User](domain.ValidationFailure("username cannot be empty"))
	}

	u.ID = userID
	updated, err := g.users.Update(ctx, u)
	if err != nil {
		return outcome.ErrFrom[domain.User](err)
	}
	return outcome.Ok(updated)
}

// Invitations returns the caller's pending invitations.
func (g *UserGate) Invitations(ctx context.Context, userID int64) outcome.Outcome[[]domain.Invitation] {
	invs, err := g.invitations.ListForUser(ctx, userID)
	if err != nil {
		return outcome.ErrFrom[[]domain.Invitation](err)
	}
	return outcome.Ok(invs)
}

// SendInvitation invites the named user to a server the caller subscribes
// to. Duplicate pending invitations and already-subscribed targets are
// rejected as already-exists.
func (g *UserGate) SendInvitation(ctx context.Context, userID, serverID int64, userName string) outcome.Outcome[domain.Invitation] {
	ctx, span := tracer.Start(ctx, "gate.user.send_invitation")
	defer span.End()
	gateOpsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "user.send_invitation")))

	srv, err := g.servers.Get(ctx, serverID)
	if err != nil {
		return outcome.Err[domain.Invitation](serverNotFound())
	}
	ok, err := g.servers.IsSubscribed(ctx, userID, serverID)
	if err != nil {
		return outcome.ErrFrom[domain.Invitation](err)
	}
	if !ok {
		gateDenialsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", "server")))
		return outcome.Err[domain.Invitation](serverNotFound())
	}

	target, err := g.users.FindByUserName(ctx, userName)
	if err != nil {
		return outcome.Err[domain.Invitation](domain.NotFoundFailure("user not found"))
	}

	subscribed, err := g.servers.IsSubscribed(ctx, target.ID, serverID)
	if err != nil {
		return outcome.ErrFrom[domain.Invitation](err)
	}
	if subscribed {
		return outcome.Err[domain.Invitation](domain.AlreadyExistsFailure("user already subscribes to this server"))
	}
	pending, err := g.invitations.HasPending(ctx, serverID, target.ID)
	if err != nil {
		return outcome.ErrFrom[domain.Invitation](err)
	}
	if pending {
		return outcome.Err[domain.Invitation](domain.AlreadyExistsFailure("invitation already pending"))
	}

	created, err := g.invitations.Insert(ctx, domain.Invitation{
		ServerID:   serverID,
		ServerName: srv.Name,
		SenderID:   userID,
		ReceiverID: target.ID,
	})
	if err != nil {
		return outcome.ErrFrom[domain.Invitation](err)
	}
	return outcome.Ok(created)
}

// UpdateInvitation records the caller's accept/decline decision on an
// invitation addressed to them. Accepting creates the subscription.
func (g *UserGate) UpdateInvitation(ctx context.Context, userID int64, cmd domain.UpdateInvitation) outcome.Outcome[domain.Invitation] {
	ctx, span := tracer.Start(ctx, "gate.user.update_invitation")
	defer span.End()

	inv, err := g.invitations.Get(ctx, cmd.ID)
	if err != nil {
		return outcome.Err[domain.Invitation](invitationNotFound())
	}
	if inv.ReceiverID != userID {
		gateDenialsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", "invitation")))
		g.logger.DebugContext(ctx, "invitation access denied",
			"user_id", userID, "invitation_id", cmd.ID)
		return outcome.Err[domain.Invitation](invitationNotFound())
	}

	resolved, err := g.invitations.Resolve(ctx, cmd.ID, cmd.Accepted)
	if err != nil {
		return outcome.ErrFrom[domain.Invitation](err)
	}

	if cmd.Accepted {
		if _, err := g.servers.InsertSubscription(ctx, userID, inv.ServerID); err != nil {
			return outcome.ErrFrom[domain.Invitation](err)
		}
	}
	return outcome.Ok(resolved)
}

func invitationNotFound() domain.Failure {
	return domain.NotFoundFailure("invitation not found")
}
