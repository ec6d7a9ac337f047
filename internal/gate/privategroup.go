package gate

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/outcome"
)

// PrivateGroupGate authorizes and executes private-group operations. Access
// derives from group membership.
type PrivateGroupGate struct {
	groups   PrivateGroupStore
	messages MessageStore
	logger   *slog.Logger
}

// PrivateGroupGateConfig holds the dependencies for PrivateGroupGate.
type PrivateGroupGateConfig struct {
	Groups   PrivateGroupStore
	Messages MessageStore
	Logger   *slog.Logger
}

// NewPrivateGroupGate creates a PrivateGroupGate with the given dependencies.
func NewPrivateGroupGate(cfg PrivateGroupGateConfig) *PrivateGroupGate {
	return &PrivateGroupGate{groups: cfg.Groups, messages: cfg.Messages, logger: cfg.Logger}
}

// Get returns the group when it exists and userID is a member.
func (g *PrivateGroupGate) Get(ctx context.Context, userID, groupID int64) outcome.Outcome[domain.PrivateGroup] {
	pg, err := g.groups.Get(ctx, groupID)
	if err != nil {
		return outcome.Err[domain.PrivateGroup](groupNotFound())
	}

	ok, err := g.groups.IsMember(ctx, userID, groupID)
	if err != nil {
		return outcome.ErrFrom[domain.PrivateGroup](err)
	}
	if !ok {
		gateDenialsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", "privateGroup")))
		g.logger.DebugContext(ctx, "private group access denied",
			"user_id", userID, "group_id", groupID)
		return outcome.Err[domain.PrivateGroup](groupNotFound())
	}
	return outcome.Ok(pg)
}

// Messages returns one keyset page of the group's messages.
func (g *PrivateGroupGate) Messages(ctx context.Context, userID, groupID int64, q domain.MessageQuery) outcome.Outcome[[]domain.Message] {
	return outcome.AndThen(g.Get(ctx, userID, groupID), func(domain.PrivateGroup) outcome.Outcome[[]domain.Message] {
		msgs, err := g.messages.List(ctx, domain.SurfacePrivateGroup, groupID, clampQuery(q))
		if err != nil {
			return outcome.ErrFrom[[]domain.Message](err)
		}
		return outcome.Ok(msgs)
	})
}

// PostMessage stores a new group message authored by userID.
func (g *PrivateGroupGate) PostMessage(ctx context.Context, userID, groupID int64, msg domain.Message) outcome.Outcome[domain.Message] {
	ctx, span := tracer.Start(ctx, "gate.privategroup.post_message")
	defer span.End()

	return outcome.AndThen(g.Get(ctx, userID, groupID), func(domain.PrivateGroup) outcome.Outcome[domain.Message] {
		if o := validateMessage(msg); o.IsErr() {
			return o
		}
		msg.AuthorID = userID
		stored, err := g.messages.Insert(ctx, domain.SurfacePrivateGroup, groupID, msg)
		if err != nil {
			return outcome.ErrFrom[domain.Message](err)
		}
		return outcome.Ok(stored)
	})
}

// PutMessage edits a group message the caller authored.
func (g *PrivateGroupGate) PutMessage(ctx context.Context, userID, groupID int64, msg domain.Message) outcome.Outcome[domain.Message] {
	ctx, span := tracer.Start(ctx, "gate.privategroup.put_message")
	defer span.End()

	return outcome.AndThen(g.Get(ctx, userID, groupID), func(domain.PrivateGroup) outcome.Outcome[domain.Message] {
		if o := validateMessage(msg); o.IsErr() {
			return o
		}
		updated, err := g.messages.Update(ctx, domain.SurfacePrivateGroup, groupID, userID, msg)
		if err != nil {
			return outcome.ErrFrom[domain.Message](err)
		}
		return outcome.Ok(updated)
	})
}

// DeleteMessage removes a group message the caller authored.
func (g *PrivateGroupGate) DeleteMessage(ctx context.Context, userID, groupID int64, msg domain.Message) outcome.Outcome[domain.Message] {
	ctx, span := tracer.Start(ctx, "gate.privategroup.delete_message")
	defer span.End()

	return outcome.AndThen(g.Get(ctx, userID, groupID), func(domain.PrivateGroup) outcome.Outcome[domain.Message] {
		if err := g.messages.Delete(ctx, domain.SurfacePrivateGroup, groupID, userID, msg.ID); err != nil {
			return outcome.ErrFrom[domain.Message](err)
		}
		return outcome.Ok(msg)
	})
}

func groupNotFound() domain.Failure {
	return domain.NotFoundFailure("private group not found")
}
