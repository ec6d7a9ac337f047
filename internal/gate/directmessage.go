package gate

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/outcome"
)

// DirectMessageGate authorizes and executes direct-messaging operations.
// Access derives from being one of the thread's two participants.
type DirectMessageGate struct {
	threads  DirectMessagingStore
	messages MessageStore
	logger   *slog.Logger
}

// DirectMessageGateConfig holds the dependencies for DirectMessageGate.
type DirectMessageGateConfig struct {
	Threads  DirectMessagingStore
	Messages MessageStore
	Logger   *slog.Logger
}

// NewDirectMessageGate creates a DirectMessageGate with the given dependencies.
func NewDirectMessageGate(cfg DirectMessageGateConfig) *DirectMessageGate {
	return &DirectMessageGate{threads: cfg.Threads, messages: cfg.Messages, logger: cfg.Logger}
}

// Get returns the thread when it exists and userID is a participant.
func (g *DirectMessageGate) Get(ctx context.Context, userID, dmID int64) outcome.Outcome[domain.DirectMessaging] {
	dm, err := g.threads.Get(ctx, dmID)
	if err != nil {
		return outcome.Err[domain.DirectMessaging](dmNotFound())
	}
	if dm.FirstParticipantID != userID && dm.SecondParticipantID != userID {
		gateDenialsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", "dm")))
		g.logger.DebugContext(ctx, "direct messaging access denied",
			"user_id", userID, "dm_id", dmID)
		return outcome.Err[domain.DirectMessaging](dmNotFound())
	}
	return outcome.Ok(dm)
}

// GetOrCreate returns the thread for the unordered participant pair,
// transparently creating it when none exists. The caller must be one of the
// participants. Repeated calls for the same pair return the same thread.
func (g *DirectMessageGate) GetOrCreate(ctx context.Context, userID, firstID, secondID int64) outcome.Outcome[domain.DirectMessaging] {
	ctx, span := tracer.Start(ctx, "gate.dm.get_or_create")
	defer span.End()

	if userID != firstID && userID != secondID {
		gateDenialsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", "dm")))
		return outcome.Err[domain.DirectMessaging](dmNotFound())
	}
	if firstID == secondID {
		return outcome.Err[domain.DirectMessaging](domain.ValidationFailure("cannot open a direct messaging thread with yourself"))
	}

	lookup := func() outcome.Outcome[domain.DirectMessaging] {
		dm, err := g.threads.FindByParticipants(ctx, firstID, secondID)
		if err != nil {
			return outcome.ErrFrom[domain.DirectMessaging](err)
		}
		return outcome.Ok(dm)
	}
	create := func() outcome.Outcome[domain.DirectMessaging] {
		dm, err := g.threads.Insert(ctx, firstID, secondID)
		if err != nil {
			return outcome.ErrFrom[domain.DirectMessaging](err)
		}
		return outcome.Ok(dm)
	}

	return lookup().Or(create)
}

// Messages returns one keyset page of the thread's messages.
func (g *DirectMessageGate) Messages(ctx context.Context, userID, dmID int64, q domain.MessageQuery) outcome.Outcome[[]domain.Message] {
	return outcome.AndThen(g.Get(ctx, userID, dmID), func(domain.DirectMessaging) outcome.Outcome[[]domain.Message] {
		msgs, err := g.messages.List(ctx, domain.SurfaceDirect, dmID, clampQuery(q))
		if err != nil {
			return outcome.ErrFrom[[]domain.Message](err)
		}
		return outcome.Ok(msgs)
	})
}

// PostMessage stores a new direct message authored by userID.
func (g *DirectMessageGate) PostMessage(ctx context.Context, userID, dmID int64, msg domain.Message) outcome.Outcome[domain.Message] {
	ctx, span := tracer.Start(ctx, "gate.dm.post_message")
	defer span.End()

	return outcome.AndThen(g.Get(ctx, userID, dmID), func(domain.DirectMessaging) outcome.Outcome[domain.Message] {
		if o := validateMessage(msg); o.IsErr() {
			return o
		}
		msg.AuthorID = userID
		stored, err := g.messages.Insert(ctx, domain.SurfaceDirect, dmID, msg)
		if err != nil {
			return outcome.ErrFrom[domain.Message](err)
		}
		return outcome.Ok(stored)
	})
}

// PutMessage edits a direct message the caller authored.
func (g *DirectMessageGate) PutMessage(ctx context.Context, userID, dmID int64, msg domain.Message) outcome.Outcome[domain.Message] {
	ctx, span := tracer.Start(ctx, "gate.dm.put_message")
	defer span.End()

	return outcome.AndThen(g.Get(ctx, userID, dmID), func(domain.DirectMessaging) outcome.Outcome[domain.Message] {
		if o := validateMessage(msg); o.IsErr() {
			return o
		}
		updated, err := g.messages.Update(ctx, domain.SurfaceDirect, dmID, userID, msg)
		if err != nil {
			return outcome.ErrFrom[domain.Message](err)
		}
		return outcome.Ok(updated)
	})
}

// DeleteMessage removes a direct message the caller authored.
func (g *DirectMessageGate) DeleteMessage(ctx context.Context, userID, dmID int64, msg domain.Message) outcome.Outcome[domain.Message] {
	ctx, span := tracer.Start(ctx, "gate.dm.delete_message")
	defer span.End()

	return outcome.AndThen(g.Get(ctx, userID, dmID), func(domain.DirectMessaging) outcome.Outcome[domain.Message] {
		if err := g.messages.Delete(ctx, domain.SurfaceDirect, dmID, userID, msg.ID); err != nil {
			return outcome.ErrFrom[domain.Message](err)
		}
		return outcome.Ok(msg)
	})
}

func dmNotFound() domain.Failure {
	return domain.NotFoundFailure("direct messaging thread not found")
}
