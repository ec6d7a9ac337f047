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

// ChannelGate authorizes and executes channel-surface operations. Channel
// access derives from subscription to the channel's server.
type ChannelGate struct {
	channels ChannelStore
	servers  ServerStore
	messages MessageStore
	logger   *slog.Logger
}

// ChannelGateConfig holds the dependencies for ChannelGate.
type ChannelGateConfig struct {
	Channels ChannelStore
	Servers  ServerStore
	Messages MessageStore
	Logger   *slog.Logger
}

// NewChannelGate creates a ChannelGate with the given dependencies.
func NewChannelGate(cfg ChannelGateConfig) *ChannelGate {
	return &ChannelGate{
		channels: cfg.Channels,
		servers:  cfg.Servers,
		messages: cfg.Messages,
		logger:   cfg.Logger,
	}
}

// Get returns the channel when it exists and userID subscribes to its
// server; existence and authorization failures are indistinguishable.
func (g *ChannelGate) Get(ctx context.Context, userID, channelID int64) outcome.Outcome[domain.Channel] {
	ch, err := g.channels.Get(ctx, channelID)
	if err != nil {
		return outcome.Err[domain.Channel](channelNotFound())
	}

	ok, err := g.servers.IsSubscribed(ctx, userID, ch.ServerID)
	if err != nil {
		return outcome.ErrFrom[domain.Channel](err)
	}
	if !ok {
		gateDenialsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", "channel")))
		g.logger.DebugContext(ctx, "channel access denied",
			"user_id", userID, "channel_id", channelID)
		return outcome.Err[domain.Channel](channelNotFound())
	}
	return outcome.Ok(ch)
}

// Post creates a channel on a server the caller subscribes to.
func (g *ChannelGate) Post(ctx context.Context, userID, serverID int64, ch domain.Channel) outcome.Outcome[domain.Channel] {
	ctx, span := tracer.Start(ctx, "gate.channel.post")
	defer span.End()

	if strings.TrimSpace(ch.Name) == "" {
		return outcome.Err[domain.Channel](domain.ValidationFailure("channel name cannot be empty"))
	}
	if o := g.requireServer(ctx, userID, serverID); o.IsErr() {
		return outcome.Err[domain.Channel](o.Failure())
	}

	ch.ServerID = serverID
	created, err := g.channels.Insert(ctx, ch)
	if err != nil {
		return outcome.ErrFrom[domain.Channel](err)
	}
	return outcome.Ok(created)
}

// Put updates a channel on a server the caller subscribes to.
func (g *ChannelGate) Put(ctx context.Context, userID, serverID int64, ch domain.Channel) outcome.Outcome[domain.Channel] {
	ctx, span := tracer.Start(ctx, "gate.channel.put")
	defer span.End()

	if strings.TrimSpace(ch.Name) == "" {
		return outcome.Err[domain.Channel](domain.ValidationFailure("channel name cannot be empty"))
	}
	if o := g.requireServer(ctx, userID, serverID); o.IsErr() {
		return outcome.Err[domain.Channel](o.Failure())
	}

	ch.ServerID = serverID
	updated, err := g.channels.Update(ctx, ch)
	if err != nil {
		return outcome.ErrFrom[domain.Channel](err)
	}
	return outcome.Ok(updated)
}

// Delete removes a channel and echoes its id for broadcast.
func (g *ChannelGate) Delete(ctx context.Context, userID, serverID, channelID int64) outcome.Outcome[int64] {
	ctx, span := tracer.Start(ctx, "gate.channel.delete")
	defer span.End()

	if o := g.requireServer(ctx, userID, serverID); o.IsErr() {
		return outcome.Err[int64](o.Failure())
	}

	if err := g.channels.Delete(ctx, channelID); err != nil {
		return outcome.ErrFrom[int64](err)
	}
	return outcome.Ok(channelID)
}

// Messages returns one keyset page of channel messages, newest page when no
// bound is given, ascending by id, at most domain.MessagePageSize entries.
func (g *ChannelGate) Messages(ctx context.Context, userID, channelID int64, q domain.MessageQuery) outcome.Outcome[[]domain.Message] {
	return outcome.AndThen(g.Get(ctx, userID, channelID), func(domain.Channel) outcome.Outcome[[]domain.Message] {
		msgs, err := g.messages.List(ctx, domain.SurfaceChannel, channelID, clampQuery(q))
		if err != nil {
			return outcome.ErrFrom[[]domain.Message](err)
		}
		return outcome.Ok(msgs)
	})
}

// PostMessage stores a new message authored by userID.
func (g *ChannelGate) PostMessage(ctx context.Context, userID, channelID int64, msg domain.Message) outcome.Outcome[domain.Message] {
	ctx, span := tracer.Start(ctx, "gate.channel.post_message")
	defer span.End()

	return outcome.AndThen(g.Get(ctx, userID, channelID), func(domain.Channel) outcome.Outcome[domain.Message] {
		if o := validateMessage(msg); o.IsErr() {
			return o
		}
		msg.AuthorID = userID
		stored, err := g.messages.Insert(ctx, domain.SurfaceChannel, channelID, msg)
		if err != nil {
			return outcome.ErrFrom[domain.Message](err)
		}
		return outcome.Ok(stored)
	})
}

// PutMessage edits a message the caller authored.
func (g *ChannelGate) PutMessage(ctx context.Context, userID, channelID int64, msg domain.Message) outcome.Outcome[domain.Message] {
	ctx, span := tracer.Start(ctx, "gate.channel.put_message")
	defer span.End()

	return outcome.AndThen(g.Get(ctx, userID, channelID), func(domain.Channel) outcome.Outcome[domain.Message] {
		if o := validateMessage(msg); o.IsErr() {
			return o
		}
		updated, err := g.messages.Update(ctx, domain.SurfaceChannel, channelID, userID, msg)
		if err != nil {
			return outcome.ErrFrom[domain.Message](err)
		}
		return outcome.Ok(updated)
	})
}

// DeleteMessage removes a message the caller authored and echoes it back.
func (g *ChannelGate) DeleteMessage(ctx context.Context, userID, channelID int64, msg domain.Message) outcome.Outcome[domain.Message] {
	ctx, span := tracer.Start(ctx, "gate.channel.delete_message")
	defer span.End()

	return outcome.AndThen(g.Get(ctx, userID, channelID), func(domain.Channel) outcome.Outcome[domain.Message] {
		if err := g.messages.Delete(ctx, domain.SurfaceChannel, channelID, userID, msg.ID); err != nil {
			return outcome.ErrFrom[domain.Message](err)
		}
		return outcome.Ok(msg)
	})
}

func (g *ChannelGate) requireServer(ctx context.Context, userID, serverID int64) outcome.Outcome[struct{}] {
	ok, err := g.servers.IsSubscribed(ctx, userID, serverID)
	if err != nil {
		return outcome.ErrFrom[struct{}](err)
	}
	if !ok {
		gateDenialsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("surface", "channel")))
		return outcome.Err[struct{}](serverNotFound())
	}
	return outcome.Ok(struct{}{})
}

// validateMessage applies the shared message content rules.
func validateMessage(msg domain.Message) outcome.Outcome[domain.Message] {
	if strings.TrimSpace(msg.Content) == "" {
		return outcome.Err[domain.Message](domain.ValidationFailure("message content cannot be empty"))
	}
	if len(msg.Content) > domain.MaxMessageSize {
		return outcome.Err[domain.Message](domain.ValidationFailure("message content exceeds size limit"))
	}
	return outcome.Ok(msg)
}

func channelNotFound() domain.Failure {
	return domain.NotFoundFailure("channel not found")
}
