package hub

import (
	"context"
	"encoding/json"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/outcome"
	"github.com/parlorchat/parlor/pkg/protocol"
)

// Channel-surface endpoints. Content mutations broadcast to the server or
// channel group on success; read-only fetches reply to the caller alone.

func (r *Router) postChannel(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		ServerID int64          `json:"serverId"`
		Channel  domain.Channel `json:"channel"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Channel] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Channel](o.Failure())
		}
		return r.channels.Post(ctx, userID, args.ServerID, args.Channel)
	}).Inspect(func(ch domain.Channel) {
		r.broadcast(ctx, GroupName(domain.SurfaceServer, args.ServerID), protocol.EventChannelCreated,
			ChannelCreatedBody{ServerID: args.ServerID, Channel: ch})
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventChannelCreated, f)
	})
}

func (r *Router) putChannel(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		ServerID int64          `json:"serverId"`
		Channel  domain.Channel `json:"channel"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Channel] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Channel](o.Failure())
		}
		return r.channels.Put(ctx, userID, args.ServerID, args.Channel)
	}).Inspect(func(ch domain.Channel) {
		r.broadcast(ctx, GroupName(domain.SurfaceServer, args.ServerID), protocol.EventChannelUpdated, ch)
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventChannelUpdated, f)
	})
}

func (r *Router) deleteChannel(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		ServerID  int64 `json:"serverId"`
		ChannelID int64 `json:"channelId"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[int64] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[int64](o.Failure())
		}
		return r.channels.Delete(ctx, userID, args.ServerID, args.ChannelID)
	}).Inspect(func(channelID int64) {
		r.broadcast(ctx, GroupName(domain.SurfaceServer, args.ServerID), protocol.EventChannelDeleted, channelID)
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventChannelDeleted, f)
	})
}

// addToChannelConnection joins the calling connection to a channel group.
// Success is confirmed to the caller; failures are silent.
func (r *Router) addToChannelConnection(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		ChannelID int64 `json:"channelId"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Channel] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Channel](o.Failure())
		}
		return r.channels.Get(ctx, userID, args.ChannelID)
	}).Inspect(func(ch domain.Channel) {
		r.registry.Join(ctx, s.ID(), GroupName(domain.SurfaceChannel, ch.ID))
		r.reply(ctx, s, protocol.EventSelfAddedToChannel, nil)
	}).InspectErr(func(f domain.Failure) {
		r.logger.DebugContext(ctx, "channel join denied",
			"session_id", s.ID(), "channel_id", args.ChannelID, "category", f.Category)
	})
}

func (r *Router) getAllChannelMessages(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		ChannelID     int64  `json:"channelId"`
		SearchTerm    string `json:"searchTerm,omitempty"`
		LastMessageID int64  `json:"lastMessageId,omitempty"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[[]domain.Message] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[[]domain.Message](o.Failure())
		}
		return r.channels.Messages(ctx, userID, args.ChannelID, domain.MessageQuery{
			Search: args.SearchTerm,
			LastID: args.LastMessageID,
		})
	}).Inspect(func(msgs []domain.Message) {
		r.reply(ctx, s, protocol.EventAllChannelMessagesReceived, protocol.Payload[[]domain.Message]{
			GroupName: GroupName(domain.SurfaceChannel, args.ChannelID),
			Content:   msgs,
		})
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventAllChannelMessagesReceived, f)
	})
}

func (r *Router) postChannelMessage(ctx context.Context, s Session, raw json.RawMessage) {
	r.channelMessageMutation(ctx, s, raw, protocol.EventChannelMessageReceived, r.channels.PostMessage)
}

func (r *Router) putChannelMessage(ctx context.Context, s Session, raw json.RawMessage) {
	r.channelMessageMutation(ctx, s, raw, protocol.EventChannelMessageEdited, r.channels.PutMessage)
}

func (r *Router) deleteChannelMessage(ctx context.Context, s Session, raw json.RawMessage) {
	r.channelMessageMutation(ctx, s, raw, protocol.EventChannelMessageDeleted, r.channels.DeleteMessage)
}

// channelMessageMutation is the shared post/edit/delete pipeline: the
// channel group observes success, only the caller observes failure.
func (r *Router) channelMessageMutation(
	ctx context.Context,
	s Session,
	raw json.RawMessage,
	event string,
	op func(context.Context, int64, int64, domain.Message) outcome.Outcome[domain.Message],
) {
	var args struct {
		ChannelID int64          `json:"channelId"`
		Message   domain.Message `json:"message"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Message] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Message](o.Failure())
		}
		return op(ctx, userID, args.ChannelID, args.Message)
	}).Inspect(func(msg domain.Message) {
		group := GroupName(domain.SurfaceChannel, args.ChannelID)
		r.broadcast(ctx, group, event, protocol.Payload[domain.Message]{GroupName: group, Content: msg})
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, event, f)
	})
}
