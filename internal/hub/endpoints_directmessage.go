package hub

import (
	"context"
	"encoding/json"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/outcome"
	"github.com/parlorchat/parlor/pkg/protocol"
)

// Direct-messaging endpoints. A thread's group is dm:{id}; both
// participants see content events once they have joined it.

// addToDirectMessaging joins the calling connection to an existing thread's
// group after the gate confirms the caller is a participant.
func (r *Router) addToDirectMessaging(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		DirectMessagingID int64 `json:"directMessagingId"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.DirectMessaging] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.DirectMessaging](o.Failure())
		}
		return r.threads.Get(ctx, userID, args.DirectMessagingID)
	}).Inspect(func(dm domain.DirectMessaging) {
		r.registry.Join(ctx, s.ID(), GroupName(domain.SurfaceDirect, dm.ID))
		r.reply(ctx, s, protocol.EventSelfAddedToDirectMessaging, nil)
	}).InspectErr(func(f domain.Failure) {
		r.logger.DebugContext(ctx, "direct messaging join denied",
			"session_id", s.ID(), "dm_id", args.DirectMessagingID, "category", f.Category)
	})
}

// postNewDirectMessaging resolves the thread for a participant pair,
// creating it when none exists, then joins the caller to its group.
func (r *Router) postNewDirectMessaging(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		FirstParticipantID  int64 `json:"firstParticipantId"`
		SecondParticipantID int64 `json:"secondParticipantId"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.DirectMessaging] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.DirectMessaging](o.Failure())
		}
		return r.threads.GetOrCreate(ctx, userID, args.FirstParticipantID, args.SecondParticipantID)
	}).Inspect(func(dm domain.DirectMessaging) {
		group := GroupName(domain.SurfaceDirect, dm.ID)
		r.registry.Join(ctx, s.ID(), group)
		r.reply(ctx, s, protocol.EventNewDirectMessaging, protocol.Payload[domain.DirectMessaging]{
			GroupName: group,
			Content:   dm,
		})
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventNewDirectMessaging, f)
	})
}

func (r *Router) getAllDirectMessages(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		DirectMessagingID int64  `json:"directMessagingId"`
		SearchTerm        string `json:"searchTerm,omitempty"`
		LastMessageID     int64  `json:"lastMessageId,omitempty"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[[]domain.Message] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[[]domain.Message](o.Failure())
		}
		return r.threads.Messages(ctx, userID, args.DirectMessagingID, domain.MessageQuery{
			Search: args.SearchTerm,
			LastID: args.LastMessageID,
		})
	}).Inspect(func(msgs []domain.Message) {
		r.reply(ctx, s, protocol.EventAllDirectMessagesReceived, protocol.Payload[[]domain.Message]{
			GroupName: GroupName(domain.SurfaceDirect, args.DirectMessagingID),
			Content:   msgs,
		})
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventAllDirectMessagesReceived, f)
	})
}

func (r *Router) postDirectMessage(ctx context.Context, s Session, raw json.RawMessage) {
	r.directMessageMutation(ctx, s, raw, protocol.EventDirectMessageReceived, r.threads.PostMessage)
}

func (r *Router) putDirectMessage(ctx context.Context, s Session, raw json.RawMessage) {
	r.directMessageMutation(ctx, s, raw, protocol.EventDirectMessageEdited, r.threads.PutMessage)
}

func (r *Router) deleteDirectMessage(ctx context.Context, s Session, raw json.RawMessage) {
	r.directMessageMutation(ctx, s, raw, protocol.EventDirectMessageDeleted, r.threads.DeleteMessage)
}

func (r *Router) directMessageMutation(
	ctx context.Context,
	s Session,
	raw json.RawMessage,
	event string,
	op func(context.Context, int64, int64, domain.Message) outcome.Outcome[domain.Message],
) {
	var args struct {
		DirectMessagingID int64          `json:"directMessagingId"`
		Message           domain.Message `json:"message"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Message] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Message](o.Failure())
		}
		return op(ctx, userID, args.DirectMessagingID, args.Message)
	}).Inspect(func(msg domain.Message) {
		group := GroupName(domain.SurfaceDirect, args.DirectMessagingID)
		r.broadcast(ctx, group, event, protocol.Payload[domain.Message]{GroupName: group, Content: msg})
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, event, f)
	})
}
