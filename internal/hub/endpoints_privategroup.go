package hub

import (
	"context"
	"encoding/json"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/outcome"
	"github.com/parlorchat/parlor/pkg/protocol"
)

// Private-group endpoints. Membership is managed elsewhere; the hub only
// verifies it before joining a connection or routing content.

// addToPrivateGroupConnection joins the calling connection to a group's
// broadcast set. Join-only: no confirmation event on success.
func (r *Router) addToPrivateGroupConnection(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		PrivateGroupID int64 `json:"privateGroupId"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.PrivateGroup] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.PrivateGroup](o.Failure())
		}
		return r.groups.Get(ctx, userID, args.PrivateGroupID)
	}).Inspect(func(pg domain.PrivateGroup) {
		r.registry.Join(ctx, s.ID(), GroupName(domain.SurfacePrivateGroup, pg.ID))
	}).InspectErr(func(f domain.Failure) {
		r.logger.DebugContext(ctx, "private group join denied",
			"session_id", s.ID(), "private_group_id", args.PrivateGroupID, "category", f.Category)
	})
}

func (r *Router) getAllPrivateGroupMessages(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		PrivateGroupID int64  `json:"privateGroupId"`
		SearchTerm     string `json:"searchTerm,omitempty"`
		LastMessageID  int64  `json:"lastMessageId,omitempty"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[[]domain.Message] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[[]domain.Message](o.Failure())
		}
		return r.groups.Messages(ctx, userID, args.PrivateGroupID, domain.MessageQuery{
			Search: args.SearchTerm,
			LastID: args.LastMessageID,
		})
	}).Inspect(func(msgs []domain.Message) {
		r.reply(ctx, s, protocol.EventAllPrivateGroupMessages, protocol.Payload[[]domain.Message]{
			GroupName: GroupName(domain.SurfacePrivateGroup, args.PrivateGroupID),
			Content:   msgs,
		})
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventAllPrivateGroupMessages, f)
	})
}

func (r *Router) postPrivateGroupMessage(ctx context.Context, s Session, raw json.RawMessage) {
	r.privateGroupMessageMutation(ctx, s, raw, protocol.EventPrivateGroupMessageReceived, r.groups.PostMessage)
}

func (r *Router) putPrivateGroupMessage(ctx context.Context, s Session, raw json.RawMessage) {
	r.privateGroupMessageMutation(ctx, s, raw, protocol.EventPrivateGroupMessageEdited, r.groups.PutMessage)
}

func (r *Router) deletePrivateGroupMessage(ctx context.Context, s Session, raw json.RawMessage) {
	r.privateGroupMessageMutation(ctx, s, raw, protocol.EventPrivateGroupMessageDeleted, r.groups.DeleteMessage)
}

func (r *Router) privateGroupMessageMutation(
	ctx context.Context,
	s Session,
	raw json.RawMessage,
	event string,
	op func(context.Context, int64, int64, domain.Message) outcome.Outcome[domain.Message],
) {
	var args struct {
		PrivateGroupID int64          `json:"privateGroupId"`
		Message        domain.Message `json:"message"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Message] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Message](o.Failure())
		}
		return op(ctx, userID, args.PrivateGroupID, args.Message)
	}).Inspect(func(msg domain.Message) {
		group := GroupName(domain.SurfacePrivateGroup, args.PrivateGroupID)
		r.broadcast(ctx, group, event, protocol.Payload[domain.Message]{GroupName: group, Content: msg})
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, event, f)
	})
}
