package hub

import (
	"context"
	"encoding/json"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/outcome"
	"github.com/parlorchat/parlor/pkg/protocol"
)

// User and invitation endpoints. Invitation events target the user-id-keyed
// groups so they reach a user on every connection they hold.

func (r *Router) updateMyInfo(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		User domain.User `json:"user"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.User] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.User](o.Failure())
		}
		return r.users.UpdateMyInfo(ctx, userID, args.User)
	}).Inspect(func(u domain.User) {
		r.broadcast(ctx, UserGroup(u.ID), protocol.EventUserUpdated, u)
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventUserUpdated, f)
	})
}

func (r *Router) getInvitations(ctx context.Context, s Session, raw json.RawMessage) {
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[[]domain.Invitation] {
		return r.users.Invitations(ctx, userID)
	}).Inspect(func(invs []domain.Invitation) {
		r.reply(ctx, s, protocol.EventInvitations, invs)
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventInvitations, f)
	})
}

// sendInvitation notifies the invited user's group; the sender hears nothing
// on success and a failure event otherwise.
func (r *Router) sendInvitation(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		ServerID int64  `json:"serverId"`
		UserName string `json:"userName"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Invitation] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Invitation](o.Failure())
		}
		return r.users.SendInvitation(ctx, userID, args.ServerID, args.UserName)
	}).Inspect(func(inv domain.Invitation) {
		r.broadcast(ctx, UserGroup(inv.ReceiverID), protocol.EventNewInvitation, inv)
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventNewInvitation, f)
	})
}

// updateInvitation is dual-target: the caller always learns the resolution,
// and the server's group additionally learns of an accepted one so member
// lists refresh.
func (r *Router) updateInvitation(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		Invitation domain.UpdateInvitation `json:"invitation"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Invitation] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Invitation](o.Failure())
		}
		return r.users.UpdateInvitation(ctx, userID, args.Invitation)
	}).Inspect(func(inv domain.Invitation) {
		if inv.Accepted {
			r.broadcast(ctx, GroupName(domain.SurfaceServer, inv.ServerID), protocol.EventUpdatedInvitation, inv)
		}
		r.reply(ctx, s, protocol.EventUpdatedInvitation, inv)
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventUpdatedInvitation, f)
	})
}
