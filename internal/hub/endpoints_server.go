package hub

import (
	"context"
	"encoding/json"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/outcome"
	"github.com/parlorchat/parlor/pkg/protocol"
)

// Server-surface endpoints.

func (r *Router) addServer(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		Server domain.Server `json:"server"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Server] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Server](o.Failure())
		}
		return r.servers.Add(ctx, userID, args.Server)
	}).Inspect(func(srv domain.Server) {
		r.reply(ctx, s, protocol.EventAddedServer, srv)
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventAddedServer, f)
	})
}

// addToServer joins the calling connection to a server group after the gate
// confirms the caller subscribes to it. Failures are silent: joining is a
// navigation action, not a user-visible operation.
func (r *Router) addToServer(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		ServerID int64 `json:"serverId"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Server] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Server](o.Failure())
		}
		return r.servers.Get(ctx, userID, args.ServerID)
	}).Inspect(func(domain.Server) {
		r.registry.Join(ctx, s.ID(), GroupName(domain.SurfaceServer, args.ServerID))
	}).InspectErr(func(f domain.Failure) {
		r.logger.DebugContext(ctx, "server join denied",
			"session_id", s.ID(), "server_id", args.ServerID, "category", f.Category)
	})
}

func (r *Router) updateServerInfo(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		Server domain.Server `json:"server"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Server] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Server](o.Failure())
		}
		return r.servers.Update(ctx, userID, args.Server)
	}).Inspect(func(srv domain.Server) {
		r.broadcast(ctx, GroupName(domain.SurfaceServer, srv.ID), protocol.EventUpdatedServer, srv)
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventUpdatedServer, f)
	})
}

func (r *Router) deleteSubscription(ctx context.Context, s Session, raw json.RawMessage) {
	var args struct {
		ServerID     int64               `json:"serverId"`
		Subscription domain.Subscription `json:"subscription"`
	}
	outcome.AndThen(ResolveUserID(s.Claims()), func(userID int64) outcome.Outcome[domain.Subscription] {
		if o := decode(raw, &args); o.IsErr() {
			return outcome.Err[domain.Subscription](o.Failure())
		}
		return r.servers.DeleteSubscription(ctx, userID, args.ServerID, args.Subscription)
	}).Inspect(func(sub domain.Subscription) {
		r.broadcast(ctx, GroupName(domain.SurfaceServer, args.ServerID), protocol.EventSubscriptionDeleted,
			SubscriptionDeletedBody{ServerID: args.ServerID, Subscription: sub})
	}).InspectErr(func(f domain.Failure) {
		r.replyFailure(ctx, s, protocol.EventSubscriptionDeleted, f)
	})
}
