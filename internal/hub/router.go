package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/gate"
	"github.com/parlorchat/parlor/internal/outcome"
	"github.com/parlorchat/parlor/pkg/protocol"
)

// handlerFunc handles one invocation on one session. Handlers never return
// errors: every fault degrades to a failure event on the calling session.
type handlerFunc func(ctx context.Context, s Session, args json.RawMessage)

// Router dispatches invocations to per-endpoint handlers and applies the
// broadcast policy to each outcome. Every endpoint follows the same shape:
// resolve identity, chain into a gate operation, then route the outcome -
// success to the policy's audience, failure to the caller alone.
type Router struct {
	registry *Registry
	servers  *gate.ServerGate
	channels *gate.ChannelGate
	groups   *gate.PrivateGroupGate
	threads  *gate.DirectMessageGate
	users    *gate.UserGate
	logger   *slog.Logger

	handlers map[string]handlerFunc
}

// RouterConfig holds the dependencies for Router.
type RouterConfig struct {
	Registry      *Registry
	Servers       *gate.ServerGate
	Channels      *gate.ChannelGate
	PrivateGroups *gate.PrivateGroupGate
	DirectThreads *gate.DirectMessageGate
	Users         *gate.UserGate
	Logger        *slog.Logger
}

// NewRouter creates a Router with the given dependencies.
func NewRouter(cfg RouterConfig) *Router {
	r := &Router{
		registry: cfg.Registry,
		servers:  cfg.Servers,
		channels: cfg.Channels,
		groups:   cfg.PrivateGroups,
		threads:  cfg.DirectThreads,
		users:    cfg.Users,
		logger:   cfg.Logger,
	}
	r.handlers = map[string]handlerFunc{
		protocol.MethodAddServer:          r.addServer,
		protocol.MethodAddToServer:        r.addToServer,
		protocol.MethodUpdateServerInfo:   r.updateServerInfo,
		protocol.MethodDeleteSubscription: r.deleteSubscription,

		protocol.MethodPostChannel:            r.postChannel,
		protocol.MethodPutChannel:             r.putChannel,
		protocol.MethodDeleteChannel:          r.deleteChannel,
		protocol.MethodAddToChannelConnection: r.addToChannelConnection,
		protocol.MethodGetAllChannelMessages:  r.getAllChannelMessages,
		protocol.MethodPostChannelMessage:     r.postChannelMessage,
		protocol.MethodPutChannelMessage:      r.putChannelMessage,
		protocol.MethodDeleteChannelMessage:   r.deleteChannelMessage,

		protocol.MethodAddToDirectMessaging:   r.addToDirectMessaging,
		protocol.MethodPostNewDirectMessaging: r.postNewDirectMessaging,
		protocol.MethodGetAllDirectMessages:   r.getAllDirectMessages,
		protocol.MethodPostDirectMessage:      r.postDirectMessage,
		protocol.MethodPutDirectMessage:       r.putDirectMessage,
		protocol.MethodDeleteDirectMessage:    r.deleteDirectMessage,

		protocol.MethodAddToPrivateGroupConnection: r.addToPrivateGroupConnection,
		protocol.MethodGetAllPrivateGroupMessages:  r.getAllPrivateGroupMessages,
		protocol.MethodPostPrivateGroupMessage:     r.postPrivateGroupMessage,
		protocol.MethodPutPrivateGroupMessage:      r.putPrivateGroupMessage,
		protocol.MethodDeletePrivateGroupMessage:   r.deletePrivateGroupMessage,

		protocol.MethodUpdateMyInfo:     r.updateMyInfo,
		protocol.MethodGetInvitations:   r.getInvitations,
		protocol.MethodSendInvitation:   r.sendInvitation,
		protocol.MethodUpdateInvitation: r.updateInvitation,
	}
	return r
}

// Connected registers a session and unconditionally joins it to its own
// user-id-keyed group. Fails when the session carries no resolvable identity.
func (r *Router) Connected(ctx context.Context, s Session) outcome.Outcome[int64] {
	return ResolveUserID(s.Claims()).Inspect(func(userID int64) {
		r.registry.Register(ctx, s)
		r.registry.Join(ctx, s.ID(), UserGroup(userID))
		r.logger.InfoContext(ctx, "session connected",
			"session_id", s.ID(), "user_id", userID)
	})
}

// Disconnected tears down every group membership of the session. Terminal.
// A non-nil err means the transport reported an abnormal close.
func (r *Router) Disconnected(ctx context.Context, s Session, err error) {
	r.registry.Disconnect(ctx, s.ID())
	if err != nil {
		r.logger.WarnContext(ctx, "session disconnected with error",
			"session_id", s.ID(), "error", err)
		return
	}
	r.logger.InfoContext(ctx, "session disconnected", "session_id", s.ID())
}

// Dispatch routes one invocation to its handler. Unknown methods are
// ignored beyond a log line; a client speaking a newer protocol must not be
// able to crash the connection.
func (r *Router) Dispatch(ctx context.Context, s Session, inv protocol.Invocation) {
	ctx, span := tracer.Start(ctx, "hub.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("hub.method", inv.Method))
	dispatchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", inv.Method)))

	h, exists := r.handlers[inv.Method]
	if !exists {
		r.logger.WarnContext(ctx, "unknown method invoked",
			"method", inv.Method, "session_id", s.ID())
		return
	}
	h(ctx, s, inv.Args)
}

// reply sends a success event to the calling session only.
func (r *Router) reply(ctx context.Context, s Session, event string, body any) {
	ev, err := protocol.NewEvent(event, body)
	if err != nil {
		r.logger.ErrorContext(ctx, "encode event", "event", event, "error", err)
		return
	}
	r.registry.ToSession(ctx, s.ID(), ev)
}

// replyFailure sends the failure shape of an event to the calling session
// only. Group members never observe another caller's failures.
func (r *Router) replyFailure(ctx context.Context, s Session, event string, f domain.Failure) {
	failureRepliesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("category", string(f.Category)),
	))
	ev, err := protocol.NewEvent(event, protocol.Failure{
		Category: string(f.Category),
		Severity: string(f.Severity),
		Message:  f.Message,
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "encode failure event", "event", event, "error", err)
		return
	}
	r.registry.ToSession(ctx, s.ID(), ev)
}

// broadcast multicasts a success event to a group.
func (r *Router) broadcast(ctx context.Context, group, event string, body any) {
	ev, err := protocol.NewEvent(event, body)
	if err != nil {
		r.logger.ErrorContext(ctx, "encode broadcast event", "event", event, "error", err)
		return
	}
	r.registry.ToGroup(ctx, group, ev)
}

// decode parses invocation args into v, mapping malformed input to a
// validation failure so it degrades like any other fault.
func decode[T any](raw json.RawMessage, v *T) outcome.Outcome[struct{}] {
	if raw == nil {
		return outcome.Ok(struct{}{})
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return outcome.Err[struct{}](domain.ValidationFailure("malformed arguments"))
	}
	return outcome.Ok(struct{}{})
}
