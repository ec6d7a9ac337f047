// Package hub is the real-time dispatch and broadcast layer. It keeps one
// live connection per active user session, groups connections by the chat
// surface they are viewing, and routes each operation's outcome to the
// right audience: a whole group on success, or only the caller.
package hub

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/parlorchat/parlor/internal/auth"
	"github.com/parlorchat/parlor/pkg/protocol"
)

var tracer = otel.Tracer("hub")

var (
	connectionsActive   metric.Int64UpDownCounter
	broadcastsTotal     metric.Int64Counter
	sendFailuresTotal   metric.Int64Counter
	dispatchesTotal     metric.Int64Counter
	failureRepliesTotal metric.Int64Counter
)

func init() {
	m := otel.Meter("hub")

	connectionsActive, _ = m.Int64UpDownCounter("hub_connections_active",
		metric.WithDescription("Currently registered hub connections"))
	broadcastsTotal, _ = m.Int64Counter("hub_broadcasts_total",
		metric.WithDescription("Total group broadcasts"))
	sendFailuresTotal, _ = m.Int64Counter("hub_send_failures_total",
		metric.WithDescription("Total per-connection send failures (best-effort, not retried)"))
	dispatchesTotal, _ = m.Int64Counter("hub_dispatches_total",
		metric.WithDescription("Total invocations dispatched"))
	failureRepliesTotal, _ = m.Int64Counter("hub_failure_replies_total",
		metric.WithDescription("Total failure events sent back to callers"))
}

// Session is one live connection as the registry sees it. The websocket
// transport provides the production implementation; tests inject fakes.
type Session interface {
	ID() string
	Claims() *auth.Claims
	Send(ev protocol.Event) error
}

// Registry tracks which live connections are interested in which groups.
// Membership edges exist only here: they are created by Join and disappear
// when the connection leaves or disconnects. All operations are idempotent
// and safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]Session
	groups      map[string]map[string]Session
	memberships map[string]map[string]struct{}

	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		sessions:    make(map[string]Session),
		groups:      make(map[string]map[string]Session),
		memberships: make(map[string]map[string]struct{}),
		logger:      logger,
	}
}

// Register adds a session. Registering an already-known session is a no-op.
func (r *Registry) Register(ctx context.Context, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID()]; exists {
		return
	}
	r.sessions[s.ID()] = s
	r.memberships[s.ID()] = make(map[string]struct{})
	connectionsActive.Add(ctx, 1)
}

// Join adds the session to a group. Joining twice yields the same
// membership as joining once; joining an unknown session is a no-op.
func (r *Registry) Join(ctx context.Context, sessionID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[sessionID]
	if !exists {
		return
	}
	if r.groups[group] == nil {
		r.groups[group] = make(map[string]Session)
	}
	r.groups[group][sessionID] = s
	r.memberships[sessionID][group] = struct{}{}
}

// Leave removes the session from a group. Removing a non-member is a no-op.
func (r *Registry) Leave(ctx context.Context, sessionID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sessionID, group)
}

func (r *Registry) leaveLocked(sessionID, group string) {
	if members, exists := r.groups[group]; exists {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.groups, group)
		}
	}
	if groups, exists := r.memberships[sessionID]; exists {
		delete(groups, group)
	}
}

// Disconnect removes the session from every group it joined and forgets it.
// Terminal: no event is ever routed to the session afterwards.
func (r *Registry) Disconnect(ctx context.Context, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[sessionID]; !exists {
		return
	}
	for group := range r.memberships[sessionID] {
		r.leaveLocked(sessionID, group)
	}
	delete(r.memberships, sessionID)
	delete(r.sessions, sessionID)
	connectionsActive.Add(ctx, -1)
}

// Groups returns the groups the session currently belongs to.
func (r *Registry) Groups(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]string, 0, len(r.memberships[sessionID]))
	for g := range r.memberships[sessionID] {
		groups = append(groups, g)
	}
	return groups
}

// ToGroup multicasts an event to every member of a group. Delivery is
// best-effort and unordered across recipients: a failed send is logged and
// counted, never retried, and not distinguished from a missing recipient.
func (r *Registry) ToGroup(ctx context.Context, group string, ev protocol.Event) {
	r.mu.RLock()
	members := make([]Session, 0, len(r.groups[group]))
	for _, s := range r.groups[group] {
		members = append(members, s)
	}
	r.mu.RUnlock()

	broadcastsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("event", ev.Event)))
	for _, s := range members {
		if err := s.Send(ev); err != nil {
			sendFailuresTotal.Add(ctx, 1)
			r.logger.WarnContext(ctx, "group send failed",
				"group", group, "session_id", s.ID(), "event", ev.Event, "error", err)
		}
	}
}

// ToSession sends an event to one session, if it is still registered.
func (r *Registry) ToSession(ctx context.Context, sessionID string, ev protocol.Event) {
	r.mu.RLock()
	s, exists := r.sessions[sessionID]
	r.mu.RUnlock()
	if !exists {
		return
	}
	if err := s.Send(ev); err != nil {
		sendFailuresTotal.Add(ctx, 1)
		r.logger.WarnContext(ctx, "session send failed",
			"session_id", sessionID, "event", ev.Event, "error", err)
	}
}
