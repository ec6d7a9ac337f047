// Package gate contains the per-surface access façades consumed by the
// real-time hub. Each façade re-derives the authorization the REST surface
// enforces before delegating to a store, so the hub cannot be used to bypass
// those checks. Gates are the injectable policy component: a REST handler
// would consume the same package.
package gate

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/parlorchat/parlor/internal/domain"
)

var tracer = otel.Tracer("gate")

var (
	gateDenialsTotal metric.Int64Counter
	gateOpsTotal     metric.Int64Counter
)

func init() {
	m := otel.Meter("gate")

	gateDenialsTotal, _ = m.Int64Counter("gate_denials_total",
		metric.WithDescription("Total operations denied by a gate authorization check"))
	gateOpsTotal, _ = m.Int64Counter("gate_ops_total",
		metric.WithDescription("Total gate operations invoked"))
}

// ServerStore persists servers and their subscriptions.
type ServerStore interface {
	// Insert creates a server and subscribes the owner in one step.
	Insert(ctx context.Context, name string, ownerID int64) (domain.Server, error)
	Get(ctx context.Context, id int64) (domain.Server, error)
	Update(ctx context.Context, srv domain.Server) (domain.Server, error)
	IsSubscribed(ctx context.Context, userID, serverID int64) (bool, error)
	InsertSubscription(ctx context.Context, userID, serverID int64) (domain.Subscription, error)
	DeleteSubscription(ctx context.Context, serverID, subscriptionID int64) error
}

// ChannelStore persists channels.
type ChannelStore interface {
	Get(ctx context.Context, id int64) (domain.Channel, error)
	Insert(ctx context.Context, ch domain.Channel) (domain.Channel, error)
	Update(ctx context.Context, ch domain.Channel) (domain.Channel, error)
	Delete(ctx context.Context, id int64) error
}

// MessageStore persists messages for every surface kind. Update and Delete
// are scoped by author: a mismatching author behaves as not-found.
type MessageStore interface {
	List(ctx context.Context, kind domain.SurfaceKind, surfaceID int64, q domain.MessageQuery) ([]domain.Message, error)
	Insert(ctx context.Context, kind domain.SurfaceKind, surfaceID int64, msg domain.Message) (domain.Message, error)
	Update(ctx context.Context, kind domain.SurfaceKind, surfaceID, authorID int64, msg domain.Message) (domain.Message, error)
	Delete(ctx context.Context, kind domain.SurfaceKind, surfaceID, authorID, messageID int64) error
}

// DirectMessagingStore persists one-to-one threads.
type DirectMessagingStore interface {
	Get(ctx context.Context, id int64) (domain.DirectMessaging, error)
	// FindByParticipants treats the pair as unordered.
	FindByParticipants(ctx context.Context, firstID, secondID int64) (domain.DirectMessaging, error)
	Insert(ctx context.Context, firstID, secondID int64) (domain.DirectMessaging, error)
}

// PrivateGroupStore persists private groups and their member sets.
type PrivateGroupStore interface {
	Get(ctx context.Context, id int64) (domain.PrivateGroup, error)
	IsMember(ctx context.Context, userID, groupID int64) (bool, error)
}

// UserStore persists users.
type UserStore interface {
	Get(ctx context.Context, id int64) (domain.User, error)
	Update(ctx context.Context, u domain.User) (domain.User, error)
	FindByUserName(ctx context.Context, userName string) (domain.User, error)
}

// InvitationStore persists server invitations.
type InvitationStore interface {
	Get(ctx context.Context, id int64) (domain.Invitation, error)
	Insert(ctx context.Context, inv domain.Invitation) (domain.Invitation, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.Invitation, error)
	HasPending(ctx context.Context, serverID, receiverID int64) (bool, error)
	// Resolve records the accept/decline decision and removes the invitation
	// from the receiver's pending list.
	Resolve(ctx context.Context, id int64, accepted bool) (domain.Invitation, error)
}

// clampQuery enforces the server-side page size regardless of what the
// client requested.
func clampQuery(q domain.MessageQuery) domain.MessageQuery {
	q.PageSize = domain.MessagePageSize
	return q
}
