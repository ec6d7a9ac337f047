package hub

import "github.com/parlorchat/parlor/internal/domain"

// Fixed-shape bodies for events that carry more than one value. One struct
// per event keeps the wire shape checkable at compile time.

// ChannelCreatedBody accompanies the ChannelCreated event.
type ChannelCreatedBody struct {
	ServerID int64          `json:"serverId"`
	Channel  domain.Channel `json:"channel"`
}

// SubscriptionDeletedBody accompanies the SubscriptionDeleted event.
type SubscriptionDeletedBody struct {
	ServerID     int64               `json:"serverId"`
	Subscription domain.Subscription `json:"subscription"`
}
