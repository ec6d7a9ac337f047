// Package protocol defines the JSON frame types exchanged over the hub
// WebSocket. Method and event names are part of the wire contract and must
// not change.
package protocol

import "encoding/json"

// Invocation is a client-to-server call: a method name plus a per-method
// argument object.
type Invocation struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Event is a server-to-client notification. Body carries either the success
// DTO for the event or a Failure; the event name is the same in both cases
// and the receiver disambiguates on the body shape.
type Event struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// Failure is the client-observable shape of a failed call.
type Failure struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Payload wraps group-scoped content with the group it belongs to, so a
// connection subscribed to several groups of the same kind can tell events
// apart.
type Payload[T any] struct {
	GroupName string `json:"groupName"`
	Content   T      `json:"content"`
}

// Remote-invocable method names.
const (
	MethodAddServer          = "AddServer"
	MethodAddToServer        = "AddToServer"
	MethodUpdateServerInfo   = "UpdateServerInfo"
	MethodDeleteSubscription = "DeleteSubscription"

	MethodPostChannel            = "PostChannel"
	MethodPutChannel             = "PutChannel"
	MethodDeleteChannel          = "DeleteChannel"
	MethodAddToChannelConnection = "AddToChannelConnection"
	MethodGetAllChannelMessages  = "GetAllChannelMessages"
	MethodPostChannelMessage     = "PostChannelMessage"
	MethodPutChannelMessage      = "PutChannelMessage"
	MethodDeleteChannelMessage   = "DeleteChannelMessage"

	MethodAddToDirectMessaging   = "AddToDirectMessaging"
	MethodPostNewDirectMessaging = "PostNewDirectMessaging"
	MethodGetAllDirectMessages   = "GetAllDirectMessages"
	MethodPostDirectMessage      = "PostDirectMessage"
	MethodPutDirectMessage       = "PutDirectMessage"
	MethodDeleteDirectMessage    = "DeleteDirectMessage"

	MethodAddToPrivateGroupConnection = "AddToPrivateGroupConnection"
	MethodGetAllPrivateGroupMessages  = "GetAllPrivateGroupMessages"
	MethodPostPrivateGroupMessage     = "PostPrivateGroupMessage"
	MethodPutPrivateGroupMessage      = "PutPrivateGroupMessage"
	MethodDeletePrivateGroupMessage   = "DeletePrivateGroupMessage"

	MethodUpdateMyInfo     = "UpdateMyInfo"
	MethodGetInvitations   = "GetInvitations"
	MethodSendInvitation   = "SendInvitation"
	MethodUpdateInvitation = "UpdateInvitation"
)

// Server-to-client event names.
const (
	EventAddedServer         = "AddedServer"
	EventUpdatedServer       = "UpdatedServer"
	EventSubscriptionDeleted = "SubscriptionDeleted"

	EventChannelCreated             = "ChannelCreated"
	EventChannelUpdated             = "ChannelUpdated"
	EventChannelDeleted             = "ChannelDeleted"
	EventSelfAddedToChannel         = "SelfAddedToChannel"
	EventAllChannelMessagesReceived = "AllChannelMessagesReceived"
	EventChannelMessageReceived     = "ChannelMessageReceived"
	EventChannelMessageEdited       = "ChannelMessageEdited"
	EventChannelMessageDeleted      = "ChannelMessageDeleted"

	EventSelfAddedToDirectMessaging = "SelfAddedToDirectMessaging"
	EventNewDirectMessaging         = "NewDirectMessaging"
	EventAllDirectMessagesReceived  = "AllDirectMessagesReceived"
	EventDirectMessageReceived      = "DirectMessageReceived"
	EventDirectMessageEdited        = "DirectMessageEdited"
	EventDirectMessageDeleted       = "DirectMessageDeleted"

	EventAllPrivateGroupMessages     = "AllPrivateGroupMessages"
	EventPrivateGroupMessageReceived = "PrivateGroupMessageReceived"
	EventPrivateGroupMessageEdited   = "PrivateGroupMessageEdited"
	EventPrivateGroupMessageDeleted  = "PrivateGroupMessageDeleted"

	EventUserUpdated       = "UserUpdated"
	EventInvitations       = "Invitations"
	EventNewInvitation     = "NewInvitation"
	EventUpdatedInvitation = "UpdatedInvitation"
)

// NewEvent builds an Event with the body marshalled to JSON.
func NewEvent(name string, body any) (Event, error) {
	var raw json.RawMessage
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return Event{}, err
		}
	}
	return Event{Event: name, Body: raw}, nil
}

// ParseArgs unmarshals the invocation arguments into the given struct.
func (i *Invocation) ParseArgs(v any) error {
	if i.Args == nil {
		return nil
	}
	return json.Unmarshal(i.Args, v)
}

// ParseBody unmarshals the event body into the given struct.
func (e *Event) ParseBody(v any) error {
	if e.Body == nil {
		return nil
	}
	return json.Unmarshal(e.Body, v)
}
