// Package domain contains pure business types for the chat application.
// No external dependencies allowed - this is the innermost ring.
package domain

import "time"

// User is a chat user as visible to the real-time surface.
type User struct {
	ID        int64  `json:"id"`
	UserName  string `json:"userName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Server is a top-level chat surface users subscribe to.
type Server struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Subscription links a user to a server.
type Subscription struct {
	ID       int64 `json:"id"`
	UserID   int64 `json:"userId"`
	ServerID int64 `json:"serverId"`
}

// Channel is a named message surface inside a server.
type Channel struct {
	ID       int64  `json:"id"`
	ServerID int64  `json:"serverId"`
	Name     string `json:"name"`
}

// PrivateGroup is an invite-only message surface.
type PrivateGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DirectMessaging is a one-to-one conversation thread. Exactly one thread
// exists per unordered participant pair.
type DirectMessaging struct {
	ID                  int64 `json:"id"`
	FirstParticipantID  int64 `json:"firstParticipantId"`
	SecondParticipantID int64 `json:"secondParticipantId"`
}

// Message is a single chat message on any surface.
type Message struct {
	ID       int64     `json:"id"`
	AuthorID int64     `json:"authorId"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sentAt"`
	Edited   bool      `json:"edited"`
}

// Invitation asks a user to join a server.
type Invitation struct {
	ID         int64     `json:"id"`
	ServerID   int64     `json:"serverId"`
	ServerName string    `json:"serverName"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Accepted   bool      `json:"accepted"`
	SentAt     time.Time `json:"sentAt"`
}

// UpdateInvitation is the command to accept or decline an invitation.
type UpdateInvitation struct {
	ID       int64 `json:"id"`
	Accepted bool  `json:"accepted"`
}

// MessageQuery bounds a message page. LastID zero means "newest page";
// a non-zero LastID returns messages with id strictly below it. Search
// filters by content containment. PageSize is clamped server-side.
type MessageQuery struct {
	Search   string
	LastID   int64
	PageSize int
}

// SurfaceKind identifies which chat surface a message or group belongs to.
type SurfaceKind string

const (
	SurfaceServer       SurfaceKind = "server"
	SurfaceChannel      SurfaceKind = "channel"
	SurfacePrivateGroup SurfaceKind = "privateGroup"
	SurfaceDirect       SurfaceKind = "dm"
)

// IsValidSurfaceKind checks if a surface kind is one of the known kinds.
func IsValidSurfaceKind(k SurfaceKind) bool {
	switch k {
	case SurfaceServer, SurfaceChannel, SurfacePrivateGroup, SurfaceDirect:
		return true
	}
	return false
}
