package hub

import (
	"fmt"
	"strconv"

	"github.com/parlorchat/parlor/internal/domain"
)

// GroupName maps a surface kind and entity id to its canonical group name.
// Kind-prefixing keeps names collision-free across kinds for the same id.
// Pure and deterministic; injective within a kind.
func GroupName(kind domain.SurfaceKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// UserGroup is the reserved per-user group every connection joins at connect
// time. It doubles as the multi-device notification channel: an event sent
// here reaches every live connection of that user.
func UserGroup(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
