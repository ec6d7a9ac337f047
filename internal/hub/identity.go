package hub

import (
	"strconv"

	"github.com/parlorchat/parlor/internal/auth"
	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/internal/outcome"
)

// ResolveUserID extracts the authenticated user id from a connection's
// claims. This is the single point where raw connection credentials are
// interpreted; every other component receives an already-resolved id.
func ResolveUserID(claims *auth.Claims) outcome.Outcome[int64] {
	if claims == nil || claims.Subject == "" {
		return outcome.Err[int64](domain.Unauthenticated("no subject claim on connection"))
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return outcome.Err[int64](domain.Unauthenticated("subject claim is not a valid user id"))
	}
	return outcome.Ok(userID)
}
