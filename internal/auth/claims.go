package auth

import "github.com/golang-jwt/jwt/v5"

// Claims represents the JWT claims carried by a hub connection. Subject is
// the decimal user id; token issuance belongs to the (external) auth service.
type Claims struct {
	jwt.RegisteredClaims
	UserName string `json:"username,omitempty"`
}
