package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorchat/parlor/internal/auth"
	"github.com/parlorchat/parlor/internal/domain/domaintest"
)

const (
	testIssuer   = "parlor-auth"
	testAudience = "parlor-hub"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func mintToken(t *testing.T, subject string, issuedAt time.Time, lifetime time.Duration) string {
	t.Helper()

	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(lifetime)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func newValidator(clock *domaintest.FakeClock) *auth.Validator {
	return auth.NewValidator(auth.ValidatorConfig{
		Secret:   testSecret,
		Issuer:   testIssuer,
		Audience: testAudience,
		Clock:    clock,
	})
}

func TestValidateAccessToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid token: claims returned", func(t *testing.T) {
		clock := domaintest.NewFakeClock(now)
		v := newValidator(clock)

		claims, err := v.ValidateAccessToken(mintToken(t, "42", now, time.Hour))

		require.NoError(t, err)
		assert.Equal(t, "42", claims.Subject)
	})

	t.Run("expired token: rejected", func(t *testing.T) {
		clock := domaintest.NewFakeClock(now)
		v := newValidator(clock)
		token := mintToken(t, "42", now, time.Hour)

		clock.Advance(2 * time.Hour)

		_, err := v.ValidateAccessToken(token)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("wrong issuer: rejected", func(t *testing.T) {
		clock := domaintest.NewFakeClock(now)
		v := auth.NewValidator(auth.ValidatorConfig{
			Secret:   testSecret,
			Issuer:   "someone-else",
			Audience: testAudience,
			Clock:    clock,
		})

		_, err := v.ValidateAccessToken(mintToken(t, "42", now, time.Hour))
		assert.Error(t, err)
	})

	t.Run("tampered signature: rejected", func(t *testing.T) {
		clock := domaintest.NewFakeClock(now)
		v := newValidator(clock)
		token := mintToken(t, "42", now, time.Hour)

		_, err := v.ValidateAccessToken(token + "x")
		assert.Error(t, err)
	})

	t.Run("missing sub claim: rejected", func(t *testing.T) {
		clock := domaintest.NewFakeClock(now)
		v := newValidator(clock)

		_, err := v.ValidateAccessToken(mintToken(t, "", now, time.Hour))
		assert.Error(t, err)
	})
}
