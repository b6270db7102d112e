package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "u-1", "novia@miboda.co", "user", 60, time.Now())
	require.NoError(t, err)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "novia@miboda.co", claims.Email)
	assert.WithinDuration(t, tok.Exp, claims.ExpiresAt.Time, time.Second)
}

func TestParseAccessTokenRejects(t *testing.T) {
	expired, err := NewAccessToken("s3cret", "u-1", "", "user", 1, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	good, err := NewAccessToken("s3cret", "u-1", "", "user", 60, time.Now())
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1", "iss": Issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"expired":      expired.Token,
		"wrong secret": good.Token + "x",
		"alg none":     none,
		"garbage":      "anon-key",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken("s3cret", raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRefreshToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := NewRefreshToken(30, now)
	require.NoError(t, err)
	b, err := NewRefreshToken(30, now)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Equal(t, now.Add(30*24*time.Hour), a.Exp)
	assert.Len(t, HashRefreshRaw(a.Raw), 64)
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secreto", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "secreto"))
	assert.False(t, VerifyPassword(hash, "Secreto"))
}
