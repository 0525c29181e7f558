package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, 42, "alice")
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateToken("secret", -time.Minute, 1, "alice")
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTamperedToken(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, 1, "alice")
	require.NoError(t, err)

	_, err = ParseToken("secret", token+"x")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, 1, "alice")
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestMalformedToken(t *testing.T) {
	_, err := ParseToken("secret", "definitely.not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
