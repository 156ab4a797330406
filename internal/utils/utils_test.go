package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("s3cret", time.Hour)

	tok, expires, err := m.Generate("u1", "a@x.io", "client", "c1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UID)
	assert.Equal(t, "a@x.io", claims.Email)
	assert.Equal(t, "client", claims.Role)
	assert.Equal(t, "c1", claims.ClientID)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	m := NewTokenManager("s3cret", time.Hour)
	tok, _, err := m.Generate("u1", "", "", "")
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).Validate(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	later := NewTokenManager("s3cret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Validate(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = m.Validate("not-a-token")
	assert.Error(t, err)
}

func TestTokenWithoutSecret(t *testing.T) {
	m := NewTokenManager("", 0)
	assert.Equal(t, 24*time.Hour, m.TTL())
	_, _, err := m.Generate("u1", "", "", "")
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = m.Validate("x")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestPasswordHash(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("hunter22", hash))
	assert.False(t, CheckPasswordHash("hunter23", hash))
	assert.False(t, CheckPasswordHash("hunter22", ""))
}
