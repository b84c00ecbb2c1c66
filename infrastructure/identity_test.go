package infrastructure

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applyai/domain"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := NewTokenVerifier("s3cret")
	tok, err := v.Issue(domain.Identity{UID: "u-1", Email: "alice@example.com"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.UID)
	assert.Equal(t, "alice@example.com", id.Email)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := NewTokenVerifier("s3cret")

	expired, err := v.Issue(domain.Identity{UID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.Error(t, err, "expired")

	other, err := NewTokenVerifier("other").Issue(domain.Identity{UID: "u-1"}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.Error(t, err, "wrong secret")

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = v.Verify(noSubject)
	assert.Error(t, err, "no subject")

	_, err = NewTokenVerifier("").Verify(other)
	assert.Error(t, err, "unconfigured")
}
