package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hash, salt, err := hashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEmpty(t, salt)

	ok, err := verifyPassword("correct horse battery staple", salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("wrong password", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHashesAreSalted(t *testing.T) {
	h1, s1, err := hashPassword("same password")
	require.NoError(t, err)
	h2, s2, err := hashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, h1, h2)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "polycycle", time.Hour)
	userID := uuid.New()

	token, err := issuer.Issue(userID, []string{RoleAdmin})
	require.NoError(t, err)

	gotID, roles, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, []string{RoleAdmin}, roles)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", "polycycle", time.Hour)
	other := NewTokenIssuer("secret-b", "polycycle", time.Hour)

	token, err := issuer.Issue(uuid.New(), nil)
	require.NoError(t, err)

	_, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestTokenRejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret", "polycycle", time.Hour)
	other := NewTokenIssuer("secret", "someone-else", time.Hour)

	token, err := issuer.Issue(uuid.New(), nil)
	require.NoError(t, err)

	_, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", "polycycle", -time.Minute)

	token, err := issuer.Issue(uuid.New(), nil)
	require.NoError(t, err)

	_, _, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestSessionIsAdmin(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.IsAdmin())

	u := &User{ID: uuid.New()}
	assert.False(t, (&Session{User: u}).IsAdmin())
	assert.False(t, (&Session{User: u, Roles: []string{"support"}}).IsAdmin())
	assert.True(t, (&Session{User: u, Roles: []string{"support", RoleAdmin}}).IsAdmin())
}
