package service

import (
	"testing"
	"time"

	"photoquest/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	a, err := NewJWTAuthenticator("secret", time.Hour)
	require.NoError(t, err)

	token, err := a.IssueToken(domain.Principal{UserID: 42, Role: domain.RoleAdmin})
	require.NoError(t, err)

	p, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
	assert.True(t, p.IsAdmin())
}

func TestJWTRejects(t *testing.T) {
	a, err := NewJWTAuthenticator("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewJWTAuthenticator("other-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.IssueToken(domain.Principal{UserID: 1, Role: domain.RoleUser})
	require.NoError(t, err)

	issued := time.Now().Add(-2 * time.Hour)
	old, err := NewJWTAuthenticator("secret", time.Hour)
	require.NoError(t, err)
	old.now = func() time.Time { return issued }
	expired, err := old.IssueToken(domain.Principal{UserID: 1, Role: domain.RoleUser})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{UserID: 1, Role: domain.RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badRole, err := a.IssueToken(domain.Principal{UserID: 1, Role: "root"})
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":   "not-a-token",
		"wrong key": foreign,
		"expired":   expired,
		"alg none":  none,
		"bad role":  badRole,
	} {
		_, err := a.VerifyToken(token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, name)
	}
}

func TestNewJWTAuthenticatorRequiresSecret(t *testing.T) {
	_, err := NewJWTAuthenticator("", time.Hour)
	assert.Error(t, err)
}
