package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_RoundTrip(t *testing.T) {
	t.Parallel()

	a, err := NewAuthenticator("s3cret", "orderdesk")
	require.NoError(t, err)

	token, err := a.GenerateToken("op-1", "op@example.com", time.Hour)
	require.NoError(t, err)

	id, err := a.FromHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", id.Subject)
	assert.Equal(t, "op@example.com", id.Email)
}

func TestAuthenticator_Rejects(t *testing.T) {
	t.Parallel()

	a, err := NewAuthenticator("s3cret", "orderdesk")
	require.NoError(t, err)

	other, err := NewAuthenticator("other", "orderdesk")
	require.NoError(t, err)
	foreign, err := other.GenerateToken("op-1", "", time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewAuthenticator("s3cret", "someone-else")
	require.NoError(t, err)
	misissued, err := wrongIssuer.GenerateToken("op-1", "", time.Hour)
	require.NoError(t, err)

	expired, err := a.GenerateToken("op-1", "", -time.Minute)
	require.NoError(t, err)

	noSubject, err := a.GenerateToken("", "", time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "op-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"foreign key": foreign,
		"issuer":      misissued,
		"expired":     expired,
		"no subject":  noSubject,
		"alg none":    unsigned,
		"garbage":     "not.a.token",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = a.FromHeader("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = a.FromHeader("Basic abc")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNewAuthenticator_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewAuthenticator("", "")
	assert.Error(t, err)
}

func TestContextIdentity(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), &Identity{Subject: "op-1"})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "op-1", id.Subject)
}
