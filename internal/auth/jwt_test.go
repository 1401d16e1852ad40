package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuthenticator_RoundTrip(t *testing.T) {
	a := NewJWTAuthenticator("s3cret", "pasal")

	tok, err := a.GenerateAccessToken(42, "merchant")
	require.NoError(t, err)

	parsed, err := a.ValidateAccessToken(tok)
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	id, role, err := Subject(parsed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "merchant", role)
}

func TestJWTAuthenticator_Rejects(t *testing.T) {
	a := NewJWTAuthenticator("s3cret", "pasal")

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewJWTAuthenticator("other", "pasal").GenerateAccessToken(1, "admin")
		require.NoError(t, err)
		_, err = a.ValidateAccessToken(tok)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		tok, err := NewJWTAuthenticator("s3cret", "elsewhere").GenerateAccessToken(1, "admin")
		require.NoError(t, err)
		_, err = a.ValidateAccessToken(tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": 1, "iss": "pasal", "exp": time.Now().Add(-time.Minute).Unix(),
		})
		s, err := tok.SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = a.ValidateAccessToken(s)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("missing exp", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 1, "iss": "pasal"})
		s, err := tok.SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = a.ValidateAccessToken(s)
		assert.Error(t, err)
	})
}

func TestSubject_MissingSub(t *testing.T) {
	_, _, err := Subject(&jwt.Token{Claims: jwt.MapClaims{"role": "admin"}})
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
