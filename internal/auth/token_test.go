package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinehub/internal/models"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(models.User{UserUID: 7, Username: "ann", UserEmail: "ann@example.com", UserTier: models.AdminTier})
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserUID)
	assert.Equal(t, "ann@example.com", claims.UserEmail)

	id := claims.Identity()
	assert.EqualValues(t, 7, id.UserUID)
	assert.Equal(t, "ann", id.Username)
	assert.True(t, id.IsAdmin)
}

func TestParseRejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(models.User{UserUID: 7})
	require.NoError(t, err)

	t.Run("WrongSecret", func(t *testing.T) {
		_, err := NewTokenIssuer("other", time.Hour).Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		late := NewTokenIssuer("secret", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserUID: 7})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Anonymous", func(t *testing.T) {
		raw, err := issuer.Issue(models.User{})
		require.NoError(t, err)
		_, err = issuer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
