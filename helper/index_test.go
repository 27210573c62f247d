package helper

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_manager/model"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(model.TokenClaim{Id: 42, Role: "admin"}, secret, time.Hour)
	require.NoError(t, err)

	claim, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, model.TokenClaim{Id: 42, Role: "admin"}, claim)
}

func TestParseTokenRejects(t *testing.T) {
	good, err := GenerateToken(model.TokenClaim{Id: 1, Role: "user"}, secret, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken(model.TokenClaim{Id: 1, Role: "user"}, secret, -time.Hour)
	require.NoError(t, err)

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 1, "exp": time.Now().Add(time.Hour).Unix()})
	noRoleStr, err := noRole.SignedString(secret)
	require.NoError(t, err)

	cases := map[string]struct {
		token  string
		secret []byte
	}{
		"wrong secret": {good, []byte("other")},
		"expired":      {expired, secret},
		"garbage":      {"not.a.token", secret},
		"missing role": {noRoleStr, secret},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(tc.token, tc.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)
	assert.True(t, CheckPasswordHash("admin123", hash))
	assert.False(t, CheckPasswordHash("admin124", hash))
}
