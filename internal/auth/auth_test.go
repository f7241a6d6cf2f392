package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("hunter2", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", "user-123", "admin")
	require.NoError(t, err)

	claims, err := ValidateJWT("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret", "user-123", "user")
	require.NoError(t, err)

	_, err = ValidateJWT("other-secret", token)
	assert.Error(t, err)
}

func TestJWTRejectsGarbage(t *testing.T) {
	_, err := ValidateJWT("secret", "not.a.token")
	assert.Error(t, err)
}
