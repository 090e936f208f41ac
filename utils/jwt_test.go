package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry-backend/models"
)

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("round-trip-secret")

	token, err := GenerateToken(42, models.RoleDriver)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, models.RoleDriver, claims.Role)
	assert.Equal(t, "laundry-backend", claims.Issuer)
}

func TestParseTokenRejectsTampering(t *testing.T) {
	SetJWTSecret("round-trip-secret")
	token, err := GenerateToken(7, models.RoleWorker)
	require.NoError(t, err)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)

	SetJWTSecret("a-different-secret")
	_, err = ParseToken(token)
	assert.Error(t, err)
}
