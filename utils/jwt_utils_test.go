package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, role, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	assert.Equal(t, RoleAdmin, role)
}

func TestParseToken_Garbage(t *testing.T) {
	_, _, err := ParseToken("not.a.token")
	assert.Error(t, err)
}
