package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTokenRoundtrip(t *testing.T) {
	token, err := makeStateToken("state-secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, verifyStateToken("state-secret", token))
}

func TestStateTokenRejectsWrongSecret(t *testing.T) {
	token, err := makeStateToken("state-secret")
	require.NoError(t, err)

	assert.Error(t, verifyStateToken("other-secret", token))
}

func TestStateTokenRejectsTampering(t *testing.T) {
	token, err := makeStateToken("state-secret")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	assert.Error(t, verifyStateToken("state-secret", tampered))
}

func TestStateTokenRejectsGarbage(t *testing.T) {
	assert.Error(t, verifyStateToken("state-secret", ""))
	assert.Error(t, verifyStateToken("state-secret", "not-a-jwt"))
}
