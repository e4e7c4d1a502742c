package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	raw, prefix, hash, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "pa_"))
	assert.Equal(t, raw[:10], prefix)
	assert.Equal(t, HashAPIKey(raw), hash)
	assert.Len(t, hash, 64)

	// Hashing is stable and whitespace-insensitive.
	assert.Equal(t, hash, HashAPIKey("  "+raw+"\n"))
}

func TestAPIKeyIsActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	k := &APIKey{}
	assert.True(t, k.IsActive(now))

	k = &APIKey{ExpiresAt: &future}
	assert.True(t, k.IsActive(now))

	k = &APIKey{ExpiresAt: &past}
	assert.False(t, k.IsActive(now))

	k = &APIKey{}
	k.Revoke()
	assert.False(t, k.IsActive(now))
	assert.NotNil(t, k.RevokedAt)
}

func TestAPIKeyScopes(t *testing.T) {
	k := &APIKey{}
	k.SetScopes([]string{SCOPE_ADDONS_READ, SCOPE_VERSIONS_WRITE})

	assert.True(t, k.HasScope(SCOPE_ADDONS_READ))
	assert.True(t, k.HasScope(SCOPE_VERSIONS_WRITE))
	assert.False(t, k.HasScope(SCOPE_WEBHOOKS_MANAGE))

	k.SetScopes([]string{SCOPE_FULL_ACCESS})
	assert.True(t, k.HasScope(SCOPE_WEBHOOKS_MANAGE))
	assert.True(t, k.HasScope(SCOPE_ADDONS_WRITE))

	empty := &APIKey{}
	assert.Nil(t, empty.ScopeList())
	assert.False(t, empty.HasScope(SCOPE_ADDONS_READ))
}
