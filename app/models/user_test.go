package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

func TestUserEffectiveTier(t *testing.T) {
	now := time.Now()

	u := &User{SubscriptionTier: "free"}
	assert.Equal(t, entitlements.TierFree, u.EffectiveTier(now))

	u.GrantTempTier(entitlements.TierPremium, now.Add(7*24*time.Hour), 1)
	assert.Equal(t, entitlements.TierPremium, u.EffectiveTier(now))
	assert.NotNil(t, u.TempTierGrantedAt)

	// Simulated clock advance past the grant expiry: silently reverts
	// without any revoke call.
	assert.Equal(t, entitlements.TierFree, u.EffectiveTier(now.Add(8*24*time.Hour)))

	u.RevokeTempTier()
	assert.Equal(t, entitlements.TierFree, u.EffectiveTier(now))
	assert.Empty(t, u.TempTier)
	assert.Nil(t, u.TempTierExpiresAt)
}

func TestUserValidate(t *testing.T) {
	u := &User{
		DiscordID:        "123456789012345678",
		DiscordUsername:  "tester",
		SubscriptionTier: "free",
	}
	assert.NoError(t, u.Validate())

	u.SubscriptionTier = "platinum"
	assert.Error(t, u.Validate())
}
