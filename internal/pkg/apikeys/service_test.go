package apikeys

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

func newTestService(t *testing.T, tier entitlements.Tier) (*Service, *repository.Repositories, *models.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.APIKey{}))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	repos := repository.NewRepositories(db)
	user := &models.User{
		DiscordID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		DiscordUsername:  "keyholder",
		SubscriptionTier: string(tier),
	}
	require.NoError(t, db.Create(user).Error)
	return NewService(repos), repos, user
}

func TestIssueReturnsRawSecretOnce(t *testing.T) {
	service, repos, user := newTestService(t, entitlements.TierPro)

	raw, key, err := service.Issue(user, "ci key", nil, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "pa_"))
	assert.Equal(t, raw[:10], key.KeyPrefix)
	assert.Equal(t, models.HashAPIKey(raw), key.KeyHash)

	// The raw secret is recoverable only from the return value; the row
	// stores just the hash.
	stored, err := repos.APIKey.GetByHash(models.HashAPIKey(raw))
	require.NoError(t, err)
	assert.NotContains(t, stored.KeyHash, raw)
	assert.True(t, stored.IsActive(time.Now()))
}

func TestIssueDeniedOnFreeTier(t *testing.T) {
	service, _, user := newTestService(t, entitlements.TierFree)
	_, _, err := service.Issue(user, "nope", nil, nil)
	assert.ErrorIs(t, err, ErrKeysNotAvailable)
}

func TestIssueEnforcesKeyLimit(t *testing.T) {
	service, _, user := newTestService(t, entitlements.TierPro)

	for i := 0; i < 3; i++ {
		_, _, err := service.Issue(user, fmt.Sprintf("key %d", i), nil, nil)
		require.NoError(t, err)
	}
	_, _, err := service.Issue(user, "one too many", nil, nil)
	assert.ErrorIs(t, err, ErrKeyLimitReached)

	// Revoking a key frees a slot.
	keys, err := service.List(user)
	require.NoError(t, err)
	require.NoError(t, service.Revoke(user, keys[0].ID))

	_, _, err = service.Issue(user, "replacement", nil, nil)
	assert.NoError(t, err)
}

func TestIssueEnforcesScopesPerTier(t *testing.T) {
	proService, _, proUser := newTestService(t, entitlements.TierPro)
	_, _, err := proService.Issue(proUser, "too broad", []string{models.SCOPE_FULL_ACCESS}, nil)
	assert.ErrorIs(t, err, ErrScopeNotAllowed)

	_, key, err := proService.Issue(proUser, "scoped", []string{models.SCOPE_ADDONS_WRITE}, nil)
	require.NoError(t, err)
	assert.True(t, key.HasScope(models.SCOPE_ADDONS_WRITE))
	assert.False(t, key.HasScope(models.SCOPE_WEBHOOKS_MANAGE))

	premiumService, _, premiumUser := newTestService(t, entitlements.TierPremium)
	_, key, err = premiumService.Issue(premiumUser, "master", []string{models.SCOPE_FULL_ACCESS}, nil)
	require.NoError(t, err)
	assert.True(t, key.HasScope(models.SCOPE_ADDONS_WRITE), "full_access implies every scope")
}

func TestRevokeChecksOwnership(t *testing.T) {
	service, repos, user := newTestService(t, entitlements.TierPremium)

	_, key, err := service.Issue(user, "mine", nil, nil)
	require.NoError(t, err)

	stranger := &models.User{
		DiscordID:        fmt.Sprintf("%d", time.Now().UnixNano()+1),
		DiscordUsername:  "stranger",
		SubscriptionTier: string(entitlements.TierPro),
	}
	require.NoError(t, repos.User.Create(stranger))

	assert.ErrorIs(t, service.Revoke(stranger, key.ID), ErrKeyNotFound)
	assert.NoError(t, service.Revoke(user, key.ID))

	refreshed, err := repos.APIKey.GetByID(key.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsActive(time.Now()))
}

func TestExpiredKeyIsInactive(t *testing.T) {
	service, _, user := newTestService(t, entitlements.TierPro)

	past := time.Now().Add(-time.Hour)
	_, key, err := service.Issue(user, "stale", nil, &past)
	require.NoError(t, err)
	assert.False(t, key.IsActive(time.Now()))
}
