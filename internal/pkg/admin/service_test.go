package admin

import (
	"fmt"
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

func newTestService(t *testing.T) (*Service, *repository.Repositories, *models.User, *models.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AdminAuditLog{}))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	repos := repository.NewRepositories(db)
	admin := &models.User{
		DiscordID:       fmt.Sprintf("%d", time.Now().UnixNano()),
		DiscordUsername: "admin",
		IsAdmin:         true,
	}
	require.NoError(t, db.Create(admin).Error)

	user := &models.User{
		DiscordID:        fmt.Sprintf("%d", time.Now().UnixNano()+1),
		DiscordUsername:  "member",
		SubscriptionTier: string(entitlements.TierFree),
	}
	require.NoError(t, db.Create(user).Error)

	return NewService(repos), repos, admin, user
}

func TestGrantTempTier(t *testing.T) {
	service, repos, admin, user := newTestService(t)

	granted, err := service.GrantTempTier(admin, user.ID, entitlements.TierPremium, 7*24*time.Hour, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, string(entitlements.TierPremium), granted.TempTier)
	assert.Equal(t, entitlements.TierPremium, granted.EffectiveTier(time.Now()))
	assert.Equal(t, string(entitlements.TierFree), granted.SubscriptionTier, "persisted tier is untouched")

	// Past the expiry the effective tier reverts without a revoke call.
	assert.Equal(t, entitlements.TierFree, granted.EffectiveTier(time.Now().Add(8*24*time.Hour)))

	entries, err := repos.AuditLog.List(0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "temp_tier_grant", entries[0].Action)
	assert.Equal(t, admin.ID, *entries[0].AdminID)
	assert.Equal(t, user.ID, *entries[0].TargetID)
}

func TestGrantRejectsBadDuration(t *testing.T) {
	service, _, admin, user := newTestService(t)
	_, err := service.GrantTempTier(admin, user.ID, entitlements.TierPro, 0, "")
	assert.ErrorIs(t, err, ErrBadDuration)
}

func TestGrantUnknownUser(t *testing.T) {
	service, _, admin, _ := newTestService(t)
	_, err := service.GrantTempTier(admin, 999999, entitlements.TierPro, time.Hour, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRevokeTempTier(t *testing.T) {
	service, repos, admin, user := newTestService(t)

	_, err := service.GrantTempTier(admin, user.ID, entitlements.TierPro, time.Hour, "")
	require.NoError(t, err)

	revoked, err := service.RevokeTempTier(admin, user.ID, "10.0.0.1")
	require.NoError(t, err)
	assert.Empty(t, revoked.TempTier)
	assert.Equal(t, entitlements.TierFree, revoked.EffectiveTier(time.Now()))

	entries, err := repos.AuditLog.List(0, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
