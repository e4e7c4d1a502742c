package addons

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
	"github.com/plexdev/plexaddons-api/internal/pkg/quota"
	"github.com/plexdev/plexaddons-api/internal/pkg/webhook"
)

func newTestService(t *testing.T, quotas entitlements.Quotas) (*Service, *repository.Repositories, *models.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Addon{},
		&models.Version{},
		&models.Ticket{},
		&models.TicketMessage{},
		&models.TicketAttachment{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	repos := repository.NewRepositories(db)
	service := NewService(repos, quota.NewEnforcer(repos, quotas), webhook.NewDispatcher())

	user := &models.User{
		DiscordID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		DiscordUsername:  "creator",
		SubscriptionTier: string(entitlements.TierFree),
	}
	require.NoError(t, db.Create(user).Error)
	return service, repos, user
}

func freeQuotas() entitlements.Quotas {
	return entitlements.Quotas{
		Free:    entitlements.Limits{StorageQuotaBytes: 5 * 1024 * 1024, VersionLimit: 3},
		Pro:     entitlements.Limits{StorageQuotaBytes: 100 * 1024 * 1024, VersionLimit: 10},
		Premium: entitlements.Limits{StorageQuotaBytes: 1024 * 1024 * 1024, VersionLimit: entitlements.VersionLimitUnlimited},
	}
}

func TestCreateAssignsSlug(t *testing.T) {
	service, _, user := newTestService(t, freeQuotas())

	name := fmt.Sprintf("Trakt Sync %d", time.Now().UnixNano())
	addon, err := service.Create(user, CreateInput{Name: name, Description: "sync watched state", IsPublic: true})
	require.NoError(t, err)
	assert.NotEmpty(t, addon.Slug)
	assert.Equal(t, user.ID, addon.OwnerID)
	assert.True(t, addon.IsActive)
}

func TestCreateResolvesSlugCollision(t *testing.T) {
	service, _, user := newTestService(t, freeQuotas())

	name := fmt.Sprintf("Collider %d", time.Now().UnixNano())
	first, err := service.Create(user, CreateInput{Name: name})
	require.NoError(t, err)

	second, err := service.Create(user, CreateInput{Name: name})
	require.NoError(t, err)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Equal(t, first.Slug+"-2", second.Slug)
}

func TestCreateRejectsUnslugifiableName(t *testing.T) {
	service, _, user := newTestService(t, freeQuotas())
	_, err := service.Create(user, CreateInput{Name: "---"})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateRejectsOverQuota(t *testing.T) {
	quotas := freeQuotas()
	quotas.Free.StorageQuotaBytes = 10
	service, _, user := newTestService(t, quotas)

	_, err := service.Create(user, CreateInput{Name: "Way Too Big", Description: "this does not fit in ten bytes"})
	assert.ErrorIs(t, err, ErrStorageQuotaExceeded)
}

func TestUpdateChecksOwnership(t *testing.T) {
	service, repos, user := newTestService(t, freeQuotas())

	addon, err := service.Create(user, CreateInput{Name: fmt.Sprintf("Mine %d", time.Now().UnixNano())})
	require.NoError(t, err)

	stranger := &models.User{
		DiscordID:       fmt.Sprintf("%d", time.Now().UnixNano()+1),
		DiscordUsername: "stranger",
	}
	require.NoError(t, repos.User.Create(stranger))

	desc := "hijacked"
	_, err = service.Update(addon, stranger, UpdateInput{Description: &desc})
	assert.ErrorIs(t, err, ErrNotOwner)

	// Admins may edit any addon.
	stranger.IsAdmin = true
	updated, err := service.Update(addon, stranger, UpdateInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "hijacked", updated.Description)
}

func TestUpdateReslugsOnRename(t *testing.T) {
	service, _, user := newTestService(t, freeQuotas())

	addon, err := service.Create(user, CreateInput{Name: fmt.Sprintf("Old Name %d", time.Now().UnixNano())})
	require.NoError(t, err)
	oldSlug := addon.Slug

	newName := fmt.Sprintf("New Name %d", time.Now().UnixNano())
	updated, err := service.Update(addon, user, UpdateInput{Name: &newName})
	require.NoError(t, err)
	assert.NotEqual(t, oldSlug, updated.Slug)
	assert.Equal(t, newName, updated.Name)
}

func TestDeleteCascadesToVersions(t *testing.T) {
	service, repos, user := newTestService(t, freeQuotas())

	addon, err := service.Create(user, CreateInput{Name: fmt.Sprintf("Doomed %d", time.Now().UnixNano())})
	require.NoError(t, err)

	v := &models.Version{
		AddonID:     addon.ID,
		Version:     "1.0.0",
		ReleaseDate: time.Now(),
		DownloadURL: "https://example.com/v1",
	}
	require.NoError(t, repos.Version.Create(v))

	require.NoError(t, service.Delete(addon, user))

	count, err := repos.Version.CountByAddon(addon.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = service.GetBySlug(addon.Slug)
	assert.ErrorIs(t, err, ErrAddonNotFound)
}
