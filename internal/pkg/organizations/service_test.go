package organizations

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

func newTestService(t *testing.T) (*Service, *repository.Repositories, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Addon{},
		&models.Version{},
		&models.Organization{},
		&models.OrganizationMember{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	repos := repository.NewRepositories(db)
	return NewService(repos), repos, db
}

func newTestUser(t *testing.T, db *gorm.DB, tier entitlements.Tier) *models.User {
	t.Helper()
	user := &models.User{
		DiscordID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		DiscordUsername:  fmt.Sprintf("member-%d", time.Now().UnixNano()),
		SubscriptionTier: string(tier),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestOrg(t *testing.T, s *Service, db *gorm.DB) (*models.Organization, *models.User) {
	t.Helper()
	owner := newTestUser(t, db, entitlements.TierPremium)
	org, err := s.Create(owner, CreateInput{Name: fmt.Sprintf("Team %d", time.Now().UnixNano())})
	require.NoError(t, err)
	return org, owner
}

func TestCreateRequiresPremium(t *testing.T) {
	s, _, db := newTestService(t)

	for _, tier := range []entitlements.Tier{entitlements.TierFree, entitlements.TierPro} {
		user := newTestUser(t, db, tier)
		_, err := s.Create(user, CreateInput{Name: "Blocked Team"})
		assert.ErrorIs(t, err, ErrTierForbidden, "tier %s", tier)
	}
}

func TestCreateEnrollsOwnerAsMember(t *testing.T) {
	s, repos, db := newTestService(t)

	org, owner := newTestOrg(t, s, db)
	assert.NotEmpty(t, org.Slug)
	assert.Equal(t, owner.ID, org.OwnerID)

	member, err := repos.Organization.GetMember(org.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ORG_ROLE_OWNER, member.Role)

	summary, err := s.Summarize(org)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.MemberCount)
	assert.Equal(t, int64(0), summary.AddonCount)
	assert.Equal(t, int64(0), summary.StorageUsedBytes)
}

func TestCreateRejectsSecondOrganization(t *testing.T) {
	s, _, db := newTestService(t)

	_, owner := newTestOrg(t, s, db)
	_, err := s.Create(owner, CreateInput{Name: fmt.Sprintf("Second Team %d", time.Now().UnixNano())})
	assert.ErrorIs(t, err, ErrAlreadyOwner)
}

func TestCreateRejectsTakenName(t *testing.T) {
	s, _, db := newTestService(t)

	org, _ := newTestOrg(t, s, db)
	other := newTestUser(t, db, entitlements.TierPremium)
	_, err := s.Create(other, CreateInput{Name: org.Name})
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestInviteMemberRoleRules(t *testing.T) {
	s, _, db := newTestService(t)
	org, owner := newTestOrg(t, s, db)

	invitee := newTestUser(t, db, entitlements.TierFree)
	member, enrolled, err := s.InviteMember(org, owner, invitee.DiscordUsername, "")
	require.NoError(t, err)
	assert.Equal(t, models.ORG_ROLE_MEMBER, member.Role)
	assert.Equal(t, invitee.ID, enrolled.ID)
	require.NotNil(t, member.InvitedByID)
	assert.Equal(t, owner.ID, *member.InvitedByID)

	// Double enrollment is rejected.
	_, _, err = s.InviteMember(org, owner, invitee.DiscordUsername, "")
	assert.ErrorIs(t, err, ErrAlreadyMember)

	// The owner role is never grantable.
	_, _, err = s.InviteMember(org, owner, newTestUser(t, db, entitlements.TierFree).DiscordUsername, models.ORG_ROLE_OWNER)
	assert.ErrorIs(t, err, ErrOwnerRole)

	// Unknown usernames surface as a dedicated error.
	_, _, err = s.InviteMember(org, owner, "no-such-user", "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// Plain members cannot invite at all.
	_, _, err = s.InviteMember(org, invitee, newTestUser(t, db, entitlements.TierFree).DiscordUsername, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// Org admins may invite members but not grant the admin role.
	orgAdmin := newTestUser(t, db, entitlements.TierFree)
	_, _, err = s.InviteMember(org, owner, orgAdmin.DiscordUsername, models.ORG_ROLE_ADMIN)
	require.NoError(t, err)
	_, _, err = s.InviteMember(org, orgAdmin, newTestUser(t, db, entitlements.TierFree).DiscordUsername, models.ORG_ROLE_ADMIN)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, _, err = s.InviteMember(org, orgAdmin, newTestUser(t, db, entitlements.TierFree).DiscordUsername, "")
	assert.NoError(t, err)
}

func TestUpdateMemberRoleOwnerOnly(t *testing.T) {
	s, _, db := newTestService(t)
	org, owner := newTestOrg(t, s, db)

	invitee := newTestUser(t, db, entitlements.TierFree)
	_, _, err := s.InviteMember(org, owner, invitee.DiscordUsername, "")
	require.NoError(t, err)

	// Non-owners cannot change roles, not even their own.
	_, err = s.UpdateMemberRole(org, invitee, invitee.ID, models.ORG_ROLE_ADMIN)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	updated, err := s.UpdateMemberRole(org, owner, invitee.ID, models.ORG_ROLE_ADMIN)
	require.NoError(t, err)
	assert.Equal(t, models.ORG_ROLE_ADMIN, updated.Role)

	// The owner's own row is immutable.
	_, err = s.UpdateMemberRole(org, owner, owner.ID, models.ORG_ROLE_MEMBER)
	assert.ErrorIs(t, err, ErrOwnerRole)
}

func TestRemoveMember(t *testing.T) {
	s, repos, db := newTestService(t)
	org, owner := newTestOrg(t, s, db)

	first := newTestUser(t, db, entitlements.TierFree)
	second := newTestUser(t, db, entitlements.TierFree)
	_, _, err := s.InviteMember(org, owner, first.DiscordUsername, "")
	require.NoError(t, err)
	_, _, err = s.InviteMember(org, owner, second.DiscordUsername, "")
	require.NoError(t, err)

	// A plain member cannot remove someone else.
	err = s.RemoveMember(org, first, second.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// But may always leave on their own.
	require.NoError(t, s.RemoveMember(org, first, first.ID))
	_, err = repos.Organization.GetMember(org.ID, first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The owner can remove members but never themselves.
	require.NoError(t, s.RemoveMember(org, owner, second.ID))
	err = s.RemoveMember(org, owner, owner.ID)
	assert.ErrorIs(t, err, ErrOwnerRole)
}

func TestDetailRequiresMembership(t *testing.T) {
	s, _, db := newTestService(t)
	org, owner := newTestOrg(t, s, db)

	outsider := newTestUser(t, db, entitlements.TierFree)
	_, _, err := s.Detail(org, outsider.ID)
	assert.ErrorIs(t, err, ErrNotMember)

	summary, roster, err := s.Detail(org, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.MemberCount)
	require.Len(t, roster, 1)
	assert.Equal(t, owner.DiscordUsername, roster[0].DiscordUsername)
}

func TestSummarizeCountsOrgAddonStorage(t *testing.T) {
	s, _, db := newTestService(t)
	org, owner := newTestOrg(t, s, db)

	orgID := org.ID
	addon := &models.Addon{
		OwnerID:        owner.ID,
		OrganizationID: &orgID,
		Name:           fmt.Sprintf("Team Addon %d", time.Now().UnixNano()),
		Slug:           fmt.Sprintf("team-addon-%d", time.Now().UnixNano()),
	}
	require.NoError(t, db.Create(addon).Error)
	require.NoError(t, db.Create(&models.Version{
		AddonID:          addon.ID,
		Version:          "1.0.0",
		DownloadURL:      "https://example.com/team-addon-1.0.0.zip",
		StorageSizeBytes: 2048,
	}).Error)

	// A personal addon of the same owner must not count.
	personal := &models.Addon{
		OwnerID: owner.ID,
		Name:    fmt.Sprintf("Personal %d", time.Now().UnixNano()),
		Slug:    fmt.Sprintf("personal-%d", time.Now().UnixNano()),
	}
	require.NoError(t, db.Create(personal).Error)
	require.NoError(t, db.Create(&models.Version{
		AddonID:          personal.ID,
		Version:          "1.0.0",
		DownloadURL:      "https://example.com/personal-1.0.0.zip",
		StorageSizeBytes: 512,
	}).Error)

	summary, err := s.Summarize(org)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.AddonCount)
	assert.Equal(t, int64(2048), summary.StorageUsedBytes)
}

func TestDeleteTransfersAddonsToOwner(t *testing.T) {
	s, repos, db := newTestService(t)
	org, owner := newTestOrg(t, s, db)

	member := newTestUser(t, db, entitlements.TierFree)
	_, _, err := s.InviteMember(org, owner, member.DiscordUsername, "")
	require.NoError(t, err)

	orgID := org.ID
	addon := &models.Addon{
		OwnerID:        member.ID,
		OrganizationID: &orgID,
		Name:           fmt.Sprintf("Orphan Watch %d", time.Now().UnixNano()),
		Slug:           fmt.Sprintf("orphan-watch-%d", time.Now().UnixNano()),
	}
	require.NoError(t, db.Create(addon).Error)

	// Only the owner can delete.
	err = s.Delete(org, member)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, s.Delete(org, owner))

	_, err = s.GetBySlug(org.Slug)
	assert.ErrorIs(t, err, ErrOrgNotFound)

	// Addons fall back to the owner's personal account.
	kept, err := repos.Addon.GetByID(addon.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.OrganizationID)
	assert.Equal(t, owner.ID, kept.OwnerID)

	// Membership rows are gone with the org.
	_, err = repos.Organization.GetMember(org.ID, member.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
