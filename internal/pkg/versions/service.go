// Package versions implements the version publishing workflow: semver
// validation, duplicate detection, storage quota and retention checks with
// automatic eviction of the oldest release.
package versions

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/quota"
	"github.com/plexdev/plexaddons-api/internal/pkg/semver"
	"github.com/plexdev/plexaddons-api/internal/pkg/webhook"
)

var (
	ErrInvalidVersion       = errors.New("version string is not valid semver")
	ErrDuplicateVersion     = errors.New("version already exists for this addon")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	ErrVersionLimitExceeded = errors.New("version limit exceeded")
	ErrVersionNotFound      = errors.New("version not found")
)

// PublishInput carries the user-supplied fields of a new release.
type PublishInput struct {
	Version          string
	ReleaseDate      time.Time
	DownloadURL      string
	ChangelogURL     string
	Description      string
	ChangelogContent string
	Breaking         bool
	Urgent           bool
}

// Service coordinates version writes against quotas and retention limits.
type Service struct {
	versions repository.VersionRepository
	addons   repository.AddonRepository
	enforcer *quota.Enforcer
	webhooks *webhook.Dispatcher
	now      func() time.Time
}

// NewService creates a version service.
func NewService(repos *repository.Repositories, enforcer *quota.Enforcer, webhooks *webhook.Dispatcher) *Service {
	return &Service{
		versions: repos.Version,
		addons:   repos.Addon,
		enforcer: enforcer,
		webhooks: webhooks,
		now:      time.Now,
	}
}

// Publish creates a new version of the addon owned by user. The write is
// gated by the owner's storage quota and version retention limit; when the
// addon already sits at its retention limit the single oldest release is
// evicted to make room. Deciding and writing are separate steps, so two
// concurrent publishes can both pass the quota check; the last write is
// still bounded by the next publish's recheck.
func (s *Service) Publish(addon *models.Addon, user *models.User, in PublishInput) (*models.Version, error) {
	if !semver.IsValid(in.Version) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, in.Version)
	}

	if _, err := s.versions.GetByAddonAndVersion(addon.ID, in.Version); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVersion, in.Version)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}

	tier := user.EffectiveTier(s.now())
	additional := int64(len(in.Description) + len(in.ChangelogContent))

	ok, err := s.enforcer.CheckStorageQuota(user.ID, tier, additional, 0)
	if err != nil {
		return nil, fmt.Errorf("storage quota check failed: %w", err)
	}
	if !ok {
		return nil, ErrStorageQuotaExceeded
	}

	ok, err = s.enforcer.CheckVersionLimit(addon.ID, tier)
	if err != nil {
		return nil, fmt.Errorf("version limit check failed: %w", err)
	}
	if !ok {
		evicted, err := s.enforcer.EvictOldestVersion(addon.ID, tier)
		if err != nil {
			return nil, fmt.Errorf("version eviction failed: %w", err)
		}
		if evicted == 0 {
			return nil, ErrVersionLimitExceeded
		}
		ok, err = s.enforcer.CheckVersionLimit(addon.ID, tier)
		if err != nil {
			return nil, fmt.Errorf("version limit recheck failed: %w", err)
		}
		if !ok {
			return nil, ErrVersionLimitExceeded
		}
	}

	releaseDate := in.ReleaseDate
	if releaseDate.IsZero() {
		releaseDate = s.now()
	}

	version := &models.Version{
		AddonID:          addon.ID,
		Version:          in.Version,
		ReleaseDate:      releaseDate,
		DownloadURL:      in.DownloadURL,
		ChangelogURL:     in.ChangelogURL,
		Description:      in.Description,
		ChangelogContent: in.ChangelogContent,
		Breaking:         in.Breaking,
		Urgent:           in.Urgent,
		StorageSizeBytes: additional,
	}
	if err := version.Validate(); err != nil {
		return nil, fmt.Errorf("version validation failed: %w", err)
	}
	if err := s.versions.Create(version); err != nil {
		return nil, fmt.Errorf("version create failed: %w", err)
	}
	if err := s.addons.TouchUpdatedAt(addon.ID, s.now()); err != nil {
		return nil, fmt.Errorf("addon touch failed: %w", err)
	}
	if _, err := s.enforcer.SyncStorageCounter(user.ID); err != nil {
		return nil, fmt.Errorf("storage counter sync failed: %w", err)
	}

	s.webhooks.Notify(user, tier, webhook.EventVersionReleased, versionEventData(addon, version))
	return version, nil
}

// Update modifies an existing version. Quota accounting replaces the old
// content size with the new one, so shrinking an over-quota version is
// always allowed.
func (s *Service) Update(addon *models.Addon, user *models.User, versionID uint, in PublishInput) (*models.Version, error) {
	version, err := s.versions.GetByID(versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("version lookup failed: %w", err)
	}
	if version.AddonID != addon.ID {
		return nil, ErrVersionNotFound
	}

	tier := user.EffectiveTier(s.now())
	newSize := int64(len(in.Description) + len(in.ChangelogContent))

	ok, err := s.enforcer.CheckStorageQuota(user.ID, tier, newSize, version.ContentSizeBytes())
	if err != nil {
		return nil, fmt.Errorf("storage quota check failed: %w", err)
	}
	if !ok {
		return nil, ErrStorageQuotaExceeded
	}

	if !in.ReleaseDate.IsZero() {
		version.ReleaseDate = in.ReleaseDate
	}
	if in.DownloadURL != "" {
		version.DownloadURL = in.DownloadURL
	}
	version.ChangelogURL = in.ChangelogURL
	version.Description = in.Description
	version.ChangelogContent = in.ChangelogContent
	version.Breaking = in.Breaking
	version.Urgent = in.Urgent
	version.StorageSizeBytes = newSize

	if err := version.Validate(); err != nil {
		return nil, fmt.Errorf("version validation failed: %w", err)
	}
	if err := s.versions.Update(version); err != nil {
		return nil, fmt.Errorf("version update failed: %w", err)
	}
	if err := s.addons.TouchUpdatedAt(addon.ID, s.now()); err != nil {
		return nil, fmt.Errorf("addon touch failed: %w", err)
	}
	if _, err := s.enforcer.SyncStorageCounter(user.ID); err != nil {
		return nil, fmt.Errorf("storage counter sync failed: %w", err)
	}

	s.webhooks.Notify(user, tier, webhook.EventVersionUpdated, versionEventData(addon, version))
	return version, nil
}

// Delete removes a version and releases its storage.
func (s *Service) Delete(addon *models.Addon, user *models.User, versionID uint) error {
	version, err := s.versions.GetByID(versionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVersionNotFound
		}
		return fmt.Errorf("version lookup failed: %w", err)
	}
	if version.AddonID != addon.ID {
		return ErrVersionNotFound
	}

	if err := s.versions.Delete(version.ID); err != nil {
		return fmt.Errorf("version delete failed: %w", err)
	}
	if err := s.addons.TouchUpdatedAt(addon.ID, s.now()); err != nil {
		return fmt.Errorf("addon touch failed: %w", err)
	}
	if _, err := s.enforcer.SyncStorageCounter(user.ID); err != nil {
		return fmt.Errorf("storage counter sync failed: %w", err)
	}

	tier := user.EffectiveTier(s.now())
	s.webhooks.Notify(user, tier, webhook.EventVersionDeleted, versionEventData(addon, version))
	return nil
}

// Latest returns the newest version of an addon by release date.
func (s *Service) Latest(addonID uint) (*models.Version, error) {
	version, err := s.versions.GetLatest(addonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return version, nil
}

func versionEventData(addon *models.Addon, v *models.Version) map[string]interface{} {
	return map[string]interface{}{
		"addon_id":   addon.ID,
		"addon_slug": addon.Slug,
		"version":    v.Version,
		"breaking":   v.Breaking,
		"urgent":     v.Urgent,
	}
}
