// Package addons implements addon lifecycle: creation with slug assignment,
// updates gated by ownership and storage quota, deletion with cascade.
package addons

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/quota"
	"github.com/plexdev/plexaddons-api/internal/pkg/utils"
	"github.com/plexdev/plexaddons-api/internal/pkg/webhook"
)

var (
	ErrAddonNotFound        = errors.New("addon not found")
	ErrNotOwner             = errors.New("not the addon owner")
	ErrInvalidName          = errors.New("addon name cannot be slugified")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
)

// CreateInput carries the user-supplied fields of a new addon.
type CreateInput struct {
	Name        string
	Description string
	Homepage    string
	External    bool
	IsPublic    bool
}

// UpdateInput carries the updatable fields. Nil pointers leave the current
// value untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	Homepage    *string
	External    *bool
	IsActive    *bool
	IsPublic    *bool
}

type Service struct {
	addons   repository.AddonRepository
	enforcer *quota.Enforcer
	webhooks *webhook.Dispatcher
	now      func() time.Time
}

func NewService(repos *repository.Repositories, enforcer *quota.Enforcer, webhooks *webhook.Dispatcher) *Service {
	return &Service{
		addons:   repos.Addon,
		enforcer: enforcer,
		webhooks: webhooks,
		now:      time.Now,
	}
}

// Create registers a new addon for the user. The slug is derived from the
// name; on collision a numeric suffix is appended.
func (s *Service) Create(user *models.User, in CreateInput) (*models.Addon, error) {
	slug, err := s.uniqueSlug(in.Name)
	if err != nil {
		return nil, err
	}

	tier := user.EffectiveTier(s.now())
	additional := int64(len(in.Name) + len(slug) + len(in.Description) + len(in.Homepage))
	ok, err := s.enforcer.CheckStorageQuota(user.ID, tier, additional, 0)
	if err != nil {
		return nil, fmt.Errorf("storage quota check failed: %w", err)
	}
	if !ok {
		return nil, ErrStorageQuotaExceeded
	}

	addon := &models.Addon{
		OwnerID:     user.ID,
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		Homepage:    in.Homepage,
		External:    in.External,
		IsActive:    true,
		IsPublic:    in.IsPublic,
	}
	if err := addon.Validate(); err != nil {
		return nil, fmt.Errorf("addon validation failed: %w", err)
	}
	if err := s.addons.Create(addon); err != nil {
		return nil, fmt.Errorf("addon create failed: %w", err)
	}
	if _, err := s.enforcer.SyncStorageCounter(user.ID); err != nil {
		return nil, fmt.Errorf("storage counter sync failed: %w", err)
	}

	s.webhooks.Notify(user, tier, webhook.EventAddonCreated, addonEventData(addon))
	return addon, nil
}

// Update modifies an addon owned by the user. Admins may update any addon.
// Renaming re-derives the slug.
func (s *Service) Update(addon *models.Addon, user *models.User, in UpdateInput) (*models.Addon, error) {
	if addon.OwnerID != user.ID && !user.IsAdmin {
		return nil, ErrNotOwner
	}

	name := addon.Name
	if in.Name != nil {
		name = *in.Name
	}
	description := addon.Description
	if in.Description != nil {
		description = *in.Description
	}
	homepage := addon.Homepage
	if in.Homepage != nil {
		homepage = *in.Homepage
	}

	slug := addon.Slug
	if in.Name != nil && *in.Name != addon.Name {
		newSlug, err := s.uniqueSlug(name)
		if err != nil {
			return nil, err
		}
		slug = newSlug
	}

	tier := user.EffectiveTier(s.now())
	replacing := int64(len(addon.Name) + len(addon.Slug) + len(addon.Description) + len(addon.Homepage))
	additional := int64(len(name) + len(slug) + len(description) + len(homepage))
	ok, err := s.enforcer.CheckStorageQuota(addon.OwnerID, tier, additional, replacing)
	if err != nil {
		return nil, fmt.Errorf("storage quota check failed: %w", err)
	}
	if !ok {
		return nil, ErrStorageQuotaExceeded
	}

	addon.Name = name
	addon.Slug = slug
	addon.Description = description
	addon.Homepage = homepage
	if in.External != nil {
		addon.External = *in.External
	}
	if in.IsActive != nil {
		addon.IsActive = *in.IsActive
	}
	if in.IsPublic != nil {
		addon.IsPublic = *in.IsPublic
	}

	if err := addon.Validate(); err != nil {
		return nil, fmt.Errorf("addon validation failed: %w", err)
	}
	if err := s.addons.Update(addon); err != nil {
		return nil, fmt.Errorf("addon update failed: %w", err)
	}
	if _, err := s.enforcer.SyncStorageCounter(addon.OwnerID); err != nil {
		return nil, fmt.Errorf("storage counter sync failed: %w", err)
	}

	s.webhooks.Notify(user, tier, webhook.EventAddonUpdated, addonEventData(addon))
	return addon, nil
}

// Delete removes an addon and all its versions, releasing their storage.
func (s *Service) Delete(addon *models.Addon, user *models.User) error {
	if addon.OwnerID != user.ID && !user.IsAdmin {
		return ErrNotOwner
	}

	if err := s.addons.Delete(addon.ID); err != nil {
		return fmt.Errorf("addon delete failed: %w", err)
	}
	if _, err := s.enforcer.SyncStorageCounter(addon.OwnerID); err != nil {
		return fmt.Errorf("storage counter sync failed: %w", err)
	}

	s.webhooks.Notify(user, user.EffectiveTier(s.now()), webhook.EventAddonDeleted, addonEventData(addon))
	return nil
}

// GetBySlug loads an addon by its public slug.
func (s *Service) GetBySlug(slug string) (*models.Addon, error) {
	addon, err := s.addons.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddonNotFound
		}
		return nil, err
	}
	return addon, nil
}

func (s *Service) uniqueSlug(name string) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		return "", ErrInvalidName
	}

	slug := base
	for i := 2; ; i++ {
		_, err := s.addons.GetBySlug(slug)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", fmt.Errorf("slug lookup failed: %w", err)
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func addonEventData(addon *models.Addon) map[string]interface{} {
	return map[string]interface{}{
		"addon_id": addon.ID,
		"slug":     addon.Slug,
		"name":     addon.Name,
	}
}
