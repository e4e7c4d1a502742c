package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
)

// addonRepository implements the AddonRepository interface
type addonRepository struct {
	db *gorm.DB
}

// NewAddonRepository creates a new addon repository instance
func NewAddonRepository(db *gorm.DB) AddonRepository {
	return &addonRepository{db: db}
}

// Create creates a new addon in the database
func (r *addonRepository) Create(addon *models.Addon) error {
	return r.db.Create(addon).Error
}

// GetByID retrieves an addon by its ID
func (r *addonRepository) GetByID(id uint) (*models.Addon, error) {
	var addon models.Addon
	err := r.db.First(&addon, id).Error
	if err != nil {
		return nil, err
	}
	return &addon, nil
}

// GetBySlug retrieves an addon by its slug
func (r *addonRepository) GetBySlug(slug string) (*models.Addon, error) {
	var addon models.Addon
	err := r.db.Where("slug = ?", slug).First(&addon).Error
	if err != nil {
		return nil, err
	}
	return &addon, nil
}

// GetByOwner retrieves a paginated list of addons for an owner
func (r *addonRepository) GetByOwner(ownerID uint, offset, limit int) ([]models.Addon, error) {
	var addons []models.Addon
	err := r.db.Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&addons).Error
	return addons, err
}

// ListByOwnerWithVersions loads an owner's addons with all their versions
func (r *addonRepository) ListByOwnerWithVersions(ownerID uint) ([]models.Addon, error) {
	var addons []models.Addon
	err := r.db.Preload("Versions").
		Where("owner_id = ?", ownerID).
		Find(&addons).Error
	return addons, err
}

// ListPublic retrieves a paginated list of publicly visible addons
func (r *addonRepository) ListPublic(offset, limit int) ([]models.Addon, error) {
	var addons []models.Addon
	err := r.db.Where("is_public = ? AND is_active = ?", true, true).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&addons).Error
	return addons, err
}

// Update updates an existing addon in the database
func (r *addonRepository) Update(addon *models.Addon) error {
	return r.db.Save(addon).Error
}

// Delete soft deletes an addon and removes its versions
func (r *addonRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("addon_id = ?", id).Delete(&models.Version{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Addon{}, id).Error
	})
}

// Count returns the total number of addons
func (r *addonRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Addon{}).Count(&count).Error
	return count, err
}

// CountByOwner returns the number of addons owned by a user
func (r *addonRepository) CountByOwner(ownerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Addon{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

// TouchUpdatedAt bumps the addon's last-modified marker
func (r *addonRepository) TouchUpdatedAt(id uint, at time.Time) error {
	return r.db.Model(&models.Addon{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}
