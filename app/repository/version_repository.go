package repository

import (
	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
)

// versionRepository implements the VersionRepository interface
type versionRepository struct {
	db *gorm.DB
}

// NewVersionRepository creates a new version repository instance
func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &versionRepository{db: db}
}

// Create creates a new version in the database
func (r *versionRepository) Create(version *models.Version) error {
	return r.db.Create(version).Error
}

// GetByID retrieves a version by its ID
func (r *versionRepository) GetByID(id uint) (*models.Version, error) {
	var version models.Version
	err := r.db.First(&version, id).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetByAddonAndVersion retrieves a specific version of an addon
func (r *versionRepository) GetByAddonAndVersion(addonID uint, versionStr string) (*models.Version, error) {
	var version models.Version
	err := r.db.Where("addon_id = ? AND version = ?", addonID, versionStr).First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// GetLatest retrieves the newest version of an addon
func (r *versionRepository) GetLatest(addonID uint) (*models.Version, error) {
	var version models.Version
	err := r.db.Where("addon_id = ?", addonID).
		Order("release_date DESC, created_at DESC").
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// ListByAddon retrieves a paginated list of versions, newest first
func (r *versionRepository) ListByAddon(addonID uint, offset, limit int) ([]models.Version, error) {
	var versions []models.Version
	err := r.db.Where("addon_id = ?", addonID).
		Order("release_date DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&versions).Error
	return versions, err
}

// CountByAddon returns the number of versions for an addon
func (r *versionRepository) CountByAddon(addonID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Version{}).Where("addon_id = ?", addonID).Count(&count).Error
	return count, err
}

// DeleteBeyondNewest removes every version of the addon beyond the keep
// newest ones, ordered by release date then creation time. Returns the
// number of deleted rows.
func (r *versionRepository) DeleteBeyondNewest(addonID uint, keep int) (int64, error) {
	if keep < 0 {
		return 0, nil
	}

	var keepIDs []uint
	err := r.db.Model(&models.Version{}).
		Where("addon_id = ?", addonID).
		Order("release_date DESC, created_at DESC").
		Limit(keep).
		Pluck("id", &keepIDs).Error
	if err != nil {
		return 0, err
	}

	query := r.db.Where("addon_id = ?", addonID)
	if len(keepIDs) > 0 {
		query = query.Where("id NOT IN ?", keepIDs)
	}

	result := query.Delete(&models.Version{})
	return result.RowsAffected, result.Error
}

// Update updates an existing version in the database
func (r *versionRepository) Update(version *models.Version) error {
	return r.db.Save(version).Error
}

// Delete removes a version permanently
func (r *versionRepository) Delete(id uint) error {
	return r.db.Delete(&models.Version{}, id).Error
}
