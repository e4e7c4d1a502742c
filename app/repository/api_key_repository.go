package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
)

// apiKeyRepository implements the APIKeyRepository interface
type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new API key repository instance
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

// Create creates a new API key in the database
func (r *apiKeyRepository) Create(key *models.APIKey) error {
	return r.db.Create(key).Error
}

// GetByID retrieves an API key by its ID
func (r *apiKeyRepository) GetByID(id uint) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.First(&key, id).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetByHash resolves a key hash to its record
func (r *apiKeyRepository) GetByHash(hash string) (*models.APIKey, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var key models.APIKey
	err := r.db.Where("key_hash = ?", trimmed).First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListByUser retrieves all API keys belonging to a user
func (r *apiKeyRepository) ListByUser(userID uint) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// CountActiveByUser counts the user's keys that are not revoked
func (r *apiKeyRepository) CountActiveByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.APIKey{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// Update updates an existing API key in the database
func (r *apiKeyRepository) Update(key *models.APIKey) error {
	return r.db.Save(key).Error
}
