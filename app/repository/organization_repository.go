package repository

import (
	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
)

// organizationRepository implements the OrganizationRepository interface
type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new organization repository instance
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

// Create creates a new organization in the database
func (r *organizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

// GetByID retrieves an organization by its ID
func (r *organizationRepository) GetByID(id uint) (*models.Organization, error) {
	var org models.Organization
	err := r.db.First(&org, id).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetBySlug retrieves an organization by its slug
func (r *organizationRepository) GetBySlug(slug string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("slug = ?", slug).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByOwner retrieves the organization owned by a user
func (r *organizationRepository) GetByOwner(ownerID uint) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("owner_id = ?", ownerID).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// ListByMember retrieves every organization the user belongs to
func (r *organizationRepository) ListByMember(userID uint) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.db.
		Joins("JOIN organization_members ON organization_members.organization_id = organizations.id").
		Where("organization_members.user_id = ?", userID).
		Order("organizations.created_at ASC").
		Find(&orgs).Error
	return orgs, err
}

// Update updates an existing organization in the database
func (r *organizationRepository) Update(org *models.Organization) error {
	return r.db.Save(org).Error
}

// Delete removes an organization together with its membership rows
func (r *organizationRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", id).Delete(&models.OrganizationMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Organization{}, id).Error
	})
}

// AddMember adds a membership row
func (r *organizationRepository) AddMember(member *models.OrganizationMember) error {
	return r.db.Create(member).Error
}

// GetMember retrieves the membership row for a user in an organization
func (r *organizationRepository) GetMember(orgID, userID uint) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	err := r.db.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers retrieves all members of an organization, owner first
func (r *organizationRepository) ListMembers(orgID uint) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	err := r.db.Where("organization_id = ?", orgID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

// UpdateMember updates a membership row
func (r *organizationRepository) UpdateMember(member *models.OrganizationMember) error {
	return r.db.Save(member).Error
}

// RemoveMember deletes the membership row for a user
func (r *organizationRepository) RemoveMember(orgID, userID uint) error {
	return r.db.Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&models.OrganizationMember{}).Error
}

// CountMembers returns the number of members in an organization
func (r *organizationRepository) CountMembers(orgID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.OrganizationMember{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error
	return count, err
}

// CountAddons returns the number of addons held by an organization
func (r *organizationRepository) CountAddons(orgID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Addon{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error
	return count, err
}

// SumVersionBytes totals stored version bytes across the org's addons
func (r *organizationRepository) SumVersionBytes(orgID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.Version{}).
		Select("COALESCE(SUM(versions.storage_size_bytes), 0)").
		Joins("JOIN addons ON versions.addon_id = addons.id").
		Where("addons.organization_id = ?", orgID).
		Scan(&total).Error
	return total, err
}

// TransferAddonsToUser moves every org addon to the user's personal account
func (r *organizationRepository) TransferAddonsToUser(orgID, userID uint) (int64, error) {
	result := r.db.Model(&models.Addon{}).
		Where("organization_id = ?", orgID).
		Updates(map[string]interface{}{
			"organization_id": nil,
			"owner_id":        userID,
		})
	return result.RowsAffected, result.Error
}
