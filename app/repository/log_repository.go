package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
)

// auditLogRepository implements the AuditLogRepository interface
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository instance
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create records an admin action
func (r *auditLogRepository) Create(entry *models.AdminAuditLog) error {
	return r.db.Create(entry).Error
}

// List retrieves a paginated list of audit entries, newest first
func (r *auditLogRepository) List(offset, limit int) ([]models.AdminAuditLog, error) {
	var entries []models.AdminAuditLog
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

// DeleteOlderThan removes audit entries past the retention cutoff
func (r *auditLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&models.AdminAuditLog{})
	return result.RowsAffected, result.Error
}

// requestLogRepository implements the RequestLogRepository interface
type requestLogRepository struct {
	db *gorm.DB
}

// NewRequestLogRepository creates a new request log repository instance
func NewRequestLogRepository(db *gorm.DB) RequestLogRepository {
	return &requestLogRepository{db: db}
}

// Create records an API request
func (r *requestLogRepository) Create(entry *models.APIRequestLog) error {
	return r.db.Create(entry).Error
}

// CountSince counts API requests recorded after the given time
func (r *requestLogRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.APIRequestLog{}).
		Where("timestamp >= ?", since).
		Count(&count).Error
	return count, err
}

// DeleteOlderThan removes request logs past the retention cutoff
func (r *requestLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", cutoff).Delete(&models.APIRequestLog{})
	return result.RowsAffected, result.Error
}
