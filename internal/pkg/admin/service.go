// Package admin implements privileged operations: temporary tier grants and
// revocations, each recorded in the audit log.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrBadDuration  = errors.New("grant duration must be positive")
)

type Service struct {
	users repository.UserRepository
	audit repository.AuditLogRepository
	now   func() time.Time
}

func NewService(repos *repository.Repositories) *Service {
	return &Service{users: repos.User, audit: repos.AuditLog, now: time.Now}
}

// GrantTempTier gives a user a temporary tier for the given duration. The
// grant applies immediately through EffectiveTier and reverts lazily once
// the expiry passes.
func (s *Service) GrantTempTier(admin *models.User, userID uint, tier entitlements.Tier, duration time.Duration, clientIP string) (*models.User, error) {
	if duration <= 0 {
		return nil, ErrBadDuration
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	expiresAt := s.now().Add(duration)
	user.GrantTempTier(entitlements.NormalizeTier(string(tier)), expiresAt, admin.ID)
	if err := s.users.Update(user); err != nil {
		return nil, fmt.Errorf("temp tier grant failed: %w", err)
	}

	s.writeAudit(admin, "temp_tier_grant", "user", user.ID, clientIP, map[string]interface{}{
		"tier":       tier,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
	return user, nil
}

// RevokeTempTier removes a user's temporary tier grant immediately.
func (s *Service) RevokeTempTier(admin *models.User, userID uint, clientIP string) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	revoked := user.TempTier
	user.RevokeTempTier()
	if err := s.users.Update(user); err != nil {
		return nil, fmt.Errorf("temp tier revoke failed: %w", err)
	}

	s.writeAudit(admin, "temp_tier_revoke", "user", user.ID, clientIP, map[string]interface{}{
		"revoked_tier": revoked,
	})
	return user, nil
}

// ListAuditLog returns recent audit entries, newest first.
func (s *Service) ListAuditLog(offset, limit int) ([]models.AdminAuditLog, error) {
	return s.audit.List(offset, limit)
}

func (s *Service) writeAudit(admin *models.User, action, targetType string, targetID uint, clientIP string, details map[string]interface{}) {
	detailsJSON, _ := json.Marshal(details)
	adminID := admin.ID
	entry := &models.AdminAuditLog{
		AdminID:    &adminID,
		Action:     action,
		TargetType: targetType,
		TargetID:   &targetID,
		Details:    string(detailsJSON),
		IPAddress:  clientIP,
	}
	// Audit writes are best-effort; the admin action itself already
	// succeeded.
	_ = s.audit.Create(entry)
}
