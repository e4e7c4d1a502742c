// Package apikeys issues and revokes user API keys within per-tier limits.
package apikeys

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

var (
	ErrKeysNotAvailable = errors.New("api keys are not available on this tier")
	ErrKeyLimitReached  = errors.New("api key limit reached")
	ErrScopeNotAllowed  = errors.New("scope not allowed on this tier")
	ErrKeyNotFound      = errors.New("api key not found")
)

// proScopes are the scopes a pro key may carry. Premium keys may carry any
// scope including full_access.
var proScopes = map[string]bool{
	models.SCOPE_ADDONS_READ:    true,
	models.SCOPE_ADDONS_WRITE:   true,
	models.SCOPE_VERSIONS_READ:  true,
	models.SCOPE_VERSIONS_WRITE: true,
}

// MaxKeysFor returns how many active keys a tier may hold.
func MaxKeysFor(tier entitlements.Tier) int {
	switch tier {
	case entitlements.TierPremium:
		return 10
	case entitlements.TierPro:
		return 3
	default:
		return 0
	}
}

// ScopeAllowed reports whether a tier may attach the scope to a key.
func ScopeAllowed(tier entitlements.Tier, scope string) bool {
	switch tier {
	case entitlements.TierPremium:
		return scope == models.SCOPE_FULL_ACCESS ||
			scope == models.SCOPE_ANALYTICS_READ ||
			scope == models.SCOPE_WEBHOOKS_MANAGE ||
			proScopes[scope]
	case entitlements.TierPro:
		return proScopes[scope]
	default:
		return false
	}
}

type Service struct {
	keys repository.APIKeyRepository
	now  func() time.Time
}

func NewService(repos *repository.Repositories) *Service {
	return &Service{keys: repos.APIKey, now: time.Now}
}

// Issue creates a new API key for the user. The returned raw secret is shown
// exactly once; only its hash is persisted.
func (s *Service) Issue(user *models.User, name string, scopes []string, expiresAt *time.Time) (raw string, key *models.APIKey, err error) {
	tier := user.EffectiveTier(s.now())

	max := MaxKeysFor(tier)
	if max == 0 {
		return "", nil, ErrKeysNotAvailable
	}
	active, err := s.keys.CountActiveByUser(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("key count failed: %w", err)
	}
	if active >= int64(max) {
		return "", nil, fmt.Errorf("%w: %d of %d in use", ErrKeyLimitReached, active, max)
	}

	if len(scopes) == 0 {
		scopes = []string{models.SCOPE_ADDONS_READ, models.SCOPE_VERSIONS_READ}
	}
	for _, scope := range scopes {
		if !ScopeAllowed(tier, scope) {
			return "", nil, fmt.Errorf("%w: %s", ErrScopeNotAllowed, scope)
		}
	}

	raw, prefix, hash, err := models.GenerateAPIKey()
	if err != nil {
		return "", nil, err
	}

	key = &models.APIKey{
		UserID:    user.ID,
		Name:      name,
		KeyHash:   hash,
		KeyPrefix: prefix,
		ExpiresAt: expiresAt,
	}
	key.SetScopes(scopes)

	if err := s.keys.Create(key); err != nil {
		return "", nil, fmt.Errorf("key create failed: %w", err)
	}
	return raw, key, nil
}

// Revoke marks one of the user's keys as revoked. Revoked keys stay in the
// table for audit purposes.
func (s *Service) Revoke(user *models.User, keyID uint) error {
	key, err := s.keys.GetByID(keyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("key lookup failed: %w", err)
	}
	if key.UserID != user.ID && !user.IsAdmin {
		return ErrKeyNotFound
	}

	key.Revoke()
	if err := s.keys.Update(key); err != nil {
		return fmt.Errorf("key revoke failed: %w", err)
	}
	return nil
}

// List returns the user's keys, revoked ones included.
func (s *Service) List(user *models.User) ([]models.APIKey, error) {
	return s.keys.ListByUser(user.ID)
}
