package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// API key scopes. Which scopes a user may request depends on their tier.
const (
	SCOPE_ADDONS_READ     = "addons:read"
	SCOPE_ADDONS_WRITE    = "addons:write"
	SCOPE_VERSIONS_READ   = "versions:read"
	SCOPE_VERSIONS_WRITE  = "versions:write"
	SCOPE_ANALYTICS_READ  = "analytics:read"
	SCOPE_WEBHOOKS_MANAGE = "webhooks:manage"
	SCOPE_FULL_ACCESS     = "full_access"
)

const rawKeyPrefix = "pa_"

type APIKey struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	KeyHash   string `gorm:"uniqueIndex;type:char(64);not null" json:"-"`
	KeyPrefix string `gorm:"type:varchar(20);not null" json:"key_prefix"`

	// Comma-separated scope list.
	Scopes string `gorm:"type:varchar(500);default:''" json:"scopes"`

	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	RevokedAt  *time.Time `json:"revoked_at"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsActive reports whether the key can still authenticate requests.
func (k *APIKey) IsActive(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}

// HasScope checks scope membership; full_access implies everything.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.ScopeList() {
		if s == SCOPE_FULL_ACCESS || s == scope {
			return true
		}
	}
	return false
}

func (k *APIKey) ScopeList() []string {
	if k.Scopes == "" {
		return nil
	}
	parts := strings.Split(k.Scopes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (k *APIKey) SetScopes(scopes []string) {
	k.Scopes = strings.Join(scopes, ",")
}

// Revoke marks the key unusable without deleting the row.
func (k *APIKey) Revoke() {
	now := time.Now()
	k.RevokedAt = &now
}

// TouchUsage updates the last-used timestamp metadata.
func (k *APIKey) TouchUsage() {
	now := time.Now()
	k.LastUsedAt = &now
}

// GenerateAPIKey creates the raw secret plus the prefix and hash stored with
// the key record. The raw secret is shown to the user exactly once.
func GenerateAPIKey() (raw, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("api key generation failed: %w", err)
	}
	raw = rawKeyPrefix + hex.EncodeToString(b)
	prefix = raw[:10]
	hash = HashAPIKey(raw)
	return raw, prefix, hash, nil
}

// HashAPIKey returns the SHA-256 hash used to look up an API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
