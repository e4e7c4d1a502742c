package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

type User struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	DiscordID       string `gorm:"uniqueIndex;type:varchar(20)" json:"discord_id" validate:"required,max=20"`
	DiscordUsername string `gorm:"type:varchar(100)" json:"discord_username" validate:"required,max=100"`
	DiscordAvatar   string `gorm:"type:varchar(255);default:null" json:"discord_avatar" validate:"max=255"`
	Email           string `gorm:"type:varchar(255);index;default:null" json:"email" validate:"omitempty,email,max=255"`

	// Persisted subscription tier, denormalized for quick access. Every
	// quota and rate decision must go through EffectiveTier instead.
	SubscriptionTier string `gorm:"type:varchar(20);default:'free'" json:"subscription_tier" validate:"oneof=free pro premium"`

	// Admin-granted temporary tier override. Reverts lazily once the
	// expiry passes; no cleanup job touches these columns.
	TempTier          string     `gorm:"type:varchar(20);default:null" json:"temp_tier,omitempty"`
	TempTierExpiresAt *time.Time `gorm:"index" json:"temp_tier_expires_at,omitempty"`
	TempTierGrantedBy *uint      `json:"temp_tier_granted_by,omitempty"`
	TempTierGrantedAt *time.Time `json:"temp_tier_granted_at,omitempty"`

	// Cached storage counter for display only, never a decision source.
	StorageUsedBytes int64 `gorm:"type:bigint;default:0" json:"storage_used_bytes"`

	IsAdmin bool `gorm:"default:false;index" json:"is_admin"`

	// Outgoing webhook settings (premium feature).
	WebhookURL     string `gorm:"type:varchar(500);default:null" json:"webhook_url,omitempty" validate:"omitempty,url,max=500"`
	WebhookSecret  string `gorm:"type:varchar(64);default:null" json:"-"`
	WebhookEnabled bool   `gorm:"default:false" json:"webhook_enabled"`

	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	LastLoginAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Addons []Addon `gorm:"foreignKey:OwnerID" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// TempGrant packages the temporary tier columns for the entitlements resolver.
func (u *User) TempGrant() entitlements.TempGrant {
	return entitlements.TempGrant{
		Tier:      entitlements.Tier(u.TempTier),
		ExpiresAt: u.TempTierExpiresAt,
	}
}

// EffectiveTier returns the tier applied to the user right now: an unexpired
// admin temp grant, otherwise the persisted subscription tier.
func (u *User) EffectiveTier(now time.Time) entitlements.Tier {
	return entitlements.Effective(u.SubscriptionTier, u.TempGrant(), now)
}

// GrantTempTier sets a temporary tier override with an expiry timestamp.
func (u *User) GrantTempTier(tier entitlements.Tier, expiresAt time.Time, grantedBy uint) {
	now := time.Now()
	u.TempTier = string(tier)
	u.TempTierExpiresAt = &expiresAt
	u.TempTierGrantedBy = &grantedBy
	u.TempTierGrantedAt = &now
}

// RevokeTempTier clears the temporary tier override.
func (u *User) RevokeTempTier() {
	u.TempTier = ""
	u.TempTierExpiresAt = nil
	u.TempTierGrantedBy = nil
	u.TempTierGrantedAt = nil
}
