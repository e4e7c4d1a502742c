package entitlements

import (
	"strings"
	"time"

	"github.com/plexdev/plexaddons-api/internal/pkg/env"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// VersionLimitUnlimited marks a tier without a version-history cap.
const VersionLimitUnlimited = -1

// Limits holds the per-tier caps applied to every quota and rate decision.
type Limits struct {
	RequestsPerMinute int
	StorageQuotaBytes int64
	VersionLimit      int
}

// Quotas is the full tier configuration. Adding a tier means extending the
// struct and the ForTier switch, so an incomplete mapping fails at compile
// time instead of falling through a loosely typed map.
type Quotas struct {
	Free    Limits
	Pro     Limits
	Premium Limits

	// IP-based limits per endpoint class, independent of tier.
	PublicIPPerMinute int
	AuthIPPerMinute   int
}

func NormalizeTier(tier string) Tier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case string(TierPro):
		return TierPro
	case string(TierPremium):
		return TierPremium
	default:
		return TierFree
	}
}

func TierRank(tier Tier) int {
	switch tier {
	case TierPremium:
		return 2
	case TierPro:
		return 1
	default:
		return 0
	}
}

// ForTier returns the limits for a tier. Unknown values fall back to free.
func (q Quotas) ForTier(tier Tier) Limits {
	switch tier {
	case TierPremium:
		return q.Premium
	case TierPro:
		return q.Pro
	case TierFree:
		return q.Free
	default:
		return q.Free
	}
}

// LoadQuotas builds the tier configuration from environment variables,
// falling back to the documented defaults.
func LoadQuotas() Quotas {
	return Quotas{
		Free: Limits{
			RequestsPerMinute: env.GetEnvInt("RATE_LIMIT_USER_FREE", 100),
			StorageQuotaBytes: env.GetEnvInt64("STORAGE_QUOTA_FREE", 5*1024*1024),
			VersionLimit:      env.GetEnvInt("VERSION_LIMIT_FREE", 3),
		},
		Pro: Limits{
			RequestsPerMinute: env.GetEnvInt("RATE_LIMIT_USER_PRO", 300),
			StorageQuotaBytes: env.GetEnvInt64("STORAGE_QUOTA_PRO", 100*1024*1024),
			VersionLimit:      env.GetEnvInt("VERSION_LIMIT_PRO", 10),
		},
		Premium: Limits{
			RequestsPerMinute: env.GetEnvInt("RATE_LIMIT_USER_PREMIUM", 1000),
			StorageQuotaBytes: env.GetEnvInt64("STORAGE_QUOTA_PREMIUM", 1024*1024*1024),
			VersionLimit:      env.GetEnvInt("VERSION_LIMIT_PREMIUM", VersionLimitUnlimited),
		},
		PublicIPPerMinute: env.GetEnvInt("RATE_LIMIT_PUBLIC", 100),
		AuthIPPerMinute:   env.GetEnvInt("RATE_LIMIT_AUTH_ENDPOINTS", 30),
	}
}

// TempGrant is the admin-granted temporary tier override carried on a user.
type TempGrant struct {
	Tier      Tier
	ExpiresAt *time.Time
}

// Effective resolves the tier actually applied right now: an unexpired temp
// grant wins over the persisted subscription tier. Expiry is checked lazily
// at read time; expired grants simply stop applying, no cleanup needed.
func Effective(subscriptionTier string, grant TempGrant, now time.Time) Tier {
	if grant.Tier != "" && grant.ExpiresAt != nil && grant.ExpiresAt.After(now) {
		return NormalizeTier(string(grant.Tier))
	}
	return NormalizeTier(subscriptionTier)
}
