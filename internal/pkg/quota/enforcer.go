// Package quota enforces per-user storage quotas and per-addon version
// retention limits based on the user's effective tier.
package quota

import (
	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

// Enforcer computes live storage usage and gates content writes. It holds no
// state of its own; every decision reads current durable rows.
type Enforcer struct {
	addons   repository.AddonRepository
	versions repository.VersionRepository
	tickets  repository.TicketRepository
	users    repository.UserRepository
	quotas   entitlements.Quotas
}

// NewEnforcer creates a quota enforcer over the given repositories.
func NewEnforcer(repos *repository.Repositories, quotas entitlements.Quotas) *Enforcer {
	return &Enforcer{
		addons:   repos.Addon,
		versions: repos.Version,
		tickets:  repos.Ticket,
		users:    repos.User,
		quotas:   quotas,
	}
}

// CalculateStorageUsed computes a user's storage usage live from durable
// state: the UTF-8 byte lengths of every textual field across their addons
// and versions, plus the raw size of ticket attachments they own. The cached
// counter column is never consulted for decisions.
func (e *Enforcer) CalculateStorageUsed(userID uint) (int64, error) {
	var total int64

	addons, err := e.addons.ListByOwnerWithVersions(userID)
	if err != nil {
		return 0, err
	}
	for _, addon := range addons {
		total += int64(len(addon.Name) + len(addon.Slug) + len(addon.Description) + len(addon.Homepage))
		for _, v := range addon.Versions {
			total += int64(len(v.Version) + len(v.DownloadURL) + len(v.ChangelogURL) + len(v.Description) + len(v.ChangelogContent))
		}
	}

	attachmentBytes, err := e.tickets.SumAttachmentBytesByTicketOwner(userID)
	if err != nil {
		return 0, err
	}
	total += attachmentBytes

	return total, nil
}

// CheckStorageQuota reports whether the user's usage stays within their
// effective tier's byte quota after adding additionalBytes. replacingBytes
// covers in-place edits so the replaced content is not double-counted.
func (e *Enforcer) CheckStorageQuota(userID uint, tier entitlements.Tier, additionalBytes, replacingBytes int64) (bool, error) {
	usage, err := e.CalculateStorageUsed(userID)
	if err != nil {
		return false, err
	}
	quota := e.quotas.ForTier(tier).StorageQuotaBytes
	return usage-replacingBytes+additionalBytes <= quota, nil
}

// CheckVersionLimit reports whether the addon's version count is strictly
// below the tier's version-history limit.
func (e *Enforcer) CheckVersionLimit(addonID uint, tier entitlements.Tier) (bool, error) {
	limit := e.quotas.ForTier(tier).VersionLimit
	if limit == entitlements.VersionLimitUnlimited {
		return true, nil
	}
	count, err := e.versions.CountByAddon(addonID)
	if err != nil {
		return false, err
	}
	return count < int64(limit), nil
}

// EvictOldestVersion removes the single oldest version (by release date,
// creation time as tie-break) when the addon has reached the tier's limit,
// making room for exactly one new version. A user left far over their limit
// by a tier downgrade is drained one version per publish, never bulk-evicted.
// Returns the number of deleted versions, 0 when already within limit.
func (e *Enforcer) EvictOldestVersion(addonID uint, tier entitlements.Tier) (int64, error) {
	limit := e.quotas.ForTier(tier).VersionLimit
	if limit == entitlements.VersionLimitUnlimited {
		return 0, nil
	}
	count, err := e.versions.CountByAddon(addonID)
	if err != nil {
		return 0, err
	}
	if count < int64(limit) {
		return 0, nil
	}
	return e.versions.DeleteBeyondNewest(addonID, int(count)-1)
}

// SyncStorageCounter recomputes the user's usage and persists it on the user
// row. The stored value is informational only; decisions always recompute.
func (e *Enforcer) SyncStorageCounter(userID uint) (int64, error) {
	usage, err := e.CalculateStorageUsed(userID)
	if err != nil {
		return 0, err
	}
	if err := e.users.UpdateStorageUsed(userID, usage); err != nil {
		return 0, err
	}
	return usage, nil
}

// StorageQuotaFor returns the byte quota for a tier.
func (e *Enforcer) StorageQuotaFor(tier entitlements.Tier) int64 {
	return e.quotas.ForTier(tier).StorageQuotaBytes
}

// VersionLimitFor returns the version-history limit for a tier.
func (e *Enforcer) VersionLimitFor(tier entitlements.Tier) int {
	return e.quotas.ForTier(tier).VersionLimit
}

// Snapshot summarizes a user's current usage for display.
type Snapshot struct {
	StorageUsedBytes  int64 `json:"storage_used_bytes"`
	StorageQuotaBytes int64 `json:"storage_quota_bytes"`
	AddonCount        int64 `json:"addon_count"`
}

// SnapshotFor computes a usage snapshot for the user at their effective tier.
func (e *Enforcer) SnapshotFor(user *models.User, tier entitlements.Tier) (*Snapshot, error) {
	usage, err := e.CalculateStorageUsed(user.ID)
	if err != nil {
		return nil, err
	}
	addonCount, err := e.addons.CountByOwner(user.ID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		StorageUsedBytes:  usage,
		StorageQuotaBytes: e.quotas.ForTier(tier).StorageQuotaBytes,
		AddonCount:        addonCount,
	}, nil
}
