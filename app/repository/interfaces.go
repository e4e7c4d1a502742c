package repository

import (
	"time"

	"github.com/plexdev/plexaddons-api/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByDiscordID(discordID string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
	UpdateStorageUsed(userID uint, bytes int64) error
	UpdateLastLogin(userID uint, at time.Time) error
	// GetByDiscordUsername resolves the exact username, used for
	// organization member invites.
	GetByDiscordUsername(username string) (*models.User, error)
}

// OrganizationRepository defines the interface for team account operations
type OrganizationRepository interface {
	Create(org *models.Organization) error
	GetByID(id uint) (*models.Organization, error)
	GetBySlug(slug string) (*models.Organization, error)
	// GetByOwner returns the organization the user owns, if any. A user
	// owns at most one.
	GetByOwner(ownerID uint) (*models.Organization, error)
	ListByMember(userID uint) ([]models.Organization, error)
	Update(org *models.Organization) error
	// Delete removes the organization and its membership rows. Addons
	// are handed back separately via TransferAddonsToUser.
	Delete(id uint) error

	AddMember(member *models.OrganizationMember) error
	GetMember(orgID, userID uint) (*models.OrganizationMember, error)
	ListMembers(orgID uint) ([]models.OrganizationMember, error)
	UpdateMember(member *models.OrganizationMember) error
	RemoveMember(orgID, userID uint) error
	CountMembers(orgID uint) (int64, error)

	CountAddons(orgID uint) (int64, error)
	// SumVersionBytes totals the stored bytes of every version under the
	// organization's addons, for org storage accounting.
	SumVersionBytes(orgID uint) (int64, error)
	// TransferAddonsToUser moves every org addon to the user's personal
	// account and reports how many rows changed.
	TransferAddonsToUser(orgID, userID uint) (int64, error)
}

// AddonRepository defines the interface for addon-related database operations
type AddonRepository interface {
	Create(addon *models.Addon) error
	GetByID(id uint) (*models.Addon, error)
	GetBySlug(slug string) (*models.Addon, error)
	GetByOwner(ownerID uint, offset, limit int) ([]models.Addon, error)
	// ListByOwnerWithVersions loads an owner's addons with all their
	// versions, used by the live storage usage calculation.
	ListByOwnerWithVersions(ownerID uint) ([]models.Addon, error)
	ListPublic(offset, limit int) ([]models.Addon, error)
	Update(addon *models.Addon) error
	Delete(id uint) error
	Count() (int64, error)
	CountByOwner(ownerID uint) (int64, error)
	TouchUpdatedAt(id uint, at time.Time) error
}

// VersionRepository defines the interface for version-related database operations
type VersionRepository interface {
	Create(version *models.Version) error
	GetByID(id uint) (*models.Version, error)
	GetByAddonAndVersion(addonID uint, version string) (*models.Version, error)
	GetLatest(addonID uint) (*models.Version, error)
	// ListByAddon orders by release date descending, creation time
	// descending as tie-break (newest first).
	ListByAddon(addonID uint, offset, limit int) ([]models.Version, error)
	CountByAddon(addonID uint) (int64, error)
	// DeleteBeyondNewest removes every version of the addon except the
	// keep newest ones and reports how many rows were deleted.
	DeleteBeyondNewest(addonID uint, keep int) (int64, error)
	Update(version *models.Version) error
	Delete(id uint) error
}

// TicketRepository defines the interface for support ticket operations
type TicketRepository interface {
	Create(ticket *models.Ticket) error
	GetByID(id uint) (*models.Ticket, error)
	ListByUser(userID uint, offset, limit int) ([]models.Ticket, error)
	ListByStatus(status string, offset, limit int) ([]models.Ticket, error)
	Update(ticket *models.Ticket) error
	AddMessage(message *models.TicketMessage) error
	AddAttachment(attachment *models.TicketAttachment) error
	// SumAttachmentBytesByTicketOwner sums attachment sizes across all
	// tickets opened by the user, for storage accounting.
	SumAttachmentBytesByTicketOwner(userID uint) (int64, error)
}

// APIKeyRepository defines the interface for API key operations
type APIKeyRepository interface {
	Create(key *models.APIKey) error
	GetByID(id uint) (*models.APIKey, error)
	GetByHash(hash string) (*models.APIKey, error)
	ListByUser(userID uint) ([]models.APIKey, error)
	CountActiveByUser(userID uint) (int64, error)
	Update(key *models.APIKey) error
}

// AuditLogRepository defines the interface for admin audit log operations
type AuditLogRepository interface {
	Create(entry *models.AdminAuditLog) error
	List(offset, limit int) ([]models.AdminAuditLog, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// RequestLogRepository defines the interface for API request log operations
type RequestLogRepository interface {
	Create(entry *models.APIRequestLog) error
	CountSince(since time.Time) (int64, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}
