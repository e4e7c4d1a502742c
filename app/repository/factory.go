package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles every repository backed by the same database handle.
type Repositories struct {
	User         UserRepository
	Addon        AddonRepository
	Version      VersionRepository
	Ticket       TicketRepository
	APIKey       APIKeyRepository
	Organization OrganizationRepository
	AuditLog     AuditLogRepository
	RequestLog   RequestLogRepository
}

// NewRepositories creates all repository instances for the given database
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Addon:        NewAddonRepository(db),
		Version:      NewVersionRepository(db),
		Ticket:       NewTicketRepository(db),
		APIKey:       NewAPIKeyRepository(db),
		Organization: NewOrganizationRepository(db),
		AuditLog:     NewAuditLogRepository(db),
		RequestLog:   NewRequestLogRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetAddonRepository returns the addon repository instance
func (f *Factory) GetAddonRepository() AddonRepository {
	return f.GetRepositories().Addon
}

// GetVersionRepository returns the version repository instance
func (f *Factory) GetVersionRepository() VersionRepository {
	return f.GetRepositories().Version
}

// GetTicketRepository returns the ticket repository instance
func (f *Factory) GetTicketRepository() TicketRepository {
	return f.GetRepositories().Ticket
}

// GetAPIKeyRepository returns the API key repository instance
func (f *Factory) GetAPIKeyRepository() APIKeyRepository {
	return f.GetRepositories().APIKey
}

// GetOrganizationRepository returns the organization repository instance
func (f *Factory) GetOrganizationRepository() OrganizationRepository {
	return f.GetRepositories().Organization
}

// GetAuditLogRepository returns the audit log repository instance
func (f *Factory) GetAuditLogRepository() AuditLogRepository {
	return f.GetRepositories().AuditLog
}

// GetRequestLogRepository returns the request log repository instance
func (f *Factory) GetRequestLogRepository() RequestLogRepository {
	return f.GetRepositories().RequestLog
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
