package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ORG_ROLE_OWNER  = "owner"
	ORG_ROLE_ADMIN  = "admin"
	ORG_ROLE_MEMBER = "member"
)

// Organization groups addons under a shared team account. Creating one is a
// premium feature; a user can own at most one organization.
type Organization struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OwnerID uint `gorm:"index;not null" json:"owner_id"`

	Name        string `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=2,max=100"`
	Slug        string `gorm:"uniqueIndex;type:varchar(100);not null" json:"slug" validate:"required,max=100"`
	Description string `gorm:"type:text;default:null" json:"description" validate:"max=10000"`
	AvatarURL   string `gorm:"type:varchar(500);default:null" json:"avatar_url,omitempty" validate:"omitempty,url,max=500"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Members []OrganizationMember `gorm:"foreignKey:OrganizationID" json:"-"`
	Addons  []Addon              `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (o *Organization) Validate() error {
	return validator.New().Struct(o)
}

// OrganizationMember links a user to an organization with a role. The owner
// row is created with the organization and can never be changed or removed.
type OrganizationMember struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	OrganizationID uint `gorm:"uniqueIndex:idx_org_members_org_user;not null" json:"organization_id"`
	UserID         uint `gorm:"uniqueIndex:idx_org_members_org_user;index;not null" json:"user_id"`

	Role        string `gorm:"type:varchar(20);default:'member';not null" json:"role" validate:"oneof=owner admin member"`
	InvitedByID *uint  `json:"invited_by_id,omitempty"`

	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (m *OrganizationMember) Validate() error {
	return validator.New().Struct(m)
}

// CanManage reports whether the member can update org details and invite or
// remove members.
func (m *OrganizationMember) CanManage() bool {
	return m.Role == ORG_ROLE_OWNER || m.Role == ORG_ROLE_ADMIN
}
