package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// AddonTags is the fixed catalog of categorization tags clients may attach
// to addons, served as-is by the tags endpoint.
var AddonTags = []string{
	"utility", "media", "automation", "integration",
	"security", "ui", "library", "metadata",
	"sync", "notification", "other",
}

type Addon struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OwnerID uint `gorm:"index;not null" json:"owner_id"`
	// OrganizationID marks an addon held by a team account. Org addons
	// count against the org owner's storage quota and fall back to the
	// owner's personal account when the organization is deleted.
	OrganizationID *uint `gorm:"index" json:"organization_id,omitempty"`

	Name string `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=2,max=100"`
	Slug string `gorm:"uniqueIndex;type:varchar(100);not null" json:"slug" validate:"required,max=100"`

	Description string `gorm:"type:text;default:null" json:"description" validate:"max=10000"`
	Homepage    string `gorm:"type:varchar(500);default:null" json:"homepage" validate:"omitempty,url,max=500"`
	// External marks free community addons not distributed by the owner.
	External bool `gorm:"default:false" json:"external"`

	IsActive bool `gorm:"default:true" json:"is_active"`
	IsPublic bool `gorm:"default:true;index" json:"is_public"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Versions []Version `gorm:"foreignKey:AddonID" json:"-"`
}

func (a *Addon) Validate() error {
	v := validator.New()

	return v.Struct(a)
}
