package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Version struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	AddonID uint `gorm:"index:idx_versions_addon_version,unique;not null" json:"addon_id"`

	// Semver string, unique per addon.
	Version     string    `gorm:"index:idx_versions_addon_version,unique;type:varchar(50);not null" json:"version" validate:"required,max=50"`
	ReleaseDate time.Time `gorm:"type:date;not null;index" json:"release_date"`

	DownloadURL  string `gorm:"type:varchar(500);not null" json:"download_url" validate:"required,url,max=500"`
	ChangelogURL string `gorm:"type:varchar(500);default:null" json:"changelog_url" validate:"omitempty,url,max=500"`

	Description      string `gorm:"type:text;default:null" json:"description"`
	ChangelogContent string `gorm:"type:text;default:null" json:"changelog_content"`

	Breaking bool `gorm:"default:false" json:"breaking"`
	Urgent   bool `gorm:"default:false" json:"urgent"`

	// Byte size of the textual content, kept for display. Quota decisions
	// recompute usage live instead of trusting this column.
	StorageSizeBytes int64 `gorm:"default:0" json:"storage_size_bytes"`

	// Download counter, flushed in batches from Redis.
	DownloadCount int64 `gorm:"default:0" json:"download_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (v *Version) Validate() error {
	return validator.New().Struct(v)
}

// ContentSizeBytes returns the UTF-8 byte size of the quota-relevant text.
func (v *Version) ContentSizeBytes() int64 {
	return int64(len(v.Description) + len(v.ChangelogContent))
}
