package models

import "time"

// AdminAuditLog records privileged admin actions for later review.
type AdminAuditLog struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	AdminID *uint `gorm:"index" json:"admin_id"`

	Action     string `gorm:"type:varchar(100);not null" json:"action"`
	TargetType string `gorm:"type:varchar(50);default:null" json:"target_type"`
	TargetID   *uint  `json:"target_id"`

	// JSON string with additional context.
	Details   string `gorm:"type:text;default:null" json:"details"`
	IPAddress string `gorm:"type:varchar(45);default:null" json:"ip_address"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
