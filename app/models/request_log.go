package models

import "time"

// APIRequestLog tracks API requests for analytics and weekly summaries.
type APIRequestLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Endpoint   string `gorm:"type:varchar(255);not null;index" json:"endpoint"`
	Method     string `gorm:"type:varchar(10);not null" json:"method"`
	StatusCode int    `json:"status_code"`

	UserID *uint `gorm:"index" json:"user_id"`

	IPAddress string `gorm:"type:varchar(45);default:null" json:"ip_address"`
	UserAgent string `gorm:"type:varchar(500);default:null" json:"user_agent"`

	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}
