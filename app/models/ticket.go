package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	TICKET_STATUS_OPEN        = "open"
	TICKET_STATUS_IN_PROGRESS = "in_progress"
	TICKET_STATUS_RESOLVED    = "resolved"
	TICKET_STATUS_CLOSED      = "closed"

	TICKET_PRIORITY_LOW    = "low"
	TICKET_PRIORITY_NORMAL = "normal"
	TICKET_PRIORITY_HIGH   = "high"
	TICKET_PRIORITY_URGENT = "urgent" // admin-set only

	TICKET_CATEGORY_GENERAL         = "general"
	TICKET_CATEGORY_BILLING         = "billing"
	TICKET_CATEGORY_TECHNICAL       = "technical"
	TICKET_CATEGORY_FEATURE_REQUEST = "feature_request"
	TICKET_CATEGORY_BUG_REPORT      = "bug_report"
)

type Ticket struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	Subject  string `gorm:"type:varchar(255);not null" json:"subject" validate:"required,min=3,max=255"`
	Category string `gorm:"type:varchar(30);default:'general'" json:"category" validate:"oneof=general billing technical feature_request bug_report"`
	Priority string `gorm:"type:varchar(20);default:'low';index" json:"priority" validate:"oneof=low normal high urgent"`
	Status   string `gorm:"type:varchar(20);default:'open';index" json:"status" validate:"oneof=open in_progress resolved closed"`

	AssignedAdminID *uint `json:"assigned_admin_id"`

	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
	ClosedAt   *time.Time `json:"closed_at"`

	Messages []TicketMessage `gorm:"foreignKey:TicketID" json:"-"`
}

func (t *Ticket) Validate() error {
	return validator.New().Struct(t)
}

// IsOpen reports whether the ticket still accepts replies.
func (t *Ticket) IsOpen() bool {
	return t.Status == TICKET_STATUS_OPEN || t.Status == TICKET_STATUS_IN_PROGRESS
}

type TicketMessage struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	TicketID uint  `gorm:"index;not null" json:"ticket_id"`
	AuthorID *uint `json:"author_id"`

	Content         string `gorm:"type:text;not null" json:"content" validate:"required"`
	IsStaffReply    bool   `gorm:"default:false" json:"is_staff_reply"`
	IsSystemMessage bool   `gorm:"default:false" json:"is_system_message"`

	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	EditedAt  *time.Time `json:"edited_at"`

	Attachments []TicketAttachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
}

type TicketAttachment struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	MessageID uint `gorm:"index;not null" json:"message_id"`

	FilePath         string `gorm:"type:varchar(500);not null" json:"-"`
	OriginalFilename string `gorm:"type:varchar(255);not null" json:"original_filename"`
	FileSize         int64  `gorm:"type:bigint;not null" json:"file_size"`
	MimeType         string `gorm:"type:varchar(100);default:null" json:"mime_type"`

	// Set when the attachment has been mirrored to object storage.
	S3ObjectKey string `gorm:"type:varchar(500);default:null" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
