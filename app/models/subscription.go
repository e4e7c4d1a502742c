package models

import (
	"strings"
	"time"
)

const (
	PROVIDER_STRIPE = "stripe"
	PROVIDER_PAYPAL = "paypal"

	SUB_STATUS_ACTIVE     = "active"
	SUB_STATUS_TRIALING   = "trialing"
	SUB_STATUS_PAST_DUE   = "past_due"
	SUB_STATUS_CANCELED   = "canceled"
	SUB_STATUS_UNPAID     = "unpaid"
	SUB_STATUS_PAUSED     = "paused"
	SUB_STATUS_INCOMPLETE = "incomplete"
)

type Subscription struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	Provider               string `gorm:"index:idx_subscriptions_provider_id,unique;type:varchar(20);not null" json:"provider"`
	ProviderSubscriptionID string `gorm:"index:idx_subscriptions_provider_id,unique;type:varchar(255);not null" json:"provider_subscription_id"`
	ProviderCustomerID     string `gorm:"type:varchar(255);default:null" json:"provider_customer_id"`

	Tier   string `gorm:"type:varchar(20);not null" json:"tier"`
	Status string `gorm:"type:varchar(30);not null;index" json:"status"`

	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	CanceledAt         *time.Time `json:"canceled_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEntitling reports whether this subscription currently grants its tier.
func (s *Subscription) IsEntitling() bool {
	switch strings.ToLower(strings.TrimSpace(s.Status)) {
	case SUB_STATUS_ACTIVE, SUB_STATUS_TRIALING, SUB_STATUS_PAST_DUE:
		return true
	default:
		return false
	}
}
