// Package billing syncs provider subscription state (Stripe, PayPal) into
// local tables and keeps the user's persisted tier in line with the highest
// entitling subscription. Webhook signature verification and checkout flows
// live at the provider edge, not here.
package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

// NormalizedSubscription is the provider-agnostic shape used when syncing
// external subscription state.
type NormalizedSubscription struct {
	UserID                 uint
	Provider               string
	ProviderSubscriptionID string
	ProviderCustomerID     string
	Tier                   entitlements.Tier
	Status                 string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CanceledAt             *time.Time
}

// Service provides provider-neutral subscription synchronization.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ApplySubscription upserts a subscription row and recomputes the user's
// persisted tier from every entitling subscription they hold.
func (s *Service) ApplySubscription(in NormalizedSubscription) (*models.Subscription, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	subID := strings.TrimSpace(in.ProviderSubscriptionID)
	if in.UserID == 0 || provider == "" || subID == "" {
		return nil, errors.New("user_id, provider and provider_subscription_id are required")
	}

	sub := &models.Subscription{}
	err := s.db.Where("provider = ? AND provider_subscription_id = ?", provider, subID).First(sub).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription lookup failed: %w", err)
	}

	sub.UserID = in.UserID
	sub.Provider = provider
	sub.ProviderSubscriptionID = subID
	sub.ProviderCustomerID = in.ProviderCustomerID
	sub.Tier = string(entitlements.NormalizeTier(string(in.Tier)))
	sub.Status = strings.ToLower(strings.TrimSpace(in.Status))
	sub.CurrentPeriodStart = in.CurrentPeriodStart
	sub.CurrentPeriodEnd = in.CurrentPeriodEnd
	sub.CanceledAt = in.CanceledAt

	if err := s.db.Save(sub).Error; err != nil {
		return nil, fmt.Errorf("subscription save failed: %w", err)
	}

	if err := s.ReconcileUserTier(in.UserID); err != nil {
		return nil, err
	}
	return sub, nil
}

// ReconcileUserTier sets the user's persisted subscription tier to the
// highest tier among their entitling subscriptions, free when none entitle.
func (s *Service) ReconcileUserTier(userID uint) error {
	var subs []models.Subscription
	if err := s.db.Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return fmt.Errorf("subscription list failed: %w", err)
	}

	best := entitlements.TierFree
	for _, sub := range subs {
		if !sub.IsEntitling() {
			continue
		}
		tier := entitlements.NormalizeTier(sub.Tier)
		if entitlements.TierRank(tier) > entitlements.TierRank(best) {
			best = tier
		}
	}

	err := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("subscription_tier", string(best)).Error
	if err != nil {
		return fmt.Errorf("tier update failed: %w", err)
	}
	return nil
}

// ActiveSubscription returns the user's highest entitling subscription, nil
// when none entitle.
func (s *Service) ActiveSubscription(userID uint) (*models.Subscription, error) {
	var subs []models.Subscription
	if err := s.db.Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("subscription list failed: %w", err)
	}

	var best *models.Subscription
	for i := range subs {
		if !subs[i].IsEntitling() {
			continue
		}
		if best == nil || entitlements.TierRank(entitlements.NormalizeTier(subs[i].Tier)) > entitlements.TierRank(entitlements.NormalizeTier(best.Tier)) {
			best = &subs[i]
		}
	}
	return best, nil
}
