// Package webhook delivers signed event notifications to premium users'
// configured endpoints.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

// Webhook event types.
const (
	EventVersionReleased = "version.released"
	EventVersionUpdated  = "version.updated"
	EventVersionDeleted  = "version.deleted"
	EventAddonCreated    = "addon.created"
	EventAddonUpdated    = "addon.updated"
	EventAddonDeleted    = "addon.deleted"
)

const deliveryTimeout = 10 * time.Second

// Dispatcher sends webhook notifications. Delivery is best effort; failures
// are logged, never surfaced to the triggering request.
type Dispatcher struct {
	client *http.Client
	now    func() time.Time
}

// NewDispatcher creates a webhook dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		client: &http.Client{Timeout: deliveryTimeout},
		now:    time.Now,
	}
}

// GenerateSecret returns a new webhook signing secret.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("webhook secret generation failed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SignPayload signs a webhook payload using HMAC-SHA256.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a payload signature in constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Notify sends an event to the user's webhook endpoint. Webhooks are a
// premium feature; anything else is silently a no-op.
func (d *Dispatcher) Notify(user *models.User, tier entitlements.Tier, event string, data interface{}) bool {
	if tier != entitlements.TierPremium {
		return false
	}
	if !user.WebhookEnabled || user.WebhookURL == "" || user.WebhookSecret == "" {
		return false
	}

	payload, err := json.Marshal(map[string]interface{}{
		"event":     event,
		"timestamp": d.now().UTC().Format(time.RFC3339),
		"data":      data,
	})
	if err != nil {
		log.Printf("webhook: marshal failed for user %d: %v", user.ID, err)
		return false
	}

	req, err := http.NewRequest(http.MethodPost, user.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("webhook: bad url for user %d: %v", user.ID, err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-PlexAddons-Event", event)
	req.Header.Set("X-PlexAddons-Signature", SignPayload(payload, user.WebhookSecret))

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("webhook: delivery to user %d failed: %v", user.ID, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("webhook: endpoint for user %d returned %d", user.ID, resp.StatusCode)
		return false
	}
	return true
}
