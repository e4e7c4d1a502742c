package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

func TestSignPayloadRoundTrip(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	require.Len(t, secret, 64)

	payload := []byte(`{"event":"version.released"}`)
	sig := SignPayload(payload, secret)

	assert.True(t, VerifySignature(payload, sig, secret))
	assert.False(t, VerifySignature(payload, sig, "wrong-secret"))
	assert.False(t, VerifySignature([]byte("tampered"), sig, secret))
	assert.Contains(t, sig, "sha256=")
}

func TestNotifyDeliversSignedPayload(t *testing.T) {
	received := make(chan *http.Request, 1)
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		received <- r
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	user := &models.User{
		ID:             42,
		WebhookEnabled: true,
		WebhookURL:     server.URL,
		WebhookSecret:  "topsecret",
	}

	d := NewDispatcher()
	ok := d.Notify(user, entitlements.TierPremium, EventVersionReleased, map[string]string{"version": "1.2.3"})
	require.True(t, ok)

	req := <-received
	assert.Equal(t, EventVersionReleased, req.Header.Get("X-PlexAddons-Event"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	sig := req.Header.Get("X-PlexAddons-Signature")
	assert.True(t, VerifySignature(body, sig, "topsecret"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, EventVersionReleased, decoded["event"])
	assert.NotEmpty(t, decoded["timestamp"])
}

func TestNotifySkipsNonPremium(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	user := &models.User{
		WebhookEnabled: true,
		WebhookURL:     server.URL,
		WebhookSecret:  "s",
	}

	d := NewDispatcher()
	assert.False(t, d.Notify(user, entitlements.TierPro, EventAddonCreated, nil))
	assert.False(t, d.Notify(user, entitlements.TierFree, EventAddonCreated, nil))

	// Premium without configuration is also a no-op.
	assert.False(t, d.Notify(&models.User{}, entitlements.TierPremium, EventAddonCreated, nil))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, called)
}
