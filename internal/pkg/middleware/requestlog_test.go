package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexdev/plexaddons-api/app/models"
)

// capturingLogRepo hands every inserted entry to a channel so tests can wait
// for the async write without sleeping.
type capturingLogRepo struct {
	entries chan *models.APIRequestLog
}

func (r *capturingLogRepo) Create(entry *models.APIRequestLog) error {
	r.entries <- entry
	return nil
}

func (r *capturingLogRepo) CountSince(since time.Time) (int64, error) { return 0, nil }

func (r *capturingLogRepo) DeleteOlderThan(cutoff time.Time) (int64, error) { return 0, nil }

func waitForEntry(t *testing.T, repo *capturingLogRepo) *models.APIRequestLog {
	t.Helper()
	select {
	case entry := <-repo.entries:
		return entry
	case <-time.After(2 * time.Second):
		t.Fatal("request log entry never arrived")
		return nil
	}
}

func TestRequestLogRecordsRequestFields(t *testing.T) {
	repo := &capturingLogRepo{entries: make(chan *models.APIRequestLog, 4)}

	app := fiber.New()
	app.Use(RequestLog(repo))
	app.Get("/api/v1/addons/:slug", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/v1/addons/trakt-sync", nil)
	req.Header.Set(fiber.HeaderUserAgent, "plexaddons-cli/1.0")
	req.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	entry := waitForEntry(t, repo)
	assert.Equal(t, "/api/v1/addons/trakt-sync", entry.Endpoint)
	assert.Equal(t, "GET", entry.Method)
	assert.Equal(t, fiber.StatusOK, entry.StatusCode)
	assert.Equal(t, "plexaddons-cli/1.0", entry.UserAgent)
	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	assert.Nil(t, entry.UserID)
}

// The insert goroutine outlives the handler while fasthttp reuses the
// request buffers for the next request. Entries must therefore hold copies,
// not views into the ctx, or a later request can rewrite an earlier entry's
// fields before it reaches the database.
func TestRequestLogEntriesSurviveBufferReuse(t *testing.T) {
	repo := &capturingLogRepo{entries: make(chan *models.APIRequestLog, 4)}

	app := fiber.New()
	app.Use(RequestLog(repo))
	app.Get("/api/v1/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/v1/stats", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	first := httptest.NewRequest("GET", "/api/v1/ping", nil)
	first.Header.Set(fiber.HeaderUserAgent, "agent-one")
	_, err := app.Test(first)
	require.NoError(t, err)
	firstEntry := waitForEntry(t, repo)

	second := httptest.NewRequest("GET", "/api/v1/stats", nil)
	second.Header.Set(fiber.HeaderUserAgent, "agent-two-with-longer-value")
	_, err = app.Test(second)
	require.NoError(t, err)
	secondEntry := waitForEntry(t, repo)

	assert.Equal(t, "/api/v1/ping", firstEntry.Endpoint)
	assert.Equal(t, "agent-one", firstEntry.UserAgent)
	assert.Equal(t, "/api/v1/stats", secondEntry.Endpoint)
	assert.Equal(t, "agent-two-with-longer-value", secondEntry.UserAgent)
}
