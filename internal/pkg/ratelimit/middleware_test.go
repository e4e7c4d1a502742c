package ratelimit

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

func TestLastForwardedFor(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"203.0.113.7", "203.0.113.7"},
		{"1.2.3.4, 5.6.7.8, 192.168.0.1", "192.168.0.1"},
		{"1.2.3.4,5.6.7.8", "5.6.7.8"},
		{"1.2.3.4, ", "1.2.3.4"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := lastForwardedFor(tt.header); got != tt.want {
			t.Fatalf("lastForwardedFor(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func newTestApp(svc *Service, class EndpointClass, uc *usercontext.UserContext) *fiber.App {
	app := fiber.New()
	if uc != nil {
		app.Use(func(c *fiber.Ctx) error {
			usercontext.Set(c, *uc)
			return c.Next()
		})
	}
	app.Use(Middleware(svc, class))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestMiddlewareSetsHeadersAndRejects(t *testing.T) {
	rdb := newTestRedis(t)
	now, _ := testClock(time.Now(), time.Millisecond)
	quotas := testQuotas()
	quotas.PublicIPPerMinute = 2
	svc := NewService(rdb, quotas, WithClock(now))

	app := newTestApp(svc, ClassPublic, nil)
	ip := uniqueIP(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.9, "+ip)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit-IP"))
		assert.Equal(t, fmt.Sprintf("%d", 2-i-1), resp.Header.Get("X-RateLimit-Remaining-IP"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset-IP"))
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.9, "+ip)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining-IP"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestMiddlewareChecksUserDimension(t *testing.T) {
	rdb := newTestRedis(t)
	now, _ := testClock(time.Now(), time.Millisecond)
	quotas := testQuotas()
	quotas.Free.RequestsPerMinute = 1
	svc := NewService(rdb, quotas, WithClock(now))

	uc := &usercontext.UserContext{
		UserID:     uint(time.Now().UnixNano() % 1_000_000_000),
		Username:   "tester",
		IsLoggedIn: true,
		Tier:       entitlements.TierFree,
	}
	app := newTestApp(svc, ClassPublic, uc)
	ip := uniqueIP(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", ip)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit-User"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining-User"))

	// User window is exhausted while the IP window still has room: the
	// user dimension rejects independently.
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", ip)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining-User"))
	// The IP check passed before the user check ran.
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining-IP"))
}

func TestMiddlewareFailsClosedOnStoreOutage(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	defer rdb.Close()

	svc := NewService(rdb, testQuotas())
	app := newTestApp(svc, ClassPublic, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
