package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

// storeTimeout bounds every limiter store round-trip. A slow store must not
// stall request handling; on timeout the check fails closed.
const storeTimeout = 2 * time.Second

// Middleware gates requests on the IP window for the given endpoint class
// and, for authenticated requests, on the user window. The IP check runs
// first; a rejected IP skips the user check entirely.
func Middleware(svc *Service, class EndpointClass) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), storeTimeout)
		defer cancel()

		ip := ClientIP(c)
		ipRes, err := svc.CheckIP(ctx, ip, class)
		if err != nil {
			return storeUnavailable(c)
		}
		setLimitHeaders(c, "IP", ipRes)

		if !ipRes.Allowed {
			return rejectLimited(c, ipRes, "Rate limit exceeded (IP). Please try again later.")
		}

		uc := usercontext.GetUserContext(c)
		if uc.IsLoggedIn {
			userRes, err := svc.CheckUser(ctx, uc.UserID, uc.Tier)
			if err != nil {
				return storeUnavailable(c)
			}
			setLimitHeaders(c, "User", userRes)

			if !userRes.Allowed {
				return rejectLimited(c, userRes, "Rate limit exceeded (User). Please try again later or upgrade your plan.")
			}
		}

		return c.Next()
	}
}

// ClientIP resolves the IP used for limiter keying. Behind a reverse proxy
// the rightmost forwarded-for entry is used: the leftmost hops are client
// controlled, the last one is the trusted proxy's view.
func ClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		if ip := lastForwardedFor(forwarded); ip != "" {
			return ip
		}
	}
	return c.IP()
}

func lastForwardedFor(header string) string {
	parts := strings.Split(header, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if ip := strings.TrimSpace(parts[i]); ip != "" {
			return ip
		}
	}
	return ""
}

func setLimitHeaders(c *fiber.Ctx, dimension string, res Result) {
	c.Set(fmt.Sprintf("X-RateLimit-Limit-%s", dimension), fmt.Sprintf("%d", res.Limit))
	c.Set(fmt.Sprintf("X-RateLimit-Remaining-%s", dimension), fmt.Sprintf("%d", res.Remaining))
	c.Set(fmt.Sprintf("X-RateLimit-Reset-%s", dimension), fmt.Sprintf("%d", res.Reset))
}

func rejectLimited(c *fiber.Ctx, res Result, message string) error {
	retryAfter := res.Reset - time.Now().Unix()
	if retryAfter < 0 {
		retryAfter = 0
	}
	c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", retryAfter))
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":   "rate_limited",
		"message": message,
		"limit":   res.Limit,
		"reset":   res.Reset,
	})
}

func storeUnavailable(c *fiber.Ctx) error {
	// Fail closed: without the store we cannot bound traffic, so reject.
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error":   "service_unavailable",
		"message": "Rate limiting service unavailable. Please try again later.",
	})
}
