package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/ratelimit"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

// RequestLog records every API request for analytics. Writes happen after
// the response on a separate goroutine so logging never adds latency, and a
// failed insert never fails the request.
func RequestLog(logs repository.RequestLogRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Strings read off the ctx alias fasthttp's reused request
		// buffers and go stale once the handler returns. The insert
		// runs async, so copy every field first.
		entry := &models.APIRequestLog{
			Endpoint:   utils.CopyString(c.Path()),
			Method:     utils.CopyString(c.Method()),
			StatusCode: c.Response().StatusCode(),
			IPAddress:  utils.CopyString(ratelimit.ClientIP(c)),
			UserAgent:  utils.CopyString(c.Get(fiber.HeaderUserAgent)),
		}
		if uc := usercontext.GetUserContext(c); uc.IsLoggedIn {
			userID := uc.UserID
			entry.UserID = &userID
		}

		go func() {
			if err := logs.Create(entry); err != nil {
				log.Printf("request log write failed: %v", err)
			}
		}()

		return err
	}
}
