package oauth

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/discord"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/plexdev/plexaddons-api/internal/pkg/cache"
	"github.com/plexdev/plexaddons-api/internal/pkg/env"
)

// Setup registers the Discord provider and the OAuth state session store.
// Safe to call multiple times; the provider is just re-registered.
func Setup() {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	goth.UseProviders(
		discord.New(
			env.GetEnv("DISCORD_KEY", ""),
			env.GetEnv("DISCORD_SECRET", ""),
			base+"/auth/discord/callback",
			discord.ScopeIdentify, discord.ScopeEmail,
		),
	)

	port := 6379
	if v, err := strconv.Atoi(cache.Port()); err == nil {
		port = v
	}

	// OAuth state lives in Redis database 2, away from rate limiter
	// state (0) and app sessions (1).
	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     cache.Host(),
			Port:     port,
			Password: cache.Password(),
			Database: 2,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		Expiration:     10 * time.Minute,
	})
}
