package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/plexdev/plexaddons-api/app/controllers"
	"github.com/plexdev/plexaddons-api/internal/pkg/middleware"
	"github.com/plexdev/plexaddons-api/internal/pkg/oauth"
	"github.com/plexdev/plexaddons-api/internal/pkg/ratelimit"
	"github.com/plexdev/plexaddons-api/internal/pkg/session"
)

type HttpRouter struct {
	cfg Config
}

func NewHttpRouter(cfg Config) *HttpRouter {
	return &HttpRouter{cfg: cfg}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session store and oauth providers
	session.NewSessionStore()
	oauth.Setup()

	// Global middlewares. Request logging runs first so rejected requests
	// are still recorded; user context must precede the rate limiter so
	// the user window applies.
	app.Use(middleware.RequestLog(h.cfg.Repos.RequestLog))
	app.Use(middleware.UserContext(h.cfg.Repos.User, h.cfg.Tokens))

	app.Get("/", controllers.HandlePing)
	app.Get("/health", controllers.HandlePing)

	// Login endpoints carry the stricter auth ip window.
	authLimit := ratelimit.Middleware(h.cfg.RateLimit, ratelimit.ClassAuth)
	app.Get("/auth/:provider", authLimit, gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", authLimit, controllers.HandleAuthDiscordCallback)
	app.Post("/auth/logout", authLimit, controllers.HandleAuthLogout)
}
