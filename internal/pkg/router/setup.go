package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/ratelimit"
	"github.com/plexdev/plexaddons-api/internal/pkg/security"
)

// Config carries what the routers need beyond the controller package's own
// dependencies: repositories for the middlewares, the rate limiter and the
// token issuer.
type Config struct {
	Repos     *repository.Repositories
	RateLimit *ratelimit.Service
	Tokens    *security.TokenIssuer
}

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter installs HttpRouter first so the session store, oauth
// providers and the global middlewares exist before the API routes that
// depend on them.
func InstallRouter(app *fiber.App, cfg Config) {
	setup(app, NewHttpRouter(cfg), NewApiRouter(cfg))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
