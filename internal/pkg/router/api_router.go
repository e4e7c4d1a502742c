package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/app/controllers"
	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/internal/pkg/middleware"
	"github.com/plexdev/plexaddons-api/internal/pkg/ratelimit"
)

type ApiRouter struct {
	cfg Config
}

func NewApiRouter(cfg Config) *ApiRouter {
	return &ApiRouter{cfg: cfg}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api",
		middleware.APIKeyAuth(h.cfg.Repos.APIKey, h.cfg.Repos.User),
		ratelimit.Middleware(h.cfg.RateLimit, ratelimit.ClassPublic),
	)

	v1 := api.Group("/v1")
	v1.Get("/ping", controllers.HandlePing)
	v1.Get("/stats", controllers.HandlePublicStats)
	v1.Get("/tags", controllers.HandleListTags)

	// Session-to-token exchange for API clients.
	v1.Post("/auth/token", middleware.RequireAuth, controllers.HandleAuthToken)

	// Public addon directory.
	addons := v1.Group("/addons")
	addons.Get("/", controllers.HandleListAddons)
	addons.Get("/:slug", controllers.HandleGetAddon)
	addons.Post("/", middleware.RequireAuth, middleware.RequireScope(models.SCOPE_ADDONS_WRITE), controllers.HandleCreateAddon)
	addons.Patch("/:slug", middleware.RequireAuth, middleware.RequireScope(models.SCOPE_ADDONS_WRITE), controllers.HandleUpdateAddon)
	addons.Delete("/:slug", middleware.RequireAuth, middleware.RequireScope(models.SCOPE_ADDONS_WRITE), controllers.HandleDeleteAddon)

	// Versions live under their addon.
	addons.Get("/:slug/versions", controllers.HandleListVersions)
	addons.Get("/:slug/versions/latest", controllers.HandleGetLatestVersion)
	addons.Get("/:slug/versions/:version/download", controllers.HandleDownloadVersion)
	addons.Post("/:slug/versions", middleware.RequireAuth, middleware.RequireScope(models.SCOPE_VERSIONS_WRITE), controllers.HandlePublishVersion)
	addons.Patch("/:slug/versions/:id", middleware.RequireAuth, middleware.RequireScope(models.SCOPE_VERSIONS_WRITE), controllers.HandleUpdateVersion)
	addons.Delete("/:slug/versions/:id", middleware.RequireAuth, middleware.RequireScope(models.SCOPE_VERSIONS_WRITE), controllers.HandleDeleteVersion)

	// Account endpoints.
	users := v1.Group("/users", middleware.RequireAuth)
	users.Get("/me", controllers.HandleGetMe)
	users.Get("/me/addons", controllers.HandleListMyAddons)
	users.Put("/me/webhook", middleware.RequireScope(models.SCOPE_WEBHOOKS_MANAGE), controllers.HandleUpdateWebhookSettings)

	// Team accounts. Creation is premium-gated inside the service.
	orgs := v1.Group("/organizations", middleware.RequireAuth)
	orgs.Get("/", controllers.HandleListMyOrganizations)
	orgs.Post("/", controllers.HandleCreateOrganization)
	orgs.Get("/:slug", controllers.HandleGetOrganization)
	orgs.Patch("/:slug", controllers.HandleUpdateOrganization)
	orgs.Delete("/:slug", controllers.HandleDeleteOrganization)
	orgs.Post("/:slug/members", controllers.HandleInviteMember)
	orgs.Patch("/:slug/members/:user_id", controllers.HandleUpdateMemberRole)
	orgs.Delete("/:slug/members/:user_id", controllers.HandleRemoveMember)

	// API key management is session/token only; a key cannot mint keys.
	apikeys := v1.Group("/api-keys", middleware.RequireAuth, middleware.RequireSessionAuth)
	apikeys.Get("/", controllers.HandleListAPIKeys)
	apikeys.Post("/", controllers.HandleIssueAPIKey)
	apikeys.Delete("/:id", controllers.HandleRevokeAPIKey)

	// Support tickets.
	tickets := v1.Group("/tickets", middleware.RequireAuth)
	tickets.Get("/", controllers.HandleListMyTickets)
	tickets.Post("/", controllers.HandleOpenTicket)
	tickets.Get("/:id", controllers.HandleGetTicket)
	tickets.Post("/:id/messages", controllers.HandleReplyTicket)
	tickets.Post("/:id/attachments", controllers.HandleAttachFile)
	tickets.Post("/:id/close", controllers.HandleCloseTicket)

	// Admin surface.
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Get("/audit-log", controllers.HandleListAuditLog)
	admin.Get("/users", controllers.HandleAdminSearchUsers)
	admin.Post("/users/:id/temp-tier", controllers.HandleGrantTempTier)
	admin.Delete("/users/:id/temp-tier", controllers.HandleRevokeTempTier)
	admin.Get("/tickets", controllers.HandleAdminListTickets)
	admin.Post("/tickets/:id/resolve", controllers.HandleResolveTicket)
	admin.Post("/subscriptions", controllers.HandleApplySubscription)
}
