package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

func newKeyTestApp(t *testing.T) (*fiber.App, *repository.Repositories, *models.User, string) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.APIKey{}))

	repos := repository.NewRepositories(db)

	user := &models.User{
		DiscordID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		DiscordUsername:  "keyuser",
		SubscriptionTier: "pro",
	}
	require.NoError(t, repos.User.Create(user))

	raw, prefix, hash, err := models.GenerateAPIKey()
	require.NoError(t, err)
	key := &models.APIKey{
		UserID:    user.ID,
		Name:      "test key",
		KeyHash:   hash,
		KeyPrefix: prefix,
	}
	key.SetScopes([]string{models.SCOPE_ADDONS_READ})
	require.NoError(t, repos.APIKey.Create(key))

	app := fiber.New()
	app.Use(APIKeyAuth(repos.APIKey, repos.User))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	app.Get("/read", RequireScope(models.SCOPE_ADDONS_READ), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/write", RequireScope(models.SCOPE_ADDONS_WRITE), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return app, repos, user, raw
}

func TestAPIKeyAuthPassesThroughWithoutKey(t *testing.T) {
	app, _, _, _ := newKeyTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIKeyAuthAcceptsHeaderAndBearer(t *testing.T) {
	app, _, _, raw := newKeyTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/read", nil)
	req.Header.Set("X-API-Key", raw)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/read", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIKeyAuthRejectsUnknownKey(t *testing.T) {
	app, _, _, _ := newKeyTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/read", nil)
	req.Header.Set("X-API-Key", "pa_0000000000000000000000000000000000000000000000000000000000000000")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireScopeBlocksMissingScope(t *testing.T) {
	app, _, _, raw := newKeyTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/write", nil)
	req.Header.Set("X-API-Key", raw)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPIKeyAuthRejectsRevokedKey(t *testing.T) {
	app, repos, user, raw := newKeyTestApp(t)

	keys, err := repos.APIKey.ListByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	keys[0].Revoke()
	require.NoError(t, repos.APIKey.Update(&keys[0]))

	req := httptest.NewRequest(http.MethodGet, "/read", nil)
	req.Header.Set("X-API-Key", raw)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
