package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/plexdev/plexaddons-api/app/controllers"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/admin"
	"github.com/plexdev/plexaddons-api/internal/pkg/addons"
	"github.com/plexdev/plexaddons-api/internal/pkg/apikeys"
	"github.com/plexdev/plexaddons-api/internal/pkg/attachstore"
	"github.com/plexdev/plexaddons-api/internal/pkg/billing"
	"github.com/plexdev/plexaddons-api/internal/pkg/cache"
	"github.com/plexdev/plexaddons-api/internal/pkg/database"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
	"github.com/plexdev/plexaddons-api/internal/pkg/env"
	"github.com/plexdev/plexaddons-api/internal/pkg/jobqueue"
	"github.com/plexdev/plexaddons-api/internal/pkg/metrics/counter"
	"github.com/plexdev/plexaddons-api/internal/pkg/organizations"
	"github.com/plexdev/plexaddons-api/internal/pkg/quota"
	"github.com/plexdev/plexaddons-api/internal/pkg/ratelimit"
	"github.com/plexdev/plexaddons-api/internal/pkg/router"
	"github.com/plexdev/plexaddons-api/internal/pkg/security"
	"github.com/plexdev/plexaddons-api/internal/pkg/statistics"
	"github.com/plexdev/plexaddons-api/internal/pkg/tickets"
	"github.com/plexdev/plexaddons-api/internal/pkg/versions"
	"github.com/plexdev/plexaddons-api/internal/pkg/webhook"
)

func main() {
	app, shutdown := NewApplication()

	// graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Println("Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000")))
	shutdown()
	if err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires the whole service and returns the fiber app plus a
// shutdown function that drains the background workers.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	db := database.GetDB()

	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	rdb := cache.NewClient()
	quotas := entitlements.LoadQuotas()

	enforcer := quota.NewEnforcer(repos, quotas)
	dispatcher := webhook.NewDispatcher()
	rateLimiter := ratelimit.NewService(rdb, quotas)
	tokens := security.NewTokenIssuer()

	attachCfg, err := attachstore.LoadConfig()
	if err != nil {
		log.Fatalf("attachment store config: %v", err)
	}
	attachments, err := attachstore.NewStore(attachCfg)
	if err != nil {
		log.Fatalf("attachment store init: %v", err)
	}

	downloads := counter.New(rdb, db)
	stats := statistics.NewService(db, rdb)

	controllers.Initialize(controllers.Dependencies{
		Repos:         repos,
		Addons:        addons.NewService(repos, enforcer, dispatcher),
		Versions:      versions.NewService(repos, enforcer, dispatcher),
		Tickets:       tickets.NewService(repos, enforcer, attachments),
		APIKeys:       apikeys.NewService(repos),
		Organizations: organizations.NewService(repos),
		Admin:         admin.NewService(repos),
		Billing:       billing.NewService(db),
		Quota:         enforcer,
		Statistics:    stats,
		Downloads:     downloads,
		Tokens:        tokens,
	})

	// background housekeeping queue
	queue := jobqueue.NewQueue(rdb, 2)
	jobqueue.RegisterHousekeeping(queue, repos, downloads, stats, enforcer)
	queue.Start()

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	jobqueue.StartScheduler(schedulerCtx, queue)

	app := fiber.New(fiber.Config{
		AppName:   "plexaddons-api",
		BodyLimit: 16 * 1024 * 1024,
	})

	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.Config{
		Repos:     repos,
		RateLimit: rateLimiter,
		Tokens:    tokens,
	})

	shutdown := func() {
		cancelScheduler()
		queue.Stop()
		if err := rdb.Close(); err != nil {
			log.Printf("Redis close failed: %v", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Database close failed: %v", err)
			}
		}
	}

	return app, shutdown
}
