package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plexdev/plexaddons-api/internal/pkg/env"
)

// Host and Port return the configured cache server address parts. The
// session store needs them separately from the client options.
func Host() string { return env.GetEnv("CACHE_HOST", "localhost") }
func Port() string { return env.GetEnv("CACHE_PORT", "6379") }

// Password returns the configured cache password, empty when unset.
func Password() string { return env.GetEnv("CACHE_PASSWORD", "") }

// NewClient constructs the shared Redis client. The client is built once at
// startup and handed to the services that need it; there is no package-level
// instance to reach for.
func NewClient() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", Host(), Port()),
		Password: Password(),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if pong, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: could not connect to Redis at %s:%s: %v", Host(), Port(), err)
	} else {
		log.Printf("Connected to Redis: %s", pong)
	}

	return client
}
