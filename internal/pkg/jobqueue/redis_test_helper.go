package jobqueue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plexdev/plexaddons-api/internal/pkg/env"
)

const isolatedJobQueueTestRedisDB = 14

func newIsolatedRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	hosts := []string{env.GetEnv("CACHE_HOST", ""), "cache", "localhost", "127.0.0.1"}
	passwords := []string{env.GetEnv("CACHE_PASSWORD", ""), ""}
	port := env.GetEnv("CACHE_PORT", "6379")

	var lastErr error
	for _, host := range hosts {
		if host == "" {
			continue
		}
		for _, password := range passwords {
			client := redis.NewClient(&redis.Options{
				Addr:     fmt.Sprintf("%s:%s", host, port),
				Password: password,
				DB:       isolatedJobQueueTestRedisDB,
			})

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_, err := client.Ping(ctx).Result()
			cancel()
			if err != nil {
				_ = client.Close()
				lastErr = err
				continue
			}

			if err := client.FlushDB(context.Background()).Err(); err != nil {
				_ = client.Close()
				t.Fatalf("failed to flush isolated redis db %d: %v", isolatedJobQueueTestRedisDB, err)
			}
			t.Cleanup(func() {
				_ = client.FlushDB(context.Background()).Err()
				_ = client.Close()
			})
			return client
		}
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return nil
}
