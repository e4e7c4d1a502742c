package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plexdev/plexaddons-api/internal/pkg/env"
)

const isolatedRateLimitTestRedisDB = 13

// newTestRedis connects to a locally reachable Redis for integration tests,
// skipping the test when none is available.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	hosts := []string{
		env.GetEnv("CACHE_HOST", ""),
		"cache",
		"localhost",
		"127.0.0.1",
	}
	port := env.GetEnv("CACHE_PORT", "6379")
	passwords := []string{
		env.GetEnv("CACHE_PASSWORD", ""),
		"",
	}

	seen := make(map[string]struct{})
	for _, host := range hosts {
		if host == "" {
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}

		for _, password := range passwords {
			client := redis.NewClient(&redis.Options{
				Addr:        fmt.Sprintf("%s:%s", host, port),
				Password:    password,
				DB:          isolatedRateLimitTestRedisDB,
				DialTimeout: 500 * time.Millisecond,
			})

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			err := client.Ping(ctx).Err()
			cancel()
			if err == nil {
				t.Cleanup(func() {
					_ = client.Close()
				})
				return client
			}
			_ = client.Close()
		}
	}

	t.Skip("no reachable redis for rate limit tests")
	return nil
}

// testClock returns a clock that starts at a fixed instant and advances by
// step on every call, so successive checks never collide on the same member.
func testClock(start time.Time, step time.Duration) (func() time.Time, func(time.Duration)) {
	current := start
	var skew time.Duration
	now := func() time.Time {
		current = current.Add(step)
		return current.Add(skew)
	}
	advance := func(d time.Duration) {
		skew += d
	}
	return now, advance
}
