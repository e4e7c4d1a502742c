// Package ratelimit bounds request throughput per principal over a trailing
// window, independently for IP-based and user-based principals. Windows live
// in Redis sorted sets so every instance shares the same counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

// ErrStoreUnavailable signals that the limiter store could not be reached.
// Callers must fail closed: reject the request instead of letting it pass
// ungated.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// EndpointClass selects which IP limit applies to a route group.
type EndpointClass string

const (
	ClassPublic EndpointClass = "public"
	ClassAuth   EndpointClass = "auth"
)

const defaultWindow = 60 * time.Second

// Result reports the outcome of a single limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     int64 // unix epoch seconds when the window frees up
}

// Service is the sliding-window rate limiter. It is constructed once at
// startup with its Redis client and injected where needed.
type Service struct {
	rdb    *redis.Client
	quotas entitlements.Quotas
	window time.Duration
	now    func() time.Time
}

// Option customizes a Service, mainly for tests.
type Option func(*Service)

// WithWindow overrides the sliding window width.
func WithWindow(window time.Duration) Option {
	return func(s *Service) { s.window = window }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a rate limiter backed by the given Redis client.
func NewService(rdb *redis.Client, quotas entitlements.Quotas, opts ...Option) *Service {
	s := &Service{
		rdb:    rdb,
		quotas: quotas,
		window: defaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the sliding window width.
func (s *Service) Window() time.Duration {
	return s.window
}

// CheckIP consumes one slot from the IP window for the given endpoint class.
func (s *Service) CheckIP(ctx context.Context, ip string, class EndpointClass) (Result, error) {
	limit := s.quotas.PublicIPPerMinute
	if class == ClassAuth {
		limit = s.quotas.AuthIPPerMinute
	}
	key := fmt.Sprintf("ratelimit:ip:%s:%s", ip, class)
	return s.check(ctx, key, limit)
}

// CheckUser consumes one slot from the user window, capped by the user's
// effective tier.
func (s *Service) CheckUser(ctx context.Context, userID uint, tier entitlements.Tier) (Result, error) {
	limit := s.quotas.ForTier(tier).RequestsPerMinute
	key := fmt.Sprintf("ratelimit:user:%d", userID)
	return s.check(ctx, key, limit)
}

// check runs the four-step window update as one atomic unit: prune entries
// older than the window, count what is left, record this request, refresh
// the key's idle expiry. When the pre-add count already hit the limit the
// just-added entry is removed again so rejected requests consume no slot.
func (s *Service) check(ctx context.Context, key string, limit int) (Result, error) {
	now := s.now()
	windowStart := now.Add(-s.window)
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, s.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count := countCmd.Val()
	reset := now.Add(s.window).Unix()

	if count >= int64(limit) {
		// Over limit: roll back the entry we just added.
		if err := s.rdb.ZRem(ctx, key, member).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Result{Allowed: false, Limit: limit, Remaining: 0, Reset: reset}, nil
	}

	remaining := limit - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: limit, Remaining: remaining, Reset: reset}, nil
}
