package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

func testQuotas() entitlements.Quotas {
	return entitlements.Quotas{
		Free:              entitlements.Limits{RequestsPerMinute: 3},
		Pro:               entitlements.Limits{RequestsPerMinute: 10},
		Premium:           entitlements.Limits{RequestsPerMinute: 20},
		PublicIPPerMinute: 5,
		AuthIPPerMinute:   2,
	}
}

func uniqueIP(t *testing.T) string {
	return fmt.Sprintf("10.0.0.1-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestCheckIPAllowsUpToLimit(t *testing.T) {
	rdb := newTestRedis(t)
	now, _ := testClock(time.Now(), time.Millisecond)
	svc := NewService(rdb, testQuotas(), WithClock(now))

	ip := uniqueIP(t)
	ctx := context.Background()

	// All requests up to the limit are allowed with remaining counting
	// down monotonically.
	for i := 0; i < 5; i++ {
		res, err := svc.CheckIP(ctx, ip, ClassPublic)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, res.Limit)
		assert.Equal(t, 5-i-1, res.Remaining)
	}

	// The next request inside the window is rejected and consumes no slot.
	res, err := svc.CheckIP(ctx, ip, ClassPublic)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	key := fmt.Sprintf("ratelimit:ip:%s:%s", ip, ClassPublic)
	count, err := rdb.ZCard(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(5), count, "rejected request must be rolled back")
}

func TestCheckIPAuthClassUsesOwnLimit(t *testing.T) {
	rdb := newTestRedis(t)
	now, _ := testClock(time.Now(), time.Millisecond)
	svc := NewService(rdb, testQuotas(), WithClock(now))

	ip := uniqueIP(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.CheckIP(ctx, ip, ClassAuth)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Limit)
	}

	res, err := svc.CheckIP(ctx, ip, ClassAuth)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// The same IP still has a fresh public window: classes are independent.
	res, err = svc.CheckIP(ctx, ip, ClassPublic)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCheckUserLimitByTier(t *testing.T) {
	rdb := newTestRedis(t)
	now, _ := testClock(time.Now(), time.Millisecond)
	svc := NewService(rdb, testQuotas(), WithClock(now))

	userID := uint(time.Now().UnixNano() % 1_000_000_000)
	ctx := context.Background()

	res, err := svc.CheckUser(ctx, userID, entitlements.TierFree)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Limit)
	assert.Equal(t, 2, res.Remaining)
}

func TestWindowExpiryResetsCount(t *testing.T) {
	rdb := newTestRedis(t)
	now, advance := testClock(time.Now(), time.Millisecond)
	svc := NewService(rdb, testQuotas(), WithClock(now))

	ip := uniqueIP(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.CheckIP(ctx, ip, ClassAuth)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := svc.CheckIP(ctx, ip, ClassAuth)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Once the window width has passed, a fresh request starts a new
	// window with a full allowance.
	advance(svc.Window() + time.Second)

	res, err = svc.CheckIP(ctx, ip, ClassAuth)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestStoreOutageFailsClosed(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	defer rdb.Close()

	svc := NewService(rdb, testQuotas())

	_, err := svc.CheckIP(context.Background(), "10.0.0.9", ClassPublic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}
