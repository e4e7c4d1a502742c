// Package counter accumulates version download counts in Redis and flushes
// them to the database in batches, keeping the hot path off MySQL.
package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const downloadsKey = "version:counters:downloads"

// Counter batches per-version download increments.
type Counter struct {
	rdb *redis.Client
	db  *gorm.DB
}

func New(rdb *redis.Client, db *gorm.DB) *Counter {
	return &Counter{rdb: rdb, db: db}
}

// AddDownload increments the pending download counter for a version.
func (c *Counter) AddDownload(versionID uint) error {
	field := strconv.FormatUint(uint64(versionID), 10)
	return c.rdb.HIncrBy(context.Background(), downloadsKey, field, 1).Err()
}

// Flush drains the pending counters and applies them to the versions table.
// The hash is RENAMEd to a temporary key first so in-flight increments land
// in a fresh hash instead of being lost.
func (c *Counter) Flush() error {
	ctx := context.Background()

	tmpKey := fmt.Sprintf("%s:tmp:%d", downloadsKey, time.Now().UnixNano())
	if err := c.rdb.Do(ctx, "RENAME", downloadsKey, tmpKey).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || err == redis.Nil {
			return nil
		}
		return err
	}
	defer c.rdb.Del(ctx, tmpKey)

	data, err := c.rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	// Build one batched UPDATE with CASE WHEN id THEN increment.
	ids := make([]uint64, 0, len(data))
	increments := make(map[uint64]int64, len(data))
	for field, raw := range data {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		inc, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || inc == 0 {
			continue
		}
		ids = append(ids, id)
		increments[id] = inc
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var caseExpr strings.Builder
	args := make([]interface{}, 0, len(ids)*2+len(ids))
	caseExpr.WriteString("download_count + CASE id")
	for _, id := range ids {
		caseExpr.WriteString(" WHEN ? THEN ?")
		args = append(args, id, increments[id])
	}
	caseExpr.WriteString(" ELSE 0 END")

	idArgs := make([]interface{}, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}

	query := fmt.Sprintf(
		"UPDATE versions SET download_count = %s WHERE id IN (%s)",
		caseExpr.String(),
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","),
	)
	args = append(args, idArgs...)

	return c.db.Exec(query, args...).Error
}
