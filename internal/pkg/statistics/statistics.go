// Package statistics serves cached platform counts for the admin dashboard
// and the public landing payload.
package statistics

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
)

const (
	cacheKeyAddonsTotal   = "statistics:addons:total"
	cacheKeyVersionsTotal = "statistics:versions:total"
	cacheKeyVersionsDaily = "statistics:versions:daily:" // + YYYY-MM-DD
	cacheKeyUsersTotal    = "statistics:users:total"
	cacheExpiration       = 30 * time.Minute
)

// Data is the platform counters snapshot.
type Data struct {
	TotalAddons   int64 `json:"total_addons"`
	TotalVersions int64 `json:"total_versions"`
	TodayVersions int64 `json:"today_versions"`
	TotalUsers    int64 `json:"total_users"`
}

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
	now func() time.Time
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb, now: time.Now}
}

// Snapshot returns the platform counters, served from cache when fresh.
func (s *Service) Snapshot() (*Data, error) {
	data := &Data{
		TotalAddons:   s.cachedCount(cacheKeyAddonsTotal, s.countAddons),
		TotalVersions: s.cachedCount(cacheKeyVersionsTotal, s.countVersions),
		TodayVersions: s.cachedCount(s.dailyKey(), s.countTodayVersions),
		TotalUsers:    s.cachedCount(cacheKeyUsersTotal, s.countUsers),
	}
	return data, nil
}

// Refresh recomputes every counter and rewrites the cache.
func (s *Service) Refresh() error {
	counts := map[string]func() (int64, error){
		cacheKeyAddonsTotal:   s.countAddons,
		cacheKeyVersionsTotal: s.countVersions,
		s.dailyKey():          s.countTodayVersions,
		cacheKeyUsersTotal:    s.countUsers,
	}
	ctx := context.Background()
	for key, count := range counts {
		v, err := count()
		if err != nil {
			return err
		}
		if err := s.rdb.Set(ctx, key, strconv.FormatInt(v, 10), cacheExpiration).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) cachedCount(key string, fallback func() (int64, error)) int64 {
	ctx := context.Background()
	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if count, err := strconv.ParseInt(val, 10, 64); err == nil {
			return count
		}
	}

	count, err := fallback()
	if err != nil {
		log.Printf("statistics: count for %s failed: %v", key, err)
		return 0
	}
	if err := s.rdb.Set(ctx, key, strconv.FormatInt(count, 10), cacheExpiration).Err(); err != nil {
		log.Printf("statistics: cache write for %s failed: %v", key, err)
	}
	return count
}

func (s *Service) dailyKey() string {
	return cacheKeyVersionsDaily + s.now().Format("2006-01-02")
}

func (s *Service) countAddons() (int64, error) {
	var count int64
	err := s.db.Model(&models.Addon{}).Count(&count).Error
	return count, err
}

func (s *Service) countVersions() (int64, error) {
	var count int64
	err := s.db.Model(&models.Version{}).Count(&count).Error
	return count, err
}

func (s *Service) countTodayVersions() (int64, error) {
	dayStart := s.now().Truncate(24 * time.Hour)
	var count int64
	err := s.db.Model(&models.Version{}).
		Where("created_at >= ?", dayStart).
		Count(&count).Error
	return count, err
}

func (s *Service) countUsers() (int64, error) {
	var count int64
	err := s.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
