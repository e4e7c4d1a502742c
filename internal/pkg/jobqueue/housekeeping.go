package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/metrics/counter"
	"github.com/plexdev/plexaddons-api/internal/pkg/quota"
	"github.com/plexdev/plexaddons-api/internal/pkg/statistics"
)

const (
	requestLogRetention = 90 * 24 * time.Hour
	auditLogRetention   = 365 * 24 * time.Hour
	usersPerSyncBatch   = 500
)

// RegisterHousekeeping wires the standard housekeeping processors onto the
// queue.
func RegisterHousekeeping(q *Queue, repos *repository.Repositories, downloads *counter.Counter, stats *statistics.Service, enforcer *quota.Enforcer) {
	q.Register(JobTypeFlushDownloadCounters, func(ctx context.Context, job *Job) error {
		return downloads.Flush()
	})

	q.Register(JobTypeRefreshStatistics, func(ctx context.Context, job *Job) error {
		return stats.Refresh()
	})

	q.Register(JobTypePruneRequestLogs, func(ctx context.Context, job *Job) error {
		deleted, err := repos.RequestLog.DeleteOlderThan(time.Now().Add(-requestLogRetention))
		if err != nil {
			return err
		}
		log.Infof("[Housekeeping] Pruned %d request log rows", deleted)
		return nil
	})

	q.Register(JobTypePruneAuditLogs, func(ctx context.Context, job *Job) error {
		deleted, err := repos.AuditLog.DeleteOlderThan(time.Now().Add(-auditLogRetention))
		if err != nil {
			return err
		}
		log.Infof("[Housekeeping] Pruned %d audit log rows", deleted)
		return nil
	})

	q.Register(JobTypeSyncStorageCounters, func(ctx context.Context, job *Job) error {
		return syncStorageCounters(repos, enforcer)
	})
}

// syncStorageCounters recomputes every user's cached storage counter. The
// counter is informational only, but letting drift accumulate makes the
// dashboard numbers useless.
func syncStorageCounters(repos *repository.Repositories, enforcer *quota.Enforcer) error {
	for offset := 0; ; offset += usersPerSyncBatch {
		users, err := repos.User.List(offset, usersPerSyncBatch)
		if err != nil {
			return fmt.Errorf("user list failed: %w", err)
		}
		if len(users) == 0 {
			return nil
		}
		for _, user := range users {
			if _, err := enforcer.SyncStorageCounter(user.ID); err != nil {
				log.Errorf("[Housekeeping] storage sync for user %d failed: %v", user.ID, err)
			}
		}
		if len(users) < usersPerSyncBatch {
			return nil
		}
	}
}

// StartScheduler enqueues recurring housekeeping jobs at fixed intervals
// until the context is cancelled.
func StartScheduler(ctx context.Context, q *Queue) {
	go runTicker(ctx, q, JobTypeFlushDownloadCounters, time.Minute)
	go runTicker(ctx, q, JobTypeRefreshStatistics, 15*time.Minute)
	go runTicker(ctx, q, JobTypePruneRequestLogs, 24*time.Hour)
	go runTicker(ctx, q, JobTypePruneAuditLogs, 24*time.Hour)
	go runTicker(ctx, q, JobTypeSyncStorageCounters, 6*time.Hour)
}

func runTicker(ctx context.Context, q *Queue, jobType JobType, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.EnqueueJob(jobType, nil); err != nil {
				log.Errorf("[Housekeeping] enqueue %s failed: %v", jobType, err)
			}
		}
	}
}
