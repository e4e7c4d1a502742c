package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, q *Queue, jobID string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.GetJob(jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestEnqueueAndProcess(t *testing.T) {
	client := newIsolatedRedisClient(t)
	q := NewQueue(client, 1)

	var processed atomic.Int32
	q.Register(JobTypeRefreshStatistics, func(ctx context.Context, job *Job) error {
		processed.Add(1)
		return nil
	})

	q.Start()
	defer q.Stop()

	job, err := q.EnqueueJob(JobTypeRefreshStatistics, nil)
	require.NoError(t, err)

	done := waitForStatus(t, q, job.ID, JobStatusCompleted)
	assert.Equal(t, int32(1), processed.Load())
	assert.NotNil(t, done.CompletedAt)
}

func TestFailedJobRetries(t *testing.T) {
	client := newIsolatedRedisClient(t)
	q := NewQueue(client, 1)

	var attempts atomic.Int32
	q.Register(JobTypePruneRequestLogs, func(ctx context.Context, job *Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient failure")
		}
		return nil
	})

	q.Start()
	defer q.Stop()

	job, err := q.EnqueueJob(JobTypePruneRequestLogs, nil)
	require.NoError(t, err)

	waitForStatus(t, q, job.ID, JobStatusCompleted)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestUnknownJobTypeExhaustsRetries(t *testing.T) {
	client := newIsolatedRedisClient(t)
	q := NewQueue(client, 1)
	q.Start()
	defer q.Stop()

	job, err := q.EnqueueJob(JobType("no_such_type"), nil)
	require.NoError(t, err)

	failed := waitForStatus(t, q, job.ID, JobStatusFailed)
	assert.Equal(t, DefaultMaxRetries, failed.RetryCount)
	assert.Contains(t, failed.ErrorMsg, "unknown job type")
}

func TestPayloadRoundTrip(t *testing.T) {
	client := newIsolatedRedisClient(t)
	q := NewQueue(client, 1)

	payload := map[string]interface{}{"reason": "manual"}
	job, err := q.EnqueueJob(JobTypeSyncStorageCounters, payload)
	require.NoError(t, err)

	loaded, err := q.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "manual", loaded.Payload["reason"])
	assert.Equal(t, JobStatusPending, loaded.Status)
}
