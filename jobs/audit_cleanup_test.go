package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/medportal/medportal/internal/jobs"
)

type fakePruner struct {
	olderThan time.Duration
	deleted   int64
	err       error
}

func (f *fakePruner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return f.deleted, f.err
}

func TestNewAuditCleanupTaskRejectsTinyRetention(t *testing.T) {
	_, err := NewAuditCleanupTask(time.Millisecond)
	assert.Error(t, err)
}

func TestAuditCleanupPassesRetention(t *testing.T) {
	pruner := &fakePruner{deleted: 4}
	job := NewAuditCleanupJob(pruner, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewAuditCleanupTask(90 * 24 * time.Hour)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 90*24*time.Hour, pruner.olderThan)
}

func TestAuditCleanupReturnsStoreError(t *testing.T) {
	boom := errors.New("db down")
	job := NewAuditCleanupJob(&fakePruner{err: boom}, nil, nil)
	task, err := NewAuditCleanupTask(time.Hour)
	require.NoError(t, err)

	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestAuditCleanupSkipsRetryOnBadPayload(t *testing.T) {
	pruner := &fakePruner{}
	job := NewAuditCleanupJob(pruner, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskAuditCleanup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskAuditCleanup, []byte(`{"retention_seconds":0}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, pruner.olderThan)
}
