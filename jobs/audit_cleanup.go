package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/medportal/medportal/internal/jobs"
)

// Pruner deletes audit rows older than a retention window.
type Pruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// AuditCleanupJob removes expired audit trail entries.
type AuditCleanupJob struct {
	Audit   Pruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAuditCleanupJob wires dependencies for the cleanup handler.
func NewAuditCleanupJob(audit Pruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditCleanupJob {
	return &AuditCleanupJob{Audit: audit, Logger: logger, Metrics: metrics}
}

// Handle processes TaskAuditCleanup tasks.
func (j *AuditCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Audit == nil {
		return errors.New("audit cleanup: handler not configured")
	}
	var payload AuditCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return errors.Join(err, asynq.SkipRetry)
	}
	if payload.RetentionSeconds <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskAuditCleanup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Duration("retention", payload.Retention()))
	deleted, err := j.Audit.Cleanup(ctx, payload.Retention())
	if err != nil {
		logger.Error("audit cleanup", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPruned(deleted)
	logger.Info("audit cleanup finished", slog.Int64("deleted", deleted))
	return nil
}

func (j *AuditCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
