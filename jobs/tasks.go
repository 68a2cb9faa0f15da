package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditCleanup prunes audit rows older than the retention window.
	TaskAuditCleanup = "audit:cleanup"
)

// AuditCleanupPayload carries the retention window in seconds.
type AuditCleanupPayload struct {
	RetentionSeconds int64 `json:"retention_seconds"`
}

// Retention returns the window as a duration.
func (p AuditCleanupPayload) Retention() time.Duration {
	return time.Duration(p.RetentionSeconds) * time.Second
}

// NewAuditCleanupTask constructs an Asynq task for the given retention.
func NewAuditCleanupTask(retention time.Duration) (*asynq.Task, error) {
	if retention < time.Second {
		return nil, errors.New("audit cleanup: retention must be at least one second")
	}
	data, err := json.Marshal(AuditCleanupPayload{RetentionSeconds: int64(retention / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditCleanup, data), nil
}
