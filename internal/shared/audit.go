package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Audit actions recorded by the portal.
const (
	AuditLogin             = "auth.login"
	AuditLoginFailed       = "auth.login_failed"
	AuditLogout            = "auth.logout"
	AuditSessionRevoked    = "auth.session_revoked"
	AuditRegister          = "auth.register"
	AuditPasswordChanged   = "auth.password_changed"
	AuditUserRolesUpdated  = "users.roles_updated"
	AuditUserDeleted       = "users.deleted"
	AuditUserRoleGranted   = "users.role_granted"
	AuditUserRoleRevoked   = "users.role_revoked"
	AuditPermissionSaved   = "permissions.saved"
	AuditPermissionDeleted = "permissions.deleted"
	AuditRoleLinkSaved     = "roles.link_saved"
	AuditRoleLinkDeleted   = "roles.link_deleted"
	AuditPatientRegistered = "patients.registered"
	AuditFileUploaded      = "files.uploaded"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Execer is the subset of pgxpool.Pool used by AuditLogger.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger writes records into audit_logs. A logger without a database is a
// no-op so the portal can run without PostgreSQL.
type AuditLogger struct {
	db Execer
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(db Execer) *AuditLogger {
	return &AuditLogger{db: db}
}

// Enabled reports whether records are persisted.
func (l *AuditLogger) Enabled() bool {
	return l != nil && l.db != nil
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if !l.Enabled() {
		return nil
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = l.db.Exec(ctx, `INSERT INTO audit_logs (actor, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`, log.Actor, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}

// Cleanup removes entries older than retention and returns the number deleted.
func (l *AuditLogger) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if !l.Enabled() {
		return 0, nil
	}
	if olderThan <= 0 {
		return 0, errors.New("audit retention must be positive")
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := l.db.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
