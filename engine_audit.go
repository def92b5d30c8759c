package authcore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess         = "auth.login.success"
	auditEventLoginFailure         = "auth.login.failure"
	auditEventLoginLocked          = "auth.login.locked"
	auditEventRefreshSuccess       = "auth.refresh.success"
	auditEventRefreshReuseDetected = "auth.refresh.reuse_detected"
	auditEventLogoutSingle         = "auth.logout.single"
	auditEventLogoutAll            = "auth.logout.all"
	auditEventResetRequest         = "auth.password_reset.request"
	auditEventResetConfirm         = "auth.password_reset.confirm"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, userID string, details map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	e.audit.Emit(ctx, AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Details:   details,
	})
}
