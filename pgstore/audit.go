package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/careerpilot/authcore"
)

// AuditSink persists audit events to the audit_events table. Emit is called
// from the engine's dispatcher goroutine, never from auth request paths, so
// insert latency does not affect callers.
type AuditSink struct {
	pool    *pgxpool.Pool
	logger  *zap.Logger
	timeout time.Duration
}

// NewAuditSink wraps pool. Each insert runs under its own deadline so a
// stalled database cannot wedge the dispatcher for longer than timeout.
// A nil logger falls back to zap.NewNop.
func NewAuditSink(pool *pgxpool.Pool, logger *zap.Logger, timeout time.Duration) *AuditSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuditSink{pool: pool, logger: logger, timeout: timeout}
}

// Emit inserts one event, details as jsonb. Audit is best-effort by
// contract, so insert failures are logged and dropped.
func (s *AuditSink) Emit(ctx context.Context, event authcore.AuditEvent) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const q = `
		INSERT INTO audit_events (id, occurred_at, event_type, user_id, details)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`
	_, err := s.pool.Exec(ctx, q,
		event.ID, event.Timestamp, event.EventType, event.UserID, event.Details)
	if err != nil {
		s.logger.Error("audit event insert failed",
			zap.String("event_type", event.EventType), zap.Error(err))
	}
}
