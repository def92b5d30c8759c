package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestPasswordReset issues a single-use reset token for the account
// behind email and hands it to the configured delivery collaborator.
//
// The outcome is deliberately indistinguishable to the caller: unknown
// emails, delivery failures, and successful issuance all return nil.
// Only rate limiting and infrastructure outages surface as errors.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || e.store == nil {
		return ErrNotReady
	}

	ip := clientIPFromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	// Rate-limited per requester IP and per target account. The email is
	// hashed so the limiter keyspace never holds addresses in the clear.
	err := e.resetLimiter.CheckRequest(ctx, ip, anonymize(email))
	if err != nil {
		if errors.Is(err, errResetRateLimited) {
			return ErrTooManyAttempts
		}
		return err
	}

	user, err := e.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Same audit trail, same nil return, as a real request.
			e.emitAudit(ctx, auditEventResetRequest, "", map[string]string{
				"ip":    anonymize(ip),
				"email": anonymize(email),
			})
			return nil
		}
		return err
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	record := passwordResetRecord{
		UserID:          user.UserID,
		RequesterIPHash: anonymize(ip),
	}
	if err := e.resetStore.Save(ctx, token, record, e.config.PasswordReset.TokenTTL); err != nil {
		return err
	}

	if e.delivery != nil {
		if err := e.delivery.DeliverResetToken(ctx, email, token); err != nil {
			e.logger.Warn("reset token delivery failed", zap.Error(err))
		}
	}

	e.emitAudit(ctx, auditEventResetRequest, user.UserID, map[string]string{
		"ip":    anonymize(ip),
		"email": anonymize(email),
	})

	return nil
}

// ConfirmPasswordReset consumes a reset token, installs the new password,
// and revokes every active refresh token for the account.
//
// Consumption is atomic: the token is gone after the first attempt even if
// the new password is then rejected, so a token can never be retried.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if e == nil || e.store == nil {
		return ErrNotReady
	}

	record, err := e.resetStore.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, errResetNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	if err := validatePasswordStrength(newPassword, e.config.PasswordReset); err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.store.UpdatePasswordHash(ctx, record.UserID, hash); err != nil {
		return err
	}

	// Every session dies with the old password. A failure here is logged
	// rather than returned: the password change itself already landed.
	if err := e.registry.RevokeAll(ctx, record.UserID); err != nil {
		e.logger.Error("revoke-all after password reset failed",
			zap.String("user_id", record.UserID), zap.Error(err))
	}

	e.emitAudit(ctx, auditEventResetConfirm, record.UserID, map[string]string{
		"requester_ip": record.RequesterIPHash,
	})

	return nil
}
