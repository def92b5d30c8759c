package authcore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/careerpilot/authcore/jwt"
	"github.com/careerpilot/authcore/password"
	"github.com/careerpilot/authcore/refresh"
)

// Engine composes the token codec, refresh registry, login guard, and
// password-reset flow into the auth operations exposed at the system
// boundary. Construct it with [Builder.Build]; all dependencies are
// explicit and the Engine holds no global state.
type Engine struct {
	config       Config
	store        CredentialStore
	hasher       *password.Hasher
	tokens       *jwt.Manager
	registry     *refresh.Registry
	guard        *loginGuard
	resetStore   *passwordResetStore
	resetLimiter *passwordResetLimiter
	delivery     ResetDelivery
	audit        *auditDispatcher
	logger       *zap.Logger
}

// Close flushes the audit queue. Call it during process shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher queue was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// anonymize hashes an identifier before it enters audit details, matching
// what the reset limiter keys on. Raw emails and IPs never reach the sink.
func anonymize(value string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(value)))
	return hex.EncodeToString(sum[:])
}

// Login verifies credentials under the brute-force guard and, on success,
// issues a fresh access/refresh pair and registers the refresh token.
//
// Guard-store failures degrade to unlimited attempts unless
// GuardConfig.FailClosed is set; credential verification itself always
// fails closed.
func (e *Engine) Login(ctx context.Context, email, passwd string) (*TokenPair, error) {
	if e == nil || e.store == nil {
		return nil, ErrNotReady
	}

	ip := clientIPFromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	locked, err := e.guard.IsLocked(ctx, ip, email)
	if err != nil {
		if e.config.Guard.FailClosed {
			return nil, err
		}
		e.logger.Warn("login guard lock check failed, continuing without lockout", zap.Error(err))
		locked = false
	}
	if locked {
		e.emitAudit(ctx, auditEventLoginLocked, "", map[string]string{
			"ip":    anonymize(ip),
			"email": anonymize(email),
		})
		return nil, &LockedError{RetryAfter: e.guard.RetryAfter()}
	}

	user, err := e.store.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	verified := false
	if user != nil {
		verified, err = e.hasher.Verify(passwd, user.PasswordHash)
		if err != nil {
			e.logger.Warn("password hash verification failed", zap.Error(err))
			verified = false
		}
	}

	if !verified {
		attempts, gerr := e.guard.RegisterFailure(ctx, ip, email)
		if gerr != nil {
			if e.config.Guard.FailClosed {
				return nil, gerr
			}
			// Degrade to unlimited attempts: the failure is reported as
			// plain bad credentials, never as a lockout.
			e.logger.Warn("login guard failure tracking failed", zap.Error(gerr))
			attempts = 0
		}

		details := map[string]string{
			"ip":       anonymize(ip),
			"email":    anonymize(email),
			"attempts": strconv.FormatInt(attempts, 10),
		}
		var userID string
		if user != nil {
			userID = user.UserID
		}
		e.emitAudit(ctx, auditEventLoginFailure, userID, details)

		if attempts >= int64(e.config.Guard.AttemptLimit) {
			return nil, &LockedError{RetryAfter: e.guard.RetryAfter()}
		}
		return nil, ErrInvalidCredentials
	}

	if err := e.guard.ClearAttempts(ctx, ip, email); err != nil {
		e.logger.Warn("login guard cleanup failed", zap.Error(err))
	}

	pair, err := e.issuePair(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventLoginSuccess, user.UserID, map[string]string{
		"ip": anonymize(ip),
	})

	return pair, nil
}

// issuePair mints an access/refresh pair and records the refresh jti in the
// user's active set before the pair is handed out.
func (e *Engine) issuePair(ctx context.Context, userID string) (*TokenPair, error) {
	access, _, err := e.tokens.Issue(userID, jwt.TypeAccess)
	if err != nil {
		return nil, err
	}

	refreshToken, claims, err := e.tokens.Issue(userID, jwt.TypeRefresh)
	if err != nil {
		return nil, err
	}

	if err := e.registry.Store(ctx, userID, claims.JTI(), claims.Expiry()); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh rotates a refresh token: the presented jti is revoked and a new
// pair issued in its place, making every refresh token single-use.
//
// Presenting an already-rotated or already-revoked token is treated as
// evidence of theft: the user's entire active set is revoked before
// ErrTokenReuseDetected is returned.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.registry == nil {
		return nil, ErrNotReady
	}

	claims, err := e.tokens.Parse(refreshToken, jwt.TypeRefresh)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	userID := claims.Subject
	jti := claims.JTI()

	// Blacklist check comes first: a revoked jti must never be accepted
	// even while it still sits in a stale active set.
	revoked, err := e.registry.IsRevoked(ctx, jti)
	if err != nil {
		return nil, err
	}
	if revoked {
		if rerr := e.registry.RevokeAll(ctx, userID); rerr != nil {
			e.logger.Error("revoke-all after reuse detection failed", zap.Error(rerr))
		}
		e.emitAudit(ctx, auditEventRefreshReuseDetected, userID, map[string]string{
			"jti": jti,
		})
		return nil, ErrTokenReuseDetected
	}

	active, err := e.registry.IsActive(ctx, userID, jti)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrTokenExpired
	}

	removed, err := e.registry.Revoke(ctx, userID, jti, claims.Expiry())
	if err != nil {
		return nil, err
	}
	if !removed {
		// A concurrent rotation consumed this jti between the active
		// check and now. Exactly one caller rotates; the rest land here.
		return nil, ErrTokenExpired
	}

	pair, err := e.issuePair(ctx, userID)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventRefreshSuccess, userID, nil)

	return pair, nil
}

// Logout revokes a single refresh token. The token must decode as a refresh
// token belonging to userID, the already-authenticated caller.
func (e *Engine) Logout(ctx context.Context, userID, refreshToken string) error {
	if e == nil || e.registry == nil {
		return ErrNotReady
	}

	claims, err := e.tokens.Parse(refreshToken, jwt.TypeRefresh)
	if err != nil {
		return ErrTokenInvalid
	}
	if claims.Subject != userID {
		return ErrTokenInvalid
	}

	// Logout is idempotent: revoking an already-inactive token still
	// writes the tombstone and reports success.
	if _, err := e.registry.Revoke(ctx, userID, claims.JTI(), claims.Expiry()); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventLogoutSingle, userID, map[string]string{
		"jti": claims.JTI(),
	})

	return nil
}

// LogoutAll revokes every active refresh token for userID.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.registry == nil {
		return ErrNotReady
	}

	if err := e.registry.RevokeAll(ctx, userID); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventLogoutAll, userID, nil)

	return nil
}

// ValidateAccess verifies an access token and returns its subject. Validity
// is purely cryptographic and time-based; no store lookup is involved.
func (e *Engine) ValidateAccess(_ context.Context, accessToken string) (string, error) {
	if e == nil || e.tokens == nil {
		return "", ErrNotReady
	}

	claims, err := e.tokens.Parse(accessToken, jwt.TypeAccess)
	if err != nil {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
