package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match. The two cases are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid is returned for a bad signature, malformed structure,
	// wrong token type, or missing subject.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a structurally valid refresh token is
	// no longer a member of its user's active set.
	ErrTokenExpired = errors.New("refresh token expired")
	// ErrTokenReuseDetected is returned when an already-rotated or
	// already-revoked refresh token is presented. The engine revokes the
	// user's entire active set before returning it.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
	// ErrLocked is returned while a lockout marker exists for the client IP
	// or the email. Use errors.As with *LockedError for the retry delay.
	ErrLocked = errors.New("login temporarily locked")
	// ErrWeakPassword is returned when a new password fails the strength
	// policy.
	ErrWeakPassword = errors.New("password does not meet strength policy")
	// ErrResetTokenInvalid is returned when a password-reset token is
	// unknown, expired, or already consumed.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	// ErrTooManyAttempts is returned when password-reset requests exceed the
	// per-identifier budget.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrNotReady is returned when an Engine method is called before Build
	// wired its dependencies.
	ErrNotReady = errors.New("engine not initialized")
)

// LockedError carries the duration the caller should wait before retrying.
// It matches ErrLocked under errors.Is.
type LockedError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *LockedError) Error() string {
	return fmt.Sprintf("login temporarily locked, retry after %s", e.RetryAfter)
}

// Is reports equivalence to ErrLocked so callers can branch on the sentinel
// without unwrapping the retry delay.
func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}
