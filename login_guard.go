package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var errGuardUnavailable = errors.New("login guard store unavailable")

// loginGuard tracks failed-login counters and lockout markers per
// identifier. Every attempt is tracked under two independent identifiers,
// the client IP and the lower-cased email, so a distributed attack on one
// account and a single-source attack on many accounts both trip it.
//
// Key layout:
//
//	login:attempts:{identifier}  counter, TTL = lockout window
//	lockout:{identifier}         marker, TTL = lockout duration
type loginGuard struct {
	redis  redis.UniversalClient
	config GuardConfig
}

func newLoginGuard(client redis.UniversalClient, cfg GuardConfig) *loginGuard {
	return &loginGuard{
		redis:  client,
		config: cfg,
	}
}

func guardIdentifiers(ip, email string) [2]string {
	return [2]string{ip, strings.ToLower(email)}
}

func attemptsKey(identifier string) string {
	return "login:attempts:" + identifier
}

func lockoutKey(identifier string) string {
	return "lockout:" + identifier
}

// IsLocked reports whether either identifier currently has a lockout
// marker.
func (g *loginGuard) IsLocked(ctx context.Context, ip, email string) (bool, error) {
	for _, identifier := range guardIdentifiers(ip, email) {
		n, err := g.redis.Exists(ctx, lockoutKey(identifier)).Result()
		if err != nil {
			return false, fmt.Errorf("%w: %v", errGuardUnavailable, err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// RegisterFailure increments both identifiers' counters, arming the window
// TTL on the first hit, and sets a lockout marker for any identifier whose
// counter reaches the limit. It returns the larger of the two counts so the
// caller can tell whether this particular failure crossed the threshold.
func (g *loginGuard) RegisterFailure(ctx context.Context, ip, email string) (int64, error) {
	var max int64
	for _, identifier := range guardIdentifiers(ip, email) {
		key := attemptsKey(identifier)

		count, err := g.redis.Incr(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errGuardUnavailable, err)
		}
		if count == 1 {
			if err := g.redis.Expire(ctx, key, g.config.LockoutDuration).Err(); err != nil {
				return 0, fmt.Errorf("%w: %v", errGuardUnavailable, err)
			}
		}
		if count > max {
			max = count
		}

		// The marker has its own TTL so a lockout outlives the counter
		// window it was earned in.
		if count >= int64(g.config.AttemptLimit) {
			if err := g.redis.Set(ctx, lockoutKey(identifier), 1, g.config.LockoutDuration).Err(); err != nil {
				return 0, fmt.Errorf("%w: %v", errGuardUnavailable, err)
			}
		}
	}
	return max, nil
}

// ClearAttempts deletes both counters and both lockout markers. Called
// after a successful login so a later failure starts a fresh count.
func (g *loginGuard) ClearAttempts(ctx context.Context, ip, email string) error {
	ids := guardIdentifiers(ip, email)
	keys := []string{
		attemptsKey(ids[0]), attemptsKey(ids[1]),
		lockoutKey(ids[0]), lockoutKey(ids[1]),
	}

	if err := g.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", errGuardUnavailable, err)
	}
	return nil
}

// RetryAfter is the delay reported to locked-out callers.
func (g *loginGuard) RetryAfter() time.Duration {
	return g.config.LockoutDuration
}
