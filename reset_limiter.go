package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var errResetRateLimited = errors.New("reset rate limited")

// passwordResetLimiter rate-limits reset requests with fixed-window
// counters under pwdreset:attempts:{identifier}. Requests are budgeted per
// hashed email and per requester IP so neither a mailbox nor a source host
// can be used to spray tokens.
type passwordResetLimiter struct {
	redis  redis.UniversalClient
	config PasswordResetConfig
}

func newPasswordResetLimiter(client redis.UniversalClient, cfg PasswordResetConfig) *passwordResetLimiter {
	return &passwordResetLimiter{
		redis:  client,
		config: cfg,
	}
}

func resetAttemptsKey(identifier string) string {
	return "pwdreset:attempts:" + identifier
}

// CheckRequest spends one attempt for each identifier and fails with
// errResetRateLimited once either exceeds the budget. The window TTL is
// armed by the first hit and equals the reset-token TTL.
func (l *passwordResetLimiter) CheckRequest(ctx context.Context, identifiers ...string) error {
	for _, identifier := range identifiers {
		key := resetAttemptsKey(identifier)

		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", errResetUnavailable, err)
		}
		if count == 1 {
			if err := l.redis.Expire(ctx, key, l.config.TokenTTL).Err(); err != nil {
				return fmt.Errorf("%w: %v", errResetUnavailable, err)
			}
		}
		if count > int64(l.config.RequestLimit) {
			return errResetRateLimited
		}
	}
	return nil
}
