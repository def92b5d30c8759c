package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures so callers can
// distinguish an outage from a legitimately missing or expired token.
var ErrRedisUnavailable = errors.New("redis unavailable")

// revokeScript removes the jti from the user's active set and writes its
// revoked tombstone in one atomic step. A rotation that blacklists the old
// jti must never be observable half-done: either both writes land or the
// script did not run.
const revokeScript = `
local removed = redis.call("ZREM", KEYS[1], ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl < 1 then
  ttl = 1
end
redis.call("SET", KEYS[2], "1", "EX", ttl)
return removed
`

var revokeLua = redis.NewScript(revokeScript)

// revokeAllScript blacklists every member of the active set with its own
// remaining lifetime, then deletes the set. Members already past their
// recorded expiry still get a minimal tombstone; the token is unusable
// either way.
//
// Tombstone keys are derived inside the script from the ARGV prefix, not
// declared in KEYS; see the Registry doc for the non-clustered assumption
// this relies on.
const revokeAllScript = `
local members = redis.call("ZRANGE", KEYS[1], 0, -1, "WITHSCORES")
local now = tonumber(ARGV[1])
local prefix = ARGV[2]
for i = 1, #members, 2 do
  local jti = members[i]
  local ttl = math.floor(tonumber(members[i + 1]) - now)
  if ttl < 1 then
    ttl = 1
  end
  redis.call("SET", prefix .. jti, "1", "EX", ttl)
end
redis.call("DEL", KEYS[1])
return (#members) / 2
`

var revokeAllLua = redis.NewScript(revokeAllScript)

// Registry tracks the set of currently-active refresh token identifiers per
// user plus a global revoked-jti blacklist. Membership of the blacklist is
// authoritative proof that a presented token was already rotated or revoked.
//
// Key layout:
//
//	refresh:active:{userID}  sorted set, member jti, score expiry unix seconds
//	refresh:revoked:{jti}    tombstone, TTL = remaining natural token lifetime
//
// The revocation scripts touch an active set and tombstone keys in one
// atomic step, which places those keys in different hash slots. The
// registry therefore requires a non-clustered Redis (single node or
// sentinel-managed); Redis Cluster key checking would reject the scripts.
type Registry struct {
	redis    redis.UniversalClient
	lifetime time.Duration
}

// NewRegistry returns a Registry backed by the given Redis client.
// lifetime is the refresh-token TTL; it bounds how long an abandoned
// active set survives before Redis reclaims it.
func NewRegistry(client redis.UniversalClient, lifetime time.Duration) *Registry {
	return &Registry{
		redis:    client,
		lifetime: lifetime,
	}
}

func activeKey(userID string) string {
	return "refresh:active:" + userID
}

func revokedKey(jti string) string {
	return "refresh:revoked:" + jti
}

const revokedKeyPrefix = "refresh:revoked:"

// Store adds jti to the user's active set with its expiry as score and
// refreshes the set's own TTL so abandoned sets self-clean.
func (r *Registry) Store(ctx context.Context, userID, jti string, expiresAt time.Time) error {
	key := activeKey(userID)

	pipe := r.redis.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(expiresAt.Unix()), Member: jti})
	pipe.Expire(ctx, key, r.lifetime)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// IsActive reports whether jti is a current member of the user's active set
// whose recorded expiry has not passed. A member past its expiry is lazily
// evicted and reported inactive.
func (r *Registry) IsActive(ctx context.Context, userID, jti string) (bool, error) {
	key := activeKey(userID)

	score, err := r.redis.ZScore(ctx, key, jti).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if int64(score) <= time.Now().Unix() {
		if err := r.redis.ZRem(ctx, key, jti).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return false, nil
	}

	return true, nil
}

// Revoke removes jti from the user's active set and inserts it into the
// revoked blacklist with TTL equal to the token's remaining natural
// lifetime, so the tombstone lives exactly as long as the token could
// have been replayed. The two writes are atomic.
//
// The returned bool reports whether jti was still a member of the active
// set. A false result under concurrent rotation means another caller
// consumed the token first.
func (r *Registry) Revoke(ctx context.Context, userID, jti string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Unix() - time.Now().Unix()

	removed, err := revokeLua.Run(ctx, r.redis,
		[]string{activeKey(userID), revokedKey(jti)},
		jti, ttl,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return removed > 0, nil
}

// IsRevoked reports whether jti has a tombstone in the revoked blacklist.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.redis.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// RevokeAll blacklists every member of the user's active set with its own
// remaining TTL and clears the set. Used on logout-all, on password reset,
// and when token reuse is detected.
func (r *Registry) RevokeAll(ctx context.Context, userID string) error {
	err := revokeAllLua.Run(ctx, r.redis,
		[]string{activeKey(userID)},
		time.Now().Unix(), revokedKeyPrefix,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ActiveCount returns the number of jtis currently recorded for the user,
// including members whose score has passed but were not yet evicted.
func (r *Registry) ActiveCount(ctx context.Context, userID string) (int64, error) {
	n, err := r.redis.ZCard(ctx, activeKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}
