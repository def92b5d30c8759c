package authcore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errResetNotFound    = errors.New("reset token not found")
	errResetUnavailable = errors.New("reset store unavailable")
)

// passwordResetRecord is what a reset token redeems into. The requester
// address is stored already hashed; raw IPs never persist.
type passwordResetRecord struct {
	UserID          string `json:"user_id"`
	RequesterIPHash string `json:"ip"`
}

// passwordResetStore keeps single-use reset tokens under pwdreset:{token}
// with the reset-window TTL. Consumption is an atomic get-and-delete, so
// concurrent confirmations race safely to exactly one winner.
type passwordResetStore struct {
	redis redis.UniversalClient
}

func newPasswordResetStore(client redis.UniversalClient) *passwordResetStore {
	return &passwordResetStore{redis: client}
}

func resetTokenKey(token string) string {
	return "pwdreset:" + token
}

// Save stores the record under the opaque token for ttl.
func (s *passwordResetStore) Save(ctx context.Context, token string, record passwordResetRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, resetTokenKey(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errResetUnavailable, err)
	}
	return nil
}

// Consume atomically fetches and deletes the record. A missing key means
// the token is unknown, expired, or was already consumed by a concurrent
// confirmation; the caller cannot and must not distinguish these.
func (s *passwordResetStore) Consume(ctx context.Context, token string) (*passwordResetRecord, error) {
	data, err := s.redis.GetDel(ctx, resetTokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errResetNotFound
		}
		return nil, fmt.Errorf("%w: %v", errResetUnavailable, err)
	}

	var record passwordResetRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errResetNotFound
	}

	return &record, nil
}
