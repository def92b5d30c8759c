// Package pgstore backs the engine's external collaborators with Postgres:
// a CredentialStore over the users table and a durable AuditSink over
// audit_events. schema.sql carries the expected DDL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careerpilot/authcore"
)

// CredentialStore implements authcore.CredentialStore over a pgx pool.
type CredentialStore struct {
	pool *pgxpool.Pool
}

// NewCredentialStore wraps pool. The pool's lifecycle stays with the caller.
func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

// GetByEmail looks a user up by lower-cased email.
func (s *CredentialStore) GetByEmail(ctx context.Context, email string) (*authcore.UserRecord, error) {
	const q = `SELECT id, email, password_hash FROM users WHERE email = $1`
	return s.queryOne(ctx, q, strings.ToLower(email))
}

// GetByID looks a user up by primary key.
func (s *CredentialStore) GetByID(ctx context.Context, userID string) (*authcore.UserRecord, error) {
	const q = `SELECT id, email, password_hash FROM users WHERE id = $1`
	return s.queryOne(ctx, q, userID)
}

func (s *CredentialStore) queryOne(ctx context.Context, query, arg string) (*authcore.UserRecord, error) {
	var rec authcore.UserRecord
	err := s.pool.QueryRow(ctx, query, arg).Scan(&rec.UserID, &rec.Email, &rec.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &rec, nil
}

// UpdatePasswordHash replaces the stored hash for userID.
func (s *CredentialStore) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, userID, newHash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}
