package authcore

import (
	"context"
	"errors"
)

// UserRecord is the credential record owned by the external store. The
// engine reads it for login and reset flows and writes back only the
// password hash during reset confirmation.
type UserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
}

// CredentialStore is the external collaborator that owns user credentials.
// Emails passed to GetByEmail are already lower-cased by the engine.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
	GetByID(ctx context.Context, userID string) (*UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// ErrUserNotFound must be returned (or wrapped) by CredentialStore lookups
// when no record matches. Any other error is treated as a store failure.
//
// Defined here rather than in the store implementations so the engine can
// branch on it without importing them.
var ErrUserNotFound = errors.New("user not found")

// ResetDelivery hands a freshly issued password-reset token to the delivery
// collaborator (email, SMS). Delivery failures do not alter the generic
// response returned to the requester.
type ResetDelivery interface {
	DeliverResetToken(ctx context.Context, email, token string) error
}

// ResetDeliveryFunc adapts a function to the ResetDelivery interface.
type ResetDeliveryFunc func(ctx context.Context, email, token string) error

// DeliverResetToken calls the underlying function.
func (f ResetDeliveryFunc) DeliverResetToken(ctx context.Context, email, token string) error {
	return f(ctx, email, token)
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
