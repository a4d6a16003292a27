package port

import (
	"context"

	"github.com/garyjia/po-approval/internal/domain/entity"
)

// SessionStore is the single persisted slot holding the bearer token.
// Get returns "" when the slot is empty.
type SessionStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// LoginResult is what a successful credential exchange returns
type LoginResult struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

// AuthExchange trades credentials for a bearer token
type AuthExchange interface {
	Login(ctx context.Context, identifier, secret string) (*LoginResult, error)
}

// TokenIssuer signs tokens for authenticated users
type TokenIssuer interface {
	Issue(user *entity.User) (string, error)
}

// TokenVerifier checks a bearer token and returns its claims
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// TokenClaims is the verified content of a bearer token
type TokenClaims struct {
	Subject   string
	Role      entity.Role
	ExpiresAt int64
}

// PasswordHasher hashes and checks user secrets
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) error
}
