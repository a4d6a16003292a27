package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired or not signed by us
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakSecret is returned when the signing secret is too short for HS256
	ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")
)

const minSecretLen = 32

// AccessClaims holds JWT claims for the bearer token
type AccessClaims struct {
	jwt.RegisteredClaims
	Role entity.Role `json:"role"`
}

// TokenProvider issues and validates HS256 bearer tokens carrying {sub, role, exp}
type TokenProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenProvider returns a TokenProvider signing with secret
func NewTokenProvider(secret, issuer string, ttl time.Duration) (*TokenProvider, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	return &TokenProvider{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for user that expires after the configured TTL
func (p *TokenProvider) Issue(user *entity.User) (string, error) {
	now := p.now().UTC()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
		Role: user.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Verify checks signature, expiry and issuer and returns the claims
func (p *TokenProvider) Verify(tokenString string) (*port.TokenClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &port.TokenClaims{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

var (
	_ port.TokenIssuer   = (*TokenProvider)(nil)
	_ port.TokenVerifier = (*TokenProvider)(nil)
)
