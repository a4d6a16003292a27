package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/po-approval/internal/domain/entity"
)

// Claims is the subset of the token payload the client relies on
type Claims struct {
	Subject   string      `json:"sub"`
	Role      entity.Role `json:"role"`
	ExpiresAt int64       `json:"exp"`
}

// Expired reports whether the token is no longer usable at now.
// The comparison is done in milliseconds so a token expiring this second is already stale.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt*1000 <= now.UnixMilli()
}

var segmentDecoder = jwt.NewParser()

// DecodeClaims reads the payload of a bearer token without verifying its signature.
// The signature belongs to the system of record; the client only needs the
// subject, role and expiry to decide what to show.
func DecodeClaims(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrTokenInvalid, len(parts))
	}

	payload, err := segmentDecoder.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	var raw jwt.MapClaims
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	exp, err := raw.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, fmt.Errorf("%w: missing exp claim", ErrTokenInvalid)
	}
	sub, err := raw.GetSubject()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	role, _ := raw["role"].(string)

	return Claims{
		Subject:   sub,
		Role:      entity.Role(role),
		ExpiresAt: exp.Unix(),
	}, nil
}
