package session

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/po-approval/internal/domain/entity"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeClaims(t *testing.T) {
	t.Run("returns exact claims", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"sub": "u-42", "role": "reviewer", "exp": int64(1900000000)})

		claims, err := DecodeClaims(token)

		require.NoError(t, err)
		assert.Equal(t, Claims{Subject: "u-42", Role: entity.RoleReviewer, ExpiresAt: 1900000000}, claims)
	})

	t.Run("ignores the signature", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"sub": "u-1", "role": "requester", "exp": int64(1900000000)})

		claims, err := DecodeClaims(token[:len(token)-4] + "AAAA")

		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.Subject)
	})

	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-1","exp":1900000000}`))

	malformed := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "abc." + payload},
		{"four segments", "a." + payload + ".c.d"},
		{"payload not base64", "a.!!!.c"},
		{"payload not json", "a." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".c"},
		{"missing exp", "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-1"}`)) + ".c"},
		{"exp not numeric", "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-1","exp":"soon"}`)) + ".c"},
	}

	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClaims(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}

	t.Run("three segments with decodable payload is well formed", func(t *testing.T) {
		claims, err := DecodeClaims("a." + payload + ".c")

		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.Subject)
		assert.Equal(t, entity.Role(""), claims.Role)
	})
}

func TestClaims_Expired(t *testing.T) {
	now := time.Unix(1700000000, 500*int64(time.Millisecond))

	tests := []struct {
		name string
		exp  int64
		want bool
	}{
		{"in the past", 1699999999, true},
		{"same second already elapsed", 1700000000, true},
		{"next second", 1700000001, false},
		{"far future", 1900000000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Claims{ExpiresAt: tt.exp}.Expired(now))
		})
	}
}

func TestSnapshot(t *testing.T) {
	t.Run("role prefers user over claims", func(t *testing.T) {
		s := Snapshot{
			Phase:  PhaseAuthenticated,
			Token:  "t",
			Claims: &Claims{Subject: "u-1", Role: entity.RoleRequester},
			User:   &entity.User{ID: "u-1", Name: "Rita", Role: entity.RoleReviewer},
		}

		assert.True(t, s.Authenticated())
		assert.Equal(t, entity.RoleReviewer, s.Role())
		assert.Equal(t, "Rita", s.Identity())
	})

	t.Run("falls back to claims", func(t *testing.T) {
		s := Snapshot{Phase: PhaseAuthenticated, Token: "t", Claims: &Claims{Subject: "u-9", Role: entity.RoleRequester}}

		assert.Equal(t, entity.RoleRequester, s.Role())
		assert.Equal(t, "u-9", s.Identity())
	})

	t.Run("empty snapshot", func(t *testing.T) {
		var s Snapshot

		assert.False(t, s.Authenticated())
		assert.Equal(t, entity.Role(""), s.Role())
		assert.Equal(t, "", s.Identity())
	})

	t.Run("authenticating is not authenticated", func(t *testing.T) {
		s := Snapshot{Phase: PhaseAuthenticating}
		assert.False(t, s.Authenticated())
	})
}
