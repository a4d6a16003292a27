package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/po-approval/internal/application/dispatcher"
	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/internal/domain/event"
)

// =============================================================================
// Mock implementations
// =============================================================================

type mockStore struct {
	mu       sync.Mutex
	token    string
	getErr   error
	setErr   error
	clearErr error
	sets     int
	clears   int
}

func (m *mockStore) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.getErr
}

func (m *mockStore) Set(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.token = token
	return nil
}

func (m *mockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.token = ""
	return m.clearErr
}

func (m *mockStore) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

type mockAuth struct {
	loginFn func(ctx context.Context, identifier, secret string) (*port.LoginResult, error)
}

func (m *mockAuth) Login(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, identifier, secret)
	}
	return nil, errors.New("not implemented")
}

type recorder struct {
	mu     sync.Mutex
	events []*event.Event
}

func (r *recorder) handle(ctx context.Context, evt *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) Types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []event.Type
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

// =============================================================================
// Helpers
// =============================================================================

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func tokenFor(t *testing.T, sub string, role entity.Role, exp time.Time) string {
	return signToken(t, jwt.MapClaims{"sub": sub, "role": string(role), "exp": exp.Unix()})
}

func setup(t *testing.T, store *mockStore, auth *mockAuth) (*Manager, *recorder, *fakeClock) {
	t.Helper()
	rec := &recorder{}
	d := dispatcher.NewDispatcher()
	for _, typ := range []event.Type{
		event.TypeSessionEstablished,
		event.TypeSessionCleared,
		event.TypeTokenInvalid,
		event.TypeTokenExpired,
	} {
		d.Subscribe(typ, rec.handle)
	}

	clock := &fakeClock{now: baseTime}
	if auth == nil {
		auth = &mockAuth{}
	}
	m := NewManager(store, auth, WithDispatcher(d), WithClock(clock.Now))
	return m, rec, clock
}

// =============================================================================
// Restore
// =============================================================================

func TestManager_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("absent token gives empty session", func(t *testing.T) {
		store := &mockStore{}
		m, rec, _ := setup(t, store, nil)

		snap, err := m.Restore(ctx)

		require.NoError(t, err)
		assert.False(t, snap.Authenticated())
		assert.Equal(t, PhaseUnauthenticated, snap.Phase)
		assert.Empty(t, rec.Types())
	})

	t.Run("two-segment token is invalid and cleared", func(t *testing.T) {
		store := &mockStore{token: "abc.def"}
		m, rec, _ := setup(t, store, nil)

		snap, err := m.Restore(ctx)

		assert.ErrorIs(t, err, ErrTokenInvalid)
		assert.False(t, snap.Authenticated())
		assert.Equal(t, "", store.Token())
		assert.Equal(t, 1, store.clears)
		assert.Equal(t, []event.Type{event.TypeTokenInvalid}, rec.Types())
	})

	t.Run("expired token is cleared", func(t *testing.T) {
		store := &mockStore{token: tokenFor(t, "u-1", entity.RoleReviewer, baseTime.Add(-time.Minute))}
		m, rec, _ := setup(t, store, nil)

		snap, err := m.Restore(ctx)

		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.False(t, snap.Authenticated())
		assert.Equal(t, "", store.Token())
		assert.Equal(t, []event.Type{event.TypeTokenExpired}, rec.Types())
	})

	t.Run("valid token restores role from claims", func(t *testing.T) {
		token := tokenFor(t, "u-7", entity.RoleReviewer, baseTime.Add(time.Hour))
		store := &mockStore{token: token}
		m, _, _ := setup(t, store, nil)

		snap, err := m.Restore(ctx)

		require.NoError(t, err)
		assert.True(t, snap.Authenticated())
		assert.Equal(t, token, snap.Token)
		assert.Equal(t, entity.RoleReviewer, snap.Role())
		assert.Equal(t, "u-7", snap.Identity())
		assert.Equal(t, token, store.Token())
	})

	t.Run("restore after login keeps the user record", func(t *testing.T) {
		token := tokenFor(t, "u-9", entity.RoleReviewer, baseTime.Add(time.Hour))
		auth := &mockAuth{loginFn: func(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
			return &port.LoginResult{Token: token, User: &entity.User{ID: "u-9", Name: "Rita", Role: entity.RoleReviewer}}, nil
		}}
		m, _, _ := setup(t, &mockStore{}, auth)

		_, err := m.Login(ctx, "rev@example.com", "pw")
		require.NoError(t, err)

		snap, err := m.Restore(ctx)

		require.NoError(t, err)
		assert.Equal(t, "Rita", snap.Identity())
	})

	t.Run("store failure is returned", func(t *testing.T) {
		store := &mockStore{getErr: errors.New("disk gone")}
		m, _, _ := setup(t, store, nil)

		_, err := m.Restore(ctx)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrTokenInvalid)
	})
}

// =============================================================================
// Login / Logout
// =============================================================================

func TestManager_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success stores token and publishes", func(t *testing.T) {
		token := tokenFor(t, "u-1", entity.RoleRequester, baseTime.Add(time.Hour))
		user := &entity.User{ID: "u-1", Email: "req@example.com", Name: "Req", Role: entity.RoleRequester}
		auth := &mockAuth{loginFn: func(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
			assert.Equal(t, "req@example.com", identifier)
			assert.Equal(t, "pw", secret)
			return &port.LoginResult{Token: token, User: user}, nil
		}}
		store := &mockStore{}
		m, rec, _ := setup(t, store, auth)

		snap, err := m.Login(ctx, "req@example.com", "pw")

		require.NoError(t, err)
		assert.True(t, snap.Authenticated())
		assert.Equal(t, "Req", snap.Identity())
		assert.Equal(t, entity.RoleRequester, snap.Role())
		assert.Equal(t, token, store.Token())
		assert.Equal(t, []event.Type{event.TypeSessionEstablished}, rec.Types())
	})

	t.Run("refusal carries upstream message", func(t *testing.T) {
		auth := &mockAuth{loginFn: func(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
			return nil, port.NewRemoteError(http.StatusUnauthorized, "Invalid credentials")
		}}
		store := &mockStore{}
		m, rec, _ := setup(t, store, auth)

		snap, err := m.Login(ctx, "x", "y")

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "Invalid credentials", authErr.Message)
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
		assert.ErrorIs(t, err, port.ErrUnauthorized)
		assert.False(t, snap.Authenticated())
		assert.Equal(t, PhaseUnauthenticated, snap.Phase)
		assert.Equal(t, 0, store.sets)
		assert.Empty(t, rec.Types())
	})

	t.Run("refusal without message uses default", func(t *testing.T) {
		auth := &mockAuth{loginFn: func(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
			return nil, errors.New("connection refused")
		}}
		m, _, _ := setup(t, &mockStore{}, auth)

		_, err := m.Login(ctx, "x", "y")

		assert.EqualError(t, err, DefaultLoginMessage)
	})

	t.Run("failed login keeps prior session", func(t *testing.T) {
		token := tokenFor(t, "u-1", entity.RoleReviewer, baseTime.Add(time.Hour))
		store := &mockStore{token: token}
		auth := &mockAuth{loginFn: func(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
			return nil, port.NewRemoteError(http.StatusUnauthorized, "")
		}}
		m, _, _ := setup(t, store, auth)
		_, err := m.Restore(ctx)
		require.NoError(t, err)

		snap, err := m.Login(ctx, "other", "bad")

		assert.ErrorIs(t, err, ErrAuthenticationFailed)
		assert.True(t, snap.Authenticated())
		assert.Equal(t, token, snap.Token)
		assert.Equal(t, token, store.Token())
	})

	t.Run("undecodable token is rejected without storing", func(t *testing.T) {
		auth := &mockAuth{loginFn: func(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
			return &port.LoginResult{Token: "not-a-token"}, nil
		}}
		store := &mockStore{}
		m, _, _ := setup(t, store, auth)

		snap, err := m.Login(ctx, "x", "y")

		assert.ErrorIs(t, err, ErrTokenInvalid)
		assert.False(t, snap.Authenticated())
		assert.Equal(t, 0, store.sets)
	})

	t.Run("store failure leaves session empty", func(t *testing.T) {
		token := tokenFor(t, "u-1", entity.RoleRequester, baseTime.Add(time.Hour))
		auth := &mockAuth{loginFn: func(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
			return &port.LoginResult{Token: token}, nil
		}}
		m, _, _ := setup(t, &mockStore{setErr: errors.New("read-only")}, auth)

		snap, err := m.Login(ctx, "x", "y")

		assert.Error(t, err)
		assert.False(t, snap.Authenticated())
	})

	t.Run("concurrent login is refused", func(t *testing.T) {
		release := make(chan struct{})
		entered := make(chan struct{})
		token := tokenFor(t, "u-1", entity.RoleRequester, baseTime.Add(time.Hour))
		auth := &mockAuth{loginFn: func(ctx context.Context, identifier, secret string) (*port.LoginResult, error) {
			close(entered)
			<-release
			return &port.LoginResult{Token: token}, nil
		}}
		m, _, _ := setup(t, &mockStore{}, auth)

		done := make(chan error, 1)
		go func() {
			_, err := m.Login(ctx, "x", "y")
			done <- err
		}()
		<-entered

		assert.Equal(t, PhaseAuthenticating, m.Current().Phase)
		_, err := m.Login(ctx, "x", "y")
		assert.ErrorIs(t, err, ErrLoginInProgress)
		assert.ErrorIs(t, m.Logout(ctx), ErrLoginInProgress)

		close(release)
		require.NoError(t, <-done)
		assert.True(t, m.Current().Authenticated())
	})
}

func TestManager_Logout(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{token: tokenFor(t, "u-3", entity.RoleReviewer, baseTime.Add(time.Hour))}
	m, rec, _ := setup(t, store, nil)
	_, err := m.Restore(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx))

	snap := m.Current()
	assert.False(t, snap.Authenticated())
	assert.Nil(t, snap.Claims)
	assert.Nil(t, snap.User)
	assert.Equal(t, "", store.Token())
	assert.Equal(t, []event.Type{event.TypeSessionCleared}, rec.Types())

	require.NoError(t, m.Logout(ctx), "logout is idempotent")
}

// =============================================================================
// Expiry
// =============================================================================

func TestManager_CheckExpiry(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{token: tokenFor(t, "u-1", entity.RoleReviewer, baseTime.Add(10*time.Minute))}
	m, rec, clock := setup(t, store, nil)
	_, err := m.Restore(ctx)
	require.NoError(t, err)

	require.NoError(t, m.CheckExpiry(ctx))
	assert.True(t, m.Current().Authenticated())

	clock.Advance(10 * time.Minute)

	assert.ErrorIs(t, m.CheckExpiry(ctx), ErrTokenExpired)
	assert.False(t, m.Current().Authenticated())
	assert.Equal(t, "", store.Token())
	assert.Equal(t, []event.Type{event.TypeTokenExpired}, rec.Types())

	require.NoError(t, m.CheckExpiry(ctx), "nothing left to expire")
}

func TestManager_WatchExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &mockStore{token: tokenFor(t, "u-1", entity.RoleReviewer, baseTime.Add(time.Minute))}
	m, _, clock := setup(t, store, nil)
	_, err := m.Restore(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		m.WatchExpiry(ctx, 5*time.Millisecond)
		close(done)
	}()

	clock.Advance(2 * time.Minute)

	assert.Eventually(t, func() bool {
		return !m.Current().Authenticated()
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WatchExpiry did not stop after cancel")
	}
}
