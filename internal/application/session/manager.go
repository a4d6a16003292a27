package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/po-approval/internal/application/dispatcher"
	"github.com/garyjia/po-approval/internal/application/port"
	"github.com/garyjia/po-approval/internal/domain/entity"
	"github.com/garyjia/po-approval/internal/domain/event"
	"github.com/garyjia/po-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Manager owns the process-wide session: the bearer token, its decoded
// claims and the user it belongs to. All methods are safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	phase workflow.StateMachine[Phase, phaseTrigger]

	token  string
	claims *Claims
	user   *entity.User

	store      port.SessionStore
	auth       port.AuthExchange
	dispatcher dispatcher.Dispatcher
	logger     Logger
	now        func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithDispatcher publishes session events on d
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(m *Manager) {
		m.dispatcher = d
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides time.Now for expiry checks
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates an unauthenticated session manager
func NewManager(store port.SessionStore, auth port.AuthExchange, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		auth:   auth,
		logger: nopLogger{},
		now:    time.Now,
	}
	m.phase = newPhaseMachine(func(context.Context) bool {
		return m.token != ""
	})

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Restore loads the token from the store. A malformed or expired token is
// removed from the store and reported as ErrTokenInvalid or ErrTokenExpired;
// the session is left empty in both cases.
func (m *Manager) Restore(ctx context.Context) (Snapshot, error) {
	var evt *event.Event
	defer func() { m.publish(ctx, evt) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase.State() == PhaseAuthenticating {
		return m.snapshotLocked(), ErrLoginInProgress
	}

	token, err := m.store.Get(ctx)
	if err != nil {
		return m.snapshotLocked(), fmt.Errorf("failed to read session store: %w", err)
	}

	if token == "" {
		m.clearLocked(ctx)
		return m.snapshotLocked(), nil
	}

	claims, err := DecodeClaims(token)
	if err != nil {
		evt = m.expelLocked(ctx, event.TypeTokenInvalid, err)
		return m.snapshotLocked(), err
	}

	if claims.Expired(m.now()) {
		evt = m.expelLocked(ctx, event.TypeTokenExpired, ErrTokenExpired)
		return m.snapshotLocked(), ErrTokenExpired
	}

	m.token = token
	m.claims = &claims
	if m.user == nil || m.user.ID != claims.Subject {
		m.user = userFromClaims(claims)
	}
	if err := m.phase.Fire(ctx, triggerRestore); err != nil {
		return m.snapshotLocked(), err
	}

	m.logger.Info("Session restored", "subject", claims.Subject, "role", claims.Role)
	return m.snapshotLocked(), nil
}

// Login exchanges credentials for a token. On failure the previous session,
// if any, is kept and an *AuthError carrying the upstream message is returned.
func (m *Manager) Login(ctx context.Context, identifier, secret string) (Snapshot, error) {
	m.mu.Lock()
	if err := m.phase.Fire(ctx, triggerBeginLogin); err != nil {
		m.mu.Unlock()
		return m.Current(), ErrLoginInProgress
	}
	m.mu.Unlock()

	res, err := m.auth.Login(ctx, identifier, secret)
	if err != nil {
		m.abortLogin(ctx)
		m.logger.Info("Login refused", "identifier", identifier, "error", err)
		return m.Current(), &AuthError{Message: port.MessageOf(err, DefaultLoginMessage), Err: err}
	}
	if res == nil || res.Token == "" {
		m.abortLogin(ctx)
		return m.Current(), &AuthError{Message: DefaultLoginMessage}
	}

	claims, err := DecodeClaims(res.Token)
	if err != nil {
		m.abortLogin(ctx)
		return m.Current(), err
	}
	if claims.Expired(m.now()) {
		m.abortLogin(ctx)
		return m.Current(), ErrTokenExpired
	}

	if err := m.store.Set(ctx, res.Token); err != nil {
		m.abortLogin(ctx)
		return m.Current(), fmt.Errorf("failed to persist session: %w", err)
	}

	user := res.User
	if user == nil {
		user = userFromClaims(claims)
	}

	m.mu.Lock()
	m.token = res.Token
	m.claims = &claims
	m.user = user
	fireErr := m.phase.Fire(ctx, triggerLoginOK)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if fireErr != nil {
		return snap, fireErr
	}

	m.logger.Info("Session established", "subject", claims.Subject, "role", snap.Role())
	m.publish(ctx, event.NewEvent(event.TypeSessionEstablished, claims.Subject, map[string]interface{}{
		"role": snap.Role().String(),
	}))
	return snap, nil
}

// Logout clears the store and the in-memory session
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.phase.State() == PhaseAuthenticating {
		m.mu.Unlock()
		return ErrLoginInProgress
	}

	subject := m.subjectLocked()
	clearErr := m.store.Clear(ctx)
	m.clearLocked(ctx)
	m.mu.Unlock()

	m.logger.Info("Session cleared", "subject", subject)
	m.publish(ctx, event.NewEvent(event.TypeSessionCleared, subject, nil))

	if clearErr != nil {
		return fmt.Errorf("failed to clear session store: %w", clearErr)
	}
	return nil
}

// Current returns a snapshot of the session
func (m *Manager) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// CheckExpiry discards an authenticated session whose token has expired
// and returns ErrTokenExpired when it did so.
func (m *Manager) CheckExpiry(ctx context.Context) error {
	var evt *event.Event
	defer func() { m.publish(ctx, evt) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase.State() != PhaseAuthenticated || m.claims == nil {
		return nil
	}
	if !m.claims.Expired(m.now()) {
		return nil
	}

	evt = m.expelLocked(ctx, event.TypeTokenExpired, ErrTokenExpired)
	return ErrTokenExpired
}

// WatchExpiry runs CheckExpiry every interval until ctx is cancelled
func (m *Manager) WatchExpiry(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.CheckExpiry(ctx); err != nil && !errors.Is(err, ErrTokenExpired) {
				m.logger.Error("Expiry check failed", "error", err)
			}
		}
	}
}

func (m *Manager) abortLogin(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.phase.Fire(ctx, triggerLoginFail); err != nil {
		m.logger.Error("Unexpected session phase after failed login", "phase", m.phase.State(), "error", err)
	}
}

// expelLocked drops a token that can no longer be used
func (m *Manager) expelLocked(ctx context.Context, eventType event.Type, cause error) *event.Event {
	subject := m.subjectLocked()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("Failed to clear session store", "error", err)
	}
	m.clearLocked(ctx)

	m.logger.Debug("Session token discarded", "reason", cause.Error(), "subject", subject)
	return event.NewEvent(eventType, subject, map[string]interface{}{"reason": cause.Error()})
}

func (m *Manager) clearLocked(ctx context.Context) {
	m.token = ""
	m.claims = nil
	m.user = nil
	if err := m.phase.Fire(ctx, triggerInvalidate); err != nil {
		m.logger.Error("Unexpected session phase on clear", "phase", m.phase.State(), "error", err)
	}
}

func (m *Manager) subjectLocked() string {
	if m.claims != nil {
		return m.claims.Subject
	}
	if m.user != nil {
		return m.user.ID
	}
	return ""
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase: m.phase.State(),
		Token: m.token,
	}
	if m.claims != nil {
		c := *m.claims
		snap.Claims = &c
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

func (m *Manager) publish(ctx context.Context, evt *event.Event) {
	if evt == nil || m.dispatcher == nil {
		return
	}
	if err := m.dispatcher.Dispatch(ctx, evt); err != nil {
		m.logger.Error("Failed to publish session event", "event_type", evt.Type, "error", err)
	}
}

func userFromClaims(c Claims) *entity.User {
	return &entity.User{ID: c.Subject, Role: c.Role}
}
