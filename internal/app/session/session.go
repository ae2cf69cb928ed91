// Package session holds the signed-in user's backend session.
//
// A Manager owns at most one Session and is passed to whatever needs it;
// handlers carry the session on the request context. When any backend
// call reports domain.ErrSessionExpired the Manager drops the session,
// which forces a fresh login.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/metrics"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// Session is an authenticated backend session.
type Session struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the token's exp claim has passed at now.
// A session without an expiry never expires locally; the backend remains
// the authority.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credentials is what an Authenticator returns on a successful login.
type Credentials struct {
	UserID      string
	Email       string
	AccessToken string
}

// Authenticator exchanges email and password for credentials.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (Credentials, error)
}

// New builds a session from credentials, reading the expiry from the
// token's exp claim when it has one.
func New(c Credentials) *Session {
	s := &Session{
		ID:          uuid.New(),
		UserID:      c.UserID,
		Email:       c.Email,
		AccessToken: c.AccessToken,
	}
	if exp, ok := TokenExpiry(c.AccessToken); ok {
		s.ExpiresAt = exp
	}
	if s.UserID == "" {
		s.UserID = TokenSubject(c.AccessToken)
	}
	return s
}

// TokenExpiry reads the exp claim without verifying the signature.
// The backend verifies tokens; the client only needs the timestamp.
func TokenExpiry(token string) (time.Time, bool) {
	claims, ok := parseClaims(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenSubject reads the sub claim without verifying the signature.
func TokenSubject(token string) string {
	claims, ok := parseClaims(token)
	if !ok {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

func parseClaims(token string) (jwt.MapClaims, bool) {
	if token == "" {
		return nil, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// Manager owns the current session.
type Manager struct {
	auth Authenticator
	log  *logger.Logger
	now  func() time.Time

	mu      sync.RWMutex
	current *Session
}

// NewManager creates a manager with no session.
func NewManager(auth Authenticator, log *logger.Logger) *Manager {
	return &Manager{auth: auth, log: log.With("component", "session"), now: time.Now}
}

// Login authenticates and replaces any current session.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	if m.auth == nil {
		return nil, fmt.Errorf("login: no authenticator configured")
	}
	creds, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	s := New(creds)

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	m.log.Info("signed in", "user_id", s.UserID, "session", s.ID)
	return s, nil
}

// Restore installs an existing session, e.g. one created from a bearer
// token on an incoming request.
func (m *Manager) Restore(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

// Logout drops the current session.
func (m *Manager) Logout() {
	m.mu.Lock()
	s := m.current
	m.current = nil
	m.mu.Unlock()
	if s != nil {
		m.log.Info("signed out", "user_id", s.UserID, "session", s.ID)
	}
}

// Current returns the session, or domain.ErrNoSession when there is none.
// A session whose token has passed its exp is dropped and reported as
// domain.ErrSessionExpired.
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	s := m.current
	m.mu.RUnlock()
	if s == nil {
		return nil, domain.ErrNoSession
	}
	if s.Expired(m.now()) {
		m.expire(s, "token exp passed")
		return nil, domain.ErrSessionExpired
	}
	return s, nil
}

// Check inspects the error of a backend call. An expired-session error
// clears the current session. err is returned unchanged.
func (m *Manager) Check(err error) error {
	if err == nil || !errors.Is(err, domain.ErrSessionExpired) {
		return err
	}
	m.mu.RLock()
	s := m.current
	m.mu.RUnlock()
	if s != nil {
		m.expire(s, err.Error())
	}
	return err
}

func (m *Manager) expire(s *Session, reason string) {
	m.mu.Lock()
	if m.current != s {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.mu.Unlock()

	metrics.SessionsExpired.Inc()
	m.log.Warn("session expired, signing out", "user_id", s.UserID, "session", s.ID, "reason", reason)
}

type ctxKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
