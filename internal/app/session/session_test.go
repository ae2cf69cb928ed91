package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

type fakeAuth struct {
	creds Credentials
	err   error
}

func (f fakeAuth) Login(context.Context, string, string) (Credentials, error) {
	return f.creds, f.err
}

func TestTokenClaims(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := signedToken(t, jwt.MapClaims{"sub": "user-42", "exp": exp.Unix()})

	got, ok := TokenExpiry(tok)
	if !ok || !got.Equal(exp) {
		t.Errorf("TokenExpiry = %v, %v; want %v", got, ok, exp)
	}
	if sub := TokenSubject(tok); sub != "user-42" {
		t.Errorf("TokenSubject = %q", sub)
	}

	if _, ok := TokenExpiry(signedToken(t, jwt.MapClaims{"sub": "x"})); ok {
		t.Error("token without exp should report no expiry")
	}
	for _, bad := range []string{"", "opaque-token", "a.b.c"} {
		if _, ok := TokenExpiry(bad); ok {
			t.Errorf("TokenExpiry(%q) should fail", bad)
		}
	}
}

func TestManager_LoginLogout(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	m := NewManager(fakeAuth{creds: Credentials{Email: "a@b.c", AccessToken: tok}}, logger.Nop())

	if _, err := m.Current(); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("Current before login err = %v", err)
	}

	s, err := m.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.UserID != "user-1" || s.ExpiresAt.IsZero() || s.ID.String() == "" {
		t.Errorf("session = %+v", s)
	}
	if cur, err := m.Current(); err != nil || cur != s {
		t.Errorf("Current = %v, %v", cur, err)
	}

	m.Logout()
	if _, err := m.Current(); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("Current after logout err = %v", err)
	}
}

func TestManager_LoginFailureKeepsNoSession(t *testing.T) {
	m := NewManager(fakeAuth{err: errors.New("invalid credentials")}, logger.Nop())
	if _, err := m.Login(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected login error")
	}
	if _, err := m.Current(); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("err = %v", err)
	}
}

func TestManager_CheckForcesLogout(t *testing.T) {
	m := NewManager(nil, logger.Nop())
	m.Restore(New(Credentials{UserID: "u1", AccessToken: "opaque"}))

	other := errors.New("timeout")
	if got := m.Check(other); got != other {
		t.Errorf("Check changed a non-expiry error: %v", got)
	}
	if _, err := m.Current(); err != nil {
		t.Fatalf("session dropped on unrelated error: %v", err)
	}

	expired := fmt.Errorf("get user: %w", domain.ErrSessionExpired)
	if got := m.Check(expired); !errors.Is(got, domain.ErrSessionExpired) {
		t.Errorf("Check = %v", got)
	}
	if _, err := m.Current(); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("session still present after expiry: %v", err)
	}
}

func TestManager_LocalExpiry(t *testing.T) {
	exp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(nil, logger.Nop())
	m.Restore(New(Credentials{AccessToken: signedToken(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()})}))

	m.now = func() time.Time { return exp.Add(-time.Second) }
	if _, err := m.Current(); err != nil {
		t.Fatalf("Current before exp: %v", err)
	}

	m.now = func() time.Time { return exp }
	if _, err := m.Current(); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("Current at exp err = %v", err)
	}
	if _, err := m.Current(); !errors.Is(err, domain.ErrNoSession) {
		t.Errorf("expired session should be cleared, err = %v", err)
	}
}

func TestContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should carry no session")
	}
	s := New(Credentials{UserID: "u1"})
	got, ok := FromContext(WithSession(context.Background(), s))
	if !ok || got != s {
		t.Errorf("FromContext = %v, %v", got, ok)
	}
}
