// Package auth keeps the signed-in session in local storage and supplies
// its token to the remote client.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	applog "ganhos/internal/log"
	"ganhos/internal/remote"
)

const (
	KeyToken = "token"
	KeyUser  = "user"
)

var (
	ErrNotSignedIn     = errors.New("not signed in")
	ErrMissingField    = errors.New("email and password are required")
	ErrPasswordsDiffer = errors.New("passwords do not match")
)

// KV is the local persistence for the session.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Session struct {
	Token string
	User  remote.User
}

// Manager owns the current session. It implements oauth2.TokenSource so the
// remote client always sends the latest token.
type Manager struct {
	kv    KV
	authn remote.Authenticator
	now   func() time.Time

	mu      sync.RWMutex
	session *Session
	errMsg  string
}

var _ oauth2.TokenSource = (*Manager)(nil)

func NewManager(kv KV, authn remote.Authenticator) *Manager {
	return &Manager{kv: kv, authn: authn, now: time.Now}
}

// Restore loads a stored session. Both token and user must be present.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	token, okToken, err := m.kv.Get(ctx, KeyToken)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	rawUser, okUser, err := m.kv.Get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !okToken || !okUser || token == "" {
		return nil, nil
	}
	var user remote.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		slog.WarnContext(ctx, "Ignoring stored user profile",
			applog.FieldComponent, applog.ComponentAuth,
			applog.FieldError, err)
		return nil, nil
	}
	if TokenExpired(token, m.now()) {
		slog.InfoContext(ctx, "Stored token expired", applog.FieldComponent, applog.ComponentAuth)
		return nil, nil
	}
	s := &Session{Token: token, User: user}
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingField
	}
	res, err := m.authn.Login(ctx, email, password)
	if err != nil {
		m.setError(failureMessage(err, "Failed to login"))
		return nil, err
	}
	rawUser, err := json.Marshal(res.User)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	if err := m.kv.Set(ctx, KeyToken, res.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if err := m.kv.Set(ctx, KeyUser, string(rawUser)); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}
	s := &Session{Token: res.Token, User: res.User}
	m.mu.Lock()
	m.session = s
	m.errMsg = ""
	m.mu.Unlock()
	slog.InfoContext(ctx, "Signed in",
		applog.FieldComponent, applog.ComponentAuth,
		"user_id", res.User.ID)
	return s, nil
}

// Register creates an account without signing in.
func (m *Manager) Register(ctx context.Context, req remote.RegisterRequest) (string, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return "", ErrMissingField
	}
	if req.Password != req.ConfirmPassword {
		return "", ErrPasswordsDiffer
	}
	msg, err := m.authn.Register(ctx, req)
	if err != nil {
		m.setError(failureMessage(err, "Failed to register"))
		return "", err
	}
	m.setError("")
	return msg, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	var errs []error
	if err := m.kv.Delete(ctx, KeyToken); err != nil {
		errs = append(errs, fmt.Errorf("delete token: %w", err))
	}
	if err := m.kv.Delete(ctx, KeyUser); err != nil {
		errs = append(errs, fmt.Errorf("delete user: %w", err))
	}
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	return errors.Join(errs...)
}

// Current returns the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Require returns the active session or ErrNotSignedIn.
func (m *Manager) Require() (*Session, error) {
	if s := m.Current(); s != nil {
		return s, nil
	}
	return nil, ErrNotSignedIn
}

// ErrMessage is the user-facing text of the last login or register failure.
func (m *Manager) ErrMessage() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errMsg
}

func (m *Manager) setError(msg string) {
	m.mu.Lock()
	m.errMsg = msg
	m.mu.Unlock()
}

// Token implements oauth2.TokenSource. Without a session it returns an
// empty token and requests go out unauthenticated.
func (m *Manager) Token() (*oauth2.Token, error) {
	s := m.Current()
	if s == nil {
		return &oauth2.Token{}, nil
	}
	tok := &oauth2.Token{AccessToken: s.Token, TokenType: "Bearer"}
	if exp, ok := TokenExpiry(s.Token); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// TokenExpiry reads the exp claim without verifying the signature; the
// server is the only party that checks it.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TokenExpired reports whether token carries an exp claim in the past.
// Opaque tokens never expire locally.
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	return ok && !now.Before(exp)
}

func failureMessage(err error, fallback string) string {
	var se *remote.StatusError
	if errors.As(err, &se) {
		if msg := se.Message(); msg != "" {
			return msg
		}
		return fallback
	}
	return "Network error. Please try again."
}
