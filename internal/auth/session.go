// Package auth keeps the signed-in user and gates sync on it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotSignedIn        = errors.New("auth: not signed in")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

const (
	metaUID   = "auth.uid"
	metaEmail = "auth.email"
)

type User struct {
	UID     string
	Email   string
	IDToken string
}

// Provider signs users in against an identity backend.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (User, error)
	SignUp(ctx context.Context, email, password string) (User, error)
}

// MetaStore persists the session between runs.
type MetaStore interface {
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
	DeleteMeta(ctx context.Context, key string) error
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

var validate = validator.New()

type Session struct {
	provider Provider
	store    MetaStore
	logger   *slog.Logger

	mu   sync.RWMutex
	user *User
}

func NewSession(provider Provider, store MetaStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{provider: provider, store: store, logger: logger.With("component", "auth")}
}

// Restore loads a previously persisted user, if any.
func (s *Session) Restore(ctx context.Context) error {
	uid, ok, err := s.store.GetMeta(ctx, metaUID)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok || uid == "" {
		return nil
	}
	email, _, err := s.store.GetMeta(ctx, metaEmail)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	s.mu.Lock()
	s.user = &User{UID: uid, Email: email}
	s.mu.Unlock()
	s.logger.Info("session restored", "uid", uid)
	return nil
}

func (s *Session) SignIn(ctx context.Context, email, password string) (User, error) {
	return s.authenticate(ctx, email, password, s.provider.SignIn)
}

func (s *Session) SignUp(ctx context.Context, email, password string) (User, error) {
	return s.authenticate(ctx, email, password, s.provider.SignUp)
}

func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	if err := s.store.DeleteMeta(ctx, metaUID); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	if err := s.store.DeleteMeta(ctx, metaEmail); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	s.logger.Info("signed out")
	return nil
}

// UserID returns the signed-in user's id.
func (s *Session) UserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return "", false
	}
	return s.user.UID, true
}

func (s *Session) Current() (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, ErrNotSignedIn
	}
	return *s.user, nil
}

func (s *Session) authenticate(ctx context.Context, email, password string, fn func(context.Context, string, string) (User, error)) (User, error) {
	email = strings.TrimSpace(email)
	if err := validate.Struct(credentials{Email: email, Password: password}); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	user, err := fn(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	if err := s.store.SetMeta(ctx, metaUID, user.UID); err != nil {
		return User{}, fmt.Errorf("persist session: %w", err)
	}
	if err := s.store.SetMeta(ctx, metaEmail, user.Email); err != nil {
		return User{}, fmt.Errorf("persist session: %w", err)
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	s.logger.Info("signed in", "uid", user.UID)
	return user, nil
}
