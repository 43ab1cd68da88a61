package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pagetrack/pagetrack-server/internal/domain"
	"github.com/pagetrack/pagetrack-server/internal/id"
)

// ErrUnauthenticated is returned when no identity could be established.
var ErrUnauthenticated = errors.New("no authenticated identity")

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// LastUserRecorder remembers the last signed-in user across restarts.
type LastUserRecorder interface {
	LastUserID() (string, bool, error)
	SetLastUserID(userID string) error
	ClearLastUserID() error
}

// Session tracks the identity currently signed in on this device.
// The current identity changes only on sign-in, Restore and SignOut; requests
// carrying another user's token are verified without touching it.
type Session struct {
	users  UserStore
	prefs  LastUserRecorder
	tokens *TokenService
	logger *slog.Logger

	mu      sync.RWMutex
	current *Identity
}

// NewSession creates a session with no current identity.
func NewSession(users UserStore, prefs LastUserRecorder, tokens *TokenService, logger *slog.Logger) *Session {
	return &Session{
		users:  users,
		prefs:  prefs,
		tokens: tokens,
		logger: logger,
	}
}

// Restore makes the last recorded user current again after a restart.
// A missing record or a deleted user leaves the session signed out.
func (s *Session) Restore(ctx context.Context) error {
	userID, ok, err := s.prefs.LastUserID()
	if err != nil {
		return fmt.Errorf("read last user: %w", err)
	}
	if !ok {
		return nil
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.logger.Warn("last user could not be restored", "user_id", userID, "error", err)
		return nil
	}

	s.setCurrent(Identity{UserID: user.ID, Anonymous: user.Anonymous})
	s.logger.Info("session restored", "user_id", user.ID)
	return nil
}

// Current returns the signed-in identity, or ErrUnauthenticated.
func (s *Session) Current() (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Identity{}, ErrUnauthenticated
	}
	return *s.current, nil
}

// SignInAnonymously creates a new anonymous user, makes it current and
// returns it with a fresh access token.
func (s *Session) SignInAnonymously(ctx context.Context) (*domain.User, string, error) {
	userID, err := id.Generate("user")
	if err != nil {
		return nil, "", fmt.Errorf("generate user id: %w", err)
	}

	user := &domain.User{
		ID:        userID,
		Anonymous: true,
		CreatedAt: time.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create anonymous user: %w", err)
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, "", err
	}

	s.signIn(Identity{UserID: user.ID, Anonymous: true})
	s.logger.Info("anonymous sign-in", "user_id", user.ID)

	return user, token, nil
}

// Resolve returns the current identity, establishing an anonymous one when
// nobody is signed in. It fails with ErrUnauthenticated only when that
// fallback also fails.
func (s *Session) Resolve(ctx context.Context) (Identity, error) {
	if identity, err := s.Current(); err == nil {
		return identity, nil
	}

	user, _, err := s.SignInAnonymously(ctx)
	if err != nil {
		s.logger.Error("anonymous fallback failed", "error", err)
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return Identity{UserID: user.ID, Anonymous: user.Anonymous}, nil
}

// Authenticate verifies an access token and returns its user.
// It does not change the device identity.
func (s *Session) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	return Identity{UserID: user.ID, Anonymous: user.Anonymous}, nil
}

// SignOut signs userID out of the device. The current identity is cleared only
// when it is userID. The last-user record is kept unless forget is set, so a
// plain sign-out still has that user restored at the next start.
func (s *Session) SignOut(userID string, forget bool) error {
	s.mu.Lock()
	if s.current != nil && s.current.UserID == userID {
		s.current = nil
	}
	s.mu.Unlock()

	if !forget {
		return nil
	}

	last, ok, err := s.prefs.LastUserID()
	if err != nil {
		return fmt.Errorf("read last user: %w", err)
	}
	if !ok || last != userID {
		return nil
	}
	if err := s.prefs.ClearLastUserID(); err != nil {
		return fmt.Errorf("forget last user: %w", err)
	}
	s.logger.Info("device forgot last user", "user_id", userID)
	return nil
}

// Tokens returns the token service.
func (s *Session) Tokens() *TokenService {
	return s.tokens
}

// signIn makes identity current and records it when it changed.
func (s *Session) signIn(identity Identity) {
	s.mu.Lock()
	changed := s.current == nil || s.current.UserID != identity.UserID
	s.current = &identity
	s.mu.Unlock()

	if !changed {
		return
	}
	if err := s.prefs.SetLastUserID(identity.UserID); err != nil {
		s.logger.Error("failed to record last user", "user_id", identity.UserID, "error", err)
	}
}

func (s *Session) setCurrent(identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &identity
}
