package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrack/pagetrack-server/internal/domain"
	"github.com/pagetrack/pagetrack-server/internal/prefs"
	"github.com/pagetrack/pagetrack-server/internal/store"
)

func setupTestSession(t *testing.T) (*Session, *store.Store, *prefs.Prefs) {
	t.Helper()

	s, err := store.New("", nil, store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	p := prefs.New(keyring.NewArrayKeyring(nil), nil)
	session := NewSession(s, p, newTestTokenService(t, time.Hour), discardLogger())
	return session, s, p
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type failingUsers struct{}

func (failingUsers) CreateUser(context.Context, *domain.User) error {
	return errors.New("store offline")
}

func (failingUsers) GetUser(context.Context, string) (*domain.User, error) {
	return nil, errors.New("store offline")
}

func TestSession_CurrentWhenSignedOut(t *testing.T) {
	session, _, _ := setupTestSession(t)

	_, err := session.Current()
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_SignInAnonymously(t *testing.T) {
	session, s, p := setupTestSession(t)
	ctx := context.Background()

	user, token, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)
	assert.True(t, user.Anonymous)
	assert.NotEmpty(t, token)

	stored, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)

	last, ok, err := p.LastUserID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, user.ID, last)

	current, err := session.Current()
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.UserID)
}

func TestSession_ResolveKeepsCurrent(t *testing.T) {
	session, _, _ := setupTestSession(t)
	ctx := context.Background()

	user, _, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)

	identity, err := session.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
}

func TestSession_ResolveFallsBackToAnonymous(t *testing.T) {
	session, _, _ := setupTestSession(t)

	identity, err := session.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, identity.Anonymous)
	assert.NotEmpty(t, identity.UserID)
}

func TestSession_ResolveFailure(t *testing.T) {
	p := prefs.New(keyring.NewArrayKeyring(nil), nil)
	session := NewSession(failingUsers{}, p, newTestTokenService(t, time.Hour), discardLogger())

	_, err := session.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_Authenticate(t *testing.T) {
	session, _, _ := setupTestSession(t)
	ctx := context.Background()

	user, token, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)

	identity, err := session.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)

	_, err = session.Authenticate(ctx, "v4.local.garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_AuthenticateLeavesDeviceIdentity(t *testing.T) {
	session, _, p := setupTestSession(t)
	ctx := context.Background()

	other, otherToken, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)
	owner, _, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)

	identity, err := session.Authenticate(ctx, otherToken)
	require.NoError(t, err)
	assert.Equal(t, other.ID, identity.UserID)

	current, err := session.Current()
	require.NoError(t, err)
	assert.Equal(t, owner.ID, current.UserID)

	last, _, err := p.LastUserID()
	require.NoError(t, err)
	assert.Equal(t, owner.ID, last)
}

func TestSession_SignOutKeepsLastUser(t *testing.T) {
	session, _, p := setupTestSession(t)

	user, _, err := session.SignInAnonymously(context.Background())
	require.NoError(t, err)
	require.NoError(t, session.SignOut(user.ID, false))

	_, err = session.Current()
	assert.ErrorIs(t, err, ErrUnauthenticated)

	last, ok, err := p.LastUserID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, user.ID, last)
}

func TestSession_SignOutForget(t *testing.T) {
	session, s, p := setupTestSession(t)
	ctx := context.Background()

	user, _, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)
	require.NoError(t, session.SignOut(user.ID, true))

	_, ok, err := p.LastUserID()
	require.NoError(t, err)
	assert.False(t, ok)

	restarted := NewSession(s, p, session.Tokens(), discardLogger())
	require.NoError(t, restarted.Restore(ctx))
	_, err = restarted.Current()
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Forgetting twice is harmless.
	require.NoError(t, session.SignOut(user.ID, true))
}

func TestSession_SignOutOtherUser(t *testing.T) {
	session, _, p := setupTestSession(t)
	ctx := context.Background()

	other, _, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)
	owner, _, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)

	require.NoError(t, session.SignOut(other.ID, true))

	current, err := session.Current()
	require.NoError(t, err)
	assert.Equal(t, owner.ID, current.UserID)

	last, ok, err := p.LastUserID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, owner.ID, last)
}

func TestSession_Restore(t *testing.T) {
	session, s, p := setupTestSession(t)
	ctx := context.Background()

	user, _, err := session.SignInAnonymously(ctx)
	require.NoError(t, err)

	restarted := NewSession(s, p, session.Tokens(), discardLogger())
	require.NoError(t, restarted.Restore(ctx))

	current, err := restarted.Current()
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.UserID)
}

func TestSession_RestoreUnknownUser(t *testing.T) {
	session, _, p := setupTestSession(t)
	require.NoError(t, p.SetLastUserID("user-deleted"))

	require.NoError(t, session.Restore(context.Background()))
	_, err := session.Current()
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
