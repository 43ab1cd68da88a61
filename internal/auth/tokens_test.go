package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetrack/pagetrack-server/internal/domain"
)

func newTestTokenService(t *testing.T, d time.Duration) *TokenService {
	t.Helper()
	key, err := LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	svc, err := NewTokenService(key, d)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewTokenService([]byte("short"), time.Hour)
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)
	user := &domain.User{ID: "user-abc", Anonymous: true}

	token, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-abc", claims.UserID)
	assert.Equal(t, "user-abc", claims.Subject)
	assert.True(t, claims.Anonymous)
	assert.NotEmpty(t, claims.TokenID)
}

func TestAccessToken_Expired(t *testing.T) {
	svc := newTestTokenService(t, -time.Minute)

	token, err := svc.GenerateAccessToken(&domain.User{ID: "user-abc"})
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestAccessToken_WrongKey(t *testing.T) {
	a := newTestTokenService(t, time.Hour)
	b := newTestTokenService(t, time.Hour)

	token, err := a.GenerateAccessToken(&domain.User{ID: "user-abc"})
	require.NoError(t, err)

	_, err = b.VerifyAccessToken(token)
	assert.Error(t, err)
}
