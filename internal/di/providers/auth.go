package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/pagetrack/pagetrack-server/internal/auth"
	"github.com/pagetrack/pagetrack-server/internal/config"
	"github.com/pagetrack/pagetrack-server/internal/logger"
	"github.com/pagetrack/pagetrack-server/internal/prefs"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the authentication key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	cfg.Auth.AccessTokenKey = key

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(authKey, cfg.Auth.AccessTokenDuration)
}

// ProvidePrefs opens the keyring holding device-local preferences.
func ProvidePrefs(i do.Injector) (*prefs.Prefs, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	p, err := prefs.Open(prefs.Config{
		Dir:      cfg.Keyring.Dir,
		Password: cfg.Keyring.Password,
		System:   cfg.Keyring.System,
	}, log.Component("prefs"))
	if err != nil {
		return nil, err
	}

	log.Info("Preferences keyring opened", "dir", cfg.Keyring.Dir, "system", cfg.Keyring.System)
	return p, nil
}

// ProvideSession provides the session and restores the last signed-in user.
// A failed restore leaves the server signed out.
func ProvideSession(i do.Injector) (*auth.Session, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	p := do.MustInvoke[*prefs.Prefs](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	session := auth.NewSession(storeHandle.Store, p, tokens, log.Component("auth"))
	if err := session.Restore(context.Background()); err != nil {
		log.Warn("No session restored", "error", err)
	}

	return session, nil
}
