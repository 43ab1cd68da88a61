// Package prefs keeps small device-local values that must survive restarts,
// such as the id of the last signed-in user.
package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/99designs/keyring"
)

const (
	serviceName = "pagetrack"

	// KeyLastUserID holds the id of the most recently signed-in user.
	KeyLastUserID = "last_user_id"
)

// Config selects where preferences are kept.
type Config struct {
	// Dir is the file backend directory.
	Dir string
	// Password encrypts the file backend.
	Password string
	// System also allows OS keychains before the file backend.
	System bool
}

// Prefs is a typed view over a keyring.
type Prefs struct {
	mu     sync.Mutex
	ring   keyring.Keyring
	logger *slog.Logger
}

// Open opens the configured keyring.
func Open(cfg Config, logger *slog.Logger) (*Prefs, error) {
	backends := []keyring.BackendType{keyring.FileBackend}
	if cfg.System {
		backends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		AllowedBackends:          backends,
		FileDir:                  cfg.Dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(cfg.Password),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}

	return New(ring, logger), nil
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring, logger *slog.Logger) *Prefs {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prefs{ring: ring, logger: logger}
}

// LastUserID returns the last signed-in user id. ok is false when none was recorded.
func (p *Prefs) LastUserID() (userID string, ok bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	item, err := p.ring.Get(KeyLastUserID)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting %q: %w", KeyLastUserID, err)
	}
	if len(item.Data) == 0 {
		return "", false, nil
	}
	return string(item.Data), true, nil
}

// SetLastUserID records userID as the last signed-in user.
func (p *Prefs) SetLastUserID(userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ring.Set(keyring.Item{
		Key:         KeyLastUserID,
		Data:        []byte(userID),
		Label:       "PageTrack last user",
		Description: "Id of the reader signed in again at start",
	})
	if err != nil {
		return fmt.Errorf("setting %q: %w", KeyLastUserID, err)
	}

	p.logger.Debug("last user recorded", "user_id", userID)
	return nil
}

// ClearLastUserID forgets the last signed-in user. Clearing an absent value is not an error.
func (p *Prefs) ClearLastUserID() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ring.Remove(KeyLastUserID)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %q: %w", KeyLastUserID, err)
	}
	return nil
}
