// Package images stores book cover images and computes their placeholders.
package images

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
)

// ErrNotFound is returned when no image is stored under a key.
var ErrNotFound = errors.New("image not found")

// Backend is a blob store for image bytes.
type Backend interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
}

// Storage keeps images as files under one directory.
// Safe for concurrent use.
type Storage struct {
	basePath string
	mu       sync.RWMutex
}

// NewStorage creates a Storage for covers under {basePath}/covers.
func NewStorage(basePath string) (*Storage, error) {
	return NewStorageWithSubdir(basePath, "covers")
}

// NewStorageWithSubdir creates a Storage under {basePath}/{subdir}.
func NewStorageWithSubdir(basePath, subdir string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if subdir == "" {
		return nil, fmt.Errorf("subdirectory cannot be empty")
	}

	storagePath := filepath.Join(basePath, subdir)
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", subdir, err)
	}

	return &Storage{basePath: storagePath}, nil
}

// Save writes image data under key, replacing any previous content.
func (s *Storage) Save(_ context.Context, key string, data []byte, _ string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	//#nosec G306 -- covers are served publicly
	if err := os.WriteFile(s.Path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}

// Get reads the image stored under key.
func (s *Storage) Get(_ context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// Exists reports whether an image is stored under key.
func (s *Storage) Exists(_ context.Context, key string) bool {
	if checkKey(key) != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(key))
	return err == nil
}

// Delete removes the image under key. Deleting a missing image is not an error.
func (s *Storage) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

// Path returns the file path for key.
func (s *Storage) Path(key string) string {
	return filepath.Join(s.basePath, key+".img")
}

// Hash returns the hex SHA-256 of data, used as an ETag.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func checkKey(key string) error {
	if key == "" {
		return domainerrors.Validation("image key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return domainerrors.Validationf("invalid image key %q", key)
	}
	return nil
}
