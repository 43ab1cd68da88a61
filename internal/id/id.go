// Package id generates identifiers for stored documents.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed store-assigned ID, e.g. "book-V1StGXR8_Z5jdHi6B-myT".
// Returns an error if the system has insufficient entropy.
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	generated, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return generated
}

// NewClientID returns a random UUID for records whose identity is chosen by the
// caller before the store sees them (alarms double as scheduler wake keys).
func NewClientID() string {
	return uuid.NewString()
}

// ValidClientID reports whether s parses as a UUID.
func ValidClientID(s string) bool {
	return uuid.Validate(s) == nil
}
