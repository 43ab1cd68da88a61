package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentKey(t *testing.T) {
	key, err := documentKey("user-1", CollectionAlarms, "a1")
	require.NoError(t, err)
	assert.Equal(t, "u:user-1:alarms:a1", string(key))

	userID, collection, docID, ok := parseDocumentKey(string(key))
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, CollectionAlarms, collection)
	assert.Equal(t, "a1", docID)
}

func TestDocumentKey_RejectsBadSegments(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		docID  string
	}{
		{name: "empty user", userID: "", docID: "a1"},
		{name: "empty doc", userID: "user-1", docID: ""},
		{name: "separator in user", userID: "user:1", docID: "a1"},
		{name: "separator in doc", userID: "user-1", docID: "a:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := documentKey(tt.userID, CollectionBooks, tt.docID)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestParseDocumentKey_Invalid(t *testing.T) {
	for _, key := range []string{"user:abc", "u:user-1", "u:user-1:books"} {
		_, _, _, ok := parseDocumentKey(key)
		assert.False(t, ok, key)
	}
}
