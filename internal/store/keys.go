package store

import (
	"fmt"
	"strings"
)

// Collection names within a user partition.
const (
	CollectionBooks  = "books"
	CollectionAlarms = "alarms"
	CollectionGoals  = "goals"
)

const (
	userPartitionPrefix = "u:"
	userRecordPrefix    = "user:"
	keySeparator        = ":"
)

// partitionPrefix returns the key prefix of one user's collection,
// or of the whole partition when collection is empty.
func partitionPrefix(userID, collection string) string {
	if collection == "" {
		return userPartitionPrefix + userID + keySeparator
	}
	return userPartitionPrefix + userID + keySeparator + collection + keySeparator
}

// documentKey builds "u:{userID}:{collection}:{docID}".
func documentKey(userID, collection, docID string) ([]byte, error) {
	if err := checkSegment("user id", userID); err != nil {
		return nil, err
	}
	if err := checkSegment("document id", docID); err != nil {
		return nil, err
	}
	return []byte(partitionPrefix(userID, collection) + docID), nil
}

// parseDocumentKey splits a document key into its parts.
func parseDocumentKey(key string) (userID, collection, docID string, ok bool) {
	rest, found := strings.CutPrefix(key, userPartitionPrefix)
	if !found {
		return "", "", "", false
	}
	parts := strings.SplitN(rest, keySeparator, 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func checkSegment(what, value string) error {
	if value == "" {
		return ErrInvalidInput.WithMessage(what + " cannot be empty")
	}
	if strings.Contains(value, keySeparator) {
		return ErrInvalidInput.WithMessage(fmt.Sprintf("%s %q contains %q", what, value, keySeparator))
	}
	return nil
}
