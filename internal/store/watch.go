package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
)

// ChangeOp is the kind of change a document went through.
type ChangeOp string

const (
	OpUpsert ChangeOp = "upsert"
	OpDelete ChangeOp = "delete"
)

// Change describes one committed write to a user's document.
type Change struct {
	UserID     string          `json:"-"`
	Collection string          `json:"collection"`
	DocID      string          `json:"docId"`
	Op         ChangeOp        `json:"op"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Watch streams committed changes of the user's books, alarms and goals to fn
// until ctx is cancelled. It blocks; run it in its own goroutine.
// An error returned by fn ends the watch and is returned.
func (s *Store) Watch(ctx context.Context, userID string, fn func(Change) error) error {
	if err := checkSegment("user id", userID); err != nil {
		return err
	}

	matches := []pb.Match{{Prefix: []byte(partitionPrefix(userID, ""))}}

	err := s.db.Subscribe(ctx, func(list *badger.KVList) error {
		for _, kv := range list.Kv {
			change, ok := changeFromKV(kv)
			if !ok {
				continue
			}
			if err := fn(change); err != nil {
				return err
			}
		}
		return nil
	}, matches)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// changeFromKV converts a published key/value into a Change.
// Deletes are published with an empty value.
func changeFromKV(kv *pb.KV) (Change, bool) {
	userID, collection, docID, ok := parseDocumentKey(string(kv.Key))
	if !ok {
		return Change{}, false
	}

	change := Change{
		UserID:     userID,
		Collection: collection,
		DocID:      docID,
		Op:         OpUpsert,
	}
	if len(kv.Value) == 0 {
		change.Op = OpDelete
	} else {
		change.Data = json.RawMessage(append([]byte(nil), kv.Value...))
	}
	return change, true
}
