package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"
)

// Collection provides CRUD over one named collection inside every user partition.
type Collection[T any] struct {
	store *Store
	name  string
}

// NewCollection creates a Collection of T stored under name.
func NewCollection[T any](s *Store, name string) *Collection[T] {
	return &Collection[T]{
		store: s,
		name:  name,
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Create stores a new document.
// Returns ErrAlreadyExists if the id is taken in this user's collection.
func (c *Collection[T]) Create(ctx context.Context, userID, docID string, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := documentKey(userID, c.name, docID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", c.name, err)
	}

	return c.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		return txn.Set(key, data)
	})
}

// Get retrieves a document by id.
// Returns ErrNotFound if the document does not exist.
func (c *Collection[T]) Get(ctx context.Context, userID, docID string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := documentKey(userID, c.name, docID)
	if err != nil {
		return nil, err
	}

	var doc T
	if err := c.store.get(key, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update replaces an existing document.
// Returns ErrNotFound if the document does not exist.
func (c *Collection[T]) Update(ctx context.Context, userID, docID string, doc *T) error {
	return c.Mutate(ctx, userID, docID, func(existing *T) error {
		*existing = *doc
		return nil
	})
}

// Mutate applies fn to the stored document inside a single transaction.
// Badger's optimistic concurrency makes a concurrent writer fail with
// badger.ErrConflict rather than silently interleave.
func (c *Collection[T]) Mutate(ctx context.Context, userID, docID string, fn func(doc *T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := documentKey(userID, c.name, docID)
	if err != nil {
		return err
	}

	return c.store.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get existing key: %w", err)
		}

		var doc T
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		}); err != nil {
			return fmt.Errorf("failed to unmarshal %s document: %w", c.name, err)
		}

		if err := fn(&doc); err != nil {
			return err
		}

		data, err := json.Marshal(&doc)
		if err != nil {
			return fmt.Errorf("failed to marshal %s document: %w", c.name, err)
		}
		return txn.Set(key, data)
	})
}

// Delete removes a document. Deleting a missing document is not an error.
func (c *Collection[T]) Delete(ctx context.Context, userID, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := documentKey(userID, c.name, docID)
	if err != nil {
		return err
	}

	return c.store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// List returns an iterator over every document in the user's collection, in key order.
func (c *Collection[T]) List(ctx context.Context, userID string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		if err := checkSegment("user id", userID); err != nil {
			yield(nil, err)
			return
		}

		prefix := []byte(partitionPrefix(userID, c.name))

		//nolint:errcheck // Errors are delivered through yield.
		c.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				var doc T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &doc)
				})
				if err != nil {
					yield(nil, fmt.Errorf("failed to unmarshal %s document: %w", c.name, err))
					return err
				}

				if !yield(&doc, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// All collects List into a slice, stopping at the first error.
func (c *Collection[T]) All(ctx context.Context, userID string) ([]*T, error) {
	var docs []*T
	for doc, err := range c.List(ctx, userID) {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
