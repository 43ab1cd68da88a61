// Package store persists each user's books, alarms and goals as JSON documents
// in Badger, partitioned under "u:{userID}:{collection}:{docID}".
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/pagetrack/pagetrack-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Books  *Collection[domain.Book]
	Alarms *Collection[domain.AlarmItem]
	Goals  *Collection[domain.GoalItem]
}

// Options configures how the database is opened.
type Options struct {
	// InMemory keeps everything in RAM; Path is ignored. Used by tests.
	InMemory bool
}

// New opens (or creates) the database at path.
func New(path string, logger *slog.Logger, opts ...Options) (*Store, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	badgerOpts := badger.DefaultOptions(path)
	if o.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	badgerOpts.Logger = nil            // Disable Badger's internal logging
	badgerOpts.SyncWrites = !o.InMemory // Survive crashes between a write and its callback
	badgerOpts.CompactL0OnClose = true

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}
	s.Books = NewCollection[domain.Book](s, CollectionBooks)
	s.Alarms = NewCollection[domain.AlarmItem](s, CollectionAlarms)
	s.Goals = NewCollection[domain.GoalItem](s, CollectionGoals)

	logger.Info("Badger database opened", "path", path, "in_memory", o.InMemory)

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

// Ping verifies the database answers a read.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(userRecordPrefix))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// get retrieves a value by key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// set stores a value by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}
