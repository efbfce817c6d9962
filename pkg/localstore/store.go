// Package localstore is the on-device embedded key-value store: per-node
// sync metadata, last-synced snapshots, rotation progress, device
// records, unresolved conflicts, and conflict history all persist here;
// pkg/health's OfflineQueue is held in memory and is not stored here.
// Backed by Badger (embedded, pure Go, no cgo).
package localstore

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Store wraps a Badger database with JSON-marshaling convenience methods
// and prefix iteration, the two access patterns every package above it
// needs (pkg/conflictstore, pkg/keyring's rotation cursor).
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a Badger database rooted at dir. An empty dir
// uses Badger's in-memory mode, useful for tests.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("localstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put JSON-marshals value and stores it under key.
func (s *Store) Put(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("localstore: marshal: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), b)
	})
}

// Get unmarshals the value stored under key into out, returning
// (false, nil) if key is absent.
func (s *Store) Get(key string, out any) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err != nil {
		return false, fmt.Errorf("localstore: get %q: %w", key, err)
	}
	return found, nil
}

// Delete removes key, a no-op if it does not exist.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// IteratePrefix calls fn with the raw value bytes for every key under
// prefix, in key order. Stops early if fn returns an error.
func (s *Store) IteratePrefix(prefix string, fn func(key string, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
