// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	vcserr "myvcs/internal/errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrStop ends a Walk early without reporting an error.
var ErrStop = stderrors.New("stop walk")

// Entity represents any storable record with an ID
type Entity interface {
	GetID() string
}

// Open opens (creating if needed) the badger database at dir.
func Open(dir string) (*badger.DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithValueLogFileSize(16 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// OpenInMemory opens a throwaway database.
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	return db, nil
}

// BadgerStore provides generic JSON storage under a key prefix
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{
		db:     db,
		prefix: prefix,
	}
}

func (s *BadgerStore) keyPrefix() []byte {
	return []byte(s.prefix + ":")
}

func (s *BadgerStore) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

func (s *BadgerStore) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), s.prefix+":")
}

// Create stores a new entity; an existing ID is a validation error.
func (s *BadgerStore) Create(entity Entity) error {
	if entity.GetID() == "" {
		return vcserr.ValidationError("entity ID cannot be empty", nil)
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	key := s.makeKey(entity.GetID())
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return vcserr.ValidationError(fmt.Sprintf("entity already exists: %s", entity.GetID()), nil)
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return txn.Set(key, data)
	})
}

// Get decodes the entity stored under id into entity.
func (s *BadgerStore) Get(id string, entity Entity) error {
	key := s.makeKey(id)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, entity)
		})
	})

	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return vcserr.NotFound(fmt.Sprintf("entity not found: %s", id))
	}
	return err
}

// Walk visits every entity under the prefix in key order, or in reverse key
// order when reverse is set. Returning ErrStop from fn ends the walk.
func (s *BadgerStore) Walk(reverse bool, fn func(id string, val []byte) error) error {
	prefix := s.keyPrefix()

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = reverse
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if reverse {
			seek = append(append([]byte{}, prefix...), 0xFF)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := s.stripPrefix(item.Key())
			err := item.Value(func(val []byte) error {
				return fn(id, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if stderrors.Is(err, ErrStop) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("walking %s entities: %w", s.prefix, err)
	}
	return nil
}
