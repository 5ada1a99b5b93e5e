// internal/content/store.go
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	vcserr "myvcs/internal/errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// HashSize is the length of a hex encoded object hash.
const HashSize = sha256.Size * 2

// Store is an append-only, content-addressed object store. Every object lives
// in a single file named after the SHA-256 of its bytes.
type Store struct {
	root   string
	cache  *lru.Cache[string, []byte]
	logger *zap.Logger
}

// Options configures a Store.
type Options struct {
	CacheSize int // number of objects kept in memory; defaults to 256
	Logger    *zap.Logger
}

// NewStore opens the object directory at root, creating it if needed.
func NewStore(root string, opts Options) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating object directory: %w", err)
	}

	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		root:   root,
		cache:  cache,
		logger: logger,
	}, nil
}

// Hash returns the object hash for data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidHash reports whether hash has the shape of an object hash.
func ValidHash(hash string) bool {
	if len(hash) != HashSize {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// Put stores data and returns its hash. Storing bytes that are already
// present is a no-op.
func (s *Store) Put(data []byte) (string, error) {
	if data == nil {
		data = []byte{}
	}

	hash := Hash(data)
	if s.Has(hash) {
		return hash, nil
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write close: %w", err)
	}
	if err := os.Rename(tmpName, s.path(hash)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write rename: %w", err)
	}

	s.cache.Add(hash, data)
	s.logger.Debug("object stored", zap.String("hash", hash), zap.Int("size", len(data)))

	return hash, nil
}

// Get returns the bytes stored under hash.
func (s *Store) Get(hash string) ([]byte, error) {
	if !ValidHash(hash) {
		return nil, vcserr.NotFound(fmt.Sprintf("object not found: %q", hash))
	}

	if data, ok := s.cache.Get(hash); ok {
		return data, nil
	}

	data, err := os.ReadFile(s.path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vcserr.NotFound(fmt.Sprintf("object not found: %s", hash))
		}
		return nil, fmt.Errorf("reading object %s: %w", hash, err)
	}

	s.cache.Add(hash, data)
	return data, nil
}

// Has reports whether an object with the given hash is stored.
func (s *Store) Has(hash string) bool {
	if !ValidHash(hash) {
		return false
	}
	if s.cache.Contains(hash) {
		return true
	}
	_, err := os.Stat(s.path(hash))
	return err == nil
}

// Count returns the number of stored objects.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("listing objects: %w", err)
	}

	n := 0
	for _, e := range entries {
		if !e.IsDir() && ValidHash(e.Name()) {
			n++
		}
	}
	return n, nil
}

func (s *Store) path(hash string) string {
	return filepath.Join(s.root, hash)
}
