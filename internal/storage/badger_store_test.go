package storage

import (
	"fmt"
	"strings"
	"testing"

	vcserr "myvcs/internal/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

func (r *record) GetID() string { return r.ID }

func setupTestDB(t *testing.T) *badger.DB {
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBadgerStoreCreateGet(t *testing.T) {
	store := NewBadgerStore(setupTestDB(t), "test")

	require.NoError(t, store.Create(&record{ID: "a", Value: "one"}))

	var got record
	require.NoError(t, store.Get("a", &got))
	assert.Equal(t, "one", got.Value)

	t.Run("duplicate", func(t *testing.T) {
		err := store.Create(&record{ID: "a", Value: "two"})
		assert.True(t, vcserr.Is(err, vcserr.ErrorTypeValidation))
	})

	t.Run("empty id", func(t *testing.T) {
		err := store.Create(&record{})
		assert.True(t, vcserr.Is(err, vcserr.ErrorTypeValidation))
	})

	t.Run("missing", func(t *testing.T) {
		err := store.Get("nope", &got)
		assert.True(t, vcserr.Is(err, vcserr.ErrorTypeNotFound))
	})
}

func TestBadgerStoreWalk(t *testing.T) {
	db := setupTestDB(t)
	store := NewBadgerStore(db, "test")
	other := NewBadgerStore(db, "other")

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(&record{ID: fmt.Sprintf("%03d", i)}))
	}
	require.NoError(t, other.Create(&record{ID: "zzz"}))

	var forward []string
	require.NoError(t, store.Walk(false, func(id string, _ []byte) error {
		forward = append(forward, id)
		return nil
	}))
	assert.Equal(t, []string{"000", "001", "002", "003", "004"}, forward)

	var backward []string
	require.NoError(t, store.Walk(true, func(id string, _ []byte) error {
		backward = append(backward, id)
		if len(backward) == 2 {
			return ErrStop
		}
		return nil
	}))
	assert.Equal(t, []string{"004", "003"}, backward)
}

func TestOpenPersists(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, NewBadgerStore(db, "test").Create(&record{ID: "a", Value: "kept"}))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	var got record
	require.NoError(t, NewBadgerStore(db, "test").Get("a", &got))
	assert.Equal(t, "kept", got.Value)
}

func TestOpenLargeValue(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	store := NewBadgerStore(db, "test")
	big := strings.Repeat("x", 2<<20)
	require.NoError(t, store.Create(&record{ID: "big", Value: big}))

	var got record
	require.NoError(t, store.Get("big", &got))
	assert.Len(t, got.Value, len(big))
}
