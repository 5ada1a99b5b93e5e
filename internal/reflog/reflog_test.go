package reflog

import (
	"testing"
	"time"

	vcserr "myvcs/internal/errors"
	"myvcs/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestLog(t *testing.T) *Log {
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	l, err := New(db, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Close()
		db.Close()
	})
	return l
}

func TestAppendAndList(t *testing.T) {
	l := setupTestLog(t)

	first, err := l.Append(Entry{Ref: "refs/heads/master", New: "c1", Message: "commit: one"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Time.IsZero())

	_, err = l.Append(Entry{Ref: "refs/heads/master", Old: "c1", New: "c2", Message: "commit: two"})
	require.NoError(t, err)
	_, err = l.Append(Entry{Ref: "refs/heads/feature", New: "c2", Message: "branch: created"})
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		all, err := l.List("", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "branch: created", all[0].Message)
		assert.Equal(t, "commit: one", all[2].Message)
	})

	t.Run("filtered by ref", func(t *testing.T) {
		master, err := l.List("refs/heads/master", 0)
		require.NoError(t, err)
		require.Len(t, master, 2)
		assert.Equal(t, "c2", master[0].New)
		assert.Equal(t, "c1", master[0].Old)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := l.List("", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "refs/heads/feature", got[0].Ref)
	})

	t.Run("unknown ref", func(t *testing.T) {
		got, err := l.List("refs/heads/none", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestGet(t *testing.T) {
	l := setupTestLog(t)

	appended, err := l.Append(Entry{Ref: "refs/heads/master", New: "c1", Message: "commit: one"})
	require.NoError(t, err)

	got, err := l.Get(appended.ID)
	require.NoError(t, err)
	assert.Equal(t, appended.ID, got.ID)
	assert.Equal(t, "commit: one", got.Message)
	assert.True(t, appended.Time.Equal(got.Time))

	_, err = l.Get("00000000000000009999")
	assert.True(t, vcserr.Is(err, vcserr.ErrorTypeNotFound))
}

func TestAppendKeepsGivenTime(t *testing.T) {
	l := setupTestLog(t)
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	e, err := l.Append(Entry{Ref: "HEAD", New: "c1", Time: when})
	require.NoError(t, err)
	assert.True(t, when.Equal(e.Time))
}

func TestOpenReopen(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, nil)
	require.NoError(t, err)
	_, err = l.Append(Entry{Ref: "HEAD", New: "c1", Message: "first"})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(dir, nil)
	require.NoError(t, err)
	defer l.Close()
	_, err = l.Append(Entry{Ref: "HEAD", Old: "c1", New: "c2", Message: "second"})
	require.NoError(t, err)

	got, err := l.List("HEAD", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Message)
}
