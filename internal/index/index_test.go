package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) (*Index, string) {
	p := filepath.Join(t.TempDir(), "index")
	return New(p, nil), p
}

func TestIndex(t *testing.T) {
	t.Run("MissingFileIsEmpty", func(t *testing.T) {
		ix, _ := newTestIndex(t)
		m, err := ix.ReadAll()
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("StageUpserts", func(t *testing.T) {
		ix, _ := newTestIndex(t)
		require.NoError(t, ix.Stage("a.txt", "h1"))
		require.NoError(t, ix.Stage("b.txt", "h2"))
		require.NoError(t, ix.Stage("a.txt", "h3"))

		m, err := ix.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a.txt": "h3", "b.txt": "h2"}, m)
	})

	t.Run("EntriesSorted", func(t *testing.T) {
		ix, _ := newTestIndex(t)
		require.NoError(t, ix.Stage("z.txt", "h1"))
		require.NoError(t, ix.Stage("dir/a.txt", "h2"))
		require.NoError(t, ix.Stage("m.txt", "h3"))

		entries, err := ix.Entries()
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "dir/a.txt", entries[0].Path)
		assert.Equal(t, "m.txt", entries[1].Path)
		assert.Equal(t, "z.txt", entries[2].Path)
	})

	t.Run("Clear", func(t *testing.T) {
		ix, p := newTestIndex(t)
		require.NoError(t, ix.Stage("a.txt", "h1"))
		require.NoError(t, ix.Clear())

		m, err := ix.ReadAll()
		require.NoError(t, err)
		assert.Empty(t, m)

		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Replace", func(t *testing.T) {
		ix, _ := newTestIndex(t)
		require.NoError(t, ix.Stage("old.txt", "h1"))
		require.NoError(t, ix.Replace(map[string]string{"new.txt": "h2"}))

		m, err := ix.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"new.txt": "h2"}, m)
	})

	t.Run("PathsWithSpaces", func(t *testing.T) {
		ix, _ := newTestIndex(t)
		require.NoError(t, ix.Stage("my notes.txt", "h1"))

		m, err := ix.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "h1", m["my notes.txt"])
	})
}

func TestParseLastLineWins(t *testing.T) {
	m := parse([]byte("a.txt h1\nbroken\nb.txt h2\na.txt h3\n\n"))
	assert.Equal(t, map[string]string{"a.txt": "h3", "b.txt": "h2"}, m)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a.txt", "a.txt"},
		{"./a.txt", "a.txt"},
		{"dir//b.txt", "dir/b.txt"},
		{filepath.Join("dir", "sub", "c.txt"), "dir/sub/c.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
