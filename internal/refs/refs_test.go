package refs

import (
	"os"
	"path/filepath"
	"testing"

	vcserr "myvcs/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	commitA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	commitB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func setupTestRefs(t *testing.T) (*Store, string) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "refs", "heads"), 0755))
	s := NewStore(dir, nil)
	require.NoError(t, s.SetHead(Symbolic("master")))
	return s, dir
}

func TestHeadFile(t *testing.T) {
	s, dir := setupTestRefs(t)

	data, err := os.ReadFile(filepath.Join(dir, "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, "ref: refs/heads/master\n", string(data))

	require.NoError(t, s.SetHead(Detached(commitA)))
	data, err = os.ReadFile(filepath.Join(dir, "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, commitA+"\n", string(data))

	h, err := s.ReadHead()
	require.NoError(t, err)
	assert.Equal(t, HeadDetached, h.Kind)
	assert.Equal(t, commitA, h.Commit)
}

func TestParseHead(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Head
		wantErr bool
	}{
		{name: "symbolic", content: "ref: refs/heads/main\n", want: Symbolic("main")},
		{name: "detached", content: commitA, want: Detached(commitA)},
		{name: "empty", content: "  \n", wantErr: true},
		{name: "foreign ref", content: "ref: refs/tags/v1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHead(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveHead(t *testing.T) {
	s, _ := setupTestRefs(t)

	t.Run("Unborn", func(t *testing.T) {
		hash, ok, err := s.ResolveHead()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, hash)
	})

	t.Run("Symbolic", func(t *testing.T) {
		require.NoError(t, s.WriteBranch("master", commitA))
		hash, ok, err := s.ResolveHead()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, commitA, hash)
	})

	t.Run("Detached", func(t *testing.T) {
		require.NoError(t, s.SetHead(Detached(commitB)))
		hash, ok, err := s.ResolveHead()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, commitB, hash)
	})
}

func TestCreateBranch(t *testing.T) {
	s, _ := setupTestRefs(t)

	t.Run("NoCommitYet", func(t *testing.T) {
		err := s.CreateBranch("feature", "")
		require.Error(t, err)
		assert.True(t, vcserr.Is(err, vcserr.ErrorTypeNoCommitYet))
		assert.False(t, s.BranchExists("feature"))
	})

	t.Run("CopiesHashByValue", func(t *testing.T) {
		require.NoError(t, s.WriteBranch("master", commitA))
		require.NoError(t, s.CreateBranch("feature", commitA))
		require.NoError(t, s.WriteBranch("master", commitB))

		got, err := s.ReadBranch("feature")
		require.NoError(t, err)
		assert.Equal(t, commitA, got)
	})

	t.Run("AlreadyExists", func(t *testing.T) {
		err := s.CreateBranch("feature", commitB)
		assert.True(t, vcserr.Is(err, vcserr.ErrorTypeValidation))
	})

	t.Run("InvalidName", func(t *testing.T) {
		for _, name := range []string{"", "a/b", "../x", ".hidden", "HEAD", "with space"} {
			err := s.CreateBranch(name, commitA)
			assert.True(t, vcserr.Is(err, vcserr.ErrorTypeValidation), "name %q", name)
		}
	})
}

func TestReadBranchMissing(t *testing.T) {
	s, _ := setupTestRefs(t)
	_, err := s.ReadBranch("nope")
	assert.True(t, vcserr.Is(err, vcserr.ErrorTypeBranchNotFound))
}

func TestAdvance(t *testing.T) {
	s, dir := setupTestRefs(t)

	prev, head, err := s.Advance(commitA)
	require.NoError(t, err)
	assert.Empty(t, prev)
	assert.Equal(t, "refs/heads/master", head.RefName())

	prev, _, err = s.Advance(commitB)
	require.NoError(t, err)
	assert.Equal(t, commitA, prev)

	got, err := s.ReadBranch("master")
	require.NoError(t, err)
	assert.Equal(t, commitB, got)

	// Detached HEAD moves itself and leaves branches alone.
	require.NoError(t, s.SetHead(Detached(commitA)))
	prev, head, err = s.Advance(commitB)
	require.NoError(t, err)
	assert.Equal(t, commitA, prev)
	assert.Equal(t, "HEAD", head.RefName())

	data, err := os.ReadFile(filepath.Join(dir, "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, commitB+"\n", string(data))
}

func TestListBranches(t *testing.T) {
	s, _ := setupTestRefs(t)

	names, err := s.ListBranches()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.WriteBranch("zeta", commitA))
	require.NoError(t, s.WriteBranch("alpha", commitA))

	names, err = s.ListBranches()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}
