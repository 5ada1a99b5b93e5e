package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	vcserr "myvcs/internal/errors"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-C", dir, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLIWorkflow(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	file := filepath.Join(dir, "hello.txt")

	out, err := run(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized empty repository")

	require.NoError(t, os.WriteFile(file, []byte("hello"), 0644))
	out, err = run(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No commits yet")
	assert.Contains(t, out, "? hello.txt")

	_, err = run(t, dir, "add", file)
	require.NoError(t, err)
	out, err = run(t, dir, "commit", "-m", "first")
	require.NoError(t, err)
	assert.Contains(t, out, "[master ")

	out, err = run(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "working tree clean")

	_, err = run(t, dir, "branch", "feature")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(file, []byte("world"), 0644))
	_, err = run(t, dir, "add", file)
	require.NoError(t, err)
	_, err = run(t, dir, "commit", "second")
	require.NoError(t, err)

	out, err = run(t, dir, "checkout", "feature")
	require.NoError(t, err)
	assert.Contains(t, out, "Switched to branch 'feature'")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	out, err = run(t, dir, "branch")
	require.NoError(t, err)
	assert.Contains(t, out, "* feature")
	assert.Contains(t, out, "  master")

	out, err = run(t, dir, "log", "master")
	require.NoError(t, err)
	assert.Contains(t, out, "commit: second")
	assert.Contains(t, out, "commit: first")
}

func TestCLIErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "status")
	assert.True(t, vcserr.Is(err, vcserr.ErrorTypeInvalidRepository))

	_, err = run(t, dir, "init")
	require.NoError(t, err)

	_, err = run(t, dir, "commit", "-m", "nothing")
	assert.True(t, vcserr.Is(err, vcserr.ErrorTypeNothingToCommit))

	_, err = run(t, dir, "branch", "feature")
	assert.True(t, vcserr.Is(err, vcserr.ErrorTypeNoCommitYet))

	_, err = run(t, dir, "checkout", "nope")
	assert.True(t, vcserr.Is(err, vcserr.ErrorTypeBranchNotFound))
}
