package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// startWatcher runs a Watcher on root until the test ends.
func startWatcher(t *testing.T, root string) <-chan struct{} {
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".myvcs", "refs", "heads"), 0755))

	w := &Watcher{
		Root:       root,
		ControlDir: ".myvcs",
		Debounce:   50 * time.Millisecond,
		Logger:     zaptest.NewLogger(t),
	}

	changes := make(chan struct{}, 64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Give the watcher time to register directories.
	time.Sleep(100 * time.Millisecond)
	return changes
}

func waitChange(t *testing.T, changes <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s not reported", what)
	}
}

func TestWatcherReportsWorkingTreeChange(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644))
	waitChange(t, changes, "file write")
}

func TestWatcherReportsIndexChange(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".myvcs", "index"), []byte(""), 0644))
	waitChange(t, changes, "index write")
}

func TestWatcherDebouncesBursts(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "burst.txt"), []byte{byte(i)}, 0644))
	}

	count := 0
	deadline := time.After(500 * time.Millisecond)
loop:
	for {
		select {
		case <-changes:
			count++
		case <-deadline:
			break loop
		}
	}
	assert.GreaterOrEqual(t, count, 1)
	assert.Less(t, count, 10)
}

func TestWatcherSeesNewDirectories(t *testing.T) {
	root := t.TempDir()
	changes := startWatcher(t, root)

	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))
	waitChange(t, changes, "new directory")

	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("y"), 0644))
	waitChange(t, changes, "write in new directory")
}

func TestIgnore(t *testing.T) {
	w := &Watcher{Root: "/r", ControlDir: ".myvcs"}
	assert.True(t, w.ignore(fsnotify.Event{Name: "/r/.myvcs/.index-tmp-123", Op: fsnotify.Create}))
	assert.True(t, w.ignore(fsnotify.Event{Name: "/r/a.txt", Op: fsnotify.Chmod}))
	assert.False(t, w.ignore(fsnotify.Event{Name: "/r/.myvcs/index", Op: fsnotify.Create}))
	assert.True(t, w.isControl("/r/.myvcs/objects"))
	assert.False(t, w.isControl("/r/src"))
}
