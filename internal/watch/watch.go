// internal/watch/watch.go
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to a working tree, its HEAD, index and branch
// refs. Bursts of events are collapsed into one notification.
type Watcher struct {
	Root       string
	ControlDir string
	Debounce   time.Duration
	Logger     *zap.Logger
}

// Run calls onChange after each debounced burst of events until ctx is
// done. onChange runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher); err != nil {
		return err
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.ignore(event) {
				continue
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDir(watcher, event.Name); err != nil {
						logger.Warn("adding new directory to watcher", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}

			logger.Debug("change detected", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			timerC = timer.C

		case <-timerC:
			timer, timerC = nil, nil
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", zap.Error(err))
		}
	}
}

// addTree watches every working directory plus the parts of the control
// directory that status depends on.
func (w *Watcher) addTree(watcher *fsnotify.Watcher) error {
	if err := w.addDir(watcher, w.Root); err != nil {
		return err
	}

	ctrl := filepath.Join(w.Root, w.ControlDir)
	for _, dir := range []string{ctrl, filepath.Join(ctrl, "refs", "heads")} {
		if err := watcher.Add(dir); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return nil
}

// addDir watches dir and every directory below it, skipping the control
// directory.
func (w *Watcher) addDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Vanished while walking.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.isControl(p) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) isControl(p string) bool {
	rel, err := filepath.Rel(w.Root, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == w.ControlDir || strings.HasPrefix(rel, w.ControlDir+"/")
}

func (w *Watcher) ignore(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return true
	}
	base := filepath.Base(event.Name)
	// Temp files of atomic writes; the rename that follows is reported.
	return strings.HasPrefix(base, ".") && strings.Contains(base, "tmp-")
}
