package checkout

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	vcserr "myvcs/internal/errors"
	"myvcs/internal/snapshot"

	"go.uber.org/zap"
)

// Objects reads blobs and commits.
type Objects interface {
	Get(hash string) ([]byte, error)
}

// Staging is the part of the index the engine rewrites.
type Staging interface {
	Replace(entries map[string]string) error
}

// WorkingTree is the part of the working directory the engine mutates.
type WorkingTree interface {
	Stat(rel string) (fs.FileInfo, error)
	Write(rel string, data []byte) error
	Remove(rel string) error
}

// Engine moves the working tree and index from one snapshot to another.
type Engine struct {
	Objects Objects
	Index   Staging
	Tree    WorkingTree
	Logger  *zap.Logger
}

// Result summarizes what a sync touched.
type Result struct {
	Removed []string
	Written []string
}

// Sync replaces the snapshot of oldCommit with that of newCommit. An empty
// hash is the empty snapshot. Files tracked by oldCommit but not by newCommit
// are deleted; every file of newCommit is written whether or not it changed.
// Uncommitted edits to those files are overwritten. The index ends up
// holding exactly newCommit's entries. A target path blocked by an untracked
// file or directory fails the sync before anything is changed.
func (e *Engine) Sync(oldCommit, newCommit string) (*Result, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	oldSnap, err := snapshot.Read(e.Objects, oldCommit)
	if err != nil {
		return nil, fmt.Errorf("sync: resolve current snapshot: %w", err)
	}
	newSnap, err := snapshot.Read(e.Objects, newCommit)
	if err != nil {
		return nil, fmt.Errorf("sync: resolve target snapshot: %w", err)
	}

	// Every target blob is fetched and every target path checked before the
	// tree is touched, so these failures leave the working directory intact.
	blobs := make(map[string][]byte, len(newSnap))
	for p, h := range newSnap {
		data, err := e.Objects.Get(h)
		if err != nil {
			return nil, fmt.Errorf("sync: read blob for %s: %w", p, err)
		}
		blobs[p] = data
	}
	if err := e.checkWritable(oldSnap, newSnap); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	res := &Result{}
	for _, p := range sortedPaths(oldSnap) {
		if _, keep := newSnap[p]; keep {
			continue
		}
		if err := e.Tree.Remove(p); err != nil {
			return res, fmt.Errorf("sync: %w", err)
		}
		res.Removed = append(res.Removed, p)
		logger.Debug("removed file", zap.String("path", p))
	}

	for _, p := range sortedPaths(newSnap) {
		if err := e.Tree.Write(p, blobs[p]); err != nil {
			return res, fmt.Errorf("sync: %w", err)
		}
		res.Written = append(res.Written, p)
	}

	if err := e.Index.Replace(newSnap); err != nil {
		return res, fmt.Errorf("sync: %w", err)
	}

	logger.Debug("sync complete",
		zap.String("from", oldCommit),
		zap.String("to", newCommit),
		zap.Int("removed", len(res.Removed)),
		zap.Int("written", len(res.Written)))

	return res, nil
}

// checkWritable fails when a target path cannot be written once the removals
// of the sync are done: a parent is a file that stays, or the path itself is
// a directory the sync does not empty.
func (e *Engine) checkWritable(oldSnap, newSnap snapshot.Snapshot) error {
	for _, p := range sortedPaths(newSnap) {
		parts := strings.Split(p, "/")
		for i := 1; i < len(parts); i++ {
			dir := strings.Join(parts[:i], "/")
			if _, tracked := oldSnap[dir]; tracked {
				if _, kept := newSnap[dir]; !kept {
					break
				}
			}
			info, err := e.Tree.Stat(dir)
			if errors.Is(err, fs.ErrNotExist) {
				break
			}
			if err != nil {
				return fmt.Errorf("checking %s: %w", dir, err)
			}
			if !info.IsDir() {
				return vcserr.ValidationError(fmt.Sprintf("cannot write %s: %s is not a directory", p, dir), nil)
			}
		}

		info, err := e.Tree.Stat(p)
		switch {
		case err == nil && info.IsDir() && !removesUnder(oldSnap, newSnap, p):
			return vcserr.ValidationError(fmt.Sprintf("cannot write %s: path is a directory", p), nil)
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("checking %s: %w", p, err)
		}
	}
	return nil
}

// removesUnder reports whether the sync deletes tracked files below dir,
// which prunes dir once it is empty.
func removesUnder(oldSnap, newSnap snapshot.Snapshot, dir string) bool {
	for p := range oldSnap {
		if _, kept := newSnap[p]; !kept && strings.HasPrefix(p, dir+"/") {
			return true
		}
	}
	return false
}

func sortedPaths(s snapshot.Snapshot) []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
