// internal/workspace/local.go
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"myvcs/internal/content"
	vcserr "myvcs/internal/errors"
	"myvcs/internal/index"

	"go.uber.org/zap"
)

// Tree is the working directory of a repository. Paths handed to and
// returned from Tree are slash-separated and relative to Root.
type Tree struct {
	Root       string
	ControlDir string // name of the control directory directly below Root
	Logger     *zap.Logger
}

func NewTree(root, controlDir string, logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{Root: root, ControlDir: controlDir, Logger: logger}
}

// FindRoot searches upward from startDir for a directory containing
// controlDir.
func FindRoot(startDir, controlDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, controlDir)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", vcserr.InvalidRepository(startDir)
}

// Rel converts p (absolute, or relative to Root) into a normalized
// root-relative path. Paths outside the root or inside the control
// directory are rejected.
func (t *Tree) Rel(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(t.Root, p)
	}
	rel, err := filepath.Rel(t.Root, abs)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	rel = index.Normalize(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", vcserr.ValidationError(fmt.Sprintf("path %s is outside the repository", p), p)
	}
	if t.isControl(rel) {
		return "", vcserr.ValidationError(fmt.Sprintf("path %s is inside %s", p, t.ControlDir), p)
	}
	return rel, nil
}

// Abs returns the filesystem path of a root-relative path.
func (t *Tree) Abs(rel string) string {
	return filepath.Join(t.Root, filepath.FromSlash(rel))
}

// Read returns the content of a working tree file.
func (t *Tree) Read(rel string) ([]byte, error) {
	data, err := os.ReadFile(t.Abs(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, vcserr.NotFound(fmt.Sprintf("file not found: %s", rel))
		}
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

// Files lists the regular files below rel ("." for the whole tree), skipping
// the control directory. A file path yields itself.
func (t *Tree) Files(rel string) ([]string, error) {
	start := t.Abs(rel)
	info, err := os.Stat(start)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, vcserr.NotFound(fmt.Sprintf("file not found: %s", rel))
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, vcserr.ValidationError(fmt.Sprintf("%s is not a regular file", rel), rel)
		}
		return []string{index.Normalize(rel)}, nil
	}

	var files []string
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		r, err := filepath.Rel(t.Root, p)
		if err != nil {
			return err
		}
		r = index.Normalize(r)

		if d.IsDir() {
			if t.isControl(r) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			t.Logger.Debug("skipping non-regular file", zap.String("path", r))
			return nil
		}

		files = append(files, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", rel, err)
	}

	sort.Strings(files)
	return files, nil
}

// Scan hashes every file in the working tree.
func (t *Tree) Scan() (map[string]string, error) {
	files, err := t.Files(".")
	if err != nil {
		return nil, err
	}

	hashes := make(map[string]string, len(files))
	for _, rel := range files {
		data, err := t.Read(rel)
		if err != nil {
			// Removed between listing and reading.
			if vcserr.Is(err, vcserr.ErrorTypeNotFound) {
				t.Logger.Warn("file vanished during scan", zap.String("path", rel))
				continue
			}
			return nil, err
		}
		hashes[rel] = content.Hash(data)
	}
	return hashes, nil
}

// Stat describes a working tree path.
func (t *Tree) Stat(rel string) (fs.FileInfo, error) {
	return os.Stat(t.Abs(rel))
}

// Write creates or overwrites a working tree file, creating parents.
func (t *Tree) Write(rel string, data []byte) error {
	abs := t.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", rel, err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

// Remove deletes a working tree file. A missing file is not an error.
// Directories left empty are pruned up to the root.
func (t *Tree) Remove(rel string) error {
	abs := t.Abs(rel)
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.Logger.Debug("file already absent", zap.String("path", rel))
			return nil
		}
		return fmt.Errorf("removing %s: %w", rel, err)
	}
	t.pruneEmptyParents(filepath.Dir(abs))
	return nil
}

func (t *Tree) pruneEmptyParents(dir string) {
	root := filepath.Clean(t.Root)
	for {
		dir = filepath.Clean(dir)
		if dir == root || !strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return
		}
		// os.Remove refuses non-empty directories.
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (t *Tree) isControl(rel string) bool {
	return rel == t.ControlDir || strings.HasPrefix(rel, t.ControlDir+"/")
}
