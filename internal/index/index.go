package index

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Entry is one staged file.
type Entry struct {
	Path string
	Hash string
}

// Index is the staging area persisted at a single text file, one
// "<path> <hash>" line per entry.
type Index struct {
	path   string
	logger *zap.Logger
}

func New(path string, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{path: path, logger: logger}
}

// Normalize converts a root-relative path to the slash-separated form used
// as the index key.
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	p = path.Clean(p)
	return strings.TrimPrefix(p, "./")
}

// ReadAll returns the staged path to hash mapping. A missing index file is
// an empty index.
func (ix *Index) ReadAll() (map[string]string, error) {
	data, err := os.ReadFile(ix.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	return parse(data), nil
}

// Entries returns the staged entries sorted by path.
func (ix *Index) Entries() ([]Entry, error) {
	m, err := ix.ReadAll()
	if err != nil {
		return nil, err
	}
	return Sorted(m), nil
}

// Stage records hash for p, replacing any previous entry for the same path.
func (ix *Index) Stage(p, hash string) error {
	m, err := ix.ReadAll()
	if err != nil {
		return fmt.Errorf("stage %s: %w", p, err)
	}

	key := Normalize(p)
	if prev, ok := m[key]; ok && prev != hash {
		ix.logger.Debug("restaging path", zap.String("path", key), zap.String("previous", prev))
	}
	m[key] = hash

	if err := ix.write(m); err != nil {
		return fmt.Errorf("stage %s: %w", p, err)
	}
	return nil
}

// Clear empties the index.
func (ix *Index) Clear() error {
	if err := ix.write(nil); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}

// Replace overwrites the whole index with entries in a single write.
func (ix *Index) Replace(entries map[string]string) error {
	m := make(map[string]string, len(entries))
	for p, h := range entries {
		m[Normalize(p)] = h
	}
	if err := ix.write(m); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Sorted turns a path to hash mapping into entries ordered by path.
func Sorted(m map[string]string) []Entry {
	entries := make([]Entry, 0, len(m))
	for p, h := range m {
		entries = append(entries, Entry{Path: p, Hash: h})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// parse reads index lines. The hash never contains a space, so each line is
// split on its last space and paths may contain spaces. Later lines win.
func parse(data []byte) map[string]string {
	m := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		i := strings.LastIndexByte(line, ' ')
		if i <= 0 || i == len(line)-1 {
			continue
		}
		m[line[:i]] = line[i+1:]
	}
	return m
}

func (ix *Index) write(m map[string]string) error {
	var buf bytes.Buffer
	for _, e := range Sorted(m) {
		fmt.Fprintf(&buf, "%s %s\n", e.Path, e.Hash)
	}

	dir := filepath.Dir(ix.path)
	tmp, err := os.CreateTemp(dir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, ix.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
