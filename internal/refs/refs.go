package refs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	vcserr "myvcs/internal/errors"

	"go.uber.org/zap"
)

const (
	headFile       = "HEAD"
	symbolicPrefix = "ref: "
	headsPrefix    = "refs/heads/"
)

// HeadKind tells how HEAD names the current commit.
type HeadKind int

const (
	// HeadSymbolic follows a branch ref.
	HeadSymbolic HeadKind = iota
	// HeadDetached holds a commit hash directly.
	HeadDetached
)

func (k HeadKind) String() string {
	switch k {
	case HeadSymbolic:
		return "symbolic"
	case HeadDetached:
		return "detached"
	default:
		return fmt.Sprintf("HeadKind(%d)", int(k))
	}
}

// Head is the parsed content of the HEAD file. Branch is set for symbolic
// heads, Commit for detached ones.
type Head struct {
	Kind   HeadKind
	Branch string
	Commit string
}

func Symbolic(branch string) Head { return Head{Kind: HeadSymbolic, Branch: branch} }

func Detached(commit string) Head { return Head{Kind: HeadDetached, Commit: commit} }

// RefName is the ref HEAD moves when a commit is made.
func (h Head) RefName() string {
	if h.Kind == HeadSymbolic {
		return headsPrefix + h.Branch
	}
	return headFile
}

func (h Head) String() string {
	if h.Kind == HeadSymbolic {
		return symbolicPrefix + headsPrefix + h.Branch
	}
	return h.Commit
}

// Store reads and writes HEAD and branch files under a control directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(controlDir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: controlDir, logger: logger}
}

// ReadHead parses the HEAD file.
func (s *Store) ReadHead() (Head, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, headFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Head{}, vcserr.NotFound("HEAD not found")
		}
		return Head{}, fmt.Errorf("read HEAD: %w", err)
	}
	return ParseHead(string(data))
}

// ParseHead parses HEAD file content.
func ParseHead(content string) (Head, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, symbolicPrefix) {
		target := strings.TrimSpace(strings.TrimPrefix(content, symbolicPrefix))
		if !strings.HasPrefix(target, headsPrefix) {
			return Head{}, fmt.Errorf("parse HEAD: unsupported ref %q", target)
		}
		return Symbolic(strings.TrimPrefix(target, headsPrefix)), nil
	}
	if content == "" {
		return Head{}, fmt.Errorf("parse HEAD: empty")
	}
	return Detached(content), nil
}

// SetHead overwrites HEAD.
func (s *Store) SetHead(h Head) error {
	switch h.Kind {
	case HeadSymbolic:
		if err := ValidateBranchName(h.Branch); err != nil {
			return err
		}
	case HeadDetached:
		if h.Commit == "" {
			return vcserr.ValidationError("detached HEAD needs a commit hash", nil)
		}
	}
	if err := writeFileAtomic(s.dir, filepath.Join(s.dir, headFile), h.String()+"\n"); err != nil {
		return fmt.Errorf("update HEAD: %w", err)
	}
	s.logger.Debug("HEAD updated", zap.Stringer("head", h))
	return nil
}

// ResolveHead returns the commit HEAD points at. ok is false when HEAD
// follows a branch that has no commit yet.
func (s *Store) ResolveHead() (hash string, ok bool, err error) {
	h, err := s.ReadHead()
	if err != nil {
		return "", false, err
	}
	return s.Resolve(h)
}

// Resolve resolves an already parsed head.
func (s *Store) Resolve(h Head) (string, bool, error) {
	if h.Kind == HeadDetached {
		return h.Commit, true, nil
	}
	hash, err := s.ReadBranch(h.Branch)
	if err != nil {
		if vcserr.Is(err, vcserr.ErrorTypeBranchNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return hash, true, nil
}

// ReadBranch returns the commit a branch points at.
func (s *Store) ReadBranch(name string) (string, error) {
	if err := ValidateBranchName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.branchPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", vcserr.BranchNotFound(name)
		}
		return "", fmt.Errorf("read branch %q: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// BranchExists reports whether refs/heads/<name> exists.
func (s *Store) BranchExists(name string) bool {
	if ValidateBranchName(name) != nil {
		return false
	}
	info, err := os.Stat(s.branchPath(name))
	return err == nil && !info.IsDir()
}

// WriteBranch points a branch at hash, creating the ref if needed.
func (s *Store) WriteBranch(name, hash string) error {
	if err := ValidateBranchName(name); err != nil {
		return err
	}
	dir := filepath.Join(s.dir, "refs", "heads")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("update branch %q: mkdir: %w", name, err)
	}
	if err := writeFileAtomic(dir, s.branchPath(name), hash+"\n"); err != nil {
		return fmt.Errorf("update branch %q: %w", name, err)
	}
	s.logger.Debug("branch updated", zap.String("branch", name), zap.String("commit", hash))
	return nil
}

// CreateBranch creates a new branch at commit. An empty commit means the
// repository has none yet, which is an error rather than an empty branch.
func (s *Store) CreateBranch(name, commit string) error {
	if err := ValidateBranchName(name); err != nil {
		return err
	}
	if commit == "" {
		return vcserr.NoCommitYet()
	}
	if s.BranchExists(name) {
		return vcserr.ValidationError(fmt.Sprintf("branch %q already exists", name), name)
	}
	return s.WriteBranch(name, commit)
}

// Advance moves whatever HEAD follows to hash: the branch file for a
// symbolic HEAD, HEAD itself when detached. It returns the previous value
// (empty for an unborn branch) and the head that was moved.
func (s *Store) Advance(hash string) (previous string, head Head, err error) {
	head, err = s.ReadHead()
	if err != nil {
		return "", Head{}, err
	}

	previous, _, err = s.Resolve(head)
	if err != nil {
		return "", Head{}, err
	}

	switch head.Kind {
	case HeadSymbolic:
		err = s.WriteBranch(head.Branch, hash)
	case HeadDetached:
		err = s.SetHead(Detached(hash))
	}
	if err != nil {
		return "", Head{}, err
	}
	return previous, head, nil
}

// ListBranches returns branch names sorted alphabetically.
func (s *Store) ListBranches() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "refs", "heads"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ValidateBranchName rejects names that cannot be stored as a single ref file.
func ValidateBranchName(name string) error {
	if name == "" {
		return vcserr.ValidationError("branch name is required", nil)
	}
	if name == headFile || strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return vcserr.ValidationError(fmt.Sprintf("invalid branch name %q", name), name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return vcserr.ValidationError(fmt.Sprintf("invalid branch name %q", name), name)
		}
	}
	return nil
}

func (s *Store) branchPath(name string) string {
	return filepath.Join(s.dir, "refs", "heads", name)
}

func writeFileAtomic(dir, dest, content string) error {
	tmp, err := os.CreateTemp(dir, ".ref-tmp-*")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
