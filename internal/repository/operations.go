package repository

import (
	"fmt"
	"strings"

	vcserr "myvcs/internal/errors"
	"myvcs/internal/index"
	"myvcs/internal/reflog"
	"myvcs/internal/refs"
	"myvcs/internal/snapshot"
	"myvcs/internal/status"

	"go.uber.org/zap"
)

// CommitResult describes a recorded commit.
type CommitResult struct {
	Hash     string
	Previous string // commit the moved ref held before, empty if unborn
	Head     refs.Head
	Files    int
}

// CheckoutResult describes a branch switch.
type CheckoutResult struct {
	Branch  string
	From    string
	To      string
	Removed []string
	Written []string
}

// HeadInfo describes HEAD and what it resolves to.
type HeadInfo struct {
	Head   refs.Head
	Commit string
	Unborn bool
}

// BranchList is every branch plus the one HEAD follows (empty when
// detached).
type BranchList struct {
	Current  string
	Branches []string
}

// Add stores the content of a file, or of every file below a directory, and
// stages it. Paths are absolute or relative to the repository root.
func (r *Repository) Add(p string) ([]index.Entry, error) {
	rel, err := r.Tree.Rel(p)
	if err != nil {
		return nil, err
	}
	files, err := r.Tree.Files(rel)
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	staged, err := r.Index.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	added := make(map[string]string, len(files))
	for _, f := range files {
		data, err := r.Tree.Read(f)
		if err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}
		hash, err := r.Objects.Put(data)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", f, err)
		}
		staged[f] = hash
		added[f] = hash
	}

	if len(added) > 0 {
		if err := r.Index.Replace(staged); err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}
	}

	r.logger.Debug("staged files", zap.String("path", rel), zap.Int("count", len(added)))
	return index.Sorted(added), nil
}

// Commit records the staged entries as a new commit and moves whatever HEAD
// follows to it. The index is cleared only once the commit object and the
// ref update are both on disk. A reflog failure is returned alongside a
// valid result: the commit stands.
func (r *Repository) Commit(message string) (*CommitResult, error) {
	staged, err := r.Index.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if len(staged) == 0 {
		return nil, vcserr.NothingToCommit()
	}

	for p, h := range staged {
		if !r.Objects.Has(h) {
			return nil, vcserr.NotFound(fmt.Sprintf("staged object for %s not found: %s", p, h))
		}
	}

	record := snapshot.New(message, r.now(), staged)
	hash, err := r.Objects.Put(record.Encode())
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	previous, head, err := r.Refs.Advance(hash)
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	reflogErr := r.appendReflog(reflog.Entry{
		Ref:     head.RefName(),
		Old:     previous,
		New:     hash,
		Message: "commit: " + record.Message,
	})

	if err := r.Index.Clear(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	r.logger.Info("committed",
		zap.String("commit", hash),
		zap.String("ref", head.RefName()),
		zap.Int("files", len(staged)))

	return &CommitResult{
		Hash:     hash,
		Previous: previous,
		Head:     head,
		Files:    len(staged),
	}, reflogErr
}

// CreateBranch creates a branch at the commit HEAD resolves to. HEAD itself
// does not move.
func (r *Repository) CreateBranch(name string) (string, error) {
	if err := refs.ValidateBranchName(name); err != nil {
		return "", err
	}
	commit, ok, err := r.Refs.ResolveHead()
	if err != nil {
		return "", fmt.Errorf("create branch: %w", err)
	}
	if !ok {
		return "", vcserr.NoCommitYet()
	}
	if err := r.Refs.CreateBranch(name, commit); err != nil {
		return "", err
	}

	r.logger.Info("created branch", zap.String("branch", name), zap.String("commit", commit))
	return commit, r.appendReflog(reflog.Entry{
		Ref:     "refs/heads/" + name,
		New:     commit,
		Message: "branch: created from " + r.headLabel(),
	})
}

// SwitchBranch replaces the working tree and index with the branch's
// snapshot and points HEAD at the branch. Untracked files are left alone;
// uncommitted edits to tracked files are overwritten.
func (r *Repository) SwitchBranch(name string) (*CheckoutResult, error) {
	if err := refs.ValidateBranchName(name); err != nil {
		return nil, err
	}
	target, err := r.Refs.ReadBranch(name)
	if err != nil {
		return nil, err
	}

	from := r.headLabel()
	current, _, err := r.Refs.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("switch branch: %w", err)
	}

	res, err := r.engine().Sync(current, target)
	if err != nil {
		return nil, fmt.Errorf("switch branch: %w", err)
	}
	if err := r.Refs.SetHead(refs.Symbolic(name)); err != nil {
		return nil, fmt.Errorf("switch branch: %w", err)
	}

	r.logger.Info("switched branch",
		zap.String("branch", name),
		zap.String("commit", target),
		zap.Int("removed", len(res.Removed)),
		zap.Int("written", len(res.Written)))

	out := &CheckoutResult{
		Branch:  name,
		From:    current,
		To:      target,
		Removed: res.Removed,
		Written: res.Written,
	}
	return out, r.appendReflog(reflog.Entry{
		Ref:     "HEAD",
		Old:     current,
		New:     target,
		Message: fmt.Sprintf("checkout: moving from %s to %s", from, name),
	})
}

// Detach checks out a commit by hash and leaves HEAD detached at it. Later
// commits move HEAD directly.
func (r *Repository) Detach(commit string) (*CheckoutResult, error) {
	if _, err := snapshot.ReadCommit(r.Objects, commit); err != nil {
		return nil, fmt.Errorf("detach: %w", err)
	}

	from := r.headLabel()
	current, _, err := r.Refs.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("detach: %w", err)
	}

	res, err := r.engine().Sync(current, commit)
	if err != nil {
		return nil, fmt.Errorf("detach: %w", err)
	}
	if err := r.Refs.SetHead(refs.Detached(commit)); err != nil {
		return nil, fmt.Errorf("detach: %w", err)
	}

	out := &CheckoutResult{
		From:    current,
		To:      commit,
		Removed: res.Removed,
		Written: res.Written,
	}
	return out, r.appendReflog(reflog.Entry{
		Ref:     "HEAD",
		Old:     current,
		New:     commit,
		Message: fmt.Sprintf("checkout: moving from %s to %s", from, commit),
	})
}

// Status compares the working tree against the index and the HEAD snapshot.
func (r *Repository) Status() (*status.Report, error) {
	work, err := r.Tree.Scan()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	staged, err := r.Index.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	commit, _, err := r.Refs.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	head, err := snapshot.Read(r.Objects, commit)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return status.Compute(work, staged, head), nil
}

// Head reports the HEAD variant and the commit it resolves to.
func (r *Repository) Head() (*HeadInfo, error) {
	h, err := r.Refs.ReadHead()
	if err != nil {
		return nil, err
	}
	commit, ok, err := r.Refs.Resolve(h)
	if err != nil {
		return nil, err
	}
	return &HeadInfo{Head: h, Commit: commit, Unborn: !ok}, nil
}

// Branches lists every branch and marks the one HEAD follows.
func (r *Repository) Branches() (*BranchList, error) {
	names, err := r.Refs.ListBranches()
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	h, err := r.Refs.ReadHead()
	if err != nil {
		return nil, err
	}
	out := &BranchList{Branches: names}
	if h.Kind == refs.HeadSymbolic {
		out.Current = h.Branch
	}
	return out, nil
}

// Log returns reflog entries newest first. ref may be a branch name, a full
// ref such as refs/heads/master, HEAD, or empty for every ref.
func (r *Repository) Log(ref string, limit int) ([]reflog.Entry, error) {
	ref = qualifyRef(ref)

	var entries []reflog.Entry
	err := r.withReflog(func(l *reflog.Log) error {
		var err error
		entries, err = l.List(ref, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return entries, nil
}

// LogEntry returns the reflog entry with the given id.
func (r *Repository) LogEntry(id string) (*reflog.Entry, error) {
	var entry *reflog.Entry
	err := r.withReflog(func(l *reflog.Log) error {
		var err error
		entry, err = l.Get(id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return entry, nil
}

// ReadCommit decodes a commit object.
func (r *Repository) ReadCommit(hash string) (*snapshot.Commit, error) {
	return snapshot.ReadCommit(r.Objects, hash)
}

func (r *Repository) headLabel() string {
	h, err := r.Refs.ReadHead()
	if err != nil {
		return "HEAD"
	}
	if h.Kind == refs.HeadSymbolic {
		return h.Branch
	}
	return h.Commit
}

func qualifyRef(ref string) string {
	switch {
	case ref == "", ref == "HEAD", strings.HasPrefix(ref, "refs/"):
		return ref
	default:
		return "refs/heads/" + ref
	}
}
