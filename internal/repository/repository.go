// internal/repository/repository.go
package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"myvcs/internal/checkout"
	"myvcs/internal/config"
	"myvcs/internal/content"
	vcserr "myvcs/internal/errors"
	"myvcs/internal/index"
	"myvcs/internal/reflog"
	"myvcs/internal/refs"
	"myvcs/internal/workspace"

	"go.uber.org/zap"
)

const (
	objectsDir = "objects"
	indexFile  = "index"
	logsDir    = "logs"
	configFile = "config.json"
)

// Options configures Init and Open. Zero values fall back to the
// repository's config.json and then to the built-in defaults.
type Options struct {
	Logger        *zap.Logger
	DefaultBranch string
	CacheSize     int
}

// Repository is an opened repository. All state lives on disk under
// Root/.myvcs; a Repository holds no state of its own besides open handles.
type Repository struct {
	Root       string
	ControlDir string

	Objects *content.Store
	Index   *index.Index
	Refs    *refs.Store
	Tree    *workspace.Tree

	logger *zap.Logger
	now    func() time.Time
}

// Init creates an empty repository at path whose HEAD follows the default
// branch. It refuses to initialize over an existing control directory.
func Init(path string, opts Options) (*Repository, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: resolving %s: %w", path, err)
	}
	ctrl := filepath.Join(root, config.ControlDir)

	if _, err := os.Stat(ctrl); err == nil {
		return nil, vcserr.ValidationError(fmt.Sprintf("repository already initialized in %s", ctrl), ctrl)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("init: %w", err)
	}

	for _, dir := range []string{
		filepath.Join(ctrl, objectsDir),
		filepath.Join(ctrl, "refs", "heads"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("init: creating directory %s: %w", dir, err)
		}
	}

	branch := opts.DefaultBranch
	if branch == "" {
		branch = config.DefaultBranch
	}

	r, err := newRepository(root, opts)
	if err != nil {
		return nil, err
	}
	if err := r.Refs.SetHead(refs.Symbolic(branch)); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := r.Index.Clear(); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	r.logger.Info("initialized repository",
		zap.String("root", root),
		zap.String("branch", branch))
	return r, nil
}

// Open finds the repository containing path, searching parent directories.
func Open(path string, opts Options) (*Repository, error) {
	root, err := workspace.FindRoot(path, config.ControlDir)
	if err != nil {
		return nil, err
	}
	return newRepository(root, opts)
}

func newRepository(root string, opts Options) (*Repository, error) {
	ctrl := filepath.Join(root, config.ControlDir)

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := config.LoadFile(filepath.Join(ctrl, configFile))
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = cfg.Repository.CacheSize
	}

	objects, err := content.NewStore(filepath.Join(ctrl, objectsDir), content.Options{
		CacheSize: opts.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{
		Root:       root,
		ControlDir: ctrl,
		Objects:    objects,
		Index:      index.New(filepath.Join(ctrl, indexFile), logger),
		Refs:       refs.NewStore(ctrl, logger),
		Tree:       workspace.NewTree(root, config.ControlDir, logger),
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (r *Repository) engine() *checkout.Engine {
	return &checkout.Engine{
		Objects: r.Objects,
		Index:   r.Index,
		Tree:    r.Tree,
		Logger:  r.logger,
	}
}

// withReflog opens the reflog for the duration of fn. The database is not
// held open between operations so that the CLI and the daemon can share a
// repository.
func (r *Repository) withReflog(fn func(*reflog.Log) error) error {
	l, err := reflog.Open(filepath.Join(r.ControlDir, logsDir), r.logger)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		l.Close()
		return err
	}
	return l.Close()
}

func (r *Repository) appendReflog(e reflog.Entry) error {
	err := r.withReflog(func(l *reflog.Log) error {
		_, err := l.Append(e)
		return err
	})
	if err != nil {
		r.logger.Warn("reflog append failed",
			zap.String("ref", e.Ref),
			zap.String("new", e.New),
			zap.Error(err))
		return fmt.Errorf("ref %s updated but reflog not written: %w", e.Ref, err)
	}
	return nil
}
