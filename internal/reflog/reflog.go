// Package reflog records every movement of a branch ref or HEAD. Commits
// carry no parent, so the reflog is the only record of history.
package reflog

import (
	"encoding/json"
	"fmt"
	"time"

	"myvcs/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	prefix       = "reflog"
	seqKey       = "seq/reflog"
	seqBandwidth = 64
)

// Entry is one recorded ref movement. Old is empty when the ref was created.
type Entry struct {
	ID      string    `json:"id"`
	Ref     string    `json:"ref"`
	Old     string    `json:"old,omitempty"`
	New     string    `json:"new"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

func (e *Entry) GetID() string { return e.ID }

// Log is a badger-backed append-only reflog.
type Log struct {
	db     *badger.DB
	owned  bool
	store  *storage.BadgerStore
	seq    *badger.Sequence
	logger *zap.Logger
}

// Open opens the reflog database in dir.
func Open(dir string, logger *zap.Logger) (*Log, error) {
	db, err := storage.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open reflog: %w", err)
	}
	l, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	l.owned = true
	return l, nil
}

// New builds a reflog on an already open database. Closing the Log does not
// close db.
func New(db *badger.DB, logger *zap.Logger) (*Log, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	seq, err := db.GetSequence([]byte(seqKey), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("open reflog sequence: %w", err)
	}
	return &Log{
		db:     db,
		store:  storage.NewBadgerStore(db, prefix),
		seq:    seq,
		logger: logger,
	}, nil
}

// Append records e and returns it with its ID and, if unset, Time filled in.
func (l *Log) Append(e Entry) (*Entry, error) {
	n, err := l.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("append reflog: %w", err)
	}
	e.ID = fmt.Sprintf("%020d", n)
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if err := l.store.Create(&e); err != nil {
		return nil, fmt.Errorf("append reflog: %w", err)
	}

	l.logger.Debug("reflog entry",
		zap.String("ref", e.Ref),
		zap.String("old", e.Old),
		zap.String("new", e.New))
	return &e, nil
}

// Get returns the entry recorded under id.
func (l *Log) Get(id string) (*Entry, error) {
	var e Entry
	if err := l.store.Get(id, &e); err != nil {
		return nil, fmt.Errorf("read reflog entry: %w", err)
	}
	return &e, nil
}

// List returns entries newest first. An empty ref matches every ref; a
// non-positive limit returns everything.
func (l *Log) List(ref string, limit int) ([]Entry, error) {
	entries := []Entry{}
	err := l.store.Walk(true, func(_ string, val []byte) error {
		var e Entry
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if ref != "" && e.Ref != ref {
			return nil
		}
		entries = append(entries, e)
		if limit > 0 && len(entries) >= limit {
			return storage.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list reflog: %w", err)
	}
	return entries, nil
}

// Close releases the sequence lease and, when Open created the database,
// closes it.
func (l *Log) Close() error {
	err := l.seq.Release()
	if l.owned {
		if cerr := l.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
