package snapshot

import (
	"fmt"
)

// ObjectReader is the part of the content store snapshots are read through.
type ObjectReader interface {
	Get(hash string) ([]byte, error)
}

// ReadCommit loads and decodes the commit stored under hash.
func ReadCommit(objects ObjectReader, hash string) (*Commit, error) {
	data, err := objects.Get(hash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return c, nil
}

// Read returns the snapshot recorded by a commit. An empty hash stands for
// "no commit" and yields an empty snapshot.
func Read(objects ObjectReader, hash string) (Snapshot, error) {
	if hash == "" {
		return Snapshot{}, nil
	}
	c, err := ReadCommit(objects, hash)
	if err != nil {
		return nil, err
	}
	return c.Snapshot(), nil
}
