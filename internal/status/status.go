package status

import (
	"sort"

	"myvcs/internal/snapshot"
)

// Report classifies working tree paths against the index and the HEAD
// snapshot. All lists are sorted.
type Report struct {
	// Modified holds HEAD paths whose working tree content differs from HEAD.
	Modified []string `json:"modified"`
	// Added holds staged paths that HEAD does not track.
	Added []string `json:"added"`
	// Untracked holds working tree paths neither staged nor in HEAD.
	Untracked []string `json:"untracked"`
	// Deleted holds HEAD paths missing from the working tree.
	Deleted []string `json:"deleted"`
}

// Clean reports whether nothing differs.
func (r *Report) Clean() bool {
	return len(r.Modified) == 0 && len(r.Added) == 0 && len(r.Untracked) == 0 && len(r.Deleted) == 0
}

// Compute compares the working tree hashes, the staged entries and the HEAD
// snapshot. Modified is measured against HEAD, never against the index:
// staging an edited file does not take it out of Modified.
func Compute(work, staged map[string]string, head snapshot.Snapshot) *Report {
	r := &Report{
		Modified:  []string{},
		Added:     []string{},
		Untracked: []string{},
		Deleted:   []string{},
	}

	for p, headHash := range head {
		workHash, onDisk := work[p]
		switch {
		case !onDisk:
			r.Deleted = append(r.Deleted, p)
		case workHash != headHash:
			r.Modified = append(r.Modified, p)
		}
	}

	for p := range staged {
		if _, tracked := head[p]; !tracked {
			r.Added = append(r.Added, p)
		}
	}

	for p := range work {
		_, inIndex := staged[p]
		_, inHead := head[p]
		if !inIndex && !inHead {
			r.Untracked = append(r.Untracked, p)
		}
	}

	sort.Strings(r.Modified)
	sort.Strings(r.Added)
	sort.Strings(r.Untracked)
	sort.Strings(r.Deleted)
	return r
}
