// Package types holds the JSON bodies exchanged between the daemon and its
// client.
package types

import (
	"strings"
	"time"

	vcserr "myvcs/internal/errors"
)

type AddRequest struct {
	Path string `json:"path"`
}

func (r *AddRequest) Validate() error {
	if strings.TrimSpace(r.Path) == "" {
		return vcserr.ValidationError("path is required", nil)
	}
	return nil
}

type Entry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

type AddResponse struct {
	Staged []Entry `json:"staged"`
}

type CommitRequest struct {
	Message string `json:"message"`
}

type CommitResponse struct {
	Hash     string `json:"hash"`
	Previous string `json:"previous,omitempty"`
	Ref      string `json:"ref"`
	Files    int    `json:"files"`
}

type BranchRequest struct {
	Name string `json:"name"`
}

func (r *BranchRequest) Validate() error {
	if r.Name == "" {
		return vcserr.ValidationError("name is required", nil)
	}
	return nil
}

type BranchResponse struct {
	Name   string `json:"name"`
	Commit string `json:"commit"`
}

type BranchesResponse struct {
	Current  string   `json:"current,omitempty"`
	Branches []string `json:"branches"`
}

// CheckoutRequest names either a branch to switch to or a commit to detach
// at.
type CheckoutRequest struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
}

func (r *CheckoutRequest) Validate() error {
	if (r.Branch == "") == (r.Commit == "") {
		return vcserr.ValidationError("exactly one of branch or commit is required", nil)
	}
	return nil
}

type CheckoutResponse struct {
	Branch  string   `json:"branch,omitempty"`
	From    string   `json:"from,omitempty"`
	To      string   `json:"to"`
	Removed []string `json:"removed"`
	Written []string `json:"written"`
}

type HeadResponse struct {
	Kind   string `json:"kind"` // symbolic or detached
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
	Unborn bool   `json:"unborn"`
}

type StatusResponse struct {
	Modified  []string `json:"modified"`
	Added     []string `json:"added"`
	Untracked []string `json:"untracked"`
	Deleted   []string `json:"deleted"`
}

type LogEntry struct {
	ID      string    `json:"id"`
	Ref     string    `json:"ref"`
	Old     string    `json:"old,omitempty"`
	New     string    `json:"new"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type LogResponse struct {
	Entries []LogEntry `json:"entries"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
