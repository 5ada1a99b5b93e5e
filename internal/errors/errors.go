package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeNothingToCommit   ErrorType = "NOTHING_TO_COMMIT"
	ErrorTypeInvalidRepository ErrorType = "INVALID_REPOSITORY"
	ErrorTypeBranchNotFound    ErrorType = "BRANCH_NOT_FOUND"
	ErrorTypeNoCommitYet       ErrorType = "NO_COMMIT_YET"
	ErrorTypeValidation        ErrorType = "VALIDATION"
	ErrorTypeInternal          ErrorType = "INTERNAL"
)

// Error is the failure value returned by repository operations. Code is the
// HTTP status the daemon answers with.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same type, so callers can compare against the
// values returned by the constructors below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func NothingToCommit() *Error {
	return &Error{
		Type:    ErrorTypeNothingToCommit,
		Message: "nothing to commit: staging area is empty",
		Code:    http.StatusConflict,
	}
}

func InvalidRepository(path string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidRepository,
		Message: fmt.Sprintf("not a repository (or any parent up to /): %s", path),
		Code:    http.StatusBadRequest,
		Details: path,
	}
}

func BranchNotFound(name string) *Error {
	return &Error{
		Type:    ErrorTypeBranchNotFound,
		Message: fmt.Sprintf("branch %q does not exist", name),
		Code:    http.StatusNotFound,
		Details: name,
	}
}

func NoCommitYet() *Error {
	return &Error{
		Type:    ErrorTypeNoCommitYet,
		Message: "no commit yet: create a commit before branching",
		Code:    http.StatusConflict,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func Internal(message string) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
	}
}

// Is reports whether err, or anything it wraps, is an *Error of type t.
func Is(err error, t ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Type == t
}

// As unwraps err to the first *Error in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}
