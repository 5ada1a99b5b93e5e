package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("switch branch: %w", BranchNotFound("feature"))

	assert.True(t, Is(err, ErrorTypeBranchNotFound))
	assert.False(t, Is(err, ErrorTypeNotFound))
	assert.False(t, Is(fmt.Errorf("plain"), ErrorTypeNotFound))

	e, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, e.Code)
}

func TestCodes(t *testing.T) {
	tests := []struct {
		err  *Error
		code int
	}{
		{NotFound("x"), http.StatusNotFound},
		{BranchNotFound("x"), http.StatusNotFound},
		{NothingToCommit(), http.StatusConflict},
		{NoCommitYet(), http.StatusConflict},
		{InvalidRepository("/tmp"), http.StatusBadRequest},
		{ValidationError("x", nil), http.StatusBadRequest},
		{Internal("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
