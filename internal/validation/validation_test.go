package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"myvcs/internal/errors"
	"myvcs/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"branch":"feature"}`},
		{name: "malformed", body: `{"branch":`, wantErr: true},
		{name: "neither target", body: `{}`, wantErr: true},
		{name: "both targets", body: `{"branch":"a","commit":"b"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/checkout", strings.NewReader(tt.body))
			var got types.CheckoutRequest
			err := DecodeRequest(req, &got)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "feature", got.Branch)
		})
	}
}

func TestDecodeRequestWithoutValidator(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/commit", strings.NewReader(`{"message":""}`))
	var got types.CommitRequest
	assert.NoError(t, DecodeRequest(req, &got))
}
