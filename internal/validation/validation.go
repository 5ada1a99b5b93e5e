package validation

import (
	"encoding/json"
	"net/http"

	"myvcs/internal/errors"
)

type Validator interface {
	Validate() error
}

// DecodeRequest decodes the JSON body of r into v and, when v implements
// Validator, validates it. Failures are validation errors.
func DecodeRequest(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.ValidationError("invalid request body", err.Error())
	}

	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return err
		}
	}
	return nil
}
