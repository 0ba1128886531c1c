package helpers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Validator is implemented by request DTOs that check their own fields.
// Validate returns the list of problems; empty means valid.
type Validator interface {
	Validate() []string
}

// DecodeAndValidate decodes the body into dest, rejecting unknown fields, and
// runs Validate when dest implements Validator. On failure it writes a 400
// envelope and returns false; callers return immediately.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeInvalidArgument, "invalid request body: "+err.Error())
		return false
	}
	if v, ok := dest.(Validator); ok {
		if errs := v.Validate(); len(errs) > 0 {
			WriteJSONError(w, http.StatusBadRequest, ErrCodeInvalidArgument, strings.Join(errs, "; "))
			return false
		}
	}
	return true
}
