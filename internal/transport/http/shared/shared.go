// Package shared holds the JSON helpers every handler uses: response
// encoding, the error envelope, and URL parameter parsing.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "cohort/pkg/domain"
	dErrors "cohort/pkg/domain-errors"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	} `json:"error"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders a domain error as the JSON error envelope. Non-domain
// errors map to 500 internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	var body ErrorBody
	body.Error.Code = string(code)
	body.Error.Fields = dErrors.FieldsOf(err)
	var de *dErrors.Error
	if errors.As(err, &de) {
		body.Error.Message = de.Message
	} else {
		body.Error.Message = "internal error"
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// PathID parses the named chi URL parameter as a positive integer id.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	v, ok := id.ParseID(raw)
	if !ok {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a positive integer")
	}
	return v, nil
}
