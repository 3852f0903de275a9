// Package shared holds the JSON helpers every feature handler uses so error
// envelopes stay identical across endpoints.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "civitas/pkg/domain-errors"
)

// ErrorResponse is the uniform JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError translates a domain error into the JSON error envelope. Errors
// without a domain code collapse to 500 with a generic message so internals
// never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := "internal server error"

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) && code != dErrors.CodeInternal {
		message = domainErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   string(code),
		Message: message,
	})
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON decodes a request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
