package testutil

import (
	"net/http"
	"time"

	id "civitas/pkg/domain"
	"civitas/pkg/requestcontext"
)

// WithCitizenID adds an authenticated citizen to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the citizenID is not a valid UUID, it will not be added to the context.
func WithCitizenID(req *http.Request, citizenID string) *http.Request {
	if parsed, err := id.ParseCitizenID(citizenID); err == nil {
		return req.WithContext(requestcontext.WithCitizenID(req.Context(), parsed))
	}
	return req
}

// WithRequestTime pins the request timestamp, simulating the client metadata
// middleware.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
