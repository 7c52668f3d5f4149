package testutil

import (
	"net/http"
	"time"

	id "cohort/pkg/domain"
	"cohort/pkg/requestcontext"
)

// WithUserID injects an authenticated user id into the request context,
// simulating what the auth middleware does for authenticated requests.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithTime pins the request clock, the way the request-time middleware does.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
