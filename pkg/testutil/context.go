package testutil

import (
	"net/http"

	id "clarence/pkg/domain"
	"clarence/pkg/requestcontext"
)

// WithUserID simulates what RequireAuth does for an authenticated request.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithClientIP sets the caller address the way the request middleware does.
func WithClientIP(req *http.Request, ip string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, req.UserAgent())
	return req.WithContext(ctx)
}
