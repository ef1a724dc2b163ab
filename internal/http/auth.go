package http

import (
	"net/http"
	"strings"
)

// extractBearerToken pulls the token out of "Authorization: Bearer <token>",
// falling back to the raw header value for clients that skip the scheme.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(auth)
}
