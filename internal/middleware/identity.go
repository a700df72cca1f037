package middleware

import (
	"net/http"

	"ordergen/internal/audit"
)

// Identity extracts the session identity forwarded by the authenticating
// front proxy and attaches it to the request context for audit records.
// Anonymous requests pass through without an identity.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := audit.Identity{
			UserID:   r.Header.Get("X-User-ID"),
			Username: r.Header.Get("X-User-Name"),
			Email:    r.Header.Get("X-User-Email"),
		}
		if id.UserID == "" && id.Username == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(audit.WithIdentity(r.Context(), id)))
	})
}
