package api

import (
	"context"
	"net/http"
)

// TokenHeader carries the session token on every authenticated request.
const TokenHeader = "X-Token"

type contextKey string

const userIDContextKey = contextKey("userID")

// AuthMiddleware resolves the X-Token header against the session store and
// injects the user id into the request context. A missing or expired session
// is 401; a session-store outage is 500, never misreported as unauthorized.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(TokenHeader)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userID, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			s.log.Error(r.Context(), "session lookup failed", "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the authenticated user id, or 0 outside an
// authenticated request.
func UserIDFromContext(ctx context.Context) int64 {
	if userID, ok := ctx.Value(userIDContextKey).(int64); ok {
		return userID
	}
	return 0
}
