package auth

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/greenbasket/greenbasket/internal/httputil"
)

// Middleware resolves the caller's identity from the Authorization header
// and places it on the request context. Requests without a valid token are
// rejected before any handler runs.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := FromAuthorizationHeader(secret, r.Header.Get("Authorization"))
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected unauthenticated request")
				httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}

// RequireAdmin rejects non-admin callers. It must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			httputil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !id.IsAdmin() {
			httputil.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
