package middleware

import (
	"net/http"
	"strings"

	"polycycle/internal/auth"
)

// Sessions resolves the session cookie or bearer token into a request-scoped
// session. Anonymous requests pass through with no session attached.
func Sessions(svc auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie("session"); err == nil {
					token = c.Value
				}
			}
			if token != "" {
				if session, err := svc.ResolveToken(r.Context(), token); err == nil {
					r = r.WithContext(auth.WithSession(r.Context(), session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects anonymous requests. The storefront client signs the
// user in and retries the original call on 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.SessionFrom(r.Context()) == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose session does not carry the admin role.
// This is the server-side guard; client-side route hiding is cosmetic.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := auth.SessionFrom(r.Context())
		if session == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if !session.IsAdmin() {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
