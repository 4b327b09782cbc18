package middleware

import (
	"net/http"
	"strings"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/store"
)

const sessionCookieName = "laneway_session"

// RequireAuth resolves the caller from either an Authorization bearer
// token (the mobile client) or the session cookie, and populates the auth
// context. Requests with neither get a 401.
func RequireAuth(sessionStore *store.SessionStore, issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				userID, err := issuer.Verify(strings.TrimPrefix(header, "Bearer "))
				if err != nil {
					unauthorized(w)
					return
				}
				ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}
			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: sess.UserID, SessionID: sess.ID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"authentication required"}`))
}
