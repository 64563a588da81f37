package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/famwell/internal/auth"
	"github.com/dukerupert/famwell/internal/store"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "famwell_session"

// RequireAuth validates the session cookie and populates AuthContext.
// API requests without a valid session get a 401 JSON body; page
// requests are redirected to /login.
func RequireAuth(sessionStore *store.SessionStore, userStore *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, r)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w, r)
				return
			}

			user, err := userStore.GetByID(sess.UserID)
			if err != nil || user == nil {
				unauthorized(w, r)
				return
			}

			ac := auth.AuthContext{
				UserID:    user.ID,
				SessionID: sess.ID,
			}
			if user.MemberID != nil {
				ac.MemberID = *user.MemberID
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireMember rejects signed-in users that are not linked to a roster
// member. Must run after RequireAuth.
func RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.MemberID(r.Context()) == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "account is not linked to a family member"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.HasPrefix(r.URL.Path, "/auth/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
