package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// AuthCookie is set by a successful login.
const AuthCookie = "authenticated"

// sessionToken is the cookie value issued at login. It changes on every
// restart, which logs everybody out.
var sessionToken = uuid.NewString()

// SessionToken returns the value a logged-in browser carries in AuthCookie.
func SessionToken() string {
	return sessionToken
}

// ValidSession reports whether value is the current session token.
func ValidSession(value string) bool {
	return subtle.ConstantTimeCompare([]byte(value), []byte(sessionToken)) == 1
}

// publicPaths are reachable without logging in: the kiosk screen and its
// websocket, camera uploads, the login page and static assets.
var publicPaths = []string{"/", "/kiosk", "/login", "/api/kiosk", "/api/camera/upload", "/auth/login"}

var publicPrefixes = []string{"/static/", "/css/", "/js/"}

func isPublic(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// AuthMiddleware guards the operator pages (snapshots, logs) behind the
// login cookie.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AuthCookie)
		if err != nil || !ValidSession(cookie.Value) {
			// API callers get 401, browsers are sent to the login page
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
