package middleware

import (
	"net/http"
	"time"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/utils"
	"github.com/google/uuid"
)

const (
	SessionCookie = "session_id"
	SessionHeader = "X-Session-ID"

	maxSessionIDLen = 128
	sessionMaxAge   = 365 * 24 * time.Hour
)

// SessionMiddleware puts an opaque session id into the request context. The
// id comes from the session_id cookie, then the X-Session-ID header. When
// neither is present a new one is minted and set as a cookie.
func SessionMiddleware(secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(SessionCookie); err == nil {
				sessionID = cookie.Value
			}
			if sessionID == "" {
				sessionID = r.Header.Get(SessionHeader)
			}

			if len(sessionID) > maxSessionIDLen {
				http.Error(w, "Invalid session id", http.StatusBadRequest)
				return
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(sessionMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(utils.WithSessionID(r.Context(), sessionID)))
		})
	}
}

// CORSMiddleware echoes the Origin back only when it is on the allow-list.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin") // important for caches
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, "+SessionHeader)
			}

			w.Header().Set("Access-Control-Expose-Headers", "X-Data-Status, X-Request-Id")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
