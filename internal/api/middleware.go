package api

import (
	"context"
	"net/http"

	"aniserve/internal/auth"
)

// SessionCookieName carries the signed session token.
const SessionCookieName = "aniserve_session"

type contextKey string

const sessionKey contextKey = "session"

type SessionMiddleware struct {
	sessions *auth.SessionManager
	secure   bool
}

func NewSessionMiddleware(sessions *auth.SessionManager, secure bool) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, secure: secure}
}

// RequireSession rejects requests without a valid session cookie. A
// validated session has already had its expiry extended, so the cookie is
// reissued to keep the client's Max-Age in step with the sliding window.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			unauthorized(w, "authentication required")
			return
		}

		session := m.sessions.Validate(cookie.Value)
		if session == nil {
			clearSessionCookie(w, m.secure)
			unauthorized(w, "session is invalid or expired")
			return
		}

		setSessionCookie(w, cookie.Value, m.sessions.TTL(), m.secure)
		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromContext returns the validated session placed by
// RequireSession, or nil outside it.
func sessionFromContext(r *http.Request) *auth.Session {
	session, _ := r.Context().Value(sessionKey).(*auth.Session)
	return session
}
