package storefront

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jmcleod/storefront/internal/uuid"
)

type contextKey int

const sessionKey contextKey = iota

const sessionCookieName = "storefront_session"

// sessionState is the per-request view of the caller's session. A fresh
// state has no token yet; one is issued the first time it is saved.
type sessionState struct {
	token   string
	fresh   bool
	session Session
}

// SessionMiddleware loads the session referenced by the session cookie, or
// starts an anonymous one, and stores it on the request context. Handlers
// persist changes through saveSession, which render and redirect call.
func (a *Storefront) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &sessionState{fresh: true, session: newSession()}
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			if session, ok := a.sessions.Get(cookie.Value); ok {
				if session.Cart == nil {
					session.Cart = newSession().Cart
				}
				st = &sessionState{token: cookie.Value, session: session}
			}
		}
		ctx := context.WithValue(r.Context(), sessionKey, st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func stateFromContext(ctx context.Context) *sessionState {
	st, _ := ctx.Value(sessionKey).(*sessionState)
	return st
}

// sessionFromRequest returns the mutable session for r. Requests that did
// not pass through SessionMiddleware get a throwaway anonymous session.
func sessionFromRequest(r *http.Request) *Session {
	if st := stateFromContext(r.Context()); st != nil {
		return &st.session
	}
	s := newSession()
	return &s
}

// saveSession persists the request's session, issuing a token and cookies
// first if the session is new. Anonymous sessions live for the anonymous
// TTL past their last request; a session gets the full TTL once a user is
// attached, which happens through rotateSession on login.
func (a *Storefront) saveSession(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	if st == nil {
		return
	}
	now := time.Now()
	issued := st.fresh
	if issued {
		st.token = uuid.New()
		st.fresh = false
		st.session.CSRFToken = uuid.New()
	}
	switch {
	case !st.session.LoggedIn():
		st.session.ExpiresAt = now.Add(a.anonymousSessionTTL)
	case issued:
		st.session.ExpiresAt = now.Add(a.sessionTTL)
	}
	if issued {
		// Anonymous cookies end with the browser session.
		var cookieExpiry time.Time
		if st.session.LoggedIn() {
			cookieExpiry = st.session.ExpiresAt
		}
		writeSessionCookie(w, r, st.token, cookieExpiry)
		writeCSRFCookie(w, r, st.session.CSRFToken, cookieExpiry)
	}
	st.session.LastAccessedAt = now
	a.sessions.Put(st.token, st.session)
}

// rotateSession discards the current token and reissues the session data
// under a new one on the next save. Used on login to prevent fixation.
func (a *Storefront) rotateSession(r *http.Request) {
	st := stateFromContext(r.Context())
	if st == nil {
		return
	}
	if !st.fresh {
		a.sessions.Delete(st.token)
	}
	st.token = ""
	st.fresh = true
}

// resetSession destroys the current session and starts an empty anonymous
// one in its place.
func (a *Storefront) resetSession(r *http.Request) {
	st := stateFromContext(r.Context())
	if st == nil {
		return
	}
	a.rotateSession(r)
	st.session = newSession()
}

func writeSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
