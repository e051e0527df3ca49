package storefront

import (
	"crypto/subtle"
	"net/http"
	"time"
)

const (
	csrfCookieName = "storefront_csrf"
	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "csrf_token"
)

// CSRFMiddleware rejects mutating requests whose form field or header
// token does not match the token bound to the caller's session. Safe
// methods (GET, HEAD, OPTIONS) are exempt. It must run after
// SessionMiddleware.
func (a *Storefront) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		st := stateFromContext(r.Context())
		if st == nil || st.fresh || st.session.CSRFToken == "" {
			a.audit.logFailure(AuditCSRFRejected, r, "no session")
			http.Error(w, "missing form token; reload the page and try again", http.StatusForbidden)
			return
		}

		submitted := r.Header.Get(csrfHeaderName)
		if submitted == "" {
			r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
			submitted = r.PostFormValue(csrfFormField)
		}
		if subtle.ConstantTimeCompare([]byte(submitted), []byte(st.session.CSRFToken)) != 1 {
			a.audit.logFailure(AuditCSRFRejected, r, "token mismatch")
			http.Error(w, "invalid form token; reload the page and try again", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeCSRFCookie mirrors the session's CSRF token in a readable cookie so
// that scripted clients can echo it in the X-CSRF-Token header.
func writeCSRFCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})
}
