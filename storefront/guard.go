package storefront

import (
	"log/slog"
	"net/http"
)

// gateResult is the outcome of an access check. A denied result names the
// redirect target and the notice to queue for the user.
type gateResult struct {
	allowed  bool
	redirect string
	notice   string
	event    AuditEvent
}

func allow() gateResult {
	return gateResult{allowed: true}
}

// gateCheck inspects the caller's session and decides whether the request
// may proceed.
type gateCheck func(s *Session) gateResult

// requireSession admits any logged-in user.
func requireSession(s *Session) gateResult {
	if s.LoggedIn() {
		return allow()
	}
	return gateResult{redirect: "/login", notice: "Please log in to continue."}
}

// requireAdmin admits only the configured admin username. This is a single
// hard-coded privileged account, not a role system.
func (a *Storefront) requireAdmin(s *Session) gateResult {
	if s.Username == a.adminUsername {
		return allow()
	}
	return gateResult{redirect: "/", notice: "Access denied.", event: AuditAccessDenied}
}

// guard composes checks into middleware. The first denied check
// short-circuits: its notice is queued and the client is redirected.
func (a *Storefront) guard(checks ...gateCheck) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromRequest(r)
			for _, check := range checks {
				res := check(session)
				if res.allowed {
					continue
				}
				if res.event != "" {
					a.audit.logFailure(res.event, r, res.notice,
						slog.String("username", session.Username),
						slog.String("path", r.URL.Path))
				}
				a.notify(r, res.notice)
				a.redirect(w, r, res.redirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
