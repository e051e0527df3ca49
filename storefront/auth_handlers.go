package storefront

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmcleod/storefront/account"
	"github.com/jmcleod/storefront/web"
)

// LoginPage handles GET /login.
func (a *Storefront) LoginPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, web.PageLogin, "Log in", nil)
}

// Login handles POST /login.
func (a *Storefront) Login(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	username := r.PostForm.Get(fieldUsername)
	password := r.PostForm.Get(fieldPassword)
	clientIP := a.clientIP(r)

	// Check rate limits before any expensive work: global, IP, username.
	if blocked, retryAfter := a.limiters.loginGlobal.check(); blocked {
		a.audit.logFailure(AuditLoginRateLimited, r, "global rate limited")
		a.renderRateLimited(w, r, web.PageLogin, retryAfter)
		return
	}
	if blocked, retryAfter := a.limiters.loginIP.check(clientIP); blocked {
		a.audit.logFailure(AuditLoginRateLimited, r, "ip rate limited",
			slog.String("client_ip", clientIP))
		a.renderRateLimited(w, r, web.PageLogin, retryAfter)
		return
	}
	if blocked, retryAfter := a.limiters.loginUser.check(username); blocked {
		a.audit.logFailure(AuditLoginRateLimited, r, "user rate limited",
			slog.String("username", username))
		a.renderRateLimited(w, r, web.PageLogin, retryAfter)
		return
	}

	if username == "" || password == "" || !a.accounts.Verify(username, password) {
		a.limiters.loginGlobal.record()
		a.limiters.loginIP.record(clientIP)
		a.limiters.loginUser.record(username)
		a.audit.logFailure(AuditLoginFailure, r, "invalid credentials",
			slog.String("username", username))
		a.notify(r, "Invalid username or password.")
		a.render(w, r, http.StatusUnauthorized, web.PageLogin, "Log in", nil)
		return
	}

	a.limiters.loginUser.reset(username)
	a.limiters.loginIP.reset(clientIP)

	// New token on privilege change; cart and notices carry over.
	a.rotateSession(r)
	s := sessionFromRequest(r)
	s.Username = username

	a.audit.logEvent(AuditLoginSuccess, r, username)
	a.notify(r, fmt.Sprintf("Welcome, %s!", username))
	a.redirect(w, r, "/")
}

// Logout handles GET /logout.
func (a *Storefront) Logout(w http.ResponseWriter, r *http.Request) {
	username := sessionFromRequest(r).Username
	if a.discardCartOnLogout {
		a.resetSession(r)
	} else {
		sessionFromRequest(r).Username = ""
	}
	a.audit.logEvent(AuditLogout, r, username)
	a.notify(r, "Logged out.")
	a.redirect(w, r, "/login")
}

// ForgotPassword handles GET /forgot-password.
func (a *Storefront) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, web.PageForgotPassword, "Forgot password", nil)
}

// RegisterPage handles GET /register.
func (a *Storefront) RegisterPage(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, web.PageRegister, "Register", nil)
}

// Register handles POST /register.
func (a *Storefront) Register(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	clientIP := a.clientIP(r)
	if blocked, retryAfter := a.limiters.registerGlobal.check(); blocked {
		a.audit.logFailure(AuditRegisterRateLimited, r, "global rate limited")
		a.renderRateLimited(w, r, web.PageRegister, retryAfter)
		return
	}
	if blocked, retryAfter := a.limiters.registerIP.check(clientIP); blocked {
		a.audit.logFailure(AuditRegisterRateLimited, r, "ip rate limited",
			slog.String("client_ip", clientIP))
		a.renderRateLimited(w, r, web.PageRegister, retryAfter)
		return
	}

	username := r.PostForm.Get(fieldUsername)
	password := r.PostForm.Get(fieldPassword)
	if username == "" || password == "" {
		a.notify(r, "Username and password required.")
		a.redirect(w, r, "/register")
		return
	}

	// Count the request before the KDF runs.
	a.limiters.registerIP.record(clientIP)
	a.limiters.registerGlobal.record()

	err := a.accounts.Register(username, password)
	switch {
	case err == nil:
	case errors.Is(err, account.ErrAlreadyExists):
		a.audit.logFailure(AuditRegisterFailure, r, "username taken",
			slog.String("username", username))
		a.notify(r, "Username already exists.")
		a.redirect(w, r, "/register")
		return
	case errors.Is(err, account.ErrInvalidInput):
		a.notify(r, "Username and password required.")
		a.redirect(w, r, "/register")
		return
	default:
		writeInternalError(w, r, a.logger, "failed to register account", err)
		return
	}

	a.audit.logEvent(AuditRegister, r, username)
	a.notify(r, "Registration successful. Please login.")
	a.redirect(w, r, "/login")
}

// renderRateLimited redisplays page with a 429 and a Retry-After header.
func (a *Storefront) renderRateLimited(w http.ResponseWriter, r *http.Request, page string, retryAfter time.Duration) {
	w.Header().Set("Retry-After", retryAfterString(retryAfter))
	a.notify(r, "Too many attempts; please try again later.")
	a.render(w, r, http.StatusTooManyRequests, page, "Try again later", nil)
}
