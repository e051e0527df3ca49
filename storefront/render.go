package storefront

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jmcleod/storefront/web"
)

// notify queues a one-time notice shown on the next rendered page.
func (a *Storefront) notify(r *http.Request, msg string) {
	if msg == "" {
		return
	}
	s := sessionFromRequest(r)
	s.Notices = append(s.Notices, msg)
}

// redirect saves the session and sends a 303 to target.
func (a *Storefront) redirect(w http.ResponseWriter, r *http.Request, target string) {
	a.saveSession(w, r)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// render drains queued notices into the page, saves the session and
// writes the page with the given status.
func (a *Storefront) render(w http.ResponseWriter, r *http.Request, status int, page, title string, content any) {
	// A fresh session gets its CSRF token on save, so save before building
	// the page.
	notices := a.takeNotices(r)
	a.saveSession(w, r)

	s := sessionFromRequest(r)
	data := web.PageData{
		Title:     title,
		User:      s.Username,
		IsAdmin:   s.LoggedIn() && s.Username == a.adminUsername,
		Notices:   notices,
		CSRFToken: s.CSRFToken,
		Content:   content,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	rw := &deferredWriter{ResponseWriter: w, status: status}
	if err := a.views.Render(rw, page, data); err != nil {
		writeInternalError(w, r, a.logger, "failed to render page", err)
		return
	}
}

func (a *Storefront) takeNotices(r *http.Request) []string {
	s := sessionFromRequest(r)
	notices := s.Notices
	s.Notices = nil
	return notices
}

// deferredWriter delays WriteHeader until the first body write so that a
// render error can still produce a 500.
type deferredWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (d *deferredWriter) Write(p []byte) (int, error) {
	if !d.written {
		d.ResponseWriter.WriteHeader(d.status)
		d.written = true
	}
	return d.ResponseWriter.Write(p)
}

// refererTarget returns the path of a same-host Referer, or fallback.
func refererTarget(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) || u.Path == "" || u.Path[0] != '/' {
		return fallback
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}

func writeInternalError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(r.Context(), msg,
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
