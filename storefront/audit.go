package storefront

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security- or business-relevant action
// being logged.
type AuditEvent string

const (
	AuditLoginSuccess        AuditEvent = "login_success"
	AuditLoginFailure        AuditEvent = "login_failure"
	AuditLoginRateLimited    AuditEvent = "login_rate_limited"
	AuditRegister            AuditEvent = "register"
	AuditRegisterFailure     AuditEvent = "register_failure"
	AuditRegisterRateLimited AuditEvent = "register_rate_limited"
	AuditLogout              AuditEvent = "logout"
	AuditAccessDenied        AuditEvent = "access_denied"
	AuditCSRFRejected        AuditEvent = "csrf_rejected"
	AuditProductAdded        AuditEvent = "product_added"
	AuditOrderPlaced         AuditEvent = "order_placed"
)

// auditLogger wraps slog.Logger for structured audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logEvent is a convenience for events attributed to a user.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, username string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("username", username),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a rejected request with the reason.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
