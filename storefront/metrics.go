package storefront

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertLoginFailureSpike AlertType = "login_failure_spike"
	AlertAccessDeniedSpike AlertType = "access_denied_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// slidingCounter counts events inside a trailing time window.
type slidingCounter struct {
	times     []time.Time
	window    time.Duration
	threshold int
}

// add records an event at now and reports the in-window count and whether
// the threshold was reached. Reaching the threshold resets the window.
func (c *slidingCounter) add(now time.Time) (int, bool) {
	c.times = append(c.times, now)
	c.times = trimWindow(c.times, now, c.window)
	n := len(c.times)
	if n >= c.threshold {
		c.times = c.times[:0]
		return n, true
	}
	return n, false
}

// metricsCollector tracks sliding window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	loginFailures slidingCounter
	accessDenied  slidingCounter

	alertFn AlertFunc
}

const (
	defaultLoginFailureWindow    = 1 * time.Minute
	defaultLoginFailureThreshold = 50
	defaultAccessDeniedWindow    = 5 * time.Minute
	defaultAccessDeniedThreshold = 20
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		loginFailures: slidingCounter{window: defaultLoginFailureWindow, threshold: defaultLoginFailureThreshold},
		accessDenied:  slidingCounter{window: defaultAccessDeniedWindow, threshold: defaultAccessDeniedThreshold},
		alertFn:       alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditLoginFailure:
		m.record(&m.loginFailures, AlertLoginFailureSpike, "login failure rate exceeds threshold")
	case AuditAccessDenied:
		m.record(&m.accessDenied, AlertAccessDeniedSpike, "admin access denials exceed threshold")
	}
}

func (m *metricsCollector) record(c *slidingCounter, typ AlertType, msg string) {
	m.mu.Lock()
	now := time.Now()
	count, fire := c.add(now)
	threshold := c.threshold
	m.mu.Unlock()

	if fire {
		m.alertFn(AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     count,
			Threshold: threshold,
			Timestamp: now,
		})
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
