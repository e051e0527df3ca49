package storefront

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// backoffPolicy configures a keyedLimiter.
type backoffPolicy struct {
	// maxAttempts is the number of counted attempts before lockout begins.
	maxAttempts int
	// baseLockout is the initial lockout once maxAttempts is reached.
	baseLockout time.Duration
	// maxLockout caps the exponential backoff.
	maxLockout time.Duration
	// expiry is how long after the last attempt a record is forgotten.
	expiry time.Duration
}

var (
	// Failed logins per username.
	loginUserPolicy = backoffPolicy{maxAttempts: 5, baseLockout: 1 * time.Minute, maxLockout: 15 * time.Minute, expiry: 1 * time.Hour}
	// Failed logins per source IP.
	loginIPPolicy = backoffPolicy{maxAttempts: 20, baseLockout: 1 * time.Minute, maxLockout: 30 * time.Minute, expiry: 1 * time.Hour}
	// Registration requests per source IP; every request counts because
	// each one runs the password KDF.
	registerIPPolicy = backoffPolicy{maxAttempts: 5, baseLockout: 5 * time.Minute, maxLockout: 1 * time.Hour, expiry: 1 * time.Hour}
)

type attemptRecord struct {
	count       int
	lastAttempt time.Time
	lockedUntil time.Time
}

// keyedLimiter tracks attempts per key (username or IP) and enforces
// exponential backoff once the policy's threshold is crossed.
type keyedLimiter struct {
	mu       sync.Mutex
	policy   backoffPolicy
	attempts map[string]*attemptRecord
}

func newKeyedLimiter(policy backoffPolicy) *keyedLimiter {
	return &keyedLimiter{
		policy:   policy,
		attempts: make(map[string]*attemptRecord),
	}
}

// check returns true if key is currently locked out, along with how long
// the caller should wait.
func (rl *keyedLimiter) check(key string) (blocked bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[key]
	if !ok {
		return false, 0
	}
	if time.Since(rec.lastAttempt) > rl.policy.expiry {
		delete(rl.attempts, key)
		return false, 0
	}
	if time.Now().Before(rec.lockedUntil) {
		return true, time.Until(rec.lockedUntil)
	}
	return false, 0
}

// record counts an attempt for key and applies backoff:
// baseLockout * 2^(count - maxAttempts), capped at maxLockout.
func (rl *keyedLimiter) record(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[key]
	if !ok {
		rec = &attemptRecord{}
		rl.attempts[key] = rec
	}
	rec.count++
	rec.lastAttempt = time.Now()

	if rec.count >= rl.policy.maxAttempts {
		shift := rec.count - rl.policy.maxAttempts
		lockout := rl.policy.baseLockout
		for i := 0; i < shift; i++ {
			lockout *= 2
			if lockout > rl.policy.maxLockout {
				lockout = rl.policy.maxLockout
				break
			}
		}
		rec.lockedUntil = time.Now().Add(lockout)
	}
}

// reset clears the record for key, e.g. after a successful login.
func (rl *keyedLimiter) reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, key)
}

// sweep removes expired records.
func (rl *keyedLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, rec := range rl.attempts {
		if now.Sub(rec.lastAttempt) > rl.policy.expiry {
			delete(rl.attempts, key)
		}
	}
}

// windowLimiter locks everyone out for lockout once max events fall inside
// a sliding window. It bounds distributed attacks that stay under the
// per-key thresholds.
type windowLimiter struct {
	mu          sync.Mutex
	events      []time.Time
	window      time.Duration
	max         int
	lockout     time.Duration
	lockedUntil time.Time
}

func newWindowLimiter(window time.Duration, max int, lockout time.Duration) *windowLimiter {
	return &windowLimiter{window: window, max: max, lockout: lockout}
}

func (rl *windowLimiter) check() (blocked bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Now().Before(rl.lockedUntil) {
		return true, time.Until(rl.lockedUntil)
	}
	return false, 0
}

func (rl *windowLimiter) record() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.events = append(rl.events, now)
	rl.events = trimWindow(rl.events, now, rl.window)
	if len(rl.events) >= rl.max {
		rl.lockedUntil = now.Add(rl.lockout)
	}
}

// rateLimiters groups the limiters guarding login and registration.
type rateLimiters struct {
	loginUser      *keyedLimiter
	loginIP        *keyedLimiter
	loginGlobal    *windowLimiter
	registerIP     *keyedLimiter
	registerGlobal *windowLimiter
}

func newRateLimiters() *rateLimiters {
	return &rateLimiters{
		loginUser:      newKeyedLimiter(loginUserPolicy),
		loginIP:        newKeyedLimiter(loginIPPolicy),
		loginGlobal:    newWindowLimiter(1*time.Minute, 100, 5*time.Minute),
		registerIP:     newKeyedLimiter(registerIPPolicy),
		registerGlobal: newWindowLimiter(1*time.Minute, 50, 5*time.Minute),
	}
}

func (l *rateLimiters) sweep() {
	l.loginUser.sweep()
	l.loginIP.sweep()
	l.registerIP.sweep()
}

func retryAfterString(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP returns the client IP for rate limiting, honoring proxy headers
// only from the configured trusted proxies.
func (a *Storefront) clientIP(r *http.Request) string {
	return extractClientIPWithProxies(r, a.trustedProxies)
}

// extractClientIPWithProxies returns the best-effort client IP address.
//
// Proxy headers (X-Forwarded-For, Forwarded, X-Real-IP) are only honored
// if trustedProxies is non-empty AND the request's RemoteAddr falls within
// one of the trusted CIDR ranges. Otherwise RemoteAddr is returned.
//
// Priority when proxy headers are trusted:
// 1. First valid entry in X-Forwarded-For
// 2. First valid "for=" value in Forwarded
// 3. X-Real-IP
// 4. RemoteAddr
func extractClientIPWithProxies(r *http.Request, trustedProxies []netip.Prefix) string {
	remoteIP, _ := parseIPCandidate(r.RemoteAddr)

	proxyTrusted := false
	if len(trustedProxies) > 0 && remoteIP != "" {
		if addr, err := netip.ParseAddr(remoteIP); err == nil {
			for _, prefix := range trustedProxies {
				if prefix.Contains(addr) {
					proxyTrusted = true
					break
				}
			}
		}
	}

	if proxyTrusted {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				if ip, ok := parseIPCandidate(part); ok {
					return ip
				}
			}
		}

		if fwd := strings.TrimSpace(r.Header.Get("Forwarded")); fwd != "" {
			for _, elem := range strings.Split(fwd, ",") {
				for _, param := range strings.Split(elem, ";") {
					param = strings.TrimSpace(param)
					if !strings.HasPrefix(strings.ToLower(param), "for=") {
						continue
					}
					if ip, ok := parseIPCandidate(param[4:]); ok {
						return ip
					}
				}
			}
		}

		if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
			if ip, ok := parseIPCandidate(xrip); ok {
				return ip
			}
		}
	}

	return remoteIP
}

func parseIPCandidate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"")
	if s == "" {
		return "", false
	}

	// RFC 7239 quoted IPv6 may appear as [::1]:1234.
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if i := strings.IndexByte(s, '%'); i >= 0 {
		s = s[:i]
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap().String(), true
	}
	return "", false
}

// ParseTrustedProxies parses a list of CIDR prefixes or bare addresses.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !strings.Contains(v, "/") {
			addr, err := netip.ParseAddr(v)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}
