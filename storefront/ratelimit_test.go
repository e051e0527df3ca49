package storefront

import (
	"net/http"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLimiter_AllowsBeforeThreshold(t *testing.T) {
	rl := newKeyedLimiter(loginUserPolicy)

	for i := 0; i < loginUserPolicy.maxAttempts-1; i++ {
		rl.record("alice")
		blocked, _ := rl.check("alice")
		assert.False(t, blocked, "should not block before reaching maxAttempts")
	}
}

func TestKeyedLimiter_BlocksAfterThreshold(t *testing.T) {
	rl := newKeyedLimiter(loginUserPolicy)

	for i := 0; i < loginUserPolicy.maxAttempts; i++ {
		rl.record("alice")
	}

	blocked, retryAfter := rl.check("alice")
	require.True(t, blocked, "should block after maxAttempts")
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, loginUserPolicy.baseLockout)
}

func TestKeyedLimiter_ExponentialBackoff(t *testing.T) {
	rl := newKeyedLimiter(loginUserPolicy)

	for i := 0; i < loginUserPolicy.maxAttempts; i++ {
		rl.record("alice")
	}
	_, first := rl.check("alice")

	rl.record("alice")
	_, second := rl.check("alice")
	assert.Greater(t, second, first, "lockout should grow with more failures")
}

func TestKeyedLimiter_ResetClears(t *testing.T) {
	rl := newKeyedLimiter(loginUserPolicy)

	for i := 0; i < loginUserPolicy.maxAttempts; i++ {
		rl.record("alice")
	}
	blocked, _ := rl.check("alice")
	require.True(t, blocked)

	rl.reset("alice")

	blocked, _ = rl.check("alice")
	assert.False(t, blocked)
}

func TestKeyedLimiter_IsolatesKeys(t *testing.T) {
	rl := newKeyedLimiter(loginUserPolicy)

	for i := 0; i < loginUserPolicy.maxAttempts; i++ {
		rl.record("alice")
	}
	blocked, _ := rl.check("alice")
	require.True(t, blocked)

	blocked, _ = rl.check("bob")
	assert.False(t, blocked)
}

func TestKeyedLimiter_SweepRemovesExpired(t *testing.T) {
	rl := newKeyedLimiter(loginUserPolicy)
	rl.record("alice")

	rl.mu.Lock()
	rl.attempts["alice"].lastAttempt = time.Now().Add(-2 * loginUserPolicy.expiry)
	rl.mu.Unlock()

	rl.sweep()

	rl.mu.Lock()
	_, exists := rl.attempts["alice"]
	rl.mu.Unlock()
	assert.False(t, exists, "expired record should be swept")
}

func TestKeyedLimiter_MaxLockoutCap(t *testing.T) {
	rl := newKeyedLimiter(registerIPPolicy)

	for i := 0; i < registerIPPolicy.maxAttempts+20; i++ {
		rl.record("203.0.113.5")
	}

	_, retryAfter := rl.check("203.0.113.5")
	assert.LessOrEqual(t, retryAfter, registerIPPolicy.maxLockout)
}

func TestWindowLimiter_AllowsBeforeThreshold(t *testing.T) {
	rl := newWindowLimiter(time.Minute, 3, time.Minute)
	rl.record()
	rl.record()

	blocked, _ := rl.check()
	assert.False(t, blocked)
}

func TestWindowLimiter_BlocksAtThreshold(t *testing.T) {
	rl := newWindowLimiter(time.Minute, 3, time.Minute)
	for i := 0; i < 3; i++ {
		rl.record()
	}

	blocked, retryAfter := rl.check()
	require.True(t, blocked)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestWindowLimiter_SlidingWindowExpiry(t *testing.T) {
	rl := newWindowLimiter(time.Minute, 3, time.Minute)

	rl.mu.Lock()
	old := time.Now().Add(-2 * time.Minute)
	rl.events = []time.Time{old, old}
	rl.mu.Unlock()

	rl.record()

	blocked, _ := rl.check()
	assert.False(t, blocked, "events outside the window must not count")
}

func TestRetryAfterString(t *testing.T) {
	assert.Equal(t, "1", retryAfterString(0))
	assert.Equal(t, "1", retryAfterString(300*time.Millisecond))
	assert.Equal(t, "90", retryAfterString(90*time.Second))
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote ipv4", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "remote ipv6", remoteAddr: "[::1]:8080", want: "::1"},
		{
			name:       "untrusted xff ignored",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.25"},
			want:       "10.0.0.1",
		},
		{name: "empty when nothing parseable", remoteAddr: "not-a-hostport", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: make(http.Header)}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractClientIPWithProxies(r, nil))
		})
	}
}

func TestExtractClientIPWithTrustedProxies(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "xff first valid wins",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "unknown, 198.51.100.25, 203.0.113.9"},
			want:       "198.51.100.25",
		},
		{
			name:       "forwarded fallback",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"Forwarded": `for="[2001:db8::1]:4711";proto=https`},
			want:       "2001:db8::1",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.11"},
			want:       "203.0.113.11",
		},
		{
			name:       "spoofed header from outside the trusted range",
			remoteAddr: "192.0.2.10:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.25"},
			want:       "192.0.2.10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: make(http.Header)}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractClientIPWithProxies(r, trusted))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.7 ", "", "2001:db8::/32"})
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.7/32", prefixes[1].String())
	assert.Equal(t, "2001:db8::/32", prefixes[2].String())

	_, err = ParseTrustedProxies([]string{"not-a-cidr"})
	assert.Error(t, err)
}
