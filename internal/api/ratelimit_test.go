package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRateLimiterBurst tests token exhaustion for a single IP.
func TestRateLimiterBurst(t *testing.T) {
	rl := newRateLimiter(1.0, 3)

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request past burst should be rejected")
	}
}

// TestRateLimiterPerIP tests that IPs do not share buckets.
func TestRateLimiterPerIP(t *testing.T) {
	rl := newRateLimiter(1.0, 1)

	if !rl.allow("10.0.0.1") {
		t.Fatal("first IP should be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Error("first IP should be exhausted")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("second IP should have its own bucket")
	}
}

// TestClientIPTrustProxy tests header handling behind a reverse proxy.
func TestClientIPTrustProxy(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "direct exposure ignores headers",
			trustProxy: false,
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "proxy uses X-Real-IP",
			trustProxy: true,
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			remoteAddr: "10.0.0.1:1234",
			want:       "1.2.3.4",
		},
		{
			name:       "proxy uses first X-Forwarded-For entry",
			trustProxy: true,
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"},
			remoteAddr: "10.0.0.1:1234",
			want:       "1.2.3.4",
		},
		{
			name:       "invalid header values fall back to RemoteAddr",
			trustProxy: true,
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
