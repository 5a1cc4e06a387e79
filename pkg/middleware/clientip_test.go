package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff        string
		realIP     string
		trustProxy bool
		want       string
	}{
		{"remote addr", "192.0.2.1:1234", "", "", false, "192.0.2.1"},
		{"forwarded ignored when untrusted", "192.0.2.1:1234", "203.0.113.9", "", false, "192.0.2.1"},
		{"forwarded first hop", "10.0.0.1:80", "203.0.113.9, 10.0.0.2", "", true, "203.0.113.9"},
		{"forged forwarded value", "10.0.0.1:80", "not-an-ip", "198.51.100.4", true, "198.51.100.4"},
		{"real ip", "10.0.0.1:80", "", "198.51.100.4", true, "198.51.100.4"},
		{"ipv6 remote", "[2001:db8::1]:443", "", "", false, "2001:db8::1"},
		{"no port", "192.0.2.7", "", "", false, "192.0.2.7"},
		{"empty", "", "", "", false, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ResolveClientIP(r, tt.trustProxy))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	var got string
	h := ClientIP(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromRequest(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "203.0.113.9", got)
}
