package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote only", "203.0.113.5:4000", nil, false, "203.0.113.5"},
		{"ignores headers when untrusted", "203.0.113.5:4000", map[string]string{"X-Forwarded-For": "1.2.3.4"}, false, "203.0.113.5"},
		{"cloudflare first", "127.0.0.1:1", map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "1.2.3.4"}, true, "198.51.100.1"},
		{"left-most forwarded", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, true, "1.2.3.4"},
		{"real ip", "127.0.0.1:1", map[string]string{"X-Real-IP": "1.2.3.5"}, true, "1.2.3.5"},
		{"garbage header skipped", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "unknown"}, true, "127.0.0.1"},
		{"ipv6", "[2001:db8::1]:443", nil, false, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.168.1.10 ", "2001:db8::/32", "not-an-ip", ""})
	if m.IsEmpty() {
		t.Fatal("matcher should not be empty")
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.20.30.40", true},
		{"192.168.1.10", true},
		{"192.168.1.11", false},
		{"::ffff:10.1.1.1", true},
		{"2001:db8::42", true},
		{"", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := m.Allow(tt.ip); got != tt.want {
			t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}

	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("nil list should give an empty matcher")
	}
}
