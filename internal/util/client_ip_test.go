package util

import (
	"net/http/httptest"
	"testing"
)

func proxies(t *testing.T, entries ...string) *TrustedProxies {
	t.Helper()
	tp, err := NewTrustedProxies(entries)
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}
	return tp
}

func resolve(t *testing.T, trusted *TrustedProxies, remoteAddr, forwardedFor, realIP string) string {
	t.Helper()
	req := httptest.NewRequest("GET", "http://lendingdesk.test/titles", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	if realIP != "" {
		req.Header.Set("X-Real-IP", realIP)
	}
	return ClientIP(req, trusted)
}

func TestClientIPIgnoresHeadersFromUntrustedPeer(t *testing.T) {
	trusted := proxies(t, "10.0.0.0/8")
	got := resolve(t, trusted, "198.51.100.7:9000", "203.0.113.5", "203.0.113.6")
	if got != "198.51.100.7" {
		t.Fatalf("client ip = %q, want the peer address", got)
	}
	// Nil trust list means no proxy is ever believed.
	if got := resolve(t, nil, "10.0.0.9:9000", "203.0.113.5", ""); got != "10.0.0.9" {
		t.Fatalf("client ip with nil trust = %q, want 10.0.0.9", got)
	}
}

func TestClientIPWalksForwardedChainFromTrustedPeer(t *testing.T) {
	trusted := proxies(t, "10.0.0.0/8", "192.168.7.1")

	if got := resolve(t, trusted, "10.0.0.9:9000", "203.0.113.5", ""); got != "203.0.113.5" {
		t.Fatalf("single hop = %q, want 203.0.113.5", got)
	}
	// Trusted intermediate hops are skipped right to left.
	if got := resolve(t, trusted, "10.0.0.9:9000", "203.0.113.5, 10.0.0.3", ""); got != "203.0.113.5" {
		t.Fatalf("chain = %q, want 203.0.113.5", got)
	}
	// All hops trusted: the leftmost is the origin.
	if got := resolve(t, trusted, "10.0.0.9:9000", "10.0.0.1, 192.168.7.1", ""); got != "10.0.0.1" {
		t.Fatalf("all-trusted chain = %q, want 10.0.0.1", got)
	}
}

func TestClientIPFallsBackToRealIP(t *testing.T) {
	trusted := proxies(t, "10.0.0.0/8")
	if got := resolve(t, trusted, "10.0.0.9:9000", "not-an-address", "203.0.113.8"); got != "203.0.113.8" {
		t.Fatalf("client ip = %q, want X-Real-IP fallback", got)
	}
	if got := resolve(t, trusted, "10.0.0.9:9000", "", ""); got != "10.0.0.9" {
		t.Fatalf("client ip = %q, want peer when no headers present", got)
	}
}

func TestNewTrustedProxiesRejectsGarbage(t *testing.T) {
	if _, err := NewTrustedProxies([]string{"10.0.0.0/8", "fd00::/16"}); err != nil {
		t.Fatalf("valid entries rejected: %v", err)
	}
	if _, err := NewTrustedProxies([]string{"not-a-network"}); err == nil {
		t.Fatalf("expected parse error for invalid entry")
	}
	tp, err := NewTrustedProxies([]string{"", "  "})
	if err != nil || tp != nil {
		t.Fatalf("blank entries should yield a nil trust list, got %v, %v", tp, err)
	}
}
