package http

import (
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestMutationLimiterBudget(t *testing.T) {
	l := newMutationLimiter()
	defer l.stop()

	var m securityMetrics
	for i := 0; i < mutationLimit; i++ {
		if !l.allow("203.0.113.7", &m) {
			t.Fatalf("submission %d denied inside the budget", i+1)
		}
	}
	if l.allow("203.0.113.7", &m) {
		t.Fatal("submission over the budget allowed")
	}
	if hits := atomic.LoadInt64(&m.rateLimitHits); hits != 1 {
		t.Fatalf("rateLimitHits = %d, want 1", hits)
	}

	// A different client has its own budget.
	if !l.allow("203.0.113.8", &m) {
		t.Fatal("fresh client denied")
	}
}

func TestMutationLimiterWindowReset(t *testing.T) {
	l := newMutationLimiter()
	defer l.stop()

	ip := "203.0.113.9"
	for i := 0; i < mutationLimit; i++ {
		l.allow(ip, nil)
	}
	if l.allow(ip, nil) {
		t.Fatal("exhausted client should be denied")
	}

	// Age the window instead of sleeping through it.
	l.mu.Lock()
	l.visitors[ip].windowStart = time.Now().Add(-2 * mutationWindow)
	l.mu.Unlock()

	if !l.allow(ip, nil) {
		t.Fatal("new window should reset the budget")
	}
}

func TestMutationLimiterPrunesIdleVisitors(t *testing.T) {
	l := newMutationLimiter()
	defer l.stop()

	l.allow("203.0.113.10", nil)
	l.mu.Lock()
	l.visitors["203.0.113.10"].lastSeen = time.Now().Add(-2 * visitorIdleCutoff)
	l.mu.Unlock()

	l.pruneIdle()

	l.mu.Lock()
	_, ok := l.visitors["203.0.113.10"]
	l.mu.Unlock()
	if ok {
		t.Fatal("idle visitor should be pruned")
	}
}

func TestClientIPHonorsTrustedProxyOnly(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "198.51.100.4:1234", "", "198.51.100.4"},
		{"trusted proxy forwards", "127.0.0.1:1234", "198.51.100.4", "198.51.100.4"},
		{"untrusted peer cannot spoof", "198.51.100.4:1234", "10.0.0.1", "198.51.100.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req); got != tt.want {
				t.Fatalf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLooksLikeScanner(t *testing.T) {
	var m securityMetrics

	req := httptest.NewRequest("GET", "/wp-admin/setup.php", nil)
	if !looksLikeScanner(req, &m) {
		t.Fatal("probe path not flagged")
	}

	req = httptest.NewRequest("GET", "/export?year=2024&month=3", nil)
	if looksLikeScanner(req, &m) {
		t.Fatal("legitimate export flagged")
	}

	if hits := atomic.LoadInt64(&m.suspiciousRequests); hits != 1 {
		t.Fatalf("suspiciousRequests = %d, want 1", hits)
	}
}
