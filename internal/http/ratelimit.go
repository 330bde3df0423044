package http

import (
	"sync"
	"sync/atomic"
	"time"
)

// Only form posts are rate limited: the htmx partials poll on a timer and a
// browser tab left open must never trip the limiter. Thirty submissions a
// minute is far beyond what a person typing transactions can produce.
const (
	mutationWindow = time.Minute
	mutationLimit  = 30

	visitorIdleCutoff  = 5 * time.Minute
	visitorPrunePeriod = 2 * time.Minute
)

// mutationLimiter counts form submissions per client IP over a fixed window.
type mutationLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	pruneStop chan struct{}
	stopOnce  sync.Once
}

type visitor struct {
	windowStart time.Time
	lastSeen    time.Time
	posts       int
}

func newMutationLimiter() *mutationLimiter {
	l := &mutationLimiter{
		visitors:  make(map[string]*visitor),
		pruneStop: make(chan struct{}),
	}
	go l.pruneLoop()
	return l
}

func (l *mutationLimiter) pruneLoop() {
	ticker := time.NewTicker(visitorPrunePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.pruneIdle()
		case <-l.pruneStop:
			return
		}
	}
}

// pruneIdle drops visitors that have not posted for a while, so the map only
// holds IPs with recent activity.
func (l *mutationLimiter) pruneIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-visitorIdleCutoff)
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
		}
	}
}

// stop halts the prune goroutine. Safe to call more than once.
func (l *mutationLimiter) stop() {
	l.stopOnce.Do(func() {
		close(l.pruneStop)
	})
}

// allow records a submission from ip and reports whether it stays inside the
// per-window budget. A denial bumps the rate-limit metric.
func (l *mutationLimiter) allow(ip string, metrics *securityMetrics) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.visitors[ip]
	if !ok {
		l.visitors[ip] = &visitor{windowStart: now, lastSeen: now, posts: 1}
		return true
	}

	if now.Sub(v.windowStart) >= mutationWindow {
		v.windowStart = now
		v.posts = 0
	}

	v.posts++
	v.lastSeen = now

	if v.posts > mutationLimit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
