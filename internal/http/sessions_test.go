package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caixa/internal/services"
	"caixa/internal/store"
	"caixa/internal/store/memory"
)

func startedWatcher(t *testing.T) *services.PendingWatcher {
	t.Helper()
	w := services.NewPendingWatcher(memory.New(), time.Minute)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	t.Cleanup(func() { w.Stop(context.Background()) })
	return w
}

func createSession(t *testing.T, r *sessionRegistry, watcher *services.PendingWatcher) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := r.create(rec, store.Session{UserID: "u1"}, watcher); err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSweepEvictsExpiredSessionsAndStopsWatchers(t *testing.T) {
	r := newSessionRegistry([]byte("test-secret"), time.Hour)
	defer r.stopAll()

	watcher := startedWatcher(t)
	createSession(t, r, watcher)

	if n := r.sweepExpired(time.Now()); n != 0 {
		t.Fatalf("fresh session swept: evicted %d", n)
	}
	if !watcher.IsRunning() {
		t.Fatal("watcher stopped while session was live")
	}

	if n := r.sweepExpired(time.Now().Add(2 * time.Hour)); n != 1 {
		t.Fatalf("evicted = %d, want 1", n)
	}
	if watcher.IsRunning() {
		t.Fatal("watcher still running after its session expired")
	}

	r.mu.Lock()
	remaining := len(r.sessions)
	r.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("%d expired sessions still registered", remaining)
	}
}

func TestLookupEvictsExpiredSession(t *testing.T) {
	r := newSessionRegistry([]byte("test-secret"), time.Hour)
	defer r.stopAll()

	watcher := startedWatcher(t)
	cookie := createSession(t, r, watcher)

	// The cookie's JWT is still valid; only the server-side entry is aged.
	r.mu.Lock()
	for _, sess := range r.sessions {
		sess.expiresAt = time.Now().Add(-time.Minute)
	}
	r.mu.Unlock()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	if _, ok := r.lookup(req); ok {
		t.Fatal("lookup returned an expired session")
	}
	if watcher.IsRunning() {
		t.Fatal("watcher still running after expired lookup")
	}

	r.mu.Lock()
	remaining := len(r.sessions)
	r.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("%d expired sessions still registered", remaining)
	}
}
