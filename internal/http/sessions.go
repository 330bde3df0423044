package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"caixa/internal/services"
	"caixa/internal/store"
)

const sessionCookie = "caixa_session"

// sweepInterval paces the background eviction of expired sessions.
const sweepInterval = time.Minute

// session is the server-side state for one signed-in browser: the store
// session it proxies, plus the pending watcher when the account is an admin.
// Once expiresAt passes the entry is evicted and its watcher stopped, so an
// abandoned admin browser does not leave a poller running.
type session struct {
	store     store.Session
	watcher   *services.PendingWatcher
	expiresAt time.Time
}

func (s *session) expired(now time.Time) bool {
	return now.After(s.expiresAt)
}

// sessionRegistry maps signed cookies to server-side sessions. The cookie
// carries a signed JWT whose ID points at the registry entry, so a forged or
// expired cookie never reaches the store. Entries are removed on sign-out,
// on expiry (lazily at lookup and by a periodic sweep) and at shutdown.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	secret   []byte
	ttl      time.Duration

	sweepStop chan struct{}
	stopOnce  sync.Once
}

func newSessionRegistry(secret []byte, ttl time.Duration) *sessionRegistry {
	r := &sessionRegistry{
		sessions:  make(map[string]*session),
		secret:    secret,
		ttl:       ttl,
		sweepStop: make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

func (r *sessionRegistry) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweepExpired(time.Now())
		case <-r.sweepStop:
			return
		}
	}
}

// sweepExpired evicts every session past its deadline, stopping orphaned
// watchers, and returns how many entries were removed.
func (r *sessionRegistry) sweepExpired(now time.Time) int {
	r.mu.Lock()
	var evicted []*session
	for sid, sess := range r.sessions {
		if sess.expired(now) {
			evicted = append(evicted, sess)
			delete(r.sessions, sid)
		}
	}
	r.mu.Unlock()

	for _, sess := range evicted {
		if sess.watcher != nil {
			sess.watcher.Stop(context.Background())
		}
	}
	return len(evicted)
}

// create registers the session and sets its cookie on the response.
func (r *sessionRegistry) create(w http.ResponseWriter, storeSess store.Session, watcher *services.PendingWatcher) error {
	sid := uuid.NewString()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        sid,
		Subject:   storeSess.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}

	r.mu.Lock()
	r.sessions[sid] = &session{store: storeSess, watcher: watcher, expiresAt: now.Add(r.ttl)}
	r.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(r.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// lookup resolves the request's cookie to a live session, if any. An entry
// past its deadline is evicted on the spot.
func (r *sessionRegistry) lookup(req *http.Request) (*session, bool) {
	cookie, err := req.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}

	sid, err := r.verify(cookie.Value)
	if err != nil {
		return nil, false
	}

	r.mu.Lock()
	sess, ok := r.sessions[sid]
	if ok && sess.expired(time.Now()) {
		delete(r.sessions, sid)
		r.mu.Unlock()
		if sess.watcher != nil {
			sess.watcher.Stop(req.Context())
		}
		return nil, false
	}
	r.mu.Unlock()
	return sess, ok
}

// destroy removes the request's session, stops its watcher and clears the
// cookie. Safe to call for requests without a session.
func (r *sessionRegistry) destroy(w http.ResponseWriter, req *http.Request) *session {
	var removed *session

	if cookie, err := req.Cookie(sessionCookie); err == nil {
		if sid, err := r.verify(cookie.Value); err == nil {
			r.mu.Lock()
			removed = r.sessions[sid]
			delete(r.sessions, sid)
			r.mu.Unlock()
		}
	}

	if removed != nil && removed.watcher != nil {
		removed.watcher.Stop(req.Context())
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return removed
}

// stopAll halts the sweep and stops every live watcher, used on server
// shutdown.
func (r *sessionRegistry) stopAll() {
	r.stopOnce.Do(func() {
		close(r.sweepStop)
	})

	r.mu.Lock()
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		if s.watcher != nil {
			s.watcher.Stop(context.Background())
		}
	}
}

func (r *sessionRegistry) verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return "", fmt.Errorf("malformed session claims")
	}
	return claims.ID, nil
}
