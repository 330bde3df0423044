package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"caixa/internal/cache"
	"caixa/internal/services"
	appweb "caixa/web"
)

// Options carries the tunables the server needs beyond its dependencies.
type Options struct {
	SessionSecret       []byte
	SessionTTL          time.Duration
	PendingPollInterval time.Duration
}

type Server struct {
	http.Server
	templates *template.Template

	accounts     *services.AccountService
	transactions *services.TransactionService

	sessions     *sessionRegistry
	limiter      *mutationLimiter
	pollInterval time.Duration

	// Month ledgers are cached per user+month and invalidated on writes.
	ledgerCache *cache.LRU[services.MonthLedger]

	metrics      securityMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, accounts *services.AccountService, transactions *services.TransactionService, opts Options) *Server {
	mux := http.NewServeMux()

	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.PendingPollInterval <= 0 {
		opts.PendingPollInterval = services.DefaultPendingPollInterval
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		accounts:     accounts,
		transactions: transactions,
		sessions:     newSessionRegistry(opts.SessionSecret, opts.SessionTTL),
		limiter:      newMutationLimiter(),
		pollInterval: opts.PendingPollInterval,
		ledgerCache:  cache.New[services.MonthLedger](200, 5*time.Minute),
	}

	s.ledgerCache.StartJanitor(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/auth/sign-up", s.withSecurityHeaders(s.handleSignUp))
	mux.HandleFunc("/auth/sign-in", s.withSecurityHeaders(s.handleSignIn))
	mux.HandleFunc("/auth/sign-out", s.withSecurityHeaders(s.handleSignOut))

	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("/transactions/delete", s.withSecurityHeaders(s.handleDeleteTransaction))
	mux.HandleFunc("/export", s.withSecurityHeaders(s.handleExport))

	mux.HandleFunc("/admin/approve", s.withSecurityHeaders(s.handleApprove))
	mux.HandleFunc("/admin/reject", s.withSecurityHeaders(s.handleReject))
	mux.HandleFunc("/admin/toggle-pause", s.withSecurityHeaders(s.handleTogglePause))
	mux.HandleFunc("/admin/terminate", s.withSecurityHeaders(s.handleTerminate))

	// UI partials
	mux.HandleFunc("/ui/ledger", s.withSecurityHeaders(s.handleLedger))
	mux.HandleFunc("/ui/roster", s.withSecurityHeaders(s.handleRoster))
	mux.HandleFunc("/ui/pending-count", s.withSecurityHeaders(s.handlePendingCount))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.sessions.stopAll()

		if s.ledgerCache != nil {
			s.ledgerCache.Stop()
		}
		if s.limiter != nil {
			s.limiter.stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ip := clientIP(r)

		// Generate request ID for tracing
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", ip,
			"user_agent", r.Header.Get("User-Agent"))

		if looksLikeScanner(r, &s.metrics) {
			slog.WarnContext(ctx, "Suspicious request", "client_ip", ip, "method", r.Method, "url", r.URL.String())
		}

		// Rate limit mutations only; partial refreshes poll freely.
		if r.Method == http.MethodPost && !s.limiter.allow(ip, &s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", ip, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Limite de requisições excedido. Tente novamente em instantes.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", ip)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) ledgerCacheKey(userID string, year, month int) string {
	return userID + ":" + strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) invalidateLedger(userID string, year, month int) {
	s.ledgerCache.Delete(s.ledgerCacheKey(userID, year, month))
}

func (s *Server) getLedger(ctx context.Context, userID string, year, month int) (services.MonthLedger, error) {
	key := s.ledgerCacheKey(userID, year, month)

	if ledger, found := s.ledgerCache.Get(key); found {
		slog.DebugContext(ctx, "Ledger cache hit", "year", year, "month", month)
		return ledger, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	ledger, err := s.transactions.ListMonth(cctx, userID, year, month)
	if err != nil {
		return services.MonthLedger{}, err
	}

	s.ledgerCache.Set(key, ledger)
	return ledger, nil
}
