package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"caixa/internal/core"
	"caixa/internal/services"
	"caixa/internal/store"
)

type monthOption struct {
	Value int
	Name  string
}

var monthOptions = []monthOption{
	{1, "Janeiro"}, {2, "Fevereiro"}, {3, "Março"}, {4, "Abril"},
	{5, "Maio"}, {6, "Junho"}, {7, "Julho"}, {8, "Agosto"},
	{9, "Setembro"}, {10, "Outubro"}, {11, "Novembro"}, {12, "Dezembro"},
}

// currentProfile re-reads the signed-in profile for this request. The gate
// is recomputed from fresh flags on every page load, so an approval or pause
// applied elsewhere takes effect on the user's next request.
func (s *Server) currentProfile(r *http.Request) (*core.Profile, *session) {
	sess, ok := s.sessions.lookup(r)
	if !ok {
		return nil, nil
	}

	prof, err := s.accounts.CurrentUser(r.Context(), sess.store)
	if err != nil {
		slog.WarnContext(r.Context(), "Session no longer resolves to a profile", "error", err)
		return nil, sess
	}
	return prof, sess
}

// requireActive resolves the request to an active account or writes the
// appropriate error fragment.
func (s *Server) requireActive(w http.ResponseWriter, r *http.Request) *core.Profile {
	prof, _ := s.currentProfile(r)
	screen := core.ResolveScreen(prof)
	if screen.Kind != core.ScreenActive {
		UnauthorizedError("Sessão expirada ou acesso bloqueado. Entre novamente.").Write(w)
		return nil
	}
	return prof
}

// requireAdmin resolves the request to an active admin account or writes the
// appropriate error fragment.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) *core.Profile {
	prof, _ := s.currentProfile(r)
	screen := core.ResolveScreen(prof)
	if screen.Kind != core.ScreenActive {
		UnauthorizedError("Sessão expirada ou acesso bloqueado. Entre novamente.").Write(w)
		return nil
	}
	if !screen.Admin {
		ForbiddenError("Acesso restrito ao administrador.").Write(w)
		return nil
	}
	return prof
}

type indexData struct {
	Screen  core.Screen
	Profile *core.Profile

	Year   int
	Month  int
	Months []monthOption
	Years  []int

	PendingCount int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	prof, sess := s.currentProfile(r)
	screen := core.ResolveScreen(prof)
	if v := r.URL.Query().Get("view"); v == "admin" {
		screen = screen.WithSubview(core.SubviewAdmin)
	}

	now := time.Now()
	years := make([]int, 0, 5)
	for y := now.Year(); y > now.Year()-5; y-- {
		years = append(years, y)
	}

	data := indexData{
		Screen:  screen,
		Profile: prof,
		Year:    now.Year(),
		Month:   int(now.Month()),
		Months:  monthOptions,
		Years:   years,
	}

	if screen.Kind == core.ScreenActive && screen.Admin && sess != nil {
		if sess.watcher != nil {
			data.PendingCount = sess.watcher.Count()
		} else if n, err := s.accounts.PendingCount(r.Context()); err == nil {
			data.PendingCount = n
		}
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}

	params := store.SignUpParams{
		Email:    sanitizeInput(r.Form.Get("email")),
		Password: r.Form.Get("password"),
		Name:     sanitizeInput(r.Form.Get("name")),
		Company:  sanitizeInput(r.Form.Get("company")),
		Phone:    sanitizeInput(r.Form.Get("phone")),
	}
	if params.Email == "" || params.Password == "" || params.Name == "" {
		UnprocessableEntityError("Preencha nome, e-mail e senha.").Write(w)
		return
	}
	if confirm := r.Form.Get("password_confirm"); confirm != "" && confirm != params.Password {
		UnprocessableEntityError("As senhas não coincidem.").Write(w)
		return
	}

	prof, storeSess, err := s.accounts.SignUp(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmailTaken):
			UnprocessableEntityError("E-mail já cadastrado.").Write(w)
		default:
			slog.ErrorContext(r.Context(), "Sign-up failed", "error", err)
			InternalServerError("Não foi possível criar a conta. Tente novamente.").Write(w)
		}
		return
	}

	// New accounts are never admins, so no watcher is started here.
	if err := s.sessions.create(w, storeSess, nil); err != nil {
		slog.ErrorContext(r.Context(), "Session creation failed", "error", err, "user_id", prof.ID)
		InternalServerError("Não foi possível iniciar a sessão.").Write(w)
		return
	}

	NewHTMXResponse().Redirect("/").Write(w)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")
	if email == "" || password == "" {
		UnprocessableEntityError("Informe e-mail e senha.").Write(w)
		return
	}

	prof, storeSess, err := s.accounts.SignIn(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidCredentials):
			UnauthorizedError("E-mail ou senha incorretos.").Write(w)
		default:
			slog.ErrorContext(r.Context(), "Sign-in failed", "error", err)
			InternalServerError("Não foi possível entrar. Tente novamente.").Write(w)
		}
		return
	}

	// The watcher lives exactly as long as the admin session.
	watcher := s.startWatcherFor(r, prof)

	if err := s.sessions.create(w, storeSess, watcher); err != nil {
		if watcher != nil {
			watcher.Stop(r.Context())
		}
		slog.ErrorContext(r.Context(), "Session creation failed", "error", err, "user_id", prof.ID)
		InternalServerError("Não foi possível iniciar a sessão.").Write(w)
		return
	}

	NewHTMXResponse().Redirect("/").Write(w)
}

// startWatcherFor starts a pending watcher when the signed-in account is an
// admin; regular accounts get none.
func (s *Server) startWatcherFor(r *http.Request, prof *core.Profile) *services.PendingWatcher {
	if prof == nil || !prof.IsAdmin() {
		return nil
	}
	watcher := s.accounts.NewPendingWatcher(s.pollInterval)
	// The watcher outlives this request; it is stopped on sign-out or
	// server shutdown, not when the sign-in request finishes.
	if err := watcher.Start(context.Background()); err != nil {
		slog.WarnContext(r.Context(), "Pending watcher failed to start", "error", err)
		return nil
	}
	return watcher
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}

	if removed := s.sessions.destroy(w, r); removed != nil {
		if err := s.accounts.SignOut(r.Context(), removed.store); err != nil {
			slog.WarnContext(r.Context(), "Store sign-out failed", "error", err)
		}
	}

	NewHTMXResponse().Redirect("/").Write(w)
}
