package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"caixa/internal/core"
	"caixa/internal/store"
)

type rosterRow struct {
	ID      string
	Name    string
	Email   string
	Company string
	Phone   string
	Paused  bool
	IsAdmin bool
}

type rosterData struct {
	Pending      []rosterRow
	Active       []rosterRow
	PendingCount int
	ActiveCount  int
	Tab          string
}

// handleRoster renders the admin roster partial with its pending/active tabs.
// Every render re-fetches and re-partitions the full roster.
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	prof := s.requireAdmin(w, r)
	if prof == nil {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	roster, err := s.accounts.Roster(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Roster load error", "error", err)
		_, _ = w.Write([]byte(`<section id="roster"><div class="placeholder">Erro ao carregar contas</div></section>`))
		return
	}

	tab := r.URL.Query().Get("tab")
	if tab != "active" {
		tab = "pending"
	}

	data := rosterData{
		PendingCount: len(roster.Pending),
		ActiveCount:  len(roster.Active),
		Tab:          tab,
	}
	for _, p := range roster.Pending {
		data.Pending = append(data.Pending, rosterRowFrom(p))
	}
	for _, p := range roster.Active {
		data.Active = append(data.Active, rosterRowFrom(p))
	}

	if err := s.templates.ExecuteTemplate(w, "roster.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "roster.html")
		_, _ = w.Write([]byte(`<section id="roster"><div class="placeholder">Erro ao exibir contas</div></section>`))
	}
}

func rosterRowFrom(p core.Profile) rosterRow {
	return rosterRow{
		ID:      p.ID,
		Name:    p.Name,
		Email:   p.Email,
		Company: p.Company,
		Phone:   p.Phone,
		Paused:  p.Paused,
		IsAdmin: p.IsAdmin(),
	}
}

// handlePendingCount renders the nav badge from the session's watcher, which
// holds the most recent poll result.
func (s *Server) handlePendingCount(w http.ResponseWriter, r *http.Request) {
	prof, sess := s.currentProfile(r)
	screen := core.ResolveScreen(prof)
	if screen.Kind != core.ScreenActive || !screen.Admin {
		UnauthorizedError("Sessão expirada ou acesso bloqueado. Entre novamente.").Write(w)
		return
	}

	count := 0
	if sess != nil && sess.watcher != nil {
		count = sess.watcher.Count()
	} else if n, err := s.accounts.PendingCount(r.Context()); err == nil {
		count = n
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if count == 0 {
		_, _ = w.Write([]byte(`<span id="pending-badge" class="badge hidden"></span>`))
		return
	}
	_, _ = w.Write([]byte(fmt.Sprintf(`<span id="pending-badge" class="badge">%d</span>`, count)))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleAccountAction(w, r, "Conta aprovada.", s.accounts.Approve)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.handleAccountAction(w, r, "Conta recusada.", s.accounts.Reject)
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	s.handleAccountAction(w, r, "Conta encerrada.", s.accounts.Terminate)
}

func (s *Server) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	prof := s.requireAdmin(w, r)
	if prof == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Conta não informada").Write(w)
		return
	}
	// The toggle is relative to the state the admin saw on screen.
	observedPaused := r.Form.Get("paused") == "true"

	if err := s.accounts.TogglePause(r.Context(), id, observedPaused); err != nil {
		writeAccountActionError(w, r, err)
		return
	}

	message := "Conta reativada."
	if !observedPaused {
		message = "Conta pausada."
	}
	NewHTMXResponse().
		TriggerRosterRefresh().
		TriggerSuccessNotification(message).
		Write(w)
}

// handleAccountAction runs one admin mutation against the form's account id
// and triggers a full roster refresh on success.
func (s *Server) handleAccountAction(w http.ResponseWriter, r *http.Request, message string, action func(ctx context.Context, id string) error) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	prof := s.requireAdmin(w, r)
	if prof == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Conta não informada").Write(w)
		return
	}

	if err := action(r.Context(), id); err != nil {
		writeAccountActionError(w, r, err)
		return
	}

	NewHTMXResponse().
		TriggerRosterRefresh().
		TriggerSuccessNotification(message).
		Write(w)
}

func writeAccountActionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		// The row went stale; a refresh resolves it.
		NewHTMXResponse().
			Status(http.StatusNotFound).
			TriggerRosterRefresh().
			TriggerErrorNotification("Conta não encontrada. Lista atualizada.").
			Write(w)
		return
	}
	slog.ErrorContext(r.Context(), "Account action error", "error", err)
	InternalServerError("Não foi possível concluir a operação.").Write(w)
}
