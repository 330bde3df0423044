package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"caixa/internal/core"
	"caixa/internal/report"
	"caixa/internal/services"
	"caixa/internal/store"
)

type ledgerRow struct {
	ID          string
	Date        string
	Description string
	TypeLabel   string
	Amount      string
	IsPurchase  bool
}

type ledgerData struct {
	Year  int
	Month int

	TotalSales     string
	TotalPurchases string
	Profit         string
	ProfitNegative bool

	Rows      []ledgerRow
	HasRows   bool
	CanExport bool
}

// handleLedger renders the monthly ledger partial: KPI cards plus the
// transaction list for the selected month.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	prof := s.requireActive(w, r)
	if prof == nil {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	year, month := parseYearMonth(r)

	ledger, err := s.getLedger(r.Context(), prof.ID, year, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Ledger load error", "error", err, "year", year, "month", month)
		_, _ = w.Write([]byte(`<section id="ledger"><div class="placeholder">Erro ao carregar transações</div></section>`))
		return
	}

	data := buildLedgerData(year, month, ledger)

	if err := s.templates.ExecuteTemplate(w, "ledger.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "ledger.html", "year", year, "month", month)
		_, _ = w.Write([]byte(`<section id="ledger"><div class="placeholder">Erro ao exibir transações</div></section>`))
	}
}

func buildLedgerData(year, month int, ledger services.MonthLedger) ledgerData {
	data := ledgerData{
		Year:           year,
		Month:          month,
		TotalSales:     ledger.Summary.TotalSales.BRL(),
		TotalPurchases: ledger.Summary.TotalPurchases.BRL(),
		Profit:         ledger.Summary.Profit.BRL(),
		ProfitNegative: ledger.Summary.Profit.Cents < 0,
		HasRows:        len(ledger.Transactions) > 0,
		CanExport:      len(ledger.Transactions) > 0,
	}
	for _, tx := range ledger.Transactions {
		amount := tx.Amount
		purchase := tx.Type == core.Purchase
		if purchase {
			amount = core.Money{Cents: -amount.Cents}
		}
		data.Rows = append(data.Rows, ledgerRow{
			ID:          tx.ID,
			Date:        tx.Date.Display(),
			Description: tx.Description,
			TypeLabel:   tx.Type.Label(),
			Amount:      amount.BRL(),
			IsPurchase:  purchase,
		})
	}
	return data
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	prof := s.requireActive(w, r)
	if prof == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}

	in := services.AddInput{
		Type:        strings.TrimSpace(r.Form.Get("type")),
		Description: sanitizeInput(r.Form.Get("description")),
		Amount:      strings.TrimSpace(r.Form.Get("amount")),
		Date:        strings.TrimSpace(r.Form.Get("date")),
	}

	tx, err := s.transactions.Add(r.Context(), prof.ID, in)
	if err != nil {
		UnprocessableEntityError(transactionErrorMessage(err)).Write(w)
		return
	}

	year, month := txYearMonth(tx.Date)
	s.invalidateLedger(prof.ID, year, month)

	NewHTMXResponse().
		TriggerLedgerRefresh(year, month).
		TriggerFormReset().
		TriggerSuccessNotification("Transação registrada.").
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	prof := s.requireActive(w, r)
	if prof == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Transação não informada").Write(w)
		return
	}

	if err := s.transactions.Delete(r.Context(), prof.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFoundError("Transação não encontrada.").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Transaction delete error", "error", err, "id", id)
		InternalServerError("Não foi possível excluir a transação.").Write(w)
		return
	}

	year, month := parseYearMonth(r)
	s.invalidateLedger(prof.ID, year, month)

	NewHTMXResponse().
		TriggerLedgerRefresh(year, month).
		TriggerSuccessNotification("Transação excluída.").
		Write(w)
}

// handleExport streams the period report PDF as a download. An empty period
// aborts with a notice instead of producing a file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	prof := s.requireActive(w, r)
	if prof == nil {
		return
	}

	params := report.Params{Company: prof.Company}
	if prof.Company == "" {
		params.Company = prof.Name
	}

	q := r.URL.Query()
	switch start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end")); {
	case start != "" && end != "":
		params.Start = core.Date(start)
		params.End = core.Date(end)
	case start != "" || end != "":
		// Half-filled range: tell the user instead of exporting something else.
		UnprocessableEntityError("Informe o período completo: data inicial e data final.").Write(w)
		return
	default:
		params.Year, params.Month = parseYearMonth(r)
	}

	name, data, err := s.transactions.Export(r.Context(), prof.ID, params)
	if err != nil {
		switch {
		case errors.Is(err, report.ErrNoTransactions):
			UnprocessableEntityError("Não há transações no período selecionado.").Write(w)
		default:
			slog.ErrorContext(r.Context(), "Report export error", "error", err)
			UnprocessableEntityError("Não foi possível gerar o relatório.").Write(w)
		}
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func transactionErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Valor inválido."
	case errors.Is(err, core.ErrInvalidDate):
		return "Data inválida."
	case errors.Is(err, core.ErrInvalidType):
		return "Tipo de transação inválido."
	case errors.Is(err, core.ErrEmptyDescription):
		return "Informe uma descrição."
	default:
		return "Não foi possível registrar a transação."
	}
}

// txYearMonth extracts the calendar month a transaction lands in. Dates that
// do not parse fall back to the current month so cache invalidation still
// hits something sensible.
func txYearMonth(d core.Date) (int, int) {
	t, err := time.Parse("2006-01-02", string(d))
	if err != nil {
		now := time.Now()
		return now.Year(), int(now.Month())
	}
	return t.Year(), int(t.Month())
}
