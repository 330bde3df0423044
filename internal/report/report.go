// Package report builds downloadable PDF period reports from a user's
// transactions.
package report

import (
	"errors"
	"fmt"

	"caixa/internal/core"
)

// ErrNoTransactions is returned when the requested period has nothing to
// report; no file is produced.
var ErrNoTransactions = errors.New("no transactions in the requested period")

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// Params selects the reporting period. Either Month/Year or Start/End is
// set; Start/End wins when both are present.
type Params struct {
	Company string

	Month int
	Year  int

	Start core.Date
	End   core.Date
}

func (p Params) isRange() bool {
	return p.Start != "" && p.End != ""
}

// Range returns the inclusive date window the report covers.
func (p Params) Range() (core.Date, core.Date) {
	if p.isRange() {
		return p.Start, p.End
	}
	return core.MonthRange(p.Year, p.Month)
}

// Title names the period in the report heading.
func (p Params) Title() string {
	if p.isRange() {
		return fmt.Sprintf("Relatório de Transações - %s a %s", p.Start.Display(), p.End.Display())
	}
	return fmt.Sprintf("Relatório de Transações - %s/%d", monthNames[p.Month-1], p.Year)
}

// FileName returns the deterministic download name for the period.
func (p Params) FileName() string {
	if p.isRange() {
		return fmt.Sprintf("relatorio-%s-a-%s.pdf", p.Start, p.End)
	}
	return fmt.Sprintf("relatorio-transacoes-%02d-%d.pdf", p.Month, p.Year)
}

// Validate checks that the params identify a usable period.
func (p Params) Validate() error {
	if p.isRange() {
		if err := p.Start.Validate(); err != nil {
			return err
		}
		if err := p.End.Validate(); err != nil {
			return err
		}
		if p.End.Before(p.Start) {
			return fmt.Errorf("period end %s precedes start %s", p.End, p.Start)
		}
		return nil
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("invalid month %d", p.Month)
	}
	if p.Year < 1 {
		return fmt.Errorf("invalid year %d", p.Year)
	}
	return nil
}

// Filter keeps the transactions inside the params' inclusive window.
func Filter(p Params, txs []core.Transaction) []core.Transaction {
	start, end := p.Range()
	var out []core.Transaction
	for _, tx := range txs {
		if tx.Date.InRange(start, end) {
			out = append(out, tx)
		}
	}
	return out
}

// Build filters the transactions to the period and renders the PDF.
// It returns ErrNoTransactions when the period is empty.
func Build(p Params, txs []core.Transaction) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rows := Filter(p, txs)
	if len(rows) == 0 {
		return nil, ErrNoTransactions
	}

	return buildPDF(p, rows, core.Summarize(rows))
}
