package services

import (
	"context"
	"fmt"
	"strings"

	"caixa/internal/core"
	"caixa/internal/report"
	"caixa/internal/store"
)

// TransactionService handles the bookkeeping operations for one user's
// transactions: the monthly ledger view, entry, removal and PDF export.
type TransactionService struct {
	store store.TransactionStore
}

func NewTransactionService(s store.TransactionStore) *TransactionService {
	return &TransactionService{store: s}
}

// MonthLedger is one month of transactions with its recomputed totals.
type MonthLedger struct {
	Transactions []core.Transaction
	Summary      core.Summary
}

// ListMonth returns the user's transactions for the calendar month, newest
// first, together with fresh totals.
func (s *TransactionService) ListMonth(ctx context.Context, userID string, year, month int) (MonthLedger, error) {
	if month < 1 || month > 12 {
		return MonthLedger{}, fmt.Errorf("invalid month %d", month)
	}

	start, end := core.MonthRange(year, month)
	txs, err := s.store.ListTransactions(ctx, userID, start, end)
	if err != nil {
		return MonthLedger{}, fmt.Errorf("list month: %w", err)
	}

	return MonthLedger{
		Transactions: txs,
		Summary:      core.Summarize(txs),
	}, nil
}

// AddInput carries the raw form fields for a new transaction.
type AddInput struct {
	Type        string
	Description string
	Amount      string
	Date        string
}

// Add parses and validates the form input and stores the transaction.
// Validation happens here, before any store call, so it holds for every
// backend.
func (s *TransactionService) Add(ctx context.Context, userID string, in AddInput) (core.Transaction, error) {
	txType := core.TransactionType(in.Type)
	if txType != core.Purchase && txType != core.Sale {
		return core.Transaction{}, core.ErrInvalidType
	}

	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	date := core.Date(in.Date)
	if date == "" {
		date = core.Today()
	}

	tx := core.Transaction{
		UserID:      userID,
		Type:        txType,
		Description: strings.TrimSpace(in.Description),
		Amount:      core.Money{Cents: cents},
		Date:        date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	return s.store.InsertTransaction(ctx, store.TransactionParams{
		UserID:      tx.UserID,
		Type:        tx.Type,
		Description: tx.Description,
		Amount:      tx.Amount,
		Date:        tx.Date,
	})
}

// Delete removes one of the user's transactions. Deleting someone else's
// transaction reports store.ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteTransaction(ctx, userID, id)
}

// Export renders the user's transactions for the requested period as a PDF.
// It returns report.ErrNoTransactions when the period is empty.
func (s *TransactionService) Export(ctx context.Context, userID string, p report.Params) (string, []byte, error) {
	if err := p.Validate(); err != nil {
		return "", nil, err
	}

	start, end := p.Range()
	txs, err := s.store.ListTransactions(ctx, userID, start, end)
	if err != nil {
		return "", nil, fmt.Errorf("export period: %w", err)
	}

	data, err := report.Build(p, txs)
	if err != nil {
		return "", nil, err
	}
	return p.FileName(), data, nil
}
