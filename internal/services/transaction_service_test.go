package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"caixa/internal/core"
	"caixa/internal/report"
	"caixa/internal/store"
	"caixa/internal/store/memory"
)

func newTransactionFixture(t *testing.T) (*TransactionService, string) {
	t.Helper()
	mem := memory.New()
	prof, _, err := mem.SignUp(context.Background(), store.SignUpParams{
		Email:    "u@example.com",
		Password: "secret",
		Name:     "User",
		Company:  "Cont. Anny",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	return NewTransactionService(mem), prof.ID
}

func TestTransactionService_AddParsesDecimalComma(t *testing.T) {
	svc, userID := newTransactionFixture(t)

	tx, err := svc.Add(context.Background(), userID, AddInput{
		Type:        "venda",
		Description: "  Venda de mercadoria  ",
		Amount:      "1234,56",
		Date:        "2024-03-10",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if tx.Amount.Cents != 123456 {
		t.Errorf("amount = %d cents, want 123456", tx.Amount.Cents)
	}
	if tx.Description != "Venda de mercadoria" {
		t.Errorf("description not trimmed: %q", tx.Description)
	}
	if tx.Type != core.Sale {
		t.Errorf("type = %v, want sale", tx.Type)
	}
}

func TestTransactionService_AddRejectsBadInput(t *testing.T) {
	svc, userID := newTransactionFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      AddInput
		wantErr error
	}{
		{
			name:    "unknown type",
			in:      AddInput{Type: "transferencia", Description: "x", Amount: "10,00", Date: "2024-03-10"},
			wantErr: core.ErrInvalidType,
		},
		{
			name:    "zero amount",
			in:      AddInput{Type: "compra", Description: "x", Amount: "0", Date: "2024-03-10"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unparseable amount",
			in:      AddInput{Type: "compra", Description: "x", Amount: "dez reais", Date: "2024-03-10"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "empty description",
			in:      AddInput{Type: "compra", Description: "   ", Amount: "10,00", Date: "2024-03-10"},
			wantErr: core.ErrEmptyDescription,
		},
		{
			name:    "malformed date",
			in:      AddInput{Type: "compra", Description: "x", Amount: "10,00", Date: "10/03/2024"},
			wantErr: core.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Add(ctx, userID, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionService_AddDefaultsDateToToday(t *testing.T) {
	svc, userID := newTransactionFixture(t)

	tx, err := svc.Add(context.Background(), userID, AddInput{
		Type: "compra", Description: "x", Amount: "10,00",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if tx.Date != core.Today() {
		t.Errorf("date = %s, want today", tx.Date)
	}
}

func TestTransactionService_ListMonthSummarizes(t *testing.T) {
	svc, userID := newTransactionFixture(t)
	ctx := context.Background()

	entries := []AddInput{
		{Type: "venda", Description: "Venda 1", Amount: "2500,00", Date: "2024-03-05"},
		{Type: "compra", Description: "Compra 1", Amount: "1000,00", Date: "2024-03-12"},
		{Type: "venda", Description: "Fora do mês", Amount: "50,00", Date: "2024-04-01"},
	}
	for _, in := range entries {
		if _, err := svc.Add(ctx, userID, in); err != nil {
			t.Fatalf("add %s: %v", in.Description, err)
		}
	}

	ledger, err := svc.ListMonth(ctx, userID, 2024, 3)
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if len(ledger.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(ledger.Transactions))
	}
	if ledger.Summary.TotalSales.Cents != 250000 {
		t.Errorf("total sales = %d, want 250000", ledger.Summary.TotalSales.Cents)
	}
	if ledger.Summary.Profit.Cents != 150000 {
		t.Errorf("profit = %d, want 150000", ledger.Summary.Profit.Cents)
	}

	if _, err := svc.ListMonth(ctx, userID, 2024, 13); err == nil {
		t.Error("month 13 should be rejected")
	}
}

func TestTransactionService_DeleteIsOwnerScoped(t *testing.T) {
	svc, userID := newTransactionFixture(t)
	ctx := context.Background()

	tx, err := svc.Add(ctx, userID, AddInput{Type: "venda", Description: "x", Amount: "10,00", Date: "2024-03-01"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.Delete(ctx, "someone-else", tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign delete: got %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, userID, tx.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestTransactionService_Export(t *testing.T) {
	svc, userID := newTransactionFixture(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, userID, AddInput{Type: "venda", Description: "Venda", Amount: "100,00", Date: "2024-03-05"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	name, data, err := svc.Export(ctx, userID, report.Params{Company: "Cont. Anny", Month: 3, Year: 2024})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if name != "relatorio-transacoes-03-2024.pdf" {
		t.Errorf("file name = %q", name)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("export payload is not a PDF")
	}

	if _, _, err := svc.Export(ctx, userID, report.Params{Month: 7, Year: 2024}); !errors.Is(err, report.ErrNoTransactions) {
		t.Fatalf("empty month export: got %v, want ErrNoTransactions", err)
	}
}
