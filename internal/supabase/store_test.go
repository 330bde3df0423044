package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"caixa/internal/core"
	"caixa/internal/services"
	"caixa/internal/store"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{URL: srv.URL, APIKey: "anon-key", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return NewStore(client)
}

func TestSignInMapsInvalidCredentials(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
	})

	_, _, err := s.SignIn(context.Background(), "maria@example.com", "errada")
	if !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignUpMapsEmailTaken(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"User already registered"}`))
	})

	_, _, err := s.SignUp(context.Background(), store.SignUpParams{
		Email: "maria@example.com", Password: "senha123", Name: "Maria",
	})
	if !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestSignUpSendsProfileMetadata(t *testing.T) {
	var got map[string]any
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("missing apikey header")
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":"u1","email":"maria@example.com"}}`))
	})

	prof, sess, err := s.SignUp(context.Background(), store.SignUpParams{
		Email: "maria@example.com", Password: "senha123",
		Name: "Maria", Company: "Mercearia", Phone: "11 99999-0000",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if sess.AccessToken != "tok" || prof.ID != "u1" {
		t.Fatalf("prof %+v sess %+v", prof, sess)
	}

	meta, _ := got["data"].(map[string]any)
	if meta["nome"] != "Maria" || meta["empresa"] != "Mercearia" {
		t.Fatalf("metadata = %v", meta)
	}
	if meta["approved"] != false {
		t.Fatal("new accounts must sign up unapproved")
	}
}

func TestGetProfileNotFound(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	_, err := s.GetProfile(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCountPendingUsesContentRange(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if prefer := r.Header.Get("Prefer"); prefer != "count=exact" {
			t.Errorf("Prefer = %q, want count=exact", prefer)
		}
		q := r.URL.Query()
		if q.Get("approved") != "eq.false" || q.Get("role") != "neq.admin" {
			t.Errorf("unexpected filters: %v", q)
		}
		w.Header().Set("Content-Range", "0-0/7")
		_, _ = w.Write([]byte(`[{"id":"u1"}]`))
	})

	n, err := s.CountPending(context.Background())
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if n != 7 {
		t.Fatalf("count = %d, want 7", n)
	}
}

func TestListTransactionsConvertsReaisToCents(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("date") == "" {
			t.Errorf("missing date filters: %v", q)
		}
		if q.Get("order") != "date.desc" {
			t.Errorf("order = %q", q.Get("order"))
		}
		_, _ = w.Write([]byte(`[
			{"id":"t1","user_id":"u1","type":"venda","description":"Venda","amount":150.5,"date":"2024-03-10","created_at":"2024-03-10T12:00:00Z"},
			{"id":"t2","user_id":"u1","type":"compra","description":"Estoque","amount":80,"date":"2024-03-05","created_at":"2024-03-05T09:30:00Z"}
		]`))
	})

	txs, err := s.ListTransactions(context.Background(), "u1", core.Date("2024-03-01"), core.Date("2024-03-31"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len = %d", len(txs))
	}
	if txs[0].Amount.Cents != 15050 {
		t.Fatalf("first amount = %d cents, want 15050", txs[0].Amount.Cents)
	}
	if txs[1].Type != core.Purchase || txs[1].Amount.Cents != 8000 {
		t.Fatalf("second tx = %+v", txs[1])
	}
}

func TestInsertTransactionSendsReais(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		var rows []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil || len(rows) != 1 {
			t.Errorf("bad insert body: %v", err)
		}
		if rows[0]["amount"] != 123.45 {
			t.Errorf("amount = %v, want 123.45", rows[0]["amount"])
		}
		_, _ = fmt.Fprintf(w, `[{"id":"t1","user_id":"u1","type":"venda","description":"Venda","amount":123.45,"date":"2024-03-10"}]`)
	})

	tx, err := s.InsertTransaction(context.Background(), store.TransactionParams{
		UserID: "u1", Type: core.Sale, Description: "Venda",
		Amount: core.Money{Cents: 12345}, Date: core.Date("2024-03-10"),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if tx.ID != "t1" || tx.Amount.Cents != 12345 {
		t.Fatalf("tx = %+v", tx)
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	err := s.DeleteTransaction(context.Background(), "u1", "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTransactionScopesToOwner(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("id") != "eq.t1" || q.Get("user_id") != "eq.u1" {
			t.Errorf("delete filters = %v", q)
		}
		_, _ = w.Write([]byte(`[{"id":"t1"}]`))
	})

	if err := s.DeleteTransaction(context.Background(), "u1", "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestAddValidatesBeforeNetworkInsert(t *testing.T) {
	requests := 0
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`[]`))
	})
	svc := services.NewTransactionService(s)

	tests := []struct {
		name    string
		in      services.AddInput
		wantErr error
	}{
		{
			name:    "blank description",
			in:      services.AddInput{Type: "venda", Description: "   ", Amount: "10,00", Date: "2024-03-10"},
			wantErr: core.ErrEmptyDescription,
		},
		{
			name:    "malformed date",
			in:      services.AddInput{Type: "venda", Description: "Venda", Amount: "10,00", Date: "bad"},
			wantErr: core.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), "u1", tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Add() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if requests != 0 {
		t.Fatalf("invalid input reached the backend: %d requests", requests)
	}
}

func TestCurrentUserMapsExpiredToken(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"JWT expired"}`))
	})

	_, err := s.CurrentUser(context.Background(), store.Session{UserID: "u1", AccessToken: "stale"})
	if !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}
