package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"caixa/internal/core"
	"caixa/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "caixa.db"), []byte("test-secret"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSignUpSignInRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	prof, sess, err := s.SignUp(ctx, store.SignUpParams{
		Email:    "anny@example.com",
		Password: "secret",
		Name:     "Anny",
		Company:  "Cont. Anny",
		Phone:    "11 99999-0000",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if prof.Approved || prof.Role != core.RoleUser {
		t.Fatalf("new account must start unapproved user, got %+v", prof)
	}
	if sess.AccessToken == "" {
		t.Fatalf("sign up should mint an access token")
	}

	if _, _, err := s.SignUp(ctx, store.SignUpParams{Email: "ANNY@example.com", Password: "x", Name: "Dup"}); !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("duplicate email (case-insensitive): got %v", err)
	}

	if _, _, err := s.SignIn(ctx, "anny@example.com", "wrong"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	got, sess, err := s.SignIn(ctx, "anny@example.com", "secret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if got.ID != prof.ID {
		t.Fatalf("sign in returned wrong account")
	}

	cur, err := s.CurrentUser(ctx, sess)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if cur.ID != prof.ID {
		t.Fatalf("token does not resolve to the signed-in account")
	}
}

func TestCurrentUserRejectsBadToken(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CurrentUser(context.Background(), store.Session{AccessToken: "not-a-jwt"})
	if !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("got %v", err)
	}
}

func TestProfileFlagsAndPendingCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SeedAdmin(ctx, "admin@example.com", "secret", "Admin"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	// seeding twice is a no-op
	if err := s.SeedAdmin(ctx, "admin@example.com", "other", "Admin"); err != nil {
		t.Fatalf("re-seed admin: %v", err)
	}

	prof, _, err := s.SignUp(ctx, store.SignUpParams{Email: "u@example.com", Password: "x", Name: "User"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if n, _ := s.CountPending(ctx); n != 1 {
		t.Fatalf("pending count: got %d, want 1", n)
	}

	// approve twice: idempotent, no error either time
	for i := 0; i < 2; i++ {
		if err := s.UpdateProfile(ctx, prof.ID, store.ProfileUpdate{Approved: store.Bool(true)}); err != nil {
			t.Fatalf("approve attempt %d: %v", i+1, err)
		}
	}
	if n, _ := s.CountPending(ctx); n != 0 {
		t.Fatalf("pending after approval: got %d", n)
	}

	if err := s.UpdateProfile(ctx, prof.ID, store.ProfileUpdate{Paused: store.Bool(true)}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	got, _ := s.GetProfile(ctx, prof.ID)
	if !got.Paused || !got.Approved {
		t.Fatalf("flags lost: %+v", got)
	}

	if err := s.UpdateProfile(ctx, "missing", store.ProfileUpdate{Approved: store.Bool(true)}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update missing: got %v", err)
	}
}

func TestTransactionsCascadeOnAccountDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	prof, _, err := s.SignUp(ctx, store.SignUpParams{Email: "u@example.com", Password: "x", Name: "User"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := s.InsertTransaction(ctx, store.TransactionParams{
		UserID: prof.ID, Type: core.Sale, Description: "Widget",
		Amount: core.Money{Cents: 15000}, Date: core.Date("2024-03-15"),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.DeleteProfile(ctx, prof.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}

	start, end := core.MonthRange(2024, 3)
	txs, err := s.ListTransactions(ctx, prof.ID, start, end)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("transactions should cascade with the account, got %d", len(txs))
	}
}

func TestListTransactionsMonthWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	prof, _, err := s.SignUp(ctx, store.SignUpParams{Email: "u@example.com", Password: "x", Name: "User"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	for _, d := range []core.Date{"2024-03-01", "2024-03-15", "2024-04-01"} {
		if _, err := s.InsertTransaction(ctx, store.TransactionParams{
			UserID: prof.ID, Type: core.Purchase, Description: "x",
			Amount: core.Money{Cents: 100}, Date: d,
		}); err != nil {
			t.Fatalf("insert %s: %v", d, err)
		}
	}

	start, end := core.MonthRange(2024, 3)
	txs, err := s.ListTransactions(ctx, prof.ID, start, end)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("march window: got %d, want 2", len(txs))
	}
	if txs[0].Date != core.Date("2024-03-15") {
		t.Fatalf("ordering: got %s first", txs[0].Date)
	}
}
