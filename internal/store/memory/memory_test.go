package memory

import (
	"context"
	"errors"
	"testing"

	"caixa/internal/core"
	"caixa/internal/store"
)

func signUp(t *testing.T, s *Store, email, name string) (*core.Profile, store.Session) {
	t.Helper()
	prof, sess, err := s.SignUp(context.Background(), store.SignUpParams{
		Email:    email,
		Password: "secret",
		Name:     name,
		Company:  "Empresa",
		Phone:    "11 99999-0000",
	})
	if err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	return prof, sess
}

func TestSignUpAndSignIn(t *testing.T) {
	s := New()
	ctx := context.Background()

	prof, _ := signUp(t, s, "anny@example.com", "Anny")
	if prof.Approved || prof.Role != core.RoleUser {
		t.Fatalf("new profiles must start unapproved with user role, got %+v", prof)
	}

	if _, _, err := s.SignUp(ctx, store.SignUpParams{Email: "anny@example.com", Name: "Dup"}); !errors.Is(err, store.ErrEmailTaken) {
		t.Fatalf("duplicate sign up: got %v", err)
	}

	if _, _, err := s.SignIn(ctx, "anny@example.com", "wrong"); !errors.Is(err, store.ErrInvalidCredentials) {
		t.Fatalf("bad password: got %v", err)
	}
	got, sess, err := s.SignIn(ctx, "anny@example.com", "secret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if got.ID != prof.ID || sess.UserID != prof.ID {
		t.Fatalf("sign in returned wrong profile")
	}
}

func TestCurrentUserSeesFlagUpdates(t *testing.T) {
	s := New()
	ctx := context.Background()

	prof, sess := signUp(t, s, "u@example.com", "User")
	if err := s.UpdateProfile(ctx, prof.ID, store.ProfileUpdate{Approved: store.Bool(true)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	cur, err := s.CurrentUser(ctx, sess)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if !cur.Approved {
		t.Fatalf("current user should see the fresh approved flag")
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	prof, _ := signUp(t, s, "u@example.com", "User")

	for i := 0; i < 2; i++ {
		if err := s.UpdateProfile(ctx, prof.ID, store.ProfileUpdate{Approved: store.Bool(true)}); err != nil {
			t.Fatalf("approve attempt %d: %v", i+1, err)
		}
		got, err := s.GetProfile(ctx, prof.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Approved {
			t.Fatalf("attempt %d: approved flag not set", i+1)
		}
	}
}

func TestCountPending(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.SeedAdmin("admin@example.com", "secret", "Admin")
	signUp(t, s, "a@example.com", "A")
	b, _ := signUp(t, s, "b@example.com", "B")

	if n, _ := s.CountPending(ctx); n != 2 {
		t.Fatalf("got %d pending, want 2", n)
	}
	if err := s.UpdateProfile(ctx, b.ID, store.ProfileUpdate{Approved: store.Bool(true)}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if n, _ := s.CountPending(ctx); n != 1 {
		t.Fatalf("got %d pending after approval, want 1", n)
	}
}

func TestDeleteProfile(t *testing.T) {
	s := New()
	ctx := context.Background()
	prof, _ := signUp(t, s, "u@example.com", "User")

	if err := s.DeleteProfile(ctx, prof.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetProfile(ctx, prof.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted profile still readable: %v", err)
	}
	if err := s.DeleteProfile(ctx, prof.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func TestTransactionMonthRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	prof, _ := signUp(t, s, "u@example.com", "User")

	_, err := s.InsertTransaction(ctx, store.TransactionParams{
		UserID:      prof.ID,
		Type:        core.Sale,
		Description: "Widget",
		Amount:      core.Money{Cents: 15000},
		Date:        core.Date("2024-03-15"),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	start, end := core.MonthRange(2024, 3)
	got, err := s.ListTransactions(ctx, prof.ID, start, end)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Description != "Widget" {
		t.Fatalf("march fetch: got %+v", got)
	}

	start, end = core.MonthRange(2024, 4)
	got, err = s.ListTransactions(ctx, prof.ID, start, end)
	if err != nil {
		t.Fatalf("list april: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("april fetch should be empty, got %d", len(got))
	}
}

func TestTransactionsScopedToOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := signUp(t, s, "a@example.com", "A")
	b, _ := signUp(t, s, "b@example.com", "B")

	tx, err := s.InsertTransaction(ctx, store.TransactionParams{
		UserID: a.ID, Type: core.Purchase, Description: "Caixa", Amount: core.Money{Cents: 100}, Date: core.Date("2024-03-01"),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	start, end := core.MonthRange(2024, 3)
	got, _ := s.ListTransactions(ctx, b.ID, start, end)
	if len(got) != 0 {
		t.Fatalf("b should not see a's transactions")
	}
	if err := s.DeleteTransaction(ctx, b.ID, tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("b deleting a's transaction: got %v", err)
	}
	if err := s.DeleteTransaction(ctx, a.ID, tx.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestListTransactionsOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	prof, _ := signUp(t, s, "u@example.com", "User")

	for _, d := range []core.Date{"2024-03-05", "2024-03-20", "2024-03-11"} {
		if _, err := s.InsertTransaction(ctx, store.TransactionParams{
			UserID: prof.ID, Type: core.Sale, Description: "x", Amount: core.Money{Cents: 100}, Date: d,
		}); err != nil {
			t.Fatalf("insert %s: %v", d, err)
		}
	}

	start, end := core.MonthRange(2024, 3)
	got, _ := s.ListTransactions(ctx, prof.ID, start, end)
	want := []core.Date{"2024-03-20", "2024-03-11", "2024-03-05"}
	for i, tx := range got {
		if tx.Date != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, tx.Date, want[i])
		}
	}
}
