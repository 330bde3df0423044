package store

import (
	"context"
	"errors"

	"caixa/internal/core"
)

// Errors shared by every store implementation. Callers branch with
// errors.Is and surface the condition inline instead of crashing the view.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotFound           = errors.New("record not found")
)

// SignUpParams carries the profile fields collected on the sign-up form.
// New profiles always start unapproved with the regular user role.
type SignUpParams struct {
	Email    string
	Password string
	Name     string
	Company  string
	Phone    string
}

// Session identifies an authenticated store session.
type Session struct {
	UserID      string
	AccessToken string
}

// TransactionParams carries the fields for a new transaction entry.
type TransactionParams struct {
	UserID      string
	Type        core.TransactionType
	Description string
	Amount      core.Money
	Date        core.Date
}

// Ports for outbound store adapters. All calls are network-fallible.
type (
	AuthStore interface {
		SignUp(ctx context.Context, p SignUpParams) (*core.Profile, Session, error)
		SignIn(ctx context.Context, email, password string) (*core.Profile, Session, error)
		SignOut(ctx context.Context, s Session) error
		// CurrentUser re-reads the up-to-date profile for an existing session.
		CurrentUser(ctx context.Context, s Session) (*core.Profile, error)
	}

	ProfileStore interface {
		// ListProfiles returns every profile ordered by display name ascending.
		ListProfiles(ctx context.Context) ([]core.Profile, error)
		GetProfile(ctx context.Context, id string) (*core.Profile, error)
		UpdateProfile(ctx context.Context, id string, u ProfileUpdate) error
		// DeleteProfile removes the profile record entirely. Irreversible.
		DeleteProfile(ctx context.Context, id string) error
		// CountPending counts unapproved non-admin profiles.
		CountPending(ctx context.Context) (int, error)
	}

	TransactionStore interface {
		// ListTransactions returns the user's transactions with date in
		// [start, end] inclusive, ordered by date descending.
		ListTransactions(ctx context.Context, userID string, start, end core.Date) ([]core.Transaction, error)
		InsertTransaction(ctx context.Context, p TransactionParams) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
	}
)

// ProfileUpdate is a partial update of the admin-managed profile flags.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Approved *bool
	Paused   *bool
}

// Bool is a convenience for building ProfileUpdate values.
func Bool(v bool) *bool { return &v }
