package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Purchase TransactionType = "compra"
	Sale     TransactionType = "venda"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Profile is the stored record of a user's metadata, distinct from
	// the authentication credential record held by the auth backend.
	Profile struct {
		ID       string
		Email    string
		Name     string
		Company  string
		Phone    string
		Approved bool
		Paused   bool
		Role     string
	}

	// Transaction is a single purchase or sale entry. Transactions are
	// created and deleted by their owning user, never updated in place.
	Transaction struct {
		ID          string
		UserID      string
		Type        TransactionType
		Description string
		Amount      Money
		Date        Date
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyEmail       = errors.New("empty email")
)

func (t TransactionType) Valid() bool {
	return t == Purchase || t == Sale
}

// Label returns the user-facing label for the transaction type.
func (t TransactionType) Label() string {
	if t == Sale {
		return "Venda"
	}
	return "Compra"
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsAdmin reports whether the profile carries the administrator role.
func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsActive reports whether the profile may use the main application:
// admins always, regular users once approved.
func (p Profile) IsActive() bool {
	return p.IsAdmin() || p.Approved
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return ErrEmptyEmail
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	return nil
}
