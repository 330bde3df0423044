package supabase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"caixa/internal/core"
	"caixa/internal/store"
)

// Store implements the store ports over a Supabase project.
type Store struct {
	client *Client
}

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// profileRow mirrors the profiles table. Column names follow the project's
// pt-BR schema.
type profileRow struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Nome     string `json:"nome"`
	Empresa  string `json:"empresa"`
	Celular  string `json:"celular"`
	Approved bool   `json:"approved"`
	Paused   bool   `json:"paused"`
	Role     string `json:"role"`
}

// transactionRow mirrors the transactions table. Amounts are stored as a
// numeric value in reais; the application works in cents.
type transactionRow struct {
	ID          string  `json:"id,omitempty"`
	UserID      string  `json:"user_id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

func (r profileRow) toProfile() core.Profile {
	return core.Profile{
		ID:       r.ID,
		Email:    r.Email,
		Name:     r.Nome,
		Company:  r.Empresa,
		Phone:    r.Celular,
		Approved: r.Approved,
		Paused:   r.Paused,
		Role:     r.Role,
	}
}

func (r transactionRow) toTransaction() core.Transaction {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return core.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        core.TransactionType(r.Type),
		Description: r.Description,
		Amount:      core.Money{Cents: int64(math.Round(r.Amount * 100))},
		Date:        core.Date(r.Date),
		CreatedAt:   created,
	}
}

func (s *Store) SignUp(ctx context.Context, p store.SignUpParams) (*core.Profile, store.Session, error) {
	auth, err := s.client.signUp(ctx, p.Email, p.Password, map[string]any{
		"nome":     p.Name,
		"empresa":  p.Company,
		"celular":  p.Phone,
		"approved": false,
		"role":     core.RoleUser,
	})
	if err != nil {
		return nil, store.Session{}, mapAuthError(err)
	}

	sess := store.Session{UserID: auth.User.ID, AccessToken: auth.AccessToken}
	prof := core.Profile{
		ID:      auth.User.ID,
		Email:   auth.User.Email,
		Name:    p.Name,
		Company: p.Company,
		Phone:   p.Phone,
		Role:    core.RoleUser,
	}
	return &prof, sess, nil
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*core.Profile, store.Session, error) {
	auth, err := s.client.signIn(ctx, email, password)
	if err != nil {
		return nil, store.Session{}, mapAuthError(err)
	}

	sess := store.Session{UserID: auth.User.ID, AccessToken: auth.AccessToken}
	prof, err := s.fetchProfile(ctx, auth.User.ID)
	if err != nil {
		return nil, store.Session{}, err
	}
	prof.Email = auth.User.Email
	return prof, sess, nil
}

func (s *Store) SignOut(ctx context.Context, sess store.Session) error {
	if err := s.client.signOut(ctx, sess.AccessToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (s *Store) CurrentUser(ctx context.Context, sess store.Session) (*core.Profile, error) {
	user, err := s.client.currentUser(ctx, sess.AccessToken)
	if err != nil {
		return nil, mapAuthError(err)
	}
	prof, err := s.fetchProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	prof.Email = user.Email
	return prof, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	var rows []profileRow
	err := s.client.From("profiles").
		Select("*").
		Order("nome", true).
		Get(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	out := make([]core.Profile, len(rows))
	for i, r := range rows {
		out[i] = r.toProfile()
	}
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*core.Profile, error) {
	var row profileRow
	err := s.client.From("profiles").
		Select("*").
		Eq("id", id).
		Single().
		Get(ctx, &row)
	if err != nil {
		if isStatus(err, http.StatusNotAcceptable) || isStatus(err, http.StatusNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	prof := row.toProfile()
	return &prof, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, u store.ProfileUpdate) error {
	fields := map[string]any{}
	if u.Approved != nil {
		fields["approved"] = *u.Approved
	}
	if u.Paused != nil {
		fields["paused"] = *u.Paused
	}
	if len(fields) == 0 {
		return nil
	}

	err := s.client.From("profiles").Eq("id", id).Update(ctx, fields)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	n, err := s.client.From("profiles").Eq("id", id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Profile deleted", "id", id)
	return nil
}

func (s *Store) CountPending(ctx context.Context) (int, error) {
	n, err := s.client.From("profiles").
		Select("id").
		Eq("approved", false).
		Neq("role", core.RoleAdmin).
		GetCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count pending profiles: %w", err)
	}
	return n, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, start, end core.Date) ([]core.Transaction, error) {
	var rows []transactionRow
	err := s.client.From("transactions").
		Select("*").
		Eq("user_id", userID).
		Gte("date", string(start)).
		Lte("date", string(end)).
		Order("date", false).
		Get(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.toTransaction()
	}
	return out, nil
}

func (s *Store) InsertTransaction(ctx context.Context, p store.TransactionParams) (core.Transaction, error) {
	row := transactionRow{
		UserID:      p.UserID,
		Type:        string(p.Type),
		Description: p.Description,
		Amount:      float64(p.Amount.Cents) / 100.0,
		Date:        string(p.Date),
	}

	var inserted []transactionRow
	err := s.client.From("transactions").Insert(ctx, []transactionRow{row}, &inserted)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if len(inserted) == 0 {
		return core.Transaction{}, fmt.Errorf("insert transaction: empty representation")
	}
	return inserted[0].toTransaction(), nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	n, err := s.client.From("transactions").
		Eq("id", id).
		Eq("user_id", userID).
		Delete(ctx)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) fetchProfile(ctx context.Context, userID string) (*core.Profile, error) {
	prof, err := s.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Profile row may lag the auth record right after sign-up.
			return &core.Profile{ID: userID, Role: core.RoleUser}, nil
		}
		return nil, err
	}
	return prof, nil
}

// mapAuthError translates GoTrue failures onto the shared store errors.
func mapAuthError(err error) error {
	switch StatusOf(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", store.ErrInvalidCredentials, err.Error())
	case http.StatusUnprocessableEntity, http.StatusConflict:
		return fmt.Errorf("%w: %s", store.ErrEmailTaken, err.Error())
	}
	return err
}

func isStatus(err error, status int) bool {
	return StatusOf(err) == status
}
