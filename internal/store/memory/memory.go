// Package memory provides an in-memory store used as the default
// development backend and as the in-process fake in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"caixa/internal/core"
	"caixa/internal/store"
)

type account struct {
	profile  core.Profile
	password string
}

type Store struct {
	mu       sync.Mutex
	accounts map[string]*account // keyed by profile ID
	txs      map[string]core.Transaction
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*account),
		txs:      make(map[string]core.Transaction),
	}
}

// SeedAdmin registers an administrator account if the email is not taken.
// Used at startup so a fresh deployment always has a usable admin.
func (s *Store) SeedAdmin(email, password, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByEmailLocked(email) != nil {
		return
	}
	id := uuid.NewString()
	s.accounts[id] = &account{
		profile: core.Profile{
			ID:       id,
			Email:    email,
			Name:     name,
			Approved: true,
			Role:     core.RoleAdmin,
		},
		password: password,
	}
}

func (s *Store) SignUp(_ context.Context, p store.SignUpParams) (*core.Profile, store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByEmailLocked(p.Email) != nil {
		return nil, store.Session{}, store.ErrEmailTaken
	}

	id := uuid.NewString()
	acc := &account{
		profile: core.Profile{
			ID:      id,
			Email:   p.Email,
			Name:    p.Name,
			Company: p.Company,
			Phone:   p.Phone,
			Role:    core.RoleUser,
		},
		password: p.Password,
	}
	s.accounts[id] = acc

	prof := acc.profile
	return &prof, store.Session{UserID: id, AccessToken: uuid.NewString()}, nil
}

func (s *Store) SignIn(_ context.Context, email, password string) (*core.Profile, store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.findByEmailLocked(email)
	if acc == nil || acc.password != password {
		return nil, store.Session{}, store.ErrInvalidCredentials
	}
	prof := acc.profile
	return &prof, store.Session{UserID: prof.ID, AccessToken: uuid.NewString()}, nil
}

func (s *Store) SignOut(context.Context, store.Session) error {
	return nil
}

func (s *Store) CurrentUser(_ context.Context, sess store.Session) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[sess.UserID]
	if !ok {
		return nil, store.ErrNotFound
	}
	prof := acc.profile
	return &prof, nil
}

func (s *Store) ListProfiles(context.Context) ([]core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Profile, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc.profile)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetProfile(_ context.Context, id string) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	prof := acc.profile
	return &prof, nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, u store.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	if u.Approved != nil {
		acc.profile.Approved = *u.Approved
	}
	if u.Paused != nil {
		acc.profile.Paused = *u.Paused
	}
	return nil
}

func (s *Store) DeleteProfile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) CountPending(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, acc := range s.accounts {
		if acc.profile.IsPending() {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, start, end core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.UserID != userID {
			continue
		}
		if !tx.Date.InRange(start, end) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[j].Date.Before(out[i].Date) // date descending
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) InsertTransaction(_ context.Context, p store.TransactionParams) (core.Transaction, error) {
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		Type:        p.Type,
		Description: p.Description,
		Amount:      p.Amount,
		Date:        p.Date,
		CreatedAt:   time.Now(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok || tx.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) findByEmailLocked(email string) *account {
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.profile.Email, email) {
			return acc
		}
	}
	return nil
}
