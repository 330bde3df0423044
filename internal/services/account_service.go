package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"caixa/internal/amqp"
	"caixa/internal/core"
	"caixa/internal/store"
)

// AccountStore is the slice of the backend the account service needs.
type AccountStore interface {
	store.AuthStore
	store.ProfileStore
}

// AccountService orchestrates account lifecycle operations across the store
// and the optional AMQP event stream.
type AccountService struct {
	store      AccountStore
	amqpClient *amqp.Client
}

func NewAccountService(s AccountStore, amqpClient *amqp.Client) *AccountService {
	return &AccountService{
		store:      s,
		amqpClient: amqpClient,
	}
}

// SignUp creates a new unapproved account and signs it in.
func (s *AccountService) SignUp(ctx context.Context, p store.SignUpParams) (*core.Profile, store.Session, error) {
	prof, sess, err := s.store.SignUp(ctx, p)
	if err != nil {
		return nil, store.Session{}, err
	}

	s.publishEvent(ctx, prof.ID, prof.Email, amqp.ActionSignedUp)
	return prof, sess, nil
}

func (s *AccountService) SignIn(ctx context.Context, email, password string) (*core.Profile, store.Session, error) {
	return s.store.SignIn(ctx, email, password)
}

func (s *AccountService) SignOut(ctx context.Context, sess store.Session) error {
	return s.store.SignOut(ctx, sess)
}

func (s *AccountService) CurrentUser(ctx context.Context, sess store.Session) (*core.Profile, error) {
	return s.store.CurrentUser(ctx, sess)
}

// Roster fetches every profile and partitions it for the admin dashboard.
// Admin mutations re-fetch through here rather than patching in place.
func (s *AccountService) Roster(ctx context.Context) (core.Roster, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return core.Roster{}, fmt.Errorf("list profiles: %w", err)
	}
	return core.PartitionRoster(profiles), nil
}

func (s *AccountService) PendingCount(ctx context.Context) (int, error) {
	return s.store.CountPending(ctx)
}

// NewPendingWatcher builds a watcher polling this service's store.
func (s *AccountService) NewPendingWatcher(interval time.Duration) *PendingWatcher {
	return NewPendingWatcher(s.store, interval)
}

// Approve grants a pending account access. Approving an already-approved
// account is a no-op.
func (s *AccountService) Approve(ctx context.Context, id string) error {
	prof, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return fmt.Errorf("approve account: %w", err)
	}

	if err := s.store.UpdateProfile(ctx, id, store.ProfileUpdate{Approved: store.Bool(true)}); err != nil {
		return fmt.Errorf("approve account: %w", err)
	}

	s.publishEvent(ctx, prof.ID, prof.Email, amqp.ActionApproved)
	return nil
}

// Reject removes a pending account and everything it owns.
func (s *AccountService) Reject(ctx context.Context, id string) error {
	return s.remove(ctx, id, amqp.ActionRejected)
}

// TogglePause flips the pause flag relative to the state the admin observed,
// so a stale row cannot silently re-apply the same transition.
func (s *AccountService) TogglePause(ctx context.Context, id string, observedPaused bool) error {
	prof, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return fmt.Errorf("toggle pause: %w", err)
	}
	if prof.IsAdmin() {
		return fmt.Errorf("toggle pause: admin accounts cannot be paused")
	}

	next := !observedPaused
	if err := s.store.UpdateProfile(ctx, id, store.ProfileUpdate{Paused: store.Bool(next)}); err != nil {
		return fmt.Errorf("toggle pause: %w", err)
	}

	action := amqp.ActionResumed
	if next {
		action = amqp.ActionPaused
	}
	s.publishEvent(ctx, prof.ID, prof.Email, action)
	return nil
}

// Terminate removes an active account and everything it owns.
func (s *AccountService) Terminate(ctx context.Context, id string) error {
	return s.remove(ctx, id, amqp.ActionTerminated)
}

func (s *AccountService) remove(ctx context.Context, id, action string) error {
	prof, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return fmt.Errorf("remove account: %w", err)
	}
	if prof.IsAdmin() {
		return fmt.Errorf("remove account: admin accounts cannot be removed")
	}

	if err := s.store.DeleteProfile(ctx, id); err != nil {
		return fmt.Errorf("remove account: %w", err)
	}

	s.publishEvent(ctx, prof.ID, prof.Email, action)
	return nil
}

func (s *AccountService) publishEvent(ctx context.Context, userID, email, action string) {
	if s.amqpClient == nil {
		return
	}
	// Events are best-effort; the store mutation already succeeded.
	if err := s.amqpClient.PublishAccountEvent(ctx, userID, email, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish account event",
			"user_id", userID, "action", action, "error", err)
	}
}
