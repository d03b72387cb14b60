// Package streak records per-account activity streaks keyed off asset
// ownership. It reads the registry but never mutates it.
package streak

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fotobook/nft-engine/internal/model"
	"github.com/fotobook/nft-engine/internal/registry"
	"github.com/fotobook/nft-engine/internal/store"
)

var (
	// ErrNotEligible is returned when the account owns no assets.
	ErrNotEligible = errors.New("streak: account owns no assets")

	// ErrUnauthorized is returned when a privileged operation is called
	// by anyone other than the admin account.
	ErrUnauthorized = errors.New("streak: unauthorized")

	// ErrNotConfigured is returned before the registry reference is wired.
	ErrNotConfigured = errors.New("streak: registry not configured")
)

// Service tracks activity streaks. Within one interval of the last recorded
// activity the count is unchanged; between one and two intervals it
// increments; any longer gap resets it to 1.
type Service struct {
	store    store.Store
	admin    string
	interval time.Duration
	clock    func() time.Time

	mu       sync.Mutex
	registry *registry.Service
}

// NewService creates a streak tracker. reg may be nil; wire it later through
// UpdateNftContract. clock may be nil for wall-clock time.
func NewService(st store.Store, admin string, interval time.Duration, reg *registry.Service, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Service{
		store:    st,
		admin:    admin,
		interval: interval,
		clock:    clock,
		registry: reg,
	}
}

// RecordActivity updates the account's streak. The account must own at
// least one asset in the registry to accrue.
func (s *Service) RecordActivity(ctx context.Context, account string) (*model.Streak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry == nil {
		return nil, ErrNotConfigured
	}

	owned, err := s.registry.OwnedCount(ctx, account)
	if err != nil {
		return nil, err
	}
	if owned == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotEligible, account)
	}

	now := s.clock().UTC()

	current, err := s.store.GetStreak(ctx, account)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	next := &model.Streak{Account: account, Count: 1, LastActivity: now}
	if current != nil {
		gap := now.Sub(current.LastActivity)
		switch {
		case gap <= s.interval:
			// Same interval: count holds, timestamp advances.
			next.Count = current.Count
		case gap <= 2*s.interval:
			next.Count = current.Count + 1
		default:
			next.Count = 1
		}
	}

	if err := s.store.UpsertStreak(ctx, next); err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}

	slog.Info("activity recorded", "account", account, "streak", next.Count)
	return next, nil
}

// Top returns the n highest streaks.
func (s *Service) Top(ctx context.Context, n int) ([]model.Streak, error) {
	if n <= 0 {
		n = 10
	}
	return s.store.TopStreaks(ctx, n)
}

// UpdateNftContract re-points the registry reference used for eligibility
// checks. Privileged; recorded streaks are unaffected.
func (s *Service) UpdateNftContract(caller string, reg *registry.Service) error {
	if caller != s.admin {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	s.mu.Lock()
	s.registry = reg
	s.mu.Unlock()

	slog.Info("nft contract updated")
	return nil
}
