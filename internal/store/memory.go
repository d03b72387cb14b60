package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fotobook/nft-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     uint64
	assets     map[uint64]*model.Asset
	ledger     []model.TransferRecord
	auctions   map[uint64]*model.Auction
	listings   map[uint64]*model.Listing
	currencies map[string]bool
	streaks    map[string]*model.Streak
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:     make(map[uint64]*model.Asset),
		auctions:   make(map[uint64]*model.Auction),
		listings:   make(map[uint64]*model.Listing),
		currencies: make(map[string]bool),
		streaks:    make(map[string]*model.Streak),
	}
}

func (s *MemoryStore) NextAssetID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	return s.nextID, nil
}

func (s *MemoryStore) CreateAsset(_ context.Context, a *model.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[a.ID]; ok {
		return fmt.Errorf("asset %d already exists", a.ID)
	}

	// Store a copy to avoid external mutation.
	copy := *a
	s.assets[a.ID] = &copy
	return nil
}

func (s *MemoryStore) GetAsset(_ context.Context, id uint64) (*model.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) UpdateAssetOwner(_ context.Context, id uint64, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[id]
	if !ok {
		return fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	a.Owner = owner
	return nil
}

func (s *MemoryStore) UpdateAssetVisibility(_ context.Context, id uint64, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[id]
	if !ok {
		return fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	a.Public = public
	return nil
}

func (s *MemoryStore) CountAssetsByOwner(_ context.Context, owner string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.assets {
		if a.Owner == owner {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) InsertTransferRecord(_ context.Context, rec *model.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger = append(s.ledger, *rec)
	return nil
}

func (s *MemoryStore) GetTransferRecords(_ context.Context, assetID uint64) ([]model.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.TransferRecord
	for _, r := range s.ledger {
		if r.AssetID == assetID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *MemoryStore) UpsertAuction(_ context.Context, a *model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *a
	s.auctions[a.AssetID] = &copy
	return nil
}

func (s *MemoryStore) GetAuction(_ context.Context, assetID uint64) (*model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[assetID]
	if !ok {
		return nil, fmt.Errorf("auction for asset %d: %w", assetID, ErrNotFound)
	}
	copy := *a
	return &copy, nil
}

func (s *MemoryStore) UpsertListing(_ context.Context, l *model.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *l
	s.listings[l.AssetID] = &copy
	return nil
}

func (s *MemoryStore) GetListing(_ context.Context, assetID uint64) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[assetID]
	if !ok {
		return nil, fmt.Errorf("listing for asset %d: %w", assetID, ErrNotFound)
	}
	copy := *l
	return &copy, nil
}

func (s *MemoryStore) SetCurrencyAllowed(_ context.Context, currency string, allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currencies[currency] = allowed
	return nil
}

func (s *MemoryStore) IsCurrencyAllowed(_ context.Context, currency string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currencies[currency], nil
}

func (s *MemoryStore) UpsertStreak(_ context.Context, st *model.Streak) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *st
	s.streaks[st.Account] = &copy
	return nil
}

func (s *MemoryStore) GetStreak(_ context.Context, account string) (*model.Streak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.streaks[account]
	if !ok {
		return nil, fmt.Errorf("streak for %s: %w", account, ErrNotFound)
	}
	copy := *st
	return &copy, nil
}

func (s *MemoryStore) TopStreaks(_ context.Context, n int) ([]model.Streak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streaks := make([]model.Streak, 0, len(s.streaks))
	for _, st := range s.streaks {
		streaks = append(streaks, *st)
	}
	sort.Slice(streaks, func(i, j int) bool {
		if streaks[i].Count != streaks[j].Count {
			return streaks[i].Count > streaks[j].Count
		}
		return streaks[i].Account < streaks[j].Account
	})
	if n > 0 && len(streaks) > n {
		streaks = streaks[:n]
	}
	return streaks, nil
}
