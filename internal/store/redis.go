package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fotobook/nft-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot per-asset records. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the
// primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Assets ---

func (s *CachedStore) NextAssetID(ctx context.Context) (uint64, error) {
	return s.primary.NextAssetID(ctx)
}

func (s *CachedStore) CreateAsset(ctx context.Context, a *model.Asset) error {
	if err := s.primary.CreateAsset(ctx, a); err != nil {
		return err
	}
	s.cache(ctx, assetKey(a.ID), a)
	return nil
}

func (s *CachedStore) GetAsset(ctx context.Context, id uint64) (*model.Asset, error) {
	data, err := s.rdb.Get(ctx, assetKey(id)).Bytes()
	if err == nil {
		var a model.Asset
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	a, err := s.primary.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, assetKey(id), a)
	return a, nil
}

func (s *CachedStore) UpdateAssetOwner(ctx context.Context, id uint64, owner string) error {
	if err := s.primary.UpdateAssetOwner(ctx, id, owner); err != nil {
		return err
	}
	// Invalidate; next read will re-populate.
	s.rdb.Del(ctx, assetKey(id))
	return nil
}

func (s *CachedStore) UpdateAssetVisibility(ctx context.Context, id uint64, public bool) error {
	if err := s.primary.UpdateAssetVisibility(ctx, id, public); err != nil {
		return err
	}
	s.rdb.Del(ctx, assetKey(id))
	return nil
}

func (s *CachedStore) CountAssetsByOwner(ctx context.Context, owner string) (int, error) {
	return s.primary.CountAssetsByOwner(ctx, owner)
}

// --- Provenance ledger (not cached) ---

func (s *CachedStore) InsertTransferRecord(ctx context.Context, r *model.TransferRecord) error {
	return s.primary.InsertTransferRecord(ctx, r)
}

func (s *CachedStore) GetTransferRecords(ctx context.Context, assetID uint64) ([]model.TransferRecord, error) {
	return s.primary.GetTransferRecords(ctx, assetID)
}

// --- Auctions ---

func (s *CachedStore) UpsertAuction(ctx context.Context, a *model.Auction) error {
	if err := s.primary.UpsertAuction(ctx, a); err != nil {
		return err
	}
	s.rdb.Del(ctx, auctionKey(a.AssetID))
	return nil
}

func (s *CachedStore) GetAuction(ctx context.Context, assetID uint64) (*model.Auction, error) {
	data, err := s.rdb.Get(ctx, auctionKey(assetID)).Bytes()
	if err == nil {
		var a model.Auction
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	a, err := s.primary.GetAuction(ctx, assetID)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, auctionKey(assetID), a)
	return a, nil
}

// --- Listings ---

func (s *CachedStore) UpsertListing(ctx context.Context, l *model.Listing) error {
	if err := s.primary.UpsertListing(ctx, l); err != nil {
		return err
	}
	s.rdb.Del(ctx, listingKey(l.AssetID))
	return nil
}

func (s *CachedStore) GetListing(ctx context.Context, assetID uint64) (*model.Listing, error) {
	data, err := s.rdb.Get(ctx, listingKey(assetID)).Bytes()
	if err == nil {
		var l model.Listing
		if json.Unmarshal(data, &l) == nil {
			return &l, nil
		}
	}

	l, err := s.primary.GetListing(ctx, assetID)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, listingKey(assetID), l)
	return l, nil
}

// --- Currencies / streaks (passthrough) ---

func (s *CachedStore) SetCurrencyAllowed(ctx context.Context, currency string, allowed bool) error {
	return s.primary.SetCurrencyAllowed(ctx, currency, allowed)
}

func (s *CachedStore) IsCurrencyAllowed(ctx context.Context, currency string) (bool, error) {
	return s.primary.IsCurrencyAllowed(ctx, currency)
}

func (s *CachedStore) UpsertStreak(ctx context.Context, st *model.Streak) error {
	return s.primary.UpsertStreak(ctx, st)
}

func (s *CachedStore) GetStreak(ctx context.Context, account string) (*model.Streak, error) {
	return s.primary.GetStreak(ctx, account)
}

func (s *CachedStore) TopStreaks(ctx context.Context, n int) ([]model.Streak, error) {
	return s.primary.TopStreaks(ctx, n)
}

// --- Cache helpers ---

func (s *CachedStore) cache(ctx context.Context, key string, v interface{}) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func assetKey(id uint64) string   { return fmt.Sprintf("asset:%d", id) }
func auctionKey(id uint64) string { return fmt.Sprintf("auction:%d", id) }
func listingKey(id uint64) string { return fmt.Sprintf("listing:%d", id) }
