// Package store defines the persistence interface for the NFT engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// Persistent state lives behind this interface while the services hold the
// behavior, so service logic can be swapped without touching stored data —
// the same split the upgradeable proxies gave the original deployment.
package store

import (
	"context"
	"errors"

	"github.com/fotobook/nft-engine/internal/model"
)

// ErrNotFound is returned (wrapped) when a record does not exist. Callers
// use errors.Is; an absent auction or listing is a meaningful state, not a
// failure.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Assets ---

	// NextAssetID reserves and returns the next sequential asset ID.
	NextAssetID(ctx context.Context) (uint64, error)

	// CreateAsset persists a newly minted asset.
	CreateAsset(ctx context.Context, asset *model.Asset) error

	// GetAsset retrieves an asset by ID.
	GetAsset(ctx context.Context, id uint64) (*model.Asset, error)

	// UpdateAssetOwner reassigns ownership.
	UpdateAssetOwner(ctx context.Context, id uint64, owner string) error

	// UpdateAssetVisibility toggles the public flag.
	UpdateAssetVisibility(ctx context.Context, id uint64, public bool) error

	// CountAssetsByOwner returns how many assets an account owns.
	CountAssetsByOwner(ctx context.Context, owner string) (int, error)

	// --- Provenance ledger (immutable) ---

	// InsertTransferRecord appends an immutable provenance record.
	InsertTransferRecord(ctx context.Context, rec *model.TransferRecord) error

	// GetTransferRecords returns an asset's provenance, oldest first.
	GetTransferRecords(ctx context.Context, assetID uint64) ([]model.TransferRecord, error)

	// --- Auctions ---

	// UpsertAuction writes the per-asset auction slot.
	UpsertAuction(ctx context.Context, auction *model.Auction) error

	// GetAuction retrieves the auction slot for an asset.
	GetAuction(ctx context.Context, assetID uint64) (*model.Auction, error)

	// --- Listings ---

	// UpsertListing writes the per-asset listing slot.
	UpsertListing(ctx context.Context, listing *model.Listing) error

	// GetListing retrieves the listing slot for an asset.
	GetListing(ctx context.Context, assetID uint64) (*model.Listing, error)

	// --- Allowed currencies ---

	// SetCurrencyAllowed enables or disables a payment currency.
	SetCurrencyAllowed(ctx context.Context, currency string, allowed bool) error

	// IsCurrencyAllowed reports whether a currency is allow-listed.
	IsCurrencyAllowed(ctx context.Context, currency string) (bool, error)

	// --- Streaks ---

	// UpsertStreak writes an account's streak record.
	UpsertStreak(ctx context.Context, streak *model.Streak) error

	// GetStreak retrieves an account's streak record.
	GetStreak(ctx context.Context, account string) (*model.Streak, error)

	// TopStreaks returns the n highest streaks, descending by count.
	TopStreaks(ctx context.Context, n int) ([]model.Streak, error)
}
