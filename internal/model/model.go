// Package model defines the core domain types shared across the NFT engine.
// All monetary values use shopspring/decimal — never float64 for money.
// Amounts are integer quantities in the smallest currency unit.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NativeCurrency is the built-in payment currency. Fungible tokens are
// identified by their allow-listed currency IDs.
const NativeCurrency = "native"

// Asset is a uniquely identified item tracked by the ownership registry.
// The metadata URI is immutable after mint; the owner and visibility flag
// are the only mutable fields.
type Asset struct {
	ID          uint64    `json:"id" db:"id"`
	Owner       string    `json:"owner" db:"owner"`
	MetadataURI string    `json:"metadata_uri" db:"metadata_uri"`
	Public      bool      `json:"public" db:"is_public"`
	MintedAt    time.Time `json:"minted_at" db:"minted_at"`
}

// Transfer reasons recorded in the provenance ledger.
const (
	ReasonMint    = "mint"
	ReasonOwner   = "transfer"
	ReasonAuction = "auction"
	ReasonSale    = "sale"
)

// TransferRecord is an immutable provenance entry. Once written, these are
// never modified or deleted. From is empty for mints.
type TransferRecord struct {
	ID        string    `json:"id" db:"id"`
	AssetID   uint64    `json:"asset_id" db:"asset_id"`
	From      string    `json:"from" db:"from_account"`
	To        string    `json:"to" db:"to_account"`
	Reason    string    `json:"reason" db:"reason"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// Auction holds the per-asset auction slot. At most one record exists per
// asset; Active=false on a record whose EndTime has passed means the
// auction settled, which is distinct from no record at all.
type Auction struct {
	AssetID       uint64          `json:"asset_id" db:"asset_id"`
	Seller        string          `json:"seller" db:"seller"`
	MinBid        decimal.Decimal `json:"min_bid" db:"min_bid"`
	CurrentBid    decimal.Decimal `json:"current_bid" db:"current_bid"`
	CurrentBidder string          `json:"current_bidder" db:"current_bidder"`
	EndTime       time.Time       `json:"end_time" db:"end_time"`
	Active        bool            `json:"active" db:"active"`
}

// Listing is a fixed-price marketplace offer. An active listing and an
// active auction are mutually exclusive for the same asset.
type Listing struct {
	AssetID   uint64          `json:"asset_id" db:"asset_id"`
	Seller    string          `json:"seller" db:"seller"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Currency  string          `json:"currency" db:"currency"`
	Active    bool            `json:"active" db:"active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Streak is a per-account activity counter maintained by the leaderboard
// tracker. Count is monotonic within a streak and resets after a gap.
type Streak struct {
	Account      string    `json:"account" db:"account"`
	Count        int64     `json:"count" db:"count"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
}
