// Package auction runs the per-asset auction lifecycle: start, bid, settle.
// Bids are escrowed in a bank account owned by the engine until refunded or
// paid out. Expiry is lazy: time is only read inside PlaceBid and
// EndAuction, never by a background timer.
package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fotobook/nft-engine/internal/bank"
	"github.com/fotobook/nft-engine/internal/events"
	"github.com/fotobook/nft-engine/internal/metrics"
	"github.com/fotobook/nft-engine/internal/model"
	"github.com/fotobook/nft-engine/internal/registry"
	"github.com/fotobook/nft-engine/internal/store"
)

var (
	// ErrAuctionAlreadyActive is returned when the asset already has an
	// active auction.
	ErrAuctionAlreadyActive = errors.New("auction: already active")

	// ErrAuctionNotActive is returned when no active auction exists for
	// the asset. Re-settling an ended auction fails with this too.
	ErrAuctionNotActive = errors.New("auction: not active")

	// ErrAuctionExpired is returned for bids placed at or after end time.
	ErrAuctionExpired = errors.New("auction: expired")

	// ErrAuctionNotYetEnded is returned when settlement is attempted
	// before end time. Callers retry once the clock passes it.
	ErrAuctionNotYetEnded = errors.New("auction: not yet ended")

	// ErrBidTooLow is returned when a bid does not strictly exceed
	// max(minBid, currentBid).
	ErrBidTooLow = errors.New("auction: bid too low")

	// ErrAssetListed is returned when the asset has an active fixed-price
	// listing. An active auction and an active listing are mutually
	// exclusive for the same asset.
	ErrAssetListed = errors.New("auction: asset listed for sale")

	// ErrInvalidParameters is returned for non-positive min bid or duration.
	ErrInvalidParameters = errors.New("auction: invalid parameters")

	// ErrTransferFailed is returned when an escrow fund movement fails.
	// No auction state changes when it does.
	ErrTransferFailed = errors.New("auction: transfer failed")
)

// EscrowAccount holds all escrowed bids. Funds here are owned by the engine
// until refunded to an outbid bidder or paid out to a seller.
const EscrowAccount = "auction:escrow"

// Service is the auction engine. A mutex serializes all state transitions
// so each operation commits or aborts as a unit.
type Service struct {
	store    store.Store
	registry *registry.Service
	bank     *bank.Bank
	hub      *events.Hub
	clock    func() time.Time
	mu       sync.Mutex
}

// NewService creates an auction engine. clock may be nil for wall-clock
// time; tests inject a fake to exercise expiry without sleeping.
func NewService(st store.Store, reg *registry.Service, bk *bank.Bank, hub *events.Hub, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:    st,
		registry: reg,
		bank:     bk,
		hub:      hub,
		clock:    clock,
	}
}

// Start opens an auction for an asset. Only the current owner may start
// one, and only if the asset has neither an active auction nor an active
// listing. A settled auction slot may be reused by the asset's current
// owner.
func (s *Service) Start(ctx context.Context, assetID uint64, seller string, minBid decimal.Decimal, duration time.Duration) (*model.Auction, error) {
	if minBid.LessThanOrEqual(decimal.Zero) || duration <= 0 {
		return nil, fmt.Errorf("%w: min bid and duration must be positive", ErrInvalidParameters)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, err := s.registry.OwnerOf(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if owner != seller {
		return nil, fmt.Errorf("%w: %s does not own asset %d", registry.ErrNotOwner, seller, assetID)
	}

	existing, err := s.store.GetAuction(ctx, assetID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Active {
		return nil, fmt.Errorf("%w: asset %d", ErrAuctionAlreadyActive, assetID)
	}

	listing, err := s.store.GetListing(ctx, assetID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if listing != nil && listing.Active {
		return nil, fmt.Errorf("%w: asset %d", ErrAssetListed, assetID)
	}

	auction := &model.Auction{
		AssetID:    assetID,
		Seller:     seller,
		MinBid:     minBid,
		CurrentBid: decimal.Zero,
		EndTime:    s.clock().UTC().Add(duration),
		Active:     true,
	}
	if err := s.store.UpsertAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("start auction: %w", err)
	}

	metrics.ActiveAuctions.Inc()
	slog.Info("auction started",
		"asset_id", assetID,
		"seller", seller,
		"min_bid", minBid.String(),
		"end_time", auction.EndTime,
	)

	s.hub.Broadcast(events.Message{
		Type:    events.TypeAuctionStarted,
		AssetID: assetID,
		Seller:  seller,
		Amount:  minBid.String(),
		EndTime: auction.EndTime.Unix(),
	})

	return auction, nil
}

// PlaceBid escrows a bid on an active auction. The bid must strictly exceed
// both the minimum bid and the current highest bid. The previous top
// bidder's escrow is refunded in full before the new bid is accepted;
// if the new escrow then fails, the refund is reversed so the operation
// commits or aborts as a whole.
func (s *Service) PlaceBid(ctx context.Context, assetID uint64, bidder string, amount decimal.Decimal) (*model.Auction, error) {
	if bidder == "" {
		return nil, fmt.Errorf("%w: bidder required", ErrInvalidParameters)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.store.GetAuction(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: asset %d", ErrAuctionNotActive, assetID)
	}
	if err != nil {
		return nil, err
	}
	if !a.Active {
		return nil, fmt.Errorf("%w: asset %d", ErrAuctionNotActive, assetID)
	}
	if !s.clock().UTC().Before(a.EndTime) {
		return nil, fmt.Errorf("%w: asset %d", ErrAuctionExpired, assetID)
	}

	// Strict greater-than keeps the highest bid monotonic and tie-free.
	floor := a.MinBid
	if a.CurrentBid.GreaterThan(floor) {
		floor = a.CurrentBid
	}
	if amount.LessThanOrEqual(floor) {
		return nil, fmt.Errorf("%w: %s must exceed %s", ErrBidTooLow, amount, floor)
	}

	// Refund-then-accept. A failed refund aborts before anything moves.
	prevBidder, prevBid := a.CurrentBidder, a.CurrentBid
	if prevBidder != "" {
		if err := s.bank.Transfer(EscrowAccount, prevBidder, model.NativeCurrency, prevBid); err != nil {
			return nil, fmt.Errorf("%w: refund %s: %v", ErrTransferFailed, prevBidder, err)
		}
	}

	if err := s.bank.Transfer(bidder, EscrowAccount, model.NativeCurrency, amount); err != nil {
		// Reverse the refund; the prior bid stands.
		if prevBidder != "" {
			s.bank.Transfer(prevBidder, EscrowAccount, model.NativeCurrency, prevBid)
		}
		return nil, fmt.Errorf("%w: escrow %s: %v", ErrTransferFailed, bidder, err)
	}

	a.CurrentBid = amount
	a.CurrentBidder = bidder
	if err := s.store.UpsertAuction(ctx, a); err != nil {
		return nil, fmt.Errorf("place bid: %w", err)
	}

	metrics.BidsTotal.Inc()
	slog.Info("bid placed",
		"asset_id", assetID,
		"bidder", bidder,
		"amount", amount.String(),
		"refunded", prevBidder,
	)

	s.hub.Broadcast(events.Message{
		Type:    events.TypeBidPlaced,
		AssetID: assetID,
		Bidder:  bidder,
		Amount:  amount.String(),
	})

	return a, nil
}

// End settles an auction once its end time has passed. Anyone may call it;
// correctness depends only on time and auction state, not on the caller.
// With a winner, the escrowed amount is paid to the seller and ownership
// moves to the winner; without bids the slot simply closes. A failed payout
// or ownership transfer aborts the settlement, leaving the auction active.
// The registry re-verifies the seller still owns the asset at transfer time,
// so a seller gone stale since Start aborts here with the payout reversed
// and the winner's escrow intact.
func (s *Service) End(ctx context.Context, assetID uint64) (*model.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.store.GetAuction(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: asset %d", ErrAuctionNotActive, assetID)
	}
	if err != nil {
		return nil, err
	}
	if !a.Active {
		return nil, fmt.Errorf("%w: asset %d", ErrAuctionNotActive, assetID)
	}
	if s.clock().UTC().Before(a.EndTime) {
		return nil, fmt.Errorf("%w: ends at %s", ErrAuctionNotYetEnded, a.EndTime)
	}

	a.Active = false
	outcome := "no_bids"

	if a.CurrentBidder != "" {
		if err := s.bank.Transfer(EscrowAccount, a.Seller, model.NativeCurrency, a.CurrentBid); err != nil {
			return nil, fmt.Errorf("%w: payout %s: %v", ErrTransferFailed, a.Seller, err)
		}
		if err := s.registry.Transfer(ctx, assetID, a.Seller, a.CurrentBidder, model.ReasonAuction); err != nil {
			// Reverse the payout; the auction stays active.
			s.bank.Transfer(a.Seller, EscrowAccount, model.NativeCurrency, a.CurrentBid)
			return nil, err
		}
		outcome = "won"
	}

	if err := s.store.UpsertAuction(ctx, a); err != nil {
		return nil, fmt.Errorf("end auction: %w", err)
	}

	metrics.ActiveAuctions.Dec()
	metrics.AuctionsSettled.WithLabelValues(outcome).Inc()
	slog.Info("auction ended",
		"asset_id", assetID,
		"winner", a.CurrentBidder,
		"amount", a.CurrentBid.String(),
		"outcome", outcome,
	)

	s.hub.Broadcast(events.Message{
		Type:    events.TypeAuctionEnded,
		AssetID: assetID,
		Winner:  a.CurrentBidder,
		Seller:  a.Seller,
		Amount:  a.CurrentBid.String(),
	})

	return a, nil
}

// Query returns the auction slot for an asset. An asset that never had an
// auction yields a zero slot with Active=false, matching the mapping-style
// read the clients expect.
func (s *Service) Query(ctx context.Context, assetID uint64) (*model.Auction, error) {
	a, err := s.store.GetAuction(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return &model.Auction{
			AssetID:    assetID,
			MinBid:     decimal.Zero,
			CurrentBid: decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// HasActive reports whether an active auction exists for the asset. The
// marketplace consults this before creating a listing.
func (s *Service) HasActive(ctx context.Context, assetID uint64) (bool, error) {
	a, err := s.store.GetAuction(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.Active, nil
}
