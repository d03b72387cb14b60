// Package market implements fixed-price listings and sales on top of the
// ownership registry, with payment in the native currency or any
// allow-listed fungible token. It holds a re-pointable reference to the
// auction engine so listings and auctions stay mutually exclusive.
package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fotobook/nft-engine/internal/auction"
	"github.com/fotobook/nft-engine/internal/bank"
	"github.com/fotobook/nft-engine/internal/events"
	"github.com/fotobook/nft-engine/internal/metrics"
	"github.com/fotobook/nft-engine/internal/model"
	"github.com/fotobook/nft-engine/internal/registry"
	"github.com/fotobook/nft-engine/internal/store"
)

var (
	// ErrListingNotActive is returned when no active listing exists.
	ErrListingNotActive = errors.New("market: listing not active")

	// ErrWrongPaymentAmount is returned when the payment does not equal
	// the listed price exactly.
	ErrWrongPaymentAmount = errors.New("market: wrong payment amount")

	// ErrUnsupportedCurrency is returned when the listing currency is not
	// allow-listed.
	ErrUnsupportedCurrency = errors.New("market: unsupported currency")

	// ErrUnauthorized is returned when a privileged operation is called
	// by anyone other than the admin account.
	ErrUnauthorized = errors.New("market: unauthorized")

	// ErrNotConfigured is returned when an operation needs the auction
	// engine reference before it has been wired.
	ErrNotConfigured = errors.New("market: auction contract not configured")

	// ErrInvalidParameters is returned for non-positive prices.
	ErrInvalidParameters = errors.New("market: invalid parameters")

	// ErrTransferFailed is returned when the buyer's payment cannot be
	// moved. No state changes when it does.
	ErrTransferFailed = errors.New("market: transfer failed")
)

// Service is the marketplace. The auction engine reference may be nil until
// wired by the admin; operations that need it fail with ErrNotConfigured.
type Service struct {
	store    store.Store
	registry *registry.Service
	bank     *bank.Bank
	hub      *events.Hub
	admin    string

	mu      sync.Mutex
	auction *auction.Service
}

// NewService creates a marketplace. auc may be nil; wire it later through
// UpdateAuctionContract, mirroring the deploy-then-wire flow.
func NewService(st store.Store, reg *registry.Service, bk *bank.Bank, hub *events.Hub, admin string, auc *auction.Service) *Service {
	return &Service{
		store:    st,
		registry: reg,
		bank:     bk,
		hub:      hub,
		admin:    admin,
		auction:  auc,
	}
}

// List creates a fixed-price listing. The seller must currently own the
// asset, the currency must be allow-listed, and the asset must have no
// active auction. Relisting by the owner overwrites the previous slot.
func (s *Service) List(ctx context.Context, assetID uint64, seller string, price decimal.Decimal, currency string) (*model.Listing, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidParameters)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.auction == nil {
		return nil, ErrNotConfigured
	}

	owner, err := s.registry.OwnerOf(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if owner != seller {
		return nil, fmt.Errorf("%w: %s does not own asset %d", registry.ErrNotOwner, seller, assetID)
	}

	allowed, err := s.store.IsCurrencyAllowed(ctx, currency)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}

	active, err := s.auction.HasActive(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("%w: asset %d", auction.ErrAuctionAlreadyActive, assetID)
	}

	prev, err := s.store.GetListing(ctx, assetID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	listing := &model.Listing{
		AssetID:   assetID,
		Seller:    seller,
		Price:     price,
		Currency:  currency,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	if prev == nil || !prev.Active {
		metrics.ActiveListings.Inc()
	}
	slog.Info("listing created",
		"asset_id", assetID,
		"seller", seller,
		"price", price.String(),
		"currency", currency,
	)

	s.hub.Broadcast(events.Message{
		Type:     events.TypeListingCreated,
		AssetID:  assetID,
		Seller:   seller,
		Amount:   price.String(),
		Currency: currency,
	})

	return listing, nil
}

// Buy settles an active listing. The payment must equal the listed price
// in the listed currency; funds move buyer to seller and ownership moves to
// the buyer, or nothing changes at all.
func (s *Service) Buy(ctx context.Context, assetID uint64, buyer string, payment decimal.Decimal) (*model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetListing(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: asset %d", ErrListingNotActive, assetID)
	}
	if err != nil {
		return nil, err
	}
	if !l.Active {
		return nil, fmt.Errorf("%w: asset %d", ErrListingNotActive, assetID)
	}
	if !payment.Equal(l.Price) {
		return nil, fmt.Errorf("%w: sent %s, price is %s %s", ErrWrongPaymentAmount, payment, l.Price, l.Currency)
	}

	if err := s.bank.Transfer(buyer, l.Seller, l.Currency, l.Price); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := s.registry.Transfer(ctx, assetID, l.Seller, buyer, model.ReasonSale); err != nil {
		// Reverse the payment; the listing stays active.
		s.bank.Transfer(l.Seller, buyer, l.Currency, l.Price)
		return nil, err
	}

	l.Active = false
	if err := s.store.UpsertListing(ctx, l); err != nil {
		return nil, fmt.Errorf("buy: %w", err)
	}

	metrics.ActiveListings.Dec()
	metrics.SalesTotal.WithLabelValues(l.Currency).Inc()
	slog.Info("sale completed",
		"asset_id", assetID,
		"buyer", buyer,
		"seller", l.Seller,
		"price", l.Price.String(),
		"currency", l.Currency,
	)

	s.hub.Broadcast(events.Message{
		Type:     events.TypeSaleCompleted,
		AssetID:  assetID,
		Owner:    buyer,
		Seller:   l.Seller,
		Amount:   l.Price.String(),
		Currency: l.Currency,
	})

	return l, nil
}

// Delist deactivates the seller's own active listing.
func (s *Service) Delist(ctx context.Context, assetID uint64, seller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.store.GetListing(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: asset %d", ErrListingNotActive, assetID)
	}
	if err != nil {
		return err
	}
	if !l.Active {
		return fmt.Errorf("%w: asset %d", ErrListingNotActive, assetID)
	}
	if l.Seller != seller {
		return fmt.Errorf("%w: %s did not create this listing", registry.ErrNotOwner, seller)
	}

	l.Active = false
	if err := s.store.UpsertListing(ctx, l); err != nil {
		return fmt.Errorf("delist: %w", err)
	}

	metrics.ActiveListings.Dec()
	slog.Info("listing cancelled", "asset_id", assetID, "seller", seller)

	s.hub.Broadcast(events.Message{
		Type:    events.TypeListingCancelled,
		AssetID: assetID,
		Seller:  seller,
	})

	return nil
}

// Query returns the listing slot for an asset, or a zero slot with
// Active=false when none exists.
func (s *Service) Query(ctx context.Context, assetID uint64) (*model.Listing, error) {
	l, err := s.store.GetListing(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return &model.Listing{AssetID: assetID, Price: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// AddToken allow-lists a payment currency for future listings. Privileged
// and idempotent; existing listings are unaffected.
func (s *Service) AddToken(ctx context.Context, caller, currency string) error {
	if caller != s.admin {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	if currency == "" {
		return fmt.Errorf("%w: currency required", ErrInvalidParameters)
	}

	if err := s.store.SetCurrencyAllowed(ctx, currency, true); err != nil {
		return err
	}

	slog.Info("currency allow-listed", "currency", currency)
	return nil
}

// AllowedCurrency reports whether a currency is allow-listed.
func (s *Service) AllowedCurrency(ctx context.Context, currency string) (bool, error) {
	return s.store.IsCurrencyAllowed(ctx, currency)
}

// UpdateAuctionContract re-points the auction engine reference. Privileged;
// existing listings are unaffected.
func (s *Service) UpdateAuctionContract(caller string, auc *auction.Service) error {
	if caller != s.admin {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	s.mu.Lock()
	s.auction = auc
	s.mu.Unlock()

	slog.Info("auction contract updated")
	return nil
}
