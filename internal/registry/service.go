// Package registry is the authoritative ownership record: asset ID → owner,
// metadata URI, and visibility flag. Settlement components (auction engine,
// marketplace) call Transfer on it; nothing else mutates ownership.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fotobook/nft-engine/internal/events"
	"github.com/fotobook/nft-engine/internal/metrics"
	"github.com/fotobook/nft-engine/internal/model"
	"github.com/fotobook/nft-engine/internal/store"
)

var (
	// ErrUnknownAsset is returned when the asset ID was never minted.
	ErrUnknownAsset = errors.New("registry: unknown asset")

	// ErrNotOwner is returned when the caller does not currently own the asset.
	ErrNotOwner = errors.New("registry: not owner")

	// ErrInvalidRecipient is returned when the recipient is the null account.
	ErrInvalidRecipient = errors.New("registry: invalid recipient")
)

// Service implements the ownership registry. Uses a mutex for serialized
// mutation (single-instance), the way the settlement layer applies
// operations one at a time.
type Service struct {
	store store.Store
	hub   *events.Hub
	mu    sync.Mutex
}

// NewService creates a registry service. Pass nil for hub if notification
// broadcasting is not needed.
func NewService(st store.Store, hub *events.Hub) *Service {
	return &Service{store: st, hub: hub}
}

// Mint creates a new asset owned by to, with the next sequential ID.
// The metadata URI is fixed for the asset's lifetime.
func (s *Service) Mint(ctx context.Context, to, metadataURI string, public bool) (*model.Asset, error) {
	if to == "" {
		return nil, ErrInvalidRecipient
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.store.NextAssetID(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}

	asset := &model.Asset{
		ID:          id,
		Owner:       to,
		MetadataURI: metadataURI,
		Public:      public,
		MintedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}

	rec := &model.TransferRecord{
		ID:        uuid.New().String(),
		AssetID:   id,
		To:        to,
		Reason:    model.ReasonMint,
		Timestamp: asset.MintedAt,
	}
	if err := s.store.InsertTransferRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("mint: record provenance: %w", err)
	}

	metrics.MintsTotal.Inc()
	slog.Info("asset minted", "asset_id", id, "owner", to, "public", public)

	s.hub.Broadcast(events.Message{
		Type:        events.TypeMinted,
		AssetID:     id,
		Owner:       to,
		MetadataURI: metadataURI,
		Public:      &public,
	})

	return asset, nil
}

// OwnerOf returns the current owner of an asset.
func (s *Service) OwnerOf(ctx context.Context, id uint64) (string, error) {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return asset.Owner, nil
}

// IsPublic reports the asset's visibility flag.
func (s *Service) IsPublic(ctx context.Context, id uint64) (bool, error) {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return asset.Public, nil
}

// Get returns the full asset record.
func (s *Service) Get(ctx context.Context, id uint64) (*model.Asset, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAsset, id)
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// OwnedCount returns how many assets an account currently owns.
func (s *Service) OwnedCount(ctx context.Context, account string) (int, error) {
	return s.store.CountAssetsByOwner(ctx, account)
}

// History returns the asset's provenance, oldest record first.
func (s *Service) History(ctx context.Context, id uint64) ([]model.TransferRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetTransferRecords(ctx, id)
}

// SetVisibility toggles the public flag. Only the current owner may call;
// visibility has no effect on ownership or auction eligibility.
func (s *Service) SetVisibility(ctx context.Context, id uint64, caller string, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if asset.Owner != caller {
		return fmt.Errorf("%w: %s does not own asset %d", ErrNotOwner, caller, id)
	}

	if err := s.store.UpdateAssetVisibility(ctx, id, public); err != nil {
		return fmt.Errorf("set visibility: %w", err)
	}

	slog.Info("visibility changed", "asset_id", id, "public", public)

	s.hub.Broadcast(events.Message{
		Type:    events.TypeVisibilityChanged,
		AssetID: id,
		Owner:   caller,
		Public:  &public,
	})

	return nil
}

// Transfer reassigns ownership from from to to and appends a provenance
// record. from must be the current owner at call time; a stale owner fails
// with ErrNotOwner so settlement callers can abort cleanly.
func (s *Service) Transfer(ctx context.Context, id uint64, from, to, reason string) error {
	if to == "" {
		return ErrInvalidRecipient
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asset, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if asset.Owner != from {
		return fmt.Errorf("%w: %s does not own asset %d", ErrNotOwner, from, id)
	}

	if err := s.store.UpdateAssetOwner(ctx, id, to); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	rec := &model.TransferRecord{
		ID:        uuid.New().String(),
		AssetID:   id,
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.InsertTransferRecord(ctx, rec); err != nil {
		return fmt.Errorf("transfer: record provenance: %w", err)
	}

	metrics.TransfersTotal.WithLabelValues(reason).Inc()
	slog.Info("asset transferred", "asset_id", id, "from", from, "to", to, "reason", reason)

	s.hub.Broadcast(events.Message{
		Type:    events.TypeTransferred,
		AssetID: id,
		Owner:   to,
	})

	return nil
}
