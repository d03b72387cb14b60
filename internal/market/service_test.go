package market_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fotobook/nft-engine/internal/auction"
	"github.com/fotobook/nft-engine/internal/bank"
	"github.com/fotobook/nft-engine/internal/market"
	"github.com/fotobook/nft-engine/internal/model"
	"github.com/fotobook/nft-engine/internal/registry"
	"github.com/fotobook/nft-engine/internal/store"
)

const admin = "admin"

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

type testEnv struct {
	svc  *market.Service
	auc  *auction.Service
	reg  *registry.Service
	bank *bank.Bank
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ms := store.NewMemoryStore()
	bk := bank.New()
	reg := registry.NewService(ms, nil)
	auc := auction.NewService(ms, reg, bk, nil, nil)
	svc := market.NewService(ms, reg, bk, nil, admin, auc)

	// The native currency is allow-listed at startup.
	if err := ms.SetCurrencyAllowed(context.Background(), model.NativeCurrency, true); err != nil {
		t.Fatalf("failed to seed native currency: %v", err)
	}

	return &testEnv{svc: svc, auc: auc, reg: reg, bank: bk}
}

func (e *testEnv) mint(t *testing.T, owner string) uint64 {
	t.Helper()
	a, err := e.reg.Mint(context.Background(), owner, "ipfs://x", true)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	return a.ID
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.mint(t, "alice")

	l, err := env.svc.List(ctx, id, "alice", d(50), model.NativeCurrency)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !l.Active || !l.Price.Equal(d(50)) {
		t.Errorf("unexpected listing: %+v", l)
	}
}

func TestList_NonOwner(t *testing.T) {
	env := newTestEnv(t)
	id := env.mint(t, "alice")

	_, err := env.svc.List(context.Background(), id, "bob", d(50), model.NativeCurrency)
	if !errors.Is(err, registry.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestList_UnsupportedCurrencyUntilAdded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.mint(t, "alice")

	_, err := env.svc.List(ctx, id, "alice", d(50), "usdc")
	if !errors.Is(err, market.ErrUnsupportedCurrency) {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}

	// Only the admin can allow-list.
	if err := env.svc.AddToken(ctx, "alice", "usdc"); !errors.Is(err, market.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin, got %v", err)
	}
	if err := env.svc.AddToken(ctx, admin, "usdc"); err != nil {
		t.Fatalf("addToken failed: %v", err)
	}
	// Idempotent.
	if err := env.svc.AddToken(ctx, admin, "usdc"); err != nil {
		t.Fatalf("repeat addToken failed: %v", err)
	}

	if _, err := env.svc.List(ctx, id, "alice", d(50), "usdc"); err != nil {
		t.Errorf("listing after allow-list failed: %v", err)
	}

	allowed, _ := env.svc.AllowedCurrency(ctx, "usdc")
	if !allowed {
		t.Error("usdc should report as allowed")
	}
}

func TestList_ActiveAuctionExcludesListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.mint(t, "alice")

	if _, err := env.auc.Start(ctx, id, "alice", d(10), time.Hour); err != nil {
		t.Fatalf("start auction: %v", err)
	}

	_, err := env.svc.List(ctx, id, "alice", d(50), model.NativeCurrency)
	if !errors.Is(err, auction.ErrAuctionAlreadyActive) {
		t.Errorf("expected ErrAuctionAlreadyActive, got %v", err)
	}
}

func TestList_NotConfigured(t *testing.T) {
	ms := store.NewMemoryStore()
	bk := bank.New()
	reg := registry.NewService(ms, nil)
	// Marketplace deployed with a placeholder auction reference.
	svc := market.NewService(ms, reg, bk, nil, admin, nil)
	ms.SetCurrencyAllowed(context.Background(), model.NativeCurrency, true)

	a, _ := reg.Mint(context.Background(), "alice", "ipfs://x", true)

	_, err := svc.List(context.Background(), a.ID, "alice", d(50), model.NativeCurrency)
	if !errors.Is(err, market.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured before wiring, got %v", err)
	}

	// Wire the auction engine and retry.
	auc := auction.NewService(ms, reg, bk, nil, nil)
	if err := svc.UpdateAuctionContract("mallory", auc); !errors.Is(err, market.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin wiring, got %v", err)
	}
	if err := svc.UpdateAuctionContract(admin, auc); err != nil {
		t.Fatalf("wiring failed: %v", err)
	}
	if _, err := svc.List(context.Background(), a.ID, "alice", d(50), model.NativeCurrency); err != nil {
		t.Errorf("listing after wiring failed: %v", err)
	}
}

func TestBuy_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.mint(t, "alice")
	env.bank.Credit("bob", model.NativeCurrency, d(100))

	env.svc.List(ctx, id, "alice", d(50), model.NativeCurrency)

	l, err := env.svc.Buy(ctx, id, "bob", d(50))
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if l.Active {
		t.Error("listing should be inactive after sale")
	}

	owner, _ := env.reg.OwnerOf(ctx, id)
	if owner != "bob" {
		t.Errorf("expected owner bob, got %s", owner)
	}
	if got := env.bank.BalanceOf("alice", model.NativeCurrency); !got.Equal(d(50)) {
		t.Errorf("expected alice paid 50, got %s", got)
	}
	if got := env.bank.BalanceOf("bob", model.NativeCurrency); !got.Equal(d(50)) {
		t.Errorf("expected bob=50, got %s", got)
	}

	// A second buy on the same asset fails.
	if _, err := env.svc.Buy(ctx, id, "carol", d(50)); !errors.Is(err, market.ErrListingNotActive) {
		t.Errorf("expected ErrListingNotActive on repeat buy, got %v", err)
	}
}

func TestBuy_WrongPaymentAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.mint(t, "alice")
	env.bank.Credit("bob", model.NativeCurrency, d(100))

	env.svc.List(ctx, id, "alice", d(50), model.NativeCurrency)

	if _, err := env.svc.Buy(ctx, id, "bob", d(49)); !errors.Is(err, market.ErrWrongPaymentAmount) {
		t.Errorf("expected ErrWrongPaymentAmount for underpay, got %v", err)
	}
	if _, err := env.svc.Buy(ctx, id, "bob", d(51)); !errors.Is(err, market.ErrWrongPaymentAmount) {
		t.Errorf("expected ErrWrongPaymentAmount for overpay, got %v", err)
	}
}

func TestBuy_InsufficientFundsLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.mint(t, "alice")
	env.bank.Credit("bob", model.NativeCurrency, d(10))

	env.svc.List(ctx, id, "alice", d(50), model.NativeCurrency)

	_, err := env.svc.Buy(ctx, id, "bob", d(50))
	if !errors.Is(err, market.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	owner, _ := env.reg.OwnerOf(ctx, id)
	if owner != "alice" {
		t.Errorf("ownership moved on failed buy: %s", owner)
	}
	l, _ := env.svc.Query(ctx, id)
	if !l.Active {
		t.Error("listing should remain active after failed buy")
	}
}

func TestDelist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.mint(t, "alice")

	env.svc.List(ctx, id, "alice", d(50), model.NativeCurrency)

	// Only the seller may delist.
	if err := env.svc.Delist(ctx, id, "bob"); !errors.Is(err, registry.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner for non-seller, got %v", err)
	}
	if err := env.svc.Delist(ctx, id, "alice"); err != nil {
		t.Fatalf("delist failed: %v", err)
	}
	if err := env.svc.Delist(ctx, id, "alice"); !errors.Is(err, market.ErrListingNotActive) {
		t.Errorf("expected ErrListingNotActive on repeat delist, got %v", err)
	}
}

func TestQuery_NoListing(t *testing.T) {
	env := newTestEnv(t)

	l, err := env.svc.Query(context.Background(), 7)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if l.Active || l.Seller != "" {
		t.Errorf("expected zero slot, got %+v", l)
	}
}
