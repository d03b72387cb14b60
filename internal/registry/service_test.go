package registry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fotobook/nft-engine/internal/model"
	"github.com/fotobook/nft-engine/internal/registry"
	"github.com/fotobook/nft-engine/internal/store"
)

func newTestService(t *testing.T) *registry.Service {
	t.Helper()
	return registry.NewService(store.NewMemoryStore(), nil)
}

func TestMint_AssignsSequentialIDsAndOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a1, err := svc.Mint(ctx, "alice", "ipfs://one", true)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	a2, err := svc.Mint(ctx, "bob", "ipfs://two", false)
	if err != nil {
		t.Fatalf("second mint failed: %v", err)
	}

	if a1.ID != 1 || a2.ID != 2 {
		t.Errorf("expected sequential IDs 1,2 got %d,%d", a1.ID, a2.ID)
	}

	owner, err := svc.OwnerOf(ctx, a1.ID)
	if err != nil {
		t.Fatalf("ownerOf failed: %v", err)
	}
	if owner != "alice" {
		t.Errorf("expected owner alice, got %s", owner)
	}
	if owner == "" {
		t.Error("owner must never be the null account")
	}
}

func TestMint_NullRecipient(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Mint(context.Background(), "", "ipfs://x", true)
	if !errors.Is(err, registry.ErrInvalidRecipient) {
		t.Errorf("expected ErrInvalidRecipient, got %v", err)
	}
}

func TestOwnerOf_UnknownAsset(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.OwnerOf(context.Background(), 42)
	if !errors.Is(err, registry.ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestSetVisibility(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Mint(ctx, "alice", "ipfs://x", true)

	// Non-owner cannot toggle.
	if err := svc.SetVisibility(ctx, a.ID, "bob", false); !errors.Is(err, registry.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner for non-owner, got %v", err)
	}

	// Owner can.
	if err := svc.SetVisibility(ctx, a.ID, "alice", false); err != nil {
		t.Fatalf("owner visibility change failed: %v", err)
	}

	public, err := svc.IsPublic(ctx, a.ID)
	if err != nil {
		t.Fatalf("isPublic failed: %v", err)
	}
	if public {
		t.Error("expected asset to be private after update")
	}

	// Visibility change does not affect ownership.
	owner, _ := svc.OwnerOf(ctx, a.ID)
	if owner != "alice" {
		t.Errorf("visibility change altered ownership: %s", owner)
	}

	// Unknown asset.
	if err := svc.SetVisibility(ctx, 999, "alice", true); !errors.Is(err, registry.ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestTransfer(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Mint(ctx, "alice", "ipfs://x", true)

	if err := svc.Transfer(ctx, a.ID, "alice", "bob", model.ReasonOwner); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	owner, _ := svc.OwnerOf(ctx, a.ID)
	if owner != "bob" {
		t.Errorf("expected owner bob, got %s", owner)
	}

	// Stale owner cannot transfer again.
	if err := svc.Transfer(ctx, a.ID, "alice", "carol", model.ReasonOwner); !errors.Is(err, registry.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner for stale owner, got %v", err)
	}

	// Null recipient rejected.
	if err := svc.Transfer(ctx, a.ID, "bob", "", model.ReasonOwner); !errors.Is(err, registry.ErrInvalidRecipient) {
		t.Errorf("expected ErrInvalidRecipient, got %v", err)
	}
}

func TestHistory_RecordsProvenance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Mint(ctx, "alice", "ipfs://x", true)
	svc.Transfer(ctx, a.ID, "alice", "bob", model.ReasonSale)

	records, err := svc.History(ctx, a.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Reason != model.ReasonMint || records[0].To != "alice" {
		t.Errorf("unexpected mint record: %+v", records[0])
	}
	if records[1].Reason != model.ReasonSale || records[1].From != "alice" || records[1].To != "bob" {
		t.Errorf("unexpected sale record: %+v", records[1])
	}
}

// --- HTTP handler tests ---

func newTestRouter(t *testing.T) (*registry.Service, chi.Router) {
	t.Helper()
	svc := newTestService(t)

	r := chi.NewRouter()
	r.Post("/api/v1/assets", svc.HandleMint)
	r.Get("/api/v1/assets/{assetID}", svc.HandleGet)
	r.Put("/api/v1/assets/{assetID}/visibility", svc.HandleSetVisibility)

	return svc, r
}

func TestHandleMint(t *testing.T) {
	_, router := newTestRouter(t)

	body, _ := json.Marshal(registry.MintRequest{
		To:          "alice",
		MetadataURI: "ipfs://test_new_9",
		Public:      true,
	})
	req := httptest.NewRequest("POST", "/api/v1/assets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var asset model.Asset
	json.Unmarshal(w.Body.Bytes(), &asset)
	if asset.ID != 1 || asset.Owner != "alice" {
		t.Errorf("unexpected asset: %+v", asset)
	}
}

func TestHandleMint_NullRecipient(t *testing.T) {
	_, router := newTestRouter(t)

	body, _ := json.Marshal(registry.MintRequest{MetadataURI: "ipfs://x"})
	req := httptest.NewRequest("POST", "/api/v1/assets", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for null recipient, got %d", w.Code)
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/assets/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleSetVisibility_NonOwner(t *testing.T) {
	svc, router := newTestRouter(t)
	svc.Mint(context.Background(), "alice", "ipfs://x", true)

	body, _ := json.Marshal(registry.VisibilityRequest{Caller: "bob", Public: false})
	req := httptest.NewRequest("PUT", "/api/v1/assets/1/visibility", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d", w.Code)
	}
}
