package streak_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fotobook/nft-engine/internal/registry"
	"github.com/fotobook/nft-engine/internal/store"
	"github.com/fotobook/nft-engine/internal/streak"
)

const admin = "admin"

type testEnv struct {
	svc *streak.Service
	reg *registry.Service
	now *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ms := store.NewMemoryStore()
	reg := registry.NewService(ms, nil)

	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	svc := streak.NewService(ms, admin, 24*time.Hour, reg, clock)
	return &testEnv{svc: svc, reg: reg, now: &now}
}

func (e *testEnv) advance(dur time.Duration) {
	*e.now = e.now.Add(dur)
}

func TestRecordActivity_RequiresOwnership(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.RecordActivity(context.Background(), "nobody")
	if !errors.Is(err, streak.ErrNotEligible) {
		t.Errorf("expected ErrNotEligible, got %v", err)
	}
}

func TestRecordActivity_StreakPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.reg.Mint(ctx, "alice", "ipfs://x", true)

	// First activity starts the streak at 1.
	st, err := env.svc.RecordActivity(ctx, "alice")
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if st.Count != 1 {
		t.Errorf("expected count 1, got %d", st.Count)
	}

	// Within the same interval the count holds.
	env.advance(6 * time.Hour)
	st, _ = env.svc.RecordActivity(ctx, "alice")
	if st.Count != 1 {
		t.Errorf("expected count 1 within interval, got %d", st.Count)
	}

	// The next interval increments.
	env.advance(30 * time.Hour)
	st, _ = env.svc.RecordActivity(ctx, "alice")
	if st.Count != 2 {
		t.Errorf("expected count 2 after consecutive interval, got %d", st.Count)
	}

	// A gap past two intervals resets.
	env.advance(72 * time.Hour)
	st, _ = env.svc.RecordActivity(ctx, "alice")
	if st.Count != 1 {
		t.Errorf("expected reset to 1 after long gap, got %d", st.Count)
	}
}

func TestRecordActivity_NotConfigured(t *testing.T) {
	ms := store.NewMemoryStore()
	// Tracker deployed with a placeholder registry reference.
	svc := streak.NewService(ms, admin, 24*time.Hour, nil, nil)

	_, err := svc.RecordActivity(context.Background(), "alice")
	if !errors.Is(err, streak.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	// Wire the registry and retry.
	reg := registry.NewService(ms, nil)
	reg.Mint(context.Background(), "alice", "ipfs://x", true)

	if err := svc.UpdateNftContract("mallory", reg); !errors.Is(err, streak.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin, got %v", err)
	}
	if err := svc.UpdateNftContract(admin, reg); err != nil {
		t.Fatalf("wiring failed: %v", err)
	}
	if _, err := svc.RecordActivity(context.Background(), "alice"); err != nil {
		t.Errorf("record after wiring failed: %v", err)
	}
}

func TestTop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.reg.Mint(ctx, "alice", "ipfs://a", true)
	env.reg.Mint(ctx, "bob", "ipfs://b", true)

	env.svc.RecordActivity(ctx, "alice")
	env.svc.RecordActivity(ctx, "bob")
	env.advance(30 * time.Hour)
	env.svc.RecordActivity(ctx, "alice")

	top, err := env.svc.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].Account != "alice" || top[0].Count != 2 {
		t.Errorf("expected alice leading with 2, got %+v", top[0])
	}
}
