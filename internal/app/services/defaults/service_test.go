package defaults

import (
	"context"
	"testing"
	"time"

	"github.com/gigledger/gigledger/internal/app/cache"
	"github.com/gigledger/gigledger/internal/app/domain/catalog"
	"github.com/gigledger/gigledger/internal/app/domain/fleet"
	"github.com/gigledger/gigledger/internal/app/domain/ledger"
	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/storage/memory"
)

func TestFreeTierHidesSelectorsAndUsesFirstMatch(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := New(store.Stores(), nil, nil)

	u, _ := store.CreateUser(ctx, user.User{Email: "f@r.ee", Tier: plan.Free})
	d, _ := store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "Me"})
	v, _ := store.CreateVehicle(ctx, fleet.Vehicle{UserID: u.ID, Name: "Prius"})

	cfg, err := svc.EntryForm(ctx, u)
	if err != nil {
		t.Fatalf("entry form: %v", err)
	}
	if cfg.ShowDriverField || cfg.ShowVehicleField || cfg.ShowPaymentMethodField {
		t.Fatalf("free tier must hide every selector: %+v", cfg)
	}
	if cfg.DefaultDriverID != d.ID || cfg.DefaultVehicleID != v.ID {
		t.Fatalf("expected first-match defaults: %+v", cfg)
	}
}

func TestPriorityChainIsStrict(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := New(store.Stores(), nil, nil)

	u, _ := store.CreateUser(ctx, user.User{Email: "p@r.o", Tier: plan.Pro})
	preferred, _ := store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "Preferred"})
	self, _ := store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "Self", IsSelf: true})
	busy, _ := store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "Busy"})

	// The busiest driver by recent activity is neither preferred nor self.
	for i := 0; i < 10; i++ {
		_, _ = store.CreateRevenue(ctx, ledger.Revenue{UserID: u.ID, DriverID: busy.ID, OccurredAt: time.Now().UTC()})
	}

	_, _ = store.UpsertPreferences(ctx, user.Preferences{UserID: u.ID, DefaultDriverID: preferred.ID})

	cfg, err := svc.EntryForm(ctx, u)
	if err != nil {
		t.Fatalf("entry form: %v", err)
	}
	if cfg.DefaultDriverID != preferred.ID {
		t.Fatalf("explicit preference must win, got %q (self=%q busy=%q)", cfg.DefaultDriverID, self.ID, busy.ID)
	}
}

func TestFlagBeatsFrequency(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := New(store.Stores(), nil, nil)

	u, _ := store.CreateUser(ctx, user.User{Email: "s@i.m", Tier: plan.Simple})
	self, _ := store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "Self", IsSelf: true})
	busy, _ := store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "Busy"})
	for i := 0; i < 10; i++ {
		_, _ = store.CreateRevenue(ctx, ledger.Revenue{UserID: u.ID, DriverID: busy.ID, OccurredAt: time.Now().UTC()})
	}

	cfg, _ := svc.EntryForm(ctx, u)
	if cfg.DefaultDriverID != self.ID {
		t.Fatalf("self flag must beat frequency, got %q", cfg.DefaultDriverID)
	}
}

func TestFrequencyFallbackAndPlatformTopThree(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := New(store.Stores(), nil, nil)

	u, _ := store.CreateUser(ctx, user.User{Email: "s@i.m2", Tier: plan.Simple})
	a, _ := store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "A"})
	b, _ := store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "B"})

	pm, _ := store.CreatePaymentMethod(ctx, catalog.PaymentMethod{UserID: u.ID, Name: "Card", Kind: catalog.KindCard})

	platformIDs := make([]string, 4)
	for i := range platformIDs {
		p, _ := store.CreatePlatform(ctx, catalog.Platform{UserID: u.ID, Name: "P"})
		platformIDs[i] = p.ID
	}

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		_, _ = store.CreateRevenue(ctx, ledger.Revenue{UserID: u.ID, DriverID: b.ID, PaymentMethodID: pm.ID, PlatformID: platformIDs[0], OccurredAt: now})
	}
	_, _ = store.CreateRevenue(ctx, ledger.Revenue{UserID: u.ID, DriverID: a.ID, PlatformID: platformIDs[1], OccurredAt: now})
	_, _ = store.CreateRevenue(ctx, ledger.Revenue{UserID: u.ID, PlatformID: platformIDs[1], OccurredAt: now})
	_, _ = store.CreateRevenue(ctx, ledger.Revenue{UserID: u.ID, PlatformID: platformIDs[2], OccurredAt: now})
	_, _ = store.CreateRevenue(ctx, ledger.Revenue{UserID: u.ID, PlatformID: platformIDs[3], OccurredAt: now})

	cfg, err := svc.EntryForm(ctx, u)
	if err != nil {
		t.Fatalf("entry form: %v", err)
	}
	if cfg.DefaultDriverID != b.ID {
		t.Fatalf("expected busiest driver %q, got %q", b.ID, cfg.DefaultDriverID)
	}
	if cfg.DefaultPaymentMethodID != pm.ID {
		t.Fatalf("expected payment method by frequency, got %q", cfg.DefaultPaymentMethodID)
	}
	if len(cfg.TopPlatformIDs) != 3 {
		t.Fatalf("expected top three platforms, got %v", cfg.TopPlatformIDs)
	}
	if cfg.TopPlatformIDs[0] != platformIDs[0] || cfg.TopPlatformIDs[1] != platformIDs[1] {
		t.Fatalf("platforms not ordered by usage: %v", cfg.TopPlatformIDs)
	}
}

func TestCacheHitAndInvalidation(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	c := cache.NewMemory()
	svc := New(store.Stores(), c, nil)

	u, _ := store.CreateUser(ctx, user.User{Email: "c@a.che", Tier: plan.Simple})
	first, _ := store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "First"})

	cfg, err := svc.EntryForm(ctx, u)
	if err != nil || cfg.DefaultDriverID != first.ID {
		t.Fatalf("initial resolve: %+v, %v", cfg, err)
	}

	// A second driver changes the answer, but the cache still holds the old
	// one until the writer invalidates the user tag.
	_, _ = store.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "Second", IsSelf: true})

	cached, _ := svc.EntryForm(ctx, u)
	if cached.DefaultDriverID != first.ID {
		t.Fatalf("expected cached answer before invalidation, got %q", cached.DefaultDriverID)
	}

	svc.Invalidate(ctx, u.ID)
	fresh, _ := svc.EntryForm(ctx, u)
	if fresh.DefaultDriverID == first.ID {
		t.Fatalf("expected recomputed default after invalidation, got %q", fresh.DefaultDriverID)
	}
}
