package onboarding

import (
	"context"
	"testing"

	"github.com/gigledger/gigledger/internal/app/cache"
	"github.com/gigledger/gigledger/internal/app/domain/billing"
	"github.com/gigledger/gigledger/internal/app/domain/catalog"
	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/services/checkout"
	"github.com/gigledger/gigledger/internal/app/services/limits"
	"github.com/gigledger/gigledger/internal/app/storage/memory"
	apperrors "github.com/gigledger/gigledger/internal/errors"
)

func newService(store *memory.Store, co *checkout.Service) *Service {
	lim := limits.New(store, store, nil)
	return New(store, store, lim, nil, co, nil)
}

func TestCompleteCreatesEverythingAndDerivesDefaults(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "n@e.w", Tier: plan.Simple})

	result, err := svc.Complete(ctx, u.ID, Request{
		Platforms:      []string{"Uber", "Lyft"},
		ExpenseTypes:   []string{"Fuel"},
		PaymentMethods: []PaymentMethodInput{{Name: "Cash", Kind: catalog.KindCash}},
		Drivers: []DriverInput{
			{Name: "Partner"},
			{Name: "Me", IsSelf: true},
		},
		Vehicles: []VehicleInput{{Name: "Prius", IsPrimary: true}},
		Currency: "eur",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if !result.User.Onboarded() {
		t.Fatalf("user must be marked onboarded")
	}
	if result.RedirectURL != DefaultRedirect {
		t.Fatalf("expected default redirect, got %q", result.RedirectURL)
	}

	drivers, _ := store.ListDrivers(ctx, u.ID)
	if len(drivers) != 2 {
		t.Fatalf("expected 2 drivers, got %d", len(drivers))
	}
	// The first self-flagged driver by input order becomes the default.
	if result.DefaultDriverID == "" || result.DefaultDriverID == drivers[0].ID {
		t.Fatalf("expected the flagged driver as default, got %q", result.DefaultDriverID)
	}

	prefs, err := store.GetPreferences(ctx, u.ID)
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if prefs.DefaultDriverID != result.DefaultDriverID || prefs.DefaultVehicleID != result.DefaultVehicleID {
		t.Fatalf("derived defaults must be persisted: %+v", prefs)
	}
	if prefs.Currency != "EUR" {
		t.Fatalf("expected normalized currency, got %q", prefs.Currency)
	}
}

func TestCompleteRejectsRepeatOnboarding(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "t@w.ice", Tier: plan.Simple})
	if _, err := svc.Complete(ctx, u.ID, Request{}); err != nil {
		t.Fatalf("first onboarding: %v", err)
	}
	if _, err := svc.Complete(ctx, u.ID, Request{}); !apperrors.IsKind(err, apperrors.KindAlreadyOnboarded) {
		t.Fatalf("expected AlreadyOnboarded, got %v", err)
	}
}

func TestCompleteIsAtomicOnLimitBreach(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()

	// Free tier allows a single driver; a 2-driver bundle must leave nothing
	// behind, including the platforms created earlier in the transaction.
	u, _ := store.CreateUser(ctx, user.User{Email: "f@r.ee", Tier: plan.Free})
	_, err := svc.Complete(ctx, u.ID, Request{
		Platforms: []string{"Uber"},
		Drivers:   []DriverInput{{Name: "Me", IsSelf: true}, {Name: "Partner"}},
	})
	if !apperrors.IsKind(err, apperrors.KindLimitExceeded) {
		t.Fatalf("expected limit rejection, got %v", err)
	}

	platforms, _ := store.ListPlatforms(ctx, u.ID)
	drivers, _ := store.ListDrivers(ctx, u.ID)
	if len(platforms) != 0 || len(drivers) != 0 {
		t.Fatalf("expected full rollback, got %d platforms and %d drivers", len(platforms), len(drivers))
	}

	refreshed, _ := store.GetUser(ctx, u.ID)
	if refreshed.Onboarded() {
		t.Fatalf("failed onboarding must not mark the user onboarded")
	}
}

func TestCompleteUnflaggedBatchSetsNoDefault(t *testing.T) {
	store := memory.New()
	svc := newService(store, nil)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "u@f.lag", Tier: plan.Simple})
	result, err := svc.Complete(ctx, u.ID, Request{
		Drivers: []DriverInput{{Name: "A"}, {Name: "B"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.DefaultDriverID != "" {
		t.Fatalf("unflagged batch must derive no default, got %q", result.DefaultDriverID)
	}
}

type fakeProvider struct {
	session billing.CheckoutSession
	err     error
}

func (f *fakeProvider) CreateSession(_ context.Context, _ user.User, _ billing.CheckoutSelection) (billing.CheckoutSession, error) {
	return f.session, f.err
}

func TestCompleteRedirectsToStashedCheckout(t *testing.T) {
	store := memory.New()
	co := checkout.New(&fakeProvider{session: billing.CheckoutSession{ID: "cs_1", RedirectURL: "https://pay.example.com/cs_1"}}, cache.NewMemory(), nil)
	svc := newService(store, co)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "p@a.y", Tier: plan.Free})
	if err := co.Stash(ctx, u.ID, plan.Pro, plan.Monthly); err != nil {
		t.Fatalf("stash: %v", err)
	}

	result, err := svc.Complete(ctx, u.ID, Request{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.RedirectURL != "https://pay.example.com/cs_1" {
		t.Fatalf("expected checkout redirect, got %q", result.RedirectURL)
	}

	// The stash is consumed: a hypothetical second read finds nothing.
	if _, ok := co.TakeStashed(ctx, u.ID); ok {
		t.Fatalf("stash must be consumed by onboarding")
	}
}
