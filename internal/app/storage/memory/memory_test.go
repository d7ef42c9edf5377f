package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gigledger/gigledger/internal/app/domain/fleet"
	"github.com/gigledger/gigledger/internal/app/domain/ledger"
	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/storage"
)

func TestUserLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, err := store.CreateUser(ctx, user.User{Email: "Dana@Example.com", Name: "Dana", Tier: plan.Free})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "dana@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}

	if _, err := store.CreateUser(ctx, user.User{Email: "dana@example.com"}); err == nil {
		t.Fatalf("expected duplicate email rejection")
	}

	byEmail, err := store.GetUserByEmail(ctx, "DANA@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("get by email: %v (%+v)", err, byEmail)
	}

	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPreferencesUpsert(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.GetPreferences(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first upsert, got %v", err)
	}

	first, err := store.UpsertPreferences(ctx, user.Preferences{UserID: "u1", Currency: "USD"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := store.UpsertPreferences(ctx, user.Preferences{UserID: "u1", Currency: "EUR", DefaultDriverID: "d1"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("upsert must keep the original CreatedAt")
	}
	if second.Currency != "EUR" || second.DefaultDriverID != "d1" {
		t.Fatalf("unexpected preferences after upsert: %+v", second)
	}
}

func TestInTxConcurrentRollbackKeepsOtherCommits(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "a@b.c"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.InTx(ctx, func(s storage.Stores) error {
				if _, err := s.Fleet.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: fmt.Sprintf("d%d", i)}); err != nil {
					return err
				}
				// Odd transactions roll back; their writes alone must vanish.
				if i%2 == 1 {
					return fmt.Errorf("boom %d", i)
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	count, err := store.CountDrivers(ctx, u.ID)
	if err != nil {
		t.Fatalf("count drivers: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected exactly the 5 committed drivers, got %d", count)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "a@b.c"})

	err := store.InTx(ctx, func(s storage.Stores) error {
		if _, err := s.Fleet.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: "Me"}); err != nil {
			return err
		}
		if _, err := s.Fleet.CreateVehicle(ctx, fleet.Vehicle{UserID: u.ID, Name: "Prius"}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatalf("expected error from tx")
	}

	drivers, _ := store.CountDrivers(ctx, u.ID)
	vehicles, _ := store.CountVehicles(ctx, u.ID)
	if drivers != 0 || vehicles != 0 {
		t.Fatalf("expected rollback, got %d drivers and %d vehicles", drivers, vehicles)
	}
}

func TestInTxCommits(t *testing.T) {
	store := New()
	ctx := context.Background()

	err := store.InTx(ctx, func(s storage.Stores) error {
		_, err := s.Fleet.CreateDriver(ctx, fleet.Driver{UserID: "u1", Name: "Me"})
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	count, _ := store.CountDrivers(ctx, "u1")
	if count != 1 {
		t.Fatalf("expected committed driver, got %d", count)
	}
}

func TestFrequencyCountsAndWindow(t *testing.T) {
	store := New()
	ctx := context.Background()
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -30)

	for i := 0; i < 5; i++ {
		if _, err := store.CreateRevenue(ctx, ledger.Revenue{UserID: "u1", DriverID: "dA", OccurredAt: now.AddDate(0, 0, -1)}); err != nil {
			t.Fatalf("create revenue: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := store.CreateRevenue(ctx, ledger.Revenue{UserID: "u1", DriverID: "dB", OccurredAt: now.AddDate(0, 0, -2)}); err != nil {
			t.Fatalf("create revenue: %v", err)
		}
	}
	// Exactly on the boundary counts; one day past it does not.
	if _, err := store.CreateRevenue(ctx, ledger.Revenue{UserID: "u1", DriverID: "dC", OccurredAt: since}); err != nil {
		t.Fatalf("create revenue: %v", err)
	}
	if _, err := store.CreateRevenue(ctx, ledger.Revenue{UserID: "u1", DriverID: "dOld", OccurredAt: now.AddDate(0, 0, -31)}); err != nil {
		t.Fatalf("create revenue: %v", err)
	}
	// Other users never bleed in.
	if _, err := store.CreateRevenue(ctx, ledger.Revenue{UserID: "u2", DriverID: "dA", OccurredAt: now}); err != nil {
		t.Fatalf("create revenue: %v", err)
	}

	counts, err := store.DriverFrequency(ctx, "u1", since)
	if err != nil {
		t.Fatalf("driver frequency: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("expected 3 drivers in window, got %d (%+v)", len(counts), counts)
	}
	if counts[0].ID != "dA" || counts[0].Count != 5 {
		t.Fatalf("expected dA first with 5, got %+v", counts[0])
	}
	for _, c := range counts {
		if c.ID == "dOld" {
			t.Fatalf("record outside the window must be excluded")
		}
	}
}

func TestExportCounterUpdate(t *testing.T) {
	store := New()
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "x@y.z"})
	resetAt := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if err := store.UpdateExportCounter(ctx, u.ID, 3, resetAt); err != nil {
		t.Fatalf("update counter: %v", err)
	}
	got, _ := store.GetUser(ctx, u.ID)
	if got.MonthlyExportCount != 3 || !got.ExportCountResetAt.Equal(resetAt) {
		t.Fatalf("unexpected counter state: %+v", got)
	}
}
