package catalogs

import (
	"context"
	"strings"
	"testing"

	"github.com/gigledger/gigledger/internal/app/domain/catalog"
	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/services/limits"
	"github.com/gigledger/gigledger/internal/app/storage/memory"
	apperrors "github.com/gigledger/gigledger/internal/errors"
)

func newService(store *memory.Store) *Service {
	lim := limits.New(store, store, nil)
	return New(store, store, store, lim, nil, nil)
}

func TestCreatePlatformEnforcesLimitWithMessage(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "f@r.ee", Tier: plan.Free})
	max := plan.LimitsFor(plan.Free).MaxPlatforms
	for i := 0; i < max; i++ {
		if _, err := svc.CreatePlatform(ctx, u.ID, "Platform"); err != nil {
			t.Fatalf("platform %d: %v", i+1, err)
		}
	}

	_, err := svc.CreatePlatform(ctx, u.ID, "Over")
	if !apperrors.IsKind(err, apperrors.KindLimitExceeded) {
		t.Fatalf("expected limit rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "2") {
		t.Fatalf("rejection must name the numeric limit: %q", err.Error())
	}
}

func TestCreatePaymentMethodValidatesKind(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "k@i.nd", Tier: plan.Pro})
	if _, err := svc.CreatePaymentMethod(ctx, u.ID, "Wallet", catalog.PaymentMethodKind("crypto")); !apperrors.IsKind(err, apperrors.KindInvalid) {
		t.Fatalf("expected kind validation, got %v", err)
	}
	pm, err := svc.CreatePaymentMethod(ctx, u.ID, "Wallet", catalog.KindApp)
	if err != nil || pm.Kind != catalog.KindApp {
		t.Fatalf("create payment method: %+v, %v", pm, err)
	}
}

func TestDeleteExpenseTypeOwnership(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	owner, _ := store.CreateUser(ctx, user.User{Email: "o@w.n", Tier: plan.Pro})
	other, _ := store.CreateUser(ctx, user.User{Email: "x@y.z", Tier: plan.Pro})
	et, _ := svc.CreateExpenseType(ctx, owner.ID, "Fuel")

	if err := svc.DeleteExpenseType(ctx, other.ID, et.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("foreign delete must read as NotFound, got %v", err)
	}
	if err := svc.DeleteExpenseType(ctx, owner.ID, et.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if remaining, _ := svc.ListExpenseTypes(ctx, owner.ID); len(remaining) != 0 {
		t.Fatalf("expected empty list, got %d", len(remaining))
	}
}
