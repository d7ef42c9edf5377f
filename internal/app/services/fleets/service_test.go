package fleets

import (
	"context"
	"testing"

	"github.com/gigledger/gigledger/internal/app/domain/fleet"
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

func TestCreateDriverEnforcesLimit(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "f@r.ee", Tier: plan.Free})

	if _, err := svc.CreateDriver(ctx, u.ID, fleet.Driver{Name: "Me", IsSelf: true}); err != nil {
		t.Fatalf("first driver: %v", err)
	}
	_, err := svc.CreateDriver(ctx, u.ID, fleet.Driver{Name: "Second"})
	if !apperrors.IsKind(err, apperrors.KindLimitExceeded) {
		t.Fatalf("expected limit rejection, got %v", err)
	}

	count, _ := store.CountDrivers(ctx, u.ID)
	if count != 1 {
		t.Fatalf("rejected create must not persist, got %d drivers", count)
	}
}

func TestCreateDriverValidation(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "v@a.l", Tier: plan.Pro})
	if _, err := svc.CreateDriver(ctx, u.ID, fleet.Driver{Name: "   "}); !apperrors.IsKind(err, apperrors.KindInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateDriver(ctx, "missing", fleet.Driver{Name: "X"}); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected NotFound for unknown user, got %v", err)
	}
}

func TestDeleteDriverOwnership(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	owner, _ := store.CreateUser(ctx, user.User{Email: "o@w.n", Tier: plan.Pro})
	other, _ := store.CreateUser(ctx, user.User{Email: "x@y.z", Tier: plan.Pro})
	d, _ := svc.CreateDriver(ctx, owner.ID, fleet.Driver{Name: "Mine"})

	if err := svc.DeleteDriver(ctx, other.ID, d.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("foreign delete must read as NotFound, got %v", err)
	}
	if err := svc.DeleteDriver(ctx, owner.ID, d.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestCreateVehicleEnforcesLimit(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "s@i.m", Tier: plan.Simple})
	max := plan.LimitsFor(plan.Simple).MaxVehicles
	for i := 0; i < max; i++ {
		if _, err := svc.CreateVehicle(ctx, u.ID, fleet.Vehicle{Name: "Car"}); err != nil {
			t.Fatalf("vehicle %d: %v", i+1, err)
		}
	}
	if _, err := svc.CreateVehicle(ctx, u.ID, fleet.Vehicle{Name: "One too many"}); !apperrors.IsKind(err, apperrors.KindLimitExceeded) {
		t.Fatalf("expected limit rejection, got %v", err)
	}
}
