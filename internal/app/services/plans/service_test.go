package plans

import (
	"context"
	"testing"

	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/planning"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/services/limits"
	"github.com/gigledger/gigledger/internal/app/storage/memory"
	apperrors "github.com/gigledger/gigledger/internal/errors"
)

func newService(store *memory.Store) *Service {
	lim := limits.New(store, store, nil)
	return New(store, store, store, lim, nil)
}

func TestCreateBudgetEnforcesLimit(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "f@r.ee", Tier: plan.Free})

	if _, err := svc.CreateBudget(ctx, u.ID, planning.Budget{Name: "Gas", Amount: 200, Period: "Monthly"}); err != nil {
		t.Fatalf("first budget: %v", err)
	}
	if _, err := svc.CreateBudget(ctx, u.ID, planning.Budget{Name: "Food", Amount: 100}); !apperrors.IsKind(err, apperrors.KindLimitExceeded) {
		t.Fatalf("expected limit rejection, got %v", err)
	}
}

func TestCreateBudgetValidation(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "p@r.o", Tier: plan.Pro})
	if _, err := svc.CreateBudget(ctx, u.ID, planning.Budget{Name: "", Amount: 10}); !apperrors.IsKind(err, apperrors.KindInvalid) {
		t.Fatalf("expected name validation, got %v", err)
	}
	if _, err := svc.CreateBudget(ctx, u.ID, planning.Budget{Name: "X", Amount: 0}); !apperrors.IsKind(err, apperrors.KindInvalid) {
		t.Fatalf("expected amount validation, got %v", err)
	}
}

func TestGoalLifecycle(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	u, _ := store.CreateUser(ctx, user.User{Email: "g@o.al", Tier: plan.Simple})
	g, err := svc.CreateGoal(ctx, u.ID, planning.Goal{Name: "New car", Target: 5000})
	if err != nil || !g.IsActive {
		t.Fatalf("create goal: %+v, %v", g, err)
	}

	other, _ := store.CreateUser(ctx, user.User{Email: "x@y.z", Tier: plan.Simple})
	if err := svc.DeleteGoal(ctx, other.ID, g.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("foreign delete must read as NotFound, got %v", err)
	}
	if err := svc.DeleteGoal(ctx, u.ID, g.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}
