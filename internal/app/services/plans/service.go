// Package plans manages budgets and savings goals under plan limits.
package plans

import (
	"context"
	"errors"
	"strings"

	"github.com/gigledger/gigledger/internal/app/domain/planning"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/services/limits"
	"github.com/gigledger/gigledger/internal/app/storage"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/pkg/logger"
)

// Service creates, lists, and deletes budgets and goals.
type Service struct {
	users  storage.UserStore
	store  storage.PlanningStore
	tx     storage.TxRunner
	limits *limits.Service
	log    *logger.Logger
}

// New constructs a planning service.
func New(users storage.UserStore, store storage.PlanningStore, tx storage.TxRunner, lim *limits.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("plans")
	}
	return &Service{users: users, store: store, tx: tx, limits: lim, log: log}
}

func (s *Service) getUser(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, apperrors.NotFound("")
	}
	return u, err
}

// CreateBudget adds a budget inside a limit-checked transaction.
func (s *Service) CreateBudget(ctx context.Context, userID string, b planning.Budget) (planning.Budget, error) {
	name := strings.TrimSpace(b.Name)
	if name == "" {
		return planning.Budget{}, apperrors.Invalid("Budget name is required.")
	}
	if b.Amount <= 0 {
		return planning.Budget{}, apperrors.Invalid("Budget amount must be positive.")
	}
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return planning.Budget{}, err
	}

	var created planning.Budget
	err = s.tx.InTx(ctx, func(st storage.Stores) error {
		if err := s.limits.CheckCreate(ctx, st, u, limits.ResourceBudgets); err != nil {
			return err
		}
		created, err = st.Planning.CreateBudget(ctx, planning.Budget{
			UserID:   u.ID,
			Name:     name,
			Amount:   b.Amount,
			Period:   strings.ToLower(strings.TrimSpace(b.Period)),
			IsActive: true,
		})
		return err
	})
	if err != nil {
		return planning.Budget{}, err
	}
	s.log.WithField("user_id", u.ID).WithField("budget_id", created.ID).Info("budget created")
	return created, nil
}

// ListBudgets returns the user's budgets, active or not.
func (s *Service) ListBudgets(ctx context.Context, userID string) ([]planning.Budget, error) {
	return s.store.ListBudgets(ctx, userID)
}

// DeleteBudget removes a budget the user owns.
func (s *Service) DeleteBudget(ctx context.Context, userID, id string) error {
	b, err := s.store.GetBudget(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && b.UserID != userID) {
		return apperrors.NotFound("Budget not found.")
	}
	if err != nil {
		return err
	}
	return s.store.DeleteBudget(ctx, id)
}

// CreateGoal adds a savings goal inside a limit-checked transaction.
func (s *Service) CreateGoal(ctx context.Context, userID string, g planning.Goal) (planning.Goal, error) {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return planning.Goal{}, apperrors.Invalid("Goal name is required.")
	}
	if g.Target <= 0 {
		return planning.Goal{}, apperrors.Invalid("Goal target must be positive.")
	}
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return planning.Goal{}, err
	}

	var created planning.Goal
	err = s.tx.InTx(ctx, func(st storage.Stores) error {
		if err := s.limits.CheckCreate(ctx, st, u, limits.ResourceGoals); err != nil {
			return err
		}
		created, err = st.Planning.CreateGoal(ctx, planning.Goal{
			UserID:   u.ID,
			Name:     name,
			Target:   g.Target,
			Deadline: g.Deadline,
			IsActive: true,
		})
		return err
	})
	if err != nil {
		return planning.Goal{}, err
	}
	s.log.WithField("user_id", u.ID).WithField("goal_id", created.ID).Info("goal created")
	return created, nil
}

// ListGoals returns the user's goals.
func (s *Service) ListGoals(ctx context.Context, userID string) ([]planning.Goal, error) {
	return s.store.ListGoals(ctx, userID)
}

// DeleteGoal removes a goal the user owns.
func (s *Service) DeleteGoal(ctx context.Context, userID, id string) error {
	g, err := s.store.GetGoal(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && g.UserID != userID) {
		return apperrors.NotFound("Goal not found.")
	}
	if err != nil {
		return err
	}
	return s.store.DeleteGoal(ctx, id)
}
