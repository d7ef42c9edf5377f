// Package catalogs manages the per-user reference data behind ledger
// entries: platforms, expense types, and payment methods.
package catalogs

import (
	"context"
	"errors"
	"strings"

	"github.com/gigledger/gigledger/internal/app/domain/catalog"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/services/defaults"
	"github.com/gigledger/gigledger/internal/app/services/limits"
	"github.com/gigledger/gigledger/internal/app/storage"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/pkg/logger"
)

// Service creates, lists, and deletes catalog records under plan limits.
type Service struct {
	users    storage.UserStore
	store    storage.CatalogStore
	tx       storage.TxRunner
	limits   *limits.Service
	defaults *defaults.Service
	log      *logger.Logger
}

// New constructs a catalog service.
func New(users storage.UserStore, store storage.CatalogStore, tx storage.TxRunner, lim *limits.Service, def *defaults.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalogs")
	}
	return &Service{users: users, store: store, tx: tx, limits: lim, defaults: def, log: log}
}

func (s *Service) getUser(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, apperrors.NotFound("")
	}
	return u, err
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.defaults != nil {
		s.defaults.Invalidate(ctx, userID)
	}
}

// CreatePlatform adds a revenue platform inside a limit-checked transaction.
func (s *Service) CreatePlatform(ctx context.Context, userID, name string) (catalog.Platform, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Platform{}, apperrors.Invalid("Platform name is required.")
	}
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return catalog.Platform{}, err
	}

	var created catalog.Platform
	err = s.tx.InTx(ctx, func(st storage.Stores) error {
		if err := s.limits.CheckCreate(ctx, st, u, limits.ResourcePlatforms); err != nil {
			return err
		}
		created, err = st.Catalog.CreatePlatform(ctx, catalog.Platform{UserID: u.ID, Name: name})
		return err
	})
	if err != nil {
		return catalog.Platform{}, err
	}
	s.invalidate(ctx, u.ID)
	return created, nil
}

// ListPlatforms returns the user's platforms.
func (s *Service) ListPlatforms(ctx context.Context, userID string) ([]catalog.Platform, error) {
	return s.store.ListPlatforms(ctx, userID)
}

// DeletePlatform removes a platform the user owns.
func (s *Service) DeletePlatform(ctx context.Context, userID, id string) error {
	p, err := s.store.GetPlatform(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && p.UserID != userID) {
		return apperrors.NotFound("Platform not found.")
	}
	if err != nil {
		return err
	}
	if err := s.store.DeletePlatform(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// CreateExpenseType adds an expense category inside a limit-checked
// transaction.
func (s *Service) CreateExpenseType(ctx context.Context, userID, name string) (catalog.ExpenseType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.ExpenseType{}, apperrors.Invalid("Expense type name is required.")
	}
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return catalog.ExpenseType{}, err
	}

	var created catalog.ExpenseType
	err = s.tx.InTx(ctx, func(st storage.Stores) error {
		if err := s.limits.CheckCreate(ctx, st, u, limits.ResourceExpenseTypes); err != nil {
			return err
		}
		created, err = st.Catalog.CreateExpenseType(ctx, catalog.ExpenseType{UserID: u.ID, Name: name})
		return err
	})
	if err != nil {
		return catalog.ExpenseType{}, err
	}
	s.invalidate(ctx, u.ID)
	return created, nil
}

// ListExpenseTypes returns the user's expense types.
func (s *Service) ListExpenseTypes(ctx context.Context, userID string) ([]catalog.ExpenseType, error) {
	return s.store.ListExpenseTypes(ctx, userID)
}

// DeleteExpenseType removes an expense type the user owns.
func (s *Service) DeleteExpenseType(ctx context.Context, userID, id string) error {
	et, err := s.store.GetExpenseType(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && et.UserID != userID) {
		return apperrors.NotFound("Expense type not found.")
	}
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpenseType(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// CreatePaymentMethod adds a payment method inside a limit-checked
// transaction.
func (s *Service) CreatePaymentMethod(ctx context.Context, userID, name string, kind catalog.PaymentMethodKind) (catalog.PaymentMethod, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.PaymentMethod{}, apperrors.Invalid("Payment method name is required.")
	}
	if !kind.Valid() {
		return catalog.PaymentMethod{}, apperrors.Invalid("Unknown payment method kind.")
	}
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return catalog.PaymentMethod{}, err
	}

	var created catalog.PaymentMethod
	err = s.tx.InTx(ctx, func(st storage.Stores) error {
		if err := s.limits.CheckCreate(ctx, st, u, limits.ResourcePaymentMethods); err != nil {
			return err
		}
		created, err = st.Catalog.CreatePaymentMethod(ctx, catalog.PaymentMethod{UserID: u.ID, Name: name, Kind: kind})
		return err
	})
	if err != nil {
		return catalog.PaymentMethod{}, err
	}
	s.invalidate(ctx, u.ID)
	return created, nil
}

// ListPaymentMethods returns the user's payment methods.
func (s *Service) ListPaymentMethods(ctx context.Context, userID string) ([]catalog.PaymentMethod, error) {
	return s.store.ListPaymentMethods(ctx, userID)
}

// DeletePaymentMethod removes a payment method the user owns.
func (s *Service) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	pm, err := s.store.GetPaymentMethod(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && pm.UserID != userID) {
		return apperrors.NotFound("Payment method not found.")
	}
	if err != nil {
		return err
	}
	if err := s.store.DeletePaymentMethod(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}
