// Package entries records revenues and expenses, the raw material for
// reporting and usage-based defaults.
package entries

import (
	"context"
	"errors"
	"time"

	"github.com/gigledger/gigledger/internal/app/domain/ledger"
	"github.com/gigledger/gigledger/internal/app/services/defaults"
	"github.com/gigledger/gigledger/internal/app/storage"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/pkg/logger"
)

// Service validates and records ledger entries.
type Service struct {
	users    storage.UserStore
	fleet    storage.FleetStore
	catalog  storage.CatalogStore
	store    storage.LedgerStore
	defaults *defaults.Service
	log      *logger.Logger
}

// New constructs an entries service.
func New(st storage.Stores, def *defaults.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("entries")
	}
	return &Service{
		users:    st.Users,
		fleet:    st.Fleet,
		catalog:  st.Catalog,
		store:    st.Ledger,
		defaults: def,
		log:      log,
	}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.defaults != nil {
		s.defaults.Invalidate(ctx, userID)
	}
}

// notFoundAs collapses missing rows and foreign-owned rows into the same
// user-facing NotFound so ownership cannot be probed.
func notFoundAs(msg string, err error, ownerID, userID string) error {
	if errors.Is(err, storage.ErrNotFound) || (err == nil && ownerID != userID) {
		return apperrors.NotFound(msg)
	}
	return err
}

func (s *Service) checkRefs(ctx context.Context, userID, driverID, vehicleID, paymentMethodID string) error {
	if driverID != "" {
		d, err := s.fleet.GetDriver(ctx, driverID)
		if err := notFoundAs("Driver not found.", err, d.UserID, userID); err != nil {
			return err
		}
	}
	if vehicleID != "" {
		v, err := s.fleet.GetVehicle(ctx, vehicleID)
		if err := notFoundAs("Vehicle not found.", err, v.UserID, userID); err != nil {
			return err
		}
	}
	if paymentMethodID != "" {
		pm, err := s.catalog.GetPaymentMethod(ctx, paymentMethodID)
		if err := notFoundAs("Payment method not found.", err, pm.UserID, userID); err != nil {
			return err
		}
	}
	return nil
}

// CreateRevenue records a revenue entry after validating every reference.
func (s *Service) CreateRevenue(ctx context.Context, userID string, rev ledger.Revenue) (ledger.Revenue, error) {
	if rev.Amount <= 0 {
		return ledger.Revenue{}, apperrors.Invalid("Revenue amount must be positive.")
	}
	if err := s.checkRefs(ctx, userID, rev.DriverID, rev.VehicleID, rev.PaymentMethodID); err != nil {
		return ledger.Revenue{}, err
	}
	if rev.PlatformID != "" {
		p, err := s.catalog.GetPlatform(ctx, rev.PlatformID)
		if err := notFoundAs("Platform not found.", err, p.UserID, userID); err != nil {
			return ledger.Revenue{}, err
		}
	}

	rev.UserID = userID
	if rev.OccurredAt.IsZero() {
		rev.OccurredAt = time.Now().UTC()
	}
	created, err := s.store.CreateRevenue(ctx, rev)
	if err != nil {
		return ledger.Revenue{}, err
	}
	s.invalidate(ctx, userID)
	return created, nil
}

// CreateExpense records an expense entry after validating every reference.
func (s *Service) CreateExpense(ctx context.Context, userID string, exp ledger.Expense) (ledger.Expense, error) {
	if exp.Amount <= 0 {
		return ledger.Expense{}, apperrors.Invalid("Expense amount must be positive.")
	}
	if err := s.checkRefs(ctx, userID, exp.DriverID, exp.VehicleID, exp.PaymentMethodID); err != nil {
		return ledger.Expense{}, err
	}
	if exp.ExpenseTypeID != "" {
		et, err := s.catalog.GetExpenseType(ctx, exp.ExpenseTypeID)
		if err := notFoundAs("Expense type not found.", err, et.UserID, userID); err != nil {
			return ledger.Expense{}, err
		}
	}

	exp.UserID = userID
	if exp.OccurredAt.IsZero() {
		exp.OccurredAt = time.Now().UTC()
	}
	created, err := s.store.CreateExpense(ctx, exp)
	if err != nil {
		return ledger.Expense{}, err
	}
	s.invalidate(ctx, userID)
	return created, nil
}

// ListRevenues returns the user's revenues within [from, to]. Zero bounds
// mean unbounded.
func (s *Service) ListRevenues(ctx context.Context, userID string, from, to time.Time) ([]ledger.Revenue, error) {
	return s.store.ListRevenues(ctx, userID, from, to)
}

// ListExpenses returns the user's expenses within [from, to].
func (s *Service) ListExpenses(ctx context.Context, userID string, from, to time.Time) ([]ledger.Expense, error) {
	return s.store.ListExpenses(ctx, userID, from, to)
}

// Summary aggregates a period's totals, used by reports and the weekly
// digest.
type Summary struct {
	From         time.Time
	To           time.Time
	RevenueTotal float64
	ExpenseTotal float64
	Net          float64
	EntryCount   int
}

// Summarize totals the user's activity between from and to.
func (s *Service) Summarize(ctx context.Context, userID string, from, to time.Time) (Summary, error) {
	revenues, err := s.store.ListRevenues(ctx, userID, from, to)
	if err != nil {
		return Summary{}, err
	}
	expenses, err := s.store.ListExpenses(ctx, userID, from, to)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{From: from, To: to, EntryCount: len(revenues) + len(expenses)}
	for _, rev := range revenues {
		summary.RevenueTotal += rev.Amount
	}
	for _, exp := range expenses {
		summary.ExpenseTotal += exp.Amount
	}
	summary.Net = summary.RevenueTotal - summary.ExpenseTotal
	return summary, nil
}
