// Package onboarding performs the one-time initial setup: a batch of
// platforms, drivers, vehicles, expense types, and payment methods created
// atomically, with plan limits re-checked inside the transaction.
package onboarding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gigledger/gigledger/internal/app/domain/catalog"
	"github.com/gigledger/gigledger/internal/app/domain/fleet"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/metrics"
	"github.com/gigledger/gigledger/internal/app/services/checkout"
	"github.com/gigledger/gigledger/internal/app/services/defaults"
	"github.com/gigledger/gigledger/internal/app/services/limits"
	"github.com/gigledger/gigledger/internal/app/storage"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/pkg/logger"
)

// DefaultRedirect is where a freshly onboarded user lands when no checkout
// was stashed.
const DefaultRedirect = "/dashboard"

// DriverInput is one driver in the onboarding bundle.
type DriverInput struct {
	Name   string
	IsSelf bool
}

// VehicleInput is one vehicle in the onboarding bundle.
type VehicleInput struct {
	Name      string
	Make      string
	Model     string
	Year      int
	IsPrimary bool
}

// PaymentMethodInput is one payment method in the onboarding bundle.
type PaymentMethodInput struct {
	Name string
	Kind catalog.PaymentMethodKind
}

// Request is the complete onboarding bundle.
type Request struct {
	Platforms      []string
	ExpenseTypes   []string
	PaymentMethods []PaymentMethodInput
	Drivers        []DriverInput
	Vehicles       []VehicleInput

	Currency  string
	Locale    string
	WeekStart string
}

// Result reports what onboarding created and where to send the user next.
type Result struct {
	User             user.User
	DefaultDriverID  string
	DefaultVehicleID string
	RedirectURL      string
}

// Service runs the onboarding transaction.
type Service struct {
	users    storage.UserStore
	tx       storage.TxRunner
	limits   *limits.Service
	defaults *defaults.Service
	checkout *checkout.Service
	log      *logger.Logger
}

// New constructs an onboarding service. The checkout service may be nil when
// billing is disabled.
func New(users storage.UserStore, tx storage.TxRunner, lim *limits.Service, def *defaults.Service, co *checkout.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("onboarding")
	}
	return &Service{users: users, tx: tx, limits: lim, defaults: def, checkout: co, log: log}
}

func (s *Service) validate(req Request) error {
	for _, name := range req.Platforms {
		if strings.TrimSpace(name) == "" {
			return apperrors.Invalid("Platform names must not be empty.")
		}
	}
	for _, name := range req.ExpenseTypes {
		if strings.TrimSpace(name) == "" {
			return apperrors.Invalid("Expense type names must not be empty.")
		}
	}
	for _, pm := range req.PaymentMethods {
		if strings.TrimSpace(pm.Name) == "" {
			return apperrors.Invalid("Payment method names must not be empty.")
		}
		if !pm.Kind.Valid() {
			return apperrors.Invalid("Unknown payment method kind.")
		}
	}
	for _, d := range req.Drivers {
		if strings.TrimSpace(d.Name) == "" {
			return apperrors.Invalid("Driver names must not be empty.")
		}
	}
	for _, v := range req.Vehicles {
		if strings.TrimSpace(v.Name) == "" {
			return apperrors.Invalid("Vehicle names must not be empty.")
		}
	}
	return nil
}

// firstFlagged implements the default-pointer derivation: the first resource
// flagged self/primary in input order wins; an unflagged batch yields none.
func firstFlagged(ids []string, flagged []bool) string {
	for i, id := range ids {
		if flagged[i] {
			return id
		}
	}
	return ""
}

// Complete runs the whole bundle in one transaction. Any failure, including
// a limit check on the last row, rolls back every write.
func (s *Service) Complete(ctx context.Context, userID string, req Request) (Result, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return Result{}, apperrors.NotFound("")
	}
	if err != nil {
		return Result{}, err
	}
	if u.Onboarded() {
		metrics.RecordOnboarding("already_onboarded")
		return Result{}, apperrors.AlreadyOnboarded()
	}
	if err := s.validate(req); err != nil {
		return Result{}, err
	}

	var result Result
	err = s.tx.InTx(ctx, func(st storage.Stores) error {
		checks := []struct {
			res limits.Resource
			n   int
		}{
			{limits.ResourceDrivers, len(req.Drivers)},
			{limits.ResourceVehicles, len(req.Vehicles)},
			{limits.ResourcePlatforms, len(req.Platforms)},
			{limits.ResourceExpenseTypes, len(req.ExpenseTypes)},
			{limits.ResourcePaymentMethods, len(req.PaymentMethods)},
		}
		for _, check := range checks {
			if err := s.limits.CheckCreateBatch(ctx, st, u, check.res, check.n); err != nil {
				return err
			}
		}

		for _, name := range req.Platforms {
			if _, err := st.Catalog.CreatePlatform(ctx, catalog.Platform{UserID: u.ID, Name: strings.TrimSpace(name)}); err != nil {
				return err
			}
		}
		for _, name := range req.ExpenseTypes {
			if _, err := st.Catalog.CreateExpenseType(ctx, catalog.ExpenseType{UserID: u.ID, Name: strings.TrimSpace(name)}); err != nil {
				return err
			}
		}
		for _, pm := range req.PaymentMethods {
			if _, err := st.Catalog.CreatePaymentMethod(ctx, catalog.PaymentMethod{UserID: u.ID, Name: strings.TrimSpace(pm.Name), Kind: pm.Kind}); err != nil {
				return err
			}
		}

		driverIDs := make([]string, len(req.Drivers))
		driverFlags := make([]bool, len(req.Drivers))
		for i, d := range req.Drivers {
			created, err := st.Fleet.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: strings.TrimSpace(d.Name), IsSelf: d.IsSelf})
			if err != nil {
				return err
			}
			driverIDs[i] = created.ID
			driverFlags[i] = d.IsSelf
		}

		vehicleIDs := make([]string, len(req.Vehicles))
		vehicleFlags := make([]bool, len(req.Vehicles))
		for i, v := range req.Vehicles {
			created, err := st.Fleet.CreateVehicle(ctx, fleet.Vehicle{
				UserID:    u.ID,
				Name:      strings.TrimSpace(v.Name),
				Make:      strings.TrimSpace(v.Make),
				Model:     strings.TrimSpace(v.Model),
				Year:      v.Year,
				IsPrimary: v.IsPrimary,
			})
			if err != nil {
				return err
			}
			vehicleIDs[i] = created.ID
			vehicleFlags[i] = v.IsPrimary
		}

		result.DefaultDriverID = firstFlagged(driverIDs, driverFlags)
		result.DefaultVehicleID = firstFlagged(vehicleIDs, vehicleFlags)

		prefs := user.Preferences{
			UserID:           u.ID,
			Currency:         strings.ToUpper(strings.TrimSpace(req.Currency)),
			Locale:           strings.TrimSpace(req.Locale),
			WeekStart:        strings.ToLower(strings.TrimSpace(req.WeekStart)),
			DefaultDriverID:  result.DefaultDriverID,
			DefaultVehicleID: result.DefaultVehicleID,
		}
		if prefs.Currency == "" {
			prefs.Currency = "USD"
		}
		if _, err := st.Users.UpsertPreferences(ctx, prefs); err != nil {
			return err
		}

		u.OnboardedAt = time.Now().UTC()
		updated, err := st.Users.UpdateUser(ctx, u)
		if err != nil {
			return err
		}
		result.User = updated
		return nil
	})
	if err != nil {
		metrics.RecordOnboarding("failed")
		return Result{}, err
	}

	if s.defaults != nil {
		s.defaults.Invalidate(ctx, u.ID)
	}
	metrics.RecordOnboarding("completed")
	s.log.WithField("user_id", u.ID).
		WithField("drivers", len(req.Drivers)).
		WithField("vehicles", len(req.Vehicles)).
		Info("onboarding completed")

	result.RedirectURL = DefaultRedirect
	if s.checkout != nil {
		if sel, ok := s.checkout.TakeStashed(ctx, u.ID); ok {
			session, err := s.checkout.Initiate(ctx, result.User, sel)
			if err != nil {
				// Onboarding itself succeeded; a checkout failure must not
				// undo it. The user can retry from the billing screen.
				s.log.WithError(err).WithField("user_id", u.ID).Warn("stashed checkout failed after onboarding")
			} else {
				result.RedirectURL = session.RedirectURL
			}
		}
	}
	return result, nil
}
