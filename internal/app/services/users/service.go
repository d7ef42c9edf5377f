// Package users manages accounts and per-user preferences.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/services/defaults"
	"github.com/gigledger/gigledger/internal/app/storage"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/pkg/logger"
)

// Service manages user records and preferences.
type Service struct {
	store    storage.UserStore
	fleet    storage.FleetStore
	defaults *defaults.Service
	log      *logger.Logger
}

// New constructs a user service. Preference and tier writes invalidate the
// entry-form cache through def; a nil def skips invalidation.
func New(store storage.UserStore, fleet storage.FleetStore, def *defaults.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, fleet: fleet, defaults: def, log: log}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.defaults != nil {
		s.defaults.Invalidate(ctx, userID)
	}
}

// Register creates a new account on the free tier.
func (s *Service) Register(ctx context.Context, email, name string) (user.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, apperrors.Invalid("A valid email address is required.")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return user.User{}, apperrors.Invalid("An account with that email already exists.")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, err
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Email: email,
		Name:  strings.TrimSpace(name),
		Tier:  plan.Free,
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).Info("user registered")
	return created, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, apperrors.NotFound("")
	}
	return u, err
}

// ChangeTier moves a user onto a new plan.
func (s *Service) ChangeTier(ctx context.Context, userID string, tier plan.Tier) (user.User, error) {
	if !tier.Valid() {
		return user.User{}, apperrors.Invalid("Unknown plan tier.")
	}
	u, err := s.Get(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	u.Tier = tier
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	// The entry form is tier-dependent, so a cached config is stale now.
	s.invalidate(ctx, userID)
	s.log.WithField("user_id", userID).WithField("tier", string(tier)).Info("plan tier changed")
	return updated, nil
}

// Preferences returns the user's preferences, materializing a default row on
// first access.
func (s *Service) Preferences(ctx context.Context, userID string) (user.Preferences, error) {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return user.Preferences{}, err
	}
	return s.store.UpsertPreferences(ctx, user.Preferences{
		UserID:    userID,
		Currency:  "USD",
		Locale:    "en-US",
		WeekStart: "monday",
	})
}

// PreferencesUpdate carries the mutable preference fields. Nil pointers mean
// "leave unchanged"; empty strings clear the weak default pointers.
type PreferencesUpdate struct {
	Currency         *string
	Locale           *string
	WeekStart        *string
	DefaultDriverID  *string
	DefaultVehicleID *string
}

// UpdatePreferences applies an update after verifying that any referenced
// driver or vehicle exists and belongs to the user. Foreign rows surface as
// NotFound so ownership cannot be probed.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, update PreferencesUpdate) (user.Preferences, error) {
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		return user.Preferences{}, err
	}

	if update.Currency != nil {
		prefs.Currency = strings.ToUpper(strings.TrimSpace(*update.Currency))
	}
	if update.Locale != nil {
		prefs.Locale = strings.TrimSpace(*update.Locale)
	}
	if update.WeekStart != nil {
		prefs.WeekStart = strings.ToLower(strings.TrimSpace(*update.WeekStart))
	}
	if update.DefaultDriverID != nil {
		id := strings.TrimSpace(*update.DefaultDriverID)
		if id != "" {
			if err := s.checkDriverOwned(ctx, userID, id); err != nil {
				return user.Preferences{}, err
			}
		}
		prefs.DefaultDriverID = id
	}
	if update.DefaultVehicleID != nil {
		id := strings.TrimSpace(*update.DefaultVehicleID)
		if id != "" {
			if err := s.checkVehicleOwned(ctx, userID, id); err != nil {
				return user.Preferences{}, err
			}
		}
		prefs.DefaultVehicleID = id
	}

	prefs.UpdatedAt = time.Now().UTC()
	saved, err := s.store.UpsertPreferences(ctx, prefs)
	if err != nil {
		return user.Preferences{}, err
	}
	s.invalidate(ctx, userID)
	return saved, nil
}

func (s *Service) checkDriverOwned(ctx context.Context, userID, driverID string) error {
	d, err := s.fleet.GetDriver(ctx, driverID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && d.UserID != userID) {
		return apperrors.NotFound("Driver not found.")
	}
	return err
}

func (s *Service) checkVehicleOwned(ctx context.Context, userID, vehicleID string) error {
	v, err := s.fleet.GetVehicle(ctx, vehicleID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && v.UserID != userID) {
		return apperrors.NotFound("Vehicle not found.")
	}
	return err
}
