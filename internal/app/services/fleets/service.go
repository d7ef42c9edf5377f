// Package fleets manages a user's drivers and vehicles under plan limits.
package fleets

import (
	"context"
	"errors"
	"strings"

	"github.com/gigledger/gigledger/internal/app/domain/fleet"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/services/defaults"
	"github.com/gigledger/gigledger/internal/app/services/limits"
	"github.com/gigledger/gigledger/internal/app/storage"
	apperrors "github.com/gigledger/gigledger/internal/errors"
	"github.com/gigledger/gigledger/pkg/logger"
)

// Service creates, lists, and deletes drivers and vehicles.
type Service struct {
	users    storage.UserStore
	store    storage.FleetStore
	tx       storage.TxRunner
	limits   *limits.Service
	defaults *defaults.Service
	log      *logger.Logger
}

// New constructs a fleet service.
func New(users storage.UserStore, store storage.FleetStore, tx storage.TxRunner, lim *limits.Service, def *defaults.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("fleets")
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

// CreateDriver adds a driver. The plan-limit check and the insert share one
// transaction so concurrent creations cannot both squeeze under the cap.
func (s *Service) CreateDriver(ctx context.Context, userID string, d fleet.Driver) (fleet.Driver, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return fleet.Driver{}, apperrors.Invalid("Driver name is required.")
	}
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return fleet.Driver{}, err
	}

	var created fleet.Driver
	err = s.tx.InTx(ctx, func(st storage.Stores) error {
		if err := s.limits.CheckCreate(ctx, st, u, limits.ResourceDrivers); err != nil {
			return err
		}
		created, err = st.Fleet.CreateDriver(ctx, fleet.Driver{UserID: u.ID, Name: name, IsSelf: d.IsSelf})
		return err
	})
	if err != nil {
		return fleet.Driver{}, err
	}

	s.invalidate(ctx, u.ID)
	s.log.WithField("user_id", u.ID).WithField("driver_id", created.ID).Info("driver created")
	return created, nil
}

// ListDrivers returns the user's drivers.
func (s *Service) ListDrivers(ctx context.Context, userID string) ([]fleet.Driver, error) {
	return s.store.ListDrivers(ctx, userID)
}

// DeleteDriver removes a driver the user owns. Foreign rows read as NotFound.
func (s *Service) DeleteDriver(ctx context.Context, userID, driverID string) error {
	d, err := s.store.GetDriver(ctx, driverID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && d.UserID != userID) {
		return apperrors.NotFound("Driver not found.")
	}
	if err != nil {
		return err
	}
	if err := s.store.DeleteDriver(ctx, driverID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// CreateVehicle adds a vehicle under the same transactional limit check as
// CreateDriver.
func (s *Service) CreateVehicle(ctx context.Context, userID string, v fleet.Vehicle) (fleet.Vehicle, error) {
	name := strings.TrimSpace(v.Name)
	if name == "" {
		return fleet.Vehicle{}, apperrors.Invalid("Vehicle name is required.")
	}
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return fleet.Vehicle{}, err
	}

	var created fleet.Vehicle
	err = s.tx.InTx(ctx, func(st storage.Stores) error {
		if err := s.limits.CheckCreate(ctx, st, u, limits.ResourceVehicles); err != nil {
			return err
		}
		created, err = st.Fleet.CreateVehicle(ctx, fleet.Vehicle{
			UserID:    u.ID,
			Name:      name,
			Make:      strings.TrimSpace(v.Make),
			Model:     strings.TrimSpace(v.Model),
			Year:      v.Year,
			IsPrimary: v.IsPrimary,
		})
		return err
	})
	if err != nil {
		return fleet.Vehicle{}, err
	}

	s.invalidate(ctx, u.ID)
	s.log.WithField("user_id", u.ID).WithField("vehicle_id", created.ID).Info("vehicle created")
	return created, nil
}

// ListVehicles returns the user's vehicles.
func (s *Service) ListVehicles(ctx context.Context, userID string) ([]fleet.Vehicle, error) {
	return s.store.ListVehicles(ctx, userID)
}

// DeleteVehicle removes a vehicle the user owns.
func (s *Service) DeleteVehicle(ctx context.Context, userID, vehicleID string) error {
	v, err := s.store.GetVehicle(ctx, vehicleID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && v.UserID != userID) {
		return apperrors.NotFound("Vehicle not found.")
	}
	if err != nil {
		return err
	}
	if err := s.store.DeleteVehicle(ctx, vehicleID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}
