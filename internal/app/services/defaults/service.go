// Package defaults derives entry-form field visibility and pre-filled values
// from a user's preferences, fleet composition, and recent activity.
package defaults

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gigledger/gigledger/internal/app/cache"
	"github.com/gigledger/gigledger/internal/app/domain/ledger"
	"github.com/gigledger/gigledger/internal/app/domain/plan"
	"github.com/gigledger/gigledger/internal/app/domain/user"
	"github.com/gigledger/gigledger/internal/app/metrics"
	"github.com/gigledger/gigledger/internal/app/storage"
	"github.com/gigledger/gigledger/pkg/logger"
)

// cacheTTL bounds staleness when no invalidating write arrives.
const cacheTTL = 30 * time.Minute

// frequencyWindowDays is the trailing activity window for usage-based
// defaults. The boundary day is inclusive.
const frequencyWindowDays = 30

// maxTopPlatforms caps the "most used platforms" list.
const maxTopPlatforms = 3

// UserTag is the cache invalidation tag covering one user's resolved
// defaults. Every write that can change a default must invalidate it.
func UserTag(userID string) string {
	return "defaults:user:" + userID
}

// EntryFormConfig tells the entry form which selectors to show and what to
// pre-fill. Empty IDs mean no default could be derived.
type EntryFormConfig struct {
	ShowDriverField        bool     `json:"show_driver_field"`
	ShowVehicleField       bool     `json:"show_vehicle_field"`
	ShowPaymentMethodField bool     `json:"show_payment_method_field"`
	DefaultDriverID        string   `json:"default_driver_id,omitempty"`
	DefaultVehicleID       string   `json:"default_vehicle_id,omitempty"`
	DefaultPaymentMethodID string   `json:"default_payment_method_id,omitempty"`
	TopPlatformIDs         []string `json:"top_platform_ids,omitempty"`
}

// Service resolves entry-form defaults, memoized per user.
type Service struct {
	users   storage.UserStore
	fleet   storage.FleetStore
	catalog storage.CatalogStore
	ledger  storage.LedgerStore
	cache   cache.Cache
	log     *logger.Logger
	now     func() time.Time
}

// New constructs a defaults service. The cache may be nil, in which case
// every call resolves from scratch.
func New(st storage.Stores, c cache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("defaults")
	}
	return &Service{
		users:   st.Users,
		fleet:   st.Fleet,
		catalog: st.Catalog,
		ledger:  st.Ledger,
		cache:   c,
		log:     log,
		now:     time.Now,
	}
}

// EntryForm resolves the form configuration for a user, serving from cache
// when a fresh entry exists.
func (s *Service) EntryForm(ctx context.Context, u user.User) (EntryFormConfig, error) {
	key := "defaults:entryform:" + u.ID
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var cfg EntryFormConfig
			if err := json.Unmarshal(raw, &cfg); err == nil {
				metrics.RecordCacheLookup("hit")
				return cfg, nil
			}
		}
		metrics.RecordCacheLookup("miss")
	}

	cfg, err := s.resolve(ctx, u)
	if err != nil {
		return EntryFormConfig{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(cfg); err == nil {
			if err := s.cache.Set(ctx, key, raw, cacheTTL, UserTag(u.ID)); err != nil {
				s.log.WithError(err).Warn("caching entry form config failed")
			}
		}
	}
	return cfg, nil
}

func (s *Service) resolve(ctx context.Context, u user.User) (EntryFormConfig, error) {
	since := s.now().UTC().AddDate(0, 0, -frequencyWindowDays)

	drivers, err := s.fleet.ListDrivers(ctx, u.ID)
	if err != nil {
		return EntryFormConfig{}, err
	}
	vehicles, err := s.fleet.ListVehicles(ctx, u.ID)
	if err != nil {
		return EntryFormConfig{}, err
	}

	// The capacity-1 tier hides every selector; its defaults are just the
	// first (structurally only) rows.
	if u.Tier == plan.Free {
		cfg := EntryFormConfig{}
		if len(drivers) > 0 {
			cfg.DefaultDriverID = drivers[0].ID
		}
		if len(vehicles) > 0 {
			cfg.DefaultVehicleID = vehicles[0].ID
		}
		metrics.RecordDefaultResolution("driver", "first_match")
		metrics.RecordDefaultResolution("vehicle", "first_match")
		return cfg, nil
	}

	prefs, err := s.users.GetPreferences(ctx, u.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return EntryFormConfig{}, err
	}

	cfg := EntryFormConfig{
		ShowDriverField:        true,
		ShowVehicleField:       true,
		ShowPaymentMethodField: true,
	}

	driverIDs := make(map[string]bool, len(drivers))
	var selfDriver string
	for _, d := range drivers {
		driverIDs[d.ID] = true
		if d.IsSelf && selfDriver == "" {
			selfDriver = d.ID
		}
	}
	cfg.DefaultDriverID = s.resolveChain(ctx, "driver", chain{
		preference: prefs.DefaultDriverID,
		known:      driverIDs,
		onlyOne:    onlyID(len(drivers), func() string { return drivers[0].ID }),
		flagged:    selfDriver,
		frequency: func() ([]ledger.FrequencyCount, error) {
			return s.ledger.DriverFrequency(ctx, u.ID, since)
		},
	})

	vehicleIDs := make(map[string]bool, len(vehicles))
	var primaryVehicle string
	for _, v := range vehicles {
		vehicleIDs[v.ID] = true
		if v.IsPrimary && primaryVehicle == "" {
			primaryVehicle = v.ID
		}
	}
	cfg.DefaultVehicleID = s.resolveChain(ctx, "vehicle", chain{
		preference: prefs.DefaultVehicleID,
		known:      vehicleIDs,
		onlyOne:    onlyID(len(vehicles), func() string { return vehicles[0].ID }),
		flagged:    primaryVehicle,
		frequency: func() ([]ledger.FrequencyCount, error) {
			return s.ledger.VehicleFrequency(ctx, u.ID, since)
		},
	})

	// Payment method and platforms are pure usage-frequency lookups with no
	// preference or flag override.
	if counts, err := s.ledger.PaymentMethodFrequency(ctx, u.ID, since); err == nil && len(counts) > 0 {
		cfg.DefaultPaymentMethodID = counts[0].ID
		metrics.RecordDefaultResolution("payment_method", "frequency")
	} else {
		metrics.RecordDefaultResolution("payment_method", "none")
	}

	if counts, err := s.ledger.PlatformFrequency(ctx, u.ID, since); err == nil {
		for i := 0; i < len(counts) && i < maxTopPlatforms; i++ {
			cfg.TopPlatformIDs = append(cfg.TopPlatformIDs, counts[i].ID)
		}
	}

	return cfg, nil
}

type chain struct {
	preference string
	known      map[string]bool
	onlyOne    string
	flagged    string
	frequency  func() ([]ledger.FrequencyCount, error)
}

func onlyID(count int, first func() string) string {
	if count == 1 {
		return first()
	}
	return ""
}

// resolveChain walks the strict priority order: explicit preference, sole
// resource, flagged resource, then trailing-window frequency. First match
// wins even when later rules would disagree.
func (s *Service) resolveChain(ctx context.Context, field string, c chain) string {
	if c.preference != "" && c.known[c.preference] {
		metrics.RecordDefaultResolution(field, "preference")
		return c.preference
	}
	if c.onlyOne != "" {
		metrics.RecordDefaultResolution(field, "only")
		return c.onlyOne
	}
	if c.flagged != "" {
		metrics.RecordDefaultResolution(field, "flag")
		return c.flagged
	}
	counts, err := c.frequency()
	if err != nil {
		s.log.WithError(err).WithField("field", field).Warn("frequency lookup failed")
		metrics.RecordDefaultResolution(field, "none")
		return ""
	}
	for _, fc := range counts {
		if c.known[fc.ID] {
			metrics.RecordDefaultResolution(field, "frequency")
			return fc.ID
		}
	}
	metrics.RecordDefaultResolution(field, "none")
	return ""
}

// Invalidate drops the cached defaults for a user. Writers call this after
// any mutation that can change a resolved default.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTags(ctx, UserTag(userID)); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("defaults invalidation failed")
	}
}
