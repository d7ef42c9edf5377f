package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gigledger/gigledger/internal/app/cache"
	"github.com/gigledger/gigledger/internal/app/services/catalogs"
	"github.com/gigledger/gigledger/internal/app/services/checkout"
	"github.com/gigledger/gigledger/internal/app/services/defaults"
	"github.com/gigledger/gigledger/internal/app/services/digest"
	"github.com/gigledger/gigledger/internal/app/services/entries"
	"github.com/gigledger/gigledger/internal/app/services/exports"
	"github.com/gigledger/gigledger/internal/app/services/fleets"
	"github.com/gigledger/gigledger/internal/app/services/limits"
	"github.com/gigledger/gigledger/internal/app/services/onboarding"
	"github.com/gigledger/gigledger/internal/app/services/plans"
	"github.com/gigledger/gigledger/internal/app/services/users"
	"github.com/gigledger/gigledger/internal/app/storage"
	"github.com/gigledger/gigledger/internal/app/storage/memory"
	"github.com/gigledger/gigledger/internal/app/system"
	"github.com/gigledger/gigledger/pkg/logger"
)

// Dependencies carries the external resources the application runs on. Nil
// fields default to in-process implementations.
type Dependencies struct {
	Stores   storage.Stores
	Tx       storage.TxRunner
	Cache    cache.Cache
	Provider checkout.Provider
	Mailer   digest.Mailer

	DigestSchedule string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Stores     storage.Stores
	Users      *users.Service
	Limits     *limits.Service
	Fleets     *fleets.Service
	Catalogs   *catalogs.Service
	Plans      *plans.Service
	Entries    *entries.Service
	Defaults   *defaults.Service
	Checkout   *checkout.Service
	Onboarding *onboarding.Service
	Exports    *exports.Service
	Digest     *digest.Service
}

// New builds a fully initialised application with the provided dependencies.
func New(deps Dependencies, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if deps.Stores.Users == nil {
		deps.Stores.Users = mem
	}
	if deps.Stores.Fleet == nil {
		deps.Stores.Fleet = mem
	}
	if deps.Stores.Catalog == nil {
		deps.Stores.Catalog = mem
	}
	if deps.Stores.Ledger == nil {
		deps.Stores.Ledger = mem
	}
	if deps.Stores.Planning == nil {
		deps.Stores.Planning = mem
	}
	if deps.Tx == nil {
		deps.Tx = mem
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory()
	}
	if deps.Mailer == nil {
		deps.Mailer = &digest.LogMailer{Log: log.Component("mailer")}
	}
	if deps.Provider == nil {
		if endpoint := strings.TrimSpace(os.Getenv("CHECKOUT_PROVIDER_URL")); endpoint != "" {
			deps.Provider = checkout.NewHTTPProvider(endpoint, os.Getenv("CHECKOUT_PROVIDER_KEY"), &http.Client{Timeout: 15 * time.Second})
		} else {
			log.Warn("CHECKOUT_PROVIDER_URL not set; checkout initiation disabled")
		}
	}

	manager := system.NewManager()

	limitsService := limits.New(deps.Stores.Users, deps.Tx, log)
	defaultsService := defaults.New(deps.Stores, deps.Cache, log)
	usersService := users.New(deps.Stores.Users, deps.Stores.Fleet, defaultsService, log)
	fleetsService := fleets.New(deps.Stores.Users, deps.Stores.Fleet, deps.Tx, limitsService, defaultsService, log)
	catalogsService := catalogs.New(deps.Stores.Users, deps.Stores.Catalog, deps.Tx, limitsService, defaultsService, log)
	plansService := plans.New(deps.Stores.Users, deps.Stores.Planning, deps.Tx, limitsService, log)
	entriesService := entries.New(deps.Stores, defaultsService, log)
	checkoutService := checkout.New(deps.Provider, deps.Cache, log)
	onboardingService := onboarding.New(deps.Stores.Users, deps.Tx, limitsService, defaultsService, checkoutService, log)
	exportsService := exports.New(deps.Stores.Ledger, limitsService, log)
	digestService := digest.New(deps.Stores.Users, entriesService, deps.Mailer, deps.DigestSchedule, log)

	if err := manager.Register(digestService); err != nil {
		return nil, fmt.Errorf("register digest: %w", err)
	}

	return &Application{
		manager:    manager,
		log:        log,
		Stores:     deps.Stores,
		Users:      usersService,
		Limits:     limitsService,
		Fleets:     fleetsService,
		Catalogs:   catalogsService,
		Plans:      plansService,
		Entries:    entriesService,
		Defaults:   defaultsService,
		Checkout:   checkoutService,
		Onboarding: onboardingService,
		Exports:    exportsService,
		Digest:     digestService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
