// Package runtime wires configuration, storage, cache, and HTTP serving into
// a runnable application.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	app "github.com/gigledger/gigledger/internal/app"
	"github.com/gigledger/gigledger/internal/app/cache"
	"github.com/gigledger/gigledger/internal/app/httpapi"
	"github.com/gigledger/gigledger/internal/app/metrics"
	"github.com/gigledger/gigledger/internal/app/services/checkout"
	"github.com/gigledger/gigledger/internal/app/services/digest"
	"github.com/gigledger/gigledger/internal/app/storage"
	"github.com/gigledger/gigledger/internal/app/storage/postgres"
	"github.com/gigledger/gigledger/internal/config"
	"github.com/gigledger/gigledger/internal/middleware"
	"github.com/gigledger/gigledger/internal/platform/migrations"
	"github.com/gigledger/gigledger/pkg/logger"
)

// Application runs the HTTP server and the background services behind it.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sql.DB
	redis      *redis.Client
}

// NewApplication constructs the application from the loaded configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig wires the application against explicit
// configuration. Empty database and redis addresses select in-process
// implementations.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})

	deps := app.Dependencies{DigestSchedule: cfg.Digest.Schedule}

	var db *sql.DB
	if cfg.Database.DSN != "" {
		opened, err := openDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = migrations.Apply(ctx, db)
		cancel()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}

		store := postgres.New(db)
		deps.Stores = storage.Stores{
			Users:    store,
			Fleet:    store,
			Catalog:  store,
			Ledger:   store,
			Planning: store,
		}
		deps.Tx = store
	} else {
		log.Warn("database.dsn not set; using in-memory storage")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.WithError(err).Warn("redis unreachable; using in-process cache")
			redisClient.Close()
			redisClient = nil
		} else {
			deps.Cache = cache.NewRedis(redisClient, "")
		}
	}

	if cfg.Checkout.ProviderURL != "" {
		deps.Provider = checkout.NewHTTPProvider(cfg.Checkout.ProviderURL, cfg.Checkout.ProviderKey, &http.Client{Timeout: 15 * time.Second})
	}
	if cfg.Digest.SMTPAddr != "" {
		deps.Mailer = &digest.SMTPMailer{Addr: cfg.Digest.SMTPAddr, From: cfg.Digest.From}
	}

	application, err := app.New(deps, log.Component("app"))
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("build application: %w", err)
	}

	handler := buildHandler(cfg, application, log)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  timeoutOrDefault(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: timeoutOrDefault(cfg.Server.WriteTimeout, 30*time.Second),
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		app:        application,
		httpServer: srv,
		db:         db,
		redis:      redisClient,
	}, nil
}

func timeoutOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

// buildHandler assembles the middleware chain around the REST API.
func buildHandler(cfg *config.Config, application *app.Application, log *logger.Logger) http.Handler {
	api := httpapi.NewHandler(application, []byte(cfg.Server.JWTSecret), log.Component("httpapi"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", api)

	auth := middleware.NewAuthMiddleware([]byte(cfg.Server.JWTSecret), log.Component("auth"), []string{"/healthz", "/signup", "/metrics"})
	rl := middleware.NewRateLimiter(cfg.Server.RatePerSec, cfg.Server.RateBurst, log.Component("ratelimit"))
	cors := middleware.NewCORSMiddleware(cfg.Server.CORSOrigins)

	var handler http.Handler = mux
	handler = metrics.InstrumentHandler(handler)
	handler = rl.Handler(handler)
	handler = auth.Handler(handler)
	handler = cors.Handler(handler)
	return handler
}

// Run starts background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.cfg.Server.Addr).Info("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server and background services, then closes
// external connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		firstErr = err
	}
	if err := a.app.Stop(shutdownCtx); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return firstErr
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
