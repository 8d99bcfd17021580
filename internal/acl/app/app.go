package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/aussiebroadwan/projectacl/internal/acl/http"
	"github.com/aussiebroadwan/projectacl/internal/acl/service"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/internal/acl/store/drivers/postgres"
	"github.com/aussiebroadwan/projectacl/internal/acl/store/drivers/sqlite"
	"github.com/aussiebroadwan/projectacl/pkg/cryptox"
	"github.com/aussiebroadwan/projectacl/pkg/jwtx"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application is the ACL HTTP service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	registry *prometheus.Registry
	metrics  *service.Metrics
	keys     *jwtx.KeySet

	stopKeyRefresh context.CancelFunc
	keyRefreshDone chan struct{}

	shareService        *service.ShareService
	inviteService       *service.InviteService
	authorizer          service.Authorizer
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialised.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg:    cfg,
		logger: NewLogger(cfg, "acl-service", nil),
	}

	db, err := OpenStore(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := app.initKeys(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// NewLogger builds the root logger for a binary of this module. A nil out
// writes to stdout.
func NewLogger(cfg Config, serviceName string, out io.Writer) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: serviceName,
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  out,
	})
}

// OpenStore opens the configured driver and applies migrations.
func OpenStore(cfg Config, logger *slog.Logger) (store.Store, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	var (
		db  store.Store
		err error
	)
	switch cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(cfg.DatabaseURL, postgres.Options{
			MaxConns:    20,
			MinConns:    2,
			MaxLifetime: 30 * time.Minute,
			LockTimeout: cfg.LockTimeout,
		})
	default:
		db, err = sqlite.NewStore(sqlite.DSN(cfg.DatabaseFile, cfg.LockTimeout))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("database migrations applied", slog.String("driver", cfg.DatabaseDriver))
	return db, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	app.startKeyRefresh()

	app.logger.Info("acl service starting",
		slog.Int("port", app.cfg.Port),
		slog.String("version", BuildVersion),
		slog.Bool("shadow_legacy", app.cfg.ShadowLegacy),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.stopKeyRefreshLoop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains requests, stops housekeeping and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down acl service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slog.Any("error", err))
		}
	}

	app.housekeepingService.Stop()
	app.stopKeyRefreshLoop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slog.Any("error", err))
		return err
	}

	app.logger.Info("acl service stopped")
	return nil
}

func (app *Application) initKeys() error {
	if app.cfg.JWKSURL == "" {
		keys, err := jwtx.LoadKeySetFile(app.cfg.PublicKeyFile, app.cfg.KeyID)
		if err != nil {
			return fmt.Errorf("failed to load token verification key: %w", err)
		}
		app.keys = keys
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	app.keys = jwtx.NewKeySet()
	n, err := app.keys.RefreshFromURL(ctx, jwksClient, app.cfg.JWKSURL)
	if err != nil {
		return fmt.Errorf("failed to fetch token verification keys: %w", err)
	}
	app.logger.Info("verification keys loaded", slog.String("jwks_url", app.cfg.JWKSURL), slog.Int("keys", n))
	return nil
}

var jwksClient = &http.Client{Timeout: 10 * time.Second}

// startKeyRefresh re-fetches the JWKS on an interval so rotated signing keys
// are picked up without a restart. A failed fetch keeps the current keys.
func (app *Application) startKeyRefresh() {
	if app.cfg.JWKSURL == "" || app.cfg.JWKSRefresh <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.stopKeyRefresh = cancel
	app.keyRefreshDone = make(chan struct{})

	go func() {
		defer close(app.keyRefreshDone)

		ticker := time.NewTicker(app.cfg.JWKSRefresh)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n, err := app.keys.RefreshFromURL(ctx, jwksClient, app.cfg.JWKSURL)
				if err != nil {
					app.logger.Warn("jwks refresh failed", slog.Any("error", err))
					continue
				}
				app.logger.Debug("jwks refreshed", slog.Int("keys", n))
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (app *Application) stopKeyRefreshLoop() {
	if app.stopKeyRefresh == nil {
		return
	}
	app.stopKeyRefresh()
	<-app.keyRefreshDone
	app.stopKeyRefresh = nil
}

func (app *Application) initServices() error {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = service.NewMetrics(app.registry)

	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	deps := service.Deps{
		Store:   app.db,
		Metrics: app.metrics,
		Retry:   service.DefaultRetryPolicy,
	}

	app.shareService = &service.ShareService{Deps: deps}
	app.inviteService = &service.InviteService{
		Deps:      deps,
		Shares:    app.shareService,
		Passwords: cryptox.PasswordHasher{Pepper: pepper},
		TTL:       app.cfg.InviteTTL,
	}

	resolver := &service.Resolver{Store: app.db}
	app.authorizer = resolver
	if app.cfg.ShadowLegacy {
		app.authorizer = &service.ShadowResolver{ACL: resolver, Store: app.db, Metrics: app.metrics}
		app.logger.Info("legacy shadow comparison enabled")
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingInterval,
		app.cfg.InviteRetention,
	)
	return nil
}

func (app *Application) initHTTP() {
	verifier := jwtx.NewVerifierEdDSA(app.keys, jwtx.VerifyOptions{
		Issuer:   app.cfg.Issuer,
		Audience: app.cfg.Audience,
		Leeway:   30 * time.Second,
	})

	router := httpapi.NewRouter(app.keys, verifier, BuildVersion, app.db, app.registry, app.logger)
	router.Authorizer = app.authorizer
	router.ShareService = app.shareService
	router.Invites = app.inviteService
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// NewBackfill wires the legacy backfill against st.
func NewBackfill(cfg Config, st store.Store, metrics *service.Metrics) *service.Backfill {
	deps := service.Deps{Store: st, Metrics: metrics, Retry: service.DefaultRetryPolicy}
	return &service.Backfill{
		Deps:    deps,
		Shares:  &service.ShareService{Deps: deps},
		Workers: cfg.BackfillWorkers,
	}
}
