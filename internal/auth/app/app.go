package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/latticehq/lattice-auth/internal/auth/http"
	"github.com/latticehq/lattice-auth/internal/auth/service"
	"github.com/latticehq/lattice-auth/internal/auth/store"
	"github.com/latticehq/lattice-auth/internal/auth/store/drivers/sqlite"
	"github.com/latticehq/lattice-auth/internal/obs"
	"github.com/latticehq/lattice-auth/pkg/jwtx"
	"github.com/latticehq/lattice-auth/pkg/ratelimit"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	signer   jwtx.Signer
	verifier jwtx.Verifier

	tokenService        *service.TokenService
	sessionService      *service.SessionService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. A weak
// signing secret fails here, before the server ever accepts a request.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "lattice-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	obs.Init()

	signer, err := jwtx.NewSignerHS256([]byte(cfg.TokenSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer
	app.verifier = jwtx.NewVerifierHS256([]byte(cfg.TokenSecret), jwtx.VerifyOptions{
		Issuer: cfg.Issuer,
	})

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()

	if err := app.seedDirectory(); err != nil {
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	directory := &service.DirectoryService{Store: app.db}

	app.tokenService = &service.TokenService{
		Signer:     app.signer,
		Store:      app.db,
		Directory:  directory,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}
	app.sessionService = &service.SessionService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.SessionRetention,
	)
}

// seedDirectory creates the initial tenant and SUPER_ADMIN on a fresh
// database. Without bootstrap credentials an empty directory stays empty;
// that is worth a loud warning but not a failed start.
func (app *Application) seedDirectory() error {
	ctx := slogx.WithContext(context.Background(), app.logger)

	if app.cfg.BootstrapAdminEmail == "" {
		empty, err := app.db.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if empty {
			app.logger.Warn("directory is empty and no bootstrap admin is configured; nobody can log in")
		}
		return nil
	}

	return app.bootstrapService.Seed(ctx, service.BootstrapData{
		TenantName:    app.cfg.BootstrapTenantName,
		AppName:       app.cfg.BootstrapAppName,
		AdminEmail:    app.cfg.BootstrapAdminEmail,
		AdminPassword: app.cfg.BootstrapAdminPassword,
		AdminName:     app.cfg.BootstrapAdminName,
	})
}

func (app *Application) initHTTP() {
	policies := ratelimit.DefaultPolicies()
	policies[httpapi.ClassRefresh] = ratelimit.Policy{
		RequestsPerWindow: 60,
		Window:            time.Minute,
		Burst:             60,
	}

	router := httpapi.NewRouter(
		app.signer,
		app.verifier,
		BuildVersion,
		app.db,
		ratelimit.NewWithPolicies(policies),
		app.logger,
	)

	router.TokenService = app.tokenService
	router.SessionService = app.sessionService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
