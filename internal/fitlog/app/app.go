package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	httpapi "github.com/billedfitness/bfl/internal/fitlog/http"
	"github.com/billedfitness/bfl/internal/fitlog/media"
	"github.com/billedfitness/bfl/internal/fitlog/service"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/internal/fitlog/store/drivers/sqlite"
	"github.com/billedfitness/bfl/pkg/jwtx"
	"github.com/billedfitness/bfl/pkg/slogx"
)

// BuildVersion is overridden at build time with -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application owns the web server and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db   store.Store
	keys Keys

	accountService      *service.AccountService
	adminService        *service.AdminService
	profileService      *service.ProfileService
	workoutService      *service.WorkoutService
	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "bfl",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	keys, err := InitKeys(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.keys = keys

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()

	if err := app.initMedia(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.bootstrapAdmin(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	return app, nil
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("bfl starting", slog.Int("port", app.cfg.Port), slog.String("version", BuildVersion))

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.db.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func (app *Application) Shutdown() error {
	app.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slogx.Err(err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slogx.Err(err))
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slogx.Err(err))
		return err
	}

	app.logger.Info("bfl stopped")
	return nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

func (app *Application) initDatabase() error {
	db, err := OpenStore(app.cfg.DatabaseFile)
	if err != nil {
		return err
	}
	app.db = db
	app.logger.Info("database migrations applied", slog.String("file", app.cfg.DatabaseFile))
	return nil
}

// OpenStore opens the SQLite file in WAL mode and brings its schema up to date.
func OpenStore(file string) (*sqlite.Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", file)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

func (app *Application) initServices() {
	app.accountService = &service.AccountService{Store: app.db}
	app.adminService = &service.AdminService{Store: app.db}
	app.profileService = &service.ProfileService{
		Store: app.db,
		Media: &media.Store{Root: app.cfg.MediaRoot},
	}
	app.workoutService = &service.WorkoutService{Store: app.db}
	app.sessionService = &service.SessionService{
		Store:    app.db,
		Signer:   app.keys.Signer,
		Verifier: jwtx.NewVerifier(app.keys.KeySet, app.cfg.Issuer, 30*time.Second),
		Issuer:   app.cfg.Issuer,
		TTL:      app.cfg.SessionTTL,
	}
	app.housekeepingService = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)
}

func (app *Application) initMedia() error {
	if err := app.profileService.Media.EnsureDefault(domain.DefaultImage); err != nil {
		return fmt.Errorf("prepare media root: %w", err)
	}
	return nil
}

func (app *Application) bootstrapAdmin() error {
	b := app.cfg.BootstrapAdmin()
	if !b.Configured() {
		return nil
	}

	ctx := slogx.WithContext(context.Background(), app.logger)
	u, err := app.adminService.Bootstrap(ctx, b)
	switch {
	case errors.Is(err, service.ErrBootstrapAlready):
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	app.logger.Info("bootstrap admin created", slog.String("user_id", u.ID), slog.String("username", u.Username))
	return nil
}

func (app *Application) initHTTP() error {
	views, err := httpapi.NewRenderer(app.cfg.SecureCookies)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	router := httpapi.NewRouter(app.keys.KeySet, BuildVersion, app.db, app.logger)
	router.AccountService = app.accountService
	router.ProfileService = app.profileService
	router.WorkoutService = app.workoutService
	router.SessionService = app.sessionService
	router.Views = views
	router.Cookies = httpapi.SessionCookies{Secure: app.cfg.SecureCookies, TTL: app.cfg.SessionTTL}
	router.MediaRoot = app.cfg.MediaRoot
	router.CSRFKey = app.keys.CSRF
	router.LoginLimit = app.cfg.StrictLimit()
	router.UploadLimit = app.cfg.ModerateLimit()
	router.TrustedProxies = app.cfg.Proxies()
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
