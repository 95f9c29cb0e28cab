package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"procurement/db"
	"procurement/db/migrations"
	"procurement/internal/config"
	"procurement/internal/handlers"
	"procurement/internal/lifecycle"
	"procurement/internal/memstore"
	"procurement/internal/metrics"
	"procurement/internal/seed"
)

// store is what the app needs from a storage driver.
type store interface {
	lifecycle.Store
	lifecycle.Seeder
}

type App struct {
	cfg    *config.Config
	log    *zap.Logger
	store  store
	closer io.Closer

	tenders  *lifecycle.Tenders
	bids     *lifecycle.Bids
	feedback *lifecycle.Feedback
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	app := &App{cfg: cfg, log: log}

	if err := app.openStore(); err != nil {
		return nil, err
	}

	if cfg.SeedFile != "" {
		s, err := seed.Load(cfg.SeedFile)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("app.NewApp: %w", err)
		}
		if err := seed.Apply(ctx, app.store, s, log); err != nil {
			app.Close()
			return nil, fmt.Errorf("app.NewApp: %w", err)
		}
	}

	identity := lifecycle.NewResolver(app.store)
	app.tenders = lifecycle.NewTenders(app.store, identity, log.Named("tenders"))
	app.bids = lifecycle.NewBids(app.store, identity, log.Named("bids"))
	app.feedback = lifecycle.NewFeedback(app.store, identity, log.Named("feedback"))
	return app, nil
}

func (app *App) openStore() error {
	switch app.cfg.StorageDriver {
	case config.DriverMemory:
		app.store = memstore.New()
		app.log.Info("using in-memory storage")
		return nil
	case config.DriverPostgres:
	default:
		return fmt.Errorf("app.openStore: unknown storage driver %q", app.cfg.StorageDriver)
	}

	dbConn, err := sqlx.Connect("postgres", app.cfg.Conn)
	if err != nil {
		return fmt.Errorf("app.openStore: connect: %w", err)
	}
	dbConn.SetMaxOpenConns(app.cfg.MaxOpenConns)
	dbConn.SetMaxIdleConns(app.cfg.MaxIdleConns)
	dbConn.SetConnMaxLifetime(app.cfg.ConnMaxLifetime)

	if app.cfg.AutoMigrate {
		if err := migrations.Run(dbConn.DB, app.log); err != nil {
			dbConn.Close()
			return fmt.Errorf("app.openStore: %w", err)
		}
	}

	app.store = db.NewStorage(dbConn)
	app.closer = dbConn
	app.log.Info("connected to postgres")
	return nil
}

// Run serves HTTP until SIGINT/SIGTERM or ctx is cancelled, then shuts the
// server down within the configured timeout.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	limiter := handlers.NewRateLimiter(ctx, app.cfg.RPS, app.cfg.Burst)
	h := handlers.NewHandler(app.tenders, app.bids, app.feedback)

	server := &http.Server{
		Addr:         app.cfg.ServerAddress,
		Handler:      handlers.NewRouter(h, app.log, limiter),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		app.log.Info("server started", zap.String("address", app.cfg.ServerAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("app.App.Run: %w", err)
		}
	case <-ctx.Done():
		app.log.Info("shutting down http server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app.App.Run: shutdown: %w", err)
	}
	return nil
}

func (app *App) Close() error {
	if app.closer == nil {
		return nil
	}
	app.log.Info("closing storage")
	return app.closer.Close()
}
