// Package server wires the persistence server: database and migrations,
// the HTTP API and the gRPC health endpoint, with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/logging"
	"github.com/dmitrijs2005/auditkeeper/internal/server/config"
	"github.com/dmitrijs2005/auditkeeper/internal/server/health"
	"github.com/dmitrijs2005/auditkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/auditkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/auditkeeper/internal/server/services"
	"golang.org/x/sync/errgroup"
)

const startupTimeout = 30 * time.Second

var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *httpapi.Server
	health *health.Server
}

// NewApp connects to the database, applies migrations and builds the
// servers. The database is closed again on any error.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	app, err := build(ctx, cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	users := services.NewUserService(db, rm, cfg)
	records := services.NewRecordService(db, rm)
	photos := services.NewPhotoService(cfg)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		http:   httpapi.NewServer(cfg.HTTPAddr, logger, users, records, photos, db.PingContext),
		health: health.NewServer(cfg.HealthAddr, logger, db.PingContext),
	}, nil
}

// Run serves until ctx is cancelled or a server fails, then stops both
// servers and closes the database.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(gctx) })
	g.Go(func() error { return app.health.Run(gctx) })

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
