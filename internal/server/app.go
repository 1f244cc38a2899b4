// Package server initializes and runs the linkdeck API server: it opens
// the database, applies migrations, wires the services, and serves HTTP
// until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/server/avatars"
	"github.com/dmitrijs2005/linkdeck/internal/server/config"
	"github.com/dmitrijs2005/linkdeck/internal/server/httpapi"
	"github.com/dmitrijs2005/linkdeck/internal/server/migrations"
	"github.com/dmitrijs2005/linkdeck/internal/server/repositories/users"
	"github.com/dmitrijs2005/linkdeck/internal/server/services"
	"github.com/dmitrijs2005/linkdeck/internal/server/token"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	codec := token.NewCodec(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)

	repo := users.NewPostgresRepository(db)
	us := services.NewUserService(repo, codec, cfg.BcryptCost)
	av := avatars.NewService(cfg)

	api := httpapi.NewServer(cfg.EndpointAddr, logger, us, av, codec)

	return &App{config: cfg, logger: logger, db: db, api: api}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.api.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
}
