// Package cli implements the interactive LinkDeck command-line client.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/linkdeck/internal/client/api"
	"github.com/dmitrijs2005/linkdeck/internal/client/config"
	"github.com/dmitrijs2005/linkdeck/internal/client/session"
	"github.com/dmitrijs2005/linkdeck/internal/client/transport"
	"github.com/dmitrijs2005/linkdeck/internal/logging"
)

type App struct {
	config  *config.Config
	session *session.Manager
	db      *sql.DB
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	db, err := InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	store := session.NewStore(db)
	mgr := session.NewManager(store, c.RefreshTimeout, logger)

	// Authenticated calls go through the refreshing transport; the
	// transport asks the manager for tokens, and the manager talks to
	// the server through the client. Bind closes the loop.
	apiClient := api.New(c.ServerEndpointAddr, c.RequestTimeout, transport.NewAuthTransport(nil, mgr))
	mgr.Bind(apiClient)

	if err := mgr.Restore(ctx); err != nil {
		logger.Warn(ctx, "failed to restore session", "error", err)
	}

	return &App{config: c, session: mgr, db: db, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.db.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session.IsLoggedIn()
}
