// Package client wires the tenant mirror: it opens the local sqlite mirror,
// builds the identity service client and drives the syncer.
package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	hc "github.com/dmitrijs2005/corund/internal/client/client"
	"github.com/dmitrijs2005/corund/internal/client/config"
	"github.com/dmitrijs2005/corund/internal/client/services"
	"github.com/dmitrijs2005/corund/internal/logging"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	syncer *services.Syncer
}

// NewApp opens and migrates the mirror database and builds the syncer.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if c.DomainKey == "" || c.DomainSecret == "" {
		return nil, errors.New("domain key and secret are required")
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := hc.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	source := hc.NewHTTPClient(c.ServerURL, c.DomainKey, c.DomainSecret, nil)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		syncer: services.NewSyncer(db, source, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run performs a single sync when the config asks for it, otherwise it
// syncs on the configured interval until ctx is cancelled or a termination
// signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	if app.config.Once {
		_, err := app.syncer.SyncOnce(ctx)
		return err
	}

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "Starting mirror...", "server", app.config.ServerURL, "interval", app.config.SyncInterval.String())
	err := app.syncer.Run(ctx, app.config.SyncInterval)
	app.logger.Info(ctx, "Mirror stopped")
	return err
}
