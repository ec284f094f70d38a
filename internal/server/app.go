// Package server wires the identity service together: it opens the
// database, applies migrations, registers the configured domains and runs
// the HTTP and gRPC endpoints until a signal or a fatal server error.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/corund/internal/cryptox"
	"github.com/dmitrijs2005/corund/internal/logging"
	"github.com/dmitrijs2005/corund/internal/server/auth"
	"github.com/dmitrijs2005/corund/internal/server/config"
	"github.com/dmitrijs2005/corund/internal/server/httpapi"
	"github.com/dmitrijs2005/corund/internal/server/metrics"
	"github.com/dmitrijs2005/corund/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/corund/internal/server/services"

	gs "github.com/dmitrijs2005/corund/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Metrics

	ledger   *services.ChangeLedger
	users    *services.UserDirectory
	sessions *services.SessionStore
	domains  *services.DomainRegistry
}

// NewApp builds the service graph. It does not touch the database yet.
func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return newApp(c, logger, db, repomanager.NewPostgresRepositoryManager()), nil
}

func newApp(c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) *App {
	m := metrics.NewMetrics()
	hasher := cryptox.NewArgon2Hasher(cryptox.DefaultParams)
	codec := auth.NewTokenCodec([]byte(c.RefreshTokenSecret), []byte(c.AccessTokenSecret))

	ledger := services.NewChangeLedger(db, rm, logger, m)
	users := services.NewUserDirectory(db, rm, ledger, hasher, c.ArchivedUsernamePrefix, logger, m)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		metrics:     m,
		ledger:      ledger,
		users:       users,
		sessions:    services.NewSessionStore(db, rm, users, hasher, codec, c, logger, m),
		domains:     services.NewDomainRegistry(db, rm, logger),
	}
}

// Bootstrap applies migrations and registers the configured domains.
func (app *App) Bootstrap(ctx context.Context) error {
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if _, err := app.domains.Bootstrap(ctx, app.config.Domains); err != nil {
		return fmt.Errorf("domains bootstrap: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler of the RPC surface.
func (app *App) Handler() *httpapi.Handler {
	return httpapi.NewHandler(app.users, app.sessions, app.ledger, app.domains, app.logger, app.metrics)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context) error {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.Handler().Router(), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context) error {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.users, app.db)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

// Run bootstraps the database and serves until ctx is cancelled, a
// termination signal arrives or one of the servers fails. A server failure
// stops the other one and is returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	for _, start := range []func(context.Context) error{app.startHTTPServer, app.startGRPCServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := start(ctx); err != nil {
				errCh <- err
				cancelFunc()
			}
		}()
	}

	wg.Wait()
	close(errCh)
	app.logger.Info(ctx, "App stopped")

	// first failure wins; nil once the channel is drained
	return <-errCh
}
