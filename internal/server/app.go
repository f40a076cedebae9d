// Package server wires configuration, storage, services and transports into
// a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/taglink/internal/logging"
	"github.com/dmitrijs2005/taglink/internal/ratelimit"
	"github.com/dmitrijs2005/taglink/internal/server/auth"
	"github.com/dmitrijs2005/taglink/internal/server/config"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taglink/internal/server/rest"
	"github.com/dmitrijs2005/taglink/internal/server/services"

	gs "github.com/dmitrijs2005/taglink/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	limiter        *ratelimit.KeyedRateLimiter
	linkService    *services.LinkService
	sessionService *services.SessionService
	auditService   *services.AuditService
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	issuer := auth.NewIssuer([]byte(c.SecretKey))

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		repomanager:    rm,
		limiter:        ratelimit.New(float64(c.LoginRatePerMinute), c.LoginBurst, 10*time.Minute),
		linkService:    services.NewLinkService(db, rm, logger),
		sessionService: services.NewSessionService(db, rm, issuer, logger),
		auditService:   services.NewAuditService(db, rm, c, logger),
	}, nil
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
	s := rest.NewServer(app.config.EndpointAddrHTTP, app.logger, app.db,
		app.linkService, app.sessionService, app.auditService, app.limiter)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (app *App) startGRPCServer(ctx context.Context) error {
	s := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.logger, app.db, app.config.HealthCheckInterval)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

// Run applies migrations, serves HTTP and gRPC until ctx is cancelled or a
// termination signal arrives, and then releases resources. If either server
// fails, the other is stopped and the first failure is returned.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	serve := func(start func(context.Context) error) {
		defer wg.Done()
		if err := start(ctx); err != nil {
			errs <- err
			cancelFunc()
		}
	}

	wg.Add(2)
	go serve(app.startHTTPServer)
	go serve(app.startGRPCServer)

	wg.Wait()
	close(errs)

	app.logger.Info(context.WithoutCancel(ctx), "App stopped")

	// nil when both servers stopped cleanly
	return <-errs
}

func (app *App) close() {
	app.limiter.Stop()
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close failed", "error", err)
	}
}
