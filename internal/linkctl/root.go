// Package linkctl implements the administrative command line: schema
// migrations, account provisioning and audit export.
package linkctl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/taglink/internal/logging"
	"github.com/dmitrijs2005/taglink/internal/server/auth"
	"github.com/dmitrijs2005/taglink/internal/server/config"
	"github.com/dmitrijs2005/taglink/internal/server/models"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taglink/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// Backend is what the commands operate on.
type Backend interface {
	Migrate(ctx context.Context) error
	Register(ctx context.Context, username, password string) (*models.Account, error)
	Archive(ctx context.Context, since time.Time) (*services.Archive, error)
	Close() error
}

// Opener builds a Backend from the resolved configuration.
type Opener func(cfg *config.Config, logOut io.Writer) (Backend, error)

type options struct {
	configPath string
	dsn        string
	logLevel   string
}

func Execute() error {
	return NewRootCmd(OpenPostgres).Execute()
}

func NewRootCmd(open Opener) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "linkctl",
		Short:         "Administer the taglink directory",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to JSON config file")
	rootCmd.PersistentFlags().StringVarP(&opts.dsn, "dsn", "d", "", "PostgreSQL DSN (overrides config)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	withBackend := func(cmd *cobra.Command, fn func(Backend) error) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		b, err := open(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer b.Close()
		return fn(b)
	}

	rootCmd.AddCommand(
		newMigrateCmd(withBackend),
		newAccountCmd(withBackend),
		newAuditCmd(withBackend),
	)

	return rootCmd
}

// load resolves configuration through the same layering as the server.
func (o *options) load() (*config.Config, error) {
	var args []string
	if o.configPath != "" {
		args = append(args, "-c", o.configPath)
	}
	if o.dsn != "" {
		args = append(args, "-d", o.dsn)
	}
	args = append(args, "-l", o.logLevel)

	cfg, err := config.LoadConfig(args)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

type postgresBackend struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	sessions *services.SessionService
	audit    *services.AuditService
}

// OpenPostgres connects the commands to the configured database.
func OpenPostgres(cfg *config.Config, logOut io.Writer) (Backend, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	logger := logging.NewJSONLogger(logOut, cfg.LogLevel)
	rm := repomanager.NewPostgresRepositoryManager()

	return &postgresBackend{
		db:       db,
		rm:       rm,
		sessions: services.NewSessionService(db, rm, auth.NewIssuer([]byte(cfg.SecretKey)), logger),
		audit:    services.NewAuditService(db, rm, cfg, logger),
	}, nil
}

func (b *postgresBackend) Migrate(ctx context.Context) error {
	return b.rm.RunMigrations(ctx, b.db)
}

func (b *postgresBackend) Register(ctx context.Context, username, password string) (*models.Account, error) {
	return b.sessions.Register(ctx, username, password)
}

func (b *postgresBackend) Archive(ctx context.Context, since time.Time) (*services.Archive, error) {
	return b.audit.Archive(ctx, since)
}

func (b *postgresBackend) Close() error {
	return b.db.Close()
}
