// Package app wires a workspace into a running lifecycle service: database,
// migrations, role seeding, document store, metrics and the engine.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sengketa/internal/config"
	"sengketa/internal/db"
	"sengketa/internal/docstore"
	"sengketa/internal/domain"
	"sengketa/internal/engine"
	"sengketa/internal/ledger"
	"sengketa/internal/metrics"
	"sengketa/internal/migrate"
	"sengketa/internal/repo"
)

// ErrNotInitialized is returned when the workspace has no sengketa.yml.
var ErrNotInitialized = errors.New("workspace not initialized; run sengketa init")

// Options controls how a workspace is opened.
type Options struct {
	Workspace string
	// ConfigPath overrides <workspace>/sengketa.yml.
	ConfigPath string
	// Config bypasses the config file entirely.
	Config     *config.Config
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Now        func() time.Time
}

// App is an opened workspace.
type App struct {
	DB      *sql.DB
	Config  *config.Config
	Repo    repo.Repo
	Engine  engine.Engine
	Service Service
	Ledger  ledger.Local
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Open loads config, migrates the database, seeds the role table and builds
// the engine and document store.
func Open(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	a, err := build(ctx, conn, cfg, opts, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, conn *sql.DB, cfg *config.Config, opts Options, logger *slog.Logger) (*App, error) {
	if err := migrate.Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	m := metrics.New(opts.Registerer)
	eng := engine.New(conn)
	eng.Metrics = m
	eng.Logger = logger
	if opts.Now != nil {
		eng.Now = opts.Now
	}
	if err := seedRoles(ctx, eng, cfg); err != nil {
		return nil, err
	}
	docs, err := docstore.Open(ctx, cfg.Documents, db.Dir(opts.Workspace), m, logger)
	if err != nil {
		return nil, fmt.Errorf("document store: %w", err)
	}
	return &App{
		DB:      conn,
		Config:  cfg,
		Repo:    eng.Repo,
		Engine:  eng,
		Service: Service{Engine: eng, Docs: docs},
		Ledger:  ledger.Local{Engine: eng},
		Metrics: m,
		Logger:  logger,
	}, nil
}

func loadConfig(opts Options) (*config.Config, error) {
	if opts.Config != nil {
		if err := opts.Config.Validate(); err != nil {
			return nil, err
		}
		return opts.Config, nil
	}
	if opts.ConfigPath != "" {
		return config.FromFile(opts.ConfigPath)
	}
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

// seedRoles installs the config's role table. The table is replaced on every
// open so the file stays the single source of truth.
func seedRoles(ctx context.Context, eng engine.Engine, cfg *config.Config) error {
	tx, err := eng.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := eng.Roles.Seed(ctx, tx, cfg.Roles.Assignments(), time.Now()); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	return tx.Commit()
}

// Close releases the database.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Init writes a default config naming admin and creates the database.
func Init(ctx context.Context, workspace, admin string, force bool) (string, error) {
	if admin == "" {
		return "", errors.New("an admin identity is required")
	}
	path := config.Path(workspace)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if workspace != "" {
		if err := os.MkdirAll(workspace, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, []byte(config.GenerateDefault(admin)), 0o644); err != nil {
		return "", err
	}
	a, err := Open(ctx, Options{Workspace: workspace})
	if err != nil {
		return "", err
	}
	return path, a.Close()
}

// Whoami returns the role the workspace assigns to identity.
func (a *App) Whoami(ctx context.Context, identity string) (domain.Role, error) {
	return a.Engine.Roles.RoleOf(ctx, nil, identity)
}
