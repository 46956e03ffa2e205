// Package postgres implements the Postgres-backed ConfigurationLoader from
// SPEC_FULL.md §4.11: a pgxpool.Pool-managed connection, goose-driven schema
// migrations, and Configurations stored as JSONB rows (via
// internal/configwire) plus an append-only history table. Grounded on the
// teacher's internal/database/postgres (PostgresPool: pgxpool.Pool wrapped
// with Connect/Health/Stats) and internal/database/migrations.go
// (goose.SetDialect + goose.Up against a *sql.DB), trimmed to the
// subset this service actually drives: one pool, one migration set, no
// prepared-statement cache or connection metrics since nothing here reads
// them back.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config controls Pool construction.
type Config struct {
	DSN             string
	MaxConnections  int32
	MinConnections  int32
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
	Logger          *slog.Logger
}

// Pool wraps a pgxpool.Pool for the Configuration store.
type Pool struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect parses cfg.DSN, applies pool sizing, and pings the database before
// returning.
func Connect(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing postgres DSN: %v", model.ErrConfig, err)
	}
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	connectCtx := ctx
	var cancel context.CancelFunc
	if cfg.ConnectTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: creating postgres pool: %v", model.ErrTransport, err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging postgres: %v", model.ErrTransport, err)
	}

	cfg.Logger.Info("connected to postgres", "max_conns", poolConfig.MaxConns, "min_conns", poolConfig.MinConns)
	return &Pool{pool: pool, logger: cfg.Logger}, nil
}

// Close releases every connection in the pool.
func (p *Pool) Close() {
	p.pool.Close()
}

// Health pings the database.
func (p *Pool) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Migrate applies every pending embedded migration, using goose against a
// database/sql handle opened on the pgx stdlib driver (goose does not speak
// pgx's native pool interface directly).
func Migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("%w: opening migration connection: %v", model.ErrConfig, err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("%w: running postgres migrations: %v", model.ErrConfig, err)
	}
	return nil
}
