package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/dialect"
)

// PostgresAdapter connects to PostgreSQL customer databases.
type PostgresAdapter struct {
	BaseSQLAdapter
}

// NewPostgres creates a PostgreSQL adapter. A nil logger means discard.
func NewPostgres(logger *slog.Logger) *PostgresAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

func (a *PostgresAdapter) DialectName() string { return "postgres" }

// Connect establishes a connection to PostgreSQL.
func (a *PostgresAdapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(cfg core.AdapterConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

// TableMetadata reads column info from information_schema.
func (a *PostgresAdapter) TableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	defaultSchema := a.Cfg.Schema
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	d, ok := dialect.Get("postgres")
	if !ok {
		return nil, fmt.Errorf("postgres dialect not registered")
	}
	return a.informationSchemaMetadata(ctx, table, defaultSchema, d)
}

func init() {
	Register("postgres", func(logger *slog.Logger) Adapter { return NewPostgres(logger) })
}

var _ Adapter = (*PostgresAdapter)(nil)
