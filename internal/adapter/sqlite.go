package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/meridian-data/crossquery/pkg/core"
)

// SQLiteAdapter connects to SQLite files, the usual target for local
// fixtures and onboarding dry runs.
type SQLiteAdapter struct {
	BaseSQLAdapter
}

// NewSQLite creates a SQLite adapter. A nil logger means discard.
func NewSQLite(logger *slog.Logger) *SQLiteAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

func (a *SQLiteAdapter) DialectName() string { return "sqlite" }

// Connect opens the SQLite database at cfg.Path. ":memory:" works.
func (a *SQLiteAdapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// TableMetadata reads column info via PRAGMA table_info, since SQLite has
// no information_schema.
func (a *SQLiteAdapter) TableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := a.DB.QueryContext(ctx, "SELECT name, type, \"notnull\", cid FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var notNull int
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = notNull == 0
		col.Position++ // pragma cid is zero-based
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	return &core.TableMetadata{Name: table, Columns: columns}, nil
}

func init() {
	Register("sqlite", func(logger *slog.Logger) Adapter { return NewSQLite(logger) })
}

var _ Adapter = (*SQLiteAdapter)(nil)
