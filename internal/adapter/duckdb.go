//go:build cgo

package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // registers the "duckdb" driver

	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/dialect"
)

// DuckDBAdapter connects to DuckDB files, used for analytical customer
// extracts.
type DuckDBAdapter struct {
	BaseSQLAdapter
}

// NewDuckDB creates a DuckDB adapter. A nil logger means discard.
func NewDuckDB(logger *slog.Logger) *DuckDBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

func (a *DuckDBAdapter) DialectName() string { return "duckdb" }

// Connect opens the DuckDB database at cfg.Path. Empty path means
// in-memory.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	a.Logger.Debug("connecting to duckdb", slog.String("path", cfg.Path))

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// TableMetadata reads column info from information_schema.
func (a *DuckDBAdapter) TableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	d, ok := dialect.Get("duckdb")
	if !ok {
		return nil, fmt.Errorf("duckdb dialect not registered")
	}
	return a.informationSchemaMetadata(ctx, table, "main", d)
}

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDB(logger) })
}

var _ Adapter = (*DuckDBAdapter)(nil)
