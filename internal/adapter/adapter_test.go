package adapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/crossquery/pkg/core"
)

func TestNew_UnknownType(t *testing.T) {
	_, err := New(core.AdapterConfig{Type: "fake_db"}, nil)

	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "fake_db", unknown.Type)
	assert.Contains(t, err.Error(), "crossquery.yaml")
}

func TestNew_EmptyType(t *testing.T) {
	_, err := New(core.AdapterConfig{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())
}

func TestList_IncludesBuiltins(t *testing.T) {
	names := List()
	assert.Contains(t, names, "sqlite")
	assert.Contains(t, names, "postgres")
}

func TestRegister(t *testing.T) {
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil })

	a, err := New(core.AdapterConfig{Type: "test_adapter_internal"}, nil)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestBaseQuery_RowsAsMaps(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT name, lifetime_value FROM accounts WHERE lifetime_value > ?").
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"name", "lifetime_value"}).
			AddRow([]byte("Initech"), 250000).
			AddRow("Hooli", 900000))

	b := &BaseSQLAdapter{DB: db}
	rows, err := b.Query(context.Background(),
		"SELECT name, lifetime_value FROM accounts WHERE lifetime_value > ?", 100)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	// []byte values surface as strings so harmonization sees text, not bytes.
	assert.Equal(t, "Initech", rows[0]["name"])
	assert.Equal(t, "Hooli", rows[1]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseQuery_NotConnected(t *testing.T) {
	b := &BaseSQLAdapter{}
	_, err := b.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
	assert.False(t, b.IsConnected())
}

func TestBaseClose_Idempotent(t *testing.T) {
	b := &BaseSQLAdapter{}
	assert.NoError(t, b.Close())
}

func TestParseQualifiedName(t *testing.T) {
	schema, name := ParseQualifiedName("analytics.accounts", "public")
	assert.Equal(t, "analytics", schema)
	assert.Equal(t, "accounts", name)

	schema, name = ParseQualifiedName("accounts", "public")
	assert.Equal(t, "public", schema)
	assert.Equal(t, "accounts", name)
}

func TestSQLiteAdapter_DialectName(t *testing.T) {
	a := NewSQLite(nil)
	assert.Equal(t, "sqlite", a.DialectName())
}

func TestSQLiteAdapter_ConnectAndMetadata(t *testing.T) {
	a := NewSQLite(nil)
	ctx := context.Background()

	require.NoError(t, a.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	defer func() { _ = a.Close() }()

	_, err := a.DB.ExecContext(ctx, `CREATE TABLE accounts (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		lifetime_value REAL
	)`)
	require.NoError(t, err)

	meta, err := a.TableMetadata(ctx, "accounts")
	require.NoError(t, err)
	assert.Equal(t, "accounts", meta.Name)
	require.Len(t, meta.Columns, 3)
	assert.True(t, meta.HasColumn("lifetime_value"))
	assert.False(t, meta.HasColumn("ghost"))

	_, err = a.TableMetadata(ctx, "missing_table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteAdapter_ParameterizedQuery(t *testing.T) {
	a := NewSQLite(nil)
	ctx := context.Background()

	require.NoError(t, a.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	defer func() { _ = a.Close() }()

	_, err := a.DB.ExecContext(ctx, `CREATE TABLE accounts (name TEXT, lifetime_value REAL)`)
	require.NoError(t, err)
	_, err = a.DB.ExecContext(ctx,
		`INSERT INTO accounts VALUES ('Initech', 250000), ('Pied Piper', 1000)`)
	require.NoError(t, err)

	rows, err := a.Query(ctx,
		"SELECT name AS customer_name FROM accounts WHERE lifetime_value > ?", 100000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Initech", rows[0]["customer_name"])
}

func TestPostgresDSN(t *testing.T) {
	dsn := buildPostgresDSN(core.AdapterConfig{
		Database: "crm",
		Username: "svc",
		Password: "secret",
		Options:  map[string]string{"sslmode": "require"},
	})
	assert.Equal(t, "host=localhost port=5432 dbname=crm sslmode=require user=svc password=secret", dsn)

	dsn = buildPostgresDSN(core.AdapterConfig{Host: "db.internal", Port: 6432, Database: "crm"})
	assert.Equal(t, "host=db.internal port=6432 dbname=crm sslmode=disable", dsn)
}
