package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPlaceholder(t *testing.T) {
	sqlite, ok := Get("sqlite")
	require.True(t, ok)
	assert.Equal(t, "?", sqlite.FormatPlaceholder(1))
	assert.Equal(t, "?", sqlite.FormatPlaceholder(7))

	pg, ok := Get("postgres")
	require.True(t, ok)
	assert.Equal(t, "$1", pg.FormatPlaceholder(1))
	assert.Equal(t, "$7", pg.FormatPlaceholder(7))
}

func TestQuoteIdentifier(t *testing.T) {
	d, ok := Get("sqlite")
	require.True(t, ok)

	assert.Equal(t, `"order"`, d.QuoteIdentifier("order"))
	assert.Equal(t, `"with""quote"`, d.QuoteIdentifier(`with"quote`))
}

func TestQuoteIdentifierIfNeeded(t *testing.T) {
	d, ok := Get("duckdb")
	require.True(t, ok)

	tests := []struct {
		in   string
		want string
	}{
		{"customer_name", "customer_name"},
		{"order", `"order"`},
		{"GROUP", `"GROUP"`},
		{"lifetime_value", "lifetime_value"},
		{"user", `"user"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.QuoteIdentifierIfNeeded(tt.in))
	}
}

func TestRegistry(t *testing.T) {
	names := List()
	assert.Contains(t, names, "sqlite")
	assert.Contains(t, names, "duckdb")
	assert.Contains(t, names, "postgres")

	_, ok := Get("oracle")
	assert.False(t, ok)

	// Lookup is case-insensitive.
	d, ok := Get("Postgres")
	require.True(t, ok)
	assert.Equal(t, "postgres", d.Name)
}
