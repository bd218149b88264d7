// Package dialect provides the per-engine SQL surface the compiler needs:
// parameter placeholder style and identifier quoting. Concrete dialects are
// registered at init time; the compiler looks them up by the target's
// adapter type.
package dialect

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// PlaceholderStyle selects how bound parameters appear in SQL text.
type PlaceholderStyle int

const (
	// PlaceholderQuestion emits "?" for every parameter (SQLite, DuckDB).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar emits "$1", "$2", ... (Postgres).
	PlaceholderDollar
)

// Dialect describes one SQL engine's surface.
type Dialect struct {
	Name        string
	Placeholder PlaceholderStyle

	// Quote and QuoteEnd delimit quoted identifiers; Escape replaces an
	// embedded QuoteEnd.
	Quote    string
	QuoteEnd string
	Escape   string

	// ReservedWords need quoting when used as identifiers.
	ReservedWords map[string]struct{}
}

// FormatPlaceholder returns the placeholder for the given 1-based
// parameter index.
func (d *Dialect) FormatPlaceholder(index int) string {
	if d.Placeholder == PlaceholderDollar {
		return "$" + strconv.Itoa(index)
	}
	return "?"
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.QuoteEnd, d.Escape)
	return d.Quote + escaped + d.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes an identifier only if it's a reserved word.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if _, ok := d.ReservedWords[strings.ToLower(name)]; ok {
		return d.QuoteIdentifier(name)
	}
	return name
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Dialect)
)

// Register adds a dialect to the registry, keyed by lowercase name.
func Register(d *Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(d.Name)] = d
}

// Get retrieves a dialect by name (case-insensitive).
func Get(name string) (*Dialect, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[strings.ToLower(name)]
	return d, ok
}

// List returns all registered dialect names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
