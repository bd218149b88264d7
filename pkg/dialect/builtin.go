package dialect

// Reserved words shared by the builtin dialects. Only words likely to show
// up as customer column names matter here; exotic keywords can be added per
// dialect as they bite.
var ansiReserved = words(
	"select", "from", "where", "group", "order", "by", "having", "limit",
	"join", "on", "and", "or", "not", "in", "between", "like", "as",
	"table", "column", "value", "values", "date", "timestamp", "user",
	"default", "check", "index", "key", "primary", "references",
)

func words(ws ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		m[w] = struct{}{}
	}
	return m
}

func init() {
	Register(&Dialect{
		Name:          "sqlite",
		Placeholder:   PlaceholderQuestion,
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		ReservedWords: ansiReserved,
	})
	Register(&Dialect{
		Name:          "duckdb",
		Placeholder:   PlaceholderQuestion,
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		ReservedWords: ansiReserved,
	})
	Register(&Dialect{
		Name:          "postgres",
		Placeholder:   PlaceholderDollar,
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		ReservedWords: ansiReserved,
	})
}
