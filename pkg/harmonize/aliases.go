package harmonize

import "strings"

// AliasTransformID marks values normalized through the canonical alias
// table in harmonized provenance.
const AliasTransformID = "canonical_alias"

type aliasEntry struct {
	canonical string
	alias     string
}

// AliasTable maps raw category values onto canonical names, per concept.
// It handles the taxonomy normalization the compiler cannot express cheaply
// in SQL (e.g. "Tech" / "Information Technology" -> "Technology").
type AliasTable struct {
	entries map[string][]aliasEntry
}

// NewAliasTable creates an empty alias table.
func NewAliasTable() *AliasTable {
	return &AliasTable{entries: make(map[string][]aliasEntry)}
}

// Add registers a canonical name and its aliases for a concept. The
// canonical name matches itself, so it never needs listing as an alias.
func (t *AliasTable) Add(conceptID, canonical string, aliases ...string) {
	t.entries[conceptID] = append(t.entries[conceptID], aliasEntry{
		canonical: canonical,
		alias:     normalizeRaw(canonical),
	})
	for _, a := range aliases {
		t.entries[conceptID] = append(t.entries[conceptID], aliasEntry{
			canonical: canonical,
			alias:     normalizeRaw(a),
		})
	}
}

// HasConcept reports whether any aliases are registered for the concept.
func (t *AliasTable) HasConcept(conceptID string) bool {
	return len(t.entries[conceptID]) > 0
}

// SeedIndustry loads a starter taxonomy of industry names and their common
// spellings under the given concept id. Returns the table for chaining.
func (t *AliasTable) SeedIndustry(conceptID string) *AliasTable {
	t.Add(conceptID, "Technology", "tech", "information technology", "software", "it", "saas")
	t.Add(conceptID, "Healthcare", "health care", "health", "medical", "pharma")
	t.Add(conceptID, "Finance", "financial services", "banking", "fintech", "insurance")
	t.Add(conceptID, "Manufacturing", "industrial", "mfg")
	t.Add(conceptID, "Retail", "retail trade", "e-commerce", "ecommerce")
	t.Add(conceptID, "Education", "edtech", "higher education")
	return t
}

// Normalize maps a raw value to its canonical name. Matching is
// case-insensitive; an exact match wins, otherwise the longest registered
// alias contained in the raw value wins. Returns ok=false when nothing
// matches — the caller passes the value through unchanged and flags it.
func (t *AliasTable) Normalize(conceptID, raw string) (string, bool) {
	needle := normalizeRaw(raw)
	if needle == "" {
		return "", false
	}

	var best aliasEntry
	found := false
	for _, e := range t.entries[conceptID] {
		if e.alias == needle {
			return e.canonical, true
		}
		if strings.Contains(needle, e.alias) && (!found || len(e.alias) > len(best.alias)) {
			best = e
			found = true
		}
	}
	if found {
		return best.canonical, true
	}
	return "", false
}

func normalizeRaw(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
