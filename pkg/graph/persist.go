package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/meridian-data/crossquery/pkg/core"
)

// DocumentVersion is the current graph document format version.
const DocumentVersion = 1

// document is the on-disk graph representation. Entries are sorted before
// writing so save/load round-trips byte-for-byte.
type document struct {
	Version         int                       `json:"version"`
	Concepts        []core.Concept            `json:"concepts"`
	Mappings        []core.CustomerMapping    `json:"mappings"`
	Transformations []core.TransformationRule `json:"transformations"`
}

// Save writes the full graph as a versioned JSON document.
func (g *Graph) Save(path string) error {
	g.mu.RLock()
	doc := document{
		Version:         DocumentVersion,
		Concepts:        make([]core.Concept, 0, len(g.concepts)),
		Mappings:        make([]core.CustomerMapping, 0, len(g.mappings)),
		Transformations: make([]core.TransformationRule, 0, len(g.transforms)),
	}
	for _, c := range g.concepts {
		doc.Concepts = append(doc.Concepts, c)
	}
	for _, m := range g.mappings {
		doc.Mappings = append(doc.Mappings, m)
	}
	for _, r := range g.transforms {
		doc.Transformations = append(doc.Transformations, r)
	}
	g.mu.RUnlock()

	sort.Slice(doc.Concepts, func(i, j int) bool { return doc.Concepts[i].ID < doc.Concepts[j].ID })
	sort.Slice(doc.Mappings, func(i, j int) bool {
		a, b := doc.Mappings[i], doc.Mappings[j]
		if a.ConceptID != b.ConceptID {
			return a.ConceptID < b.ConceptID
		}
		return a.CustomerID < b.CustomerID
	})
	sort.Slice(doc.Transformations, func(i, j int) bool {
		return doc.Transformations[i].ID() < doc.Transformations[j].ID()
	})

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode graph document: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write graph document: %w", err)
	}
	return nil
}

// Load replaces the graph contents from a document at path. The document is
// fully validated before anything is swapped in: a referential integrity
// failure aborts with LoadIntegrityError and the previous in-memory graph
// is retained untouched. The swap itself is atomic with respect to readers,
// so an in-flight compile never observes a half-loaded graph.
func (g *Graph) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read graph document: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode graph document %s: %w", path, err)
	}
	if doc.Version != DocumentVersion {
		return fmt.Errorf("graph document %s has unsupported version %d (want %d)", path, doc.Version, DocumentVersion)
	}

	concepts := make(map[string]core.Concept, len(doc.Concepts))
	mappings := make(map[mappingKey]core.CustomerMapping, len(doc.Mappings))
	transforms := make(map[string]core.TransformationRule, len(doc.Transformations))

	var problems []string
	for _, c := range doc.Concepts {
		if c.ID == "" {
			problems = append(problems, "concept with empty id")
			continue
		}
		if _, ok := concepts[c.ID]; ok {
			problems = append(problems, "duplicate concept "+c.ID)
			continue
		}
		concepts[c.ID] = c
	}
	for _, r := range doc.Transformations {
		if r.From == "" || r.To == "" {
			problems = append(problems, "transformation with empty from/to type")
			continue
		}
		if r.Expression == "" {
			problems = append(problems, "transformation "+r.ID()+" has empty expression")
			continue
		}
		transforms[r.ID()] = r
	}
	for _, m := range doc.Mappings {
		if _, ok := concepts[m.ConceptID]; !ok {
			problems = append(problems, fmt.Sprintf("mapping for customer %s references undefined concept %s", m.CustomerID, m.ConceptID))
			continue
		}
		if m.CustomerID == "" {
			problems = append(problems, "mapping for concept "+m.ConceptID+" has empty customer id")
			continue
		}
		if m.Table == "" || m.Column == "" {
			problems = append(problems, fmt.Sprintf("mapping %s/%s has empty table or column", m.ConceptID, m.CustomerID))
			continue
		}
		for _, s := range m.JoinPath {
			if s.Table == "" || s.JoinColumn == "" || s.TargetTable == "" || s.TargetColumn == "" {
				problems = append(problems, fmt.Sprintf("mapping %s/%s has an incomplete join step", m.ConceptID, m.CustomerID))
			}
		}
		if m.Latest != nil && (m.Latest.TimestampColumn == "" || m.Latest.KeyColumn == "") {
			problems = append(problems, fmt.Sprintf("mapping %s/%s has an incomplete latest-row disambiguator", m.ConceptID, m.CustomerID))
		}
		if m.RequiresTransform != "" {
			if _, ok := transforms[m.RequiresTransform]; !ok {
				problems = append(problems, fmt.Sprintf("mapping %s/%s requires unregistered transformation %s", m.ConceptID, m.CustomerID, m.RequiresTransform))
			}
		}
		mappings[mappingKey{m.ConceptID, m.CustomerID}] = m
	}

	if len(problems) > 0 {
		return &core.LoadIntegrityError{Path: path, Problems: problems}
	}

	g.mu.Lock()
	g.concepts = concepts
	g.mappings = mappings
	g.transforms = transforms
	g.mu.Unlock()
	return nil
}
