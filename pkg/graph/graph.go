// Package graph provides the knowledge graph: the single source of truth
// for how a concept shows up in each customer schema and how to convert
// between its semantic representations.
//
// Despite the name it is a lookup structure, not a traversal engine: every
// access is one or two hops (concept -> mapping -> join path), so a pair of
// indexed maps suffices. Reads are lock-free of each other; mutations and
// loads are serialized behind a single writer lock.
package graph

import (
	"sort"
	"strings"
	"sync"

	"github.com/meridian-data/crossquery/pkg/core"
)

type mappingKey struct {
	conceptID  string
	customerID string
}

// Graph holds concepts, per-customer mappings, and transformation rules.
// The zero value is not usable; call New.
type Graph struct {
	mu         sync.RWMutex
	concepts   map[string]core.Concept
	mappings   map[mappingKey]core.CustomerMapping
	transforms map[string]core.TransformationRule
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		concepts:   make(map[string]core.Concept),
		mappings:   make(map[mappingKey]core.CustomerMapping),
		transforms: make(map[string]core.TransformationRule),
	}
}

// RegisterConcept adds a concept to the registry. Concepts are immutable:
// registering an id twice fails with DuplicateConceptError.
func (g *Graph) RegisterConcept(c core.Concept) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.concepts[c.ID]; ok {
		return &core.DuplicateConceptError{ConceptID: c.ID}
	}
	g.concepts[c.ID] = c
	return nil
}

// Concept returns a registered concept by id.
func (g *Graph) Concept(id string) (core.Concept, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.concepts[id]
	return c, ok
}

// FindConcept resolves a concept by id, name, or alias (case-insensitive).
func (g *Graph) FindConcept(name string) (core.Concept, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	if c, ok := g.concepts[needle]; ok {
		return c, true
	}
	for _, c := range g.concepts {
		if strings.ToLower(c.ID) == needle || strings.ToLower(c.Name) == needle {
			return c, true
		}
		for _, a := range c.Aliases {
			if strings.ToLower(a) == needle {
				return c, true
			}
		}
	}
	return core.Concept{}, false
}

// Concepts returns all registered concepts sorted by id.
func (g *Graph) Concepts() []core.Concept {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]core.Concept, 0, len(g.concepts))
	for _, c := range g.concepts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddMapping upserts the mapping for its (concept, customer) pair. The
// concept must already be registered.
func (g *Graph) AddMapping(m core.CustomerMapping) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.concepts[m.ConceptID]; !ok {
		return &core.UnknownConceptError{ConceptID: m.ConceptID}
	}
	g.mappings[mappingKey{m.ConceptID, m.CustomerID}] = m
	return nil
}

// Resolve returns the mapping for a (concept, customer) pair, or
// MappingNotFoundError. The returned value is a copy; callers cannot
// mutate graph state through it.
func (g *Graph) Resolve(conceptID, customerID string) (core.CustomerMapping, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	m, ok := g.mappings[mappingKey{conceptID, customerID}]
	if !ok {
		return core.CustomerMapping{}, &core.MappingNotFoundError{ConceptID: conceptID, CustomerID: customerID}
	}
	return m, nil
}

// AddTransformation upserts a rule keyed by its (from, to) pair. No
// implicit inverse is created.
func (g *Graph) AddTransformation(r core.TransformationRule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transforms[r.ID()] = r
}

// TransformFor returns the rule converting from one semantic type to
// another, or TransformationNotFoundError.
func (g *Graph) TransformFor(from, to core.SemanticType) (core.TransformationRule, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.transforms[core.TransformID(from, to)]
	if !ok {
		return core.TransformationRule{}, &core.TransformationNotFoundError{From: from, To: to}
	}
	return r, nil
}

// TransformByID returns a rule by its "from->to" identifier.
func (g *Graph) TransformByID(id string) (core.TransformationRule, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.transforms[id]
	return r, ok
}

// Customers returns every customer id that has at least one mapping, sorted.
func (g *Graph) Customers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for k := range g.mappings {
		if _, ok := seen[k.customerID]; !ok {
			seen[k.customerID] = struct{}{}
			ids = append(ids, k.customerID)
		}
	}
	sort.Strings(ids)
	return ids
}

// CustomersFor returns the customer ids mapped for a concept, sorted.
func (g *Graph) CustomersFor(conceptID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []string
	for k := range g.mappings {
		if k.conceptID == conceptID {
			ids = append(ids, k.customerID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Stats summarizes graph contents.
type Stats struct {
	Concepts        int
	Customers       int
	Mappings        int
	Transformations int
}

// Stats returns counts of graph contents.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	customers := make(map[string]struct{})
	for k := range g.mappings {
		customers[k.customerID] = struct{}{}
	}
	return Stats{
		Concepts:        len(g.concepts),
		Customers:       len(customers),
		Mappings:        len(g.mappings),
		Transformations: len(g.transforms),
	}
}

// Validate reports completeness warnings: concepts without any mapping and
// customers missing concepts other customers have. Warnings are advisory;
// an unmapped concept only becomes an error when a query references it.
func (g *Graph) Validate() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var warnings []string

	mapped := make(map[string]map[string]struct{}) // concept -> customers
	customers := make(map[string]struct{})
	for k := range g.mappings {
		if mapped[k.conceptID] == nil {
			mapped[k.conceptID] = make(map[string]struct{})
		}
		mapped[k.conceptID][k.customerID] = struct{}{}
		customers[k.customerID] = struct{}{}
	}

	conceptIDs := make([]string, 0, len(g.concepts))
	for id := range g.concepts {
		conceptIDs = append(conceptIDs, id)
	}
	sort.Strings(conceptIDs)

	customerIDs := make([]string, 0, len(customers))
	for id := range customers {
		customerIDs = append(customerIDs, id)
	}
	sort.Strings(customerIDs)

	for _, id := range conceptIDs {
		byCustomer := mapped[id]
		if len(byCustomer) == 0 {
			warnings = append(warnings, "concept "+id+" has no customer mappings")
			continue
		}
		for _, cid := range customerIDs {
			if _, ok := byCustomer[cid]; !ok {
				warnings = append(warnings, "customer "+cid+" has no mapping for concept "+id)
			}
		}
	}
	return warnings
}
