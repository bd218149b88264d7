package graph

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/meridian-data/crossquery/pkg/core"
)

// MappingProposal is the onboarding document produced by the external
// schema-analysis collaborator: a batch of proposed mappings for one
// customer, awaiting validation before entering the graph.
type MappingProposal struct {
	CustomerID string            `yaml:"customer_id"`
	Mappings   []ProposedMapping `yaml:"mappings"`
}

// ProposedMapping mirrors core.CustomerMapping in YAML form, minus the
// customer id (taken from the enclosing proposal).
type ProposedMapping struct {
	Concept      string          `yaml:"concept"`
	Table        string          `yaml:"table"`
	Column       string          `yaml:"column"`
	DataType     string          `yaml:"data_type"`
	SemanticType string          `yaml:"semantic_type"`
	JoinPath     []core.JoinStep `yaml:"join_path"`
	Latest       *core.LatestRow `yaml:"latest"`
	Confidence   float64         `yaml:"confidence"`
	Note         string          `yaml:"note"`
}

// ParseProposal decodes a YAML mapping proposal.
func ParseProposal(data []byte) (*MappingProposal, error) {
	var p MappingProposal
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode mapping proposal: %w", err)
	}
	if p.CustomerID == "" {
		return nil, fmt.Errorf("mapping proposal has no customer_id")
	}
	if len(p.Mappings) == 0 {
		return nil, fmt.Errorf("mapping proposal for %s has no mappings", p.CustomerID)
	}
	for i, m := range p.Mappings {
		if m.Concept == "" || m.Table == "" || m.Column == "" {
			return nil, fmt.Errorf("proposal entry %d: concept, table, and column are required", i)
		}
	}
	return &p, nil
}

// ToMappings converts the proposal into customer mappings, checking each
// concept against the registry. Physical table/column existence is the
// engine's job (it has the customer connection); this only validates
// against graph state.
func (p *MappingProposal) ToMappings(g *Graph) ([]core.CustomerMapping, error) {
	out := make([]core.CustomerMapping, 0, len(p.Mappings))
	for _, pm := range p.Mappings {
		concept, ok := g.FindConcept(pm.Concept)
		if !ok {
			return nil, &core.UnknownConceptError{ConceptID: pm.Concept}
		}
		out = append(out, core.CustomerMapping{
			ConceptID:    concept.ID,
			CustomerID:   p.CustomerID,
			Table:        pm.Table,
			Column:       pm.Column,
			DataType:     pm.DataType,
			SemanticType: core.SemanticType(pm.SemanticType),
			JoinPath:     pm.JoinPath,
			Latest:       pm.Latest,
			Meta: &core.MappingMeta{
				Confidence: pm.Confidence,
				Source:     "proposed",
				Note:       pm.Note,
			},
		})
	}
	return out, nil
}
