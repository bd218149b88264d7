package engine

import (
	"context"
	"fmt"

	"github.com/meridian-data/crossquery/internal/adapter"
	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/graph"
)

// OnboardResult reports which proposed mappings survived validation.
type OnboardResult struct {
	CustomerID string
	// Installed lists the concept ids whose mappings entered the graph.
	Installed []string
	// Rejected lists per-mapping validation failures; rejected mappings are
	// skipped, they never block the rest of the batch.
	Rejected []string
}

// Onboard validates a mapping proposal against the customer's live schema
// and installs the mappings that pass. With dryRun set nothing enters the
// graph; the result reports what would have happened.
func (e *Engine) Onboard(ctx context.Context, p *graph.MappingProposal, dryRun bool) (*OnboardResult, error) {
	cfg, ok := e.customers[p.CustomerID]
	if !ok {
		return nil, fmt.Errorf("customer %q is not configured", p.CustomerID)
	}

	mappings, err := p.ToMappings(e.graph)
	if err != nil {
		return nil, err
	}

	db, err := adapter.New(cfg, e.logger)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to customer %q: %w", p.CustomerID, err)
	}
	defer func() { _ = db.Close() }()

	// Table metadata is fetched once per distinct table in the batch.
	tables := make(map[string]*core.TableMetadata)
	lookup := func(table string) (*core.TableMetadata, error) {
		if meta, ok := tables[table]; ok {
			return meta, nil
		}
		meta, err := db.TableMetadata(ctx, table)
		if err != nil {
			return nil, err
		}
		tables[table] = meta
		return meta, nil
	}

	result := &OnboardResult{CustomerID: p.CustomerID}
	for _, m := range mappings {
		if problem := validateMapping(m, lookup); problem != "" {
			result.Rejected = append(result.Rejected, problem)
			e.logger.Warn("rejected proposed mapping",
				"customer", p.CustomerID,
				"concept", m.ConceptID,
				"problem", problem)
			continue
		}
		if !dryRun {
			if err := e.graph.AddMapping(m); err != nil {
				return nil, err
			}
		}
		result.Installed = append(result.Installed, m.ConceptID)
	}

	e.logger.Info("onboarding complete",
		"customer", p.CustomerID,
		"installed", len(result.Installed),
		"rejected", len(result.Rejected),
		"dry_run", dryRun)
	return result, nil
}

// validateMapping checks a proposed mapping against live table metadata.
// Returns a problem description, or "" when the mapping is sound.
func validateMapping(m core.CustomerMapping, lookup func(string) (*core.TableMetadata, error)) string {
	meta, err := lookup(m.Table)
	if err != nil {
		return fmt.Sprintf("concept %s: %v", m.ConceptID, err)
	}
	if !meta.HasColumn(m.Column) {
		return fmt.Sprintf("concept %s: table %s has no column %s", m.ConceptID, m.Table, m.Column)
	}

	for _, step := range m.JoinPath {
		src, err := lookup(step.Table)
		if err != nil {
			return fmt.Sprintf("concept %s: %v", m.ConceptID, err)
		}
		if !src.HasColumn(step.JoinColumn) {
			return fmt.Sprintf("concept %s: table %s has no join column %s", m.ConceptID, step.Table, step.JoinColumn)
		}
		target, err := lookup(step.TargetTable)
		if err != nil {
			return fmt.Sprintf("concept %s: %v", m.ConceptID, err)
		}
		if !target.HasColumn(step.TargetColumn) {
			return fmt.Sprintf("concept %s: table %s has no join column %s", m.ConceptID, step.TargetTable, step.TargetColumn)
		}
	}

	if m.Latest != nil {
		if !meta.HasColumn(m.Latest.TimestampColumn) {
			return fmt.Sprintf("concept %s: table %s has no timestamp column %s", m.ConceptID, m.Table, m.Latest.TimestampColumn)
		}
		if !meta.HasColumn(m.Latest.KeyColumn) {
			return fmt.Sprintf("concept %s: table %s has no key column %s", m.ConceptID, m.Table, m.Latest.KeyColumn)
		}
	}
	return ""
}
