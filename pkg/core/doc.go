// Package core defines the shared language of the CrossQuery system.
//
// This package contains:
//   - Domain entities (Concept, CustomerMapping, TransformationRule)
//   - Query shapes (SemanticQueryPlan, CompiledQuery, RawQueryResult)
//   - Harmonized output shapes (HarmonizedRecord, HarmonizedResult)
//   - The error taxonomy shared by graph, compiler, and engine
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
