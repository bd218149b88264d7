package core

import "fmt"

// DuplicateConceptError is returned when registering a concept whose id is
// already present. Concepts are immutable once registered.
type DuplicateConceptError struct {
	ConceptID string
}

func (e *DuplicateConceptError) Error() string {
	return fmt.Sprintf("concept %q is already registered", e.ConceptID)
}

// UnknownConceptError is returned when a mapping references a concept that
// was never registered.
type UnknownConceptError struct {
	ConceptID string
}

func (e *UnknownConceptError) Error() string {
	return fmt.Sprintf("unknown concept %q: register it before adding mappings", e.ConceptID)
}

// MappingNotFoundError is returned by graph resolution when no mapping
// exists for a (concept, customer) pair.
type MappingNotFoundError struct {
	ConceptID  string
	CustomerID string
}

func (e *MappingNotFoundError) Error() string {
	return fmt.Sprintf("no mapping for concept %q and customer %q", e.ConceptID, e.CustomerID)
}

// TransformationNotFoundError is returned when a needed semantic type
// conversion has no registered rule. Inverse rules are never derived, so a
// missing direction must be registered explicitly.
type TransformationNotFoundError struct {
	From SemanticType
	To   SemanticType
}

func (e *TransformationNotFoundError) Error() string {
	return fmt.Sprintf("no transformation registered for %s", TransformID(e.From, e.To))
}

// ConceptNotMappedError is the compiler's fail-fast error: the plan
// references a concept with no mapping for the target customer. It never
// blocks compilation for other customers.
type ConceptNotMappedError struct {
	ConceptID  string
	CustomerID string
}

func (e *ConceptNotMappedError) Error() string {
	return fmt.Sprintf("concept %q is not mapped for customer %q", e.ConceptID, e.CustomerID)
}

// UnsupportedOperatorError is returned when a filter uses an operator the
// concept does not allow.
type UnsupportedOperatorError struct {
	ConceptID string
	Operator  Operator
	Allowed   []Operator
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %q is not allowed on concept %q (allowed: %v)", e.Operator, e.ConceptID, e.Allowed)
}

// AmbiguousJoinError is returned when two required join paths conflict,
// e.g. both demand a latest-row disambiguator on the same table with
// different timestamp columns. The compiler refuses to guess a resolution
// order.
type AmbiguousJoinError struct {
	CustomerID string
	Table      string
	First      string
	Second     string
}

func (e *AmbiguousJoinError) Error() string {
	return fmt.Sprintf("ambiguous join on table %q for customer %q: %s conflicts with %s", e.Table, e.CustomerID, e.First, e.Second)
}

// ExecutionError is the opaque failure reported by the execution
// collaborator for one customer.
type ExecutionError struct {
	CustomerID string
	Message    string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed for customer %q: %s", e.CustomerID, e.Message)
}

// LoadIntegrityError aborts a graph load whose document is internally
// inconsistent. The previous in-memory graph is retained untouched.
type LoadIntegrityError struct {
	Path     string
	Problems []string
}

func (e *LoadIntegrityError) Error() string {
	return fmt.Sprintf("graph document %q failed integrity check: %d problem(s), first: %s", e.Path, len(e.Problems), e.Problems[0])
}
