package grammar

// Set is an ordered bundle of compiled grammars keyed by scope name.
//
// Ported from the Rust implementation in src/lib.rs, where grammars are
// compiled as a bundle since they might refer to each other via include
// fields. It is deliberately thin: a container, not the cross-grammar
// linker that would actually resolve a Reference{Kind: ReferenceTopLevel,
// ...} against it, which remains future work.
type Set struct {
	order  []string
	byName map[string]*SyntaxDefinition
}

// NewSet builds an empty Set.
func NewSet() *Set {
	return &Set{byName: make(map[string]*SyntaxDefinition)}
}

// Add inserts or replaces the grammar under its own ScopeName, preserving
// first-insertion order for iteration.
func (s *Set) Add(def *SyntaxDefinition) {
	if _, exists := s.byName[def.ScopeName]; !exists {
		s.order = append(s.order, def.ScopeName)
	}
	s.byName[def.ScopeName] = def
}

// Lookup resolves a scope name to its compiled grammar, if present.
func (s *Set) Lookup(scope string) (*SyntaxDefinition, bool) {
	def, ok := s.byName[scope]
	return def, ok
}

// ScopeNames returns every scope name in insertion order.
func (s *Set) ScopeNames() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Len reports how many grammars are in the set.
func (s *Set) Len() int { return len(s.order) }
