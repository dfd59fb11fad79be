package grammar

// RuleId indexes SyntaxDefinition.Rules. Ids are 1-based so the zero value
// means "absent" without needing a separate presence flag.
type RuleId uint16

// RegexId indexes SyntaxDefinition.Regexes.
type RegexId uint16

// PartialRegexId indexes SyntaxDefinition.PartialRegexes.
type PartialRegexId uint16

// RepositoryId indexes SyntaxDefinition.Repositories.
type RepositoryId uint8

// Valid reports whether the id was actually allocated (as opposed to the
// zero value standing in for "no rule here").
func (id RuleId) Valid() bool { return id != 0 }

func (id RegexId) Valid() bool { return id != 0 }

func (id PartialRegexId) Valid() bool { return id != 0 }

func (id RepositoryId) Valid() bool { return id != 0 }

func (id RuleId) index() int { return int(id) - 1 }

func (id RegexId) index() int { return int(id) - 1 }

func (id PartialRegexId) index() int { return int(id) - 1 }

func (id RepositoryId) index() int { return int(id) - 1 }

func ruleIdFromIndex(idx int) RuleId { return RuleId(idx + 1) }

func regexIdFromIndex(idx int) RegexId { return RegexId(idx + 1) }

func partialRegexIdFromIndex(idx int) PartialRegexId { return PartialRegexId(idx + 1) }

func repositoryIdFromIndex(idx int) RepositoryId { return RepositoryId(idx + 1) }

// MaxRepositoryStackDepth bounds RepositoryStack: more nesting than this is
// treated as a malformed grammar (ErrRepositoryStackOverflow), not an
// internal error.
const MaxRepositoryStackDepth = 4

// RepositoryStack is the lexical chain of repository blocks visible to a
// rule, outermost first. It is small-value-typed: copied by value on every
// recursive descent, never heap-allocated on its own.
type RepositoryStack struct {
	entries [MaxRepositoryStackDepth]RepositoryId
	depth   uint8
}

// Len returns the number of repositories currently on the stack.
func (s RepositoryStack) Len() int { return int(s.depth) }

// At returns the repository id at position i (0 = outermost).
func (s RepositoryStack) At(i int) RepositoryId { return s.entries[i] }

// Push returns a new stack with id appended as the innermost entry. It
// fails with ErrRepositoryStackOverflow once depth would exceed
// MaxRepositoryStackDepth.
func (s RepositoryStack) Push(id RepositoryId) (RepositoryStack, error) {
	if s.depth >= MaxRepositoryStackDepth {
		return s, newRepositoryStackOverflowError()
	}
	s.entries[s.depth] = id
	s.depth++
	return s, nil
}

// Innermost, from the top of the stack down, for walking name resolution
// order (nearest repository wins).
func (s RepositoryStack) Innermost() func(yield func(RepositoryId) bool) {
	return func(yield func(RepositoryId) bool) {
		for i := int(s.depth) - 1; i >= 0; i-- {
			if !yield(s.entries[i]) {
				return
			}
		}
	}
}
