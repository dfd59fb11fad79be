package grammar

import "strings"

// ReferenceKind discriminates the five-way shape of an include string, per
// https://github.com/microsoft/vscode-textmate/blob/f03a6a8790af81372d0e81facae75554ec5e97ef/src/rawGrammar.ts#L21
type ReferenceKind int

const (
	// ReferenceBase is "$base": the top level grammar file (meaningful
	// when this grammar is embedded inside another).
	ReferenceBase ReferenceKind = iota
	// ReferenceSelf is "$self": the entire current grammar file again.
	ReferenceSelf
	// ReferenceRelative is "#name": a repository rule in the same
	// grammar file, resolved per the lexical RepositoryStack at link
	// time.
	ReferenceRelative
	// ReferenceTopLevel is "scope.name": another grammar file entirely.
	ReferenceTopLevel
	// ReferenceTopLevelRepository is "scope.name#rule": a repository
	// rule in another grammar file.
	ReferenceTopLevelRepository
)

func (k ReferenceKind) String() string {
	switch k {
	case ReferenceBase:
		return "Base"
	case ReferenceSelf:
		return "Self"
	case ReferenceRelative:
		return "Relative"
	case ReferenceTopLevel:
		return "TopLevel"
	case ReferenceTopLevelRepository:
		return "TopLevelRepository"
	default:
		return "Unknown"
	}
}

// Reference is a recorded-but-unresolved link from a pattern slot to a
// rule defined elsewhere. Resolving it is a future linker pass's job; the
// compiler only records which of the five shapes it is.
type Reference struct {
	Kind  ReferenceKind
	Scope string // set for TopLevel, TopLevelRepository
	Rule  string // set for Relative, TopLevelRepository
}

// ParseReference classifies an include string into its five-way shape.
// Malformed or empty inputs fall through to ReferenceTopLevel: they will
// simply fail to resolve at link time, the compiler itself never raises
// on a bad include string.
func ParseReference(s string) Reference {
	switch {
	case s == "$base":
		return Reference{Kind: ReferenceBase}
	case s == "$self":
		return Reference{Kind: ReferenceSelf}
	case strings.HasPrefix(s, "#"):
		return Reference{Kind: ReferenceRelative, Rule: s[1:]}
	case strings.Contains(s, "#"):
		scope, rule, _ := strings.Cut(s, "#")
		return Reference{Kind: ReferenceTopLevelRepository, Scope: scope, Rule: rule}
	default:
		return Reference{Kind: ReferenceTopLevel, Scope: s}
	}
}

// Render is the inverse of ParseReference, used by property tests to
// assert the round trip holds for well-formed include strings.
func (r Reference) Render() string {
	switch r.Kind {
	case ReferenceBase:
		return "$base"
	case ReferenceSelf:
		return "$self"
	case ReferenceRelative:
		return "#" + r.Rule
	case ReferenceTopLevelRepository:
		return r.Scope + "#" + r.Rule
	case ReferenceTopLevel:
		return r.Scope
	default:
		return ""
	}
}
