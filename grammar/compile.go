package grammar

import (
	"strconv"

	"github.com/google/uuid"
)

// Captures is a dense, index-addressed sequence of optional rule ids, one
// slot per capture group that appeared anywhere in the source captures
// map. Length is (max index seen) + 1; absent slots are the zero RuleId.
type Captures struct {
	Slots []RuleId
}

// At reports the rule bound to capture group i, if any.
func (c *Captures) At(i int) (RuleId, bool) {
	if c == nil || i < 0 || i >= len(c.Slots) {
		return 0, false
	}
	id := c.Slots[i]
	return id, id.Valid()
}

// Repository is a flattened named-rule table; nesting is captured instead
// by the RepositoryStack each rule carries, not by the Repository itself.
type Repository struct {
	Rules map[string]RuleId
}

// PatternEntry is one element of a rule's pattern list: either a
// previously compiled rule, or a recorded-but-unresolved Reference.
type PatternEntry struct {
	RuleID    RuleId
	Reference *Reference
}

// IsReference reports whether this entry is an unresolved reference
// rather than a compiled rule.
func (p PatternEntry) IsReference() bool { return p.Reference != nil }

// Rule is the sealed tagged union every compiled rule variant implements.
// Unlike RawRule (a wide optional-field record mirroring the JSON shape),
// this discriminates exhaustively: a type switch over the five concrete
// types below is total.
type Rule interface {
	ruleID() RuleId
	isRule()
}

type baseRule struct {
	ID              RuleId
	RepositoryStack RepositoryStack
}

func (r baseRule) ruleID() RuleId { return r.ID }
func (baseRule) isRule()          {}

// MatchRule is a leaf rule: one regex, optionally named, optionally with
// per-capture-group sub-rules.
type MatchRule struct {
	baseRule
	Name     string
	Match    RegexId
	Captures *Captures
}

// BeginEndRule opens with Begin and, once matched, looks for End inside
// (or around, per ApplyEndPatternLast) its own Patterns. End may be
// absent: a begin/end rule never closed by this grammar is legal.
type BeginEndRule struct {
	baseRule
	Name                string
	ContentName         string
	Begin               RegexId
	BeginCaptures       *Captures
	End                 PartialRegexId
	HasEnd              bool
	EndCaptures         *Captures
	ApplyEndPatternLast bool
	Patterns            []PatternEntry
}

// BeginWhileRule opens with Begin and stays open as long as While keeps
// matching at the start of each subsequent line.
type BeginWhileRule struct {
	baseRule
	Name          string
	ContentName   string
	Begin         RegexId
	BeginCaptures *Captures
	While         PartialRegexId
	WhileCaptures *Captures
	Patterns      []PatternEntry
}

// IncludeOnlyRule has no match/begin of its own: it is purely a container
// redirecting to its Patterns (and, transitively, to whatever repository
// it pushed onto the stack for them).
type IncludeOnlyRule struct {
	baseRule
	Name        string
	ContentName string
	Patterns    []PatternEntry
}

// NoopRule is the sentinel for a rule that claimed an id before it was
// known to be degenerate (no patterns, no include, no match/begin). A
// future linker pass is expected to compact these away; the compiler
// leaves them in place so every id remains stable.
type NoopRule struct {
	baseRule
}

var (
	_ Rule = (*MatchRule)(nil)
	_ Rule = (*BeginEndRule)(nil)
	_ Rule = (*BeginWhileRule)(nil)
	_ Rule = (*IncludeOnlyRule)(nil)
	_ Rule = (*NoopRule)(nil)
)

// SyntaxDefinition is the compiled, flat, id-based form: rules, regexes,
// and repositories live in dense arenas and every cross-reference is an
// explicit id or a recorded Reference.
type SyntaxDefinition struct {
	CompileID      uuid.UUID
	ScopeName      string
	Rules          []Rule
	Regexes        []string
	PartialRegexes []string
	Repositories   []*Repository

	// Carried, unlowered: injections are parsed but never compiled into
	// the rule arena.
	Injections        map[string]RawRule
	InjectionSelector string
	InjectTo          []string
}

// RuleAt looks up a rule by id; it panics if id is absent (0) or out of
// range, since after a successful Compile every emitted id must resolve.
func (s *SyntaxDefinition) RuleAt(id RuleId) Rule {
	return s.Rules[id.index()]
}

// RegexAt resolves a RegexId to its source string.
func (s *SyntaxDefinition) RegexAt(id RegexId) string {
	return s.Regexes[id.index()]
}

// PartialRegexAt resolves a PartialRegexId to its source string.
func (s *SyntaxDefinition) PartialRegexAt(id PartialRegexId) string {
	return s.PartialRegexes[id.index()]
}

// RepositoryAt resolves a RepositoryId.
func (s *SyntaxDefinition) RepositoryAt(id RepositoryId) *Repository {
	return s.Repositories[id.index()]
}

// CompileOptions configures a single Compile invocation. The zero value
// is a generated CompileID.
type CompileOptions struct {
	// ID correlates this compile in logs across a process that compiles
	// many grammars; it has no bearing on compile semantics.
	ID uuid.UUID
}

// Compile lowers a parse tree into the compiled arena form. The returned
// definition's root rule always has id 1 (RuleId(1)), an IncludeOnlyRule
// (or NoopRule if the grammar has no top-level patterns).
func Compile(raw *RawSyntaxDefinition) (*SyntaxDefinition, error) {
	return CompileWithOptions(raw, CompileOptions{})
}

// CompileWithOptions is Compile with an explicit CompileOptions; a zero
// ID is replaced with a freshly generated one.
func CompileWithOptions(raw *RawSyntaxDefinition, opts CompileOptions) (*SyntaxDefinition, error) {
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}

	c := &compiler{
		def: &SyntaxDefinition{
			CompileID:         opts.ID,
			ScopeName:         raw.ScopeName,
			Injections:        raw.Injections,
			InjectionSelector: raw.InjectionSelector,
			InjectTo:          raw.InjectTo,
		},
	}

	rootID, err := c.compileRule(RepositoryStack{}, RawRule{
		Patterns:    raw.Patterns,
		PatternsSet: true,
		Repository:  raw.Repository,
	})
	if err != nil {
		return nil, err
	}
	if rootID != ruleIdFromIndex(0) {
		panic("textmate grammar: root rule did not receive id 1")
	}

	return c.def, nil
}

type compiler struct {
	def *SyntaxDefinition
}

// reserveRule appends an absent (nil) slot, reserving a stable id before
// this rule's contents (which may recursively grow every arena) are
// known.
func (c *compiler) reserveRule() RuleId {
	c.def.Rules = append(c.def.Rules, nil)
	return ruleIdFromIndex(len(c.def.Rules) - 1)
}

func (c *compiler) installRule(id RuleId, r Rule) {
	c.def.Rules[id.index()] = r
}

func (c *compiler) compileRegex(src string) RegexId {
	c.def.Regexes = append(c.def.Regexes, src)
	return regexIdFromIndex(len(c.def.Regexes) - 1)
}

func (c *compiler) compilePartialRegex(src string) PartialRegexId {
	c.def.PartialRegexes = append(c.def.PartialRegexes, src)
	return partialRegexIdFromIndex(len(c.def.PartialRegexes) - 1)
}

// compileRule classifies and lowers a single raw rule. The classification
// is total and mutually exclusive, checked in priority order: match,
// begin+while, begin, include-only/noop.
func (c *compiler) compileRule(stack RepositoryStack, raw RawRule) (RuleId, error) {
	id := c.reserveRule()

	switch {
	case raw.Match != "":
		regexID := c.compileRegex(raw.Match)
		captures, err := c.compileCapturesMap(stack, raw.Captures)
		if err != nil {
			return 0, err
		}
		c.installRule(id, &MatchRule{
			baseRule: baseRule{ID: id, RepositoryStack: stack},
			Name:     raw.Name,
			Match:    regexID,
			Captures: captures,
		})

	case raw.Begin != "" && raw.While != "":
		beginID := c.compileRegex(raw.Begin)
		beginCaptures, err := c.compileCapturesMap(stack, raw.BeginCaptures)
		if err != nil {
			return 0, err
		}
		whileID := c.compilePartialRegex(raw.While)
		whileCaptures, err := c.compileCapturesMap(stack, raw.WhileCaptures)
		if err != nil {
			return 0, err
		}
		var patterns []PatternEntry
		if raw.PatternsSet {
			patterns, err = c.compilePatterns(stack, raw.Patterns)
			if err != nil {
				return 0, err
			}
		}
		c.installRule(id, &BeginWhileRule{
			baseRule:      baseRule{ID: id, RepositoryStack: stack},
			Name:          raw.Name,
			ContentName:   raw.ContentName,
			Begin:         beginID,
			BeginCaptures: beginCaptures,
			While:         whileID,
			WhileCaptures: whileCaptures,
			Patterns:      patterns,
		})

	case raw.Begin != "":
		beginID := c.compileRegex(raw.Begin)
		beginCaptures, err := c.compileCapturesMap(stack, raw.BeginCaptures)
		if err != nil {
			return 0, err
		}
		var endID PartialRegexId
		var hasEnd bool
		if raw.End != "" {
			endID = c.compilePartialRegex(raw.End)
			hasEnd = true
		}
		endCaptures, err := c.compileCapturesMap(stack, raw.EndCaptures)
		if err != nil {
			return 0, err
		}
		var patterns []PatternEntry
		if raw.PatternsSet {
			patterns, err = c.compilePatterns(stack, raw.Patterns)
			if err != nil {
				return 0, err
			}
		}
		applyEndLast := false
		if raw.ApplyEndPatternLast != nil {
			applyEndLast = *raw.ApplyEndPatternLast
		}
		c.installRule(id, &BeginEndRule{
			baseRule:            baseRule{ID: id, RepositoryStack: stack},
			Name:                raw.Name,
			ContentName:         raw.ContentName,
			Begin:               beginID,
			BeginCaptures:       beginCaptures,
			End:                 endID,
			HasEnd:              hasEnd,
			EndCaptures:         endCaptures,
			ApplyEndPatternLast: applyEndLast,
			Patterns:            patterns,
		})

	default:
		effectiveStack := stack
		if raw.Repository != nil {
			repoID, err := c.compileRepository(stack, raw.Repository)
			if err != nil {
				return 0, err
			}
			effectiveStack, err = stack.Push(repoID)
			if err != nil {
				return 0, err
			}
		}

		// vscode-textmate semantics: patterns, if present (even
		// empty), wins outright; include is only a fallback when
		// patterns is entirely absent.
		var patternsRaw []RawRule
		havePatterns := false
		switch {
		case raw.PatternsSet:
			patternsRaw = raw.Patterns
			havePatterns = true
		case raw.Include != "":
			patternsRaw = []RawRule{{Include: raw.Include}}
			havePatterns = true
		}

		if !havePatterns || len(patternsRaw) == 0 {
			c.installRule(id, &NoopRule{baseRule: baseRule{ID: id, RepositoryStack: effectiveStack}})
			return id, nil
		}

		entries, err := c.compilePatterns(effectiveStack, patternsRaw)
		if err != nil {
			return 0, err
		}
		c.installRule(id, &IncludeOnlyRule{
			baseRule:    baseRule{ID: id, RepositoryStack: effectiveStack},
			Name:        raw.Name,
			ContentName: raw.ContentName,
			Patterns:    entries,
		})
	}

	return id, nil
}

// compilePatterns lowers an ordered pattern list: an include field wins
// over any sibling fields on that element (vscode-textmate semantics) and
// becomes a Reference; anything else is recursively compiled.
func (c *compiler) compilePatterns(stack RepositoryStack, raw []RawRule) ([]PatternEntry, error) {
	entries := make([]PatternEntry, len(raw))
	for i, r := range raw {
		if r.Include != "" {
			ref := ParseReference(r.Include)
			entries[i] = PatternEntry{Reference: &ref}
			continue
		}
		ruleID, err := c.compileRule(stack, r)
		if err != nil {
			return nil, err
		}
		entries[i] = PatternEntry{RuleID: ruleID}
	}
	return entries, nil
}

// compileRepository reserves a RepositoryId, extends the stack with it,
// and compiles every entry under the extended stack before installing
// the finished repository.
func (c *compiler) compileRepository(stack RepositoryStack, raw map[string]RawRule) (RepositoryId, error) {
	c.def.Repositories = append(c.def.Repositories, nil)
	newID := repositoryIdFromIndex(len(c.def.Repositories) - 1)

	newStack, err := stack.Push(newID)
	if err != nil {
		return 0, err
	}

	rules := make(map[string]RuleId, len(raw))
	for name, rawRule := range raw {
		ruleID, err := c.compileRule(newStack, rawRule)
		if err != nil {
			return 0, err
		}
		rules[name] = ruleID
	}

	c.def.Repositories[newID.index()] = &Repository{Rules: rules}
	return newID, nil
}

// compileCapturesMap lowers a captures map (or nil, meaning absent) into
// a dense Captures sequence. Keys that fail to parse as decimal integers
// only matter once a rule is actually assigned to them.
func (c *compiler) compileCapturesMap(stack RepositoryStack, raw map[string]RawRule) (*Captures, error) {
	if raw == nil {
		return nil, nil
	}

	maxCapture := -1
	for key := range raw {
		n, err := strconv.Atoi(key)
		if err != nil {
			n = 0
		}
		if n > maxCapture {
			maxCapture = n
		}
	}
	if maxCapture < 0 {
		return nil, nil
	}

	slots := make([]RuleId, maxCapture+1)
	for key, rawRule := range raw {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, newUnparseableCaptureIndexError(key, err)
		}
		ruleID, err := c.compileRule(stack, rawRule)
		if err != nil {
			return nil, err
		}
		slots[idx] = ruleID
	}

	return &Captures{Slots: slots}, nil
}
