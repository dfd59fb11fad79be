package tokenizer

import (
	"gitlab.com/tozd/go/errors"

	"github.com/friedelschoen/go-textmate/grammar"
	"github.com/friedelschoen/go-textmate/regexp"
)

var ErrUnresolvedReference = errors.Base("unresolved rule reference")

// Materialize lowers a compiled grammar.SyntaxDefinition into an
// executable Grammar. Every RuleId reachable from the root is visited at
// most once (memoized by id), so a grammar whose rules reference each
// other cyclically through $self/#name still materializes in finite time.
func Materialize(def *grammar.SyntaxDefinition) (*Grammar, error) {
	m := &materializer{def: def, byID: make(map[grammar.RuleId]*MatchRule)}

	root, err := m.rule(grammar.RuleId(1))
	if err != nil {
		return nil, errors.Errorf("materializing root rule: %w", err)
	}

	repo := make(map[string]*MatchRule)
	for _, r := range def.Repositories {
		for name, id := range r.Rules {
			mr, err := m.rule(id)
			if err != nil {
				return nil, errors.Errorf("materializing repository rule %q: %w", name, err)
			}
			repo[name] = mr
		}
	}

	return &Grammar{ScopeName: def.ScopeName, Repository: repo, Root: root}, nil
}

type materializer struct {
	def  *grammar.SyntaxDefinition
	byID map[grammar.RuleId]*MatchRule
}

func (m *materializer) rule(id grammar.RuleId) (*MatchRule, error) {
	if mr, ok := m.byID[id]; ok {
		return mr, nil
	}
	// Reserve a placeholder before recursing, the same reserve-then-fill
	// discipline the compiler itself uses, so a rule that refers back to
	// itself (directly or through a repository cycle) terminates.
	mr := &MatchRule{}
	m.byID[id] = mr

	switch r := m.def.RuleAt(id).(type) {
	case *grammar.MatchRule:
		pattern, err := regexp.Compile(m.def.RegexAt(r.Match), 0)
		if err != nil {
			return nil, errors.Errorf("compiling match regex: %w", err)
		}
		captures, err := m.captures(r.Captures)
		if err != nil {
			return nil, err
		}
		mr.Name = r.Name
		mr.Pattern = pattern
		mr.Captures = captures

	case *grammar.BeginEndRule:
		if err := m.materializeBeginEnd(mr, r); err != nil {
			return nil, err
		}

	case *grammar.BeginWhileRule:
		if err := m.materializeBeginWhile(mr, r); err != nil {
			return nil, err
		}

	case *grammar.IncludeOnlyRule:
		rules, err := m.patterns(r.RepositoryStack, r.Patterns)
		if err != nil {
			return nil, err
		}
		mr.Name = r.Name
		mr.ContentName = r.ContentName
		mr.Rules = rules
		mr.Operation = OperationExpand

	case *grammar.NoopRule:
		mr.Operation = OperationExpand

	default:
		return nil, errors.Errorf("unknown rule variant for id %d", id)
	}

	return mr, nil
}

func (m *materializer) materializeBeginEnd(mr *MatchRule, r *grammar.BeginEndRule) error {
	begin, err := regexp.Compile(m.def.RegexAt(r.Begin), 0)
	if err != nil {
		return errors.Errorf("compiling begin regex: %w", err)
	}
	beginCaptures, err := m.captures(r.BeginCaptures)
	if err != nil {
		return err
	}

	patterns, err := m.patterns(r.RepositoryStack, r.Patterns)
	if err != nil {
		return err
	}

	rules := patterns
	if r.HasEnd {
		end, err := regexp.Compile(m.def.PartialRegexAt(r.End), 0)
		if err != nil {
			return errors.Errorf("compiling end regex: %w", err)
		}
		endCaptures, err := m.captures(r.EndCaptures)
		if err != nil {
			return err
		}
		popRule := &MatchRule{
			Name:      r.Name,
			Pattern:   end,
			Captures:  endCaptures,
			Operation: OperationPop,
		}
		if r.ApplyEndPatternLast {
			rules = append(append([]*MatchRule{}, patterns...), popRule)
		} else {
			rules = append([]*MatchRule{popRule}, patterns...)
		}
	}

	mr.Name = r.Name
	mr.Pattern = begin
	mr.Captures = beginCaptures
	mr.Rules = rules
	mr.Operation = OperationPush
	mr.HasEnd = r.HasEnd
	mr.ContentName = r.ContentName
	return nil
}

func (m *materializer) materializeBeginWhile(mr *MatchRule, r *grammar.BeginWhileRule) error {
	begin, err := regexp.Compile(m.def.RegexAt(r.Begin), 0)
	if err != nil {
		return errors.Errorf("compiling begin regex: %w", err)
	}
	beginCaptures, err := m.captures(r.BeginCaptures)
	if err != nil {
		return err
	}
	while, err := regexp.Compile(m.def.PartialRegexAt(r.While), 0)
	if err != nil {
		return errors.Errorf("compiling while regex: %w", err)
	}
	patterns, err := m.patterns(r.RepositoryStack, r.Patterns)
	if err != nil {
		return err
	}

	mr.Pattern = begin
	mr.Captures = beginCaptures
	mr.Rules = patterns
	mr.Operation = OperationPushWhile
	mr.While = while
	mr.ContentName = r.ContentName
	return nil
}

func (m *materializer) captures(c *grammar.Captures) ([]*MatchRule, error) {
	if c == nil {
		return nil, nil
	}
	out := make([]*MatchRule, len(c.Slots))
	for i := range c.Slots {
		id, ok := c.At(i)
		if !ok {
			continue
		}
		mr, err := m.rule(id)
		if err != nil {
			return nil, errors.Errorf("materializing capture %d: %w", i, err)
		}
		out[i] = mr
	}
	return out, nil
}

func (m *materializer) patterns(stack grammar.RepositoryStack, entries []grammar.PatternEntry) ([]*MatchRule, error) {
	out := make([]*MatchRule, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsReference() {
			mr, err := m.rule(entry.RuleID)
			if err != nil {
				return nil, err
			}
			out = append(out, mr)
			continue
		}
		id, err := m.resolveReference(stack, *entry.Reference)
		if err != nil {
			return nil, err
		}
		mr, err := m.rule(id)
		if err != nil {
			return nil, err
		}
		out = append(out, mr)
	}
	return out, nil
}

func (m *materializer) resolveReference(stack grammar.RepositoryStack, ref grammar.Reference) (grammar.RuleId, error) {
	switch ref.Kind {
	case grammar.ReferenceSelf, grammar.ReferenceBase:
		return grammar.RuleId(1), nil
	case grammar.ReferenceRelative:
		for id := range stack.Innermost() {
			repo := m.def.RepositoryAt(id)
			if ruleID, ok := repo.Rules[ref.Rule]; ok {
				return ruleID, nil
			}
		}
		return 0, errors.Errorf("%w: #%s not found in any enclosing repository", ErrUnresolvedReference, ref.Rule)
	default:
		return 0, errors.Errorf("%w: %q names another grammar; materializing a single definition can't resolve it", ErrUnresolvedReference, ref.Render())
	}
}
