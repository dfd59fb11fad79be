package tokenizer

import (
	"github.com/friedelschoen/go-textmate/regexp"
)

// Operation controls parse-stack behavior when a rule matches. Expand
// tries subrules only; Push/Pop open/close a block by mutating the
// stack; PushWhile is Push plus a per-line condition checked before the
// frame's rules run again.
type Operation int

const (
	OperationNOP Operation = iota
	OperationPush
	OperationPop
	OperationExpand
	OperationPushWhile
)

// MatchRule is an executable rule materialized from a grammar.Rule. If
// Pattern is non-nil it is a concrete regex match; otherwise it is a
// container redirecting to Rules (IncludeOnlyRule / the root / capture
// groups carrying their own subrules).
type MatchRule struct {
	Name        string
	ContentName string
	Pattern     *regexp.Regexp
	Captures    []*MatchRule
	Rules       []*MatchRule
	Operation   Operation
	HasEnd      bool
	While       *regexp.Regexp
}

// Grammar is one materialized, executable grammar.
type Grammar struct {
	ScopeName  string
	Repository map[string]*MatchRule
	Root       *MatchRule
}

// StackItem constructs the root frame for tokenizing this grammar from
// its start.
func (g *Grammar) StackItem() *StackItem {
	return &StackItem{rules: []*MatchRule{g.Root}, grammar: g}
}
