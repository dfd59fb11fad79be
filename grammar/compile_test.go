package grammar

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *RawSyntaxDefinition {
	t.Helper()
	def, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	return def
}

// An empty grammar still gets a root rule -- it compiles to a NoopRule
// at id 1, with no regexes or repositories allocated.
func TestCompile_EmptyGrammar(t *testing.T) {
	raw := mustParse(t, `{"scopeName":"s","patterns":[]}`)
	compiled, err := Compile(raw)
	require.NoError(t, err)

	require.Len(t, compiled.Rules, 1)
	_, isNoop := compiled.RuleAt(RuleId(1)).(*NoopRule)
	assert.True(t, isNoop)
	assert.Empty(t, compiled.Regexes)
	assert.Empty(t, compiled.PartialRegexes)
	assert.Empty(t, compiled.Repositories)
}

// A match rule and a begin/end rule, both reached only through
// repository includes rather than inlined in the pattern list.
func TestCompile_SimpleMatchAndBeginEnd(t *testing.T) {
	raw := mustParse(t, `{
		"scopeName": "source.simple",
		"patterns": [{"include": "#digits"}, {"include": "#whitespace"}],
		"repository": {
			"digits": {"match": "\\d+", "name": "digits"},
			"whitespace": {"begin": "\\s", "end": "\\S", "name": "whitespace"}
		}
	}`)
	compiled, err := Compile(raw)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"\\d+", "\\s"}, compiled.Regexes)
	assert.Equal(t, []string{"\\S"}, compiled.PartialRegexes)
	require.Len(t, compiled.Repositories, 1)

	root, ok := compiled.RuleAt(RuleId(1)).(*IncludeOnlyRule)
	require.True(t, ok)
	require.Len(t, root.Patterns, 2)
	for _, entry := range root.Patterns {
		require.True(t, entry.IsReference())
		assert.Equal(t, ReferenceRelative, entry.Reference.Kind)
	}

	repo := compiled.RepositoryAt(RepositoryId(1))
	require.Len(t, repo.Rules, 2)

	digitsID, ok := repo.Rules["digits"]
	require.True(t, ok)
	digitsRule, ok := compiled.RuleAt(digitsID).(*MatchRule)
	require.True(t, ok)
	assert.Equal(t, "\\d+", compiled.RegexAt(digitsRule.Match))

	wsID, ok := repo.Rules["whitespace"]
	require.True(t, ok)
	wsRule, ok := compiled.RuleAt(wsID).(*BeginEndRule)
	require.True(t, ok)
	assert.Equal(t, "\\s", compiled.RegexAt(wsRule.Begin))
	require.True(t, wsRule.HasEnd)
	assert.Equal(t, "\\S", compiled.PartialRegexAt(wsRule.End))
}

// applyEndPatternLast as a number coerces to bool instead of rejecting
// the grammar.
func TestCompile_ApplyEndPatternLastAsNumber(t *testing.T) {
	raw := mustParse(t, `{
		"scopeName": "s",
		"patterns": [{"begin": "a", "end": "b", "applyEndPatternLast": 1}]
	}`)
	compiled, err := Compile(raw)
	require.NoError(t, err)

	root, ok := compiled.RuleAt(RuleId(1)).(*IncludeOnlyRule)
	require.True(t, ok)
	require.Len(t, root.Patterns, 1)
	beRule, ok := compiled.RuleAt(root.Patterns[0].RuleID).(*BeginEndRule)
	require.True(t, ok)
	assert.True(t, beRule.ApplyEndPatternLast)
}

// Captures given as a JSON array (rather than an object keyed by
// index) compile the same way, indexed by position.
func TestCompile_CapturesAsArray(t *testing.T) {
	raw := mustParse(t, `{
		"scopeName": "s",
		"patterns": [{"match": "(x)(y)", "captures": [{"name": "a"}, {"name": "b"}]}]
	}`)
	compiled, err := Compile(raw)
	require.NoError(t, err)

	root := compiled.RuleAt(RuleId(1)).(*IncludeOnlyRule)
	matchRule := compiled.RuleAt(root.Patterns[0].RuleID).(*MatchRule)
	require.NotNil(t, matchRule.Captures)
	require.Len(t, matchRule.Captures.Slots, 2)

	// A captures entry carrying only "name" has nothing left to
	// discriminate on once it's run through the same rule classifier as
	// everything else, so it compiles to a NoopRule -- the name itself
	// is not retained on that variant.
	id0, ok := matchRule.Captures.At(0)
	require.True(t, ok)
	_, isNoop := compiled.RuleAt(id0).(*NoopRule)
	assert.True(t, isNoop)

	id1, ok := matchRule.Captures.At(1)
	require.True(t, ok)
	_, isNoop = compiled.RuleAt(id1).(*NoopRule)
	assert.True(t, isNoop)
}

// An include field wins over a sibling match field on the same rule;
// the match is ignored entirely, not just deprioritized.
func TestCompile_IncludeWinsOverSiblings(t *testing.T) {
	raw := mustParse(t, `{
		"scopeName": "s",
		"patterns": [{"include": "#x", "match": "foo"}]
	}`)
	compiled, err := Compile(raw)
	require.NoError(t, err)

	assert.Empty(t, compiled.Regexes, "no regex should be allocated for the ignored match field")

	root := compiled.RuleAt(RuleId(1)).(*IncludeOnlyRule)
	require.Len(t, root.Patterns, 1)
	require.True(t, root.Patterns[0].IsReference())
	assert.Equal(t, Reference{Kind: ReferenceRelative, Rule: "x"}, *root.Patterns[0].Reference)
}

// Repository nesting beyond the stack's fixed depth fails the whole
// compile rather than silently truncating the stack.
func TestCompile_RepositoryStackOverflow(t *testing.T) {
	// Five levels of nested repository blocks, one rule per level: the
	// innermost rule sits behind five pushed repository ids, one more
	// than MaxRepositoryStackDepth allows.
	leaf := map[string]any{"match": "x"}
	level := leaf
	for i := 4; i >= 0; i-- {
		name := fmt.Sprintf("l%d", i)
		level = map[string]any{
			"patterns":   []any{map[string]any{"include": "#" + name}},
			"repository": map[string]any{name: level},
		}
	}
	doc := level
	doc["scopeName"] = "s"

	encoded, err := json.Marshal(doc)
	require.NoError(t, err)

	raw := mustParse(t, string(encoded))
	_, err = Compile(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRepositoryStackOverflow)
}

// The root rule always gets id 1, regardless of what else gets compiled.
func TestCompile_RootAlwaysId1(t *testing.T) {
	raw := mustParse(t, `{"scopeName":"s","patterns":[{"match":"x"}]}`)
	compiled, err := Compile(raw)
	require.NoError(t, err)
	_, ok := compiled.RuleAt(RuleId(1)).(*IncludeOnlyRule)
	assert.True(t, ok)
}

// A match field wins regardless of what other fields are present on
// the same rule (begin/end/while all ignored once match is set).
func TestCompile_MatchWinsRegardlessOfOtherFields(t *testing.T) {
	raw := mustParse(t, `{
		"scopeName": "s",
		"patterns": [{"match": "x", "begin": "y", "end": "z", "while": "w"}]
	}`)
	compiled, err := Compile(raw)
	require.NoError(t, err)
	root := compiled.RuleAt(RuleId(1)).(*IncludeOnlyRule)
	_, ok := compiled.RuleAt(root.Patterns[0].RuleID).(*MatchRule)
	assert.True(t, ok)
}

// begin+while compiles to a BeginWhileRule even when an end field is
// also present -- while takes priority over end once begin is set.
func TestCompile_BeginWhileNoEnd(t *testing.T) {
	raw := mustParse(t, `{
		"scopeName": "s",
		"patterns": [{"begin": "y", "while": "w", "end": "z"}]
	}`)
	compiled, err := Compile(raw)
	require.NoError(t, err)
	root := compiled.RuleAt(RuleId(1)).(*IncludeOnlyRule)
	bw, ok := compiled.RuleAt(root.Patterns[0].RuleID).(*BeginWhileRule)
	require.True(t, ok)
	assert.Equal(t, "y", compiled.RegexAt(bw.Begin))
	assert.Equal(t, "w", compiled.PartialRegexAt(bw.While))
}

func TestCompile_UnparseableCaptureIndex(t *testing.T) {
	raw := mustParse(t, `{
		"scopeName": "s",
		"patterns": [{"match": "(x)", "captures": {"not-a-number": {"name": "a"}}}]
	}`)
	_, err := Compile(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnparseableCaptureIndex)

	var capErr *UnparseableCaptureIndexError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "not-a-number", capErr.Index)
}

func TestCompile_EveryEmittedRuleIsPresent(t *testing.T) {
	raw := mustParse(t, `{
		"scopeName": "source.simple",
		"patterns": [{"include": "#digits"}, {"include": "#whitespace"}],
		"repository": {
			"digits": {"match": "\\d+", "name": "digits"},
			"whitespace": {"begin": "\\s", "end": "\\S", "name": "whitespace",
				"patterns": [{"include": "#digits"}]}
		}
	}`)
	compiled, err := Compile(raw)
	require.NoError(t, err)

	for i := range compiled.Rules {
		assert.NotNil(t, compiled.Rules[i], "rule slot %d must be filled after compile", i+1)
	}
	for i := range compiled.Repositories {
		assert.NotNil(t, compiled.Repositories[i], "repository slot %d must be filled after compile", i+1)
	}
}

func TestCompile_CompileIDDefaultsToGenerated(t *testing.T) {
	raw := mustParse(t, `{"scopeName":"s","patterns":[]}`)
	a, err := Compile(raw)
	require.NoError(t, err)
	b, err := Compile(raw)
	require.NoError(t, err)
	assert.NotEqual(t, a.CompileID, b.CompileID)
}
