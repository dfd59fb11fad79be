package tokenizer

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friedelschoen/go-textmate/grammar"
)

func TestMaterialize_AbcFixture(t *testing.T) {
	data, err := os.ReadFile("../grammar/testdata/abc.json")
	require.NoError(t, err)
	raw, err := grammar.ParseJSON(data)
	require.NoError(t, err)
	compiled, err := grammar.Compile(raw)
	require.NoError(t, err)

	g, err := Materialize(compiled)
	require.NoError(t, err)

	assert.Equal(t, "source.abc", g.ScopeName)
	require.Contains(t, g.Repository, "letter")
	require.Contains(t, g.Repository, "paren-expression")
	require.Contains(t, g.Repository, "expression")

	letter := g.Repository["letter"]
	assert.Equal(t, "keyword.letter", letter.Name)
	assert.NotNil(t, letter.Pattern)

	paren := g.Repository["paren-expression"]
	assert.Equal(t, "expression.group", paren.Name)
	assert.True(t, paren.HasEnd)
	assert.Equal(t, OperationPush, paren.Operation)
	// pop rule plus the one recursive #expression pattern
	require.Len(t, paren.Rules, 2)

	assert.Equal(t, OperationExpand, g.Root.Operation)
}

func TestMaterialize_CrossGrammarReferenceErrors(t *testing.T) {
	raw, err := grammar.ParseJSON([]byte(`{
		"scopeName": "source.x",
		"patterns": [{"include": "source.other"}]
	}`))
	require.NoError(t, err)
	compiled, err := grammar.Compile(raw)
	require.NoError(t, err)

	_, err = Materialize(compiled)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedReference)
}

func TestMaterialize_UnresolvedRelativeReferenceErrors(t *testing.T) {
	raw, err := grammar.ParseJSON([]byte(`{
		"scopeName": "source.x",
		"patterns": [{"include": "#missing"}]
	}`))
	require.NoError(t, err)
	compiled, err := grammar.Compile(raw)
	require.NoError(t, err)

	_, err = Materialize(compiled)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedReference)
}
