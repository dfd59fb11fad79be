package grammarset

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleGrammar = `{
	"scopeName": "source.simple",
	"fileTypes": ["simple", "smp"],
	"patterns": [{"include": "#digits"}],
	"repository": {
		"digits": {"match": "\\d+", "name": "constant.numeric"}
	}
}`

const brokenGrammar = `{
	"scopeName": "source.broken",
	"patterns": [{"match": "(x)", "captures": {"not-a-number": {"name": "a"}}}]
}`

func newTestLoader(t *testing.T) (*Loader, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/grammars/simple.json", []byte(simpleGrammar), 0o644))
	return New(fs, zerolog.Nop()), fs
}

func TestLoader_LoadDir_CompilesValidGrammars(t *testing.T) {
	loader, _ := newTestLoader(t)
	err := loader.LoadDir(context.Background(), "/grammars", false)
	require.NoError(t, err)

	require.Equal(t, 1, loader.Set().Len())
	def, ok := loader.Set().Lookup("source.simple")
	require.True(t, ok)
	assert.Equal(t, "source.simple", def.ScopeName)

	fromFT, ok := loader.FromFileType("simple", 0)
	require.True(t, ok)
	assert.Same(t, def, fromFT)

	fromFT, ok = loader.FromFileType(".smp", 0)
	require.True(t, ok)
	assert.Same(t, def, fromFT)
}

func TestLoader_LoadDir_AccumulatesPerFileErrors(t *testing.T) {
	loader, fs := newTestLoader(t)
	require.NoError(t, afero.WriteFile(fs, "/grammars/broken.json", []byte(brokenGrammar), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/grammars/ignored.txt", []byte("not a grammar"), 0o644))

	err := loader.LoadDir(context.Background(), "/grammars", false)
	require.Error(t, err)

	// The valid sibling still loaded despite the broken one.
	_, ok := loader.Set().Lookup("source.simple")
	assert.True(t, ok)
	_, ok = loader.Set().Lookup("source.broken")
	assert.False(t, ok)
}

func TestLoader_LoadDir_Walk(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/grammars/nested/simple.json", []byte(simpleGrammar), 0o644))
	loader := New(fs, zerolog.Nop())

	require.NoError(t, loader.LoadDir(context.Background(), "/grammars", true))
	assert.Equal(t, 1, loader.Set().Len())
}
