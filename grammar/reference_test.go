package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReference(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Reference
	}{
		{"base", "$base", Reference{Kind: ReferenceBase}},
		{"self", "$self", Reference{Kind: ReferenceSelf}},
		{"relative", "#expression", Reference{Kind: ReferenceRelative, Rule: "expression"}},
		{"top_level", "source.ts", Reference{Kind: ReferenceTopLevel, Scope: "source.ts"}},
		{"top_level_repository", "source.ts#entity.name.class", Reference{
			Kind: ReferenceTopLevelRepository, Scope: "source.ts", Rule: "entity.name.class",
		}},
		{"empty_falls_back_to_top_level", "", Reference{Kind: ReferenceTopLevel, Scope: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseReference(tc.in)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	for _, s := range []string{"$base", "$self", "#x", "source.ts#x", "source.ts"} {
		assert.Equal(t, s, ParseReference(s).Render())
	}
}
