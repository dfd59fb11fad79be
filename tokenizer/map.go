package tokenizer

import (
	"iter"
	"slices"
)

// Mapper is an index→tokens structure: for each byte position, the
// tokens covering it. Useful for renderers that only redraw when the
// active token set changes.
type Mapper [][]*Token

// Add inserts tok at every position it covers. Empty scopes are ignored.
func (tm Mapper) Add(tok *Token) {
	if tok.Scope == "" {
		return
	}
	for idx := range tok.Length {
		i := idx + tok.Start
		if i >= len(tm) {
			break
		}
		tm[i] = append(tm[i], tok)
	}
}

// Iter yields (pos, tokens) whenever the active token set changes.
// Tokens at each position are stabilized via CompareToken.
func (tm Mapper) Iter() iter.Seq2[int, []*Token] {
	return func(yield func(int, []*Token) bool) {
		var prev []*Token
		for i, cur := range tm {
			slices.SortFunc(cur, CompareToken)
			if !slices.Equal(prev, cur) {
				if !yield(i, cur) {
					return
				}
				prev = cur
			}
		}
	}
}
