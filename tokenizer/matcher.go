package tokenizer

import (
	"bufio"
	"bytes"
	"io"
	"slices"

	"gitlab.com/tozd/go/errors"

	"github.com/friedelschoen/go-textmate/regexp"
)

// Token describes a scoped span in the input. Tokens may overlap; render
// the token with the highest Depth at a position.
type Token struct {
	Scope  string
	Start  int
	Length int
	Depth  int
}

func CompareToken(left *Token, right *Token) int {
	if left.Start != right.Start {
		return left.Start - right.Start
	}
	if left.Length != right.Length {
		return left.Length - right.Length
	}
	return left.Depth - right.Depth
}

func (tok Token) End() int { return tok.Start + tok.Length }

// StackItem is one frame on the parse stack. A frame pushed for a
// BeginWhileRule carries its While regex and the offset its content
// started at, so every new line can re-check the condition before
// continuing to tokenize inside it.
type StackItem struct {
	rules    []*MatchRule
	grammar  *Grammar
	offset   int
	name     string
	while    *regexp.Regexp
	previous *StackItem
}

func (si *StackItem) Root() *Grammar {
	for si.grammar == nil {
		si = si.previous
	}
	return si.grammar
}

func (si *StackItem) Depth() int {
	depth := 1
	for si != nil {
		si = si.previous
		depth++
	}
	return depth
}

// evaluateRule tries a single rule against text[start:end]. Returns
// (newTop, advance); advance is the number of bytes consumed, 0 both for
// no match and for an empty match.
func evaluateRule(offset int, text string, start int, end int, top *StackItem, yield func(*Token), rule *MatchRule) (*StackItem, int, error) {
	if rule.Operation == OperationExpand {
		var consumed int
		var err error
		for _, child := range rule.Rules {
			top, consumed, err = evaluateRule(offset, text, start, end, top, yield, child)
			if err != nil {
				return nil, 0, err
			}
			if consumed != 0 {
				return top, consumed, nil
			}
		}
		return top, 0, nil
	}

	groups, err := rule.Pattern.Match(text, start, end, regexp.OptionNotBeginPosition)
	if err != nil {
		return nil, 0, errors.Errorf("matching pattern: %w", err)
	}
	if groups == nil {
		return top, 0, nil
	}
	length := groups[0].Len()

	if rule.Name != "" {
		yield(&Token{Scope: rule.Name, Start: groups[0].Start + offset, Length: length, Depth: top.Depth()})
	}

	for i, rng := range groups {
		if i >= len(rule.Captures) || rule.Captures[i] == nil || rng.Len() == 0 {
			continue
		}
		cap := rule.Captures[i]
		if cap.Name != "" {
			yield(&Token{Scope: cap.Name, Start: rng.Start + offset, Length: rng.Len(), Depth: top.Depth()})
		}
		if cap.Rules != nil {
			if _, err := TokenizeLine(offset, text, rng.Start, rng.End, &StackItem{rules: cap.Rules, previous: top}, yield); err != nil {
				return nil, 0, err
			}
		}
	}

	switch rule.Operation {
	case OperationPush:
		top = &StackItem{offset: start + offset, rules: rule.Rules, name: rule.ContentName, previous: top}
	case OperationPushWhile:
		top = &StackItem{offset: start + offset, rules: rule.Rules, name: rule.ContentName, while: rule.While, previous: top}
	case OperationPop:
		if top.name != "" {
			yield(&Token{Scope: top.name, Start: top.offset, Length: start + offset - top.offset, Depth: top.Depth()})
		}
		yield(&Token{Scope: rule.Name, Start: top.offset, Length: start + length + offset - top.offset, Depth: top.Depth()})
		top = top.previous
	}

	return top, length, nil
}

// popExhaustedWhiles runs at the start of every new line, popping frames
// whose While condition no longer matches -- from the innermost frame
// outward, stopping at the first frame whose condition still holds (or
// that isn't a while-frame at all).
func popExhaustedWhiles(text string, top *StackItem) (*StackItem, error) {
	for top != nil && top.while != nil {
		groups, err := top.while.Match(text, 0, len(text), regexp.OptionNotBeginPosition)
		if err != nil {
			return nil, errors.Errorf("matching while condition: %w", err)
		}
		if groups != nil {
			break
		}
		top = top.previous
	}
	return top, nil
}

// TokenizeLine tokenizes text[start:end] within the given stack context,
// first popping any BeginWhileRule frames whose condition has stopped
// holding. It always guarantees progress: a position nothing matches
// gets a 1-byte filler token with an empty scope.
func TokenizeLine(offset int, text string, start int, end int, top *StackItem, yield func(*Token)) (*StackItem, error) {
	top, err := popExhaustedWhiles(text, top)
	if err != nil {
		return nil, err
	}

	if end == 0 {
		end = len(text)
	}
	lineoffset := start
	for lineoffset < end {
		consumed := false
		var adv int
		for _, rule := range top.rules {
			top, adv, err = evaluateRule(offset, text, lineoffset, end, top, yield, rule)
			if err != nil {
				return nil, err
			}
			if adv > 0 {
				lineoffset += adv
				consumed = true
				break
			}
		}
		if !consumed {
			yield(&Token{Scope: "", Start: lineoffset + offset, Length: 1})
			lineoffset++
		}
	}
	return top, nil
}

// TokenizeReader is a reference driver that scans line by line, carrying
// the stack (and its while-conditions) across lines. Offsets are global;
// tokens are stabilized afterwards via CompareToken.
func (g *Grammar) TokenizeReader(reader io.Reader) ([]*Token, error) {
	top := g.StackItem()
	var tokens []*Token

	scanner := bufio.NewScanner(reader)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return i + 1, data[:i+1], nil
		}
		if atEOF && len(data) > 0 {
			return len(data), data, nil
		}
		return 0, nil, nil
	})

	offset := 0
	var err error
	for scanner.Scan() {
		text := scanner.Text()
		top, err = TokenizeLine(offset, text, 0, len(text), top, func(t *Token) { tokens = append(tokens, t) })
		if err != nil {
			return nil, err
		}
		offset += len(text)
	}

	slices.SortFunc(tokens, CompareToken)
	return tokens, nil
}
