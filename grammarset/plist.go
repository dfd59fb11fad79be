package grammarset

import (
	"gitlab.com/tozd/go/errors"
	"howett.net/plist"

	"github.com/friedelschoen/go-textmate/grammar"
)

// plistRule mirrors grammar.RawRule's fields but with plist-friendly tags;
// old-style .tmLanguage bundles use the same shape as the JSON grammars,
// just serialized as a property list instead of JSON.
type plistRule struct {
	Include             string                `plist:"include"`
	Name                string                `plist:"name"`
	ContentName         string                `plist:"contentName"`
	Match               string                `plist:"match"`
	Captures            map[string]plistRule  `plist:"captures"`
	Begin               string                `plist:"begin"`
	BeginCaptures       map[string]plistRule  `plist:"beginCaptures"`
	End                 string                `plist:"end"`
	EndCaptures         map[string]plistRule  `plist:"endCaptures"`
	While               string                `plist:"while"`
	WhileCaptures       map[string]plistRule  `plist:"whileCaptures"`
	Patterns            []plistRule           `plist:"patterns"`
	Repository          map[string]plistRule  `plist:"repository"`
	ApplyEndPatternLast *bool                 `plist:"applyEndPatternLast"`
}

type plistDocument struct {
	ScopeName         string               `plist:"scopeName"`
	FileTypes         []string             `plist:"fileTypes"`
	Patterns          []plistRule          `plist:"patterns"`
	Repository        map[string]plistRule `plist:"repository"`
	Injections        map[string]plistRule `plist:"injections"`
	InjectionSelector string               `plist:"injectionSelector"`
	InjectTo          []string             `plist:"injectTo"`
}

// ParsePlist decodes an old-style .tmLanguage/.plist grammar bundle and
// re-expresses it as the same grammar.RawSyntaxDefinition the JSON path
// produces, so grammar.Compile never has to know which format a grammar
// came from.
func ParsePlist(data []byte) (*grammar.RawSyntaxDefinition, error) {
	var doc plistDocument
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return nil, errors.Errorf("decoding plist: %w", err)
	}

	raw := &grammar.RawSyntaxDefinition{
		ScopeName:         doc.ScopeName,
		Patterns:          convertRuleList(doc.Patterns),
		Repository:        convertRuleMap(doc.Repository),
		Injections:        convertRuleMap(doc.Injections),
		InjectionSelector: doc.InjectionSelector,
		InjectTo:          doc.InjectTo,
	}
	return raw, nil
}

func peekPlistFileTypes(data []byte) []string {
	var doc plistDocument
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc.FileTypes
}

func convertRuleList(in []plistRule) []grammar.RawRule {
	if in == nil {
		return nil
	}
	out := make([]grammar.RawRule, len(in))
	for i, r := range in {
		out[i] = convertRule(r)
	}
	return out
}

func convertRuleMap(in map[string]plistRule) map[string]grammar.RawRule {
	if in == nil {
		return nil
	}
	out := make(map[string]grammar.RawRule, len(in))
	for k, r := range in {
		out[k] = convertRule(r)
	}
	return out
}

func convertRule(r plistRule) grammar.RawRule {
	return grammar.RawRule{
		Include:             r.Include,
		Name:                r.Name,
		ContentName:         r.ContentName,
		Match:               r.Match,
		Captures:            convertRuleMap(r.Captures),
		Begin:               r.Begin,
		BeginCaptures:       convertRuleMap(r.BeginCaptures),
		End:                 r.End,
		EndCaptures:         convertRuleMap(r.EndCaptures),
		While:               r.While,
		WhileCaptures:       convertRuleMap(r.WhileCaptures),
		Patterns:            convertRuleList(r.Patterns),
		PatternsSet:         r.Patterns != nil,
		Repository:          convertRuleMap(r.Repository),
		ApplyEndPatternLast: r.ApplyEndPatternLast,
	}
}
