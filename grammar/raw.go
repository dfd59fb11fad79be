package grammar

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RawSyntaxDefinition is the parse-stage tree: a direct, tolerant mapping
// of the external TextMate grammar JSON, with its camelCase keys mapped to
// exported Go fields but otherwise unprocessed.
type RawSyntaxDefinition struct {
	ScopeName        string
	Patterns         []RawRule
	Repository       map[string]RawRule
	Injections       map[string]RawRule
	InjectionSelector string
	InjectTo         []string
}

// RawRule is the single wide record every grammar rule decodes into; its
// populated fields determine its semantic shape.
// Absent fields are the Go zero value: "" for strings, nil for slices and
// maps, a nil *bool for the tri-state ApplyEndPatternLast.
type RawRule struct {
	Include             string
	Name                string
	ContentName         string
	Match               string
	Captures            map[string]RawRule
	Begin               string
	BeginCaptures       map[string]RawRule
	End                 string
	EndCaptures         map[string]RawRule
	While               string
	WhileCaptures       map[string]RawRule
	Patterns            []RawRule
	PatternsSet         bool
	Repository          map[string]RawRule
	ApplyEndPatternLast *bool
}

// path is a JSON-pointer-ish breadcrumb trail built while decoding, styled
// after serde_path_to_error's Display impl: "patterns[3].captures.0.name".
type path struct {
	segments []string
}

func (p path) field(name string) path {
	np := path{segments: make([]string, len(p.segments), len(p.segments)+1)}
	copy(np.segments, p.segments)
	np.segments = append(np.segments, "."+name)
	return np
}

func (p path) index(i int) path {
	np := path{segments: make([]string, len(p.segments), len(p.segments)+1)}
	copy(np.segments, p.segments)
	np.segments = append(np.segments, fmt.Sprintf("[%d]", i))
	return np
}

func (p path) String() string {
	s := ""
	for i, seg := range p.segments {
		if i == 0 && seg[0] == '.' {
			s += seg[1:]
		} else {
			s += seg
		}
	}
	return s
}

// ParseJSON decodes a UTF-8 JSON grammar document into a RawSyntaxDefinition.
// It is the only entry point of the parse stage; the only error it ever
// returns is *JSONError.
func ParseJSON(data []byte) (*RawSyntaxDefinition, error) {
	root := path{}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, newJSONError(root.String(), err)
	}

	def := &RawSyntaxDefinition{}

	scopeNameRaw, ok := top["scopeName"]
	if !ok {
		return nil, newJSONError(root.field("scopeName").String(), fmt.Errorf("missing required field"))
	}
	if err := decodeString(scopeNameRaw, &def.ScopeName); err != nil {
		return nil, newJSONError(root.field("scopeName").String(), err)
	}

	patternsRaw, ok := top["patterns"]
	if !ok {
		return nil, newJSONError(root.field("patterns").String(), fmt.Errorf("missing required field"))
	}
	patterns, err := decodeRuleList(patternsRaw, root.field("patterns"))
	if err != nil {
		return nil, err
	}
	def.Patterns = patterns

	if raw, ok := top["repository"]; ok {
		repo, err := decodeRuleMap(raw, root.field("repository"))
		if err != nil {
			return nil, err
		}
		def.Repository = repo
	}

	if raw, ok := top["injections"]; ok {
		inj, err := decodeRuleMap(raw, root.field("injections"))
		if err != nil {
			return nil, err
		}
		def.Injections = inj
	}

	if raw, ok := top["injectionSelector"]; ok {
		if err := decodeString(raw, &def.InjectionSelector); err != nil {
			return nil, newJSONError(root.field("injectionSelector").String(), err)
		}
	}

	if raw, ok := top["injectTo"]; ok {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, newJSONError(root.field("injectTo").String(), err)
		}
		def.InjectTo = make([]string, len(arr))
		for i, elem := range arr {
			if err := decodeString(elem, &def.InjectTo[i]); err != nil {
				return nil, newJSONError(root.field("injectTo").index(i).String(), err)
			}
		}
	}

	// fileTypes, name, firstLineMatch: accepted and ignored.

	return def, nil
}

func decodeString(raw json.RawMessage, dest *string) error {
	return json.Unmarshal(raw, dest)
}

func decodeRuleList(raw json.RawMessage, p path) ([]RawRule, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, newJSONError(p.String(), err)
	}
	rules := make([]RawRule, len(arr))
	for i, elem := range arr {
		rule, err := decodeRule(elem, p.index(i))
		if err != nil {
			return nil, err
		}
		rules[i] = rule
	}
	return rules, nil
}

func decodeRuleMap(raw json.RawMessage, p path) (map[string]RawRule, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, newJSONError(p.String(), err)
	}
	rules := make(map[string]RawRule, len(obj))
	for name, elem := range obj {
		rule, err := decodeRule(elem, p.field(name))
		if err != nil {
			return nil, err
		}
		rules[name] = rule
	}
	return rules, nil
}

// captures accepts either a map ("0" -> Rule, "1" -> Rule, ...) or a
// positional array; both normalize to the same index-keyed map.
func decodeCaptures(raw json.RawMessage, p path) (map[string]RawRule, error) {
	trimmed := trimLeadingSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, newJSONError(p.String(), err)
		}
		out := make(map[string]RawRule, len(arr))
		for i, elem := range arr {
			rule, err := decodeRule(elem, p.index(i))
			if err != nil {
				return nil, err
			}
			out[strconv.Itoa(i)] = rule
		}
		return out, nil
	}
	return decodeRuleMap(raw, p)
}

func trimLeadingSpace(raw json.RawMessage) json.RawMessage {
	i := 0
	for i < len(raw) {
		switch raw[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return raw[i:]
}

func decodeRule(raw json.RawMessage, p path) (RawRule, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return RawRule{}, newJSONError(p.String(), err)
	}

	var rule RawRule

	if v, ok := obj["include"]; ok {
		if err := decodeString(v, &rule.Include); err != nil {
			return RawRule{}, newJSONError(p.field("include").String(), err)
		}
	}
	if v, ok := obj["name"]; ok {
		if err := decodeString(v, &rule.Name); err != nil {
			return RawRule{}, newJSONError(p.field("name").String(), err)
		}
	}
	if v, ok := obj["contentName"]; ok {
		if err := decodeString(v, &rule.ContentName); err != nil {
			return RawRule{}, newJSONError(p.field("contentName").String(), err)
		}
	}
	if v, ok := obj["match"]; ok {
		if err := decodeString(v, &rule.Match); err != nil {
			return RawRule{}, newJSONError(p.field("match").String(), err)
		}
	}
	if v, ok := obj["captures"]; ok {
		c, err := decodeCaptures(v, p.field("captures"))
		if err != nil {
			return RawRule{}, err
		}
		rule.Captures = c
	}
	if v, ok := obj["begin"]; ok {
		if err := decodeString(v, &rule.Begin); err != nil {
			return RawRule{}, newJSONError(p.field("begin").String(), err)
		}
	}
	if v, ok := obj["beginCaptures"]; ok {
		c, err := decodeCaptures(v, p.field("beginCaptures"))
		if err != nil {
			return RawRule{}, err
		}
		rule.BeginCaptures = c
	}
	if v, ok := obj["end"]; ok {
		if err := decodeString(v, &rule.End); err != nil {
			return RawRule{}, newJSONError(p.field("end").String(), err)
		}
	}
	if v, ok := obj["endCaptures"]; ok {
		c, err := decodeCaptures(v, p.field("endCaptures"))
		if err != nil {
			return RawRule{}, err
		}
		rule.EndCaptures = c
	}
	if v, ok := obj["while"]; ok {
		if err := decodeString(v, &rule.While); err != nil {
			return RawRule{}, newJSONError(p.field("while").String(), err)
		}
	}
	if v, ok := obj["whileCaptures"]; ok {
		c, err := decodeCaptures(v, p.field("whileCaptures"))
		if err != nil {
			return RawRule{}, err
		}
		rule.WhileCaptures = c
	}
	if v, ok := obj["patterns"]; ok {
		list, err := decodeRuleList(v, p.field("patterns"))
		if err != nil {
			return RawRule{}, err
		}
		rule.Patterns = list
		rule.PatternsSet = true
	}
	if v, ok := obj["repository"]; ok {
		repo, err := decodeRuleMap(v, p.field("repository"))
		if err != nil {
			return RawRule{}, err
		}
		rule.Repository = repo
	}
	if v, ok := obj["applyEndPatternLast"]; ok {
		b, err := decodeApplyEndPatternLast(v)
		if err != nil {
			return RawRule{}, newJSONError(p.field("applyEndPatternLast").String(), err)
		}
		rule.ApplyEndPatternLast = &b
	}

	// Unknown fields are ignored silently.

	return rule, nil
}

// decodeApplyEndPatternLast accepts true, false, 0, or 1; any other number
// (or any other type) is rejected.
func decodeApplyEndPatternLast(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return false, fmt.Errorf("expected a bool, 0, or 1")
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("expected a bool, 0, or 1, got %v", n)
	}
}
