// Package grammar parses TextMate-style language grammar JSON into a
// typed tree and lowers that tree into a flat, id-based SyntaxDefinition
// fit for a downstream tokenizer. It does not tokenize, execute regexes,
// or resolve cross-grammar references.
package grammar
