// Package tokenizer turns a compiled grammar.SyntaxDefinition into an
// executable rule tree and walks it over source text, emitting scoped
// tokens. It consumes the grammar package's flat, id-based compiled
// form rather than compiling JSON directly, so materialization and
// regex compilation happen once, at load time, not per match.
//
// Only references local to one grammar ($self, $base, #name) resolve.
// A Reference that names another scope (TopLevel, TopLevelRepository)
// requires the cross-grammar linker grammar.Set deliberately doesn't
// implement, so Materialize reports it as an error instead of silently
// matching nothing.
package tokenizer
