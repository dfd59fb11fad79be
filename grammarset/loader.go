// Package grammarset loads TextMate grammar files off disk, compiles each
// one through the grammar package, and indexes the results by scope name
// and file type. The grammar package never touches a filesystem, so
// this package is the collaborator that does, built the way a
// directory-scanning grammar loader typically works.
package grammarset

import (
	"context"
	"encoding/json"
	"io/fs"
	"iter"
	"maps"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/friedelschoen/go-textmate/grammar"
)

// JSONExtensions are treated as JSON grammar sources.
var JSONExtensions = []string{".json"}

// PlistExtensions are treated as plist (.tmLanguage / old-style textmate
// bundle) grammar sources.
var PlistExtensions = []string{".plist", ".tmLanguage"}

// Entry is one loaded-and-compiled grammar, plus the bits of bookkeeping
// (source path, declared file types) the loader needed to index it that
// the compiler itself has no reason to know about.
type Entry struct {
	Path      string
	FileTypes []string
	Compiled  *grammar.SyntaxDefinition
}

// Loader walks a directory of grammar files, compiles each, and keeps
// them indexed by scope name (grammar.Set) and by declared file type.
type Loader struct {
	fs         afero.Fs
	logger     zerolog.Logger
	set        *grammar.Set
	byFileType map[string][]*Entry
	entries    []*Entry
}

// New builds an empty Loader over fs, logging through logger.
func New(fsys afero.Fs, logger zerolog.Logger) *Loader {
	return &Loader{
		fs:         fsys,
		logger:     logger,
		set:        grammar.NewSet(),
		byFileType: make(map[string][]*Entry),
	}
}

// Set returns the grammar.Set accumulated so far.
func (l *Loader) Set() *grammar.Set { return l.set }

// FromFileType returns the index-th grammar declared for a given file
// type.
func (l *Loader) FromFileType(ft string, index int) (*grammar.SyntaxDefinition, bool) {
	entries, ok := l.byFileType[strings.TrimPrefix(ft, ".")]
	if !ok || index >= len(entries) {
		return nil, false
	}
	return entries[index].Compiled, true
}

// LoadDir scans dir for grammar files (recursively, if walk is set) and
// compiles every one it recognizes. Per-file failures are collected into
// one returned *multierror.Error instead of aborting the whole directory;
// a file that fails to load or compile is logged and skipped, not fatal
// to its siblings.
func (l *Loader) LoadDir(ctx context.Context, dir string, walk bool) error {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled && l.logger.GetLevel() != zerolog.Disabled {
		logger = &l.logger
	}

	var result *multierror.Error

	visit := func(path string, isDir bool) {
		if isDir {
			return
		}
		ext := filepath.Ext(path)
		if !containsExt(JSONExtensions, ext) && !containsExt(PlistExtensions, ext) {
			return
		}
		if err := l.loadFile(path); err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("skipping grammar file")
			result = multierror.Append(result, errors.Errorf("loading %q: %w", path, err))
			return
		}
		logger.Info().Str("path", path).Msg("compiled grammar")
	}

	if walk {
		err := afero.Walk(l.fs, dir, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			visit(path, info.IsDir())
			return nil
		})
		if err != nil {
			return errors.Errorf("walking %q: %w", dir, err)
		}
	} else {
		infos, err := afero.ReadDir(l.fs, dir)
		if err != nil {
			return errors.Errorf("reading %q: %w", dir, err)
		}
		for _, info := range infos {
			visit(filepath.Join(dir, info.Name()), info.IsDir())
		}
	}

	return result.ErrorOrNil()
}

func (l *Loader) loadFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return errors.Errorf("reading file: %w", err)
	}

	var raw *grammar.RawSyntaxDefinition
	switch {
	case containsExt(JSONExtensions, ext):
		raw, err = grammar.ParseJSON(data)
	case containsExt(PlistExtensions, ext):
		raw, err = ParsePlist(data)
	default:
		return errors.Errorf("unrecognized grammar extension %q", ext)
	}
	if err != nil {
		return errors.Errorf("parsing grammar: %w", err)
	}

	compiled, err := grammar.Compile(raw)
	if err != nil {
		return errors.Errorf("compiling grammar: %w", err)
	}

	entry := &Entry{
		Path:      path,
		FileTypes: peekFileTypes(data, ext),
		Compiled:  compiled,
	}

	l.set.Add(compiled)
	l.entries = append(l.entries, entry)
	for _, ft := range entry.FileTypes {
		ft = strings.TrimPrefix(ft, ".")
		l.byFileType[ft] = append(l.byFileType[ft], entry)
	}

	return nil
}

// FileTypes returns every declared file type extension seen so far.
func (l *Loader) FileTypes() iter.Seq[string] {
	return maps.Keys(l.byFileType)
}

// FileTypeNames yields, for each declared file type, the scope names of
// the grammars registered under it.
func (l *Loader) FileTypeNames() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for ft, entries := range l.byFileType {
			names := make([]string, len(entries))
			for i, e := range entries {
				names[i] = e.Compiled.ScopeName
			}
			if !yield(ft, names) {
				return
			}
		}
	}
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// peekFileTypes extracts the fileTypes array without involving the
// compiler core at all -- grammar.RawSyntaxDefinition deliberately drops
// it, but the loader still needs it to index grammars by extension.
func peekFileTypes(data []byte, ext string) []string {
	if containsExt(PlistExtensions, ext) {
		return peekPlistFileTypes(data)
	}
	var shallow struct {
		FileTypes []string `json:"fileTypes"`
	}
	if err := json.Unmarshal(data, &shallow); err != nil {
		return nil
	}
	return shallow.FileTypes
}
