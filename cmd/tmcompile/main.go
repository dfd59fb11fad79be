// Command tmcompile loads TextMate grammar files from a directory, compiles
// each through the grammar package, and prints a summary of the resulting
// arenas: a small flag-driven CLI, no subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/friedelschoen/go-textmate/grammarset"
)

func main() {
	var dir string
	var walk bool
	var verbose bool
	flag.StringVar(&dir, "dir", ".", "directory of grammar files to compile")
	flag.BoolVar(&walk, "walk", false, "recurse into subdirectories")
	flag.BoolVar(&verbose, "verbose", false, "log every file as it loads")
	flag.Parse()

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	loader := grammarset.New(afero.NewOsFs(), logger)
	loadErr := loader.LoadDir(context.Background(), dir, walk)

	names := loader.Set().ScopeNames()
	sort.Strings(names)
	for _, name := range names {
		def, _ := loader.Set().Lookup(name)
		fmt.Printf("%s\trules=%d\tregexes=%d\tpartial_regexes=%d\trepositories=%d\n",
			def.ScopeName, len(def.Rules), len(def.Regexes), len(def.PartialRegexes), len(def.Repositories))
	}

	if loadErr != nil {
		fmt.Fprintf(os.Stderr, "some grammars failed to load:\n%v\n", loadErr)
		os.Exit(1)
	}
}
