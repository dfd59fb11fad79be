package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/friedelschoen/go-textmate/grammarset"
	"github.com/friedelschoen/go-textmate/theme"
	"github.com/friedelschoen/go-textmate/tokenizer"
)

var grammarDir = "share/colorcat/grammars"
var themeDir = "share/colorcat/themes"

func main() {
	var grammarName, themeName string
	var transparent, doList bool
	flag.StringVar(&grammarName, "syntax", "", "Name")
	flag.StringVar(&themeName, "theme", "default", "Theme")
	flag.BoolVar(&transparent, "transparent", false, "Theme")
	flag.BoolVar(&doList, "list", false, "List available syntaxes by file type (themes are not listed)")
	flag.Parse()

	userdir, userdirErr := os.UserHomeDir()

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	loader := grammarset.New(afero.NewOsFs(), logger)

	ctx := context.Background()
	_ = loader.LoadDir(ctx, filepath.Join("/usr", grammarDir), false)
	if userdirErr == nil {
		_ = loader.LoadDir(ctx, filepath.Join(userdir, ".local", grammarDir), false)
	}

	if doList {
		fmt.Println("File Types:")
		fts := slices.Collect(loader.FileTypes())
		names := maps.Collect(loader.FileTypeNames())
		slices.Sort(fts)
		for _, ft := range fts {
			fmt.Printf("- %s: %s\n", ft, strings.Join(names[ft], ", "))
		}
		os.Exit(1)
	}

	themePath := filepath.Join("/usr", themeDir, themeName+".json")
	if _, err := os.Stat(themePath); err != nil {
		if userdirErr != nil {
			fmt.Fprintf(os.Stderr, "unable to determine home directory: %v\n", userdirErr)
			os.Exit(1)
		}
		themePath = filepath.Join(userdir, ".local", themeDir, themeName+".json")
	}

	sourceFile := os.Stdin
	defer sourceFile.Close()
	if flag.NArg() > 0 {
		name := flag.Arg(0)
		var err error
		sourceFile, err = os.Open(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load file `%s`: %v\n", name, err)
			os.Exit(1)
		}
		if grammarName == "" {
			grammarName = strings.TrimPrefix(path.Ext(name), ".")
		}
	}

	def, ok := loader.FromFileType(grammarName, 0)
	if !ok {
		fmt.Fprintf(os.Stderr, "failed to find grammar for `%s`\n", grammarName)
		os.Exit(1)
	}
	grammar, err := tokenizer.Materialize(def)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to materialize grammar `%s`: %v\n", grammarName, err)
		os.Exit(1)
	}

	themeBytes, err := os.ReadFile(themePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read theme: %v\n", err)
		os.Exit(1)
	}
	var themeJSON theme.ThemeJSON
	if err := json.Unmarshal(themeBytes, &themeJSON); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse theme JSON: %v\n", err)
		os.Exit(1)
	}
	t := theme.ParseTheme(themeJSON)

	sourceBytes, err := io.ReadAll(sourceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read source file: %v\n", err)
		os.Exit(1)
	}
	source := string(sourceBytes)

	mapper := make(tokenizer.Mapper, len(sourceBytes))
	var off int
	stack := grammar.StackItem()
	for _, line := range strings.SplitAfter(source, "\n") {
		stack, err = tokenizer.TokenizeLine(off, line, 0, len(line), stack, mapper.Add)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tokenization error: %v\n", err)
			os.Exit(1)
		}
		off += len(line)
	}

	tokens := t.MapTokens(mapper.Iter())

	cur := -1
	for i, chr := range source {
		if cur < len(tokens)-1 && tokens[cur+1].Offset == i {
			cur++
			tok := tokens[cur]
			if !transparent {
				if tok.Foreground == nil {
					tok.Foreground = t.Foreground
				}
				if tok.Background == nil {
					tok.Background = t.Background
				}
			}

			var csi bytes.Buffer
			csi.WriteString("\033[0")

			if tok.FontStyle.Has(theme.Bold) {
				csi.WriteString(";1")
			}
			if tok.FontStyle.Has(theme.Italic) {
				csi.WriteString(";3")
			}
			if tok.FontStyle.Has(theme.Underline) {
				csi.WriteString(";4")
			}
			if tok.FontStyle.Has(theme.Strikethrough) {
				csi.WriteString(";9")
			}

			if tok.Foreground != nil {
				r, g, b, _ := tok.Foreground.RGBA()
				fmt.Fprintf(&csi, ";38;2;%d;%d;%d", r>>8, g>>8, b>>8)
			}
			if tok.Background != nil {
				r, g, b, _ := tok.Background.RGBA()
				fmt.Fprintf(&csi, ";48;2;%d;%d;%d", r>>8, g>>8, b>>8)
			}
			csi.WriteByte('m')
			csi.WriteTo(os.Stdout)
		}
		fmt.Printf("%c", chr)
	}

	fmt.Printf("\033[0m\n")
}
