package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/cli"
	"github.com/xplshn/gbat/pkg/codegen"
	"github.com/xplshn/gbat/pkg/config"
	"github.com/xplshn/gbat/pkg/lexer"
	"github.com/xplshn/gbat/pkg/parser"
	"github.com/xplshn/gbat/pkg/split"
	"github.com/xplshn/gbat/pkg/symtab"
	"github.com/xplshn/gbat/pkg/token"
	"github.com/xplshn/gbat/pkg/util"
)

func main() {
	app := cli.NewApp("gbat")
	app.Synopsis = "[options] <input.gb> ..."
	app.Description = "A compiler from gb, a small imperative language, to Windows batch scripts. Functions, lists and loops included; cmd.exe does the rest."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/gbat>"
	app.Since = 2025

	var (
		outFile  string
		dumpIR   bool
		dumpAST  bool
		verbose  bool
		wall     bool
		wnoAll   bool
		pedantic bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "a.bat", "Place the output into <file> ('-' for stdout).", "file")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the lowered program and exit.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Dump the normalized syntax tree and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Report each compilation stage on stderr.")
	fs.Bool(&wall, "Wall", "", false, "Enable most warnings.")
	fs.Bool(&wnoAll, "Wno-all", "", false, "Disable all warnings.")
	fs.Bool(&pedantic, "pedantic", "", false, "Issue all warnings, including stylistic ones.")

	cfg := config.NewConfig()
	cfg.SetupFlagGroups(fs)

	logf := func(format string, args ...interface{}) {
		if verbose {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}

	// Main compilation pipeline
	app.Action = func(inputFiles []string) error {
		// -Wall and -pedantic first, specific -W/-F flags override them
		cfg.ProcessFlags(fs.Visit)

		if len(inputFiles) == 0 {
			util.Error(token.Token{FileIndex: -1}, "no input files specified.")
		}

		// First pass: directives may change how the sources are lexed.
		// Its diagnostics are dropped; the second pass reports them.
		util.Stderr = io.Discard
		if _, tokens, err := readAndTokenizeFiles(inputFiles, cfg); err == nil {
			parser.NewParser(tokens, cfg).Parse()
		}
		util.Stderr = os.Stderr

		logf("Tokenizing %d source file(s)...", len(inputFiles))
		records, tokens, err := readAndTokenizeFiles(inputFiles, cfg)
		if err != nil {
			fatal(err)
		}
		util.SetSourceFiles(records)

		logf("Parsing tokens into AST...")
		root, err := parser.NewParser(tokens, cfg).Parse()
		if err != nil {
			fatal(err)
		}

		logf("Building symbol table...")
		table, err := symtab.Build(root)
		if err != nil {
			fatal(err)
		}

		if cfg.IsFeatureEnabled(config.FeatSplit) {
			logf("Splitting nested expressions...")
			root = split.Split(root, table)
		}

		if dumpAST {
			ast.Fprint(os.Stdout, root)
			return nil
		}

		logf("Lowering...")
		prog, err := codegen.NewContext(cfg, table).GenerateIR(root)
		if err != nil {
			fatal(err)
		}

		if dumpIR {
			fmt.Print(prog.String())
			return nil
		}

		logf("Rendering batch script...")
		out, err := codegen.NewBatchBackend().Generate(prog, cfg)
		if err != nil {
			fatal(fmt.Errorf("backend code generation failed: %w", err))
		}

		if outFile == "-" {
			_, err = io.Copy(os.Stdout, out)
		} else {
			logf("Writing '%s'...", outFile)
			err = os.WriteFile(outFile, out.Bytes(), 0o644)
		}
		if err != nil {
			fatal(fmt.Errorf("could not write output: %w", err))
		}
		logf("Done!")
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// fatal reports err at its source position when it carries one, then exits.
func fatal(err error) {
	var cgErr *codegen.Error
	var diag *util.Diagnostic
	switch {
	case errors.As(err, &cgErr):
		util.Error(cgErr.Tok, "%s", cgErr.Message())
	case errors.As(err, &diag):
		util.Error(diag.Tok, "%s", diag.Msg)
	default:
		util.Error(token.Token{FileIndex: -1}, "%v", err)
	}
}

func readAndTokenizeFiles(paths []string, cfg *config.Config) ([]util.SourceFileRecord, []token.Token, error) {
	var records []util.SourceFileRecord
	var allTokens []token.Token

	for i, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("could not read file '%s': %w", path, err)
		}
		runeContent := []rune(string(content))
		records = append(records, util.SourceFileRecord{Name: path, Content: runeContent})
		util.SetSourceFiles(records)

		l := lexer.NewLexer(runeContent, i, cfg)
		for {
			tok := l.Next()
			if tok.Type == token.EOF {
				break
			}
			allTokens = append(allTokens, tok)
		}
		if err := l.Err(); err != nil {
			return nil, nil, err
		}
	}
	finalFileIndex := 0
	if len(paths) > 0 {
		finalFileIndex = len(paths) - 1
	}
	allTokens = append(allTokens, token.Token{Type: token.EOF, FileIndex: finalFileIndex})
	return records, allTokens, nil
}
