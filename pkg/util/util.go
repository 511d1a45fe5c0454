package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/gbat/pkg/config"
	"github.com/xplshn/gbat/pkg/token"
)

// Stderr receives every error and warning report.
var Stderr io.Writer = os.Stderr

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

// Diagnostic is a compile error anchored at a source token.
type Diagnostic struct {
	Tok token.Token
	Msg string
}

func (d *Diagnostic) Error() string {
	filename, line, col := findFileAndLine(d.Tok)
	if line <= 0 {
		return d.Msg
	}
	return fmt.Sprintf("%s:%d:%d: %s", filename, line, col, d.Msg)
}

// Errorf builds a *Diagnostic.
func Errorf(tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// findFileAndLine converts a global token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", strings.TrimRight(string(content[lineStart:lineEnd]), "\r"))

	fmt.Fprintf(w, "  %s\033[32m^", strings.Repeat(" ", max(tok.Column-1, 0)))
	if tok.Len > 1 {
		fmt.Fprintf(w, "%s", strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(w, "\033[0m")
}

// Report prints a located error message without exiting.
func Report(tok token.Token, format string, args ...interface{}) {
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(Stderr, "%s:%d:%d: \033[31merror:\033[0m ", filename, line, col)
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintln(Stderr)
	printErrorLine(Stderr, tok)
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	Report(tok, format, args...)
	os.Exit(1)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(Stderr, "%s:%d:%d: \033[33mwarning:\033[0m ", filename, line, col)
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintf(Stderr, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(Stderr, tok)
}
