package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	var out, mode string
	var dump, verbose bool
	var libs []string

	fs := NewFlagSet("test")
	fs.String(&out, "output", "o", "a.bat", "", "file")
	fs.String(&mode, "mode", "", "fast", "", "")
	fs.Bool(&dump, "dump-ir", "d", false, "")
	fs.Bool(&verbose, "verbose", "v", false, "")
	fs.List(&libs, "lib", "l", nil, "", "name")

	args := []string{"-ofoo.bat", "--dump-ir", "-lone", "--lib=two", "-mode", "slow", "a.gb", "--", "-v"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	if out != "foo.bat" || mode != "slow" || !dump || verbose {
		t.Errorf("parsed out=%q mode=%q dump=%v verbose=%v", out, mode, dump, verbose)
	}
	if diff := cmp.Diff([]string{"one", "two"}, libs); diff != "" {
		t.Errorf("lib mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.gb", "-v"}, fs.Args()); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}

	var visited []string
	fs.Visit(func(name string) { visited = append(visited, name) })
	if diff := cmp.Diff([]string{"output", "dump-ir", "lib", "lib", "mode"}, visited); diff != "" {
		t.Errorf("Visit mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		args []string
		msg  string
	}{
		{[]string{"--nope"}, "unknown flag: --nope"},
		{[]string{"-o"}, "flag needs an argument: -o"},
		{[]string{"-v=maybe"}, "invalid boolean value 'maybe'"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			var out string
			var verbose bool
			fs := NewFlagSet("test")
			fs.String(&out, "output", "o", "", "", "")
			fs.Bool(&verbose, "verbose", "v", false, "")
			err := fs.Parse(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("Parse(%v) error = %v, want %q", tt.args, err, tt.msg)
			}
		})
	}
}

func TestFlagGroupHelp(t *testing.T) {
	app := NewApp("gbat")
	app.Synopsis = "[options] <input.gb>"
	app.Authors = []string{"someone"}
	on, off := true, false
	app.FlagSet.AddFlagGroup("Warning Flags", "", "warning", "Available Warnings:", []FlagGroupEntry{
		{Name: "recursion", Prefix: "W", Usage: "Warn about recursion.", Enabled: &on, Disabled: &off},
	})

	var buf bytes.Buffer
	app.writeHelp(&buf)
	help := buf.String()
	for _, want := range []string{"Synopsis", "gbat <options> <input.gb>", "Warning Flags", "-Wno-<warning>", "recursion", "|x|"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output lacks %q:\n%s", want, help)
		}
	}
	if strings.Contains(help, "--Wrecursion") {
		t.Errorf("group flags listed among options:\n%s", help)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if diff := cmp.Diff([]string{"one two", "three", "four"}, got); diff != "" {
		t.Errorf("wrapText mismatch (-want +got):\n%s", diff)
	}
}
