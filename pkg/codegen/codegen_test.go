package codegen

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/config"
	"github.com/xplshn/gbat/pkg/ir"
	"github.com/xplshn/gbat/pkg/lexer"
	"github.com/xplshn/gbat/pkg/parser"
	"github.com/xplshn/gbat/pkg/split"
	"github.com/xplshn/gbat/pkg/symtab"
	"github.com/xplshn/gbat/pkg/util"
)

func TestMain(m *testing.M) {
	util.Stderr = io.Discard
	os.Exit(m.Run())
}

var equateEmpty = cmpopts.EquateEmpty()

func parse(t *testing.T, src string, cfg *config.Config) (*ast.Node, *symtab.Table) {
	t.Helper()
	toks, err := lexer.NewLexer([]rune(src), 0, cfg).Tokenize()
	if err != nil {
		t.Fatalf("tokenize %q: %v", src, err)
	}
	root, err := parser.NewParser(toks, cfg).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	table, err := symtab.Build(root)
	if err != nil {
		t.Fatalf("symtab %q: %v", src, err)
	}
	if cfg.IsFeatureEnabled(config.FeatSplit) {
		root = split.Split(root, table)
	}
	return root, table
}

func lowerWith(t *testing.T, src string, cfg *config.Config) (*ir.Program, error) {
	t.Helper()
	root, table := parse(t, src, cfg)
	return NewContext(cfg, table).GenerateIR(root)
}

// lower compiles src and returns the statements after the setup block.
func lower(t *testing.T, src string) []ir.Stmt {
	t.Helper()
	prog, err := lowerWith(t, src, config.NewConfig())
	if err != nil {
		t.Fatalf("lower %q: %v", src, err)
	}
	if len(prog.Stmts) < len(Setup) {
		t.Fatalf("program has %d statements, want the %d setup lines first", len(prog.Stmts), len(Setup))
	}
	return prog.Stmts[len(Setup):]
}

func ident(name string) *ir.Ident { return &ir.Ident{Name: name} }
func varOf(lv ir.Leftvalue) *ir.Var { return &ir.Var{Ref: lv} }
func str(s string) *ir.StrLit { return &ir.StrLit{Value: s} }
func num(n int64) *ir.IntLit { return &ir.IntLit{Value: n} }
func slot(n int) *ir.Slot { return &ir.Slot{Index: n} }
func framed(name string) *ir.ListAccess { return &ir.ListAccess{Base: ident(name), Index: varOf(slot(2))} }
func strs(parts ...ir.Varstring) ir.Varstrings { return ir.Varstrings(parts) }

func TestSetupComesFirst(t *testing.T) {
	prog, err := lowerWith(t, "", config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := []ir.Stmt{
		&ir.Raw{Text: "@echo off"},
		&ir.Raw{Text: "setlocal EnableDelayedExpansion"},
		&ir.Raw{Text: "setlocal EnableExtensions"},
	}
	if diff := cmp.Diff(want, prog.Stmts); diff != "" {
		t.Errorf("setup mismatch (-want +got):\n%s", diff)
	}
}

func TestLowerStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []ir.Stmt
	}{
		{
			name: "arithmetic assignment",
			src:  "x = 1 + 2;",
			want: []ir.Stmt{&ir.ArithAssign{Dst: ident("x"), Expr: &ir.Binary{Op: ir.OpAdd, Left: num(1), Right: num(2)}}},
		},
		{
			name: "integer literal",
			src:  "x = 42;",
			want: []ir.Stmt{&ir.ArithAssign{Dst: ident("x"), Expr: num(42)}},
		},
		{
			name: "negative literal",
			src:  "x = -7;",
			want: []ir.Stmt{&ir.ArithAssign{Dst: ident("x"), Expr: num(-7)}},
		},
		{
			name: "booleans are integers",
			src:  "x = true; y = false;",
			want: []ir.Stmt{
				&ir.ArithAssign{Dst: ident("x"), Expr: num(1)},
				&ir.ArithAssign{Dst: ident("y"), Expr: num(0)},
			},
		},
		{
			name: "string literal round-trips",
			src:  `s = "hello world";`,
			want: []ir.Stmt{&ir.StrAssign{Dst: ident("s"), Value: strs(str("hello world"))}},
		},
		{
			name: "variable copy",
			src:  "y = x;",
			want: []ir.Stmt{&ir.StrAssign{Dst: ident("y"), Value: strs(varOf(ident("x")))}},
		},
		{
			name: "concatenation keeps operand order",
			src:  `s = "a" + x + "b";`,
			want: []ir.Stmt{&ir.StrAssign{Dst: ident("s"), Value: strs(str("a"), varOf(ident("x")), str("b"))}},
		},
		{
			name: "unary operators",
			src:  "x = -y; z = ~y; w = !y; v = +y;",
			want: []ir.Stmt{
				&ir.ArithAssign{Dst: ident("x"), Expr: &ir.Unary{Op: ir.OpNeg, Expr: varOf(ident("y"))}},
				&ir.ArithAssign{Dst: ident("z"), Expr: &ir.Unary{Op: ir.OpCompl, Expr: varOf(ident("y"))}},
				&ir.ArithAssign{Dst: ident("w"), Expr: &ir.Unary{Op: ir.OpNot, Expr: varOf(ident("y"))}},
				&ir.ArithAssign{Dst: ident("v"), Expr: varOf(ident("y"))},
			},
		},
		{
			name: "precedence is kept in the tree",
			src:  "x = a + b * c;",
			want: []ir.Stmt{&ir.ArithAssign{Dst: ident("x"), Expr: &ir.Binary{
				Op:    ir.OpAdd,
				Left:  varOf(ident("a")),
				Right: &ir.Binary{Op: ir.OpMul, Left: varOf(ident("b")), Right: varOf(ident("c"))},
			}}},
		},
		{
			name: "indexed target and source",
			src:  "x[i] = y[2];",
			want: []ir.Stmt{&ir.StrAssign{
				Dst:   &ir.ListAccess{Base: ident("x"), Index: varOf(ident("i"))},
				Value: strs(varOf(&ir.ListAccess{Base: ident("y"), Index: num(2)})),
			}},
		},
		{
			name: "list decomposes per element",
			src:  `x = [1, "a", y];`,
			want: []ir.Stmt{
				&ir.ArithAssign{Dst: &ir.ListAccess{Base: ident("x"), Index: num(0)}, Expr: num(1)},
				&ir.StrAssign{Dst: &ir.ListAccess{Base: ident("x"), Index: num(1)}, Value: strs(str("a"))},
				&ir.StrAssign{Dst: &ir.ListAccess{Base: ident("x"), Index: num(2)}, Value: strs(varOf(ident("y")))},
			},
		},
		{
			name: "nested list",
			src:  "x = [[1], 2];",
			want: []ir.Stmt{
				&ir.ArithAssign{Dst: &ir.ListAccess{Base: &ir.ListAccess{Base: ident("x"), Index: num(0)}, Index: num(0)}, Expr: num(1)},
				&ir.ArithAssign{Dst: &ir.ListAccess{Base: ident("x"), Index: num(1)}, Expr: num(2)},
			},
		},
		{
			name: "empty list assigns nothing",
			src:  "x = [];",
			want: nil,
		},
		{
			name: "external call",
			src:  `print("a" + "b");`,
			want: []ir.Stmt{&ir.Call{Callee: str("print"), Args: []ir.Varstrings{strs(str("a"), str("b"))}}},
		},
		{
			name: "external call with several arguments",
			src:  `echo(x, 1, "y");`,
			want: []ir.Stmt{&ir.Call{Callee: str("echo"), Args: []ir.Varstrings{
				strs(varOf(ident("x"))), strs(str("1")), strs(str("y")),
			}}},
		},
		{
			name: "if with string comparison",
			src:  `if (x == "a") y = 1;`,
			want: []ir.Stmt{&ir.If{
				Cond: &ir.Comparison{Op: ir.CmpEq, Left: strs(varOf(ident("x"))), Right: strs(str("a"))},
				Body: []ir.Stmt{&ir.ArithAssign{Dst: ident("y"), Expr: num(1)}},
			}},
		},
		{
			name: "if else with relational condition",
			src:  "if (x < 3) { y = 1; } else { y = 2; }",
			want: []ir.Stmt{&ir.IfElse{
				Cond: &ir.Comparison{Op: ir.CmpLt, Left: strs(varOf(ident("x"))), Right: strs(str("3"))},
				Then: []ir.Stmt{&ir.ArithAssign{Dst: ident("y"), Expr: num(1)}},
				Else: []ir.Stmt{&ir.ArithAssign{Dst: ident("y"), Expr: num(2)}},
			}},
		},
		{
			name: "variable condition tests for one",
			src:  "if (f) g();",
			want: []ir.Stmt{&ir.If{
				Cond: &ir.Comparison{Op: ir.CmpEq, Left: strs(varOf(ident("f"))), Right: strs(str("1"))},
				Body: []ir.Stmt{&ir.Call{Callee: str("g")}},
			}},
		},
		{
			name: "constant conditions",
			src:  "if (true) a(); if (0) b();",
			want: []ir.Stmt{
				&ir.If{Cond: &ir.Comparison{Op: ir.CmpEq, Left: strs(str("1")), Right: strs(str("1"))}, Body: []ir.Stmt{&ir.Call{Callee: str("a")}}},
				&ir.If{Cond: &ir.Comparison{Op: ir.CmpEq, Left: strs(str("0")), Right: strs(str("1"))}, Body: []ir.Stmt{&ir.Call{Callee: str("b")}}},
			},
		},
		{
			name: "while loop",
			src:  "while (i) { x = x + 1; }",
			want: []ir.Stmt{
				&ir.Label{Name: "__L0"},
				&ir.If{
					Cond: &ir.Comparison{Op: ir.CmpEq, Left: strs(varOf(ident("i"))), Right: strs(str("1"))},
					Body: []ir.Stmt{
						&ir.ArithAssign{Dst: ident("x"), Expr: &ir.Binary{Op: ir.OpAdd, Left: varOf(ident("x")), Right: num(1)}},
						&ir.Jump{Target: "__L0"},
					},
				},
			},
		},
		{
			name: "comments are carried",
			src:  "// first\nx = 1;",
			want: []ir.Stmt{
				&ir.Comment{Text: "first"},
				&ir.ArithAssign{Dst: ident("x"), Expr: num(1)},
			},
		},
		{
			name: "global and empty statements emit nothing",
			src:  "global a; ;",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lower(t, tt.src)
			if diff := cmp.Diff(tt.want, got, equateEmpty); diff != "" {
				t.Errorf("lower(%q) mismatch (-want +got):\n%s", tt.src, diff)
			}
		})
	}
}

func TestLoopLabelsAreUniquePerContext(t *testing.T) {
	src := "while (a) { while (b) { c(); } } while (d) { e(); }"
	got := lower(t, src)

	var labels []string
	var walk func([]ir.Stmt)
	walk = func(stmts []ir.Stmt) {
		for _, s := range stmts {
			switch s := s.(type) {
			case *ir.Label:
				labels = append(labels, s.Name)
			case *ir.If:
				walk(s.Body)
			}
		}
	}
	walk(got)
	if diff := cmp.Diff([]string{"__L0", "__L1", "__L2"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	// A fresh compilation starts counting again.
	again := lower(t, "while (a) { b(); }")
	if l, ok := again[0].(*ir.Label); !ok || l.Name != "__L0" {
		t.Errorf("first label of a new context = %v, want __L0", again[0])
	}
}

func TestFunctionAssembly(t *testing.T) {
	got := lower(t, "func f(a) { return a; }")
	want := []ir.Stmt{
		&ir.Jump{Target: "f__end"},
		&ir.Label{Name: "f"},
		&ir.StrAssign{Dst: framed("a"), Value: strs(varOf(slot(3)))},
		&ir.StrAssign{Dst: slot(1), Value: strs(varOf(framed("a")))},
		&ir.Jump{Target: "eof"},
		&ir.Label{Name: "f__end"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("function mismatch (-want +got):\n%s", diff)
	}
}

func TestParametersBindInOrder(t *testing.T) {
	got := lower(t, "func add(a, b, c) { r = a + b + c; }")
	binds := got[2:5]
	want := []ir.Stmt{
		&ir.StrAssign{Dst: framed("a"), Value: strs(varOf(slot(3)))},
		&ir.StrAssign{Dst: framed("b"), Value: strs(varOf(slot(4)))},
		&ir.StrAssign{Dst: framed("c"), Value: strs(varOf(slot(5)))},
	}
	if diff := cmp.Diff(want, binds); diff != "" {
		t.Errorf("parameter binding mismatch (-want +got):\n%s", diff)
	}

	body := got[5]
	wantBody := &ir.ArithAssign{Dst: framed("r"), Expr: &ir.Binary{
		Op:    ir.OpAdd,
		Left:  &ir.Binary{Op: ir.OpAdd, Left: varOf(framed("a")), Right: varOf(framed("b"))},
		Right: varOf(framed("c")),
	}}
	if diff := cmp.Diff(wantBody, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestInternalCallPassesRegisterAndFrame(t *testing.T) {
	got := lower(t, `f(1, "x"); func f(a, b) {}`)
	want := &ir.Call{Callee: str(":f"), Args: []ir.Varstrings{
		strs(str(ReturnRegister)), strs(str(FramePlaceholder)), strs(str("1")), strs(str("x")),
	}}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("call mismatch (-want +got):\n%s", diff)
	}
}

func TestCallInsideFunctionIsFramed(t *testing.T) {
	got := lower(t, "func f(a) { echo(a); }")
	want := &ir.Call{Callee: str("echo"), Args: []ir.Varstrings{strs(varOf(framed("a")))}}
	if diff := cmp.Diff(want, got[3]); diff != "" {
		t.Errorf("call mismatch (-want +got):\n%s", diff)
	}
}

func TestReturnWithoutValue(t *testing.T) {
	got := lower(t, "func f() { return; }")
	want := []ir.Stmt{
		&ir.Jump{Target: "f__end"},
		&ir.Label{Name: "f"},
		&ir.Jump{Target: "eof"},
		&ir.Label{Name: "f__end"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestStatementsPrecedeFunctions(t *testing.T) {
	got := lower(t, "func f() {} x = 1; func g() {} y = 2;")
	var shape []string
	for _, s := range got {
		switch s := s.(type) {
		case *ir.Label:
			shape = append(shape, s.Name)
		case *ir.ArithAssign:
			shape = append(shape, s.Dst.String())
		}
	}
	want := []string{"x", "y", "f", "f__end", "g", "g__end"}
	if diff := cmp.Diff(want, shape); diff != "" {
		t.Errorf("ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitHoistsIndexArithmetic(t *testing.T) {
	got := lower(t, "x[i + 1] = 2;")
	want := []ir.Stmt{
		&ir.ArithAssign{Dst: ident("__t0"), Expr: &ir.Binary{Op: ir.OpAdd, Left: varOf(ident("i")), Right: num(1)}},
		&ir.ArithAssign{Dst: &ir.ListAccess{Base: ident("x"), Index: varOf(ident("__t0"))}, Expr: num(2)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestComparisonValueBecomesConditional(t *testing.T) {
	got := lower(t, "b = a < 3;")
	want := []ir.Stmt{&ir.IfElse{
		Cond: &ir.Comparison{Op: ir.CmpLt, Left: strs(varOf(ident("a"))), Right: strs(str("3"))},
		Then: []ir.Stmt{&ir.ArithAssign{Dst: ident("b"), Expr: num(1)}},
		Else: []ir.Stmt{&ir.ArithAssign{Dst: ident("b"), Expr: num(0)}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		noSplit bool
		kind    ErrorKind
		scope   string
	}{
		{name: "float in string position", src: `s = "a" + 1.5;`, kind: ErrUnsupported, scope: "global"},
		{name: "captured call output", src: "x = f(); func f() { return 1; }", kind: ErrUnimplemented, scope: "global"},
		{name: "return value at top level", src: "return 1;", kind: ErrUnsupported, scope: "global"},
		{name: "comparison as arithmetic", src: "x = 1 + (a < b);", noSplit: true, kind: ErrUnsupported, scope: "global"},
		{name: "arithmetic index without split", src: "x[i + 1] = 1;", noSplit: true, kind: ErrUnsupported, scope: "global"},
		{name: "arithmetic index in function", src: "func f(i) { x[i + 1] = 1; }", kind: ErrUnsupported, scope: "f"},
		{name: "float inside function", src: `func g() { s = 2.5 + "a"; }`, kind: ErrUnsupported, scope: "g"},
		{name: "arithmetic condition without split", src: "if (a + 1) b();", noSplit: true, kind: ErrUnsupported, scope: "global"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			if tt.noSplit {
				cfg.SetFeature(config.FeatSplit, false)
			}
			_, err := lowerWith(t, tt.src, cfg)
			var cgErr *Error
			if !errors.As(err, &cgErr) {
				t.Fatalf("lower(%q) error = %v, want *codegen.Error", tt.src, err)
			}
			if cgErr.Kind != tt.kind {
				t.Errorf("kind = %s, want %s (%s)", cgErr.Kind, tt.kind, cgErr.Msg)
			}
			if cgErr.Scope != tt.scope {
				t.Errorf("scope = %q, want %q", cgErr.Scope, tt.scope)
			}
		})
	}
}

func TestErrorMessageNamesKindAndScope(t *testing.T) {
	err := &Error{Kind: ErrUnimplemented, Scope: "f", Msg: "nope"}
	if got, want := err.Message(), "unimplemented: nope (in f scope)"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestRootMustBeBlock(t *testing.T) {
	table, err := symtab.Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewContext(config.NewConfig(), table).GenerateIR(&ast.Node{Type: ast.Number, Data: ast.NumberNode{Value: 1}})
	var cgErr *Error
	if !errors.As(err, &cgErr) || cgErr.Kind != ErrInternal {
		t.Errorf("GenerateIR(non-block) error = %v, want internal error", err)
	}
}
