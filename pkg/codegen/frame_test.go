package codegen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/ir"
	"github.com/xplshn/gbat/pkg/token"
)

func TestRewriteFrame(t *testing.T) {
	input := func() []ir.Stmt {
		return []ir.Stmt{
			&ir.Comment{Text: "keep"},
			&ir.Label{Name: "__L0"},
			&ir.StrAssign{
				Dst:   &ir.ListAccess{Base: ident("x"), Index: varOf(ident("i"))},
				Value: strs(varOf(ident("y")), str("z")),
			},
			&ir.ArithAssign{Dst: slot(1), Expr: &ir.Unary{Op: ir.OpNeg, Expr: varOf(ident("n"))}},
			&ir.If{
				Cond: &ir.Comparison{Op: ir.CmpEq, Left: strs(varOf(ident("n"))), Right: strs(str("1"))},
				Body: []ir.Stmt{&ir.Call{Callee: str("echo"), Args: []ir.Varstrings{strs(varOf(ident("n")))}}},
			},
			&ir.Jump{Target: "__L0"},
		}
	}
	in := input()
	want := []ir.Stmt{
		&ir.Comment{Text: "keep"},
		&ir.Label{Name: "__L0"},
		&ir.StrAssign{
			Dst:   &ir.ListAccess{Base: framed("x"), Index: varOf(ident("i"))},
			Value: strs(varOf(framed("y")), str("z")),
		},
		&ir.ArithAssign{Dst: slot(1), Expr: &ir.Unary{Op: ir.OpNeg, Expr: varOf(framed("n"))}},
		&ir.If{
			Cond: &ir.Comparison{Op: ir.CmpEq, Left: strs(varOf(framed("n"))), Right: strs(str("1"))},
			Body: []ir.Stmt{&ir.Call{Callee: str("echo"), Args: []ir.Varstrings{strs(varOf(framed("n")))}}},
		},
		&ir.Jump{Target: "__L0"},
	}
	got := rewriteFrame(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rewriteFrame mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(input(), in); diff != "" {
		t.Errorf("rewriteFrame modified its input (-want +got):\n%s", diff)
	}
}

func TestRewriteFrameIfElse(t *testing.T) {
	in := []ir.Stmt{&ir.IfElse{
		Cond: &ir.Comparison{Op: ir.CmpLt, Left: strs(varOf(ident("a"))), Right: strs(str("2"))},
		Then: []ir.Stmt{&ir.ArithAssign{Dst: ident("a"), Expr: num(1)}},
		Else: []ir.Stmt{&ir.ArithAssign{Dst: ident("a"), Expr: &ir.Binary{Op: ir.OpShl, Left: varOf(ident("a")), Right: num(1)}}},
	}}
	want := []ir.Stmt{&ir.IfElse{
		Cond: &ir.Comparison{Op: ir.CmpLt, Left: strs(varOf(framed("a"))), Right: strs(str("2"))},
		Then: []ir.Stmt{&ir.ArithAssign{Dst: framed("a"), Expr: num(1)}},
		Else: []ir.Stmt{&ir.ArithAssign{Dst: framed("a"), Expr: &ir.Binary{Op: ir.OpShl, Left: varOf(framed("a")), Right: num(1)}}},
	}}
	if diff := cmp.Diff(want, rewriteFrame(in)); diff != "" {
		t.Errorf("rewriteFrame mismatch (-want +got):\n%s", diff)
	}
}

func TestRewriteFrameNil(t *testing.T) {
	if got := rewriteFrame(nil); got != nil {
		t.Errorf("rewriteFrame(nil) = %v, want nil", got)
	}
}

type foreignStmt struct{ ir.Stmt }

func TestRewriteFramePanicsOnUnknownStatement(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("rewriteFrame accepted an unknown statement")
		}
	}()
	rewriteFrame([]ir.Stmt{foreignStmt{}})
}

func TestAssembleFunc(t *testing.T) {
	decl := ast.FuncDeclNode{
		Name:   "sum",
		Params: []*ast.Node{ast.NewIdent(token.Token{}, "a"), ast.NewIdent(token.Token{}, "b")},
	}
	body := []ir.Stmt{&ir.ArithAssign{Dst: slot(1), Expr: &ir.Binary{Op: ir.OpAdd, Left: varOf(framed("a")), Right: varOf(framed("b"))}}}

	want := []ir.Stmt{
		&ir.Jump{Target: "sum__end"},
		&ir.Label{Name: "sum"},
		&ir.StrAssign{Dst: framed("a"), Value: strs(varOf(slot(3)))},
		&ir.StrAssign{Dst: framed("b"), Value: strs(varOf(slot(4)))},
		body[0],
		&ir.Jump{Target: "eof"},
		&ir.Label{Name: "sum__end"},
	}
	if diff := cmp.Diff(want, assembleFunc(decl, body)); diff != "" {
		t.Errorf("assembleFunc mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleFuncEndingInReturn(t *testing.T) {
	decl := ast.FuncDeclNode{Name: "f"}
	tests := []struct {
		name string
		body []ir.Stmt
		want []ir.Stmt
	}{
		{
			"return is not doubled",
			[]ir.Stmt{&ir.StrAssign{Dst: slot(1), Value: strs(str("1"))}, &ir.Jump{Target: EndOfFile}},
			[]ir.Stmt{
				&ir.Jump{Target: "f__end"}, &ir.Label{Name: "f"},
				&ir.StrAssign{Dst: slot(1), Value: strs(str("1"))}, &ir.Jump{Target: EndOfFile},
				&ir.Label{Name: "f__end"},
			},
		},
		{
			"jump to a loop label still falls out",
			[]ir.Stmt{&ir.Jump{Target: "__L0"}},
			[]ir.Stmt{
				&ir.Jump{Target: "f__end"}, &ir.Label{Name: "f"},
				&ir.Jump{Target: "__L0"}, &ir.Jump{Target: EndOfFile},
				&ir.Label{Name: "f__end"},
			},
		},
		{
			"empty body",
			nil,
			[]ir.Stmt{&ir.Jump{Target: "f__end"}, &ir.Label{Name: "f"}, &ir.Jump{Target: EndOfFile}, &ir.Label{Name: "f__end"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, assembleFunc(decl, tt.body)); diff != "" {
				t.Errorf("assembleFunc mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
