package codegen

import (
	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/ir"
)

// rewriteFrame moves every variable of a lowered function body into the
// call's frame: each identifier x becomes x[frame], where frame is the
// second call argument. Only the base of a list access is rewritten; its
// index keeps naming the variable it named before. The input is left
// untouched. Applying the rewrite twice nests the frame index twice, so
// it runs exactly once per body, between lowerBody and assembleFunc.
func rewriteFrame(stmts []ir.Stmt) []ir.Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]ir.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = frameStmt(s)
	}
	return out
}

func frameStmt(s ir.Stmt) ir.Stmt {
	switch s := s.(type) {
	case *ir.Raw, *ir.Comment, *ir.Label, *ir.Jump:
		return s
	case *ir.StrAssign:
		return &ir.StrAssign{Dst: frameLeftvalue(s.Dst), Value: frameVarstrings(s.Value)}
	case *ir.ArithAssign:
		return &ir.ArithAssign{Dst: frameLeftvalue(s.Dst), Expr: frameArithmetic(s.Expr)}
	case *ir.Call:
		args := make([]ir.Varstrings, len(s.Args))
		for i, a := range s.Args {
			args[i] = frameVarstrings(a)
		}
		return &ir.Call{Callee: frameVarstring(s.Callee), Args: args}
	case *ir.If:
		return &ir.If{Cond: frameComparison(s.Cond), Body: rewriteFrame(s.Body)}
	case *ir.IfElse:
		return &ir.IfElse{Cond: frameComparison(s.Cond), Then: rewriteFrame(s.Then), Else: rewriteFrame(s.Else)}
	}
	panic("codegen: unhandled statement in frame rewrite")
}

func frameIndex() ir.Varint { return &ir.Var{Ref: &ir.Slot{Index: slotFrame}} }

func frameLeftvalue(lv ir.Leftvalue) ir.Leftvalue {
	switch lv := lv.(type) {
	case *ir.Ident:
		return &ir.ListAccess{Base: &ir.Ident{Name: lv.Name}, Index: frameIndex()}
	case *ir.ListAccess:
		return &ir.ListAccess{Base: frameLeftvalue(lv.Base), Index: lv.Index}
	case *ir.Slot:
		return lv
	}
	panic("codegen: unhandled leftvalue in frame rewrite")
}

func frameArithmetic(a ir.Arithmetic) ir.Arithmetic {
	switch a := a.(type) {
	case *ir.IntLit:
		return a
	case *ir.Var:
		return &ir.Var{Ref: frameLeftvalue(a.Ref)}
	case *ir.Unary:
		return &ir.Unary{Op: a.Op, Expr: frameArithmetic(a.Expr)}
	case *ir.Binary:
		return &ir.Binary{Op: a.Op, Left: frameArithmetic(a.Left), Right: frameArithmetic(a.Right)}
	}
	panic("codegen: unhandled arithmetic in frame rewrite")
}

func frameVarstring(v ir.Varstring) ir.Varstring {
	switch v := v.(type) {
	case *ir.StrLit:
		return v
	case *ir.Var:
		return &ir.Var{Ref: frameLeftvalue(v.Ref)}
	}
	panic("codegen: unhandled string fragment in frame rewrite")
}

func frameVarstrings(vs ir.Varstrings) ir.Varstrings {
	out := make(ir.Varstrings, len(vs))
	for i, v := range vs {
		out[i] = frameVarstring(v)
	}
	return out
}

func frameComparison(c *ir.Comparison) *ir.Comparison {
	return &ir.Comparison{Op: c.Op, Left: frameVarstrings(c.Left), Right: frameVarstrings(c.Right)}
}

// assembleFunc wraps a frame-rewritten body as a callable label:
//
//	goto :name__end
//	:name
//	set "p[%~2]=%~3"   (one per parameter)
//	body
//	goto :eof          (unless body already ends with it)
//	:name__end
func assembleFunc(decl ast.FuncDeclNode, body []ir.Stmt) []ir.Stmt {
	end := decl.Name + endSuffix
	out := make([]ir.Stmt, 0, len(body)+len(decl.Params)+4)
	out = append(out, &ir.Jump{Target: end}, &ir.Label{Name: decl.Name})
	for i, param := range decl.Params {
		name := param.Data.(ast.IdentNode).Name
		out = append(out, &ir.StrAssign{
			Dst:   &ir.ListAccess{Base: &ir.Ident{Name: name}, Index: frameIndex()},
			Value: ir.Varstrings{&ir.Var{Ref: &ir.Slot{Index: slotArgs + i}}},
		})
	}
	out = append(out, body...)
	if !endsWithReturn(body) {
		out = append(out, &ir.Jump{Target: EndOfFile})
	}
	return append(out, &ir.Label{Name: end})
}

func endsWithReturn(body []ir.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	j, ok := body[len(body)-1].(*ir.Jump)
	return ok && j.Target == EndOfFile
}
