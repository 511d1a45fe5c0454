package codegen

import (
	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/config"
	"github.com/xplshn/gbat/pkg/ir"
	"github.com/xplshn/gbat/pkg/util"
)

func (ctx *Context) lowerStmts(stmts []*ast.Node) ([]ir.Stmt, error) {
	var out []ir.Stmt
	returned := false
	for _, stmt := range stmts {
		if returned && stmt.Type != ast.Comment && stmt.Type != ast.Empty {
			util.Warn(ctx.cfg, config.WarnUnreachableCode, stmt.Tok, "Unreachable code")
			returned = false
		}
		lowered, err := ctx.lowerStmt(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered...)
		if stmt.Type == ast.Return {
			returned = true
		}
	}
	return out, nil
}

func (ctx *Context) lowerStmt(node *ast.Node) ([]ir.Stmt, error) {
	if node == nil {
		return nil, nil
	}
	switch d := node.Data.(type) {
	case ast.CommentNode:
		return []ir.Stmt{&ir.Comment{Text: d.Text}}, nil
	case ast.BlockNode:
		return ctx.lowerStmts(d.Stmts)
	case ast.FuncCallNode:
		return ctx.lowerCall(node)
	case ast.AssignNode:
		dst, err := ctx.lowerLeftvalue(d.Lhs)
		if err != nil {
			return nil, err
		}
		return ctx.lowerAssign(dst, d.Rhs)
	case ast.IfNode:
		return ctx.lowerIf(node)
	case ast.WhileNode:
		return ctx.lowerWhile(node)
	case ast.ReturnNode:
		return ctx.lowerReturn(node)
	case ast.GlobalDeclNode:
		if ctx.funcName != "" {
			util.Warn(ctx.cfg, config.WarnFrameGlobal, node.Tok, "'global' inside '%s' does not bypass its frame", ctx.funcName)
		}
		return nil, nil
	case ast.EmptyNode:
		util.Warn(ctx.cfg, config.WarnPedantic, node.Tok, "Empty statement")
		return nil, nil
	}
	return nil, ctx.errorf(ErrInternal, node.Tok, "%s has no effect as a statement", node.Type)
}

// lowerAssign dispatches on the shape of rhs: string-like values become a
// string assignment, numbers and arithmetic an arithmetic assignment, and
// a list one assignment per element at its position.
func (ctx *Context) lowerAssign(dst ir.Leftvalue, rhs *ast.Node) ([]ir.Stmt, error) {
	switch rhs.Type {
	case ast.String, ast.StrCompare, ast.Concat, ast.FuncCall, ast.Ident, ast.Subscript:
		value, err := ctx.lowerVarstrings(rhs)
		if err != nil {
			return nil, err
		}
		return []ir.Stmt{&ir.StrAssign{Dst: dst, Value: value}}, nil
	case ast.Bool, ast.Number, ast.FloatNumber, ast.UnaryOp, ast.BinaryOp:
		expr, err := ctx.lowerArithmetic(rhs)
		if err != nil {
			return nil, err
		}
		return []ir.Stmt{&ir.ArithAssign{Dst: dst, Expr: expr}}, nil
	case ast.List:
		var out []ir.Stmt
		for i, elem := range rhs.Data.(ast.ListNode).Elems {
			elemDst := &ir.ListAccess{Base: dst, Index: &ir.IntLit{Value: int64(i)}}
			stmts, err := ctx.lowerAssign(elemDst, elem)
			if err != nil {
				return nil, err
			}
			out = append(out, stmts...)
		}
		return out, nil
	}
	return nil, ctx.errorf(ErrInternal, rhs.Tok, "%s cannot be assigned", rhs.Type)
}

// lowerCall emits a call statement. Declared functions are called by
// label with the return register and frame id ahead of the arguments;
// any other name runs as an external command.
func (ctx *Context) lowerCall(node *ast.Node) ([]ir.Stmt, error) {
	d := node.Data.(ast.FuncCallNode)
	if d.FuncExpr.Type != ast.Ident {
		return nil, ctx.errorf(ErrInternal, node.Tok, "callee must be a name, got %s", d.FuncExpr.Type)
	}
	name := d.FuncExpr.Data.(ast.IdentNode).Name

	var args []ir.Varstrings
	internal := ctx.table.IsFunction(name)
	if internal {
		args = append(args,
			ir.Varstrings{&ir.StrLit{Value: ReturnRegister}},
			ir.Varstrings{&ir.StrLit{Value: FramePlaceholder}},
		)
	}
	for _, arg := range d.Args {
		value, err := ctx.lowerVarstrings(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}

	if !internal {
		util.Warn(ctx.cfg, config.WarnExternCall, node.Tok, "'%s' is not a declared function and runs as a command", name)
		return []ir.Stmt{&ir.Call{Callee: &ir.StrLit{Value: name}, Args: args}}, nil
	}
	if name == ctx.funcName {
		util.Warn(ctx.cfg, config.WarnRecursion, node.Tok, "Recursive call to '%s' shares its locals with the caller", name)
	}
	return []ir.Stmt{&ir.Call{Callee: &ir.StrLit{Value: ":" + name}, Args: args}}, nil
}

func (ctx *Context) lowerIf(node *ast.Node) ([]ir.Stmt, error) {
	d := node.Data.(ast.IfNode)
	cond, err := ctx.lowerComparison(d.Cond)
	if err != nil {
		return nil, err
	}
	then, err := ctx.lowerStmt(d.ThenBody)
	if err != nil {
		return nil, err
	}
	if d.ElseBody == nil {
		return []ir.Stmt{&ir.If{Cond: cond, Body: then}}, nil
	}
	els, err := ctx.lowerStmt(d.ElseBody)
	if err != nil {
		return nil, err
	}
	return []ir.Stmt{&ir.IfElse{Cond: cond, Then: then, Else: els}}, nil
}

// lowerWhile emits a label followed by one conditional whose body ends by
// jumping back to the label. Control reaches the label by falling through,
// so the condition is tested before the first iteration.
func (ctx *Context) lowerWhile(node *ast.Node) ([]ir.Stmt, error) {
	d := node.Data.(ast.WhileNode)
	label := ctx.newLabel()
	cond, err := ctx.lowerComparison(d.Cond)
	if err != nil {
		return nil, err
	}
	body, err := ctx.lowerStmt(d.Body)
	if err != nil {
		return nil, err
	}
	body = append(body, &ir.Jump{Target: label})
	return []ir.Stmt{&ir.Label{Name: label}, &ir.If{Cond: cond, Body: body}}, nil
}

// lowerReturn stores the value, if any, through the return slot and leaves
// the function.
func (ctx *Context) lowerReturn(node *ast.Node) ([]ir.Stmt, error) {
	d := node.Data.(ast.ReturnNode)
	var out []ir.Stmt
	if d.Expr != nil {
		if ctx.funcName == "" {
			return nil, ctx.errorf(ErrUnsupported, node.Tok, "return with a value outside a function")
		}
		stmts, err := ctx.lowerAssign(&ir.Slot{Index: slotReturn}, d.Expr)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return append(out, &ir.Jump{Target: EndOfFile}), nil
}
