package codegen

import (
	"strconv"

	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/ir"
	"github.com/xplshn/gbat/pkg/token"
)

// Each expression is lowered to one of four forms, chosen by where it
// appears: Varint for list indices, Arithmetic for numeric assignment,
// Varstrings for string assignment and call arguments, Comparison for
// conditions. A shape that does not fit its position is an error.

var arithOps = map[token.Type]ir.Op{
	token.Plus: ir.OpAdd, token.Minus: ir.OpSub, token.Star: ir.OpMul,
	token.Slash: ir.OpDiv, token.Rem: ir.OpRem, token.And: ir.OpAnd,
	token.Or: ir.OpOr, token.Xor: ir.OpXor, token.Shl: ir.OpShl, token.Shr: ir.OpShr,
}

var unaryOps = map[token.Type]ir.Op{
	token.Minus: ir.OpNeg, token.Not: ir.OpNot, token.Complement: ir.OpCompl,
}

var cmpOps = map[token.Type]ir.CmpOp{
	token.EqEq: ir.CmpEq, token.Neq: ir.CmpNeq, token.Lt: ir.CmpLt,
	token.Lte: ir.CmpLe, token.Gt: ir.CmpGt, token.Gte: ir.CmpGe,
}

func (ctx *Context) lowerLeftvalue(node *ast.Node) (ir.Leftvalue, error) {
	switch d := node.Data.(type) {
	case ast.IdentNode:
		return &ir.Ident{Name: d.Name}, nil
	case ast.SubscriptNode:
		base, err := ctx.lowerLeftvalue(d.Array)
		if err != nil {
			return nil, err
		}
		index, err := ctx.lowerVarint(d.Index)
		if err != nil {
			return nil, err
		}
		return &ir.ListAccess{Base: base, Index: index}, nil
	}
	return nil, ctx.errorf(ErrInternal, node.Tok, "%s is not an assignable location", node.Type)
}

func (ctx *Context) lowerVarint(node *ast.Node) (ir.Varint, error) {
	switch d := node.Data.(type) {
	case ast.IdentNode, ast.SubscriptNode:
		lv, err := ctx.lowerLeftvalue(node)
		if err != nil {
			return nil, err
		}
		return &ir.Var{Ref: lv}, nil
	case ast.NumberNode:
		return &ir.IntLit{Value: d.Value}, nil
	}
	return nil, ctx.errorf(ErrUnsupported, node.Tok, "index must be a variable or integer literal, got %s", node.Type)
}

func (ctx *Context) lowerArithmetic(node *ast.Node) (ir.Arithmetic, error) {
	switch d := node.Data.(type) {
	case ast.BoolNode:
		return &ir.IntLit{Value: boolInt(d.Value)}, nil
	case ast.NumberNode:
		return &ir.IntLit{Value: d.Value}, nil
	case ast.IdentNode, ast.SubscriptNode:
		lv, err := ctx.lowerLeftvalue(node)
		if err != nil {
			return nil, err
		}
		return &ir.Var{Ref: lv}, nil
	case ast.UnaryOpNode:
		expr, err := ctx.lowerArithmetic(d.Expr)
		if err != nil {
			return nil, err
		}
		if d.Op == token.Plus {
			return expr, nil
		}
		op, ok := unaryOps[d.Op]
		if !ok {
			return nil, ctx.errorf(ErrInternal, node.Tok, "unknown unary operator %s", d.Op)
		}
		return &ir.Unary{Op: op, Expr: expr}, nil
	case ast.BinaryOpNode:
		op, ok := arithOps[d.Op]
		if !ok {
			return nil, ctx.errorf(ErrUnsupported, node.Tok, "comparison '%s' is not an arithmetic value", d.Op)
		}
		left, err := ctx.lowerArithmetic(d.Left)
		if err != nil {
			return nil, err
		}
		right, err := ctx.lowerArithmetic(d.Right)
		if err != nil {
			return nil, err
		}
		return &ir.Binary{Op: op, Left: left, Right: right}, nil
	}
	return nil, ctx.errorf(ErrUnsupported, node.Tok, "%s is not an arithmetic value", node.Type)
}

func (ctx *Context) lowerVarstrings(node *ast.Node) (ir.Varstrings, error) {
	switch d := node.Data.(type) {
	case ast.BoolNode:
		return ir.Varstrings{&ir.StrLit{Value: strconv.FormatInt(boolInt(d.Value), 10)}}, nil
	case ast.NumberNode:
		return ir.Varstrings{&ir.StrLit{Value: strconv.FormatInt(d.Value, 10)}}, nil
	case ast.StringNode:
		return ir.Varstrings{&ir.StrLit{Value: d.Value}}, nil
	case ast.IdentNode, ast.SubscriptNode:
		lv, err := ctx.lowerLeftvalue(node)
		if err != nil {
			return nil, err
		}
		return ir.Varstrings{&ir.Var{Ref: lv}}, nil
	case ast.ConcatNode:
		left, err := ctx.lowerVarstrings(d.Left)
		if err != nil {
			return nil, err
		}
		right, err := ctx.lowerVarstrings(d.Right)
		if err != nil {
			return nil, err
		}
		out := make(ir.Varstrings, 0, len(left)+len(right))
		return append(append(out, left...), right...), nil
	case ast.FuncCallNode:
		return nil, ctx.errorf(ErrUnimplemented, node.Tok, "capturing the output of a call as a string is not supported")
	case ast.FloatNumberNode:
		return nil, ctx.errorf(ErrUnsupported, node.Tok, "floating-point values are not supported")
	}
	return nil, ctx.errorf(ErrInternal, node.Tok, "%s cannot appear in string position", node.Type)
}

func (ctx *Context) lowerComparison(node *ast.Node) (*ir.Comparison, error) {
	switch d := node.Data.(type) {
	case ast.StrCompareNode:
		return ctx.compare(node, d.Op, d.Left, d.Right)
	case ast.BinaryOpNode:
		if ast.IsRelational(d.Op) {
			return ctx.compare(node, d.Op, d.Left, d.Right)
		}
	case ast.IdentNode, ast.SubscriptNode:
		lv, err := ctx.lowerLeftvalue(node)
		if err != nil {
			return nil, err
		}
		return &ir.Comparison{Op: ir.CmpEq, Left: ir.Varstrings{&ir.Var{Ref: lv}}, Right: ir.Varstrings{&ir.StrLit{Value: "1"}}}, nil
	case ast.BoolNode:
		return constCondition(d.Value), nil
	case ast.NumberNode:
		return constCondition(d.Value == 1), nil
	}
	return nil, ctx.errorf(ErrUnsupported, node.Tok, "%s cannot be used as a condition", node.Type)
}

func (ctx *Context) compare(node *ast.Node, op token.Type, l, r *ast.Node) (*ir.Comparison, error) {
	cmp, ok := cmpOps[op]
	if !ok {
		return nil, ctx.errorf(ErrInternal, node.Tok, "unknown comparison operator %s", op)
	}
	left, err := ctx.lowerVarstrings(l)
	if err != nil {
		return nil, err
	}
	right, err := ctx.lowerVarstrings(r)
	if err != nil {
		return nil, err
	}
	return &ir.Comparison{Op: cmp, Left: left, Right: right}, nil
}

func constCondition(truth bool) *ir.Comparison {
	lhs := "0"
	if truth {
		lhs = "1"
	}
	return &ir.Comparison{Op: ir.CmpEq, Left: ir.Varstrings{&ir.StrLit{Value: lhs}}, Right: ir.Varstrings{&ir.StrLit{Value: "1"}}}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
