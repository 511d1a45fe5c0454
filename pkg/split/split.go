// Package split normalizes a gb program so that every expression already
// has the shape its position asks for. Nested arithmetic in index and
// string positions, and comparisons used as values, are hoisted into
// temporaries assigned just before the statement that needs them.
//
// The input tree is never modified; unchanged subtrees are shared.
package split

import (
	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/symtab"
	"github.com/xplshn/gbat/pkg/token"
)

// TempPrefix starts the name of every temporary the pass introduces.
const TempPrefix = "__t"

type splitter struct {
	table *symtab.Table
	scope *symtab.Scope
	pre   []*ast.Node
}

// Split returns the normalized form of root, a block of top-level items.
func Split(root *ast.Node, table *symtab.Table) *ast.Node {
	if root == nil || root.Type != ast.Block {
		return root
	}
	s := &splitter{table: table}
	block := root.Data.(ast.BlockNode)
	var items []*ast.Node
	for _, item := range block.Stmts {
		if item.Type == ast.FuncDecl {
			d := item.Data.(ast.FuncDeclNode)
			s.scope = table.FunctionScope(d.Name)
			items = append(items, ast.NewFuncDecl(item.Tok, d.Name, d.Params, s.body(d.Body)))
			continue
		}
		s.scope = table.GlobalScope()
		items = append(items, s.stmt(item)...)
	}
	return ast.NewBlock(root.Tok, items, block.IsSynthetic)
}

func (s *splitter) flush() []*ast.Node {
	pre := s.pre
	s.pre = nil
	return pre
}

// body normalizes a statement that must stay a single node.
func (s *splitter) body(node *ast.Node) *ast.Node {
	if node == nil {
		return nil
	}
	stmts := s.stmt(node)
	if len(stmts) == 1 {
		return stmts[0]
	}
	return ast.NewBlock(node.Tok, stmts, true)
}

func (s *splitter) stmt(node *ast.Node) []*ast.Node {
	switch d := node.Data.(type) {
	case ast.BlockNode:
		var stmts []*ast.Node
		for _, child := range d.Stmts {
			stmts = append(stmts, s.stmt(child)...)
		}
		return []*ast.Node{ast.NewBlock(node.Tok, stmts, d.IsSynthetic)}

	case ast.AssignNode:
		lhs := s.lvalue(d.Lhs)
		if isComparison(d.Rhs) {
			cond := s.cond(d.Rhs)
			return append(s.flush(), boolAssign(node.Tok, cond, lhs))
		}
		rhs := s.value(d.Rhs)
		return append(s.flush(), ast.NewAssign(node.Tok, lhs, rhs))

	case ast.FuncCallNode:
		call := s.call(node)
		return append(s.flush(), call)

	case ast.IfNode:
		cond := s.cond(d.Cond)
		pre := s.flush()
		then := s.body(d.ThenBody)
		els := s.body(d.ElseBody)
		return append(pre, ast.NewIf(node.Tok, cond, then, els))

	case ast.WhileNode:
		cond := s.cond(d.Cond)
		pre := s.flush()
		body := s.stmt(d.Body)
		if len(pre) > 0 {
			// The condition is re-evaluated at the end of every iteration.
			body = append(body, pre...)
		}
		loopBody := ast.NewBlock(d.Body.Tok, body, true)
		if len(body) == 1 {
			loopBody = body[0]
		}
		return append(pre, ast.NewWhile(node.Tok, cond, loopBody))

	case ast.ReturnNode:
		if d.Expr == nil {
			return []*ast.Node{node}
		}
		var expr *ast.Node
		if isComparison(d.Expr) {
			expr = s.hoistCmp(d.Expr)
		} else {
			expr = s.value(d.Expr)
		}
		return append(s.flush(), ast.NewReturn(node.Tok, expr))
	}
	return []*ast.Node{node}
}

// boolAssign lowers 'lhs = cond' to a conditional assignment of 1 or 0.
func boolAssign(tok token.Token, cond, lhs *ast.Node) *ast.Node {
	one := ast.NewBlock(tok, []*ast.Node{ast.NewAssign(tok, lhs, ast.NewNumber(tok, 1))}, true)
	zero := ast.NewBlock(tok, []*ast.Node{ast.NewAssign(tok, lhs, ast.NewNumber(tok, 0))}, true)
	return ast.NewIf(tok, cond, one, zero)
}

func isComparison(node *ast.Node) bool {
	switch node.Type {
	case ast.StrCompare:
		return true
	case ast.BinaryOp:
		return ast.IsRelational(node.Data.(ast.BinaryOpNode).Op)
	}
	return false
}

func isArithmetic(node *ast.Node) bool {
	switch node.Type {
	case ast.UnaryOp, ast.Bool:
		return true
	case ast.BinaryOp:
		return !ast.IsRelational(node.Data.(ast.BinaryOpNode).Op)
	}
	return false
}

func (s *splitter) temp(tok token.Token) *ast.Node {
	return ast.NewIdent(tok, s.scope.Fresh(TempPrefix))
}

func (s *splitter) hoistArith(node *ast.Node) *ast.Node {
	expr := s.arith(node)
	t := s.temp(node.Tok)
	s.pre = append(s.pre, ast.NewAssign(node.Tok, t, expr))
	return t
}

func (s *splitter) hoistCmp(node *ast.Node) *ast.Node {
	cond := s.cond(node)
	t := s.temp(node.Tok)
	s.pre = append(s.pre, boolAssign(node.Tok, cond, t))
	return t
}

func (s *splitter) lvalue(node *ast.Node) *ast.Node {
	if node.Type != ast.Subscript {
		return node
	}
	d := node.Data.(ast.SubscriptNode)
	return ast.NewSubscript(node.Tok, s.lvalue(d.Array), s.index(d.Index))
}

// index hoists computed list indices. Inside a function the index of a
// list access keeps naming a global, so a hoisted temporary living in the
// frame would not be the one read; such indices are left for lowering to
// reject.
func (s *splitter) index(node *ast.Node) *ast.Node {
	if node.Type == ast.Subscript {
		return s.lvalue(node)
	}
	if s.scope != s.table.GlobalScope() {
		return node
	}
	switch {
	case isComparison(node):
		return s.hoistCmp(node)
	case isArithmetic(node):
		return s.hoistArith(node)
	}
	return node
}

// value normalizes the right-hand side of an assignment or return.
func (s *splitter) value(node *ast.Node) *ast.Node {
	switch node.Type {
	case ast.Subscript:
		return s.lvalue(node)
	case ast.Concat:
		return s.str(node)
	case ast.UnaryOp, ast.BinaryOp:
		return s.arith(node)
	case ast.StrCompare:
		return s.hoistCmp(node)
	case ast.FuncCall:
		return s.call(node)
	case ast.List:
		elems := node.Data.(ast.ListNode).Elems
		out := make([]*ast.Node, len(elems))
		for i, e := range elems {
			if isComparison(e) {
				out[i] = s.hoistCmp(e)
			} else {
				out[i] = s.value(e)
			}
		}
		return ast.NewList(node.Tok, out)
	}
	return node
}

func (s *splitter) arith(node *ast.Node) *ast.Node {
	switch d := node.Data.(type) {
	case ast.SubscriptNode:
		return s.lvalue(node)
	case ast.UnaryOpNode:
		return ast.NewUnaryOp(node.Tok, d.Op, s.arith(d.Expr))
	case ast.BinaryOpNode:
		if ast.IsRelational(d.Op) {
			return s.hoistCmp(node)
		}
		return ast.NewBinaryOp(node.Tok, d.Op, s.arith(d.Left), s.arith(d.Right))
	case ast.StrCompareNode:
		return s.hoistCmp(node)
	}
	return node
}

// str normalizes an expression in string position.
func (s *splitter) str(node *ast.Node) *ast.Node {
	switch {
	case node.Type == ast.Subscript:
		return s.lvalue(node)
	case node.Type == ast.Concat:
		d := node.Data.(ast.ConcatNode)
		return ast.NewConcat(node.Tok, s.str(d.Left), s.str(d.Right))
	case node.Type == ast.FuncCall:
		return s.call(node)
	case isComparison(node):
		return s.hoistCmp(node)
	case node.Type == ast.UnaryOp || node.Type == ast.BinaryOp:
		return s.hoistArith(node)
	}
	return node
}

func (s *splitter) cond(node *ast.Node) *ast.Node {
	switch d := node.Data.(type) {
	case ast.StrCompareNode:
		return ast.NewStrCompare(node.Tok, d.Op, s.str(d.Left), s.str(d.Right))
	case ast.BinaryOpNode:
		if ast.IsRelational(d.Op) {
			return ast.NewBinaryOp(node.Tok, d.Op, s.str(d.Left), s.str(d.Right))
		}
	case ast.SubscriptNode:
		return s.lvalue(node)
	}
	if node.Type == ast.UnaryOp || node.Type == ast.BinaryOp {
		// Arithmetic is true when non-zero.
		t := s.hoistArith(node)
		return ast.NewBinaryOp(node.Tok, token.Neq, t, ast.NewNumber(node.Tok, 0))
	}
	return node
}

func (s *splitter) call(node *ast.Node) *ast.Node {
	d := node.Data.(ast.FuncCallNode)
	args := make([]*ast.Node, len(d.Args))
	for i, arg := range d.Args {
		args[i] = s.str(arg)
	}
	return ast.NewFuncCall(node.Tok, d.FuncExpr, args)
}
