// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
// of gb programs. Nodes are never mutated after construction; passes that
// transform the tree build new nodes and share unchanged subtrees.
package ast

import (
	"github.com/xplshn/gbat/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Bool NodeType = iota
	Number
	FloatNumber
	String
	List
	Ident
	Subscript
	UnaryOp
	BinaryOp
	Concat
	StrCompare
	FuncCall

	// Statements
	Comment
	Block
	Assign
	If
	While
	Return
	GlobalDecl
	Empty

	// Top level
	FuncDecl
)

var nodeTypeNames = [...]string{
	Bool: "Bool", Number: "Number", FloatNumber: "FloatNumber", String: "String", List: "List",
	Ident: "Ident", Subscript: "Subscript", UnaryOp: "UnaryOp", BinaryOp: "BinaryOp",
	Concat: "Concat", StrCompare: "StrCompare", FuncCall: "FuncCall",
	Comment: "Comment", Block: "Block", Assign: "Assign", If: "If", While: "While",
	Return: "Return", GlobalDecl: "GlobalDecl", Empty: "Empty", FuncDecl: "FuncDecl",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "Unknown"
}

// Node represents a node in the Abstract Syntax Tree
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
}

// --- Node Data Structs ---
type BoolNode struct{ Value bool }
type NumberNode struct{ Value int64 }
type FloatNumberNode struct{ Value float64 }
type StringNode struct{ Value string }
type ListNode struct{ Elems []*Node }
type IdentNode struct{ Name string }
type SubscriptNode struct{ Array, Index *Node }
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type ConcatNode struct{ Left, Right *Node }
type StrCompareNode struct {
	Op          token.Type
	Left, Right *Node
}
type FuncCallNode struct {
	FuncExpr *Node
	Args     []*Node
}
type CommentNode struct{ Text string }
type BlockNode struct {
	Stmts       []*Node
	IsSynthetic bool
}
type AssignNode struct{ Lhs, Rhs *Node }
type IfNode struct{ Cond, ThenBody, ElseBody *Node }
type WhileNode struct{ Cond, Body *Node }
type ReturnNode struct{ Expr *Node }
type GlobalDeclNode struct{ Names []*Node }
type EmptyNode struct{}
type FuncDeclNode struct {
	Name   string
	Params []*Node
	Body   *Node
}

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewBool(tok token.Token, value bool) *Node {
	return newNode(tok, Bool, BoolNode{Value: value})
}
func NewNumber(tok token.Token, value int64) *Node {
	return newNode(tok, Number, NumberNode{Value: value})
}
func NewFloatNumber(tok token.Token, value float64) *Node {
	return newNode(tok, FloatNumber, FloatNumberNode{Value: value})
}
func NewString(tok token.Token, value string) *Node {
	return newNode(tok, String, StringNode{Value: value})
}
func NewList(tok token.Token, elems []*Node) *Node {
	return newNode(tok, List, ListNode{Elems: elems})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}
func NewSubscript(tok token.Token, array, index *Node) *Node {
	return newNode(tok, Subscript, SubscriptNode{Array: array, Index: index})
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewConcat(tok token.Token, left, right *Node) *Node {
	return newNode(tok, Concat, ConcatNode{Left: left, Right: right})
}
func NewStrCompare(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, StrCompare, StrCompareNode{Op: op, Left: left, Right: right})
}
func NewFuncCall(tok token.Token, funcExpr *Node, args []*Node) *Node {
	return newNode(tok, FuncCall, FuncCallNode{FuncExpr: funcExpr, Args: args})
}
func NewComment(tok token.Token, text string) *Node {
	return newNode(tok, Comment, CommentNode{Text: text})
}
func NewBlock(tok token.Token, stmts []*Node, isSynthetic bool) *Node {
	return newNode(tok, Block, BlockNode{Stmts: stmts, IsSynthetic: isSynthetic})
}
func NewAssign(tok token.Token, lhs, rhs *Node) *Node {
	return newNode(tok, Assign, AssignNode{Lhs: lhs, Rhs: rhs})
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody})
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body})
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr})
}
func NewGlobalDecl(tok token.Token, names []*Node) *Node {
	return newNode(tok, GlobalDecl, GlobalDeclNode{Names: names})
}
func NewEmpty(tok token.Token) *Node {
	return newNode(tok, Empty, EmptyNode{})
}
func NewFuncDecl(tok token.Token, name string, params []*Node, body *Node) *Node {
	return newNode(tok, FuncDecl, FuncDeclNode{Name: name, Params: params, Body: body})
}

// IsLValue reports whether node names an assignable location: an identifier
// or a subscript chain rooted at one.
func IsLValue(node *Node) bool {
	if node == nil {
		return false
	}
	switch node.Type {
	case Ident:
		return true
	case Subscript:
		return IsLValue(node.Data.(SubscriptNode).Array)
	default:
		return false
	}
}

// IsStringy reports whether node is statically known to produce a string.
// The parser uses it to tell concatenation from addition.
func IsStringy(node *Node) bool {
	return node != nil && (node.Type == String || node.Type == Concat)
}

// IsRelational reports whether op is a comparison operator.
func IsRelational(op token.Type) bool {
	switch op {
	case token.EqEq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte:
		return true
	}
	return false
}

// Walk visits node and all of its descendants in source order.
func Walk(node *Node, visitor func(n *Node)) {
	if node == nil {
		return
	}
	visitor(node)

	switch d := node.Data.(type) {
	case ListNode:
		for _, e := range d.Elems {
			Walk(e, visitor)
		}
	case SubscriptNode:
		Walk(d.Array, visitor)
		Walk(d.Index, visitor)
	case UnaryOpNode:
		Walk(d.Expr, visitor)
	case BinaryOpNode:
		Walk(d.Left, visitor)
		Walk(d.Right, visitor)
	case ConcatNode:
		Walk(d.Left, visitor)
		Walk(d.Right, visitor)
	case StrCompareNode:
		Walk(d.Left, visitor)
		Walk(d.Right, visitor)
	case FuncCallNode:
		Walk(d.FuncExpr, visitor)
		for _, arg := range d.Args {
			Walk(arg, visitor)
		}
	case BlockNode:
		for _, s := range d.Stmts {
			Walk(s, visitor)
		}
	case AssignNode:
		Walk(d.Lhs, visitor)
		Walk(d.Rhs, visitor)
	case IfNode:
		Walk(d.Cond, visitor)
		Walk(d.ThenBody, visitor)
		Walk(d.ElseBody, visitor)
	case WhileNode:
		Walk(d.Cond, visitor)
		Walk(d.Body, visitor)
	case ReturnNode:
		Walk(d.Expr, visitor)
	case GlobalDeclNode:
		for _, n := range d.Names {
			Walk(n, visitor)
		}
	case FuncDeclNode:
		for _, p := range d.Params {
			Walk(p, visitor)
		}
		Walk(d.Body, visitor)
	}
}
