package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented outline of node to w, one node per line.
func Fprint(w io.Writer, node *Node) {
	fprint(w, node, 0)
}

func fprint(w io.Writer, node *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if node == nil {
		fmt.Fprintf(w, "%s<nil>\n", indent)
		return
	}

	var detail string
	switch d := node.Data.(type) {
	case BoolNode:
		detail = strconv.FormatBool(d.Value)
	case NumberNode:
		detail = strconv.FormatInt(d.Value, 10)
	case FloatNumberNode:
		detail = strconv.FormatFloat(d.Value, 'g', -1, 64)
	case StringNode:
		detail = strconv.Quote(d.Value)
	case IdentNode:
		detail = d.Name
	case UnaryOpNode:
		detail = d.Op.String()
	case BinaryOpNode:
		detail = d.Op.String()
	case StrCompareNode:
		detail = d.Op.String()
	case CommentNode:
		detail = strconv.Quote(d.Text)
	case FuncDeclNode:
		detail = d.Name
	}
	if detail != "" {
		fmt.Fprintf(w, "%s%s %s\n", indent, node.Type, detail)
	} else {
		fmt.Fprintf(w, "%s%s\n", indent, node.Type)
	}

	switch d := node.Data.(type) {
	case ListNode:
		for _, e := range d.Elems {
			fprint(w, e, depth+1)
		}
	case SubscriptNode:
		fprint(w, d.Array, depth+1)
		fprint(w, d.Index, depth+1)
	case UnaryOpNode:
		fprint(w, d.Expr, depth+1)
	case BinaryOpNode:
		fprint(w, d.Left, depth+1)
		fprint(w, d.Right, depth+1)
	case ConcatNode:
		fprint(w, d.Left, depth+1)
		fprint(w, d.Right, depth+1)
	case StrCompareNode:
		fprint(w, d.Left, depth+1)
		fprint(w, d.Right, depth+1)
	case FuncCallNode:
		fprint(w, d.FuncExpr, depth+1)
		for _, a := range d.Args {
			fprint(w, a, depth+1)
		}
	case BlockNode:
		for _, s := range d.Stmts {
			fprint(w, s, depth+1)
		}
	case AssignNode:
		fprint(w, d.Lhs, depth+1)
		fprint(w, d.Rhs, depth+1)
	case IfNode:
		fprint(w, d.Cond, depth+1)
		fprint(w, d.ThenBody, depth+1)
		if d.ElseBody != nil {
			fprint(w, d.ElseBody, depth+1)
		}
	case WhileNode:
		fprint(w, d.Cond, depth+1)
		fprint(w, d.Body, depth+1)
	case ReturnNode:
		if d.Expr != nil {
			fprint(w, d.Expr, depth+1)
		}
	case GlobalDeclNode:
		for _, n := range d.Names {
			fprint(w, n, depth+1)
		}
	case FuncDeclNode:
		for _, p := range d.Params {
			fprint(w, p, depth+1)
		}
		fprint(w, d.Body, depth+1)
	}
}
