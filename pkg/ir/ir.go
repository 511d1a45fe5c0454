// Package ir defines the target AST: the statements and values a batch
// script is built from. Each sub-grammar is a closed interface sealed by an
// unexported marker method, so a type switch over it names every case.
// Nodes are never mutated after construction.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is an arithmetic operator.
type Op int

const (
	OpNeg Op = iota
	OpNot
	OpCompl
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
)

var opSymbols = [...]string{
	OpNeg: "-", OpNot: "!", OpCompl: "~",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%",
	OpAnd: "&", OpOr: "|", OpXor: "^", OpShl: "<<", OpShr: ">>",
}

func (o Op) String() string {
	if int(o) < len(opSymbols) {
		return opSymbols[o]
	}
	return "?"
}

// IsUnary reports whether o takes a single operand.
func (o Op) IsUnary() bool { return o <= OpCompl }

// CmpOp is a comparison operator.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNeq
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

var cmpSymbols = [...]string{
	CmpEq: "==", CmpNeq: "!=", CmpLt: "<", CmpLe: "<=", CmpGt: ">", CmpGe: ">=",
}

func (o CmpOp) String() string {
	if int(o) < len(cmpSymbols) {
		return cmpSymbols[o]
	}
	return "?"
}

// Leftvalue is an assignable location.
type Leftvalue interface {
	isLeftvalue()
	String() string
}

// Varint is a list index: a literal integer or a variable.
type Varint interface {
	isVarint()
	String() string
}

// Arithmetic is an expression of the numeric assignment form.
type Arithmetic interface {
	isArithmetic()
	String() string
}

// Varstring is one fragment of a concatenated string.
type Varstring interface {
	isVarstring()
	String() string
}

// Varstrings is a concatenation of fragments, in order.
type Varstrings []Varstring

func (vs Varstrings) String() string {
	if len(vs) == 0 {
		return `""`
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ++ ")
}

// Stmt is a target statement.
type Stmt interface {
	isStmt()
	String() string
}

// Leftvalues
type Ident struct{ Name string }
type ListAccess struct {
	Base  Leftvalue
	Index Varint
}

// Slot is the 1-based positional argument of the current call.
type Slot struct{ Index int }

func (*Ident) isLeftvalue()      {}
func (*ListAccess) isLeftvalue() {}
func (*Slot) isLeftvalue()       {}

func (i *Ident) String() string      { return i.Name }
func (l *ListAccess) String() string { return fmt.Sprintf("%s[%s]", l.Base, l.Index) }
func (s *Slot) String() string       { return "$" + strconv.Itoa(s.Index) }

// Values shared by several sub-grammars
type IntLit struct{ Value int64 }
type StrLit struct{ Value string }
type Var struct{ Ref Leftvalue }

func (*IntLit) isVarint()     {}
func (*IntLit) isArithmetic() {}
func (*StrLit) isVarstring()  {}
func (*Var) isVarint()        {}
func (*Var) isArithmetic()    {}
func (*Var) isVarstring()     {}

func (i *IntLit) String() string { return strconv.FormatInt(i.Value, 10) }
func (s *StrLit) String() string { return strconv.Quote(s.Value) }
func (v *Var) String() string    { return v.Ref.String() }

// Arithmetic operators
type Unary struct {
	Op   Op
	Expr Arithmetic
}
type Binary struct {
	Op          Op
	Left, Right Arithmetic
}

func (*Unary) isArithmetic()  {}
func (*Binary) isArithmetic() {}

func (u *Unary) String() string  { return fmt.Sprintf("%s%s", u.Op, u.Expr) }
func (b *Binary) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

// Comparison is the only boolean form of the target.
type Comparison struct {
	Op          CmpOp
	Left, Right Varstrings
}

func (c *Comparison) String() string { return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right) }

// Statements
type Raw struct{ Text string }
type Comment struct{ Text string }
type Label struct{ Name string }
type Jump struct{ Target string }
type StrAssign struct {
	Dst   Leftvalue
	Value Varstrings
}
type ArithAssign struct {
	Dst  Leftvalue
	Expr Arithmetic
}
type Call struct {
	Callee Varstring
	Args   []Varstrings
}
type If struct {
	Cond *Comparison
	Body []Stmt
}
type IfElse struct {
	Cond       *Comparison
	Then, Else []Stmt
}

func (*Raw) isStmt()         {}
func (*Comment) isStmt()     {}
func (*Label) isStmt()       {}
func (*Jump) isStmt()        {}
func (*StrAssign) isStmt()   {}
func (*ArithAssign) isStmt() {}
func (*Call) isStmt()        {}
func (*If) isStmt()          {}
func (*IfElse) isStmt()      {}

func (r *Raw) String() string         { return "raw " + strconv.Quote(r.Text) }
func (c *Comment) String() string     { return "# " + c.Text }
func (l *Label) String() string       { return l.Name + ":" }
func (j *Jump) String() string        { return "jump " + j.Target }
func (s *StrAssign) String() string   { return fmt.Sprintf("%s := %s", s.Dst, s.Value) }
func (a *ArithAssign) String() string { return fmt.Sprintf("%s = %s", a.Dst, a.Expr) }

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("call %s(%s)", c.Callee, strings.Join(args, ", "))
}

func (i *If) String() string {
	return fmt.Sprintf("if %s { %s }", i.Cond, joinStmts(i.Body))
}

func (i *IfElse) String() string {
	return fmt.Sprintf("if %s { %s } else { %s }", i.Cond, joinStmts(i.Then), joinStmts(i.Else))
}

func joinStmts(stmts []Stmt) string {
	parts := make([]string, len(stmts))
	for i, s := range stmts {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

// Program is a lowered script, in execution order.
type Program struct {
	Stmts []Stmt
}

// String renders the program one statement per line, nesting bodies.
func (p *Program) String() string {
	var sb strings.Builder
	dump(&sb, p.Stmts, 0)
	return sb.String()
}

func dump(sb *strings.Builder, stmts []Stmt, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, s := range stmts {
		switch s := s.(type) {
		case *If:
			fmt.Fprintf(sb, "%sif %s {\n", indent, s.Cond)
			dump(sb, s.Body, depth+1)
			fmt.Fprintf(sb, "%s}\n", indent)
		case *IfElse:
			fmt.Fprintf(sb, "%sif %s {\n", indent, s.Cond)
			dump(sb, s.Then, depth+1)
			fmt.Fprintf(sb, "%s} else {\n", indent)
			dump(sb, s.Else, depth+1)
			fmt.Fprintf(sb, "%s}\n", indent)
		default:
			fmt.Fprintf(sb, "%s%s\n", indent, s)
		}
	}
}
