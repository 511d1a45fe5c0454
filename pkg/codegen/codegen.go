// Package codegen lowers a gb program to the target AST of package ir and
// renders that AST as a batch script.
//
// The target has only global variables, no call stack and no structured
// control flow. Functions become labels reached with 'call', their locals
// become elements of per-name arrays indexed by a frame id passed as the
// second call argument, and loops become a label plus a conditional jump.
package codegen

import (
	"fmt"

	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/config"
	"github.com/xplshn/gbat/pkg/ir"
	"github.com/xplshn/gbat/pkg/symtab"
)

const (
	// ReturnRegister names the variable a callee writes its result to.
	ReturnRegister = "__ret"
	// FramePlaceholder is the frame id every call passes. Nested calls
	// do not allocate a fresh one, so recursive calls share locals.
	FramePlaceholder = "0"
	// EndOfFile is the jump target that returns from a called label.
	EndOfFile = "eof"

	labelPrefix = "__L"
	endSuffix   = "__end"
)

// Calling convention slots.
const (
	slotReturn = 1
	slotFrame  = 2
	slotArgs   = 3
)

// Setup is emitted ahead of every program.
var Setup = []string{
	"@echo off",
	"setlocal EnableDelayedExpansion",
	"setlocal EnableExtensions",
}

// SymbolTable is the read-only view of the program's symbols lowering needs.
type SymbolTable interface {
	IsFunction(name string) bool
	FunctionScope(name string) *symtab.Scope
	GlobalScope() *symtab.Scope
}

type Context struct {
	cfg        *config.Config
	table      SymbolTable
	scope      *symtab.Scope
	funcName   string
	labelCount int
}

// NewContext returns a context for one compilation. Loop labels are
// numbered per context.
func NewContext(cfg *config.Config, table SymbolTable) *Context {
	return &Context{cfg: cfg, table: table, scope: table.GlobalScope()}
}

func (ctx *Context) newLabel() string {
	l := fmt.Sprintf("%s%d", labelPrefix, ctx.labelCount)
	ctx.labelCount++
	return l
}

// GenerateIR lowers root, a block of top-level items, into a program.
// Top-level statements run first, in source order; functions follow, each
// guarded so that falling into it skips over its body.
func (ctx *Context) GenerateIR(root *ast.Node) (*ir.Program, error) {
	var items []*ast.Node
	if root != nil {
		if root.Type != ast.Block {
			return nil, ctx.errorf(ErrInternal, root.Tok, "program root must be a block, got %s", root.Type)
		}
		items = root.Data.(ast.BlockNode).Stmts
	}

	stmts, funcs := partition(items)

	prog := &ir.Program{}
	for _, text := range Setup {
		prog.Stmts = append(prog.Stmts, &ir.Raw{Text: text})
	}

	ctx.scope, ctx.funcName = ctx.table.GlobalScope(), ""
	lowered, err := ctx.lowerStmts(stmts)
	if err != nil {
		return nil, err
	}
	prog.Stmts = append(prog.Stmts, lowered...)

	for _, fn := range funcs {
		body, err := ctx.lowerBody(fn)
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, assembleFunc(fn.Data.(ast.FuncDeclNode), rewriteFrame(body))...)
	}
	return prog, nil
}

// partition splits the top-level items into statements and functions,
// keeping the relative order within each group.
func partition(items []*ast.Node) (stmts, funcs []*ast.Node) {
	for _, item := range items {
		if item.Type == ast.FuncDecl {
			funcs = append(funcs, item)
		} else {
			stmts = append(stmts, item)
		}
	}
	return stmts, funcs
}

// lowerBody lowers a function body in the function's own scope. The
// result still names locals directly; rewriteFrame moves them into the
// frame.
func (ctx *Context) lowerBody(fn *ast.Node) ([]ir.Stmt, error) {
	d := fn.Data.(ast.FuncDeclNode)
	ctx.scope, ctx.funcName = ctx.table.FunctionScope(d.Name), d.Name
	defer func() { ctx.scope, ctx.funcName = ctx.table.GlobalScope(), "" }()
	if ctx.scope == nil {
		return nil, ctx.errorf(ErrInternal, fn.Tok, "function '%s' is missing from the symbol table", d.Name)
	}
	return ctx.lowerStmt(d.Body)
}
