// Package symtab records the functions of a gb program and the names each
// scope declares. The table is built once, before lowering, and is only
// read afterwards; the one exception is Scope.Fresh, which the split pass
// uses to mint temporaries.
package symtab

import (
	"fmt"

	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/token"
	"github.com/xplshn/gbat/pkg/util"
)

type SymbolKind int

const (
	SymVar SymbolKind = iota
	SymParam
	SymGlobalDecl
	SymTemp
)

type Symbol struct {
	Name string
	Kind SymbolKind
	Tok  token.Token
	Next *Symbol
}

type Scope struct {
	name    string
	Symbols *Symbol
	Parent  *Scope
	fresh   int
}

func newScope(name string, parent *Scope) *Scope { return &Scope{name: name, Parent: parent} }

// Name labels the scope in diagnostics: the function name, or "global".
func (s *Scope) Name() string { return s.name }

// Lookup finds name in s or any enclosing scope.
func (s *Scope) Lookup(name string) *Symbol {
	for sc := s; sc != nil; sc = sc.Parent {
		if sym := sc.lookupLocal(name); sym != nil {
			return sym
		}
	}
	return nil
}

func (s *Scope) lookupLocal(name string) *Symbol {
	for sym := s.Symbols; sym != nil; sym = sym.Next {
		if sym.Name == name {
			return sym
		}
	}
	return nil
}

// Declare adds name to s unless s already holds it, and returns the symbol.
func (s *Scope) Declare(name string, kind SymbolKind, tok token.Token) *Symbol {
	if sym := s.lookupLocal(name); sym != nil {
		return sym
	}
	s.Symbols = &Symbol{Name: name, Kind: kind, Tok: tok, Next: s.Symbols}
	return s.Symbols
}

// Fresh declares and returns a temporary name, built from prefix, that no
// scope in the chain declares yet.
func (s *Scope) Fresh(prefix string) string {
	for {
		name := fmt.Sprintf("%s%d", prefix, s.fresh)
		s.fresh++
		if s.Lookup(name) == nil {
			s.Declare(name, SymTemp, token.Token{})
			return name
		}
	}
}

type Table struct {
	global    *Scope
	functions map[string]*Scope
	order     []string
}

func (t *Table) IsFunction(name string) bool {
	_, ok := t.functions[name]
	return ok
}

// FunctionScope returns the scope of the named function, or nil.
func (t *Table) FunctionScope(name string) *Scope { return t.functions[name] }

func (t *Table) GlobalScope() *Scope { return t.global }

// Functions lists the declared functions in source order.
func (t *Table) Functions() []string { return t.order }

// Build collects functions and declared names from the program's top-level
// items.
func Build(root *ast.Node) (*Table, error) {
	t := &Table{global: newScope("global", nil), functions: make(map[string]*Scope)}
	if root == nil {
		return t, nil
	}

	items := []*ast.Node{root}
	if root.Type == ast.Block {
		items = root.Data.(ast.BlockNode).Stmts
	}

	// Functions first so that a call may precede the callee's declaration.
	for _, item := range items {
		if item.Type != ast.FuncDecl {
			continue
		}
		d := item.Data.(ast.FuncDeclNode)
		if _, dup := t.functions[d.Name]; dup {
			return nil, util.Errorf(item.Tok, "Redefinition of function '%s'", d.Name)
		}
		scope := newScope(d.Name, t.global)
		for _, param := range d.Params {
			name := param.Data.(ast.IdentNode).Name
			if scope.lookupLocal(name) != nil {
				return nil, util.Errorf(param.Tok, "Parameter '%s' of '%s' is listed more than once", name, d.Name)
			}
			scope.Declare(name, SymParam, param.Tok)
		}
		t.functions[d.Name] = scope
		t.order = append(t.order, d.Name)
	}

	for _, item := range items {
		if item.Type == ast.FuncDecl {
			d := item.Data.(ast.FuncDeclNode)
			collect(t.functions[d.Name], d.Body)
			continue
		}
		collect(t.global, item)
	}
	return t, nil
}

// collect declares every name a statement assigns or marks global.
func collect(scope *Scope, stmt *ast.Node) {
	ast.Walk(stmt, func(n *ast.Node) {
		switch d := n.Data.(type) {
		case ast.AssignNode:
			if root := rootIdent(d.Lhs); root != nil {
				scope.Declare(root.Data.(ast.IdentNode).Name, SymVar, root.Tok)
			}
		case ast.GlobalDeclNode:
			for _, name := range d.Names {
				scope.Declare(name.Data.(ast.IdentNode).Name, SymGlobalDecl, name.Tok)
			}
		}
	})
}

func rootIdent(lv *ast.Node) *ast.Node {
	for lv != nil {
		switch lv.Type {
		case ast.Ident:
			return lv
		case ast.Subscript:
			lv = lv.Data.(ast.SubscriptNode).Array
		default:
			return nil
		}
	}
	return nil
}
