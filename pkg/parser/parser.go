package parser

import (
	"strconv"
	"strings"

	"github.com/xplshn/gbat/pkg/ast"
	"github.com/xplshn/gbat/pkg/config"
	"github.com/xplshn/gbat/pkg/token"
	"github.com/xplshn/gbat/pkg/util"
)

// ReservedPrefix starts every name the compiler mints for itself.
const ReservedPrefix = "__"

// Parser holds the state for the parsing process
type Parser struct {
	tokens    []token.Token
	pos       int
	current   token.Token
	previous  token.Token
	cfg       *config.Config
	exprDepth int
	pending   []token.Token
}

type bailout struct{ diag *util.Diagnostic }

// NewParser creates and initializes a new Parser from a token stream.
// The stream must end with an EOF token.
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	p := &Parser{tokens: tokens, pos: -1, cfg: cfg}
	p.advance()
	return p
}

// Parser helpers

// advance moves to the next significant token. Directives are applied on
// the way; comments at statement level are queued for the enclosing block
// and comments inside expressions are dropped.
func (p *Parser) advance() {
	if p.pos >= 0 {
		p.previous = p.current
	}
	for {
		p.pos++
		if p.pos >= len(p.tokens) {
			p.pos = len(p.tokens) - 1
			p.current = p.tokens[p.pos]
			return
		}
		tok := p.tokens[p.pos]
		switch tok.Type {
		case token.Directive:
			for _, flag := range p.cfg.ProcessDirectiveFlags(tok.Value) {
				util.Warn(p.cfg, config.WarnExtra, tok, "Unrecognized flag '%s' in directive", flag)
			}
			continue
		case token.Comment:
			if p.exprDepth == 0 {
				p.pending = append(p.pending, tok)
			}
			continue
		}
		p.current = tok
		return
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) {
	if p.check(tokType) {
		p.advance()
		return
	}
	p.fail(p.current, "%s", message)
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	panic(bailout{util.Errorf(tok, format, args...)})
}

// drainComments turns queued comments into statements.
func (p *Parser) drainComments() []*ast.Node {
	var out []*ast.Node
	for _, tok := range p.pending {
		out = append(out, ast.NewComment(tok, tok.Value))
	}
	p.pending = p.pending[:0]
	return out
}

func (p *Parser) checkName(tok token.Token) {
	if strings.HasPrefix(tok.Value, ReservedPrefix) {
		p.fail(tok, "Identifier '%s' is reserved: names starting with '%s' belong to the compiler.", tok.Value, ReservedPrefix)
	}
}

// Expression Parsing
func getBinaryOpPrecedence(op token.Type) int {
	switch op {
	case token.Star, token.Slash, token.Rem:
		return 13
	case token.Plus, token.Minus:
		return 12
	case token.Shl, token.Shr:
		return 11
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 10
	case token.EqEq, token.Neq:
		return 9
	case token.And:
		return 8
	case token.Xor:
		return 7
	case token.Or:
		return 6
	default:
		return -1
	}
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		val, _ := strconv.ParseInt(p.previous.Value, 10, 64)
		return ast.NewNumber(tok, val)
	case p.match(token.FloatNumber):
		val, err := strconv.ParseFloat(p.previous.Value, 64)
		if err != nil {
			p.fail(tok, "Invalid floating-point literal: %s", p.previous.Value)
		}
		return ast.NewFloatNumber(tok, val)
	case p.match(token.String):
		return ast.NewString(tok, p.previous.Value)
	case p.match(token.True):
		return ast.NewBool(tok, true)
	case p.match(token.False):
		return ast.NewBool(tok, false)
	case p.match(token.Ident):
		p.checkName(p.previous)
		return ast.NewIdent(tok, p.previous.Value)
	case p.match(token.LBracket):
		var elems []*ast.Node
		if !p.check(token.RBracket) {
			for {
				elems = append(elems, p.parseBinaryExpr(0))
				if !p.match(token.Comma) {
					break
				}
			}
		}
		p.expect(token.RBracket, "Expected ']' after list elements.")
		return ast.NewList(tok, elems)
	case p.match(token.LParen):
		expr := p.parseBinaryExpr(0)
		p.expect(token.RParen, "Expected ')' after expression.")
		return expr
	}
	p.fail(tok, "Expected an expression.")
	return nil
}

func (p *Parser) parsePostfixExpr() *ast.Node {
	expr := p.parsePrimaryExpr()
	for {
		tok := p.current
		if p.match(token.LParen) {
			if expr.Type != ast.Ident {
				p.fail(tok, "Only named functions or commands can be called.")
			}
			var args []*ast.Node
			if !p.check(token.RParen) {
				for {
					args = append(args, p.parseBinaryExpr(0))
					if !p.match(token.Comma) {
						break
					}
				}
			}
			p.expect(token.RParen, "Expected ')' after function arguments.")
			expr = ast.NewFuncCall(tok, expr, args)
		} else if p.match(token.LBracket) {
			if !ast.IsLValue(expr) {
				p.fail(tok, "Only variables and their elements can be indexed.")
			}
			index := p.parseBinaryExpr(0)
			p.expect(token.RBracket, "Expected ']' after list index.")
			expr = ast.NewSubscript(tok, expr, index)
		} else {
			break
		}
	}
	return expr
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	tok := p.current
	if p.match(token.Not) || p.match(token.Complement) || p.match(token.Minus) || p.match(token.Plus) {
		op := p.previous.Type
		operand := p.parseUnaryExpr()
		if op == token.Minus && operand.Type == ast.Number {
			return ast.NewNumber(tok, -operand.Data.(ast.NumberNode).Value)
		}
		return ast.NewUnaryOp(tok, op, operand)
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parseBinaryExpr(minPrec int) *ast.Node {
	left := p.parseUnaryExpr()
	for {
		op := p.current.Type
		prec := getBinaryOpPrecedence(op)
		if prec < minPrec {
			break
		}
		opTok := p.current
		p.advance()
		right := p.parseBinaryExpr(prec + 1)
		left = newBinary(opTok, op, left, right)
	}
	return left
}

// newBinary decides the shape of a binary expression. A '+' or an
// equality with a string operand is a string operation, anything else is
// arithmetic.
func newBinary(tok token.Token, op token.Type, left, right *ast.Node) *ast.Node {
	stringy := ast.IsStringy(left) || ast.IsStringy(right)
	switch {
	case op == token.Plus && stringy:
		return ast.NewConcat(tok, left, right)
	case (op == token.EqEq || op == token.Neq) && stringy:
		return ast.NewStrCompare(tok, op, left, right)
	default:
		return ast.NewBinaryOp(tok, op, left, right)
	}
}

func (p *Parser) parseExpr() *ast.Node {
	p.exprDepth++
	defer func() { p.exprDepth-- }()
	return p.parseBinaryExpr(0)
}

// parseParenExpr parses '(' expr ')'. The closing parenthesis is consumed
// at statement level so a comment right after it is kept.
func (p *Parser) parseParenExpr(what string) *ast.Node {
	p.expect(token.LParen, "Expected '(' after '"+what+"'.")
	p.exprDepth++
	expr := p.parseBinaryExpr(0)
	p.exprDepth--
	p.expect(token.RParen, "Expected ')' after "+what+" condition.")
	return expr
}

// Statement Parsing
func (p *Parser) parseBlockStmt() *ast.Node {
	tok := p.current
	p.expect(token.LBrace, "Expected '{' to start a block.")
	var stmts []*ast.Node
	for {
		stmts = append(stmts, p.drainComments()...)
		if p.check(token.RBrace) || p.check(token.EOF) {
			break
		}
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace, "Expected '}' after block.")
	return ast.NewBlock(tok, stmts, false)
}

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.If):
		cond := p.parseParenExpr("if")
		thenBody := p.parseStmt()
		var elseBody *ast.Node
		if p.match(token.Else) {
			elseBody = p.parseStmt()
		}
		return ast.NewIf(tok, cond, thenBody, elseBody)
	case p.match(token.While):
		cond := p.parseParenExpr("while")
		body := p.parseStmt()
		return ast.NewWhile(tok, cond, body)
	case p.check(token.LBrace):
		return p.parseBlockStmt()
	case p.match(token.Global):
		var names []*ast.Node
		for {
			p.expect(token.Ident, "Expected identifier in 'global' declaration.")
			p.checkName(p.previous)
			names = append(names, ast.NewIdent(p.previous, p.previous.Value))
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.Semi, "Expected ';' after 'global' declaration.")
		return ast.NewGlobalDecl(tok, names)
	case p.match(token.Return):
		var expr *ast.Node
		if !p.check(token.Semi) {
			expr = p.parseExpr()
		}
		p.expect(token.Semi, "Expected ';' after return statement.")
		return ast.NewReturn(tok, expr)
	case p.match(token.Semi):
		return ast.NewEmpty(tok)
	case p.check(token.Func):
		p.fail(tok, "Functions can only be declared at top level.")
	}

	expr := p.parseExpr()
	if p.check(token.Eq) {
		assignTok := p.current
		if !ast.IsLValue(expr) {
			p.fail(assignTok, "Invalid target for assignment.")
		}
		p.advance()
		rhs := p.parseExpr()
		p.expect(token.Semi, "Expected ';' after assignment.")
		return ast.NewAssign(assignTok, expr, rhs)
	}
	if expr.Type != ast.FuncCall {
		p.fail(expr.Tok, "Expression statement must be a call or an assignment.")
	}
	p.expect(token.Semi, "Expected ';' after expression statement.")
	return expr
}

// Top-Level Parsing
func (p *Parser) parseFuncDecl() *ast.Node {
	p.expect(token.Ident, "Expected function name after 'func'.")
	nameTok := p.previous
	p.checkName(nameTok)
	p.expect(token.LParen, "Expected '(' after function name.")

	var params []*ast.Node
	if !p.check(token.RParen) {
		for {
			p.expect(token.Ident, "Expected parameter name.")
			p.checkName(p.previous)
			params = append(params, ast.NewIdent(p.previous, p.previous.Value))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after parameters.")
	if !p.check(token.LBrace) {
		p.fail(p.current, "Expected '{' to start the body of '%s'.", nameTok.Value)
	}
	body := p.parseBlockStmt()
	return ast.NewFuncDecl(nameTok, nameTok.Value, params, body)
}

// Parse builds the program tree: a synthetic block holding the top-level
// statements and function declarations in source order.
func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			root, err = nil, b.diag
		}
	}()

	tok := p.current
	var items []*ast.Node
	for {
		items = append(items, p.drainComments()...)
		if p.check(token.EOF) {
			break
		}
		if p.match(token.Func) {
			items = append(items, p.parseFuncDecl())
			continue
		}
		items = append(items, p.parseStmt())
	}
	return ast.NewBlock(tok, items, true), nil
}
