package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/xplshn/gbat/pkg/config"
	"github.com/xplshn/gbat/pkg/token"
	"github.com/xplshn/gbat/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
	err       *util.Diagnostic
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Err returns the first lexical error, if any. Once an error is recorded
// Next only returns EOF.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// Tokenize lexes the whole input, including the trailing EOF token.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks, l.Err()
}

func (l *Lexer) Next() token.Token {
	for {
		if l.err != nil {
			return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
		}
		l.skipWhitespaceAndComments()
		startPos, startCol, startLine := l.pos, l.column, l.line

		if l.isAtEnd() {
			return l.makeToken(token.EOF, "", startPos, startCol, startLine)
		}

		if l.peek() == '/' && l.peekNext() == '/' {
			if tok, keep := l.lineComment(startPos, startCol, startLine); keep {
				return tok
			}
			continue
		}

		ch := l.peek()
		if unicode.IsLetter(ch) || ch == '_' {
			l.advance()
			return l.identifierOrKeyword(startPos, startCol, startLine)
		}
		if unicode.IsDigit(ch) || (ch == '.' && unicode.IsDigit(l.peekNext())) {
			return l.numberLiteral(startPos, startCol, startLine)
		}

		l.advance()
		switch ch {
		case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine)
		case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine)
		case '{': return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
		case '}': return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
		case '[': return l.makeToken(token.LBracket, "", startPos, startCol, startLine)
		case ']': return l.makeToken(token.RBracket, "", startPos, startCol, startLine)
		case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine)
		case ',': return l.makeToken(token.Comma, "", startPos, startCol, startLine)
		case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine)
		case '-': return l.makeToken(token.Minus, "", startPos, startCol, startLine)
		case '*': return l.makeToken(token.Star, "", startPos, startCol, startLine)
		case '/': return l.makeToken(token.Slash, "", startPos, startCol, startLine)
		case '%': return l.makeToken(token.Rem, "", startPos, startCol, startLine)
		case '&': return l.makeToken(token.And, "", startPos, startCol, startLine)
		case '|': return l.makeToken(token.Or, "", startPos, startCol, startLine)
		case '^': return l.makeToken(token.Xor, "", startPos, startCol, startLine)
		case '~': return l.makeToken(token.Complement, "", startPos, startCol, startLine)
		case '!': return l.matchThen('=', token.Neq, token.Not, startPos, startCol, startLine)
		case '=': return l.matchThen('=', token.EqEq, token.Eq, startPos, startCol, startLine)
		case '<':
			if l.match('<') {
				return l.makeToken(token.Shl, "", startPos, startCol, startLine)
			}
			return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
		case '>':
			if l.match('>') {
				return l.makeToken(token.Shr, "", startPos, startCol, startLine)
			}
			return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
		case '"':
			return l.stringLiteral(startPos, startCol, startLine)
		}

		l.fail(l.makeToken(token.EOF, "", startPos, startCol, startLine), "Unexpected character: '%c'", ch)
	}
}

func (l *Lexer) fail(tok token.Token, format string, args ...interface{}) {
	if l.err == nil {
		l.err = util.Errorf(tok, format, args...)
	}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case '/':
			if l.peekNext() == '*' {
				l.blockComment()
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	startTok := l.makeToken(token.Comment, "", l.pos, l.column, l.line)
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.fail(startTok, "Unterminated block comment")
}

// lineComment consumes a '//' comment. It reports whether the comment
// yields a token: a directive, or a comment kept for the output.
func (l *Lexer) lineComment(startPos, startCol, startLine int) (token.Token, bool) {
	l.advance()
	l.advance()
	contentStart := l.pos
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
	content := strings.TrimSpace(string(l.source[contentStart:l.pos]))

	if !l.cfg.IsFeatureEnabled(config.FeatNoDirectives) && strings.HasPrefix(content, l.cfg.DirectivePrefix) {
		directive := strings.TrimSpace(strings.TrimPrefix(content, l.cfg.DirectivePrefix))
		return l.makeToken(token.Directive, directive, startPos, startCol, startLine), true
	}
	if l.cfg.IsFeatureEnabled(config.FeatKeepComments) {
		return l.makeToken(token.Comment, content, startPos, startCol, startLine), true
	}
	return token.Token{}, false
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Ident, value, startPos, startCol, startLine)

	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		tok.Type = tokType
		tok.Value = ""
	}
	return tok
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	isFloat := false
	isHex := false
	if l.peek() == '0' && (l.peekNext() == 'x' || l.peekNext() == 'X') {
		isHex = true
		l.advance()
		l.advance()
		for isHexDigit(l.peek()) {
			l.advance()
		}
	} else {
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
		if l.peek() == '.' && unicode.IsDigit(l.peekNext()) {
			isFloat = true
			l.advance()
			for unicode.IsDigit(l.peek()) {
				l.advance()
			}
		}
	}

	if !isHex && (l.peek() == 'e' || l.peek() == 'E') {
		isFloat = true
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !unicode.IsDigit(l.peek()) {
			l.fail(l.makeToken(token.FloatNumber, "", startPos, startCol, startLine), "Malformed floating-point literal: exponent has no digits")
		}
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}

	valueStr := string(l.source[startPos:l.pos])
	if isFloat {
		return l.makeToken(token.FloatNumber, valueStr, startPos, startCol, startLine)
	}

	tok := l.makeToken(token.Number, "", startPos, startCol, startLine)
	val, err := strconv.ParseInt(valueStr, 0, 64)
	if err != nil {
		l.fail(tok, "Invalid number literal: %s", valueStr)
		tok.Value = "0"
		return tok
	}
	tok.Value = strconv.FormatInt(val, 10)
	return tok
}

func isHexDigit(c rune) bool {
	return unicode.IsDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) token.Token {
	var sb strings.Builder
	for !l.isAtEnd() {
		c := l.peek()
		if c == '\n' {
			break
		}
		if c == '"' {
			l.advance()
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine)
		}
		l.advance()
		if c == '\\' {
			sb.WriteRune(l.decodeEscape(startPos, startCol, startLine))
		} else {
			sb.WriteRune(c)
		}
	}
	l.fail(l.makeToken(token.String, "", startPos, startCol, startLine), "Unterminated string literal")
	return l.makeToken(token.EOF, "", l.pos, l.column, l.line)
}

var escapes = map[rune]rune{
	'n': '\n', 't': '\t', 'r': '\r', '\\': '\\', '"': '"', '\'': '\'', '0': 0,
	'a': '\a', 'b': '\b', 'f': '\f', 'v': '\v',
}

func (l *Lexer) decodeEscape(startPos, startCol, startLine int) rune {
	if l.isAtEnd() {
		l.fail(l.makeToken(token.EOF, "", l.pos, l.column, l.line), "Unterminated escape sequence")
		return 0
	}
	c := l.advance()

	if c == 'x' {
		var val rune
		for i := 0; i < 2; i++ {
			d := l.peek()
			if !isHexDigit(d) {
				l.fail(l.makeToken(token.String, "", startPos, startCol, startLine), "Invalid hex digit '%c' in escape sequence", d)
				return 0
			}
			l.advance()
			n, _ := strconv.ParseInt(string(d), 16, 32)
			val = val*16 + rune(n)
		}
		return val
	}

	if val, ok := escapes[c]; ok {
		return val
	}
	util.Warn(l.cfg, config.WarnUnrecognizedEscape, l.makeToken(token.String, "", startPos, startCol, startLine), "Unrecognized escape sequence '\\%c'", c)
	return c
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}
