package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/gbat/pkg/config"
	"github.com/xplshn/gbat/pkg/ir"
)

// Literal carets and bangs need a different number of carets depending on
// whether they sit inside quotes and whether the line goes through delayed
// expansion, which only happens when the finished line contains a '!'.
// They are written as markers first and resolved once the line is complete.
const (
	quotedCaret   = '\x00'
	quotedBang    = '\x01'
	unquotedCaret = '\x02'
	unquotedBang  = '\x03'
)

var cmpKeywords = map[ir.CmpOp]string{
	ir.CmpLt: "LSS", ir.CmpLe: "LEQ", ir.CmpGt: "GTR", ir.CmpGe: "GEQ",
}

// forVars names the for variables that hold variable list indices. A line
// inside a block opened by a bound line must not reuse its variables, since
// cmd substitutes them through the whole block.
const forVars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

type batchBackend struct {
	out   *bytes.Buffer
	eol   string
	depth int
	bound int
	binds []string
	err   error
}

func NewBatchBackend() Backend { return &batchBackend{} }

func (b *batchBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	b.out = &bytes.Buffer{}
	b.eol = cfg.LineEnding()
	b.depth, b.bound, b.binds, b.err = 0, 0, nil, nil
	if err := b.genStmts(prog.Stmts); err != nil {
		return nil, err
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.out, nil
}

// line writes one line, prefixed by the for loops binding the indices its
// arguments asked for, and returns how many it bound.
func (b *batchBackend) line(format string, args ...interface{}) int {
	text := strings.Join(b.binds, "") + fmt.Sprintf(format, args...)
	bound := len(b.binds)
	b.binds = nil
	expands := strings.ContainsAny(text, "!\x01\x03")
	caret, unquoted := "^", "^^"
	if expands {
		caret, unquoted = "^^", "^^^^"
	}
	text = strings.NewReplacer(
		string(quotedCaret), caret,
		string(quotedBang), "^!",
		string(unquotedCaret), unquoted,
		string(unquotedBang), "^^!",
	).Replace(text)
	b.out.WriteString(strings.Repeat(" ", 4*b.depth))
	b.out.WriteString(text)
	b.out.WriteString(b.eol)
	return bound
}

// bind queues 'for %%v in (value) do ' for the next line and returns %%v.
func (b *batchBackend) bind(value string) string {
	n := b.bound + len(b.binds)
	if n >= len(forVars) {
		if b.err == nil {
			b.err = fmt.Errorf("batch backend: more than %d variable list indices in scope", len(forVars))
		}
		n = len(forVars) - 1
	}
	name := "%%" + string(forVars[n])
	b.binds = append(b.binds, fmt.Sprintf("for %s in (%s) do ", name, value))
	return name
}

func (b *batchBackend) genStmts(stmts []ir.Stmt) error {
	for _, s := range stmts {
		if err := b.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *batchBackend) genBody(stmts []ir.Stmt) error {
	b.depth++
	defer func() { b.depth-- }()
	if len(stmts) == 0 {
		b.line("rem")
		return nil
	}
	return b.genStmts(stmts)
}

func (b *batchBackend) genStmt(s ir.Stmt) error {
	switch s := s.(type) {
	case *ir.Raw:
		b.out.WriteString(strings.Repeat(" ", 4*b.depth))
		b.out.WriteString(s.Text)
		b.out.WriteString(b.eol)
	case *ir.Comment:
		b.line("rem %s", strings.ReplaceAll(s.Text, "%", "%%"))
	case *ir.Label:
		b.line(":%s", s.Name)
	case *ir.Jump:
		b.line("goto :%s", s.Target)
	case *ir.StrAssign:
		b.line(`set "%s=%s"`, b.lvName(s.Dst), b.quoted(s.Value))
	case *ir.ArithAssign:
		b.line(`set /a "%s=%s"`, b.lvName(s.Dst), b.arith(s.Expr))
	case *ir.Call:
		return b.genCall(s)
	case *ir.If:
		n := b.line("if %s (", b.condition(s.Cond))
		b.bound += n
		defer func() { b.bound -= n }()
		if err := b.genBody(s.Body); err != nil {
			return err
		}
		b.line(")")
	case *ir.IfElse:
		n := b.line("if %s (", b.condition(s.Cond))
		b.bound += n
		defer func() { b.bound -= n }()
		if err := b.genBody(s.Then); err != nil {
			return err
		}
		b.line(") else (")
		if err := b.genBody(s.Else); err != nil {
			return err
		}
		b.line(")")
	default:
		return fmt.Errorf("batch backend: unhandled statement %T", s)
	}
	return nil
}

// genCall renders 'call :label "arg" ...' for labels, and a bare command
// line otherwise.
func (b *batchBackend) genCall(c *ir.Call) error {
	if lit, ok := c.Callee.(*ir.StrLit); ok && strings.HasPrefix(lit.Value, ":") {
		parts := []string{"call", lit.Value}
		for _, a := range c.Args {
			parts = append(parts, `"`+b.quoted(a)+`"`)
		}
		b.line("%s", strings.Join(parts, " "))
		return nil
	}
	parts := []string{b.unquoted(ir.Varstrings{c.Callee})}
	for _, a := range c.Args {
		parts = append(parts, b.unquoted(a))
	}
	b.line("%s", strings.Join(parts, " "))
	return nil
}

func (b *batchBackend) condition(c *ir.Comparison) string {
	switch c.Op {
	case ir.CmpEq:
		return fmt.Sprintf(`"%s"=="%s"`, b.quoted(c.Left), b.quoted(c.Right))
	case ir.CmpNeq:
		return fmt.Sprintf(`not "%s"=="%s"`, b.quoted(c.Left), b.quoted(c.Right))
	}
	return fmt.Sprintf("%s %s %s", b.unquoted(c.Left), cmpKeywords[c.Op], b.unquoted(c.Right))
}

// lvName renders the name an assignment writes. Its indices are expanded
// before set runs, so a variable index can be used as is.
func (b *batchBackend) lvName(lv ir.Leftvalue) string {
	switch lv := lv.(type) {
	case *ir.Ident:
		return lv.Name
	case *ir.ListAccess:
		return b.lvName(lv.Base) + "[" + b.varint(lv.Index) + "]"
	case *ir.Slot:
		return "%~" + strconv.Itoa(lv.Index)
	}
	return ""
}

// readName renders the name a read expands. Delayed expansion does not
// nest, so !a[!i!]! cannot work; each variable index is bound to a for
// variable instead and the read becomes !a[%%a]!.
func (b *batchBackend) readName(lv ir.Leftvalue) string {
	switch lv := lv.(type) {
	case *ir.ListAccess:
		index := b.varint(lv.Index)
		if v, ok := lv.Index.(*ir.Var); ok {
			if _, slot := v.Ref.(*ir.Slot); !slot {
				index = b.bind(index)
			}
		}
		return b.readName(lv.Base) + "[" + index + "]"
	}
	return b.lvName(lv)
}

func (b *batchBackend) varRef(v *ir.Var) string {
	if slot, ok := v.Ref.(*ir.Slot); ok {
		return "%~" + strconv.Itoa(slot.Index)
	}
	return "!" + b.readName(v.Ref) + "!"
}

func (b *batchBackend) varint(v ir.Varint) string {
	switch v := v.(type) {
	case *ir.IntLit:
		return strconv.FormatInt(v.Value, 10)
	case *ir.Var:
		return b.varRef(v)
	}
	return ""
}

func (b *batchBackend) arith(a ir.Arithmetic) string {
	switch a := a.(type) {
	case *ir.IntLit:
		return strconv.FormatInt(a.Value, 10)
	case *ir.Var:
		return b.varRef(a)
	case *ir.Unary:
		return arithOp(a.Op) + b.arith(a.Expr)
	case *ir.Binary:
		return "(" + b.arith(a.Left) + " " + arithOp(a.Op) + " " + b.arith(a.Right) + ")"
	}
	return ""
}

func arithOp(op ir.Op) string {
	switch op {
	case ir.OpRem:
		return "%%"
	case ir.OpNot:
		return string(quotedBang)
	case ir.OpXor:
		return string(quotedCaret)
	}
	return op.String()
}

func (b *batchBackend) quoted(vs ir.Varstrings) string {
	var sb strings.Builder
	for _, v := range vs {
		switch v := v.(type) {
		case *ir.StrLit:
			for _, r := range v.Value {
				switch r {
				case '%':
					sb.WriteString("%%")
				case '^':
					sb.WriteRune(quotedCaret)
				case '!':
					sb.WriteRune(quotedBang)
				default:
					sb.WriteRune(r)
				}
			}
		case *ir.Var:
			sb.WriteString(b.varRef(v))
		}
	}
	return sb.String()
}

func (b *batchBackend) unquoted(vs ir.Varstrings) string {
	var sb strings.Builder
	for _, v := range vs {
		switch v := v.(type) {
		case *ir.StrLit:
			for _, r := range v.Value {
				switch r {
				case '%':
					sb.WriteString("%%")
				case '^':
					sb.WriteRune(unquotedCaret)
				case '!':
					sb.WriteRune(unquotedBang)
				case '&', '|', '<', '>', '(', ')':
					sb.WriteByte('^')
					sb.WriteRune(r)
				default:
					sb.WriteRune(r)
				}
			}
		case *ir.Var:
			sb.WriteString(b.varRef(v))
		}
	}
	return sb.String()
}
