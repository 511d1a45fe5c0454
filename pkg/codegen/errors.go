package codegen

import (
	"fmt"

	"github.com/xplshn/gbat/pkg/token"
	"github.com/xplshn/gbat/pkg/util"
)

// ErrorKind classifies why lowering failed. Every kind is fatal.
type ErrorKind int

const (
	// ErrUnsupported: the expression cannot be represented where it appears.
	ErrUnsupported ErrorKind = iota
	// ErrUnimplemented: the shape is recognized but not handled yet.
	ErrUnimplemented
	// ErrInternal: a shape the front end should never have produced.
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupported:
		return "unsupported"
	case ErrUnimplemented:
		return "unimplemented"
	case ErrInternal:
		return "internal error"
	}
	return "error"
}

// Error is a classification failure raised while lowering.
type Error struct {
	Kind  ErrorKind
	Tok   token.Token
	Scope string
	Msg   string
}

// Message is the located-diagnostic text, without the source position.
func (e *Error) Message() string {
	return fmt.Sprintf("%s: %s (in %s scope)", e.Kind, e.Msg, e.Scope)
}

func (e *Error) Error() string {
	return (&util.Diagnostic{Tok: e.Tok, Msg: e.Message()}).Error()
}

func (ctx *Context) errorf(kind ErrorKind, tok token.Token, format string, args ...interface{}) *Error {
	scope := "global"
	if ctx.scope != nil {
		scope = ctx.scope.Name()
	}
	return &Error{Kind: kind, Tok: tok, Scope: scope, Msg: fmt.Sprintf(format, args...)}
}
