package ast

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gbat/pkg/token"
)

func TestFprint(t *testing.T) {
	var tok token.Token
	root := NewBlock(tok, []*Node{
		NewAssign(tok, NewSubscript(tok, NewIdent(tok, "x"), NewNumber(tok, 0)), NewConcat(tok, NewString(tok, "a"), NewIdent(tok, "y"))),
		NewFuncDecl(tok, "f", []*Node{NewIdent(tok, "p")}, NewBlock(tok, []*Node{
			NewReturn(tok, NewBinaryOp(tok, token.Plus, NewIdent(tok, "p"), NewBool(tok, true))),
		}, false)),
	}, true)

	var sb strings.Builder
	Fprint(&sb, root)
	want := `Block
  Assign
    Subscript
      Ident x
      Number 0
    Concat
      String "a"
      Ident y
  FuncDecl f
    Ident p
    Block
      Return
        BinaryOp +
          Ident p
          Bool true
`
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("Fprint mismatch (-want +got):\n%s", diff)
	}
}

func TestIsLValue(t *testing.T) {
	var tok token.Token
	tests := []struct {
		node *Node
		want bool
	}{
		{NewIdent(tok, "a"), true},
		{NewSubscript(tok, NewSubscript(tok, NewIdent(tok, "a"), NewNumber(tok, 1)), NewIdent(tok, "i")), true},
		{NewNumber(tok, 1), false},
		{NewFuncCall(tok, NewIdent(tok, "f"), nil), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsLValue(tt.node); got != tt.want {
			t.Errorf("IsLValue(%v) = %v, want %v", tt.node, got, tt.want)
		}
	}
}
