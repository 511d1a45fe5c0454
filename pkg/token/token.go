package token

type Type int

const (
	EOF Type = iota
	Comment
	Directive
	Ident
	Number
	FloatNumber
	String
	Func
	Global
	If
	Else
	While
	Return
	True
	False
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Eq
	Plus
	Minus
	Star
	Slash
	Rem
	And
	Or
	Xor
	Shl
	Shr
	EqEq
	Neq
	Lt
	Gt
	Gte
	Lte
	Not
	Complement
)

var KeywordMap = map[string]Type{
	"func":   Func,
	"global": Global,
	"if":     If,
	"else":   Else,
	"while":  While,
	"return": Return,
	"true":   True,
	"false":  False,
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

var symbolStrings = map[Type]string{
	EOF: "end of file", Comment: "comment", Directive: "directive", Ident: "identifier",
	Number: "number", FloatNumber: "float", String: "string",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Semi: ";", Comma: ",", Eq: "=", Plus: "+", Minus: "-", Star: "*", Slash: "/", Rem: "%",
	And: "&", Or: "|", Xor: "^", Shl: "<<", Shr: ">>", EqEq: "==", Neq: "!=",
	Lt: "<", Gt: ">", Gte: ">=", Lte: "<=", Not: "!", Complement: "~",
}

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range symbolStrings {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "unknown"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
