// Package token contains the tokens that the lexer will produce when
// parsing a C-subset source file.
package token

// Kind describes which of the four lexical categories a Token belongs to.
type Kind int

const (
	// Eof marks the end of the token stream.
	Eof Kind = iota

	// Reserved is a keyword or punctuation mark from the fixed
	// language grammar ("return", "if", "(", "==", ...).
	Reserved

	// Ident is a user identifier: a function or variable name.
	Ident

	// Num is an integer literal.
	Num
)

// keywords is the reserved-word list recognised by the lexer.
var keywords = []string{
	"return",
	"if",
	"else",
	"while",
	"for",
	"int",
	"sizeof",
}

// Keywords exposes the reserved-word list to the lexer.
func Keywords() []string {
	return keywords
}

// Token is a single lexical unit. Kind says which category it belongs
// to; Literal carries the original source text (used for diagnostics
// and, for Reserved tokens, for the parser's string-equality match).
// Val is populated only when Kind == Num. Next chains tokens into the
// singly linked list the lexer produces; Loc is the byte offset of the
// token's first character in the original source buffer, used to
// render caret diagnostics.
type Token struct {
	Kind    Kind
	Literal string
	Val     int
	Loc     int
	Next    *Token
}

// Is reports whether a token's literal text equals s. Used by the
// parser to match reserved words and punctuation by string equality.
func (t *Token) Is(s string) bool {
	return t != nil && t.Literal == s
}
