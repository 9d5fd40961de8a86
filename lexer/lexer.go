// Package lexer turns a C-subset source buffer into a linked list of
// tokens, terminated by an Eof token.
package lexer

import (
	"strconv"
	"strings"

	"github.com/skx/cc0/diagnostics"
	"github.com/skx/cc0/token"
)

// punctuation is every one-character punctuation mark in the subset's
// grammar (spec.md §4.3 step 3).
const punctuation = "+-*/()<>;={}&,[]"

// twoCharOps is checked before single-character punctuation so that
// "==" isn't mistaken for "=" followed by "=".
var twoCharOps = []string{"==", "!=", "<=", ">="}

// Lexer holds our object-state: a byte buffer and our current
// position within it.
type Lexer struct {
	src      []byte
	pos      int
	reporter *diagnostics.Reporter
}

// New creates a Lexer over src, reporting any lexical errors through r.
func New(src []byte, r *diagnostics.Reporter) *Lexer {
	return &Lexer{src: src, reporter: r}
}

// Tokenize scans the whole buffer and returns the head of the
// resulting linked list, terminated by an Eof token. It stops at the
// first unrecognized byte.
func (l *Lexer) Tokenize() (*token.Token, error) {
	head := &token.Token{}
	cur := head

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		cur.Next = tok
		cur = tok
		if tok.Kind == token.Eof {
			break
		}
	}

	return head.Next, nil
}

// next reads and returns the single next token, skipping leading
// whitespace. Errors are reported via the Lexer's diagnostics.Reporter.
func (l *Lexer) next() (*token.Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.src) {
		return &token.Token{Kind: token.Eof, Loc: l.pos}, nil
	}

	start := l.pos

	if kw, ok := l.matchKeyword(); ok {
		l.pos += len(kw)
		return &token.Token{Kind: token.Reserved, Literal: kw, Loc: start}, nil
	}

	if op, ok := l.matchTwoCharOp(); ok {
		l.pos += 2
		return &token.Token{Kind: token.Reserved, Literal: op, Loc: start}, nil
	}

	if ch := l.src[l.pos]; strings.IndexByte(punctuation, ch) >= 0 {
		l.pos++
		return &token.Token{Kind: token.Reserved, Literal: string(ch), Loc: start}, nil
	}

	if isIdentStart(l.src[l.pos]) {
		id := l.readWhile(isIdentCont)
		return &token.Token{Kind: token.Ident, Literal: id, Loc: start}, nil
	}

	if isDigit(l.src[l.pos]) {
		num := l.readWhile(isDigit)
		val, err := strconv.Atoi(num)
		if err != nil {
			return nil, l.reporter.ErrorAt(start, "invalid integer literal %q", num)
		}
		return &token.Token{Kind: token.Num, Literal: num, Val: val, Loc: start}, nil
	}

	return nil, l.reporter.ErrorAt(start, "cannot tokenize: unexpected character %q", l.src[l.pos])
}

// matchKeyword reports the longest reserved word matching the input
// at the current position, provided it is not immediately followed by
// another identifier-continuation character (so "intx" lexes as the
// identifier "intx", not the keyword "int" plus identifier "x").
func (l *Lexer) matchKeyword() (string, bool) {
	rest := l.src[l.pos:]
	best := ""

	for _, kw := range token.Keywords() {
		if len(kw) <= len(best) {
			continue
		}
		if !bytesHasPrefix(rest, kw) {
			continue
		}
		after := l.pos + len(kw)
		if after < len(l.src) && isIdentCont(l.src[after]) {
			continue
		}
		best = kw
	}

	return best, best != ""
}

func (l *Lexer) matchTwoCharOp() (string, bool) {
	if l.pos+2 > len(l.src) {
		return "", false
	}
	two := string(l.src[l.pos : l.pos+2])
	for _, op := range twoCharOps {
		if op == two {
			return op, true
		}
	}
	return "", false
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && isWhitespace(l.src[l.pos]) {
		l.pos++
	}
}

// readWhile consumes and returns bytes from the current position
// while pred holds, advancing the Lexer's position past them.
func (l *Lexer) readWhile(pred func(byte) bool) string {
	start := l.pos
	for l.pos < len(l.src) && pred(l.src[l.pos]) {
		l.pos++
	}
	return string(l.src[start:l.pos])
}

func bytesHasPrefix(b []byte, s string) bool {
	if len(b) < len(s) {
		return false
	}
	return string(b[:len(s)]) == s
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentCont(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
