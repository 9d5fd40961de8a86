// Package parser implements the recursive-descent parser: it turns a
// token list into an abstract syntax tree of functions, resolving
// local-variable references against each function's own locals list
// as it goes.
package parser

import (
	"github.com/samber/lo"

	"github.com/skx/cc0/ast"
	"github.com/skx/cc0/diagnostics"
	"github.com/skx/cc0/token"
	"github.com/skx/cc0/types"
)

// maxParams is the System V integer-argument register count: six.
const maxParams = 6

// Parser holds the parser's cursor and per-function state. There is
// no package-level mutable token pointer (spec.md §9's "token stream
// as an index" note): the cursor is a plain struct field, advanced by
// the methods below.
type Parser struct {
	cur      *token.Token
	reporter *diagnostics.Reporter

	// locals is reset to empty at the start of each function and
	// grows as declarations (including parameters) are parsed.
	locals []*ast.LVar
}

// New creates a Parser over the token list produced by the lexer.
func New(tokens *token.Token, r *diagnostics.Reporter) *Parser {
	return &Parser{cur: tokens, reporter: r}
}

// Parse consumes the whole token stream and returns the head of the
// resulting linked list of functions.
func (p *Parser) Parse() (*ast.Function, error) {
	var head, tail *ast.Function

	for p.cur.Kind != token.Eof {
		fn, err := p.function()
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = fn
		} else {
			tail.Next = fn
		}
		tail = fn
	}

	return head, nil
}

// --- cursor helpers ---------------------------------------------------

func (p *Parser) advance() *token.Token {
	t := p.cur
	p.cur = p.cur.Next
	return t
}

// at reports whether the current token's literal text is s.
func (p *Parser) at(s string) bool {
	return p.cur.Is(s)
}

// consume advances past the current token and returns true if its
// literal is s; otherwise it leaves the cursor untouched and returns
// false.
func (p *Parser) consume(s string) bool {
	if !p.at(s) {
		return false
	}
	p.advance()
	return true
}

// expect requires the current token's literal to be s, consuming it;
// otherwise it raises a caret diagnostic at the current position.
func (p *Parser) expect(s string) error {
	if !p.consume(s) {
		return p.reporter.ErrorAt(p.cur.Loc, "expected %q", s)
	}
	return nil
}

func (p *Parser) expectIdent() (string, error) {
	if p.cur.Kind != token.Ident {
		return "", p.reporter.ErrorAt(p.cur.Loc, "expected an identifier")
	}
	return p.advance().Literal, nil
}

func (p *Parser) expectNumber() (int, error) {
	if p.cur.Kind != token.Num {
		return 0, p.reporter.ErrorAt(p.cur.Loc, "expected a number")
	}
	return p.advance().Val, nil
}

// --- declarations -------------------------------------------------------

// basetype parses "int" "*"*, returning int wrapped in one pointer
// level per "*". It returns an error if the current token is not
// "int"; callers that need to look ahead use isBasetypeStart instead.
func (p *Parser) basetype() (*types.Type, error) {
	if err := p.expect("int"); err != nil {
		return nil, err
	}
	ty := types.IntType
	for p.consume("*") {
		ty = types.PointerTo(ty)
	}
	return ty, nil
}

// isBasetypeStart reports whether the current token could begin a
// basetype, without consuming anything. Used to disambiguate
// "sizeof(int)" from "sizeof(expr)".
func (p *Parser) isBasetypeStart() bool {
	return p.at("int")
}

// typeSuffix parses the "[" num "]" type-suffix production (possibly
// repeated, for multi-dimensional arrays), wrapping base in nested
// Array types innermost-first so that "int a[2][3]" is an
// array-of-2-arrays-of-3-ints.
func (p *Parser) typeSuffix(base *types.Type) (*types.Type, error) {
	if !p.consume("[") {
		return base, nil
	}
	n, err := p.expectNumber()
	if err != nil {
		return nil, err
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	inner, err := p.typeSuffix(base)
	if err != nil {
		return nil, err
	}
	return types.ArrayOf(inner, n), nil
}

// addLocal registers a new local variable for the current function
// and returns it. Declarations always allocate a fresh entry (spec.md
// §4.4); a repeated name shadows the earlier one because findLVar
// walks the list tail-first (SPEC_FULL.md §4.4, DESIGN.md's
// re-declaration decision).
func (p *Parser) addLocal(name string, ty *types.Type) *ast.LVar {
	v := &ast.LVar{Name: name, Ty: ty}
	p.locals = append(p.locals, v)
	return v
}

// findLVar resolves name against the current function's locals,
// searching from the most recently declared entry backwards so a
// later declaration shadows an earlier one of the same name.
func (p *Parser) findLVar(name string) (*ast.LVar, bool) {
	for i := len(p.locals) - 1; i >= 0; i-- {
		if p.locals[i].Name == name {
			return p.locals[i], true
		}
	}
	return nil, false
}

// --- function and parameter lists ---------------------------------------

func (p *Parser) function() (*ast.Function, error) {
	if _, err := p.basetype(); err != nil {
		return nil, err
	}

	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	if err := p.expect("("); err != nil {
		return nil, err
	}

	p.locals = nil

	params, err := p.params()
	if err != nil {
		return nil, err
	}
	if len(params) > maxParams {
		return nil, p.reporter.ErrorAt(p.cur.Loc, "too many parameters: a function may take at most %d", maxParams)
	}

	if err := p.expect("{"); err != nil {
		return nil, err
	}

	body, err := p.stmtList("}")
	if err != nil {
		return nil, err
	}

	if err := p.expect("}"); err != nil {
		return nil, err
	}

	return &ast.Function{
		Name:   name,
		Params: params,
		Locals: lo.Map(p.locals, func(v *ast.LVar, _ int) *ast.LVar { return v }),
		Body:   body,
	}, nil
}

func (p *Parser) params() ([]*ast.LVar, error) {
	var out []*ast.LVar

	if p.at(")") {
		p.advance()
		return out, nil
	}

	for {
		v, err := p.param()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		if p.consume(",") {
			continue
		}
		break
	}

	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) param() (*ast.LVar, error) {
	ty, err := p.basetype()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return p.addLocal(name, ty), nil
}

// stmtList parses statements until the current token's literal is end
// (either "}" for a block, or implicitly unused at top level).
func (p *Parser) stmtList(end string) (*ast.Node, error) {
	var head, tail *ast.Node

	for !p.at(end) {
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = s
		} else {
			tail.Next = s
		}
		tail = s
	}

	return head, nil
}

// --- statements -----------------------------------------------------------

func (p *Parser) stmt() (*ast.Node, error) {
	tok := p.cur

	switch {
	case p.consume("return"):
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Return, Tok: tok, Operand: e}, nil

	case p.consume("if"):
		if err := p.expect("("); err != nil {
			return nil, err
		}
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		then, err := p.stmt()
		if err != nil {
			return nil, err
		}
		node := &ast.Node{Kind: ast.If, Tok: tok, Cond: cond, Then: then}
		if p.consume("else") {
			els, err := p.stmt()
			if err != nil {
				return nil, err
			}
			node.Els = els
		}
		return node, nil

	case p.consume("while"):
		if err := p.expect("("); err != nil {
			return nil, err
		}
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		then, err := p.stmt()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.While, Tok: tok, Cond: cond, Then: then}, nil

	case p.consume("for"):
		if err := p.expect("("); err != nil {
			return nil, err
		}
		node := &ast.Node{Kind: ast.For, Tok: tok}

		if !p.at(";") {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			node.Init = e
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}

		if !p.at(";") {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			node.Cond = e
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}

		if !p.at(")") {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			node.Inc = e
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}

		then, err := p.stmt()
		if err != nil {
			return nil, err
		}
		node.Then = then
		return node, nil

	case p.consume("{"):
		stmts, err := p.stmtList("}")
		if err != nil {
			return nil, err
		}
		if err := p.expect("}"); err != nil {
			return nil, err
		}
		return ast.NewBlock(stmts), nil

	case p.isBasetypeStart():
		return p.declaration()

	default:
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		return e, nil
	}
}

// declaration parses "basetype ident type-suffix ('=' expr)? ';'".
// It always allocates a new local (spec.md §4.4), and returns either
// the initializing Assign node or an explicit Null node when there is
// no initializer (spec.md §9's "declaration() falls off its end"
// bug-fix note).
func (p *Parser) declaration() (*ast.Node, error) {
	tok := p.cur

	base, err := p.basetype()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ty, err := p.typeSuffix(base)
	if err != nil {
		return nil, err
	}

	v := p.addLocal(name, ty)

	var result *ast.Node = &ast.Node{Kind: ast.Null, Tok: tok}
	if p.consume("=") {
		rhs, err := p.expr()
		if err != nil {
			return nil, err
		}
		lhs := &ast.Node{Kind: ast.LVarRef, Tok: tok, Var: v}
		result = &ast.Node{Kind: ast.Assign, Tok: tok, Lhs: lhs, Rhs: rhs}
	}

	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return result, nil
}

// --- expressions ------------------------------------------------------

func (p *Parser) expr() (*ast.Node, error) {
	return p.assign()
}

func (p *Parser) assign() (*ast.Node, error) {
	lhs, err := p.equality()
	if err != nil {
		return nil, err
	}
	if tok := p.cur; p.consume("=") {
		rhs, err := p.assign()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Assign, Tok: tok, Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) equality() (*ast.Node, error) {
	lhs, err := p.relational()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur
		switch {
		case p.consume("=="):
			rhs, err := p.relational()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Eq, Tok: tok, Lhs: lhs, Rhs: rhs}
		case p.consume("!="):
			rhs, err := p.relational()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Ne, Tok: tok, Lhs: lhs, Rhs: rhs}
		default:
			return lhs, nil
		}
	}
}

// relational desugars ">" and ">=" by swapping operands into "<" and
// "<=" (spec.md §4.4): the AST only ever stores the Lt/Le forms.
func (p *Parser) relational() (*ast.Node, error) {
	lhs, err := p.add()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur
		switch {
		case p.consume("<"):
			rhs, err := p.add()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Lt, Tok: tok, Lhs: lhs, Rhs: rhs}
		case p.consume("<="):
			rhs, err := p.add()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Le, Tok: tok, Lhs: lhs, Rhs: rhs}
		case p.consume(">"):
			rhs, err := p.add()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Lt, Tok: tok, Lhs: rhs, Rhs: lhs}
		case p.consume(">="):
			rhs, err := p.add()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Le, Tok: tok, Lhs: rhs, Rhs: lhs}
		default:
			return lhs, nil
		}
	}
}

func (p *Parser) add() (*ast.Node, error) {
	lhs, err := p.mul()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur
		switch {
		case p.consume("+"):
			rhs, err := p.mul()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Add, Tok: tok, Lhs: lhs, Rhs: rhs}
		case p.consume("-"):
			rhs, err := p.mul()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Sub, Tok: tok, Lhs: lhs, Rhs: rhs}
		default:
			return lhs, nil
		}
	}
}

func (p *Parser) mul() (*ast.Node, error) {
	lhs, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur
		switch {
		case p.consume("*"):
			rhs, err := p.unary()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Mul, Tok: tok, Lhs: lhs, Rhs: rhs}
		case p.consume("/"):
			rhs, err := p.unary()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Node{Kind: ast.Div, Tok: tok, Lhs: lhs, Rhs: rhs}
		default:
			return lhs, nil
		}
	}
}

// unary handles the prefix operators. Unary "-x" becomes Sub(0, x);
// unary "+x" is just x (spec.md §4.4).
func (p *Parser) unary() (*ast.Node, error) {
	tok := p.cur

	switch {
	case p.consume("+"):
		return p.unary()

	case p.consume("-"):
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		zero := &ast.Node{Kind: ast.Num, Tok: tok, Val: 0}
		return &ast.Node{Kind: ast.Sub, Tok: tok, Lhs: zero, Rhs: operand}, nil

	case p.consume("&"):
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Addr, Tok: tok, Operand: operand}, nil

	case p.consume("*"):
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Deref, Tok: tok, Operand: operand}, nil

	case p.at("sizeof"):
		return p.sizeofExpr()

	default:
		return p.postfix()
	}
}

// sizeofExpr handles both "sizeof" "(" basetype ")" and
// "sizeof" unary, by peeking past "sizeof (" for a basetype before
// committing to either production (SPEC_FULL.md §4.4, DESIGN.md's
// sizeof decision).
func (p *Parser) sizeofExpr() (*ast.Node, error) {
	tok := p.advance() // "sizeof"

	if p.at("(") {
		save := p.cur
		p.advance() // "("
		if p.isBasetypeStart() {
			base, err := p.basetype()
			if err != nil {
				return nil, err
			}
			ty, err := p.typeSuffix(base)
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.Sizeof, Tok: tok, SizeofTy: ty}, nil
		}
		// Not a basetype: this "(" belongs to a parenthesized
		// expression operand instead. Rewind and fall through to
		// the ordinary unary-operand path.
		p.cur = save
	}

	operand, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.Sizeof, Tok: tok, Operand: operand}, nil
}

// postfix handles array indexing, desugaring "a[i]" to "*(a + i)" at
// parse time (spec.md §4.4): a Deref over an Add, which the type
// propagator later rewrites to PtrAdd.
func (p *Parser) postfix() (*ast.Node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}

	for p.at("[") {
		tok := p.advance() // "["
		idx, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		sum := &ast.Node{Kind: ast.Add, Tok: tok, Lhs: n, Rhs: idx}
		n = &ast.Node{Kind: ast.Deref, Tok: tok, Operand: sum}
	}

	return n, nil
}

func (p *Parser) primary() (*ast.Node, error) {
	tok := p.cur

	if p.consume("(") {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	}

	if p.cur.Kind == token.Num {
		v := p.advance().Val
		return &ast.Node{Kind: ast.Num, Tok: tok, Val: v}, nil
	}

	if p.cur.Kind == token.Ident {
		name := p.advance().Literal

		if p.consume("(") {
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.FuncCall, Tok: tok, FuncName: name, Args: args}, nil
		}

		v, ok := p.findLVar(name)
		if !ok {
			return nil, p.reporter.ErrorAt(tok.Loc, "undefined variable %q", name)
		}
		return &ast.Node{Kind: ast.LVarRef, Tok: tok, Var: v}, nil
	}

	return nil, p.reporter.ErrorAt(tok.Loc, "expected an expression")
}

func (p *Parser) args() (*ast.Node, error) {
	var head, tail *ast.Node

	if p.consume(")") {
		return nil, nil
	}

	for {
		a, err := p.assign()
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = a
		} else {
			tail.Next = a
		}
		tail = a

		if p.consume(",") {
			continue
		}
		break
	}

	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return head, nil
}
