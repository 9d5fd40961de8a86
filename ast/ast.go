// Package ast defines the abstract syntax tree the parser produces:
// a tagged-variant Node type, the LVar (local variable) entries each
// function owns, and the Function record that ties them together.
package ast

import (
	"github.com/skx/cc0/token"
	"github.com/skx/cc0/types"
)

// Kind discriminates the tagged Node variant (spec.md §3's Node table).
type Kind int

const (
	Num Kind = iota
	LVarRef
	Add
	Sub
	Mul
	Div
	Eq
	Ne
	Lt
	Le
	PtrAdd
	PtrSub
	PtrDiff
	Assign
	Addr
	Deref
	Return
	If
	While
	For
	Block
	FuncCall
	Sizeof
	Null
)

// LVar is a local variable (including parameters): its name, type,
// and the frame offset the layout pass assigns. Offset is the byte
// magnitude below the frame base pointer; the code generator always
// negates it to form an effective address ("-offset(%rbp)").
type LVar struct {
	Name   string
	Ty     *types.Type
	Offset int
}

// Node is one AST node. Only the fields relevant to Kind are
// populated; unused fields are left zero. Every node also carries Ty
// (filled in by the type propagator) and Tok (the token it was parsed
// from, used to anchor diagnostics raised after parsing, per
// SPEC_FULL.md §3).
type Node struct {
	Kind Kind
	Tok  *token.Token
	Ty   *types.Type

	// Num
	Val int

	// LVarRef
	Var *LVar

	// binary operators: Add, Sub, Mul, Div, Eq, Ne, Lt, Le,
	// PtrAdd, PtrSub, PtrDiff, Assign
	Lhs *Node
	Rhs *Node

	// PtrAdd/PtrSub/PtrDiff: the byte size of the pointee, computed
	// by the type propagator once the pointer operand's type is known.
	Scale int

	// Addr, Deref, Return: the sole operand
	Operand *Node

	// If, While, For
	Init *Node
	Cond *Node
	Then *Node
	Els  *Node
	Inc  *Node

	// Block: linked list of statements
	Body *Node
	Next *Node

	// FuncCall
	FuncName string
	Args     *Node // linked list via Next

	// Sizeof, when applied directly to a basetype ("sizeof(int*)")
	// rather than an expression: the type whose size is wanted.
	// When applied to an expression, Operand is set instead and
	// SizeofTy is left nil until the type propagator resolves
	// Operand's type.
	SizeofTy *types.Type
}

// Function is one top-level function definition: its name, the
// parameter LVars (a prefix of Locals, in declaration order), the
// full Locals list (parameters plus body declarations), its
// statement list (linked via Node.Next), and the frame size the
// layout pass computes.
type Function struct {
	Name      string
	Params    []*LVar
	Locals    []*LVar
	Body      *Node // linked list of statements, via Next
	FrameSize int
	Next      *Function
}

// NewBlock builds a Block node over a (possibly empty) linked list of
// statements.
func NewBlock(stmts *Node) *Node {
	return &Node{Kind: Block, Body: stmts}
}
