// Package typecheck implements the type propagator: a post-order walk
// that assigns a type to every expression node, and rewrites Add/Sub
// nodes that involve a pointer or array operand into the specialized
// PtrAdd/PtrSub/PtrDiff pointer-arithmetic nodes (spec.md §4.5).
package typecheck

import (
	"github.com/skx/cc0/ast"
	"github.com/skx/cc0/diagnostics"
	"github.com/skx/cc0/types"
)

// checker carries the one piece of cross-function state the type
// pass needs: each declared function's parameter count, so that a
// call to a function defined in this file can be arity-checked
// (SPEC_FULL.md §4.5's upgrade over "assume undeclared calls return
// int"). It otherwise processes one function body at a time.
type checker struct {
	arity    map[string]int
	reporter *diagnostics.Reporter
}

// Check walks every function in the program (the linked list returned
// by the parser) and assigns types throughout, rewriting pointer
// arithmetic as it goes. It mutates the AST in place.
func Check(program *ast.Function, r *diagnostics.Reporter) error {
	c := &checker{arity: map[string]int{}, reporter: r}

	for fn := program; fn != nil; fn = fn.Next {
		c.arity[fn.Name] = len(fn.Params)
	}

	for fn := program; fn != nil; fn = fn.Next {
		if err := c.stmtList(fn.Body); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) stmtList(stmts *ast.Node) error {
	for s := stmts; s != nil; s = s.Next {
		if err := c.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) stmt(n *ast.Node) error {
	switch n.Kind {
	case ast.Return:
		return c.expr(n.Operand)

	case ast.If:
		if err := c.expr(n.Cond); err != nil {
			return err
		}
		if err := c.stmt(n.Then); err != nil {
			return err
		}
		if n.Els != nil {
			return c.stmt(n.Els)
		}
		return nil

	case ast.While:
		if err := c.expr(n.Cond); err != nil {
			return err
		}
		return c.stmt(n.Then)

	case ast.For:
		if n.Init != nil {
			if err := c.expr(n.Init); err != nil {
				return err
			}
		}
		if n.Cond != nil {
			if err := c.expr(n.Cond); err != nil {
				return err
			}
		}
		if n.Inc != nil {
			if err := c.expr(n.Inc); err != nil {
				return err
			}
		}
		return c.stmt(n.Then)

	case ast.Block:
		return c.stmtList(n.Body)

	case ast.Null:
		return nil

	default:
		// An expression used as a statement (including the Assign
		// node a declaration-with-initializer produces).
		return c.expr(n)
	}
}

// expr assigns n.Ty (and rewrites n in place, for Add/Sub/Sizeof)
// via a post-order walk: operands are typed before n itself.
func (c *checker) expr(n *ast.Node) error {
	switch n.Kind {
	case ast.Num:
		n.Ty = types.IntType
		return nil

	case ast.LVarRef:
		n.Ty = n.Var.Ty
		return nil

	case ast.Add, ast.Sub:
		return c.addSub(n)

	case ast.Mul, ast.Div:
		if err := c.binaryIntOperands(n); err != nil {
			return err
		}
		n.Ty = types.IntType
		return nil

	case ast.Eq, ast.Ne, ast.Lt, ast.Le:
		if err := c.expr(n.Lhs); err != nil {
			return err
		}
		if err := c.expr(n.Rhs); err != nil {
			return err
		}
		n.Ty = types.IntType
		return nil

	case ast.Assign:
		if err := c.expr(n.Lhs); err != nil {
			return err
		}
		if !isLvalue(n.Lhs) {
			return c.reporter.ErrorAt(n.Lhs.Tok.Loc, "left side of assignment is not an lvalue")
		}
		if err := c.expr(n.Rhs); err != nil {
			return err
		}
		n.Ty = n.Lhs.Ty
		return nil

	case ast.Addr:
		if err := c.expr(n.Operand); err != nil {
			return err
		}
		if !isLvalue(n.Operand) {
			return c.reporter.ErrorAt(n.Operand.Tok.Loc, "cannot take the address of a non-lvalue")
		}
		if n.Operand.Ty.Kind == types.KindArray {
			n.Ty = types.PointerTo(n.Operand.Ty.Base)
		} else {
			n.Ty = types.PointerTo(n.Operand.Ty)
		}
		return nil

	case ast.Deref:
		if err := c.expr(n.Operand); err != nil {
			return err
		}
		if n.Operand.Ty.Base == nil {
			return c.reporter.ErrorAt(n.Tok.Loc, "cannot dereference a value of type %s", n.Operand.Ty)
		}
		n.Ty = n.Operand.Ty.Base
		return nil

	case ast.FuncCall:
		return c.funcCall(n)

	case ast.Sizeof:
		return c.sizeof(n)

	default:
		return c.reporter.Errorf("internal error: unexpected node kind %v in type propagation", n.Kind)
	}
}

// isLvalue reports whether n is an expression the code generator's
// genAddr can take the address of: an LVar reference or a dereference
// (spec.md §3's "Addr operand is an lvalue" invariant, also enforced
// on Assign's left-hand side).
func isLvalue(n *ast.Node) bool {
	return n.Kind == ast.LVarRef || n.Kind == ast.Deref
}

func (c *checker) binaryIntOperands(n *ast.Node) error {
	if err := c.expr(n.Lhs); err != nil {
		return err
	}
	if err := c.expr(n.Rhs); err != nil {
		return err
	}
	if !n.Lhs.Ty.IsInteger() || !n.Rhs.Ty.IsInteger() {
		return c.reporter.ErrorAt(n.Tok.Loc, "operator requires integer operands, got %s and %s", n.Lhs.Ty, n.Rhs.Ty)
	}
	return nil
}

// addSub implements spec.md §4.5's Add/Sub rewrite priority list,
// turning pointer-involving Add/Sub nodes into PtrAdd/PtrSub/PtrDiff.
func (c *checker) addSub(n *ast.Node) error {
	if err := c.expr(n.Lhs); err != nil {
		return err
	}
	if err := c.expr(n.Rhs); err != nil {
		return err
	}

	lPtr, rPtr := n.Lhs.Ty.IsPointerLike(), n.Rhs.Ty.IsPointerLike()

	switch {
	case !lPtr && !rPtr:
		// int + int / int - int: unchanged.
		n.Ty = types.IntType
		return nil

	case n.Kind == ast.Add && lPtr && !rPtr:
		c.rewritePtrAdd(n, n.Lhs, n.Rhs)
		return nil

	case n.Kind == ast.Add && !lPtr && rPtr:
		// int + ptr: swap operands, then as above.
		c.rewritePtrAdd(n, n.Rhs, n.Lhs)
		return nil

	case n.Kind == ast.Sub && lPtr && !rPtr:
		c.rewritePtrSub(n, n.Lhs, n.Rhs)
		return nil

	case n.Kind == ast.Sub && lPtr && rPtr:
		c.rewritePtrDiff(n)
		return nil

	default:
		return c.reporter.ErrorAt(n.Tok.Loc, "invalid operand types %s and %s to %s", n.Lhs.Ty, n.Rhs.Ty, opName(n.Kind))
	}
}

func (c *checker) rewritePtrAdd(n *ast.Node, ptr, integer *ast.Node) {
	n.Kind = ast.PtrAdd
	n.Lhs = ptr
	n.Rhs = integer
	n.Scale = decayedBase(ptr.Ty).Size()
	n.Ty = decayPointer(ptr.Ty)
}

func (c *checker) rewritePtrSub(n *ast.Node, ptr, integer *ast.Node) {
	n.Kind = ast.PtrSub
	n.Lhs = ptr
	n.Rhs = integer
	n.Scale = decayedBase(ptr.Ty).Size()
	n.Ty = decayPointer(ptr.Ty)
}

func (c *checker) rewritePtrDiff(n *ast.Node) {
	n.Kind = ast.PtrDiff
	n.Scale = decayedBase(n.Lhs.Ty).Size()
	n.Ty = types.IntType
}

// decayedBase returns the pointee type whether t is a Ptr or an Array
// (an array's "pointee" for scaling purposes is its element type).
func decayedBase(t *types.Type) *types.Type {
	return t.Base
}

// decayPointer returns the pointer type that a pointer-arithmetic
// result should carry: pointer arithmetic on an array always yields a
// pointer, never another array (array decay, spec.md §4.5).
func decayPointer(t *types.Type) *types.Type {
	if t.Kind == types.KindArray {
		return types.PointerTo(t.Base)
	}
	return t
}

// maxParams is the System V integer-argument register count: six
// (mirrors parser.maxParams, spec.md §4.7's "Maximum 6 arguments").
// A call exceeding it has to be rejected here, before codegen, since
// codegen.funcCall indexes a fixed-size six-element register table
// with no bounds check of its own.
const maxParams = 6

func (c *checker) funcCall(n *ast.Node) error {
	nargs := 0
	for a := n.Args; a != nil; a = a.Next {
		if err := c.expr(a); err != nil {
			return err
		}
		nargs++
	}

	if want, known := c.arity[n.FuncName]; known && want != nargs {
		return c.reporter.ErrorAt(n.Tok.Loc, "%q takes %d argument(s), called with %d", n.FuncName, want, nargs)
	}

	if nargs > maxParams {
		return c.reporter.ErrorAt(n.Tok.Loc, "too many arguments to %q: a call may pass at most %d", n.FuncName, maxParams)
	}

	n.Ty = types.IntType
	return nil
}

// sizeof constant-folds into a Num node once its operand (if any) has
// been typed (SPEC_FULL.md §4.4/§4.5).
func (c *checker) sizeof(n *ast.Node) error {
	var sz int
	if n.SizeofTy != nil {
		sz = n.SizeofTy.Size()
	} else {
		if err := c.expr(n.Operand); err != nil {
			return err
		}
		sz = n.Operand.Ty.Size()
	}

	n.Kind = ast.Num
	n.Val = sz
	n.Ty = types.IntType
	n.Operand = nil
	n.SizeofTy = nil
	return nil
}

func opName(k ast.Kind) string {
	switch k {
	case ast.Add:
		return "+"
	case ast.Sub:
		return "-"
	default:
		return "?"
	}
}
