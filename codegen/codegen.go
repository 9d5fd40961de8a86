// Package codegen walks the typed, layout-assigned AST and emits
// x86-64 System V AT&T-syntax assembly, one function at a time, using
// the machine stack itself as the expression-evaluation stack
// (spec.md §4.7).
package codegen

import (
	"bufio"
	"fmt"
	"io"

	"github.com/skx/cc0/ast"
)

// argRegs are the System V integer argument registers, in order.
var argRegs = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}

// lineWriter is the sink every emission method writes through.
// bufWriter adapts a *bufio.Writer to it; tests pass a bytes.Buffer to
// Generate and assert against the in-memory text without parsing real
// assembly.
type lineWriter interface {
	WriteLine(format string, args ...interface{})
}

// bufWriter adapts a *bufio.Writer to lineWriter.
type bufWriter struct {
	w *bufio.Writer
}

func (b *bufWriter) WriteLine(format string, args ...interface{}) {
	fmt.Fprintf(b.w, format, args...)
	b.w.WriteByte('\n')
}

// generator holds the state emission needs beyond the AST itself: the
// output sink, the current function's name (for its return label), the
// debug flag, and a monotonic label counter, scoped to a single Generate
// call (never a package-level global, so compiling several programs
// in the same process never collides labels).
type generator struct {
	out      lineWriter
	labels   int
	funcName string
	debug    bool
}

// Generate writes the full assembly translation of program (the
// linked list of functions the parser produced) to w.
func Generate(program *ast.Function, w io.Writer) error {
	return generate(program, w, false)
}

// GenerateDebug is Generate, but additionally inserts an int3
// breakpoint at the entry of every function, for use under a
// debugger (SPEC_FULL.md §6's --debug flag).
func GenerateDebug(program *ast.Function, w io.Writer) error {
	return generate(program, w, true)
}

func generate(program *ast.Function, w io.Writer, debug bool) error {
	bw := bufio.NewWriter(w)
	g := &generator{out: &bufWriter{w: bw}, debug: debug}

	g.out.WriteLine(".text")
	for fn := program; fn != nil; fn = fn.Next {
		g.function(fn)
	}
	return bw.Flush()
}

func (g *generator) label() int {
	g.labels++
	return g.labels
}

func (g *generator) function(fn *ast.Function) {
	g.funcName = fn.Name

	g.out.WriteLine(".globl %s", fn.Name)
	g.out.WriteLine("%s:", fn.Name)
	g.out.WriteLine("  push %%rbp")
	g.out.WriteLine("  mov  %%rsp, %%rbp")
	g.out.WriteLine("  sub  $%d, %%rsp", fn.FrameSize)

	if g.debug {
		g.out.WriteLine("  int3")
	}

	for i, p := range fn.Params {
		g.out.WriteLine("  mov  %s, -%d(%%rbp)", argRegs[i], p.Offset)
	}

	for s := fn.Body; s != nil; s = s.Next {
		g.stmt(s)
	}

	g.out.WriteLine(".L.return.%s:", fn.Name)
	g.out.WriteLine("  mov  %%rbp, %%rsp")
	g.out.WriteLine("  pop  %%rbp")
	g.out.WriteLine("  ret")
}

func (g *generator) stmt(n *ast.Node) {
	switch n.Kind {
	case ast.Return:
		g.gen(n.Operand)
		g.out.WriteLine("  pop  %%rax")
		g.out.WriteLine("  jmp  .L.return.%s", g.funcName)

	case ast.If:
		lelse := g.label()
		lend := g.label()
		g.gen(n.Cond)
		g.out.WriteLine("  pop  %%rax")
		g.out.WriteLine("  cmp  $0, %%rax")
		g.out.WriteLine("  je   .Lelse.%d", lelse)
		g.stmt(n.Then)
		g.out.WriteLine("  jmp  .Lend.%d", lend)
		g.out.WriteLine(".Lelse.%d:", lelse)
		if n.Els != nil {
			g.stmt(n.Els)
		}
		g.out.WriteLine(".Lend.%d:", lend)

	case ast.While:
		lbegin := g.label()
		lend := g.label()
		g.out.WriteLine(".Lbegin.%d:", lbegin)
		g.gen(n.Cond)
		g.out.WriteLine("  pop  %%rax")
		g.out.WriteLine("  cmp  $0, %%rax")
		g.out.WriteLine("  je   .Lend.%d", lend)
		g.stmt(n.Then)
		g.out.WriteLine("  jmp  .Lbegin.%d", lbegin)
		g.out.WriteLine(".Lend.%d:", lend)

	case ast.For:
		lbegin := g.label()
		lend := g.label()
		if n.Init != nil {
			g.gen(n.Init)
			g.out.WriteLine("  pop  %%rax")
		}
		g.out.WriteLine(".Lbegin.%d:", lbegin)
		if n.Cond != nil {
			g.gen(n.Cond)
			g.out.WriteLine("  pop  %%rax")
			g.out.WriteLine("  cmp  $0, %%rax")
			g.out.WriteLine("  je   .Lend.%d", lend)
		}
		g.stmt(n.Then)
		if n.Inc != nil {
			g.gen(n.Inc)
			g.out.WriteLine("  pop  %%rax")
		}
		g.out.WriteLine("  jmp  .Lbegin.%d", lbegin)
		g.out.WriteLine(".Lend.%d:", lend)

	case ast.Block:
		for s := n.Body; s != nil; s = s.Next {
			g.stmt(s)
		}

	case ast.Null:
		// An empty declaration: nothing to emit.

	default:
		// An expression used as a statement; its pushed value is
		// simply discarded.
		g.gen(n)
		g.out.WriteLine("  pop  %%rax")
	}
}

// gen emits code for the expression n, leaving exactly one 8-byte
// value pushed on the machine stack (spec.md §4.7's value-stack
// discipline).
func (g *generator) gen(n *ast.Node) {
	switch n.Kind {
	case ast.Num:
		g.out.WriteLine("  push $%d", n.Val)

	case ast.LVarRef:
		g.genAddr(n)
		if !n.Var.Ty.IsArray() {
			g.out.WriteLine("  pop  %%rax")
			g.out.WriteLine("  mov  (%%rax), %%rax")
			g.out.WriteLine("  push %%rax")
		}

	case ast.Addr:
		g.genAddr(n.Operand)

	case ast.Deref:
		g.gen(n.Operand)
		if !n.Ty.IsArray() {
			g.out.WriteLine("  pop  %%rax")
			g.out.WriteLine("  mov  (%%rax), %%rax")
			g.out.WriteLine("  push %%rax")
		}

	case ast.Assign:
		g.genAddr(n.Lhs)
		g.gen(n.Rhs)
		g.out.WriteLine("  pop  %%rdi")
		g.out.WriteLine("  pop  %%rax")
		g.out.WriteLine("  mov  %%rdi, (%%rax)")
		g.out.WriteLine("  push %%rdi")

	case ast.Add:
		g.binary(n, "  add  %%rdi, %%rax")
	case ast.Sub:
		g.binary(n, "  sub  %%rdi, %%rax")
	case ast.Mul:
		g.binary(n, "  imul %%rdi, %%rax")
	case ast.Div:
		g.genOperands(n)
		g.out.WriteLine("  cqo")
		g.out.WriteLine("  idiv %%rdi")
		g.out.WriteLine("  push %%rax")

	case ast.PtrAdd:
		g.genPtrArith(n, "  add  %%rdi, %%rax")
	case ast.PtrSub:
		g.genPtrArith(n, "  sub  %%rdi, %%rax")

	case ast.PtrDiff:
		g.genOperands(n)
		g.out.WriteLine("  sub  %%rdi, %%rax")
		g.out.WriteLine("  cqo")
		g.out.WriteLine("  mov  $%d, %%rdi", n.Scale)
		g.out.WriteLine("  idiv %%rdi")
		g.out.WriteLine("  push %%rax")

	case ast.Eq:
		g.compare(n, "sete")
	case ast.Ne:
		g.compare(n, "setne")
	case ast.Lt:
		g.compare(n, "setl")
	case ast.Le:
		g.compare(n, "setle")

	case ast.FuncCall:
		g.funcCall(n)

	default:
		panic(fmt.Sprintf("internal error: unexpected node kind %v in code generation", n.Kind))
	}
}

// genAddr pushes the effective address of an lvalue expression,
// without loading through it.
func (g *generator) genAddr(n *ast.Node) {
	switch n.Kind {
	case ast.LVarRef:
		g.out.WriteLine("  lea  -%d(%%rbp), %%rax", n.Var.Offset)
		g.out.WriteLine("  push %%rax")

	case ast.Deref:
		g.gen(n.Operand)

	default:
		panic(fmt.Sprintf("internal error: node kind %v is not an lvalue", n.Kind))
	}
}

// genOperands evaluates lhs then rhs, and pops them into %rax/%rdi
// (lhs, rhs respectively) — the shared setup every binary arithmetic
// emission needs before computing into %rax.
func (g *generator) genOperands(n *ast.Node) {
	g.gen(n.Lhs)
	g.gen(n.Rhs)
	g.out.WriteLine("  pop  %%rdi")
	g.out.WriteLine("  pop  %%rax")
}

func (g *generator) binary(n *ast.Node, op string) {
	g.genOperands(n)
	g.out.WriteLine(op)
	g.out.WriteLine("  push %%rax")
}

// genPtrArith scales the integer operand by the pointee size before
// the arithmetic (spec.md §4.7's PtrAdd/PtrSub rule).
func (g *generator) genPtrArith(n *ast.Node, op string) {
	g.gen(n.Lhs)
	g.gen(n.Rhs)
	g.out.WriteLine("  pop  %%rdi")
	g.out.WriteLine("  mov  $%d, %%rax", n.Scale)
	g.out.WriteLine("  imul %%rax, %%rdi")
	g.out.WriteLine("  pop  %%rax")
	g.out.WriteLine(op)
	g.out.WriteLine("  push %%rax")
}

func (g *generator) compare(n *ast.Node, set string) {
	g.genOperands(n)
	g.out.WriteLine("  cmp  %%rdi, %%rax")
	g.out.WriteLine("  %s %%al", set)
	g.out.WriteLine("  movzb %%al, %%rax")
	g.out.WriteLine("  push %%rax")
}

// funcCall evaluates each argument left to right (each pushing one
// value), then pops them into the System V argument registers in
// reverse of push order so the first argument lands in %rdi, aligns
// %rsp to 16 bytes at the call site with a runtime-checked stub, and
// pushes the return value.
func (g *generator) funcCall(n *ast.Node) {
	nargs := 0
	for a := n.Args; a != nil; a = a.Next {
		g.gen(a)
		nargs++
	}
	for i := nargs - 1; i >= 0; i-- {
		g.out.WriteLine("  pop  %s", argRegs[i])
	}

	laligned := g.label()
	lend := g.label()
	g.out.WriteLine("  mov  %%rsp, %%rax")
	g.out.WriteLine("  and  $15, %%rax")
	g.out.WriteLine("  jz   .Lcall.aligned.%d", laligned)
	g.out.WriteLine("  sub  $8, %%rsp")
	g.out.WriteLine("  call %s", n.FuncName)
	g.out.WriteLine("  add  $8, %%rsp")
	g.out.WriteLine("  jmp  .Lcall.end.%d", lend)
	g.out.WriteLine(".Lcall.aligned.%d:", laligned)
	g.out.WriteLine("  call %s", n.FuncName)
	g.out.WriteLine(".Lcall.end.%d:", lend)
	g.out.WriteLine("  push %%rax")
}
