package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skx/cc0/ast"
	"github.com/skx/cc0/diagnostics"
	"github.com/skx/cc0/lexer"
	"github.com/skx/cc0/token"
)

func parse(t *testing.T, src string) (*ast.Function, error) {
	t.Helper()

	r := diagnostics.New([]byte(src), &bytes.Buffer{})
	toks, err := lexer.New([]byte(src), r).Tokenize()
	if err != nil {
		t.Fatalf("unexpected lex error: %s", err)
	}
	return New(toks, r).Parse()
}

func mustParse(t *testing.T, src string) *ast.Function {
	t.Helper()
	fn, err := parse(t, src)
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %s", src, err)
	}
	return fn
}

// Test a minimal function parses to one Return statement.
func TestParseMinimalFunction(t *testing.T) {
	fn := mustParse(t, "int main() { return 0; }")

	assert.Equal(t, "main", fn.Name)
	assert.NotNil(t, fn.Body)
	assert.Equal(t, ast.Return, fn.Body.Kind)
	assert.Nil(t, fn.Body.Next)
}

// Test that "a - b - c" parses left-associatively: (a - b) - c.
func TestSubtractionAssociativity(t *testing.T) {
	fn := mustParse(t, "int main() { int a; int b; int c; return a-b-c; }")

	ret := fn.Body.Next.Next.Next
	assert.Equal(t, ast.Return, ret.Kind)

	outer := ret.Operand
	assert.Equal(t, ast.Sub, outer.Kind)
	assert.Equal(t, ast.Sub, outer.Lhs.Kind, "outer.Lhs should be (a - b)")
	assert.Equal(t, ast.LVarRef, outer.Rhs.Kind, "outer.Rhs should be bare c")
}

// Test that "a = b = c" parses right-associatively: a = (b = c).
func TestAssignAssociativity(t *testing.T) {
	fn := mustParse(t, "int main() { int a; int b; int c; a=b=c; return 0; }")

	assignStmt := fn.Body.Next.Next.Next
	assert.Equal(t, ast.Assign, assignStmt.Kind)
	assert.Equal(t, ast.LVarRef, assignStmt.Lhs.Kind)
	assert.Equal(t, ast.Assign, assignStmt.Rhs.Kind, "rhs of outer assign should itself be an assign")
}

// Test that ">" and ">=" desugar into swapped "<" and "<=" nodes, so
// "a > b" produces the same shape as "b < a".
func TestComparisonDesugaring(t *testing.T) {
	gt := mustParse(t, "int main() { int a; int b; return a>b; }")
	lt := mustParse(t, "int main() { int a; int b; return b<a; }")

	gtNode := gt.Body.Next.Next.Operand
	ltNode := lt.Body.Next.Next.Operand

	assert.Equal(t, ast.Lt, gtNode.Kind)
	assert.Equal(t, ast.Lt, ltNode.Kind)
	assert.Equal(t, gtNode.Lhs.Var.Name, ltNode.Lhs.Var.Name)
	assert.Equal(t, gtNode.Rhs.Var.Name, ltNode.Rhs.Var.Name)
}

// Test that a[i] desugars to *(a + i): a Deref over an Add.
func TestArrayIndexDesugaring(t *testing.T) {
	fn := mustParse(t, "int main() { int a[3]; return a[1]; }")

	ret := fn.Body.Next
	assert.Equal(t, ast.Deref, ret.Operand.Kind)
	assert.Equal(t, ast.Add, ret.Operand.Operand.Kind)
}

// Test that a declaration with an initializer produces an Assign node,
// and one without produces an explicit Null (spec.md §9's
// declaration()-falls-off-the-end bug fix).
func TestDeclarationInitializer(t *testing.T) {
	fn := mustParse(t, "int main() { int a = 3; int b; return 0; }")

	assert.Equal(t, ast.Assign, fn.Body.Kind)
	assert.Equal(t, ast.Null, fn.Body.Next.Kind)
}

// Test that a missing "else" leaves Els explicitly nil rather than
// reading uninitialized state (spec.md §9).
func TestIfWithoutElse(t *testing.T) {
	fn := mustParse(t, "int main() { if (1) return 1; return 0; }")

	assert.Equal(t, ast.If, fn.Body.Kind)
	assert.Nil(t, fn.Body.Els)
}

// Test that re-declaring a name shadows the earlier declaration
// (DESIGN.md's re-declaration decision).
func TestRedeclarationShadows(t *testing.T) {
	fn := mustParse(t, "int main() { int a; int a; return a; }")

	ret := fn.Body.Next.Next
	assert.Same(t, fn.Locals[1], ret.Operand.Var)
}

// Test that an unknown identifier is a parse error.
func TestUndefinedVariable(t *testing.T) {
	_, err := parse(t, "int main() { return x; }")
	assert.Error(t, err)
}

// Test that more than six parameters is rejected (System V integer
// argument register limit).
func TestTooManyParameters(t *testing.T) {
	_, err := parse(t, "int f(int a,int b,int c,int d,int e,int f,int g) { return 0; }")
	assert.Error(t, err)
}

// Test sizeof applied to an expression and to a bare basetype both parse.
func TestSizeof(t *testing.T) {
	fn := mustParse(t, "int main() { int a; return sizeof(a) + sizeof(int*); }")

	ret := fn.Body.Next
	add := ret.Operand
	assert.Equal(t, ast.Add, add.Kind)
	assert.Equal(t, ast.Sizeof, add.Lhs.Kind)
	assert.NotNil(t, add.Lhs.Operand, "sizeof(a) should carry an operand expression")
	assert.Equal(t, ast.Sizeof, add.Rhs.Kind)
	assert.NotNil(t, add.Rhs.SizeofTy, "sizeof(int*) should carry a resolved type")
}

// Test that function calls collect arguments in source order.
func TestFuncCallArgs(t *testing.T) {
	fn := mustParse(t, "int add(int x,int y) { return x+y; } int main() { return add(1,2); }")

	call := fn.Next.Body.Operand
	assert.Equal(t, ast.FuncCall, call.Kind)
	assert.Equal(t, 1, call.Args.Val)
	assert.Equal(t, 2, call.Args.Next.Val)
	assert.Nil(t, call.Args.Next.Next)
}

// Test that whitespace differences don't change the parsed AST shape
// (spec.md §8's parser-idempotence-under-whitespace property).
func TestWhitespaceIdempotence(t *testing.T) {
	a := mustParse(t, "int main(){int a;a=3;return a;}")
	b := mustParse(t, "int   main (  )  {  int  a ; a = 3 ; return   a ; }")

	assert.Equal(t, a.Body.Kind, b.Body.Kind)
	assert.Equal(t, a.Body.Next.Kind, b.Body.Next.Kind)
	assert.Equal(t, a.Body.Next.Next.Kind, b.Body.Next.Next.Kind)
}
