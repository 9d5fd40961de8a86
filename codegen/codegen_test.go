package codegen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/skx/cc0/ast"
	"github.com/skx/cc0/diagnostics"
	"github.com/skx/cc0/layout"
	"github.com/skx/cc0/lexer"
	"github.com/skx/cc0/parser"
	"github.com/skx/cc0/typecheck"
)

// compile runs a source program all the way through layout (but not
// through the compiler package's error-wrapping) and returns the
// generated assembly text.
func compile(t *testing.T, src string) string {
	t.Helper()

	r := diagnostics.New([]byte(src), &bytes.Buffer{})
	toks, err := lexer.New([]byte(src), r).Tokenize()
	if err != nil {
		t.Fatalf("unexpected lex error: %s", err)
	}
	fn, err := parser.New(toks, r).Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	if err := typecheck.Check(fn, r); err != nil {
		t.Fatalf("unexpected typecheck error: %s", err)
	}
	for f := fn; f != nil; f = f.Next {
		layout.Assign(f)
	}

	var buf bytes.Buffer
	if err := Generate(fn, &buf); err != nil {
		t.Fatalf("unexpected generate error: %s", err)
	}
	return buf.String()
}

func TestGenerateEmitsGlobalAndLabel(t *testing.T) {
	out := compile(t, "int main() { return 0; }")

	if !strings.Contains(out, ".globl main") {
		t.Errorf("missing .globl main:\n%s", out)
	}
	if !strings.Contains(out, "main:") {
		t.Errorf("missing main label:\n%s", out)
	}
	if !strings.Contains(out, ".L.return.main:") {
		t.Errorf("missing return label:\n%s", out)
	}
}

func TestGeneratePrologueAndEpilogue(t *testing.T) {
	out := compile(t, "int main() { int a; return 0; }")

	if !strings.Contains(out, "push %rbp") {
		t.Errorf("missing prologue push:\n%s", out)
	}
	if !strings.Contains(out, "mov  %rsp, %rbp") {
		t.Errorf("missing prologue frame setup:\n%s", out)
	}
	if !strings.Contains(out, "pop  %rbp") {
		t.Errorf("missing epilogue pop:\n%s", out)
	}
	if !strings.Contains(out, "ret") {
		t.Errorf("missing ret:\n%s", out)
	}
}

func TestGenerateNumPush(t *testing.T) {
	out := compile(t, "int main() { return 42; }")

	if !strings.Contains(out, "push $42") {
		t.Errorf("expected push $42:\n%s", out)
	}
}

func TestGenerateArithmeticUsesIdivAndCqo(t *testing.T) {
	out := compile(t, "int main() { int a; int b; return a/b; }")

	if !strings.Contains(out, "cqo") {
		t.Errorf("expected cqo for division:\n%s", out)
	}
	if !strings.Contains(out, "idiv %rdi") {
		t.Errorf("expected idiv %%rdi:\n%s", out)
	}
}

func TestGenerateComparisonEmitsSetAndZeroExtend(t *testing.T) {
	out := compile(t, "int main() { int a; int b; return a<b; }")

	if !strings.Contains(out, "setl %al") {
		t.Errorf("expected setl %%al:\n%s", out)
	}
	if !strings.Contains(out, "movzb %al, %rax") {
		t.Errorf("expected zero-extend:\n%s", out)
	}
}

func TestGenerateIfEmitsTwoLabels(t *testing.T) {
	out := compile(t, "int main() { if (1) return 1; return 0; }")

	if !strings.Contains(out, ".Lelse.") {
		t.Errorf("expected an else label:\n%s", out)
	}
	if !strings.Contains(out, ".Lend.") {
		t.Errorf("expected an end label:\n%s", out)
	}
}

func TestGenerateWhileEmitsLoopLabels(t *testing.T) {
	out := compile(t, "int main() { int i; i=0; while (i<5) i=i+1; return i; }")

	if !strings.Contains(out, ".Lbegin.") {
		t.Errorf("expected a begin label:\n%s", out)
	}
}

func TestGenerateLabelsAreDistinctAcrossStatements(t *testing.T) {
	out := compile(t, `int main() {
		int i;
		i = 0;
		if (i < 1) i = 1; else i = 2;
		if (i < 1) i = 1; else i = 2;
		return i;
	}`)

	if strings.Count(out, ".Lelse.1:") > 1 {
		t.Errorf("expected distinct else labels across statements:\n%s", out)
	}
}

func TestGenerateArrayLVarOmitsLoad(t *testing.T) {
	out := compile(t, "int main() { int a[3]; int *p; p = a; return 0; }")

	// The array's own reference must not load through its address -
	// only the 'lea' for its slot should appear, not an extra load
	// immediately chained off it for that particular reference.
	if !strings.Contains(out, "lea") {
		t.Errorf("expected a lea for the array's address:\n%s", out)
	}
	// a (24 bytes) sits at offset 32; its pushed address goes straight
	// into the assignment's pop, with no load in between.
	if !strings.Contains(out, "  lea  -32(%rbp), %rax\n  push %rax\n  pop  %rdi\n") {
		t.Errorf("expected the array's address to be used without a load:\n%s", out)
	}
}

func TestGeneratePointerArithmeticScalesBySize(t *testing.T) {
	out := compile(t, "int main() { int a[4]; int *p; p=&a[0]; return *(p+1); }")

	if !strings.Contains(out, "mov  $8, %rax") {
		t.Errorf("expected pointee size 8 scale constant:\n%s", out)
	}
}

func TestGenerateFuncCallSpillsArgRegistersInOrder(t *testing.T) {
	out := compile(t, "int add(int x,int y) { return x+y; } int main() { return add(1,2); }")

	if !strings.Contains(out, "call add") {
		t.Errorf("expected call to add:\n%s", out)
	}
	rdi := strings.Index(out, "pop  %rdi")
	rsi := strings.Index(out, "pop  %rsi")
	call := strings.Index(out, "call add")
	if rdi == -1 || rsi == -1 || call == -1 {
		t.Fatalf("missing expected instructions:\n%s", out)
	}
	// Arguments are popped in reverse of push order: the second into
	// %rsi, then the first into %rdi, before the call.
	seq := strings.Index(out, "  pop  %rsi\n  pop  %rdi\n")
	if seq == -1 || seq > call {
		t.Errorf("expected pop %%rsi then pop %%rdi before the call:\n%s", out)
	}
}

func TestGenerateFuncCallAlignmentStub(t *testing.T) {
	out := compile(t, "int f() { return 1; } int main() { return f(); }")

	if !strings.Contains(out, "and  $15, %rax") {
		t.Errorf("expected runtime alignment check:\n%s", out)
	}
	if !strings.Contains(out, ".Lcall.aligned.") {
		t.Errorf("expected aligned-call label:\n%s", out)
	}
}

func TestGenerateParamsSpillToFrame(t *testing.T) {
	out := compile(t, "int add(int x,int y) { return x+y; }")

	if !strings.Contains(out, "mov  %rdi,") {
		t.Errorf("expected first param spilled from %%rdi:\n%s", out)
	}
	if !strings.Contains(out, "mov  %rsi,") {
		t.Errorf("expected second param spilled from %%rsi:\n%s", out)
	}
}
