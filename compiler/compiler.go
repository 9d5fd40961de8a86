// Package compiler ties the pipeline together: lexer, parser, type
// propagator, stack layout, and code generator, run in order over one
// translation unit per Compile call.
package compiler

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/skx/cc0/codegen"
	"github.com/skx/cc0/diagnostics"
	"github.com/skx/cc0/layout"
	"github.com/skx/cc0/lexer"
	"github.com/skx/cc0/parser"
	"github.com/skx/cc0/typecheck"
)

// Compiler holds the state one compilation needs: the source text and
// the reporter every pass below it shares, so diagnostics are anchored
// against the same byte buffer throughout the pipeline.
type Compiler struct {
	source   []byte
	reporter *diagnostics.Reporter
	debug    bool
}

// New creates a Compiler for the given source text. Diagnostics are
// rendered against w (the CLI passes os.Stderr; tests typically pass a
// bytes.Buffer so they can assert on the rendered message).
func New(source []byte, w io.Writer) *Compiler {
	return &Compiler{
		source:   source,
		reporter: diagnostics.New(source, w),
	}
}

// SetDebug toggles emission of an int3 breakpoint at each function's
// entry, for use under a debugger.
func (c *Compiler) SetDebug(val bool) {
	c.debug = val
}

// Reporter returns the Compiler's diagnostics.Reporter, so the CLI
// driver can Emit a returned error's caret-annotated rendering.
func (c *Compiler) Reporter() *diagnostics.Reporter {
	return c.reporter
}

// Compile runs the full pipeline and returns the generated assembly
// text. Each pass's error is wrapped with the pipeline stage that
// produced it (e.g. "parsing: ..."); errors.Cause recovers the
// innermost *diagnostics.Diagnostic, which is what the CLI renders.
func (c *Compiler) Compile() (string, error) {
	toks, err := lexer.New(c.source, c.reporter).Tokenize()
	if err != nil {
		return "", errors.Wrap(err, "lexing")
	}

	program, err := parser.New(toks, c.reporter).Parse()
	if err != nil {
		return "", errors.Wrap(err, "parsing")
	}

	if err := typecheck.Check(program, c.reporter); err != nil {
		return "", errors.Wrap(err, "type checking")
	}

	for fn := program; fn != nil; fn = fn.Next {
		layout.Assign(fn)
	}

	var out bytes.Buffer
	gen := codegen.Generate
	if c.debug {
		gen = codegen.GenerateDebug
	}
	if err := gen(program, &out); err != nil {
		return "", errors.Wrap(err, "code generation")
	}

	return out.String(), nil
}
