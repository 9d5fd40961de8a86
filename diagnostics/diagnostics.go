// Package diagnostics renders point-in-input error reports with a
// caret underline, the way every later compiler stage surfaces a
// fatal problem to the user.
//
// Unlike the C compiler this design descends from, a Diagnostic is
// never printed-and-exited in place: every pass returns it as a plain
// error and only the CLI driver prints and terminates. This keeps the
// lexer, parser, type propagator, and code generator unit-testable
// without forking a subprocess.
package diagnostics

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Reporter is bound to one source buffer and renders Diagnostics
// against it. A single compilation creates exactly one Reporter and
// threads it through the lexer, parser, and type propagator.
type Reporter struct {
	src []byte
	w   io.Writer
	// color forces (or disables) colorized rendering, overriding the
	// terminal auto-detection; nil means auto-detect from w.
	color *bool
}

// New creates a Reporter over src. Emit writes rendered Diagnostics
// to w; Render itself only returns the text.
func New(src []byte, w io.Writer) *Reporter {
	return &Reporter{src: src, w: w}
}

// SetColor forces colorized (true) or plain (false) rendering,
// overriding terminal auto-detection. Tests use this to get
// deterministic output regardless of where they run.
func (r *Reporter) SetColor(enabled bool) {
	r.color = &enabled
}

// Diagnostic is a single fatal, caret-annotated error. It implements
// the error interface so every pass can return it as a plain error;
// Render produces the caret-underlined source excerpt for display.
type Diagnostic struct {
	reporter *Reporter
	msg      string
	loc      int
	hasLoc   bool
}

// Error implements the error interface with the bare message, so a
// Diagnostic behaves like any other wrapped error when passed through
// github.com/pkg/errors.Wrap in the compiler package.
func (d *Diagnostic) Error() string {
	return d.msg
}

// Render produces the full caret-annotated report: the message, and,
// for Diagnostics created with ErrorAt, the source line containing the
// location plus a caret positioned under the offending column.
func (d *Diagnostic) Render() string {
	if !d.hasLoc {
		return d.msg + "\n"
	}

	lineStart, lineEnd := lineBounds(d.reporter.src, d.loc)
	line := string(d.reporter.src[lineStart:lineEnd])
	col := d.loc - lineStart

	caret := fmt.Sprintf("%s^ %s", spaces(col), d.msg)

	if d.reporter.useColor() {
		caret = color.RedString(caret)
	}

	var b bytes.Buffer
	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, caret)
	return b.String()
}

// Errorf builds a Diagnostic carrying no source location.
func (r *Reporter) Errorf(format string, args ...any) error {
	return &Diagnostic{reporter: r, msg: fmt.Sprintf(format, args...)}
}

// ErrorAt builds a Diagnostic that, when Rendered, underlines the
// byte offset loc within the Reporter's source buffer.
func (r *Reporter) ErrorAt(loc int, format string, args ...any) error {
	return &Diagnostic{
		reporter: r,
		msg:      fmt.Sprintf(format, args...),
		loc:      loc,
		hasLoc:   true,
	}
}

// Emit writes d.Render() to the Reporter's configured sink. The CLI
// driver is the only caller of this method; every other pass just
// returns the Diagnostic as an error.
func (r *Reporter) Emit(d error) {
	if diag, ok := d.(*Diagnostic); ok {
		fmt.Fprint(r.w, diag.Render())
		return
	}
	fmt.Fprintln(r.w, d.Error())
}

func (r *Reporter) useColor() bool {
	if r.color != nil {
		return *r.color
	}
	f, ok := r.w.(fileWriter)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

// fileWriter is the narrow slice of *os.File that useColor needs;
// kept as an interface so tests can pass any io.Writer without a
// terminal, and os.Stderr satisfies it directly.
type fileWriter interface {
	io.Writer
	Fd() uintptr
}

func lineBounds(src []byte, loc int) (start, end int) {
	if loc > len(src) {
		loc = len(src)
	}
	start = loc
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end = loc
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return start, end
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
