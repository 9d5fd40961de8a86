// Package layout assigns byte offsets to each function's locals
// (including its parameters) and computes the 16-byte-aligned frame
// size the code generator's prologue/epilogue need (spec.md §4.6).
package layout

import "github.com/skx/cc0/ast"

// startOffset is the value the running offset starts from (spec.md
// §4.6). Each local's offset is startOffset plus the aligned sizes of
// that local and every local before it, so the first 8-byte local
// lands at 16 and the word at -8(%rbp) is left unused; a function
// with no locals still gets a nonzero (16-byte) frame.
const startOffset = 8

// Assign walks fn.Locals in declaration order, giving each one an
// offset (the byte magnitude below the frame's base pointer), and
// sets fn.FrameSize to the 16-byte-aligned total. It mutates fn in
// place and may be called once per function after parsing.
func Assign(fn *ast.Function) {
	offset := startOffset
	for _, v := range fn.Locals {
		offset += align(v.Ty.Size(), 8)
		v.Offset = offset
	}
	fn.FrameSize = align(offset, 16)
}

// align rounds n up to the next multiple of to.
func align(n, to int) int {
	return (n + to - 1) / to * to
}
