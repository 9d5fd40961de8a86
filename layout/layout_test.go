package layout

import (
	"testing"

	"github.com/skx/cc0/ast"
	"github.com/skx/cc0/types"
)

func TestAssignOffsetsInDeclarationOrder(t *testing.T) {
	a := &ast.LVar{Name: "a", Ty: types.IntType}
	b := &ast.LVar{Name: "b", Ty: types.PointerTo(types.IntType)}
	fn := &ast.Function{Locals: []*ast.LVar{a, b}}

	Assign(fn)

	if a.Offset != 16 {
		t.Errorf("a.Offset = %d, want 16", a.Offset)
	}
	if b.Offset != 24 {
		t.Errorf("b.Offset = %d, want 24", b.Offset)
	}
}

func TestAssignArrayTakesItsFullSize(t *testing.T) {
	arr := &ast.LVar{Name: "a", Ty: types.ArrayOf(types.IntType, 4)}
	after := &ast.LVar{Name: "b", Ty: types.IntType}
	fn := &ast.Function{Locals: []*ast.LVar{arr, after}}

	Assign(fn)

	if arr.Offset != 40 {
		t.Errorf("arr.Offset = %d, want 40", arr.Offset)
	}
	if after.Offset != 48 {
		t.Errorf("after.Offset = %d, want 48", after.Offset)
	}
}

// Every computed frame size must be a positive multiple of 16
// (spec.md §8), regardless of how many or what size the locals are.
func TestFrameSizeAlwaysSixteenByteAligned(t *testing.T) {
	cases := [][]int{
		{},
		{8},
		{8, 8},
		{32},
		{8, 32, 8},
	}

	for _, sizes := range cases {
		var locals []*ast.LVar
		for i, sz := range sizes {
			ty := types.IntType
			if sz != 8 {
				ty = types.ArrayOf(types.IntType, sz/8)
			}
			locals = append(locals, &ast.LVar{Name: "v", Ty: ty, Offset: i})
		}
		fn := &ast.Function{Locals: locals}

		Assign(fn)

		if fn.FrameSize <= 0 {
			t.Fatalf("FrameSize = %d, want positive for sizes %v", fn.FrameSize, sizes)
		}
		if fn.FrameSize%16 != 0 {
			t.Errorf("FrameSize = %d, not a multiple of 16 for sizes %v", fn.FrameSize, sizes)
		}
	}
}

func TestAssignNoLocalsStillAligns(t *testing.T) {
	fn := &ast.Function{}

	Assign(fn)

	if fn.FrameSize != 16 {
		t.Errorf("FrameSize = %d, want 16", fn.FrameSize)
	}
}
