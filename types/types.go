// Package types implements the static type lattice: int, pointer-to,
// and array-of, plus the size/predicate helpers the type propagator
// and code generator need.
package types

// Kind discriminates the tagged Type variant.
type Kind int

const (
	// KindInt is the sole scalar type in this language subset.
	KindInt Kind = iota

	// KindPtr is a pointer to some Base type.
	KindPtr

	// KindArray is a fixed-length array of some Base type.
	KindArray
)

// Type is immutable once constructed. Int is a process-wide singleton
// (IntType below); Ptr and Array are built fresh by PointerTo and
// ArrayOf but are never mutated afterwards.
type Type struct {
	Kind Kind
	Base *Type // set for KindPtr and KindArray
	Len  int   // set for KindArray: number of elements
}

// sizeof(int) is fixed at 8 bytes throughout this design, for
// simplicity on a 64-bit target (spec.md §9): every local, whether
// scalar or pointer, occupies a full machine word.
const intSize = 8

// IntType is the shared singleton for the "int" type. Every Num,
// comparison, and integer-typed LVar node points at this same value.
var IntType = &Type{Kind: KindInt}

// PointerTo constructs a pointer-to-base type. Pointers are always
// one machine word regardless of what they point to.
func PointerTo(base *Type) *Type {
	return &Type{Kind: KindPtr, Base: base}
}

// ArrayOf constructs a fixed-length array-of-base type.
func ArrayOf(base *Type, length int) *Type {
	return &Type{Kind: KindArray, Base: base, Len: length}
}

// Size returns the type's size in bytes: 8 for int and any pointer,
// base.Size()*Len for an array.
func (t *Type) Size() int {
	switch t.Kind {
	case KindInt, KindPtr:
		return intSize
	case KindArray:
		return t.Base.Size() * t.Len
	default:
		return 0
	}
}

// IsInteger reports whether t is the scalar int type.
func (t *Type) IsInteger() bool {
	return t.Kind == KindInt
}

// IsPointerLike reports whether t is a pointer or an array — the two
// kinds that decay into an address and that the type propagator must
// route through PtrAdd/PtrSub/PtrDiff rather than plain Add/Sub.
func (t *Type) IsPointerLike() bool {
	return t.Kind == KindPtr || t.Kind == KindArray
}

// IsArray reports whether t is an array type — the code generator's
// decay rule omits the load for these (spec.md §4.7).
func (t *Type) IsArray() bool {
	return t.Kind == KindArray
}

// String renders the type the way a diagnostic message would name it:
// "int", "int*", "int**", "int[]", "int*[]", and so on. Arrays are
// rendered without their length.
func (t *Type) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindPtr:
		return t.Base.String() + "*"
	case KindArray:
		return t.Base.String() + "[]"
	default:
		return "?"
	}
}
