// Package types defines the semantic type domain consumed by the backend.
// Every value here is produced upstream by the type checker; the backend
// treats Type as an opaque, already-resolved sum and never attempts
// inference, constraint solving, or borrow checking over it.
package types

import "strings"

// Type is a semantic type. All implementations are value-comparable by
// structural equality of their fields, which the mangler and LLVM lowering
// both depend on: two structurally identical types must mangle and lower
// identically regardless of how they were spelled in source.
type Type interface {
	String() string
	IsType()
}

// PrimitiveKind enumerates the primitive type catalogue.
type PrimitiveKind string

const (
	I8    PrimitiveKind = "i8"
	I16   PrimitiveKind = "i16"
	I32   PrimitiveKind = "i32"
	I64   PrimitiveKind = "i64"
	I128  PrimitiveKind = "i128"
	U8    PrimitiveKind = "u8"
	U16   PrimitiveKind = "u16"
	U32   PrimitiveKind = "u32"
	U64   PrimitiveKind = "u64"
	U128  PrimitiveKind = "u128"
	F32   PrimitiveKind = "f32"
	F64   PrimitiveKind = "f64"
	Bool  PrimitiveKind = "bool"
	Char  PrimitiveKind = "char"
	Str   PrimitiveKind = "str"
	Unit  PrimitiveKind = "unit"
	Never PrimitiveKind = "never"
)

// IsInteger reports whether the kind is one of the fixed-width integer kinds.
func (k PrimitiveKind) IsInteger() bool {
	switch k {
	case I8, I16, I32, I64, I128, U8, U16, U32, U64, U128:
		return true
	}
	return false
}

// IsUnsigned reports whether the integer kind is unsigned. Non-integer kinds
// report false.
func (k PrimitiveKind) IsUnsigned() bool {
	switch k {
	case U8, U16, U32, U64, U128:
		return true
	}
	return false
}

// IsFloat reports whether the kind is a floating-point kind.
func (k PrimitiveKind) IsFloat() bool {
	return k == F32 || k == F64
}

// BitWidth returns the storage width in bits for integer, bool, and char
// kinds. Returns 0 for kinds with no fixed integer width (floats, str, unit,
// never).
func (k PrimitiveKind) BitWidth() int {
	switch k {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32, Char:
		return 32
	case I64, U64:
		return 64
	case I128, U128:
		return 128
	case Bool:
		return 1
	}
	return 0
}

// Primitive is a primitive type: fixed-width integers, floats, bool, char,
// str, unit, and never.
type Primitive struct {
	Kind PrimitiveKind
}

func (p *Primitive) String() string { return string(p.Kind) }
func (p *Primitive) IsType()        {}

// Common primitive instances, interned for convenient comparison in tests
// and call sites that don't have a concrete Type handy.
var (
	TypeI8    = &Primitive{Kind: I8}
	TypeI16   = &Primitive{Kind: I16}
	TypeI32   = &Primitive{Kind: I32}
	TypeI64   = &Primitive{Kind: I64}
	TypeI128  = &Primitive{Kind: I128}
	TypeU8    = &Primitive{Kind: U8}
	TypeU16   = &Primitive{Kind: U16}
	TypeU32   = &Primitive{Kind: U32}
	TypeU64   = &Primitive{Kind: U64}
	TypeU128  = &Primitive{Kind: U128}
	TypeF32   = &Primitive{Kind: F32}
	TypeF64   = &Primitive{Kind: F64}
	TypeBool  = &Primitive{Kind: Bool}
	TypeChar  = &Primitive{Kind: Char}
	TypeStr   = &Primitive{Kind: Str}
	TypeUnit  = &Primitive{Kind: Unit}
	TypeNever = &Primitive{Kind: Never}
)

// Pointer is a raw pointer-to-T, with an independent mutability flag (`*T`
// vs `*mut T`).
type Pointer struct {
	Elem    Type
	Mutable bool
}

func (p *Pointer) String() string {
	if p.Mutable {
		return "*mut " + p.Elem.String()
	}
	return "*" + p.Elem.String()
}
func (p *Pointer) IsType() {}

// Reference is a borrowed reference-to-T (`&T` vs `&mut T`).
type Reference struct {
	Elem    Type
	Mutable bool
}

func (r *Reference) String() string {
	if r.Mutable {
		return "&mut " + r.Elem.String()
	}
	return "&" + r.Elem.String()
}
func (r *Reference) IsType() {}

// Named is a reference to a user-defined or library type: a struct, enum,
// or alias, qualified by the module it was declared in and instantiated
// with concrete type arguments (empty for non-generic types).
type Named struct {
	Name       string
	ModulePath string // e.g. "core::ops::range", "" for the local module
	TypeArgs   []Type
	Ref        Type // resolved definition (*Struct or *Enum), nil if unresolved
}

func (n *Named) String() string {
	if len(n.TypeArgs) == 0 {
		return n.Name
	}
	var args []string
	for _, a := range n.TypeArgs {
		args = append(args, a.String())
	}
	return n.Name + "[" + strings.Join(args, ", ") + "]"
}
func (n *Named) IsType() {}

// GenericParam is an unresolved generic parameter placeholder (`T`, `E`)
// appearing inside a generic function or impl body before substitution.
type GenericParam struct {
	Name string
}

func (g *GenericParam) String() string { return g.Name }
func (g *GenericParam) IsType()        {}

// Function is a function type: parameter types, return type, and the
// effect row the function may perform (empty for pure functions).
type Function struct {
	Params  []Type
	Return  Type
	Effects []string
}

func (f *Function) String() string {
	var params []string
	for _, p := range f.Params {
		params = append(params, p.String())
	}
	ret := "unit"
	if f.Return != nil {
		ret = f.Return.String()
	}
	return "fn(" + strings.Join(params, ", ") + ") -> " + ret
}
func (f *Function) IsType() {}

// Tuple is a fixed-arity heterogeneous product type.
type Tuple struct {
	Elements []Type
}

func (t *Tuple) String() string {
	var elems []string
	for _, e := range t.Elements {
		elems = append(elems, e.String())
	}
	return "(" + strings.Join(elems, ", ") + ")"
}
func (t *Tuple) IsType() {}

// Array is a fixed-length array-of-T.
type Array struct {
	Elem Type
	Len  int
}

func (a *Array) String() string {
	return "[" + a.Elem.String() + "; " + itoa(a.Len) + "]"
}
func (a *Array) IsType() {}

// Struct is a struct definition, generic over zero or more type parameters.
type Struct struct {
	Name       string
	ModulePath string
	TypeParams []string
	Fields     []Field
}

type Field struct {
	Name string
	Type Type
}

func (s *Struct) String() string { return s.Name }
func (s *Struct) IsType()        {}

// Enum is a tagged-union definition, generic over zero or more type
// parameters. Variants are ordered; their index is the variant's tag.
type Enum struct {
	Name       string
	ModulePath string
	TypeParams []string
	Variants   []Variant
}

// Variant is a single enum variant. Payload is empty for unit variants,
// length 1 for single-field tuple variants (the common case for Maybe/
// Outcome), and length >1 for multi-field tuple variants.
type Variant struct {
	Name    string
	Payload []Type
}

func (e *Enum) String() string { return e.Name }
func (e *Enum) IsType()        {}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
