package llvm

import (
	"strings"

	"github.com/tml-lang/tmlc/internal/types"
)

// mangle produces the deterministic ASCII symbol suffix for a semantic type.
// Structurally identical types mangle identically regardless of how they
// were spelled in source: the mangler never consults the AST.
func mangle(t types.Type) string {
	switch v := t.(type) {
	case *types.Primitive:
		return manglePrimitive(v.Kind)

	case *types.Pointer:
		if v.Mutable {
			return "mutptr_" + mangle(v.Elem)
		}
		return "ptr_" + mangle(v.Elem)

	case *types.Reference:
		if v.Mutable {
			return "mutref_" + mangle(v.Elem)
		}
		return "ref_" + mangle(v.Elem)

	case *types.Named:
		if len(v.TypeArgs) == 0 {
			return v.Name
		}
		parts := make([]string, 0, len(v.TypeArgs)+1)
		parts = append(parts, v.Name)
		for _, arg := range v.TypeArgs {
			parts = append(parts, mangle(arg))
		}
		return strings.Join(parts, "__")

	case *types.GenericParam:
		return v.Name

	case *types.Tuple:
		parts := make([]string, 0, len(v.Elements))
		for _, e := range v.Elements {
			parts = append(parts, mangle(e))
		}
		return "Tuple__" + strings.Join(parts, "__")

	case *types.Array:
		return "Array__" + mangle(v.Elem) + "__" + itoaMangle(v.Len)

	case *types.Function:
		parts := make([]string, 0, len(v.Params)+1)
		for _, p := range v.Params {
			parts = append(parts, mangle(p))
		}
		ret := "Unit"
		if v.Return != nil {
			ret = mangle(v.Return)
		}
		return "Fn__" + strings.Join(parts, "__") + "__" + ret

	case *types.Struct:
		return mangleAggregate(v.Name, nil)

	case *types.Enum:
		return mangleAggregate(v.Name, nil)

	default:
		return "Unknown"
	}
}

// mangleAggregate mangles a base struct/enum name together with already
// resolved type arguments, used by the instantiation engine once concrete
// arguments are known for a generic base.
func mangleAggregate(base string, args []types.Type) string {
	if len(args) == 0 {
		return base
	}
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, base)
	for _, a := range args {
		parts = append(parts, mangle(a))
	}
	return strings.Join(parts, "__")
}

// manglePrimitive returns the canonical capitalized short name for a
// primitive kind (I32, F64, Bool, ...).
func manglePrimitive(k types.PrimitiveKind) string {
	switch k {
	case types.I8:
		return "I8"
	case types.I16:
		return "I16"
	case types.I32:
		return "I32"
	case types.I64:
		return "I64"
	case types.I128:
		return "I128"
	case types.U8:
		return "U8"
	case types.U16:
		return "U16"
	case types.U32:
		return "U32"
	case types.U64:
		return "U64"
	case types.U128:
		return "U128"
	case types.F32:
		return "F32"
	case types.F64:
		return "F64"
	case types.Bool:
		return "Bool"
	case types.Char:
		return "Char"
	case types.Str:
		return "Str"
	case types.Unit:
		return "Unit"
	case types.Never:
		return "Never"
	default:
		return "Unknown"
	}
}

func itoaMangle(n int) string {
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
