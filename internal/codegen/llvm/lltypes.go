package llvm

import (
	"strings"

	lltypes "github.com/llir/llvm/ir/types"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// lowerType maps a semantic type to its LLVM type syntax. Named structs and
// enums lower to `%struct.MANGLED`/`%enum.MANGLED`; generic parameters still
// present in the active substitution map are resolved before lowering.
func (g *Emitter) lowerType(t types.Type) (string, error) {
	if t == nil {
		return "void", nil
	}

	switch v := t.(type) {
	case *types.Primitive:
		return lowerPrimitive(v.Kind), nil

	case *types.Pointer:
		return "ptr", nil

	case *types.Reference:
		return "ptr", nil

	case *types.GenericParam:
		if g.substMap != nil {
			if concrete, ok := g.substMap[v.Name]; ok {
				return g.lowerType(concrete)
			}
		}
		return "ptr", nil // unresolved generic: treated as opaque pointer

	case *types.Named:
		if g.substMap != nil {
			if concrete, ok := g.substMap[v.Name]; ok {
				return g.lowerType(concrete)
			}
		}
		if enum, ok := g.enums.lookup(mangleAggregate(v.Name, v.TypeArgs)); ok {
			return "%enum." + enum.Mangled, nil
		}
		if g.structs.has(mangleAggregate(v.Name, v.TypeArgs)) {
			return "%struct." + mangleAggregate(v.Name, v.TypeArgs), nil
		}
		if v.Ref != nil {
			switch v.Ref.(type) {
			case *types.Enum:
				return "%enum." + mangleAggregate(v.Name, v.TypeArgs), nil
			case *types.Struct:
				return "%struct." + mangleAggregate(v.Name, v.TypeArgs), nil
			}
		}
		// Unresolved named type that isn't an instantiated aggregate yet:
		// assume struct shape, consistent with the instantiation engine's
		// best-effort fallback (section 4.3).
		return "%struct." + mangleAggregate(v.Name, v.TypeArgs), nil

	case *types.Function:
		// Value position: fat pointer closure representation (section 4.8).
		return "{ ptr, ptr }", nil

	case *types.Tuple:
		if len(v.Elements) == 0 {
			return "void", nil
		}
		parts := make([]string, 0, len(v.Elements))
		for _, e := range v.Elements {
			et, err := g.lowerType(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, et)
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil

	case *types.Array:
		elemTy, err := g.lowerType(v.Elem)
		if err != nil {
			return "", err
		}
		arr := lltypes.NewArray(uint64(v.Len), llOpaqueFallback(elemTy))
		if isScalarLLName(elemTy) {
			return arr.LLString(), nil
		}
		return "[" + itoaMangle(v.Len) + " x " + elemTy + "]", nil

	case *types.Struct:
		return "%struct." + mangleAggregate(v.Name, nil), nil

	case *types.Enum:
		return "%enum." + mangleAggregate(v.Name, nil), nil

	default:
		return "", g.typeMappingError(t)
	}
}

// lowerPrimitive maps a primitive kind to LLVM type syntax, preferring the
// llir/llvm type-syntax renderer for the fixed-width integer and float
// kinds so the canonical `iN`/`float`/`double` spelling is never
// hand-duplicated here.
func lowerPrimitive(k types.PrimitiveKind) string {
	switch k {
	case types.I8, types.U8:
		return lltypes.I8.LLString()
	case types.I16, types.U16:
		return lltypes.I16.LLString()
	case types.I32, types.U32, types.Char:
		return lltypes.I32.LLString()
	case types.I64, types.U64:
		return lltypes.I64.LLString()
	case types.I128, types.U128:
		return lltypes.NewInt(128).LLString()
	case types.F32:
		return lltypes.Float.LLString()
	case types.F64:
		return lltypes.Double.LLString()
	case types.Bool:
		return lltypes.I1.LLString()
	case types.Str:
		return "ptr"
	case types.Unit:
		return "void"
	case types.Never:
		return "void"
	default:
		return "ptr"
	}
}

// llOpaqueFallback maps an already-lowered LLVM type string back to an
// llir/llvm types.Type for the narrow set of scalar spellings lowerType
// produces, so Array lowering can reuse the library's array-syntax
// renderer. Non-scalar (aggregate, pointer) element types fall back to
// hand-formatted `[N x T]` syntax in the caller.
func llOpaqueFallback(s string) lltypes.Type {
	switch s {
	case "i1":
		return lltypes.I1
	case "i8":
		return lltypes.I8
	case "i16":
		return lltypes.I16
	case "i32":
		return lltypes.I32
	case "i64":
		return lltypes.I64
	case "i128":
		return lltypes.NewInt(128)
	case "float":
		return lltypes.Float
	case "double":
		return lltypes.Double
	default:
		return lltypes.I8
	}
}

func isScalarLLName(s string) bool {
	switch s {
	case "i1", "i8", "i16", "i32", "i64", "i128", "float", "double":
		return true
	}
	return false
}

// lowerFunctionSignature renders a declaration-position function type:
// `RET (ARGS)`.
func (g *Emitter) lowerFunctionSignature(params []types.Type, ret types.Type) (string, error) {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		pt, err := g.lowerType(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, pt)
	}
	retTy, err := g.lowerType(ret)
	if err != nil {
		return "", err
	}
	return retTy + " (" + strings.Join(parts, ", ") + ")", nil
}

// resolveTypeExprInScope lowers a TypeExpr AST node by structural
// reconstruction from the syntax alone; it does not consult the type
// checker's resolution (g.typeInfo). This covers the primitive and
// named-type shapes the backend must resolve stand-alone (e.g.
// `size_of[T]`'s type argument, which is syntax rather than a typed
// expression).
func (g *Emitter) resolveTypeExprInScope(te mast.TypeExpr) (types.Type, error) {
	switch t := te.(type) {
	case *mast.NamedType:
		return g.resolveNamedTypeRef(t.Name.Name)
	case *mast.GenericType:
		base, err := g.resolveTypeExprInScope(t.Base)
		if err != nil {
			return nil, err
		}
		named, ok := base.(*types.Named)
		if !ok {
			return base, nil
		}
		args := make([]types.Type, 0, len(t.Args))
		for _, a := range t.Args {
			at, err := g.resolveTypeExprInScope(a)
			if err != nil {
				return nil, err
			}
			args = append(args, at)
		}
		return &types.Named{Name: named.Name, ModulePath: named.ModulePath, TypeArgs: args, Ref: named.Ref}, nil
	default:
		return nil, g.typeMappingError(nil)
	}
}

// resolveNamedTypeRef resolves a bare type name to a semantic type,
// checking primitives first and falling back to environment lookup (4.2)
// for user-defined structs/enums and in-scope generic parameters.
func (g *Emitter) resolveNamedTypeRef(name string) (types.Type, error) {
	if prim, ok := primitiveByName(name); ok {
		return prim, nil
	}
	if g.currentFunc != nil && g.currentFunc.typeParams[name] {
		if g.substMap != nil {
			if concrete, ok := g.substMap[name]; ok {
				return concrete, nil
			}
		}
		return &types.GenericParam{Name: name}, nil
	}
	if def, ok := g.env.lookupType(name); ok {
		return def, nil
	}
	return nil, g.typeMappingError(nil)
}

func primitiveByName(name string) (types.Type, bool) {
	switch name {
	case "I8":
		return types.TypeI8, true
	case "I16":
		return types.TypeI16, true
	case "I32":
		return types.TypeI32, true
	case "I64":
		return types.TypeI64, true
	case "I128":
		return types.TypeI128, true
	case "U8":
		return types.TypeU8, true
	case "U16":
		return types.TypeU16, true
	case "U32":
		return types.TypeU32, true
	case "U64":
		return types.TypeU64, true
	case "U128":
		return types.TypeU128, true
	case "F32":
		return types.TypeF32, true
	case "F64":
		return types.TypeF64, true
	case "Bool":
		return types.TypeBool, true
	case "Char":
		return types.TypeChar, true
	case "Str":
		return types.TypeStr, true
	case "Unit":
		return types.TypeUnit, true
	default:
		return nil, false
	}
}
