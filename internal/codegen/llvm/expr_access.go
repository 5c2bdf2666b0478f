package llvm

import (
	"fmt"

	mast "github.com/tml-lang/tmlc/internal/ast"
)

// genFieldExpr lowers a.b field access. The target is expected to be a
// pointer-to-struct value (structs are always handled by reference); the
// field's index and LLVM type come from the struct registry populated at
// instantiation time (section 3).
func (g *Emitter) genFieldExpr(e *mast.FieldExpr) (string, string, error) {
	targetPtr, targetTy, err := g.genLValuePointer(e.Target)
	if err != nil {
		return "", "", err
	}

	mangled := structMangledFromLLType(targetTy)
	rec, ok := g.structs.get(mangled)
	if !ok {
		return "", "", g.internalInconsistencyError("field access on unknown struct "+mangled, e)
	}
	field, ok := rec.field(e.Field.Name)
	if !ok {
		return "", "", g.internalInconsistencyError("unknown field "+e.Field.Name+" on "+mangled, e)
	}

	gep := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %%struct.%s, ptr %s, i32 0, i32 %d", gep, mangled, targetPtr, field.Index))
	loaded := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", loaded, field.LLVMType, gep))
	g.setLast(field.LLVMType, isUnsignedType(field.SemType))
	return loaded, field.LLVMType, nil
}

// genLValuePointer returns a pointer to e's storage without loading it,
// used as the base for field/index access and assignment. Idents resolve
// to their alloca slot directly; everything else is evaluated and its
// register is treated as already being a pointer (the common case for
// struct-typed subexpressions, which are always passed by address).
func (g *Emitter) genLValuePointer(e mast.Expr) (string, string, error) {
	if id, ok := e.(*mast.Ident); ok {
		slot, ok := g.locals[id.Name]
		if !ok {
			return "", "", g.unresolvedSymbolError(id.Name, id)
		}
		ty := g.localTypes()[id.Name]
		return slot, ty, nil
	}
	return g.genExpr(e)
}

// structMangledFromLLType extracts the mangled struct name from an LLVM
// type string of the form "%struct.MANGLED".
func structMangledFromLLType(llType string) string {
	const prefix = "%struct."
	if len(llType) > len(prefix) && llType[:len(prefix)] == prefix {
		return llType[len(prefix):]
	}
	return llType
}

// enumMangledFromLLType extracts the mangled enum name from an LLVM type
// string of the form "%enum.MANGLED".
func enumMangledFromLLType(llType string) (string, bool) {
	const prefix = "%enum."
	if len(llType) > len(prefix) && llType[:len(prefix)] == prefix {
		return llType[len(prefix):], true
	}
	return "", false
}

// genIndexExpr lowers target[index] for arrays and slices: a GEP followed
// by a load.
func (g *Emitter) genIndexExpr(e *mast.IndexExpr) (string, string, error) {
	targetPtr, targetTy, err := g.genLValuePointer(e.Target)
	if err != nil {
		return "", "", err
	}
	if len(e.Indices) != 1 {
		return "", "", g.unsupportedExprError(e, "multi-dimensional index")
	}
	idxReg, idxTy, err := g.genExpr(e.Indices[0])
	if err != nil {
		return "", "", err
	}

	elemTy, arrayLLType := arrayElemType(targetTy)
	gep := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i32 0, %s %s", gep, arrayLLType, targetPtr, idxTy, idxReg))
	loaded := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", loaded, elemTy, gep))
	g.setLast(elemTy, false)
	return loaded, elemTy, nil
}

// arrayElemType parses a `[N x T]` LLVM array type string into the element
// type and the array type itself, falling back to treating the whole
// value as an i8-element blob (ptr-backed slice) when the type doesn't
// match the fixed-size array syntax.
func arrayElemType(llType string) (elem string, array string) {
	if len(llType) > 2 && llType[0] == '[' {
		for i := 1; i < len(llType); i++ {
			if llType[i] == 'x' && i+1 < len(llType) && llType[i+1] == ' ' {
				return llType[i+2 : len(llType)-1], llType
			}
		}
	}
	return "i8", "[0 x i8]"
}
