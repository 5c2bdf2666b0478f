package llvm

import (
	"fmt"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// genStructLiteral lowers `Name { field: value, ... }`, instantiating
// the struct's layout on demand (monomorphizing it if generic) and
// storing each field, in the order the literal lists them, at its
// declared field index.
func (g *Emitter) genStructLiteral(e *mast.StructLiteral) (string, string, error) {
	named, ok := g.typeInfo[e].(*types.Named)
	if !ok {
		return "", "", g.internalInconsistencyError("struct literal missing resolved type", e)
	}
	decl, ok := g.env.lookupStruct(named.Name)
	if !ok {
		return "", "", g.unresolvedSymbolError(named.Name, e)
	}

	var mangled string
	var err error
	if len(decl.TypeParams) > 0 {
		mangled = g.enqueueStruct(decl, named.TypeArgs)
	} else {
		mangled, err = g.instantiateStruct(decl, nil)
		if err != nil {
			return "", "", err
		}
	}

	rec, ok := g.structs.get(mangled)
	llType := "%struct." + mangled
	slot := g.nextReg()
	g.emit(fmt.Sprintf("%s = alloca %s", slot, llType))

	for _, f := range e.Fields {
		valReg, valTy, err := g.genExpr(f.Value)
		if err != nil {
			return "", "", err
		}
		fieldLLType := valTy
		fieldIndex := -1
		if ok {
			if fi, found := rec.field(f.Name.Name); found {
				fieldLLType = fi.LLVMType
				fieldIndex = fi.Index
			}
		}
		if fieldIndex < 0 {
			return "", "", g.internalInconsistencyError("unknown field "+f.Name.Name+" on "+mangled, f)
		}
		coerced, _, err := g.coerceForStorage(valReg, valTy, fieldLLType)
		if err != nil {
			return "", "", err
		}
		gep := g.nextReg()
		g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i32 0, i32 %d", gep, llType, slot, fieldIndex))
		g.emit(fmt.Sprintf("store %s %s, ptr %s", fieldLLType, coerced, gep))
	}

	g.setLast(llType, false)
	return slot, llType, nil
}

// genTupleLiteral lowers `(a, b, c)` by constructing an anonymous LLVM
// struct value with an insertvalue chain.
func (g *Emitter) genTupleLiteral(e *mast.TupleLiteral) (string, string, error) {
	regs := make([]string, 0, len(e.Elements))
	tys := make([]string, 0, len(e.Elements))
	for _, el := range e.Elements {
		reg, ty, err := g.genExpr(el)
		if err != nil {
			return "", "", err
		}
		regs = append(regs, reg)
		tys = append(tys, ty)
	}

	llType := "{ "
	for i, ty := range tys {
		if i > 0 {
			llType += ", "
		}
		llType += ty
	}
	llType += " }"

	acc := "undef"
	for i := range regs {
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = insertvalue %s %s, %s %s, %d", out, llType, acc, tys[i], regs[i], i))
		acc = out
	}
	g.setLast(llType, false)
	return acc, llType, nil
}

// genArrayLiteral lowers `[a, b, c]` by allocating a fixed-size array
// and storing each element. It returns the alloca slot itself, typed as
// the `[N x T]` array type; genIndexExpr and genLValuePointer use that
// register as the array's address.
func (g *Emitter) genArrayLiteral(e *mast.ArrayLiteral) (string, string, error) {
	if len(e.Elements) == 0 {
		return "", "", g.unsupportedExprError(e, "empty array literal requires an explicit element type")
	}
	regs := make([]string, 0, len(e.Elements))
	var elemTy string
	for _, el := range e.Elements {
		reg, ty, err := g.genExpr(el)
		if err != nil {
			return "", "", err
		}
		regs = append(regs, reg)
		if elemTy == "" {
			elemTy = ty
		} else {
			coerced, _, err := g.coerceForStorage(reg, ty, elemTy)
			if err != nil {
				return "", "", err
			}
			reg = coerced
		}
		regs[len(regs)-1] = reg
	}

	arrayTy := fmt.Sprintf("[%d x %s]", len(regs), elemTy)
	slot := g.nextReg()
	g.emit(fmt.Sprintf("%s = alloca %s", slot, arrayTy))
	for i, reg := range regs {
		gep := g.nextReg()
		g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i64 0, i64 %d", gep, arrayTy, slot, i))
		g.emit(fmt.Sprintf("store %s %s, ptr %s", elemTy, reg, gep))
	}

	g.setLast(arrayTy, false)
	return slot, arrayTy, nil
}

// genFunctionLiteral lowers a closure expression into the emitter's fat
// pointer representation, delegating to the closure-synthesis helper
// that hoists the literal's body into a top-level function.
func (g *Emitter) genFunctionLiteral(e *mast.FunctionLiteral) (string, string, error) {
	return g.genClosureLiteral(e)
}
