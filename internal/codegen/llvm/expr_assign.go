package llvm

import (
	"fmt"

	mast "github.com/tml-lang/tmlc/internal/ast"
)

// genAssignExpr lowers `target = value`, storing into the target's
// address. Assignment is itself Unit-valued: the returned register is
// always empty.
func (g *Emitter) genAssignExpr(e *mast.AssignExpr) (string, string, error) {
	valReg, valTy, err := g.genExpr(e.Value)
	if err != nil {
		return "", "", err
	}

	switch target := e.Target.(type) {
	case *mast.Ident:
		slot, ok := g.locals[target.Name]
		if !ok {
			return "", "", g.unresolvedSymbolError(target.Name, target)
		}
		declTy := g.localTypes()[target.Name]
		if declTy == "" {
			declTy = valTy
		}
		coerced, _, err := g.coerceForStorage(valReg, valTy, declTy)
		if err != nil {
			return "", "", err
		}
		g.emit(fmt.Sprintf("store %s %s, ptr %s", declTy, coerced, slot))
		return "", "void", nil

	case *mast.FieldExpr:
		targetPtr, targetTy, err := g.genLValuePointer(target.Target)
		if err != nil {
			return "", "", err
		}
		mangled := structMangledFromLLType(targetTy)
		rec, ok := g.structs.get(mangled)
		if !ok {
			return "", "", g.internalInconsistencyError("assign to field of unknown struct "+mangled, target)
		}
		field, ok := rec.field(target.Field.Name)
		if !ok {
			return "", "", g.internalInconsistencyError("unknown field "+target.Field.Name, target)
		}
		gep := g.nextReg()
		g.emit(fmt.Sprintf("%s = getelementptr %%struct.%s, ptr %s, i32 0, i32 %d", gep, mangled, targetPtr, field.Index))
		coerced, _, err := g.coerceForStorage(valReg, valTy, field.LLVMType)
		if err != nil {
			return "", "", err
		}
		g.emit(fmt.Sprintf("store %s %s, ptr %s", field.LLVMType, coerced, gep))
		return "", "void", nil

	case *mast.IndexExpr:
		targetPtr, targetTy, err := g.genLValuePointer(target.Target)
		if err != nil {
			return "", "", err
		}
		if len(target.Indices) != 1 {
			return "", "", g.unsupportedExprError(target, "multi-dimensional index assignment")
		}
		idxReg, idxTy, err := g.genExpr(target.Indices[0])
		if err != nil {
			return "", "", err
		}
		elemTy, arrayLLType := arrayElemType(targetTy)
		gep := g.nextReg()
		g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i32 0, %s %s", gep, arrayLLType, targetPtr, idxTy, idxReg))
		coerced, _, err := g.coerceForStorage(valReg, valTy, elemTy)
		if err != nil {
			return "", "", err
		}
		g.emit(fmt.Sprintf("store %s %s, ptr %s", elemTy, coerced, gep))
		return "", "void", nil

	case *mast.PrefixExpr:
		if target.Op == mast.OpDeref {
			ptrReg, _, err := g.genExpr(target.Expr)
			if err != nil {
				return "", "", err
			}
			g.emit(fmt.Sprintf("store %s %s, ptr %s", valTy, valReg, ptrReg))
			return "", "void", nil
		}
		return "", "", g.unsupportedExprError(target, "assign to non-lvalue prefix expression")

	default:
		return "", "", g.unsupportedExprError(e, "unsupported assignment target")
	}
}
