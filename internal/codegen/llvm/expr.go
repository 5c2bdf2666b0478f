package llvm

import (
	"fmt"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// genBlockExpr lowers every statement in a block in source order, then
// the optional tail expression, returning the tail's register and LLVM
// type (an empty register and type "void" for a block with no tail, i.e. a
// Unit-valued block).
func (g *Emitter) genBlockExpr(b *mast.BlockExpr) (string, string, error) {
	if b == nil {
		return "", "void", nil
	}
	for _, stmt := range b.Stmts {
		if err := g.genStmt(stmt); err != nil {
			return "", "", err
		}
		if g.terminated {
			return "", "void", nil
		}
	}
	if b.Tail != nil {
		return g.genExpr(b.Tail)
	}
	return "", "void", nil
}

// genStmt lowers a single statement.
func (g *Emitter) genStmt(stmt mast.Stmt) error {
	switch s := stmt.(type) {
	case *mast.LetStmt:
		return g.genLetStmt(s)
	case *mast.ExprStmt:
		_, _, err := g.genExpr(s.Expr)
		return err
	case *mast.ReturnStmt:
		return g.genReturnStmt(s)
	case *mast.IfStmt:
		return g.genIfStmt(s)
	case *mast.WhileStmt:
		return g.genWhileStmt(s)
	case *mast.ForStmt:
		return g.genForStmt(s)
	case *mast.BreakStmt:
		return g.genBreakStmt(s)
	case *mast.ContinueStmt:
		return g.genContinueStmt(s)
	case *mast.UnsafeBlock:
		_, _, err := g.genBlockExpr(s.Block)
		return err
	default:
		return g.unsupportedExprError(nil, fmt.Sprintf("statement %T", stmt))
	}
}

func (g *Emitter) genLetStmt(s *mast.LetStmt) error {
	var valReg, valTy string
	var err error
	if s.Value != nil {
		valReg, valTy, err = g.genExpr(s.Value)
		if err != nil {
			return err
		}
	}
	declTy := valTy
	if s.Type != nil {
		semType, err := g.resolveTypeExprInScope(s.Type)
		if err != nil {
			return err
		}
		declTy, err = g.lowerType(semType)
		if err != nil {
			return err
		}
	}
	if declTy == "" {
		declTy = "ptr"
	}
	slot := g.nextReg()
	g.emit(fmt.Sprintf("%s = alloca %s", slot, declTy))
	if valReg != "" {
		coerced, _, err := g.coerceForStorage(valReg, valTy, declTy)
		if err != nil {
			return err
		}
		g.emit(fmt.Sprintf("store %s %s, ptr %s", declTy, coerced, slot))
	}
	if s.Name != nil {
		g.locals[s.Name.Name] = slot
		g.localTypes()[s.Name.Name] = declTy
	}
	return nil
}

// localTypes lazily initializes and returns the per-function local
// variable LLVM-type side table. Kept separate from locals (which holds
// the alloca slot register) since callers need both the address and the
// pointee type to load correctly.
func (g *Emitter) localTypes() map[string]string {
	if g.localTys == nil {
		g.localTys = make(map[string]string)
	}
	return g.localTys
}

func (g *Emitter) genReturnStmt(s *mast.ReturnStmt) error {
	if s.Value == nil {
		g.terminate("ret void")
		return nil
	}
	reg, ty, err := g.genExpr(s.Value)
	if err != nil {
		return err
	}
	retLL, err := g.lowerType(g.currentFunc.returnType)
	if err != nil {
		return err
	}
	coerced, _, err := g.coerceForStorage(reg, ty, retLL)
	if err != nil {
		return err
	}
	if retLL == "void" {
		g.terminate("ret void")
		return nil
	}
	g.terminate(fmt.Sprintf("ret %s %s", retLL, coerced))
	return nil
}

// genExpr is the central expression-lowering dispatcher (section 4.4).
// It returns the SSA register (or literal immediate) holding the result,
// the LLVM type of that result, and updates lastExprType/
// lastExprUnsigned as a side effect for callers that need it without
// threading it explicitly (e.g. nested binary-operator lowering).
func (g *Emitter) genExpr(e mast.Expr) (string, string, error) {
	switch v := e.(type) {
	case *mast.IntegerLit:
		return g.genIntegerLit(v)
	case *mast.FloatLit:
		return g.genFloatLit(v)
	case *mast.BoolLit:
		return g.genBoolLit(v)
	case *mast.StringLit:
		return g.genStringLit(v)
	case *mast.NilLit:
		g.setLast("ptr", false)
		return "null", "ptr", nil
	case *mast.Ident:
		return g.genIdent(v)
	case *mast.InfixExpr:
		return g.genInfixExpr(v)
	case *mast.PrefixExpr:
		return g.genPrefixExpr(v)
	case *mast.AssignExpr:
		return g.genAssignExpr(v)
	case *mast.CallExpr:
		return g.genCallExpr(v)
	case *mast.FieldExpr:
		return g.genFieldExpr(v)
	case *mast.IndexExpr:
		return g.genIndexExpr(v)
	case *mast.IfExpr:
		return g.genIfExpr(v)
	case *mast.MatchExpr:
		return g.genMatchExpr(v)
	case *mast.BlockExpr:
		return g.genBlockExpr(v)
	case *mast.StructLiteral:
		return g.genStructLiteral(v)
	case *mast.TupleLiteral:
		return g.genTupleLiteral(v)
	case *mast.ArrayLiteral:
		return g.genArrayLiteral(v)
	case *mast.FunctionLiteral:
		return g.genFunctionLiteral(v)
	default:
		return "", "", g.unsupportedExprError(e, fmt.Sprintf("%T", e))
	}
}

func (g *Emitter) setLast(ty string, unsigned bool) {
	g.lastExprType = ty
	g.lastExprUnsigned = unsigned
}

func (g *Emitter) genIntegerLit(v *mast.IntegerLit) (string, string, error) {
	ty := "i32"
	if t, ok := g.typeInfo[v]; ok {
		if ll, err := g.lowerType(t); err == nil {
			ty = ll
		}
	}
	g.setLast(ty, isUnsignedType(g.typeInfo[v]))
	return v.Text, ty, nil
}

func (g *Emitter) genFloatLit(v *mast.FloatLit) (string, string, error) {
	ty := "double"
	if t, ok := g.typeInfo[v]; ok {
		if ll, err := g.lowerType(t); err == nil {
			ty = ll
		}
	}
	g.setLast(ty, false)
	return v.Text, ty, nil
}

func (g *Emitter) genBoolLit(v *mast.BoolLit) (string, string, error) {
	g.setLast("i1", false)
	if v.Value {
		return "1", "i1", nil
	}
	return "0", "i1", nil
}

func (g *Emitter) genStringLit(v *mast.StringLit) (string, string, error) {
	sym := g.strings.intern(v.Value)
	g.setLast("ptr", false)
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds [%d x i8], ptr %s, i64 0, i64 0", reg, len(v.Value)+1, sym))
	return reg, "ptr", nil
}

func (g *Emitter) genIdent(v *mast.Ident) (string, string, error) {
	slot, ok := g.locals[v.Name]
	if !ok {
		return "", "", g.unresolvedSymbolError(v.Name, v)
	}
	ty := g.localTypes()[v.Name]
	if ty == "" {
		ty = "ptr"
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", reg, ty, slot))
	unsigned := false
	if t, ok := g.typeInfo[v]; ok {
		unsigned = isUnsignedType(t)
	}
	g.setLast(ty, unsigned)
	return reg, ty, nil
}

func isUnsignedType(t types.Type) bool {
	if p, ok := t.(*types.Primitive); ok {
		return p.Kind.IsUnsigned()
	}
	return false
}
