package llvm

import (
	"fmt"
	"strings"

	mast "github.com/tml-lang/tmlc/internal/ast"
)

// genInfixExpr lowers a binary operator expression, performing the
// argument-width coercion from section 4.4 (the smaller operand is
// extended to the larger, signed sext / unsigned zext) before emitting
// the LLVM instruction.
func (g *Emitter) genInfixExpr(e *mast.InfixExpr) (string, string, error) {
	left, leftTy, err := g.genExpr(e.Left)
	if err != nil {
		return "", "", err
	}
	leftUnsigned := g.lastExprUnsigned
	right, rightTy, err := g.genExpr(e.Right)
	if err != nil {
		return "", "", err
	}
	rightUnsigned := g.lastExprUnsigned

	isVector := strings.HasPrefix(leftTy, "<")
	isFloat := isFloatType(stripVector(leftTy)) || isFloatType(stripVector(rightTy))

	unsigned := leftUnsigned || rightUnsigned
	commonTy := leftTy
	if !isFloat {
		lw, lok := isIntType(leftTy)
		rw, rok := isIntType(rightTy)
		if lok && rok {
			if rw > lw {
				left, err = g.coerceWidth(left, leftTy, rightTy, unsigned)
				commonTy = rightTy
			} else if lw > rw {
				right, err = g.coerceWidth(right, rightTy, leftTy, unsigned)
				commonTy = leftTy
			}
			if err != nil {
				return "", "", err
			}
		}
	}

	switch e.Op {
	case mast.OpAdd, mast.OpSub, mast.OpMul, mast.OpDiv, mast.OpRem:
		out := g.nextReg()
		op, err := arithOp(e.Op, isFloat, unsigned, isVector)
		if err != nil {
			return "", "", g.unsupportedOperatorError(e.Op, e)
		}
		g.emit(fmt.Sprintf("%s = %s %s %s, %s", out, op, commonTy, left, right))
		g.setLast(commonTy, unsigned)
		return out, commonTy, nil

	case mast.OpEq, mast.OpNe, mast.OpLt, mast.OpLe, mast.OpGt, mast.OpGe:
		out := g.nextReg()
		if isFloat {
			pred := floatCmpPred(e.Op)
			g.emit(fmt.Sprintf("%s = fcmp %s %s %s, %s", out, pred, commonTy, left, right))
		} else {
			pred := intCmpPred(e.Op, unsigned)
			g.emit(fmt.Sprintf("%s = icmp %s %s %s, %s", out, pred, commonTy, left, right))
		}
		g.setLast("i1", false)
		return out, "i1", nil

	case mast.OpBitAnd, mast.OpBitOr, mast.OpBitXor:
		out := g.nextReg()
		op := map[mast.OpKind]string{mast.OpBitAnd: "and", mast.OpBitOr: "or", mast.OpBitXor: "xor"}[e.Op]
		g.emit(fmt.Sprintf("%s = %s %s %s, %s", out, op, commonTy, left, right))
		g.setLast(commonTy, unsigned)
		return out, commonTy, nil

	case mast.OpShl, mast.OpShr:
		out := g.nextReg()
		op := "shl"
		if e.Op == mast.OpShr {
			op = "ashr"
			if unsigned {
				op = "lshr"
			}
		}
		g.emit(fmt.Sprintf("%s = %s %s %s, %s", out, op, commonTy, left, right))
		g.setLast(commonTy, unsigned)
		return out, commonTy, nil

	case mast.OpAnd, mast.OpOr:
		// Boolean and/or are not short-circuited: both operands have
		// already been evaluated above, and their i1 values are combined
		// with a plain `and`/`or`, so the right operand always runs.
		out := g.nextReg()
		op := "and"
		if e.Op == mast.OpOr {
			op = "or"
		}
		g.emit(fmt.Sprintf("%s = %s i1 %s, %s", out, op, left, right))
		g.setLast("i1", false)
		return out, "i1", nil

	default:
		return "", "", g.unsupportedOperatorError(e.Op, e)
	}
}

func arithOp(op mast.OpKind, isFloat, unsigned, isVector bool) (string, error) {
	if isFloat {
		switch op {
		case mast.OpAdd:
			return "fadd", nil
		case mast.OpSub:
			return "fsub", nil
		case mast.OpMul:
			return "fmul", nil
		case mast.OpDiv:
			return "fdiv", nil
		case mast.OpRem:
			return "frem", nil
		}
	}
	switch op {
	case mast.OpAdd:
		return "add", nil
	case mast.OpSub:
		return "sub", nil
	case mast.OpMul:
		return "mul", nil
	case mast.OpDiv:
		if unsigned {
			return "udiv", nil
		}
		return "sdiv", nil
	case mast.OpRem:
		if unsigned {
			return "urem", nil
		}
		return "srem", nil
	}
	return "", fmt.Errorf("not an arithmetic operator: %v", op)
}

// intCmpPred maps a comparison operator to its icmp predicate. Unsigned
// operands use unsigned predicates; signed (the default) uses signed
// predicates.
func intCmpPred(op mast.OpKind, unsigned bool) string {
	switch op {
	case mast.OpEq:
		return "eq"
	case mast.OpNe:
		return "ne"
	case mast.OpLt:
		if unsigned {
			return "ult"
		}
		return "slt"
	case mast.OpLe:
		if unsigned {
			return "ule"
		}
		return "sle"
	case mast.OpGt:
		if unsigned {
			return "ugt"
		}
		return "sgt"
	case mast.OpGe:
		if unsigned {
			return "uge"
		}
		return "sge"
	}
	return "eq"
}

// floatCmpPred maps a comparison operator to its *ordered* fcmp
// predicate: NaN compares unequal to everything (section 4.5 "Numeric
// semantics").
func floatCmpPred(op mast.OpKind) string {
	switch op {
	case mast.OpEq:
		return "oeq"
	case mast.OpNe:
		return "one"
	case mast.OpLt:
		return "olt"
	case mast.OpLe:
		return "ole"
	case mast.OpGt:
		return "ogt"
	case mast.OpGe:
		return "oge"
	}
	return "oeq"
}

func stripVector(ty string) string {
	if !strings.HasPrefix(ty, "<") {
		return ty
	}
	idx := strings.Index(ty, "x ")
	if idx < 0 {
		return ty
	}
	rest := ty[idx+2:]
	return strings.TrimSuffix(strings.TrimSpace(rest), ">")
}

// genPrefixExpr lowers a unary operator expression.
func (g *Emitter) genPrefixExpr(e *mast.PrefixExpr) (string, string, error) {
	operand, ty, err := g.genExpr(e.Expr)
	if err != nil {
		return "", "", err
	}
	unsigned := g.lastExprUnsigned

	switch e.Op {
	case mast.OpNeg:
		out := g.nextReg()
		if isFloatType(ty) {
			g.emit(fmt.Sprintf("%s = fneg %s %s", out, ty, operand))
		} else {
			g.emit(fmt.Sprintf("%s = sub %s 0, %s", out, ty, operand))
		}
		g.setLast(ty, unsigned)
		return out, ty, nil

	case mast.OpNot:
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = xor i1 %s, 1", out, operand))
		g.setLast("i1", false)
		return out, "i1", nil

	case mast.OpBitNot:
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = xor %s %s, -1", out, ty, operand))
		g.setLast(ty, unsigned)
		return out, ty, nil

	case mast.OpDeref:
		out := g.nextReg()
		pointeeTy := "ptr"
		if t, ok := g.typeInfo[e]; ok {
			if ll, err := g.lowerType(t); err == nil {
				pointeeTy = ll
			}
		}
		g.emit(fmt.Sprintf("%s = load %s, ptr %s", out, pointeeTy, operand))
		g.setLast(pointeeTy, false)
		return out, pointeeTy, nil

	case mast.OpRef, mast.OpRefMut:
		// Taking a reference of an already-loaded value requires the
		// operand to have been an addressable lvalue; address-of on an
		// identifier is special-cased in genAddressOf.
		return g.genAddressOf(e.Expr)

	default:
		return "", "", g.unsupportedOperatorError(e.Op, e)
	}
}

// genAddressOf returns the alloca slot of an lvalue expression without
// loading it, for `&x`/`&mut x`.
func (g *Emitter) genAddressOf(e mast.Expr) (string, string, error) {
	if id, ok := e.(*mast.Ident); ok {
		if slot, ok := g.locals[id.Name]; ok {
			return slot, "ptr", nil
		}
		return "", "", g.unresolvedSymbolError(id.Name, id)
	}
	return "", "", g.unsupportedExprError(e, "address-of non-lvalue")
}
