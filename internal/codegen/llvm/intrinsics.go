package llvm

import (
	"fmt"
	"math/big"
	"strings"

	mast "github.com/tml-lang/tmlc/internal/ast"
)

// calleeBaseName extracts the bare identifier a call expression's callee
// resolves to, for the common case of a direct intrinsic/builtin/function
// call `name(args...)` or a generic call `name[T](args...)`.
func calleeBaseName(callee mast.Expr) (string, bool) {
	switch v := callee.(type) {
	case *mast.Ident:
		return v.Name, true
	case *mast.IndexExpr:
		return calleeBaseName(v.Target)
	}
	return "", false
}

// calleeTypeArgs returns the type-argument expressions of a generic call
// `name[T, U](...)`, empty if the callee isn't an index expression.
func calleeTypeArgs(callee mast.Expr) []mast.Expr {
	if idx, ok := callee.(*mast.IndexExpr); ok {
		return idx.Indices
	}
	return nil
}

// firstTypeArgLLType resolves the LLVM type of a call's first (and, for
// every intrinsic in section 4.5, only) explicit type argument.
func (g *Emitter) firstTypeArgLLType(e *mast.CallExpr) (string, error) {
	args := calleeTypeArgs(e.Callee)
	if len(args) == 0 {
		return "", g.internalInconsistencyError("intrinsic missing type argument", e)
	}
	id, ok := args[0].(*mast.Ident)
	if !ok {
		return "", g.unsupportedExprError(e, "non-identifier type argument")
	}
	t, err := g.resolveNamedTypeRef(id.Name)
	if err != nil {
		return "", err
	}
	return g.lowerType(t)
}

// tryIntrinsic is step 1 of call dispatch (section 4.4): if the callee's
// base name is a known compiler intrinsic, it is lowered inline and
// handled reports true.
func (g *Emitter) tryIntrinsic(name string, e *mast.CallExpr) (string, string, bool, error) {
	handler, ok := intrinsicTable[name]
	if !ok {
		return "", "", false, nil
	}
	reg, ty, err := handler(g, e)
	return reg, ty, true, err
}

type intrinsicFn func(g *Emitter, e *mast.CallExpr) (string, string, error)

var intrinsicTable map[string]intrinsicFn

func init() {
	intrinsicTable = map[string]intrinsicFn{
		// Arithmetic
		"llvm_add": binArith("add", "fadd"),
		"llvm_sub": binArith("sub", "fsub"),
		"llvm_mul": binArith("mul", "fmul"),
		"llvm_div": binArithSigned("sdiv", "udiv", "fdiv"),
		"llvm_rem": binArithSigned("srem", "urem", "frem"),
		"llvm_neg": unaryNeg,

		// Comparison
		"llvm_eq": binCmp("eq", "oeq"),
		"llvm_ne": binCmp("ne", "one"),
		"llvm_lt": binCmpSigned("slt", "ult", "olt"),
		"llvm_le": binCmpSigned("sle", "ule", "ole"),
		"llvm_gt": binCmpSigned("sgt", "ugt", "ogt"),
		"llvm_ge": binCmpSigned("sge", "uge", "oge"),

		// Bitwise
		"llvm_and": binBit("and"),
		"llvm_or":  binBit("or"),
		"llvm_xor": binBit("xor"),
		"llvm_not": unaryNot,
		"llvm_shl": binBit("shl"),
		"llvm_shr": shrIntrinsic,

		// Memory
		"ptr_read":            ptrRead,
		"ptr_write":           ptrWrite,
		"ptr_offset":          ptrOffset,
		"copy_nonoverlapping": memCopyIntrinsic("@llvm.memcpy.p0.p0.i64"),
		"copy":                memCopyIntrinsic("@llvm.memmove.p0.p0.i64"),
		"write_bytes":         writeBytesIntrinsic,

		// Slice/array
		"slice_get":       sliceGet,
		"slice_get_mut":   sliceGet,
		"slice_set":       sliceSet,
		"slice_swap":      sliceSwap,
		"slice_offset":    ptrOffset,
		"array_as_ptr":    arrayAsPtr,
		"array_offset_ptr": ptrOffset,

		// Type info
		"size_of":   sizeOf,
		"align_of":  alignOf,
		"type_id":   typeID,
		"type_name": typeName,

		// Compiler hints
		"unreachable":    compilerUnreachable,
		"assume":         compilerAssume,
		"likely":         compilerExpect(1),
		"unlikely":       compilerExpect(0),
		"fence":          fenceIntrinsic("seq_cst", false),
		"compiler_fence": fenceIntrinsic("seq_cst", true),

		// Bit manipulation
		"ctlz":       bitManip("ctlz"),
		"cttz":       bitManip("cttz"),
		"ctpop":      bitManipNoZeroUndef("ctpop"),
		"bswap":      bitManipNoZeroUndef("bswap"),
		"bitreverse": bitManipNoZeroUndef("bitreverse"),

		// Math
		"sqrt":     mathUnary("sqrt"),
		"sin":      mathUnary("sin"),
		"cos":      mathUnary("cos"),
		"log":      mathUnary("log"),
		"exp":      mathUnary("exp"),
		"floor":    mathUnary("floor"),
		"ceil":     mathUnary("ceil"),
		"round":    mathUnary("round"),
		"trunc":    mathUnary("trunc"),
		"fabs":     mathUnary("fabs"),
		"pow":      mathBinary("pow"),
		"copysign": mathBinary("copysign"),
		"minnum":   mathBinary("minnum"),
		"maxnum":   mathBinary("maxnum"),
		"fma":      mathFma,

		// Checked arithmetic
		"checked_add": checkedArith("sadd"),
		"checked_sub": checkedArith("ssub"),
		"checked_mul": checkedArith("smul"),
		"checked_div": checkedDiv,

		// Saturating arithmetic
		"saturating_add": saturatingArith("sadd"),
		"saturating_sub": saturatingArith("ssub"),
		"saturating_mul": saturatingMul,

		// Reflection
		"field_count":    fieldCount,
		"variant_count":  variantCount,
		"field_name":     fieldName,
		"field_type_id":  fieldTypeID,
		"field_offset":   fieldOffset,

		// SIMD
		"simd_load":    simdLoad,
		"simd_store":   simdStore,
		"simd_extract": simdExtract,
		"simd_insert":  simdInsert,
		"simd_splat":   simdSplat,

		// Drop
		"drop": dropIntrinsic,
	}
}

func (g *Emitter) evalArgs(e *mast.CallExpr, n int) ([]string, []string, error) {
	if len(e.Args) < n {
		regs := make([]string, n)
		tys := make([]string, n)
		for i := range regs {
			regs[i] = "0"
			tys[i] = "i32"
		}
		return regs, tys, nil
	}
	regs := make([]string, 0, n)
	tys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		r, t, err := g.genExpr(e.Args[i])
		if err != nil {
			return nil, nil, err
		}
		regs = append(regs, r)
		tys = append(tys, t)
	}
	return regs, tys, nil
}

func binArith(intOp, floatOp string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", err
		}
		op := intOp
		if isFloatType(tys[0]) {
			op = floatOp
		}
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = %s %s %s, %s", out, op, tys[0], regs[0], regs[1]))
		g.setLast(tys[0], g.lastExprUnsigned)
		return out, tys[0], nil
	}
}

func binArithSigned(signedOp, unsignedOp, floatOp string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", err
		}
		var op string
		switch {
		case isFloatType(tys[0]):
			op = floatOp
		case g.lastExprUnsigned:
			op = unsignedOp
		default:
			op = signedOp
		}
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = %s %s %s, %s", out, op, tys[0], regs[0], regs[1]))
		g.setLast(tys[0], g.lastExprUnsigned)
		return out, tys[0], nil
	}
}

func unaryNeg(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	out := g.nextReg()
	if isFloatType(tys[0]) {
		g.emit(fmt.Sprintf("%s = fneg %s %s", out, tys[0], regs[0]))
	} else {
		g.emit(fmt.Sprintf("%s = sub %s 0, %s", out, tys[0], regs[0]))
	}
	g.setLast(tys[0], false)
	return out, tys[0], nil
}

func binCmp(intPred, floatPred string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", err
		}
		out := g.nextReg()
		if isFloatType(tys[0]) {
			g.emit(fmt.Sprintf("%s = fcmp %s %s %s, %s", out, floatPred, tys[0], regs[0], regs[1]))
		} else {
			g.emit(fmt.Sprintf("%s = icmp %s %s %s, %s", out, intPred, tys[0], regs[0], regs[1]))
		}
		g.setLast("i1", false)
		return out, "i1", nil
	}
}

func binCmpSigned(signedPred, unsignedPred, floatPred string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", err
		}
		out := g.nextReg()
		switch {
		case isFloatType(tys[0]):
			g.emit(fmt.Sprintf("%s = fcmp %s %s %s, %s", out, floatPred, tys[0], regs[0], regs[1]))
		case g.lastExprUnsigned:
			g.emit(fmt.Sprintf("%s = icmp %s %s %s, %s", out, unsignedPred, tys[0], regs[0], regs[1]))
		default:
			g.emit(fmt.Sprintf("%s = icmp %s %s %s, %s", out, signedPred, tys[0], regs[0], regs[1]))
		}
		g.setLast("i1", false)
		return out, "i1", nil
	}
}

func binBit(op string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", err
		}
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = %s %s %s, %s", out, op, tys[0], regs[0], regs[1]))
		g.setLast(tys[0], g.lastExprUnsigned)
		return out, tys[0], nil
	}
}

func unaryNot(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = xor %s %s, -1", out, tys[0], regs[0]))
	g.setLast(tys[0], g.lastExprUnsigned)
	return out, tys[0], nil
}

func shrIntrinsic(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 2)
	if err != nil {
		return "", "", err
	}
	op := "ashr"
	if g.lastExprUnsigned {
		op = "lshr"
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = %s %s %s, %s", out, op, tys[0], regs[0], regs[1]))
	g.setLast(tys[0], g.lastExprUnsigned)
	return out, tys[0], nil
}

// ptrRead loads the type-argument's LLVM type from a `ptr` argument,
// inttoptr'ing first if the address was carried as `i64` (section 4.5
// tie-break).
func ptrRead(g *Emitter, e *mast.CallExpr) (string, string, error) {
	elemTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	regs, tys, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	ptrReg := regs[0]
	if tys[0] == "i64" {
		conv := g.nextReg()
		g.emit(fmt.Sprintf("%s = inttoptr i64 %s to ptr", conv, ptrReg))
		ptrReg = conv
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", out, elemTy, ptrReg))
	g.setLast(elemTy, false)
	return out, elemTy, nil
}

func ptrWrite(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 2)
	if err != nil {
		return "", "", err
	}
	ptrReg := regs[0]
	if tys[0] == "i64" {
		conv := g.nextReg()
		g.emit(fmt.Sprintf("%s = inttoptr i64 %s to ptr", conv, ptrReg))
		ptrReg = conv
	}
	g.emit(fmt.Sprintf("store %s %s, ptr %s", tys[1], regs[1], ptrReg))
	return "", "void", nil
}

func ptrOffset(g *Emitter, e *mast.CallExpr) (string, string, error) {
	elemTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		elemTy = "i8"
	}
	regs, _, err := g.evalArgs(e, 2)
	if err != nil {
		return "", "", err
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i64 %s", out, elemTy, regs[0], regs[1]))
	g.setLast("ptr", false)
	return out, "ptr", nil
}

func memCopyIntrinsic(symbol string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, _, err := g.evalArgs(e, 3)
		if err != nil {
			return "", "", err
		}
		g.declareOnce(symbol, fmt.Sprintf("declare void %s(ptr, ptr, i64, i1)", symbol))
		g.emit(fmt.Sprintf("call void %s(ptr %s, ptr %s, i64 %s, i1 false)", symbol, regs[0], regs[1], regs[2]))
		return "", "void", nil
	}
}

func writeBytesIntrinsic(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 3)
	if err != nil {
		return "", "", err
	}
	byteVal := regs[1]
	if tys[1] != "i8" {
		t := g.nextReg()
		g.emit(fmt.Sprintf("%s = trunc %s %s to i8", t, tys[1], regs[1]))
		byteVal = t
	}
	g.declareOnce("@llvm.memset.p0.i64", "declare void @llvm.memset.p0.i64(ptr, i8, i64, i1)")
	g.emit(fmt.Sprintf("call void @llvm.memset.p0.i64(ptr %s, i8 %s, i64 %s, i1 false)", regs[0], byteVal, regs[2]))
	return "", "void", nil
}

func sliceGet(g *Emitter, e *mast.CallExpr) (string, string, error) {
	elemTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		elemTy = "i8"
	}
	regs, _, err := g.evalArgs(e, 2)
	if err != nil {
		return "", "", err
	}
	gep := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i64 %s", gep, elemTy, regs[0], regs[1]))
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", out, elemTy, gep))
	g.setLast(elemTy, false)
	return out, elemTy, nil
}

func sliceSet(g *Emitter, e *mast.CallExpr) (string, string, error) {
	elemTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		elemTy = "i8"
	}
	regs, tys, err := g.evalArgs(e, 3)
	if err != nil {
		return "", "", err
	}
	gep := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i64 %s", gep, elemTy, regs[0], regs[1]))
	coerced, _, err := g.coerceForStorage(regs[2], tys[2], elemTy)
	if err != nil {
		return "", "", err
	}
	g.emit(fmt.Sprintf("store %s %s, ptr %s", elemTy, coerced, gep))
	return "", "void", nil
}

func sliceSwap(g *Emitter, e *mast.CallExpr) (string, string, error) {
	elemTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		elemTy = "i8"
	}
	regs, _, err := g.evalArgs(e, 3)
	if err != nil {
		return "", "", err
	}
	gepI := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i64 %s", gepI, elemTy, regs[0], regs[1]))
	gepJ := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i64 %s", gepJ, elemTy, regs[0], regs[2]))
	vi := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", vi, elemTy, gepI))
	vj := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", vj, elemTy, gepJ))
	g.emit(fmt.Sprintf("store %s %s, ptr %s", elemTy, vj, gepI))
	g.emit(fmt.Sprintf("store %s %s, ptr %s", elemTy, vi, gepJ))
	return "", "void", nil
}

func arrayAsPtr(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, _, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	g.setLast("ptr", false)
	return regs[0], "ptr", nil
}

func sizeOf(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	if w, ok := isIntType(llTy); ok {
		g.setLast("i64", true)
		return fmt.Sprintf("%d", w/8), "i64", nil
	}
	if llTy == "float" {
		g.setLast("i64", true)
		return "4", "i64", nil
	}
	if llTy == "double" {
		g.setLast("i64", true)
		return "8", "i64", nil
	}
	if llTy == "void" {
		g.setLast("i64", true)
		return "0", "i64", nil
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = ptrtoint ptr getelementptr (%s, ptr null, i32 1) to i64", out, llTy))
	g.setLast("i64", true)
	return out, "i64", nil
}

func alignOf(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	if w, ok := isIntType(llTy); ok {
		g.setLast("i64", true)
		n := w / 8
		if n == 0 {
			n = 1
		}
		return fmt.Sprintf("%d", n), "i64", nil
	}
	g.setLast("i64", true)
	return "8", "i64", nil
}

func typeID(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	g.setLast("i64", true)
	return fmt.Sprintf("%d", fnv1a(llTy)), "i64", nil
}

func typeName(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	sym := g.strings.intern(llTy)
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds [%d x i8], ptr %s, i64 0, i64 0", reg, len(llTy)+1, sym))
	g.setLast("ptr", false)
	return reg, "ptr", nil
}

// fnv1a computes the 64-bit FNV-1a hash of s for type_id's compile-time
// identity (section 4.5).
func fnv1a(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func compilerUnreachable(g *Emitter, e *mast.CallExpr) (string, string, error) {
	g.terminate("unreachable")
	return "", "void", nil
}

func compilerAssume(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, _, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	g.declareOnce("@llvm.assume", "declare void @llvm.assume(i1)")
	g.emit(fmt.Sprintf("call void @llvm.assume(i1 %s)", regs[0]))
	return "", "void", nil
}

func compilerExpect(expected int) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, _, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", err
		}
		g.declareOnce("@llvm.expect.i1", "declare i1 @llvm.expect.i1(i1, i1)")
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call i1 @llvm.expect.i1(i1 %s, i1 %d)", out, regs[0], expected))
		g.setLast("i1", false)
		return out, "i1", nil
	}
}

func fenceIntrinsic(ordering string, singleThread bool) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		if singleThread {
			g.emit(fmt.Sprintf(`fence syncscope("singlethread") %s`, ordering))
		} else {
			g.emit(fmt.Sprintf("fence %s", ordering))
		}
		return "", "void", nil
	}
}

func bitManip(name string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", err
		}
		symbol := fmt.Sprintf("@llvm.%s.%s", name, tys[0])
		g.declareOnce(symbol, fmt.Sprintf("declare %s %s(%s, i1)", tys[0], symbol, tys[0]))
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call %s %s(%s %s, i1 false)", out, tys[0], symbol, tys[0], regs[0]))
		g.setLast(tys[0], g.lastExprUnsigned)
		return out, tys[0], nil
	}
}

func bitManipNoZeroUndef(name string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", err
		}
		symbol := fmt.Sprintf("@llvm.%s.%s", name, tys[0])
		g.declareOnce(symbol, fmt.Sprintf("declare %s %s(%s)", tys[0], symbol, tys[0]))
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call %s %s(%s %s)", out, tys[0], symbol, tys[0], regs[0]))
		g.setLast(tys[0], g.lastExprUnsigned)
		return out, tys[0], nil
	}
}

func mathUnary(name string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", err
		}
		symbol := fmt.Sprintf("@llvm.%s.%s", name, tys[0])
		g.declareOnce(symbol, fmt.Sprintf("declare %s %s(%s)", tys[0], symbol, tys[0]))
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call %s %s(%s %s)", out, tys[0], symbol, tys[0], regs[0]))
		g.setLast(tys[0], false)
		return out, tys[0], nil
	}
}

func mathBinary(name string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", err
		}
		symbol := fmt.Sprintf("@llvm.%s.%s", name, tys[0])
		g.declareOnce(symbol, fmt.Sprintf("declare %s %s(%s, %s)", tys[0], symbol, tys[0], tys[0]))
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call %s %s(%s %s, %s %s)", out, tys[0], symbol, tys[0], regs[0], tys[0], regs[1]))
		g.setLast(tys[0], false)
		return out, tys[0], nil
	}
}

func mathFma(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 3)
	if err != nil {
		return "", "", err
	}
	symbol := fmt.Sprintf("@llvm.fma.%s", tys[0])
	g.declareOnce(symbol, fmt.Sprintf("declare %s %s(%s, %s, %s)", tys[0], symbol, tys[0], tys[0], tys[0]))
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = call %s %s(%s %s, %s %s, %s %s)", out, tys[0], symbol, tys[0], regs[0], tys[0], regs[1], tys[0], regs[2]))
	g.setLast(tys[0], false)
	return out, tys[0], nil
}

// checkedArith builds a Maybe[T]-valued checked arithmetic op using the
// `with.overflow` intrinsic family (section 4.5).
func checkedArith(opPrefix string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", err
		}
		symbol := fmt.Sprintf("@llvm.%s.with.overflow.%s", opPrefix, tys[0])
		retTy := fmt.Sprintf("{ %s, i1 }", tys[0])
		g.declareOnce(symbol, fmt.Sprintf("declare %s %s(%s, %s)", retTy, symbol, tys[0], tys[0]))
		pair := g.nextReg()
		g.emit(fmt.Sprintf("%s = call %s %s(%s %s, %s %s)", pair, retTy, symbol, tys[0], regs[0], tys[0], regs[1]))
		val := g.nextReg()
		g.emit(fmt.Sprintf("%s = extractvalue %s %s, 0", val, retTy, pair))
		overflowed := g.nextReg()
		g.emit(fmt.Sprintf("%s = extractvalue %s %s, 1", overflowed, retTy, pair))
		ok := g.nextReg()
		g.emit(fmt.Sprintf("%s = xor i1 %s, true", ok, overflowed))
		return g.buildMaybe(tys[0], ok, val)
	}
}

func checkedDiv(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 2)
	if err != nil {
		return "", "", err
	}
	zero := g.nextReg()
	g.emit(fmt.Sprintf("%s = icmp ne %s %s, 0", zero, tys[0], regs[1]))
	op := "sdiv"
	if g.lastExprUnsigned {
		op = "udiv"
	}
	val := g.nextReg()
	g.emit(fmt.Sprintf("%s = %s %s %s, %s", val, op, tys[0], regs[0], regs[1]))
	return g.buildMaybe(tys[0], zero, val)
}

// buildMaybe constructs the Maybe[T] result of a checked arithmetic
// intrinsic, tag 0 for Just(value) and tag 1 for Nothing (section 3),
// through the same enum registry and %enum.* layout a user-declared
// enum gets, so a later match against it resolves as an enum pattern
// rather than tripping enumMangledFromLLType's non-enum fallback.
func (g *Emitter) buildMaybe(payloadTy, ok, val string) (string, string, error) {
	mangled := g.instantiateMaybe(payloadTy)

	justReg, maybeTy, err := g.constructEnum(mangled, "Just", val, payloadTy)
	if err != nil {
		return "", "", err
	}
	nothingReg, _, err := g.constructEnum(mangled, "Nothing", "", "")
	if err != nil {
		return "", "", err
	}

	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = select i1 %s, %s %s, %s %s", out, ok, maybeTy, justReg, maybeTy, nothingReg))
	g.setLast(maybeTy, false)
	return out, maybeTy, nil
}

// instantiateMaybe registers (once) the compiler-synthesized Maybe[T]
// enum layout checked_add/checked_sub/checked_mul/checked_div build
// their result in. Maybe[T] has no EnumDecl anywhere in the AST — it is
// a fixed compiler convention, not a user declaration — so it is
// registered directly instead of going through instantiateEnum.
func (g *Emitter) instantiateMaybe(payloadLL string) string {
	mangled := "Maybe__" + sanitizeTypeForMangle(payloadLL)
	if _, ok := g.enums.lookup(mangled); ok {
		return mangled
	}
	rec := &enumRecord{
		Mangled:      mangled,
		VariantOrder: []string{"Just", "Nothing"},
		VariantTag:   map[string]int{"Just": 0, "Nothing": 1},
		PayloadLL:    payloadLL,
		Compact:      true,
	}
	g.enums.register(rec)
	g.emitGlobal(fmt.Sprintf("%%enum.%s = type { i32, %s }", mangled, payloadLL))
	return mangled
}

// sanitizeTypeForMangle turns an LLVM type string into a name-safe
// fragment for use in a mangled symbol.
func sanitizeTypeForMangle(ty string) string {
	replacer := strings.NewReplacer("%", "", "{", "", "}", "", " ", "", ",", "_", "*", "ptr")
	return replacer.Replace(ty)
}

// saturatingMul lowers saturating_mul. LLVM has no native `smul.sat`
// intrinsic, so it is built from `smul.with.overflow` plus a sign-based
// select of the type's MIN/MAX (section 4.5): an overflowing product is
// negative when the operands' signs differ, positive otherwise.
func saturatingMul(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 2)
	if err != nil {
		return "", "", err
	}
	ty := tys[0]

	symbol := fmt.Sprintf("@llvm.smul.with.overflow.%s", ty)
	retTy := fmt.Sprintf("{ %s, i1 }", ty)
	g.declareOnce(symbol, fmt.Sprintf("declare %s %s(%s, %s)", retTy, symbol, ty, ty))
	pair := g.nextReg()
	g.emit(fmt.Sprintf("%s = call %s %s(%s %s, %s %s)", pair, retTy, symbol, ty, regs[0], ty, regs[1]))
	val := g.nextReg()
	g.emit(fmt.Sprintf("%s = extractvalue %s %s, 0", val, retTy, pair))
	overflowed := g.nextReg()
	g.emit(fmt.Sprintf("%s = extractvalue %s %s, 1", overflowed, retTy, pair))

	minLit, maxLit := intSatBounds(ty)
	signA := g.nextReg()
	g.emit(fmt.Sprintf("%s = icmp slt %s %s, 0", signA, ty, regs[0]))
	signB := g.nextReg()
	g.emit(fmt.Sprintf("%s = icmp slt %s %s, 0", signB, ty, regs[1]))
	diffSign := g.nextReg()
	g.emit(fmt.Sprintf("%s = xor i1 %s, %s", diffSign, signA, signB))
	bound := g.nextReg()
	g.emit(fmt.Sprintf("%s = select i1 %s, %s %s, %s %s", bound, diffSign, ty, minLit, ty, maxLit))

	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = select i1 %s, %s %s, %s %s", out, overflowed, ty, bound, ty, val))
	g.setLast(ty, g.lastExprUnsigned)
	return out, ty, nil
}

// intSatBounds returns the decimal MIN/MAX literal text for a signed LLVM
// integer type, used by saturatingMul's overflow clamp.
func intSatBounds(ty string) (string, string) {
	w, ok := isIntType(ty)
	if !ok || w == 0 {
		return "0", "0"
	}
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(w-1)), big.NewInt(1))
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(w-1)))
	return min.String(), max.String()
}

func saturatingArith(opPrefix string) intrinsicFn {
	return func(g *Emitter, e *mast.CallExpr) (string, string, error) {
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", err
		}
		symbol := fmt.Sprintf("@llvm.%s.sat.%s", opPrefix, tys[0])
		g.declareOnce(symbol, fmt.Sprintf("declare %s %s(%s, %s)", tys[0], symbol, tys[0], tys[0]))
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call %s %s(%s %s, %s %s)", out, tys[0], symbol, tys[0], regs[0], tys[0], regs[1]))
		g.setLast(tys[0], g.lastExprUnsigned)
		return out, tys[0], nil
	}
}

func fieldCount(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	mangled := structMangledFromLLType(llTy)
	rec, ok := g.structs.get(mangled)
	n := 0
	if ok {
		n = len(rec.Fields)
	}
	g.setLast("i64", true)
	return fmt.Sprintf("%d", n), "i64", nil
}

func variantCount(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	mangled := strings.TrimPrefix(llTy, "%enum.")
	rec, ok := g.enums.lookup(mangled)
	n := 0
	if ok {
		n = len(rec.VariantOrder)
	}
	g.setLast("i64", true)
	return fmt.Sprintf("%d", n), "i64", nil
}

func fieldName(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	regs, _, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	mangled := structMangledFromLLType(llTy)
	rec, ok := g.structs.get(mangled)
	name := ""
	if ok {
		if idx, aerr := constIndex(regs[0]); aerr == nil && idx >= 0 && idx < len(rec.Fields) {
			name = rec.Fields[idx].Name
		}
	}
	sym := g.strings.intern(name)
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds [%d x i8], ptr %s, i64 0, i64 0", reg, len(name)+1, sym))
	g.setLast("ptr", false)
	return reg, "ptr", nil
}

func fieldTypeID(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	regs, _, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	mangled := structMangledFromLLType(llTy)
	rec, ok := g.structs.get(mangled)
	var fieldLL string
	if ok {
		if idx, aerr := constIndex(regs[0]); aerr == nil && idx >= 0 && idx < len(rec.Fields) {
			fieldLL = rec.Fields[idx].LLVMType
		}
	}
	g.setLast("i64", true)
	return fmt.Sprintf("%d", fnv1a(fieldLL)), "i64", nil
}

func fieldOffset(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	regs, _, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = ptrtoint ptr getelementptr (%s, ptr null, i32 0, i32 %s) to i64", out, llTy, regs[0]))
	g.setLast("i64", true)
	return out, "i64", nil
}

func constIndex(reg string) (int, error) {
	var n int
	_, err := fmt.Sscanf(reg, "%d", &n)
	return n, err
}

func simdLoad(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	regs, _, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", out, llTy, regs[0]))
	g.setLast(llTy, false)
	return out, llTy, nil
}

func simdStore(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 2)
	if err != nil {
		return "", "", err
	}
	g.emit(fmt.Sprintf("store %s %s, ptr %s", tys[1], regs[1], regs[0]))
	return "", "void", nil
}

func simdExtract(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 2)
	if err != nil {
		return "", "", err
	}
	scalarTy := stripVector(tys[0])
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = extractelement %s %s, %s %s", out, tys[0], regs[0], tys[1], regs[1]))
	g.setLast(scalarTy, false)
	return out, scalarTy, nil
}

func simdInsert(g *Emitter, e *mast.CallExpr) (string, string, error) {
	regs, tys, err := g.evalArgs(e, 3)
	if err != nil {
		return "", "", err
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = insertelement %s %s, %s %s, %s %s", out, tys[0], regs[0], tys[2], regs[2], tys[1], regs[1]))
	g.setLast(tys[0], false)
	return out, tys[0], nil
}

func simdSplat(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	regs, tys, err := g.evalArgs(e, 1)
	if err != nil {
		return "", "", err
	}
	lanes := vectorLanes(llTy)
	acc := "undef"
	vecTy := llTy
	for i := 0; i < lanes; i++ {
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = insertelement %s %s, %s %s, i32 %d", out, vecTy, acc, tys[0], regs[0], i))
		acc = out
	}
	g.setLast(vecTy, false)
	return acc, vecTy, nil
}

func vectorLanes(ty string) int {
	if !strings.HasPrefix(ty, "<") {
		return 1
	}
	n := 0
	for i := 1; i < len(ty); i++ {
		if ty[i] < '0' || ty[i] > '9' {
			break
		}
		n = n*10 + int(ty[i]-'0')
	}
	if n == 0 {
		return 1
	}
	return n
}

// dropIntrinsic lowers drop[T](value) (section 4.5): a no-op for
// primitives, a call to the type's generated destructor for
// user-defined structs, and a call to the matching runtime helper for
// the closed set of known droppable library types.
func dropIntrinsic(g *Emitter, e *mast.CallExpr) (string, string, error) {
	llTy, err := g.firstTypeArgLLType(e)
	if err != nil {
		return "", "", err
	}
	regs, _, evalErr := g.evalArgs(e, 1)
	if evalErr != nil {
		return "", "", evalErr
	}
	switch llTy {
	case "i1", "i8", "i16", "i32", "i64", "i128", "float", "double", "ptr", "void":
		return "", "void", nil
	}
	mangled := structMangledFromLLType(llTy)
	base := mangled
	if idx := strings.Index(base, "__"); idx >= 0 {
		base = base[:idx]
	}
	if known, ok := knownDroppable[base]; ok {
		g.declareOnce("@"+known, fmt.Sprintf("declare void @%s(ptr)", known))
		g.emit(fmt.Sprintf("call void @%s(ptr %s)", known, regs[0]))
		return "", "void", nil
	}
	dropFn := mangled + "_drop"
	if _, ok := g.env.lookupFn(dropFn); ok {
		g.emit(fmt.Sprintf("call void @%s(ptr %s)", dropFn, regs[0]))
	}
	return "", "void", nil
}

var knownDroppable = map[string]string{
	"Arc":   "arc_drop",
	"Rc":    "rc_drop",
	"Box":   "box_drop",
	"Mutex": "mutex_drop",
	"Text":  "text_drop",
	"List":  "list_drop",
}
