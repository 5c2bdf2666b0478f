package llvm

import (
	"fmt"

	mast "github.com/tml-lang/tmlc/internal/ast"
)

// builtinFn is one builtin helper dispatcher (section 4.7): it returns
// handled=false when the call's callee isn't one it recognizes, so the
// caller tries the next dispatcher in order.
type builtinFn func(g *Emitter, name string, e *mast.CallExpr) (string, string, bool, error)

// builtinDispatchers runs in the fixed order section 4.4 specifies:
// assert, atomic, mem, sync, math.
var builtinDispatchers = []builtinFn{
	dispatchAssert,
	dispatchAtomic,
	dispatchMem,
	dispatchSync,
	dispatchMath,
}

// tryBuiltin is step 2 of call dispatch: try each builtin dispatcher in
// order until one accepts the call.
func (g *Emitter) tryBuiltin(name string, e *mast.CallExpr) (string, string, bool, error) {
	for _, d := range builtinDispatchers {
		reg, ty, handled, err := d(g, name, e)
		if handled || err != nil {
			return reg, ty, handled, err
		}
	}
	return "", "", false, nil
}

// dispatchAssert lowers the assert/assert_eq/assert_ne family as the
// br-i1-cond/fail/ok triad described in section 4.6: evaluate operands,
// compare, branch to %fail (which calls the runtime location reporter
// and is unreachable) or %ok (continuation).
func dispatchAssert(g *Emitter, name string, e *mast.CallExpr) (string, string, bool, error) {
	switch name {
	case "assert":
		return g.lowerAssert(e)
	case "assert_eq":
		return g.lowerAssertCmp(e, "eq", "oeq")
	case "assert_ne":
		return g.lowerAssertCmp(e, "ne", "one")
	}
	return "", "", false, nil
}

func (g *Emitter) lowerAssert(e *mast.CallExpr) (string, string, bool, error) {
	if len(e.Args) == 0 {
		return "", "", false, nil
	}
	condReg, _, err := g.genExpr(e.Args[0])
	if err != nil {
		return "", "", true, err
	}
	okLabel := g.nextLabel("assert.ok")
	failLabel := g.nextLabel("assert.fail")
	g.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", condReg, okLabel, failLabel))

	g.openLabel(failLabel)
	msg := "assertion failed"
	if len(e.Args) > 1 {
		if lit, ok := e.Args[1].(*mast.StringLit); ok {
			msg = lit.Value
		}
	}
	g.emitAssertFailure(msg, e)
	g.terminate("unreachable")

	g.openLabel(okLabel)
	return "", "void", true, nil
}

func (g *Emitter) lowerAssertCmp(e *mast.CallExpr, intPred, floatPred string) (string, string, bool, error) {
	if len(e.Args) < 2 {
		return "", "", false, nil
	}
	left, leftTy, err := g.genExpr(e.Args[0])
	if err != nil {
		return "", "", true, err
	}
	leftUnsigned := g.lastExprUnsigned
	right, rightTy, err := g.genExpr(e.Args[1])
	if err != nil {
		return "", "", true, err
	}
	unsigned := leftUnsigned || g.lastExprUnsigned

	var cmpReg string
	if leftTy == "ptr" || rightTy == "ptr" {
		g.declareOnce("@str_eq", "declare i32 @str_eq(ptr, ptr)")
		call := g.nextReg()
		g.emit(fmt.Sprintf("%s = call i32 @str_eq(ptr %s, ptr %s)", call, left, right))
		cmpReg = g.nextReg()
		want := "1"
		if intPred == "ne" {
			want = "0"
		}
		g.emit(fmt.Sprintf("%s = icmp eq i32 %s, %s", cmpReg, call, want))
	} else if isFloatType(leftTy) || isFloatType(rightTy) {
		common := leftTy
		if isFloatType(rightTy) {
			common = rightTy
		}
		if leftTy != common {
			left, err = g.coerceWidth(left, leftTy, common, false)
			if err != nil {
				return "", "", true, err
			}
		}
		if rightTy != common {
			right, err = g.coerceWidth(right, rightTy, common, false)
			if err != nil {
				return "", "", true, err
			}
		}
		cmpReg = g.nextReg()
		g.emit(fmt.Sprintf("%s = fcmp %s %s %s, %s", cmpReg, floatPred, common, left, right))
	} else {
		common := leftTy
		if lw, lok := isIntType(leftTy); lok {
			if rw, rok := isIntType(rightTy); rok && rw > lw {
				common = rightTy
				left, err = g.coerceWidth(left, leftTy, common, unsigned)
			} else if rok && rw < lw {
				right, err = g.coerceWidth(right, rightTy, common, unsigned)
			}
			if err != nil {
				return "", "", true, err
			}
		}
		cmpReg = g.nextReg()
		g.emit(fmt.Sprintf("%s = icmp %s %s %s, %s", cmpReg, intPred, common, left, right))
	}

	okLabel := g.nextLabel("assert.ok")
	failLabel := g.nextLabel("assert.fail")
	g.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cmpReg, okLabel, failLabel))

	g.openLabel(failLabel)
	msg := "assertion failed"
	if len(e.Args) > 2 {
		if lit, ok := e.Args[2].(*mast.StringLit); ok {
			msg = lit.Value
		}
	}
	g.emitAssertFailure(msg, e)
	g.terminate("unreachable")

	g.openLabel(okLabel)
	return "", "void", true, nil
}

func (g *Emitter) emitAssertFailure(msg string, e *mast.CallExpr) {
	msgSym := g.strings.intern(msg)
	msgPtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds [%d x i8], ptr %s, i64 0, i64 0", msgPtr, len(msg)+1, msgSym))
	fileName := spanOf(e).Filename
	fileSym := g.strings.intern(fileName)
	filePtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds [%d x i8], ptr %s, i64 0, i64 0", filePtr, len(fileName)+1, fileSym))
	g.emit(fmt.Sprintf("call void @assert_tml_loc(i32 0, ptr %s, ptr %s, i32 %d)", msgPtr, filePtr, spanOf(e).Line))
}

// dispatchAtomic lowers atomic_load/store/add/sub/exchange/cas/and/or
// and the fence family (section 4.7).
func dispatchAtomic(g *Emitter, name string, e *mast.CallExpr) (string, string, bool, error) {
	switch name {
	case "atomic_load":
		regs, _, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", true, err
		}
		elemTy, err := g.firstTypeArgLLType(e)
		if err != nil {
			elemTy = "i32"
		}
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = load atomic %s, ptr %s seq_cst, align 4", out, elemTy, regs[0]))
		g.setLast(elemTy, false)
		return out, elemTy, true, nil

	case "atomic_store":
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", true, err
		}
		g.emit(fmt.Sprintf("store atomic %s %s, ptr %s seq_cst, align 4", tys[1], regs[1], regs[0]))
		return "", "void", true, nil

	case "atomic_add", "atomic_sub", "atomic_and", "atomic_or", "atomic_exchange":
		op := map[string]string{
			"atomic_add": "add", "atomic_sub": "sub", "atomic_and": "and",
			"atomic_or": "or", "atomic_exchange": "xchg",
		}[name]
		regs, tys, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", true, err
		}
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = atomicrmw %s ptr %s, %s %s seq_cst", out, op, regs[0], tys[1], regs[1]))
		g.setLast(tys[1], false)
		return out, tys[1], true, nil

	case "atomic_cas":
		regs, tys, err := g.evalArgs(e, 3)
		if err != nil {
			return "", "", true, err
		}
		pair := g.nextReg()
		g.emit(fmt.Sprintf("%s = cmpxchg ptr %s, %s %s, %s %s seq_cst seq_cst", pair, regs[0], tys[1], regs[1], tys[2], regs[2]))
		old := g.nextReg()
		g.emit(fmt.Sprintf("%s = extractvalue { %s, i1 } %s, 0", old, tys[1], pair))
		g.setLast(tys[1], false)
		return old, tys[1], true, nil

	case "fence":
		g.emit("fence seq_cst")
		return "", "void", true, nil
	case "fence_acquire":
		g.emit("fence acquire")
		return "", "void", true, nil
	case "fence_release":
		g.emit("fence release")
		return "", "void", true, nil
	case "compiler_fence":
		g.emit(`fence syncscope("singlethread") seq_cst`)
		return "", "void", true, nil
	}
	return "", "", false, nil
}

// dispatchSync lowers the spinlock family (section 4.7): spin_lock is a
// CAS-retry loop, spin_unlock a release store, spin_trylock a single
// exchange.
func dispatchSync(g *Emitter, name string, e *mast.CallExpr) (string, string, bool, error) {
	switch name {
	case "spin_lock":
		regs, _, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", true, err
		}
		loopLabel := g.nextLabel("spin.loop")
		doneLabel := g.nextLabel("spin.done")
		g.terminate(fmt.Sprintf("br label %%%s", loopLabel))
		g.openLabel(loopLabel)
		old := g.nextReg()
		g.emit(fmt.Sprintf("%s = atomicrmw xchg ptr %s, i32 1 acquire", old, regs[0]))
		acquired := g.nextReg()
		g.emit(fmt.Sprintf("%s = icmp eq i32 %s, 0", acquired, old))
		g.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", acquired, doneLabel, loopLabel))
		g.openLabel(doneLabel)
		return "", "void", true, nil

	case "spin_unlock":
		regs, _, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", true, err
		}
		g.emit(fmt.Sprintf("store atomic i32 0, ptr %s release, align 4", regs[0]))
		return "", "void", true, nil

	case "spin_trylock":
		regs, _, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", true, err
		}
		old := g.nextReg()
		g.emit(fmt.Sprintf("%s = atomicrmw xchg ptr %s, i32 1 acquire", old, regs[0]))
		acquired := g.nextReg()
		g.emit(fmt.Sprintf("%s = icmp eq i32 %s, 0", acquired, old))
		g.setLast("i1", false)
		return acquired, "i1", true, nil
	}
	return "", "", false, nil
}

// dispatchMem lowers the malloc/free-backed memory helpers (section
// 4.7).
func dispatchMem(g *Emitter, name string, e *mast.CallExpr) (string, string, bool, error) {
	switch name {
	case "alloc", "mem_alloc":
		regs, _, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", true, err
		}
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call ptr @malloc(i64 %s)", out, regs[0]))
		g.setLast("ptr", false)
		return out, "ptr", true, nil

	case "dealloc", "mem_free":
		regs, _, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", true, err
		}
		g.emit(fmt.Sprintf("call void @free(ptr %s)", regs[0]))
		return "", "void", true, nil

	case "mem_realloc":
		regs, _, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", true, err
		}
		g.declareOnce("@realloc", "declare ptr @realloc(ptr, i64)")
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call ptr @realloc(ptr %s, i64 %s)", out, regs[0], regs[1]))
		g.setLast("ptr", false)
		return out, "ptr", true, nil

	case "mem_copy":
		regs, _, err := g.evalArgs(e, 3)
		if err != nil {
			return "", "", true, err
		}
		g.emit(fmt.Sprintf("call void @llvm.memcpy.p0.p0.i64(ptr %s, ptr %s, i64 %s, i1 false)", regs[0], regs[1], regs[2]))
		return "", "void", true, nil

	case "mem_move":
		regs, _, err := g.evalArgs(e, 3)
		if err != nil {
			return "", "", true, err
		}
		g.emit(fmt.Sprintf("call void @llvm.memmove.p0.p0.i64(ptr %s, ptr %s, i64 %s, i1 false)", regs[0], regs[1], regs[2]))
		return "", "void", true, nil

	case "mem_set":
		regs, tys, err := g.evalArgs(e, 3)
		if err != nil {
			return "", "", true, err
		}
		byteVal := regs[1]
		if tys[1] != "i8" {
			t := g.nextReg()
			g.emit(fmt.Sprintf("%s = trunc %s %s to i8", t, tys[1], regs[1]))
			byteVal = t
		}
		g.emit(fmt.Sprintf("call void @llvm.memset.p0.i64(ptr %s, i8 %s, i64 %s, i1 false)", regs[0], byteVal, regs[2]))
		return "", "void", true, nil

	case "mem_zero", "mem_zeroed":
		regs, _, err := g.evalArgs(e, 2)
		if err != nil {
			return "", "", true, err
		}
		g.emit(fmt.Sprintf("call void @llvm.memset.p0.i64(ptr %s, i8 0, i64 %s, i1 false)", regs[0], regs[1]))
		return "", "void", true, nil

	case "mem_compare":
		regs, _, err := g.evalArgs(e, 3)
		if err != nil {
			return "", "", true, err
		}
		g.declareOnce("@memcmp", "declare i32 @memcmp(ptr, ptr, i64)")
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call i32 @memcmp(ptr %s, ptr %s, i64 %s)", out, regs[0], regs[1], regs[2]))
		g.setLast("i32", false)
		return out, "i32", true, nil

	case "mem_eq":
		regs, _, err := g.evalArgs(e, 3)
		if err != nil {
			return "", "", true, err
		}
		g.declareOnce("@memcmp", "declare i32 @memcmp(ptr, ptr, i64)")
		cmp := g.nextReg()
		g.emit(fmt.Sprintf("%s = call i32 @memcmp(ptr %s, ptr %s, i64 %s)", cmp, regs[0], regs[1], regs[2]))
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = icmp eq i32 %s, 0", out, cmp))
		g.setLast("i1", false)
		return out, "i1", true, nil

	case "mem_forget":
		// Intentionally a no-op: the value's destructor is simply never
		// run, matching the ownership-transfer semantics of forget.
		return "", "void", true, nil
	}
	return "", "", false, nil
}

// dispatchMath lowers the handful of formatting/conversion helpers
// section 4.7 groups under "math" that aren't already covered by the
// section 4.5 intrinsic math table (e.g. integer<->string parsing).
func dispatchMath(g *Emitter, name string, e *mast.CallExpr) (string, string, bool, error) {
	switch name {
	case "parse_int":
		regs, _, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", true, err
		}
		g.declareOnce("@atoll", "declare i64 @atoll(ptr)")
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call i64 @atoll(ptr %s)", out, regs[0]))
		g.setLast("i64", false)
		return out, "i64", true, nil

	case "parse_float":
		regs, _, err := g.evalArgs(e, 1)
		if err != nil {
			return "", "", true, err
		}
		g.declareOnce("@atof", "declare double @atof(ptr)")
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = call double @atof(ptr %s)", out, regs[0]))
		g.setLast("double", false)
		return out, "double", true, nil
	}
	return "", "", false, nil
}
