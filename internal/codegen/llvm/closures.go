package llvm

import (
	"fmt"
	"strings"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// genClosureLiteral lowers a function literal into the fat-pointer
// closure representation (section 4.8): a top-level function taking
// the environment pointer as an implicit first argument, plus a call
// site that packs the captured outer locals into a heap-allocated
// environment struct and returns `{ code_ptr, env_ptr }`.
func (g *Emitter) genClosureLiteral(e *mast.FunctionLiteral) (string, string, error) {
	captures := g.collectCaptures(e)

	envFieldTys := make([]string, 0, len(captures))
	for _, c := range captures {
		envFieldTys = append(envFieldTys, c.ty)
	}
	envTyName := fmt.Sprintf("%%closure.env.%d", g.closureCounter)
	envTyDecl := envTyName + " = type { " + strings.Join(envFieldTys, ", ") + " }"
	if len(captures) == 0 {
		envTyDecl = envTyName + " = type {}"
	}

	fnName := fmt.Sprintf("closure.%d", g.closureCounter)
	g.closureCounter++

	fnText, retLL, paramLLTypes, err := g.buildClosureFunction(fnName, envTyName, captures, e)
	if err != nil {
		return "", "", err
	}
	g.emitGlobal(envTyDecl)
	g.emitGlobal(fnText)
	_ = retLL
	_ = paramLLTypes

	// Pack captures into a heap-allocated environment (the closure may
	// outlive the enclosing stack frame once returned or stored).
	envPtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = call ptr @malloc(i64 ptrtoint (ptr getelementptr (%s, ptr null, i32 1) to i64))", envPtr, envTyName))
	for i, c := range captures {
		gep := g.nextReg()
		g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i32 0, i32 %d", gep, envTyName, envPtr, i))
		g.emit(fmt.Sprintf("store %s %s, ptr %s", c.ty, c.reg, gep))
	}

	fatSlot := g.nextReg()
	g.emit(fmt.Sprintf("%s = insertvalue { ptr, ptr } undef, ptr @%s, 0", fatSlot, fnName))
	fat := g.nextReg()
	g.emit(fmt.Sprintf("%s = insertvalue { ptr, ptr } %s, ptr %s, 1", fat, fatSlot, envPtr))

	g.setLast("{ ptr, ptr }", false)
	return fat, "{ ptr, ptr }", nil
}

// genClosureCall lowers a call whose callee is a local binding holding
// the `{ ptr, ptr }` fat-pointer closure representation (section 4.8:
// "Calling"), e.g. `let f = do(x) x * 2; f(21)`. handled is false for
// any identifier that isn't a closure-typed local, so genCallExpr falls
// back to ordinary function-name resolution.
func (g *Emitter) genClosureCall(callee *mast.Ident, call *mast.CallExpr) (string, string, bool, error) {
	slot, ok := g.locals[callee.Name]
	if !ok || g.localTypes()[callee.Name] != "{ ptr, ptr }" {
		return "", "", false, nil
	}

	fat := g.nextReg()
	g.emit(fmt.Sprintf("%s = load { ptr, ptr }, ptr %s", fat, slot))
	code := g.nextReg()
	g.emit(fmt.Sprintf("%s = extractvalue { ptr, ptr } %s, 0", code, fat))
	env := g.nextReg()
	g.emit(fmt.Sprintf("%s = extractvalue { ptr, ptr } %s, 1", env, fat))

	argParts := make([]string, 0, len(call.Args)+1)
	argParts = append(argParts, "ptr "+env)
	for _, a := range call.Args {
		reg, ty, err := g.genExpr(a)
		if err != nil {
			return "", "", true, err
		}
		argParts = append(argParts, ty+" "+reg)
	}

	retLL := "void"
	if t, ok := g.typeInfo[call]; ok {
		if ll, err := g.lowerType(t); err == nil {
			retLL = ll
		}
	}

	if retLL == "void" {
		g.emit(fmt.Sprintf("call void %s(%s)", code, strings.Join(argParts, ", ")))
		return "", "void", true, nil
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = call %s %s(%s)", out, retLL, code, strings.Join(argParts, ", ")))
	g.setLast(retLL, isUnsignedType(g.typeInfo[call]))
	return out, retLL, true, nil
}

type closureCapture struct {
	name string
	reg  string // outer alloca slot
	ty   string // LLVM pointee type
}

// collectCaptures walks a closure body and returns every outer local it
// references, excluding the literal's own parameters, in first-use
// order. Captured values are read by address: the environment stores
// the captured slot's current value at closure-creation time.
func (g *Emitter) collectCaptures(e *mast.FunctionLiteral) []closureCapture {
	own := make(map[string]bool, len(e.Params))
	for _, p := range e.Params {
		if p.Name != nil {
			own[p.Name.Name] = true
		}
	}

	seen := make(map[string]bool)
	var captures []closureCapture
	mast.Walk(e.Body, func(n mast.Node) bool {
		id, ok := n.(*mast.Ident)
		if !ok {
			return true
		}
		if own[id.Name] || seen[id.Name] {
			return true
		}
		slot, ok := g.locals[id.Name]
		if !ok {
			return true
		}
		seen[id.Name] = true
		captures = append(captures, closureCapture{name: id.Name, reg: slot, ty: g.localTypes()[id.Name]})
		return true
	})
	return captures
}

// buildClosureFunction emits a closure's body as an independent
// top-level function definition, isolated from the enclosing function's
// instruction stream by swapping out the emitter's builder and local
// scope for the duration.
func (g *Emitter) buildClosureFunction(fnName, envTyName string, captures []closureCapture, e *mast.FunctionLiteral) (string, string, []string, error) {
	savedBuilder := g.builder
	savedLocals := g.locals
	savedLocalTys := g.localTys
	savedFn := g.currentFunc
	savedReg, savedLabel, savedTerm := g.regCounter, g.labelCounter, g.terminated
	g.builder = strings.Builder{}
	g.locals = make(map[string]string)
	g.localTys = make(map[string]string)
	g.regCounter = 0
	g.labelCounter = 0
	g.terminated = false
	defer func() {
		g.builder = savedBuilder
		g.locals = savedLocals
		g.localTys = savedLocalTys
		g.currentFunc = savedFn
		g.regCounter, g.labelCounter, g.terminated = savedReg, savedLabel, savedTerm
	}()

	retType, err := g.inferBlockType(e.Body)
	if err != nil {
		return "", "", nil, err
	}
	retLL, err := g.lowerType(retType)
	if err != nil {
		return "", "", nil, err
	}
	g.currentFunc = &functionContext{name: fnName, returnType: retType, typeParams: map[string]bool{}}

	paramDecls := []string{"ptr %env"}
	paramLLTypes := make([]string, 0, len(e.Params))
	for _, p := range e.Params {
		pType, err := g.resolveTypeExprInScope(p.Type)
		if err != nil {
			return "", "", nil, err
		}
		pLL, err := g.lowerType(pType)
		if err != nil {
			return "", "", nil, err
		}
		paramLLTypes = append(paramLLTypes, pLL)
		paramDecls = append(paramDecls, fmt.Sprintf("%s %%arg.%s", pLL, p.Name.Name))
	}

	g.emit(fmt.Sprintf("define %s @%s(%s) {", retLL, fnName, strings.Join(paramDecls, ", ")))
	g.openLabel("entry")

	for i, c := range captures {
		gep := g.nextReg()
		g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %%env, i32 0, i32 %d", gep, envTyName, i))
		slot := g.nextReg()
		g.emit(fmt.Sprintf("%s = alloca %s", slot, c.ty))
		loaded := g.nextReg()
		g.emit(fmt.Sprintf("%s = load %s, ptr %s", loaded, c.ty, gep))
		g.emit(fmt.Sprintf("store %s %s, ptr %s", c.ty, loaded, slot))
		g.locals[c.name] = slot
		g.localTypes()[c.name] = c.ty
	}
	for i, p := range e.Params {
		pLL := paramLLTypes[i]
		slot := g.nextReg()
		g.emit(fmt.Sprintf("%s = alloca %s", slot, pLL))
		g.emit(fmt.Sprintf("store %s %%arg.%s, ptr %s", pLL, p.Name.Name, slot))
		g.locals[p.Name.Name] = slot
		g.localTypes()[p.Name.Name] = pLL
	}

	tailReg, tailTy, err := g.genBlockExpr(e.Body)
	if err != nil {
		return "", "", nil, err
	}
	if !g.terminated {
		if retLL == "void" || tailReg == "" {
			g.terminate("ret void")
		} else {
			coerced, _, err := g.coerceForStorage(tailReg, tailTy, retLL)
			if err != nil {
				return "", "", nil, err
			}
			g.terminate(fmt.Sprintf("ret %s %s", retLL, coerced))
		}
	}
	g.terminated = false
	g.emit("}")
	g.emit("")

	return g.builder.String(), retLL, paramLLTypes, nil
}

// inferBlockType determines a closure body's return type by consulting
// the type checker's resolution for its tail expression, defaulting to
// Unit for a body with no tail.
func (g *Emitter) inferBlockType(b *mast.BlockExpr) (types.Type, error) {
	if b != nil && b.Tail != nil {
		if t, ok := g.typeInfo[b.Tail]; ok {
			return t, nil
		}
	}
	return types.TypeUnit, nil
}
