package llvm

import (
	"fmt"
	"strings"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// genFunction emits a function definition. When mangledName is empty, the
// function is treated as non-generic and named after its declaration; a
// non-empty mangledName is supplied by the instantiation engine when
// draining a pending monomorphization. substMap carries the active
// generic-parameter substitution, nil at the top level.
func (g *Emitter) genFunction(d *mast.FnDecl, substMap map[string]types.Type, mangledName string) error {
	if mangledName == "" {
		if len(d.TypeParams) > 0 {
			return nil // generic: instantiated on demand
		}
		mangledName = d.Name.Name
	}

	savedSubst := g.substMap
	g.substMap = substMap
	defer func() { g.substMap = savedSubst }()

	savedFn := g.currentFunc
	savedLocals := g.locals
	savedLocalTys := g.localTys
	savedReg, savedLabel, savedTerm := g.regCounter, g.labelCounter, g.terminated
	g.locals = make(map[string]string)
	g.localTys = make(map[string]string)
	g.regCounter = 0
	g.labelCounter = 0
	g.terminated = false

	retType, err := g.resolveReturnType(d.ReturnType)
	if err != nil {
		return err
	}
	g.currentFunc = &functionContext{
		name:       mangledName,
		returnType: retType,
		typeParams: typeParamNameSet(d.TypeParams),
	}
	defer func() {
		g.currentFunc = savedFn
		g.locals = savedLocals
		g.localTys = savedLocalTys
		g.regCounter, g.labelCounter, g.terminated = savedReg, savedLabel, savedTerm
	}()

	retLL, err := g.lowerType(retType)
	if err != nil {
		return err
	}

	paramDecls := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		pType, err := g.resolveTypeExprInScope(p.Type)
		if err != nil {
			return err
		}
		pLL, err := g.lowerType(pType)
		if err != nil {
			return err
		}
		argReg := "%arg." + p.Name.Name
		paramDecls = append(paramDecls, pLL+" "+argReg)
	}

	g.emit(fmt.Sprintf("define %s @%s(%s) {", retLL, mangledName, strings.Join(paramDecls, ", ")))
	g.openLabel("entry")

	for _, p := range d.Params {
		pType, err := g.resolveTypeExprInScope(p.Type)
		if err != nil {
			return err
		}
		pLL, err := g.lowerType(pType)
		if err != nil {
			return err
		}
		slot := g.nextReg()
		g.emit(fmt.Sprintf("%s = alloca %s", slot, pLL))
		g.emit(fmt.Sprintf("store %s %%arg.%s, ptr %s", pLL, p.Name.Name, slot))
		g.locals[p.Name.Name] = slot
		g.localTys[p.Name.Name] = pLL
	}

	tailReg, tailTy, err := g.genBlockExpr(d.Body)
	if err != nil {
		return err
	}

	if !g.terminated {
		if retLL == "void" || tailReg == "" {
			g.terminate("ret void")
		} else {
			coerced, _, err := g.coerceForStorage(tailReg, tailTy, retLL)
			if err != nil {
				return err
			}
			g.terminate(fmt.Sprintf("ret %s %s", retLL, coerced))
		}
	}

	g.terminated = false
	g.emit("}")
	g.emit("")
	return nil
}

// resolveReturnType resolves a function's declared return type, treating
// an absent annotation as Unit.
func (g *Emitter) resolveReturnType(te mast.TypeExpr) (types.Type, error) {
	if te == nil {
		return types.TypeUnit, nil
	}
	return g.resolveTypeExprInScope(te)
}

func typeParamNameSet(params []mast.GenericParam) map[string]bool {
	set := make(map[string]bool, len(params))
	for _, p := range params {
		if name := genericParamName(p); name != "" {
			set[name] = true
		}
	}
	return set
}
