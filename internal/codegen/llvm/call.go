package llvm

import (
	"fmt"
	"strings"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// genCallExpr is the central call-site dispatcher (section 4.4): intrinsic,
// then builtin helper, then primitive method, then generic struct static,
// then plain user function/method, tried in that fixed order.
func (g *Emitter) genCallExpr(e *mast.CallExpr) (string, string, error) {
	if name, ok := calleeBaseName(e.Callee); ok {
		if reg, ty, handled, err := g.tryIntrinsic(name, e); handled || err != nil {
			return reg, ty, err
		}
		if reg, ty, handled, err := g.tryBuiltin(name, e); handled || err != nil {
			return reg, ty, err
		}
	}

	switch callee := e.Callee.(type) {
	case *mast.FieldExpr:
		return g.genMethodCall(callee, e)
	case *mast.InfixExpr:
		if callee.Op == mast.OpPathSep {
			return g.genStaticCall(callee, e)
		}
	case *mast.Ident:
		if reg, ty, handled, err := g.genClosureCall(callee, e); handled || err != nil {
			return reg, ty, err
		}
	}

	return g.genPlainCall(e)
}

// genMethodCall lowers `target.method(args...)`, section 4.4 steps 3/5:
// the receiver's type (primitive or user-defined) is resolved and an impl
// method of that name is located; the receiver is passed as the method's
// implicit first argument.
func (g *Emitter) genMethodCall(fe *mast.FieldExpr, call *mast.CallExpr) (string, string, error) {
	typeName, typeArgs, err := g.receiverTypeName(fe.Target)
	if err != nil {
		return "", "", err
	}

	method, moduleHint, isLibraryType, ok := g.env.findImplMethod(typeName, fe.Field.Name)
	if !ok {
		return "", "", g.unresolvedSymbolError(typeName+"."+fe.Field.Name, call)
	}

	mangled := method.Name.Name
	if len(method.TypeParams) > 0 || len(typeArgs) > 0 {
		mangled = g.enqueueImplMethod(method, typeName, typeArgs, moduleHint, isLibraryType)
	}

	args := append([]mast.Expr{fe.Target}, call.Args...)
	return g.emitCall(method, mangled, args, call)
}

// genStaticCall lowers `Type::method(args...)` and `Type[Args]::method(...)`
// (section 4.4 step 4): the generic struct/enum static-call protocol.
func (g *Emitter) genStaticCall(path *mast.InfixExpr, call *mast.CallExpr) (string, string, error) {
	methodIdent, ok := path.Right.(*mast.Ident)
	if !ok {
		return "", "", g.unsupportedExprError(call, "non-identifier method in static call")
	}

	typeName, typeArgExprs, ok := splitGenericCallee(path.Left)
	if !ok {
		return "", "", g.unsupportedExprError(call, "unresolvable static call target")
	}

	typeArgs := make([]types.Type, 0, len(typeArgExprs))
	for _, te := range typeArgExprs {
		ident, ok := te.(*mast.Ident)
		if !ok {
			return "", "", g.unsupportedExprError(call, "non-identifier type argument")
		}
		t, err := g.resolveNamedTypeRef(ident.Name)
		if err != nil {
			return "", "", err
		}
		typeArgs = append(typeArgs, t)
	}

	if en, ok := g.env.lookupEnum(typeName); ok && enumHasVariant(en, methodIdent.Name) {
		return g.genEnumConstruct(en, typeArgs, methodIdent.Name, call)
	}

	method, moduleHint, isLibraryType, ok := g.env.findImplMethod(typeName, methodIdent.Name)
	if !ok {
		return "", "", g.unresolvedSymbolError(typeName+"::"+methodIdent.Name, call)
	}

	mangled := method.Name.Name
	if len(method.TypeParams) > 0 || len(typeArgs) > 0 {
		mangled = g.enqueueImplMethod(method, typeName, typeArgs, moduleHint, isLibraryType)
	}

	return g.emitCall(method, mangled, call.Args, call)
}

// genPlainCall lowers an ordinary function call `f(args...)`, including
// the on-demand monomorphization of a generic function from its call-site
// argument types (section 4.3: generic functions are instantiated lazily,
// the first time a concrete call is seen).
func (g *Emitter) genPlainCall(call *mast.CallExpr) (string, string, error) {
	name, ok := calleeBaseName(call.Callee)
	if !ok {
		return "", "", g.unsupportedExprError(call, "unsupported call target")
	}

	decl, ok := g.env.lookupFn(name)
	if !ok {
		return "", "", g.unresolvedSymbolError(name, call)
	}

	mangled := decl.Name.Name
	if len(decl.TypeParams) > 0 {
		typeArgs, err := g.resolveExplicitOrInferredTypeArgs(decl, call)
		if err != nil {
			return "", "", err
		}
		mangled = g.enqueueFunction(decl, typeArgs)
	}

	return g.emitCall(decl, mangled, call.Args, call)
}

// resolveExplicitOrInferredTypeArgs prefers a call's explicit type
// arguments (`identity[I32](x)`) and falls back to inferring them from the
// argument expressions' checked types when the call syntax carries none.
func (g *Emitter) resolveExplicitOrInferredTypeArgs(decl *mast.FnDecl, call *mast.CallExpr) ([]types.Type, error) {
	if explicit := calleeTypeArgs(call.Callee); len(explicit) > 0 {
		args := make([]types.Type, 0, len(explicit))
		for _, te := range explicit {
			ident, ok := te.(*mast.Ident)
			if !ok {
				return nil, g.unsupportedExprError(call, "non-identifier type argument")
			}
			t, err := g.resolveNamedTypeRef(ident.Name)
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
		return args, nil
	}
	return g.inferCallTypeArgs(decl, call)
}

// emitCall evaluates each argument, coerces it to the callee's declared
// parameter type, and emits the `call` instruction.
func (g *Emitter) emitCall(decl *mast.FnDecl, mangled string, argExprs []mast.Expr, call *mast.CallExpr) (string, string, error) {
	savedSubst := g.substMap
	if len(decl.TypeParams) > 0 {
		// Parameter type resolution below must see the instantiation's own
		// substitution, not whatever the calling function's happens to be.
		g.substMap = nil
	}

	argParts := make([]string, 0, len(argExprs))
	for i, a := range argExprs {
		reg, ty, err := g.genExpr(a)
		if err != nil {
			g.substMap = savedSubst
			return "", "", err
		}
		if i < len(decl.Params) {
			pType, err := g.resolveTypeExprInScope(decl.Params[i].Type)
			if err == nil {
				if pLL, err2 := g.lowerType(pType); err2 == nil {
					coerced, coercedTy, cErr := g.coerceForStorage(reg, ty, pLL)
					if cErr == nil {
						reg, ty = coerced, coercedTy
					}
				}
			}
		}
		argParts = append(argParts, ty+" "+reg)
	}
	g.substMap = savedSubst

	retType, err := g.resolveReturnType(decl.ReturnType)
	if err != nil {
		return "", "", err
	}
	retLL, err := g.lowerType(retType)
	if err != nil {
		return "", "", err
	}

	if retLL == "void" {
		g.emit(fmt.Sprintf("call void @%s(%s)", mangled, strings.Join(argParts, ", ")))
		return "", "void", nil
	}

	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = call %s @%s(%s)", out, retLL, mangled, strings.Join(argParts, ", ")))
	g.setLast(retLL, isUnsignedType(retType))
	return out, retLL, nil
}

// receiverTypeName resolves a method-call target's bare type name and, for
// a generic receiver, its concrete type arguments, preferring the type
// checker's resolution and falling back to the already-lowered LLVM
// aggregate name when no semantic type was recorded for the node.
func (g *Emitter) receiverTypeName(target mast.Expr) (string, []types.Type, error) {
	if semTy, ok := g.typeInfo[target]; ok {
		switch v := semTy.(type) {
		case *types.Named:
			return v.Name, v.TypeArgs, nil
		case *types.Primitive:
			return primitiveKindName(v.Kind), nil, nil
		case *types.Struct:
			return v.Name, nil, nil
		case *types.Enum:
			return v.Name, nil, nil
		}
	}
	_, targetTy, err := g.genLValuePointer(target)
	if err != nil {
		return "", nil, err
	}
	mangled := structMangledFromLLType(targetTy)
	if idx := strings.Index(mangled, "__"); idx >= 0 {
		mangled = mangled[:idx]
	}
	return mangled, nil, nil
}

// primitiveKindName maps a semantic primitive kind back to the bare
// type-name spelling used by impl-block targets (`impl Show for I32`).
func primitiveKindName(k types.PrimitiveKind) string {
	switch k {
	case types.I8:
		return "I8"
	case types.I16:
		return "I16"
	case types.I32:
		return "I32"
	case types.I64:
		return "I64"
	case types.I128:
		return "I128"
	case types.U8:
		return "U8"
	case types.U16:
		return "U16"
	case types.U32:
		return "U32"
	case types.U64:
		return "U64"
	case types.U128:
		return "U128"
	case types.F32:
		return "F32"
	case types.F64:
		return "F64"
	case types.Bool:
		return "Bool"
	case types.Char:
		return "Char"
	case types.Str:
		return "Str"
	default:
		return "Unit"
	}
}

// splitGenericCallee separates a static-call's target into its bare type
// name and (for `Type[Args]::method`) the syntactic type-argument list.
func splitGenericCallee(target mast.Expr) (string, []mast.Expr, bool) {
	switch t := target.(type) {
	case *mast.Ident:
		return t.Name, nil, true
	case *mast.IndexExpr:
		base, ok := t.Target.(*mast.Ident)
		if !ok {
			return "", nil, false
		}
		return base.Name, t.Indices, true
	}
	return "", nil, false
}

// inferCallTypeArgs infers a generic function's concrete type arguments
// from its call-site argument expressions, matching each declared
// parameter whose type annotation is a bare generic-parameter name against
// the type checker's resolution for the corresponding call argument
// (section 4.3's call-site instantiation trigger).
func (g *Emitter) inferCallTypeArgs(decl *mast.FnDecl, call *mast.CallExpr) ([]types.Type, error) {
	typeParamNames := make([]string, 0, len(decl.TypeParams))
	for _, p := range decl.TypeParams {
		if name := genericParamName(p); name != "" {
			typeParamNames = append(typeParamNames, name)
		}
	}

	resolved := make(map[string]types.Type, len(typeParamNames))
	for i, p := range decl.Params {
		if i >= len(call.Args) {
			break
		}
		named, ok := p.Type.(*mast.NamedType)
		if !ok || named.Name == nil {
			continue
		}
		pname := named.Name.Name
		for _, tp := range typeParamNames {
			if tp == pname {
				if argTy, ok := g.typeInfo[call.Args[i]]; ok {
					resolved[tp] = argTy
				}
			}
		}
	}

	args := make([]types.Type, 0, len(typeParamNames))
	for _, tp := range typeParamNames {
		if t, ok := resolved[tp]; ok {
			args = append(args, t)
		} else {
			args = append(args, &types.GenericParam{Name: tp})
		}
	}
	return args, nil
}
