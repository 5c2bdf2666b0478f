package llvm

import (
	"fmt"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// enumRecord is the per-enum metadata the emitter consults at every
// construction and destructuring site (section 3: "Enum layout
// agreement" invariant).
type enumRecord struct {
	Mangled      string
	VariantOrder []string
	VariantTag   map[string]int // variant name -> tag
	Payloads     map[string][]types.Type
	PayloadLL    string // llvm type used to store the payload
	Compact      bool   // true for `{ tag, T }`, false for `{ tag, [M x i64] }`
}

type enumRegistry struct {
	byMangled map[string]*enumRecord
}

func newEnumRegistry() *enumRegistry {
	return &enumRegistry{byMangled: make(map[string]*enumRecord)}
}

func (r *enumRegistry) lookup(mangled string) (*enumRecord, bool) {
	rec, ok := r.byMangled[mangled]
	return rec, ok
}

func (r *enumRegistry) register(rec *enumRecord) {
	r.byMangled[rec.Mangled] = rec
}

// genEnumType generates the LLVM type declaration for a non-generic enum
// declared at top level. Generic enums (Maybe[T], Outcome[T,E], ...) are
// generated lazily by the instantiation engine.
func (g *Emitter) genEnumType(d *mast.EnumDecl) error {
	if len(d.TypeParams) > 0 {
		return nil
	}
	_, err := g.instantiateEnum(d, nil)
	return err
}

// instantiateEnum emits (if not already emitted) the LLVM struct type for
// enum d with the given concrete type arguments and returns its mangled
// name. The payload layout (compact vs. legacy) is decided once, at first
// instantiation, and recorded on the registry entry; every later access
// site consults that record rather than re-deriving the layout.
func (g *Emitter) instantiateEnum(d *mast.EnumDecl, args []types.Type) (string, error) {
	mangled := mangleAggregate(d.Name.Name, args)
	if _, ok := g.enums.lookup(mangled); ok {
		return mangled, nil
	}

	savedSubst := g.substMap
	g.substMap = buildSubstMap(d.TypeParams, args)
	defer func() { g.substMap = savedSubst }()

	variantOrder := make([]string, 0, len(d.Variants))
	variantTag := make(map[string]int, len(d.Variants))
	payloads := make(map[string][]types.Type, len(d.Variants))

	distinctPayloadLL := map[string]bool{}
	maxWords := 0
	anyPayload := false

	for i, v := range d.Variants {
		name := ""
		if v.Name != nil {
			name = v.Name.Name
		}
		variantOrder = append(variantOrder, name)
		variantTag[name] = i

		payloadTypes := make([]types.Type, 0, len(v.Payloads))
		words := 0
		for _, pt := range v.Payloads {
			semType, err := g.resolveTypeExprInScope(pt)
			if err != nil {
				return "", err
			}
			payloadTypes = append(payloadTypes, semType)
			llTy, err := g.lowerType(semType)
			if err != nil {
				return "", err
			}
			distinctPayloadLL[llTy] = true
			words += wordsFor(semType)
		}
		payloads[name] = payloadTypes
		if len(payloadTypes) > 0 {
			anyPayload = true
		}
		if words > maxWords {
			maxWords = words
		}
	}

	compact := anyPayload && len(distinctPayloadLL) == 1 && allSinglePayload(payloads)
	var payloadLL string
	if !anyPayload {
		compact = true
		payloadLL = "" // no payload field at all
	} else if compact {
		for llTy := range distinctPayloadLL {
			payloadLL = llTy
		}
	} else {
		if maxWords < 1 {
			maxWords = 1
		}
		payloadLL = fmt.Sprintf("[%d x i64]", maxWords)
	}

	rec := &enumRecord{
		Mangled:      mangled,
		VariantOrder: variantOrder,
		VariantTag:   variantTag,
		Payloads:     payloads,
		PayloadLL:    payloadLL,
		Compact:      compact,
	}
	g.enums.register(rec)

	if payloadLL == "" {
		g.emitGlobal(fmt.Sprintf("%%enum.%s = type { i32 }", mangled))
	} else {
		g.emitGlobal(fmt.Sprintf("%%enum.%s = type { i32, %s }", mangled, payloadLL))
	}
	return mangled, nil
}

// enumHasVariant reports whether en declares a variant named name, used by
// the static-call dispatcher to tell `Type::Variant(args)` construction
// apart from an ordinary impl-method static call sharing the same syntax.
func enumHasVariant(en *mast.EnumDecl, name string) bool {
	for _, v := range en.Variants {
		if v.Name != nil && v.Name.Name == name {
			return true
		}
	}
	return false
}

// genEnumConstruct lowers `Type::Variant(args...)` / `Type[Args]::Variant(...)`
// enum-variant construction, the enum half of the static-call protocol
// genStaticCall shares with impl-method dispatch (section 4.4 step 4).
// explicitArgs carries any type arguments already parsed off the callee's
// `Type[Args]` syntax; a generic enum constructed without them has its type
// arguments inferred from the payload expression, mirroring inferCallTypeArgs.
func (g *Emitter) genEnumConstruct(en *mast.EnumDecl, explicitArgs []types.Type, variantName string, call *mast.CallExpr) (string, string, error) {
	typeArgs := explicitArgs
	if len(typeArgs) == 0 && len(en.TypeParams) > 0 {
		typeArgs = g.inferEnumTypeArgs(en, variantName, call)
	}

	mangled, err := g.instantiateEnum(en, typeArgs)
	if err != nil {
		return "", "", err
	}

	var valueReg, valueTy string
	if len(call.Args) > 0 {
		reg, ty, err := g.genExpr(call.Args[0])
		if err != nil {
			return "", "", err
		}
		valueReg, valueTy = reg, ty
	}

	reg, ty, err := g.constructEnum(mangled, variantName, valueReg, valueTy)
	if err != nil {
		return "", "", err
	}
	g.setLast(ty, false)
	return reg, ty, nil
}

// inferEnumTypeArgs infers a generic enum's concrete type arguments from the
// constructed variant's payload expression(s), matching each declared
// payload type whose annotation is a bare generic-parameter name against the
// type checker's resolution for the corresponding call argument.
func (g *Emitter) inferEnumTypeArgs(en *mast.EnumDecl, variantName string, call *mast.CallExpr) []types.Type {
	typeParamNames := make([]string, 0, len(en.TypeParams))
	for _, p := range en.TypeParams {
		if name := genericParamName(p); name != "" {
			typeParamNames = append(typeParamNames, name)
		}
	}

	resolved := make(map[string]types.Type, len(typeParamNames))
	for _, v := range en.Variants {
		name := ""
		if v.Name != nil {
			name = v.Name.Name
		}
		if name != variantName {
			continue
		}
		for i, payloadTy := range v.Payloads {
			if i >= len(call.Args) {
				break
			}
			named, ok := payloadTy.(*mast.NamedType)
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
	}

	args := make([]types.Type, 0, len(typeParamNames))
	for _, tp := range typeParamNames {
		if t, ok := resolved[tp]; ok {
			args = append(args, t)
		} else {
			args = append(args, &types.GenericParam{Name: tp})
		}
	}
	return args
}

func allSinglePayload(payloads map[string][]types.Type) bool {
	for _, p := range payloads {
		if len(p) > 1 {
			return false
		}
	}
	return true
}

// wordsFor estimates the 64-bit-word storage cost of a semantic type for
// legacy `[M x i64]` payload sizing.
func wordsFor(t types.Type) int {
	switch v := t.(type) {
	case *types.Primitive:
		w := v.Kind.BitWidth()
		if w == 0 {
			return 1
		}
		return (w + 63) / 64
	default:
		return 1 // pointers and aggregates are passed/stored as one word
	}
}

// constructEnum allocates, tags, and (if present) stores the payload for
// one enum variant, returning the loaded aggregate value's register and
// its LLVM type. valueReg/valueTy is the already-lowered payload
// expression, or "" if the variant carries no payload.
func (g *Emitter) constructEnum(mangled, variantName, valueReg, valueTy string) (string, string, error) {
	rec, ok := g.enums.lookup(mangled)
	if !ok {
		return "", "", g.internalInconsistencyError("construct: unknown enum "+mangled, nil)
	}
	tag, ok := rec.VariantTag[variantName]
	if !ok {
		return "", "", g.internalInconsistencyError("construct: unknown variant "+variantName+" of "+mangled, nil)
	}

	llType := "%enum." + mangled
	slot := g.nextReg()
	g.emit(fmt.Sprintf("%s = alloca %s", slot, llType))

	tagPtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i32 0, i32 0", tagPtr, llType, slot))
	g.emit(fmt.Sprintf("store i32 %d, ptr %s", tag, tagPtr))

	if valueReg != "" && rec.PayloadLL != "" {
		payloadPtr := g.nextReg()
		g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i32 0, i32 1", payloadPtr, llType, slot))
		coerced, coercedTy, err := g.coerceForStorage(valueReg, valueTy, rec.PayloadLL)
		if err != nil {
			return "", "", err
		}
		g.emit(fmt.Sprintf("store %s %s, ptr %s", coercedTy, coerced, payloadPtr))
	}

	loaded := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", loaded, llType, slot))
	return loaded, llType, nil
}

// destructureEnum loads the i32 tag of an already-materialized enum value
// held at enumPtr (a pointer to %enum.MANGLED). It does not read the
// payload; extractEnumPayload does that.
func (g *Emitter) destructureEnum(mangled, enumPtr string) (tagReg string, err error) {
	rec, ok := g.enums.lookup(mangled)
	if !ok {
		return "", g.internalInconsistencyError("destructure: unknown enum "+mangled, nil)
	}
	llType := "%enum." + mangled
	tagPtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i32 0, i32 0", tagPtr, llType, enumPtr))
	tagReg = g.nextReg()
	g.emit(fmt.Sprintf("%s = load i32, ptr %s", tagReg, tagPtr))
	_ = rec
	return tagReg, nil
}

// extractEnumPayload loads the payload field for enumPtr, returning the
// register holding it and its LLVM type (the enum's recorded payload
// type, per the layout-agreement invariant — every access site must use
// this, never its own guess).
func (g *Emitter) extractEnumPayload(mangled, enumPtr string) (string, string, error) {
	rec, ok := g.enums.lookup(mangled)
	if !ok {
		return "", "", g.internalInconsistencyError("extract payload: unknown enum "+mangled, nil)
	}
	if rec.PayloadLL == "" {
		return "", "", g.payloadLayoutMismatchError(mangled, nil)
	}
	llType := "%enum." + mangled
	payloadPtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i32 0, i32 1", payloadPtr, llType, enumPtr))
	loaded := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, ptr %s", loaded, rec.PayloadLL, payloadPtr))
	return loaded, rec.PayloadLL, nil
}
