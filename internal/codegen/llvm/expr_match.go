package llvm

import (
	"fmt"

	mast "github.com/tml-lang/tmlc/internal/ast"
)

// patternBinding is a name this pattern binds if it matches, with the
// alloca slot and LLVM type already populated so the arm body can resolve
// it as an ordinary local.
type patternBinding struct {
	name string
	slot string
	ty   string
}

// genMatchExpr lowers a match expression to a cascade of tag/value
// comparisons converging on a join block, mirroring the if/else-if chain
// lowering in genIfExpr. The subject is materialized once into a stack
// slot so enum variants can be destructured by pointer.
func (g *Emitter) genMatchExpr(e *mast.MatchExpr) (string, string, error) {
	subjReg, subjTy, err := g.genExpr(e.Subject)
	if err != nil {
		return "", "", err
	}

	subjPtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = alloca %s", subjPtr, subjTy))
	g.emit(fmt.Sprintf("store %s %s, ptr %s", subjTy, subjReg, subjPtr))

	mangled, isEnum := enumMangledFromLLType(subjTy)
	var tagReg string
	if isEnum {
		tagReg, err = g.destructureEnum(mangled, subjPtr)
		if err != nil {
			return "", "", err
		}
	}

	endLabel := g.nextLabel("match.end")
	var incomings []ifIncoming
	var resultTy string

	for i, arm := range e.Arms {
		last := i == len(e.Arms)-1
		matchLabel := g.nextLabel("match.arm")
		nextLabel := endLabel
		if !last {
			nextLabel = g.nextLabel("match.next")
		}

		cond, bindings, err := g.genPatternTest(arm.Pattern, subjPtr, subjTy, mangled, isEnum, tagReg)
		if err != nil {
			return "", "", err
		}
		if cond == "" {
			g.terminate(fmt.Sprintf("br label %%%s", matchLabel))
		} else {
			g.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cond, matchLabel, nextLabel))
		}

		g.openLabel(matchLabel)
		curLabel := matchLabel
		for _, b := range bindings {
			g.locals[b.name] = b.slot
			g.localTypes()[b.name] = b.ty
		}

		if arm.Guard != nil {
			guardReg, _, err := g.genExpr(arm.Guard)
			if err != nil {
				return "", "", err
			}
			guardOkLabel := g.nextLabel("match.guard.ok")
			g.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", guardReg, guardOkLabel, nextLabel))
			g.openLabel(guardOkLabel)
			curLabel = guardOkLabel
		}

		bodyReg, bodyTy, err := g.genBlockExpr(arm.Body)
		if err != nil {
			return "", "", err
		}
		if !g.terminated {
			incomings = append(incomings, ifIncoming{curLabel, bodyReg, bodyTy})
			if resultTy == "" {
				resultTy = bodyTy
			}
			g.terminate(fmt.Sprintf("br label %%%s", endLabel))
		}

		if !last {
			g.openLabel(nextLabel)
		}
	}

	g.openLabel(endLabel)
	return g.mergeIncomings(incomings, resultTy)
}

// genPatternTest emits the comparison(s) needed to decide whether pat
// matches the already-materialized subject at subjPtr, returning the `i1`
// condition register (empty for an irrefutable pattern) and the bindings
// the pattern introduces when it matches.
func (g *Emitter) genPatternTest(pat mast.Pattern, subjPtr, subjTy, mangled string, isEnum bool, tagReg string) (string, []patternBinding, error) {
	switch p := pat.(type) {
	case *mast.PatternWild:
		return "", nil, nil

	case *mast.PatternIdent:
		if p.Name == nil {
			return "", nil, nil
		}
		slot := g.nextReg()
		g.emit(fmt.Sprintf("%s = alloca %s", slot, subjTy))
		loaded := g.nextReg()
		g.emit(fmt.Sprintf("%s = load %s, ptr %s", loaded, subjTy, subjPtr))
		g.emit(fmt.Sprintf("store %s %s, ptr %s", subjTy, loaded, slot))
		return "", []patternBinding{{p.Name.Name, slot, subjTy}}, nil

	case *mast.PatternLiteral:
		litReg, _, err := g.genExpr(p.Expr)
		if err != nil {
			return "", nil, err
		}
		loaded := g.nextReg()
		g.emit(fmt.Sprintf("%s = load %s, ptr %s", loaded, subjTy, subjPtr))
		cmp := g.nextReg()
		switch {
		case isFloatType(subjTy):
			g.emit(fmt.Sprintf("%s = fcmp oeq %s %s, %s", cmp, subjTy, loaded, litReg))
		case subjTy == "ptr":
			g.declareOnce("@str_eq", "declare i32 @str_eq(ptr, ptr)")
			call := g.nextReg()
			g.emit(fmt.Sprintf("%s = call i32 @str_eq(ptr %s, ptr %s)", call, loaded, litReg))
			g.emit(fmt.Sprintf("%s = icmp eq i32 %s, 1", cmp, call))
		default:
			g.emit(fmt.Sprintf("%s = icmp eq %s %s, %s", cmp, subjTy, loaded, litReg))
		}
		return cmp, nil, nil

	case *mast.PatternEnum:
		if !isEnum {
			return "", nil, g.internalInconsistencyError("enum pattern against a non-enum subject", pat)
		}
		variantName := enumPatternVariantName(p.Path)
		rec, ok := g.enums.lookup(mangled)
		if !ok {
			return "", nil, g.internalInconsistencyError("unknown enum "+mangled, pat)
		}
		tag, ok := rec.VariantTag[variantName]
		if !ok {
			return "", nil, g.internalInconsistencyError("unknown variant "+variantName+" of "+mangled, pat)
		}
		cmp := g.nextReg()
		g.emit(fmt.Sprintf("%s = icmp eq i32 %s, %d", cmp, tagReg, tag))

		bindings, err := g.enumPatternBindings(p, mangled, subjPtr)
		if err != nil {
			return "", nil, err
		}
		return cmp, bindings, nil

	case *mast.PatternBinding:
		cond, bindings, err := g.genPatternTest(p.Pattern, subjPtr, subjTy, mangled, isEnum, tagReg)
		if err != nil {
			return "", nil, err
		}
		if p.Name != nil {
			slot := g.nextReg()
			g.emit(fmt.Sprintf("%s = alloca %s", slot, subjTy))
			loaded := g.nextReg()
			g.emit(fmt.Sprintf("%s = load %s, ptr %s", loaded, subjTy, subjPtr))
			g.emit(fmt.Sprintf("store %s %s, ptr %s", subjTy, loaded, slot))
			bindings = append(bindings, patternBinding{p.Name.Name, slot, subjTy})
		}
		return cond, bindings, nil

	case *mast.PatternParen:
		return g.genPatternTest(p.Pattern, subjPtr, subjTy, mangled, isEnum, tagReg)

	default:
		return "", nil, g.internalInconsistencyError(fmt.Sprintf("unsupported pattern shape %T", pat), pat)
	}
}

func enumPatternVariantName(path *mast.PatternPath) string {
	if path == nil || len(path.Segments) == 0 {
		return ""
	}
	return path.Segments[len(path.Segments)-1].Name
}

// enumPatternBindings extracts the payload binding(s) for a matched enum
// pattern. Only the single-field tuple-variant shape used by Maybe[T] and
// Outcome[T,E] is supported; multi-field and struct-shaped payloads are
// left for a future extension.
func (g *Emitter) enumPatternBindings(p *mast.PatternEnum, mangled, subjPtr string) ([]patternBinding, error) {
	if p.Struct != nil {
		return nil, g.internalInconsistencyError("struct-payload enum pattern not supported", p)
	}
	if p.Tuple == nil || len(p.Tuple.Elements) == 0 {
		return nil, nil
	}
	if len(p.Tuple.Elements) != 1 {
		return nil, g.internalInconsistencyError("multi-field enum tuple pattern not supported", p)
	}

	switch elem := p.Tuple.Elements[0].(type) {
	case *mast.PatternWild:
		return nil, nil
	case *mast.PatternIdent:
		if elem.Name == nil {
			return nil, nil
		}
		payloadReg, payloadTy, err := g.extractEnumPayload(mangled, subjPtr)
		if err != nil {
			return nil, err
		}
		slot := g.nextReg()
		g.emit(fmt.Sprintf("%s = alloca %s", slot, payloadTy))
		g.emit(fmt.Sprintf("store %s %s, ptr %s", payloadTy, payloadReg, slot))
		return []patternBinding{{elem.Name.Name, slot, payloadTy}}, nil
	default:
		return nil, g.internalInconsistencyError(fmt.Sprintf("unsupported enum payload subpattern %T", elem), p)
	}
}
