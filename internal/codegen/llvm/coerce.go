package llvm

import "fmt"

// intWidths maps LLVM integer type syntax to bit width, used throughout
// argument coercion and payload storage to decide sext/zext/trunc.
var intWidths = map[string]int{
	"i1": 1, "i8": 8, "i16": 16, "i32": 32, "i64": 64, "i128": 128,
}

func isIntType(t string) (int, bool) {
	w, ok := intWidths[t]
	return w, ok
}

func isFloatType(t string) bool {
	return t == "float" || t == "double"
}

// coerceWidth extends or truncates reg (of type fromTy) to toTy, per
// section 4.4's argument-coercion rules: the smaller operand is extended
// to the larger, sext for signed values and zext for unsigned; literals
// inferred at a wider type than the target are trunc'd.
func (g *Emitter) coerceWidth(reg, fromTy, toTy string, unsigned bool) (string, error) {
	if fromTy == toTy {
		return reg, nil
	}
	fromW, fromIsInt := isIntType(fromTy)
	toW, toIsInt := isIntType(toTy)
	if fromIsInt && toIsInt {
		if fromW == toW {
			return reg, nil
		}
		out := g.nextReg()
		if fromW < toW {
			op := "sext"
			if unsigned {
				op = "zext"
			}
			g.emit(fmt.Sprintf("%s = %s %s %s to %s", out, op, fromTy, reg, toTy))
		} else {
			g.emit(fmt.Sprintf("%s = trunc %s %s to %s", out, fromTy, reg, toTy))
		}
		return out, nil
	}
	if isFloatType(fromTy) && isFloatType(toTy) {
		out := g.nextReg()
		if fromTy == "float" && toTy == "double" {
			g.emit(fmt.Sprintf("%s = fpext %s %s to %s", out, fromTy, reg, toTy))
		} else {
			g.emit(fmt.Sprintf("%s = fptrunc %s %s to %s", out, fromTy, reg, toTy))
		}
		return out, nil
	}
	return reg, nil
}

// coerceForStorage prepares reg (of type fromTy) to be stored into a slot
// of type toTy, handling the enum-payload storage cases from section 4.6
// (extend/sign-extend to match the storage width) as well as the general
// pointer/integer distinctions from section 4.4.
func (g *Emitter) coerceForStorage(reg, fromTy, toTy string) (string, string, error) {
	if fromTy == toTy {
		return reg, toTy, nil
	}
	if _, fromIsInt := isIntType(fromTy); fromIsInt {
		if _, toIsInt := isIntType(toTy); toIsInt {
			out, err := g.coerceWidth(reg, fromTy, toTy, g.lastExprUnsigned)
			return out, toTy, err
		}
	}
	if fromTy == "ptr" && toTy == "{ ptr, ptr }" {
		out, err := g.wrapFatPointer(reg)
		return out, toTy, err
	}
	if fromTy == "i64" && toTy == "ptr" {
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = inttoptr i64 %s to ptr", out, reg))
		return out, "ptr", nil
	}
	return reg, fromTy, nil
}

// wrapFatPointer wraps a bare `ptr` value into the `{ ptr, ptr }` closure
// representation with a null environment, for the case where a function
// expects a fat pointer and the argument carries a non-capturing function
// reference (section 4.4: "Pointer-to-fat-pointer").
func (g *Emitter) wrapFatPointer(codePtr string) (string, error) {
	slot := g.nextReg()
	g.emit(fmt.Sprintf("%s = insertvalue { ptr, ptr } undef, ptr %s, 0", slot, codePtr))
	full := g.nextReg()
	g.emit(fmt.Sprintf("%s = insertvalue { ptr, ptr } %s, ptr null, 1", full, slot))
	return full, nil
}
