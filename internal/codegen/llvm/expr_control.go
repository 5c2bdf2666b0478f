package llvm

import (
	"fmt"
	"strings"

	mast "github.com/tml-lang/tmlc/internal/ast"
)

// ifIncoming is one predecessor edge into an if-expression's join block:
// the block that branched to the join, and the value (if any) it
// produced.
type ifIncoming struct {
	label string
	reg   string
	ty    string
}

// genIfExpr lowers an if/else-if/else expression chain to a cascade of
// conditional branches converging on a join block. Arms that terminate
// early (return/break/continue) contribute no incoming edge; if every
// arm does, the join block is unreachable dead code and callers never
// observe a result register for it.
func (g *Emitter) genIfExpr(e *mast.IfExpr) (string, string, error) {
	joinLabel := g.nextLabel("if.end")
	var incomings []ifIncoming
	var resultTy string

	for i, clause := range e.Clauses {
		condReg, _, err := g.genExpr(clause.Condition)
		if err != nil {
			return "", "", err
		}
		thenLabel := g.nextLabel("if.then")
		hasMore := i+1 < len(e.Clauses) || e.Else != nil
		nextLabel := joinLabel
		if hasMore {
			nextLabel = g.nextLabel("if.else")
		}
		g.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", condReg, thenLabel, nextLabel))

		g.openLabel(thenLabel)
		reg, ty, err := g.genBlockExpr(clause.Body)
		if err != nil {
			return "", "", err
		}
		if !g.terminated {
			incomings = append(incomings, ifIncoming{thenLabel, reg, ty})
			if resultTy == "" {
				resultTy = ty
			}
			g.terminate(fmt.Sprintf("br label %%%s", joinLabel))
		}

		if !hasMore {
			g.openLabel(joinLabel)
			return g.mergeIncomings(incomings, resultTy)
		}
		g.openLabel(nextLabel)
		if i+1 == len(e.Clauses) && e.Else != nil {
			reg, ty, err := g.genBlockExpr(e.Else)
			if err != nil {
				return "", "", err
			}
			if !g.terminated {
				incomings = append(incomings, ifIncoming{nextLabel, reg, ty})
				if resultTy == "" {
					resultTy = ty
				}
				g.terminate(fmt.Sprintf("br label %%%s", joinLabel))
			}
			g.openLabel(joinLabel)
			return g.mergeIncomings(incomings, resultTy)
		}
	}

	g.openLabel(joinLabel)
	return g.mergeIncomings(incomings, resultTy)
}

func (g *Emitter) mergeIncomings(incomings []ifIncoming, resultTy string) (string, string, error) {
	if resultTy == "" || resultTy == "void" || len(incomings) == 0 {
		return "", "void", nil
	}
	if len(incomings) == 1 {
		g.setLast(resultTy, false)
		return incomings[0].reg, resultTy, nil
	}
	pairs := make([]string, 0, len(incomings))
	for _, in := range incomings {
		pairs = append(pairs, fmt.Sprintf("[ %s, %%%s ]", in.reg, in.label))
	}
	phi := g.nextReg()
	g.emit(fmt.Sprintf("%s = phi %s %s", phi, resultTy, strings.Join(pairs, ", ")))
	g.setLast(resultTy, false)
	return phi, resultTy, nil
}

// genIfStmt lowers an if/else-if/else statement used for control flow
// only; no value is produced or merged.
func (g *Emitter) genIfStmt(s *mast.IfStmt) error {
	joinLabel := g.nextLabel("if.end")

	for i, clause := range s.Clauses {
		condReg, _, err := g.genExpr(clause.Condition)
		if err != nil {
			return err
		}
		thenLabel := g.nextLabel("if.then")
		hasMore := i+1 < len(s.Clauses) || s.Else != nil
		nextLabel := joinLabel
		if hasMore {
			nextLabel = g.nextLabel("if.else")
		}
		g.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", condReg, thenLabel, nextLabel))

		g.openLabel(thenLabel)
		if _, _, err := g.genBlockExpr(clause.Body); err != nil {
			return err
		}
		if !g.terminated {
			g.terminate(fmt.Sprintf("br label %%%s", joinLabel))
		}

		if !hasMore {
			g.openLabel(joinLabel)
			return nil
		}
		g.openLabel(nextLabel)
		if i+1 == len(s.Clauses) && s.Else != nil {
			if _, _, err := g.genBlockExpr(s.Else); err != nil {
				return err
			}
			if !g.terminated {
				g.terminate(fmt.Sprintf("br label %%%s", joinLabel))
			}
			g.openLabel(joinLabel)
			return nil
		}
	}

	g.openLabel(joinLabel)
	return nil
}

// genWhileStmt lowers a while loop as the classic header/body/exit
// triad, pushing a loopContext so nested break/continue statements can
// resolve their target labels (section 4.4).
func (g *Emitter) genWhileStmt(s *mast.WhileStmt) error {
	headerLabel := g.nextLabel("while.cond")
	bodyLabel := g.nextLabel("while.body")
	exitLabel := g.nextLabel("while.end")

	g.terminate(fmt.Sprintf("br label %%%s", headerLabel))
	g.openLabel(headerLabel)
	condReg, _, err := g.genExpr(s.Condition)
	if err != nil {
		return err
	}
	g.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", condReg, bodyLabel, exitLabel))

	g.loopStack = append(g.loopStack, &loopContext{breakLabel: exitLabel, continueLabel: headerLabel})
	g.openLabel(bodyLabel)
	_, _, bodyErr := g.genBlockExpr(s.Body)
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	if bodyErr != nil {
		return bodyErr
	}
	if !g.terminated {
		g.terminate(fmt.Sprintf("br label %%%s", headerLabel))
	}

	g.openLabel(exitLabel)
	return nil
}

// genForStmt lowers a for-in loop over an array/slice value: an index
// counter from 0 to the source length, with the iterator bound to the
// element address loaded at each step.
func (g *Emitter) genForStmt(s *mast.ForStmt) error {
	iterPtr, iterTy, err := g.genLValuePointer(s.Iterable)
	if err != nil {
		return err
	}
	elemTy, arrayLLType := arrayElemType(iterTy)
	count := arrayLen(arrayLLType)

	idxSlot := g.nextReg()
	g.emit(fmt.Sprintf("%s = alloca i64", idxSlot))
	g.emit(fmt.Sprintf("store i64 0, ptr %s", idxSlot))

	headerLabel := g.nextLabel("for.cond")
	bodyLabel := g.nextLabel("for.body")
	stepLabel := g.nextLabel("for.step")
	exitLabel := g.nextLabel("for.end")

	g.terminate(fmt.Sprintf("br label %%%s", headerLabel))
	g.openLabel(headerLabel)
	idxReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = load i64, ptr %s", idxReg, idxSlot))
	cmpReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = icmp slt i64 %s, %d", cmpReg, idxReg, count))
	g.terminate(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", cmpReg, bodyLabel, exitLabel))

	g.loopStack = append(g.loopStack, &loopContext{breakLabel: exitLabel, continueLabel: stepLabel})
	g.openLabel(bodyLabel)
	gep := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, ptr %s, i64 0, i64 %s", gep, arrayLLType, iterPtr, idxReg))
	if s.Iterator != nil {
		g.locals[s.Iterator.Name] = gep
		g.localTypes()[s.Iterator.Name] = elemTy
	}
	_, _, bodyErr := g.genBlockExpr(s.Body)
	g.loopStack = g.loopStack[:len(g.loopStack)-1]
	if bodyErr != nil {
		return bodyErr
	}
	if !g.terminated {
		g.terminate(fmt.Sprintf("br label %%%s", stepLabel))
	}

	g.openLabel(stepLabel)
	curReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = load i64, ptr %s", curReg, idxSlot))
	nextReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = add i64 %s, 1", nextReg, curReg))
	g.emit(fmt.Sprintf("store i64 %s, ptr %s", nextReg, idxSlot))
	g.terminate(fmt.Sprintf("br label %%%s", headerLabel))

	g.openLabel(exitLabel)
	return nil
}

// arrayLen reads the element count out of a `[N x T]` LLVM array type
// string, returning 0 for non-array syntax.
func arrayLen(arrayLLType string) int {
	if len(arrayLLType) == 0 || arrayLLType[0] != '[' {
		return 0
	}
	n := 0
	for i := 1; i < len(arrayLLType); i++ {
		c := arrayLLType[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// genBreakStmt lowers a break by branching to the innermost enclosing
// loop's exit label.
func (g *Emitter) genBreakStmt(s *mast.BreakStmt) error {
	if len(g.loopStack) == 0 {
		return g.internalInconsistencyError("break outside of a loop", s)
	}
	top := g.loopStack[len(g.loopStack)-1]
	g.terminate(fmt.Sprintf("br label %%%s", top.breakLabel))
	return nil
}

// genContinueStmt lowers a continue by branching to the innermost
// enclosing loop's continue label (its condition re-check or step
// block).
func (g *Emitter) genContinueStmt(s *mast.ContinueStmt) error {
	if len(g.loopStack) == 0 {
		return g.internalInconsistencyError("continue outside of a loop", s)
	}
	top := g.loopStack[len(g.loopStack)-1]
	g.terminate(fmt.Sprintf("br label %%%s", top.continueLabel))
	return nil
}
