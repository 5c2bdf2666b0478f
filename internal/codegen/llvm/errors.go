package llvm

import (
	"github.com/pkg/errors"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/diag"
	"github.com/tml-lang/tmlc/internal/source"
	"github.com/tml-lang/tmlc/internal/types"
)

// typeMappingError records a CodeGenTypeMappingError diagnostic and returns
// it as an error so callers can propagate with `return "", err`.
func (g *Emitter) typeMappingError(t types.Type) error {
	msg := "cannot map type to LLVM"
	if t != nil {
		msg = "cannot map type to LLVM: " + t.String()
	}
	d := diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     diag.CodeGenTypeMappingError,
		Message:  msg,
	}
	g.Errors = append(g.Errors, d)
	return errors.WithStack(d)
}

// unsupportedExprError records a CodeGenUnsupportedExpr diagnostic for an
// expression shape the emitter has no lowering for.
func (g *Emitter) unsupportedExprError(expr mast.Expr, what string) error {
	d := diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     diag.CodeGenUnsupportedExpr,
		Message:  "unsupported expression: " + what,
		Span:     g.toDiagSpan(spanOf(expr)),
	}
	g.Errors = append(g.Errors, d)
	return errors.WithStack(d)
}

// unsupportedOperatorError records a CodeGenUnsupportedOperator diagnostic.
func (g *Emitter) unsupportedOperatorError(op mast.OpKind, expr mast.Expr) error {
	d := diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     diag.CodeGenUnsupportedOperator,
		Message:  "unsupported operator: " + string(op),
		Span:     g.toDiagSpan(spanOf(expr)),
	}
	g.Errors = append(g.Errors, d)
	return errors.WithStack(d)
}

// unresolvedSymbolError records a fatal UnresolvedSymbol diagnostic: the
// callee or type name could not be found locally or in any imported
// module. Emission aborts for the translation unit.
func (g *Emitter) unresolvedSymbolError(name string, node mast.Node) error {
	d := diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     diag.CodeUnresolvedSymbol,
		Message:  "unresolved symbol: " + name,
		Span:     g.toDiagSpan(spanOf(node)),
	}
	g.Errors = append(g.Errors, d)
	return errors.WithStack(d)
}

// internalInconsistencyError records a fatal InternalInconsistency
// diagnostic: the type-checked AST disagreed with itself (wrong arity,
// missing payload type for a known enum).
func (g *Emitter) internalInconsistencyError(msg string, node mast.Node) error {
	d := diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     diag.CodeInternalInconsistency,
		Message:  msg,
		Span:     g.toDiagSpan(spanOf(node)),
	}
	g.Errors = append(g.Errors, d)
	return errors.WithStack(d)
}

// payloadLayoutMismatchError records a fatal PayloadLayoutMismatch: an enum
// access site disagrees with the payload LLVM type recorded at the enum's
// first instantiation.
func (g *Emitter) payloadLayoutMismatchError(enumName string, node mast.Node) error {
	d := diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     diag.CodePayloadLayoutMismatch,
		Message:  "payload layout mismatch for enum " + enumName,
		Span:     g.toDiagSpan(spanOf(node)),
	}
	g.Errors = append(g.Errors, d)
	return errors.WithStack(d)
}

// monomorphizationDepthExceededError is defensive: unreachable for a
// well-typed program with a finite type-argument lattice, but the
// instantiation engine still guards against runaway recursion (e.g. a
// type-checker bug that produces an infinite generic chain).
func (g *Emitter) monomorphizationDepthExceededError(name string) error {
	d := diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     diag.CodeMonomorphizationDepthExceeded,
		Message:  "monomorphization depth exceeded for " + name,
	}
	g.Errors = append(g.Errors, d)
	return errors.WithStack(d)
}

func spanOf(n mast.Node) source.Span {
	if n == nil {
		return source.None
	}
	return n.Span()
}
