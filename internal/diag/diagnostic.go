// Package diag defines the compiler diagnostic model shared by every stage.
// The backend only ever produces Stage-codegen diagnostics; earlier stages
// (lexer, parser, type checker) are external collaborators that are expected
// to have already filtered out ill-formed programs by the time an AST
// reaches this module.
package diag

import (
	"fmt"

	"github.com/tml-lang/tmlc/internal/source"
)

// Stage identifies which compiler phase produced the diagnostic.
type Stage string

const (
	StageLexer   Stage = "lexer"
	StageParser  Stage = "parser"
	StageCheck   Stage = "check"
	StageCodegen Stage = "codegen"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Code is a stable identifier for a diagnostic, matching the error taxonomy
// in the backend's error handling design.
type Code string

const (
	CodeLexerUnterminatedString       Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerUnterminatedBlockComment Code = "LEXER_UNTERMINATED_BLOCK_COMMENT"
	CodeLexerIllegalRune              Code = "LEXER_ILLEGAL_RUNE"

	// CodeUnresolvedSymbol: a callee or type name could not be found locally
	// or in any imported module. Fatal; emission aborts for the unit.
	CodeUnresolvedSymbol Code = "UNRESOLVED_SYMBOL"
	// CodeInternalInconsistency: the type-checked AST carries metadata that
	// disagrees with itself (wrong arity, missing payload type). Fatal.
	CodeInternalInconsistency Code = "INTERNAL_INCONSISTENCY"
	// CodeMonomorphizationDepthExceeded: defensive; unreachable for a
	// well-typed program with a finite type-argument lattice.
	CodeMonomorphizationDepthExceeded Code = "MONOMORPHIZATION_DEPTH_EXCEEDED"
	// CodePayloadLayoutMismatch: an enum access site disagrees with the
	// payload LLVM type recorded at the enum's first instantiation. Fatal.
	CodePayloadLayoutMismatch Code = "PAYLOAD_LAYOUT_MISMATCH"
	// CodeGenTypeMappingError: a semantic type could not be lowered to an
	// LLVM type (e.g. an unresolved named type reference).
	CodeGenTypeMappingError Code = "CODEGEN_TYPE_MAPPING_ERROR"
	// CodeGenUnsupportedExpr: an expression shape isn't handled by the
	// backend (e.g. a malformed static-method callee).
	CodeGenUnsupportedExpr Code = "CODEGEN_UNSUPPORTED_EXPR"
	// CodeGenUnsupportedOperator: an infix/prefix operator has no lowering.
	CodeGenUnsupportedOperator Code = "CODEGEN_UNSUPPORTED_OPERATOR"
)

// Span represents a location in source code.
type Span struct {
	Filename string
	Line     int
	Column   int
	Start    int
	End      int
}

// IsValid reports whether the span carries a real source location.
func (s Span) IsValid() bool { return s.Filename != "" }

// String renders the span as "file:line:col" for diagnostic output.
func (s Span) String() string {
	if !s.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
}

// FromSource converts a source.Span into a diagnostic Span.
func FromSource(s source.Span) Span {
	return Span{Filename: s.Filename, Line: s.Line, Column: s.Column, Start: s.Start, End: s.End}
}

// ProofStep is one step of an explanatory chain attached to a diagnostic,
// printed under the `= note:` trail to show how the emitter arrived at the
// failure (e.g. the instantiation chain that led to a depth-exceeded error).
type ProofStep struct {
	Message string
	Span    Span
}

// LabeledSpan pairs a source span with a short label used when the
// formatter underlines multiple related locations.
type LabeledSpan struct {
	Span  Span
	Label string
	Style string // "primary" or "secondary"
}

// Diagnostic is a compiler diagnostic surfaced to end users or, in the
// backend's case, collected on Emitter.Errors and returned to the driver.
type Diagnostic struct {
	Stage        Stage
	Severity     Severity
	Code         Code
	Message      string
	Suggestion   string
	Help         string
	Span         Span
	LabeledSpans []LabeledSpan
	Related      []Span
	Notes        []string
	ProofChain   []ProofStep
}

// Error implements the error interface so a Diagnostic can be returned
// directly from functions that otherwise signal failure with `error`.
func (d Diagnostic) Error() string {
	if d.Span.Filename != "" {
		return d.Span.Filename + ": " + d.Message
	}
	return d.Message
}
