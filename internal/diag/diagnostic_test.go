package diag_test

import (
	"testing"

	"github.com/tml-lang/tmlc/internal/diag"
)

func TestDiagnosticError(t *testing.T) {
	d := diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     diag.CodeUnresolvedSymbol,
		Message:  "undefined function `frobnicate`",
		Span:     diag.Span{Filename: "main.tml", Line: 12, Column: 5},
	}

	if got, want := d.Error(), "main.tml: undefined function `frobnicate`"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestDiagnosticErrorWithoutFilename(t *testing.T) {
	d := diag.Diagnostic{Message: "internal inconsistency"}
	if got, want := d.Error(), "internal inconsistency"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
