package llvm

import (
	"strings"
	"testing"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/source"
)

func sp() source.Span { return source.Span{Filename: "test.tml", Line: 1, Column: 1} }

func TestGenerateSimpleFunction(t *testing.T) {
	ret := mast.NewIntegerLit("42", sp())
	body := mast.NewBlockExpr(nil, ret, sp())
	fn := mast.NewFnDecl(true, false, mast.NewIdent("answer", sp()), nil, nil,
		mast.NewNamedType(mast.NewIdent("I32", sp()), sp()), nil, nil, body, sp())

	file := mast.NewFile(sp())
	file.Decls = append(file.Decls, fn)

	g := NewEmitter()
	ir, err := g.Generate(file)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(g.Errors) > 0 {
		t.Fatalf("unexpected diagnostics: %v", g.Errors)
	}

	if !strings.Contains(ir, "define i32 @answer()") {
		t.Errorf("expected function definition in IR, got:\n%s", ir)
	}
	if !strings.Contains(ir, "ret i32 42") {
		t.Errorf("expected return instruction in IR, got:\n%s", ir)
	}
}

func TestGenerateFunctionWithParamsAndArithmetic(t *testing.T) {
	a := mast.NewIdent("a", sp())
	b := mast.NewIdent("b", sp())
	sum := mast.NewInfixExpr(mast.OpAdd, a, b, sp())
	body := mast.NewBlockExpr(nil, sum, sp())

	i32 := func() mast.TypeExpr { return mast.NewNamedType(mast.NewIdent("I32", sp()), sp()) }
	params := []*mast.Param{
		mast.NewParam(mast.NewIdent("a", sp()), i32(), sp()),
		mast.NewParam(mast.NewIdent("b", sp()), i32(), sp()),
	}
	fn := mast.NewFnDecl(true, false, mast.NewIdent("add", sp()), nil, params, i32(), nil, nil, body, sp())

	file := mast.NewFile(sp())
	file.Decls = append(file.Decls, fn)

	g := NewEmitter()
	ir, err := g.Generate(file)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(g.Errors) > 0 {
		t.Fatalf("unexpected diagnostics: %v", g.Errors)
	}
	if !strings.Contains(ir, "define i32 @add(i32 %arg.a, i32 %arg.b)") {
		t.Errorf("expected two-param function definition, got:\n%s", ir)
	}
	if !strings.Contains(ir, "add i32") {
		t.Errorf("expected an add instruction, got:\n%s", ir)
	}
}
