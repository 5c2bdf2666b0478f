package llvm

import (
	"strings"
	"testing"

	mast "github.com/tml-lang/tmlc/internal/ast"
)

// buildOptionEnum constructs `enum Option { None, Some(I32) }`.
func buildOptionEnum() *mast.EnumDecl {
	i32 := mast.NewNamedType(mast.NewIdent("I32", sp()), sp())
	variants := []*mast.EnumVariant{
		mast.NewEnumVariant(mast.NewIdent("None", sp()), nil, nil, sp()),
		mast.NewEnumVariant(mast.NewIdent("Some", sp()), []mast.TypeExpr{i32}, nil, sp()),
	}
	return mast.NewEnumDecl(true, mast.NewIdent("Option", sp()), nil, nil, variants, sp())
}

// TestEnumConstructAndMatch builds:
//
//	enum Option { None, Some(I32) }
//	fn unwrap_or(x: I32) -> I32 {
//	    let opt = Option::Some(x);
//	    match opt {
//	        Option::Some(v) => v,
//	        Option::None => 0
//	    }
//	}
func TestEnumConstructAndMatch(t *testing.T) {
	enumDecl := buildOptionEnum()

	xParam := mast.NewParam(mast.NewIdent("x", sp()), mast.NewNamedType(mast.NewIdent("I32", sp()), sp()), sp())

	ctorCallee := mast.NewInfixExpr(mast.OpPathSep, mast.NewIdent("Option", sp()), mast.NewIdent("Some", sp()), sp())
	ctorCall := mast.NewCallExpr(ctorCallee, []mast.Expr{mast.NewIdent("x", sp())}, sp())
	letOpt := mast.NewLetStmt(false, mast.NewIdent("opt", sp()), nil, ctorCall, sp())

	someArm := mast.NewMatchArm(
		mast.NewPatternEnum(
			mast.NewPatternPath([]*mast.Ident{mast.NewIdent("Option", sp()), mast.NewIdent("Some", sp())}, sp()),
			mast.NewPatternTuple([]mast.Pattern{mast.NewPatternIdent(mast.NewIdent("v", sp()), mast.BindingModeMove, false, sp())}, sp()),
			nil,
			sp(),
		),
		nil,
		mast.NewBlockExpr(nil, mast.NewIdent("v", sp()), sp()),
		sp(),
	)
	noneArm := mast.NewMatchArm(
		mast.NewPatternEnum(
			mast.NewPatternPath([]*mast.Ident{mast.NewIdent("Option", sp()), mast.NewIdent("None", sp())}, sp()),
			nil, nil, sp(),
		),
		nil,
		mast.NewBlockExpr(nil, mast.NewIntegerLit("0", sp()), sp()),
		sp(),
	)
	matchExpr := mast.NewMatchExpr(mast.NewIdent("opt", sp()), []*mast.MatchArm{someArm, noneArm}, sp())

	body := mast.NewBlockExpr([]mast.Stmt{letOpt}, matchExpr, sp())
	i32 := mast.NewNamedType(mast.NewIdent("I32", sp()), sp())
	fn := mast.NewFnDecl(true, false, mast.NewIdent("unwrap_or", sp()), nil, []*mast.Param{xParam}, i32, nil, nil, body, sp())

	file := mast.NewFile(sp())
	file.Decls = append(file.Decls, enumDecl, fn)

	g := NewEmitter()
	ir, err := g.Generate(file)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(g.Errors) > 0 {
		t.Fatalf("unexpected diagnostics: %v", g.Errors)
	}

	if !strings.Contains(ir, "%enum.Option = type") {
		t.Errorf("expected an Option enum type declaration, got:\n%s", ir)
	}
	if !strings.Contains(ir, "getelementptr") {
		t.Errorf("expected getelementptr for tag/payload access, got:\n%s", ir)
	}
	if !strings.Contains(ir, "icmp eq i32") {
		t.Errorf("expected a tag comparison in the match lowering, got:\n%s", ir)
	}
}
