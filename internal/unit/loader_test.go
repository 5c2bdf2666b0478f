package unit

import (
	"testing"

	mast "github.com/tml-lang/tmlc/internal/ast"
)

func TestLoadSimpleFunction(t *testing.T) {
	src := `{
		"decls": [
			{
				"kind": "fn",
				"id": "n1",
				"pub": true,
				"name": "answer",
				"return_type": {"kind": "named_type", "name": "I32"},
				"body": {
					"kind": "block",
					"tail": {"kind": "int_lit", "id": "n2", "text": "42"}
				}
			}
		],
		"types": {
			"n2": {"kind": "primitive", "name": "I32"}
		}
	}`

	u, err := Load([]byte(src))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(u.File.Decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(u.File.Decls))
	}
	fn, ok := u.File.Decls[0].(*mast.FnDecl)
	if !ok {
		t.Fatalf("expected *mast.FnDecl, got %T", u.File.Decls[0])
	}
	if fn.Name.Name != "answer" {
		t.Errorf("expected name %q, got %q", "answer", fn.Name.Name)
	}
	if !fn.Pub {
		t.Errorf("expected Pub to be true")
	}
	if fn.Body == nil || fn.Body.Tail == nil {
		t.Fatalf("expected a tail expression in the function body")
	}
	lit, ok := fn.Body.Tail.(*mast.IntegerLit)
	if !ok {
		t.Fatalf("expected tail to be *mast.IntegerLit, got %T", fn.Body.Tail)
	}
	if lit.Text != "42" {
		t.Errorf("expected literal text %q, got %q", "42", lit.Text)
	}

	if len(u.TypeInfo) != 1 {
		t.Fatalf("expected 1 type-info entry, got %d", len(u.TypeInfo))
	}
	ty, ok := u.TypeInfo[lit]
	if !ok {
		t.Fatalf("expected a type-info entry keyed by the tail literal node")
	}
	if ty == nil {
		t.Fatalf("expected non-nil resolved type")
	}
}

func TestLoadUnsupportedKindReturnsError(t *testing.T) {
	src := `{"decls": [{"kind": "not_a_real_decl_kind"}]}`
	if _, err := Load([]byte(src)); err == nil {
		t.Fatalf("expected an error decoding an unsupported declaration kind")
	}
}
