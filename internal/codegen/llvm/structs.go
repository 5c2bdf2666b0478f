package llvm

import (
	"fmt"
	"strings"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// structFieldInfo is one entry of a struct's field registry: ordered
// (name, index, llvm_type, semantic_type), consulted by field-access
// lowering before the struct's LLVM type declaration is even emitted
// (section 3: "populated immediately at registration time").
type structFieldInfo struct {
	Name     string
	Index    int
	LLVMType string
	SemType  types.Type
}

type structRecord struct {
	Mangled string
	Fields  []structFieldInfo
}

func (r *structRecord) field(name string) (structFieldInfo, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return structFieldInfo{}, false
}

// structRegistry tracks every instantiated struct's field layout, keyed by
// mangled name.
type structRegistry struct {
	byMangled map[string]*structRecord
}

func newStructRegistry() *structRegistry {
	return &structRegistry{byMangled: make(map[string]*structRecord)}
}

func (r *structRegistry) has(mangled string) bool {
	_, ok := r.byMangled[mangled]
	return ok
}

func (r *structRegistry) get(mangled string) (*structRecord, bool) {
	rec, ok := r.byMangled[mangled]
	return rec, ok
}

func (r *structRegistry) register(rec *structRecord) {
	r.byMangled[rec.Mangled] = rec
}

// genStructType generates the LLVM type declaration for a non-generic
// struct declared at top level. Generic structs are generated lazily by
// the instantiation engine once concrete type arguments are known.
func (g *Emitter) genStructType(d *mast.StructDecl) error {
	if len(d.TypeParams) > 0 {
		return nil
	}
	_, err := g.instantiateStruct(d, nil)
	return err
}

// instantiateStruct emits (if not already emitted) the LLVM struct type
// for d with the given concrete type arguments and returns its mangled
// name. Field semantic types and LLVM types are registered before the
// type declaration line is emitted, since expression lowering may need to
// consult the registry while a later item in the same file is still being
// produced (section 3).
func (g *Emitter) instantiateStruct(d *mast.StructDecl, args []types.Type) (string, error) {
	mangled := mangleAggregate(d.Name.Name, args)
	if g.structs.has(mangled) {
		return mangled, nil
	}

	savedSubst := g.substMap
	g.substMap = buildSubstMap(d.TypeParams, args)
	defer func() { g.substMap = savedSubst }()

	fields := make([]structFieldInfo, 0, len(d.Fields))
	llvmFieldTypes := make([]string, 0, len(d.Fields))
	for i, f := range d.Fields {
		semType, err := g.resolveTypeExprInScope(f.Type)
		if err != nil {
			return "", err
		}
		llTy, err := g.lowerType(semType)
		if err != nil {
			return "", err
		}
		name := ""
		if f.Name != nil {
			name = f.Name.Name
		}
		fields = append(fields, structFieldInfo{Name: name, Index: i, LLVMType: llTy, SemType: semType})
		llvmFieldTypes = append(llvmFieldTypes, llTy)
	}

	g.structs.register(&structRecord{Mangled: mangled, Fields: fields})
	g.emitGlobal(fmt.Sprintf("%%struct.%s = type { %s }", mangled, strings.Join(llvmFieldTypes, ", ")))
	return mangled, nil
}

// buildSubstMap pairs a generic parameter list with concrete type
// arguments positionally. When names differ between a signature and the
// caller's knowledge, positional mapping is used as a last resort
// (section 4.3 tie-breaks).
func buildSubstMap(params []mast.GenericParam, args []types.Type) map[string]types.Type {
	if len(params) == 0 || len(args) == 0 {
		return nil
	}
	subst := make(map[string]types.Type, len(params))
	for i, p := range params {
		if i >= len(args) {
			break
		}
		name := genericParamName(p)
		if name != "" {
			subst[name] = args[i]
		}
	}
	return subst
}

func genericParamName(p mast.GenericParam) string {
	switch v := p.(type) {
	case *mast.TypeParam:
		if v.Name != nil {
			return v.Name.Name
		}
	case *mast.ConstParam:
		if v.Name != nil {
			return v.Name.Name
		}
	}
	return ""
}
