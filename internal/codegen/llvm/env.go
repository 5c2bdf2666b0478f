package llvm

import (
	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// environment resolves function signatures, struct definitions, and enum
// definitions across the current compilation unit and every imported
// module, implementing the two-pass module search described in section
// 4.2: a preferred module is searched first, then the unrestricted set.
type environment struct {
	local        *mast.File
	modules      map[string]*mast.File
	moduleOrder  []string // deterministic iteration order over modules
	fnsByName    map[string]*mast.FnDecl
	structByName map[string]*mast.StructDecl
	enumByName   map[string]*mast.EnumDecl
	typesByName  map[string]types.Type
}

func newEnvironment(file *mast.File, modules map[string]*mast.File) *environment {
	e := &environment{
		local:        file,
		modules:      modules,
		fnsByName:    make(map[string]*mast.FnDecl),
		structByName: make(map[string]*mast.StructDecl),
		enumByName:   make(map[string]*mast.EnumDecl),
		typesByName:  make(map[string]types.Type),
	}
	for path := range modules {
		e.moduleOrder = append(e.moduleOrder, path)
	}
	// Sort for deterministic iteration; module-prefix search must be
	// stable run-to-run (section 4.3 tie-breaks).
	for i := 1; i < len(e.moduleOrder); i++ {
		for j := i; j > 0 && e.moduleOrder[j-1] > e.moduleOrder[j]; j-- {
			e.moduleOrder[j-1], e.moduleOrder[j] = e.moduleOrder[j], e.moduleOrder[j-1]
		}
	}
	e.index(file)
	for _, path := range e.moduleOrder {
		e.index(modules[path])
	}
	return e
}

func (e *environment) index(file *mast.File) {
	if file == nil {
		return
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *mast.FnDecl:
			if d.Name != nil {
				if _, exists := e.fnsByName[d.Name.Name]; !exists {
					e.fnsByName[d.Name.Name] = d
				}
			}
		case *mast.StructDecl:
			if d.Name != nil {
				if _, exists := e.structByName[d.Name.Name]; !exists {
					e.structByName[d.Name.Name] = d
				}
			}
		case *mast.EnumDecl:
			if d.Name != nil {
				if _, exists := e.enumByName[d.Name.Name]; !exists {
					e.enumByName[d.Name.Name] = d
				}
			}
		}
	}
}

// lookupFn finds a function declaration by name, searching the local unit
// first, then imported modules in deterministic order.
func (e *environment) lookupFn(name string) (*mast.FnDecl, bool) {
	fn, ok := e.fnsByName[name]
	return fn, ok
}

// lookupStruct finds a struct declaration by name.
func (e *environment) lookupStruct(name string) (*mast.StructDecl, bool) {
	s, ok := e.structByName[name]
	return s, ok
}

// lookupEnum finds an enum declaration by name.
func (e *environment) lookupEnum(name string) (*mast.EnumDecl, bool) {
	en, ok := e.enumByName[name]
	return en, ok
}

// lookupType resolves a bare named type to a semantic type, consulting the
// indexed struct/enum declarations. Returns false if the name resolves to
// neither (the caller falls back to a library-internal instantiation path
// per section 4.2's "Result semantics").
func (e *environment) lookupType(name string) (types.Type, bool) {
	if t, ok := e.typesByName[name]; ok {
		return t, true
	}
	if _, ok := e.structByName[name]; ok {
		t := &types.Named{Name: name}
		e.typesByName[name] = t
		return t, true
	}
	if _, ok := e.enumByName[name]; ok {
		t := &types.Named{Name: name}
		e.typesByName[name] = t
		return t, true
	}
	return nil, false
}

// findImplMethod locates an impl method declared for typeName, searching
// the local unit first and then every imported module in deterministic
// order (section 4.4 steps 3/4: primitive-method and generic-struct-static
// call dispatch both resolve through this same impl registry). moduleHint
// reports which module supplied the method, empty for the local unit;
// isLibraryType is true whenever the method came from an imported module
// rather than the unit being compiled.
func (e *environment) findImplMethod(typeName, methodName string) (*mast.FnDecl, string, bool, bool) {
	if m, ok := findImplMethodIn(e.local, typeName, methodName); ok {
		return m, "", false, true
	}
	for _, path := range e.moduleOrder {
		if m, ok := findImplMethodIn(e.modules[path], typeName, methodName); ok {
			return m, path, true, true
		}
	}
	return nil, "", false, false
}

func findImplMethodIn(file *mast.File, typeName, methodName string) (*mast.FnDecl, bool) {
	if file == nil {
		return nil, false
	}
	for _, decl := range file.Decls {
		impl, ok := decl.(*mast.ImplDecl)
		if !ok {
			continue
		}
		if typeExprBaseName(impl.Target) != typeName {
			continue
		}
		for _, m := range impl.Methods {
			if m.Name != nil && m.Name.Name == methodName {
				return m, true
			}
		}
	}
	return nil, false
}

// typeExprBaseName strips generic arguments off a type reference, used to
// match an impl block's target against a receiver's bare type name.
func typeExprBaseName(te mast.TypeExpr) string {
	switch t := te.(type) {
	case *mast.NamedType:
		if t.Name != nil {
			return t.Name.Name
		}
	case *mast.GenericType:
		return typeExprBaseName(t.Base)
	}
	return ""
}

// preferredThenUnrestricted implements the two-pass lookup strategy: try
// preferredModule first, then fall back to every module in deterministic
// order. preferredModule may be empty, in which case only the
// unrestricted pass runs.
func (e *environment) preferredThenUnrestricted(preferredModule string, find func(*mast.File) (mast.Decl, bool)) (mast.Decl, bool) {
	if preferredModule != "" {
		if mod, ok := e.modules[preferredModule]; ok {
			if d, ok := find(mod); ok {
				return d, true
			}
		}
	}
	if d, ok := find(e.local); ok {
		return d, true
	}
	for _, path := range e.moduleOrder {
		if path == preferredModule {
			continue
		}
		if d, ok := find(e.modules[path]); ok {
			return d, true
		}
	}
	return nil, false
}
