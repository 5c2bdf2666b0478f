package llvm

import (
	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/types"
)

// pendingFunc is a queued monomorphization of a generic top-level function.
type pendingFunc struct {
	decl     *mast.FnDecl
	substMap map[string]types.Type
	mangled  string
}

// pendingImplMethod additionally carries the unmangled receiver type name,
// an optional module hint, and the local-vs-library distinction from
// section 3's instantiation records.
type pendingImplMethod struct {
	method        *mast.FnDecl
	substMap      map[string]types.Type
	typeName      string
	moduleHint    string
	isLibraryType bool
	mangled       string
}

type pendingStruct struct {
	decl    *mast.StructDecl
	args    []types.Type
	mangled string
}

type pendingEnum struct {
	decl    *mast.EnumDecl
	args    []types.Type
	mangled string
}

// instantiationCache de-duplicates and queues pending monomorphizations
// for structs, enums, functions, and impl methods (section 3). A mangled
// name is marked generated the moment it is enqueued, not when its body
// is actually emitted, so a cycle of mutually-referencing generics cannot
// enqueue the same instantiation twice.
type instantiationCache struct {
	generated map[string]bool

	pendingFuncs   []pendingFunc
	pendingImpls   []pendingImplMethod
	pendingStructs []pendingStruct
	pendingEnums   []pendingEnum

	depth int
}

const maxMonomorphizationDepth = 4096

func newInstantiationCache() *instantiationCache {
	return &instantiationCache{generated: make(map[string]bool)}
}

// markGenerated records mangled as generated, returning false if it was
// already marked (the caller should skip enqueueing a duplicate).
func (c *instantiationCache) markGenerated(mangled string) bool {
	if c.generated[mangled] {
		return false
	}
	c.generated[mangled] = true
	return true
}

func (c *instantiationCache) isGenerated(mangled string) bool {
	return c.generated[mangled]
}

// enqueueFunction registers a pending monomorphization of a generic
// top-level function, returning its mangled name. Safe to call more than
// once for the same (decl, args) pair; only the first enqueues.
func (g *Emitter) enqueueFunction(decl *mast.FnDecl, args []types.Type) string {
	mangled := mangleAggregate(decl.Name.Name, args)
	if !g.insts.markGenerated("fn:" + mangled) {
		return mangled
	}
	g.insts.pendingFuncs = append(g.insts.pendingFuncs, pendingFunc{
		decl:     decl,
		substMap: buildSubstMap(decl.TypeParams, args),
		mangled:  mangled,
	})
	return mangled
}

// enqueueImplMethod registers a pending monomorphization of an impl
// method for a generic struct/enum static call (section 4.3 protocol).
func (g *Emitter) enqueueImplMethod(method *mast.FnDecl, typeName string, args []types.Type, moduleHint string, isLibraryType bool) string {
	mangledType := mangleAggregate(typeName, args)
	mangledMethod := mangledType + "__" + method.Name.Name
	if !g.insts.markGenerated("impl:" + mangledMethod) {
		return mangledMethod
	}
	g.insts.pendingImpls = append(g.insts.pendingImpls, pendingImplMethod{
		method:        method,
		substMap:      buildSubstMap(method.TypeParams, args),
		typeName:      typeName,
		moduleHint:    moduleHint,
		isLibraryType: isLibraryType,
		mangled:       mangledMethod,
	})
	return mangledMethod
}

// enqueueStruct registers a pending monomorphization of a generic struct
// type and returns its mangled name.
func (g *Emitter) enqueueStruct(decl *mast.StructDecl, args []types.Type) string {
	mangled := mangleAggregate(decl.Name.Name, args)
	if !g.insts.markGenerated("struct:" + mangled) {
		return mangled
	}
	g.insts.pendingStructs = append(g.insts.pendingStructs, pendingStruct{decl: decl, args: args, mangled: mangled})
	return mangled
}

// enqueueEnum registers a pending monomorphization of a generic enum type
// and returns its mangled name.
func (g *Emitter) enqueueEnum(decl *mast.EnumDecl, args []types.Type) string {
	mangled := mangleAggregate(decl.Name.Name, args)
	if !g.insts.markGenerated("enum:" + mangled) {
		return mangled
	}
	g.insts.pendingEnums = append(g.insts.pendingEnums, pendingEnum{decl: decl, args: args, mangled: mangled})
	return mangled
}

// drainPending drives the monomorphization fixpoint (section 4.3 step 3):
// each drained record may itself enqueue more, so the loop keeps pulling
// off whichever queue is non-empty until all four are exhausted. The loop
// terminates because the type-argument lattice of a well-formed program
// is finite; monomorphizationDepthExceededError is a defensive backstop
// against a type-checker bug producing an infinite chain.
func (g *Emitter) drainPending() error {
	for {
		g.insts.depth++
		if g.insts.depth > maxMonomorphizationDepth {
			return g.monomorphizationDepthExceededError("drain")
		}
		if len(g.insts.pendingStructs) > 0 {
			p := g.insts.pendingStructs[0]
			g.insts.pendingStructs = g.insts.pendingStructs[1:]
			if _, err := g.instantiateStruct(p.decl, p.args); err != nil {
				return err
			}
			continue
		}
		if len(g.insts.pendingEnums) > 0 {
			p := g.insts.pendingEnums[0]
			g.insts.pendingEnums = g.insts.pendingEnums[1:]
			if _, err := g.instantiateEnum(p.decl, p.args); err != nil {
				return err
			}
			continue
		}
		if len(g.insts.pendingFuncs) > 0 {
			p := g.insts.pendingFuncs[0]
			g.insts.pendingFuncs = g.insts.pendingFuncs[1:]
			if err := g.genFunction(p.decl, p.substMap, p.mangled); err != nil {
				return err
			}
			continue
		}
		if len(g.insts.pendingImpls) > 0 {
			p := g.insts.pendingImpls[0]
			g.insts.pendingImpls = g.insts.pendingImpls[1:]
			if err := g.genFunction(p.method, p.substMap, p.mangled); err != nil {
				return err
			}
			continue
		}
		break
	}
	return nil
}
