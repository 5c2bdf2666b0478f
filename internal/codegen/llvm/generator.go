// Package llvm is the TML compiler's LLVM IR emission back-end. It walks a
// fully type-checked AST and streams textual LLVM IR to an internal buffer,
// monomorphizing generics, dispatching intrinsics and builtin helpers, and
// laying out tagged enums on demand.
//
// The emitter is single-threaded and stateful by design (see the Emitter
// struct below): there is no global mutable state, and no two Emitter
// instances ever share a buffer, counter, or registry.
package llvm

import (
	"fmt"
	"strings"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/diag"
	"github.com/tml-lang/tmlc/internal/source"
	"github.com/tml-lang/tmlc/internal/types"
)

// Emitter generates LLVM IR for a type-checked TML compilation unit. One
// Emitter handles exactly one translation unit; construct a fresh instance
// per file.
type Emitter struct {
	// builder is the output line buffer for the current top-level item (or
	// the whole module between items). Emit writes here unless emittingGlobal
	// is set, in which case lines are buffered in globals instead.
	builder strings.Builder

	// typeInfo carries the type checker's resolution for every AST node that
	// has one. Nodes absent from the map are either untyped (patterns before
	// binding) or a checker bug; the emitter treats a miss as "infer from
	// context" rather than panicking.
	typeInfo map[mast.Node]types.Type

	// modules holds every imported module's declarations, keyed by module
	// path, for cross-module environment lookup (section 4.2).
	modules map[string]*mast.File

	// currentFunc is the function currently being emitted; nil at module
	// scope (string pool, struct/enum type decls).
	currentFunc *functionContext

	// locals maps a local variable name to the SSA register or alloca slot
	// holding it in the function currently being emitted.
	locals map[string]string

	// localTys mirrors locals with the LLVM pointee type of each slot, so
	// loads know what type to load without re-deriving it.
	localTys map[string]string

	regCounter   int
	labelCounter int

	// terminated tracks whether the current basic block has already received
	// a terminator (ret/br/unreachable); Emit refuses to emit instructions
	// into a terminated block until OpenLabel starts a new one.
	terminated bool

	// substMap is the active generic type-parameter substitution, set while
	// emitting a monomorphized function/method body and nil at the top
	// level.
	substMap map[string]types.Type

	// expectedEnumType is read-only context threaded through expression
	// emission to disambiguate bare `Nothing`/`None`-style constructors from
	// their enclosing type. It must be saved and restored around every
	// nested expression that changes context (assignment RHS, call
	// arguments, match scrutinee) rather than mutated in place.
	expectedEnumType types.Type

	// lastExprType/lastExprUnsigned are the side-output of expression
	// emission: the LLVM type string of the last produced register and
	// whether it should be treated as an unsigned integer for comparison,
	// shift, and extension purposes.
	lastExprType     string
	lastExprUnsigned bool

	strings *stringPool
	insts   *instantiationCache
	structs *structRegistry
	enums   *enumRegistry
	env     *environment

	loopStack []*loopContext

	// emittingGlobal routes Emit into the globals buffer instead of the
	// per-item builder; used while synthesizing closure environment
	// allocation helpers and similar module-scope code from inside an
	// expression-emission call stack.
	emittingGlobal bool
	globals        []string

	declared map[string]bool // runtime/intrinsic declare lines already emitted

	// closureCounter numbers synthesized closure functions and their
	// environment struct types uniquely within a translation unit.
	closureCounter int

	// targetTriple and dataLayout are emitted verbatim in the module header.
	// They default to the values below but may be overridden by the driver
	// (AMBIENT STACK: `tmlc emit --target-triple` / `--datalayout`).
	targetTriple string
	dataLayout   string

	Errors []diag.Diagnostic
}

const (
	defaultTargetTriple = "x86_64-unknown-linux-gnu"
	defaultDataLayout   = "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128"
)

type loopContext struct {
	breakLabel    string
	continueLabel string
}

type functionContext struct {
	name       string
	returnType types.Type
	typeParams map[string]bool
}

// NewEmitter constructs a ready-to-use Emitter with all registries
// initialized. Call SetTypeInfo and SetModules before Generate.
func NewEmitter() *Emitter {
	return &Emitter{
		typeInfo:     make(map[mast.Node]types.Type),
		modules:      make(map[string]*mast.File),
		locals:       make(map[string]string),
		strings:      newStringPool(),
		insts:        newInstantiationCache(),
		structs:      newStructRegistry(),
		enums:        newEnumRegistry(),
		declared:     make(map[string]bool),
		targetTriple: defaultTargetTriple,
		dataLayout:   defaultDataLayout,
		Errors:       make([]diag.Diagnostic, 0),
	}
}

// SetTypeInfo installs the type checker's per-node resolution map.
func (g *Emitter) SetTypeInfo(info map[mast.Node]types.Type) { g.typeInfo = info }

// SetModules installs the imported modules available for cross-module
// environment lookup.
func (g *Emitter) SetModules(modules map[string]*mast.File) { g.modules = modules }

// SetTargetTriple overrides the module header's `target triple`, leaving the
// default in place when triple is empty.
func (g *Emitter) SetTargetTriple(triple string) {
	if triple != "" {
		g.targetTriple = triple
	}
}

// SetDataLayout overrides the module header's `target datalayout`, leaving
// the default in place when layout is empty.
func (g *Emitter) SetDataLayout(layout string) {
	if layout != "" {
		g.dataLayout = layout
	}
}

// Generate lowers a single compilation unit to LLVM IR text. It is the sole
// public entry point; everything else in this package is reached from here.
func (g *Emitter) Generate(file *mast.File) (string, error) {
	g.builder.Reset()
	g.regCounter = 0
	g.labelCounter = 0
	g.locals = make(map[string]string)
	g.loopStack = nil
	g.globals = nil
	g.Errors = make([]diag.Diagnostic, 0)
	g.env = newEnvironment(file, g.modules)

	g.emitModuleHeader()
	g.emitRuntimeDeclarations()

	// Struct/enum type definitions are generated first; call lowering and
	// expression emission both consult the field/variant registries before
	// any function body is produced.
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *mast.StructDecl:
			if err := g.genStructType(d); err != nil {
				return "", err
			}
		case *mast.EnumDecl:
			if err := g.genEnumType(d); err != nil {
				return "", err
			}
		}
	}
	for path, mod := range g.modules {
		for _, decl := range mod.Decls {
			switch d := decl.(type) {
			case *mast.StructDecl:
				if d.Pub {
					if err := g.genStructType(d); err != nil {
						return "", err
					}
				}
			case *mast.EnumDecl:
				if d.Pub {
					if err := g.genEnumType(d); err != nil {
						return "", err
					}
				}
			}
			_ = path
		}
	}

	for _, decl := range file.Decls {
		if err := g.genDecl(decl); err != nil {
			return "", err
		}
	}

	// Drain any monomorphizations discovered while emitting top-level items.
	// Each drained record may itself enqueue more; the loop terminates
	// because the type-argument lattice of a well-formed program is finite.
	if err := g.drainPending(); err != nil {
		return "", err
	}

	g.emitStringPool()
	g.emitGlobalsSection()

	return g.builder.String(), nil
}

func (g *Emitter) emitModuleHeader() {
	g.emit("; ModuleID = 'tml'")
	g.emit(`source_filename = "tml"`)
	g.emit(fmt.Sprintf(`target datalayout = "%s"`, g.dataLayout))
	g.emit(fmt.Sprintf(`target triple = "%s"`, g.targetTriple))
	g.emit("")
}

// emitRuntimeDeclarations emits `declare` lines for the small C runtime ABI
// the emitted IR assumes (section 6). Declarations are idempotent: repeated
// calls to declareOnce for the same symbol emit nothing the second time.
func (g *Emitter) emitRuntimeDeclarations() {
	g.emit("; Runtime ABI declarations")
	g.declareOnce("@malloc", "declare ptr @malloc(i64)")
	g.declareOnce("@free", "declare void @free(ptr)")
	g.declareOnce("@printf", "declare i32 @printf(ptr, ...)")
	g.declareOnce("@snprintf", "declare i32 @snprintf(ptr, i64, ptr, ...)")
	g.declareOnce("@strcmp", "declare i32 @strcmp(ptr, ptr)")
	g.declareOnce("@strlen", "declare i64 @strlen(ptr)")
	g.declareOnce("@llvm.memcpy.p0.p0.i64", "declare void @llvm.memcpy.p0.p0.i64(ptr, ptr, i64, i1)")
	g.declareOnce("@llvm.memmove.p0.p0.i64", "declare void @llvm.memmove.p0.p0.i64(ptr, ptr, i64, i1)")
	g.declareOnce("@llvm.memset.p0.i64", "declare void @llvm.memset.p0.i64(ptr, i8, i64, i1)")
	g.declareOnce("@panic", "declare void @panic(ptr)")
	g.declareOnce("@assert_tml_loc", "declare void @assert_tml_loc(i32, ptr, ptr, i32)")
	g.declareOnce("@str_eq", "declare i32 @str_eq(ptr, ptr)")
	g.emit("")
}

// declareOnce emits `line` exactly once per symbol across the lifetime of
// this Emitter, tracked by symbol name rather than line text so a declare
// whose signature is refined later (e.g. once a type argument resolves)
// still only appears once.
func (g *Emitter) declareOnce(symbol, line string) {
	if g.declared[symbol] {
		return
	}
	g.declared[symbol] = true
	g.emitGlobal(line)
}

// emit appends a line to the current output stream (function body or
// globals, depending on emittingGlobal). It is a no-op for instructions
// after a terminator has already closed the current block, matching the
// block-well-formedness invariant (section 3).
func (g *Emitter) emit(line string) {
	if g.emittingGlobal {
		g.emitGlobal(line)
		return
	}
	if g.terminated && !isLabelLine(line) {
		return
	}
	g.builder.WriteString(line)
	g.builder.WriteString("\n")
}

func isLabelLine(line string) bool {
	return strings.HasSuffix(strings.TrimSpace(line), ":")
}

// emitGlobal queues a line to be printed at module scope after every
// function body has been generated (struct/enum layouts, runtime
// declarations and the string pool are all collected here as they are
// first needed).
func (g *Emitter) emitGlobal(line string) {
	g.globals = append(g.globals, line)
}

func (g *Emitter) emitGlobalsSection() {
	if len(g.globals) == 0 {
		return
	}
	for _, line := range g.globals {
		g.builder.WriteString(line)
		g.builder.WriteString("\n")
	}
}

// openLabel starts a new basic block, clearing the terminated flag.
func (g *Emitter) openLabel(name string) {
	g.emit(name + ":")
	g.terminated = false
}

// terminate marks the current block closed after emitting a terminator
// instruction. Subsequent Emit calls are suppressed until openLabel.
func (g *Emitter) terminate(line string) {
	if g.terminated {
		return
	}
	g.emit(line)
	g.terminated = true
}

func (g *Emitter) nextReg() string {
	r := fmt.Sprintf("%%r%d", g.regCounter)
	g.regCounter++
	return r
}

func (g *Emitter) nextLabel(prefix string) string {
	l := fmt.Sprintf("%s%d", prefix, g.labelCounter)
	g.labelCounter++
	return l
}

func (g *Emitter) genDecl(decl mast.Decl) error {
	switch d := decl.(type) {
	case *mast.FnDecl:
		return g.genFunction(d, nil, "")
	case *mast.StructDecl, *mast.EnumDecl:
		return nil // types already generated
	case *mast.ConstDecl:
		return g.genConst(d)
	case *mast.ImplDecl:
		return g.genImpl(d)
	case *mast.BehaviorDecl:
		return nil // behaviors carry no codegen of their own; impls do
	default:
		return fmt.Errorf("unsupported top-level declaration: %T", decl)
	}
}

func (g *Emitter) genImpl(decl *mast.ImplDecl) error {
	if len(decl.TypeParams) > 0 {
		// Generic impl: methods are instantiated on demand per concrete
		// receiver type argument (section 4.3), never emitted eagerly.
		return nil
	}
	for _, method := range decl.Methods {
		if err := g.genFunction(method, nil, ""); err != nil {
			return err
		}
	}
	return nil
}

func (g *Emitter) genConst(decl *mast.ConstDecl) error {
	// Constants are inlined at each use site during expression lowering;
	// nothing is emitted for the declaration itself.
	return nil
}

func (g *Emitter) toDiagSpan(span source.Span) diag.Span {
	return diag.Span{
		Filename: span.Filename,
		Line:     span.Line,
		Column:   span.Column,
		Start:    span.Start,
		End:      span.End,
	}
}

func (g *Emitter) reportError(msg string, span source.Span, code diag.Code) {
	g.Errors = append(g.Errors, diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  msg,
		Span:     g.toDiagSpan(span),
	})
}

func (g *Emitter) reportErrorAtNode(msg string, node mast.Node, code diag.Code) {
	var span source.Span
	if node != nil {
		span = node.Span()
	}
	g.reportError(msg, span, code)
}
