package ast

import "github.com/tml-lang/tmlc/internal/source"

// Pattern represents a match pattern node.
type Pattern interface {
	Node
	patternNode()
}

// BindingMode represents how a binding captures the matched value.
type BindingMode int

const (
	// BindingModeMove captures by move (default).
	BindingModeMove BindingMode = iota
	// BindingModeRef captures by shared reference (ref).
	BindingModeRef
	// BindingModeRefMut captures by mutable reference (ref mut).
	BindingModeRefMut
)

// PatternWild represents the `_` wildcard.
type PatternWild struct {
	span source.Span
}

// NewPatternWild constructs a wildcard pattern.
func NewPatternWild(span source.Span) *PatternWild {
	return &PatternWild{span: span}
}

// Span returns the wildcard span.
func (p *PatternWild) Span() source.Span { return p.span }

// SetSpan updates the wildcard span.
func (p *PatternWild) SetSpan(span source.Span) { p.span = span }

func (*PatternWild) patternNode() {}

// PatternIdent represents an identifier binding (`foo`, `mut foo`, `ref foo`).
type PatternIdent struct {
	Name    *Ident
	Mode    BindingMode
	Mutable bool
	span    source.Span
}

// NewPatternIdent constructs an identifier pattern.
func NewPatternIdent(name *Ident, mode BindingMode, mutable bool, span source.Span) *PatternIdent {
	return &PatternIdent{
		Name:    name,
		Mode:    mode,
		Mutable: mutable,
		span:    span,
	}
}

// Span returns the identifier span.
func (p *PatternIdent) Span() source.Span { return p.span }

// SetSpan updates the identifier span.
func (p *PatternIdent) SetSpan(span source.Span) { p.span = span }

func (*PatternIdent) patternNode() {}

// PatternPath represents a constant/constructor path (`Foo`, `Foo::Bar`).
type PatternPath struct {
	Segments []*Ident
	span     source.Span
}

// NewPatternPath constructs a path pattern.
func NewPatternPath(segments []*Ident, span source.Span) *PatternPath {
	return &PatternPath{
		Segments: segments,
		span:     span,
	}
}

// Span returns the path span.
func (p *PatternPath) Span() source.Span { return p.span }

// SetSpan updates the path span.
func (p *PatternPath) SetSpan(span source.Span) { p.span = span }

func (*PatternPath) patternNode() {}

// PatternBinding represents `ident @ subpattern`.
type PatternBinding struct {
	Name    *Ident
	Mode    BindingMode
	Mutable bool
	Pattern Pattern
	span    source.Span
}

// NewPatternBinding constructs a binding pattern.
func NewPatternBinding(name *Ident, mode BindingMode, mutable bool, pat Pattern, span source.Span) *PatternBinding {
	return &PatternBinding{
		Name:    name,
		Mode:    mode,
		Mutable: mutable,
		Pattern: pat,
		span:    span,
	}
}

// Span returns the binding span.
func (p *PatternBinding) Span() source.Span { return p.span }

// SetSpan updates the binding span.
func (p *PatternBinding) SetSpan(span source.Span) { p.span = span }

func (*PatternBinding) patternNode() {}

// PatternLiteral represents literal patterns (numbers, strings, bools, etc.).
type PatternLiteral struct {
	Expr Expr
	span source.Span
}

// NewPatternLiteral constructs a literal pattern wrapping an expression literal.
func NewPatternLiteral(expr Expr, span source.Span) *PatternLiteral {
	return &PatternLiteral{
		Expr: expr,
		span: span,
	}
}

// Span returns the literal pattern span.
func (p *PatternLiteral) Span() source.Span { return p.span }

// SetSpan updates the literal pattern span.
func (p *PatternLiteral) SetSpan(span source.Span) { p.span = span }

func (*PatternLiteral) patternNode() {}

// PatternRange represents range patterns (`a..b`, `a..=b`).
type PatternRange struct {
	Start     Expr
	End       Expr
	Inclusive bool
	span      source.Span
}

// NewPatternRange constructs a range pattern.
func NewPatternRange(start Expr, end Expr, inclusive bool, span source.Span) *PatternRange {
	return &PatternRange{
		Start:     start,
		End:       end,
		Inclusive: inclusive,
		span:      span,
	}
}

// Span returns the range span.
func (p *PatternRange) Span() source.Span { return p.span }

// SetSpan updates the range span.
func (p *PatternRange) SetSpan(span source.Span) { p.span = span }

func (*PatternRange) patternNode() {}

// PatternTuple represents tuple destructuring (`(a, b, .., tail)`).
type PatternTuple struct {
	Elements []Pattern
	span     source.Span
}

// NewPatternTuple constructs a tuple pattern.
func NewPatternTuple(elements []Pattern, span source.Span) *PatternTuple {
	return &PatternTuple{
		Elements: elements,
		span:     span,
	}
}

// Span returns the tuple span.
func (p *PatternTuple) Span() source.Span { return p.span }

// SetSpan updates the tuple span.
func (p *PatternTuple) SetSpan(span source.Span) { p.span = span }

func (*PatternTuple) patternNode() {}

// PatternTupleStruct represents tuple-struct patterns (`Point(x, y)`).
type PatternTupleStruct struct {
	Path     *PatternPath
	Elements []Pattern
	span     source.Span
}

// NewPatternTupleStruct constructs a tuple-struct pattern.
func NewPatternTupleStruct(path *PatternPath, elements []Pattern, span source.Span) *PatternTupleStruct {
	return &PatternTupleStruct{
		Path:     path,
		Elements: elements,
		span:     span,
	}
}

// Span returns the tuple-struct span.
func (p *PatternTupleStruct) Span() source.Span { return p.span }

// SetSpan updates the tuple-struct span.
func (p *PatternTupleStruct) SetSpan(span source.Span) { p.span = span }

func (*PatternTupleStruct) patternNode() {}

// PatternStructField represents a single struct field pattern.
type PatternStructField struct {
	Name      *Ident
	Pattern   Pattern
	Shorthand bool
	span      source.Span
}

// NewPatternStructField constructs a struct field pattern.
func NewPatternStructField(name *Ident, pat Pattern, shorthand bool, span source.Span) *PatternStructField {
	return &PatternStructField{
		Name:      name,
		Pattern:   pat,
		Shorthand: shorthand,
		span:      span,
	}
}

// Span returns the struct field span.
func (f *PatternStructField) Span() source.Span { return f.span }

// SetSpan updates the struct field span.
func (f *PatternStructField) SetSpan(span source.Span) { f.span = span }

// PatternStruct represents struct patterns (`Type { field, .. }`).
type PatternStruct struct {
	Path     *PatternPath
	Fields   []*PatternStructField
	HasRest  bool
	RestSpan source.Span
	span     source.Span
}

// NewPatternStruct constructs a struct pattern.
func NewPatternStruct(path *PatternPath, fields []*PatternStructField, hasRest bool, restSpan source.Span, span source.Span) *PatternStruct {
	return &PatternStruct{
		Path:     path,
		Fields:   fields,
		HasRest:  hasRest,
		RestSpan: restSpan,
		span:     span,
	}
}

// Span returns the struct pattern span.
func (p *PatternStruct) Span() source.Span { return p.span }

// SetSpan updates the struct pattern span.
func (p *PatternStruct) SetSpan(span source.Span) { p.span = span }

func (*PatternStruct) patternNode() {}

// PatternEnum represents enum variant patterns (`Enum::Variant(...)`).
type PatternEnum struct {
	Path   *PatternPath
	Tuple  *PatternTuple
	Struct *PatternStruct
	span   source.Span
}

// NewPatternEnum constructs an enum variant pattern.
func NewPatternEnum(path *PatternPath, tuple *PatternTuple, strct *PatternStruct, span source.Span) *PatternEnum {
	return &PatternEnum{
		Path:   path,
		Tuple:  tuple,
		Struct: strct,
		span:   span,
	}
}

// Span returns the enum pattern span.
func (p *PatternEnum) Span() source.Span { return p.span }

// SetSpan updates the enum pattern span.
func (p *PatternEnum) SetSpan(span source.Span) { p.span = span }

func (*PatternEnum) patternNode() {}

// PatternRest represents the `..` rest marker, optionally with a binding.
type PatternRest struct {
	Binding Pattern
	span    source.Span
}

// NewPatternRest constructs a rest pattern.
func NewPatternRest(binding Pattern, span source.Span) *PatternRest {
	return &PatternRest{
		Binding: binding,
		span:    span,
	}
}

// Span returns the rest span.
func (p *PatternRest) Span() source.Span { return p.span }

// SetSpan updates the rest span.
func (p *PatternRest) SetSpan(span source.Span) { p.span = span }

func (*PatternRest) patternNode() {}

// PatternSlice represents slice and array patterns (`[head, .., tail]`).
type PatternSlice struct {
	Elements []Pattern
	span     source.Span
}

// NewPatternSlice constructs a slice pattern.
func NewPatternSlice(elements []Pattern, span source.Span) *PatternSlice {
	return &PatternSlice{
		Elements: elements,
		span:     span,
	}
}

// Span returns the slice pattern span.
func (p *PatternSlice) Span() source.Span { return p.span }

// SetSpan updates the slice pattern span.
func (p *PatternSlice) SetSpan(span source.Span) { p.span = span }

func (*PatternSlice) patternNode() {}

// PatternReference represents `&pat` / `&mut pat`.
type PatternReference struct {
	Mutable bool
	Pattern Pattern
	span    source.Span
}

// NewPatternReference constructs a reference pattern.
func NewPatternReference(mutable bool, pat Pattern, span source.Span) *PatternReference {
	return &PatternReference{
		Mutable: mutable,
		Pattern: pat,
		span:    span,
	}
}

// Span returns the reference pattern span.
func (p *PatternReference) Span() source.Span { return p.span }

// SetSpan updates the reference pattern span.
func (p *PatternReference) SetSpan(span source.Span) { p.span = span }

func (*PatternReference) patternNode() {}

// PatternBox represents `box pat`.
type PatternBox struct {
	Pattern Pattern
	span    source.Span
}

// NewPatternBox constructs a box pattern.
func NewPatternBox(pat Pattern, span source.Span) *PatternBox {
	return &PatternBox{
		Pattern: pat,
		span:    span,
	}
}

// Span returns the box pattern span.
func (p *PatternBox) Span() source.Span { return p.span }

// SetSpan updates the box pattern span.
func (p *PatternBox) SetSpan(span source.Span) { p.span = span }

func (*PatternBox) patternNode() {}

// PatternOr represents alternation (`p1 | p2`).
type PatternOr struct {
	Patterns []Pattern
	span     source.Span
}

// NewPatternOr constructs an alternation pattern.
func NewPatternOr(patterns []Pattern, span source.Span) *PatternOr {
	return &PatternOr{
		Patterns: patterns,
		span:     span,
	}
}

// Span returns the alternation span.
func (p *PatternOr) Span() source.Span { return p.span }

// SetSpan updates the alternation span.
func (p *PatternOr) SetSpan(span source.Span) { p.span = span }

func (*PatternOr) patternNode() {}

// PatternParen represents parenthesized patterns.
type PatternParen struct {
	Pattern Pattern
	span    source.Span
}

// NewPatternParen constructs a parenthesized pattern.
func NewPatternParen(pat Pattern, span source.Span) *PatternParen {
	return &PatternParen{
		Pattern: pat,
		span:    span,
	}
}

// Span returns the parenthesized pattern span.
func (p *PatternParen) Span() source.Span { return p.span }

// SetSpan updates the parenthesized pattern span.
func (p *PatternParen) SetSpan(span source.Span) { p.span = span }

func (*PatternParen) patternNode() {}
