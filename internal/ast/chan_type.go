package ast

import "github.com/tml-lang/tmlc/internal/source"

// ChanType represents a channel type.
type ChanType struct {
	Elem TypeExpr
	span source.Span
}

// Span returns the channel type span.
func (t *ChanType) Span() source.Span { return t.span }

// typeNode marks ChanType as a type expression.
func (*ChanType) typeNode() {}

// NewChanType constructs a channel type node.
func NewChanType(elem TypeExpr, span source.Span) *ChanType {
	return &ChanType{
		Elem: elem,
		span: span,
	}
}
