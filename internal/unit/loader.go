// Package unit decodes the JSON compilation-unit wire format the driver
// reads from disk: a thin loader standing in for the out-of-scope
// lexer/parser/type-checker, not a parser itself. It performs no inference
// and rejects anything it cannot map directly onto an internal/ast node or
// an internal/types semantic type.
package unit

import (
	"encoding/json"
	"fmt"

	mast "github.com/tml-lang/tmlc/internal/ast"
	"github.com/tml-lang/tmlc/internal/source"
	"github.com/tml-lang/tmlc/internal/types"
)

// Unit is a fully decoded compilation unit: the local file's declarations,
// any imported modules keyed by module path, and the type checker's
// per-node resolution, reconstructed from the wire format's "types" side
// table via each node's "id".
type Unit struct {
	File     *mast.File
	Modules  map[string]*mast.File
	TypeInfo map[mast.Node]types.Type
}

type wireFile struct {
	Decls []json.RawMessage `json:"decls"`
}

type wireUnit struct {
	Decls   []json.RawMessage          `json:"decls"`
	Modules map[string]wireFile        `json:"modules"`
	Types   map[string]json.RawMessage `json:"types"`
}

// Load decodes a JSON compilation unit.
func Load(data []byte) (*Unit, error) {
	var w wireUnit
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding compilation unit: %w", err)
	}

	d := newDecoder()
	file := mast.NewFile(source.None)
	decls, err := d.declList(w.Decls)
	if err != nil {
		return nil, err
	}
	file.Decls = decls

	modules := make(map[string]*mast.File, len(w.Modules))
	for path, wf := range w.Modules {
		mf := mast.NewFile(source.None)
		mdecls, err := d.declList(wf.Decls)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", path, err)
		}
		mf.Decls = mdecls
		modules[path] = mf
	}

	typeInfo := make(map[mast.Node]types.Type, len(w.Types))
	for id, raw := range w.Types {
		node, ok := d.ids[id]
		if !ok {
			continue // a type entry for a node the loader didn't keep an id for
		}
		t, err := decodeType(raw)
		if err != nil {
			return nil, fmt.Errorf("type entry %s: %w", id, err)
		}
		typeInfo[node] = t
	}

	return &Unit{File: file, Modules: modules, TypeInfo: typeInfo}, nil
}

// decoder carries the id -> node table built up while decoding so Load can
// resolve the "types" side table against actual node pointers afterward.
type decoder struct {
	ids map[string]mast.Node
}

func newDecoder() *decoder {
	return &decoder{ids: make(map[string]mast.Node)}
}

// envelope is the superset of fields used by every node kind the loader
// understands. Unused fields for a given kind simply stay at their zero
// value; RawMessage fields are only decoded by the kind that needs them.
type envelope struct {
	Kind string          `json:"kind"`
	ID   string          `json:"id"`
	Span *spanJSON       `json:"span"`

	Name       json.RawMessage `json:"name"`
	Pub        bool            `json:"pub"`
	Unsafe     bool            `json:"unsafe"`
	Mutable    bool            `json:"mutable"`
	TypeParams []json.RawMessage `json:"type_params"`
	Params     []json.RawMessage `json:"params"`
	ReturnType json.RawMessage `json:"return_type"`
	Where      json.RawMessage `json:"where"`
	Body       json.RawMessage `json:"body"`
	Type       json.RawMessage `json:"type"`
	Value      json.RawMessage `json:"value"`
	Fields     []json.RawMessage `json:"fields"`
	Variants   []json.RawMessage `json:"variants"`
	Payloads   []json.RawMessage `json:"payloads"`
	Behavior   json.RawMessage `json:"behavior"`
	Target     json.RawMessage `json:"target"`
	Methods    []json.RawMessage `json:"methods"`

	Stmts []json.RawMessage `json:"stmts"`
	Tail  json.RawMessage   `json:"tail"`

	Op    string          `json:"op"`
	Left  json.RawMessage `json:"left"`
	Right json.RawMessage `json:"right"`
	Expr  json.RawMessage `json:"expr"`

	Callee json.RawMessage   `json:"callee"`
	Args   []json.RawMessage `json:"args"`

	Field   json.RawMessage   `json:"field"`
	Indices []json.RawMessage `json:"indices"`

	Clauses []json.RawMessage `json:"clauses"`
	Else    json.RawMessage   `json:"else"`
	Cond    json.RawMessage   `json:"condition"`

	Iterator json.RawMessage `json:"iterator"`
	Iterable json.RawMessage `json:"iterable"`

	Subject json.RawMessage   `json:"subject"`
	Arms    []json.RawMessage `json:"arms"`
	Guard   json.RawMessage   `json:"guard"`
	Pattern json.RawMessage   `json:"pattern"`

	Elements []json.RawMessage `json:"elements"`

	Text  string `json:"text"`
	Bool  bool   `json:"bool_value"`
	Str   string `json:"str_value"`

	Base json.RawMessage   `json:"base"`
	Args2 []json.RawMessage `json:"type_args"` // generic type arguments of a GenericType

	Elem json.RawMessage `json:"elem"`
	Len  json.RawMessage `json:"len"`

	Segments []json.RawMessage `json:"segments"`
	Tuple    json.RawMessage   `json:"tuple"`
	Struct   json.RawMessage   `json:"struct"`
	Path     json.RawMessage   `json:"path"`
}

type spanJSON struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

func (s *spanJSON) toSpan() source.Span {
	if s == nil {
		return source.None
	}
	return source.Span{Filename: s.File, Line: s.Line, Column: s.Column, Start: s.Start, End: s.End}
}

func parseEnvelope(raw json.RawMessage) (*envelope, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decoding node: %w", err)
	}
	return &e, nil
}

func (d *decoder) remember(id string, n mast.Node) {
	if id != "" {
		d.ids[id] = n
	}
}

func (d *decoder) declList(raws []json.RawMessage) ([]mast.Decl, error) {
	out := make([]mast.Decl, 0, len(raws))
	for _, raw := range raws {
		decl, err := d.decl(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, decl)
	}
	return out, nil
}

func (d *decoder) decl(raw json.RawMessage) (mast.Decl, error) {
	e, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	span := e.Span.toSpan()

	switch e.Kind {
	case "fn":
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		typeParams, err := d.genericParamList(e.TypeParams)
		if err != nil {
			return nil, err
		}
		params, err := d.paramList(e.Params)
		if err != nil {
			return nil, err
		}
		retTy, err := d.typeExprOpt(e.ReturnType)
		if err != nil {
			return nil, err
		}
		body, err := d.blockExprOpt(e.Body)
		if err != nil {
			return nil, err
		}
		fn := mast.NewFnDecl(e.Pub, e.Unsafe, name, typeParams, params, retTy, nil, nil, body, span)
		d.remember(e.ID, fn)
		return fn, nil

	case "struct":
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		typeParams, err := d.genericParamList(e.TypeParams)
		if err != nil {
			return nil, err
		}
		fields := make([]*mast.StructField, 0, len(e.Fields))
		for _, raw := range e.Fields {
			fe, err := parseEnvelope(raw)
			if err != nil {
				return nil, err
			}
			fname, err := d.ident(fe.Name)
			if err != nil {
				return nil, err
			}
			fty, err := d.typeExpr(fe.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, mast.NewStructField(fname, fty, fe.Span.toSpan()))
		}
		sd := mast.NewStructDecl(e.Pub, name, typeParams, nil, fields, span)
		d.remember(e.ID, sd)
		return sd, nil

	case "enum":
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		typeParams, err := d.genericParamList(e.TypeParams)
		if err != nil {
			return nil, err
		}
		variants := make([]*mast.EnumVariant, 0, len(e.Variants))
		for _, raw := range e.Variants {
			ve, err := parseEnvelope(raw)
			if err != nil {
				return nil, err
			}
			vname, err := d.ident(ve.Name)
			if err != nil {
				return nil, err
			}
			payloads := make([]mast.TypeExpr, 0, len(ve.Payloads))
			for _, praw := range ve.Payloads {
				pty, err := d.typeExpr(praw)
				if err != nil {
					return nil, err
				}
				payloads = append(payloads, pty)
			}
			variants = append(variants, mast.NewEnumVariant(vname, payloads, nil, ve.Span.toSpan()))
		}
		ed := mast.NewEnumDecl(e.Pub, name, typeParams, nil, variants, span)
		d.remember(e.ID, ed)
		return ed, nil

	case "behavior":
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		typeParams, err := d.genericParamList(e.TypeParams)
		if err != nil {
			return nil, err
		}
		methods, err := d.fnDeclList(e.Methods)
		if err != nil {
			return nil, err
		}
		bd := mast.NewBehaviorDecl(e.Pub, name, typeParams, methods, span)
		d.remember(e.ID, bd)
		return bd, nil

	case "impl":
		typeParams, err := d.genericParamList(e.TypeParams)
		if err != nil {
			return nil, err
		}
		behavior, err := d.typeExprOpt(e.Behavior)
		if err != nil {
			return nil, err
		}
		target, err := d.typeExpr(e.Target)
		if err != nil {
			return nil, err
		}
		methods, err := d.fnDeclList(e.Methods)
		if err != nil {
			return nil, err
		}
		id := mast.NewImplDecl(e.Pub, typeParams, behavior, target, methods, nil, span)
		d.remember(e.ID, id)
		return id, nil

	case "const":
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		ty, err := d.typeExprOpt(e.Type)
		if err != nil {
			return nil, err
		}
		val, err := d.expr(e.Value)
		if err != nil {
			return nil, err
		}
		cd := mast.NewConstDecl(e.Pub, name, ty, val, span)
		d.remember(e.ID, cd)
		return cd, nil

	default:
		return nil, fmt.Errorf("unsupported declaration kind %q", e.Kind)
	}
}

func (d *decoder) fnDeclList(raws []json.RawMessage) ([]*mast.FnDecl, error) {
	out := make([]*mast.FnDecl, 0, len(raws))
	for _, raw := range raws {
		decl, err := d.decl(raw)
		if err != nil {
			return nil, err
		}
		fn, ok := decl.(*mast.FnDecl)
		if !ok {
			return nil, fmt.Errorf("expected fn declaration in method list, got %T", decl)
		}
		out = append(out, fn)
	}
	return out, nil
}

func (d *decoder) ident(raw json.RawMessage) (*mast.Ident, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return mast.NewIdent(s, source.None), nil
	}
	e, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return mast.NewIdent(e.Text, e.Span.toSpan()), nil
}

func (d *decoder) genericParamList(raws []json.RawMessage) ([]mast.GenericParam, error) {
	out := make([]mast.GenericParam, 0, len(raws))
	for _, raw := range raws {
		e, err := parseEnvelope(raw)
		if err != nil {
			return nil, err
		}
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, mast.NewTypeParam(name, nil, e.Span.toSpan()))
	}
	return out, nil
}

func (d *decoder) paramList(raws []json.RawMessage) ([]*mast.Param, error) {
	out := make([]*mast.Param, 0, len(raws))
	for _, raw := range raws {
		e, err := parseEnvelope(raw)
		if err != nil {
			return nil, err
		}
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		ty, err := d.typeExpr(e.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, mast.NewParam(name, ty, e.Span.toSpan()))
	}
	return out, nil
}

func (d *decoder) typeExprOpt(raw json.RawMessage) (mast.TypeExpr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return d.typeExpr(raw)
}

func (d *decoder) typeExpr(raw json.RawMessage) (mast.TypeExpr, error) {
	e, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	span := e.Span.toSpan()

	switch e.Kind {
	case "named_type":
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		return mast.NewNamedType(name, span), nil

	case "generic_type":
		base, err := d.typeExpr(e.Base)
		if err != nil {
			return nil, err
		}
		args := make([]mast.TypeExpr, 0, len(e.Args2))
		for _, araw := range e.Args2 {
			t, err := d.typeExpr(araw)
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
		return mast.NewGenericType(base, args, span), nil

	case "pointer_type":
		elem, err := d.typeExpr(e.Elem)
		if err != nil {
			return nil, err
		}
		return mast.NewPointerType(elem, span), nil

	case "reference_type":
		elem, err := d.typeExpr(e.Elem)
		if err != nil {
			return nil, err
		}
		return mast.NewReferenceType(e.Mutable, elem, span), nil

	case "optional_type":
		elem, err := d.typeExpr(e.Elem)
		if err != nil {
			return nil, err
		}
		return mast.NewOptionalType(elem, span), nil

	case "slice_type":
		elem, err := d.typeExpr(e.Elem)
		if err != nil {
			return nil, err
		}
		return mast.NewSliceType(elem, span), nil

	case "array_type":
		elem, err := d.typeExpr(e.Elem)
		if err != nil {
			return nil, err
		}
		lenExpr, err := d.expr(e.Len)
		if err != nil {
			return nil, err
		}
		return mast.NewArrayType(elem, lenExpr, span), nil

	case "tuple_type":
		elems := make([]mast.TypeExpr, 0, len(e.Elements))
		for _, raw := range e.Elements {
			t, err := d.typeExpr(raw)
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
		}
		return mast.NewTupleType(elems, span), nil

	case "function_type":
		params := make([]mast.TypeExpr, 0, len(e.Params))
		for _, raw := range e.Params {
			t, err := d.typeExpr(raw)
			if err != nil {
				return nil, err
			}
			params = append(params, t)
		}
		ret, err := d.typeExprOpt(e.ReturnType)
		if err != nil {
			return nil, err
		}
		return mast.NewFunctionType(nil, params, ret, nil, span), nil

	default:
		return nil, fmt.Errorf("unsupported type expression kind %q", e.Kind)
	}
}

func (d *decoder) blockExprOpt(raw json.RawMessage) (*mast.BlockExpr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	ex, err := d.expr(raw)
	if err != nil {
		return nil, err
	}
	block, ok := ex.(*mast.BlockExpr)
	if !ok {
		return nil, fmt.Errorf("expected block expression, got %T", ex)
	}
	return block, nil
}

func (d *decoder) stmtList(raws []json.RawMessage) ([]mast.Stmt, error) {
	out := make([]mast.Stmt, 0, len(raws))
	for _, raw := range raws {
		s, err := d.stmt(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) stmt(raw json.RawMessage) (mast.Stmt, error) {
	e, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	span := e.Span.toSpan()

	switch e.Kind {
	case "let":
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		ty, err := d.typeExprOpt(e.Type)
		if err != nil {
			return nil, err
		}
		val, err := d.expr(e.Value)
		if err != nil {
			return nil, err
		}
		s := mast.NewLetStmt(e.Mutable, name, ty, val, span)
		d.remember(e.ID, s)
		return s, nil

	case "expr_stmt":
		ex, err := d.expr(e.Expr)
		if err != nil {
			return nil, err
		}
		return mast.NewExprStmt(ex, span), nil

	case "return":
		val, err := d.exprOpt(e.Value)
		if err != nil {
			return nil, err
		}
		return mast.NewReturnStmt(val, span), nil

	case "if_stmt":
		clauses, elseBlock, err := d.ifClauses(e.Clauses, e.Else)
		if err != nil {
			return nil, err
		}
		return mast.NewIfStmt(clauses, elseBlock, span), nil

	case "while":
		cond, err := d.expr(e.Cond)
		if err != nil {
			return nil, err
		}
		body, err := d.blockExprOpt(e.Body)
		if err != nil {
			return nil, err
		}
		return mast.NewWhileStmt(cond, body, span), nil

	case "for":
		iter, err := d.ident(e.Iterator)
		if err != nil {
			return nil, err
		}
		iterable, err := d.expr(e.Iterable)
		if err != nil {
			return nil, err
		}
		body, err := d.blockExprOpt(e.Body)
		if err != nil {
			return nil, err
		}
		return mast.NewForStmt(iter, iterable, body, span), nil

	case "break":
		return mast.NewBreakStmt(span), nil

	case "continue":
		return mast.NewContinueStmt(span), nil

	default:
		return nil, fmt.Errorf("unsupported statement kind %q", e.Kind)
	}
}

func (d *decoder) ifClauses(raws []json.RawMessage, elseRaw json.RawMessage) ([]*mast.IfClause, *mast.BlockExpr, error) {
	clauses := make([]*mast.IfClause, 0, len(raws))
	for _, raw := range raws {
		ce, err := parseEnvelope(raw)
		if err != nil {
			return nil, nil, err
		}
		cond, err := d.expr(ce.Cond)
		if err != nil {
			return nil, nil, err
		}
		body, err := d.blockExprOpt(ce.Body)
		if err != nil {
			return nil, nil, err
		}
		clauses = append(clauses, mast.NewIfClause(cond, body, ce.Span.toSpan()))
	}
	elseBlock, err := d.blockExprOpt(elseRaw)
	if err != nil {
		return nil, nil, err
	}
	return clauses, elseBlock, nil
}

func (d *decoder) exprOpt(raw json.RawMessage) (mast.Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return d.expr(raw)
}

func (d *decoder) exprList(raws []json.RawMessage) ([]mast.Expr, error) {
	out := make([]mast.Expr, 0, len(raws))
	for _, raw := range raws {
		ex, err := d.expr(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func (d *decoder) expr(raw json.RawMessage) (mast.Expr, error) {
	e, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	span := e.Span.toSpan()

	var ex mast.Expr
	switch e.Kind {
	case "ident":
		id, err := d.ident(raw)
		if err != nil {
			return nil, err
		}
		ex = id

	case "int_lit":
		ex = mast.NewIntegerLit(e.Text, span)

	case "float_lit":
		ex = mast.NewFloatLit(e.Text, span)

	case "bool_lit":
		ex = mast.NewBoolLit(e.Bool, span)

	case "string_lit":
		ex = mast.NewStringLit(e.Str, span)

	case "nil_lit":
		ex = mast.NewNilLit(span)

	case "infix":
		left, err := d.expr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.expr(e.Right)
		if err != nil {
			return nil, err
		}
		ex = mast.NewInfixExpr(mast.OpKind(e.Op), left, right, span)

	case "prefix":
		inner, err := d.expr(e.Expr)
		if err != nil {
			return nil, err
		}
		ex = mast.NewPrefixExpr(mast.OpKind(e.Op), inner, span)

	case "assign":
		target, err := d.expr(e.Target)
		if err != nil {
			return nil, err
		}
		val, err := d.expr(e.Value)
		if err != nil {
			return nil, err
		}
		ex = mast.NewAssignExpr(target, val, span)

	case "call":
		callee, err := d.expr(e.Callee)
		if err != nil {
			return nil, err
		}
		args, err := d.exprList(e.Args)
		if err != nil {
			return nil, err
		}
		ex = mast.NewCallExpr(callee, args, span)

	case "field":
		target, err := d.expr(e.Target)
		if err != nil {
			return nil, err
		}
		field, err := d.ident(e.Field)
		if err != nil {
			return nil, err
		}
		ex = mast.NewFieldExpr(target, field, span)

	case "index":
		target, err := d.expr(e.Target)
		if err != nil {
			return nil, err
		}
		indices, err := d.exprList(e.Indices)
		if err != nil {
			return nil, err
		}
		ex = mast.NewIndexExpr(target, indices, span)

	case "if_expr":
		clauses, elseBlock, err := d.ifClauses(e.Clauses, e.Else)
		if err != nil {
			return nil, err
		}
		ex = mast.NewIfExpr(clauses, elseBlock, span)

	case "match":
		subject, err := d.expr(e.Subject)
		if err != nil {
			return nil, err
		}
		arms := make([]*mast.MatchArm, 0, len(e.Arms))
		for _, raw := range e.Arms {
			ae, err := parseEnvelope(raw)
			if err != nil {
				return nil, err
			}
			pat, err := d.pattern(ae.Pattern)
			if err != nil {
				return nil, err
			}
			guard, err := d.exprOpt(ae.Guard)
			if err != nil {
				return nil, err
			}
			body, err := d.blockExprOpt(ae.Body)
			if err != nil {
				return nil, err
			}
			arms = append(arms, mast.NewMatchArm(pat, guard, body, ae.Span.toSpan()))
		}
		ex = mast.NewMatchExpr(subject, arms, span)

	case "block":
		stmts, err := d.stmtList(e.Stmts)
		if err != nil {
			return nil, err
		}
		tail, err := d.exprOpt(e.Tail)
		if err != nil {
			return nil, err
		}
		ex = mast.NewBlockExpr(stmts, tail, span)

	case "unsafe_block":
		block, err := d.blockExprOpt(e.Body)
		if err != nil {
			return nil, err
		}
		ex = mast.NewUnsafeBlock(block, span)

	case "struct_literal":
		name, err := d.expr(e.Name)
		if err != nil {
			return nil, err
		}
		fields := make([]*mast.StructLiteralField, 0, len(e.Fields))
		for _, raw := range e.Fields {
			fe, err := parseEnvelope(raw)
			if err != nil {
				return nil, err
			}
			fname, err := d.ident(fe.Name)
			if err != nil {
				return nil, err
			}
			fval, err := d.expr(fe.Value)
			if err != nil {
				return nil, err
			}
			fields = append(fields, mast.NewStructLiteralField(fname, fval, fe.Span.toSpan()))
		}
		ex = mast.NewStructLiteral(name, fields, span)

	case "tuple_literal":
		elems, err := d.exprList(e.Elements)
		if err != nil {
			return nil, err
		}
		ex = mast.NewTupleLiteral(elems, span)

	case "array_literal":
		elems, err := d.exprList(e.Elements)
		if err != nil {
			return nil, err
		}
		ty, err := d.typeExprOpt(e.Type)
		if err != nil {
			return nil, err
		}
		if ty != nil {
			ex = mast.NewTypedArrayLiteral(ty, elems, span)
		} else {
			ex = mast.NewArrayLiteral(elems, span)
		}

	case "function_literal":
		params, err := d.paramList(e.Params)
		if err != nil {
			return nil, err
		}
		body, err := d.blockExprOpt(e.Body)
		if err != nil {
			return nil, err
		}
		ex = mast.NewFunctionLiteral(params, body, span)

	default:
		return nil, fmt.Errorf("unsupported expression kind %q", e.Kind)
	}

	d.remember(e.ID, ex)
	return ex, nil
}

// name, when present, is an *Ident decoded via d.ident; but StructLiteral's
// Name field may also be a generic IndexExpr (`Box[I32]{...}`), so route
// through the general expr decoder instead where the envelope's "name"
// holds a full node rather than a bare string/ident.

func (d *decoder) patternList(raws []json.RawMessage) ([]mast.Pattern, error) {
	out := make([]mast.Pattern, 0, len(raws))
	for _, raw := range raws {
		p, err := d.pattern(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *decoder) pattern(raw json.RawMessage) (mast.Pattern, error) {
	e, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	span := e.Span.toSpan()

	switch e.Kind {
	case "pattern_wild":
		return mast.NewPatternWild(span), nil

	case "pattern_ident":
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		return mast.NewPatternIdent(name, mast.BindingModeMove, e.Mutable, span), nil

	case "pattern_literal":
		ex, err := d.expr(e.Expr)
		if err != nil {
			return nil, err
		}
		return mast.NewPatternLiteral(ex, span), nil

	case "pattern_binding":
		name, err := d.ident(e.Name)
		if err != nil {
			return nil, err
		}
		inner, err := d.pattern(e.Pattern)
		if err != nil {
			return nil, err
		}
		return mast.NewPatternBinding(name, mast.BindingModeMove, e.Mutable, inner, span), nil

	case "pattern_paren":
		inner, err := d.pattern(e.Pattern)
		if err != nil {
			return nil, err
		}
		return mast.NewPatternParen(inner, span), nil

	case "pattern_enum":
		path, err := d.patternPath(e.Path)
		if err != nil {
			return nil, err
		}
		var tuple *mast.PatternTuple
		if len(e.Tuple) > 0 && string(e.Tuple) != "null" {
			te, err := parseEnvelope(e.Tuple)
			if err != nil {
				return nil, err
			}
			elems, err := d.patternList(te.Elements)
			if err != nil {
				return nil, err
			}
			tuple = mast.NewPatternTuple(elems, te.Span.toSpan())
		}
		return mast.NewPatternEnum(path, tuple, nil, span), nil

	default:
		return nil, fmt.Errorf("unsupported pattern kind %q", e.Kind)
	}
}

func (d *decoder) patternPath(raw json.RawMessage) (*mast.PatternPath, error) {
	e, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	segs := make([]*mast.Ident, 0, len(e.Segments))
	for _, raw := range e.Segments {
		id, err := d.ident(raw)
		if err != nil {
			return nil, err
		}
		segs = append(segs, id)
	}
	return mast.NewPatternPath(segs, e.Span.toSpan()), nil
}
