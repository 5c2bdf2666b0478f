package unit

import (
	"encoding/json"
	"fmt"

	"github.com/tml-lang/tmlc/internal/types"
)

// typeEnvelope mirrors internal/types' sum of semantic type shapes in the
// wire format: a "kind" discriminator plus the fields that particular kind
// needs.
type typeEnvelope struct {
	Kind       string            `json:"kind"`
	Name       string            `json:"name"`
	ModulePath string            `json:"module_path"`
	Mutable    bool              `json:"mutable"`
	Elem       json.RawMessage   `json:"elem"`
	TypeArgs   []json.RawMessage `json:"type_args"`
	Params     []json.RawMessage `json:"params"`
	Return     json.RawMessage   `json:"return"`
	Effects    []string          `json:"effects"`
	Elements   []json.RawMessage `json:"elements"`
	Len        int               `json:"len"`
	TypeParams []string          `json:"type_params"`
	Fields     []fieldEnvelope   `json:"fields"`
	Variants   []variantEnvelope `json:"variants"`
}

type fieldEnvelope struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type variantEnvelope struct {
	Name    string            `json:"name"`
	Payload []json.RawMessage `json:"payload"`
}

func decodeType(raw json.RawMessage) (types.Type, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var e typeEnvelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decoding type: %w", err)
	}

	switch e.Kind {
	case "primitive":
		return &types.Primitive{Kind: types.PrimitiveKind(e.Name)}, nil

	case "pointer":
		elem, err := decodeType(e.Elem)
		if err != nil {
			return nil, err
		}
		return &types.Pointer{Elem: elem, Mutable: e.Mutable}, nil

	case "reference":
		elem, err := decodeType(e.Elem)
		if err != nil {
			return nil, err
		}
		return &types.Reference{Elem: elem, Mutable: e.Mutable}, nil

	case "named":
		args := make([]types.Type, 0, len(e.TypeArgs))
		for _, araw := range e.TypeArgs {
			t, err := decodeType(araw)
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
		return &types.Named{Name: e.Name, ModulePath: e.ModulePath, TypeArgs: args}, nil

	case "generic_param":
		return &types.GenericParam{Name: e.Name}, nil

	case "function":
		params := make([]types.Type, 0, len(e.Params))
		for _, praw := range e.Params {
			t, err := decodeType(praw)
			if err != nil {
				return nil, err
			}
			params = append(params, t)
		}
		ret, err := decodeType(e.Return)
		if err != nil {
			return nil, err
		}
		return &types.Function{Params: params, Return: ret, Effects: e.Effects}, nil

	case "tuple":
		elems := make([]types.Type, 0, len(e.Elements))
		for _, eraw := range e.Elements {
			t, err := decodeType(eraw)
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
		}
		return &types.Tuple{Elements: elems}, nil

	case "array":
		elem, err := decodeType(e.Elem)
		if err != nil {
			return nil, err
		}
		return &types.Array{Elem: elem, Len: e.Len}, nil

	case "struct":
		fields := make([]types.Field, 0, len(e.Fields))
		for _, f := range e.Fields {
			t, err := decodeType(f.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, types.Field{Name: f.Name, Type: t})
		}
		return &types.Struct{Name: e.Name, ModulePath: e.ModulePath, TypeParams: e.TypeParams, Fields: fields}, nil

	case "enum":
		variants := make([]types.Variant, 0, len(e.Variants))
		for _, v := range e.Variants {
			payload := make([]types.Type, 0, len(v.Payload))
			for _, praw := range v.Payload {
				t, err := decodeType(praw)
				if err != nil {
					return nil, err
				}
				payload = append(payload, t)
			}
			variants = append(variants, types.Variant{Name: v.Name, Payload: payload})
		}
		return &types.Enum{Name: e.Name, ModulePath: e.ModulePath, TypeParams: e.TypeParams, Variants: variants}, nil

	default:
		return nil, fmt.Errorf("unsupported semantic type kind %q", e.Kind)
	}
}
