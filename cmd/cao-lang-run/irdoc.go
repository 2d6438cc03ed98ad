package main

import (
	"encoding/json"
	"fmt"

	"github.com/cao-lang/cao-lang-go/ir"
)

// This file loads the JSON notation of an IR document into an *ir.Module.
// The wire syntax is deliberately outside the core (spec.md section 1 lists
// IR-document (de)serialization as pluggable): a host embedding cao-lang is
// free to invent its own document format, as this demo CLI does for
// encoding/json, matching the tagged-variant card shape described in
// spec.md section 6 ("a card: a tagged variant encoded as {<TagName>:
// <payload>}").

// moduleDoc is the JSON shape of a Module: submodules and functions are
// name/value pairs, represented as two-element arrays since JSON has no
// native tuple type.
type moduleDoc struct {
	Submodules [][2]json.RawMessage `json:"submodules"`
	Imports    []string             `json:"imports"`
	Functions  [][2]json.RawMessage `json:"functions"`
}

type functionDoc struct {
	Arguments []string          `json:"arguments"`
	Cards     []json.RawMessage `json:"cards"`
}

// DecodeModule parses a JSON IR document into an *ir.Module tree.
func DecodeModule(name string, data []byte) (*ir.Module, error) {
	var doc moduleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding module %q: %w", name, err)
	}
	return buildModule(name, doc)
}

func buildModule(name string, doc moduleDoc) (*ir.Module, error) {
	m := ir.NewModule(name)
	for _, path := range doc.Imports {
		m.InsertImport(path)
	}
	for _, pair := range doc.Submodules {
		subName, subDoc, err := decodePair(pair)
		if err != nil {
			return nil, err
		}
		var sub moduleDoc
		if err := json.Unmarshal(subDoc, &sub); err != nil {
			return nil, fmt.Errorf("decoding submodule %q: %w", subName, err)
		}
		subModule, err := buildModule(subName, sub)
		if err != nil {
			return nil, err
		}
		if err := m.InsertSubmodule(subModule); err != nil {
			return nil, err
		}
	}
	for _, pair := range doc.Functions {
		fnName, fnDoc, err := decodePair(pair)
		if err != nil {
			return nil, err
		}
		var fd functionDoc
		if err := json.Unmarshal(fnDoc, &fd); err != nil {
			return nil, fmt.Errorf("decoding function %q: %w", fnName, err)
		}
		fn := ir.NewFunction(fnName, fd.Arguments...)
		for _, raw := range fd.Cards {
			c, err := decodeCard(raw)
			if err != nil {
				return nil, fmt.Errorf("function %q: %w", fnName, err)
			}
			fn.Cards = append(fn.Cards, c)
		}
		if err := m.InsertFunction(fn); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodePair(pair [2]json.RawMessage) (string, json.RawMessage, error) {
	var name string
	if err := json.Unmarshal(pair[0], &name); err != nil {
		return "", nil, fmt.Errorf("decoding pair name: %w", err)
	}
	return name, pair[1], nil
}

// decodeCard decodes a single {"TagName": payload} object into its
// concrete ir.Card type.
func decodeCard(raw json.RawMessage) (ir.Card, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, fmt.Errorf("decoding card: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("decoding card: expected exactly one tag, got %d", len(tagged))
	}
	var tag string
	var payload json.RawMessage
	for t, p := range tagged {
		tag, payload = t, p
	}

	switch tag {
	case "LoadInt":
		var v int64
		return decodeLeaf(payload, &v, func() ir.Card { return ir.LoadInt{Value: v} })
	case "LoadFloat":
		var v float64
		return decodeLeaf(payload, &v, func() ir.Card { return ir.LoadFloat{Value: v} })
	case "LoadNil":
		return ir.LoadNil{}, nil
	case "LoadString":
		var v string
		return decodeLeaf(payload, &v, func() ir.Card { return ir.LoadString{Value: v} })
	case "ReadVar":
		var v string
		return decodeLeaf(payload, &v, func() ir.Card { return ir.ReadVar{Name: v} })
	case "SetVar":
		var v string
		return decodeLeaf(payload, &v, func() ir.Card { return ir.SetVar{Name: v} })
	case "ReadGlobalVar":
		var v string
		return decodeLeaf(payload, &v, func() ir.Card { return ir.ReadGlobalVar{Name: v} })
	case "SetGlobalVar":
		var v string
		return decodeLeaf(payload, &v, func() ir.Card { return ir.SetGlobalVar{Name: v} })
	case "ReadVarField":
		var v struct {
			Var   string `json:"var"`
			Field string `json:"field"`
		}
		return decodeLeaf(payload, &v, func() ir.Card { return ir.ReadVarField{Var: v.Var, Field: v.Field} })
	case "SetVarField":
		var v struct {
			Var   string `json:"var"`
			Field string `json:"field"`
		}
		return decodeLeaf(payload, &v, func() ir.Card { return ir.SetVarField{Var: v.Var, Field: v.Field} })
	case "Add":
		return ir.Add{}, nil
	case "Sub":
		return ir.Sub{}, nil
	case "Mul":
		return ir.Mul{}, nil
	case "Div":
		return ir.Div{}, nil
	case "Equals":
		return ir.Equals{}, nil
	case "Less":
		return ir.Less{}, nil
	case "And":
		return ir.And{}, nil
	case "Or":
		return ir.Or{}, nil
	case "Not":
		return ir.Not{}, nil
	case "CopyLast":
		return ir.CopyLast{}, nil
	case "Pop":
		return ir.Pop{}, nil
	case "Jump":
		var v string
		return decodeLeaf(payload, &v, func() ir.Card { return ir.Jump{Target: v} })
	case "DynamicJump":
		var v int
		return decodeLeaf(payload, &v, func() ir.Card { return ir.DynamicJump{Nargs: v} })
	case "Return":
		return ir.Return{}, nil
	case "Abort":
		var v string
		return decodeLeaf(payload, &v, func() ir.Card { return ir.Abort{Message: v} })
	case "IfTrue":
		var v struct {
			Then json.RawMessage `json:"then"`
		}
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decoding IfTrue: %w", err)
		}
		then, err := decodeCard(v.Then)
		if err != nil {
			return nil, err
		}
		return ir.IfTrue{Then: then}, nil
	case "IfFalse":
		var v struct {
			Else json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decoding IfFalse: %w", err)
		}
		els, err := decodeCard(v.Else)
		if err != nil {
			return nil, err
		}
		return ir.IfFalse{Else: els}, nil
	case "IfElse":
		var v struct {
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decoding IfElse: %w", err)
		}
		then, err := decodeCard(v.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeCard(v.Else)
		if err != nil {
			return nil, err
		}
		return ir.IfElse{Then: then, Else: els}, nil
	case "Repeat":
		var v struct {
			Count json.RawMessage `json:"count"`
			Body  json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decoding Repeat: %w", err)
		}
		count, err := decodeCard(v.Count)
		if err != nil {
			return nil, err
		}
		body, err := decodeCard(v.Body)
		if err != nil {
			return nil, err
		}
		return ir.Repeat{Count: count, Body: body}, nil
	case "While":
		var v struct {
			Cond json.RawMessage `json:"cond"`
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decoding While: %w", err)
		}
		cond, err := decodeCard(v.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeCard(v.Body)
		if err != nil {
			return nil, err
		}
		return ir.While{Cond: cond, Body: body}, nil
	case "ForEach":
		var v struct {
			I        string          `json:"i"`
			K        string          `json:"k"`
			V        string          `json:"v"`
			Iterable json.RawMessage `json:"iterable"`
			Body     json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decoding ForEach: %w", err)
		}
		iterable, err := decodeCard(v.Iterable)
		if err != nil {
			return nil, err
		}
		body, err := decodeCard(v.Body)
		if err != nil {
			return nil, err
		}
		return ir.ForEach{I: v.I, K: v.K, V: v.V, Iterable: iterable, Body: body}, nil
	case "Len":
		return ir.Len{}, nil
	case "CreateTable":
		return ir.CreateTable{}, nil
	case "GetProperty":
		return ir.GetProperty{}, nil
	case "SetProperty":
		return ir.SetProperty{}, nil
	case "AppendTable":
		return ir.AppendTable{}, nil
	case "CallNative":
		var v string
		return decodeLeaf(payload, &v, func() ir.Card { return ir.CallNative{Name: v} })
	case "Composite":
		var v struct {
			Tag   string            `json:"tag"`
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decoding Composite: %w", err)
		}
		items := make([]ir.Card, 0, len(v.Items))
		for _, raw := range v.Items {
			c, err := decodeCard(raw)
			if err != nil {
				return nil, err
			}
			items = append(items, c)
		}
		return ir.Composite{Tag: v.Tag, Items: items}, nil
	default:
		return nil, fmt.Errorf("unknown card tag %q", tag)
	}
}

// decodeLeaf unmarshals payload (which may be absent for a null-payload
// card) into dst, then builds the card via make.
func decodeLeaf(payload json.RawMessage, dst interface{}, make func() ir.Card) (ir.Card, error) {
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, dst); err != nil {
			return nil, fmt.Errorf("decoding payload: %w", err)
		}
	}
	return make(), nil
}

