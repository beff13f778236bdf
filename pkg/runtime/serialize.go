package runtime

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"nar-runtime/pkg/bytecode"
)

var cborEncMode cbor.EncMode
var cborDecMode cbor.DecMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("runtime: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
	dm, err := cbor.DecOptions{MaxNestedLevels: 1024}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("runtime: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// serializedObject is a frame independent copy of an object tree
type serializedObject struct {
	Kind  InstanceKind       `cbor:"k"`
	Int   int64              `cbor:"i,omitempty"`
	Float float64            `cbor:"f"`
	Text  string             `cbor:"s,omitempty"`
	Func  uint32             `cbor:"p,omitempty"`
	Keys  []string           `cbor:"n,omitempty"`
	Items []serializedObject `cbor:"v,omitempty"`
}

// Serialize copies object into bytes that survive frame reset.
// Functions, natives and patterns cannot be serialized.
func (r *Runtime) Serialize(o Object) ([]byte, error) {
	so, err := r.serialize(o)
	if err != nil {
		return nil, err
	}
	data, err := cborEncMode.Marshal(so)
	if err != nil {
		return nil, fmt.Errorf("runtime: marshal object: %w", err)
	}
	return data, nil
}

// Deserialize recreates serialized object in the current frame
func (r *Runtime) Deserialize(data []byte) (Object, error) {
	var so serializedObject
	if err := cborDecMode.Unmarshal(data, &so); err != nil {
		return InvalidObject, fmt.Errorf("runtime: unmarshal object: %w", err)
	}
	return r.deserialize(so)
}

func (r *Runtime) serialize(o Object) (serializedObject, error) {
	so := serializedObject{Kind: o.Kind()}
	var err error
	switch o.Kind() {
	case InstanceKindUnit:
	case InstanceKindChar:
		var c rune
		c, err = r.AsChar(o)
		so.Int = int64(c)
	case InstanceKindInt:
		so.Int, err = r.AsInt(o)
	case InstanceKindFloat:
		so.Float, err = r.AsFloat(o)
	case InstanceKindString:
		so.Text, err = r.AsString(o)
	case InstanceKindList:
		var items []Object
		if items, err = r.AsList(o); err == nil {
			so.Items, err = r.serializeAll(items)
		}
	case InstanceKindTuple:
		var items []Object
		if items, err = r.AsTuple(o); err == nil {
			so.Items, err = r.serializeAll(items)
		}
	case InstanceKindRecord:
		var keys, values []Object
		if keys, values, err = r.AsRecord(o); err != nil {
			break
		}
		so.Keys = make([]string, len(keys))
		for i, key := range keys {
			if so.Keys[i], err = r.AsString(key); err != nil {
				return so, err
			}
		}
		so.Items, err = r.serializeAll(values)
	case InstanceKindOption:
		var values []Object
		if so.Text, values, err = r.AsOption(o); err == nil {
			so.Items, err = r.serializeAll(values)
		}
	case InstanceKindClosure:
		var c closure
		if c, err = r.asClosure(o); err != nil {
			break
		}
		so.Func = uint32(c.fn)
		var curried []Object
		if curried, err = r.AsList(c.curried); err == nil {
			so.Items, err = r.serializeAll(curried)
		}
	default:
		return so, fmt.Errorf("%w: %s", ErrNotSerializable, o.Kind())
	}
	return so, err
}

func (r *Runtime) serializeAll(items []Object) ([]serializedObject, error) {
	result := make([]serializedObject, 0, len(items))
	for _, item := range items {
		so, err := r.serialize(item)
		if err != nil {
			return nil, err
		}
		result = append(result, so)
	}
	return result, nil
}

func (r *Runtime) deserialize(so serializedObject) (Object, error) {
	switch so.Kind {
	case InstanceKindUnit:
		return r.NewUnit(), nil
	case InstanceKindChar:
		return r.NewChar(rune(so.Int)), nil
	case InstanceKindInt:
		return r.NewInt(so.Int), nil
	case InstanceKindFloat:
		return r.NewFloat(so.Float), nil
	case InstanceKindString:
		return r.NewString(so.Text), nil
	case InstanceKindList:
		items, err := r.deserializeAll(so.Items)
		if err != nil {
			return InvalidObject, err
		}
		return r.NewList(items...), nil
	case InstanceKindTuple:
		items, err := r.deserializeAll(so.Items)
		if err != nil {
			return InvalidObject, err
		}
		return r.NewTuple(items...), nil
	case InstanceKindRecord:
		values, err := r.deserializeAll(so.Items)
		if err != nil {
			return InvalidObject, err
		}
		return r.NewRecord(so.Keys, values)
	case InstanceKindOption:
		values, err := r.deserializeAll(so.Items)
		if err != nil {
			return InvalidObject, err
		}
		switch {
		case so.Text == kTrue && len(values) == 0:
			return r.NewBool(true), nil
		case so.Text == kFalse && len(values) == 0:
			return r.NewBool(false), nil
		}
		return r.NewOption(so.Text, values...), nil
	case InstanceKindClosure:
		if int(so.Func) >= len(r.program.Funcs) {
			return InvalidObject, fmt.Errorf("%w: closure points to missing function #%d", ErrInvalidObject, so.Func)
		}
		curried, err := r.deserializeAll(so.Items)
		if err != nil {
			return InvalidObject, err
		}
		return r.newClosure(bytecode.Pointer(so.Func), r.NewList(curried...)), nil
	default:
		return InvalidObject, fmt.Errorf("%w: %s", ErrNotSerializable, so.Kind)
	}
}

func (r *Runtime) deserializeAll(items []serializedObject) ([]Object, error) {
	result := make([]Object, 0, len(items))
	for _, item := range items {
		o, err := r.deserialize(item)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, nil
}
