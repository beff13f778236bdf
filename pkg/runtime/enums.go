package runtime

import (
	"fmt"
)

type enumKey struct {
	typeName string
	value    int64
}

// DefineEnum maps option (full option name) of enumeration typeName to value
func (r *Runtime) DefineEnum(typeName string, option string, value int64) {
	r.enumValues[option] = value
	r.enumOptions[enumKey{typeName: typeName, value: value}] = option
}

// ToEnumOption returns the value defined for the option, ok is false for unknown options
func (r *Runtime) ToEnumOption(o Object) (value int64, ok bool, err error) {
	name, _, err := r.AsOption(o)
	if err != nil {
		return 0, false, err
	}
	value, ok = r.enumValues[name]
	return value, ok, nil
}

// ToEnumOptionFlags combines values of every option in the list
func (r *Runtime) ToEnumOptionFlags(list Object) (int64, error) {
	items, err := r.AsList(list)
	if err != nil {
		return 0, err
	}
	var flags int64
	for _, item := range items {
		value, _, err := r.ToEnumOption(item)
		if err != nil {
			return 0, err
		}
		flags |= value
	}
	return flags, nil
}

func (r *Runtime) NewEnumOption(typeName string, value int64, values ...Object) (Object, error) {
	name, ok := r.enumOptions[enumKey{typeName: typeName, value: value}]
	if !ok {
		return InvalidObject, fmt.Errorf("enum `%s` has no option with value %d", typeName, value)
	}
	return r.NewOption(name, values...), nil
}

// NewEnumOptionFlags splits flags into a list of options, highest bit first
func (r *Runtime) NewEnumOptionFlags(typeName string, flags int64) (Object, error) {
	var items []Object
	for bit := 63; bit >= 0 && flags != 0; bit-- {
		flag := int64(1) << bit
		if flags&flag == 0 {
			continue
		}
		item, err := r.NewEnumOption(typeName, flag)
		if err != nil {
			return InvalidObject, err
		}
		items = append(items, item)
		flags &^= flag
	}
	return r.NewList(items...), nil
}
