package runtime

import (
	"fmt"

	"nar-runtime/pkg/bytecode"
)

// match binds names of the pattern to parts of obj, bound locals are counted in numLocals.
// Structural mismatch is not an error, malformed patterns are.
func (r *Runtime) match(pat Object, obj Object, numLocals *int) (bool, error) {
	p, err := r.asPattern(pat)
	if err != nil {
		return false, err
	}
	switch p.kind {
	case bytecode.PatternKindAlias:
		if err := r.pushLocal(p.name, obj, numLocals); err != nil {
			return false, err
		}
		nested, err := r.patternItems(p, 1)
		if err != nil {
			return false, err
		}
		return r.match(nested[0], obj, numLocals)
	case bytecode.PatternKindAny:
		return true, nil
	case bytecode.PatternKindCons:
		nested, err := r.patternItems(p, 2)
		if err != nil {
			return false, err
		}
		if obj.Kind() != InstanceKindList {
			return false, nil
		}
		head, tail, ok, err := r.AsListCons(obj)
		if err != nil || !ok {
			return false, err
		}
		matched, err := r.match(nested[1], head, numLocals)
		if err != nil || !matched {
			return false, err
		}
		return r.match(nested[0], tail, numLocals)
	case bytecode.PatternKindConst:
		nested, err := r.patternItems(p, 1)
		if err != nil {
			return false, err
		}
		return r.constEquals(nested[0], obj)
	case bytecode.PatternKindOption:
		if obj.Kind() != InstanceKindOption {
			return false, nil
		}
		opt, err := r.options.at(obj)
		if err != nil {
			return false, err
		}
		if opt.name != p.name {
			return false, nil
		}
		values, err := r.AsList(opt.values)
		if err != nil {
			return false, err
		}
		return r.matchAll(p, values, numLocals)
	case bytecode.PatternKindList:
		if obj.Kind() != InstanceKindList {
			return false, nil
		}
		values, err := r.AsList(obj)
		if err != nil {
			return false, err
		}
		return r.matchAll(p, values, numLocals)
	case bytecode.PatternKindNamed:
		if err := r.pushLocal(p.name, obj, numLocals); err != nil {
			return false, err
		}
		return true, nil
	case bytecode.PatternKindRecord:
		if obj.Kind() != InstanceKindRecord {
			return false, nil
		}
		fieldNames, err := r.AsList(p.items)
		if err != nil {
			return false, err
		}
		for _, fieldName := range fieldNames {
			if fieldName.Kind() != InstanceKindString {
				return false, corrupted("record pattern field name is %s", fieldName.Kind())
			}
			value, ok, err := r.findField(obj, fieldName)
			if err != nil || !ok {
				return false, err
			}
			if err := r.pushLocal(fieldName, value, numLocals); err != nil {
				return false, err
			}
		}
		return true, nil
	case bytecode.PatternKindTuple:
		if obj.Kind() != InstanceKindTuple {
			return false, nil
		}
		values, err := r.AsTuple(obj)
		if err != nil {
			return false, err
		}
		return r.matchAll(p, values, numLocals)
	default:
		return false, corrupted("invalid pattern kind %d", p.kind)
	}
}

func (r *Runtime) matchAll(p pattern, values []Object, numLocals *int) (bool, error) {
	nested, err := r.AsList(p.items)
	if err != nil {
		return false, err
	}
	if len(nested) != len(values) {
		return false, nil
	}
	for i, value := range values {
		matched, err := r.match(nested[i], value, numLocals)
		if err != nil || !matched {
			return false, err
		}
	}
	return true, nil
}

func (r *Runtime) patternItems(p pattern, expected int) ([]Object, error) {
	nested, err := r.AsList(p.items)
	if err != nil {
		return nil, err
	}
	if len(nested) != expected {
		return nil, corrupted("pattern of kind %d should have exactly %d nested patterns, got %d",
			p.kind, expected, len(nested))
	}
	return nested, nil
}

func (r *Runtime) pushLocal(name Object, value Object, numLocals *int) error {
	s, err := r.AsString(name)
	if err != nil {
		return err
	}
	r.locals = append(r.locals, local{name: s, value: value})
	*numLocals = *numLocals + 1
	return nil
}

func (r *Runtime) constEquals(literal Object, obj Object) (bool, error) {
	switch literal.Kind() {
	case InstanceKindUnit:
		return obj.Kind() == InstanceKindUnit, nil
	case InstanceKindChar, InstanceKindInt, InstanceKindFloat, InstanceKindString:
		if obj.Kind() != literal.Kind() {
			return false, nil
		}
		return r.Equal(literal, obj)
	default:
		return false, fmt.Errorf("%w: const pattern cannot hold %s", ErrTypeMismatch, literal.Kind())
	}
}
