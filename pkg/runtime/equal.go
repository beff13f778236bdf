package runtime

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Equal compares objects structurally. Natives are compared by their comparator
// or by identity when they have none.
func (r *Runtime) Equal(a, b Object) (bool, error) {
	if a.Kind() != b.Kind() {
		return false, nil
	}
	if a == b {
		return true, nil
	}
	switch a.Kind() {
	case InstanceKindUnit:
		return true, nil
	case InstanceKindChar, InstanceKindInt, InstanceKindFloat, InstanceKindString:
		c, err := r.Compare(a, b)
		return c == 0, err
	case InstanceKindList:
		return r.equalChains(r.AsList, a, b)
	case InstanceKindTuple:
		return r.equalChains(r.AsTuple, a, b)
	case InstanceKindRecord:
		ka, va, err := r.AsRecord(a)
		if err != nil {
			return false, err
		}
		kb, _, err := r.AsRecord(b)
		if err != nil {
			return false, err
		}
		if len(ka) != len(kb) {
			return false, nil
		}
		for i, key := range ka {
			value, ok, err := r.findField(b, key)
			if err != nil || !ok {
				return false, err
			}
			if eq, err := r.Equal(va[i], value); err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case InstanceKindOption:
		oa, err := r.options.at(a)
		if err != nil {
			return false, err
		}
		ob, err := r.options.at(b)
		if err != nil {
			return false, err
		}
		if oa.name != ob.name {
			return false, nil
		}
		return r.Equal(oa.values, ob.values)
	case InstanceKindClosure:
		ca, err := r.asClosure(a)
		if err != nil {
			return false, err
		}
		cb, err := r.asClosure(b)
		if err != nil {
			return false, err
		}
		if ca.fn != cb.fn {
			return false, nil
		}
		return r.Equal(ca.curried, cb.curried)
	case InstanceKindFunction:
		fa, err := r.asFunction(a)
		if err != nil {
			return false, err
		}
		fb, err := r.asFunction(b)
		if err != nil {
			return false, err
		}
		return fa == fb, nil
	case InstanceKindNative:
		c, err := r.Compare(a, b)
		if err != nil {
			return false, nil
		}
		return c == 0, nil
	default:
		return false, nil
	}
}

func (r *Runtime) equalChains(flatten func(Object) ([]Object, error), a, b Object) (bool, error) {
	xs, err := flatten(a)
	if err != nil {
		return false, err
	}
	ys, err := flatten(b)
	if err != nil {
		return false, err
	}
	if len(xs) != len(ys) {
		return false, nil
	}
	for i := range xs {
		if eq, err := r.Equal(xs[i], ys[i]); err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// Compare orders chars, ints, floats, strings and natives having a comparator
func (r *Runtime) Compare(a, b Object) (int, error) {
	if a.Kind() != b.Kind() {
		return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrTypeMismatch, a.Kind(), b.Kind())
	}
	switch a.Kind() {
	case InstanceKindChar:
		return compareValues(r.AsChar, a, b)
	case InstanceKindInt:
		return compareValues(r.AsInt, a, b)
	case InstanceKindFloat:
		return compareValues(r.AsFloat, a, b)
	case InstanceKindString:
		return compareValues(r.AsString, a, b)
	case InstanceKindNative:
		na, err := r.natives.at(a)
		if err != nil {
			return 0, err
		}
		nb, err := r.natives.at(b)
		if err != nil {
			return 0, err
		}
		if na.cmp == nil {
			if a == b {
				return 0, nil
			}
			return 0, fmt.Errorf("%w: native has no comparator", ErrTypeMismatch)
		}
		return na.cmp(na.ptr, nb.ptr), nil
	default:
		return 0, fmt.Errorf("%w: %s is not comparable", ErrTypeMismatch, a.Kind())
	}
}

func compareValues[T cmp.Ordered](get func(Object) (T, error), a, b Object) (int, error) {
	x, err := get(a)
	if err != nil {
		return 0, err
	}
	y, err := get(b)
	if err != nil {
		return 0, err
	}
	return cmp.Compare(x, y), nil
}

// Format renders object for debugging and host output
func (r *Runtime) Format(o Object) (string, error) {
	sb := &strings.Builder{}
	if err := r.format(sb, o); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *Runtime) format(sb *strings.Builder, o Object) error {
	writeAll := func(open, sep, close string, items []Object) error {
		sb.WriteString(open)
		for i, item := range items {
			if i > 0 {
				sb.WriteString(sep)
			}
			if err := r.format(sb, item); err != nil {
				return err
			}
		}
		sb.WriteString(close)
		return nil
	}
	switch o.Kind() {
	case InstanceKindUnit:
		sb.WriteString("()")
	case InstanceKindChar:
		c, err := r.AsChar(o)
		if err != nil {
			return err
		}
		sb.WriteString(strconv.QuoteRune(c))
	case InstanceKindInt:
		i, err := r.AsInt(o)
		if err != nil {
			return err
		}
		sb.WriteString(strconv.FormatInt(i, 10))
	case InstanceKindFloat:
		f, err := r.AsFloat(o)
		if err != nil {
			return err
		}
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case InstanceKindString:
		s, err := r.AsString(o)
		if err != nil {
			return err
		}
		sb.WriteString(strconv.Quote(s))
	case InstanceKindList:
		items, err := r.AsList(o)
		if err != nil {
			return err
		}
		return writeAll("[", ", ", "]", items)
	case InstanceKindTuple:
		items, err := r.AsTuple(o)
		if err != nil {
			return err
		}
		return writeAll("( ", ", ", " )", items)
	case InstanceKindRecord:
		keys, values, err := r.AsRecord(o)
		if err != nil {
			return err
		}
		sb.WriteString("{")
		for i, key := range keys {
			if i > 0 {
				sb.WriteString(",")
			}
			name, err := r.AsString(key)
			if err != nil {
				return err
			}
			sb.WriteString(" " + name + " = ")
			if err := r.format(sb, values[i]); err != nil {
				return err
			}
		}
		if len(keys) > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("}")
	case InstanceKindOption:
		name, values, err := r.AsOption(o)
		if err != nil {
			return err
		}
		if i := strings.LastIndexByte(name, '#'); i >= 0 {
			name = name[i+1:]
		}
		sb.WriteString(name)
		if len(values) > 0 {
			return writeAll("(", ", ", ")", values)
		}
	case InstanceKindClosure:
		c, err := r.asClosure(o)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("#%d", c.fn)
		if int(c.fn) < len(r.program.Funcs) {
			name = r.program.FuncName(r.program.Funcs[c.fn])
		}
		sb.WriteString("<closure " + name + ">")
	case InstanceKindFunction:
		fn, err := r.asFunction(o)
		if err != nil {
			return err
		}
		sb.WriteString("<native " + string(fn.name) + ">")
	case InstanceKindNative:
		ptr, err := r.AsNative(o)
		if err != nil {
			return err
		}
		sb.WriteString(fmt.Sprintf("<%T>", ptr))
	case InstanceKindPattern:
		sb.WriteString("<pattern>")
	default:
		return fmt.Errorf("%w: %s", ErrInvalidObject, o)
	}
	return nil
}
