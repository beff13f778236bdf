package stdlib

import (
	"fmt"

	"golang.org/x/exp/slices"
	"nar-runtime/pkg/runtime"
)

const maxRangeLength = 1 << 24

func listDefs(rt *runtime.Runtime) []def {
	length := func(a runtime.Object) (runtime.Object, error) {
		items, err := rt.AsList(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewInt(int64(len(items))), nil
	}
	reverse := func(a runtime.Object) (runtime.Object, error) {
		items, err := rt.AsList(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		reversed := slices.Clone(items)
		slices.Reverse(reversed)
		return rt.NewList(reversed...), nil
	}
	mapList := func(f, a runtime.Object) (runtime.Object, error) {
		items, err := rt.AsList(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		mapped := make([]runtime.Object, len(items))
		for i, item := range items {
			if mapped[i], err = rt.ApplyFunc(f, item); err != nil {
				return runtime.InvalidObject, err
			}
		}
		return rt.NewList(mapped...), nil
	}
	foldl := func(f, acc, a runtime.Object) (runtime.Object, error) {
		items, err := rt.AsList(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		for _, item := range items {
			if acc, err = rt.ApplyFunc(f, item, acc); err != nil {
				return runtime.InvalidObject, err
			}
		}
		return acc, nil
	}
	rangeList := func(lo, hi runtime.Object) (runtime.Object, error) {
		from, err := rt.AsInt(lo)
		if err != nil {
			return runtime.InvalidObject, err
		}
		to, err := rt.AsInt(hi)
		if err != nil {
			return runtime.InvalidObject, err
		}
		if from > to {
			return rt.NewList(), nil
		}
		count := uint64(to) - uint64(from) + 1
		if count == 0 || count > maxRangeLength {
			return runtime.InvalidObject, fmt.Errorf("range %d..%d is too large", from, to)
		}
		items := make([]runtime.Object, count)
		for i := range items {
			items[i] = rt.NewInt(from + int64(i))
		}
		return rt.NewList(items...), nil
	}
	return []def{
		{"length", length, 1},
		{"reverse", reverse, 1},
		{"map", mapList, 2},
		{"foldl", foldl, 3},
		{"range", rangeList, 2},
	}
}

func debugDefs(rt *runtime.Runtime) []def {
	log := func(message, value runtime.Object) (runtime.Object, error) {
		m, err := rt.AsString(message)
		if err != nil {
			return runtime.InvalidObject, err
		}
		s, err := rt.Format(value)
		if err != nil {
			return runtime.InvalidObject, err
		}
		rt.Print(m + ": " + s + "\n")
		return value, nil
	}
	todo := func(message runtime.Object) (runtime.Object, error) {
		m, err := rt.AsString(message)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return runtime.InvalidObject, fmt.Errorf("TODO: %s", m)
	}
	return []def{
		{"log", log, 2},
		{"todo", todo, 1},
	}
}
