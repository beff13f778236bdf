package stdlib

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"nar-runtime/pkg/runtime"
)

func stringMapper(rt *runtime.Runtime, fn func(string) string) runtime.Fn1 {
	return func(a runtime.Object) (runtime.Object, error) {
		s, err := rt.AsString(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewString(fn(s)), nil
	}
}

func stringDefs(rt *runtime.Runtime) []def {
	appendStrings := func(a, b runtime.Object) (runtime.Object, error) {
		x, err := rt.AsString(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		y, err := rt.AsString(b)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewString(x + y), nil
	}
	length := func(a runtime.Object) (runtime.Object, error) {
		s, err := rt.AsString(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewInt(int64(utf8.RuneCountInString(s))), nil
	}
	fromInt := func(a runtime.Object) (runtime.Object, error) {
		i, err := rt.AsInt(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewString(strconv.FormatInt(i, 10)), nil
	}
	toInt := func(a runtime.Object) (runtime.Object, error) {
		s, err := rt.AsString(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return rt.NewOption("Nar.Base.Maybe.Maybe#Nothing"), nil
		}
		return rt.NewOption("Nar.Base.Maybe.Maybe#Just", rt.NewInt(i)), nil
	}
	toList := func(a runtime.Object) (runtime.Object, error) {
		s, err := rt.AsString(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		chars := make([]runtime.Object, 0, len(s))
		for _, c := range s {
			chars = append(chars, rt.NewChar(c))
		}
		return rt.NewList(chars...), nil
	}
	fromList := func(a runtime.Object) (runtime.Object, error) {
		items, err := rt.AsList(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		sb := strings.Builder{}
		for _, item := range items {
			c, err := rt.AsChar(item)
			if err != nil {
				return runtime.InvalidObject, err
			}
			sb.WriteRune(c)
		}
		return rt.NewString(sb.String()), nil
	}

	return []def{
		{"append", appendStrings, 2},
		{"length", length, 1},
		{"toUpper", stringMapper(rt, cases.Upper(language.Und).String), 1},
		{"toLower", stringMapper(rt, cases.Lower(language.Und).String), 1},
		{"toTitle", stringMapper(rt, cases.Title(language.Und).String), 1},
		{"trim", stringMapper(rt, strings.TrimSpace), 1},
		{"fromInt", fromInt, 1},
		{"toInt", toInt, 1},
		{"toList", toList, 1},
		{"fromList", fromList, 1},
	}
}

func charMapper(rt *runtime.Runtime, fn func(rune) rune) runtime.Fn1 {
	return func(a runtime.Object) (runtime.Object, error) {
		c, err := rt.AsChar(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewChar(fn(c)), nil
	}
}

func charPredicate(rt *runtime.Runtime, fn func(rune) bool) runtime.Fn1 {
	return func(a runtime.Object) (runtime.Object, error) {
		c, err := rt.AsChar(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewBool(fn(c)), nil
	}
}

func charDefs(rt *runtime.Runtime) []def {
	toCode := func(a runtime.Object) (runtime.Object, error) {
		c, err := rt.AsChar(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewInt(int64(c)), nil
	}
	fromCode := func(a runtime.Object) (runtime.Object, error) {
		i, err := rt.AsInt(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		if i < 0 || i > unicode.MaxRune {
			return rt.NewChar(utf8.RuneError), nil
		}
		return rt.NewChar(rune(i)), nil
	}
	return []def{
		{"toCode", toCode, 1},
		{"fromCode", fromCode, 1},
		{"toUpper", charMapper(rt, unicode.ToUpper), 1},
		{"toLower", charMapper(rt, unicode.ToLower), 1},
		{"isUpper", charPredicate(rt, unicode.IsUpper), 1},
		{"isLower", charPredicate(rt, unicode.IsLower), 1},
		{"isDigit", charPredicate(rt, unicode.IsDigit), 1},
	}
}
