package stdlib

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/tliron/commonlog"
	"nar-runtime/pkg/bytecode"
	"nar-runtime/pkg/locator"
	"nar-runtime/pkg/runtime"
)

func newTestRuntime(t *testing.T, options ...runtime.RuntimeOption) *runtime.Runtime {
	t.Helper()
	options = append([]runtime.RuntimeOption{runtime.WithLogger(commonlog.MOCK_LOGGER)}, options...)
	rt := runtime.NewRuntime(bytecode.NewBinary(), options...)
	if err := Init(rt); err != nil {
		t.Fatalf("init: %v", err)
	}
	return rt
}

func call(t *testing.T, rt *runtime.Runtime, name string, args ...runtime.Object) (string, error) {
	t.Helper()
	fn, err := rt.Definition(bytecode.FullIdentifier(name))
	if err != nil {
		t.Fatalf("definition %s: %v", name, err)
	}
	result, err := rt.ApplyFunc(fn, args...)
	if err != nil {
		return "", err
	}
	s, err := rt.Format(result)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	return s, nil
}

func TestRegistered(t *testing.T) {
	pkg, ok := locator.Registered(Name)
	if !ok || pkg.Info().Version != Version {
		t.Fatalf("package should be registered on import")
	}
}

func TestNatives(t *testing.T) {
	rt := newTestRuntime(t)
	i, f, s, c := rt.NewInt, rt.NewFloat, rt.NewString, rt.NewChar
	tests := []struct {
		name string
		args []runtime.Object
		want string
	}{
		{"Nar.Base.Basics.add", []runtime.Object{i(2), i(3)}, "5"},
		{"Nar.Base.Basics.add", []runtime.Object{f(0.5), f(0.25)}, "0.75"},
		{"Nar.Base.Basics.sub", []runtime.Object{i(2), i(3)}, "-1"},
		{"Nar.Base.Basics.mul", []runtime.Object{i(6), i(7)}, "42"},
		{"Nar.Base.Basics.div", []runtime.Object{i(7), i(2)}, "3"},
		{"Nar.Base.Basics.div", []runtime.Object{f(1), f(4)}, "0.25"},
		{"Nar.Base.Basics.neg", []runtime.Object{i(4)}, "-4"},
		{"Nar.Base.Basics.eq", []runtime.Object{s("a"), s("a")}, "True"},
		{"Nar.Base.Basics.eq", []runtime.Object{i(1), i(2)}, "False"},
		{"Nar.Base.Basics.cmp", []runtime.Object{s("a"), s("b")}, "-1"},
		{"Nar.Base.Basics.toFloat", []runtime.Object{i(3)}, "3"},
		{"Nar.Base.Basics.truncate", []runtime.Object{f(-3.7)}, "-3"},
		{"Nar.Base.Basics.not", []runtime.Object{rt.NewBool(false)}, "True"},
		{"Nar.Base.String.append", []runtime.Object{s("foo"), s("bar")}, `"foobar"`},
		{"Nar.Base.String.length", []runtime.Object{s("héllo")}, "5"},
		{"Nar.Base.String.toUpper", []runtime.Object{s("héllo")}, `"HÉLLO"`},
		{"Nar.Base.String.toLower", []runtime.Object{s("ABC")}, `"abc"`},
		{"Nar.Base.String.toTitle", []runtime.Object{s("hello world")}, `"Hello World"`},
		{"Nar.Base.String.trim", []runtime.Object{s("  x ")}, `"x"`},
		{"Nar.Base.String.fromInt", []runtime.Object{i(-12)}, `"-12"`},
		{"Nar.Base.String.toInt", []runtime.Object{s("12")}, "Just(12)"},
		{"Nar.Base.String.toInt", []runtime.Object{s("x")}, "Nothing"},
		{"Nar.Base.String.toList", []runtime.Object{s("ab")}, "['a', 'b']"},
		{"Nar.Base.String.fromList", []runtime.Object{rt.NewList(c('o'), c('k'))}, `"ok"`},
		{"Nar.Base.Char.toCode", []runtime.Object{c('A')}, "65"},
		{"Nar.Base.Char.fromCode", []runtime.Object{i(97)}, "'a'"},
		{"Nar.Base.Char.toUpper", []runtime.Object{c('q')}, "'Q'"},
		{"Nar.Base.Char.isDigit", []runtime.Object{c('7')}, "True"},
		{"Nar.Base.List.length", []runtime.Object{rt.NewList(i(1), i(2))}, "2"},
		{"Nar.Base.List.reverse", []runtime.Object{rt.NewList(i(1), i(2), i(3))}, "[3, 2, 1]"},
		{"Nar.Base.List.range", []runtime.Object{i(1), i(4)}, "[1, 2, 3, 4]"},
		{"Nar.Base.List.range", []runtime.Object{i(4), i(1)}, "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, rt, tt.name, tt.args...)
			if err != nil {
				t.Fatalf("call: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNativeErrors(t *testing.T) {
	rt := newTestRuntime(t)
	if _, err := call(t, rt, "Nar.Base.Basics.div", rt.NewInt(1), rt.NewInt(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if _, err := call(t, rt, "Nar.Base.Basics.add", rt.NewInt(1), rt.NewFloat(1)); !errors.Is(err, runtime.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	if _, err := call(t, rt, "Nar.Base.Debug.todo", rt.NewString("later")); err == nil || !strings.Contains(err.Error(), "later") {
		t.Fatalf("todo should fail with its message, got %v", err)
	}
}

func TestRangeBounds(t *testing.T) {
	rt := newTestRuntime(t)
	tests := []struct {
		name    string
		lo, hi  int64
		want    string
		tooLong bool
	}{
		{"upper edge", math.MaxInt64 - 2, math.MaxInt64, "[9223372036854775805, 9223372036854775806, 9223372036854775807]", false},
		{"lower edge", math.MinInt64, math.MinInt64 + 1, "[-9223372036854775808, -9223372036854775807]", false},
		{"single", math.MaxInt64, math.MaxInt64, "[9223372036854775807]", false},
		{"reversed extremes", math.MaxInt64, math.MinInt64, "[]", false},
		{"whole domain", math.MinInt64, math.MaxInt64, "", true},
		{"too long", 0, maxRangeLength, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, rt, "Nar.Base.List.range", rt.NewInt(tt.lo), rt.NewInt(tt.hi))
			if tt.tooLong {
				if err == nil {
					t.Fatalf("expected range to be rejected, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("range: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestHigherOrder(t *testing.T) {
	rt := newTestRuntime(t)
	neg, err := rt.Definition("Nar.Base.Basics.neg")
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	add, err := rt.Definition("Nar.Base.Basics.add")
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	list := rt.NewList(rt.NewInt(1), rt.NewInt(2), rt.NewInt(3))
	if got, err := call(t, rt, "Nar.Base.List.map", neg, list); err != nil || got != "[-1, -2, -3]" {
		t.Fatalf("map: %s %v", got, err)
	}
	if got, err := call(t, rt, "Nar.Base.List.foldl", add, rt.NewInt(10), list); err != nil || got != "16" {
		t.Fatalf("foldl: %s %v", got, err)
	}
}

func TestDebugLog(t *testing.T) {
	var out strings.Builder
	rt := newTestRuntime(t, runtime.WithStdout(func(s string) { out.WriteString(s) }))
	got, err := call(t, rt, "Nar.Base.Debug.log", rt.NewString("value"), rt.NewTuple(rt.NewInt(1), rt.NewUnit()))
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if got != "( 1, () )" || out.String() != "value: ( 1, () )\n" {
		t.Fatalf("unexpected log %q returning %s", out.String(), got)
	}
}
