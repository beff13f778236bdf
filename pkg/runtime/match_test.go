package runtime

import (
	"errors"
	"testing"

	"nar-runtime/pkg/bytecode"
)

func TestMatch(t *testing.T) {
	r := newTestRuntime(t, newProgram().bin)
	named := func(name string) Object {
		return r.newPattern(bytecode.PatternKindNamed, r.NewString(name), nil)
	}
	wildcard := r.newPattern(bytecode.PatternKindAny, InvalidObject, nil)
	constant := func(o Object) Object {
		return r.newPattern(bytecode.PatternKindConst, InvalidObject, []Object{o})
	}
	just := func(items ...Object) Object {
		return r.newPattern(bytecode.PatternKindOption, r.NewString("M.Maybe#Just"), items)
	}
	record, _ := r.NewRecord([]string{"x", "y"}, []Object{r.NewInt(1), r.NewInt(2)})

	tests := []struct {
		name    string
		pattern Object
		value   Object
		want    bool
		locals  []string
	}{
		{"any", wildcard, r.NewInt(1), true, nil},
		{"named", named("x"), r.NewInt(1), true, []string{"x"}},
		{"alias", r.newPattern(bytecode.PatternKindAlias, r.NewString("all"), []Object{named("x")}), r.NewInt(1), true, []string{"all", "x"}},
		{"const int", constant(r.NewInt(3)), r.NewInt(3), true, nil},
		{"const int mismatch", constant(r.NewInt(3)), r.NewInt(4), false, nil},
		{"const kind mismatch", constant(r.NewInt(3)), r.NewFloat(3), false, nil},
		{"const string", constant(r.NewString("a")), r.NewString("a"), true, nil},
		{"const unit", constant(r.NewUnit()), r.NewUnit(), true, nil},
		{"tuple", r.newPattern(bytecode.PatternKindTuple, InvalidObject, []Object{named("a"), named("b")}),
			r.NewTuple(r.NewInt(1), r.NewInt(2)), true, []string{"a", "b"}},
		{"tuple size", r.newPattern(bytecode.PatternKindTuple, InvalidObject, []Object{named("a")}),
			r.NewTuple(r.NewInt(1), r.NewInt(2)), false, nil},
		{"tuple of list", r.newPattern(bytecode.PatternKindTuple, InvalidObject, nil), r.NewList(), false, nil},
		{"list", r.newPattern(bytecode.PatternKindList, InvalidObject, []Object{named("a"), wildcard}),
			r.NewList(r.NewInt(1), r.NewInt(2)), true, []string{"a"}},
		{"list size", r.newPattern(bytecode.PatternKindList, InvalidObject, nil), r.NewList(r.NewInt(1)), false, nil},
		{"cons", r.newPattern(bytecode.PatternKindCons, InvalidObject, []Object{named("tail"), named("head")}),
			r.NewList(r.NewInt(1)), true, []string{"head", "tail"}},
		{"cons empty", r.newPattern(bytecode.PatternKindCons, InvalidObject, []Object{wildcard, wildcard}), r.NewList(), false, nil},
		{"option", just(named("v")), r.NewOption("M.Maybe#Just", r.NewInt(1)), true, []string{"v"}},
		{"option name", just(wildcard), r.NewOption("M.Maybe#Nothing"), false, nil},
		{"option arity", just(), r.NewOption("M.Maybe#Just", r.NewInt(1)), false, nil},
		{"record", r.newPattern(bytecode.PatternKindRecord, InvalidObject, []Object{r.NewString("y")}),
			record, true, []string{"y"}},
		{"record missing field", r.newPattern(bytecode.PatternKindRecord, InvalidObject, []Object{r.NewString("z")}),
			record, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			numLocals := 0
			got, err := r.match(tt.pattern, tt.value, &numLocals)
			defer func() { r.locals = r.locals[:0] }()
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if !tt.want {
				return
			}
			if numLocals != len(tt.locals) {
				t.Fatalf("expected %d locals, got %d", len(tt.locals), numLocals)
			}
			for i, name := range tt.locals {
				if r.locals[i].name != name {
					t.Fatalf("local %d: expected %s, got %s", i, name, r.locals[i].name)
				}
			}
		})
	}
}

func TestMatchBindsValues(t *testing.T) {
	r := newTestRuntime(t, newProgram().bin)
	pat := r.newPattern(bytecode.PatternKindCons, InvalidObject, []Object{
		r.newPattern(bytecode.PatternKindNamed, r.NewString("rest"), nil),
		r.newPattern(bytecode.PatternKindNamed, r.NewString("first"), nil),
	})
	list := r.NewList(r.NewInt(1), r.NewInt(2), r.NewInt(3))
	numLocals := 0
	ok, err := r.match(pat, list, &numLocals)
	if err != nil || !ok {
		t.Fatalf("match: %v %v", ok, err)
	}
	first, ok := r.findLocal("first", numLocals)
	if !ok || mustInt(t, r, first) != 1 {
		t.Fatalf("head was not bound")
	}
	rest, ok := r.findLocal("rest", numLocals)
	if !ok || mustFormat(t, r, rest) != "[2, 3]" {
		t.Fatalf("tail was not bound")
	}
}

func TestMalformedPatterns(t *testing.T) {
	r := newTestRuntime(t, newProgram().bin)
	tests := []struct {
		name    string
		pattern Object
		want    error
	}{
		{"cons with one item", r.newPattern(bytecode.PatternKindCons, InvalidObject, []Object{
			r.newPattern(bytecode.PatternKindAny, InvalidObject, nil)}), ErrCorrupted},
		{"const of list", r.newPattern(bytecode.PatternKindConst, InvalidObject, []Object{r.NewList()}), ErrTypeMismatch},
		{"unknown kind", r.newPattern(bytecode.PatternKind(99), InvalidObject, nil), ErrCorrupted},
		{"not a pattern", r.NewInt(1), ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			numLocals := 0
			_, err := r.match(tt.pattern, r.NewList(r.NewInt(1)), &numLocals)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
