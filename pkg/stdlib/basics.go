package stdlib

import (
	"errors"
	"fmt"
	"math"

	"nar-runtime/pkg/runtime"
)

var ErrDivisionByZero = errors.New("division by zero")

type number interface {
	int64 | float64
}

// arithmetic lifts op to Int and Float operands of the same kind
func arithmetic(rt *runtime.Runtime, intOp func(x, y int64) (int64, error), floatOp func(x, y float64) float64) runtime.Fn2 {
	return func(a, b runtime.Object) (runtime.Object, error) {
		switch {
		case a.Kind() == runtime.InstanceKindInt && b.Kind() == runtime.InstanceKindInt:
			x, y, err := operands(rt.AsInt, a, b)
			if err != nil {
				return runtime.InvalidObject, err
			}
			r, err := intOp(x, y)
			if err != nil {
				return runtime.InvalidObject, err
			}
			return rt.NewInt(r), nil
		case a.Kind() == runtime.InstanceKindFloat && b.Kind() == runtime.InstanceKindFloat:
			x, y, err := operands(rt.AsFloat, a, b)
			if err != nil {
				return runtime.InvalidObject, err
			}
			return rt.NewFloat(floatOp(x, y)), nil
		default:
			return runtime.InvalidObject, fmt.Errorf("%w: cannot do arithmetic on %s and %s",
				runtime.ErrTypeMismatch, a.Kind(), b.Kind())
		}
	}
}

func operands[T number](get func(runtime.Object) (T, error), a, b runtime.Object) (x T, y T, err error) {
	if x, err = get(a); err != nil {
		return
	}
	y, err = get(b)
	return
}

func basics(rt *runtime.Runtime) []def {
	add := arithmetic(rt,
		func(x, y int64) (int64, error) { return x + y, nil },
		func(x, y float64) float64 { return x + y })
	sub := arithmetic(rt,
		func(x, y int64) (int64, error) { return x - y, nil },
		func(x, y float64) float64 { return x - y })
	mul := arithmetic(rt,
		func(x, y int64) (int64, error) { return x * y, nil },
		func(x, y float64) float64 { return x * y })
	div := arithmetic(rt,
		func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, ErrDivisionByZero
			}
			return x / y, nil
		},
		func(x, y float64) float64 { return x / y })

	neg := func(a runtime.Object) (runtime.Object, error) {
		switch a.Kind() {
		case runtime.InstanceKindInt:
			x, err := rt.AsInt(a)
			if err != nil {
				return runtime.InvalidObject, err
			}
			return rt.NewInt(-x), nil
		default:
			x, err := rt.AsFloat(a)
			if err != nil {
				return runtime.InvalidObject, err
			}
			return rt.NewFloat(-x), nil
		}
	}
	eq := func(a, b runtime.Object) (runtime.Object, error) {
		equal, err := rt.Equal(a, b)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewBool(equal), nil
	}
	cmp := func(a, b runtime.Object) (runtime.Object, error) {
		c, err := rt.Compare(a, b)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewInt(int64(c)), nil
	}
	toFloat := func(a runtime.Object) (runtime.Object, error) {
		x, err := rt.AsInt(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewFloat(float64(x)), nil
	}
	truncate := func(a runtime.Object) (runtime.Object, error) {
		x, err := rt.AsFloat(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return runtime.InvalidObject, fmt.Errorf("cannot truncate %v", x)
		}
		return rt.NewInt(int64(x)), nil
	}
	not := func(a runtime.Object) (runtime.Object, error) {
		b, err := rt.AsBool(a)
		if err != nil {
			return runtime.InvalidObject, err
		}
		return rt.NewBool(!b), nil
	}

	return []def{
		{"add", add, 2},
		{"sub", sub, 2},
		{"mul", mul, 2},
		{"div", div, 2},
		{"neg", neg, 1},
		{"eq", eq, 2},
		{"cmp", cmp, 2},
		{"toFloat", toFloat, 1},
		{"truncate", truncate, 1},
		{"not", not, 1},
	}
}
