package runtime

import (
	"fmt"
)

const maxNativeArity = 8

type Fn0 = func() (Object, error)
type Fn1 = func(Object) (Object, error)
type Fn2 = func(Object, Object) (Object, error)
type Fn3 = func(Object, Object, Object) (Object, error)
type Fn4 = func(Object, Object, Object, Object) (Object, error)
type Fn5 = func(Object, Object, Object, Object, Object) (Object, error)
type Fn6 = func(Object, Object, Object, Object, Object, Object) (Object, error)
type Fn7 = func(Object, Object, Object, Object, Object, Object, Object) (Object, error)
type Fn8 = func(Object, Object, Object, Object, Object, Object, Object, Object) (Object, error)

// nativeFunc receives exactly arity arguments, first argument first
type nativeFunc func(args []Object) (Object, error)

func nativeArity(fn any) int {
	switch fn.(type) {
	case Fn0:
		return 0
	case Fn1:
		return 1
	case Fn2:
		return 2
	case Fn3:
		return 3
	case Fn4:
		return 4
	case Fn5:
		return 5
	case Fn6:
		return 6
	case Fn7:
		return 7
	case Fn8:
		return 8
	default:
		return -1
	}
}

func newNativeFunc(fn any, arity int) (nativeFunc, error) {
	if arity > maxNativeArity {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrArityTooLarge, arity, maxNativeArity)
	}
	if actual := nativeArity(fn); actual != arity {
		return nil, fmt.Errorf("%w: expected native function of arity %d, got %T", ErrDefinitionNotFunction, arity, fn)
	}
	switch f := fn.(type) {
	case Fn0:
		return func(args []Object) (Object, error) {
			return f()
		}, nil
	case Fn1:
		return func(args []Object) (Object, error) {
			return f(args[0])
		}, nil
	case Fn2:
		return func(args []Object) (Object, error) {
			return f(args[0], args[1])
		}, nil
	case Fn3:
		return func(args []Object) (Object, error) {
			return f(args[0], args[1], args[2])
		}, nil
	case Fn4:
		return func(args []Object) (Object, error) {
			return f(args[0], args[1], args[2], args[3])
		}, nil
	case Fn5:
		return func(args []Object) (Object, error) {
			return f(args[0], args[1], args[2], args[3], args[4])
		}, nil
	case Fn6:
		return func(args []Object) (Object, error) {
			return f(args[0], args[1], args[2], args[3], args[4], args[5])
		}, nil
	case Fn7:
		return func(args []Object) (Object, error) {
			return f(args[0], args[1], args[2], args[3], args[4], args[5], args[6])
		}, nil
	case Fn8:
		return func(args []Object) (Object, error) {
			return f(args[0], args[1], args[2], args[3], args[4], args[5], args[6], args[7])
		}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrDefinitionNotFunction, fn)
	}
}

func (fn *function) invoke(args []Object) (Object, error) {
	if len(args) != fn.arity {
		return InvalidObject, fmt.Errorf("%w: `%s` requires %d arguments, %d given", ErrTypeMismatch, fn.name, fn.arity, len(args))
	}
	result, err := fn.call(args)
	if err != nil {
		return InvalidObject, fmt.Errorf("native `%s` failed: %w", fn.name, err)
	}
	if !result.IsValid() {
		return InvalidObject, fmt.Errorf("%w: `%s`", ErrInvalidNativeResult, fn.name)
	}
	return result, nil
}
