package runtime

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
	"nar-runtime/pkg/bytecode"
)

// execute runs function ptr with a fresh operand stack seeded with args.
// Locals and call stack are shared with the caller, every invocation
// pops exactly what it has pushed, on failure too.
func (r *Runtime) execute(ptr bytecode.Pointer, args []Object) (result Object, err error) {
	if int(ptr) >= len(r.program.Funcs) {
		return InvalidObject, corrupted("invalid function pointer %d", ptr)
	}
	fn := &r.program.Funcs[ptr]
	r.callStack = append(r.callStack, ptr)

	stack := make([]Object, len(args), len(args)+16)
	copy(stack, args)
	var patterns []Object
	numLocals := 0
	index := 0

	defer func() {
		if err != nil {
			var ee *ExecutionError
			if !errors.As(err, &ee) {
				err = r.executionError(fn, index, err)
			}
		}
		if len(r.locals) < numLocals {
			if err == nil {
				err = r.executionError(fn, index, corrupted("locals stack underflow"))
			}
			numLocals = len(r.locals)
		}
		r.locals = r.locals[:len(r.locals)-numLocals]
		if len(r.callStack) > 0 {
			r.callStack = r.callStack[:len(r.callStack)-1]
		}
	}()

	ops := fn.Ops
	for ; index < len(ops); index++ {
		opKind, b, c, a := ops[index].Decompose()
		switch opKind {
		case bytecode.OpKindLoadLocal:
			name, err := r.programString(a)
			if err != nil {
				return InvalidObject, err
			}
			value, ok := r.findLocal(name, numLocals)
			if !ok {
				return InvalidObject, fmt.Errorf("%w: `%s`", ErrUndefinedLocal, name)
			}
			stack = append(stack, value)
		case bytecode.OpKindLoadGlobal:
			if int(a) >= len(r.program.Funcs) {
				return InvalidObject, corrupted("invalid global pointer %d", a)
			}
			if r.program.Funcs[a].NumArgs == 0 {
				value, err := r.execute(bytecode.Pointer(a), nil)
				if err != nil {
					return InvalidObject, err
				}
				stack = append(stack, value)
			} else {
				stack = append(stack, r.newClosure(bytecode.Pointer(a), r.NewList()))
			}
		case bytecode.OpKindLoadConst:
			value, err := r.loadConst(bytecode.ConstKind(c), a)
			if err != nil {
				return InvalidObject, err
			}
			switch bytecode.StackKind(b) {
			case bytecode.StackKindObject:
				stack = append(stack, value)
			case bytecode.StackKindPattern:
				patterns = append(patterns, value)
			default:
				return InvalidObject, corrupted("invalid stack kind %d", b)
			}
		case bytecode.OpKindApply:
			fnObj, err := pop(&stack)
			if err != nil {
				return InvalidObject, err
			}
			args, err := popX(&stack, int(b))
			if err != nil {
				return InvalidObject, err
			}
			value, err := r.applyObject(fnObj, args)
			if err != nil {
				return InvalidObject, err
			}
			stack = append(stack, value)
		case bytecode.OpKindCall:
			name, err := r.programString(a)
			if err != nil {
				return InvalidObject, err
			}
			def, ok := r.defs[bytecode.FullIdentifier(name)]
			if !ok {
				return InvalidObject, fmt.Errorf("%w: `%s`", ErrDefinitionNotFound, name)
			}
			args, err := popX(&stack, def.arity)
			if err != nil {
				return InvalidObject, err
			}
			value, err := def.invoke(slices.Clone(args))
			if err != nil {
				return InvalidObject, err
			}
			stack = append(stack, value)
		case bytecode.OpKindJump:
			switch bytecode.JumpMode(b) {
			case bytecode.JumpModeUnconditional:
				index += int(a)
			case bytecode.JumpModeMatch:
				pat, err := pop(&patterns)
				if err != nil {
					return InvalidObject, err
				}
				if len(stack) == 0 {
					return InvalidObject, corrupted("stack is empty when trying to match")
				}
				matched, err := r.match(pat, stack[len(stack)-1], &numLocals)
				if err != nil {
					return InvalidObject, err
				}
				if !matched {
					if a == 0 {
						return InvalidObject, corrupted("pattern match with jump delta 0 failed")
					}
					index += int(a)
				}
			default:
				return InvalidObject, corrupted("invalid jump mode %d", b)
			}
		case bytecode.OpKindMakeObject:
			value, err := r.makeObject(&stack, bytecode.ObjectKind(b), int(a))
			if err != nil {
				return InvalidObject, err
			}
			stack = append(stack, value)
		case bytecode.OpKindMakePattern:
			value, err := r.makePattern(&patterns, bytecode.PatternKind(b), a, int(c))
			if err != nil {
				return InvalidObject, err
			}
			patterns = append(patterns, value)
		case bytecode.OpKindAccess:
			key, err := r.programString(a)
			if err != nil {
				return InvalidObject, err
			}
			record, err := pop(&stack)
			if err != nil {
				return InvalidObject, err
			}
			if record.Kind() != InstanceKindRecord {
				return InvalidObject, typeMismatch(InstanceKindRecord, record)
			}
			value, ok, err := r.findField(record, r.NewString(key))
			if err != nil {
				return InvalidObject, err
			}
			if !ok {
				return InvalidObject, fmt.Errorf("%w: `%s`", ErrFieldNotFound, key)
			}
			stack = append(stack, value)
		case bytecode.OpKindUpdate:
			key, err := r.programString(a)
			if err != nil {
				return InvalidObject, err
			}
			value, err := pop(&stack)
			if err != nil {
				return InvalidObject, err
			}
			record, err := pop(&stack)
			if err != nil {
				return InvalidObject, err
			}
			updated, err := r.updateField(record, r.NewString(key), value)
			if err != nil {
				return InvalidObject, err
			}
			stack = append(stack, updated)
		case bytecode.OpKindSwapPop:
			switch bytecode.SwapPopMode(b) {
			case bytecode.SwapPopModeBoth:
				if len(stack) < 2 {
					return InvalidObject, corrupted("stack underflow when trying to swap and pop")
				}
				stack[len(stack)-2] = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			case bytecode.SwapPopModePop:
				if _, err := pop(&stack); err != nil {
					return InvalidObject, err
				}
			default:
				return InvalidObject, corrupted("invalid swap pop mode %d", b)
			}
		default:
			return InvalidObject, corrupted("invalid op kind %d", opKind)
		}
	}

	result, err = pop(&stack)
	if err != nil {
		return InvalidObject, corrupted("stack is empty after executing function")
	}
	return result, nil
}

func (r *Runtime) loadConst(kind bytecode.ConstKind, a uint32) (Object, error) {
	switch kind {
	case bytecode.ConstKindUnit:
		return r.NewUnit(), nil
	case bytecode.ConstKindChar:
		return r.NewChar(rune(a)), nil
	case bytecode.ConstKindInt:
		c, err := r.programConst(a, bytecode.ConstHashKindInt)
		if err != nil {
			return InvalidObject, err
		}
		return r.NewInt(c.Int()), nil
	case bytecode.ConstKindFloat:
		c, err := r.programConst(a, bytecode.ConstHashKindFloat)
		if err != nil {
			return InvalidObject, err
		}
		return r.NewFloat(c.Float()), nil
	case bytecode.ConstKindString:
		s, err := r.programString(a)
		if err != nil {
			return InvalidObject, err
		}
		return r.NewString(s), nil
	default:
		return InvalidObject, corrupted("invalid const kind %d", kind)
	}
}

func (r *Runtime) makeObject(stack *[]Object, kind bytecode.ObjectKind, n int) (Object, error) {
	switch kind {
	case bytecode.ObjectKindList:
		items, err := popX(stack, n)
		if err != nil {
			return InvalidObject, err
		}
		return r.NewList(items...), nil
	case bytecode.ObjectKindTuple:
		items, err := popX(stack, n)
		if err != nil {
			return InvalidObject, err
		}
		return r.NewTuple(items...), nil
	case bytecode.ObjectKindRecord:
		items, err := popX(stack, n*2)
		if err != nil {
			return InvalidObject, err
		}
		return r.newRecordFromStack(items)
	case bytecode.ObjectKindOption:
		name, err := pop(stack)
		if err != nil {
			return InvalidObject, err
		}
		values, err := popX(stack, n)
		if err != nil {
			return InvalidObject, err
		}
		return r.newOptionWithName(name, values)
	default:
		return InvalidObject, corrupted("invalid object kind %d", kind)
	}
}

func (r *Runtime) makePattern(patterns *[]Object, kind bytecode.PatternKind, a uint32, c int) (Object, error) {
	name := InvalidObject
	numItems := 0
	withName := func() error {
		s, err := r.programString(a)
		if err != nil {
			return err
		}
		name = r.NewString(s)
		return nil
	}
	var err error
	switch kind {
	case bytecode.PatternKindAlias:
		err = withName()
		numItems = 1
	case bytecode.PatternKindAny:
	case bytecode.PatternKindCons:
		numItems = 2
	case bytecode.PatternKindConst:
		numItems = 1
	case bytecode.PatternKindOption:
		err = withName()
		numItems = c
	case bytecode.PatternKindList:
		numItems = int(a)
	case bytecode.PatternKindNamed:
		err = withName()
	case bytecode.PatternKindRecord:
		numItems = int(a) * 2
	case bytecode.PatternKindTuple:
		numItems = c
	default:
		return InvalidObject, corrupted("invalid pattern kind %d", kind)
	}
	if err != nil {
		return InvalidObject, err
	}
	items, err := popX(patterns, numItems)
	if err != nil {
		return InvalidObject, err
	}
	return r.newPattern(kind, name, items), nil
}

func (r *Runtime) programString(index uint32) (string, error) {
	if int(index) >= len(r.program.Strings) {
		return "", corrupted("invalid string index %d", index)
	}
	return r.program.Strings[index], nil
}

func (r *Runtime) programConst(index uint32, kind bytecode.ConstHashKind) (bytecode.Const, error) {
	if int(index) >= len(r.program.Consts) {
		return bytecode.Const{}, corrupted("invalid const index %d", index)
	}
	c := r.program.Consts[index]
	if c.Kind != kind {
		return bytecode.Const{}, corrupted("const #%d has kind %d, expected %d", index, c.Kind, kind)
	}
	return c, nil
}

func (r *Runtime) findLocal(name string, numLocals int) (Object, bool) {
	for i := len(r.locals) - 1; i >= len(r.locals)-numLocals; i-- {
		if r.locals[i].name == name {
			return r.locals[i].value, true
		}
	}
	return InvalidObject, false
}

func (r *Runtime) executionError(fn *bytecode.Func, index int, err error) error {
	ee := &ExecutionError{
		Func:  r.program.FuncName(*fn),
		Op:    index,
		Stack: r.formatCallStack(),
		Err:   err,
	}
	if file, loc, ok := fn.Location(index); ok {
		ee.FilePath = file
		ee.Line = loc.Line
		ee.Column = loc.Column
	}
	return ee
}

func pop[T any](stack *[]T) (x T, err error) {
	if len(*stack) == 0 {
		err = corrupted("stack is empty")
		return
	}
	x = (*stack)[len(*stack)-1]
	*stack = (*stack)[:len(*stack)-1]
	return
}

func popX[T any](stack *[]T, n int) (xs []T, err error) {
	if n < 0 || len(*stack) < n {
		err = corrupted("stack underflow")
		return
	}
	xs = (*stack)[len(*stack)-n:]
	*stack = (*stack)[:len(*stack)-n]
	return
}
