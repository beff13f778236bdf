package runtime

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"nar-runtime/pkg/bytecode"
)

const defaultArenaCapacity = 256

// ProgramExecutorKey is the metadata key of a ProgramExecutor installed by native packages
const ProgramExecutorKey = "Nar.Program:execute"

// ProgramExecutor takes over the result of the entry point, e.g. to run an event loop
type ProgramExecutor func(rt *Runtime, program Object) error

type ModuleName string

type DefName string

type RuntimeOption func(*Runtime)

func WithLogger(log commonlog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.log = log
	}
}

// WithAbortOnError makes every failure panic, a debugging aid
func WithAbortOnError(abort bool) RuntimeOption {
	return func(r *Runtime) {
		r.abortOnError = abort
	}
}

func WithArenaCapacity(capacity int) RuntimeOption {
	return func(r *Runtime) {
		r.arenaCapacity = capacity
	}
}

func WithStdout(stdout func(string)) RuntimeOption {
	return func(r *Runtime) {
		r.stdout = stdout
	}
}

// Runtime executes one program. It is not safe for concurrent use,
// run separate instances to execute programs in parallel.
type Runtime struct {
	*Arena
	id            uuid.UUID
	program       *bytecode.Binary
	defs          map[bytecode.FullIdentifier]*function
	metadata      map[string]any
	enumValues    map[string]int64
	enumOptions   map[enumKey]string
	log           commonlog.Logger
	stdout        func(string)
	lastError     string
	abortOnError  bool
	arenaCapacity int
}

func NewRuntime(program *bytecode.Binary, options ...RuntimeOption) *Runtime {
	r := &Runtime{
		id:            uuid.New(),
		program:       program,
		defs:          map[bytecode.FullIdentifier]*function{},
		metadata:      map[string]any{},
		enumValues:    map[string]int64{},
		enumOptions:   map[enumKey]string{},
		arenaCapacity: defaultArenaCapacity,
	}
	for _, option := range options {
		option(r)
	}
	if r.log == nil {
		r.log = commonlog.GetLogger("nar.runtime")
	}
	r.log = commonlog.NewKeyValueLogger(r.log, "runtime", r.id.String())
	if r.stdout == nil {
		r.stdout = writerStdout(os.Stdout)
	}
	r.Arena = newArena(r.arenaCapacity)
	r.log.Infof("runtime created for `%s` (%d functions, %d exports)",
		program.Entry, len(program.Funcs), len(program.Exports))
	return r
}

func writerStdout(w io.Writer) func(string) {
	return func(message string) {
		_, _ = io.WriteString(w, message)
	}
}

func (r *Runtime) ID() uuid.UUID {
	return r.id
}

func (r *Runtime) Program() *bytecode.Binary {
	return r.program
}

func (r *Runtime) Logger() commonlog.Logger {
	return r.log
}

// ReplaceProgram swaps the executed program and resets the frame,
// registered definitions and metadata are kept
func (r *Runtime) ReplaceProgram(program *bytecode.Binary) error {
	if err := r.Reset(); err != nil {
		return err
	}
	r.program = program
	r.log.Infof("program replaced with `%s`", program.Entry)
	return nil
}

// Reset invalidates every object of the current frame
func (r *Runtime) Reset() error {
	if len(r.callStack) > 0 {
		return fmt.Errorf("%w: cannot reset frame while executing", ErrReentrantApply)
	}
	stats := r.frame.stats
	r.reset()
	r.log.Debugf("frame %d reset (%d allocations, %d bytes)", stats.Frame, stats.Allocations, stats.Bytes)
	return nil
}

// RegisterDef makes native function fn callable as `module.def`.
// fn must be one of Fn0..Fn8 matching arity.
func (r *Runtime) RegisterDef(module ModuleName, def DefName, fn any, arity int) error {
	name := bytecode.FullIdentifier(string(module) + "." + string(def))
	call, err := newNativeFunc(fn, arity)
	if err != nil {
		return fmt.Errorf("failed to register `%s`: %w", name, err)
	}
	r.defs[name] = &function{name: name, call: call, arity: arity}
	r.log.Debugf("registered native `%s/%d`", name, arity)
	return nil
}

// Definition returns registered native function as an object
func (r *Runtime) Definition(name bytecode.FullIdentifier) (Object, error) {
	def, ok := r.defs[name]
	if !ok {
		return InvalidObject, fmt.Errorf("%w: `%s`", ErrDefinitionNotFound, name)
	}
	return r.newFunction(def), nil
}

// Apply executes exported definition, it cannot be called while another apply is running
func (r *Runtime) Apply(name bytecode.FullIdentifier, args ...Object) (Object, error) {
	if len(r.callStack) > 0 {
		err := fmt.Errorf("%w: cannot apply `%s`", ErrReentrantApply, name)
		r.Fail(err)
		return InvalidObject, err
	}
	fn, err := r.Closure(name)
	if err != nil {
		r.Fail(err)
		return InvalidObject, err
	}
	r.log.Infof("applying `%s` with %d arguments", name, len(args))
	result, err := r.applyObject(fn, args)
	if err != nil {
		r.Fail(err)
		return InvalidObject, err
	}
	return result, nil
}

// ApplyFunc applies closure or native function object to args.
// Natives may call it while the program is executing.
func (r *Runtime) ApplyFunc(fn Object, args ...Object) (Object, error) {
	result, err := r.applyObject(fn, args)
	if err != nil {
		if len(r.callStack) == 0 {
			r.Fail(err)
		}
		return InvalidObject, err
	}
	return result, nil
}

// Closure returns exported definition as a closure without curried arguments
func (r *Runtime) Closure(name bytecode.FullIdentifier) (Object, error) {
	ptr, ok := r.program.Exports[name]
	if !ok {
		return InvalidObject, fmt.Errorf("%w: `%s`", ErrNotExported, name)
	}
	if int(ptr) >= len(r.program.Funcs) {
		return InvalidObject, corrupted("export `%s` points to missing function", name)
	}
	return r.newClosure(ptr, r.NewList()), nil
}

func (r *Runtime) SetMetadata(key string, value any) {
	r.metadata[key] = value
}

func (r *Runtime) Metadata(key string) (any, bool) {
	value, ok := r.metadata[key]
	return value, ok
}

// SetStdout replaces the destination of Print, nil restores os.Stdout
func (r *Runtime) SetStdout(stdout func(string)) {
	if stdout == nil {
		stdout = writerStdout(os.Stdout)
	}
	r.stdout = stdout
}

func (r *Runtime) Print(message string) {
	r.stdout(message)
}

// Fail records err as the last error. With abort on error enabled it panics instead.
func (r *Runtime) Fail(err error) {
	if err == nil {
		return
	}
	r.lastError = err.Error()
	var ee *ExecutionError
	if errors.As(err, &ee) {
		r.log.Error(r.lastError, "stack", ee.Stack)
	} else {
		r.log.Error(r.lastError)
	}
	if r.abortOnError {
		panic(err)
	}
}

func (r *Runtime) LastError() string {
	return r.lastError
}

func (r *Runtime) ClearError() {
	r.lastError = ""
}

func (r *Runtime) formatCallStack() string {
	sb := strings.Builder{}
	for i := len(r.callStack) - 1; i >= 0; i-- {
		if sb.Len() > 0 {
			sb.WriteString(" <- ")
		}
		ptr := r.callStack[i]
		if int(ptr) < len(r.program.Funcs) {
			sb.WriteString(r.program.FuncName(r.program.Funcs[ptr]))
		} else {
			sb.WriteString(fmt.Sprintf("#%d", ptr))
		}
	}
	return sb.String()
}

func (r *Runtime) applyObject(fn Object, args []Object) (Object, error) {
	switch fn.Kind() {
	case InstanceKindClosure:
		c, err := r.asClosure(fn)
		if err != nil {
			return InvalidObject, err
		}
		if int(c.fn) >= len(r.program.Funcs) {
			return InvalidObject, corrupted("closure points to missing function #%d", c.fn)
		}
		curried, err := r.AsList(c.curried)
		if err != nil {
			return InvalidObject, err
		}
		all := make([]Object, 0, len(curried)+len(args))
		all = append(all, curried...)
		all = append(all, args...)
		arity := int(r.program.Funcs[c.fn].NumArgs)
		switch {
		case len(all) == arity:
			return r.execute(c.fn, all)
		case len(all) < arity:
			return r.newClosure(c.fn, r.NewList(all...)), nil
		default:
			result, err := r.execute(c.fn, all[:arity])
			if err != nil {
				return InvalidObject, err
			}
			return r.applyObject(result, all[arity:])
		}
	case InstanceKindFunction:
		def, err := r.asFunction(fn)
		if err != nil {
			return InvalidObject, err
		}
		return def.invoke(args)
	default:
		return InvalidObject, typeMismatch(InstanceKindClosure, fn)
	}
}
