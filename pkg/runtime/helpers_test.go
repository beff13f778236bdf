package runtime

import (
	"testing"

	"github.com/tliron/commonlog"
	"nar-runtime/pkg/bytecode"
)

// programBuilder assembles programs in memory
type programBuilder struct {
	bin *bytecode.Binary
}

func newProgram() *programBuilder {
	bin := bytecode.NewBinary()
	bin.Strings = []string{""}
	return &programBuilder{bin: bin}
}

func (p *programBuilder) str(s string) bytecode.StringHash {
	for i, x := range p.bin.Strings {
		if x == s {
			return bytecode.StringHash(i)
		}
	}
	p.bin.Strings = append(p.bin.Strings, s)
	return bytecode.StringHash(len(p.bin.Strings) - 1)
}

func (p *programBuilder) intConst(v int64) bytecode.ConstHash {
	p.bin.Consts = append(p.bin.Consts, bytecode.IntConst(v))
	return bytecode.ConstHash(len(p.bin.Consts) - 1)
}

func (p *programBuilder) floatConst(v float64) bytecode.ConstHash {
	p.bin.Consts = append(p.bin.Consts, bytecode.FloatConst(v))
	return bytecode.ConstHash(len(p.bin.Consts) - 1)
}

// next returns the pointer the next added function will get
func (p *programBuilder) next() bytecode.Pointer {
	return bytecode.Pointer(len(p.bin.Funcs))
}

func (p *programBuilder) fn(name string, numArgs uint32, ops ...bytecode.Op) bytecode.Pointer {
	ptr := p.next()
	p.bin.Funcs = append(p.bin.Funcs, bytecode.Func{Name: p.str(name), NumArgs: numArgs, Ops: ops})
	p.bin.Exports[bytecode.FullIdentifier(name)] = ptr
	return ptr
}

func (p *programBuilder) loadInt(v int64) bytecode.Op {
	return bytecode.LoadConst(bytecode.StackKindObject, bytecode.ConstKindInt, p.intConst(v))
}

func (p *programBuilder) loadString(s string) bytecode.Op {
	return bytecode.LoadConst(bytecode.StackKindObject, bytecode.ConstKindString, bytecode.ConstHash(p.str(s)))
}

// bindArgs binds arguments seeded on the operand stack to locals, last argument is on top
func (p *programBuilder) bindArgs(names ...string) []bytecode.Op {
	var ops []bytecode.Op
	for i := len(names) - 1; i >= 0; i-- {
		ops = append(ops,
			bytecode.MakePattern(bytecode.PatternKindNamed, uint32(p.str(names[i])), 0),
			bytecode.Match(0),
			bytecode.SwapPop(bytecode.SwapPopModePop))
	}
	return ops
}

func concat(parts ...[]bytecode.Op) []bytecode.Op {
	var ops []bytecode.Op
	for _, part := range parts {
		ops = append(ops, part...)
	}
	return ops
}

func newTestRuntime(t *testing.T, bin *bytecode.Binary, options ...RuntimeOption) *Runtime {
	t.Helper()
	options = append([]RuntimeOption{WithLogger(commonlog.MOCK_LOGGER)}, options...)
	return NewRuntime(bin, options...)
}

func mustInt(t *testing.T, r *Runtime, o Object) int64 {
	t.Helper()
	v, err := r.AsInt(o)
	if err != nil {
		t.Fatalf("expected int: %v", err)
	}
	return v
}

func mustFormat(t *testing.T, r *Runtime, o Object) string {
	t.Helper()
	s, err := r.Format(o)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	return s
}

func assertBalanced(t *testing.T, r *Runtime) {
	t.Helper()
	if len(r.locals) != 0 || len(r.callStack) != 0 {
		t.Fatalf("stacks are not balanced: %d locals, %d calls", len(r.locals), len(r.callStack))
	}
}
