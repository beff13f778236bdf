package bytecode

import "fmt"

type OpKind uint8
type StringHash uint32
type ConstHash uint32
type Pointer uint32
type PatternKind uint8
type ConstKind uint8
type StackKind uint8
type SwapPopMode uint8
type ObjectKind uint8
type JumpMode uint8

const (
	opKindNone OpKind = iota
	// OpKindLoadLocal adds named local object to the top of the stack
	OpKindLoadLocal
	// OpKindLoadGlobal adds global object to the top of the stack
	OpKindLoadGlobal
	// OpKindLoadConst adds const value object to the top of the stack
	OpKindLoadConst
	// OpKindApply executes the function from the top of the stack.
	// Arguments are taken from the top of the stack in reverse order
	// (topmost object is the last arg). Returned value is left on the top of the stack.
	// In case of NumArgs is less than number of function parameters it creates
	// a closure and leaves it on the top of the stack
	OpKindApply
	// OpKindCall executes native function.
	// Arguments are taken from the top of the stack in reverse order
	// (topmost object is last arg). Returned value is left on the top of the stack.
	OpKindCall
	// OpKindJump moves on delta ops unconditional.
	// Conditional jump tries to match pattern with object on the top of the stack.
	// If it cannot be matched it moves on delta ops.
	// Matched object is left on the top of the stack in both cases
	OpKindJump
	// OpKindMakeObject creates an object on stack.
	OpKindMakeObject
	// OpKindMakePattern creates pattern object from the pattern stack
	OpKindMakePattern
	// OpKindAccess takes record object from the top of the stack and leaves its field on the stack
	OpKindAccess
	// OpKindUpdate creates new record with replaced field from the top of the stack
	OpKindUpdate
	// OpKindSwapPop removes topmost (pop mode) or second (both mode) object from the stack
	OpKindSwapPop
)

const (
	patternKindNone PatternKind = iota
	PatternKindAlias
	PatternKindAny
	PatternKindCons
	PatternKindConst
	PatternKindOption
	PatternKindList
	PatternKindNamed
	PatternKindRecord
	PatternKindTuple
)

const (
	constKindNone ConstKind = iota
	ConstKindUnit
	ConstKindChar
	ConstKindInt
	ConstKindFloat
	ConstKindString
)

const (
	stackKindNone StackKind = iota
	StackKindObject
	StackKindPattern
)

const (
	objectKindNone ObjectKind = iota
	ObjectKindList
	ObjectKindTuple
	ObjectKindRecord
	ObjectKindOption
)

const (
	swapPopModeNone SwapPopMode = iota
	SwapPopModeBoth
	SwapPopModePop
)

const (
	JumpModeUnconditional JumpMode = iota
	JumpModeMatch
)

// Op is a packed instruction word:
// kind in bits [0:8), B in [8:16), C in [16:24), A in [32:64)
type Op uint64

func NewOp(kind OpKind, b uint8, c uint8, a uint32) Op {
	return Op(uint64(kind) |
		(uint64(b) << 8) |
		(uint64(c) << 16) |
		(uint64(a) << 32))
}

func (op Op) Decompose() (kind OpKind, b uint8, c uint8, a uint32) {
	a = uint32((op >> 32) & 0xffffffff)
	c = uint8((op >> 16) & 0xff)
	b = uint8((op >> 8) & 0xff)
	kind = OpKind(op & 0xff)
	return
}

func (op Op) Kind() OpKind {
	return OpKind(op & 0xff)
}

func LoadLocal(name StringHash) Op {
	return NewOp(OpKindLoadLocal, 0, 0, uint32(name))
}

func LoadGlobal(ptr Pointer) Op {
	return NewOp(OpKindLoadGlobal, 0, 0, uint32(ptr))
}

// LoadConst value is a const table index for Int and Float,
// a string table index for String and the code point itself for Char
func LoadConst(stack StackKind, kind ConstKind, value ConstHash) Op {
	return NewOp(OpKindLoadConst, uint8(stack), uint8(kind), uint32(value))
}

func Apply(numArgs uint8) Op {
	return NewOp(OpKindApply, numArgs, 0, 0)
}

func Call(name StringHash) Op {
	return NewOp(OpKindCall, 0, 0, uint32(name))
}

func Jump(delta uint32) Op {
	return NewOp(OpKindJump, uint8(JumpModeUnconditional), 0, delta)
}

// Match pops a pattern and matches it against the top of the stack,
// moving on delta ops if it fails
func Match(delta uint32) Op {
	return NewOp(OpKindJump, uint8(JumpModeMatch), 0, delta)
}

func MakeObject(kind ObjectKind, numArgs uint32) Op {
	return NewOp(OpKindMakeObject, uint8(kind), 0, numArgs)
}

// MakePattern a is either a string index (alias, named, option) or the number
// of nested items (list, record); c is the number of nested items for option and tuple
func MakePattern(kind PatternKind, a uint32, c uint8) Op {
	return NewOp(OpKindMakePattern, uint8(kind), c, a)
}

func Access(field StringHash) Op {
	return NewOp(OpKindAccess, 0, 0, uint32(field))
}

func Update(field StringHash) Op {
	return NewOp(OpKindUpdate, 0, 0, uint32(field))
}

func SwapPop(mode SwapPopMode) Op {
	return NewOp(OpKindSwapPop, uint8(mode), 0, 0)
}

func (op Op) String() string {
	kind, b, c, a := op.Decompose()
	switch kind {
	case OpKindLoadLocal:
		return fmt.Sprintf("load.local %d", a)
	case OpKindLoadGlobal:
		return fmt.Sprintf("load.global %d", a)
	case OpKindLoadConst:
		return fmt.Sprintf("load.const stack=%d kind=%d %d", b, c, a)
	case OpKindApply:
		return fmt.Sprintf("apply %d", b)
	case OpKindCall:
		return fmt.Sprintf("call %d", a)
	case OpKindJump:
		if JumpMode(b) == JumpModeMatch {
			return fmt.Sprintf("match +%d", a)
		}
		return fmt.Sprintf("jump +%d", a)
	case OpKindMakeObject:
		return fmt.Sprintf("make.object kind=%d %d", b, a)
	case OpKindMakePattern:
		return fmt.Sprintf("make.pattern kind=%d %d %d", b, a, c)
	case OpKindAccess:
		return fmt.Sprintf("access %d", a)
	case OpKindUpdate:
		return fmt.Sprintf("update %d", a)
	case OpKindSwapPop:
		return fmt.Sprintf("swap.pop %d", b)
	default:
		return fmt.Sprintf("invalid 0x%016x", uint64(op))
	}
}
