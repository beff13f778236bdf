package runtime

import (
	"fmt"

	"nar-runtime/pkg/bytecode"
)

const kTrue = "Nar.Base.Basics.Bool#True"
const kFalse = "Nar.Base.Basics.Bool#False"

const (
	kindShift  = 56
	indexMask  = uint64(1)<<kindShift - 1
	emptyIndex = uint64(0x0080000000000000)
)

// Object is a handle to a value stored in one of the arenas:
// kind in the highest 8 bits and arena index in the rest.
// Zero is never a valid handle.
type Object uint64

const InvalidObject Object = 0

func newObject(kind InstanceKind, index uint64) Object {
	return Object(uint64(kind)<<kindShift | index&indexMask)
}

func emptyObject(kind InstanceKind) Object {
	return newObject(kind, emptyIndex)
}

func (o Object) Kind() InstanceKind {
	return InstanceKind(uint64(o) >> kindShift)
}

func (o Object) index() uint64 {
	return uint64(o) & indexMask
}

func (o Object) IsValid() bool {
	return o != InvalidObject
}

// IsEmpty reports whether the object is a terminator of an empty list, tuple or record
func (o Object) IsEmpty() bool {
	return o.index() == emptyIndex
}

func (o Object) String() string {
	if o.IsEmpty() {
		return fmt.Sprintf("%s(empty)", o.Kind())
	}
	return fmt.Sprintf("%s#%d", o.Kind(), o.index())
}

type recordField struct {
	key    Object
	value  Object
	parent Object
}

type chainItem struct {
	value Object
	next  Object
}

type option struct {
	name   Object
	values Object
}

type function struct {
	name  bytecode.FullIdentifier
	call  nativeFunc
	arity int
}

type closure struct {
	fn      bytecode.Pointer
	curried Object
}

// Comparator reports -1, 0 or 1 comparing two native values.
// Natives without comparator are equal only to themselves.
type Comparator func(a, b any) int

type native struct {
	ptr any
	cmp Comparator
}

type pattern struct {
	kind  bytecode.PatternKind
	name  Object
	items Object
}

type InstanceKind uint8

const (
	InstanceKindUnknown InstanceKind = iota
	InstanceKindUnit
	InstanceKindChar
	InstanceKindInt
	InstanceKindFloat
	InstanceKindString
	InstanceKindRecord
	InstanceKindTuple
	InstanceKindList
	InstanceKindOption
	InstanceKindFunction
	InstanceKindClosure
	InstanceKindNative
	InstanceKindPattern
	instanceKindCount
)

func (kind InstanceKind) String() string {
	switch kind {
	case InstanceKindUnit:
		return "Unit"
	case InstanceKindChar:
		return "Char"
	case InstanceKindInt:
		return "Int"
	case InstanceKindFloat:
		return "Float"
	case InstanceKindString:
		return "String"
	case InstanceKindRecord:
		return "Record"
	case InstanceKindTuple:
		return "Tuple"
	case InstanceKindList:
		return "List"
	case InstanceKindOption:
		return "Option"
	case InstanceKindFunction:
		return "Function"
	case InstanceKindClosure:
		return "Closure"
	case InstanceKindNative:
		return "Native"
	case InstanceKindPattern:
		return "Pattern"
	default:
		return "Unknown"
	}
}

func typeMismatch(expected InstanceKind, got Object) error {
	if !got.IsValid() {
		return fmt.Errorf("%w: expected %s, got invalid object", ErrInvalidObject, expected)
	}
	return fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, expected, got.Kind())
}
